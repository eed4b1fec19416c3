// Package change implements the document core's change record and undo
// history (spec §4.H).
package change

import (
	"time"

	"github.com/systemshift/substance/internal/substance/ops"
	"github.com/systemshift/substance/internal/substance/substanceerr"
)

// DocumentChange is the unit the history stack records: an ordered list
// of ops plus the before/after state snapshots a transaction's
// transformation produced, and an info bag for listeners.
type DocumentChange struct {
	Ops         []ops.Op
	BeforeState map[string]any
	AfterState  map[string]any
	Timestamp   time.Time
	Info        map[string]any
}

// IsEmpty reports whether the change has no ops. An empty-transaction
// commit must not be pushed to history (spec §8).
func (c DocumentChange) IsEmpty() bool {
	return len(c.Ops) == 0
}

// Invert returns the change that undoes c: each op inverted in reverse
// order, before/after state swapped, and Info marked replay:true so
// listeners can distinguish a replayed commit from a user-driven one.
func (c DocumentChange) Invert() DocumentChange {
	info := make(map[string]any, len(c.Info)+1)
	for k, v := range c.Info {
		info[k] = v
	}
	info["replay"] = true
	return DocumentChange{
		Ops:         ops.InvertAll(c.Ops),
		BeforeState: c.AfterState,
		AfterState:  c.BeforeState,
		Timestamp:   c.Timestamp,
		Info:        info,
	}
}

// History holds the done/undone stacks. It never touches a store itself:
// Undo/Redo return the change the caller must apply (as a replay, not a
// recorded commit).
type History struct {
	done   []DocumentChange
	undone []DocumentChange
}

// NewHistory creates an empty history.
func NewHistory() *History {
	return &History{}
}

// Commit records a non-replay change and clears the redo stack. A change
// with no ops is not pushed (spec §8).
func (h *History) Commit(c DocumentChange) {
	if c.IsEmpty() {
		return
	}
	h.done = append(h.done, c)
	h.undone = nil
}

// Undo pops the most recent change off done, pushes it onto undone, and
// returns the inverse change for the caller to apply as a replay. Fails
// with NoChangeToUndo if done is empty.
func (h *History) Undo() (DocumentChange, error) {
	if len(h.done) == 0 {
		return DocumentChange{}, substanceerr.ErrNoChangeToUndo
	}
	last := h.done[len(h.done)-1]
	h.done = h.done[:len(h.done)-1]
	h.undone = append(h.undone, last)
	return last.Invert(), nil
}

// Redo pops the most recent change off undone, pushes it back onto done,
// and returns the original (forward) change for the caller to re-apply as
// a replay. Fails with NoChangeToRedo if undone is empty.
func (h *History) Redo() (DocumentChange, error) {
	if len(h.undone) == 0 {
		return DocumentChange{}, substanceerr.ErrNoChangeToRedo
	}
	last := h.undone[len(h.undone)-1]
	h.undone = h.undone[:len(h.undone)-1]
	h.done = append(h.done, last)
	return last, nil
}

// DoneLen and UndoneLen report stack depths, mainly for tests and UI
// affordances like disabling an undo button.
func (h *History) DoneLen() int   { return len(h.done) }
func (h *History) UndoneLen() int { return len(h.undone) }
