// Package transaction implements the document core's transaction stage
// (spec §4.G): a shadow store that buffers ops applied during a
// transaction so they can be committed as one DocumentChange or reverted
// as a unit.
package transaction

import (
	"github.com/systemshift/substance/internal/substance/ops"
	"github.com/systemshift/substance/internal/substance/store"
	"github.com/systemshift/substance/internal/substance/substanceerr"
)

// State is the stage's lifecycle position.
type State int

const (
	Idle State = iota
	Active
)

// Stage holds a full clone of the live store's data and buffers the ops
// applied to it while a transaction is active. It has no opinion about
// DocumentChange or history; the document facade builds those from what
// Save returns.
type Stage struct {
	store             *store.Store
	state             State
	buffer            []ops.Op
	beforeState       map[string]any
	forceTransactions bool
}

// New creates a stage over shadowStore, which the caller has already
// populated as a clone of the live store (with its own indices wired).
func New(shadowStore *store.Store) *Stage {
	return &Stage{store: shadowStore, state: Idle}
}

// ForceTransactions records whether mutation is permitted outside a
// transaction. The stage itself only stores the setting: Apply still
// mirrors ops outside a transaction, and it is the facade that rejects
// non-transactional Create/Set/Update/Delete calls when it is enabled.
func (s *Stage) ForceTransactions(v bool) { s.forceTransactions = v }

// ForceTransactionsEnabled reports the current setting.
func (s *Stage) ForceTransactionsEnabled() bool { return s.forceTransactions }

// State reports whether a transaction is active.
func (s *Stage) State() State { return s.state }

// Store returns the shadow store, for read access and for callers that
// construct the stage's indices.
func (s *Stage) Store() *store.Store { return s.store }

// Start begins a transaction. beforeState is the caller-captured snapshot
// (e.g. selection) that Save will merge returned values into. Fails with
// NestedTransaction if a transaction is already active.
func (s *Stage) Start(beforeState map[string]any) error {
	if s.state == Active {
		return substanceerr.ErrNestedTransaction
	}
	s.state = Active
	s.buffer = nil
	s.beforeState = cloneState(beforeState)
	return nil
}

// Apply applies op to the stage's shadow store. While a transaction is
// active, the applied (captured) op is buffered for Save/Cancel. Outside a
// transaction, this is the legacy mirroring affordance described in spec
// §4.G: the live store already applied its own copy of op, and the
// caller calls Apply here only to keep the stage's shadow data in sync.
func (s *Stage) Apply(op ops.Op) (ops.Op, error) {
	applied, err := s.store.Apply(op)
	if err != nil {
		return nil, err
	}
	if s.state == Active {
		s.buffer = append(s.buffer, applied)
	}
	return applied, nil
}

// Save commits the active transaction. afterStateReturned is what the
// user-supplied transformation returned; only keys already present in
// beforeState are merged in, unknown keys are ignored (spec §4.G). Save
// returns the buffered ops plus the before/after state to let the facade
// build a DocumentChange; it does not reset the shadow store, since it
// already reflects the committed state.
func (s *Stage) Save(afterStateReturned map[string]any) (appliedOps []ops.Op, beforeState, afterState map[string]any, err error) {
	if s.state != Active {
		return nil, nil, nil, substanceerr.InvalidOperation("save called with no active transaction")
	}
	appliedOps = s.buffer
	beforeState = s.beforeState
	afterState = mergeAfterState(s.beforeState, afterStateReturned)
	s.buffer = nil
	s.beforeState = nil
	s.state = Idle
	return appliedOps, beforeState, afterState, nil
}

// Cancel discards the active transaction, reverting the shadow store by
// applying the inverse of each buffered op in reverse order.
func (s *Stage) Cancel() error {
	if s.state != Active {
		return substanceerr.InvalidOperation("cancel called with no active transaction")
	}
	inverses := ops.InvertAll(s.buffer)
	for _, inv := range inverses {
		if _, err := s.store.Apply(inv); err != nil {
			return err
		}
	}
	s.buffer = nil
	s.beforeState = nil
	s.state = Idle
	return nil
}

func cloneState(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func mergeAfterState(before, returned map[string]any) map[string]any {
	if before == nil {
		return nil
	}
	out := make(map[string]any, len(before))
	for k, v := range before {
		if nv, ok := returned[k]; ok {
			out[k] = nv
		} else {
			out[k] = v
		}
	}
	return out
}
