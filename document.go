// Package substance is a document core for building structured-document
// editors: a schema-typed node store, an invertible operation/transaction
// pipeline, annotation indices, and a DOM<->model coordinate resolver.
// Document is the single object a view layer drives.
package substance

import (
	"errors"
	"time"

	"github.com/systemshift/substance/internal/substance/annotation"
	"github.com/systemshift/substance/internal/substance/change"
	"github.com/systemshift/substance/internal/substance/container"
	"github.com/systemshift/substance/internal/substance/containerannotation"
	"github.com/systemshift/substance/internal/substance/ops"
	"github.com/systemshift/substance/internal/substance/proxy"
	"github.com/systemshift/substance/internal/substance/schema"
	"github.com/systemshift/substance/internal/substance/selection"
	"github.com/systemshift/substance/internal/substance/store"
	"github.com/systemshift/substance/internal/substance/substanceerr"
	"github.com/systemshift/substance/internal/substance/transaction"
	"github.com/systemshift/substance/internal/substance/wire"
)

// ErrCancelled is returned by a transformation passed to Transaction to
// explicitly abort the transaction, as opposed to a transformation error
// that propagates to the caller. Transaction treats both the same way as
// far as the stage is concerned (revert and discard) but only propagates
// the latter.
var ErrCancelled = errors.New("substance: transaction cancelled")

// Document owns the schema, the live store and its indices, the
// transaction stage, the undo history, and the event proxy registry
// (spec §2 components A-K wired together).
type Document struct {
	schema               *schema.Schema
	store                *store.Store
	annotations          *annotation.Index
	containerAnnotations *containerannotation.Index
	stage                *transaction.Stage
	history              *change.History
	proxies              *proxy.Registry
	byPath               *proxy.ByPath
	forceTransactions    bool
}

// New creates an empty document over s, which should already be frozen.
func New(s *schema.Schema) *Document {
	liveStore, annIdx, capIdx := wireStore(s)
	stageStore, _, _ := cloneWired(liveStore, s)

	d := &Document{
		schema:               s,
		store:                liveStore,
		annotations:          annIdx,
		containerAnnotations: capIdx,
		stage:                transaction.New(stageStore),
		history:              change.NewHistory(),
		proxies:              proxy.NewRegistry(),
		byPath:               proxy.NewByPath(),
	}
	d.proxies.Register(d.byPath)
	return d
}

func wireStore(s *schema.Schema) (*store.Store, *annotation.Index, *containerannotation.Index) {
	st := store.New()
	annIdx := annotation.New(s)
	capIdx := containerannotation.New(s)
	st.RegisterIndex(annIdx)
	st.RegisterIndex(capIdx)
	return st, annIdx, capIdx
}

// cloneWired clones src and wires fresh annotation/container-annotation
// indices over the clone, backfilling them from its existing nodes — the
// store package only rebuilds its own required type index on Clone.
func cloneWired(src *store.Store, s *schema.Schema) (*store.Store, *annotation.Index, *containerannotation.Index) {
	cloned := src.Clone()
	annIdx := annotation.New(s)
	capIdx := containerannotation.New(s)
	cloned.RegisterIndex(annIdx)
	cloned.RegisterIndex(capIdx)
	for _, id := range cloned.IDs() {
		n, _ := cloned.Get(id)
		annIdx.OnCreate(n)
		capIdx.OnCreate(n)
	}
	return cloned, annIdx, capIdx
}

// Schema returns the document's schema.
func (d *Document) Schema() *schema.Schema { return d.schema }

// Get returns a copy of the node with the given id.
func (d *Document) Get(id string) (ops.Node, bool) {
	return d.store.Get(id)
}

// ForceTransactions toggles whether mutation is permitted outside
// Transaction. When enabled, Create/Set/UpdateProperty/Delete/Show/Hide
// all fail with InvalidOperation unless called from within a
// transformation (spec §4.G, §9 open question: resolved in favor of
// mirroring by default, opt-in strict mode).
func (d *Document) ForceTransactions(v bool) {
	d.forceTransactions = v
	d.stage.ForceTransactions(v)
}

// mutate routes op to the active transaction's stage, or — outside a
// transaction — applies it to the live store and mirrors the applied op
// into the stage so both stay in sync (spec §4.G legacy affordance).
func (d *Document) mutate(op ops.Op) (ops.Op, error) {
	if d.stage.State() == transaction.Active {
		return d.stage.Apply(op)
	}
	if d.forceTransactions {
		return nil, substanceerr.InvalidOperation("mutation outside a transaction is disabled; use Transaction")
	}
	applied, err := d.store.Apply(op)
	if err != nil {
		return nil, err
	}
	if _, err := d.stage.Apply(applied); err != nil {
		return nil, err
	}
	return applied, nil
}

// Create adds a node.
func (d *Document) Create(n ops.Node) error {
	_, err := d.mutate(ops.Create{Node: n})
	return err
}

// Set replaces a single property's value.
func (d *Document) Set(target ops.Path, value any) error {
	_, err := d.mutate(ops.Set{Target: target, NewValue: value})
	return err
}

// UpdateProperty applies a typed diff to a property.
func (d *Document) UpdateProperty(target ops.Path, diff ops.Diff) error {
	_, err := d.mutate(ops.Update{Target: target, Diff: diff})
	return err
}

// Delete removes a node by id.
func (d *Document) Delete(id string) error {
	_, err := d.mutate(ops.Delete{ID: id})
	return err
}

// Show inserts childID into containerID's ordered child list, at pos if
// given or appended otherwise (spec §4.F).
func (d *Document) Show(containerID, childID string, pos *int) error {
	n, ok := d.store.Get(containerID)
	if !ok {
		return substanceerr.InvalidOperation("show: unknown container " + containerID)
	}
	current, _ := n.Properties[container.Property].([]string)
	op := container.Show(ops.NewPath(containerID, container.Property), current, childID, pos)
	_, err := d.mutate(op)
	return err
}

// Hide removes the first occurrence of childID from containerID's
// ordered child list. A missing childID is a no-op, not an error.
func (d *Document) Hide(containerID, childID string) error {
	n, ok := d.store.Get(containerID)
	if !ok {
		return substanceerr.InvalidOperation("hide: unknown container " + containerID)
	}
	current, _ := n.Properties[container.Property].([]string)
	op, ok := container.Hide(ops.NewPath(containerID, container.Property), current, childID)
	if !ok {
		return nil
	}
	_, err := d.mutate(op)
	return err
}

// SpliceText splices a property's text and re-anchors every annotation on
// that path by the same edit (spec scenario 2, §8): the compound
// operation the annotation index itself deliberately does not perform.
func (d *Document) SpliceText(path ops.Path, splice ops.StringSplice) error {
	entries := d.annotations.AllForPath(path)
	if _, err := d.mutate(ops.Update{Target: path, Diff: splice}); err != nil {
		return err
	}
	for _, e := range entries {
		newStart := splice.MapOffset(e.Start)
		newEnd := splice.MapOffset(e.End)
		if newStart == e.Start && newEnd == e.End {
			continue
		}
		if _, err := d.mutate(ops.Set{Target: ops.NewPath(e.ID, "startOffset"), NewValue: newStart}); err != nil {
			return err
		}
		if _, err := d.mutate(ops.Set{Target: ops.NewPath(e.ID, "endOffset"), NewValue: newEnd}); err != nil {
			return err
		}
	}
	return nil
}

// QueryAnnotations returns every annotation anchored to path overlapping
// [start,end], optionally narrowed to one type (spec §4.D).
func (d *Document) QueryAnnotations(path ops.Path, start, end int64, typeFilter string) []annotation.Entry {
	return d.annotations.Query(path, start, end, typeFilter)
}

// QueryContainerAnnotationsForSelection returns every container
// annotation anchored to containerID overlapping sel, given order (the
// container's current children). A container with no annotations, or one
// not present in order, returns an empty slice rather than an error
// (spec §9 open question).
func (d *Document) QueryContainerAnnotationsForSelection(containerID string, sel selection.ContainerSelection, order []string, typeFilter string) []containerannotation.Entry {
	return d.containerAnnotations.OverlappingSelection(containerID, sel, order, typeFilter)
}

// Transaction runs fn against the stage and, on success, commits the ops
// it applied as one DocumentChange: pushed to the live store, recorded to
// history, and dispatched to proxies (spec §4.G). fn receives the stage
// as its sole argument and returns an after-state mapping merged into
// beforeState (unknown keys ignored). Returning ErrCancelled (or any
// error wrapping it) discards the transaction without propagating an
// error; any other error also discards the transaction but propagates. A
// panic inside fn also discards the transaction and is then re-raised.
func (d *Document) Transaction(beforeState map[string]any, fn func(stage *transaction.Stage) (map[string]any, error)) (change.DocumentChange, error) {
	if err := d.stage.Start(beforeState); err != nil {
		return change.DocumentChange{}, err
	}
	defer func() {
		if r := recover(); r != nil {
			if d.stage.State() == transaction.Active {
				_ = d.stage.Cancel()
			}
			panic(r)
		}
	}()

	returned, err := fn(d.stage)
	if err != nil {
		// fn may have already cancelled the stage itself before returning
		// ErrCancelled; only cancel here if it left the transaction active.
		if d.stage.State() == transaction.Active {
			if cancelErr := d.stage.Cancel(); cancelErr != nil {
				return change.DocumentChange{}, cancelErr
			}
		}
		if errors.Is(err, ErrCancelled) {
			return change.DocumentChange{}, nil
		}
		return change.DocumentChange{}, err
	}

	appliedOps, beforeSnap, afterSnap, err := d.stage.Save(returned)
	if err != nil {
		return change.DocumentChange{}, err
	}

	c := change.DocumentChange{
		Ops:         appliedOps,
		BeforeState: beforeSnap,
		AfterState:  afterSnap,
		Timestamp:   time.Now(),
		Info:        map[string]any{},
	}
	for _, op := range c.Ops {
		if _, err := d.store.Apply(op); err != nil {
			return change.DocumentChange{}, err
		}
	}
	d.history.Commit(c)
	d.proxies.Dispatch(c, c.Info)
	return c, nil
}

// Undo reverts the most recent committed change and pushes it onto the
// redo stack. Fails with NoChangeToUndo if history is exhausted.
func (d *Document) Undo() (change.DocumentChange, error) {
	inverse, err := d.history.Undo()
	if err != nil {
		return change.DocumentChange{}, err
	}
	if err := d.replay(inverse); err != nil {
		return change.DocumentChange{}, err
	}
	return inverse, nil
}

// Redo re-applies the most recently undone change. Fails with
// NoChangeToRedo if the redo stack is empty.
func (d *Document) Redo() (change.DocumentChange, error) {
	forward, err := d.history.Redo()
	if err != nil {
		return change.DocumentChange{}, err
	}
	replayed := markReplay(forward)
	if err := d.replay(replayed); err != nil {
		return change.DocumentChange{}, err
	}
	return replayed, nil
}

// replay applies every op in c to both the live store and the stage's
// shadow store, then dispatches proxies. Used by Undo/Redo, whose ops
// never touched the stage the way a live transaction's ops did.
func (d *Document) replay(c change.DocumentChange) error {
	for _, op := range c.Ops {
		applied, err := d.store.Apply(op)
		if err != nil {
			return err
		}
		if _, err := d.stage.Apply(applied); err != nil {
			return err
		}
	}
	d.proxies.Dispatch(c, c.Info)
	return nil
}

func markReplay(c change.DocumentChange) change.DocumentChange {
	info := make(map[string]any, len(c.Info)+1)
	for k, v := range c.Info {
		info[k] = v
	}
	info["replay"] = true
	c.Info = info
	return c
}

// Subscribe registers fn to be notified only when a committed change
// touches path (spec §4.I by-path proxy).
func (d *Document) Subscribe(path ops.Path, fn proxy.Listener) string {
	return d.byPath.Subscribe(path, fn)
}

// Unsubscribe removes a listener previously returned by Subscribe.
func (d *Document) Unsubscribe(path ops.Path, id string) {
	d.byPath.Unsubscribe(path, id)
}

// OnDocumentChanged registers a global listener invoked after every
// proxy on every committed or replayed change.
func (d *Document) OnDocumentChanged(fn func(c change.DocumentChange, info map[string]any)) {
	d.proxies.OnDocumentChanged(fn)
}

// Clone returns a deep, independent copy of the document: its own store,
// indices, and stage, none of which alias d's. History and proxy
// registrations are not carried over — a clone starts with a clean undo
// history and no listeners, the way a forked document would.
func (d *Document) Clone() *Document {
	clonedStore, annIdx, capIdx := cloneWired(d.store, d.schema)
	stageStore, _, _ := cloneWired(clonedStore, d.schema)

	out := &Document{
		schema:               d.schema,
		store:                clonedStore,
		annotations:          annIdx,
		containerAnnotations: capIdx,
		stage:                transaction.New(stageStore),
		history:              change.NewHistory(),
		proxies:              proxy.NewRegistry(),
		byPath:               proxy.NewByPath(),
		forceTransactions:    d.forceTransactions,
	}
	out.proxies.Register(out.byPath)
	out.stage.ForceTransactions(out.forceTransactions)
	return out
}

// Snapshot returns the document's current persisted state (spec §6).
func (d *Document) Snapshot() wire.Snapshot {
	ids := d.store.IDs()
	nodes := make([]wire.Node, 0, len(ids))
	for _, id := range ids {
		n, _ := d.store.Get(id)
		nodes = append(nodes, wire.FromOpsNode(n))
	}
	return wire.Snapshot{
		Schema: wire.Schema{Name: d.schema.Name, Version: d.schema.Version},
		Nodes:  nodes,
	}
}

// LoadSnapshot replaces the document's nodes with snap's, inside an
// implicit transaction that is not pushed to history (spec §6). Fails if
// a transaction is currently active.
func (d *Document) LoadSnapshot(snap wire.Snapshot) error {
	if d.stage.State() == transaction.Active {
		return substanceerr.InvalidOperation("cannot load a snapshot while a transaction is active")
	}

	newStore, annIdx, capIdx := wireStore(d.schema)
	for _, wn := range snap.Nodes {
		if _, err := newStore.Apply(ops.Create{Node: wn.ToOpsNode()}); err != nil {
			return err
		}
	}

	stageStore, _, _ := cloneWired(newStore, d.schema)
	d.store = newStore
	d.annotations = annIdx
	d.containerAnnotations = capIdx
	d.stage = transaction.New(stageStore)
	d.stage.ForceTransactions(d.forceTransactions)
	return nil
}
