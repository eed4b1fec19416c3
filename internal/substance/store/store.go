// Package store implements the document core's in-memory object table:
// nodes keyed by id, plus the secondary indices kept in sync with it.
// The store is the single owner of node data — spec §3 "Ownership":
// callers get ids back, never pointers into the table, and re-resolve on
// every access.
package store

import (
	"github.com/systemshift/substance/internal/substance/ops"
	"github.com/systemshift/substance/internal/substance/substanceerr"
)

// Store is the mapping id -> node plus the indices that observe it.
type Store struct {
	nodes     map[string]ops.Node
	typeIndex *TypeIndex
	indices   []Index
}

// New creates an empty store. The required by-type index is always
// present; RegisterIndex adds the rest (annotation, container-annotation).
func New() *Store {
	ti := NewTypeIndex()
	s := &Store{
		nodes:     make(map[string]ops.Node),
		typeIndex: ti,
	}
	s.indices = append(s.indices, ti)
	return s
}

// RegisterIndex adds an index that will be dispatched to on every applied
// op from this point on. Indices registered after nodes already exist do
// not receive retroactive OnCreate calls — callers wire indices before
// loading data.
func (s *Store) RegisterIndex(idx Index) {
	s.indices = append(s.indices, idx)
}

// TypeIndex returns the store's required by-type index.
func (s *Store) TypeIndex() *TypeIndex {
	return s.typeIndex
}

// Get returns a copy of the node with the given id.
func (s *Store) Get(id string) (ops.Node, bool) {
	n, ok := s.nodes[id]
	if !ok {
		return ops.Node{}, false
	}
	return n.Clone(), true
}

// Has reports whether a node with the given id exists.
func (s *Store) Has(id string) bool {
	_, ok := s.nodes[id]
	return ok
}

// Len returns the number of nodes in the store.
func (s *Store) Len() int {
	return len(s.nodes)
}

// IDs returns all node ids, in no particular order.
func (s *Store) IDs() []string {
	out := make([]string, 0, len(s.nodes))
	for id := range s.nodes {
		out = append(out, id)
	}
	return out
}

// Apply executes op against the node table, dispatches it to every
// registered index, and returns the applied op with its captured
// pre-state filled in — the form that can produce op.Invert() without
// consulting the store again. Apply never partially mutates on error: it
// validates before writing.
func (s *Store) Apply(op ops.Op) (ops.Op, error) {
	switch o := op.(type) {
	case ops.Create:
		return s.applyCreate(o)
	case ops.Delete:
		return s.applyDelete(o)
	case ops.Set:
		return s.applySet(o)
	case ops.Update:
		return s.applyUpdate(o)
	default:
		return nil, substanceerr.InvalidOperation("unknown op type")
	}
}

func (s *Store) applyCreate(o ops.Create) (ops.Op, error) {
	if o.Node.ID == "" {
		return nil, substanceerr.InvalidOperation("create: node id is empty")
	}
	if s.Has(o.Node.ID) {
		return nil, substanceerr.InvalidOperation("create: node already exists: " + o.Node.ID)
	}
	n := o.Node.Clone()
	s.nodes[n.ID] = n
	for _, idx := range s.indices {
		idx.OnCreate(n)
	}
	return ops.Create{Node: n}, nil
}

func (s *Store) applyDelete(o ops.Delete) (ops.Op, error) {
	n, ok := s.nodes[o.ID]
	if !ok {
		return nil, substanceerr.InvalidOperation("delete: node does not exist: " + o.ID)
	}
	delete(s.nodes, o.ID)
	for _, idx := range s.indices {
		idx.OnDelete(n)
	}
	return o.WithCaptured(n), nil
}

func (s *Store) applySet(o ops.Set) (ops.Op, error) {
	n, ok := s.nodes[o.Target.NodeID()]
	if !ok {
		return nil, substanceerr.InvalidOperation("set: node does not exist: " + o.Target.NodeID())
	}
	property := o.Target.Property()
	oldVal := n.Properties[property]
	if n.Properties == nil {
		n.Properties = make(map[string]any)
	}
	n.Properties[property] = o.NewValue
	s.nodes[n.ID] = n
	for _, idx := range s.indices {
		idx.OnSet(n, property, oldVal, o.NewValue)
	}
	return o.WithOldValue(oldVal), nil
}

func (s *Store) applyUpdate(o ops.Update) (ops.Op, error) {
	n, ok := s.nodes[o.Target.NodeID()]
	if !ok {
		return nil, substanceerr.InvalidOperation("update: node does not exist: " + o.Target.NodeID())
	}
	property := o.Target.Property()
	current := n.Properties[property]
	newVal, inverse, err := o.Diff.Apply(current)
	if err != nil {
		return nil, substanceerr.InvalidOperation("update: " + err.Error())
	}
	if n.Properties == nil {
		n.Properties = make(map[string]any)
	}
	n.Properties[property] = newVal
	s.nodes[n.ID] = n
	for _, idx := range s.indices {
		idx.OnUpdate(n, property, o.Diff)
	}
	return o.WithInverseDiff(inverse), nil
}

// Clone returns a deep, independent copy of the node table. Of the
// indices, only the required type index is rebuilt over the clone;
// indices added with RegisterIndex are not copied, and the caller
// registers and backfills its own over the clone (the document facade
// does this when it builds the transaction stage's shadow store).
func (s *Store) Clone() *Store {
	out := New()
	for id, n := range s.nodes {
		out.nodes[id] = n.Clone()
		out.typeIndex.OnCreate(out.nodes[id])
	}
	return out
}
