package store

import "github.com/systemshift/substance/internal/substance/ops"

// Index is the contract every secondary index implements. The store
// dispatches each applied op to every registered index so indices stay
// derivable from (and always in sync with) the node table — spec
// invariant 4.
type Index interface {
	OnCreate(n ops.Node)
	OnDelete(n ops.Node)
	OnSet(n ops.Node, property string, oldVal, newVal any)
	OnUpdate(n ops.Node, property string, diff ops.Diff)
}

// TypeIndex is the store's required by-type index: for any registered
// type name it returns the set of node ids currently of that type.
type TypeIndex struct {
	ids map[string]map[string]struct{}
}

// NewTypeIndex creates an empty type index.
func NewTypeIndex() *TypeIndex {
	return &TypeIndex{ids: make(map[string]map[string]struct{})}
}

func (idx *TypeIndex) OnCreate(n ops.Node) {
	set, ok := idx.ids[n.Type]
	if !ok {
		set = make(map[string]struct{})
		idx.ids[n.Type] = set
	}
	set[n.ID] = struct{}{}
}

func (idx *TypeIndex) OnDelete(n ops.Node) {
	if set, ok := idx.ids[n.Type]; ok {
		delete(set, n.ID)
	}
}

func (idx *TypeIndex) OnSet(n ops.Node, property string, oldVal, newVal any) {}

func (idx *TypeIndex) OnUpdate(n ops.Node, property string, diff ops.Diff) {}

// IDsOfType returns the (unordered) set of node ids of the given type.
func (idx *TypeIndex) IDsOfType(nodeType string) []string {
	set, ok := idx.ids[nodeType]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	return out
}
