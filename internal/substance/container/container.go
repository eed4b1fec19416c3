// Package container implements the document core's container model (spec
// §4.F): an ordered list of child node ids with show/hide semantics. The
// list itself lives as an ordinary []string property on a container node;
// this package only builds the update ops that mutate it and reads
// positions out of the current slice, leaving application to the store.
package container

import "github.com/systemshift/substance/internal/substance/ops"

// Property is the conventional name of a container node's ordered
// child-id list.
const Property = "nodes"

// Show builds the update op that inserts id into nodes, at pos if given
// or appended to the end otherwise. It is a convenience transform: the
// caller still applies the returned op through the store.
func Show(target ops.Path, current []string, id string, pos *int) ops.Update {
	index := len(current)
	if pos != nil {
		index = *pos
	}
	if index < 0 {
		index = 0
	}
	if index > len(current) {
		index = len(current)
	}
	return ops.Update{Target: target, Diff: ops.ListSplice{Index: index, Remove: 0, Insert: []string{id}}}
}

// Hide builds the update op that removes the first occurrence of id from
// nodes. ok is false if id is not present, in which case no op should be
// applied.
func Hide(target ops.Path, current []string, id string) (op ops.Update, ok bool) {
	idx := IndexOf(current, id)
	if idx < 0 {
		return ops.Update{}, false
	}
	return ops.Update{Target: target, Diff: ops.ListSplice{Index: idx, Remove: 1}}, true
}

// IndexOf returns the position of the first occurrence of id in nodes, or
// -1 if absent.
func IndexOf(nodes []string, id string) int {
	for i, n := range nodes {
		if n == id {
			return i
		}
	}
	return -1
}

// GetPosition returns id's position in nodes and whether it was found.
func GetPosition(nodes []string, id string) (int, bool) {
	idx := IndexOf(nodes, id)
	return idx, idx >= 0
}
