// Package containerannotation implements the document core's index over
// container annotations (spec §4.E): annotations that span a run of a
// container's children rather than a range within one text property.
package containerannotation

import (
	"github.com/systemshift/substance/internal/substance/ops"
	"github.com/systemshift/substance/internal/substance/schema"
	"github.com/systemshift/substance/internal/substance/selection"
)

// Entry is the index's read-only view of one container annotation.
type Entry struct {
	ID        string
	Container string
	Selection selection.ContainerSelection
	Type      string
}

// Index watches every applied op and keeps container annotations
// reachable by id and by the container they annotate. Unlike annotation.Index
// it keeps no sorted order within a container: overlap queries need the
// container's current child order anyway (spec §4.E), so candidates are
// filtered linearly and overlap math is delegated to
// selection.ContainerSelection.Overlaps.
type Index struct {
	schema      *schema.Schema
	byID        map[string]Entry
	byContainer map[string][]string // node ids
}

// New creates an empty index. s is used only to recognize which node
// types play the container-annotation role.
func New(s *schema.Schema) *Index {
	return &Index{
		schema:      s,
		byID:        make(map[string]Entry),
		byContainer: make(map[string][]string),
	}
}

func (idx *Index) OnCreate(n ops.Node) { idx.refresh(n) }
func (idx *Index) OnSet(n ops.Node, property string, oldVal, newVal any) {
	idx.refresh(n)
}
func (idx *Index) OnUpdate(n ops.Node, property string, diff ops.Diff) {
	idx.refresh(n)
}

func (idx *Index) OnDelete(n ops.Node) {
	old, ok := idx.byID[n.ID]
	if !ok {
		return
	}
	idx.removeFromContainer(old)
	delete(idx.byID, n.ID)
}

func (idx *Index) refresh(n ops.Node) {
	entry, ok := idx.extractEntry(n)
	if old, existed := idx.byID[n.ID]; existed {
		idx.removeFromContainer(old)
		delete(idx.byID, n.ID)
	}
	if !ok {
		return
	}
	idx.byID[n.ID] = entry
	idx.byContainer[entry.Container] = append(idx.byContainer[entry.Container], n.ID)
}

func (idx *Index) extractEntry(n ops.Node) (Entry, bool) {
	if idx.schema == nil || !idx.schema.IsContainerAnnotationType(n.Type) {
		return Entry{}, false
	}
	container, ok := n.Properties["container"].(string)
	if !ok {
		return Entry{}, false
	}
	startPath, ok := ops.AsPath(n.Properties["startPath"])
	if !ok {
		return Entry{}, false
	}
	endPath, ok := ops.AsPath(n.Properties["endPath"])
	if !ok {
		return Entry{}, false
	}
	startOffset, ok := asInt64(n.Properties["startOffset"])
	if !ok {
		return Entry{}, false
	}
	endOffset, ok := asInt64(n.Properties["endOffset"])
	if !ok {
		return Entry{}, false
	}
	sel := selection.ContainerSelection{
		Container:   container,
		StartPath:   startPath,
		StartOffset: startOffset,
		EndPath:     endPath,
		EndOffset:   endOffset,
	}
	return Entry{ID: n.ID, Container: container, Selection: sel, Type: n.Type}, true
}

// asInt64 accepts int64/int, the native forms a caller builds by hand,
// and float64, the form encoding/json decodes any number into.
func asInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case float64:
		return int64(n), true
	default:
		return 0, false
	}
}

func (idx *Index) removeFromContainer(e Entry) {
	ids := idx.byContainer[e.Container]
	for i, id := range ids {
		if id == e.ID {
			idx.byContainer[e.Container] = append(ids[:i], ids[i+1:]...)
			return
		}
	}
}

// ForContainer returns every container annotation anchored to container,
// in no particular order.
func (idx *Index) ForContainer(container string) []Entry {
	ids := idx.byContainer[container]
	out := make([]Entry, len(ids))
	for i, id := range ids {
		out[i] = idx.byID[id]
	}
	return out
}

// OverlappingSelection returns every container annotation anchored to
// container whose selection overlaps sel, given order (the container's
// current children in document order), optionally narrowed to one type.
func (idx *Index) OverlappingSelection(container string, sel selection.ContainerSelection, order []string, typeFilter string) []Entry {
	var out []Entry
	for _, e := range idx.ForContainer(container) {
		if typeFilter != "" && e.Type != typeFilter {
			continue
		}
		if e.Selection.Overlaps(sel, order) {
			out = append(out, e)
		}
	}
	return out
}
