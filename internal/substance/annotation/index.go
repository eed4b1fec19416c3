// Package annotation implements the document core's property-scoped
// annotation index (spec §4.D): for each text path, a sorted-by-start
// list of the annotations anchored to it, queryable by overlapping
// range. A binary search bounds each query to the entries that start at
// or before the query's end; those are then scanned linearly.
package annotation

import (
	"sort"

	"github.com/systemshift/substance/internal/substance/ops"
	"github.com/systemshift/substance/internal/substance/schema"
)

// Entry is the index's read-only view of one annotation: the fields a
// query needs, without forcing the caller back through the store.
type Entry struct {
	ID    string
	Path  ops.Path
	Start int64
	End   int64
	Type  string
}

// Index is a store.Index: it watches every applied op and keeps its
// per-path sorted lists in sync with the node table.
type Index struct {
	schema *schema.Schema
	byID   map[string]Entry
	byPath map[ops.Path][]string // node ids, sorted by Entry.Start
}

// New creates an empty index. s is used only to recognize which node
// types play the annotation role; the index does not otherwise depend
// on it.
func New(s *schema.Schema) *Index {
	return &Index{
		schema: s,
		byID:   make(map[string]Entry),
		byPath: make(map[ops.Path][]string),
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
	idx.removeFromPath(old)
	delete(idx.byID, n.ID)
}

// refresh re-derives n's entry from its current properties and
// repositions it in byPath. It is the single code path used whether n
// was just created, had a property Set, or had a property Update
// applied — any of those can change Path/Start/End.
func (idx *Index) refresh(n ops.Node) {
	entry, ok := idx.extractEntry(n)
	if old, existed := idx.byID[n.ID]; existed {
		idx.removeFromPath(old)
		delete(idx.byID, n.ID)
	}
	if !ok {
		return
	}
	idx.byID[n.ID] = entry
	idx.insertIntoPath(entry)
}

func (idx *Index) extractEntry(n ops.Node) (Entry, bool) {
	if idx.schema == nil || !idx.schema.IsAnnotationType(n.Type) {
		return Entry{}, false
	}
	path, ok := ops.AsPath(n.Properties["path"])
	if !ok {
		return Entry{}, false
	}
	start, ok := asInt64(n.Properties["startOffset"])
	if !ok {
		return Entry{}, false
	}
	end, ok := asInt64(n.Properties["endOffset"])
	if !ok {
		return Entry{}, false
	}
	return Entry{ID: n.ID, Path: path, Start: start, End: end, Type: n.Type}, true
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

func (idx *Index) insertIntoPath(e Entry) {
	ids := idx.byPath[e.Path]
	i := sort.Search(len(ids), func(i int) bool {
		return idx.byID[ids[i]].Start > e.Start
	})
	ids = append(ids, "")
	copy(ids[i+1:], ids[i:])
	ids[i] = e.ID
	idx.byPath[e.Path] = ids
}

func (idx *Index) removeFromPath(e Entry) {
	ids := idx.byPath[e.Path]
	for i, id := range ids {
		if id == e.ID {
			idx.byPath[e.Path] = append(ids[:i], ids[i+1:]...)
			return
		}
	}
}

// Query returns every annotation anchored to path whose [Start,End]
// intersects the closed interval [start,end], optionally narrowed to a
// single type. A zero-length query (start == end) matches annotations
// containing that offset.
func (idx *Index) Query(path ops.Path, start, end int64, typeFilter string) []Entry {
	ids := idx.byPath[path]
	// Entries are sorted by Start ascending: none past this cutoff can
	// start at or before `end`, so they can't overlap [start,end].
	cutoff := sort.Search(len(ids), func(i int) bool {
		return idx.byID[ids[i]].Start > end
	})
	var out []Entry
	for _, id := range ids[:cutoff] {
		e := idx.byID[id]
		if e.End < start {
			continue
		}
		if typeFilter != "" && e.Type != typeFilter {
			continue
		}
		out = append(out, e)
	}
	return out
}

// AllForPath returns every annotation anchored to path, sorted by
// Start. Used by text-splice helpers that must re-anchor every
// annotation on an edited path, not just the ones overlapping the edit.
func (idx *Index) AllForPath(path ops.Path) []Entry {
	ids := idx.byPath[path]
	out := make([]Entry, len(ids))
	for i, id := range ids {
		out[i] = idx.byID[id]
	}
	return out
}
