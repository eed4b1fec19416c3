// Package selection implements the document core's two selection
// variants (spec §4.K): PropertySelection, entirely within one
// property, and ContainerSelection, spanning container children. A
// third, Null, represents "nothing selected" as its own variant rather
// than a sentinel zero value.
package selection

import "github.com/systemshift/substance/internal/substance/ops"

// Which names an endpoint for Collapse.
type Which int

const (
	Start Which = iota
	End
)

// Selection is implemented by Null, PropertySelection and
// ContainerSelection. It exists to let callers hold "a selection of
// some kind" without committing to which variant.
type Selection interface {
	isSelection()
}

// Null is the selection variant for "nothing is selected". It is
// distinct from a PropertySelection collapsed to offset 0: a Null
// selection has no path at all.
type Null struct{}

func (Null) isSelection() {}

// IsNull reports whether sel is the Null variant (including a nil
// interface value).
func IsNull(sel Selection) bool {
	if sel == nil {
		return true
	}
	_, ok := sel.(Null)
	return ok
}

// PropertySelection is a range within a single text property.
type PropertySelection struct {
	Path        ops.Path
	StartOffset int64
	EndOffset   int64
	Reversed    bool
}

func (PropertySelection) isSelection() {}

// Range returns the selection's offsets in ascending order, independent
// of which endpoint is the anchor (Reversed records UI intent only).
func (s PropertySelection) Range() (lo, hi int64) {
	if s.StartOffset <= s.EndOffset {
		return s.StartOffset, s.EndOffset
	}
	return s.EndOffset, s.StartOffset
}

// IsCollapsed reports whether the selection spans zero characters.
func (s PropertySelection) IsCollapsed() bool {
	return s.StartOffset == s.EndOffset
}

// Collapse returns a copy of s collapsed to one endpoint.
func (s PropertySelection) Collapse(which Which) PropertySelection {
	lo, hi := s.Range()
	out := s
	if which == Start {
		out.StartOffset, out.EndOffset = lo, lo
	} else {
		out.StartOffset, out.EndOffset = hi, hi
	}
	out.Reversed = false
	return out
}

// Overlaps reports whether s and o share at least one offset. Selections
// on different paths never overlap.
func (s PropertySelection) Overlaps(o PropertySelection) bool {
	if s.Path != o.Path {
		return false
	}
	sLo, sHi := s.Range()
	oLo, oHi := o.Range()
	return sLo <= oHi && oLo <= sHi
}

// Contains reports whether o's range is entirely within s's range.
func (s PropertySelection) Contains(o PropertySelection) bool {
	if s.Path != o.Path {
		return false
	}
	sLo, sHi := s.Range()
	oLo, oHi := o.Range()
	return sLo <= oLo && oHi <= sHi
}

// Equals compares effective range and path; Reversed does not affect
// equality, matching spec §4.K ("reversed... does not affect range
// math").
func (s PropertySelection) Equals(o PropertySelection) bool {
	sLo, sHi := s.Range()
	oLo, oHi := o.Range()
	return s.Path == o.Path && sLo == oLo && sHi == oHi
}

// ContainerSelection spans from (StartPath,StartOffset) to
// (EndPath,EndOffset) within Container's ordered children.
type ContainerSelection struct {
	Container   string
	StartPath   ops.Path
	StartOffset int64
	EndPath     ops.Path
	EndOffset   int64
	Reversed    bool
}

func (ContainerSelection) isSelection() {}

// IsCollapsed reports whether both endpoints land on the same point;
// this does not require knowing container order.
func (s ContainerSelection) IsCollapsed() bool {
	return s.StartPath == s.EndPath && s.StartOffset == s.EndOffset
}

// position is a point within a container: the index of its child in
// document order, plus the offset within that child's property.
type position struct {
	index  int
	offset int64
}

func less(a, b position) bool {
	if a.index != b.index {
		return a.index < b.index
	}
	return a.offset < b.offset
}

func lessOrEqual(a, b position) bool {
	return !less(b, a)
}

// normalized resolves s's two endpoints against order (the container's
// child ids in document order) and returns them sorted ascending. ok is
// false if either endpoint's node is not present in order.
func (s ContainerSelection) normalized(order []string) (lo, hi position, ok bool) {
	si := indexOf(order, s.StartPath.NodeID())
	ei := indexOf(order, s.EndPath.NodeID())
	if si < 0 || ei < 0 {
		return position{}, position{}, false
	}
	a := position{index: si, offset: s.StartOffset}
	b := position{index: ei, offset: s.EndOffset}
	if less(b, a) {
		a, b = b, a
	}
	return a, b, true
}

func indexOf(order []string, id string) int {
	for i, v := range order {
		if v == id {
			return i
		}
	}
	return -1
}

// Overlaps reports whether s and o share at least one point, given the
// container's current child order. Spec §4.E: the spatial extent of a
// container annotation's selection depends on current container order,
// so this always needs an order to evaluate against.
func (s ContainerSelection) Overlaps(o ContainerSelection, order []string) bool {
	sLo, sHi, ok1 := s.normalized(order)
	oLo, oHi, ok2 := o.normalized(order)
	if !ok1 || !ok2 {
		return false
	}
	return lessOrEqual(sLo, oHi) && lessOrEqual(oLo, sHi)
}

// Contains reports whether o's range is entirely within s's range.
func (s ContainerSelection) Contains(o ContainerSelection, order []string) bool {
	sLo, sHi, ok1 := s.normalized(order)
	oLo, oHi, ok2 := o.normalized(order)
	if !ok1 || !ok2 {
		return false
	}
	return lessOrEqual(sLo, oLo) && lessOrEqual(oHi, sHi)
}

// Equals reports whether s and o describe the same range in document
// order; Reversed does not affect equality.
func (s ContainerSelection) Equals(o ContainerSelection, order []string) bool {
	sLo, sHi, ok1 := s.normalized(order)
	oLo, oHi, ok2 := o.normalized(order)
	return ok1 && ok2 && sLo == oLo && sHi == oHi
}

// Collapse returns a copy of s collapsed to one endpoint.
func (s ContainerSelection) Collapse(which Which) ContainerSelection {
	out := s
	if which == Start {
		out.EndPath, out.EndOffset = s.StartPath, s.StartOffset
	} else {
		out.StartPath, out.StartOffset = s.EndPath, s.EndOffset
	}
	out.Reversed = false
	return out
}
