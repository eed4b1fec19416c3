package ops

import (
	"fmt"
)

// Diff is a typed, invertible transform over a single property's current
// value. Apply computes the new value and the diff that would undo this
// one, in a single pass, so the inverse never needs a second read of the
// store.
type Diff interface {
	Apply(current any) (newValue any, inverse Diff, err error)
}

// StringSplice removes Delete runes starting at Offset and inserts
// Insert in their place. Offsets are character (rune) indexed, matching
// the annotation offset convention (spec §3/§4.D).
type StringSplice struct {
	Offset int
	Delete int
	Insert string
}

func (d StringSplice) Apply(current any) (any, Diff, error) {
	s, ok := current.(string)
	if !ok {
		return nil, nil, fmt.Errorf("string-splice: property is not a string")
	}
	runes := []rune(s)
	if d.Offset < 0 || d.Offset > len(runes) {
		return nil, nil, fmt.Errorf("string-splice: offset %d out of range [0,%d]", d.Offset, len(runes))
	}
	end := d.Offset + d.Delete
	if d.Delete < 0 || end > len(runes) {
		return nil, nil, fmt.Errorf("string-splice: delete range [%d,%d) out of range", d.Offset, end)
	}

	removed := string(runes[d.Offset:end])
	var out []rune
	out = append(out, runes[:d.Offset]...)
	out = append(out, []rune(d.Insert)...)
	out = append(out, runes[end:]...)

	inverse := StringSplice{
		Offset: d.Offset,
		Delete: len([]rune(d.Insert)),
		Insert: removed,
	}
	return string(out), inverse, nil
}

// ListSplice removes Remove elements starting at Index and inserts
// Insert in their place, over an ordered []string (node id references,
// e.g. a container's child list).
type ListSplice struct {
	Index  int
	Remove int
	Insert []string
}

func (d ListSplice) Apply(current any) (any, Diff, error) {
	list, ok := current.([]string)
	if !ok {
		if current == nil {
			list = nil
		} else {
			return nil, nil, fmt.Errorf("list-splice: property is not a []string")
		}
	}
	if d.Index < 0 || d.Index > len(list) {
		return nil, nil, fmt.Errorf("list-splice: index %d out of range [0,%d]", d.Index, len(list))
	}
	end := d.Index + d.Remove
	if d.Remove < 0 || end > len(list) {
		return nil, nil, fmt.Errorf("list-splice: remove range [%d,%d) out of range", d.Index, end)
	}

	removed := append([]string{}, list[d.Index:end]...)
	out := make([]string, 0, len(list)-d.Remove+len(d.Insert))
	out = append(out, list[:d.Index]...)
	out = append(out, d.Insert...)
	out = append(out, list[end:]...)

	inverse := ListSplice{
		Index:  d.Index,
		Remove: len(d.Insert),
		Insert: removed,
	}
	return out, inverse, nil
}

// NumberDelta adds Delta to an integer property.
type NumberDelta struct {
	Delta int64
}

func (d NumberDelta) Apply(current any) (any, Diff, error) {
	n, ok := asInt64(current)
	if !ok {
		return nil, nil, fmt.Errorf("number-delta: property is not an integer")
	}
	return n + d.Delta, NumberDelta{Delta: -d.Delta}, nil
}

func asInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	default:
		return 0, false
	}
}

// MapOffset translates a character offset across a StringSplice applied
// to the same text. Positions strictly before the edit are unaffected;
// positions at or after the end of the deleted range shift by the
// length delta; positions that fell inside the deleted range collapse
// to the end of the inserted text. This gives annotation anchors a
// right-biased boundary: text inserted exactly at an annotation's start
// pushes the annotation forward, and text inserted exactly at its end is
// taken into it (the end offset moves past the insertion), matching how
// rich-text annotations behave when you type right before (or after) a
// styled run.
func (d StringSplice) MapOffset(pos int64) int64 {
	offset := int64(d.Offset)
	deleteEnd := offset + int64(d.Delete)
	insertLen := int64(len([]rune(d.Insert)))
	switch {
	case pos < offset:
		return pos
	case pos >= deleteEnd:
		return pos + (insertLen - int64(d.Delete))
	default:
		return offset + insertLen
	}
}
