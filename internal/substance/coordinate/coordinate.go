// Package coordinate implements the document core's DOM-to-model
// coordinate resolver (spec §4.J). The resolver itself walks a portable
// tree of Node values rather than a live DOM, so it can run identically
// under test and be driven by a thin platform bridge (coordinate_wasm.go)
// on the real target.
package coordinate

import (
	"strings"

	"github.com/systemshift/substance/internal/substance/ops"
	"github.com/systemshift/substance/internal/substance/substanceerr"
)

// Kind distinguishes an element node from a text node.
type Kind int

const (
	KindElement Kind = iota
	KindText
)

// Node is the resolver's view of one DOM node: an element with
// attributes and children, or a text node carrying content. Ref holds
// whatever handle a platform bridge needs to map back to the real DOM
// node it was snapshotted from (e.g. a js.Value on wasm); the core
// algorithm never looks at it.
type Node struct {
	Kind     Kind
	Text     string
	Attrs    map[string]string
	Children []*Node
	Parent   *Node
	Ref      any
}

// Direction picks which way coordinate search looks when the DOM point
// isn't inside any property (spec §4.J step 2).
type Direction int

const (
	DirectionForward Direction = iota
	DirectionLeft
)

// Coordinate is a model position: a property path plus a character
// offset into it.
type Coordinate struct {
	Path   ops.Path
	Offset int
}

// Resolver answers DOM<->model coordinate queries against a single
// snapshot of the surface tree rooted at root.
type Resolver struct {
	root *Node
}

// NewResolver creates a resolver over root.
func NewResolver(root *Node) *Resolver {
	return &Resolver{root: root}
}

func isExternal(n *Node) bool {
	return n.Kind == KindElement && n.Attrs["data-external"] == "1"
}

func dataPath(n *Node) (ops.Path, bool) {
	if n.Kind != KindElement {
		return ops.Path{}, false
	}
	raw, ok := n.Attrs["data-path"]
	if !ok {
		return ops.Path{}, false
	}
	id, prop, ok := strings.Cut(raw, ".")
	if !ok {
		return ops.Path{}, false
	}
	return ops.NewPath(id, prop), true
}

func nearestDataPath(n *Node) *Node {
	for cur := n; cur != nil; cur = cur.Parent {
		if _, ok := dataPath(cur); ok {
			return cur
		}
	}
	return nil
}

// sumOffset walks ancestor's subtree in document order, skipping external
// subtrees entirely, summing text lengths until it reaches target (at
// targetOffset within target, if target is a text node, or 0 if target
// is an element). found is false if target is not in ancestor's subtree.
func sumOffset(ancestor, target *Node, targetOffset int) (offset int, found bool) {
	var walk func(n *Node) bool
	walk = func(n *Node) bool {
		if n == target {
			if n.Kind == KindText {
				offset += targetOffset
			}
			return true
		}
		if isExternal(n) {
			return false
		}
		if n.Kind == KindText {
			offset += len([]rune(n.Text))
			return false
		}
		for _, c := range n.Children {
			if walk(c) {
				return true
			}
		}
		return false
	}
	found = walk(ancestor)
	return offset, found
}

// propertyLength returns the total non-external text length under
// ancestor: the end offset of that property.
func propertyLength(ancestor *Node) int {
	total := 0
	var walk func(n *Node)
	walk = func(n *Node) {
		if isExternal(n) {
			return
		}
		if n.Kind == KindText {
			total += len([]rune(n.Text))
			return
		}
		for _, c := range n.Children {
			walk(c)
		}
	}
	walk(ancestor)
	return total
}

func flatten(root *Node) []*Node {
	var out []*Node
	var walk func(n *Node)
	walk = func(n *Node) {
		out = append(out, n)
		for _, c := range n.Children {
			walk(c)
		}
	}
	walk(root)
	return out
}

func indexOfNode(order []*Node, target *Node) int {
	for i, n := range order {
		if n == target {
			return i
		}
	}
	return -1
}

// DomToModel implements spec §4.J's DOM->model resolution. domNode is the
// DOM point clicked/selected; domOffset is its local offset if domNode is
// a text node (ignored otherwise). dir picks the coordinate-search
// direction used when domNode isn't inside any property.
func (r *Resolver) DomToModel(domNode *Node, domOffset int, dir Direction) (Coordinate, error) {
	if ancestor := nearestDataPath(domNode); ancestor != nil {
		path, _ := dataPath(ancestor)
		offset, found := sumOffset(ancestor, domNode, domOffset)
		if !found {
			offset = 0
		}
		return Coordinate{Path: path, Offset: offset}, nil
	}
	return r.search(domNode, dir)
}

func (r *Resolver) search(domNode *Node, dir Direction) (Coordinate, error) {
	order := flatten(r.root)
	idx := indexOfNode(order, domNode)
	if idx < 0 {
		return Coordinate{}, substanceerr.CoordinateNotFound("dom node not present in surface")
	}
	if dir == DirectionLeft {
		for i := idx - 1; i >= 0; i-- {
			if path, ok := dataPath(order[i]); ok {
				return Coordinate{Path: path, Offset: propertyLength(order[i])}, nil
			}
		}
		return Coordinate{}, substanceerr.CoordinateNotFound("no property to the left")
	}
	for i := idx + 1; i < len(order); i++ {
		if path, ok := dataPath(order[i]); ok {
			return Coordinate{Path: path, Offset: 0}, nil
		}
	}
	return Coordinate{}, substanceerr.CoordinateNotFound("no property to the right")
}

// findByPath returns the surface element carrying data-path matching
// path, or nil.
func (r *Resolver) findByPath(path ops.Path) *Node {
	for _, n := range flatten(r.root) {
		if p, ok := dataPath(n); ok && p == path {
			return n
		}
	}
	return nil
}

// ModelToDom implements spec §4.J's model->DOM resolution: locate the
// element carrying c.Path, then walk its non-external text descendants
// accumulating offsets until c.Offset is reached.
func (r *Resolver) ModelToDom(c Coordinate) (*Node, int, error) {
	ancestor := r.findByPath(c.Path)
	if ancestor == nil {
		return nil, 0, substanceerr.CoordinateNotFound("no surface element for path " + c.Path.NodeID() + "." + c.Path.Property())
	}
	node, local, ok := locate(ancestor, c.Offset)
	if !ok {
		return nil, 0, substanceerr.CoordinateNotFound("offset out of range for that property")
	}
	return node, local, nil
}

func locate(ancestor *Node, offset int) (*Node, int, bool) {
	remaining := offset
	var lastText *Node
	var result *Node
	var resultOffset int
	var walk func(n *Node) bool
	walk = func(n *Node) bool {
		if isExternal(n) {
			return false
		}
		if n.Kind == KindText {
			length := len([]rune(n.Text))
			lastText = n
			if remaining <= length {
				result = n
				resultOffset = remaining
				return true
			}
			remaining -= length
			return false
		}
		for _, c := range n.Children {
			if walk(c) {
				return true
			}
		}
		return false
	}
	if walk(ancestor) {
		return result, resultOffset, true
	}
	if lastText != nil && remaining == 0 {
		return lastText, len([]rune(lastText.Text)), true
	}
	if lastText == nil && offset == 0 {
		// Empty property: no text descendants at all. Spec §4.J point 3.
		return ancestor, 0, true
	}
	return nil, 0, false
}
