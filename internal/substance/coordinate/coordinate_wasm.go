//go:build js && wasm

package coordinate

import (
	"syscall/js"

	"github.com/systemshift/substance/internal/substance/substanceerr"
)

const textNodeType = 3

// FromJSValue snapshots the live DOM subtree rooted at v into a portable
// Node tree, the way DomBridge mirrors browser elements into its own
// Nodes map rather than operating on js.Value directly everywhere.
func FromJSValue(v js.Value) *Node {
	return fromJSValue(v, nil)
}

func fromJSValue(v js.Value, parent *Node) *Node {
	if v.Get("nodeType").Int() == textNodeType {
		return &Node{Kind: KindText, Text: v.Get("textContent").String(), Parent: parent, Ref: v}
	}
	n := &Node{Kind: KindElement, Attrs: make(map[string]string), Parent: parent, Ref: v}
	for _, attr := range []string{"data-path", "data-external"} {
		val := v.Call("getAttribute", attr)
		if val.Truthy() {
			n.Attrs[attr] = val.String()
		}
	}
	children := v.Get("childNodes")
	length := children.Get("length").Int()
	for i := 0; i < length; i++ {
		n.Children = append(n.Children, fromJSValue(children.Index(i), n))
	}
	return n
}

func findByRef(n *Node, v js.Value) *Node {
	if ref, ok := n.Ref.(js.Value); ok && ref.Equal(v) {
		return n
	}
	for _, c := range n.Children {
		if found := findByRef(c, v); found != nil {
			return found
		}
	}
	return nil
}

// JSBridge is the real-target implementation of coordinate resolution:
// it re-snapshots Root on every call (the document core does not cache
// DOM handles across mutations) and delegates the actual walk to
// Resolver.
type JSBridge struct {
	Root js.Value
}

// NewJSBridge wraps root, the surface element carrying the contenteditable
// subtree.
func NewJSBridge(root js.Value) *JSBridge {
	return &JSBridge{Root: root}
}

// DomToModel resolves a live DOM point to a model coordinate.
func (b *JSBridge) DomToModel(domNode js.Value, domOffset int, dir Direction) (Coordinate, error) {
	snapshot := FromJSValue(b.Root)
	target := findByRef(snapshot, domNode)
	if target == nil {
		return Coordinate{}, substanceerr.CoordinateNotFound("dom node not present in surface")
	}
	return NewResolver(snapshot).DomToModel(target, domOffset, dir)
}

// ModelToDom resolves a model coordinate to a live DOM text node and
// local offset.
func (b *JSBridge) ModelToDom(c Coordinate) (js.Value, int, error) {
	snapshot := FromJSValue(b.Root)
	node, offset, err := NewResolver(snapshot).ModelToDom(c)
	if err != nil {
		return js.Null(), 0, err
	}
	ref, _ := node.Ref.(js.Value)
	return ref, offset, nil
}
