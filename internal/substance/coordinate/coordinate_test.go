package coordinate

import (
	"testing"

	"github.com/systemshift/substance/internal/substance/ops"
	"github.com/systemshift/substance/internal/substance/substanceerr"
)

func text(s string) *Node {
	return &Node{Kind: KindText, Text: s}
}

func elem(attrs map[string]string, children ...*Node) *Node {
	n := &Node{Kind: KindElement, Attrs: attrs, Children: children}
	for _, c := range children {
		c.Parent = n
	}
	return n
}

// Scenario 4 from spec §8: externals excluded from offset math.
func TestDomToModelSkipsExternalSpans(t *testing.T) {
	ab := text("ab")
	bullet := text("·")
	cd := text("cd")

	abSpan := elem(nil, ab)
	externalSpan := elem(map[string]string{"data-external": "1"}, bullet)
	cdSpan := elem(nil, cd)

	root := elem(map[string]string{"data-path": "p1.content"}, abSpan, externalSpan, cdSpan)

	r := NewResolver(root)
	coord, err := r.DomToModel(cd, 1, DirectionForward)
	if err != nil {
		t.Fatalf("DomToModel: %v", err)
	}
	want := ops.NewPath("p1", "content")
	if coord.Path != want || coord.Offset != 3 {
		t.Fatalf("coord = %+v, want {%v 3}", coord, want)
	}
}

func TestDomToModelEmptyPropertyReturnsZero(t *testing.T) {
	root := elem(map[string]string{"data-path": "p1.content"})
	r := NewResolver(root)

	coord, err := r.DomToModel(root, 0, DirectionForward)
	if err != nil {
		t.Fatalf("DomToModel: %v", err)
	}
	if coord.Offset != 0 {
		t.Fatalf("offset = %d, want 0", coord.Offset)
	}
}

// Scenario 5 from spec §8: coordinate search between two paragraphs.
func TestCoordinateSearchDirections(t *testing.T) {
	p1Text := text("hello")
	p1 := elem(map[string]string{"data-path": "p1.content"}, p1Text)
	divider := elem(nil)
	p2Text := text("world")
	p2 := elem(map[string]string{"data-path": "p2.content"}, p2Text)

	root := elem(nil, p1, divider, p2)
	r := NewResolver(root)

	left, err := r.DomToModel(divider, 0, DirectionLeft)
	if err != nil {
		t.Fatalf("left search: %v", err)
	}
	if left.Path != ops.NewPath("p1", "content") || left.Offset != 5 {
		t.Fatalf("left = %+v, want end of p1.content", left)
	}

	right, err := r.DomToModel(divider, 0, DirectionForward)
	if err != nil {
		t.Fatalf("right search: %v", err)
	}
	if right.Path != ops.NewPath("p2", "content") || right.Offset != 0 {
		t.Fatalf("right = %+v, want start of p2.content", right)
	}
}

func TestCoordinateSearchNoBoundaryFails(t *testing.T) {
	divider := elem(nil)
	root := elem(nil, divider)
	r := NewResolver(root)

	_, err := r.DomToModel(divider, 0, DirectionForward)
	if !substanceerr.IsCoordinateNotFound(err) {
		t.Fatalf("expected CoordinateNotFound, got %v", err)
	}
}

func TestModelToDomRoundTrip(t *testing.T) {
	ab := text("ab")
	bullet := text("·")
	cd := text("cd")
	root := elem(map[string]string{"data-path": "p1.content"},
		elem(nil, ab),
		elem(map[string]string{"data-external": "1"}, bullet),
		elem(nil, cd))

	r := NewResolver(root)
	node, local, err := r.ModelToDom(Coordinate{Path: ops.NewPath("p1", "content"), Offset: 3})
	if err != nil {
		t.Fatalf("ModelToDom: %v", err)
	}
	if node != cd || local != 1 {
		t.Fatalf("got node=%v local=%d, want cd,1", node.Text, local)
	}
}

func TestModelToDomEndOfProperty(t *testing.T) {
	ab := text("ab")
	root := elem(map[string]string{"data-path": "p1.content"}, ab)
	r := NewResolver(root)

	node, local, err := r.ModelToDom(Coordinate{Path: ops.NewPath("p1", "content"), Offset: 2})
	if err != nil {
		t.Fatalf("ModelToDom: %v", err)
	}
	if node != ab || local != 2 {
		t.Fatalf("got node=%v local=%d, want ab,2", node.Text, local)
	}
}

func TestModelToDomUnknownPathFails(t *testing.T) {
	root := elem(map[string]string{"data-path": "p1.content"}, text("ab"))
	r := NewResolver(root)

	_, _, err := r.ModelToDom(Coordinate{Path: ops.NewPath("missing", "content"), Offset: 0})
	if !substanceerr.IsCoordinateNotFound(err) {
		t.Fatalf("expected CoordinateNotFound, got %v", err)
	}
}
