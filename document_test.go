package substance

import (
	"errors"
	"testing"

	"github.com/systemshift/substance/internal/substance/change"
	"github.com/systemshift/substance/internal/substance/coordinate"
	"github.com/systemshift/substance/internal/substance/ops"
	"github.com/systemshift/substance/internal/substance/schema"
	"github.com/systemshift/substance/internal/substance/substanceerr"
	"github.com/systemshift/substance/internal/substance/transaction"
)

func testSchema(t *testing.T) *schema.Schema {
	t.Helper()
	s := schema.New("article", "1.0")
	if err := s.AddNodeClass(schema.NodeClass{
		Name: "paragraph",
		Role: schema.RoleText,
		Properties: []schema.PropertyDef{
			{Name: "content", Type: schema.PropString},
		},
	}); err != nil {
		t.Fatalf("add paragraph: %v", err)
	}
	if err := s.AddNodeClass(schema.NodeClass{
		Name: "strong",
		Role: schema.RoleAnnotation,
		Properties: []schema.PropertyDef{
			{Name: "path", Type: schema.PropJSON},
			{Name: "startOffset", Type: schema.PropInteger},
			{Name: "endOffset", Type: schema.PropInteger},
		},
	}); err != nil {
		t.Fatalf("add strong: %v", err)
	}
	s.Freeze()
	return s
}

// Scenario 1 from spec §8.
func TestScenarioCreateAndQueryAnnotations(t *testing.T) {
	d := New(testSchema(t))

	if err := d.Create(ops.Node{ID: "p1", Type: "paragraph", Properties: map[string]any{"content": "Hello World"}}); err != nil {
		t.Fatalf("create p1: %v", err)
	}
	path := ops.NewPath("p1", "content")
	if err := d.Create(ops.Node{ID: "s1", Type: "strong", Properties: map[string]any{
		"path": path, "startOffset": int64(6), "endOffset": int64(11),
	}}); err != nil {
		t.Fatalf("create s1: %v", err)
	}

	got := d.QueryAnnotations(path, 0, 11, "")
	if len(got) != 1 || got[0].ID != "s1" {
		t.Fatalf("got %+v, want [s1]", got)
	}
}

// Scenario 2 from spec §8.
func TestScenarioSpliceShiftsAnnotation(t *testing.T) {
	d := New(testSchema(t))
	path := ops.NewPath("p1", "content")

	if err := d.Create(ops.Node{ID: "p1", Type: "paragraph", Properties: map[string]any{"content": "Hello World"}}); err != nil {
		t.Fatalf("create p1: %v", err)
	}
	if err := d.Create(ops.Node{ID: "s1", Type: "strong", Properties: map[string]any{
		"path": path, "startOffset": int64(6), "endOffset": int64(11),
	}}); err != nil {
		t.Fatalf("create s1: %v", err)
	}

	if err := d.SpliceText(path, ops.StringSplice{Offset: 6, Delete: 0, Insert: "brave "}); err != nil {
		t.Fatalf("splice: %v", err)
	}

	n, _ := d.Get("p1")
	if n.Properties["content"] != "Hello brave World" {
		t.Fatalf("content = %q", n.Properties["content"])
	}
	s1, _ := d.Get("s1")
	if s1.Properties["startOffset"] != int64(12) || s1.Properties["endOffset"] != int64(17) {
		t.Fatalf("s1 offsets = %v,%v, want 12,17", s1.Properties["startOffset"], s1.Properties["endOffset"])
	}
}

// Scenario 3 from spec §8.
func TestScenarioTransactionUndoRestoresDeletedAnnotation(t *testing.T) {
	d := New(testSchema(t))
	path := ops.NewPath("p1", "content")

	if err := d.Create(ops.Node{ID: "p1", Type: "paragraph", Properties: map[string]any{"content": "Hello World"}}); err != nil {
		t.Fatalf("create p1: %v", err)
	}
	if err := d.Create(ops.Node{ID: "s1", Type: "strong", Properties: map[string]any{
		"path": path, "startOffset": int64(6), "endOffset": int64(11),
	}}); err != nil {
		t.Fatalf("create s1: %v", err)
	}

	_, err := d.Transaction(nil, func(stage *transaction.Stage) (map[string]any, error) {
		if _, err := stage.Apply(ops.Set{Target: path, NewValue: "Hi"}); err != nil {
			return nil, err
		}
		if _, err := stage.Apply(ops.Delete{ID: "s1"}); err != nil {
			return nil, err
		}
		return nil, nil
	})
	if err != nil {
		t.Fatalf("transaction: %v", err)
	}

	n, _ := d.Get("p1")
	if n.Properties["content"] != "Hi" {
		t.Fatalf("content after commit = %q", n.Properties["content"])
	}
	if _, ok := d.Get("s1"); ok {
		t.Fatalf("s1 still present after commit")
	}

	if _, err := d.Undo(); err != nil {
		t.Fatalf("undo: %v", err)
	}

	n, _ = d.Get("p1")
	if n.Properties["content"] != "Hello World" {
		t.Fatalf("content after undo = %q, want Hello World", n.Properties["content"])
	}
	s1, ok := d.Get("s1")
	if !ok {
		t.Fatal("s1 missing after undo")
	}
	if s1.Properties["startOffset"] != int64(6) || s1.Properties["endOffset"] != int64(11) {
		t.Fatalf("s1 offsets after undo = %v,%v, want 6,11", s1.Properties["startOffset"], s1.Properties["endOffset"])
	}
}

// Scenario 4 from spec §8: DOM coordinate resolution skips externals.
func TestScenarioDomCoordinateSkipsExternal(t *testing.T) {
	ab := &coordinate.Node{Kind: coordinate.KindText, Text: "ab"}
	bullet := &coordinate.Node{Kind: coordinate.KindText, Text: "·"}
	cd := &coordinate.Node{Kind: coordinate.KindText, Text: "cd"}
	abSpan := &coordinate.Node{Kind: coordinate.KindElement, Children: []*coordinate.Node{ab}}
	externalSpan := &coordinate.Node{Kind: coordinate.KindElement, Attrs: map[string]string{"data-external": "1"}, Children: []*coordinate.Node{bullet}}
	cdSpan := &coordinate.Node{Kind: coordinate.KindElement, Children: []*coordinate.Node{cd}}
	root := &coordinate.Node{
		Kind:     coordinate.KindElement,
		Attrs:    map[string]string{"data-path": "p1.content"},
		Children: []*coordinate.Node{abSpan, externalSpan, cdSpan},
	}
	for _, c := range root.Children {
		c.Parent = root
	}
	ab.Parent = abSpan
	bullet.Parent = externalSpan
	cd.Parent = cdSpan

	r := coordinate.NewResolver(root)
	coord, err := r.DomToModel(cd, 1, coordinate.DirectionForward)
	if err != nil {
		t.Fatalf("DomToModel: %v", err)
	}
	want := ops.NewPath("p1", "content")
	if coord.Path != want || coord.Offset != 3 {
		t.Fatalf("coord = %+v, want {%v 3}", coord, want)
	}
}

// Scenario 5 from spec §8: coordinate search between two paragraphs.
func TestScenarioCoordinateSearchBetweenParagraphs(t *testing.T) {
	p1Text := &coordinate.Node{Kind: coordinate.KindText, Text: "hello"}
	p1 := &coordinate.Node{Kind: coordinate.KindElement, Attrs: map[string]string{"data-path": "p1.content"}, Children: []*coordinate.Node{p1Text}}
	divider := &coordinate.Node{Kind: coordinate.KindElement}
	p2Text := &coordinate.Node{Kind: coordinate.KindText, Text: "world"}
	p2 := &coordinate.Node{Kind: coordinate.KindElement, Attrs: map[string]string{"data-path": "p2.content"}, Children: []*coordinate.Node{p2Text}}
	root := &coordinate.Node{Kind: coordinate.KindElement, Children: []*coordinate.Node{p1, divider, p2}}
	for _, c := range root.Children {
		c.Parent = root
	}
	p1Text.Parent = p1
	p2Text.Parent = p2

	r := coordinate.NewResolver(root)

	left, err := r.DomToModel(divider, 0, coordinate.DirectionLeft)
	if err != nil {
		t.Fatalf("left search: %v", err)
	}
	if left.Path != ops.NewPath("p1", "content") || left.Offset != 5 {
		t.Fatalf("left = %+v, want end of p1.content", left)
	}

	right, err := r.DomToModel(divider, 0, coordinate.DirectionForward)
	if err != nil {
		t.Fatalf("right search: %v", err)
	}
	if right.Path != ops.NewPath("p2", "content") || right.Offset != 0 {
		t.Fatalf("right = %+v, want start of p2.content", right)
	}
}

// Scenario 6 from spec §8: nested transaction rejected, outer unaffected.
func TestScenarioNestedTransactionRejected(t *testing.T) {
	d := New(testSchema(t))
	if err := d.Create(ops.Node{ID: "p1", Type: "paragraph", Properties: map[string]any{"content": "Hello"}}); err != nil {
		t.Fatalf("create p1: %v", err)
	}

	path := ops.NewPath("p1", "content")
	_, err := d.Transaction(nil, func(stage *transaction.Stage) (map[string]any, error) {
		if _, err := stage.Apply(ops.Set{Target: path, NewValue: "Hi"}); err != nil {
			return nil, err
		}
		if startErr := stage.Start(nil); !substanceerr.IsNestedTransaction(startErr) {
			t.Fatalf("expected NestedTransaction, got %v", startErr)
		}
		if stage.State() != transaction.Active {
			t.Fatal("outer transaction was corrupted by the failed nested Start")
		}
		return nil, nil
	})
	if err != nil {
		t.Fatalf("transaction: %v", err)
	}

	n, _ := d.Get("p1")
	if n.Properties["content"] != "Hi" {
		t.Fatalf("content = %q, want Hi (outer transaction should have committed)", n.Properties["content"])
	}
}

func TestCreateSetDeleteThenRecreate(t *testing.T) {
	d := New(testSchema(t))
	if err := d.Create(ops.Node{ID: "p1", Type: "paragraph", Properties: map[string]any{"content": "Hello World"}}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := d.Set(ops.NewPath("p1", "content"), "Goodbye"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := d.Delete("p1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok := d.Get("p1"); ok {
		t.Fatal("p1 still present after delete")
	}
	// Recreate it to confirm the document is back to a usable empty state.
	if err := d.Create(ops.Node{ID: "p1", Type: "paragraph", Properties: map[string]any{"content": "Hello World"}}); err != nil {
		t.Fatalf("recreate: %v", err)
	}
	n, _ := d.Get("p1")
	if n.Properties["content"] != "Hello World" {
		t.Fatalf("content = %q", n.Properties["content"])
	}
}

func TestUndoRedoRoundTripRestoresDocument(t *testing.T) {
	d := New(testSchema(t))
	path := ops.NewPath("p1", "content")
	if err := d.Create(ops.Node{ID: "p1", Type: "paragraph", Properties: map[string]any{"content": "Hello"}}); err != nil {
		t.Fatalf("create: %v", err)
	}

	_, err := d.Transaction(nil, func(stage *transaction.Stage) (map[string]any, error) {
		_, err := stage.Apply(ops.Set{Target: path, NewValue: "Goodbye"})
		return nil, err
	})
	if err != nil {
		t.Fatalf("transaction: %v", err)
	}

	if _, err := d.Undo(); err != nil {
		t.Fatalf("undo: %v", err)
	}
	n, _ := d.Get("p1")
	if n.Properties["content"] != "Hello" {
		t.Fatalf("after undo content = %q, want Hello", n.Properties["content"])
	}

	if _, err := d.Redo(); err != nil {
		t.Fatalf("redo: %v", err)
	}
	n, _ = d.Get("p1")
	if n.Properties["content"] != "Goodbye" {
		t.Fatalf("after redo content = %q, want Goodbye", n.Properties["content"])
	}
}

func TestEmptyTransactionNotPushedToHistory(t *testing.T) {
	d := New(testSchema(t))
	c, err := d.Transaction(nil, func(stage *transaction.Stage) (map[string]any, error) {
		return nil, nil
	})
	if err != nil {
		t.Fatalf("transaction: %v", err)
	}
	if !c.IsEmpty() {
		t.Fatalf("expected empty change, got %+v", c)
	}
	if _, err := d.Undo(); !substanceerr.IsNoChangeToUndo(err) {
		t.Fatalf("expected NoChangeToUndo, got %v", err)
	}
}

func TestTransactionCancelledByTransformationErrorReverts(t *testing.T) {
	d := New(testSchema(t))
	if err := d.Create(ops.Node{ID: "p1", Type: "paragraph", Properties: map[string]any{"content": "Hello"}}); err != nil {
		t.Fatalf("create: %v", err)
	}

	boom := errors.New("boom")
	_, err := d.Transaction(nil, func(stage *transaction.Stage) (map[string]any, error) {
		if _, err := stage.Apply(ops.Set{Target: ops.NewPath("p1", "content"), NewValue: "Goodbye"}); err != nil {
			return nil, err
		}
		return nil, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	n, _ := d.Get("p1")
	if n.Properties["content"] != "Hello" {
		t.Fatalf("content = %q, want unchanged Hello", n.Properties["content"])
	}
	if d.stage.State() != transaction.Idle {
		t.Fatal("stage left active after errored transaction")
	}
}

func TestTransactionExplicitCancelIsNotAnError(t *testing.T) {
	d := New(testSchema(t))
	if err := d.Create(ops.Node{ID: "p1", Type: "paragraph", Properties: map[string]any{"content": "Hello"}}); err != nil {
		t.Fatalf("create: %v", err)
	}

	_, err := d.Transaction(nil, func(stage *transaction.Stage) (map[string]any, error) {
		if _, err := stage.Apply(ops.Set{Target: ops.NewPath("p1", "content"), NewValue: "Goodbye"}); err != nil {
			return nil, err
		}
		if err := stage.Cancel(); err != nil {
			return nil, err
		}
		return nil, ErrCancelled
	})
	if err != nil {
		t.Fatalf("expected nil error for explicit cancel, got %v", err)
	}
	n, _ := d.Get("p1")
	if n.Properties["content"] != "Hello" {
		t.Fatalf("content = %q, want unchanged Hello", n.Properties["content"])
	}
}

func TestForceTransactionsRejectsDirectMutation(t *testing.T) {
	d := New(testSchema(t))
	d.ForceTransactions(true)

	err := d.Create(ops.Node{ID: "p1", Type: "paragraph", Properties: map[string]any{"content": "Hello"}})
	if !substanceerr.IsInvalidOperation(err) {
		t.Fatalf("expected InvalidOperation, got %v", err)
	}

	_, err = d.Transaction(nil, func(stage *transaction.Stage) (map[string]any, error) {
		_, err := stage.Apply(ops.Create{Node: ops.Node{ID: "p1", Type: "paragraph", Properties: map[string]any{"content": "Hello"}}})
		return nil, err
	})
	if err != nil {
		t.Fatalf("transaction: %v", err)
	}
	if _, ok := d.Get("p1"); !ok {
		t.Fatal("p1 missing after transactional create")
	}
}

func TestShowHideContainerRoundTrip(t *testing.T) {
	s := schema.New("doc", "1.0")
	if err := s.AddNodeClass(schema.NodeClass{Name: "body", Role: schema.RoleContainer}); err != nil {
		t.Fatalf("add body: %v", err)
	}
	if err := s.AddNodeClass(schema.NodeClass{Name: "paragraph", Role: schema.RoleText}); err != nil {
		t.Fatalf("add paragraph: %v", err)
	}
	s.Freeze()

	d := New(s)
	if err := d.Create(ops.Node{ID: "body", Type: "body"}); err != nil {
		t.Fatalf("create body: %v", err)
	}
	if err := d.Create(ops.Node{ID: "p1", Type: "paragraph"}); err != nil {
		t.Fatalf("create p1: %v", err)
	}

	if err := d.Show("body", "p1", nil); err != nil {
		t.Fatalf("show: %v", err)
	}
	n, _ := d.Get("body")
	if nodes, _ := n.Properties["nodes"].([]string); len(nodes) != 1 || nodes[0] != "p1" {
		t.Fatalf("nodes after show = %v", nodes)
	}

	if err := d.Hide("body", "p1"); err != nil {
		t.Fatalf("hide: %v", err)
	}
	n, _ = d.Get("body")
	if nodes, _ := n.Properties["nodes"].([]string); len(nodes) != 0 {
		t.Fatalf("nodes after hide = %v, want empty", nodes)
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	d := New(testSchema(t))
	if err := d.Create(ops.Node{ID: "p1", Type: "paragraph", Properties: map[string]any{"content": "Hello"}}); err != nil {
		t.Fatalf("create: %v", err)
	}

	snap := d.Snapshot()
	if snap.Schema.Name != "article" || len(snap.Nodes) != 1 {
		t.Fatalf("snap = %+v", snap)
	}

	d2 := New(testSchema(t))
	if err := d2.LoadSnapshot(snap); err != nil {
		t.Fatalf("LoadSnapshot: %v", err)
	}
	n, ok := d2.Get("p1")
	if !ok || n.Properties["content"] != "Hello" {
		t.Fatalf("loaded node = %+v, ok=%v", n, ok)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	d := New(testSchema(t))
	if err := d.Create(ops.Node{ID: "p1", Type: "paragraph", Properties: map[string]any{"content": "Hello World"}}); err != nil {
		t.Fatalf("create paragraph: %v", err)
	}
	if err := d.Create(ops.Node{ID: "s1", Type: "strong", Properties: map[string]any{
		"path": ops.NewPath("p1", "content"), "startOffset": int64(0), "endOffset": int64(5),
	}}); err != nil {
		t.Fatalf("create annotation: %v", err)
	}

	clone := d.Clone()

	// The clone's annotation index must be independently derived from
	// its cloned nodes, not shared with the original's.
	got := clone.QueryAnnotations(ops.NewPath("p1", "content"), 0, 5, "")
	if len(got) != 1 || got[0].ID != "s1" {
		t.Fatalf("clone's annotation index = %+v, want [s1]", got)
	}

	if err := d.Set(ops.NewPath("p1", "content"), "Goodbye"); err != nil {
		t.Fatalf("set on original: %v", err)
	}
	if n, _ := clone.Get("p1"); n.Properties["content"] != "Hello World" {
		t.Fatalf("clone should not see the original's edit, got %v", n.Properties["content"])
	}

	if err := clone.Create(ops.Node{ID: "p2", Type: "paragraph", Properties: map[string]any{"content": "New"}}); err != nil {
		t.Fatalf("create on clone: %v", err)
	}
	if _, ok := d.Get("p2"); ok {
		t.Fatal("original should not see the clone's new node")
	}

	if err := d.Delete("s1"); err != nil {
		t.Fatalf("delete on original: %v", err)
	}
	if got := clone.QueryAnnotations(ops.NewPath("p1", "content"), 0, 5, ""); len(got) != 1 {
		t.Fatalf("clone's annotation index should be unaffected by the original's delete, got %+v", got)
	}
}

func TestSubscribeOnlyNotifiedForTouchedPath(t *testing.T) {
	d := New(testSchema(t))
	if err := d.Create(ops.Node{ID: "p1", Type: "paragraph", Properties: map[string]any{"content": "Hello"}}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := d.Create(ops.Node{ID: "p2", Type: "paragraph", Properties: map[string]any{"content": "World"}}); err != nil {
		t.Fatalf("create: %v", err)
	}

	var notified int
	d.Subscribe(ops.NewPath("p1", "content"), func(c change.DocumentChange, info map[string]any) error {
		notified++
		return nil
	})

	_, err := d.Transaction(nil, func(stage *transaction.Stage) (map[string]any, error) {
		_, err := stage.Apply(ops.Set{Target: ops.NewPath("p2", "content"), NewValue: "Earth"})
		return nil, err
	})
	if err != nil {
		t.Fatalf("transaction: %v", err)
	}
	if notified != 0 {
		t.Fatalf("notified = %d, want 0 (p1 untouched)", notified)
	}

	_, err = d.Transaction(nil, func(stage *transaction.Stage) (map[string]any, error) {
		_, err := stage.Apply(ops.Set{Target: ops.NewPath("p1", "content"), NewValue: "Hi"})
		return nil, err
	})
	if err != nil {
		t.Fatalf("transaction: %v", err)
	}
	if notified != 1 {
		t.Fatalf("notified = %d, want 1", notified)
	}
}
