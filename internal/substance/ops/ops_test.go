package ops

import "testing"

func TestCreateDeleteInverse(t *testing.T) {
	n := Node{ID: "p1", Type: "paragraph", Properties: map[string]any{"content": "hi"}}
	create := Create{Node: n}

	del := create.Invert().(Delete)
	if del.ID != "p1" {
		t.Fatalf("inverse delete id = %q, want p1", del.ID)
	}

	captured, ok := del.Captured()
	if !ok {
		t.Fatal("expected captured node on inverse of create")
	}

	back := del.Invert().(Create)
	if back.Node.ID != n.ID || back.Node.Properties["content"] != "hi" {
		t.Fatalf("round trip create = %+v", back.Node)
	}
	_ = captured
}

func TestDeleteInvertBeforeApplyPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic calling Invert on unapplied delete")
		}
	}()
	Delete{ID: "p1"}.Invert()
}

func TestSetInverse(t *testing.T) {
	s := Set{Target: NewPath("p1", "content"), NewValue: "new"}
	s = s.WithOldValue("old")

	inv := s.Invert().(Set)
	if inv.NewValue != "old" {
		t.Fatalf("inverse set new value = %v, want old", inv.NewValue)
	}
	old, ok := inv.OldValue()
	if !ok || old != "new" {
		t.Fatalf("inverse set old value = %v,%v want new,true", old, ok)
	}
}

func TestUpdateInverse(t *testing.T) {
	u := Update{Target: NewPath("p1", "content"), Diff: StringSplice{Offset: 6, Delete: 0, Insert: "brave "}}
	_, inv, err := u.Diff.Apply("Hello World")
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	u = u.WithInverseDiff(inv)

	back := u.Invert().(Update)
	result, _, err := back.Diff.Apply("Hello brave World")
	if err != nil {
		t.Fatalf("apply inverse: %v", err)
	}
	if result != "Hello World" {
		t.Fatalf("undo result = %q, want %q", result, "Hello World")
	}
}

func TestInvertAllReversesOrder(t *testing.T) {
	ops := []Op{
		Create{Node: Node{ID: "a"}},
		Create{Node: Node{ID: "b"}},
	}
	inv := InvertAll(ops)
	if len(inv) != 2 {
		t.Fatalf("len = %d, want 2", len(inv))
	}
	if inv[0].(Delete).ID != "b" || inv[1].(Delete).ID != "a" {
		t.Fatalf("expected reverse order b,a got %v,%v", inv[0], inv[1])
	}
}

func TestNodeClone(t *testing.T) {
	n := Node{ID: "c1", Type: "body", Properties: map[string]any{"nodes": []string{"a", "b"}}}
	cp := n.Clone()
	cp.Properties["nodes"].([]string)[0] = "mutated"

	orig := n.Properties["nodes"].([]string)
	if orig[0] != "a" {
		t.Fatalf("clone mutation leaked into original: %v", orig)
	}
}
