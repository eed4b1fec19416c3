// Package wire adapts between the document core's internal op/node types
// and their JSON wire forms (spec §6): replay/collaboration payloads and
// persisted snapshots. Like the teacher's repository adapter, it exists
// only to translate shapes at a boundary — it holds no state of its own.
package wire

import (
	"encoding/json"
	"fmt"

	"github.com/systemshift/substance/internal/substance/ops"
)

// Node is the wire form of ops.Node: {id, type, ...properties}, with
// properties flattened into the same object rather than nested.
type Node struct {
	ID         string
	Type       string
	Properties map[string]any
}

// FromOpsNode converts an internal node to its wire form.
func FromOpsNode(n ops.Node) Node {
	return Node{ID: n.ID, Type: n.Type, Properties: n.Properties}
}

// ToOpsNode converts a wire node back to the internal form.
func (n Node) ToOpsNode() ops.Node {
	return ops.Node{ID: n.ID, Type: n.Type, Properties: n.Properties}
}

// MarshalJSON flattens id, type, and every property into one object.
func (n Node) MarshalJSON() ([]byte, error) {
	flat := make(map[string]any, len(n.Properties)+2)
	for k, v := range n.Properties {
		flat[k] = v
	}
	flat["id"] = n.ID
	flat["type"] = n.Type
	return json.Marshal(flat)
}

// UnmarshalJSON splits id and type out of the flattened object, leaving
// the rest as Properties.
func (n *Node) UnmarshalJSON(data []byte) error {
	var flat map[string]any
	if err := json.Unmarshal(data, &flat); err != nil {
		return err
	}
	id, _ := flat["id"].(string)
	typ, _ := flat["type"].(string)
	delete(flat, "id")
	delete(flat, "type")
	n.ID = id
	n.Type = typ
	n.Properties = flat
	return nil
}

// Diff is the wire form of an ops.Diff, shaped per spec §6's
// `{type:"string-splice"|"list-splice"|"number-delta", ...}`.
type Diff struct {
	Type       string   `json:"type"`
	Offset     int      `json:"offset,omitempty"`
	Delete     int      `json:"delete,omitempty"`
	Insert     string   `json:"insert,omitempty"`
	Index      int      `json:"index,omitempty"`
	Remove     int      `json:"remove,omitempty"`
	InsertList []string `json:"insertList,omitempty"`
	Delta      int64    `json:"delta,omitempty"`
}

func encodeDiff(d ops.Diff) (Diff, error) {
	switch v := d.(type) {
	case ops.StringSplice:
		return Diff{Type: "string-splice", Offset: v.Offset, Delete: v.Delete, Insert: v.Insert}, nil
	case ops.ListSplice:
		return Diff{Type: "list-splice", Index: v.Index, Remove: v.Remove, InsertList: v.Insert}, nil
	case ops.NumberDelta:
		return Diff{Type: "number-delta", Delta: v.Delta}, nil
	default:
		return Diff{}, fmt.Errorf("wire: unknown diff type %T", d)
	}
}

func decodeDiff(w Diff) (ops.Diff, error) {
	switch w.Type {
	case "string-splice":
		return ops.StringSplice{Offset: w.Offset, Delete: w.Delete, Insert: w.Insert}, nil
	case "list-splice":
		return ops.ListSplice{Index: w.Index, Remove: w.Remove, Insert: w.InsertList}, nil
	case "number-delta":
		return ops.NumberDelta{Delta: w.Delta}, nil
	default:
		return nil, fmt.Errorf("wire: unknown diff type %q", w.Type)
	}
}

// Op is the wire form of ops.Op, shaped per spec §6.
type Op struct {
	Op       string `json:"op"`
	Node     *Node  `json:"node,omitempty"`
	Path     []string `json:"path,omitempty"`
	Value    any    `json:"value,omitempty"`
	Original any    `json:"original,omitempty"`
	Diff     *Diff  `json:"diff,omitempty"`
}

// EncodeOp converts an applied op (one that has gone through Store.Apply,
// so Delete/Set/Update carry their captured state) to its wire form.
func EncodeOp(op ops.Op) (Op, error) {
	switch o := op.(type) {
	case ops.Create:
		n := FromOpsNode(o.Node)
		return Op{Op: "create", Node: &n}, nil
	case ops.Delete:
		captured, ok := o.Captured()
		if !ok {
			return Op{}, fmt.Errorf("wire: delete op has not been applied, nothing captured")
		}
		n := FromOpsNode(captured)
		return Op{Op: "delete", Node: &n}, nil
	case ops.Set:
		old, _ := o.OldValue()
		return Op{Op: "set", Path: []string{o.Target.NodeID(), o.Target.Property()}, Value: o.NewValue, Original: old}, nil
	case ops.Update:
		d, err := encodeDiff(o.Diff)
		if err != nil {
			return Op{}, err
		}
		return Op{Op: "update", Path: []string{o.Target.NodeID(), o.Target.Property()}, Diff: &d}, nil
	default:
		return Op{}, fmt.Errorf("wire: unknown op type %T", op)
	}
}

// DecodeOp converts a wire op back to an internal op. The result has no
// captured state: a Delete decoded this way keeps only the carried node's
// id (the rest of the carried record is dropped), and its Invert is only
// meaningful after it goes through Store.Apply again.
func DecodeOp(w Op) (ops.Op, error) {
	switch w.Op {
	case "create":
		if w.Node == nil {
			return nil, fmt.Errorf("wire: create op missing node")
		}
		return ops.Create{Node: w.Node.ToOpsNode()}, nil
	case "delete":
		if w.Node == nil {
			return nil, fmt.Errorf("wire: delete op missing node")
		}
		return ops.Delete{ID: w.Node.ID}, nil
	case "set":
		path, err := decodePath(w.Path)
		if err != nil {
			return nil, err
		}
		return ops.Set{Target: path, NewValue: w.Value}, nil
	case "update":
		path, err := decodePath(w.Path)
		if err != nil {
			return nil, err
		}
		if w.Diff == nil {
			return nil, fmt.Errorf("wire: update op missing diff")
		}
		d, err := decodeDiff(*w.Diff)
		if err != nil {
			return nil, err
		}
		return ops.Update{Target: path, Diff: d}, nil
	default:
		return nil, fmt.Errorf("wire: unknown op %q", w.Op)
	}
}

func decodePath(p []string) (ops.Path, error) {
	if len(p) != 2 {
		return ops.Path{}, fmt.Errorf("wire: path must have 2 elements, got %d", len(p))
	}
	return ops.NewPath(p[0], p[1]), nil
}

// Schema is the wire form of a document's schema reference within a
// snapshot.
type Schema struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// Snapshot is a document's persisted state, per spec §6: a schema
// reference plus every node.
type Snapshot struct {
	Schema Schema `json:"schema"`
	Nodes  []Node `json:"nodes"`
}
