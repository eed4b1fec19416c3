package ops

// Op is one of the four invertible mutation primitives: Create, Delete,
// Set, Update. Once applied by a store, an Op carries enough captured
// state to produce its own inverse without consulting the store again
// (spec §4.C) — Invert is only meaningful on an applied op.
type Op interface {
	isOp()
	// Invert returns the op that undoes this one. Only valid once this
	// op has gone through Store.Apply: for Delete/Set/Update it reads
	// back the state captured at apply time.
	Invert() Op
}

// Create adds a full node record. Its inverse is Delete(node.ID).
type Create struct {
	Node Node
}

func (Create) isOp() {}

func (c Create) Invert() Op {
	return Delete{ID: c.Node.ID, captured: &c.Node, haveCaptured: true}
}

// Delete removes a node by id. At apply time the store captures the full
// node record being removed so the op can invert to a Create.
type Delete struct {
	ID           string
	captured     *Node
	haveCaptured bool
}

func (Delete) isOp() {}

func (d Delete) Invert() Op {
	if !d.haveCaptured {
		// Constructing the inverse of an un-applied delete is a
		// programmer error, not a recoverable one: the captured node
		// doesn't exist yet.
		panic("ops: Delete.Invert called before the op was applied")
	}
	return Create{Node: *d.captured}
}

// Captured returns the node record captured at apply time, and whether
// one has been captured yet.
func (d Delete) Captured() (Node, bool) {
	if !d.haveCaptured {
		return Node{}, false
	}
	return *d.captured, true
}

// WithCaptured returns a copy of d with its captured node record set.
// Used by the store immediately after removing the node from the table.
func (d Delete) WithCaptured(n Node) Delete {
	d.captured = &n
	d.haveCaptured = true
	return d
}

// Set replaces a property's whole value. At apply time the store
// captures the prior value so the op can invert to a Set of the old
// value.
type Set struct {
	Target   Path
	NewValue any
	oldValue any
	haveOld  bool
}

func (Set) isOp() {}

func (s Set) Invert() Op {
	if !s.haveOld {
		panic("ops: Set.Invert called before the op was applied")
	}
	return Set{Target: s.Target, NewValue: s.oldValue, oldValue: s.NewValue, haveOld: true}
}

// OldValue returns the value captured at apply time, and whether one has
// been captured yet.
func (s Set) OldValue() (any, bool) {
	return s.oldValue, s.haveOld
}

// WithOldValue returns a copy of s with its captured prior value set.
func (s Set) WithOldValue(v any) Set {
	s.oldValue = v
	s.haveOld = true
	return s
}

// Update applies a typed Diff to a property (string splice, list splice,
// or number delta). At apply time the store fills in the diff that
// undoes this one.
type Update struct {
	Target       Path
	Diff         Diff
	inverseDiff  Diff
	haveInverse  bool
}

func (Update) isOp() {}

func (u Update) Invert() Op {
	if !u.haveInverse {
		panic("ops: Update.Invert called before the op was applied")
	}
	return Update{Target: u.Target, Diff: u.inverseDiff, inverseDiff: u.Diff, haveInverse: true}
}

// InverseDiff returns the diff captured at apply time, and whether one
// has been captured yet.
func (u Update) InverseDiff() (Diff, bool) {
	return u.inverseDiff, u.haveInverse
}

// WithInverseDiff returns a copy of u with its captured inverse diff set.
func (u Update) WithInverseDiff(d Diff) Update {
	u.inverseDiff = d
	u.haveInverse = true
	return u
}

// InvertAll returns the inverses of ops in reverse order — the sequence
// that undoes applying ops in its original order.
func InvertAll(applied []Op) []Op {
	out := make([]Op, len(applied))
	for i, op := range applied {
		out[len(applied)-1-i] = op.Invert()
	}
	return out
}
