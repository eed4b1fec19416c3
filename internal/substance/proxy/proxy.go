// Package proxy implements the document core's event proxies (spec
// §4.I): filtered listeners notified after each committed change, kept
// separate from the blanket document:changed signal so a keystroke
// touching one path doesn't fan out to every node in the document.
package proxy

import (
	"fmt"

	"github.com/systemshift/substance/internal/substance/change"
	"github.com/systemshift/substance/internal/substance/logger"
	"github.com/systemshift/substance/internal/substance/ops"
)

// Listener receives a committed (or replayed) change and its info bag. An
// error or panic inside a listener is isolated to that listener: it is
// logged and does not stop dispatch to the rest, or the global
// document:changed emission (spec §7 propagation rules).
type Listener func(c change.DocumentChange, info map[string]any) error

// Proxy is anything the document's registry can dispatch a change to.
type Proxy interface {
	Notify(c change.DocumentChange, info map[string]any)
}

// ByPath is the required proxy: listeners subscribe to a single
// (nodeId, property) path and are notified at most once per change, only
// if some op in that change touched their path.
type ByPath struct {
	listeners map[ops.Path][]subscription
	nextID    int
}

type subscription struct {
	id string
	fn Listener
}

// NewByPath creates an empty by-path proxy.
func NewByPath() *ByPath {
	return &ByPath{listeners: make(map[ops.Path][]subscription)}
}

// Subscribe registers fn for path and returns an id usable with
// Unsubscribe.
func (p *ByPath) Subscribe(path ops.Path, fn Listener) string {
	p.nextID++
	id := fmt.Sprintf("listener-%d", p.nextID)
	p.listeners[path] = append(p.listeners[path], subscription{id: id, fn: fn})
	return id
}

// Unsubscribe removes a listener previously returned by Subscribe.
func (p *ByPath) Unsubscribe(path ops.Path, id string) {
	subs := p.listeners[path]
	for i, s := range subs {
		if s.id == id {
			p.listeners[path] = append(subs[:i], subs[i+1:]...)
			return
		}
	}
}

// Notify dispatches c to every listener whose path was touched by one of
// c's ops, at most once each even if multiple ops touch their path.
// Paths are visited in the order c's ops touch them (the property order
// of a created or deleted node is not defined); listeners on the same
// path are notified in registration order.
func (p *ByPath) Notify(c change.DocumentChange, info map[string]any) {
	notified := make(map[string]bool)
	for _, path := range touchedPaths(c.Ops) {
		for _, s := range p.listeners[path] {
			if notified[s.id] {
				continue
			}
			notified[s.id] = true
			invoke(s.fn, c, info)
		}
	}
}

func invoke(fn Listener, c change.DocumentChange, info map[string]any) {
	defer func() {
		if r := recover(); r != nil {
			logger.Log("proxy listener panicked: %v", r)
		}
	}()
	if err := fn(c, info); err != nil {
		logger.Log("proxy listener error: %v", err)
	}
}

// touchedPaths returns every (nodeId, property) path an op in ops
// touches. Create and Delete touch every property path recorded on the
// node (the whole record came or went); Set and Update touch their
// single Target path.
func touchedPaths(opList []ops.Op) []ops.Path {
	var out []ops.Path
	for _, op := range opList {
		switch o := op.(type) {
		case ops.Create:
			out = append(out, nodePaths(o.Node)...)
		case ops.Delete:
			if n, ok := o.Captured(); ok {
				out = append(out, nodePaths(n)...)
			}
		case ops.Set:
			out = append(out, o.Target)
		case ops.Update:
			out = append(out, o.Target)
		}
	}
	return out
}

func nodePaths(n ops.Node) []ops.Path {
	out := make([]ops.Path, 0, len(n.Properties))
	for prop := range n.Properties {
		out = append(out, ops.NewPath(n.ID, prop))
	}
	return out
}

// Registry aggregates every registered proxy plus the global
// document:changed listeners, dispatching in spec §4.I order: each proxy
// first, the global signal last.
type Registry struct {
	proxies []Proxy
	global  []func(c change.DocumentChange, info map[string]any)
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds a proxy to be notified on every dispatch.
func (r *Registry) Register(p Proxy) {
	r.proxies = append(r.proxies, p)
}

// OnDocumentChanged registers a global document:changed listener, invoked
// after every proxy on every dispatch.
func (r *Registry) OnDocumentChanged(fn func(c change.DocumentChange, info map[string]any)) {
	r.global = append(r.global, fn)
}

// Dispatch notifies every registered proxy, then every global listener.
func (r *Registry) Dispatch(c change.DocumentChange, info map[string]any) {
	for _, p := range r.proxies {
		p.Notify(c, info)
	}
	for _, fn := range r.global {
		fn(c, info)
	}
}
