// Package dom models the DOM-like surface the event binder attaches to:
// nodes that accept named listeners, and an in-memory element tree used by
// tests and the event-tap demo in place of a real rendering host.
package dom

import "sync"

// Event carries a raw event through node dispatch.
type Event struct {
	Name string

	// Target is the node the listener fired on.
	Target Node

	// RelatedTarget is the node the pointer moved to (mouseleave) or came
	// from (mouseenter). Nil for non-boundary events.
	RelatedTarget Node

	Data any
}

// Callback wraps a listener function behind a stable identity, so the exact
// registration can later be detached, or moved to another node during a
// source swap, without reconstructing the closure.
type Callback struct {
	fn func(Event)
}

// NewCallback wraps fn. The returned pointer is the callback's identity.
func NewCallback(fn func(Event)) *Callback {
	return &Callback{fn: fn}
}

// Invoke runs the wrapped function.
func (c *Callback) Invoke(ev Event) {
	if c == nil || c.fn == nil {
		return
	}
	c.fn(ev)
}

// Node is the minimal attach/detach surface required of a physical event
// source. Detaching a never-attached pair must be a no-op.
type Node interface {
	AddListener(name string, cb *Callback)
	RemoveListener(name string, cb *Callback)
}

// Element is an in-memory Node with parent/child containment and synchronous
// dispatch. It stands in for a browser element in tests and demos.
type Element struct {
	name string

	mu        sync.Mutex
	parent    *Element
	children  []*Element
	listeners map[string][]*Callback
}

// NewElement creates an element with a debug name.
func NewElement(name string) *Element {
	return &Element{
		name:      name,
		listeners: make(map[string][]*Callback),
	}
}

// Name returns the element's debug name.
func (e *Element) Name() string {
	return e.name
}

// AppendChild adds child to e, detaching it from any previous parent.
func (e *Element) AppendChild(child *Element) {
	if child == nil || child == e {
		return
	}
	if p := child.Parent(); p != nil {
		p.RemoveChild(child)
	}

	e.mu.Lock()
	e.children = append(e.children, child)
	e.mu.Unlock()

	child.mu.Lock()
	child.parent = e
	child.mu.Unlock()
}

// RemoveChild detaches child from e. Unknown children are ignored.
func (e *Element) RemoveChild(child *Element) {
	if child == nil {
		return
	}

	e.mu.Lock()
	for i, c := range e.children {
		if c == child {
			e.children = append(e.children[:i], e.children[i+1:]...)
			break
		}
	}
	e.mu.Unlock()

	child.mu.Lock()
	if child.parent == e {
		child.parent = nil
	}
	child.mu.Unlock()
}

// Parent returns the element's current parent, or nil.
func (e *Element) Parent() *Element {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.parent
}

// Contains reports whether n is e or a descendant of e.
func (e *Element) Contains(n Node) bool {
	el, ok := n.(*Element)
	if !ok {
		return false
	}
	for cur := el; cur != nil; cur = cur.Parent() {
		if cur == e {
			return true
		}
	}
	return false
}

// AddListener registers cb for name. Uniqueness is not enforced here; the
// layer above guarantees at most one native callback per (node, name).
func (e *Element) AddListener(name string, cb *Callback) {
	if cb == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.listeners[name] = append(e.listeners[name], cb)
}

// RemoveListener detaches cb from name. Removing an unknown pair is a no-op.
func (e *Element) RemoveListener(name string, cb *Callback) {
	e.mu.Lock()
	defer e.mu.Unlock()
	list := e.listeners[name]
	for i, c := range list {
		if c == cb {
			e.listeners[name] = append(list[:i], list[i+1:]...)
			return
		}
	}
}

// ListenerCount returns the number of listeners attached for name.
func (e *Element) ListenerCount(name string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.listeners[name])
}

// Dispatch invokes every listener registered for ev.Name, synchronously and
// in attach order. ev.Target defaults to e.
func (e *Element) Dispatch(ev Event) {
	if ev.Target == nil {
		ev.Target = e
	}

	e.mu.Lock()
	snapshot := append([]*Callback(nil), e.listeners[ev.Name]...)
	e.mu.Unlock()

	for _, cb := range snapshot {
		cb.Invoke(ev)
	}
}
