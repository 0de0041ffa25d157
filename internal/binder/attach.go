package binder

import (
	"go.uber.org/zap"

	"github.com/mediakit/eventrouter/internal/dom"
)

// nativeBinding tracks, per target, which event names carry an active native
// listener and the installed callback identity. Names and callbacks always
// describe the same set, in attach order; there is never more than one entry
// per name.
type nativeBinding struct {
	names     []string
	callbacks map[string]*dom.Callback
}

func newNativeBinding() *nativeBinding {
	return &nativeBinding{
		callbacks: make(map[string]*dom.Callback),
	}
}

func (nb *nativeBinding) has(name string) bool {
	_, ok := nb.callbacks[name]
	return ok
}

func (nb *nativeBinding) add(name string, cb *dom.Callback) {
	if nb.has(name) {
		return
	}
	nb.names = append(nb.names, name)
	nb.callbacks[name] = cb
}

func (nb *nativeBinding) remove(name string) {
	if !nb.has(name) {
		return
	}
	delete(nb.callbacks, name)
	for i, n := range nb.names {
		if n == name {
			nb.names = append(nb.names[:i], nb.names[i+1:]...)
			return
		}
	}
}

func (nb *nativeBinding) clear() {
	nb.names = nil
	nb.callbacks = make(map[string]*dom.Callback)
}

// ensureAttached installs the single native listener for (target, name) if
// it does not exist yet. Targets that never bind natively no-op, as do video
// application events, which the engine wrapper re-emits itself. Kernel
// registrations made before the engine exists are queued.
func (b *Binder) ensureAttached(target Target, name, id string) {
	if !needsNativeBinding(target) {
		return
	}
	if target == TargetVideo && videoEvents.has(name) {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.destroyed {
		return
	}
	binding := b.bindings[target]
	if binding.has(name) {
		return
	}

	if target == TargetKernel {
		eng := b.host.Engine()
		if eng == nil {
			b.pending[target] = append(b.pending[target], pendingEvent{name: name, id: id})
			return
		}
		cb := b.nativeCallback(target, name)
		binding.add(name, cb)
		eng.On(name, cb)
		return
	}

	node := b.host.Node(target)
	if node == nil {
		b.logger.Debug("no physical node for target, skipping native attach",
			zap.String("target", string(target)),
			zap.String("event", name),
		)
		return
	}

	cb := b.nativeCallback(target, name)
	binding.add(name, cb)
	node.AddListener(name, cb)

	// Overlay nodes mirror every video DOM event.
	if target == TargetVideoDOM {
		for _, overlay := range b.host.OverlayNodes() {
			overlay.AddListener(name, cb)
		}
	}
}

// nativeCallback builds the one callback installed for (target, name). It
// closes over the target and name only, never the source object, so the same
// identity survives a source swap. Boundary events on the video surface get
// the containment tracker's callback instead of plain redelivery.
func (b *Binder) nativeCallback(target Target, name string) *dom.Callback {
	if target == TargetVideoDOM && boundaryEvents.has(name) {
		return b.boundaryCallback(name)
	}

	if target == TargetVideo {
		return dom.NewCallback(func(ev dom.Event) {
			b.Trigger(EventKey{ID: binderID, Name: name, Target: target}, ev)
		})
	}
	return dom.NewCallback(func(ev dom.Event) {
		b.TriggerSync(EventKey{ID: binderID, Name: name, Target: target}, ev)
	})
}

// releaseIfUnused detaches the native listener for (target, name) once no
// logical subscriber remains for the name on that target's bus. While any
// subscriber remains the listener stays live for the others.
func (b *Binder) releaseIfUnused(target Target, name string) {
	if !needsNativeBinding(target) {
		return
	}
	// Containment listeners stay installed for the tracker's lifetime; they
	// only come off wholesale on Destroy.
	if target == TargetVideoDOM && boundaryEvents.has(name) {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	binding := b.bindings[target]
	cb, ok := binding.callbacks[name]
	if !ok {
		return
	}
	if b.buses[target].HasListeners(name) {
		return
	}

	binding.remove(name)

	if target == TargetKernel {
		if eng := b.host.Engine(); eng != nil {
			eng.Off(name, cb)
		}
		return
	}

	if node := b.host.Node(target); node != nil {
		node.RemoveListener(name, cb)
	}
	if target == TargetVideoDOM {
		for _, overlay := range b.host.OverlayNodes() {
			overlay.RemoveListener(name, cb)
		}
	}
}

// ApplyPendingEvents drains the pending queue for target and replays each
// registration in enqueue order. The queue is swapped out first, so
// re-entrant registrations during the flush land on a fresh list. The owner
// calls this once the target's physical source becomes available.
func (b *Binder) ApplyPendingEvents(target Target) {
	b.mu.Lock()
	queued := b.pending[target]
	b.pending[target] = nil
	b.mu.Unlock()

	for _, p := range queued {
		// A registration unsubscribed while still queued must not leave a
		// native listener behind; nothing after the flush would release it.
		if !b.buses[target].HasListeners(p.name) {
			continue
		}
		b.ensureAttached(target, p.name, p.id)
	}
}

// BindBoundaryEvents installs the containment tracker's raw listeners on the
// video surface. Idempotent; listeners are only removed wholesale on
// Destroy.
func (b *Binder) BindBoundaryEvents() {
	for _, name := range []string{"mouseenter", "mouseleave"} {
		b.ensureAttached(TargetVideoDOM, name, binderID)
	}
}
