package binder

import (
	"github.com/mediakit/eventrouter/internal/dom"
	"github.com/mediakit/eventrouter/internal/engine"
)

// MigrateEngineListeners moves every recorded kernel listener from oldEng to
// newEng. The callback identities are stable across the swap, so subscriber
// visible behavior is unchanged and no bus state moves.
func (b *Binder) MigrateEngineListeners(oldEng, newEng engine.Engine) {
	b.mu.Lock()
	defer b.mu.Unlock()

	binding := b.bindings[TargetKernel]
	for _, name := range binding.names {
		cb := binding.callbacks[name]
		if oldEng != nil {
			oldEng.Off(name, cb)
		}
		if newEng != nil {
			newEng.On(name, cb)
		}
	}
}

// MigrateVideoSurface attaches (or, with remove set, detaches) every
// recorded video and video-dom listener on node. Used to prime a freshly
// created surface node and to strip a node being discarded.
func (b *Binder) MigrateVideoSurface(node dom.Node, remove bool) {
	if node == nil {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	for _, target := range []Target{TargetVideoDOM, TargetVideo} {
		binding := b.bindings[target]
		for _, name := range binding.names {
			cb := binding.callbacks[name]
			if remove {
				node.RemoveListener(name, cb)
			} else {
				node.AddListener(name, cb)
			}
		}
	}
}

// BindOverlayNode mirrors the recorded video-dom listeners onto an overlay
// node joining the video region, or strips them from one leaving it. The
// overlay set itself belongs to the host.
func (b *Binder) BindOverlayNode(node dom.Node, remove bool) {
	if node == nil {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	binding := b.bindings[TargetVideoDOM]
	for _, name := range binding.names {
		cb := binding.callbacks[name]
		if remove {
			node.RemoveListener(name, cb)
		} else {
			node.AddListener(name, cb)
		}
	}
}

// Destroy removes every native listener, clears every binding and pending
// queue, and closes the per-target buses. Best effort and unconditional: it
// never fails, and a second call is indistinguishable from a single one.
func (b *Binder) Destroy() {
	b.mu.Lock()

	for _, target := range allTargets {
		binding := b.bindings[target]

		switch target {
		case TargetKernel:
			if eng := b.host.Engine(); eng != nil {
				for _, name := range binding.names {
					eng.Off(name, binding.callbacks[name])
				}
			}
		default:
			node := b.host.Node(target)
			for _, name := range binding.names {
				cb := binding.callbacks[name]
				if node != nil {
					node.RemoveListener(name, cb)
				}
				if target == TargetVideoDOM {
					for _, overlay := range b.host.OverlayNodes() {
						overlay.RemoveListener(name, cb)
					}
				}
			}
		}

		binding.clear()
		b.pending[target] = nil
	}

	b.destroyed = true
	b.insideVideo = false
	b.mu.Unlock()

	// Bus subscriber lists are the buses' own to clear.
	for _, target := range allTargets {
		b.buses[target].Close()
	}
}
