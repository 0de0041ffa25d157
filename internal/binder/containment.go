package binder

import "github.com/mediakit/eventrouter/internal/dom"

// The containment tracker solves the overlay boundary problem: with overlay
// nodes stacked above the video surface, raw mouseenter/mouseleave fire on
// whichever node the pointer crosses, not on the logical video region. A
// single insideVideo flag turns those raw events into exactly one synthetic
// enter and one synthetic leave per boundary crossing. Moves between two
// nodes that are both inside (or both outside) the region are not crossings
// and change nothing.

// boundaryCallback builds the native callback installed for one raw boundary
// event name.
func (b *Binder) boundaryCallback(name string) *dom.Callback {
	switch name {
	case "mouseenter":
		return dom.NewCallback(b.handlePointerEnter)
	case "mouseleave":
		return dom.NewCallback(b.handlePointerLeave)
	default:
		return nil
	}
}

// handlePointerEnter flips insideVideo on a raw mouseenter that lands inside
// the video region while the pointer was considered outside, and synthesizes
// the single logical enter.
func (b *Binder) handlePointerEnter(ev dom.Event) {
	b.mu.Lock()
	if b.insideVideo || ev.Target == nil || !b.host.ContainsVideo(ev.Target) {
		b.mu.Unlock()
		return
	}
	b.insideVideo = true
	b.mu.Unlock()

	b.TriggerSync(EventKey{ID: binderID, Name: "mouseenter", Target: TargetVideoDOM}, ev)
}

// handlePointerLeave flips insideVideo on a raw mouseleave whose destination
// node is outside the video region, and synthesizes the single logical
// leave.
func (b *Binder) handlePointerLeave(ev dom.Event) {
	b.mu.Lock()
	if !b.insideVideo {
		b.mu.Unlock()
		return
	}
	if ev.RelatedTarget != nil && b.host.ContainsVideo(ev.RelatedTarget) {
		b.mu.Unlock()
		return
	}
	b.insideVideo = false
	b.mu.Unlock()

	b.TriggerSync(EventKey{ID: binderID, Name: "mouseleave", Target: TargetVideoDOM}, ev)
}
