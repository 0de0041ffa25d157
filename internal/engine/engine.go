// Package engine defines the media-engine boundary the event binder routes
// kernel events through, plus a null implementation for tests and demos.
package engine

import "github.com/mediakit/eventrouter/internal/dom"

// Engine is the surface the binder needs from a playback engine. Engine
// implementations deliver events synchronously to registered callbacks.
type Engine interface {
	On(name string, cb *dom.Callback)
	Off(name string, cb *dom.Callback)
}
