package engine

import (
	"sync"

	"go.uber.org/zap"

	"github.com/mediakit/eventrouter/internal/dom"
)

// NullEngine is a stub playback engine that records bindings and can fire
// events on demand. It backs tests, the pending-queue path, and the demo.
type NullEngine struct {
	logger *zap.Logger

	mu        sync.RWMutex
	listeners map[string][]*dom.Callback
}

// NewNullEngine creates a new null engine.
func NewNullEngine(logger *zap.Logger) *NullEngine {
	return &NullEngine{
		logger:    logger,
		listeners: make(map[string][]*dom.Callback),
	}
}

// On registers cb for name.
func (n *NullEngine) On(name string, cb *dom.Callback) {
	if cb == nil {
		return
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.listeners[name] = append(n.listeners[name], cb)

	if n.logger != nil {
		n.logger.Debug("null engine bound listener", zap.String("event", name))
	}
}

// Off removes cb from name. Unknown pairs are ignored.
func (n *NullEngine) Off(name string, cb *dom.Callback) {
	n.mu.Lock()
	defer n.mu.Unlock()
	list := n.listeners[name]
	for i, c := range list {
		if c == cb {
			n.listeners[name] = append(list[:i], list[i+1:]...)
			break
		}
	}
}

// Emit fires name synchronously on every registered callback.
func (n *NullEngine) Emit(name string, data any) {
	n.mu.RLock()
	snapshot := append([]*dom.Callback(nil), n.listeners[name]...)
	n.mu.RUnlock()

	for _, cb := range snapshot {
		cb.Invoke(dom.Event{Name: name, Data: data})
	}
}

// ListenerCount returns the number of callbacks bound for name.
func (n *NullEngine) ListenerCount(name string) int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.listeners[name])
}
