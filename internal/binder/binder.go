// Package binder implements the event multiplexer and rebinder at the heart
// of the player: many logical subscribers listen for named events that
// originate from different physical sources (playback engine, container and
// wrapper nodes, the video surface and its overlays, or the application
// itself), while each physical source carries at most one native listener per
// event name. The binder also migrates native listeners when a source is
// swapped at runtime and defers registrations made before the engine exists.
package binder

import (
	"sync"

	"go.uber.org/zap"

	"github.com/mediakit/eventrouter/internal/bus"
	"github.com/mediakit/eventrouter/internal/dom"
	"github.com/mediakit/eventrouter/internal/engine"
)

// Host resolves the physical sources the binder attaches to. Node returns
// the container or wrapper node for those targets and the video surface node
// for every other target; Engine may return nil while the playback engine is
// not yet constructed, which routes kernel registrations through the pending
// queue. ContainsVideo is the containment predicate for the boundary
// tracker: whether node sits inside the video region (the surface or an
// overlay above it).
type Host interface {
	Node(target Target) dom.Node
	Engine() engine.Engine
	OverlayNodes() []dom.Node
	ContainsVideo(node dom.Node) bool
}

// EventKey identifies a logical subscription or emission. ID is the opaque
// subscriber id (a plugin name, for example). Stage and Target, when set,
// override inference from the event name.
type EventKey struct {
	ID     string
	Name   string
	Stage  bus.Stage
	Target Target
}

// binderID tags emissions the binder itself originates: native redelivery
// and synthesized boundary events.
const binderID = "binder"

type pendingEvent struct {
	name string
	id   string
}

// Binder multiplexes logical subscriptions over shared native listeners, one
// bus per target.
type Binder struct {
	logger *zap.Logger
	host   Host

	mu           sync.Mutex
	bindings     map[Target]*nativeBinding
	pending      map[Target][]pendingEvent
	insideVideo  bool
	legacyWarned map[string]struct{}
	destroyed    bool

	// buses is populated once at construction and read-only afterwards.
	buses map[Target]*bus.Bus
}

// New creates a binder over host. One bus, one empty native-binding record
// and one empty pending queue are allocated per target. The containment
// tracker's raw listeners are installed immediately when the video surface
// already exists.
func New(host Host, logger *zap.Logger) *Binder {
	if logger == nil {
		logger = zap.NewNop()
	}

	b := &Binder{
		logger:       logger,
		host:         host,
		buses:        make(map[Target]*bus.Bus, len(allTargets)),
		bindings:     make(map[Target]*nativeBinding, len(allTargets)),
		pending:      make(map[Target][]pendingEvent, len(allTargets)),
		legacyWarned: make(map[string]struct{}),
	}
	for _, target := range allTargets {
		b.buses[target] = bus.New(string(target), logger.Named(string(target)))
		b.bindings[target] = newNativeBinding()
	}

	b.BindBoundaryEvents()

	return b
}

// Bus exposes the per-target bus, mainly for introspection.
func (b *Binder) Bus(target Target) *bus.Bus {
	return b.buses[target]
}

// resolveEvent normalizes key and logs the one-time advisory when a legacy
// prefix was used.
func (b *Binder) resolveEvent(key EventKey) resolution {
	res := resolve(key.Name, key.Stage, key.Target)
	if res.LegacyPrefix == "" {
		return res
	}

	b.mu.Lock()
	_, warned := b.legacyWarned[key.Name]
	if !warned {
		b.legacyWarned[key.Name] = struct{}{}
	}
	b.mu.Unlock()

	if !warned {
		b.logger.Warn("legacy event prefix is deprecated, pass a target instead",
			zap.String("event", key.Name),
			zap.String("prefix", res.LegacyPrefix),
			zap.String("target", string(res.Target)),
		)
	}
	return res
}

// On registers a repeatable subscription. It ensures a native listener
// exists for the resolved (target, name) pair before forwarding the
// subscription to the target's bus.
func (b *Binder) On(key EventKey, handler bus.Handler) error {
	if key.Name == "" {
		return ErrEmptyEventName
	}
	if handler == nil {
		return &InvalidHandlerError{Event: key.Name}
	}

	res := b.resolveEvent(key)
	b.ensureAttached(res.Target, res.Name, key.ID)
	b.buses[res.Target].On(key.ID, res.Name, handler, res.Stage)
	return nil
}

// Once registers a one-shot subscription. It does not establish a native
// listener: the handler rides on whatever binding a regular On created.
// TODO: confirm whether Once on a never-bound (target, name) should attach;
// today such a handler never fires.
func (b *Binder) Once(key EventKey, handler bus.Handler) error {
	if key.Name == "" {
		return ErrEmptyEventName
	}
	if handler == nil {
		return &InvalidHandlerError{Event: key.Name}
	}

	res := b.resolveEvent(key)
	b.buses[res.Target].Once(key.ID, res.Name, handler, res.Stage)
	return nil
}

// Off removes a subscription and releases the native listener when the last
// logical subscriber for the resolved (target, name) pair is gone.
func (b *Binder) Off(key EventKey, handler bus.Handler) {
	if key.Name == "" {
		return
	}

	res := b.resolveEvent(key)
	b.buses[res.Target].Off(key.ID, res.Name, handler, res.Stage)
	b.releaseIfUnused(res.Target, res.Name)
}

// Emit broadcasts an application event to the resolved target's subscribers
// via deferred fan-out. Malformed emissions are logged and dropped; emission
// paths never panic the caller.
func (b *Binder) Emit(key EventKey, args ...any) {
	if !b.checkEmit(key) {
		return
	}
	res := b.resolveEvent(key)
	b.buses[res.Target].Emit(res.Name, args...)
}

// EmitSync broadcasts an application event with immediate fan-out and
// returns the last handler's result, or false when validation fails.
func (b *Binder) EmitSync(key EventKey, args ...any) any {
	if !b.checkEmit(key) {
		return false
	}
	res := b.resolveEvent(key)
	return b.buses[res.Target].EmitSync(res.Name, args...)
}

// Trigger redelivers a physically-arrived event via deferred fan-out. The
// native callbacks for the video target use this path.
func (b *Binder) Trigger(key EventKey, args ...any) {
	if !b.checkEmit(key) {
		return
	}
	res := b.resolveEvent(key)
	b.buses[res.Target].Trigger(res.Name, args...)
}

// TriggerSync redelivers a physically-arrived event with immediate fan-out.
// Native engine and DOM callbacks use this path, since their callers expect
// synchronous semantics.
func (b *Binder) TriggerSync(key EventKey, args ...any) any {
	if !b.checkEmit(key) {
		return false
	}
	res := b.resolveEvent(key)
	return b.buses[res.Target].TriggerSync(res.Name, args...)
}

// checkEmit validates an emission request: a non-empty, non-stage-prefixed
// name and a non-empty id. Failures degrade to a logged no-op.
func (b *Binder) checkEmit(key EventKey) bool {
	if key.Name == "" || isSecondaryName(key.Name) || key.ID == "" {
		b.logger.Warn("emission rejected",
			zap.String("event", key.Name),
			zap.String("id", key.ID),
		)
		return false
	}
	return true
}

// InsideVideo reports whether the pointer is currently considered inside the
// video region.
func (b *Binder) InsideVideo() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.insideVideo
}

// BoundNames returns the event names with an active native listener for
// target, in attach order.
func (b *Binder) BoundNames(target Target) []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	binding, ok := b.bindings[target]
	if !ok {
		return nil
	}
	return append([]string(nil), binding.names...)
}

// PendingCount returns the number of registrations waiting for target's
// physical source.
func (b *Binder) PendingCount(target Target) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending[target])
}
