// Package bus implements the per-target publish/subscribe registry the event
// binder fans out through. Each bus owns the logical subscriber lists for one
// target and offers both immediate (synchronous, in subscription order) and
// deferred (queued, FIFO per bus) delivery.
package bus

import (
	"reflect"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Stage is the processing phase a subscription listens in.
type Stage string

const (
	// StageMain is the default phase.
	StageMain Stage = "main"
	// StageBefore runs ahead of the main phase.
	StageBefore Stage = "before"
	// StageAfter runs behind the main phase.
	StageAfter Stage = "after"
	// StageInternal is reserved for internal notifications.
	StageInternal Stage = "internal"
)

// stageOrder fixes delivery order within a single fan-out.
var stageOrder = [...]Stage{StageBefore, StageMain, StageAfter, StageInternal}

// Handler is a logical subscriber callback. The return value of the last
// handler in an immediate fan-out is the fan-out's result.
type Handler func(args ...any) any

// subscription is one logical subscriber entry.
type subscription struct {
	id      string // caller-supplied subscriber id
	handle  string // internal bookkeeping id, used to retire once entries
	handler Handler
	fnPtr   uintptr
	once    bool
	taken   bool // once entry already claimed by a fan-out
}

type job struct {
	name string
	args []any
}

// Bus stores logical subscriptions for a single target, keyed by event name
// and stage, and performs fan-out.
type Bus struct {
	target string
	logger *zap.Logger

	mu     sync.Mutex
	events map[string]map[Stage][]*subscription
	closed bool

	queue chan job
	wg    sync.WaitGroup
}

const deferredQueueSize = 128

// New creates a bus for the named target and starts its deferred-dispatch
// worker. Callers must Close the bus to stop the worker.
func New(target string, logger *zap.Logger) *Bus {
	if logger == nil {
		logger = zap.NewNop()
	}
	b := &Bus{
		target: target,
		logger: logger,
		events: make(map[string]map[Stage][]*subscription),
		queue:  make(chan job, deferredQueueSize),
	}

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		for j := range b.queue {
			b.dispatch(j.name, j.args)
		}
	}()

	return b
}

// Target returns the target this bus serves.
func (b *Bus) Target() string {
	return b.target
}

// On registers a repeatable subscription for name at stage.
func (b *Bus) On(id, name string, handler Handler, stage Stage) {
	b.add(id, name, handler, stage, false)
}

// Once registers a subscription that is retired after its first successful
// delivery.
func (b *Bus) Once(id, name string, handler Handler, stage Stage) {
	b.add(id, name, handler, stage, true)
}

func (b *Bus) add(id, name string, handler Handler, stage Stage, once bool) {
	if handler == nil || name == "" {
		return
	}
	if stage == "" {
		stage = StageMain
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		b.logger.Debug("subscription on closed bus ignored",
			zap.String("target", b.target),
			zap.String("event", name),
		)
		return
	}

	stages, ok := b.events[name]
	if !ok {
		stages = make(map[Stage][]*subscription)
		b.events[name] = stages
	}
	stages[stage] = append(stages[stage], &subscription{
		id:      id,
		handle:  uuid.NewString(),
		handler: handler,
		fnPtr:   reflect.ValueOf(handler).Pointer(),
		once:    once,
	})
}

// Off removes subscriptions for id at stage. When handler is non-nil only the
// most recent entry with the same code pointer is removed; otherwise every
// entry registered under id at that stage goes. Reports whether anything was
// removed.
func (b *Bus) Off(id, name string, handler Handler, stage Stage) bool {
	if stage == "" {
		stage = StageMain
	}
	var fnPtr uintptr
	if handler != nil {
		fnPtr = reflect.ValueOf(handler).Pointer()
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	stages, ok := b.events[name]
	if !ok {
		return false
	}

	list := stages[stage]
	removed := false
	for i := len(list) - 1; i >= 0; i-- {
		sub := list[i]
		if sub.id != id {
			continue
		}
		if handler != nil && sub.fnPtr != fnPtr {
			continue
		}
		list = append(list[:i], list[i+1:]...)
		removed = true
		if handler != nil {
			break
		}
	}
	stages[stage] = list

	b.prune(name)
	return removed
}

// prune drops empty stage lists and name entries. Callers hold b.mu.
func (b *Bus) prune(name string) {
	stages, ok := b.events[name]
	if !ok {
		return
	}
	for stage, list := range stages {
		if len(list) == 0 {
			delete(stages, stage)
		}
	}
	if len(stages) == 0 {
		delete(b.events, name)
	}
}

// Emit queues a deferred fan-out of name. Drops the event with a log entry
// when the queue is full or the bus is closed.
func (b *Bus) Emit(name string, args ...any) {
	b.enqueue(name, args)
}

// Trigger queues a deferred fan-out of a physically-arrived event. Delivery
// is identical to Emit; the split mirrors the caller's intent.
func (b *Bus) Trigger(name string, args ...any) {
	b.enqueue(name, args)
}

func (b *Bus) enqueue(name string, args []any) {
	// The send happens under the lock: Close closes the queue under the
	// same lock, so no send can race the close.
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}

	select {
	case b.queue <- job{name: name, args: args}:
	default:
		b.logger.Warn("deferred event dropped, queue full",
			zap.String("target", b.target),
			zap.String("event", name),
		)
	}
}

// EmitSync fans out name immediately and returns the last handler's result,
// or nil when no handler ran.
func (b *Bus) EmitSync(name string, args ...any) any {
	return b.dispatch(name, args)
}

// TriggerSync fans out a physically-arrived event immediately.
func (b *Bus) TriggerSync(name string, args ...any) any {
	return b.dispatch(name, args)
}

// dispatch runs every matching handler in stage order (before, main, after,
// internal), each stage in subscription order. Handlers run outside the bus
// lock so they may re-enter the bus.
func (b *Bus) dispatch(name string, args []any) any {
	b.mu.Lock()
	stages, ok := b.events[name]
	if !ok {
		b.mu.Unlock()
		return nil
	}

	// Once entries are claimed inside the same critical section as the
	// snapshot, so overlapping immediate and deferred fan-outs of the same
	// name cannot both deliver them.
	var snapshot []*subscription
	for _, stage := range stageOrder {
		for _, sub := range stages[stage] {
			if sub.once {
				if sub.taken {
					continue
				}
				sub.taken = true
			}
			snapshot = append(snapshot, sub)
		}
	}
	b.mu.Unlock()

	var (
		last    any
		retired []string
	)
	for _, sub := range snapshot {
		last = sub.handler(args...)
		if sub.once {
			retired = append(retired, sub.handle)
		}
	}

	if len(retired) > 0 {
		b.retire(name, retired)
	}
	return last
}

// retire removes once subscriptions by handle after a fan-out.
func (b *Bus) retire(name string, handles []string) {
	done := make(map[string]struct{}, len(handles))
	for _, h := range handles {
		done[h] = struct{}{}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	stages, ok := b.events[name]
	if !ok {
		return
	}
	for stage, list := range stages {
		kept := list[:0]
		for _, sub := range list {
			if _, gone := done[sub.handle]; !gone {
				kept = append(kept, sub)
			}
		}
		stages[stage] = kept
	}
	b.prune(name)
}

// HasEvents reports whether any logical subscriber remains, for any name, id
// or stage.
func (b *Bus) HasEvents() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.events) > 0
}

// HasListeners reports whether any logical subscriber remains for name, at
// any id or stage. The binder's native-listener release protocol depends on
// this per-name view.
func (b *Bus) HasListeners(name string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.events[name]
	return ok
}

// Close stops the deferred worker and clears every subscriber list. Safe to
// call more than once.
func (b *Bus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	b.events = make(map[string]map[Stage][]*subscription)
	close(b.queue)
	b.mu.Unlock()

	b.wg.Wait()
}
