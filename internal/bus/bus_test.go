package bus

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
)

func newTestBus(t *testing.T) *Bus {
	t.Helper()
	b := New("test", zap.NewNop())
	t.Cleanup(b.Close)
	return b
}

func TestOnAndEmitSync(t *testing.T) {
	b := newTestBus(t)

	calls := 0
	b.On("p1", "play", func(args ...any) any {
		calls++
		return nil
	}, StageMain)

	b.EmitSync("play")
	if calls != 1 {
		t.Fatalf("expected 1 call, got %d", calls)
	}

	b.EmitSync("pause")
	if calls != 1 {
		t.Fatalf("unrelated event reached handler, calls = %d", calls)
	}
}

func TestStageDeliveryOrder(t *testing.T) {
	b := newTestBus(t)

	var order []string
	b.On("p1", "play", func(args ...any) any {
		order = append(order, "after")
		return nil
	}, StageAfter)
	b.On("p1", "play", func(args ...any) any {
		order = append(order, "main")
		return nil
	}, StageMain)
	b.On("p1", "play", func(args ...any) any {
		order = append(order, "before")
		return nil
	}, StageBefore)
	b.On("p1", "play", func(args ...any) any {
		order = append(order, "internal")
		return nil
	}, StageInternal)

	b.TriggerSync("play")

	want := []string{"before", "main", "after", "internal"}
	if len(order) != len(want) {
		t.Fatalf("expected %d deliveries, got %v", len(want), order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("delivery order = %v, want %v", order, want)
		}
	}
}

func TestEmitSyncReturnsLastHandlerResult(t *testing.T) {
	b := newTestBus(t)

	b.On("p1", "seek", func(args ...any) any { return "first" }, StageMain)
	b.On("p2", "seek", func(args ...any) any { return "last" }, StageMain)

	if got := b.EmitSync("seek"); got != "last" {
		t.Fatalf("expected last handler result, got %v", got)
	}

	if got := b.EmitSync("unknown"); got != nil {
		t.Fatalf("expected nil for event without handlers, got %v", got)
	}
}

func TestOffByHandler(t *testing.T) {
	b := newTestBus(t)

	aCalls, bCalls := 0, 0
	handlerA := func(args ...any) any { aCalls++; return nil }
	handlerB := func(args ...any) any { bCalls++; return nil }

	b.On("p1", "play", handlerA, StageMain)
	b.On("p1", "play", handlerB, StageMain)

	if !b.Off("p1", "play", handlerA, StageMain) {
		t.Fatal("expected Off to report removal")
	}

	b.EmitSync("play")
	if aCalls != 0 || bCalls != 1 {
		t.Fatalf("expected only handlerB to fire, got a=%d b=%d", aCalls, bCalls)
	}
}

func TestOffAllForID(t *testing.T) {
	b := newTestBus(t)

	calls := 0
	b.On("p1", "play", func(args ...any) any { calls++; return nil }, StageMain)
	b.On("p1", "play", func(args ...any) any { calls++; return nil }, StageMain)
	b.On("p2", "play", func(args ...any) any { calls++; return nil }, StageMain)

	b.Off("p1", "play", nil, StageMain)

	b.EmitSync("play")
	if calls != 1 {
		t.Fatalf("expected only p2's handler to remain, got %d calls", calls)
	}
}

func TestOffUnknownIsNoop(t *testing.T) {
	b := newTestBus(t)
	if b.Off("p1", "play", nil, StageMain) {
		t.Fatal("expected no removal for unknown subscription")
	}
}

func TestOnceRetiresAfterDelivery(t *testing.T) {
	b := newTestBus(t)

	calls := 0
	b.Once("p1", "play", func(args ...any) any { calls++; return nil }, StageMain)

	b.EmitSync("play")
	b.EmitSync("play")
	if calls != 1 {
		t.Fatalf("expected once handler to fire exactly once, got %d", calls)
	}
	if b.HasListeners("play") {
		t.Fatal("expected once subscription to be retired")
	}
}

func TestHasEventsAndHasListeners(t *testing.T) {
	b := newTestBus(t)

	if b.HasEvents() {
		t.Fatal("fresh bus should have no events")
	}

	handler := func(args ...any) any { return nil }
	b.On("p1", "play", handler, StageMain)
	b.On("p2", "pause", handler, StageBefore)

	if !b.HasEvents() || !b.HasListeners("play") || !b.HasListeners("pause") {
		t.Fatal("expected registered names to be visible")
	}
	if b.HasListeners("seek") {
		t.Fatal("unexpected listeners for unregistered name")
	}

	b.Off("p1", "play", handler, StageMain)
	if b.HasListeners("play") {
		t.Fatal("expected play to be fully released")
	}
	if !b.HasEvents() {
		t.Fatal("pause subscription should keep the bus non-empty")
	}
}

func TestDeferredEmitDelivers(t *testing.T) {
	b := newTestBus(t)

	done := make(chan []any, 1)
	b.On("p1", "play", func(args ...any) any {
		done <- args
		return nil
	}, StageMain)

	b.Emit("play", "arg0", 2)

	select {
	case args := <-done:
		if len(args) != 2 || args[0] != "arg0" || args[1] != 2 {
			t.Fatalf("unexpected args %v", args)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("deferred emit never delivered")
	}
}

func TestDeferredOrderIsFIFO(t *testing.T) {
	b := newTestBus(t)

	got := make(chan string, 3)
	handler := func(args ...any) any {
		got <- args[0].(string)
		return nil
	}
	b.On("p1", "play", handler, StageMain)

	b.Emit("play", "a")
	b.Emit("play", "b")
	b.Trigger("play", "c")

	for _, want := range []string{"a", "b", "c"} {
		select {
		case v := <-got:
			if v != want {
				t.Fatalf("expected %q, got %q", want, v)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for %q", want)
		}
	}
}

func TestCloseIsIdempotentAndStopsDelivery(t *testing.T) {
	b := New("test", zap.NewNop())

	calls := 0
	b.On("p1", "play", func(args ...any) any { calls++; return nil }, StageMain)

	b.Close()
	b.Close()

	b.Emit("play")
	b.On("p1", "play", func(args ...any) any { calls++; return nil }, StageMain)
	if b.HasEvents() {
		t.Fatal("closed bus accepted a subscription")
	}
	if got := b.EmitSync("play"); got != nil {
		t.Fatalf("closed bus delivered, got %v", got)
	}
	if calls != 0 {
		t.Fatalf("expected no deliveries after close, got %d", calls)
	}
}

func TestCloseDuringReentrantDeferredEmit(t *testing.T) {
	// A deferred handler that re-emits keeps the worker sending while Close
	// tears the bus down; the enqueue/close pair must never panic.
	for i := 0; i < 500; i++ {
		b := New("test", zap.NewNop())
		b.On("p1", "ping", func(args ...any) any {
			b.Emit("ping")
			return nil
		}, StageMain)

		b.Emit("ping")
		b.Close()
	}
}

func TestOnceDeliversAtMostOnceAcrossOverlappingFanOuts(t *testing.T) {
	b := newTestBus(t)

	var calls atomic.Int32
	b.Once("p1", "play", func(args ...any) any {
		calls.Add(1)
		return nil
	}, StageMain)

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b.EmitSync("play")
		}()
	}
	wg.Wait()

	if got := calls.Load(); got != 1 {
		t.Fatalf("expected once handler to fire exactly once, got %d", got)
	}
}

func TestReentrantEmitDoesNotDeadlock(t *testing.T) {
	b := newTestBus(t)

	inner := 0
	b.On("p1", "inner", func(args ...any) any { inner++; return nil }, StageMain)
	b.On("p1", "outer", func(args ...any) any {
		b.EmitSync("inner")
		return nil
	}, StageMain)

	b.EmitSync("outer")
	if inner != 1 {
		t.Fatalf("expected re-entrant emit to deliver once, got %d", inner)
	}
}
