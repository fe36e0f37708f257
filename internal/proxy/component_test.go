package proxy

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestInvoke_UnknownCommand(t *testing.T) {
	p := newPushComponent(newFakePushChannel())

	err := p.Invoke(context.Background(), "explode", nil)
	if !errors.Is(err, ErrUnknownCommand) {
		t.Errorf("Invoke() error = %v, want ErrUnknownCommand", err)
	}
}

func TestInvoke_PublishesCommandTopic(t *testing.T) {
	ch := newFakePushChannel()
	p := newPushComponent(ch)

	if err := p.Invoke(context.Background(), "read", map[string]any{"unit": "c"}); err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}

	topics := ch.publishedTopics()
	if len(topics) != 1 || topics[0] != "devices/hvac/temp/read" {
		t.Errorf("published topics = %v, want [devices/hvac/temp/read]", topics)
	}
}

func TestWaitForStatus_UnknownStatus(t *testing.T) {
	p := newPushComponent(newFakePushChannel())

	_, err := p.WaitForStatus(context.Background(), "nonexistent", time.Second)
	if !errors.Is(err, ErrUnknownStatus) {
		t.Errorf("WaitForStatus() error = %v, want ErrUnknownStatus", err)
	}
}

func TestWaitForStatus_ResolvesOnDelivery(t *testing.T) {
	ch := newFakePushChannel()
	p := newPushComponent(ch)

	go func() {
		time.Sleep(20 * time.Millisecond)
		ch.inject("devices/hvac/temp/status/reading", map[string]any{
			"event":     "reading_ready",
			"value":     21.5,
			"timestamp": time.Now().Unix(),
		})
	}()

	ok, err := p.WaitForStatus(context.Background(), "reading", time.Second)
	if err != nil {
		t.Fatalf("WaitForStatus() error = %v", err)
	}
	if !ok {
		t.Error("WaitForStatus() = false, want true")
	}
}

func TestWaitForStatus_ClearsStaleReadiness(t *testing.T) {
	ch := newFakePushChannel()
	p := newPushComponent(ch)

	// A value that arrived earlier must not satisfy a fresh wait.
	ch.inject("devices/hvac/temp/status/reading", map[string]any{"event": "reading_ready", "value": 1})

	ok, err := p.WaitForStatus(context.Background(), "reading", 30*time.Millisecond)
	if err != nil {
		t.Fatalf("WaitForStatus() error = %v", err)
	}
	if ok {
		t.Error("WaitForStatus() = true from stale value, want false")
	}
}

func TestExecuteAndWait_ReturnsCorrelatedValue(t *testing.T) {
	ch := newFakePushChannel()
	p := newPushComponent(ch)

	// Simulated device: replies on the status topic 200ms after the
	// command lands.
	ch.Subscribe("devices/hvac/temp/read", func(string, []byte) {
		go func() {
			time.Sleep(200 * time.Millisecond)
			ch.inject("devices/hvac/temp/status/reading", map[string]any{
				"event": "reading_ready",
				"value": float64(42),
			})
		}()
	})

	value, err := p.ExecuteAndWait(context.Background(), "read", "reading", 2*time.Second, nil)
	if err != nil {
		t.Fatalf("ExecuteAndWait() error = %v", err)
	}

	m, ok := value.(map[string]any)
	if !ok {
		t.Fatalf("value type = %T, want map", value)
	}
	if m["value"] != float64(42) {
		t.Errorf("value = %v, want 42", m["value"])
	}
}

func TestExecuteAndWait_TimeoutReturnsNil(t *testing.T) {
	p := newPushComponent(newFakePushChannel())

	start := time.Now()
	value, err := p.ExecuteAndWait(context.Background(), "read", "reading", 200*time.Millisecond, nil)
	elapsed := time.Since(start)

	if err != nil {
		t.Fatalf("ExecuteAndWait() error = %v, want nil even on timeout", err)
	}
	if value != nil {
		t.Errorf("value = %v, want nil on timeout", value)
	}
	if elapsed < 150*time.Millisecond || elapsed > time.Second {
		t.Errorf("returned after %v, expected ~200ms", elapsed)
	}
}

func TestExecuteAndWait_PublishFailureReturnsNil(t *testing.T) {
	ch := newFakePushChannel()
	ch.failNext = errors.New("broker gone")
	p := newPushComponent(ch)

	value, err := p.ExecuteAndWait(context.Background(), "read", "reading", time.Second, nil)
	if err != nil {
		t.Fatalf("ExecuteAndWait() error = %v, want nil on transport failure", err)
	}
	if value != nil {
		t.Errorf("value = %v, want nil on transport failure", value)
	}
}

func TestExecuteAndWait_UnknownNames(t *testing.T) {
	p := newPushComponent(newFakePushChannel())

	if _, err := p.ExecuteAndWait(context.Background(), "explode", "reading", time.Second, nil); !errors.Is(err, ErrUnknownCommand) {
		t.Errorf("error = %v, want ErrUnknownCommand", err)
	}
	if _, err := p.ExecuteAndWait(context.Background(), "read", "nonexistent", time.Second, nil); !errors.Is(err, ErrUnknownStatus) {
		t.Errorf("error = %v, want ErrUnknownStatus", err)
	}
}

func TestExecuteAndWait_PullSettlesThenQueries(t *testing.T) {
	ch := newFakePullChannel()
	ch.set("greenhouse.baro.pressure", 1013.2)
	p := newPullComponent(ch, 20*time.Millisecond, time.Second)

	start := time.Now()
	value, err := p.ExecuteAndWait(context.Background(), "read", "pressure", time.Second, nil)
	if err != nil {
		t.Fatalf("ExecuteAndWait() error = %v", err)
	}
	if value != 1013.2 {
		t.Errorf("value = %v, want 1013.2", value)
	}
	if elapsed := time.Since(start); elapsed < 20*time.Millisecond {
		t.Errorf("returned after %v, expected settle delay first", elapsed)
	}

	ops := ch.invokedOps()
	if len(ops) != 1 || ops[0] != "greenhouse.baro.read" {
		t.Errorf("invoked = %v, want [greenhouse.baro.read]", ops)
	}

	// The queried value also lands in the proxy cache.
	if v, has := p.Latest("pressure"); !has || v != 1013.2 {
		t.Errorf("Latest() = %v, %v; want 1013.2, true", v, has)
	}
}

func TestExecuteAndWait_PullQueryFailureReturnsNil(t *testing.T) {
	ch := newFakePullChannel()
	ch.queryErr = errors.New("device unreachable")
	p := newPullComponent(ch, time.Millisecond, time.Second)

	value, err := p.ExecuteAndWait(context.Background(), "read", "pressure", time.Second, nil)
	if err != nil {
		t.Fatalf("ExecuteAndWait() error = %v, want nil", err)
	}
	if value != nil {
		t.Errorf("value = %v, want nil on query failure", value)
	}
}

func TestPoll_ChangeDetection(t *testing.T) {
	ch := newFakePullChannel()
	ch.set("greenhouse.baro.pressure", 1000)
	p := newPullComponent(ch, time.Millisecond, time.Second)

	_, changed, err := p.Poll(context.Background(), "pressure")
	if err != nil || !changed {
		t.Fatalf("first Poll: changed=%v err=%v, want true nil", changed, err)
	}

	// Unchanged value must not count as an update.
	_, changed, err = p.Poll(context.Background(), "pressure")
	if err != nil || changed {
		t.Fatalf("second Poll: changed=%v err=%v, want false nil", changed, err)
	}

	ch.set("greenhouse.baro.pressure", 1001)
	_, changed, err = p.Poll(context.Background(), "pressure")
	if err != nil || !changed {
		t.Fatalf("third Poll: changed=%v err=%v, want true nil", changed, err)
	}

	if len(p.History("pressure")) != 2 {
		t.Errorf("history length = %d, want 2 (unchanged poll not recorded)", len(p.History("pressure")))
	}
}

func TestPoll_UnsupportedOnPush(t *testing.T) {
	p := newPushComponent(newFakePushChannel())

	_, _, err := p.Poll(context.Background(), "reading")
	if !errors.Is(err, ErrPollUnsupported) {
		t.Errorf("Poll() error = %v, want ErrPollUnsupported", err)
	}
}

func TestWaitForContinuous_FanOut(t *testing.T) {
	ch := newFakePushChannel()
	p := newPushComponent(ch)

	const n = 10
	var countA, countB atomic.Int64

	idA, err := p.WaitForContinuous("reading", func(any) { countA.Add(1) }, nil)
	if err != nil {
		t.Fatalf("WaitForContinuous() error = %v", err)
	}
	idB, err := p.WaitForContinuous("reading", func(any) { countB.Add(1) }, nil)
	if err != nil {
		t.Fatalf("WaitForContinuous() error = %v", err)
	}

	for i := 0; i < n; i++ {
		ch.inject("devices/hvac/temp/status/reading", map[string]any{"event": "reading_ready", "value": i})
		time.Sleep(2 * time.Millisecond)
	}

	deadline := time.After(2 * time.Second)
	for countA.Load() < n || countB.Load() < n {
		select {
		case <-deadline:
			t.Fatalf("watch counts = %d/%d, want %d each", countA.Load(), countB.Load(), n)
		case <-time.After(5 * time.Millisecond):
		}
	}

	if err := p.StopContinuousWait(idA); err != nil {
		t.Errorf("StopContinuousWait(A) error = %v", err)
	}
	if err := p.StopContinuousWait(idB); err != nil {
		t.Errorf("StopContinuousWait(B) error = %v", err)
	}

	if countA.Load() != n || countB.Load() != n {
		t.Errorf("watch counts = %d/%d, want exactly %d each", countA.Load(), countB.Load(), n)
	}
}

func TestStopContinuousWait_SilencesCallback(t *testing.T) {
	ch := newFakePushChannel()
	p := newPushComponent(ch)

	var count atomic.Int64
	id, err := p.WaitForContinuous("reading", func(any) { count.Add(1) }, nil)
	if err != nil {
		t.Fatalf("WaitForContinuous() error = %v", err)
	}

	ch.inject("devices/hvac/temp/status/reading", map[string]any{"event": "reading_ready", "value": 1})
	deadline := time.After(time.Second)
	for count.Load() < 1 {
		select {
		case <-deadline:
			t.Fatal("callback never fired")
		case <-time.After(5 * time.Millisecond):
		}
	}

	if err := p.StopContinuousWait(id); err != nil {
		t.Fatalf("StopContinuousWait() error = %v", err)
	}

	// Updates injected after stop must never reach the callback.
	for i := 0; i < 5; i++ {
		ch.inject("devices/hvac/temp/status/reading", map[string]any{"event": "reading_ready", "value": i})
	}
	time.Sleep(50 * time.Millisecond)

	if count.Load() != 1 {
		t.Errorf("callback count after stop = %d, want 1", count.Load())
	}

	if err := p.StopContinuousWait(id); !errors.Is(err, ErrWatchNotFound) {
		t.Errorf("second stop error = %v, want ErrWatchNotFound", err)
	}
}

func TestWaitForContinuous_StopCondition(t *testing.T) {
	ch := newFakePushChannel()
	p := newPushComponent(ch)

	var count atomic.Int64
	id, err := p.WaitForContinuous("reading",
		func(any) { count.Add(1) },
		func() bool { return count.Load() >= 2 },
	)
	if err != nil {
		t.Fatalf("WaitForContinuous() error = %v", err)
	}

	for i := 0; i < 5; i++ {
		ch.inject("devices/hvac/temp/status/reading", map[string]any{"event": "reading_ready", "value": i})
		time.Sleep(5 * time.Millisecond)
	}

	deadline := time.After(time.Second)
	for {
		if err := p.StopContinuousWait(id); errors.Is(err, ErrWatchNotFound) {
			break // watch ended itself
		}
		select {
		case <-deadline:
			t.Fatal("watch never self-terminated on stop condition")
		case <-time.After(5 * time.Millisecond):
		}
	}

	if got := count.Load(); got != 2 {
		t.Errorf("callback count = %d, want 2", got)
	}
}

func TestWaitForContinuous_PullChangeOnly(t *testing.T) {
	ch := newFakePullChannel()
	ch.set("greenhouse.baro.pressure", 1000)
	p := newPullComponent(ch, time.Millisecond, 20*time.Millisecond)

	var count atomic.Int64
	id, err := p.WaitForContinuous("pressure", func(any) { count.Add(1) }, nil)
	if err != nil {
		t.Fatalf("WaitForContinuous() error = %v", err)
	}
	defer p.StopContinuousWait(id)

	// First poll is a change; subsequent identical polls are not.
	deadline := time.After(time.Second)
	for count.Load() < 1 {
		select {
		case <-deadline:
			t.Fatal("first change never delivered")
		case <-time.After(5 * time.Millisecond):
		}
	}

	time.Sleep(100 * time.Millisecond)
	if count.Load() != 1 {
		t.Fatalf("callback count = %d after unchanged polls, want 1", count.Load())
	}

	ch.set("greenhouse.baro.pressure", 1002)
	deadline = time.After(time.Second)
	for count.Load() < 2 {
		select {
		case <-deadline:
			t.Fatal("changed value never delivered")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestRefreshHint_WakesPullWatchEarly(t *testing.T) {
	ch := newFakePullChannel()
	ch.set("greenhouse.baro.pressure", 1000)
	// Poll interval far beyond the test horizon: only a hint can trigger
	// delivery.
	p := newPullComponent(ch, time.Millisecond, time.Hour)

	var count atomic.Int64
	id, err := p.WaitForContinuous("pressure", func(any) { count.Add(1) }, nil)
	if err != nil {
		t.Fatalf("WaitForContinuous() error = %v", err)
	}
	defer p.StopContinuousWait(id)

	p.RefreshHint("pressure")

	deadline := time.After(time.Second)
	for count.Load() < 1 {
		select {
		case <-deadline:
			t.Fatal("refresh hint never woke the watch")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestStopAll(t *testing.T) {
	ch := newFakePushChannel()
	p := newPushComponent(ch)

	var count atomic.Int64
	for i := 0; i < 3; i++ {
		if _, err := p.WaitForContinuous("reading", func(any) { count.Add(1) }, nil); err != nil {
			t.Fatalf("WaitForContinuous() error = %v", err)
		}
	}

	p.StopAll()

	ch.inject("devices/hvac/temp/status/reading", map[string]any{"event": "reading_ready", "value": 1})
	time.Sleep(50 * time.Millisecond)

	if count.Load() != 0 {
		t.Errorf("callbacks after StopAll = %d, want 0", count.Load())
	}
}
