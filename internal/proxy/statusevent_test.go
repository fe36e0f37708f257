package proxy

import (
	"context"
	"testing"
	"time"
)

func TestStatusEvent_SetWakesWaiter(t *testing.T) {
	ev := NewStatusEvent()

	done := make(chan bool)
	go func() {
		done <- ev.Wait(context.Background(), time.Second)
	}()

	time.Sleep(10 * time.Millisecond)
	ev.Set(42)

	if ok := <-done; !ok {
		t.Error("Wait() = false, want true after Set")
	}

	v, has := ev.Latest()
	if !has || v != 42 {
		t.Errorf("Latest() = %v, %v; want 42, true", v, has)
	}
}

func TestStatusEvent_WaitTimeout(t *testing.T) {
	ev := NewStatusEvent()

	start := time.Now()
	if ev.Wait(context.Background(), 50*time.Millisecond) {
		t.Error("Wait() = true, want false without Set")
	}
	if elapsed := time.Since(start); elapsed < 40*time.Millisecond {
		t.Errorf("Wait returned after %v, expected ~50ms", elapsed)
	}
}

func TestStatusEvent_WaitCancelled(t *testing.T) {
	ev := NewStatusEvent()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	if ev.Wait(ctx, time.Second) {
		t.Error("Wait() = true, want false on cancel")
	}
}

func TestStatusEvent_ClearRearms(t *testing.T) {
	ev := NewStatusEvent()
	ev.Set("first")

	// Set without an intervening Clear resolves immediately.
	if !ev.Wait(context.Background(), 10*time.Millisecond) {
		t.Fatal("Wait() on set event = false, want true")
	}

	ev.Clear()
	if ev.IsSet() {
		t.Error("IsSet() = true after Clear")
	}
	if ev.Wait(context.Background(), 20*time.Millisecond) {
		t.Error("Wait() = true after Clear with no new value")
	}

	// Cache survives Clear.
	if v, has := ev.Latest(); !has || v != "first" {
		t.Errorf("Latest() after Clear = %v, %v; want first, true", v, has)
	}
}

func TestStatusEvent_HistoryBounded(t *testing.T) {
	ev := NewStatusEvent()
	for i := 0; i < historyCap+25; i++ {
		ev.Set(i)
	}

	hist := ev.History()
	if len(hist) != historyCap {
		t.Fatalf("history length = %d, want %d", len(hist), historyCap)
	}
	// Oldest dropped: the first retained value is 25.
	if hist[0] != 25 {
		t.Errorf("oldest retained = %v, want 25", hist[0])
	}
	if hist[len(hist)-1] != historyCap+24 {
		t.Errorf("newest retained = %v, want %d", hist[len(hist)-1], historyCap+24)
	}
}

func TestStatusEvent_WatcherFanOut(t *testing.T) {
	ev := NewStatusEvent()
	a := ev.addWatcher("a")
	b := ev.addWatcher("b")

	const n = 5
	for i := 0; i < n; i++ {
		ev.Set(i)
	}

	for name, ch := range map[string]<-chan any{"a": a, "b": b} {
		for i := 0; i < n; i++ {
			select {
			case v := <-ch:
				if v != i {
					t.Errorf("watcher %s got %v, want %d", name, v, i)
				}
			default:
				t.Fatalf("watcher %s missing update %d", name, i)
			}
		}
	}
}

func TestStatusEvent_WatcherDropsOldestOnOverflow(t *testing.T) {
	ev := NewStatusEvent()
	ch := ev.addWatcher("slow")

	for i := 0; i < watcherBuffer+3; i++ {
		ev.Set(i)
	}

	// The newest value must be present even though the oldest were shed.
	var got []any
	for {
		select {
		case v := <-ch:
			got = append(got, v)
			continue
		default:
		}
		break
	}

	if len(got) != watcherBuffer {
		t.Fatalf("buffered = %d, want %d", len(got), watcherBuffer)
	}
	if got[len(got)-1] != watcherBuffer+2 {
		t.Errorf("newest buffered = %v, want %d", got[len(got)-1], watcherBuffer+2)
	}
}

func TestStatusEvent_RemoveWatcher(t *testing.T) {
	ev := NewStatusEvent()
	ch := ev.addWatcher("w")
	ev.removeWatcher("w")
	ev.Set(1)

	select {
	case v := <-ch:
		t.Errorf("removed watcher received %v", v)
	default:
	}
}
