package proxy

import (
	"context"
	"sync"
	"time"
)

const (
	// historyCap bounds the per-status FIFO of recent values. The oldest
	// value is dropped on overflow.
	historyCap = 100

	// watcherBuffer is the per-watch fan-out channel capacity. A slow
	// watch drops its own oldest pending value rather than blocking
	// delivery to other watches.
	watcherBuffer = 16
)

// StatusEvent tracks one observable status of one component: a readiness
// signal for single-shot waits, a bounded FIFO of recent values, the latest
// value, and per-watch fan-out channels for continuous watches.
//
// Readiness is a close-to-broadcast channel: Set closes it so every pending
// wait wakes, Clear replaces it so the next wait arms fresh. All methods are
// safe for concurrent use.
type StatusEvent struct {
	mu       sync.Mutex
	ready    chan struct{}
	set      bool
	latest   any
	hasValue bool
	history  []any
	watchers map[string]chan any
}

// NewStatusEvent creates a cleared StatusEvent with no recorded values.
func NewStatusEvent() *StatusEvent {
	return &StatusEvent{
		ready:    make(chan struct{}),
		watchers: make(map[string]chan any),
	}
}

// Set records a new value: marks the event ready, updates the latest cache,
// appends to the bounded history, and fans the value out to every watcher.
func (e *StatusEvent) Set(value any) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.set {
		e.set = true
		close(e.ready)
	}

	e.latest = value
	e.hasValue = true

	e.history = append(e.history, value)
	if len(e.history) > historyCap {
		e.history = e.history[1:]
	}

	for _, ch := range e.watchers {
		select {
		case ch <- value:
		default:
			// Watcher buffer full: drop its oldest pending value so
			// the newest always lands.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- value:
			default:
			}
		}
	}
}

// Clear resets the readiness signal so the next Set wakes fresh waiters.
// The latest cache and history are retained.
func (e *StatusEvent) Clear() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.set {
		e.set = false
		e.ready = make(chan struct{})
	}
}

// IsSet reports whether a value has arrived since the last Clear.
func (e *StatusEvent) IsSet() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.set
}

// Wait blocks until the event is set, the timeout elapses, or the context
// is cancelled. Returns true only when the event was set.
func (e *StatusEvent) Wait(ctx context.Context, timeout time.Duration) bool {
	e.mu.Lock()
	ready := e.ready
	set := e.set
	e.mu.Unlock()

	if set {
		return true
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-ready:
		return true
	case <-timer.C:
		return false
	case <-ctx.Done():
		return false
	}
}

// Latest returns the most recent value and whether one has ever arrived.
func (e *StatusEvent) Latest() (any, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.latest, e.hasValue
}

// History returns a copy of the recent values, oldest first.
func (e *StatusEvent) History() []any {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]any, len(e.history))
	copy(out, e.history)
	return out
}

// addWatcher registers a fan-out channel under the given id. Every value
// recorded after registration is delivered to the channel.
func (e *StatusEvent) addWatcher(id string) <-chan any {
	e.mu.Lock()
	defer e.mu.Unlock()

	ch := make(chan any, watcherBuffer)
	e.watchers[id] = ch
	return ch
}

// removeWatcher deregisters a fan-out channel. Safe to call twice.
func (e *StatusEvent) removeWatcher(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.watchers, id)
}
