package proxy

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

const (
	// stopGrace is how long StopContinuousWait waits for a watch loop to
	// exit before abandoning it.
	stopGrace = 2 * time.Second

	// idleCheckInterval is how often an idle push watch re-evaluates its
	// stop condition.
	idleCheckInterval = 500 * time.Millisecond
)

// WatchCallback receives each update delivered to a continuous watch.
type WatchCallback func(value any)

// StopCondition is evaluated inside a watch loop; returning true ends the
// watch without an explicit StopContinuousWait call.
type StopCondition func() bool

// watch is the bookkeeping for one continuous status watch.
type watch struct {
	id      string
	status  string
	stop    chan struct{}
	done    chan struct{}
	stopped atomic.Bool
}

// WaitForContinuous starts a background watch on a status and returns its
// opaque id immediately.
//
// Push components: every delivered update reaches the callback, and
// independent watches on the same status each receive every update. Each
// watch buffers up to watcherBuffer pending updates; a callback that stays
// blocked while more than watcherBuffer updates arrive loses the oldest.
// Pull components: the status is polled on the component's interval (woken
// early by RefreshHint) and the callback fires only on detected change.
//
// The watch runs until StopContinuousWait, StopAll, or stopCondition
// returning true. stopCondition may be nil.
//
// Returns:
//   - string: The watch id, for StopContinuousWait
//   - error: ErrUnknownStatus only
func (p *ComponentProxy) WaitForContinuous(status string, callback WatchCallback, stopCondition StopCondition) (string, error) {
	ev, err := p.event(status)
	if err != nil {
		return "", err
	}

	w := &watch{
		id:     uuid.NewString(),
		status: status,
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}

	p.mu.Lock()
	p.watches[w.id] = w
	p.mu.Unlock()

	if p.adapter.Pollable() {
		go p.runPullWatch(w, callback, stopCondition)
	} else {
		updates := ev.addWatcher(w.id)
		go p.runPushWatch(w, ev, updates, callback, stopCondition)
	}

	p.logger.Debug("continuous watch started",
		"device", p.device,
		"component", p.name,
		"status", status,
		"watch_id", w.id,
	)
	return w.id, nil
}

// StopContinuousWait stops a continuous watch and waits for its loop to
// exit, up to a bounded grace period. After this call returns the watch's
// callback is never invoked again, even if the loop overran the grace
// period and was abandoned.
//
// Returns:
//   - error: ErrWatchNotFound when the id is not an active watch
func (p *ComponentProxy) StopContinuousWait(id string) error {
	p.mu.Lock()
	w, ok := p.watches[id]
	if ok {
		delete(p.watches, id)
	}
	p.mu.Unlock()

	if !ok {
		return ErrWatchNotFound
	}

	// The flag is checked before every callback invocation, so setting it
	// here guarantees silence after return regardless of loop timing.
	w.stopped.Store(true)
	close(w.stop)

	select {
	case <-w.done:
	case <-time.After(stopGrace):
		p.logger.Warn("watch did not exit within grace period, abandoning",
			"device", p.device,
			"component", p.name,
			"status", w.status,
			"watch_id", id,
		)
	}
	return nil
}

// StopAll stops every active continuous watch on the component.
func (p *ComponentProxy) StopAll() {
	p.mu.Lock()
	ids := make([]string, 0, len(p.watches))
	for id := range p.watches {
		ids = append(ids, id)
	}
	p.mu.Unlock()

	for _, id := range ids {
		if err := p.StopContinuousWait(id); err != nil {
			// Raced with a stop condition; already gone.
			continue
		}
	}
}

// finishWatch removes a self-terminated watch from the active set.
func (p *ComponentProxy) finishWatch(id string) {
	p.mu.Lock()
	delete(p.watches, id)
	p.mu.Unlock()
}

// runPushWatch drains the watch's fan-out channel and invokes the callback
// for every update. The stop condition is re-evaluated periodically while
// idle so a watch whose condition became true does not linger until the
// next update.
func (p *ComponentProxy) runPushWatch(w *watch, ev *StatusEvent, updates <-chan any, callback WatchCallback, stopCondition StopCondition) {
	defer close(w.done)
	defer ev.removeWatcher(w.id)

	ticker := time.NewTicker(idleCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stop:
			return

		case value := <-updates:
			if w.stopped.Load() {
				return
			}
			callback(value)
			if stopCondition != nil && stopCondition() {
				p.finishWatch(w.id)
				return
			}

		case <-ticker.C:
			if w.stopped.Load() {
				return
			}
			if stopCondition != nil && stopCondition() {
				p.finishWatch(w.id)
				return
			}
		}
	}
}

// runPullWatch polls the status on the component's interval and invokes the
// callback only on detected change. RefreshHint wakes the loop early.
func (p *ComponentProxy) runPullWatch(w *watch, callback WatchCallback, stopCondition StopCondition) {
	defer close(w.done)

	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()
	hints := p.refreshChan(w.status)

	for {
		select {
		case <-w.stop:
			return
		case <-ticker.C:
		case <-hints:
		}

		if w.stopped.Load() {
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), pollQueryTimeout)
		value, changed, err := p.adapter.Poll(ctx, w.status)
		cancel()
		if err != nil {
			p.logger.Warn("watch poll failed",
				"device", p.device,
				"component", p.name,
				"status", w.status,
				"error", err,
			)
			continue
		}

		if changed {
			if w.stopped.Load() {
				return
			}
			callback(value)
		}

		if stopCondition != nil && stopCondition() {
			p.finishWatch(w.id)
			return
		}
	}
}
