package state

import (
	"reflect"

	"github.com/google/uuid"
)

// subscriberBuffer is the per-subscriber change stream capacity. A slow
// consumer drops its oldest pending snapshot; intermediate snapshots are
// superseded by the newest anyway.
const subscriberBuffer = 8

// GetAllStates returns the merged snapshot: every external path plus every
// internal key, each holding its most recently observed value. The returned
// map is shared and must be treated as read-only.
func (a *Aggregator) GetAllStates() map[string]any {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.snapshot
}

// GetState reads one key, checking the internal partition first and the
// external partition second.
func (a *Aggregator) GetState(key string) (any, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if v, ok := a.internal[key]; ok {
		return v, true
	}
	v, ok := a.external[key]
	return v, ok
}

// SetState mutates internal control state. Changes flow through the same
// notification path as device-sourced updates.
func (a *Aggregator) SetState(key string, value any) {
	a.mu.Lock()
	a.internal[key] = value
	a.rebuildAndPublishLocked()
	a.mu.Unlock()
}

// Subscribe registers a change stream that receives the full merged
// snapshot every time it changes.
//
// Returns:
//   - string: Subscription id for Unsubscribe
//   - <-chan map[string]any: The change stream; snapshots are read-only
func (a *Aggregator) Subscribe() (string, <-chan map[string]any) {
	id := uuid.NewString()
	ch := make(chan map[string]any, subscriberBuffer)

	a.mu.Lock()
	a.subscribers[id] = ch
	a.mu.Unlock()

	return id, ch
}

// Unsubscribe removes a change stream. The channel is closed; a pending
// read drains normally.
func (a *Aggregator) Unsubscribe(id string) {
	a.mu.Lock()
	ch, ok := a.subscribers[id]
	if ok {
		delete(a.subscribers, id)
	}
	a.mu.Unlock()

	if ok {
		close(ch)
	}
}

// setExternal records a device-sourced value under its dotted path.
func (a *Aggregator) setExternal(path string, value any) {
	a.mu.Lock()
	a.external[path] = value
	a.rebuildAndPublishLocked()
	a.mu.Unlock()
}

// rebuildAndPublishLocked rebuilds the merged snapshot, compares it against
// the previous one, and on change publishes it to every subscriber. Caller
// holds a.mu; keeping the rebuild-compare-swap inside the lock is what
// makes concurrent writers safe.
func (a *Aggregator) rebuildAndPublishLocked() {
	merged := make(map[string]any, len(a.external)+len(a.internal))
	for k, v := range a.external {
		merged[k] = v
	}
	for k, v := range a.internal {
		merged[k] = v
	}

	if reflect.DeepEqual(merged, a.snapshot) {
		return
	}
	a.snapshot = merged

	for _, ch := range a.subscribers {
		select {
		case ch <- merged:
		default:
			// Full buffer: shed the oldest pending snapshot so the
			// newest always lands.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- merged:
			default:
			}
		}
	}
}
