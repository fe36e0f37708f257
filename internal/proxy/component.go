package proxy

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nerrad567/fleetd/internal/capability"
)

const (
	// defaultSettleDelay is how long a poll-only component is given to act
	// on a command before its result is queried directly.
	defaultSettleDelay = 500 * time.Millisecond

	// defaultPollInterval is the cadence of continuous pull watches.
	defaultPollInterval = 5 * time.Second

	// pollQueryTimeout bounds a single pull-channel query inside a watch
	// loop.
	pollQueryTimeout = 10 * time.Second
)

// ComponentProxy is the asynchronous facade for one component of one
// device. It dispatches the component's declared commands and correlates
// them with the component's declared statuses: single-shot waits,
// execute-and-wait under a deadline, and continuous watches.
//
// One StatusEvent per declared status is owned exclusively by the proxy.
// All public methods are safe for concurrent use.
type ComponentProxy struct {
	device       string
	name         string
	typ          *capability.ComponentType
	adapter      Adapter
	events       map[string]*StatusEvent
	settleDelay  time.Duration
	pollInterval time.Duration
	logger       Logger

	mu      sync.Mutex
	watches map[string]*watch
	refresh map[string]chan struct{}
}

func newComponentProxy(device, name string, typ *capability.ComponentType, settleDelay, pollInterval time.Duration, logger Logger) *ComponentProxy {
	if logger == nil {
		logger = noopLogger{}
	}
	if settleDelay <= 0 {
		settleDelay = defaultSettleDelay
	}
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}

	events := make(map[string]*StatusEvent, len(typ.Statuses))
	for _, st := range typ.Statuses {
		events[st.Name] = NewStatusEvent()
	}

	return &ComponentProxy{
		device:       device,
		name:         name,
		typ:          typ,
		events:       events,
		settleDelay:  settleDelay,
		pollInterval: pollInterval,
		logger:       logger,
		watches:      make(map[string]*watch),
		refresh:      make(map[string]chan struct{}),
	}
}

// deliver records an adapter-delivered value against the named status.
// Values for undeclared statuses are discarded with a warning.
func (p *ComponentProxy) deliver(status string, value any) {
	ev, ok := p.events[status]
	if !ok {
		p.logger.Warn("discarding value for undeclared status",
			"device", p.device,
			"component", p.name,
			"status", status,
		)
		return
	}
	ev.Set(value)
}

// Device returns the owning device's name.
func (p *ComponentProxy) Device() string { return p.device }

// Name returns the component's name on the device.
func (p *ComponentProxy) Name() string { return p.name }

// Type returns the component's capability description. Read-only.
func (p *ComponentProxy) Type() *capability.ComponentType { return p.typ }

// Invoke dispatches a declared command over the component's transport.
//
// Returns:
//   - error: ErrUnknownCommand for undeclared commands, or the transport
//     dispatch error
func (p *ComponentProxy) Invoke(ctx context.Context, command string, params map[string]any) error {
	if p.typ.Command(command) == nil {
		return fmt.Errorf("%w: %s.%s.%s", ErrUnknownCommand, p.device, p.name, command)
	}
	return p.adapter.Invoke(ctx, command, params)
}

// WaitForStatus clears the status's readiness signal and blocks until the
// next value arrives, the timeout elapses, or the context is cancelled.
//
// Returns:
//   - bool: true when a value arrived in time, false on timeout or cancel
//   - error: ErrUnknownStatus only; a timeout is not an error
func (p *ComponentProxy) WaitForStatus(ctx context.Context, status string, timeout time.Duration) (bool, error) {
	ev, err := p.event(status)
	if err != nil {
		return false, err
	}

	ev.Clear()
	return ev.Wait(ctx, timeout), nil
}

// ExecuteAndWait dispatches a command and returns the correlated status
// value, or nil when no value arrives within the timeout.
//
// For push components the status's readiness signal is cleared before the
// command is published. This narrows the window where a reply lands before
// the wait is armed; it cannot close it without a correlation id on the
// wire (a known limitation, not closed here). Poll-only components get a
// short settle delay after dispatch and are then queried directly.
//
// Transport failures during dispatch or query are logged and surface as a
// nil value, never as an error, so monitoring callers cannot crash on a
// flaky device.
//
// Returns:
//   - any: The status value, or nil on timeout or transport failure
//   - error: ErrUnknownCommand / ErrUnknownStatus only
func (p *ComponentProxy) ExecuteAndWait(ctx context.Context, command, status string, timeout time.Duration, params map[string]any) (any, error) {
	if p.typ.Command(command) == nil {
		return nil, fmt.Errorf("%w: %s.%s.%s", ErrUnknownCommand, p.device, p.name, command)
	}
	ev, err := p.event(status)
	if err != nil {
		return nil, err
	}

	if p.adapter.Pollable() {
		return p.executeAndQuery(ctx, command, status, params), nil
	}

	ev.Clear()

	if err := p.adapter.Invoke(ctx, command, params); err != nil {
		p.logger.Warn("command dispatch failed",
			"device", p.device,
			"component", p.name,
			"command", command,
			"error", err,
		)
		return nil, nil
	}

	if !ev.Wait(ctx, timeout) {
		p.logger.Debug("status wait timed out",
			"device", p.device,
			"component", p.name,
			"command", command,
			"status", status,
			"timeout", timeout,
		)
		return nil, nil
	}

	value, _ := ev.Latest()
	return value, nil
}

// executeAndQuery is the pull-side of ExecuteAndWait: dispatch, settle,
// query directly.
func (p *ComponentProxy) executeAndQuery(ctx context.Context, command, status string, params map[string]any) any {
	if err := p.adapter.Invoke(ctx, command, params); err != nil {
		p.logger.Warn("command dispatch failed",
			"device", p.device,
			"component", p.name,
			"command", command,
			"error", err,
		)
		return nil
	}

	timer := time.NewTimer(p.settleDelay)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
		return nil
	}

	value, _, err := p.adapter.Poll(ctx, status)
	if err != nil {
		p.logger.Warn("status query failed",
			"device", p.device,
			"component", p.name,
			"status", status,
			"error", err,
		)
		return nil
	}
	return value
}

// Latest returns the most recent value observed for a status and whether
// one has ever arrived. Unknown statuses report no value.
func (p *ComponentProxy) Latest(status string) (any, bool) {
	ev, err := p.event(status)
	if err != nil {
		return nil, false
	}
	return ev.Latest()
}

// History returns the recent values observed for a status, oldest first.
// Unknown statuses return nil.
func (p *ComponentProxy) History(status string) []any {
	ev, err := p.event(status)
	if err != nil {
		return nil
	}
	return ev.History()
}

// Poll actively queries one status through the pull channel, delivering the
// value on change. Returns ErrPollUnsupported for push components.
func (p *ComponentProxy) Poll(ctx context.Context, status string) (any, bool, error) {
	if _, err := p.event(status); err != nil {
		return nil, false, err
	}
	return p.adapter.Poll(ctx, status)
}

// Pollable reports whether the component is driven by active queries.
func (p *ComponentProxy) Pollable() bool { return p.adapter.Pollable() }

// RefreshHint wakes the status's continuous pull watch ahead of its next
// scheduled poll. Hints for push components or statuses with no active pull
// watch are harmless no-ops. Never blocks.
func (p *ComponentProxy) RefreshHint(status string) {
	select {
	case p.refreshChan(status) <- struct{}{}:
	default:
	}
}

// refreshChan lazily creates the per-status refresh hint channel.
func (p *ComponentProxy) refreshChan(status string) chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()

	ch, ok := p.refresh[status]
	if !ok {
		ch = make(chan struct{}, 1)
		p.refresh[status] = ch
	}
	return ch
}

// event resolves a declared status to its StatusEvent.
func (p *ComponentProxy) event(status string) (*StatusEvent, error) {
	ev, ok := p.events[status]
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s.%s", ErrUnknownStatus, p.device, p.name, status)
	}
	return ev, nil
}
