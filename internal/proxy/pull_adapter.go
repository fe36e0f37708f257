package proxy

import (
	"context"
	"fmt"
	"reflect"
	"sync"

	"github.com/nerrad567/fleetd/internal/transport"
)

// PullAdapter drives status values over the request/response channel.
// Operations are addressed by dotted path (device.component.name). A polled
// value is only treated as an update when it differs from the previous
// observation, which keeps unchanged polling from causing notification
// storms.
type PullAdapter struct {
	channel   transport.PullChannel
	device    string
	component string
	deliver   deliverFunc
	logger    Logger

	mu       sync.Mutex
	lastSeen map[string]any
}

// NewPullAdapter creates a pull adapter for one component.
func NewPullAdapter(channel transport.PullChannel, device, component string, deliver deliverFunc, logger Logger) *PullAdapter {
	if logger == nil {
		logger = noopLogger{}
	}
	return &PullAdapter{
		channel:   channel,
		device:    device,
		component: component,
		deliver:   deliver,
		logger:    logger,
		lastSeen:  make(map[string]any),
	}
}

// Start is a no-op: pull delivery is driven by Poll calls.
func (a *PullAdapter) Start() error { return nil }

// Stop is a no-op.
func (a *PullAdapter) Stop() error { return nil }

// Invoke executes the command through the pull channel. The result, if any,
// is discarded; commands that produce data are followed by a Poll.
func (a *PullAdapter) Invoke(ctx context.Context, command string, params map[string]any) error {
	op := a.op(command)
	if _, err := a.channel.Invoke(ctx, op, params); err != nil {
		return fmt.Errorf("invoking %s: %w", op, err)
	}
	return nil
}

// Poll queries one status and delivers the value when it differs from the
// last observation. Returns the queried value, whether it changed, and any
// transport error.
func (a *PullAdapter) Poll(ctx context.Context, status string) (any, bool, error) {
	op := a.op(status)
	value, err := a.channel.Query(ctx, op)
	if err != nil {
		return nil, false, fmt.Errorf("querying %s: %w", op, err)
	}

	a.mu.Lock()
	prev, seen := a.lastSeen[status]
	changed := !seen || !reflect.DeepEqual(prev, value)
	if changed {
		a.lastSeen[status] = value
	}
	a.mu.Unlock()

	if changed {
		a.deliver(status, value)
	}
	return value, changed, nil
}

// Pollable reports true.
func (a *PullAdapter) Pollable() bool { return true }

func (a *PullAdapter) op(name string) string {
	return fmt.Sprintf("%s.%s.%s", a.device, a.component, name)
}
