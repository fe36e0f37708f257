package proxy

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// DeviceProxy groups the component proxies of one named device and adds
// fan-out operations across every status the device exposes.
type DeviceProxy struct {
	name       string
	namespace  string
	components map[string]*ComponentProxy
	order      []string
	logger     Logger
}

// StatusHit is the winning result of WaitForAnyStatus.
type StatusHit struct {
	Component string
	Status    string
	Value     any
}

// Name returns the device name.
func (d *DeviceProxy) Name() string { return d.name }

// Namespace returns the transport namespace the device belongs to.
func (d *DeviceProxy) Namespace() string { return d.namespace }

// Component returns the proxy for a named component.
//
// Returns:
//   - error: ErrUnknownComponent when the device has no such component
func (d *DeviceProxy) Component(name string) (*ComponentProxy, error) {
	c, ok := d.components[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s", ErrUnknownComponent, d.name, name)
	}
	return c, nil
}

// Components returns the device's component names in inventory order.
func (d *DeviceProxy) Components() []string {
	out := make([]string, len(d.order))
	copy(out, d.order)
	return out
}

// WaitForAnyStatus races one wait per (component, status) pair on the
// device and returns the first to resolve. All losing waits are cancelled
// and joined before this returns, so no background work outlives the call.
//
// Returns:
//   - *StatusHit: The first (component, status, value) to arrive, or nil
//     when nothing fired within the timeout
func (d *DeviceProxy) WaitForAnyStatus(ctx context.Context, timeout time.Duration) *StatusHit {
	raceCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make(chan StatusHit, 1)
	var wg sync.WaitGroup

	for _, name := range d.order {
		comp := d.components[name]
		for _, st := range comp.typ.Statuses {
			wg.Add(1)
			go func(comp *ComponentProxy, component, status string) {
				defer wg.Done()

				ok, err := comp.WaitForStatus(raceCtx, status, timeout)
				if err != nil || !ok {
					return
				}

				value, _ := comp.Latest(status)
				select {
				case results <- StatusHit{Component: component, Status: status, Value: value}:
				default:
					// A sibling already won.
				}
			}(comp, name, st.Name)
		}
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	var winner *StatusHit
	select {
	case hit := <-results:
		winner = &hit
		cancel()
	case <-done:
	case <-ctx.Done():
		cancel()
	}

	// Join every racer before returning; losers exit promptly once the
	// race context is cancelled.
	<-done

	if winner == nil {
		// A result may have landed in the same instant the last racer
		// finished.
		select {
		case hit := <-results:
			winner = &hit
		default:
		}
	}

	if winner == nil {
		d.logger.Debug("no status arrived within window",
			"device", d.name,
			"timeout", timeout,
		)
	}
	return winner
}
