package proxy

import (
	"fmt"
	"time"

	"github.com/nerrad567/fleetd/internal/capability"
	"github.com/nerrad567/fleetd/internal/transport"
)

// DataCommand is one flattened command-status binding of one built
// component, addressed by the dotted snapshot path of its status.
type DataCommand struct {
	Path      string // device.component.status
	Namespace string
	Device    string
	Component string
	Command   string
	Status    string
	Events    []string
	Push      bool // delivered over the push channel
}

// Manager builds and owns every device proxy in the fleet.
//
// Construction walks the device inventory, resolves each component's type
// through the capability registry, selects an adapter from the type's
// capability flags, and starts delivery. Components with unknown types, and
// poll-only components when no pull channel is configured, are skipped with
// a logged warning so one bad declaration never aborts startup.
type Manager struct {
	devices      map[string]*DeviceProxy
	order        []string
	settleDelay  time.Duration
	pollInterval time.Duration
	logger       Logger
}

// ManagerOption configures a Manager during construction.
type ManagerOption func(*Manager)

// WithLogger sets the logger shared by the manager and every proxy it
// builds.
func WithLogger(logger Logger) ManagerOption {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithSettleDelay sets how long poll-only components are given to act on a
// command before their result is queried.
func WithSettleDelay(d time.Duration) ManagerOption {
	return func(m *Manager) {
		m.settleDelay = d
	}
}

// WithPollInterval sets the cadence of continuous pull watches.
func WithPollInterval(d time.Duration) ManagerOption {
	return func(m *Manager) {
		m.pollInterval = d
	}
}

// NewManager builds device proxies for the whole inventory.
//
// push may be nil when no publish/subscribe transport is configured; pull
// may be nil when no request/response transport is configured. A component
// whose capability flags need the missing channel is skipped.
func NewManager(inv capability.Inventory, reg *capability.Registry, push transport.PushChannel, pull transport.PullChannel, opts ...ManagerOption) *Manager {
	m := &Manager{
		devices:      make(map[string]*DeviceProxy, len(inv.Devices)),
		settleDelay:  defaultSettleDelay,
		pollInterval: defaultPollInterval,
		logger:       noopLogger{},
	}
	for _, opt := range opts {
		opt(m)
	}

	built := 0
	for _, d := range inv.Devices {
		dev := &DeviceProxy{
			name:       d.Name,
			namespace:  d.Namespace,
			components: make(map[string]*ComponentProxy, len(d.Components)),
			logger:     m.logger,
		}

		for _, comp := range d.Components {
			typ, err := reg.Describe(comp.Type)
			if err != nil {
				m.logger.Warn("skipping component with unknown type",
					"device", d.Name,
					"component", comp.Name,
					"type", comp.Type,
					"error", err,
				)
				continue
			}

			p, err := m.buildComponent(d, comp, typ, push, pull)
			if err != nil {
				m.logger.Warn("skipping component",
					"device", d.Name,
					"component", comp.Name,
					"error", err,
				)
				continue
			}

			dev.components[comp.Name] = p
			dev.order = append(dev.order, comp.Name)
			built++
		}

		m.devices[d.Name] = dev
		m.order = append(m.order, d.Name)
	}

	m.logger.Info("device proxies built",
		"devices", len(m.devices),
		"components", built,
	)
	return m
}

// buildComponent wires one component proxy to its adapter and starts
// delivery.
func (m *Manager) buildComponent(dev capability.DeviceSpec, comp capability.ComponentSpec, typ *capability.ComponentType, push transport.PushChannel, pull transport.PullChannel) (*ComponentProxy, error) {
	p := newComponentProxy(dev.Name, comp.Name, typ, m.settleDelay, m.pollInterval, m.logger)

	switch {
	case typ.SupportsPush && push != nil:
		statuses := make([]string, 0, len(typ.Statuses))
		for _, st := range typ.Statuses {
			statuses = append(statuses, st.Name)
		}
		p.adapter = NewPushAdapter(push, dev.Namespace, dev.Name, comp.Name, statuses, p.deliver, m.logger)

	case pull != nil:
		p.adapter = NewPullAdapter(pull, dev.Name, comp.Name, p.deliver, m.logger)

	default:
		if typ.SupportsPush {
			return nil, fmt.Errorf("%w: component type %s", ErrNoPushChannel, typ.Name)
		}
		return nil, fmt.Errorf("%w: component type %s", ErrNoPullChannel, typ.Name)
	}

	if err := p.adapter.Start(); err != nil {
		p.adapter.Stop()
		return nil, fmt.Errorf("starting delivery: %w", err)
	}
	return p, nil
}

// Device returns the proxy for a named device.
//
// Returns:
//   - error: ErrUnknownDevice when the fleet has no such device
func (m *Manager) Device(name string) (*DeviceProxy, error) {
	d, ok := m.devices[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownDevice, name)
	}
	return d, nil
}

// Devices returns the device names in inventory order.
func (m *Manager) Devices() []string {
	out := make([]string, len(m.order))
	copy(out, m.order)
	return out
}

// AllDataCommands returns every command-status binding across the built
// fleet, flattened with dotted snapshot paths. The aggregator drives its
// bootstrap and refresh passes from this list.
func (m *Manager) AllDataCommands() []DataCommand {
	var out []DataCommand
	for _, devName := range m.order {
		dev := m.devices[devName]
		for _, compName := range dev.order {
			comp := dev.components[compName]
			for _, b := range comp.typ.Bindings {
				out = append(out, DataCommand{
					Path:      fmt.Sprintf("%s.%s.%s", devName, compName, b.Status),
					Namespace: dev.namespace,
					Device:    devName,
					Component: compName,
					Command:   b.Command,
					Status:    b.Status,
					Events:    b.Events,
					Push:      !comp.Pollable(),
				})
			}
		}
	}
	return out
}

// Close stops every continuous watch and tears down adapter delivery.
// Call before closing the underlying transport so no handler fires on a
// closed connection.
func (m *Manager) Close() {
	for _, devName := range m.order {
		dev := m.devices[devName]
		for _, compName := range dev.order {
			comp := dev.components[compName]
			comp.StopAll()
			if err := comp.adapter.Stop(); err != nil {
				m.logger.Warn("adapter stop failed",
					"device", devName,
					"component", compName,
					"error", err,
				)
			}
		}
	}
	m.logger.Info("device proxies closed", "devices", len(m.devices))
}
