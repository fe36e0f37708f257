package proxy

import (
	"context"
	"fmt"

	"github.com/nerrad567/fleetd/internal/transport"
)

// PushAdapter delivers status values over the publish/subscribe channel.
// Subscribing each declared status topic is the only way values change for
// this adapter; no command issuance is required to refresh state.
type PushAdapter struct {
	channel   transport.PushChannel
	topics    transport.Topics
	namespace string
	device    string
	component string
	statuses  []string
	deliver   deliverFunc
	logger    Logger
}

// NewPushAdapter creates a push adapter for one component. Values decoded
// from each status topic are handed to deliver.
func NewPushAdapter(channel transport.PushChannel, namespace, device, component string, statuses []string, deliver deliverFunc, logger Logger) *PushAdapter {
	if logger == nil {
		logger = noopLogger{}
	}
	return &PushAdapter{
		channel:   channel,
		namespace: namespace,
		device:    device,
		component: component,
		statuses:  statuses,
		deliver:   deliver,
		logger:    logger,
	}
}

// Start subscribes every declared status topic. Fails on the first
// subscription error; already-established subscriptions are left in place
// for the caller to tear down via Stop.
func (a *PushAdapter) Start() error {
	for _, status := range a.statuses {
		status := status
		topic := a.topics.Status(a.namespace, a.device, a.component, status)

		err := a.channel.Subscribe(topic, func(_ string, payload []byte) {
			value, err := transport.DecodeStatus(payload)
			if err != nil {
				a.logger.Warn("discarding undecodable status payload",
					"device", a.device,
					"component", a.component,
					"status", status,
					"error", err,
				)
				return
			}
			a.deliver(status, value)
		})
		if err != nil {
			return fmt.Errorf("subscribing status %s/%s/%s: %w", a.device, a.component, status, err)
		}
	}
	return nil
}

// Stop unsubscribes every status topic. Errors are logged per topic so one
// failure never leaves the rest subscribed.
func (a *PushAdapter) Stop() error {
	for _, status := range a.statuses {
		topic := a.topics.Status(a.namespace, a.device, a.component, status)
		if err := a.channel.Unsubscribe(topic); err != nil {
			a.logger.Warn("unsubscribe failed",
				"topic", topic,
				"error", err,
			)
		}
	}
	return nil
}

// Invoke publishes the command payload on the component's command topic.
func (a *PushAdapter) Invoke(ctx context.Context, command string, params map[string]any) error {
	payload, err := transport.EncodeCommand(params)
	if err != nil {
		return err
	}

	topic := a.topics.Command(a.namespace, a.device, a.component, command)
	if err := a.channel.Publish(topic, payload); err != nil {
		return fmt.Errorf("publishing command %s: %w", topic, err)
	}
	return nil
}

// Poll is unsupported: push components only change via delivered events.
func (a *PushAdapter) Poll(context.Context, string) (any, bool, error) {
	return nil, false, ErrPollUnsupported
}

// Pollable reports false.
func (a *PushAdapter) Pollable() bool { return false }
