package transport

import "context"

// MessageHandler is the callback signature for push-delivered messages.
//
// Handlers may be invoked from transport-owned goroutines and should not
// block for extended periods.
type MessageHandler func(topic string, payload []byte)

// PushChannel is the capability shape of a push-based publish/subscribe
// transport. The MQTT client satisfies this via its Channel adapter; tests
// use in-memory implementations.
//
// No delivery or ordering guarantees across topics are assumed. Messages for
// a single topic on one connection arrive in delivery order.
type PushChannel interface {
	// Publish sends a payload to the given topic.
	Publish(topic string, payload []byte) error

	// Subscribe registers a handler for messages on the given topic.
	// Multiple subscriptions to distinct topics may coexist.
	Subscribe(topic string, handler MessageHandler) error

	// Unsubscribe removes the subscription for the given topic.
	Unsubscribe(topic string) error
}

// PullChannel is the capability shape of a pull-based request/response
// transport (a device API client). Implementations are external
// collaborators; the engine depends only on this interface.
type PullChannel interface {
	// Invoke executes a named operation with keyword arguments.
	Invoke(ctx context.Context, op string, args map[string]any) (any, error)

	// Query reads a named observable value.
	Query(ctx context.Context, op string) (any, error)
}
