package mqtt

import (
	"github.com/nerrad567/fleetd/internal/transport"
)

// Channel adapts a Client to the transport.PushChannel interface, fixing
// the QoS from configuration so proxy and heartbeat code stays
// transport-agnostic.
type Channel struct {
	client *Client
	qos    byte
}

// NewChannel creates a push-channel view of the client using its
// configured default QoS.
func NewChannel(client *Client) *Channel {
	return &Channel{
		client: client,
		qos:    byte(client.cfg.QoS),
	}
}

// Publish sends a payload to the given topic, not retained.
func (ch *Channel) Publish(topic string, payload []byte) error {
	return ch.client.Publish(topic, payload, ch.qos, false)
}

// Subscribe registers a handler for messages on the given topic.
func (ch *Channel) Subscribe(topic string, handler transport.MessageHandler) error {
	return ch.client.Subscribe(topic, ch.qos, func(topic string, payload []byte) error {
		handler(topic, payload)
		return nil
	})
}

// Unsubscribe removes the subscription for the given topic.
func (ch *Channel) Unsubscribe(topic string) error {
	return ch.client.Unsubscribe(topic)
}

// compile-time interface check
var _ transport.PushChannel = (*Channel)(nil)
