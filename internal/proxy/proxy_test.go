package proxy

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/nerrad567/fleetd/internal/capability"
	"github.com/nerrad567/fleetd/internal/transport"
)

// fakePushChannel is an in-memory loopback pub/sub channel. Publishing to a
// subscribed topic delivers synchronously on the caller's goroutine.
type fakePushChannel struct {
	mu        sync.Mutex
	handlers  map[string]transport.MessageHandler
	published []publishedMsg
	failNext  error
}

type publishedMsg struct {
	topic   string
	payload []byte
}

func newFakePushChannel() *fakePushChannel {
	return &fakePushChannel{handlers: make(map[string]transport.MessageHandler)}
}

func (f *fakePushChannel) Publish(topic string, payload []byte) error {
	f.mu.Lock()
	if f.failNext != nil {
		err := f.failNext
		f.failNext = nil
		f.mu.Unlock()
		return err
	}
	f.published = append(f.published, publishedMsg{topic, payload})
	handler := f.handlers[topic]
	f.mu.Unlock()

	if handler != nil {
		handler(topic, payload)
	}
	return nil
}

func (f *fakePushChannel) Subscribe(topic string, handler transport.MessageHandler) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[topic] = handler
	return nil
}

func (f *fakePushChannel) Unsubscribe(topic string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.handlers, topic)
	return nil
}

// inject simulates a device publishing a status value.
func (f *fakePushChannel) inject(topic string, value map[string]any) {
	payload, _ := json.Marshal(value)
	f.mu.Lock()
	handler := f.handlers[topic]
	f.mu.Unlock()
	if handler != nil {
		handler(topic, payload)
	}
}

func (f *fakePushChannel) publishedTopics() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.published))
	for i, m := range f.published {
		out[i] = m.topic
	}
	return out
}

// fakePullChannel is an in-memory request/response channel. Query results
// come from the values map; Invoke calls are recorded.
type fakePullChannel struct {
	mu       sync.Mutex
	values   map[string]any
	invoked  []string
	queryErr error
}

func newFakePullChannel() *fakePullChannel {
	return &fakePullChannel{values: make(map[string]any)}
}

func (f *fakePullChannel) Invoke(_ context.Context, op string, _ map[string]any) (any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invoked = append(f.invoked, op)
	return nil, nil
}

func (f *fakePullChannel) Query(_ context.Context, op string) (any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	v, ok := f.values[op]
	if !ok {
		return nil, errors.New("no such operation")
	}
	return v, nil
}

func (f *fakePullChannel) set(op string, value any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values[op] = value
}

func (f *fakePullChannel) invokedOps() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.invoked))
	copy(out, f.invoked)
	return out
}

// Shared fixture types.

func pushSensorType() *capability.ComponentType {
	return &capability.ComponentType{
		Name:         "temperature_sensor",
		SupportsPush: true,
		Commands: []capability.CommandDescriptor{
			{Name: "read", Async: true, ProducesEvents: []string{"reading_ready"}},
		},
		Statuses: []capability.StatusDescriptor{
			{Name: "reading", PublishEvents: []string{"reading_ready"}},
		},
		Bindings: []capability.DataCommandBinding{
			{Command: "read", Status: "reading", Events: []string{"reading_ready"}},
		},
	}
}

func fanRelayType() *capability.ComponentType {
	return &capability.ComponentType{
		Name:         "fan_relay",
		SupportsPush: true,
		Commands: []capability.CommandDescriptor{
			{Name: "set_speed"},
			{Name: "read_speed", Async: true, ProducesEvents: []string{"speed_update"}},
		},
		Statuses: []capability.StatusDescriptor{
			{Name: "speed", PublishEvents: []string{"speed_update"}},
		},
		Bindings: []capability.DataCommandBinding{
			{Command: "read_speed", Status: "speed", Events: []string{"speed_update"}},
		},
	}
}

func pullSensorType() *capability.ComponentType {
	return &capability.ComponentType{
		Name:            "baro_sensor",
		RequiresPolling: true,
		Commands: []capability.CommandDescriptor{
			{Name: "read"},
		},
		Statuses: []capability.StatusDescriptor{
			{Name: "pressure"},
		},
		Bindings: []capability.DataCommandBinding{
			{Command: "read", Status: "pressure"},
		},
	}
}

// newPushComponent wires a push-backed proxy over a fake channel. The
// returned channel can inject status payloads on the sensor's topic.
func newPushComponent(ch *fakePushChannel) *ComponentProxy {
	p := newComponentProxy("hvac", "temp", pushSensorType(), 0, 0, nil)
	statuses := []string{"reading"}
	p.adapter = NewPushAdapter(ch, "devices", "hvac", "temp", statuses, p.deliver, nil)
	if err := p.adapter.Start(); err != nil {
		panic(err)
	}
	return p
}

// newPullComponent wires a poll-backed proxy over a fake channel.
func newPullComponent(ch *fakePullChannel, settle, poll time.Duration) *ComponentProxy {
	p := newComponentProxy("greenhouse", "baro", pullSensorType(), settle, poll, nil)
	p.adapter = NewPullAdapter(ch, "greenhouse", "baro", p.deliver, nil)
	return p
}
