package heartbeat

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/fleetd/internal/transport"
)

// Logger defines the logging interface used by the Monitor.
// This allows different logging implementations to be used.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Status is the liveness state of a transport namespace.
type Status string

const (
	StatusUnknown Status = "unknown"
	StatusOnline  Status = "online"
	StatusOffline Status = "offline"
	StatusError   Status = "error"
)

// Record is one liveness observation for a namespace.
type Record struct {
	Status    Status         `json:"status"`
	Timestamp time.Time      `json:"timestamp"`
	Detail    map[string]any `json:"detail,omitempty"`
}

// RecordFunc receives a record each time a namespace's liveness changes.
// Invoked from the monitor's goroutine; must not block for long.
type RecordFunc func(namespace string, rec Record)

// Monitor probes one transport namespace for liveness on a fixed cadence.
//
// Each cycle publishes a probe carrying a request id and accepts any reply
// on the namespace's response topic within the timeout. Replies are not
// matched against the request id: with one prober per namespace there is no
// cross-talk to mis-correlate, and strict matching would mark a live fleet
// offline over a single dropped request. The id still travels in the probe
// so devices can echo it for diagnostics.
//
// The probe cadence is independent of, and normally longer than, the state
// refresh interval.
type Monitor struct {
	namespace string
	channel   transport.PushChannel
	topics    transport.Topics
	interval  time.Duration
	timeout   time.Duration
	onRecord  RecordFunc
	logger    Logger

	mu      sync.Mutex
	status  Status
	running bool
	stop    chan struct{}
	done    chan struct{}
	replies chan map[string]any
}

// Option configures a Monitor during construction.
type Option func(*Monitor)

// WithLogger sets the monitor's logger.
func WithLogger(logger Logger) Option {
	return func(m *Monitor) {
		m.logger = logger
	}
}

// NewMonitor creates a monitor for one namespace. onRecord is invoked on
// every liveness transition, including the first observation.
func NewMonitor(namespace string, channel transport.PushChannel, interval, timeout time.Duration, onRecord RecordFunc, opts ...Option) *Monitor {
	m := &Monitor{
		namespace: namespace,
		channel:   channel,
		interval:  interval,
		timeout:   timeout,
		onRecord:  onRecord,
		logger:    noopLogger{},
		status:    StatusUnknown,
		replies:   make(chan map[string]any, 1),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Status returns the last observed liveness state.
func (m *Monitor) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// Namespace returns the namespace this monitor probes.
func (m *Monitor) Namespace() string { return m.namespace }

// Start subscribes the response topic and begins probing. The first probe
// fires immediately so startup learns liveness without waiting a full
// interval.
func (m *Monitor) Start() error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return ErrAlreadyRunning
	}
	m.running = true
	m.stop = make(chan struct{})
	m.done = make(chan struct{})
	m.mu.Unlock()

	topic := m.topics.HeartbeatResponse(m.namespace)
	err := m.channel.Subscribe(topic, func(_ string, payload []byte) {
		var reply map[string]any
		if len(payload) > 0 {
			// Undecodable replies still count as liveness evidence.
			_ = json.Unmarshal(payload, &reply)
		}
		select {
		case m.replies <- reply:
		default:
		}
	})
	if err != nil {
		m.mu.Lock()
		m.running = false
		m.mu.Unlock()
		return fmt.Errorf("subscribing heartbeat responses for %s: %w", m.namespace, err)
	}

	go m.run()

	m.logger.Info("heartbeat monitor started",
		"namespace", m.namespace,
		"interval", m.interval,
		"timeout", m.timeout,
	)
	return nil
}

// Stop ends probing, waits for the probe loop to exit, and unsubscribes
// the response topic. No record is emitted after Stop returns.
func (m *Monitor) Stop() error {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return ErrNotRunning
	}
	m.running = false
	stop := m.stop
	done := m.done
	m.mu.Unlock()

	close(stop)
	<-done

	topic := m.topics.HeartbeatResponse(m.namespace)
	if err := m.channel.Unsubscribe(topic); err != nil {
		m.logger.Warn("heartbeat unsubscribe failed",
			"namespace", m.namespace,
			"error", err,
		)
	}

	m.logger.Info("heartbeat monitor stopped", "namespace", m.namespace)
	return nil
}

// run is the probe loop.
func (m *Monitor) run() {
	defer close(m.done)

	m.probe()

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			m.probe()
		}
	}
}

// probe publishes one liveness request and waits for a reply within the
// timeout.
func (m *Monitor) probe() {
	// Drop any reply left over from a previous cycle so it cannot satisfy
	// this probe.
	select {
	case <-m.replies:
	default:
	}

	requestID := uuid.NewString()
	payload, err := json.Marshal(map[string]any{
		"request_id": requestID,
		"timestamp":  time.Now().Unix(),
	})
	if err != nil {
		m.logger.Error("encoding heartbeat probe", "error", err)
		return
	}

	if err := m.channel.Publish(m.topics.HeartbeatRequest(m.namespace), payload); err != nil {
		m.logger.Warn("heartbeat probe publish failed",
			"namespace", m.namespace,
			"error", err,
		)
		m.transition(StatusError, map[string]any{
			"request_id": requestID,
			"error":      err.Error(),
		})
		return
	}

	timer := time.NewTimer(m.timeout)
	defer timer.Stop()

	select {
	case reply := <-m.replies:
		detail := map[string]any{"request_id": requestID}
		if reply != nil {
			detail["reply"] = reply
		}
		m.transition(StatusOnline, detail)

	case <-timer.C:
		m.transition(StatusOffline, map[string]any{"request_id": requestID})

	case <-m.stop:
	}
}

// transition records a new liveness state, notifying only on change.
func (m *Monitor) transition(status Status, detail map[string]any) {
	m.mu.Lock()
	changed := m.status != status
	m.status = status
	m.mu.Unlock()

	if !changed {
		return
	}

	m.logger.Info("namespace liveness changed",
		"namespace", m.namespace,
		"status", status,
	)

	if m.onRecord != nil {
		m.onRecord(m.namespace, Record{
			Status:    status,
			Timestamp: time.Now(),
			Detail:    detail,
		})
	}
}
