package influxdb

import (
	"reflect"
	"sync"
)

// Logger defines the logging interface used by the Recorder.
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

// PointWriter is the write surface the Recorder needs. *Client satisfies
// it; tests use an in-memory fake.
type PointWriter interface {
	WriteStateValue(path string, value any)
}

// Recorder consumes the aggregator's change stream and writes one point per
// changed path. It diffs consecutive snapshots so an update touching one
// path costs one write, not one per path.
//
// Recording is strictly one-way telemetry; nothing is ever read back.
type Recorder struct {
	writer PointWriter
	logger Logger

	mu      sync.Mutex
	running bool
	stop    chan struct{}
	done    chan struct{}
	prev    map[string]any
}

// RecorderOption configures a Recorder during construction.
type RecorderOption func(*Recorder)

// WithLogger sets the recorder's logger.
func WithLogger(logger Logger) RecorderOption {
	return func(r *Recorder) {
		r.logger = logger
	}
}

// NewRecorder creates a recorder over a point writer.
func NewRecorder(writer PointWriter, opts ...RecorderOption) *Recorder {
	r := &Recorder{
		writer: writer,
		logger: noopLogger{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Start begins consuming snapshots from the change stream. The loop ends
// when Stop is called or the stream is closed.
func (r *Recorder) Start(updates <-chan map[string]any) {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return
	}
	r.running = true
	r.stop = make(chan struct{})
	r.done = make(chan struct{})
	r.mu.Unlock()

	go r.run(updates)
	r.logger.Info("state history recorder started")
}

// Stop ends recording and waits for the consumer loop to exit.
func (r *Recorder) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	r.running = false
	stop := r.stop
	done := r.done
	r.mu.Unlock()

	close(stop)
	<-done
	r.logger.Info("state history recorder stopped")
}

func (r *Recorder) run(updates <-chan map[string]any) {
	defer close(r.done)

	for {
		select {
		case <-r.stop:
			return
		case snap, ok := <-updates:
			if !ok {
				return
			}
			r.record(snap)
		}
	}
}

// record writes every path whose value differs from the previous snapshot.
func (r *Recorder) record(snap map[string]any) {
	for path, value := range snap {
		prev, seen := r.prev[path]
		if seen && reflect.DeepEqual(prev, value) {
			continue
		}
		r.writer.WriteStateValue(path, value)
	}
	r.prev = snap
}
