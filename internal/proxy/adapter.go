package proxy

import "context"

// Logger defines the logging interface used by the proxy layer.
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

// deliverFunc receives a decoded status value from an adapter.
type deliverFunc func(status string, value any)

// Adapter is the delivery strategy behind one ComponentProxy. Push and pull
// adapters satisfy the same contract so the proxy surface is identical for
// both delivery modes.
type Adapter interface {
	// Start begins delivery: push adapters subscribe their status topics,
	// pull adapters have nothing to arm.
	Start() error

	// Stop tears delivery down. After Stop returns no further values are
	// delivered.
	Stop() error

	// Invoke dispatches a command over the adapter's transport.
	Invoke(ctx context.Context, command string, params map[string]any) error

	// Poll actively queries one status. The value is delivered to the
	// proxy only when it differs from the cached one; the second return
	// reports whether it changed. Push adapters return ErrPollUnsupported.
	Poll(ctx context.Context, status string) (any, bool, error)

	// Pollable reports whether Poll is supported.
	Pollable() bool
}
