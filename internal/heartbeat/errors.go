package heartbeat

import "errors"

var (
	// ErrAlreadyRunning indicates Start on a running monitor.
	ErrAlreadyRunning = errors.New("monitor already running")

	// ErrNotRunning indicates Stop on a stopped monitor.
	ErrNotRunning = errors.New("monitor not running")
)
