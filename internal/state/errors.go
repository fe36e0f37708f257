package state

import "errors"

var (
	// ErrAlreadyRunning indicates Start on a running aggregator.
	ErrAlreadyRunning = errors.New("aggregator already running")

	// ErrNotRunning indicates Stop on a stopped aggregator.
	ErrNotRunning = errors.New("aggregator not running")

	// ErrQueueFull indicates the command FIFO cannot accept more work.
	ErrQueueFull = errors.New("command queue full")

	// ErrUnknownPath indicates a refresh hint for a path with no declared
	// data command.
	ErrUnknownPath = errors.New("unknown state path")
)
