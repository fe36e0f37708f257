package proxy

import "errors"

var (
	// ErrUnknownCommand indicates a command name not declared by the
	// component's type.
	ErrUnknownCommand = errors.New("unknown command")

	// ErrUnknownStatus indicates a status name not declared by the
	// component's type.
	ErrUnknownStatus = errors.New("unknown status")

	// ErrUnknownComponent indicates a component name not present on the
	// device.
	ErrUnknownComponent = errors.New("unknown component")

	// ErrUnknownDevice indicates a device name not present in the fleet.
	ErrUnknownDevice = errors.New("unknown device")

	// ErrWatchNotFound indicates a continuous watch id that is not active.
	ErrWatchNotFound = errors.New("watch not found")

	// ErrPollUnsupported indicates an active query on a component whose
	// adapter only supports push delivery.
	ErrPollUnsupported = errors.New("poll not supported")

	// ErrNoPullChannel indicates a poll-only component declared in the
	// inventory while no pull channel is configured.
	ErrNoPullChannel = errors.New("no pull channel configured")

	// ErrNoPushChannel indicates a push-capable component declared in the
	// inventory while neither a push nor a fallback pull channel is
	// configured.
	ErrNoPushChannel = errors.New("no push channel configured")
)
