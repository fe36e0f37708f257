package capability

import "errors"

// Domain-specific errors for capability metadata.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrUnknownComponentType is returned by Describe for a type the
	// registry has no metadata for. Callers should skip the offending
	// component rather than abort startup.
	ErrUnknownComponentType = errors.New("capability: unknown component type")

	// ErrInvalidBinding is returned when a data-command binding references
	// a command or status the component type does not declare.
	ErrInvalidBinding = errors.New("capability: binding references undeclared command or status")

	// ErrDuplicateType is returned when metadata declares the same
	// component type name twice.
	ErrDuplicateType = errors.New("capability: duplicate component type")
)
