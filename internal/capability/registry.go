package capability

import (
	"fmt"
)

// Logger defines the logging interface used by the Registry.
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

// Registry holds the static capability description of every component type.
// It is built once from declarative metadata at registration time and is
// immutable thereafter, so lookups are safe from any goroutine without
// locking.
type Registry struct {
	types  map[string]*ComponentType
	logger Logger
}

// Option configures a Registry during construction.
type Option func(*Registry)

// WithLogger sets the logger used for skipped-type warnings.
func WithLogger(logger Logger) Option {
	return func(r *Registry) {
		r.logger = logger
	}
}

// NewRegistry builds a registry from metadata.
//
// Each component type is validated before registration: every binding must
// reference a command and a status declared by the same type. Invalid types
// are skipped with a logged warning so one malformed entry never aborts
// startup; duplicate type names are an error because silently keeping either
// copy would be a guess.
//
// Returns:
//   - *Registry: Registry with all valid component types
//   - error: Only for duplicate type names
func NewRegistry(meta Metadata, opts ...Option) (*Registry, error) {
	r := &Registry{
		types:  make(map[string]*ComponentType, len(meta.ComponentTypes)),
		logger: noopLogger{},
	}
	for _, opt := range opts {
		opt(r)
	}

	for i := range meta.ComponentTypes {
		t := meta.ComponentTypes[i]

		if _, exists := r.types[t.Name]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateType, t.Name)
		}

		if err := validateType(&t); err != nil {
			r.logger.Warn("skipping component type with invalid metadata",
				"type", t.Name,
				"error", err,
			)
			continue
		}

		r.types[t.Name] = &t
		r.logger.Debug("registered component type",
			"type", t.Name,
			"commands", len(t.Commands),
			"statuses", len(t.Statuses),
			"bindings", len(t.Bindings),
		)
	}

	r.logger.Info("capability registry built", "types", len(r.types))
	return r, nil
}

// validateType checks the internal consistency of one component type.
func validateType(t *ComponentType) error {
	if t.Name == "" {
		return fmt.Errorf("component type name is required")
	}

	seenCmd := make(map[string]bool, len(t.Commands))
	for _, cmd := range t.Commands {
		if cmd.Name == "" {
			return fmt.Errorf("command name is required")
		}
		if seenCmd[cmd.Name] {
			return fmt.Errorf("duplicate command %q", cmd.Name)
		}
		seenCmd[cmd.Name] = true
	}

	seenStatus := make(map[string]bool, len(t.Statuses))
	for _, st := range t.Statuses {
		if st.Name == "" {
			return fmt.Errorf("status name is required")
		}
		if seenStatus[st.Name] {
			return fmt.Errorf("duplicate status %q", st.Name)
		}
		seenStatus[st.Name] = true
	}

	for _, b := range t.Bindings {
		if !seenCmd[b.Command] {
			return fmt.Errorf("%w: command %q", ErrInvalidBinding, b.Command)
		}
		if !seenStatus[b.Status] {
			return fmt.Errorf("%w: status %q", ErrInvalidBinding, b.Status)
		}
	}

	return nil
}

// Describe returns the capability description for a component type.
//
// The returned value is shared and must be treated as read-only.
//
// Returns:
//   - *ComponentType: The type's commands, statuses, and bindings
//   - error: ErrUnknownComponentType for unregistered types
func (r *Registry) Describe(componentType string) (*ComponentType, error) {
	t, ok := r.types[componentType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownComponentType, componentType)
	}
	return t, nil
}

// Types returns the names of all registered component types.
func (r *Registry) Types() []string {
	out := make([]string, 0, len(r.types))
	for name := range r.types {
		out = append(out, name)
	}
	return out
}

// Len returns the number of registered component types.
func (r *Registry) Len() int {
	return len(r.types)
}
