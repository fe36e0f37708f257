package capability

// CommandDescriptor describes one remote-invocable operation on a component
// type. Descriptors are immutable once the registry is built.
type CommandDescriptor struct {
	// Name is the operation name, unique within the component type.
	Name string `yaml:"name"`

	// Async marks commands that return before the device finishes acting.
	// Synchronous commands complete their effect before acknowledging.
	Async bool `yaml:"async"`

	// ProducesEvents lists the trigger events on which this command
	// produces correlated status data. Empty for fire-and-forget commands.
	ProducesEvents []string `yaml:"produces_events"`
}

// StatusDescriptor describes one read-only observable value on a component
// type. Descriptors are immutable once the registry is built.
type StatusDescriptor struct {
	// Name is the status name, unique within the component type.
	Name string `yaml:"name"`

	// PublishEvents lists the trigger events on which the device
	// auto-publishes this status.
	PublishEvents []string `yaml:"publish_events"`
}

// DataCommandBinding ties a command to the status it produces and the
// trigger events that link them. A command may bind to zero, one,
// or many statuses.
type DataCommandBinding struct {
	Command string   `yaml:"command"`
	Status  string   `yaml:"status"`
	Events  []string `yaml:"events"`
}

// ComponentType is the full static description of one component type:
// its commands, statuses, command-status bindings, and delivery
// capability flags.
type ComponentType struct {
	// Name identifies the type (e.g. "temperature_sensor", "relay").
	Name string `yaml:"name"`

	// SupportsPush is true when the component delivers status updates
	// over the push channel without being asked.
	SupportsPush bool `yaml:"supports_push"`

	// RequiresPolling is true when status values must be actively
	// queried over the pull channel.
	RequiresPolling bool `yaml:"requires_polling"`

	Commands []CommandDescriptor  `yaml:"commands"`
	Statuses []StatusDescriptor   `yaml:"statuses"`
	Bindings []DataCommandBinding `yaml:"bindings"`
}

// Command returns the descriptor for the named command, or nil.
func (t *ComponentType) Command(name string) *CommandDescriptor {
	for i := range t.Commands {
		if t.Commands[i].Name == name {
			return &t.Commands[i]
		}
	}
	return nil
}

// Status returns the descriptor for the named status, or nil.
func (t *ComponentType) Status(name string) *StatusDescriptor {
	for i := range t.Statuses {
		if t.Statuses[i].Name == name {
			return &t.Statuses[i]
		}
	}
	return nil
}

// Metadata is the declarative capability table for all component types,
// as loaded from the metadata file.
type Metadata struct {
	ComponentTypes []ComponentType `yaml:"component_types"`
}

// ComponentSpec declares one component instance on a device.
type ComponentSpec struct {
	// Name is the component's name on the device (e.g. "fan", "temp").
	Name string `yaml:"name"`

	// Type references a ComponentType by name.
	Type string `yaml:"type"`
}

// DeviceSpec declares one device and its components.
type DeviceSpec struct {
	// Name is the device name, unique within its namespace.
	Name string `yaml:"name"`

	// Namespace is the transport namespace (connection + heartbeat
	// grouping) this device belongs to.
	Namespace string `yaml:"namespace"`

	Components []ComponentSpec `yaml:"components"`
}

// Inventory is the declarative device fleet description, as loaded from
// the devices file.
type Inventory struct {
	Devices []DeviceSpec `yaml:"devices"`
}

// Namespaces returns the distinct transport namespaces in the inventory,
// in first-seen order.
func (inv *Inventory) Namespaces() []string {
	seen := make(map[string]bool)
	var out []string
	for _, d := range inv.Devices {
		if !seen[d.Namespace] {
			seen[d.Namespace] = true
			out = append(out, d.Namespace)
		}
	}
	return out
}
