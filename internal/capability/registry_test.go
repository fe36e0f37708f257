package capability

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func sensorType() ComponentType {
	return ComponentType{
		Name:         "temperature_sensor",
		SupportsPush: true,
		Commands: []CommandDescriptor{
			{Name: "read", Async: true, ProducesEvents: []string{"reading_ready"}},
			{Name: "calibrate"},
		},
		Statuses: []StatusDescriptor{
			{Name: "reading", PublishEvents: []string{"reading_ready"}},
		},
		Bindings: []DataCommandBinding{
			{Command: "read", Status: "reading", Events: []string{"reading_ready"}},
		},
	}
}

func TestNewRegistry(t *testing.T) {
	reg, err := NewRegistry(Metadata{ComponentTypes: []ComponentType{sensorType()}})
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}

	if reg.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", reg.Len())
	}

	ct, err := reg.Describe("temperature_sensor")
	if err != nil {
		t.Fatalf("Describe() error = %v", err)
	}
	if ct.Command("read") == nil {
		t.Error("Command(read) = nil, want descriptor")
	}
	if ct.Status("reading") == nil {
		t.Error("Status(reading) = nil, want descriptor")
	}
	if ct.Command("nonexistent") != nil {
		t.Error("Command(nonexistent) != nil")
	}
}

func TestDescribe_UnknownType(t *testing.T) {
	reg, err := NewRegistry(Metadata{})
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}

	_, err = reg.Describe("ghost")
	if !errors.Is(err, ErrUnknownComponentType) {
		t.Errorf("Describe() error = %v, want ErrUnknownComponentType", err)
	}
}

func TestNewRegistry_SkipsInvalidBinding(t *testing.T) {
	bad := sensorType()
	bad.Name = "broken_sensor"
	bad.Bindings = []DataCommandBinding{
		{Command: "read", Status: "no_such_status"},
	}

	reg, err := NewRegistry(Metadata{ComponentTypes: []ComponentType{sensorType(), bad}})
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}

	// The invalid type is skipped, the valid one survives.
	if reg.Len() != 1 {
		t.Errorf("Len() = %d, want 1", reg.Len())
	}
	if _, err := reg.Describe("broken_sensor"); !errors.Is(err, ErrUnknownComponentType) {
		t.Errorf("Describe(broken_sensor) error = %v, want ErrUnknownComponentType", err)
	}
}

func TestNewRegistry_SkipsDuplicateCommand(t *testing.T) {
	bad := ComponentType{
		Name: "twitchy",
		Commands: []CommandDescriptor{
			{Name: "toggle"},
			{Name: "toggle"},
		},
	}

	reg, err := NewRegistry(Metadata{ComponentTypes: []ComponentType{bad}})
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}
	if reg.Len() != 0 {
		t.Errorf("Len() = %d, want 0", reg.Len())
	}
}

func TestNewRegistry_DuplicateTypeName(t *testing.T) {
	_, err := NewRegistry(Metadata{ComponentTypes: []ComponentType{sensorType(), sensorType()}})
	if !errors.Is(err, ErrDuplicateType) {
		t.Errorf("NewRegistry() error = %v, want ErrDuplicateType", err)
	}
}

func TestLoadMetadata(t *testing.T) {
	content := `
component_types:
  - name: relay
    supports_push: true
    commands:
      - name: turn_on
      - name: turn_off
      - name: read_state
        async: true
        produces_events: [state_update]
    statuses:
      - name: state
        publish_events: [state_update]
    bindings:
      - command: read_state
        status: state
        events: [state_update]
  - name: baro_sensor
    requires_polling: true
    commands:
      - name: read
    statuses:
      - name: pressure
`
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "components.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write metadata: %v", err)
	}

	meta, err := LoadMetadata(path)
	if err != nil {
		t.Fatalf("LoadMetadata() error = %v", err)
	}
	if len(meta.ComponentTypes) != 2 {
		t.Fatalf("component types = %d, want 2", len(meta.ComponentTypes))
	}

	relay := meta.ComponentTypes[0]
	if relay.Name != "relay" || !relay.SupportsPush || relay.RequiresPolling {
		t.Errorf("relay flags wrong: %+v", relay)
	}
	if len(relay.Bindings) != 1 || relay.Bindings[0].Status != "state" {
		t.Errorf("relay bindings wrong: %+v", relay.Bindings)
	}

	baro := meta.ComponentTypes[1]
	if !baro.RequiresPolling || baro.SupportsPush {
		t.Errorf("baro flags wrong: %+v", baro)
	}
}

func TestLoadInventory(t *testing.T) {
	content := `
devices:
  - name: hvac
    namespace: devices
    components:
      - name: fan
        type: relay
      - name: temp
        type: temperature_sensor
  - name: greenhouse
    namespace: garden
    components:
      - name: baro
        type: baro_sensor
`
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "devices.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write inventory: %v", err)
	}

	inv, err := LoadInventory(path)
	if err != nil {
		t.Fatalf("LoadInventory() error = %v", err)
	}
	if len(inv.Devices) != 2 {
		t.Fatalf("devices = %d, want 2", len(inv.Devices))
	}

	namespaces := inv.Namespaces()
	if len(namespaces) != 2 || namespaces[0] != "devices" || namespaces[1] != "garden" {
		t.Errorf("Namespaces() = %v, want [devices garden]", namespaces)
	}
}

func TestLoadMetadata_MissingFile(t *testing.T) {
	if _, err := LoadMetadata("/nonexistent/components.yaml"); err == nil {
		t.Error("LoadMetadata() expected error for missing file")
	}
}
