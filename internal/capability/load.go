package capability

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadMetadata reads the declarative capability metadata file.
//
// The file declares every component type's commands, statuses, bindings,
// and capability flags:
//
//	component_types:
//	  - name: temperature_sensor
//	    supports_push: true
//	    commands:
//	      - name: read
//	        async: true
//	        produces_events: [reading_ready]
//	    statuses:
//	      - name: reading
//	        publish_events: [reading_ready]
//	    bindings:
//	      - command: read
//	        status: reading
//	        events: [reading_ready]
//
// Parameters:
//   - path: Path to the YAML metadata file
//
// Returns:
//   - Metadata: Parsed component type table
//   - error: If the file cannot be read or parsed
func LoadMetadata(path string) (Metadata, error) {
	var meta Metadata

	data, err := os.ReadFile(path)
	if err != nil {
		return meta, fmt.Errorf("reading metadata file: %w", err)
	}

	if err := yaml.Unmarshal(data, &meta); err != nil {
		return meta, fmt.Errorf("parsing metadata file: %w", err)
	}

	return meta, nil
}

// LoadInventory reads the declarative device inventory file.
//
//	devices:
//	  - name: hvac
//	    namespace: devices
//	    components:
//	      - name: fan
//	        type: relay
//	      - name: temp
//	        type: temperature_sensor
//
// Parameters:
//   - path: Path to the YAML devices file
//
// Returns:
//   - Inventory: Parsed device fleet description
//   - error: If the file cannot be read or parsed
func LoadInventory(path string) (Inventory, error) {
	var inv Inventory

	data, err := os.ReadFile(path)
	if err != nil {
		return inv, fmt.Errorf("reading devices file: %w", err)
	}

	if err := yaml.Unmarshal(data, &inv); err != nil {
		return inv, fmt.Errorf("parsing devices file: %w", err)
	}

	return inv, nil
}
