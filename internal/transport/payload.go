package transport

import (
	"encoding/json"
	"fmt"
)

// CommandPayload is the wire format for command dispatch.
// Commands with no arguments are published with an empty payload.
type CommandPayload struct {
	Params map[string]any `json:"params,omitempty"`
}

// EncodeCommand marshals a command payload. A nil or empty params map
// produces an empty payload, matching no-arg command dispatch.
func EncodeCommand(params map[string]any) ([]byte, error) {
	if len(params) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(CommandPayload{Params: params})
	if err != nil {
		return nil, fmt.Errorf("encoding command payload: %w", err)
	}
	return data, nil
}

// DecodeStatus unmarshals a status payload into a generic map.
//
// Status payloads are application-defined JSON objects that always carry an
// "event" tag and a timestamp. Non-object payloads (bare numbers, strings)
// are returned as their decoded value so odd devices still surface data.
func DecodeStatus(payload []byte) (any, error) {
	if len(payload) == 0 {
		return nil, fmt.Errorf("decoding status payload: empty payload")
	}

	var asMap map[string]any
	if err := json.Unmarshal(payload, &asMap); err == nil {
		return asMap, nil
	}

	var asAny any
	if err := json.Unmarshal(payload, &asAny); err != nil {
		return nil, fmt.Errorf("decoding status payload: %w", err)
	}
	return asAny, nil
}
