package transport

import "fmt"

// Topics provides builders for fleet transport topics.
// Using these helpers ensures consistent topic naming across the codebase.
//
// All device topics share the scheme:
//
//	{namespace}/{device}/{component}/{command}
//	{namespace}/{device}/{component}/status/{status}
//
// where namespace groups the devices sharing one physical connection and one
// heartbeat channel.
type Topics struct{}

// Command returns the topic for dispatching a command to a component.
//
// Example: devices/hvac/fan/set_speed
func (Topics) Command(namespace, device, component, command string) string {
	return fmt.Sprintf("%s/%s/%s/%s", namespace, device, component, command)
}

// Status returns the topic a component publishes a status value on.
//
// Example: devices/hvac/fan/status/speed
func (Topics) Status(namespace, device, component, status string) string {
	return fmt.Sprintf("%s/%s/%s/status/%s", namespace, device, component, status)
}

// AllStatuses returns a pattern matching every status of a component.
//
// Pattern: devices/hvac/fan/status/+
func (Topics) AllStatuses(namespace, device, component string) string {
	return fmt.Sprintf("%s/%s/%s/status/+", namespace, device, component)
}

// HeartbeatRequest returns the liveness probe topic for a namespace.
//
// Example: devices/heartbeat/request
func (Topics) HeartbeatRequest(namespace string) string {
	return fmt.Sprintf("%s/heartbeat/request", namespace)
}

// HeartbeatResponse returns the liveness reply topic for a namespace.
//
// Example: devices/heartbeat/response
func (Topics) HeartbeatResponse(namespace string) string {
	return fmt.Sprintf("%s/heartbeat/response", namespace)
}
