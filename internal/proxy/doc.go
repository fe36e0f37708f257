// Package proxy builds asynchronous per-component facades over the fleet
// transports and implements command/status correlation.
//
// A ComponentProxy exposes one Invoke path per declared command and
// correlation primitives per declared status: single-shot waits,
// execute-and-wait with a deadline, and continuous watches with clean stop
// semantics. A DeviceProxy groups the component proxies of one device and
// adds fan-out operations across all of its statuses. The Manager builds
// every proxy from the device inventory and the capability registry.
//
// Delivery is normalized behind the Adapter strategy: push-capable
// components receive values over the publish/subscribe channel, poll-only
// components are actively queried over the request/response channel with
// change detection. Callers never see the difference.
package proxy
