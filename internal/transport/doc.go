// Package transport defines the two capability shapes the engine depends on:
// a push-based publish/subscribe channel and a pull-based request/response
// channel, plus the topic naming and wire payload helpers shared by every
// implementation.
//
// The engine never talks to a broker or device API directly. Push-capable
// components ride a PushChannel (the MQTT client in production, in-memory
// fakes in tests); poll-only components ride a PullChannel. Neither channel
// offers delivery or ordering guarantees across topics.
package transport
