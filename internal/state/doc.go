// Package state maintains the merged fleet snapshot.
//
// The Aggregator is the single owner and single writer of the snapshot: a
// mapping from dotted path (device.component.status, or a local key) to the
// most recently observed value. External device state and internal control
// state live in separate partitions merged into one read surface.
//
// Startup performs one bootstrap pass issuing every declared data command
// and waiting for its correlated status, storing an explicit nil on timeout
// so no path is ever absent. Steady state then drives push-capable bindings
// from continuous watches and poll-only bindings from per-path poll loops
// with externally triggerable refresh hints. Namespace liveness records
// merge into the same snapshot.
//
// Every change to the merged snapshot is published to subscribed change
// streams; consumers read with GetAllStates or iterate a subscription.
package state
