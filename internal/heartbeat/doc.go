// Package heartbeat probes transport namespaces for liveness.
//
// One Monitor runs per namespace, not per device: every device in a
// namespace shares one physical connection, so one probe answers for all of
// them. The monitor publishes a request on the namespace's heartbeat topic
// on its own cadence and accepts any reply on the response topic within the
// timeout as evidence of liveness. Missed replies produce an explicit
// offline record rather than silence.
package heartbeat
