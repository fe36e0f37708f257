// Package influxdb provides the optional state-history recorder.
//
// It wraps the official influxdb-client-go v2 library for connection
// management and non-blocking batched writes, and adds a Recorder that
// consumes the aggregator's change stream and writes one point per changed
// path. History is telemetry only: the snapshot is never rebuilt from
// InfluxDB, so the engine keeps working (and restarting clean) with the
// recorder disabled or unreachable.
//
// # Thread Safety
//
// All methods are safe for concurrent use from multiple goroutines.
// The underlying write API uses non-blocking batched writes.
//
// # Error Handling
//
// Write operations are non-blocking and batch errors are logged via a
// callback. Connection and health check errors are returned directly.
package influxdb
