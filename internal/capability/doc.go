// Package capability holds the static description of every component type:
// its commands, its observable statuses, and the command-status-event
// bindings that drive correlation.
//
// The registry is built once from declarative YAML metadata and is immutable
// afterwards; there is no runtime introspection. Proxies consult it to know
// which operations exist, the adapter layer consults the capability flags
// (supports_push / requires_polling) to pick a delivery strategy, and the
// aggregator consults the bindings to know which commands refresh which
// state paths.
//
// Malformed component types are skipped with a warning so a single bad
// metadata entry never prevents the rest of the fleet from starting.
package capability
