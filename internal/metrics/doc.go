// Package metrics tracks pipeline counters and timings in a Prometheus registry.
//
// A pipeline run is a batch job, so nothing is served over HTTP. The CLI writes
// the registry to a node_exporter textfile at the end of a run when configured.
// All methods are safe on a nil *Metrics, which disables collection.
package metrics
