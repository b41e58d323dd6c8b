/*
Package metrics defines the observation hook for store operations.

Stores report every remote operation and every processed change event to a
Recorder. The Prometheus-backed implementation exports them as counters and
histograms; Nop, the default, discards them.
*/
package metrics
