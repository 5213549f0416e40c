// Package metrics exposes Prometheus instrumentation for a bridge host.
//
// A Collector is optional. When a host is built without one, nothing is
// recorded and nothing is registered.
package metrics
