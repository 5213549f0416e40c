// Package handler provides internal reflection-based invocation.
//
// This package is internal and should not be imported directly.
// It provides:
//   - Handler: the per-instance ignored-parameter filter and dispatcher
//   - Per-argument decoding by declared parameter type
//   - Untyped JSON tree resolution for any/json.RawMessage parameters
package handler
