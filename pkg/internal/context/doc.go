// Package context provides internal context helpers for boundary calls.
//
// This package is internal and should not be imported directly.
// The host stores a CallContext in the context passed to wrapped functions;
// pkg/callctx exposes it to user code.
package context
