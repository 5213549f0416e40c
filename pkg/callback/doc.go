// Package callback provides the wrapper instance that exposes a Go function
// to an external runtime through a boundary handle.
//
// A Callback is created with New, which reflects the function's shape,
// records its ignored parameters and publishes a handle in a table. The
// owner releases it with Release. If the owner drops the Callback without
// releasing it, a runtime cleanup releases the handle once the Callback is
// collected, and the table's sweep catches anything the cleanup has not
// reached yet.
//
// The owner must keep the *Callback reachable for as long as the boundary
// is expected to call it.
package callback
