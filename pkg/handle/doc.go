// Package handle provides the process-wide table of boundary handles.
//
// A handle is the opaque token the boundary uses to address one wrapper
// instance. The table routes calls by handle, tracks the Active → Released
// transition (which fires at most once), keeps short-lived tombstones so
// stale handles can be told apart from unknown ones, and sweeps entries
// whose owner has been collected without releasing them.
//
// Most users should import the root package github.com/jdziat/simple-callback-bridge
// instead of this package directly.
package handle
