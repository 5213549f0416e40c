// Package security provides validation, sanitization, and limits for the bridge package.
//
// This package includes:
//   - Validation of handle ids arriving from the boundary
//   - Size limits on per-argument payloads
//   - Error message sanitization before ledger storage
//   - Constants bounding function arity and argument size
//
// Most users should import the root package github.com/jdziat/simple-callback-bridge
// which re-exports these functions.
package security
