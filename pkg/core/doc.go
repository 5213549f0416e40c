// Package core provides the fundamental types and interfaces for the bridge package.
//
// This package contains:
//   - Handle metadata, lifecycle states and release reasons
//   - HandleRecord ledger model with GORM annotations
//   - Ledger interface defining the persistence contract
//   - Event types for host monitoring
//   - Error types for construction and invocation
//
// Most users should import the root package github.com/jdziat/simple-callback-bridge
// instead of this package directly.
package core
