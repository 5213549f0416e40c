// Package schedule provides the cadence used to run orphan-handle sweeps.
//
// This package includes:
//   - Schedule interface for defining when the next sweep runs
//   - Every() for fixed-interval sweeps
//   - Cron() and ParseCron() for cron expression-based sweeps
//
// Most users should import the root package github.com/jdziat/simple-callback-bridge
// which re-exports these functions.
package schedule
