// Package storage provides ledger implementations for handle persistence.
//
// This package includes:
//   - GormStorage: A GORM-based core.Ledger supporting various databases
//   - Pool helpers for tuning the underlying *sql.DB
//
// The ledger is diagnostic. Routing always goes through the in-process
// handle table; the ledger records what was published, how often each
// handle was called and why it was released.
package storage
