package core

import (
	"context"
	"time"
)

// Ledger persists the lifecycle of published handles. It is diagnostic:
// the in-process table stays authoritative for routing.
type Ledger interface {
	// Migrate creates the necessary database tables.
	Migrate(ctx context.Context) error

	// Lifecycle
	RecordPublished(ctx context.Context, rec *HandleRecord) error
	RecordReleased(ctx context.Context, handleID string, reason ReleaseReason, at time.Time) error

	// Usage
	RecordInvocation(ctx context.Context, handleID string, callErr error, at time.Time) error

	// Queries
	GetHandle(ctx context.Context, handleID string) (*HandleRecord, error)
	GetHandlesByState(ctx context.Context, state HandleState, limit int) ([]*HandleRecord, error)

	// Retention
	PurgeReleased(ctx context.Context, before time.Time) (int64, error)
}
