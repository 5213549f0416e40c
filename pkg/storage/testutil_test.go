package storage

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/jdziat/simple-callback-bridge/pkg/core"
)

// openTestDB opens a fresh in-memory SQLite instance.
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err, "open in-memory sqlite")
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

// newTestStorage returns a migrated ledger pinned to one connection so the
// in-memory database is shared by every query.
func newTestStorage(t *testing.T) *GormStorage {
	t.Helper()
	s, err := NewGormStorageWithPool(openTestDB(t))
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()), "migrate schema")
	return s
}

// newTestRecord builds a ledger row for a random handle.
func newTestRecord(t *testing.T, ignored ...int) *core.HandleRecord {
	t.Helper()
	rec, err := core.NewHandleRecord(core.Metadata{
		Handle:         uuid.NewString(),
		Method:         core.InvokeMethod,
		Shape:          "func(int, string) error",
		Arity:          2,
		IgnoredIndices: ignored,
	})
	require.NoError(t, err)
	return rec
}
