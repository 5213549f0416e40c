package storage

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/jdziat/simple-callback-bridge/pkg/core"
	"github.com/jdziat/simple-callback-bridge/pkg/security"
)

// GormStorage implements core.Ledger using GORM.
type GormStorage struct {
	db *gorm.DB
}

var _ core.Ledger = (*GormStorage)(nil)

// NewGormStorage creates a new GORM-backed ledger.
func NewGormStorage(db *gorm.DB) *GormStorage {
	return &GormStorage{db: db}
}

// DB returns the underlying connection.
func (s *GormStorage) DB() *gorm.DB {
	return s.db
}

// IsSQLite reports whether the ledger runs on SQLite.
func (s *GormStorage) IsSQLite() bool {
	return s.db.Dialector.Name() == "sqlite"
}

// Migrate creates the necessary tables.
func (s *GormStorage) Migrate(ctx context.Context) error {
	return s.db.WithContext(ctx).AutoMigrate(&core.HandleRecord{})
}

// RecordPublished inserts the row for a new handle.
func (s *GormStorage) RecordPublished(ctx context.Context, rec *core.HandleRecord) error {
	if err := security.ValidateHandleID(rec.ID); err != nil {
		return err
	}
	if rec.State == "" {
		rec.State = core.StateActive
	}
	return s.db.WithContext(ctx).Create(rec).Error
}

// RecordReleased moves an active row to released.
// Rows that are already released keep their first reason.
func (s *GormStorage) RecordReleased(ctx context.Context, handleID string, reason core.ReleaseReason, at time.Time) error {
	result := s.db.WithContext(ctx).
		Model(&core.HandleRecord{}).
		Where("id = ? AND state = ?", handleID, core.StateActive).
		Updates(map[string]any{
			"state":          core.StateReleased,
			"release_reason": reason,
			"released_at":    at,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return s.exists(ctx, handleID)
	}
	return nil
}

// RecordInvocation bumps the call counters for a handle.
// Error messages are sanitized before storage.
func (s *GormStorage) RecordInvocation(ctx context.Context, handleID string, callErr error, at time.Time) error {
	updates := map[string]any{
		"calls":          gorm.Expr("calls + ?", 1),
		"last_called_at": at,
	}
	if callErr != nil {
		updates["failures"] = gorm.Expr("failures + ?", 1)
		updates["last_error"] = security.SanitizeErrorMessage(callErr.Error())
	}

	result := s.db.WithContext(ctx).
		Model(&core.HandleRecord{}).
		Where("id = ?", handleID).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return core.ErrHandleNotRecorded
	}
	return nil
}

// GetHandle retrieves a ledger row by handle id.
func (s *GormStorage) GetHandle(ctx context.Context, handleID string) (*core.HandleRecord, error) {
	var rec core.HandleRecord
	err := s.db.WithContext(ctx).First(&rec, "id = ?", handleID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, core.ErrHandleNotRecorded
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// GetHandlesByState retrieves rows in the given state, oldest first.
func (s *GormStorage) GetHandlesByState(ctx context.Context, state core.HandleState, limit int) ([]*core.HandleRecord, error) {
	var recs []*core.HandleRecord
	q := s.db.WithContext(ctx).
		Where("state = ?", state).
		Order("created_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&recs).Error
	return recs, err
}

// PurgeReleased deletes rows released before the cutoff.
func (s *GormStorage) PurgeReleased(ctx context.Context, before time.Time) (int64, error) {
	result := s.db.WithContext(ctx).
		Where("state = ? AND released_at < ?", core.StateReleased, before).
		Delete(&core.HandleRecord{})
	return result.RowsAffected, result.Error
}

func (s *GormStorage) exists(ctx context.Context, handleID string) error {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&core.HandleRecord{}).
		Where("id = ?", handleID).
		Count(&count).Error
	if err != nil {
		return err
	}
	if count == 0 {
		return core.ErrHandleNotRecorded
	}
	return nil
}
