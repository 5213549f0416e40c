package storage

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// ErrInvalidPoolConfig is returned when a ledger pool setting is out of range.
var ErrInvalidPoolConfig = errors.New("bridge: invalid ledger pool config")

// PoolConfig sizes the connection pool behind the ledger. The host writes
// ledger rows from a single goroutine, and queries come from diagnostics,
// so the ledger never needs a large pool. Zero durations mean no limit.
type PoolConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// DefaultPoolConfig is the starting point for server databases.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		MaxOpenConns:    8,
		MaxIdleConns:    4,
		ConnMaxLifetime: 5 * time.Minute,
		ConnMaxIdleTime: time.Minute,
	}
}

// SQLitePoolConfig is the starting point for SQLite ledgers. Every
// connection to ":memory:" opens a separate database, so the pool holds
// exactly one connection and never recycles it.
func SQLitePoolConfig() PoolConfig {
	return PoolConfig{MaxOpenConns: 1, MaxIdleConns: 1}
}

func (c PoolConfig) validate() error {
	switch {
	case c.MaxOpenConns < 0, c.MaxIdleConns < 0:
		return fmt.Errorf("%w: negative connection count", ErrInvalidPoolConfig)
	case c.ConnMaxLifetime < 0, c.ConnMaxIdleTime < 0:
		return fmt.Errorf("%w: negative connection lifetime", ErrInvalidPoolConfig)
	case c.MaxOpenConns > 0 && c.MaxIdleConns > c.MaxOpenConns:
		return fmt.Errorf("%w: %d idle connections exceed %d open", ErrInvalidPoolConfig, c.MaxIdleConns, c.MaxOpenConns)
	}
	return nil
}

// PoolOption adjusts a PoolConfig.
type PoolOption func(*PoolConfig)

// WithPoolConfig replaces the whole configuration.
func WithPoolConfig(cfg PoolConfig) PoolOption {
	return func(c *PoolConfig) { *c = cfg }
}

// MaxOpenConns caps open connections; 0 removes the cap. Idle connections
// are lowered to match when they would exceed it.
func MaxOpenConns(n int) PoolOption {
	return func(c *PoolConfig) {
		c.MaxOpenConns = n
		if n > 0 && c.MaxIdleConns > n {
			c.MaxIdleConns = n
		}
	}
}

// MaxIdleConns caps idle connections.
func MaxIdleConns(n int) PoolOption {
	return func(c *PoolConfig) { c.MaxIdleConns = n }
}

// ConnLifetime bounds how long a connection is reused and how long it may sit idle.
func ConnLifetime(maxLifetime, maxIdle time.Duration) PoolOption {
	return func(c *PoolConfig) {
		c.ConnMaxLifetime = maxLifetime
		c.ConnMaxIdleTime = maxIdle
	}
}

// ConfigurePool applies DefaultPoolConfig plus opts to db.
func ConfigurePool(db *gorm.DB, opts ...PoolOption) error {
	return configurePool(db, DefaultPoolConfig(), opts)
}

func configurePool(db *gorm.DB, cfg PoolConfig, opts []PoolOption) error {
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := cfg.validate(); err != nil {
		return err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("bridge: ledger connection: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	return nil
}

// NewGormStorageWithPool creates a ledger and sizes its pool. SQLite
// databases start from SQLitePoolConfig, everything else from
// DefaultPoolConfig; opts are applied on top.
//
//	ledger, err := storage.NewGormStorageWithPool(db, storage.MaxOpenConns(16))
func NewGormStorageWithPool(db *gorm.DB, opts ...PoolOption) (*GormStorage, error) {
	s := NewGormStorage(db)
	base := DefaultPoolConfig()
	if s.IsSQLite() {
		base = SQLitePoolConfig()
	}
	if err := configurePool(db, base, opts); err != nil {
		return nil, err
	}
	return s, nil
}
