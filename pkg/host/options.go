package host

import (
	"log/slog"
	"time"

	"github.com/jdziat/simple-callback-bridge/pkg/core"
	"github.com/jdziat/simple-callback-bridge/pkg/handle"
	"github.com/jdziat/simple-callback-bridge/pkg/metrics"
	"github.com/jdziat/simple-callback-bridge/pkg/schedule"
	"github.com/jdziat/simple-callback-bridge/pkg/serializer"
)

// Option configures a Host.
type Option interface {
	applyHost(*Config)
}

type optionFunc func(*Config)

func (f optionFunc) applyHost(c *Config) { f(c) }

// Config holds host configuration.
type Config struct {
	Table           *handle.Table
	Ledger          core.Ledger
	Logger          *slog.Logger
	Metrics         *metrics.Collector
	Serializer      serializer.Serializer
	SweepSchedule   schedule.Schedule
	TombstoneTTL    time.Duration
	LedgerRetention time.Duration
	LedgerRetry     RetryConfig
}

func defaultConfig() Config {
	return Config{
		Logger:        slog.Default(),
		Serializer:    serializer.Default(),
		SweepSchedule: schedule.Every(30 * time.Second),
		LedgerRetry:   DefaultRetryConfig(),
	}
}

// WithTable routes calls through t instead of a table owned by the host.
func WithTable(t *handle.Table) Option {
	return optionFunc(func(c *Config) {
		c.Table = t
	})
}

// WithLedger records handle lifecycle and usage in l.
func WithLedger(l core.Ledger) Option {
	return optionFunc(func(c *Config) {
		c.Ledger = l
	})
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *Config) {
		if l != nil {
			c.Logger = l
		}
	})
}

// WithMetrics reports to m.
func WithMetrics(m *metrics.Collector) Option {
	return optionFunc(func(c *Config) {
		c.Metrics = m
	})
}

// WithSerializer sets the policy for decoding arguments of wrapped functions
// and encoding their results.
func WithSerializer(s serializer.Serializer) Option {
	return optionFunc(func(c *Config) {
		if s != nil {
			c.Serializer = s
		}
	})
}

// WithSweepSchedule sets when Start runs the orphan sweep.
func WithSweepSchedule(s schedule.Schedule) Option {
	return optionFunc(func(c *Config) {
		if s != nil {
			c.SweepSchedule = s
		}
	})
}

// WithTombstoneTTL sets how long a released handle is remembered as released
// rather than unknown.
func WithTombstoneTTL(d time.Duration) Option {
	return optionFunc(func(c *Config) {
		c.TombstoneTTL = d
	})
}

// WithLedgerRetention makes each sweep purge ledger rows released more than
// d ago. Zero keeps rows forever.
func WithLedgerRetention(d time.Duration) Option {
	return optionFunc(func(c *Config) {
		c.LedgerRetention = d
	})
}

// WithLedgerRetry sets the backoff for ledger writes.
// MaxAttempts below one is treated as one.
func WithLedgerRetry(r RetryConfig) Option {
	return optionFunc(func(c *Config) {
		if r.MaxAttempts < 1 {
			r.MaxAttempts = 1
		}
		c.LedgerRetry = r
	})
}
