// Package bridge exposes Go functions to an external runtime through opaque
// handles.
//
// This is the main package users should import. It re-exports the public
// types from the pkg/ packages for a clean API surface.
//
// Basic usage:
//
//	// Optional ledger
//	db, _ := gorm.Open(sqlite.Open("bridge.db"), &gorm.Config{})
//	ledger := bridge.NewGormStorage(db)
//	ledger.Migrate(context.Background())
//
//	h := bridge.NewHost(bridge.WithLedger(ledger))
//	defer h.Close()
//	go h.Start(ctx)
//
//	// Publish a function
//	cb, _ := h.Wrap(ctx, func(_ bridge.Ignored, total int) string {
//	    return fmt.Sprintf("total=%d", total)
//	})
//
//	// What the boundary sends back
//	out, _ := h.Call(ctx, cb.Handle(), bridge.InvokeMethod, []string{"null", "42"})
package bridge

import (
	"time"

	"gorm.io/gorm"

	"github.com/jdziat/simple-callback-bridge/pkg/callback"
	"github.com/jdziat/simple-callback-bridge/pkg/core"
	"github.com/jdziat/simple-callback-bridge/pkg/handle"
	"github.com/jdziat/simple-callback-bridge/pkg/host"
	"github.com/jdziat/simple-callback-bridge/pkg/schedule"
	"github.com/jdziat/simple-callback-bridge/pkg/security"
	"github.com/jdziat/simple-callback-bridge/pkg/serializer"
	"github.com/jdziat/simple-callback-bridge/pkg/storage"
)

// Type aliases
type (
	// Callback wraps one function and owns its boundary handle.
	Callback = callback.Callback

	// CallbackOption configures a Callback.
	CallbackOption = callback.Option

	// Host routes boundary calls to published callbacks.
	Host = host.Host

	// HostOption configures a Host.
	HostOption = host.Option

	// RetryConfig holds configuration for ledger write retries.
	RetryConfig = host.RetryConfig

	// Table is the registry of live handles.
	Table = handle.Table

	// Metadata is what the boundary learns about a handle.
	Metadata = core.Metadata

	// Ignored marks a parameter that is never deserialized.
	Ignored = core.Ignored

	// HandleState is the lifecycle state of a handle.
	HandleState = core.HandleState

	// ReleaseReason records which path released a handle.
	ReleaseReason = core.ReleaseReason

	// HandleRecord is the persisted ledger entry for a handle.
	HandleRecord = core.HandleRecord

	// Ledger persists handle lifecycle.
	Ledger = core.Ledger

	// GormStorage implements Ledger using GORM.
	GormStorage = storage.GormStorage

	// Serializer decodes arguments and encodes results.
	Serializer = serializer.Serializer

	// Schedule defines when the next sweep runs.
	Schedule = schedule.Schedule

	// Event is the interface for all host events.
	Event = core.Event

	// HandlePublished is emitted when a handle is published.
	HandlePublished = core.HandlePublished

	// HandleReleased is emitted when a handle is released.
	HandleReleased = core.HandleReleased

	// InvocationCompleted is emitted after a successful call.
	InvocationCompleted = core.InvocationCompleted

	// InvocationFailed is emitted after a failed call.
	InvocationFailed = core.InvocationFailed

	// ArgumentCountError reports a wrong number of wire arguments.
	ArgumentCountError = core.ArgumentCountError

	// DeserializeError reports an argument that could not be decoded.
	DeserializeError = core.DeserializeError

	// PanicError reports a wrapped function that panicked.
	PanicError = core.PanicError
)

// InvokeMethod is the method name every handle answers to.
const InvokeMethod = core.InvokeMethod

// Handle states
const (
	StateActive   = core.StateActive
	StateReleased = core.StateReleased
	StateUnknown  = core.StateUnknown
)

// Release reasons
const (
	ReleaseExplicit  = core.ReleaseExplicit
	ReleaseCollected = core.ReleaseCollected
	ReleaseSwept     = core.ReleaseSwept
	ReleaseShutdown  = core.ReleaseShutdown
)

// Security limits
const (
	MaxArity              = security.MaxArity
	MaxArgumentSize       = security.MaxArgumentSize
	MaxErrorMessageLength = security.MaxErrorMessageLength
)

// Error variables
var (
	ErrNilFunction             = core.ErrNilFunction
	ErrNotFunction             = core.ErrNotFunction
	ErrInvalidShape            = core.ErrInvalidShape
	ErrIgnoredIndexOutOfRange  = core.ErrIgnoredIndexOutOfRange
	ErrTooManyParameters       = core.ErrTooManyParameters
	ErrVariadicFunction        = core.ErrVariadicFunction
	ErrUnsupportedReturnValues = core.ErrUnsupportedReturnValues
	ErrArgumentCount           = core.ErrArgumentCount
	ErrDeserialize             = core.ErrDeserialize
	ErrHandleReleased          = core.ErrHandleReleased
	ErrUnknownHandle           = core.ErrUnknownHandle
	ErrInvalidHandleID         = core.ErrInvalidHandleID
	ErrUnknownMethod           = core.ErrUnknownMethod
	ErrArgumentTooLarge        = core.ErrArgumentTooLarge
	ErrFunctionPanicked        = core.ErrFunctionPanicked
	ErrTableClosed             = core.ErrTableClosed
	ErrHandleNotRecorded       = core.ErrHandleNotRecorded
)

// New wraps fn in a Callback published on the process-wide table.
func New(fn any, opts ...CallbackOption) (*Callback, error) {
	return callback.New(fn, opts...)
}

// Must is like New but panics if fn cannot be wrapped.
func Must(fn any, opts ...CallbackOption) *Callback {
	return callback.Must(fn, opts...)
}

// NewHost creates a Host.
func NewHost(opts ...HostOption) *Host {
	return host.New(opts...)
}

// NewTable creates an empty handle table.
func NewTable() *Table {
	return handle.NewTable()
}

// DefaultTable returns the process-wide handle table.
func DefaultTable() *Table {
	return handle.Default()
}

// NewGormStorage creates a GORM-backed ledger.
func NewGormStorage(db *gorm.DB) *GormStorage {
	return storage.NewGormStorage(db)
}

// Callback options

// IgnoreArgs marks wire argument positions that are never deserialized.
func IgnoreArgs(indices ...int) CallbackOption {
	return callback.IgnoreArgs(indices...)
}

// WithSerializer sets the argument serializer for a Callback.
func WithSerializer(s Serializer) CallbackOption {
	return callback.WithSerializer(s)
}

// OnTable publishes a Callback in t instead of the process-wide table.
func OnTable(t *Table) CallbackOption {
	return callback.WithTable(t)
}

// Host options

// WithLedger records handle lifecycle in l.
func WithLedger(l Ledger) HostOption {
	return host.WithLedger(l)
}

// WithSweepSchedule sets when the host runs the orphan sweep.
func WithSweepSchedule(s Schedule) HostOption {
	return host.WithSweepSchedule(s)
}

// Serializers

// JSON returns the default JSON serializer.
func JSON() Serializer {
	return serializer.Default()
}

// StrictJSON returns a JSON serializer that rejects unknown object fields.
func StrictJSON() Serializer {
	return serializer.NewJSON(serializer.DisallowUnknownFields())
}

// Schedules

// Every returns a schedule that fires at fixed intervals.
func Every(d time.Duration) Schedule {
	return schedule.Every(d)
}

// Cron returns a schedule from a cron expression. Panics if expr is invalid.
func Cron(expr string) Schedule {
	return schedule.Cron(expr)
}

// Security helpers

// ValidateHandleID checks that id has the shape of a published handle.
func ValidateHandleID(id string) error {
	return security.ValidateHandleID(id)
}

// SanitizeErrorMessage truncates and sanitizes an error message for storage.
func SanitizeErrorMessage(msg string) string {
	return security.SanitizeErrorMessage(msg)
}
