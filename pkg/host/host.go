package host

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jdziat/simple-callback-bridge/pkg/callback"
	"github.com/jdziat/simple-callback-bridge/pkg/core"
	"github.com/jdziat/simple-callback-bridge/pkg/handle"
	intctx "github.com/jdziat/simple-callback-bridge/pkg/internal/context"
	"github.com/jdziat/simple-callback-bridge/pkg/metrics"
	"github.com/jdziat/simple-callback-bridge/pkg/schedule"
	"github.com/jdziat/simple-callback-bridge/pkg/security"
	"github.com/jdziat/simple-callback-bridge/pkg/serializer"
)

// Host routes boundary calls to published callbacks.
type Host struct {
	table      *handle.Table
	ownsTable  bool
	logger     *slog.Logger
	metrics    *metrics.Collector
	serializer serializer.Serializer
	sweep      schedule.Schedule
	retention  time.Duration
	ledger     core.Ledger
	writer     *ledgerWriter

	mu        sync.RWMutex
	announced map[string]struct{}
	eventSubs []chan core.Event

	stopObserving func()
	closeOnce     sync.Once
}

// New creates a Host.
func New(opts ...Option) *Host {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt.applyHost(&cfg)
	}

	h := &Host{
		table:      cfg.Table,
		logger:     cfg.Logger,
		metrics:    cfg.Metrics,
		serializer: cfg.Serializer,
		sweep:      cfg.SweepSchedule,
		retention:  cfg.LedgerRetention,
		ledger:     cfg.Ledger,
		announced:  make(map[string]struct{}),
	}
	if h.table == nil {
		h.table = handle.NewTable()
		h.ownsTable = true
	}
	if cfg.TombstoneTTL > 0 {
		h.table.SetTombstoneTTL(cfg.TombstoneTTL)
	}
	if h.ledger != nil {
		h.writer = newLedgerWriter(h.ledger, cfg.LedgerRetry, h.logger)
	}
	h.stopObserving = h.table.OnRelease(h.onRelease)
	return h
}

// Table returns the table this host routes through. Callbacks created with
// callback.WithTable(h.Table()) can be announced with Publish.
func (h *Host) Table() *handle.Table {
	return h.table
}

// Wrap creates a callback on the host's table and publishes it.
// Serializer and ignore options apply as for callback.New.
func (h *Host) Wrap(ctx context.Context, fn any, opts ...callback.Option) (*callback.Callback, error) {
	all := make([]callback.Option, 0, len(opts)+2)
	all = append(all, callback.WithSerializer(h.serializer))
	all = append(all, opts...)
	all = append(all, callback.WithTable(h.table))

	cb, err := callback.New(fn, all...)
	if err != nil {
		return nil, err
	}
	if err := h.Publish(ctx, cb); err != nil {
		_ = cb.Release()
		return nil, err
	}
	return cb, nil
}

// Publish announces an existing callback: the ledger row is written and a
// HandlePublished event is emitted. The callback must live in the host's
// table. Publishing the same callback twice is a no-op.
func (h *Host) Publish(ctx context.Context, cb *callback.Callback) error {
	meta, err := h.lookupMetadata(cb.Handle())
	if err != nil {
		return err
	}

	h.mu.Lock()
	if _, ok := h.announced[meta.Handle]; ok {
		h.mu.Unlock()
		return nil
	}
	h.announced[meta.Handle] = struct{}{}
	h.mu.Unlock()

	if h.writer != nil {
		rec, err := core.NewHandleRecord(meta)
		if err != nil {
			return fmt.Errorf("bridge: build ledger record: %w", err)
		}
		h.writer.submit(ledgerOp{
			name:   "publish",
			handle: meta.Handle,
			fn: func(ctx context.Context, l core.Ledger) error {
				return l.RecordPublished(ctx, rec)
			},
		})
	}
	if h.metrics != nil {
		h.metrics.Published()
		h.metrics.SetActive(h.table.Len())
	}
	h.logger.Info("handle published", "handle", meta.Handle, "shape", meta.Shape, "arity", meta.Arity)
	h.Emit(&core.HandlePublished{Metadata: meta, Timestamp: time.Now()})
	return nil
}

// Call invokes the handle's method with encoded arguments and returns the
// encoded result, or nil for functions that return no value.
func (h *Host) Call(ctx context.Context, handleID, method string, args []string) (out json.RawMessage, err error) {
	start := time.Now()
	routed := false
	defer func() {
		h.finishCall(handleID, routed, err, time.Since(start))
	}()

	if err := security.ValidateHandleID(handleID); err != nil {
		return nil, err
	}
	if method != core.InvokeMethod {
		return nil, fmt.Errorf("%w: %q", core.ErrUnknownMethod, method)
	}
	if err := security.ValidateArguments(args); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	target, meta, err := h.table.Lookup(handleID)
	if err != nil {
		return nil, err
	}
	routed = true

	ctx = intctx.WithCallContext(ctx, &intctx.CallContext{Metadata: meta, StartedAt: start})
	value, err := invoke(ctx, target, args)
	if err != nil {
		return nil, err
	}
	if !meta.ReturnsValue {
		return nil, nil
	}

	out, err = h.serializer.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("bridge: encode result: %w", err)
	}
	return out, nil
}

// invoke runs the target, turning a panic into a *core.PanicError so one bad
// function cannot take down the boundary.
func invoke(ctx context.Context, target handle.Invoker, args []string) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = &core.PanicError{Value: r}
		}
	}()
	return target.Invoke(ctx, args)
}

func (h *Host) finishCall(handleID string, routed bool, err error, d time.Duration) {
	if h.metrics != nil {
		h.metrics.Invoked(err, d)
	}

	now := time.Now()
	if err != nil {
		h.logger.Debug("invocation failed", "handle", handleID, "error", err, "duration", d)
		h.Emit(&core.InvocationFailed{Handle: handleID, Error: err, Duration: d, Timestamp: now})
	} else {
		h.Emit(&core.InvocationCompleted{Handle: handleID, Duration: d, Timestamp: now})
	}

	if routed && h.writer != nil {
		h.writer.submit(ledgerOp{
			name:   "invocation",
			handle: handleID,
			lossy:  true,
			fn: func(ctx context.Context, l core.Ledger) error {
				return l.RecordInvocation(ctx, handleID, err, now)
			},
		})
	}
}

// Metadata returns what the boundary knows about an active handle.
func (h *Host) Metadata(handleID string) (core.Metadata, error) {
	if err := security.ValidateHandleID(handleID); err != nil {
		return core.Metadata{}, err
	}
	return h.lookupMetadata(handleID)
}

func (h *Host) lookupMetadata(handleID string) (core.Metadata, error) {
	_, meta, err := h.table.Lookup(handleID)
	return meta, err
}

// Release releases a handle on behalf of the boundary. Releasing a handle
// that is already released is not an error; an id the host has never seen is.
func (h *Host) Release(ctx context.Context, handleID string) error {
	if err := security.ValidateHandleID(handleID); err != nil {
		return err
	}
	if h.table.State(handleID) == core.StateUnknown {
		return core.ErrUnknownHandle
	}
	h.table.Release(handleID, core.ReleaseExplicit)
	return nil
}

// Handles returns the metadata of every active handle.
func (h *Host) Handles() []core.Metadata {
	return h.table.Active()
}

// Len returns the number of active handles.
func (h *Host) Len() int {
	return h.table.Len()
}

func (h *Host) onRelease(meta core.Metadata, reason core.ReleaseReason) {
	h.mu.Lock()
	delete(h.announced, meta.Handle)
	h.mu.Unlock()

	now := time.Now()
	if h.writer != nil {
		h.writer.submit(ledgerOp{
			name:   "release",
			handle: meta.Handle,
			fn: func(ctx context.Context, l core.Ledger) error {
				return l.RecordReleased(ctx, meta.Handle, reason, now)
			},
		})
	}
	if h.metrics != nil {
		h.metrics.Released(reason)
		h.metrics.SetActive(h.table.Len())
	}
	h.logger.Info("handle released", "handle", meta.Handle, "reason", reason)
	h.Emit(&core.HandleReleased{Handle: meta.Handle, Reason: reason, Timestamp: now})
}

// Sweep releases orphaned handles and, when a ledger retention is set,
// purges old released rows. It returns the ids released by this sweep.
func (h *Host) Sweep(ctx context.Context) []string {
	swept := h.table.Sweep()
	if h.metrics != nil {
		h.metrics.Swept()
	}
	if len(swept) > 0 {
		h.logger.Info("swept orphaned handles", "count", len(swept))
	}

	if h.ledger != nil && h.retention > 0 {
		n, err := h.ledger.PurgeReleased(ctx, time.Now().Add(-h.retention))
		if err != nil {
			h.logger.Error("failed to purge released handles", "error", err)
		} else if n > 0 {
			h.logger.Debug("purged released handles", "count", n)
		}
	}
	return swept
}

// Start runs the sweep on the configured schedule. Blocks until ctx is cancelled.
func (h *Host) Start(ctx context.Context) error {
	last := time.Now()
	for {
		timer := time.NewTimer(time.Until(h.sweep.Next(last)))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
			last = time.Now()
			h.Sweep(ctx)
		}
	}
}

// Close releases every handle in a host-owned table, stops observing the
// table and waits for pending ledger writes.
func (h *Host) Close() error {
	h.closeOnce.Do(func() {
		if h.ownsTable {
			_ = h.table.Close()
		}
		h.stopObserving()
		if h.writer != nil {
			h.writer.close()
		}
	})
	return nil
}

// Events returns a channel for receiving host events.
// The caller must call Unsubscribe when done to prevent resource leaks.
func (h *Host) Events() <-chan core.Event {
	ch := make(chan core.Event, 100)
	h.mu.Lock()
	h.eventSubs = append(h.eventSubs, ch)
	h.mu.Unlock()
	return ch
}

// Unsubscribe removes a subscriber channel created by Events().
// The channel is not closed. After Unsubscribe returns, no further events
// are sent to it.
func (h *Host) Unsubscribe(ch <-chan core.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i, sub := range h.eventSubs {
		if sub == ch {
			h.eventSubs = append(h.eventSubs[:i], h.eventSubs[i+1:]...)
			return
		}
	}
}

// Emit sends an event to all subscribers, dropping it for any subscriber
// whose buffer is full.
func (h *Host) Emit(e core.Event) {
	h.mu.RLock()
	subs := make([]chan core.Event, len(h.eventSubs))
	copy(subs, h.eventSubs)
	h.mu.RUnlock()

	for _, ch := range subs {
		select {
		case ch <- e:
		default:
		}
	}
}
