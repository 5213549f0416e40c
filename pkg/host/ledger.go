package host

import (
	"context"
	"log/slog"
	"sync"

	"github.com/jdziat/simple-callback-bridge/pkg/core"
)

// maxInvocationBacklog caps queued invocation rows. Lifecycle rows are
// never dropped.
const maxInvocationBacklog = 1024

type ledgerOp struct {
	name   string
	handle string
	// lossy ops are dropped once the backlog reaches maxInvocationBacklog.
	lossy  bool
	fn     func(ctx context.Context, l core.Ledger) error
}

// ledgerWriter applies ledger writes in submission order on one goroutine.
// Table observers run on arbitrary goroutines, including the runtime's
// cleanup goroutine, so submit never blocks on the database.
type ledgerWriter struct {
	ledger core.Ledger
	retry  RetryConfig
	logger *slog.Logger

	mu      sync.Mutex
	closed  bool
	queue   []ledgerOp
	dropped int64
	wake    chan struct{}
	done    chan struct{}
}

func newLedgerWriter(l core.Ledger, retry RetryConfig, logger *slog.Logger) *ledgerWriter {
	w := &ledgerWriter{
		ledger: l,
		retry:  retry,
		logger: logger,
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	go w.run()
	return w
}

func (w *ledgerWriter) submit(op ledgerOp) {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		w.logger.Debug("ledger closed, dropping write", "op", op.name, "handle", op.handle)
		return
	}
	if op.lossy && len(w.queue) >= maxInvocationBacklog {
		w.dropped++
		dropped := w.dropped
		w.mu.Unlock()
		w.logger.Warn("ledger backlog full, dropping write", "op", op.name, "handle", op.handle, "dropped", dropped)
		return
	}
	w.queue = append(w.queue, op)
	w.mu.Unlock()

	select {
	case w.wake <- struct{}{}:
	default:
	}
}

// next pops the oldest queued op. ok is false once the writer is closed
// and drained.
func (w *ledgerWriter) next() (op ledgerOp, ok bool) {
	for {
		w.mu.Lock()
		if len(w.queue) > 0 {
			op = w.queue[0]
			w.queue[0] = ledgerOp{}
			w.queue = w.queue[1:]
			w.mu.Unlock()
			return op, true
		}
		closed := w.closed
		w.mu.Unlock()
		if closed {
			return ledgerOp{}, false
		}
		<-w.wake
	}
}

func (w *ledgerWriter) run() {
	defer close(w.done)
	ctx := context.Background()
	for {
		op, ok := w.next()
		if !ok {
			return
		}
		err := retryWithBackoff(ctx, w.retry, func() error {
			return op.fn(ctx, w.ledger)
		})
		if err != nil {
			w.logger.Error("ledger write failed", "op", op.name, "handle", op.handle, "error", err)
		}
	}
}

// droppedWrites reports how many invocation rows were discarded under backlog.
func (w *ledgerWriter) droppedWrites() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.dropped
}

// close stops accepting writes and waits for the queued ones.
func (w *ledgerWriter) close() {
	w.mu.Lock()
	w.closed = true
	w.mu.Unlock()

	select {
	case w.wake <- struct{}{}:
	default:
	}
	<-w.done
}
