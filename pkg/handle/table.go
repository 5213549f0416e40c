package handle

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jdziat/simple-callback-bridge/pkg/core"
)

// DefaultTombstoneTTL is how long a released handle is remembered as released.
const DefaultTombstoneTTL = 10 * time.Minute

// Invoker is the callable target a handle routes to.
type Invoker interface {
	Invoke(ctx context.Context, rawArgs []string) (any, error)
}

// ReleaseFunc observes a handle transitioning to Released.
type ReleaseFunc func(meta core.Metadata, reason core.ReleaseReason)

type entry struct {
	target Invoker
	meta   core.Metadata
	alive  func() bool
}

type tombstone struct {
	reason core.ReleaseReason
	at     time.Time
}

// Table maps handle ids to live targets.
type Table struct {
	mu        sync.RWMutex
	active    map[string]*entry
	released  map[string]tombstone
	ttl       time.Duration
	closed    bool
	observers map[uint64]ReleaseFunc
	nextObsID uint64
	now       func() time.Time
}

// NewTable creates an empty table.
func NewTable() *Table {
	return &Table{
		active:    make(map[string]*entry),
		released:  make(map[string]tombstone),
		ttl:       DefaultTombstoneTTL,
		observers: make(map[uint64]ReleaseFunc),
		now:       time.Now,
	}
}

var defaultTable = NewTable()

// Default returns the process-wide table.
func Default() *Table {
	return defaultTable
}

// SetTombstoneTTL changes how long released handles are remembered.
func (t *Table) SetTombstoneTTL(d time.Duration) {
	t.mu.Lock()
	t.ttl = d
	t.mu.Unlock()
}

// Publish stores target under a fresh handle id and returns the id.
// alive reports whether the owner of target is still reachable; nil means
// the owner is never considered gone by Sweep.
func (t *Table) Publish(target Invoker, meta core.Metadata, alive func() bool) (string, error) {
	id := uuid.New().String()
	meta = meta.Clone()
	meta.Handle = id
	meta.Method = core.InvokeMethod

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return "", core.ErrTableClosed
	}
	t.active[id] = &entry{target: target, meta: meta, alive: alive}
	return id, nil
}

// Lookup returns the target and metadata for an active handle.
func (t *Table) Lookup(id string) (Invoker, core.Metadata, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if e, ok := t.active[id]; ok {
		return e.target, e.meta.Clone(), nil
	}
	if _, ok := t.released[id]; ok {
		return nil, core.Metadata{}, core.ErrHandleReleased
	}
	return nil, core.Metadata{}, core.ErrUnknownHandle
}

// State reports the lifecycle state of id as far as the table remembers.
func (t *Table) State(id string) core.HandleState {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if _, ok := t.active[id]; ok {
		return core.StateActive
	}
	if _, ok := t.released[id]; ok {
		return core.StateReleased
	}
	return core.StateUnknown
}

// Release moves id to Released. It reports whether this call performed the
// transition; releasing an already released or unknown id is a no-op.
func (t *Table) Release(id string, reason core.ReleaseReason) bool {
	t.mu.Lock()
	e, ok := t.active[id]
	if !ok {
		t.mu.Unlock()
		return false
	}
	delete(t.active, id)
	t.released[id] = tombstone{reason: reason, at: t.now()}
	obs := t.snapshotObservers()
	t.mu.Unlock()

	for _, fn := range obs {
		fn(e.meta.Clone(), reason)
	}
	return true
}

// ReleaseReason returns why a tombstoned handle was released.
func (t *Table) ReleaseReason(id string) (core.ReleaseReason, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	ts, ok := t.released[id]
	return ts.reason, ok
}

// Sweep force-releases handles whose owner is gone and forgets tombstones
// older than the TTL. It returns the ids it released.
func (t *Table) Sweep() []string {
	t.mu.RLock()
	var orphans []string
	for id, e := range t.active {
		if e.alive != nil && !e.alive() {
			orphans = append(orphans, id)
		}
	}
	t.mu.RUnlock()

	var swept []string
	for _, id := range orphans {
		if t.Release(id, core.ReleaseSwept) {
			swept = append(swept, id)
		}
	}

	t.mu.Lock()
	horizon := t.now().Add(-t.ttl)
	for id, ts := range t.released {
		if ts.at.Before(horizon) {
			delete(t.released, id)
		}
	}
	t.mu.Unlock()

	return swept
}

// OnRelease registers fn to run after every release. Observers run outside
// the table lock, on the goroutine that released the handle. The returned
// func removes the observer.
func (t *Table) OnRelease(fn ReleaseFunc) func() {
	t.mu.Lock()
	id := t.nextObsID
	t.nextObsID++
	t.observers[id] = fn
	t.mu.Unlock()

	return func() {
		t.mu.Lock()
		delete(t.observers, id)
		t.mu.Unlock()
	}
}

// Len returns the number of active handles.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.active)
}

// Active returns metadata for every active handle.
func (t *Table) Active() []core.Metadata {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]core.Metadata, 0, len(t.active))
	for _, e := range t.active {
		out = append(out, e.meta.Clone())
	}
	return out
}

// Close releases every active handle and stops accepting new ones.
func (t *Table) Close() error {
	t.mu.Lock()
	t.closed = true
	ids := make([]string, 0, len(t.active))
	for id := range t.active {
		ids = append(ids, id)
	}
	t.mu.Unlock()

	for _, id := range ids {
		t.Release(id, core.ReleaseShutdown)
	}
	return nil
}

func (t *Table) snapshotObservers() []ReleaseFunc {
	obs := make([]ReleaseFunc, 0, len(t.observers))
	for _, fn := range t.observers {
		obs = append(obs, fn)
	}
	return obs
}
