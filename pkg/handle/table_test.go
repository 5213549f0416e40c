package handle

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jdziat/simple-callback-bridge/pkg/core"
	"github.com/jdziat/simple-callback-bridge/pkg/security"
)

type stubInvoker struct {
	result any
}

func (s *stubInvoker) Invoke(_ context.Context, _ []string) (any, error) {
	return s.result, nil
}

func publish(t *testing.T, tbl *Table, alive func() bool) string {
	t.Helper()
	id, err := tbl.Publish(&stubInvoker{result: 1}, core.Metadata{Arity: 2, IgnoredIndices: []int{1}}, alive)
	require.NoError(t, err)
	return id
}

// ──────────────────────────────────────────────────────────────────────────────
// Publish / Lookup
// ──────────────────────────────────────────────────────────────────────────────

func TestPublish_AssignsHandleAndMethod(t *testing.T) {
	tbl := NewTable()
	id := publish(t, tbl, nil)

	assert.NoError(t, security.ValidateHandleID(id))

	target, meta, err := tbl.Lookup(id)
	require.NoError(t, err)
	require.NotNil(t, target)
	assert.Equal(t, id, meta.Handle)
	assert.Equal(t, core.InvokeMethod, meta.Method)
	assert.Equal(t, 2, meta.Arity)
	assert.Equal(t, []int{1}, meta.IgnoredIndices)
	assert.Equal(t, core.StateActive, tbl.State(id))
	assert.Equal(t, 1, tbl.Len())
}

func TestPublish_HandlesAreDistinct(t *testing.T) {
	tbl := NewTable()
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := publish(t, tbl, nil)
		assert.False(t, seen[id])
		seen[id] = true
	}
	assert.Equal(t, 100, tbl.Len())
}

func TestLookup_ReturnsCopies(t *testing.T) {
	tbl := NewTable()
	id := publish(t, tbl, nil)

	_, meta, err := tbl.Lookup(id)
	require.NoError(t, err)
	meta.IgnoredIndices[0] = 42

	_, again, err := tbl.Lookup(id)
	require.NoError(t, err)
	assert.Equal(t, []int{1}, again.IgnoredIndices)
}

func TestLookup_UnknownHandle(t *testing.T) {
	tbl := NewTable()

	_, _, err := tbl.Lookup("00000000-0000-0000-0000-000000000000")
	assert.True(t, errors.Is(err, core.ErrUnknownHandle))
	assert.Equal(t, core.StateUnknown, tbl.State("nope"))
}

// ──────────────────────────────────────────────────────────────────────────────
// Release
// ──────────────────────────────────────────────────────────────────────────────

func TestRelease_TransitionsOnce(t *testing.T) {
	tbl := NewTable()
	id := publish(t, tbl, nil)

	assert.True(t, tbl.Release(id, core.ReleaseExplicit))
	assert.False(t, tbl.Release(id, core.ReleaseExplicit))
	assert.False(t, tbl.Release(id, core.ReleaseCollected))

	reason, ok := tbl.ReleaseReason(id)
	require.True(t, ok)
	assert.Equal(t, core.ReleaseExplicit, reason)

	_, _, err := tbl.Lookup(id)
	assert.True(t, errors.Is(err, core.ErrHandleReleased))
	assert.Equal(t, core.StateReleased, tbl.State(id))
	assert.Equal(t, 0, tbl.Len())
}

func TestRelease_UnknownIsNoop(t *testing.T) {
	tbl := NewTable()
	assert.False(t, tbl.Release("missing", core.ReleaseExplicit))
}

func TestRelease_ConcurrentReleaseFiresOnce(t *testing.T) {
	tbl := NewTable()
	id := publish(t, tbl, nil)

	var fired int32
	tbl.OnRelease(func(core.Metadata, core.ReleaseReason) {
		atomic.AddInt32(&fired, 1)
	})

	var wins int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			reason := core.ReleaseExplicit
			if i%2 == 0 {
				reason = core.ReleaseCollected
			}
			if tbl.Release(id, reason) {
				atomic.AddInt32(&wins, 1)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins)
	assert.Equal(t, int32(1), fired)
}

func TestOnRelease_ReceivesMetadataAndReason(t *testing.T) {
	tbl := NewTable()
	id := publish(t, tbl, nil)

	var got core.Metadata
	var gotReason core.ReleaseReason
	unsubscribe := tbl.OnRelease(func(meta core.Metadata, reason core.ReleaseReason) {
		got, gotReason = meta, reason
	})
	defer unsubscribe()

	tbl.Release(id, core.ReleaseCollected)

	assert.Equal(t, id, got.Handle)
	assert.Equal(t, core.ReleaseCollected, gotReason)
}

func TestOnRelease_Unsubscribe(t *testing.T) {
	tbl := NewTable()

	var fired int32
	unsubscribe := tbl.OnRelease(func(core.Metadata, core.ReleaseReason) {
		atomic.AddInt32(&fired, 1)
	})

	tbl.Release(publish(t, tbl, nil), core.ReleaseExplicit)
	unsubscribe()
	tbl.Release(publish(t, tbl, nil), core.ReleaseExplicit)

	assert.Equal(t, int32(1), fired)
}

func TestOnRelease_ObserverMayUseTable(t *testing.T) {
	tbl := NewTable()
	id := publish(t, tbl, nil)

	var state core.HandleState
	tbl.OnRelease(func(meta core.Metadata, _ core.ReleaseReason) {
		state = tbl.State(meta.Handle)
	})

	tbl.Release(id, core.ReleaseExplicit)
	assert.Equal(t, core.StateReleased, state)
}

// ──────────────────────────────────────────────────────────────────────────────
// Sweep
// ──────────────────────────────────────────────────────────────────────────────

func TestSweep_ReleasesOrphans(t *testing.T) {
	tbl := NewTable()

	var ownerGone atomic.Bool
	orphan := publish(t, tbl, func() bool { return !ownerGone.Load() })
	kept := publish(t, tbl, func() bool { return true })
	untracked := publish(t, tbl, nil)

	assert.Empty(t, tbl.Sweep())

	ownerGone.Store(true)
	swept := tbl.Sweep()

	assert.Equal(t, []string{orphan}, swept)
	reason, ok := tbl.ReleaseReason(orphan)
	require.True(t, ok)
	assert.Equal(t, core.ReleaseSwept, reason)
	assert.Equal(t, core.StateActive, tbl.State(kept))
	assert.Equal(t, core.StateActive, tbl.State(untracked))
}

func TestSweep_SkipsAlreadyReleased(t *testing.T) {
	tbl := NewTable()
	id := publish(t, tbl, func() bool { return false })

	require.True(t, tbl.Release(id, core.ReleaseExplicit))
	assert.Empty(t, tbl.Sweep())

	reason, _ := tbl.ReleaseReason(id)
	assert.Equal(t, core.ReleaseExplicit, reason)
}

func TestSweep_PrunesOldTombstones(t *testing.T) {
	tbl := NewTable()
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	tbl.now = func() time.Time { return now }
	tbl.SetTombstoneTTL(time.Minute)

	id := publish(t, tbl, nil)
	tbl.Release(id, core.ReleaseExplicit)

	now = now.Add(30 * time.Second)
	tbl.Sweep()
	assert.Equal(t, core.StateReleased, tbl.State(id))

	now = now.Add(time.Minute)
	tbl.Sweep()
	assert.Equal(t, core.StateUnknown, tbl.State(id))

	_, _, err := tbl.Lookup(id)
	assert.True(t, errors.Is(err, core.ErrUnknownHandle))
}

// ──────────────────────────────────────────────────────────────────────────────
// Close
// ──────────────────────────────────────────────────────────────────────────────

func TestClose_ReleasesEverything(t *testing.T) {
	tbl := NewTable()
	a := publish(t, tbl, nil)
	b := publish(t, tbl, nil)

	var reasons []core.ReleaseReason
	var mu sync.Mutex
	tbl.OnRelease(func(_ core.Metadata, reason core.ReleaseReason) {
		mu.Lock()
		reasons = append(reasons, reason)
		mu.Unlock()
	})

	require.NoError(t, tbl.Close())

	assert.Equal(t, 0, tbl.Len())
	assert.Equal(t, core.StateReleased, tbl.State(a))
	assert.Equal(t, core.StateReleased, tbl.State(b))
	assert.Equal(t, []core.ReleaseReason{core.ReleaseShutdown, core.ReleaseShutdown}, reasons)

	_, err := tbl.Publish(&stubInvoker{}, core.Metadata{}, nil)
	assert.True(t, errors.Is(err, core.ErrTableClosed))
}

func TestActive_ListsOnlyActive(t *testing.T) {
	tbl := NewTable()
	a := publish(t, tbl, nil)
	b := publish(t, tbl, nil)
	tbl.Release(a, core.ReleaseExplicit)

	active := tbl.Active()
	require.Len(t, active, 1)
	assert.Equal(t, b, active[0].Handle)
}

func TestDefault_IsShared(t *testing.T) {
	assert.Same(t, Default(), Default())
}
