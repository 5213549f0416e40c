package callback

import (
	"context"
	"fmt"
	"runtime"
	"weak"

	"github.com/jdziat/simple-callback-bridge/pkg/core"
	"github.com/jdziat/simple-callback-bridge/pkg/handle"
	"github.com/jdziat/simple-callback-bridge/pkg/internal/handler"
)

// Callback wraps one function and owns its boundary handle.
type Callback struct {
	id    string
	meta  core.Metadata
	h     *handler.Handler
	table *handle.Table
}

// New wraps fn and publishes a handle for it.
// fn may take a leading context.Context and must return (), T, error or (T, error).
func New(fn any, opts ...Option) (*Callback, error) {
	o := options{table: handle.Default()}
	for _, opt := range opts {
		opt.apply(&o)
	}

	h, err := handler.NewHandler(fn, handler.Config{
		Ignore:     o.ignore,
		Serializer: o.serializer,
	})
	if err != nil {
		return nil, err
	}

	cb := &Callback{h: h, table: o.table}

	// The table holds the handler and a weak liveness check, never cb itself, so an
	// abandoned Callback can still be collected.
	wp := weak.Make(cb)
	id, err := o.table.Publish(h, core.Metadata{
		Shape:          h.Shape(),
		Arity:          h.Arity(),
		ReturnsValue:   h.ReturnsValue(),
		IgnoredIndices: h.IgnoredIndices(),
	}, func() bool { return wp.Value() != nil })
	if err != nil {
		return nil, err
	}

	_, meta, err := o.table.Lookup(id)
	if err != nil {
		return nil, err
	}
	cb.id = id
	cb.meta = meta

	table := o.table
	runtime.AddCleanup(cb, func(id string) {
		table.Release(id, core.ReleaseCollected)
	}, id)

	return cb, nil
}

// Must is like New but panics if fn cannot be wrapped.
func Must(fn any, opts ...Option) *Callback {
	cb, err := New(fn, opts...)
	if err != nil {
		panic(fmt.Sprintf("callback: %v", err))
	}
	return cb
}

// Invoke decodes rawArgs and calls the wrapped function.
// It fails with core.ErrHandleReleased once the handle has been released.
func (c *Callback) Invoke(ctx context.Context, rawArgs []string) (any, error) {
	target, _, err := c.table.Lookup(c.id)
	if err != nil {
		if c.table.State(c.id) != core.StateActive {
			// A pruned tombstone still belongs to this instance.
			return nil, core.ErrHandleReleased
		}
		return nil, err
	}
	result, err := target.Invoke(ctx, rawArgs)
	runtime.KeepAlive(c)
	return result, err
}

// Handle returns the boundary handle id.
func (c *Callback) Handle() string {
	return c.id
}

// Metadata returns what the boundary is told about this callback.
func (c *Callback) Metadata() core.Metadata {
	return c.meta.Clone()
}

// Arity returns the number of wire arguments Invoke expects.
func (c *Callback) Arity() int {
	return c.h.Arity()
}

// ReturnsValue reports whether Invoke produces a value.
func (c *Callback) ReturnsValue() bool {
	return c.h.ReturnsValue()
}

// IgnoredIndices returns the wire positions that are never deserialized.
func (c *Callback) IgnoredIndices() []int {
	return c.h.IgnoredIndices()
}

// State returns the handle's lifecycle state.
func (c *Callback) State() core.HandleState {
	if c.table.State(c.id) == core.StateActive {
		return core.StateActive
	}
	return core.StateReleased
}

// Release releases the handle. Calling it more than once is a no-op.
func (c *Callback) Release() error {
	c.table.Release(c.id, core.ReleaseExplicit)
	return nil
}
