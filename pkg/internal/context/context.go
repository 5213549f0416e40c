package context

import (
	"context"
	"time"

	"github.com/jdziat/simple-callback-bridge/pkg/core"
)

// CallContextKey is the key for storing call context in context.Context.
type CallContextKey struct{}

// CallContext describes the boundary call in progress.
type CallContext struct {
	Metadata  core.Metadata
	StartedAt time.Time
}

// GetCallContext retrieves the call context from a context.Context.
func GetCallContext(ctx context.Context) *CallContext {
	if cc, ok := ctx.Value(CallContextKey{}).(*CallContext); ok {
		return cc
	}
	return nil
}

// WithCallContext adds call context to a context.Context.
func WithCallContext(ctx context.Context, cc *CallContext) context.Context {
	return context.WithValue(ctx, CallContextKey{}, cc)
}
