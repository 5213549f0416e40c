// Package callctx provides public access to the boundary call in progress.
//
// A wrapped function that declares a leading context.Context receives the
// host's call context, which carries the handle being invoked.
package callctx

import (
	"context"
	"time"

	"github.com/jdziat/simple-callback-bridge/pkg/core"
	intctx "github.com/jdziat/simple-callback-bridge/pkg/internal/context"
)

// HandleFromContext returns the metadata of the handle being invoked.
// ok is false outside a host call.
func HandleFromContext(ctx context.Context) (meta core.Metadata, ok bool) {
	cc := intctx.GetCallContext(ctx)
	if cc == nil {
		return core.Metadata{}, false
	}
	return cc.Metadata.Clone(), true
}

// HandleIDFromContext returns the id of the handle being invoked, or an
// empty string outside a host call.
func HandleIDFromContext(ctx context.Context) string {
	cc := intctx.GetCallContext(ctx)
	if cc == nil {
		return ""
	}
	return cc.Metadata.Handle
}

// Elapsed returns how long the current call has been running.
func Elapsed(ctx context.Context) time.Duration {
	cc := intctx.GetCallContext(ctx)
	if cc == nil {
		return 0
	}
	return time.Since(cc.StartedAt)
}
