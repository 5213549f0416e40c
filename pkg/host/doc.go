// Package host implements the host side of the callback boundary.
//
// A Host owns a handle table and routes boundary calls of the form
// (handle id, method name, encoded arguments) to the wrapped functions.
// It optionally records handle lifecycle in a core.Ledger, reports
// Prometheus metrics, broadcasts events and runs the orphan sweep on a
// schedule.
//
// Example:
//
//	h := host.New(host.WithLedger(ledger), host.WithLogger(logger))
//	defer h.Close()
//	go h.Start(ctx)
//
//	cb, err := h.Wrap(ctx, func(name string, count int) string {
//	    return strings.Repeat(name, count)
//	})
//	out, err := h.Call(ctx, cb.Handle(), core.InvokeMethod, []string{`"ab"`, `3`})
package host
