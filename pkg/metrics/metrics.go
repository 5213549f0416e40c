package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jdziat/simple-callback-bridge/pkg/core"
)

const namespace = "bridge"

// Invocation results used as the "result" label.
const (
	ResultOK            = "ok"
	ResultArgumentCount = "argument_count"
	ResultDeserialize   = "deserialize"
	ResultReleased      = "released"
	ResultUnknown       = "unknown_handle"
	ResultRejected      = "rejected"
	ResultPanic         = "panic"
	ResultCanceled      = "canceled"
	ResultError         = "error"
)

// Collector records handle and invocation metrics.
type Collector struct {
	invocations *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	published   prometheus.Counter
	releases    *prometheus.CounterVec
	active      prometheus.Gauge
	swept       prometheus.Counter
}

// NewCollector creates a Collector and registers it with reg.
// A nil reg leaves the metrics unregistered.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		invocations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "invocation",
				Name:      "total",
				Help:      "Boundary invocations by result.",
			},
			[]string{"result"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "invocation",
				Name:      "duration_seconds",
				Help:      "Boundary invocation duration in seconds.",
				Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
			},
			[]string{"result"},
		),
		published: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "handle",
			Name:      "published_total",
			Help:      "Handles published.",
		}),
		releases: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "handle",
				Name:      "released_total",
				Help:      "Handles released by reason.",
			},
			[]string{"reason"},
		),
		active: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "handle",
			Name:      "active",
			Help:      "Handles currently published.",
		}),
		swept: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sweep",
			Name:      "runs_total",
			Help:      "Orphan sweeps run.",
		}),
	}
	if reg != nil {
		reg.MustRegister(c.invocations, c.duration, c.published, c.releases, c.active, c.swept)
	}
	return c
}

// Published records a new handle.
func (c *Collector) Published() {
	c.published.Inc()
}

// Released records a handle leaving the table.
func (c *Collector) Released(reason core.ReleaseReason) {
	c.releases.WithLabelValues(string(reason)).Inc()
}

// SetActive sets the number of handles currently published.
func (c *Collector) SetActive(n int) {
	c.active.Set(float64(n))
}

// Swept records one sweep run.
func (c *Collector) Swept() {
	c.swept.Inc()
}

// Invoked records one boundary call and its outcome.
func (c *Collector) Invoked(err error, d time.Duration) {
	result := Result(err)
	c.invocations.WithLabelValues(result).Inc()
	c.duration.WithLabelValues(result).Observe(d.Seconds())
}

// Result maps an invocation error onto a result label.
func Result(err error) string {
	switch {
	case err == nil:
		return ResultOK
	case errors.Is(err, core.ErrArgumentCount):
		return ResultArgumentCount
	case errors.Is(err, core.ErrDeserialize):
		return ResultDeserialize
	case errors.Is(err, core.ErrHandleReleased):
		return ResultReleased
	case errors.Is(err, core.ErrUnknownHandle):
		return ResultUnknown
	case errors.Is(err, core.ErrInvalidHandleID),
		errors.Is(err, core.ErrUnknownMethod),
		errors.Is(err, core.ErrArgumentTooLarge):
		return ResultRejected
	case errors.Is(err, core.ErrFunctionPanicked):
		return ResultPanic
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return ResultCanceled
	default:
		return ResultError
	}
}

// Handler serves the metrics gathered by g in the Prometheus text format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
