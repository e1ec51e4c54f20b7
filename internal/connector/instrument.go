package connector

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/yourorg/datalens/internal/model"
	tracing "github.com/yourorg/datalens/internal/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Fetch outcomes recorded in metrics
const (
	OutcomeOK       = "ok"
	OutcomeDegraded = "degraded"
	OutcomeError    = "error"
)

// Metrics holds Prometheus collectors for connector fetches.
type Metrics struct {
	fetches  *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetrics creates and registers connector metrics on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		fetches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "datalens_connector_fetches_total",
				Help: "Total number of connector fetches by outcome",
			},
			[]string{"connector", "outcome"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "datalens_connector_fetch_duration_seconds",
				Help:    "Connector fetch duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"connector"},
		),
	}
	reg.MustRegister(m.fetches, m.duration)
	return m
}

// instrumented bounds, traces and measures every fetch of the wrapped connector.
type instrumented struct {
	Connector
	metrics *Metrics
	timeout time.Duration
}

// Instrument wraps c so each Fetch runs under timeout (when positive), in its
// own span, and is counted in m (when non-nil).
func Instrument(c Connector, m *Metrics, timeout time.Duration) Connector {
	return &instrumented{Connector: c, metrics: m, timeout: timeout}
}

func (i *instrumented) Fetch(ctx context.Context, indicatorID string, params map[string]string) (*model.DataSet, error) {
	if i.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, i.timeout)
		defer cancel()
	}

	ctx, span := tracing.Tracer().Start(ctx, "connector.fetch", trace.WithAttributes(
		attribute.String("connector.id", i.ID()),
		attribute.String("connector.indicator", indicatorID),
	))
	defer span.End()

	start := time.Now()
	ds, err := i.Connector.Fetch(ctx, indicatorID, params)

	outcome := OutcomeOK
	switch {
	case err != nil:
		outcome = OutcomeError
		tracing.RecordError(ctx, err)
	case ds.Metadata.Degraded:
		outcome = OutcomeDegraded
	}
	span.SetAttributes(attribute.String("connector.outcome", outcome))

	if i.metrics != nil {
		i.metrics.fetches.WithLabelValues(i.ID(), outcome).Inc()
		i.metrics.duration.WithLabelValues(i.ID()).Observe(time.Since(start).Seconds())
	}
	return ds, err
}
