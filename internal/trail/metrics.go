package trail

import (
	"context"
	"fmt"
	"sync/atomic"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/OCAP2/trail/internal/trail"

type metrics struct {
	started   metric.Int64Counter
	created   metric.Int64Counter
	discarded metric.Int64Counter
	failures  metric.Int64Counter
	stale     metric.Int64Counter

	createdTotal atomic.Uint64
	staleTotal   atomic.Uint64
}

func newMetrics() (*metrics, error) {
	m := otel.Meter(instrumentationName)
	var (
		out metrics
		err error
	)

	out.started, err = m.Int64Counter("trail.gestures.started",
		metric.WithDescription("Drag gestures started"))
	if err != nil {
		return nil, fmt.Errorf("creating started counter: %w", err)
	}
	out.created, err = m.Int64Counter("trail.trails.created",
		metric.WithDescription("Trail curves created by the host and kept"))
	if err != nil {
		return nil, fmt.Errorf("creating created counter: %w", err)
	}
	out.discarded, err = m.Int64Counter("trail.trails.discarded",
		metric.WithDescription("Gestures too short to produce a trail"))
	if err != nil {
		return nil, fmt.Errorf("creating discarded counter: %w", err)
	}
	out.failures, err = m.Int64Counter("trail.host.failures",
		metric.WithDescription("Failed host calls"))
	if err != nil {
		return nil, fmt.Errorf("creating failures counter: %w", err)
	}
	out.stale, err = m.Int64Counter("trail.results.stale",
		metric.WithDescription("Creation results superseded by a newer gesture"))
	if err != nil {
		return nil, fmt.Errorf("creating stale counter: %w", err)
	}
	return &out, nil
}

func (m *metrics) failure(op string) {
	m.failures.Add(context.Background(), 1, metric.WithAttributes(attribute.String("op", op)))
}

func (m *metrics) inc(c metric.Int64Counter) {
	c.Add(context.Background(), 1)
}

func (m *metrics) trailCreated() {
	m.createdTotal.Add(1)
	m.inc(m.created)
}

func (m *metrics) resultStale() {
	m.staleTotal.Add(1)
	m.inc(m.stale)
}
