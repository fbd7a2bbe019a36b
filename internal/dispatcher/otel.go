package dispatcher

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/OCAP2/trail/internal/dispatcher"

type metrics struct {
	handledCount  metric.Int64Counter
	rejectedCount metric.Int64Counter
}

func newMetrics(lengths func(observe func(n int, attr metric.MeasurementOption))) (*metrics, error) {
	m := otel.Meter(instrumentationName)

	handled, err := m.Int64Counter("trail.events.handled",
		metric.WithDescription("Host events handled from a queue"))
	if err != nil {
		return nil, fmt.Errorf("failed to create handled counter: %w", err)
	}
	rejected, err := m.Int64Counter("trail.events.rejected",
		metric.WithDescription("Host events rejected by a full or closed queue"))
	if err != nil {
		return nil, fmt.Errorf("failed to create rejected counter: %w", err)
	}
	_, err = m.Int64ObservableGauge("trail.events.queued",
		metric.WithDescription("Host events waiting in a queue"),
		metric.WithInt64Callback(func(_ context.Context, o metric.Int64Observer) error {
			lengths(func(n int, attr metric.MeasurementOption) {
				o.Observe(int64(n), attr)
			})
			return nil
		}))
	if err != nil {
		return nil, fmt.Errorf("failed to create queue gauge: %w", err)
	}

	return &metrics{handledCount: handled, rejectedCount: rejected}, nil
}

func (m *metrics) handled(attr metric.MeasurementOption) {
	m.handledCount.Add(context.Background(), 1, attr)
}

func (m *metrics) rejected(attr metric.MeasurementOption) {
	m.rejectedCount.Add(context.Background(), 1, attr)
}
