package billionrows

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "pkg.jsn.cam/billionrows"

// Chunk outcomes recorded on the chunks counter.
const (
	outcomeOK       = "ok"
	outcomeRetried  = "retried"
	outcomeExcluded = "excluded"
)

type driverMetrics struct {
	records  metric.Int64Counter
	rejected metric.Int64Counter
	chunks   metric.Int64Counter
	duration metric.Float64Histogram
}

func newDriverMetrics(meter metric.Meter) (*driverMetrics, error) {
	records, err := meter.Int64Counter("billionrows.records",
		metric.WithDescription("Records folded into the final aggregate"))
	if err != nil {
		return nil, fmt.Errorf("create records counter: %w", err)
	}

	rejected, err := meter.Int64Counter("billionrows.rejected_lines",
		metric.WithDescription("Input lines rejected by the parser"))
	if err != nil {
		return nil, fmt.Errorf("create rejected counter: %w", err)
	}

	chunks, err := meter.Int64Counter("billionrows.chunks",
		metric.WithDescription("Chunks completed, by outcome"))
	if err != nil {
		return nil, fmt.Errorf("create chunks counter: %w", err)
	}

	duration, err := meter.Float64Histogram("billionrows.chunk.duration.ms",
		metric.WithDescription("Time to aggregate one chunk"),
		metric.WithUnit("ms"))
	if err != nil {
		return nil, fmt.Errorf("create duration histogram: %w", err)
	}

	return &driverMetrics{records: records, rejected: rejected, chunks: chunks, duration: duration}, nil
}

func (m *driverMetrics) chunk(ctx context.Context, outcome string, records int, took time.Duration) {
	m.chunks.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
	if outcome != outcomeExcluded {
		m.records.Add(ctx, int64(records))
	}
	m.duration.Record(ctx, float64(took)/float64(time.Millisecond))
}
