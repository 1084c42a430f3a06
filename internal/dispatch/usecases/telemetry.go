package usecases

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const _meterName = "lumen_remote"

func metricName(name string) string {
	return fmt.Sprintf("%s.%s", _meterName, name)
}

// Telemetry mirrors pipeline counters into OpenTelemetry. Instruments that
// fail to register fall back to no-ops; telemetry never stops dispatch.
type Telemetry struct {
	commandsSent    metric.Int64Counter
	commandsFailed  metric.Int64Counter
	commandsDropped metric.Int64Counter
	commandsMerged  metric.Int64Counter
	batches         metric.Int64Counter
	latency         metric.Float64Histogram
}

func NewTelemetry(meter metric.Meter) *Telemetry {
	if meter == nil {
		meter = otel.Meter(_meterName)
	}
	t := &Telemetry{}
	var err error

	t.commandsSent, err = meter.Int64Counter(metricName("commands.sent"),
		metric.WithDescription("Commands delivered to the lighting controller"))
	logInstrumentError("commands.sent", err)

	t.commandsFailed, err = meter.Int64Counter(metricName("commands.failed"),
		metric.WithDescription("Commands whose delivery attempt failed"))
	logInstrumentError("commands.failed", err)

	t.commandsDropped, err = meter.Int64Counter(metricName("commands.dropped"),
		metric.WithDescription("Commands dropped before delivery, by reason"))
	logInstrumentError("commands.dropped", err)

	t.commandsMerged, err = meter.Int64Counter(metricName("commands.deduplicated"),
		metric.WithDescription("Commands superseded by a newer command of the same kind"))
	logInstrumentError("commands.deduplicated", err)

	t.batches, err = meter.Int64Counter(metricName("batches.processed"),
		metric.WithDescription("Batches handed to a transport"))
	logInstrumentError("batches.processed", err)

	t.latency, err = meter.Float64Histogram(metricName("dispatch.latency"),
		metric.WithDescription("Latency of successful transport exchanges"),
		metric.WithUnit("ms"),
		metric.WithExplicitBucketBoundaries(5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000))
	logInstrumentError("dispatch.latency", err)

	return t
}

// ObserveState registers asynchronous gauges fed by read, which must be
// safe to call from the SDK's collection goroutine.
func (t *Telemetry) ObserveState(meter metric.Meter, read func() Stats) error {
	if meter == nil {
		meter = otel.Meter(_meterName)
	}
	queueDepth, err := meter.Int64ObservableGauge(metricName("queue.depth"),
		metric.WithDescription("Commands waiting in the pending queue"))
	if err != nil {
		return fmt.Errorf("registering queue depth gauge: %w", err)
	}
	congestion, err := meter.Int64ObservableGauge(metricName("congestion.level"),
		metric.WithDescription("Congestion level between 0 and 100"))
	if err != nil {
		return fmt.Errorf("registering congestion gauge: %w", err)
	}
	_, err = meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		stats := read()
		o.ObserveInt64(queueDepth, int64(stats.QueueDepth))
		o.ObserveInt64(congestion, int64(stats.CongestionLevel))
		return nil
	}, queueDepth, congestion)
	if err != nil {
		return fmt.Errorf("registering state callback: %w", err)
	}
	return nil
}

func (t *Telemetry) RecordSent(ctx context.Context, sink string, commands int, latencyMs float64) {
	if t == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("sink", sink))
	if t.commandsSent != nil {
		t.commandsSent.Add(ctx, int64(commands), attrs)
	}
	if t.latency != nil {
		t.latency.Record(ctx, latencyMs, attrs)
	}
}

func (t *Telemetry) RecordFailed(ctx context.Context, sink string, commands int) {
	if t == nil || t.commandsFailed == nil {
		return
	}
	t.commandsFailed.Add(ctx, int64(commands), metric.WithAttributes(attribute.String("sink", sink)))
}

func (t *Telemetry) RecordDropped(ctx context.Context, reason string, commands int) {
	if t == nil || t.commandsDropped == nil || commands == 0 {
		return
	}
	t.commandsDropped.Add(ctx, int64(commands), metric.WithAttributes(attribute.String("reason", reason)))
}

func (t *Telemetry) RecordDeduplicated(ctx context.Context, commands int) {
	if t == nil || t.commandsMerged == nil || commands == 0 {
		return
	}
	t.commandsMerged.Add(ctx, int64(commands))
}

func (t *Telemetry) RecordBatch(ctx context.Context, consolidated bool) {
	if t == nil || t.batches == nil {
		return
	}
	t.batches.Add(ctx, 1, metric.WithAttributes(attribute.Bool("consolidated", consolidated)))
}

func logInstrumentError(name string, err error) {
	if err != nil {
		slog.Error("creating instrument", slog.String("instrument", name), slog.Any("error", err))
	}
}
