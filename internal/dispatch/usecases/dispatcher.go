package usecases

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"lumen-remote/internal/dispatch/domain"
	"lumen-remote/internal/infra/clock"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	DefaultMaxRetries = 5
	DefaultIOTimeout  = 800 * time.Millisecond
)

type OutcomeStatus string

const (
	OutcomeIdle        OutcomeStatus = "idle"
	OutcomeDelivered   OutcomeStatus = "delivered"
	OutcomePartial     OutcomeStatus = "partial"
	OutcomeFailed      OutcomeStatus = "failed"
	OutcomeGuardDenied OutcomeStatus = "guard_denied"
	OutcomeLinkDown    OutcomeStatus = "link_down"
)

// Outcome summarises what happened to one batch.
type Outcome struct {
	BatchID      domain.ID
	Status       OutcomeStatus
	Sink         string
	Consolidated bool
	Delivered    int
	Retried      int
	Dropped      int
	Requeued     int
	Latency      time.Duration
	Err          error
}

type DispatcherConfig struct {
	MaxRetries int
	IOTimeout  time.Duration
}

type Dispatcher struct {
	cfg       DispatcherConfig
	queue     *PendingQueue
	guard     *TransportGuard
	metrics   *CongestionMetrics
	stream    StreamSink
	fallback  TransportSink
	link      LinkMonitor
	feedback  FeedbackNotifier
	telemetry *Telemetry
	clock     clock.Clock
	tracer    trace.Tracer
}

// NewDispatcher wires the dispatcher. stream and link may be nil: without
// a stream every request goes through fallback, and without a link
// monitor the link is assumed up.
func NewDispatcher(
	cfg DispatcherConfig,
	queue *PendingQueue,
	guard *TransportGuard,
	metrics *CongestionMetrics,
	stream StreamSink,
	fallback TransportSink,
	link LinkMonitor,
	feedback FeedbackNotifier,
	telemetry *Telemetry,
	clk clock.Clock,
) *Dispatcher {
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	if cfg.IOTimeout <= 0 {
		cfg.IOTimeout = DefaultIOTimeout
	}
	if clk == nil {
		clk = clock.Real()
	}
	return &Dispatcher{
		cfg:       cfg,
		queue:     queue,
		guard:     guard,
		metrics:   metrics,
		stream:    stream,
		fallback:  fallback,
		link:      link,
		feedback:  feedback,
		telemetry: telemetry,
		clock:     clk,
		tracer:    otel.Tracer(_meterName),
	}
}

// Execute runs one batch to completion: consolidate, ask the link and
// the guard, send, then account for the result. Commands that were not
// attempted go back to the front of the queue untouched.
func (d *Dispatcher) Execute(ctx context.Context, batch domain.Batch) Outcome {
	outcome := Outcome{BatchID: batch.ID, Status: OutcomeIdle}
	if batch.Empty() || !batch.ReadyForExecution {
		return outcome
	}

	ctx, span := d.tracer.Start(ctx, "dispatch.batch", trace.WithAttributes(
		attribute.String("batch.id", batch.ID.String()),
		attribute.Int("batch.commands", batch.CommandCount()),
	))
	defer span.End()

	if !batch.IsReconnect() {
		if err := batch.Consolidate(); err != nil && batch.ConsolidationFailed() {
			slog.Debug("consolidation failed, falling back to per-command dispatch",
				slog.String("batch_id", batch.ID.String()),
				slog.Any("error", err))
		}
	}

	if status, err := d.admit(); err != nil {
		d.requeue(batch.Commands)
		outcome.Status = status
		outcome.Err = err
		outcome.Requeued = batch.CommandCount()
		span.SetAttributes(attribute.String("dispatch.status", string(status)))
		return outcome
	}

	switch {
	case batch.IsReconnect():
		outcome = d.reconnect(ctx, batch)
	case batch.Payload != nil:
		outcome = d.sendConsolidated(ctx, batch)
	default:
		outcome = d.sendEach(ctx, batch, batch.Commands)
	}

	span.SetAttributes(
		attribute.String("dispatch.status", string(outcome.Status)),
		attribute.String("dispatch.sink", outcome.Sink),
		attribute.Int("dispatch.delivered", outcome.Delivered),
	)
	if outcome.Err != nil {
		span.SetStatus(codes.Error, outcome.Err.Error())
	}
	return outcome
}

// admit checks the link first so a dead link never costs a guard trial.
// Its errors are expected admission outcomes, not failures.
func (d *Dispatcher) admit() (OutcomeStatus, error) {
	if d.link != nil && !d.link.IsLinkAvailable() {
		d.metrics.RecordLinkDown()
		slog.Debug("batch requeued", slog.Any("reason", domain.ErrLinkDown))
		return OutcomeLinkDown, domain.ErrLinkDown
	}
	if !d.guard.Permits(d.clock.Now()) {
		d.metrics.RecordGuardDenied()
		slog.Debug("batch requeued",
			slog.Any("reason", domain.ErrGuardDenied),
			slog.Time("next_allowed_at", d.guard.State().NextAllowedAt))
		return OutcomeGuardDenied, domain.ErrGuardDenied
	}
	return "", nil
}

func (d *Dispatcher) selectSink() TransportSink {
	if d.stream != nil && d.stream.IsConnected() {
		return d.stream
	}
	return d.fallback
}

func (d *Dispatcher) sendConsolidated(ctx context.Context, batch domain.Batch) Outcome {
	sink := d.selectSink()
	outcome := Outcome{BatchID: batch.ID, Sink: sink.Name(), Consolidated: batch.CommandCount() > 1}

	latency, err := d.send(ctx, sink, *batch.Payload)
	if err != nil && domain.IsConsolidationFailure(err) {
		if batch.CommandCount() > 1 {
			slog.Debug("consolidated payload rejected, falling back to per-command dispatch",
				slog.String("batch_id", batch.ID.String()),
				slog.Any("error", err))
			return d.sendEach(ctx, batch, batch.Commands)
		}
		d.metrics.RecordBatch()
		d.telemetry.RecordBatch(ctx, false)
		outcome.Status = OutcomeFailed
		outcome.Err = err
		d.drop(ctx, batch.Commands[0], err, &outcome)
		return outcome
	}

	d.metrics.RecordBatch()
	d.telemetry.RecordBatch(ctx, outcome.Consolidated)
	if err != nil {
		outcome.Err = err
		outcome.Status = OutcomeFailed
		d.fail(ctx, sink.Name(), batch.Commands, err, &outcome)
		return outcome
	}

	outcome.Status = OutcomeDelivered
	outcome.Latency = latency
	outcome.Delivered = batch.CommandCount()
	d.succeed(ctx, sink.Name(), batch.CommandCount(), latency)
	d.notify(true)
	return outcome
}

// sendEach is the fallback path: one request per command, stopping as
// soon as the link or the guard refuses.
func (d *Dispatcher) sendEach(ctx context.Context, batch domain.Batch, commands []domain.Command) Outcome {
	outcome := Outcome{BatchID: batch.ID}
	d.metrics.RecordBatch()
	d.telemetry.RecordBatch(ctx, false)

	for i, cmd := range commands {
		if i > 0 {
			if _, err := d.admit(); err != nil {
				d.requeue(commands[i:])
				outcome.Requeued += len(commands) - i
				break
			}
		}

		if cmd.Kind == domain.KindReconnectTransport {
			d.redial(ctx, cmd, &outcome)
			continue
		}

		sink := d.selectSink()
		outcome.Sink = sink.Name()

		patch, err := domain.Consolidate([]domain.Command{cmd})
		if err == nil {
			var latency time.Duration
			latency, err = d.send(ctx, sink, patch)
			if err == nil {
				outcome.Delivered++
				outcome.Latency += latency
				d.succeed(ctx, sink.Name(), 1, latency)
				d.notify(true)
				continue
			}
		}

		outcome.Err = err
		if !errors.Is(err, domain.ErrTransport) {
			d.drop(ctx, cmd, err, &outcome)
			continue
		}
		d.fail(ctx, sink.Name(), []domain.Command{cmd}, err, &outcome)
	}

	switch {
	case outcome.Delivered == len(commands):
		outcome.Status = OutcomeDelivered
	case outcome.Delivered > 0:
		outcome.Status = OutcomePartial
	default:
		outcome.Status = OutcomeFailed
	}
	return outcome
}

func (d *Dispatcher) reconnect(ctx context.Context, batch domain.Batch) Outcome {
	outcome := Outcome{BatchID: batch.ID, Sink: "none"}
	d.metrics.RecordBatch()
	d.telemetry.RecordBatch(ctx, false)

	d.redial(ctx, batch.Commands[0], &outcome)
	if outcome.Delivered == 1 {
		outcome.Status = OutcomeDelivered
	} else {
		outcome.Status = OutcomeFailed
	}
	return outcome
}

// redial carries out one ReconnectTransport command.
func (d *Dispatcher) redial(ctx context.Context, cmd domain.Command, outcome *Outcome) {
	// Reconnect intents can pile up behind an open guard; once one of
	// them got through the rest have nothing to do. Nothing was sent, so
	// the guard keeps its backoff.
	if d.stream == nil || d.stream.IsConnected() {
		outcome.Delivered++
		d.notify(true)
		return
	}

	outcome.Sink = d.stream.Name()
	attemptCtx, cancel := context.WithTimeout(ctx, d.cfg.IOTimeout)
	defer cancel()
	started := time.Now()
	err := d.stream.Reconnect(attemptCtx)
	latency := time.Since(started)
	if err != nil {
		outcome.Err = err
		d.fail(ctx, d.stream.Name(), []domain.Command{cmd}, err, outcome)
		return
	}

	slog.Info("transport reconnected", slog.String("sink", d.stream.Name()), slog.Duration("took", latency))
	outcome.Delivered++
	outcome.Latency += latency
	d.succeed(ctx, d.stream.Name(), 1, latency)
	d.notify(true)
}

func (d *Dispatcher) send(ctx context.Context, sink TransportSink, patch domain.StatePatch) (time.Duration, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, d.cfg.IOTimeout)
	defer cancel()
	return sink.Send(attemptCtx, patch)
}

func (d *Dispatcher) succeed(ctx context.Context, sink string, commands int, latency time.Duration) {
	d.guard.Reset(d.clock.Now())
	d.metrics.RecordSuccess(latency, commands)
	d.telemetry.RecordSent(ctx, sink, commands, float64(latency)/float64(time.Millisecond))
}

// fail opens the guard once for the attempt, then retries or drops each
// command on its own retry budget.
func (d *Dispatcher) fail(ctx context.Context, sink string, commands []domain.Command, cause error, outcome *Outcome) {
	now := d.clock.Now()
	window := d.guard.RecordFailure(now)
	d.metrics.RecordFailure(len(commands))
	d.telemetry.RecordFailed(ctx, sink, len(commands))

	slog.Warn("transport attempt failed",
		slog.String("sink", sink),
		slog.Int("commands", len(commands)),
		slog.Duration("backoff_window", window),
		slog.Any("error", cause))

	for _, cmd := range commands {
		if cmd.RetryCount < d.cfg.MaxRetries {
			retried := cmd.Retried(now)
			if evicted, ok := d.queue.Insert(retried); ok {
				d.telemetry.RecordDropped(ctx, "queue_overflow", 1)
				slog.Debug("retry evicted a pending command",
					slog.String("evicted", evicted.String()),
					slog.Any("reason", domain.ErrQueueOverflow))
			}
			outcome.Retried++
			continue
		}
		slog.Error("command failed after retries",
			slog.String("command", cmd.String()),
			slog.Int("retries", cmd.RetryCount),
			slog.Any("error", cause))
		outcome.Dropped++
		d.metrics.RecordFinalFailure()
		d.telemetry.RecordDropped(ctx, "retries_exhausted", 1)
		d.notify(false)
	}
}

// drop discards a command the device could never accept. The guard is
// left alone since the transport did nothing wrong.
func (d *Dispatcher) drop(ctx context.Context, cmd domain.Command, cause error, outcome *Outcome) {
	slog.Error("command cannot be encoded, dropped",
		slog.String("command", cmd.String()),
		slog.Any("error", cause))
	outcome.Dropped++
	d.metrics.RecordFinalFailure()
	d.telemetry.RecordDropped(ctx, "unencodable", 1)
	d.notify(false)
}

func (d *Dispatcher) requeue(commands []domain.Command) {
	for _, evicted := range d.queue.Requeue(commands) {
		slog.Debug("requeue evicted a pending command",
			slog.String("evicted", evicted.String()),
			slog.Any("reason", domain.ErrQueueOverflow))
	}
}

func (d *Dispatcher) notify(success bool) {
	if d.feedback != nil {
		d.feedback.OnOutcome(success)
	}
}
