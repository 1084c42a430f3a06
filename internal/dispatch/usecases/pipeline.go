package usecases

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"lumen-remote/internal/dispatch/domain"
	"lumen-remote/internal/infra/async"
	"lumen-remote/internal/infra/clock"
)

const (
	DefaultMailboxCapacity = 32
	DefaultPostTimeout     = 10 * time.Millisecond
	DefaultDrainWait       = 50 * time.Millisecond
	DefaultDrainMax        = 16
)

type PipelineConfig struct {
	MailboxCapacity int
	PostTimeout     time.Duration
	DrainWait       time.Duration
	DrainMax        int
}

var (
	_ async.Worker = (*Pipeline)(nil)
	_ IntentPoster = (*Pipeline)(nil)
)

// Pipeline is the network-owning side of the dispatch path. Everything
// except the mailbox is touched only from the goroutine running Run, so
// none of it is locked. Other goroutines talk to it through Post and
// read it through Stats.
type Pipeline struct {
	cfg        PipelineConfig
	mailbox    *async.Mailbox[domain.Intent]
	queue      *PendingQueue
	builder    *BatchBuilder
	dispatcher *Dispatcher
	guard      *TransportGuard
	metrics    *CongestionMetrics
	controller *CongestionController
	telemetry  *Telemetry
	clock      clock.Clock
	stats      atomic.Pointer[Stats]
	shutdown   chan struct{}
}

func NewPipeline(
	cfg PipelineConfig,
	queue *PendingQueue,
	builder *BatchBuilder,
	dispatcher *Dispatcher,
	guard *TransportGuard,
	metrics *CongestionMetrics,
	controller *CongestionController,
	telemetry *Telemetry,
	clk clock.Clock,
) *Pipeline {
	if cfg.MailboxCapacity <= 0 {
		cfg.MailboxCapacity = DefaultMailboxCapacity
	}
	if cfg.PostTimeout <= 0 {
		cfg.PostTimeout = DefaultPostTimeout
	}
	if cfg.DrainWait <= 0 {
		cfg.DrainWait = DefaultDrainWait
	}
	if cfg.DrainMax <= 0 {
		cfg.DrainMax = DefaultDrainMax
	}
	if clk == nil {
		clk = clock.Real()
	}
	p := &Pipeline{
		cfg:        cfg,
		mailbox:    async.NewMailbox[domain.Intent](cfg.MailboxCapacity),
		queue:      queue,
		builder:    builder,
		dispatcher: dispatcher,
		guard:      guard,
		metrics:    metrics,
		controller: controller,
		telemetry:  telemetry,
		clock:      clk,
		shutdown:   make(chan struct{}),
	}
	p.publishStats()
	return p
}

// Post hands an intent to the pipeline from any goroutine. A false
// return means the mailbox overflowed and an intent was lost; callers
// are not expected to retry.
func (p *Pipeline) Post(intent domain.Intent, timeout time.Duration) bool {
	if timeout <= 0 {
		timeout = p.cfg.PostTimeout
	}
	if p.mailbox.Post(intent, timeout) {
		return true
	}
	slog.Debug("oldest intent dropped",
		slog.Any("reason", domain.ErrMailboxOverflow),
		slog.String("kind", string(intent.Kind)),
		slog.Uint64("dropped", p.mailbox.Dropped()))
	p.telemetry.RecordDropped(context.Background(), "mailbox_overflow", 1)
	return false
}

func (p *Pipeline) PostTimeout() time.Duration {
	return p.cfg.PostTimeout
}

func (p *Pipeline) Run(ctx context.Context, done func()) {
	slog.Debug("dispatch pipeline started",
		slog.Int("mailbox_capacity", p.mailbox.Capacity()),
		slog.Int("queue_capacity", p.queue.Capacity()))
	defer done()
	for {
		select {
		case <-ctx.Done():
			slog.Info("dispatch pipeline cancelled")
			return
		case <-p.shutdown:
			slog.Info("dispatch pipeline stopped")
			return
		default:
		}
		p.Cycle(ctx)
	}
}

func (p *Pipeline) Shutdown() {
	select {
	case <-p.shutdown:
	default:
		close(p.shutdown)
	}
}

// Cycle is one loop iteration: wait briefly for intents, then Step.
func (p *Pipeline) Cycle(ctx context.Context) Outcome {
	intents := p.mailbox.Drain(ctx, p.cfg.DrainMax, p.cfg.DrainWait)
	return p.Step(ctx, intents)
}

// Step admits intents into the queue, maintains it, lets the congestion
// controller tick and dispatches at most one batch. A panic inside the
// step is logged and swallowed.
func (p *Pipeline) Step(ctx context.Context, intents []domain.Intent) (outcome Outcome) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("dispatch cycle panicked", slog.Any("panic", r))
			outcome = Outcome{Status: OutcomeFailed, Err: fmt.Errorf("dispatch cycle panicked: %v", r)}
		}
		p.publishStats()
	}()

	now := p.clock.Now()
	for _, intent := range intents {
		p.admit(ctx, intent, now)
	}

	if merged := p.queue.Deduplicate(); merged > 0 {
		p.metrics.RecordDeduplicated(merged)
		p.telemetry.RecordDeduplicated(ctx, merged)
	}
	if expired := p.queue.SweepExpired(now); len(expired) > 0 {
		for _, cmd := range expired {
			slog.Debug("command dropped",
				slog.String("command", cmd.String()),
				slog.Any("reason", domain.ErrDeadlineExpired))
		}
		p.telemetry.RecordDropped(ctx, "deadline_expired", len(expired))
	}
	p.queue.Compact()

	p.controller.Tick(now)

	// An open guard would only bounce the batch straight back into the
	// queue, so nothing is selected until it permits again.
	if !p.guard.Permits(now) {
		return Outcome{Status: OutcomeIdle}
	}
	batch := p.builder.Build(p.queue, now)
	if batch.Empty() {
		return Outcome{Status: OutcomeIdle}
	}
	return p.dispatcher.Execute(ctx, batch)
}

func (p *Pipeline) admit(ctx context.Context, intent domain.Intent, now time.Time) {
	cmd, err := domain.NewCommand(intent, now)
	if err != nil {
		slog.Warn("rejecting intent",
			slog.String("kind", string(intent.Kind)),
			slog.Int("value", intent.Value),
			slog.Any("error", err))
		return
	}
	if evicted, ok := p.queue.Insert(cmd); ok {
		slog.Debug("oldest command evicted",
			slog.String("evicted", evicted.String()),
			slog.Any("reason", domain.ErrQueueOverflow))
		p.telemetry.RecordDropped(ctx, "queue_overflow", 1)
	}
}

// Stats returns the latest snapshot. Mailbox figures are read live
// since the interactive side changes them between cycles.
func (p *Pipeline) Stats() Stats {
	stats := *p.stats.Load()
	stats.MailboxDepth = p.mailbox.Len()
	stats.MailboxPosted = p.mailbox.Posted()
	stats.MailboxDropped = p.mailbox.Dropped()
	return stats
}

func (p *Pipeline) publishStats() {
	now := p.clock.Now()
	guard := p.guard.State()
	p.stats.Store(&Stats{
		QueueDepth:           p.queue.Len(),
		QueueCapacity:        p.queue.Capacity(),
		SuccessRatePct:       p.metrics.SuccessRatePct(),
		AvgLatencyMs:         milliseconds(p.metrics.AvgLatency),
		PeakLatencyMs:        milliseconds(p.metrics.PeakLatency),
		CongestionLevel:      p.metrics.CongestionLevel,
		CommandsSent:         p.metrics.CommandsSent,
		CommandsFailed:       p.metrics.CommandsFailed,
		BatchesProcessed:     p.metrics.BatchesProcessed,
		CommandsDeduplicated: p.metrics.CommandsDeduplicated,
		CommandsExpired:      p.queue.Expired(),
		CommandsEvicted:      p.queue.Evicted(),
		FinalFailures:        p.metrics.FinalFailures,
		GuardDenied:          p.metrics.GuardDenied,
		LinkDown:             p.metrics.LinkDown,
		BatchingThresholdMs:  p.builder.Threshold().Milliseconds(),
		BatchSize:            p.builder.BatchSize(),
		RetryBaseMs:          p.guard.Base().Milliseconds(),
		Guard: GuardSnapshot{
			State:               p.guard.Circuit(now),
			BackoffMs:           guard.Backoff.Milliseconds(),
			ConsecutiveFailures: guard.ConsecutiveFailures,
			NextAllowedAt:       guard.NextAllowedAt,
			LastSuccessAt:       guard.LastSuccessAt,
		},
		UpdatedAt: now,
	})
}
