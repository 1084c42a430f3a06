package usecases

import (
	"time"

	"lumen-remote/internal/dispatch/domain"
)

const (
	DefaultBatchingThreshold = 150 * time.Millisecond
	DefaultBatchSize         = 3
	DefaultMaxBatchSize      = 8
	DefaultDeadlineSlack     = time.Second
	DefaultLatencyEstimate   = 100 * time.Millisecond
)

type BatchBuilderConfig struct {
	BatchingThreshold time.Duration
	BatchSize         int
	MaxBatchSize      int
	DeadlineSlack     time.Duration
}

// BatchBuilder runs two speeds: Critical and High commands leave
// immediately, everything else waits for a batching window to close.
type BatchBuilder struct {
	threshold       time.Duration
	batchSize       int
	maxBatchSize    int
	deadlineSlack   time.Duration
	latencyEstimate time.Duration
}

func NewBatchBuilder(cfg BatchBuilderConfig) *BatchBuilder {
	if cfg.BatchingThreshold <= 0 {
		cfg.BatchingThreshold = DefaultBatchingThreshold
	}
	if cfg.MaxBatchSize <= 0 {
		cfg.MaxBatchSize = DefaultMaxBatchSize
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	cfg.BatchSize = min(cfg.BatchSize, cfg.MaxBatchSize)
	if cfg.DeadlineSlack <= 0 {
		cfg.DeadlineSlack = DefaultDeadlineSlack
	}
	return &BatchBuilder{
		threshold:       cfg.BatchingThreshold,
		batchSize:       cfg.BatchSize,
		maxBatchSize:    cfg.MaxBatchSize,
		deadlineSlack:   cfg.DeadlineSlack,
		latencyEstimate: DefaultLatencyEstimate,
	}
}

// Build selects the next batch and removes its commands from queue. A
// batch that is not ready leaves the queue untouched.
func (b *BatchBuilder) Build(queue *PendingQueue, now time.Time) domain.Batch {
	live := queue.Live()
	if len(live) == 0 {
		return domain.Batch{}
	}

	// A re-dial always travels alone, even after retries demoted it.
	if live[0].Priority == domain.PriorityCritical || live[0].Kind == domain.KindReconnectTransport {
		return b.take(queue, live[:1])
	}

	var highs, rest []domain.Command
	lowerPending := 0
	for _, cmd := range live {
		if cmd.Kind == domain.KindReconnectTransport {
			continue
		}
		if cmd.Priority == domain.PriorityHigh {
			if len(highs) < b.batchSize {
				highs = append(highs, cmd)
			}
			continue
		}
		lowerPending++
		if len(rest) < b.batchSize {
			rest = append(rest, cmd)
		}
	}

	restReady := len(rest) > 0 && b.windowClosed(rest, lowerPending, now)

	switch {
	case len(highs) > 0:
		selected := highs
		if restReady {
			room := b.batchSize - len(highs)
			selected = append(selected, rest[:min(room, len(rest))]...)
		}
		return b.take(queue, selected)
	case restReady:
		return b.take(queue, rest)
	default:
		return domain.Batch{}
	}
}

func (b *BatchBuilder) windowClosed(rest []domain.Command, pending int, now time.Time) bool {
	if pending >= b.batchSize {
		return true
	}
	// Sending what has accumulated takes time too, so the slack grows
	// with the expected duration of the batch.
	slack := b.deadlineSlack + b.estimate(len(rest))
	oldest := rest[0].CreatedAt
	for _, cmd := range rest {
		if cmd.CreatedAt.Before(oldest) {
			oldest = cmd.CreatedAt
		}
		if cmd.Deadline.Sub(now) <= slack {
			return true
		}
	}
	return now.Sub(oldest) >= b.threshold
}

func (b *BatchBuilder) take(queue *PendingQueue, selected []domain.Command) domain.Batch {
	commands := make([]domain.Command, len(selected))
	copy(commands, selected)
	ids := make([]domain.ID, len(commands))
	for i, cmd := range commands {
		ids[i] = cmd.ID
	}
	queue.Remove(ids...)

	return domain.Batch{
		ID:                domain.NewID(),
		Commands:          commands,
		ReadyForExecution: true,
		EstimatedDuration: b.estimate(len(commands)),
	}
}

func (b *BatchBuilder) estimate(commands int) time.Duration {
	return b.latencyEstimate * time.Duration(commands)
}

func (b *BatchBuilder) Threshold() time.Duration {
	return b.threshold
}

func (b *BatchBuilder) SetThreshold(d time.Duration) {
	if d > 0 {
		b.threshold = d
	}
}

func (b *BatchBuilder) BatchSize() int {
	return b.batchSize
}

func (b *BatchBuilder) MaxBatchSize() int {
	return b.maxBatchSize
}

func (b *BatchBuilder) SetBatchSize(n int) {
	if n > 0 {
		b.batchSize = min(n, b.maxBatchSize)
	}
}

// SetLatencyEstimate feeds the observed average latency back into the
// duration estimate of future batches.
func (b *BatchBuilder) SetLatencyEstimate(d time.Duration) {
	if d > 0 {
		b.latencyEstimate = d
	}
}
