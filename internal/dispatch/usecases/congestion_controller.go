package usecases

import (
	"log/slog"
	"time"
)

type Range struct {
	Floor time.Duration
	Cap   time.Duration
	Step  time.Duration
}

func (r Range) up(v time.Duration) time.Duration {
	return min(v+r.Step, r.Cap)
}

func (r Range) down(v time.Duration) time.Duration {
	return max(v-r.Step, r.Floor)
}

type CongestionConfig struct {
	Interval          time.Duration
	LatencyThreshold  time.Duration
	MinSuccessRatePct float64
	BatchingThreshold Range
	RetryBase         Range
	BatchSizeFloor    int
	BatchSizeStep     int
	LevelStep         int
}

func DefaultCongestionConfig() CongestionConfig {
	return CongestionConfig{
		Interval:          time.Second,
		LatencyThreshold:  500 * time.Millisecond,
		MinSuccessRatePct: 90,
		BatchingThreshold: Range{Floor: 100 * time.Millisecond, Cap: time.Second, Step: 50 * time.Millisecond},
		RetryBase:         Range{Floor: DefaultGuardBase, Cap: time.Second, Step: 100 * time.Millisecond},
		BatchSizeFloor:    DefaultBatchSize,
		BatchSizeStep:     1,
		LevelStep:         10,
	}
}

// CongestionController is a proportional controller: one fixed step per
// tick, up while the link looks congested and down while it looks
// healthy. It runs on its own interval, not once per dispatch.
type CongestionController struct {
	cfg      CongestionConfig
	metrics  *CongestionMetrics
	builder  *BatchBuilder
	guard    *TransportGuard
	lastTick time.Time
}

func NewCongestionController(cfg CongestionConfig, metrics *CongestionMetrics, builder *BatchBuilder, guard *TransportGuard) *CongestionController {
	defaults := DefaultCongestionConfig()
	if cfg.Interval <= 0 {
		cfg.Interval = defaults.Interval
	}
	if cfg.LatencyThreshold <= 0 {
		cfg.LatencyThreshold = defaults.LatencyThreshold
	}
	if cfg.MinSuccessRatePct <= 0 {
		cfg.MinSuccessRatePct = defaults.MinSuccessRatePct
	}
	if cfg.BatchingThreshold.Step <= 0 {
		cfg.BatchingThreshold = defaults.BatchingThreshold
	}
	if cfg.RetryBase.Step <= 0 {
		cfg.RetryBase = defaults.RetryBase
	}
	if cfg.BatchSizeFloor <= 0 {
		cfg.BatchSizeFloor = defaults.BatchSizeFloor
	}
	if cfg.BatchSizeStep <= 0 {
		cfg.BatchSizeStep = defaults.BatchSizeStep
	}
	if cfg.LevelStep <= 0 {
		cfg.LevelStep = defaults.LevelStep
	}
	return &CongestionController{
		cfg:     cfg,
		metrics: metrics,
		builder: builder,
		guard:   guard,
	}
}

// Tick adjusts the pipeline if a full interval has passed since the last
// adjustment. It reports whether it did.
func (c *CongestionController) Tick(now time.Time) bool {
	if c.lastTick.IsZero() {
		c.lastTick = now
		return false
	}
	if now.Sub(c.lastTick) < c.cfg.Interval {
		return false
	}
	c.lastTick = now
	c.Adjust()
	return true
}

func (c *CongestionController) Congested() bool {
	return c.metrics.AvgLatency > c.cfg.LatencyThreshold || c.metrics.SuccessRatePct() < c.cfg.MinSuccessRatePct
}

// Adjust applies one control step unconditionally.
func (c *CongestionController) Adjust() {
	congested := c.Congested()
	previousLevel := c.metrics.CongestionLevel

	if congested {
		c.builder.SetThreshold(c.cfg.BatchingThreshold.up(c.builder.Threshold()))
		c.guard.SetBase(c.cfg.RetryBase.up(c.guard.Base()))
		c.builder.SetBatchSize(min(c.builder.BatchSize()+c.cfg.BatchSizeStep, c.builder.MaxBatchSize()))
		c.metrics.CongestionLevel = min(c.metrics.CongestionLevel+c.cfg.LevelStep, 100)
	} else {
		c.builder.SetThreshold(c.cfg.BatchingThreshold.down(c.builder.Threshold()))
		c.guard.SetBase(c.cfg.RetryBase.down(c.guard.Base()))
		c.builder.SetBatchSize(max(c.builder.BatchSize()-c.cfg.BatchSizeStep, c.cfg.BatchSizeFloor))
		c.metrics.CongestionLevel = max(c.metrics.CongestionLevel-c.cfg.LevelStep, 0)
	}
	c.builder.SetLatencyEstimate(c.metrics.AvgLatency)

	if c.metrics.CongestionLevel != previousLevel {
		slog.Info("congestion level changed",
			slog.Bool("congested", congested),
			slog.Int("level", c.metrics.CongestionLevel),
			slog.Duration("avg_latency", c.metrics.AvgLatency),
			slog.Float64("success_rate_pct", c.metrics.SuccessRatePct()),
			slog.Duration("batching_threshold", c.builder.Threshold()),
			slog.Int("batch_size", c.builder.BatchSize()),
			slog.Duration("retry_base", c.guard.Base()))
	}
}
