package usecases

import "time"

type GuardSnapshot struct {
	State               CircuitState `json:"state"`
	BackoffMs           int64        `json:"backoff_ms"`
	ConsecutiveFailures int          `json:"consecutive_failures"`
	NextAllowedAt       time.Time    `json:"next_allowed_at"`
	LastSuccessAt       time.Time    `json:"last_success_at"`
}

// Stats is a read-only copy of pipeline state for pollers outside the
// network-owning goroutine.
type Stats struct {
	QueueDepth    int    `json:"queue_depth"`
	QueueCapacity int    `json:"queue_capacity"`
	MailboxDepth  int    `json:"mailbox_depth"`
	MailboxPosted uint64 `json:"mailbox_posted"`
	// MailboxDropped is the mailbox's droppedCount.
	MailboxDropped uint64 `json:"mailbox_dropped"`

	SuccessRatePct  float64 `json:"success_rate_pct"`
	AvgLatencyMs    float64 `json:"avg_latency_ms"`
	PeakLatencyMs   float64 `json:"peak_latency_ms"`
	CongestionLevel int     `json:"congestion_level"`

	CommandsSent         uint64 `json:"commands_sent"`
	CommandsFailed       uint64 `json:"commands_failed"`
	BatchesProcessed     uint64 `json:"batches_processed"`
	CommandsDeduplicated uint64 `json:"commands_deduplicated"`
	CommandsExpired      uint64 `json:"commands_expired"`
	CommandsEvicted      uint64 `json:"commands_evicted"`
	FinalFailures        uint64 `json:"final_failures"`
	GuardDenied          uint64 `json:"guard_denied"`
	LinkDown             uint64 `json:"link_down"`

	BatchingThresholdMs int64 `json:"batching_threshold_ms"`
	BatchSize           int   `json:"batch_size"`
	RetryBaseMs         int64 `json:"retry_base_ms"`

	Guard     GuardSnapshot `json:"guard"`
	UpdatedAt time.Time     `json:"updated_at"`
}

func milliseconds(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
