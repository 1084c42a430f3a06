package usecases

import "time"

const latencyWindow = 16

// CongestionMetrics is the rolling view of dispatch performance. It
// lives for the whole process and is owned by the pipeline goroutine.
type CongestionMetrics struct {
	latencies [latencyWindow]time.Duration
	samples   int
	next      int

	AvgLatency      time.Duration
	PeakLatency     time.Duration
	CongestionLevel int

	CommandsSent         uint64
	CommandsFailed       uint64
	BatchesProcessed     uint64
	CommandsDeduplicated uint64
	FinalFailures        uint64
	GuardDenied          uint64
	LinkDown             uint64
}

func NewCongestionMetrics() *CongestionMetrics {
	return &CongestionMetrics{}
}

func (m *CongestionMetrics) RecordSuccess(latency time.Duration, commands int) {
	m.CommandsSent += uint64(commands)
	m.observeLatency(latency)
}

func (m *CongestionMetrics) RecordFailure(commands int) {
	m.CommandsFailed += uint64(commands)
}

func (m *CongestionMetrics) RecordBatch() {
	m.BatchesProcessed++
}

func (m *CongestionMetrics) RecordDeduplicated(n int) {
	m.CommandsDeduplicated += uint64(n)
}

func (m *CongestionMetrics) RecordFinalFailure() {
	m.FinalFailures++
}

func (m *CongestionMetrics) RecordGuardDenied() {
	m.GuardDenied++
}

func (m *CongestionMetrics) RecordLinkDown() {
	m.LinkDown++
}

// SuccessRatePct is 100 until the first attempt completes.
func (m *CongestionMetrics) SuccessRatePct() float64 {
	total := m.CommandsSent + m.CommandsFailed
	if total == 0 {
		return 100
	}
	return float64(m.CommandsSent) / float64(total) * 100
}

func (m *CongestionMetrics) observeLatency(latency time.Duration) {
	m.latencies[m.next] = latency
	m.next = (m.next + 1) % latencyWindow
	if m.samples < latencyWindow {
		m.samples++
	}

	var sum time.Duration
	for i := 0; i < m.samples; i++ {
		sum += m.latencies[i]
	}
	m.AvgLatency = sum / time.Duration(m.samples)
	if latency > m.PeakLatency {
		m.PeakLatency = latency
	}
}
