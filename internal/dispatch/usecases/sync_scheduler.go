package usecases

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"lumen-remote/internal/dispatch/domain"
	"lumen-remote/internal/infra/async"

	"github.com/robfig/cron/v3"
)

const DefaultSyncSchedule = "@every 30s"

func NewSyncScheduler(ticker *time.Ticker, schedule string, poster IntentPoster, postTimeout time.Duration) (*SyncScheduler, error) {
	if schedule == "" {
		schedule = DefaultSyncSchedule
	}
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	parsed, err := parser.Parse(schedule)
	if err != nil {
		return nil, fmt.Errorf("parsing sync schedule %q: %w", schedule, err)
	}
	if postTimeout <= 0 {
		postTimeout = DefaultPostTimeout
	}
	return &SyncScheduler{
		ticker:      ticker,
		schedule:    parsed,
		poster:      poster,
		postTimeout: postTimeout,
	}, nil
}

var _ async.Worker = (*SyncScheduler)(nil)

// SyncScheduler posts a SyncState intent whenever its cron schedule comes
// due, so the cached device state never gets too old.
type SyncScheduler struct {
	ticker      *time.Ticker
	schedule    cron.Schedule
	poster      IntentPoster
	postTimeout time.Duration
	next        time.Time
}

func (s *SyncScheduler) Run(ctx context.Context, done func()) {
	slog.Debug("sync scheduler started")
	defer done()
	for {
		select {
		case <-ctx.Done():
			slog.Info("sync scheduler cancelled")
			return
		case now := <-s.ticker.C:
			s.Evaluate(now)
		}
	}
}

// Evaluate posts a sync intent if the schedule is due at now. The first
// call only arms the schedule.
func (s *SyncScheduler) Evaluate(now time.Time) bool {
	if s.next.IsZero() {
		s.next = s.schedule.Next(now)
		return false
	}
	if now.Before(s.next) {
		return false
	}
	s.next = s.schedule.Next(now)

	if !s.poster.Post(domain.Intent{Kind: domain.KindSyncState}, s.postTimeout) {
		slog.Warn("sync intent dropped by mailbox")
	}
	slog.Debug("sync state requested", slog.Time("next", s.next))
	return true
}

func (s *SyncScheduler) Shutdown() {
	s.ticker.Stop()
	slog.Info("sync scheduler shutdown")
}
