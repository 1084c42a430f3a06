package usecases

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"lumen-remote/internal/infra/async"
)

const (
	OutcomeTopic async.BrokerTopicName = "dispatch_outcomes"
	OutcomeEvent                       = "dispatch_outcome"
)

func NewBrokerFeedback(broker async.InternalBroker) *BrokerFeedback {
	return &BrokerFeedback{broker: broker}
}

var _ FeedbackNotifier = (*BrokerFeedback)(nil)

// BrokerFeedback forwards outcomes to whoever listens on OutcomeTopic.
type BrokerFeedback struct {
	broker async.InternalBroker
}

func (f *BrokerFeedback) OnOutcome(success bool) {
	msg := async.BrokerMessage{Event: OutcomeEvent, Value: success}
	err := f.broker.Publish(context.Background(), OutcomeTopic, msg)
	if err != nil && !errors.Is(err, async.ErrTopicNotFound) {
		slog.Warn("publishing dispatch outcome", slog.Any("error", err))
	}
}

type Indicator struct {
	LastSuccess   bool      `json:"last_success"`
	LastOutcomeAt time.Time `json:"last_outcome_at"`
	SuccessStreak int       `json:"success_streak"`
	FailureStreak int       `json:"failure_streak"`
	Successes     uint64    `json:"successes"`
	Failures      uint64    `json:"failures"`
}

func NewFeedbackWorker(broker async.InternalBroker) *FeedbackWorker {
	return &FeedbackWorker{broker: broker}
}

var _ async.Worker = (*FeedbackWorker)(nil)

// FeedbackWorker drives the success/failure indicator from dispatch
// outcomes.
type FeedbackWorker struct {
	broker    async.InternalBroker
	mu        sync.RWMutex
	indicator Indicator
}

func (w *FeedbackWorker) Run(ctx context.Context, done func()) {
	slog.Debug("feedback worker started")
	defer done()
	subscription, err := w.broker.Subscribe(OutcomeTopic)
	if err != nil {
		slog.Error("subscribing to topic", slog.String("topic", string(OutcomeTopic)), slog.Any("error", err))
		return
	}
	defer w.broker.Unsubscribe(OutcomeTopic, subscription)

	for {
		select {
		case <-ctx.Done():
			slog.Info("feedback worker cancelled")
			return
		case msg, ok := <-subscription.Receiver:
			if !ok {
				return
			}
			success, isBool := msg.Value.(bool)
			if msg.Event != OutcomeEvent || !isBool {
				slog.Warn("event not supported", slog.String("event", msg.Event))
				continue
			}
			w.record(success, time.Now())
		}
	}
}

func (w *FeedbackWorker) record(success bool, at time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()
	previous := w.indicator
	w.indicator.LastSuccess = success
	w.indicator.LastOutcomeAt = at
	if success {
		w.indicator.Successes++
		w.indicator.SuccessStreak++
		w.indicator.FailureStreak = 0
	} else {
		w.indicator.Failures++
		w.indicator.FailureStreak++
		w.indicator.SuccessStreak = 0
	}
	if previous.LastOutcomeAt.IsZero() || previous.LastSuccess != success {
		slog.Info("feedback indicator changed", slog.Bool("success", success))
	}
}

func (w *FeedbackWorker) Indicator() Indicator {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.indicator
}

func (w *FeedbackWorker) Shutdown() {
	slog.Info("feedback worker shutdown")
}
