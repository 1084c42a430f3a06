package async

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
)

const _defaultReceiverBuffer = 16

type BrokerTopicName string

type BrokerMessage struct {
	Event string
	Value any
	Span  trace.Span
	Error error
}

type InternalBroker interface {
	Subscribe(topic BrokerTopicName) (Subscription, error)
	Unsubscribe(topic BrokerTopicName, subscription Subscription) error
	Publish(ctx context.Context, topic BrokerTopicName, msg BrokerMessage) error
	Stop()
}

var _ InternalBroker = (*LocalBroker)(nil)

var ErrTopicNotFound = errors.New("topic not found")
var ErrSubscriptorNotFound = errors.New("subscriptor not found")

func NewLocalBroker() *LocalBroker {
	return &LocalBroker{
		subscriptors: make(map[BrokerTopicName][]*subscriptor),
	}
}

// LocalBroker fans messages out to in-process subscribers. Publish never
// blocks the caller: every receiver is buffered and a message addressed
// to a full receiver is dropped for that receiver only.
type LocalBroker struct {
	mu           sync.RWMutex
	subscriptors map[BrokerTopicName][]*subscriptor
}

type subscriptor struct {
	once         sync.Once
	mu           sync.Mutex
	active       bool
	subscription Subscription
}

type Subscription struct {
	ID       string
	Receiver chan BrokerMessage
}

func (b *LocalBroker) Subscribe(topic BrokerTopicName) (Subscription, error) {
	receiver := make(chan BrokerMessage, _defaultReceiverBuffer)
	subscription := Subscription{ID: uuid.NewString(), Receiver: receiver}

	b.mu.Lock()
	b.subscriptors[topic] = append(b.subscriptors[topic], &subscriptor{subscription: subscription, active: true})
	b.mu.Unlock()

	return subscription, nil
}

func (b *LocalBroker) Unsubscribe(topic BrokerTopicName, subscription Subscription) error {
	b.mu.RLock()
	subscriptors, ok := b.subscriptors[topic]
	b.mu.RUnlock()
	if !ok {
		return ErrTopicNotFound
	}

	index := slices.IndexFunc(subscriptors, func(s *subscriptor) bool { return s.subscription.ID == subscription.ID })
	if index < 0 {
		return ErrSubscriptorNotFound
	}

	subscriptors[index].safeClose()

	return nil
}

func (b *LocalBroker) Publish(ctx context.Context, topic BrokerTopicName, msg BrokerMessage) error {
	msg.Span = trace.SpanFromContext(ctx)

	b.mu.RLock()
	topicSubscriptors, ok := b.subscriptors[topic]
	b.mu.RUnlock()
	if !ok {
		return ErrTopicNotFound
	}

	for _, s := range topicSubscriptors {
		if !s.deliver(msg) {
			slog.Debug("broker receiver full, message dropped",
				slog.String("topic", string(topic)),
				slog.String("subscription_id", s.subscription.ID),
				slog.String("event", msg.Event))
		}
	}

	return nil
}

func (b *LocalBroker) Stop() {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, subscriptors := range b.subscriptors {
		for _, s := range subscriptors {
			s.safeClose()
		}
	}
}

// deliver reports false only when an active receiver had no room.
func (s *subscriptor) deliver(msg BrokerMessage) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active {
		return true
	}
	select {
	case s.subscription.Receiver <- msg:
		return true
	default:
		return false
	}
}

func (s *subscriptor) safeClose() {
	s.once.Do(func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.active = false
		close(s.subscription.Receiver)
	})
}
