package usecases

//go:generate mockgen -source=port.go -destination=../../../test/unit/doubles/dispatch/usecases/port_mock.go -package=usecases -mock_names=TransportSink=MockTransportSink,StreamSink=MockStreamSink,LinkMonitor=MockLinkMonitor,FeedbackNotifier=MockFeedbackNotifier,IntentPoster=MockIntentPoster

import (
	"context"
	"time"

	"lumen-remote/internal/dispatch/domain"
)

// TransportSink delivers one payload to the lighting controller and
// reports how long the exchange took. Encoding is the sink's business.
type TransportSink interface {
	Name() string
	Send(ctx context.Context, patch domain.StatePatch) (time.Duration, error)
}

// StreamSink is the persistent, low-latency variant. It is preferred
// whenever it reports itself connected.
type StreamSink interface {
	TransportSink
	IsConnected() bool
	Reconnect(ctx context.Context) error
}

type LinkMonitor interface {
	IsLinkAvailable() bool
}

// FeedbackNotifier must return immediately; delivery is best effort.
type FeedbackNotifier interface {
	OnOutcome(success bool)
}

type IntentPoster interface {
	Post(intent domain.Intent, timeout time.Duration) bool
}
