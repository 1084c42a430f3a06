package usecases

import (
	"context"
	"log/slog"
	"time"

	"lumen-remote/internal/dispatch/domain"
	"lumen-remote/internal/infra/async"
)

func NewReconnectWorker(ticker *time.Ticker, stream StreamSink, link LinkMonitor, poster IntentPoster) *ReconnectWorker {
	return &ReconnectWorker{
		ticker: ticker,
		stream: stream,
		link:   link,
		poster: poster,
	}
}

var _ async.Worker = (*ReconnectWorker)(nil)

// ReconnectWorker asks the pipeline to re-dial the stream whenever the
// link is up but the stream is not. The re-dial itself runs inside the
// pipeline, under the transport guard.
type ReconnectWorker struct {
	ticker *time.Ticker
	stream StreamSink
	link   LinkMonitor
	poster IntentPoster
}

func (w *ReconnectWorker) Run(ctx context.Context, done func()) {
	slog.Debug("reconnect worker started")
	defer done()
	for {
		select {
		case <-ctx.Done():
			slog.Info("reconnect worker cancelled")
			return
		case <-w.ticker.C:
			w.Check()
		}
	}
}

// Check posts a reconnect intent if one is needed and reports whether
// it did.
func (w *ReconnectWorker) Check() bool {
	if w.stream == nil || w.stream.IsConnected() {
		return false
	}
	if w.link != nil && !w.link.IsLinkAvailable() {
		return false
	}
	if !w.poster.Post(domain.Intent{Kind: domain.KindReconnectTransport}, 0) {
		slog.Debug("reconnect intent dropped by mailbox")
	}
	return true
}

func (w *ReconnectWorker) Shutdown() {
	w.ticker.Stop()
	slog.Info("reconnect worker shutdown")
}
