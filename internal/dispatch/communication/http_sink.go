package communication

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"lumen-remote/internal/dispatch/domain"
	"lumen-remote/internal/dispatch/usecases"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	_statePath        = "/json/state"
	_maxResponseBytes = 64 << 10
)

type HTTPSinkConfig struct {
	BaseURL         string
	MaxPayloadBytes int
}

func NewHTTPSink(cfg HTTPSinkConfig, states usecases.DeviceStateCache) *HTTPSink {
	if cfg.MaxPayloadBytes == 0 {
		cfg.MaxPayloadBytes = DefaultMaxPayloadBytes
	}
	return &HTTPSink{
		endpoint: strings.TrimRight(cfg.BaseURL, "/") + _statePath,
		client:   &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
		codec:    JSONCodec{},
		maxBytes: cfg.MaxPayloadBytes,
		states:   states,
	}
}

var _ usecases.TransportSink = (*HTTPSink)(nil)

// HTTPSink is the request/response fallback: one POST per payload. The
// per-attempt timeout comes from the caller's context.
type HTTPSink struct {
	endpoint string
	client   *http.Client
	codec    Codec
	maxBytes int
	states   usecases.DeviceStateCache
}

func (s *HTTPSink) Name() string {
	return "http"
}

func (s *HTTPSink) Send(ctx context.Context, patch domain.StatePatch) (time.Duration, error) {
	body, err := encodeBounded(s.codec, patch, s.maxBytes)
	if err != nil {
		return 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	started := time.Now()
	resp, err := s.client.Do(req)
	if err != nil {
		return 0, &domain.TransportError{Sink: s.Name(), Op: "post", Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, _maxResponseBytes))
	latency := time.Since(started)
	if err != nil {
		return 0, &domain.TransportError{Sink: s.Name(), Op: "read", Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, &domain.TransportError{Sink: s.Name(), Op: "post", StatusCode: resp.StatusCode}
	}

	if patch.WantState {
		s.storeState(ctx, data)
	}
	return latency, nil
}

func (s *HTTPSink) storeState(ctx context.Context, data []byte) {
	if s.states == nil {
		return
	}
	state, err := domain.ParseDeviceState(data, time.Now())
	if err != nil {
		slog.Warn("device returned unreadable state", slog.String("sink", s.Name()), slog.Any("error", err))
		return
	}
	if err := s.states.SetState(ctx, state); err != nil {
		slog.Warn("caching device state", slog.Any("error", err))
	}
}
