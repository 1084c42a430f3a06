package communication

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"lumen-remote/internal/dispatch/domain"
	"lumen-remote/internal/dispatch/usecases"

	"github.com/gorilla/websocket"
)

const (
	_defaultHandshakeTimeout = 2 * time.Second
	_closeWait               = time.Second
)

type WebSocketSinkConfig struct {
	URL              string
	MaxPayloadBytes  int
	HandshakeTimeout time.Duration
}

func NewWebSocketSink(cfg WebSocketSinkConfig, states usecases.DeviceStateCache) *WebSocketSink {
	if cfg.MaxPayloadBytes == 0 {
		cfg.MaxPayloadBytes = DefaultMaxPayloadBytes
	}
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = _defaultHandshakeTimeout
	}
	return &WebSocketSink{
		url:      cfg.URL,
		dialer:   &websocket.Dialer{HandshakeTimeout: cfg.HandshakeTimeout},
		codec:    JSONCodec{},
		maxBytes: cfg.MaxPayloadBytes,
		states:   states,
	}
}

var _ usecases.StreamSink = (*WebSocketSink)(nil)

// WebSocketSink keeps one socket open to the controller. Writes are
// serialized by mu; a reader goroutine per connection caches every state
// frame the controller pushes and notices when the socket dies.
type WebSocketSink struct {
	url       string
	dialer    *websocket.Dialer
	codec     Codec
	maxBytes  int
	states    usecases.DeviceStateCache
	mu        sync.Mutex
	conn      *websocket.Conn
	connected atomic.Bool
}

func (s *WebSocketSink) Name() string {
	return "websocket"
}

func (s *WebSocketSink) IsConnected() bool {
	return s.connected.Load()
}

// Reconnect drops the current socket, if any, and dials a new one.
func (s *WebSocketSink) Reconnect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn != nil {
		s.dropLocked(s.conn)
	}

	conn, _, err := s.dialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return &domain.TransportError{Sink: s.Name(), Op: "dial", Err: err}
	}
	s.conn = conn
	s.connected.Store(true)
	go s.readLoop(conn)

	slog.Info("websocket connected", slog.String("url", s.url))
	return nil
}

func (s *WebSocketSink) Send(ctx context.Context, patch domain.StatePatch) (time.Duration, error) {
	data, err := encodeBounded(s.codec, patch, s.maxBytes)
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil || !s.connected.Load() {
		return 0, &domain.TransportError{Sink: s.Name(), Op: "write", Err: domain.ErrNotConnected}
	}

	deadline, _ := ctx.Deadline()
	if err := s.conn.SetWriteDeadline(deadline); err != nil {
		s.dropLocked(s.conn)
		return 0, &domain.TransportError{Sink: s.Name(), Op: "write", Err: err}
	}

	started := time.Now()
	if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		s.dropLocked(s.conn)
		return 0, &domain.TransportError{Sink: s.Name(), Op: "write", Err: err}
	}
	return time.Since(started), nil
}

// Close sends a close frame and releases the socket.
func (s *WebSocketSink) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return
	}
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = s.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(_closeWait))
	s.dropLocked(s.conn)
}

func (s *WebSocketSink) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				slog.Warn("websocket closed unexpectedly", slog.Any("error", err))
			}
			s.mu.Lock()
			s.dropLocked(conn)
			s.mu.Unlock()
			return
		}
		s.storeState(data)
	}
}

// dropLocked forgets conn if it is still the current socket. A stale
// reader must not tear down a newer connection.
func (s *WebSocketSink) dropLocked(conn *websocket.Conn) {
	_ = conn.Close()
	if s.conn != conn {
		return
	}
	s.conn = nil
	if s.connected.Swap(false) {
		slog.Info("websocket disconnected", slog.String("url", s.url))
	}
}

func (s *WebSocketSink) storeState(data []byte) {
	if s.states == nil {
		return
	}
	state, err := domain.ParseDeviceState(data, time.Now())
	if err != nil {
		slog.Debug("ignoring websocket frame", slog.Any("error", err))
		return
	}
	if err := s.states.SetState(context.Background(), state); err != nil {
		slog.Warn("caching device state", slog.Any("error", err))
	}
}
