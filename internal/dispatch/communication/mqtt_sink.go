package communication

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"lumen-remote/internal/dispatch/domain"
	"lumen-remote/internal/dispatch/usecases"
	"lumen-remote/internal/infra/mqtt"
)

const (
	_apiSuffix     = "/api"
	_statusSuffix  = "/status"
	_statusOffline = "offline"
)

type MQTTSinkConfig struct {
	Topic           string
	Codec           string
	MaxPayloadBytes int
}

func NewMQTTSink(cfg MQTTSinkConfig, client mqtt.Client) (*MQTTSink, error) {
	codec, err := NewCodec(cfg.Codec)
	if err != nil {
		return nil, err
	}
	if cfg.MaxPayloadBytes == 0 {
		cfg.MaxPayloadBytes = DefaultMaxPayloadBytes
	}
	topic := strings.TrimRight(cfg.Topic, "/")
	sink := &MQTTSink{
		client:      client,
		apiTopic:    topic + _apiSuffix,
		statusTopic: topic + _statusSuffix,
		codec:       codec,
		maxBytes:    cfg.MaxPayloadBytes,
	}
	sink.deviceOnline.Store(true)
	return sink, nil
}

var _ usecases.StreamSink = (*MQTTSink)(nil)

// MQTTSink publishes payloads to the controller's API topic. It counts
// as connected while the broker session is up and the controller has not
// announced itself offline.
type MQTTSink struct {
	client       mqtt.Client
	apiTopic     string
	statusTopic  string
	codec        Codec
	maxBytes     int
	deviceOnline atomic.Bool
}

func (s *MQTTSink) Name() string {
	return "mqtt"
}

func (s *MQTTSink) IsConnected() bool {
	return s.client.IsConnected() && s.deviceOnline.Load()
}

// Watch follows the controller's availability topic.
func (s *MQTTSink) Watch() error {
	if err := s.client.Subscribe(s.statusTopic, 0, s.onStatus); err != nil {
		return fmt.Errorf("watching device status: %w", err)
	}
	return nil
}

func (s *MQTTSink) onStatus(_ mqtt.Client, msg mqtt.Message) {
	online := strings.TrimSpace(string(msg.Payload())) != _statusOffline
	if s.deviceOnline.Swap(online) != online {
		slog.Info("device availability changed", slog.String("topic", msg.Topic()), slog.Bool("online", online))
	}
}

func (s *MQTTSink) Reconnect(ctx context.Context) error {
	if err := s.client.Connect(ctx); err != nil {
		return &domain.TransportError{Sink: s.Name(), Op: "connect", Err: err}
	}
	return nil
}

func (s *MQTTSink) Send(ctx context.Context, patch domain.StatePatch) (time.Duration, error) {
	data, err := encodeBounded(s.codec, patch, s.maxBytes)
	if err != nil {
		return 0, err
	}
	started := time.Now()
	if err := s.client.Publish(ctx, s.apiTopic, data); err != nil {
		return 0, &domain.TransportError{Sink: s.Name(), Op: "publish", Err: err}
	}
	return time.Since(started), nil
}

func (s *MQTTSink) Close() {
	s.client.Disconnect()
}
