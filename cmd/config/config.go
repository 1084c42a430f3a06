package config

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"
)

var loadConfigOnce sync.Once
var configInstance AppConfig

// LoadConfig reads the process-wide configuration once. A missing config
// file is fine: every key has a default and can be set from the
// environment (LUMEN_REMOTE_GUARD_BASE=300ms).
func LoadConfig() AppConfig {
	loadConfigOnce.Do(func() {
		cfg, err := Load(viper.GetViper())
		if err != nil {
			panic(fmt.Errorf("fatal error config file: %w", err))
		}
		configInstance = cfg
	})

	return configInstance
}

func Load(v *viper.Viper) (AppConfig, error) {
	v.SetEnvPrefix("lumen_remote")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetConfigName("remote")
	v.AddConfigPath("config")
	v.AddConfigPath("/config")
	SetDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return AppConfig{}, err
		}
	}

	cfg := AppConfig{
		General: GeneralConfig{
			LogLevel: v.GetString("general.log_level"),
		},
		Device: DeviceConfig{
			Transport:         v.GetString("device.transport"),
			HTTPURL:           v.GetString("device.http_url"),
			WebSocketURL:      v.GetString("device.websocket_url"),
			LinkAddress:       v.GetString("device.link_address"),
			LinkProbeInterval: v.GetDuration("device.link_probe_interval"),
			IOTimeout:         v.GetDuration("device.io_timeout"),
			HandshakeTimeout:  v.GetDuration("device.handshake_timeout"),
			MaxPayloadBytes:   v.GetInt("device.max_payload_bytes"),
			ReconnectInterval: v.GetDuration("device.reconnect_interval"),
		},
		MQTTClient: MQTTClientConfig{
			Broker:         v.GetString("mqtt_client.broker"),
			ClientID:       v.GetString("mqtt_client.client_id"),
			Username:       v.GetString("mqtt_client.username"),
			Password:       v.GetString("mqtt_client.password"),
			Topic:          v.GetString("mqtt_client.topic"),
			Codec:          v.GetString("mqtt_client.codec"),
			ConnectTimeout: v.GetDuration("mqtt_client.connect_timeout"),
		},
		Pipeline: PipelineConfig{
			MailboxCapacity: v.GetInt("pipeline.mailbox_capacity"),
			PostTimeout:     v.GetDuration("pipeline.post_timeout"),
			DrainWait:       v.GetDuration("pipeline.drain_wait"),
			DrainMax:        v.GetInt("pipeline.drain_max"),
			QueueCapacity:   v.GetInt("pipeline.queue_capacity"),
			MergeWindow:     v.GetDuration("pipeline.merge_window"),
			MaxRetries:      v.GetInt("pipeline.max_retries"),
		},
		Batching: BatchingConfig{
			Threshold:      v.GetDuration("batching.threshold"),
			ThresholdFloor: v.GetDuration("batching.threshold_floor"),
			ThresholdCap:   v.GetDuration("batching.threshold_cap"),
			ThresholdStep:  v.GetDuration("batching.threshold_step"),
			Size:           v.GetInt("batching.size"),
			MaxSize:        v.GetInt("batching.max_size"),
			DeadlineSlack:  v.GetDuration("batching.deadline_slack"),
		},
		Guard: GuardConfig{
			Base:       v.GetDuration("guard.base"),
			BaseCap:    v.GetDuration("guard.base_cap"),
			BaseStep:   v.GetDuration("guard.base_step"),
			MaxBackoff: v.GetDuration("guard.max_backoff"),
		},
		Congestion: CongestionConfig{
			Interval:          v.GetDuration("congestion.interval"),
			LatencyThreshold:  v.GetDuration("congestion.latency_threshold"),
			MinSuccessRatePct: v.GetFloat64("congestion.min_success_rate_pct"),
			LevelStep:         v.GetInt("congestion.level_step"),
		},
		Sync: SyncConfig{
			Schedule: v.GetString("sync.schedule"),
			Tick:     v.GetDuration("sync.tick"),
		},
		Cache: CacheConfig{
			StateTTL: v.GetDuration("cache.state_ttl"),
		},
		Server: ServerConfig{
			Addr:           v.GetString("server.addr"),
			AllowedOrigins: v.GetStringSlice("server.allowed_origins"),
		},
		Telemetry: TelemetryConfig{
			Enabled: v.GetBool("telemetry.enabled"),
		},
	}

	return cfg, cfg.Validate()
}

func SetDefaults(v *viper.Viper) {
	v.SetDefault("general.log_level", "info")

	v.SetDefault("device.transport", TransportWebSocket)
	v.SetDefault("device.http_url", "http://192.168.4.1")
	v.SetDefault("device.websocket_url", "ws://192.168.4.1/ws")
	v.SetDefault("device.link_address", "192.168.4.1:80")
	v.SetDefault("device.link_probe_interval", 2*time.Second)
	v.SetDefault("device.io_timeout", 800*time.Millisecond)
	v.SetDefault("device.handshake_timeout", 2*time.Second)
	v.SetDefault("device.max_payload_bytes", 512)
	v.SetDefault("device.reconnect_interval", 5*time.Second)

	v.SetDefault("mqtt_client.broker", "tcp://localhost:1883")
	v.SetDefault("mqtt_client.topic", "wled/remote")
	v.SetDefault("mqtt_client.codec", "json")
	v.SetDefault("mqtt_client.connect_timeout", 2*time.Second)

	v.SetDefault("pipeline.mailbox_capacity", 32)
	v.SetDefault("pipeline.post_timeout", 10*time.Millisecond)
	v.SetDefault("pipeline.drain_wait", 50*time.Millisecond)
	v.SetDefault("pipeline.drain_max", 16)
	v.SetDefault("pipeline.queue_capacity", 16)
	v.SetDefault("pipeline.merge_window", 200*time.Millisecond)
	v.SetDefault("pipeline.max_retries", 5)

	v.SetDefault("batching.threshold", 150*time.Millisecond)
	v.SetDefault("batching.threshold_floor", 100*time.Millisecond)
	v.SetDefault("batching.threshold_cap", 1000*time.Millisecond)
	v.SetDefault("batching.threshold_step", 50*time.Millisecond)
	v.SetDefault("batching.size", 3)
	v.SetDefault("batching.max_size", 8)
	v.SetDefault("batching.deadline_slack", time.Second)

	v.SetDefault("guard.base", 200*time.Millisecond)
	v.SetDefault("guard.base_cap", 1000*time.Millisecond)
	v.SetDefault("guard.base_step", 100*time.Millisecond)
	v.SetDefault("guard.max_backoff", 6000*time.Millisecond)

	v.SetDefault("congestion.interval", 1000*time.Millisecond)
	v.SetDefault("congestion.latency_threshold", 500*time.Millisecond)
	v.SetDefault("congestion.min_success_rate_pct", 90.0)
	v.SetDefault("congestion.level_step", 10)

	v.SetDefault("sync.schedule", "@every 30s")
	v.SetDefault("sync.tick", time.Second)

	v.SetDefault("cache.state_ttl", 60*time.Second)

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:5173", "http://127.0.0.1:5173"})

	v.SetDefault("telemetry.enabled", false)
}

const (
	TransportWebSocket = "websocket"
	TransportMQTT      = "mqtt"
	TransportHTTP      = "http"
)

var ErrInvalidConfig = errors.New("invalid configuration")

func (c AppConfig) Validate() error {
	switch c.Device.Transport {
	case TransportWebSocket, TransportMQTT, TransportHTTP:
	default:
		return fmt.Errorf("device.transport %q: %w", c.Device.Transport, ErrInvalidConfig)
	}
	if c.Pipeline.MailboxCapacity <= 0 || c.Pipeline.QueueCapacity <= 0 {
		return fmt.Errorf("pipeline capacities must be positive: %w", ErrInvalidConfig)
	}
	if c.Batching.Size > c.Batching.MaxSize {
		return fmt.Errorf("batching.size %d above batching.max_size %d: %w", c.Batching.Size, c.Batching.MaxSize, ErrInvalidConfig)
	}
	if c.Batching.ThresholdFloor > c.Batching.ThresholdCap || c.Guard.Base > c.Guard.BaseCap {
		return fmt.Errorf("floor above cap: %w", ErrInvalidConfig)
	}
	return nil
}

type AppConfig struct {
	General    GeneralConfig
	Device     DeviceConfig
	MQTTClient MQTTClientConfig
	Pipeline   PipelineConfig
	Batching   BatchingConfig
	Guard      GuardConfig
	Congestion CongestionConfig
	Sync       SyncConfig
	Cache      CacheConfig
	Server     ServerConfig
	Telemetry  TelemetryConfig
}

type GeneralConfig struct {
	LogLevel string
}

// DeviceConfig points at the lighting controller. Transport picks the
// persistent stream; the HTTP endpoint is always the fallback.
type DeviceConfig struct {
	Transport         string
	HTTPURL           string
	WebSocketURL      string
	LinkAddress       string
	LinkProbeInterval time.Duration
	IOTimeout         time.Duration
	HandshakeTimeout  time.Duration
	MaxPayloadBytes   int
	ReconnectInterval time.Duration
}

type MQTTClientConfig struct {
	Broker         string
	ClientID       string
	Username       string
	Password       string
	Topic          string
	Codec          string
	ConnectTimeout time.Duration
}

type PipelineConfig struct {
	MailboxCapacity int
	PostTimeout     time.Duration
	DrainWait       time.Duration
	DrainMax        int
	QueueCapacity   int
	MergeWindow     time.Duration
	MaxRetries      int
}

type BatchingConfig struct {
	Threshold      time.Duration
	ThresholdFloor time.Duration
	ThresholdCap   time.Duration
	ThresholdStep  time.Duration
	Size           int
	MaxSize        int
	DeadlineSlack  time.Duration
}

type GuardConfig struct {
	Base       time.Duration
	BaseCap    time.Duration
	BaseStep   time.Duration
	MaxBackoff time.Duration
}

type CongestionConfig struct {
	Interval          time.Duration
	LatencyThreshold  time.Duration
	MinSuccessRatePct float64
	LevelStep         int
}

type SyncConfig struct {
	Schedule string
	Tick     time.Duration
}

type CacheConfig struct {
	StateTTL time.Duration
}

type ServerConfig struct {
	Addr           string
	AllowedOrigins []string
}

type TelemetryConfig struct {
	Enabled bool
}
