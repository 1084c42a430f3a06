package wire

import (
	"fmt"
	"time"

	"lumen-remote/cmd/config"
	"lumen-remote/internal/dispatch/communication"
	"lumen-remote/internal/dispatch/httpapi"
	"lumen-remote/internal/dispatch/persistence"
	"lumen-remote/internal/dispatch/usecases"
	"lumen-remote/internal/infra/async"
	"lumen-remote/internal/infra/cache"
	"lumen-remote/internal/infra/clock"
	"lumen-remote/internal/infra/httpserver"
	"lumen-remote/internal/infra/mqtt"
	"lumen-remote/internal/infra/node"

	"go.opentelemetry.io/otel"
)

// App is everything main needs to start and stop the remote.
type App struct {
	Pipeline  *usecases.Pipeline
	Stream    usecases.StreamSink
	Telemetry *usecases.Telemetry
	Server    *httpserver.StandardServer
	Cache     *cache.RistrettoCache
	Workers   []async.Worker
}

func NewApp(
	pipeline *usecases.Pipeline,
	stream usecases.StreamSink,
	telemetry *usecases.Telemetry,
	server *httpserver.StandardServer,
	store *cache.RistrettoCache,
	link *communication.LinkProbe,
	scheduler *usecases.SyncScheduler,
	reconnects *usecases.ReconnectWorker,
	feedback *usecases.FeedbackWorker,
) *App {
	return &App{
		Pipeline:  pipeline,
		Stream:    stream,
		Telemetry: telemetry,
		Server:    server,
		Cache:     store,
		Workers:   []async.Worker{pipeline, link, scheduler, reconnects, feedback},
	}
}

func provideClock() clock.Clock {
	return clock.Real()
}

func provideTelemetry() *usecases.Telemetry {
	return usecases.NewTelemetry(otel.Meter("lumen_remote"))
}

func provideCache() (*cache.RistrettoCache, error) {
	return cache.New(cache.DefaultConfig())
}

func provideDeviceStateCache(cfg config.AppConfig, store *cache.RistrettoCache) *persistence.DeviceStateCache {
	return persistence.NewDeviceStateCache(store, cfg.Cache.StateTTL)
}

func providePendingQueue(cfg config.AppConfig) *usecases.PendingQueue {
	return usecases.NewPendingQueue(cfg.Pipeline.QueueCapacity, cfg.Pipeline.MergeWindow)
}

func provideBatchBuilder(cfg config.AppConfig) *usecases.BatchBuilder {
	return usecases.NewBatchBuilder(usecases.BatchBuilderConfig{
		BatchingThreshold: cfg.Batching.Threshold,
		BatchSize:         cfg.Batching.Size,
		MaxBatchSize:      cfg.Batching.MaxSize,
		DeadlineSlack:     cfg.Batching.DeadlineSlack,
	})
}

func provideTransportGuard(cfg config.AppConfig) *usecases.TransportGuard {
	return usecases.NewTransportGuard(usecases.GuardConfig{
		Base:       cfg.Guard.Base,
		MaxBackoff: cfg.Guard.MaxBackoff,
	})
}

func provideCongestionController(
	cfg config.AppConfig,
	metrics *usecases.CongestionMetrics,
	builder *usecases.BatchBuilder,
	guard *usecases.TransportGuard,
) *usecases.CongestionController {
	tuning := usecases.DefaultCongestionConfig()
	tuning.Interval = cfg.Congestion.Interval
	tuning.LatencyThreshold = cfg.Congestion.LatencyThreshold
	tuning.MinSuccessRatePct = cfg.Congestion.MinSuccessRatePct
	tuning.LevelStep = cfg.Congestion.LevelStep
	tuning.BatchingThreshold = usecases.Range{
		Floor: cfg.Batching.ThresholdFloor,
		Cap:   cfg.Batching.ThresholdCap,
		Step:  cfg.Batching.ThresholdStep,
	}
	tuning.RetryBase = usecases.Range{
		Floor: cfg.Guard.Base,
		Cap:   cfg.Guard.BaseCap,
		Step:  cfg.Guard.BaseStep,
	}
	tuning.BatchSizeFloor = cfg.Batching.Size
	return usecases.NewCongestionController(tuning, metrics, builder, guard)
}

func provideHTTPSink(cfg config.AppConfig, states *persistence.DeviceStateCache) *communication.HTTPSink {
	return communication.NewHTTPSink(communication.HTTPSinkConfig{
		BaseURL:         cfg.Device.HTTPURL,
		MaxPayloadBytes: cfg.Device.MaxPayloadBytes,
	}, states)
}

// provideStreamSink returns a nil StreamSink for the http transport, which
// leaves the dispatcher on request/response only.
func provideStreamSink(cfg config.AppConfig, states *persistence.DeviceStateCache) (usecases.StreamSink, error) {
	switch cfg.Device.Transport {
	case config.TransportWebSocket:
		return communication.NewWebSocketSink(communication.WebSocketSinkConfig{
			URL:              cfg.Device.WebSocketURL,
			MaxPayloadBytes:  cfg.Device.MaxPayloadBytes,
			HandshakeTimeout: cfg.Device.HandshakeTimeout,
		}, states), nil
	case config.TransportMQTT:
		clientID := cfg.MQTTClient.ClientID
		if clientID == "" {
			clientID = node.GetNodeInfo().ClientID()
		}
		client := mqtt.NewSimpleClient(mqtt.SimpleClientOpts{
			Broker:         cfg.MQTTClient.Broker,
			ClientID:       clientID,
			Username:       cfg.MQTTClient.Username,
			Password:       cfg.MQTTClient.Password, //pragma: allowlist secret
			ConnectTimeout: cfg.MQTTClient.ConnectTimeout,
		})
		sink, err := communication.NewMQTTSink(communication.MQTTSinkConfig{
			Topic:           cfg.MQTTClient.Topic,
			Codec:           cfg.MQTTClient.Codec,
			MaxPayloadBytes: cfg.Device.MaxPayloadBytes,
		}, client)
		if err != nil {
			return nil, err
		}
		if err := sink.Watch(); err != nil {
			return nil, err
		}
		return sink, nil
	case config.TransportHTTP:
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown transport %q: %w", cfg.Device.Transport, config.ErrInvalidConfig)
	}
}

func provideLinkProbe(cfg config.AppConfig) *communication.LinkProbe {
	return communication.NewLinkProbe(time.NewTicker(cfg.Device.LinkProbeInterval), cfg.Device.LinkAddress, cfg.Device.IOTimeout)
}

func provideDispatcher(
	cfg config.AppConfig,
	queue *usecases.PendingQueue,
	guard *usecases.TransportGuard,
	metrics *usecases.CongestionMetrics,
	stream usecases.StreamSink,
	fallback *communication.HTTPSink,
	link *communication.LinkProbe,
	feedback *usecases.BrokerFeedback,
	telemetry *usecases.Telemetry,
	clk clock.Clock,
) *usecases.Dispatcher {
	return usecases.NewDispatcher(
		usecases.DispatcherConfig{MaxRetries: cfg.Pipeline.MaxRetries, IOTimeout: cfg.Device.IOTimeout},
		queue, guard, metrics, stream, fallback, link, feedback, telemetry, clk,
	)
}

func providePipeline(
	cfg config.AppConfig,
	queue *usecases.PendingQueue,
	builder *usecases.BatchBuilder,
	dispatcher *usecases.Dispatcher,
	guard *usecases.TransportGuard,
	metrics *usecases.CongestionMetrics,
	controller *usecases.CongestionController,
	telemetry *usecases.Telemetry,
	clk clock.Clock,
) *usecases.Pipeline {
	return usecases.NewPipeline(usecases.PipelineConfig{
		MailboxCapacity: cfg.Pipeline.MailboxCapacity,
		PostTimeout:     cfg.Pipeline.PostTimeout,
		DrainWait:       cfg.Pipeline.DrainWait,
		DrainMax:        cfg.Pipeline.DrainMax,
	}, queue, builder, dispatcher, guard, metrics, controller, telemetry, clk)
}

func provideSyncScheduler(cfg config.AppConfig, pipeline *usecases.Pipeline) (*usecases.SyncScheduler, error) {
	return usecases.NewSyncScheduler(time.NewTicker(cfg.Sync.Tick), cfg.Sync.Schedule, pipeline, pipeline.PostTimeout())
}

func provideReconnectWorker(
	cfg config.AppConfig,
	stream usecases.StreamSink,
	link *communication.LinkProbe,
	pipeline *usecases.Pipeline,
) *usecases.ReconnectWorker {
	return usecases.NewReconnectWorker(time.NewTicker(cfg.Device.ReconnectInterval), stream, link, pipeline)
}

func provideStatusServer(cfg config.AppConfig, status *httpapi.StatusController) *httpserver.StandardServer {
	return httpserver.NewServer(httpserver.ServerConfig{
		Addr:           cfg.Server.Addr,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	}, status)
}
