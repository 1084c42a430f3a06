package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"lumen-remote/cmd/config"
	"lumen-remote/cmd/remote/wire"
	"lumen-remote/internal/infra/async"
	"lumen-remote/internal/infra/node"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.opentelemetry.io/contrib/instrumentation/runtime"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
)

var (
	logLevelMapping = map[string]slog.Level{
		"debug": slog.LevelDebug,
		"info":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
	}
)

func main() {
	configFile := pflag.String("config", "", "path to the remote config file")
	pflag.String("log-level", "", "debug, info, warn or error")
	pflag.Parse()
	if err := viper.BindPFlag("general.log_level", pflag.Lookup("log-level")); err != nil {
		panic(err)
	}
	if *configFile != "" {
		viper.SetConfigFile(*configFile)
	}

	config := config.LoadConfig()
	nodeInfo := node.GetNodeInfo()

	level := logLevelMapping[config.General.LogLevel]
	baseHandler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{AddSource: true, Level: level, ReplaceAttr: slogReplaceAttr})
	handler := baseHandler.WithAttrs([]slog.Attr{
		slog.String("version", node.Version),
		slog.String("instance", nodeInfo.ID),
	})
	slog.SetDefault(slog.New(handler))
	slog.Info("lumen remote is initializing", slog.String("transport", config.Device.Transport))
	slog.Debug("config loaded", "data", config)

	shutdownOtel := startOTel(config.Telemetry.Enabled, nodeInfo)

	internalBroker := async.NewLocalBroker()
	app := handleWireInjector(wire.InitializeApp(config, internalBroker)).(*wire.App)

	if err := app.Telemetry.ObserveState(otel.Meter("lumen_remote"), app.Pipeline.Stats); err != nil {
		slog.Warn("state gauges unavailable", slog.Any("error", err))
	}

	appCtx, cancelFn := context.WithCancel(context.Background())
	go app.Server.Run()

	if app.Stream != nil {
		dialCtx, cancelDial := context.WithTimeout(appCtx, config.Device.HandshakeTimeout)
		if err := app.Stream.Reconnect(dialCtx); err != nil {
			slog.Warn("stream not available yet, falling back to http", slog.String("sink", app.Stream.Name()), slog.Any("error", err))
		}
		cancelDial()
	}

	var wg sync.WaitGroup
	for _, worker := range app.Workers {
		wg.Add(1)
		go worker.Run(appCtx, wg.Done)
	}

	signalChannel := make(chan os.Signal, 2)
	signal.Notify(signalChannel, os.Interrupt, syscall.SIGTERM)

	<-signalChannel
	slog.Info("shutting down")
	app.Server.Shutdown()

	cancelFn()
	for _, worker := range app.Workers {
		worker.Shutdown()
	}
	wg.Wait()

	if closer, ok := app.Stream.(interface{ Close() }); ok {
		closer.Close()
	}
	app.Cache.Close()
	internalBroker.Stop()
	if err := shutdownOtel(); err != nil {
		slog.Error("shutting down otel", slog.Any("error", err))
	}
	slog.Info("good bye!!!")
	os.Exit(0)
}

func slogReplaceAttr(groups []string, a slog.Attr) slog.Attr {
	if a.Key == slog.SourceKey {
		source := a.Value.Any().(*slog.Source)
		source.File = filepath.Base(source.File)
		return slog.Any(a.Key, source)
	}
	return a
}

type ShutdownFunc func() error

const (
	_defautlEndpoint = "localhost:4317"
	_collectPeriod   = 30 * time.Second
	_collectTimeout  = 35 * time.Second
	_minimumInterval = time.Minute
)

var (
	_histogramBuckets = []float64{5, 10, 25, 50, 100, 250, 500, 800, 1000, 2500, 5000}
)

// startOTel always installs SDK providers so instruments are live; the
// OTLP exporters are only attached when telemetry is enabled, since the
// remote usually runs without a collector in reach.
func startOTel(enabled bool, nodeInfo *node.Node) ShutdownFunc {
	slog.Info("starting OTel providers", slog.Bool("export", enabled))
	shutdown, err := otelStart(context.Background(), enabled, nodeInfo)
	if err != nil {
		panic(err)
	}

	return shutdown
}

func otelStart(ctx context.Context, enabled bool, nodeInfo *node.Node) (ShutdownFunc, error) {
	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceNameKey.String("lumen-remote"),
		semconv.ServiceVersionKey.String(nodeInfo.Version),
		semconv.ServiceInstanceIDKey.String(nodeInfo.ID),
	)

	metricsShutdownFunc, err := startMetricsProvider(ctx, enabled, res)
	if err != nil {
		return nil, err
	}

	traceShutdownFunc, err := startTraceProvider(ctx, enabled, res)
	if err != nil {
		return nil, err
	}

	return func() error {
		if err := metricsShutdownFunc(); err != nil {
			return err
		}
		if err := traceShutdownFunc(); err != nil {
			return err
		}
		return nil
	}, nil
}

func startTraceProvider(ctx context.Context, enabled bool, res *resource.Resource) (ShutdownFunc, error) {
	opts := []trace.TracerProviderOption{trace.WithResource(res)}
	if enabled {
		exp, err := newTraceExporter(ctx)
		if err != nil {
			return nil, err
		}
		opts = append(opts, trace.WithBatcher(exp))
	}

	tp := trace.NewTracerProvider(opts...)
	otel.SetTracerProvider(tp)

	return func() error {
		return tp.Shutdown(ctx)
	}, nil
}

func newTraceExporter(ctx context.Context) (trace.SpanExporter, error) {
	endpoint := _defautlEndpoint
	if value, ok := os.LookupEnv("LUMEN_REMOTE_OTELCOL_ENDPOINT"); ok {
		endpoint = value
	}

	return otlptracegrpc.New(
		ctx,
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithInsecure(),
	)
}

func startMetricsProvider(ctx context.Context, enabled bool, res *resource.Resource) (ShutdownFunc, error) {
	var exp metric.Exporter
	if enabled {
		var err error
		exp, err = newMetricExporter(ctx)
		if err != nil {
			return nil, err
		}
	}

	mp := newMeterProvider(exp, res)
	otel.SetMeterProvider(mp)

	err := runtime.Start(runtime.WithMinimumReadMemStatsInterval(_minimumInterval))
	if err != nil {
		return nil, err
	}

	return func() error {
		return mp.Shutdown(ctx)
	}, nil
}

func newMetricExporter(ctx context.Context) (metric.Exporter, error) {
	endpoint := _defautlEndpoint
	if value, ok := os.LookupEnv("LUMEN_REMOTE_OTELCOL_ENDPOINT"); ok {
		endpoint = value
	}

	return otlpmetricgrpc.New(
		ctx,
		otlpmetricgrpc.WithEndpoint(endpoint),
		otlpmetricgrpc.WithInsecure(),
	)
}

func newMeterProvider(metricExporter metric.Exporter, res *resource.Resource) *metric.MeterProvider {
	opts := []metric.Option{
		metric.WithResource(res),
		metric.WithView(metric.NewView(
			metric.Instrument{
				Name: "*",
				Kind: metric.InstrumentKindHistogram,
			},
			metric.Stream{
				Aggregation: metric.AggregationExplicitBucketHistogram{
					Boundaries: _histogramBuckets,
				},
			},
		)),
	}
	if metricExporter != nil {
		opts = append(opts, metric.WithReader(
			metric.NewPeriodicReader(
				metricExporter,
				metric.WithTimeout(_collectTimeout),
				metric.WithInterval(_collectPeriod))))
	}
	return metric.NewMeterProvider(opts...)
}

func handleWireInjector(value any, err error) any {
	if err != nil {
		panic(err)
	}

	return value
}
