//go:build wireinject
// +build wireinject

package wire

import (
	"lumen-remote/cmd/config"
	"lumen-remote/internal/dispatch/httpapi"
	"lumen-remote/internal/dispatch/persistence"
	"lumen-remote/internal/dispatch/usecases"
	"lumen-remote/internal/infra/async"

	"github.com/google/wire"
)

var PipelineSet = wire.NewSet(
	provideClock,
	provideTelemetry,
	providePendingQueue,
	provideBatchBuilder,
	provideTransportGuard,
	usecases.NewCongestionMetrics,
	provideCongestionController,
	provideDispatcher,
	providePipeline,
)

var TransportSet = wire.NewSet(
	provideCache,
	provideDeviceStateCache,
	provideHTTPSink,
	provideStreamSink,
	provideLinkProbe,
)

var FeedbackSet = wire.NewSet(
	usecases.NewBrokerFeedback,
	usecases.NewFeedbackWorker,
)

var StatusSet = wire.NewSet(
	wire.Bind(new(httpapi.StatsSource), new(*usecases.Pipeline)),
	wire.Bind(new(httpapi.IndicatorSource), new(*usecases.FeedbackWorker)),
	wire.Bind(new(usecases.DeviceStateCache), new(*persistence.DeviceStateCache)),
	wire.Bind(new(usecases.IntentPoster), new(*usecases.Pipeline)),
	httpapi.NewStatusController,
	provideStatusServer,
)

func InitializeApp(cfg config.AppConfig, broker async.InternalBroker) (*App, error) {
	wire.Build(
		PipelineSet,
		TransportSet,
		FeedbackSet,
		StatusSet,
		provideSyncScheduler,
		provideReconnectWorker,
		NewApp,
	)
	return nil, nil
}
