//go:build wireinject
// +build wireinject

package di

import (
	"CoinPilot/pkg/config"
	"CoinPilot/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Observability
		ProvideLogRing,
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideKafkaProducer,

		// Repositories
		ProvideCandleArchive,
		ProvideArchivePipeline,
		ProvideLedgerStorage,
		ProvideLedgerPublisher,

		// Market data
		ProvideMarketFeed,
		ProvideMarketStream,

		// Decision chain services
		ProvideStateStore,
		ProvideBytesCache,
		ProvideLearnedClassifier,
		ProvideModelAdmin,
		ProvideIndicatorEngine,
		ProvideSelector,
		ProvideGenerator,
		ProvideSimulator,
		ProvideScorer,

		// Use cases
		ProvideLedgerRecorder,
		ProvidePipeline,
		ProvideCollector,
		ProvideRetrainer,

		// HTTP surface
		ProvideRateLimiter,
		ProvideHTTPHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
