//go:build wireinject
// +build wireinject

package di

import (
	"NodeFlow/pkg/config"
	"NodeFlow/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Observability
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideRedisCache,
		ProvideKafkaProducer,
		ProvideKafkaConsumer,

		// Repositories
		ProvideBarStore,
		ProvideActionJournal,
		ProvideLevelStore,
		ProvideActionPublisher,
		ProvideMarketStream,

		// Engine and use cases
		ProvideEngine,
		ProvideTradeProcessor,
		ProvideTradeGate,
		ProvideTradeCollector,
		ProvideReplayHandler,
		ProvideBarPersister,
		ProvideSessionLevels,
		ProvideBarsUseCase,

		// HTTP surface
		ProvideMonitorHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
