package di

import (
	"context"
	"fmt"
	"time"

	"NodeFlow/internal/domain/repository"
	"NodeFlow/internal/engine"
	"NodeFlow/internal/handler/api"
	mid "NodeFlow/internal/middleware"
	internalrepo "NodeFlow/internal/repository"
	"NodeFlow/internal/service/feed"
	"NodeFlow/internal/usecase"
	"NodeFlow/pkg/cache"
	pkgch "NodeFlow/pkg/clickhouse"
	"NodeFlow/pkg/config"
	pkgkafka "NodeFlow/pkg/kafka"
	"NodeFlow/pkg/logger"
	"NodeFlow/pkg/metrics"
	"NodeFlow/pkg/server"
)

// liveStaleness rejects live-feed trades older than this. Replay runs
// have no staleness bound.
const liveStaleness = 30 * time.Second

// ProvideLogger creates the application logger. Production runs emit
// JSON; everything else gets the console writer.
func ProvideLogger(cfg *config.Config) (*logger.Logger, error) {
	lc := &logger.Config{Level: "debug", Format: "console", Output: "stdout"}
	if cfg.Environment == "production" {
		lc.Level = "info"
		lc.Format = "json"
	}
	return logger.New(lc)
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideEngine builds the trading engine from the validated config.
func ProvideEngine(cfg *config.Config, log *logger.Logger, m repository.Metrics) (*engine.Engine, error) {
	return engine.New(cfg.Engine, log, m)
}

// ProvideClickHouseClient creates a ClickHouse client, nil when the
// store is disabled.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if !cfg.ClickHouse.Enabled {
		return nil, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}
	return client, nil
}

// ProvideBarStore creates the bar store and its schema, nil when
// ClickHouse is disabled.
func ProvideBarStore(client *pkgch.Client) (repository.BarStore, error) {
	if client == nil {
		return nil, nil
	}
	store := internalrepo.NewClickHouseBarStore(client, "bars")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := store.Init(ctx); err != nil {
		return nil, fmt.Errorf("bar store schema: %w", err)
	}
	return store, nil
}

// ProvideActionJournal creates the action journal and its schema, nil
// when ClickHouse is disabled.
func ProvideActionJournal(client *pkgch.Client, log *logger.Logger) (*internalrepo.ClickHouseActionJournal, error) {
	if client == nil {
		return nil, nil
	}
	journal := internalrepo.NewClickHouseActionJournal(client, "actions", log)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := journal.Init(ctx); err != nil {
		return nil, fmt.Errorf("action journal schema: %w", err)
	}
	return journal, nil
}

// ProvideRedisCache creates the Redis cache, nil when disabled.
func ProvideRedisCache(cfg *config.Config) (cache.Service, error) {
	if !cfg.Redis.Enabled {
		return nil, nil
	}
	rc, err := cache.NewRedisCache(
		cache.WithRedisHost(cfg.Redis.Host),
		cache.WithRedisPort(cfg.Redis.Port),
		cache.WithRedisPassword(cfg.Redis.Password),
		cache.WithRedisDB(cfg.Redis.DB),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	// memory L1 keeps the per-date snapshot lookup off Redis
	return cache.NewLayeredCache(rc, cache.WithLayeredMemorySize(64)), nil
}

// ProvideLevelStore creates the daily level snapshot store, nil when
// Redis is disabled.
func ProvideLevelStore(c cache.Service, cfg *config.Config) repository.LevelStore {
	if c == nil {
		return nil
	}
	return internalrepo.NewRedisLevelStore(c, cfg.Redis.SnapshotTTL)
}

// ProvideKafkaProducer creates a Kafka producer, nil when no brokers
// are configured.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if len(cfg.Kafka.Brokers) == 0 {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideActionPublisher delivers actions to Kafka when a producer
// exists, otherwise to the log.
func ProvideActionPublisher(producer *pkgkafka.Producer, cfg *config.Config, log *logger.Logger) repository.ActionPublisher {
	if producer == nil {
		return internalrepo.NewLogActionPublisher(log)
	}
	return internalrepo.NewKafkaActionPublisher(producer, cfg.Kafka.ActionsTopic)
}

// ProvideTradeProcessor creates the engine-driving processor.
func ProvideTradeProcessor(
	eng *engine.Engine,
	pub repository.ActionPublisher,
	journal *internalrepo.ClickHouseActionJournal,
	m repository.Metrics,
	log *logger.Logger,
) *usecase.TradeProcessor {
	var j repository.ActionJournal
	if journal != nil {
		j = journal
	}
	return usecase.NewTradeProcessor(eng, pub, j, m, log)
}

// ProvideTradeGate validates inbound trades in front of the processor.
func ProvideTradeGate(proc *usecase.TradeProcessor, m repository.Metrics, cfg *config.Config) *mid.TradeGate {
	opts := []mid.GateOption{mid.WithSymbol(cfg.Engine.Symbol)}
	if cfg.Source == "websocket" {
		opts = append(opts, mid.WithMaxStaleness(liveStaleness))
	}
	return mid.NewTradeGate(proc, m, opts...)
}

// ProvideMarketStream creates the live feed stream, nil in replay mode.
func ProvideMarketStream(cfg *config.Config, log *logger.Logger) repository.MarketStream {
	if cfg.Source != "websocket" {
		return nil
	}
	return feed.New(
		cfg.Feed.URL,
		cfg.Feed.APIKey,
		cfg.Engine.Symbol,
		cfg.Feed.ReconnectDelay,
		cfg.Feed.PingInterval,
		log,
	)
}

// ProvideTradeCollector creates the collector, nil in replay mode.
func ProvideTradeCollector(stream repository.MarketStream, gate *mid.TradeGate, log *logger.Logger) *usecase.TradeCollector {
	if stream == nil {
		return nil
	}
	return usecase.NewTradeCollector(stream, gate, log)
}

// ProvideKafkaConsumer creates the replay consumer, nil in live mode.
func ProvideKafkaConsumer(cfg *config.Config) (*pkgkafka.Consumer, error) {
	if cfg.Source != "kafka" {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

// ProvideReplayHandler consumes the trades topic through the gate.
func ProvideReplayHandler(gate *mid.TradeGate, m repository.Metrics, cfg *config.Config) *usecase.TradeReplayHandler {
	return usecase.NewTradeReplayHandler(cfg.Kafka.TradesTopic, gate, m)
}

// ProvideBarPersister batches finished bars into the store, nil when
// ClickHouse is disabled.
func ProvideBarPersister(store repository.BarStore, log *logger.Logger) *usecase.BarPersister {
	if store == nil {
		return nil
	}
	return usecase.NewBarPersister(store, log)
}

// ProvideSessionLevels creates the daily level resolver.
func ProvideSessionLevels(store repository.BarStore, levels repository.LevelStore, cfg *config.Config, log *logger.Logger) (*usecase.SessionLevels, error) {
	return usecase.NewSessionLevels(store, levels, cfg.Engine.Symbol, log)
}

// ProvideBarsUseCase serves stored bars over the API, nil when
// ClickHouse is disabled.
func ProvideBarsUseCase(store repository.BarStore) *usecase.BarsUseCase {
	if store == nil {
		return nil
	}
	return usecase.NewBarsUseCase(store)
}

// ProvideMonitorHandler exposes engine state over HTTP.
func ProvideMonitorHandler(
	log *logger.Logger,
	proc *usecase.TradeProcessor,
	bars *usecase.BarsUseCase,
	collector *usecase.TradeCollector,
	cfg *config.Config,
) *api.MonitorEchoHandler {
	var conn api.ConnStatus
	if collector != nil {
		conn = collector
	}
	return api.NewMonitorEchoHandler(log, proc, bars, conn, cfg.Engine.Symbol)
}

// ProvideApp creates the application server. A broker-backed run also
// gets the error-log collector attached, publishing aggregates to the
// log topic.
func ProvideApp(
	cfg *config.Config,
	log *logger.Logger,
	proc *usecase.TradeProcessor,
	collector *usecase.TradeCollector,
	consumer *pkgkafka.Consumer,
	producer *pkgkafka.Producer,
	replay *usecase.TradeReplayHandler,
	persister *usecase.BarPersister,
	sessions *usecase.SessionLevels,
	chClient *pkgch.Client,
	journal *internalrepo.ClickHouseActionJournal,
	handler *api.MonitorEchoHandler,
) *server.App {
	if consumer != nil {
		consumer.WithConsumerHook(pkgkafka.NoopHook{})
	}
	if producer != nil {
		log.AddCollector(&logger.CollectionConfig{
			TimeInterval:   30 * time.Second,
			CountThreshold: 100,
			Topic:          "nodeflow.logs",
			Publisher:      internalrepo.NewKafkaLogPublisher(producer),
		})
	}
	app := server.New(cfg, log, proc, collector, consumer, replay, persister, sessions, chClient, journal)
	app.SetHTTPHandler(handler)
	return app
}
