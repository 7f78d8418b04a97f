package di

import (
	"context"
	"fmt"
	"time"

	"CoinPilot/internal/domain/repository"
	domsvc "CoinPilot/internal/domain/service"
	"CoinPilot/internal/handler/api"
	mid "CoinPilot/internal/middleware"
	internalrepo "CoinPilot/internal/repository"
	"CoinPilot/internal/service/bybit"
	icache "CoinPilot/internal/service/cache"
	"CoinPilot/internal/service/ratelimit"
	"CoinPilot/internal/services/classifier"
	"CoinPilot/internal/services/indicator"
	"CoinPilot/internal/services/scorer"
	"CoinPilot/internal/services/signalgen"
	"CoinPilot/internal/services/simulator"
	"CoinPilot/internal/services/strategy"
	"CoinPilot/internal/state"
	"CoinPilot/internal/usecase"
	pkgch "CoinPilot/pkg/clickhouse"
	"CoinPilot/pkg/config"
	xhttp "CoinPilot/pkg/http"
	pkgkafka "CoinPilot/pkg/kafka"
	applogger "CoinPilot/pkg/logger"
	"CoinPilot/pkg/metrics"
	"CoinPilot/pkg/server"
)

// ProvideLogRing creates the in-memory buffer serving /api/logs.
func ProvideLogRing() *applogger.RingPublisher {
	return applogger.NewRingPublisher(1000)
}

// ProvideLogger creates the application logger with log aggregation attached.
func ProvideLogger(cfg *config.Config, ring *applogger.RingPublisher) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	l.AddCollector(&applogger.CollectionConfig{
		TimeInterval:   30 * time.Second,
		CountThreshold: 200,
		Topic:          "logs",
		Publisher:      ring,
	})
	return l, nil
}

// ProvideClickHouseClient creates a ClickHouse client and ensures schema.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
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

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db := cfg.ClickHouse.Database
	if err := client.InitSchema(ctx, []string{
		"CREATE DATABASE IF NOT EXISTS " + db,
		"CREATE TABLE IF NOT EXISTS " + db + ".candles (bucket DateTime, symbol String, interval String, open Float64, high Float64, low Float64, close Float64, vol Float64) ENGINE=MergeTree ORDER BY (symbol, interval, bucket)",
		"CREATE TABLE IF NOT EXISTS " + db + ".trades (ts DateTime, trade_id String, symbol String, action String, status String, strategy String, regime String, price Float64, close_price Float64, amount Float64, pnl Float64, confidence Float64, reason String, open_time DateTime, close_time DateTime) ENGINE=MergeTree ORDER BY (symbol, ts)",
	}); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}

	return client, nil
}

// ProvideKafkaProducer creates a Kafka producer.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
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

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideCandleArchive creates the ClickHouse candle archive.
func ProvideCandleArchive(chClient *pkgch.Client, cfg *config.Config, l *applogger.Logger) repository.CandleArchive {
	archive := internalrepo.NewCHCandleArchive(chClient, cfg.ClickHouse.Database+".candles")
	archive.SetLogger(l)
	return archive
}

// ProvideArchivePipeline wraps the archive with buffered, retried writes.
func ProvideArchivePipeline(archive repository.CandleArchive, m repository.Metrics) *mid.ArchivePipeline {
	return mid.NewArchivePipeline(archive, m, mid.WithBufferSize(2000))
}

// ProvideLedgerStorage creates the ClickHouse trade ledger.
func ProvideLedgerStorage(chClient *pkgch.Client, cfg *config.Config) repository.LedgerStorage {
	return internalrepo.NewCHLedgerStorage(chClient, cfg.ClickHouse.Database+".trades")
}

// ProvideLedgerPublisher creates the Kafka trade publisher.
func ProvideLedgerPublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.LedgerPublisher {
	return internalrepo.NewKafkaLedgerPublisher(producer, cfg.Kafka.Topic)
}

// ProvideLedgerRecorder routes trade records to the configured backend.
func ProvideLedgerRecorder(
	pub repository.LedgerPublisher,
	store repository.LedgerStorage,
	m repository.Metrics,
	cfg *config.Config,
) *usecase.LedgerRecorder {
	return usecase.NewLedgerRecorder(pub, store, m, cfg.Ledger.Backend)
}

// ProvideStateStore creates the shared trading state.
func ProvideStateStore(cfg *config.Config) *state.Store {
	return state.New(cfg.Trading.InitialBalance)
}

// ProvideBytesCache selects Redis or in-process caching for model responses.
func ProvideBytesCache(cfg *config.Config) icache.BytesCache {
	if cfg.Model.Redis.Enabled {
		return icache.NewRedisCache(icache.RedisConfig{
			Addr:     cfg.Model.Redis.Addr,
			Password: cfg.Model.Redis.Password,
			DB:       cfg.Model.Redis.DB,
		})
	}
	return icache.NewTTLCache()
}

// ProvideLearnedClassifier creates the model-service client, or nil when no
// service is configured.
func ProvideLearnedClassifier(cfg *config.Config, bc icache.BytesCache) *classifier.Learned {
	if cfg.Model.ServiceURL == "" {
		return nil
	}
	return classifier.NewLearned(cfg, bc)
}

// ProvideModelAdmin exposes the reload surface of the learned classifier.
func ProvideModelAdmin(l *classifier.Learned) domsvc.ModelAdmin {
	if l == nil {
		return nil
	}
	return l
}

// ProvideIndicatorEngine creates the indicator engine.
func ProvideIndicatorEngine() *indicator.Engine {
	return indicator.NewEngine()
}

// ProvideSelector creates the strategy selector.
func ProvideSelector() *strategy.Selector {
	return strategy.NewSelector()
}

// ProvideGenerator creates the signal generator.
func ProvideGenerator(cfg *config.Config) *signalgen.Generator {
	return signalgen.NewGenerator(cfg.Trading.ConfidenceFloor)
}

// ProvideSimulator creates the trade simulator.
func ProvideSimulator(cfg *config.Config) *simulator.Simulator {
	return simulator.New(cfg.Trading.PositionFraction)
}

// ProvideScorer creates the strategy performance scorer.
func ProvideScorer() *scorer.Scorer {
	return scorer.New()
}

// ProvidePipeline wires the per-cycle decision chain.
func ProvidePipeline(
	engine *indicator.Engine,
	learned *classifier.Learned,
	selector *strategy.Selector,
	generator *signalgen.Generator,
	sim *simulator.Simulator,
	sc *scorer.Scorer,
	store *state.Store,
	recorder *usecase.LedgerRecorder,
	m repository.Metrics,
	l *applogger.Logger,
	cfg *config.Config,
) *usecase.Pipeline {
	// A typed-nil *Learned must not leak into the interface field.
	var lc domsvc.MarketClassifier
	if learned != nil {
		lc = learned
	}
	return usecase.NewPipeline(
		engine,
		lc,
		classifier.NewRuleBased(),
		selector,
		generator,
		sim,
		sc,
		store,
		recorder,
		m,
		l,
		cfg.Trading.AutoCloseATR,
	)
}

// ProvideMarketFeed creates the Bybit REST client.
func ProvideMarketFeed(cfg *config.Config) repository.MarketFeed {
	return bybit.NewClient(cfg.Feed.RestURL, 10*time.Second)
}

// ProvideMarketStream creates the Bybit WebSocket stream; nil in rest mode.
func ProvideMarketStream(cfg *config.Config) repository.MarketStream {
	if cfg.Feed.Mode != "stream" {
		return nil
	}
	return bybit.NewStream(
		cfg.Feed.WebSocketURL,
		cfg.Trading.Symbols,
		cfg.Trading.Intervals,
		cfg.Feed.ReconnectDelay,
		cfg.Feed.PingInterval,
	)
}

// ProvideCollector creates the candle ingestion loop.
func ProvideCollector(
	feed repository.MarketFeed,
	stream repository.MarketStream,
	archive *mid.ArchivePipeline,
	pipeline *usecase.Pipeline,
	m repository.Metrics,
	l *applogger.Logger,
	cfg *config.Config,
) *usecase.Collector {
	return usecase.NewCollector(
		feed,
		stream,
		archive,
		pipeline,
		m,
		l,
		cfg.Trading.Symbols,
		cfg.Trading.Intervals,
		cfg.Trading.WindowSize,
		cfg.Trading.IngestInterval,
	)
}

// ProvideRetrainer creates the periodic model reload loop.
func ProvideRetrainer(admin domsvc.ModelAdmin, cfg *config.Config, m repository.Metrics, l *applogger.Logger) *usecase.Retrainer {
	return usecase.NewRetrainer(admin, cfg.Trading.RetrainInterval, m, l)
}

// ProvideRateLimiter creates the per-client rate limiter.
func ProvideRateLimiter() *ratelimit.Limiter {
	return ratelimit.New()
}

// ProvideHTTPHandler creates the dashboard HTTP handler.
func ProvideHTTPHandler(
	l *applogger.Logger,
	store *state.Store,
	sc *scorer.Scorer,
	pipeline *usecase.Pipeline,
	limiter *ratelimit.Limiter,
	ring *applogger.RingPublisher,
	cfg *config.Config,
) xhttp.Handler {
	symbol := ""
	if len(cfg.Trading.Symbols) > 0 {
		symbol = cfg.Trading.Symbols[0]
	}
	return api.NewDashboardHandler(l, store, sc, pipeline, limiter, ring, symbol)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	collector *usecase.Collector,
	retrainer *usecase.Retrainer,
	archive *mid.ArchivePipeline,
	recorder *usecase.LedgerRecorder,
	chClient *pkgch.Client,
	handler xhttp.Handler,
) *server.App {
	return server.New(cfg, l, collector, retrainer, archive, recorder, chClient, handler)
}
