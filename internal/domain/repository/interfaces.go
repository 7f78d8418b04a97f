package repository

import (
	"context"

	"CoinPilot/internal/domain/models"
)

// MarketFeed fetches the most recent candle for a (symbol, interval) key.
// Used by the polling collector.
type MarketFeed interface {
	FetchLatest(ctx context.Context, symbol string, iv Interval) (*models.Candle, error)
	FetchHistory(ctx context.Context, symbol string, iv Interval, limit int) ([]models.Candle, error)
}

// MarketStream delivers confirmed candles over a live connection.
type MarketStream interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context) error
	Read(ctx context.Context) (<-chan *models.CandleEvent, <-chan error)
	Reconnect(ctx context.Context) error
	Close() error
	IsConnected() bool
}

// CandleArchive persists the rolling candle window. Best-effort collaborator;
// the decision pipeline never depends on it for correctness.
type CandleArchive interface {
	Store(ctx context.Context, symbol string, iv Interval, c *models.Candle) error
	LatestN(ctx context.Context, symbol string, iv Interval, n int) ([]models.Candle, error)
	Health(ctx context.Context) error
	Close() error
}

// LedgerStorage records trade history durably (open and close events).
type LedgerStorage interface {
	Record(ctx context.Context, symbol string, p *models.Position) error
	Health(ctx context.Context) error
	Close() error
}

// LedgerPublisher pushes trade records to downstream consumers.
type LedgerPublisher interface {
	Publish(ctx context.Context, symbol string, p *models.Position) error
	Close() error
}

// Metrics records pipeline observability signals.
type Metrics interface {
	RecordCycle(symbol, interval string)
	RecordSignal(action string)
	RecordTrade(event string) // "open", "win", "loss"
	RecordError(kind string)
	RecordLastPrice(symbol string, price float64)
	RecordBalance(balance float64)
	RecordLatency(op string, seconds float64)
	RecordLedgerWrite(backend string)
}
