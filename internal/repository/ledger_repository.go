package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"CoinPilot/internal/domain/models"
	domrepo "CoinPilot/internal/domain/repository"
	pkgch "CoinPilot/pkg/clickhouse"
	pkgkafka "CoinPilot/pkg/kafka"
)

// CHLedgerStorage implements LedgerStorage for ClickHouse. Each Record call
// inserts a snapshot of the position, so a closed trade appears twice: once
// at open and once with its final status and pnl.
type CHLedgerStorage struct {
	db    *sql.DB
	table string
}

func NewCHLedgerStorage(ch *pkgch.Client, table string) *CHLedgerStorage {
	if table == "" {
		table = "trades"
	}
	return &CHLedgerStorage{db: ch.DB(), table: table}
}

func (s *CHLedgerStorage) Record(ctx context.Context, symbol string, p *models.Position) error {
	q := fmt.Sprintf("INSERT INTO %s (ts, trade_id, symbol, action, status, strategy, regime, price, close_price, amount, pnl, confidence, reason, open_time, close_time) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)", s.table)
	closeTime := p.CloseTime
	if closeTime.IsZero() {
		closeTime = time.Unix(0, 0).UTC()
	}
	_, err := s.db.ExecContext(ctx, q,
		time.Now().UTC(),
		p.ID,
		symbol,
		p.Action,
		p.Status,
		p.Strategy,
		p.Regime,
		p.Price,
		p.ClosePrice,
		p.Amount,
		p.PnL,
		p.Confidence,
		p.Reason,
		p.OpenTime,
		closeTime,
	)
	if err != nil {
		return fmt.Errorf("record trade: %w", err)
	}
	return nil
}

func (s *CHLedgerStorage) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *CHLedgerStorage) Close() error {
	return nil // Connection pool managed by pkg client
}

var _ domrepo.LedgerStorage = (*CHLedgerStorage)(nil)

// KafkaLedgerPublisher implements LedgerPublisher for Kafka.
type KafkaLedgerPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

func NewKafkaLedgerPublisher(producer *pkgkafka.Producer, topic string) *KafkaLedgerPublisher {
	return &KafkaLedgerPublisher{producer: producer, topic: topic}
}

func (p *KafkaLedgerPublisher) Publish(ctx context.Context, symbol string, pos *models.Position) error {
	return p.producer.Publish(ctx, p.topic, []byte(symbol), map[string]interface{}{
		"trade_id":    pos.ID,
		"symbol":      symbol,
		"action":      pos.Action,
		"status":      pos.Status,
		"strategy":    pos.Strategy,
		"regime":      pos.Regime,
		"price":       pos.Price,
		"close_price": pos.ClosePrice,
		"amount":      pos.Amount,
		"pnl":         pos.PnL,
		"confidence":  pos.Confidence,
		"reason":      pos.Reason,
		"open_time":   pos.OpenTime.Unix(),
		"close_time":  pos.CloseTime.Unix(),
	})
}

func (p *KafkaLedgerPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}

var _ domrepo.LedgerPublisher = (*KafkaLedgerPublisher)(nil)
