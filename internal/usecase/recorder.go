package usecase

import (
	"context"
	"fmt"
	"time"

	"CoinPilot/internal/domain/models"
	drepo "CoinPilot/internal/domain/repository"
)

// LedgerRecorder routes trade records to the configured durable backend.
// Open and close events both go through here; a close re-records the same
// position id with its terminal status.
type LedgerRecorder struct {
	pub     drepo.LedgerPublisher
	store   drepo.LedgerStorage
	metrics drepo.Metrics
	backend string
}

func NewLedgerRecorder(pub drepo.LedgerPublisher, store drepo.LedgerStorage, metrics drepo.Metrics, backend string) *LedgerRecorder {
	return &LedgerRecorder{pub: pub, store: store, metrics: metrics, backend: backend}
}

// Record writes a single position snapshot to the backend.
func (r *LedgerRecorder) Record(ctx context.Context, symbol string, p *models.Position) error {
	if p == nil {
		return fmt.Errorf("position is nil")
	}

	start := time.Now()
	var err error
	switch r.backend {
	case "kafka":
		err = r.pub.Publish(ctx, symbol, p)
	case "clickhouse":
		err = r.store.Record(ctx, symbol, p)
	default:
		err = fmt.Errorf("unknown ledger backend: %s", r.backend)
	}
	if err != nil {
		r.metrics.RecordError("ledger_write")
		return fmt.Errorf("record trade: %w", err)
	}

	r.metrics.RecordLedgerWrite(r.backend)
	r.metrics.RecordLatency("ledger_write", time.Since(start).Seconds())
	return nil
}

// Close closes underlying resources if available.
func (r *LedgerRecorder) Close() {
	if r.pub != nil {
		_ = r.pub.Close()
	}
	if r.store != nil {
		_ = r.store.Close()
	}
}
