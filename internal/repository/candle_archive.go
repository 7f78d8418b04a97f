package repository

import (
	"context"
	"database/sql"
	"fmt"

	"CoinPilot/internal/domain/models"
	domrepo "CoinPilot/internal/domain/repository"
	pkgch "CoinPilot/pkg/clickhouse"
	applogger "CoinPilot/pkg/logger"
)

// CHCandleArchive implements CandleArchive backed by ClickHouse.
type CHCandleArchive struct {
	db    *sql.DB
	table string
	l     *applogger.Logger
}

func NewCHCandleArchive(ch *pkgch.Client, table string) *CHCandleArchive {
	if table == "" {
		table = "candles"
	}
	return &CHCandleArchive{db: ch.DB(), table: table}
}

// SetLogger injects a structured logger.
func (s *CHCandleArchive) SetLogger(l *applogger.Logger) { s.l = l }

func (s *CHCandleArchive) Store(ctx context.Context, symbol string, iv domrepo.Interval, c *models.Candle) error {
	q := fmt.Sprintf("INSERT INTO %s (bucket, symbol, interval, open, high, low, close, vol) VALUES (?, ?, ?, ?, ?, ?, ?, ?)", s.table)
	_, err := s.db.ExecContext(ctx, q,
		c.Timestamp,
		symbol,
		string(iv),
		c.Open,
		c.High,
		c.Low,
		c.Close,
		c.Volume,
	)
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse candle insert error",
				applogger.String("table", s.table),
				applogger.String("symbol", symbol),
				applogger.String("interval", string(iv)),
				applogger.Error(err),
			)
		}
		return fmt.Errorf("store candle: %w", err)
	}
	return nil
}

// LatestN returns up to n most recent candles in ascending bucket order.
func (s *CHCandleArchive) LatestN(ctx context.Context, symbol string, iv domrepo.Interval, n int) ([]models.Candle, error) {
	if n <= 0 {
		return nil, nil
	}
	q := fmt.Sprintf(`
        SELECT bucket, open, high, low, close, vol
        FROM %s
        WHERE symbol = ? AND interval = ?
        ORDER BY bucket DESC
        LIMIT ?
    `, s.table)
	rows, err := s.db.QueryContext(ctx, q, symbol, string(iv), n)
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse latest_n query error",
				applogger.String("table", s.table),
				applogger.String("symbol", symbol),
				applogger.String("interval", string(iv)),
				applogger.Error(err),
			)
		}
		return nil, fmt.Errorf("latest candles: %w", err)
	}
	defer rows.Close()

	out := make([]models.Candle, 0, n)
	for rows.Next() {
		var c models.Candle
		if err := rows.Scan(&c.Timestamp, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume); err != nil {
			return nil, fmt.Errorf("scan candle: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	// Query returns newest-first; callers expect chronological windows.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

func (s *CHCandleArchive) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *CHCandleArchive) Close() error {
	return nil // Connection pool managed by pkg client
}

var _ domrepo.CandleArchive = (*CHCandleArchive)(nil)
