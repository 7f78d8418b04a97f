package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CoinPilot/internal/domain/models"
	drepo "CoinPilot/internal/domain/repository"
	"CoinPilot/internal/state"
)

func newTestCollector(t *testing.T, store *state.Store, windowSize int) (*Collector, *fakeMetrics) {
	t.Helper()
	m := newFakeMetrics()
	c := NewCollector(
		nil,
		nil,
		nil,
		newTestPipeline(t, store, m),
		m,
		testLogger(t),
		[]string{"BTCUSDT"},
		[]string{"15m"},
		windowSize,
		time.Minute,
	)
	return c, m
}

func TestIngestAppendsAndRunsCycle(t *testing.T) {
	store := state.New(10000)
	c, m := newTestCollector(t, store, 200)
	ctx := context.Background()

	base := time.Date(2024, 10, 10, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 30; i++ {
		c.ingest(ctx, "BTCUSDT", drepo.IV15m, &models.Candle{
			Timestamp: base.Add(time.Duration(i) * 15 * time.Minute),
			Open:      100, High: 101, Low: 99, Close: 100, Volume: 10,
		})
	}

	assert.Equal(t, 30, m.cycles)
	require.Len(t, c.windows["BTCUSDT|15m"], 30)
	// with 20+ candles the rule classifier produces a real regime
	assert.Equal(t, "Sideways/Breakout", store.Snapshot().Condition.Condition)
}

func TestIngestReplacesSameBucket(t *testing.T) {
	store := state.New(10000)
	c, _ := newTestCollector(t, store, 200)
	ctx := context.Background()

	ts := time.Date(2024, 10, 10, 0, 0, 0, 0, time.UTC)
	c.ingest(ctx, "BTCUSDT", drepo.IV15m, &models.Candle{Timestamp: ts, Close: 100, High: 101, Low: 99, Volume: 10})
	c.ingest(ctx, "BTCUSDT", drepo.IV15m, &models.Candle{Timestamp: ts, Close: 105, High: 106, Low: 99, Volume: 12})

	window := c.windows["BTCUSDT|15m"]
	require.Len(t, window, 1)
	assert.Equal(t, 105.0, window[0].Close)
}

func TestIngestTrimsToWindowSize(t *testing.T) {
	store := state.New(10000)
	c, _ := newTestCollector(t, store, 25)
	ctx := context.Background()

	base := time.Date(2024, 10, 10, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 40; i++ {
		c.ingest(ctx, "BTCUSDT", drepo.IV15m, &models.Candle{
			Timestamp: base.Add(time.Duration(i) * 15 * time.Minute),
			Close:     100, High: 101, Low: 99, Volume: 10,
		})
	}

	window := c.windows["BTCUSDT|15m"]
	require.Len(t, window, 25)
	// oldest candles were dropped
	assert.Equal(t, base.Add(15*15*time.Minute), window[0].Timestamp)
}

func TestWindowsArePerSymbolInterval(t *testing.T) {
	store := state.New(10000)
	c, _ := newTestCollector(t, store, 200)
	ctx := context.Background()

	ts := time.Date(2024, 10, 10, 0, 0, 0, 0, time.UTC)
	c.ingest(ctx, "BTCUSDT", drepo.IV15m, &models.Candle{Timestamp: ts, Close: 100, High: 101, Low: 99, Volume: 1})
	c.ingest(ctx, "ETHUSDT", drepo.IV15m, &models.Candle{Timestamp: ts, Close: 2000, High: 2001, Low: 1999, Volume: 1})
	c.ingest(ctx, "BTCUSDT", drepo.IV1h, &models.Candle{Timestamp: ts, Close: 100, High: 101, Low: 99, Volume: 1})

	assert.Len(t, c.windows, 3)
	assert.Len(t, c.windows["BTCUSDT|15m"], 1)
	assert.Len(t, c.windows["ETHUSDT|15m"], 1)
	assert.Len(t, c.windows["BTCUSDT|1h"], 1)
}
