package middleware

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CoinPilot/internal/domain/models"
	drepo "CoinPilot/internal/domain/repository"
)

type fakeArchive struct {
	mu     sync.Mutex
	stored []models.Candle
	fail   bool
}

func (a *fakeArchive) Store(_ context.Context, _ string, _ drepo.Interval, c *models.Candle) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.fail {
		return fmt.Errorf("archive down")
	}
	a.stored = append(a.stored, *c)
	return nil
}

func (a *fakeArchive) LatestN(context.Context, string, drepo.Interval, int) ([]models.Candle, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]models.Candle, len(a.stored))
	copy(out, a.stored)
	return out, nil
}

func (a *fakeArchive) Health(context.Context) error { return nil }
func (a *fakeArchive) Close() error                 { return nil }

func (a *fakeArchive) setFail(fail bool) {
	a.mu.Lock()
	a.fail = fail
	a.mu.Unlock()
}

func (a *fakeArchive) count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.stored)
}

type nopMetrics struct{}

func (nopMetrics) RecordCycle(string, string)       {}
func (nopMetrics) RecordSignal(string)              {}
func (nopMetrics) RecordTrade(string)               {}
func (nopMetrics) RecordError(string)               {}
func (nopMetrics) RecordLastPrice(string, float64)  {}
func (nopMetrics) RecordBalance(float64)            {}
func (nopMetrics) RecordLatency(string, float64)    {}
func (nopMetrics) RecordLedgerWrite(string)         {}

func candle(ts time.Time) *models.Candle {
	return &models.Candle{Timestamp: ts, Open: 100, High: 101, Low: 99, Close: 100, Volume: 10}
}

func TestProcessStoresValidCandle(t *testing.T) {
	archive := &fakeArchive{}
	p := NewArchivePipeline(archive, nopMetrics{})

	err := p.Process(context.Background(), "BTCUSDT", drepo.IV15m, candle(time.Now()))
	require.NoError(t, err)
	assert.Equal(t, 1, archive.count())
}

func TestProcessRejectsInvalidCandles(t *testing.T) {
	archive := &fakeArchive{}
	p := NewArchivePipeline(archive, nopMetrics{})
	ctx := context.Background()

	assert.Error(t, p.Process(ctx, "BTCUSDT", drepo.IV15m, nil))
	assert.Error(t, p.Process(ctx, "", drepo.IV15m, candle(time.Now())))
	assert.Error(t, p.Process(ctx, "BTCUSDT", drepo.IV15m, candle(time.Time{})))

	neg := candle(time.Now())
	neg.Close = -1
	assert.Error(t, p.Process(ctx, "BTCUSDT", drepo.IV15m, neg))

	assert.Zero(t, archive.count())
}

func TestProcessBuffersAndFlushesOnRecovery(t *testing.T) {
	archive := &fakeArchive{}
	archive.setFail(true)
	p := NewArchivePipeline(archive, nopMetrics{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p.Start(ctx)
	defer p.Stop()

	err := p.Process(ctx, "BTCUSDT", drepo.IV15m, candle(time.Now()))
	require.Error(t, err, "store fails while archive is down")

	archive.setFail(false)

	deadline := time.After(3 * time.Second)
	for archive.count() == 0 {
		select {
		case <-deadline:
			t.Fatalf("buffered candle never flushed")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestLatestNPassesThrough(t *testing.T) {
	archive := &fakeArchive{}
	p := NewArchivePipeline(archive, nopMetrics{})
	ctx := context.Background()

	require.NoError(t, p.Process(ctx, "BTCUSDT", drepo.IV15m, candle(time.Now())))
	got, err := p.LatestN(ctx, "BTCUSDT", drepo.IV15m, 10)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}
