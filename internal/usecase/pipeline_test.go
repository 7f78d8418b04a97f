package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CoinPilot/internal/domain/models"
	"CoinPilot/internal/services/classifier"
	"CoinPilot/internal/services/indicator"
	"CoinPilot/internal/services/scorer"
	"CoinPilot/internal/services/signalgen"
	"CoinPilot/internal/services/simulator"
	"CoinPilot/internal/services/strategy"
	"CoinPilot/internal/state"
	xlogger "CoinPilot/pkg/logger"
)

type fakeMetrics struct {
	mu      sync.Mutex
	cycles  int
	trades  map[string]int
	errors  map[string]int
	balance float64
}

func newFakeMetrics() *fakeMetrics {
	return &fakeMetrics{trades: map[string]int{}, errors: map[string]int{}}
}

func (m *fakeMetrics) RecordCycle(string, string) { m.mu.Lock(); m.cycles++; m.mu.Unlock() }
func (m *fakeMetrics) RecordSignal(string)        {}
func (m *fakeMetrics) RecordTrade(event string) {
	m.mu.Lock()
	m.trades[event]++
	m.mu.Unlock()
}
func (m *fakeMetrics) RecordError(kind string) {
	m.mu.Lock()
	m.errors[kind]++
	m.mu.Unlock()
}
func (m *fakeMetrics) RecordLastPrice(string, float64) {}
func (m *fakeMetrics) RecordBalance(b float64)         { m.mu.Lock(); m.balance = b; m.mu.Unlock() }
func (m *fakeMetrics) RecordLatency(string, float64)   {}
func (m *fakeMetrics) RecordLedgerWrite(string)        {}

func testLogger(t *testing.T) *xlogger.Logger {
	t.Helper()
	l, err := xlogger.New(&xlogger.Config{Level: "error", Format: "json", Output: "stderr"})
	require.NoError(t, err)
	return l
}

func newTestPipeline(t *testing.T, store *state.Store, m *fakeMetrics) *Pipeline {
	t.Helper()
	return NewPipeline(
		indicator.NewEngine(),
		nil,
		classifier.NewRuleBased(),
		strategy.NewSelector(),
		signalgen.NewGenerator(0.6),
		simulator.New(0.1),
		scorer.New(),
		store,
		nil,
		m,
		testLogger(t),
		2,
	)
}

func flatWindow(n int, price float64) []models.Candle {
	out := make([]models.Candle, n)
	base := time.Date(2024, 10, 10, 0, 0, 0, 0, time.UTC)
	for i := range out {
		out[i] = models.Candle{
			Timestamp: base.Add(time.Duration(i) * 15 * time.Minute),
			Open:      price,
			High:      price + 1,
			Low:       price - 1,
			Close:     price,
			Volume:    100,
		}
	}
	return out
}

func TestRunCycleAppliesConditionAtomically(t *testing.T) {
	store := state.New(10000)
	m := newFakeMetrics()
	p := newTestPipeline(t, store, m)

	p.RunCycle(context.Background(), "BTCUSDT", "15m", flatWindow(100, 100))

	snap := store.Snapshot()
	assert.Equal(t, "Sideways/Breakout", snap.Condition.Condition)
	assert.Equal(t, 2, snap.Condition.Code)
	assert.Contains(t, snap.Indicators, indicator.NameRSI)
	// flat market at 0.6 confidence generates nothing above the floor
	assert.Empty(t, snap.Signals)
	assert.Equal(t, 1, m.cycles)
	assert.Equal(t, 10000.0, m.balance)
}

func TestRunCycleEmptyWindowIsNoOp(t *testing.T) {
	store := state.New(10000)
	m := newFakeMetrics()
	p := newTestPipeline(t, store, m)

	p.RunCycle(context.Background(), "BTCUSDT", "15m", nil)
	assert.Zero(t, m.cycles)
}

func TestRunCycleAutoClosesDriftedPositions(t *testing.T) {
	store := state.New(10000)
	m := newFakeMetrics()
	p := newTestPipeline(t, store, m)

	store.Update(func(sh *state.Shared) {
		pos := &models.Position{
			ID:     "drifted",
			Action: models.ActionBuy,
			Price:  50,
			Amount: 2,
			Status: models.StatusOpen,
		}
		sh.Positions[pos.ID] = pos
		sh.Ledger = append(sh.Ledger, pos)
	})

	// ATR is 2, band is 4; entry 50 vs price 100 is far outside
	p.RunCycle(context.Background(), "BTCUSDT", "15m", flatWindow(100, 100))

	snap := store.Snapshot()
	assert.Empty(t, snap.Positions)
	require.Len(t, snap.Ledger, 1)
	assert.Equal(t, models.StatusWin, snap.Ledger[0].Status)
	assert.InDelta(t, 100, snap.Ledger[0].PnL, 1e-9)
	assert.InDelta(t, 10100, snap.Balance, 1e-9)
	assert.Equal(t, 1, m.trades["win"])
}

func TestRecordedCloseIsDetachedFromState(t *testing.T) {
	store := state.New(10000)
	m := newFakeMetrics()
	fs := &fakeStorage{}
	rec := NewLedgerRecorder(&fakePublisher{}, fs, m, "clickhouse")
	p := NewPipeline(
		indicator.NewEngine(),
		nil,
		classifier.NewRuleBased(),
		strategy.NewSelector(),
		signalgen.NewGenerator(0.6),
		simulator.New(0.1),
		scorer.New(),
		store,
		rec,
		m,
		testLogger(t),
		2,
	)

	store.Update(func(sh *state.Shared) {
		pos := &models.Position{
			ID:     "drifted",
			Action: models.ActionBuy,
			Price:  50,
			Amount: 2,
			Status: models.StatusOpen,
		}
		sh.Positions[pos.ID] = pos
		sh.Ledger = append(sh.Ledger, pos)
	})

	p.RunCycle(context.Background(), "BTCUSDT", "15m", flatWindow(100, 100))
	require.Len(t, fs.captured, 1)

	// the recorder must hold its own snapshot; later state mutations
	// must not bleed into what was persisted
	store.Update(func(sh *state.Shared) {
		sh.Ledger[0].PnL = -999
		sh.Ledger[0].Status = models.StatusLoss
	})

	assert.Equal(t, models.StatusWin, fs.captured[0].Status)
	assert.InDelta(t, 100, fs.captured[0].PnL, 1e-9)
}

func TestRunCycleKeepsPositionsInsideBand(t *testing.T) {
	store := state.New(10000)
	m := newFakeMetrics()
	p := newTestPipeline(t, store, m)

	store.Update(func(sh *state.Shared) {
		pos := &models.Position{
			ID:     "near",
			Action: models.ActionBuy,
			Price:  99,
			Amount: 2,
			Status: models.StatusOpen,
		}
		sh.Positions[pos.ID] = pos
		sh.Ledger = append(sh.Ledger, pos)
	})

	p.RunCycle(context.Background(), "BTCUSDT", "15m", flatWindow(100, 100))

	snap := store.Snapshot()
	assert.Len(t, snap.Positions, 1)
	assert.Zero(t, m.trades["win"]+m.trades["loss"])
}

func TestSimulateDemoRoundTrip(t *testing.T) {
	store := state.New(10000)
	m := newFakeMetrics()
	p := newTestPipeline(t, store, m)

	pos, err := p.SimulateDemo(context.Background(), "BTCUSDT", 27000, 27300)
	require.NoError(t, err)

	assert.Equal(t, models.StatusWin, pos.Status)
	assert.InDelta(t, 11.11, pos.PnL, 0.01)
	assert.Equal(t, "Swing Trading", pos.Strategy)

	snap := store.Snapshot()
	assert.InDelta(t, 10011.11, snap.Balance, 0.01)
	assert.Empty(t, snap.Positions)
	require.Len(t, snap.Ledger, 1)
	assert.Equal(t, 1, m.trades["win"])
	// the settled trade feeds the value table
	assert.Contains(t, snap.Performance, "Swing Trading")
}

func TestClassifyFallsBackOnLearnedFailure(t *testing.T) {
	store := state.New(10000)
	m := newFakeMetrics()
	p := NewPipeline(
		indicator.NewEngine(),
		failingClassifier{},
		classifier.NewRuleBased(),
		strategy.NewSelector(),
		signalgen.NewGenerator(0.6),
		simulator.New(0.1),
		scorer.New(),
		store,
		nil,
		m,
		testLogger(t),
		2,
	)

	p.RunCycle(context.Background(), "BTCUSDT", "15m", flatWindow(100, 100))

	snap := store.Snapshot()
	assert.Equal(t, "Sideways/Breakout", snap.Condition.Condition)
	assert.Equal(t, 1, m.errors["classifier_fallback"])
}

type failingClassifier struct{}

func (failingClassifier) Classify(context.Context, []models.Candle, *models.IndicatorSnapshot) (models.MarketCondition, error) {
	return models.MarketCondition{}, context.DeadlineExceeded
}
