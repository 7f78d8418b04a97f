package scorer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CoinPilot/internal/domain/models"
	"CoinPilot/internal/state"
)

func closedTrade(strategy, regime string, pnl float64) *models.Position {
	status := models.StatusLoss
	if pnl > 0 {
		status = models.StatusWin
	}
	return &models.Position{
		ID:       strategy + regime,
		Action:   models.ActionBuy,
		Strategy: strategy,
		Regime:   regime,
		Status:   status,
		PnL:      pnl,
	}
}

func sharedWithLedger(trades ...*models.Position) *state.Shared {
	return &state.Shared{
		Balance:     10000,
		Indicators:  map[string]float64{},
		Positions:   map[string]*models.Position{},
		Ledger:      trades,
		Performance: map[string]models.StrategyPerformance{},
	}
}

func TestUpdateBlendsClosedTrades(t *testing.T) {
	s := New()
	sh := sharedWithLedger(closedTrade("Trend Following", "Strong Uptrend", 100))

	s.Update(sh)
	// 0.9*0 + 0.1*100
	assert.InDelta(t, 10, s.Value("Strong Uptrend", "Trend Following"), 1e-9)

	// the whole ledger is re-blended on every update
	s.Update(sh)
	assert.InDelta(t, 0.9*10+0.1*100, s.Value("Strong Uptrend", "Trend Following"), 1e-9)
}

func TestUpdateSkipsOpenPositions(t *testing.T) {
	s := New()
	open := &models.Position{ID: "x", Strategy: "Breakout", Status: models.StatusOpen}
	sh := sharedWithLedger(open)

	s.Update(sh)
	assert.Zero(t, s.Value("Unknown", "Breakout"))
	assert.Empty(t, sh.Performance)
}

func TestUpdateEmptyRegimeBucketsAsUnknown(t *testing.T) {
	s := New()
	trade := closedTrade("Breakout", "", 50)
	s.Update(sharedWithLedger(trade))
	assert.InDelta(t, 5, s.Value("Unknown", "Breakout"), 1e-9)
}

func TestUpdateRebuildsPerformance(t *testing.T) {
	s := New()
	sh := sharedWithLedger(
		closedTrade("Trend Following", "Strong Uptrend", 100),
		closedTrade("Trend Following", "Strong Uptrend", -50),
		closedTrade("Breakout", "Sideways/Breakout", 20),
	)

	s.Update(sh)
	perf, ok := sh.Performance["Trend Following"]
	require.True(t, ok)
	assert.Equal(t, 2, perf.TotalTrades)
	assert.InDelta(t, 25, perf.AvgProfit, 1e-9)
	assert.InDelta(t, 0.5, perf.WinRate, 1e-9)

	perf, ok = sh.Performance["Breakout"]
	require.True(t, ok)
	assert.Equal(t, 1, perf.TotalTrades)
	assert.InDelta(t, 1.0, perf.WinRate, 1e-9)
}

func TestBestStrategyEmptyTableDefaults(t *testing.T) {
	assert.Equal(t, "Swing Trading", New().BestStrategy("Strong Uptrend"))
}

func TestBestStrategyPicksHighestValue(t *testing.T) {
	s := New()
	sh := sharedWithLedger(
		closedTrade("Trend Following", "Strong Uptrend", 100),
		closedTrade("Breakout", "Strong Uptrend", 500),
	)
	s.Update(sh)
	assert.Equal(t, "Breakout", s.BestStrategy("Strong Uptrend"))
}

func TestBestStrategyNegativeValuesPreferMissing(t *testing.T) {
	s := New()
	sh := sharedWithLedger(closedTrade("Trend Following", "Weak Downtrend", -100))
	s.Update(sh)
	// the only scored strategy lost money; an unscored one (value 0) wins,
	// and scan order makes it Mean Reversion
	assert.Equal(t, "Mean Reversion", s.BestStrategy("Weak Downtrend"))
}

func TestBestStrategyRegimesAreIndependent(t *testing.T) {
	s := New()
	sh := sharedWithLedger(closedTrade("Scalping", "High Volatility", 42))
	s.Update(sh)
	assert.Equal(t, "Scalping", s.BestStrategy("High Volatility"))
	// an unseen regime scans all-zero values, so the first-listed
	// strategy wins; the Swing Trading default is for an empty table only
	assert.Equal(t, "Trend Following", s.BestStrategy("Low Volatility"))
}

func TestBestStrategyUnseenRegimeScansFromZero(t *testing.T) {
	s := New()
	sh := sharedWithLedger(
		closedTrade("Breakout", "Strong Uptrend", 300),
		closedTrade("Scalping", "High Volatility", -20),
	)
	s.Update(sh)

	assert.Equal(t, "Trend Following", s.BestStrategy("Low Volatility"))
	assert.Equal(t, "Trend Following", s.BestStrategy("Uncertain"))
	// seen regimes keep their own winners
	assert.Equal(t, "Breakout", s.BestStrategy("Strong Uptrend"))
}
