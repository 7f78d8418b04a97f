package simulator

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CoinPilot/internal/domain/models"
	"CoinPilot/internal/state"
)

func newShared(balance float64) *state.Shared {
	return &state.Shared{
		Balance:     balance,
		Indicators:  map[string]float64{},
		Positions:   map[string]*models.Position{},
		Performance: map[string]models.StrategyPerformance{},
	}
}

func TestExecuteOpensPosition(t *testing.T) {
	sh := newShared(10000)
	sig := models.Signal{Action: models.ActionBuy, Price: 27000, Confidence: 0.82, Strategy: "Swing Trading", Reason: "test"}

	pos := New(0.1).Execute(sh, sig)
	require.NotNil(t, pos)
	assert.NotEmpty(t, pos.ID)
	assert.Equal(t, models.StatusOpen, pos.Status)
	// 10% of balance at entry price
	assert.InDelta(t, 10000*0.1/27000, pos.Amount, 1e-12)
	assert.Len(t, sh.Positions, 1)
	assert.Len(t, sh.Ledger, 1)
	// opening does not touch balance; only settlement moves it
	assert.Equal(t, 10000.0, sh.Balance)
}

func TestExecuteIgnoresUnknownAction(t *testing.T) {
	sh := newShared(10000)
	pos := New(0.1).Execute(sh, models.Signal{Action: "HOLD", Price: 100})
	assert.Nil(t, pos)
	assert.Empty(t, sh.Positions)
}

func TestExecuteZeroPriceOpensZeroSize(t *testing.T) {
	sh := newShared(10000)
	pos := New(0.1).Execute(sh, models.Signal{Action: models.ActionBuy, Price: 0})
	require.NotNil(t, pos)
	assert.Zero(t, pos.Amount)
}

func TestCloseBuyWin(t *testing.T) {
	sh := newShared(10000)
	sh.Condition = models.MarketCondition{Condition: "Strong Uptrend"}
	sim := New(0.1)

	pos := sim.Execute(sh, models.Signal{Action: models.ActionBuy, Price: 27000})
	closed, ok := sim.Close(sh, pos.ID, 27300)
	require.True(t, ok)

	// amount * (close - entry) = (1000/27000) * 300
	wantPnL := 10000 * 0.1 / 27000 * 300
	assert.InDelta(t, wantPnL, closed.PnL, 1e-9)
	assert.InDelta(t, 11.11, closed.PnL, 0.01)
	assert.Equal(t, models.StatusWin, closed.Status)
	assert.Equal(t, "Strong Uptrend", closed.Regime)
	assert.InDelta(t, 10000+wantPnL, sh.Balance, 1e-9)
	assert.Empty(t, sh.Positions)
	// ledger keeps the settled record, not a second copy
	require.Len(t, sh.Ledger, 1)
	assert.Equal(t, models.StatusWin, sh.Ledger[0].Status)
}

func TestCloseSellDirection(t *testing.T) {
	sh := newShared(10000)
	sim := New(0.1)

	pos := sim.Execute(sh, models.Signal{Action: models.ActionSell, Price: 27000})
	closed, ok := sim.Close(sh, pos.ID, 26000)
	require.True(t, ok)

	assert.True(t, closed.PnL > 0, "short profits when price falls")
	assert.Equal(t, models.StatusWin, closed.Status)
}

func TestCloseZeroPnLIsLoss(t *testing.T) {
	sh := newShared(10000)
	sim := New(0.1)

	pos := sim.Execute(sh, models.Signal{Action: models.ActionBuy, Price: 27000})
	closed, ok := sim.Close(sh, pos.ID, 27000)
	require.True(t, ok)
	assert.Zero(t, closed.PnL)
	assert.Equal(t, models.StatusLoss, closed.Status)
	assert.Equal(t, 10000.0, sh.Balance)
}

func TestCloseUnknownID(t *testing.T) {
	sh := newShared(10000)
	closed, ok := New(0.1).Close(sh, "missing", 100)
	assert.False(t, ok)
	assert.Nil(t, closed)
}

func TestBalanceConservationOverRoundTrips(t *testing.T) {
	sh := newShared(10000)
	sim := New(0.1)

	var realized float64
	for i := 0; i < 10; i++ {
		pos := sim.Execute(sh, models.Signal{Action: models.ActionBuy, Price: 100})
		closed, ok := sim.Close(sh, pos.ID, 100+float64(i-5))
		require.True(t, ok)
		realized += closed.PnL
	}
	assert.True(t, math.Abs(sh.Balance-(10000+realized)) < 1e-9)
	assert.Len(t, sh.Ledger, 10)
	assert.Empty(t, sh.Positions)
}

func TestInvalidFractionFallsBack(t *testing.T) {
	sh := newShared(10000)
	pos := New(2).Execute(sh, models.Signal{Action: models.ActionBuy, Price: 100})
	require.NotNil(t, pos)
	assert.InDelta(t, 10000*0.1/100, pos.Amount, 1e-12)
}
