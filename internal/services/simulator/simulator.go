package simulator

import (
	"time"

	"github.com/google/uuid"

	"CoinPilot/internal/domain/models"
	"CoinPilot/internal/state"
)

// Simulator executes signals against the virtual balance and settles open
// positions. All methods mutate a *state.Shared and must be called inside a
// Store.Update critical section; durable logging of the returned positions
// happens outside the lock.
type Simulator struct {
	positionFraction float64
}

func New(positionFraction float64) *Simulator {
	if positionFraction <= 0 || positionFraction > 1 {
		positionFraction = 0.1
	}
	return &Simulator{positionFraction: positionFraction}
}

// Execute opens a position for the signal. Anything other than BUY/SELL is
// silently dropped. A non-positive price opens a zero-size position rather
// than failing; the trade is still recorded.
func (s *Simulator) Execute(sh *state.Shared, sig models.Signal) *models.Position {
	if sig.Action != models.ActionBuy && sig.Action != models.ActionSell {
		return nil
	}

	amount := 0.0
	if sig.Price > 0 {
		amount = sh.Balance * s.positionFraction / sig.Price
	}

	p := &models.Position{
		ID:         uuid.NewString(),
		Action:     sig.Action,
		Price:      sig.Price,
		Amount:     amount,
		Reason:     sig.Reason,
		Confidence: sig.Confidence,
		Strategy:   sig.Strategy,
		Status:     models.StatusOpen,
		OpenTime:   time.Now(),
	}

	sh.Positions[p.ID] = p
	sh.Ledger = append(sh.Ledger, p)
	return p
}

// Close settles an open position at closePrice. Unknown ids are a no-op.
// The ledger entry is the same record, so it is overwritten in place, not
// appended a second time. Zero P&L counts as LOSS.
func (s *Simulator) Close(sh *state.Shared, id string, closePrice float64) (*models.Position, bool) {
	p, ok := sh.Positions[id]
	if !ok {
		return nil, false
	}

	var pnl float64
	if p.Action == models.ActionBuy {
		pnl = p.Amount * (closePrice - p.Price)
	} else {
		pnl = p.Amount * (p.Price - closePrice)
	}

	p.ClosePrice = closePrice
	p.CloseTime = time.Now()
	p.PnL = pnl
	p.Regime = sh.Condition.Condition
	if pnl > 0 {
		p.Status = models.StatusWin
	} else {
		p.Status = models.StatusLoss
	}

	sh.Balance += pnl
	delete(sh.Positions, id)
	return p, true
}
