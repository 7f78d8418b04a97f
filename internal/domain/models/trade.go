package models

import "time"

// Signal actions. HOLD is never emitted; non-trade results are filtered out
// before they reach the simulator.
const (
	ActionBuy  = "BUY"
	ActionSell = "SELL"
)

// Position status values. A position is OPEN exactly until closed once;
// WIN and LOSS are terminal.
const (
	StatusOpen = "OPEN"
	StatusWin  = "WIN"
	StatusLoss = "LOSS"
)

// Signal is a trade instruction produced by the signal generator.
type Signal struct {
	Action     string
	Confidence float64 // in [0,1]
	Reason     string
	Price      float64
	Strategy   string
	Time       time.Time
}

// Position is a simulated trade. Created by the simulator on execute,
// mutated in place on close; the ledger retains it permanently.
type Position struct {
	ID         string
	Action     string
	Price      float64 // entry price
	Amount     float64
	Reason     string
	Confidence float64
	Strategy   string
	Status     string
	OpenTime   time.Time

	// Set on close.
	ClosePrice float64
	CloseTime  time.Time
	PnL        float64
	Regime     string // market condition at close time, scorer key
}

// Closed reports whether the position has reached a terminal status.
func (p *Position) Closed() bool {
	return p.Status == StatusWin || p.Status == StatusLoss
}
