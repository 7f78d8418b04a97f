package models

// MarketCondition is the classified market regime for the current cycle.
// No history is kept beyond "current".
type MarketCondition struct {
	Condition  string  // e.g. "Strong Uptrend", "Sideways/Breakout"
	Confidence float64 // in [0,1]
	Code       int     // regime code, -1 for Insufficient Data / Uncertain
}

// Strategy is the strategy favored for the current market condition.
// Stateless value object, recomputed every cycle.
type Strategy struct {
	Name       string
	Code       int
	Confidence float64
}

// StrategyPerformance aggregates realized results per strategy name.
// Rebuilt in full from the ledger on every scorer update.
type StrategyPerformance struct {
	AvgProfit   float64
	WinRate     float64
	TotalTrades int
}
