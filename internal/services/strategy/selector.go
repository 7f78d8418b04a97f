package strategy

import (
	"math"

	"CoinPilot/internal/domain/models"
)

// Strategy codes.
const (
	CodeTrendFollowing = 0
	CodeMeanReversion  = 1
	CodeBreakout       = 2
	CodeScalping       = 3
	CodeSwingTrading   = 4
	CodeArbitrage      = 5
)

// Names returns the fixed enumerated strategy list in scan order.
func Names() []string {
	return []string{
		"Trend Following",
		"Mean Reversion",
		"Breakout",
		"Scalping",
		"Swing Trading",
		"Arbitrage",
	}
}

var strategyNames = map[int]string{
	CodeTrendFollowing: "Trend Following",
	CodeMeanReversion:  "Mean Reversion",
	CodeBreakout:       "Breakout",
	CodeScalping:       "Scalping",
	CodeSwingTrading:   "Swing Trading",
	CodeArbitrage:      "Arbitrage",
}

// Name maps a strategy code to its name, defaulting to Swing Trading.
func Name(code int) string {
	if name, ok := strategyNames[code]; ok {
		return name
	}
	return "Swing Trading"
}

// suitability maps a regime label to its ranked strategy codes. The first
// entry wins; tie-break is table order, not confidence.
var suitability = map[string][]int{
	"Strong Uptrend":     {CodeTrendFollowing, CodeBreakout, CodeSwingTrading},
	"Weak Uptrend":       {CodeTrendFollowing, CodeSwingTrading},
	"Sideways/Breakout":  {CodeMeanReversion, CodeBreakout},
	"Weak Downtrend":     {CodeTrendFollowing, CodeSwingTrading},
	"Strong Downtrend":   {CodeTrendFollowing, CodeBreakout, CodeSwingTrading},
	"High Volatility":    {CodeScalping, CodeBreakout},
	"Low Volatility":     {CodeMeanReversion, CodeScalping},
	"Reversal Potential": {CodeMeanReversion, CodeSwingTrading},
	"Unknown":            {CodeSwingTrading},
}

// Selector maps a market condition to the favored strategy. Pure function,
// no state; an unrecognized regime defaults to Swing Trading.
type Selector struct{}

func NewSelector() *Selector { return &Selector{} }

func (s *Selector) Select(cond models.MarketCondition) models.Strategy {
	codes, ok := suitability[cond.Condition]
	if !ok || len(codes) == 0 {
		codes = []int{CodeSwingTrading}
	}
	code := codes[0]

	confidence := math.Round(cond.Confidence*0.9*100) / 100

	return models.Strategy{
		Name:       Name(code),
		Code:       code,
		Confidence: confidence,
	}
}
