package signalgen

import (
	"fmt"
	"time"

	"CoinPilot/internal/domain/models"
	"CoinPilot/internal/services/indicator"
	"CoinPilot/internal/services/strategy"
)

// Generator applies the selected strategy's rule set to the indicator
// snapshot and emits BUY/SELL signals. Everything below minConfidence is
// discarded before it can reach the simulator.
type Generator struct {
	minConfidence float64
}

func NewGenerator(minConfidence float64) *Generator {
	if minConfidence <= 0 {
		minConfidence = 0.6
	}
	return &Generator{minConfidence: minConfidence}
}

// Generate dispatches on the strategy code. Swing Trading doubles as the
// fallback for any unmapped code and unions the other rule sets.
func (g *Generator) Generate(strat models.Strategy, candles []models.Candle, ind *models.IndicatorSnapshot) []models.Signal {
	if len(candles) == 0 {
		return nil
	}

	var signals []models.Signal
	base := strat.Confidence

	switch strat.Code {
	case strategy.CodeTrendFollowing:
		signals = g.trendFollowing(candles, ind, base)
	case strategy.CodeMeanReversion:
		signals = g.meanReversion(candles, ind, base)
	case strategy.CodeBreakout:
		signals = g.breakout(candles, base)
	case strategy.CodeScalping:
		signals = g.scalping()
	default:
		signals = append(signals, g.trendFollowing(candles, ind, base)...)
		signals = append(signals, g.meanReversion(candles, ind, base)...)
		signals = append(signals, g.breakout(candles, base)...)
	}

	now := time.Now()
	kept := signals[:0]
	for _, s := range signals {
		if s.Confidence < g.minConfidence {
			continue
		}
		s.Strategy = strat.Name
		s.Time = now
		kept = append(kept, s)
	}
	return kept
}

// trendFollowing fires on EMA 20/50 crossovers against the prior candle's
// relationship. Requires 50 candles of history.
func (g *Generator) trendFollowing(candles []models.Candle, ind *models.IndicatorSnapshot, base float64) []models.Signal {
	if len(candles) < 50 {
		return nil
	}
	ema20 := ind.SeriesFor(indicator.NameEMA20)
	ema50 := ind.SeriesFor(indicator.NameEMA50)
	n := len(ema20)
	if n < 2 || len(ema50) < 2 {
		return nil
	}

	cur20, cur50 := ema20[n-1], ema50[n-1]
	prev20, prev50 := ema20[n-2], ema50[n-2]
	price := candles[len(candles)-1].Close

	var signals []models.Signal
	if cur20 > cur50 && prev20 <= prev50 {
		signals = append(signals, models.Signal{
			Action:     models.ActionBuy,
			Confidence: base * 0.9,
			Reason:     "EMA 20 crossed above EMA 50",
			Price:      price,
		})
	} else if cur20 < cur50 && prev20 >= prev50 {
		signals = append(signals, models.Signal{
			Action:     models.ActionSell,
			Confidence: base * 0.9,
			Reason:     "EMA 20 crossed below EMA 50",
			Price:      price,
		})
	}
	return signals
}

// meanReversion fades RSI extremes, scaling confidence by the distance
// beyond the band.
func (g *Generator) meanReversion(candles []models.Candle, ind *models.IndicatorSnapshot, base float64) []models.Signal {
	rsi := ind.CurrentOr(indicator.NameRSI, 50)
	price := candles[len(candles)-1].Close

	var signals []models.Signal
	if rsi > 70 {
		signals = append(signals, models.Signal{
			Action:     models.ActionSell,
			Confidence: base * (rsi - 70) / 30,
			Reason:     fmt.Sprintf("RSI is overbought (%.2f)", rsi),
			Price:      price,
		})
	} else if rsi < 30 {
		signals = append(signals, models.Signal{
			Action:     models.ActionBuy,
			Confidence: base * (30 - rsi) / 30,
			Reason:     fmt.Sprintf("RSI is oversold (%.2f)", rsi),
			Price:      price,
		})
	}
	return signals
}

// breakout fires when the current candle clears the prior 19-candle range.
func (g *Generator) breakout(candles []models.Candle, base float64) []models.Signal {
	n := len(candles)
	if n < 20 {
		return nil
	}

	recentHigh := candles[n-20].High
	recentLow := candles[n-20].Low
	for _, c := range candles[n-20 : n-1] {
		if c.High > recentHigh {
			recentHigh = c.High
		}
		if c.Low < recentLow {
			recentLow = c.Low
		}
	}

	price := candles[n-1].Close
	var signals []models.Signal
	if candles[n-1].High > recentHigh {
		signals = append(signals, models.Signal{
			Action:     models.ActionBuy,
			Confidence: base * 0.8,
			Reason:     "Price broke above recent resistance",
			Price:      price,
		})
	} else if candles[n-1].Low < recentLow {
		signals = append(signals, models.Signal{
			Action:     models.ActionSell,
			Confidence: base * 0.8,
			Reason:     "Price broke below recent support",
			Price:      price,
		})
	}
	return signals
}

// scalping is a documented stub: the rule set needs order-book depth that
// this system does not ingest, so it emits nothing.
func (g *Generator) scalping() []models.Signal {
	return nil
}
