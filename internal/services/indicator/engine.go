package indicator

import (
	"math"

	"CoinPilot/internal/domain/models"
)

// Indicator names as published in the snapshot.
const (
	NameEMA20      = "ema_20"
	NameEMA50      = "ema_50"
	NameRSI        = "rsi"
	NameMACDLine   = "macd_line"
	NameSignalLine = "signal_line"
	NameHistogram  = "histogram"
	NameSMA        = "sma"
	NameUpperBand  = "upper_band"
	NameLowerBand  = "lower_band"
	NameATR        = "atr"
)

// Engine computes technical indicators from an ordered candle series.
// Every call recomputes the full series from scratch; the upstream rolling
// window (200 candles) keeps that cheap, and it avoids carrying streaming
// state between cycles.
type Engine struct {
	rsiPeriod  int
	bbPeriod   int
	bbStdDev   float64
	atrPeriod  int
	macdFast   int
	macdSlow   int
	macdSignal int
}

func NewEngine() *Engine {
	return &Engine{
		rsiPeriod:  14,
		bbPeriod:   20,
		bbStdDev:   2,
		atrPeriod:  14,
		macdFast:   12,
		macdSlow:   26,
		macdSignal: 9,
	}
}

// Compute builds an IndicatorSnapshot for the series. Short series produce
// degenerate or neutral values (EMA over few points, RSI 50, bands 0); this
// is expected behavior, not an error.
func (e *Engine) Compute(candles []models.Candle) *models.IndicatorSnapshot {
	closes := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
	}

	series := map[string][]float64{
		NameEMA20: EMA(closes, 20),
		NameEMA50: EMA(closes, 50),
		NameRSI:   RSI(closes, e.rsiPeriod),
		NameATR:   ATR(candles, e.atrPeriod),
	}

	macdLine, signalLine, histogram := MACD(closes, e.macdFast, e.macdSlow, e.macdSignal)
	series[NameMACDLine] = macdLine
	series[NameSignalLine] = signalLine
	series[NameHistogram] = histogram

	sma, upper, lower := BollingerBands(closes, e.bbPeriod, e.bbStdDev)
	series[NameSMA] = sma
	series[NameUpperBand] = upper
	series[NameLowerBand] = lower

	current := make(map[string]float64, len(series))
	for name, s := range series {
		if len(s) > 0 {
			current[name] = s[len(s)-1]
		}
	}

	return &models.IndicatorSnapshot{Current: current, Series: series}
}

// EMA computes an exponential moving average with alpha = 2/(period+1),
// seeded with the first value. No minimum-length guard: short series produce
// degenerate values by design.
func EMA(values []float64, period int) []float64 {
	if len(values) == 0 {
		return nil
	}
	alpha := 2.0 / (float64(period) + 1.0)
	out := make([]float64, len(values))
	out[0] = values[0]
	for i := 1; i < len(values); i++ {
		out[i] = alpha*values[i] + (1-alpha)*out[i-1]
	}
	return out
}

// RSI computes the relative strength index over a rolling mean of gains and
// losses. Positions with fewer than period deltas report the neutral 50.
// A window with zero average loss reports 100 rather than dividing by zero.
func RSI(closes []float64, period int) []float64 {
	out := make([]float64, len(closes))
	for i := range out {
		out[i] = 50
	}
	if len(closes) <= period {
		return out
	}
	for i := period; i < len(closes); i++ {
		var gain, loss float64
		for j := i - period + 1; j <= i; j++ {
			delta := closes[j] - closes[j-1]
			if delta > 0 {
				gain += delta
			} else {
				loss -= delta
			}
		}
		avgGain := gain / float64(period)
		avgLoss := loss / float64(period)
		if avgLoss == 0 {
			out[i] = 100
			continue
		}
		rs := avgGain / avgLoss
		out[i] = 100 - 100/(1+rs)
	}
	return out
}

// MACD computes the MACD line (fast EMA - slow EMA), its signal line
// (EMA of the MACD line) and the histogram (line - signal).
func MACD(closes []float64, fast, slow, signal int) (line, signalLine, histogram []float64) {
	emaFast := EMA(closes, fast)
	emaSlow := EMA(closes, slow)
	line = make([]float64, len(closes))
	for i := range closes {
		line[i] = emaFast[i] - emaSlow[i]
	}
	signalLine = EMA(line, signal)
	histogram = make([]float64, len(closes))
	for i := range closes {
		histogram[i] = line[i] - signalLine[i]
	}
	return line, signalLine, histogram
}

// BollingerBands computes the simple moving average plus upper/lower bands
// at stdDev rolling standard deviations. Positions with insufficient history
// report 0 for all three, leaving the bands degenerate (upper == lower).
func BollingerBands(closes []float64, period int, stdDev float64) (sma, upper, lower []float64) {
	n := len(closes)
	sma = make([]float64, n)
	upper = make([]float64, n)
	lower = make([]float64, n)
	for i := period - 1; i < n; i++ {
		var sum float64
		for j := i - period + 1; j <= i; j++ {
			sum += closes[j]
		}
		mean := sum / float64(period)

		var sq float64
		for j := i - period + 1; j <= i; j++ {
			d := closes[j] - mean
			sq += d * d
		}
		// sample standard deviation, matching a rolling std with ddof=1
		sd := 0.0
		if period > 1 {
			sd = math.Sqrt(sq / float64(period-1))
		}

		sma[i] = mean
		upper[i] = mean + sd*stdDev
		lower[i] = mean - sd*stdDev
	}
	return sma, upper, lower
}

// ATR computes the average true range: a rolling mean of
// max(high-low, |high-prevClose|, |low-prevClose|).
func ATR(candles []models.Candle, period int) []float64 {
	n := len(candles)
	out := make([]float64, n)
	if n == 0 {
		return out
	}
	tr := make([]float64, n)
	tr[0] = candles[0].High - candles[0].Low
	for i := 1; i < n; i++ {
		hl := candles[i].High - candles[i].Low
		hc := math.Abs(candles[i].High - candles[i-1].Close)
		lc := math.Abs(candles[i].Low - candles[i-1].Close)
		tr[i] = math.Max(hl, math.Max(hc, lc))
	}
	for i := period - 1; i < n; i++ {
		var sum float64
		for j := i - period + 1; j <= i; j++ {
			sum += tr[j]
		}
		out[i] = sum / float64(period)
	}
	return out
}
