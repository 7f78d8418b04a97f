package models

import "time"

// Candle represents one OHLCV interval. Immutable once stored; series are
// ordered by timestamp per (symbol, interval).
type Candle struct {
	Timestamp time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
}

// CandleEvent is a candle delivered by a feed for a (symbol, interval) key.
type CandleEvent struct {
	Symbol   string
	Interval string
	Candle   Candle
}

// IndicatorSnapshot holds the latest value per indicator plus the full series
// for consumers that need lookback (crossover detection and the like).
// Derived data, recomputed each cycle; candles remain the primary record.
type IndicatorSnapshot struct {
	Current map[string]float64
	Series  map[string][]float64
}

// CurrentOr returns the latest value for name, or def when absent.
func (s *IndicatorSnapshot) CurrentOr(name string, def float64) float64 {
	if s == nil || s.Current == nil {
		return def
	}
	if v, ok := s.Current[name]; ok {
		return v
	}
	return def
}

// SeriesFor returns the full series for name (nil when absent).
func (s *IndicatorSnapshot) SeriesFor(name string) []float64 {
	if s == nil || s.Series == nil {
		return nil
	}
	return s.Series[name]
}
