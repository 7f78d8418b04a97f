package classifier

import (
	"CoinPilot/internal/domain/models"
	"CoinPilot/internal/services/indicator"
)

// ExtractFeatures builds the classification feature vector. Windows that
// exceed the available history yield neutral defaults (0 for changes,
// 1 for the volume ratio, 0.5 for a degenerate Bollinger position) so a
// short series never fails classification.
func ExtractFeatures(candles []models.Candle, ind *models.IndicatorSnapshot) map[string]float64 {
	features := map[string]float64{
		"price_change_1h":  priceChange(candles, 12),
		"price_change_4h":  priceChange(candles, 48),
		"price_change_24h": priceChange(candles, 96),
		"rsi":              ind.CurrentOr(indicator.NameRSI, 50),
		"macd_histogram":   ind.CurrentOr(indicator.NameHistogram, 0),
	}

	features["bollinger_position"] = bollingerPosition(candles, ind)
	features["volume_change"] = volumeChange(candles)
	features["volume_ratio"] = volumeRatio(candles, 20)

	return features
}

// priceChange returns the relative close-price change over the last `bars`
// candles, or 0 when history is insufficient.
func priceChange(candles []models.Candle, bars int) float64 {
	n := len(candles)
	if n < bars {
		return 0
	}
	base := candles[n-bars].Close
	if base == 0 {
		return 0
	}
	return (candles[n-1].Close - base) / base
}

func bollingerPosition(candles []models.Candle, ind *models.IndicatorSnapshot) float64 {
	if len(candles) == 0 {
		return 0.5
	}
	upper := ind.CurrentOr(indicator.NameUpperBand, 0)
	lower := ind.CurrentOr(indicator.NameLowerBand, 0)
	if upper == lower {
		return 0.5
	}
	return (candles[len(candles)-1].Close - lower) / (upper - lower)
}

func volumeChange(candles []models.Candle) float64 {
	n := len(candles)
	if n < 2 || candles[n-2].Volume == 0 {
		return 0
	}
	return (candles[n-1].Volume - candles[n-2].Volume) / candles[n-2].Volume
}

func volumeRatio(candles []models.Candle, window int) float64 {
	n := len(candles)
	if n < window {
		return 1
	}
	var sum float64
	for i := n - window; i < n; i++ {
		sum += candles[i].Volume
	}
	mean := sum / float64(window)
	if mean == 0 {
		return 1
	}
	return candles[n-1].Volume / mean
}
