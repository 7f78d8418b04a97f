package classifier

import (
	"context"
	"math"
	"strings"

	"CoinPilot/internal/domain/models"
	domsvc "CoinPilot/internal/domain/service"
	"CoinPilot/internal/services/indicator"
)

// RuleBased classifies the market regime from the 24h price change and RSI.
// Always available; serves as the fallback when the learned variant is
// missing or fails.
type RuleBased struct{}

func NewRuleBased() *RuleBased { return &RuleBased{} }

func (r *RuleBased) Classify(_ context.Context, candles []models.Candle, ind *models.IndicatorSnapshot) (models.MarketCondition, error) {
	if len(candles) < 20 {
		return models.MarketCondition{Condition: "Insufficient Data", Confidence: 0, Code: -1}, nil
	}

	rsi := ind.CurrentOr(indicator.NameRSI, 50)
	change24h := priceChange(candles, 96)

	var (
		condition  string
		code       int
		confidence float64
	)
	switch {
	case change24h > 0.05:
		condition, code, confidence = "Strong Uptrend", 0, 0.8
	case change24h > 0.02:
		condition, code, confidence = "Weak Uptrend", 1, 0.7
	case change24h < -0.05:
		condition, code, confidence = "Strong Downtrend", 4, 0.8
	case change24h < -0.02:
		condition, code, confidence = "Weak Downtrend", 3, 0.7
	case math.Abs(change24h) < 0.01:
		condition, code, confidence = "Sideways/Breakout", 2, 0.6
	default:
		condition, code, confidence = "Uncertain", -1, 0.5
	}

	// RSI qualifiers on trending labels.
	if rsi > 70 && strings.Contains(condition, "Uptrend") {
		condition += " (Overbought)"
		confidence *= 0.9
	} else if rsi < 30 && strings.Contains(condition, "Downtrend") {
		condition += " (Oversold)"
		confidence *= 0.9
	}

	return models.MarketCondition{Condition: condition, Confidence: confidence, Code: code}, nil
}

var _ domsvc.MarketClassifier = (*RuleBased)(nil)
