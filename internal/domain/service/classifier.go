package service

import (
	"context"

	"CoinPilot/internal/domain/models"
)

// MarketClassifier labels the current market regime from a candle series and
// its indicator snapshot. Implementations: learned (model service) and
// rule-based. Both share this contract; fallback-on-error is handled
// explicitly by the caller, never inside an implementation.
type MarketClassifier interface {
	Classify(ctx context.Context, candles []models.Candle, ind *models.IndicatorSnapshot) (models.MarketCondition, error)
}

// ModelAdmin is implemented by classifiers backed by an external model
// service that can be asked to reload a freshly trained model.
type ModelAdmin interface {
	Reload(ctx context.Context) error
}
