package models

// Requests for the dashboard/bot HTTP endpoints. Defined in domain for
// consistency and reuse.

type BestStrategyRequest struct {
	Regime string `query:"regime" json:"regime" validate:"required"`
}

type SimulateRequest struct {
	Symbol     string  `query:"symbol" json:"symbol" default:"BTCUSDT"`
	Price      float64 `query:"price" json:"price" default:"27000" validate:"gt=0"`
	ClosePrice float64 `query:"close_price" json:"close_price" default:"27300" validate:"gt=0"`
}

type LogsRequest struct {
	Limit int `query:"limit" json:"limit" default:"100" validate:"gte=1,lte=1000"`
}
