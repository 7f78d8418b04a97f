package bybit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"CoinPilot/internal/domain/models"
	drepo "CoinPilot/internal/domain/repository"
	xhttp "CoinPilot/pkg/http"
)

// Client implements MarketFeed over the Bybit v5 public kline endpoint.
type Client struct {
	baseURL string
	http    *xhttp.Client
}

// NewClient creates a REST candle feed.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		http:    xhttp.NewClient(xhttp.WithTimeout(timeout)),
	}
}

// wsInterval maps our interval notation to Bybit's kline interval codes.
func wsInterval(iv drepo.Interval) string {
	switch iv {
	case drepo.IV1m:
		return "1"
	case drepo.IV5m:
		return "5"
	case drepo.IV15m:
		return "15"
	case drepo.IV1h:
		return "60"
	default:
		return "15"
	}
}

type klineResponse struct {
	RetCode int    `json:"retCode"`
	RetMsg  string `json:"retMsg"`
	Result  struct {
		Symbol string     `json:"symbol"`
		List   [][]string `json:"list"`
	} `json:"result"`
}

// FetchLatest returns the most recent confirmed candle for (symbol, iv).
func (c *Client) FetchLatest(ctx context.Context, symbol string, iv drepo.Interval) (*models.Candle, error) {
	candles, err := c.FetchHistory(ctx, symbol, iv, 1)
	if err != nil {
		return nil, err
	}
	if len(candles) == 0 {
		return nil, nil
	}
	return &candles[len(candles)-1], nil
}

// FetchHistory returns up to limit candles, oldest first.
func (c *Client) FetchHistory(ctx context.Context, symbol string, iv drepo.Interval, limit int) ([]models.Candle, error) {
	if limit <= 0 {
		limit = 200
	}

	var kr klineResponse
	err := c.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    c.baseURL + "/v5/market/kline",
		QueryParams: map[string][]string{
			"category": {"linear"},
			"symbol":   {symbol},
			"interval": {wsInterval(iv)},
			"limit":    {strconv.Itoa(limit)},
		},
	}, &kr)
	if err != nil {
		return nil, fmt.Errorf("bybit kline %s %s: %w", symbol, iv, err)
	}
	if kr.RetCode != 0 {
		return nil, fmt.Errorf("bybit kline %s %s: retCode=%d %s", symbol, iv, kr.RetCode, kr.RetMsg)
	}

	// list is newest first: [start, open, high, low, close, volume, turnover]
	out := make([]models.Candle, 0, len(kr.Result.List))
	for i := len(kr.Result.List) - 1; i >= 0; i-- {
		row := kr.Result.List[i]
		candle, err := parseKlineRow(row)
		if err != nil {
			continue // skip malformed rows rather than failing the batch
		}
		out = append(out, candle)
	}
	return out, nil
}

func parseKlineRow(row []string) (models.Candle, error) {
	if len(row) < 6 {
		return models.Candle{}, fmt.Errorf("kline row too short: %d", len(row))
	}
	ms, err := strconv.ParseInt(row[0], 10, 64)
	if err != nil {
		return models.Candle{}, fmt.Errorf("kline start: %w", err)
	}
	vals := make([]float64, 5)
	for i := 0; i < 5; i++ {
		v, err := strconv.ParseFloat(row[i+1], 64)
		if err != nil {
			return models.Candle{}, fmt.Errorf("kline field %d: %w", i+1, err)
		}
		vals[i] = v
	}
	return models.Candle{
		Timestamp: time.UnixMilli(ms).UTC(),
		Open:      vals[0],
		High:      vals[1],
		Low:       vals[2],
		Close:     vals[3],
		Volume:    vals[4],
	}, nil
}

var _ drepo.MarketFeed = (*Client)(nil)
