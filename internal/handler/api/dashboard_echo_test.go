package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CoinPilot/internal/domain/models"
	"CoinPilot/internal/service/ratelimit"
	"CoinPilot/internal/services/classifier"
	"CoinPilot/internal/services/indicator"
	"CoinPilot/internal/services/scorer"
	"CoinPilot/internal/services/signalgen"
	"CoinPilot/internal/services/simulator"
	"CoinPilot/internal/services/strategy"
	"CoinPilot/internal/state"
	"CoinPilot/internal/usecase"
	xlogger "CoinPilot/pkg/logger"
)

type nopMetrics struct{}

func (nopMetrics) RecordCycle(string, string)      {}
func (nopMetrics) RecordSignal(string)             {}
func (nopMetrics) RecordTrade(string)              {}
func (nopMetrics) RecordError(string)              {}
func (nopMetrics) RecordLastPrice(string, float64) {}
func (nopMetrics) RecordBalance(float64)           {}
func (nopMetrics) RecordLatency(string, float64)   {}
func (nopMetrics) RecordLedgerWrite(string)        {}

func newTestEcho(t *testing.T, store *state.Store) (*echo.Echo, *scorer.Scorer) {
	t.Helper()
	l, err := xlogger.New(&xlogger.Config{Level: "error", Format: "json", Output: "stderr"})
	require.NoError(t, err)

	sc := scorer.New()
	pipeline := usecase.NewPipeline(
		indicator.NewEngine(),
		nil,
		classifier.NewRuleBased(),
		strategy.NewSelector(),
		signalgen.NewGenerator(0.6),
		simulator.New(0.1),
		sc,
		store,
		nil,
		nopMetrics{},
		l,
		2,
	)

	h := NewDashboardHandler(l, store, sc, pipeline, ratelimit.New(), xlogger.NewRingPublisher(100), "BTCUSDT")
	e := echo.New()
	h.RegisterRoutes(e)
	return e, sc
}

func doJSON(e *echo.Echo, method, target, body string) (*httptest.ResponseRecorder, map[string]interface{}) {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	var parsed map[string]interface{}
	_ = json.Unmarshal(rec.Body.Bytes(), &parsed)
	return rec, parsed
}

func TestHealthEndpoint(t *testing.T) {
	e, _ := newTestEcho(t, state.New(10000))
	rec, parsed := doJSON(e, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", parsed["status"])
}

func TestDataEndpoint(t *testing.T) {
	store := state.New(10000)
	store.Update(func(sh *state.Shared) {
		sh.Condition = models.MarketCondition{Condition: "Strong Uptrend", Confidence: 0.8, Code: 0}
		sh.Indicators["rsi"] = 64.2
	})

	e, _ := newTestEcho(t, store)
	rec, parsed := doJSON(e, http.MethodGet, "/api/data", "")
	require.Equal(t, http.StatusOK, rec.Code)

	data := parsed["data"].(map[string]interface{})
	assert.Equal(t, 10000.0, data["balance"])
	cond := data["market_condition"].(map[string]interface{})
	assert.Equal(t, "Strong Uptrend", cond["Condition"])
	assert.Equal(t, 64.2, data["indicators"].(map[string]interface{})["rsi"])
}

func TestBestStrategyRequiresRegime(t *testing.T) {
	e, _ := newTestEcho(t, state.New(10000))
	rec, parsed := doJSON(e, http.MethodGet, "/api/best-strategy", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	// response envelope carries the 400
	assert.Equal(t, float64(http.StatusBadRequest), parsed["status"])
}

func TestBestStrategyDefaultsToSwingTrading(t *testing.T) {
	e, _ := newTestEcho(t, state.New(10000))
	rec, parsed := doJSON(e, http.MethodGet, "/api/best-strategy?regime=Strong+Uptrend", "")
	require.Equal(t, http.StatusOK, rec.Code)

	data := parsed["data"].(map[string]interface{})
	assert.Equal(t, "Swing Trading", data["strategy"])
	assert.Equal(t, "Strong Uptrend", data["regime"])
}

func TestSimulateDefaultRoundTrip(t *testing.T) {
	store := state.New(10000)
	e, _ := newTestEcho(t, store)

	rec, parsed := doJSON(e, http.MethodPost, "/api/simulate", "{}")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(http.StatusOK), parsed["status"])

	data := parsed["data"].(map[string]interface{})
	assert.Equal(t, models.StatusWin, data["Status"])
	assert.InDelta(t, 11.11, data["PnL"].(float64), 0.01)
	assert.InDelta(t, 10011.11, store.Balance(), 0.01)
}

func TestSimulateCustomPrices(t *testing.T) {
	store := state.New(10000)
	e, _ := newTestEcho(t, store)

	rec, parsed := doJSON(e, http.MethodPost, "/api/simulate", `{"price":100,"close_price":90}`)
	require.Equal(t, http.StatusOK, rec.Code)

	data := parsed["data"].(map[string]interface{})
	assert.Equal(t, models.StatusLoss, data["Status"])
}

func TestSimulateRateLimited(t *testing.T) {
	e, _ := newTestEcho(t, state.New(10000))

	limited := false
	for i := 0; i < 10; i++ {
		_, parsed := doJSON(e, http.MethodPost, "/api/simulate", "{}")
		if parsed["status"] == float64(http.StatusTooManyRequests) {
			limited = true
			break
		}
	}
	assert.True(t, limited, "burst should exhaust the token bucket")
}

func TestPositionsEndpoint(t *testing.T) {
	store := state.New(10000)
	store.Update(func(sh *state.Shared) {
		p := &models.Position{ID: "p1", Status: models.StatusOpen}
		sh.Positions["p1"] = p
		sh.Ledger = append(sh.Ledger, p)
	})

	e, _ := newTestEcho(t, store)
	rec, parsed := doJSON(e, http.MethodGet, "/api/positions", "")
	require.Equal(t, http.StatusOK, rec.Code)

	data := parsed["data"].(map[string]interface{})
	assert.Len(t, data["open"], 1)
	assert.Len(t, data["ledger"], 1)
}

func TestLogsEndpointValidatesLimit(t *testing.T) {
	e, _ := newTestEcho(t, state.New(10000))

	_, parsed := doJSON(e, http.MethodGet, "/api/logs?limit=5000", "")
	assert.Equal(t, float64(http.StatusBadRequest), parsed["status"])

	_, parsed = doJSON(e, http.MethodGet, "/api/logs", "")
	assert.Equal(t, float64(http.StatusOK), parsed["status"])
}
