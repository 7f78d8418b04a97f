package api

import (
	"net/http"
	"time"

	models "CoinPilot/internal/domain/models"
	"CoinPilot/internal/service/ratelimit"
	"CoinPilot/internal/services/scorer"
	"CoinPilot/internal/state"
	"CoinPilot/internal/usecase"
	xhttp "CoinPilot/pkg/http"
	xlogger "CoinPilot/pkg/logger"

	"github.com/labstack/echo/v4"
)

// DashboardHandler exposes the bot state over HTTP: current condition,
// open positions, signals, strategy performance, and the demo simulator.
type DashboardHandler struct {
	logger   *xlogger.Logger
	store    *state.Store
	scorer   *scorer.Scorer
	pipeline *usecase.Pipeline
	limiter  *ratelimit.Limiter
	logs     *xlogger.RingPublisher
	symbol   string
}

func NewDashboardHandler(
	logger *xlogger.Logger,
	store *state.Store,
	sc *scorer.Scorer,
	pipeline *usecase.Pipeline,
	limiter *ratelimit.Limiter,
	logs *xlogger.RingPublisher,
	symbol string,
) *DashboardHandler {
	return &DashboardHandler{
		logger:   logger,
		store:    store,
		scorer:   sc,
		pipeline: pipeline,
		limiter:  limiter,
		logs:     logs,
		symbol:   symbol,
	}
}

func (h *DashboardHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", h.Health)

	g := e.Group("/api")
	g.GET("/data", h.Data)
	g.GET("/signals", h.Signals)
	g.GET("/positions", h.Positions)
	g.GET("/performance", h.Performance)
	g.GET("/best-strategy", h.BestStrategy)
	g.GET("/logs", h.Logs)
	g.POST("/simulate", h.Simulate)
}

func (h *DashboardHandler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status": "ok",
		"time":   time.Now().UTC(),
	})
}

// Data returns the full dashboard snapshot in one response.
func (h *DashboardHandler) Data(c echo.Context) error {
	snap := h.store.Snapshot()

	open := make([]models.Position, 0, len(snap.Positions))
	for _, p := range snap.Positions {
		open = append(open, p)
	}

	return xhttp.SuccessResponse(c, map[string]interface{}{
		"time":             snap.Time,
		"balance":          snap.Balance,
		"market_condition": snap.Condition,
		"indicators":       snap.Indicators,
		"signals":          snap.Signals,
		"open_positions":   open,
		"trade_count":      len(snap.Ledger),
		"performance":      snap.Performance,
	})
}

func (h *DashboardHandler) Signals(c echo.Context) error {
	snap := h.store.Snapshot()
	return xhttp.SuccessResponse(c, snap.Signals)
}

func (h *DashboardHandler) Positions(c echo.Context) error {
	snap := h.store.Snapshot()

	open := make([]models.Position, 0, len(snap.Positions))
	for _, p := range snap.Positions {
		open = append(open, p)
	}
	return xhttp.SuccessResponse(c, map[string]interface{}{
		"open":   open,
		"ledger": snap.Ledger,
	})
}

func (h *DashboardHandler) Performance(c echo.Context) error {
	snap := h.store.Snapshot()
	return xhttp.SuccessResponse(c, snap.Performance)
}

func (h *DashboardHandler) BestStrategy(c echo.Context) error {
	req := &models.BestStrategyRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	best := h.scorer.BestStrategy(req.Regime)
	return xhttp.SuccessResponse(c, map[string]interface{}{
		"regime":   req.Regime,
		"strategy": best,
		"value":    h.scorer.Value(req.Regime, best),
	})
}

func (h *DashboardHandler) Logs(c echo.Context) error {
	req := &models.LogsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if h.logs == nil {
		return xhttp.SuccessResponse(c, []xlogger.AggregatedLogEntry{})
	}
	return xhttp.SuccessResponse(c, h.logs.Recent(req.Limit))
}

// Simulate runs a canned BUY/close round trip against the live balance.
// Rate limited per client IP so the demo cannot drain the simulated account.
func (h *DashboardHandler) Simulate(c echo.Context) error {
	if h.limiter != nil && !h.limiter.Allow("simulate:"+c.RealIP(), 5, 0.2) {
		return xhttp.DataResponse(c, http.StatusTooManyRequests, "rate limit exceeded")
	}

	req := &models.SimulateRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	symbol := req.Symbol
	if symbol == "" {
		symbol = h.symbol
	}

	pos, err := h.pipeline.SimulateDemo(c.Request().Context(), symbol, req.Price, req.ClosePrice)
	if err != nil {
		h.logger.Error("simulate failed", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.InternalError("simulation failed").WithError(err))
	}
	return xhttp.SuccessResponse(c, pos)
}
