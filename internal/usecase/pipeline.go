package usecase

import (
	"context"
	"fmt"
	"math"
	"time"

	"CoinPilot/internal/domain/models"
	drepo "CoinPilot/internal/domain/repository"
	domsvc "CoinPilot/internal/domain/service"
	"CoinPilot/internal/services/indicator"
	"CoinPilot/internal/services/scorer"
	"CoinPilot/internal/services/signalgen"
	"CoinPilot/internal/services/simulator"
	"CoinPilot/internal/services/strategy"
	"CoinPilot/internal/state"
	xlogger "CoinPilot/pkg/logger"
)

// Pipeline runs the per-cycle decision chain: indicators, market condition,
// strategy, signals, simulated execution, scoring. One RunCycle applies as a
// single atomic state update so readers never observe a half-applied cycle.
type Pipeline struct {
	engine    *indicator.Engine
	learned   domsvc.MarketClassifier // nil when no model service is configured
	fallback  domsvc.MarketClassifier
	selector  *strategy.Selector
	generator *signalgen.Generator
	sim       *simulator.Simulator
	scorer    *scorer.Scorer
	store     *state.Store
	recorder  *LedgerRecorder
	metrics   drepo.Metrics
	logger    *xlogger.Logger

	// open positions are settled when price drifts this many ATRs from entry
	autoCloseATR float64
}

func NewPipeline(
	engine *indicator.Engine,
	learned, fallback domsvc.MarketClassifier,
	selector *strategy.Selector,
	generator *signalgen.Generator,
	sim *simulator.Simulator,
	sc *scorer.Scorer,
	store *state.Store,
	recorder *LedgerRecorder,
	metrics drepo.Metrics,
	logger *xlogger.Logger,
	autoCloseATR float64,
) *Pipeline {
	return &Pipeline{
		engine:       engine,
		learned:      learned,
		fallback:     fallback,
		selector:     selector,
		generator:    generator,
		sim:          sim,
		scorer:       sc,
		store:        store,
		recorder:     recorder,
		metrics:      metrics,
		logger:       logger,
		autoCloseATR: autoCloseATR,
	}
}

// RunCycle processes the current candle window for (symbol, interval).
// Nothing here is fatal: classification falls back, malformed signals are
// dropped, missing data yields neutral output.
func (p *Pipeline) RunCycle(ctx context.Context, symbol, interval string, candles []models.Candle) {
	if len(candles) == 0 {
		return
	}
	start := time.Now()

	snap := p.engine.Compute(candles)
	cond := p.classify(ctx, candles, snap)
	strat := p.selector.Select(cond)
	signals := p.generator.Generate(strat, candles, snap)

	price := candles[len(candles)-1].Close
	atr := snap.CurrentOr(indicator.NameATR, 0)
	band := atr * p.autoCloseATR

	// opened/closed hold value snapshots taken inside the critical section;
	// the live *Position stays reachable via sh.Positions and must not be
	// read once the lock is released.
	var opened, closed []models.Position
	var balance float64
	p.store.Update(func(sh *state.Shared) {
		sh.Condition = cond
		sh.Indicators = snap.Current
		sh.Signals = signals

		if band > 0 {
			for id, pos := range sh.Positions {
				if math.Abs(price-pos.Price) < band {
					continue
				}
				if cp, ok := p.sim.Close(sh, id, price); ok {
					closed = append(closed, *cp)
				}
			}
		}

		for _, sig := range signals {
			if pos := p.sim.Execute(sh, sig); pos != nil {
				opened = append(opened, *pos)
			}
		}

		p.scorer.Update(sh)
		balance = sh.Balance
	})

	// durable logging happens outside the critical section
	for i := range opened {
		p.record(ctx, symbol, &opened[i])
		p.metrics.RecordTrade("open")
	}
	for i := range closed {
		pos := &closed[i]
		p.record(ctx, symbol, pos)
		p.metrics.RecordTrade(tradeEvent(pos))
		p.logger.Info("position closed",
			xlogger.String("symbol", symbol),
			xlogger.String("id", pos.ID),
			xlogger.String("status", pos.Status),
			xlogger.Any("pnl", pos.PnL),
		)
	}

	for _, sig := range signals {
		p.metrics.RecordSignal(sig.Action)
	}
	p.metrics.RecordCycle(symbol, interval)
	p.metrics.RecordBalance(balance)
	p.metrics.RecordLatency("cycle", time.Since(start).Seconds())
}

// classify prefers the learned variant and falls back to rules on any error.
// Fallback is explicit here, not hidden inside a classifier.
func (p *Pipeline) classify(ctx context.Context, candles []models.Candle, snap *models.IndicatorSnapshot) models.MarketCondition {
	if p.learned != nil {
		cond, err := p.learned.Classify(ctx, candles, snap)
		if err == nil {
			return cond
		}
		p.metrics.RecordError("classifier_fallback")
		p.logger.Warn("learned classifier failed, using rules", xlogger.Error(err))
	}
	cond, _ := p.fallback.Classify(ctx, candles, snap)
	return cond
}

// SimulateDemo runs a canned BUY/close round trip against the live balance,
// for the bot and dashboard surfaces.
func (p *Pipeline) SimulateDemo(ctx context.Context, symbol string, price, closePrice float64) (models.Position, error) {
	sig := models.Signal{
		Action:     models.ActionBuy,
		Price:      price,
		Confidence: 0.82,
		Reason:     "MACD crossover + bullish engulfing",
		Strategy:   "Swing Trading",
		Time:       time.Now(),
	}

	var result models.Position
	var done bool
	p.store.Update(func(sh *state.Shared) {
		pos := p.sim.Execute(sh, sig)
		if pos == nil {
			return
		}
		if cp, ok := p.sim.Close(sh, pos.ID, closePrice); ok {
			result = *cp
			done = true
		}
		p.scorer.Update(sh)
	})
	if !done {
		return models.Position{}, fmt.Errorf("simulate: trade was not executed")
	}

	p.record(ctx, symbol, &result)
	p.metrics.RecordTrade(tradeEvent(&result))
	return result, nil
}

func (p *Pipeline) record(ctx context.Context, symbol string, pos *models.Position) {
	if p.recorder == nil {
		return
	}
	if err := p.recorder.Record(ctx, symbol, pos); err != nil {
		p.metrics.RecordError("ledger_record")
		p.logger.Warn("ledger record failed", xlogger.Error(err))
	}
}

func tradeEvent(p *models.Position) string {
	if p.Status == models.StatusWin {
		return "win"
	}
	return "loss"
}
