package scorer

import (
	"fmt"
	"math"
	"sync"

	"CoinPilot/internal/domain/models"
	"CoinPilot/internal/services/strategy"
	"CoinPilot/internal/state"
)

// Scorer maintains a value table keyed by (regime, strategy) and the
// per-strategy performance aggregate. The update rule is a single-step
// exponential blend of realized P&L: reward averaging, not discounted
// Q-learning. The discount factor below is declared for compatibility with
// the table's original shape and is intentionally unused by the update.
type Scorer struct {
	mu           sync.RWMutex
	learningRate float64
	discount     float64
	values       map[string]float64
}

func New() *Scorer {
	return &Scorer{
		learningRate: 0.1,
		discount:     0.95,
		values:       make(map[string]float64),
	}
}

func key(regime, strat string) string {
	return fmt.Sprintf("%s|%s", regime, strat)
}

// Update blends every closed ledger entry into the value table and rebuilds
// Performance from the full ledger. Called inside the cycle's Update
// critical section; entries without a realized P&L (still open) are skipped.
// Rebuilding from full history each time keeps results reproducible.
func (s *Scorer) Update(sh *state.Shared) {
	s.mu.Lock()
	for _, p := range sh.Ledger {
		if !p.Closed() {
			continue
		}
		regime := p.Regime
		if regime == "" {
			regime = "Unknown"
		}
		k := key(regime, p.Strategy)
		s.values[k] = (1-s.learningRate)*s.values[k] + s.learningRate*p.PnL
	}
	s.mu.Unlock()

	perf := make(map[string]models.StrategyPerformance)
	type agg struct {
		sum  float64
		wins int
		n    int
	}
	byStrategy := make(map[string]*agg)
	for _, p := range sh.Ledger {
		if !p.Closed() {
			continue
		}
		a, ok := byStrategy[p.Strategy]
		if !ok {
			a = &agg{}
			byStrategy[p.Strategy] = a
		}
		a.sum += p.PnL
		a.n++
		if p.PnL > 0 {
			a.wins++
		}
	}
	for name, a := range byStrategy {
		perf[name] = models.StrategyPerformance{
			AvgProfit:   a.sum / float64(a.n),
			WinRate:     float64(a.wins) / float64(a.n),
			TotalTrades: a.n,
		}
	}
	sh.Performance = perf
}

// BestStrategy scans the fixed strategy list for the highest value under
// the given regime. Missing keys count as 0; ties go to the earlier entry.
// Only a fully empty table yields the Swing Trading default: a regime the
// table has never seen scans all-zero and the first-listed strategy wins.
func (s *Scorer) BestStrategy(regime string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.values) == 0 {
		return "Swing Trading"
	}

	best := ""
	bestValue := math.Inf(-1)
	for _, name := range strategy.Names() {
		v := s.values[key(regime, name)] // missing key counts as 0
		if v > bestValue {
			best = name
			bestValue = v
		}
	}
	return best
}

// Value returns the current table entry for (regime, strategy); missing
// keys are 0.
func (s *Scorer) Value(regime, strat string) float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.values[key(regime, strat)]
}
