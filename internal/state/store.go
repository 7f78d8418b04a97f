// Package state holds the single process-wide trading state aggregate.
// Every worker (ingestion loop, retrainer, HTTP handlers) goes through the
// Store; raw fields are never shared across goroutine boundaries.
package state

import (
	"sync"
	"time"

	"CoinPilot/internal/domain/models"
)

// Shared is the mutable aggregate as seen inside an Update critical section.
// Mutating it outside Update is a data race.
type Shared struct {
	Balance     float64
	Condition   models.MarketCondition
	Indicators  map[string]float64
	Signals     []models.Signal
	Positions   map[string]*models.Position
	Ledger      []*models.Position
	Performance map[string]models.StrategyPerformance
}

// Snapshot is an immutable copy handed to readers. Maps and slices are
// deep-copied; readers can hold it indefinitely.
type Snapshot struct {
	Time        time.Time
	Balance     float64
	Condition   models.MarketCondition
	Indicators  map[string]float64
	Signals     []models.Signal
	Positions   map[string]models.Position
	Ledger      []models.Position
	Performance map[string]models.StrategyPerformance
}

// Store serializes all access to the shared aggregate. Critical sections are
// short: one pipeline cycle applies as a single Update so readers never see
// fresh indicators mixed with a stale market condition.
type Store struct {
	mu sync.RWMutex
	sh Shared
}

func New(initialBalance float64) *Store {
	return &Store{
		sh: Shared{
			Balance:     initialBalance,
			Indicators:  make(map[string]float64),
			Positions:   make(map[string]*models.Position),
			Performance: make(map[string]models.StrategyPerformance),
		},
	}
}

// Update runs fn with exclusive access to the aggregate. fn must not block
// on I/O; persistence happens outside the lock.
func (s *Store) Update(fn func(*Shared)) {
	s.mu.Lock()
	fn(&s.sh)
	s.mu.Unlock()
}

// Snapshot returns a deep copy of the current aggregate.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{
		Time:        time.Now(),
		Balance:     s.sh.Balance,
		Condition:   s.sh.Condition,
		Indicators:  make(map[string]float64, len(s.sh.Indicators)),
		Signals:     make([]models.Signal, len(s.sh.Signals)),
		Positions:   make(map[string]models.Position, len(s.sh.Positions)),
		Ledger:      make([]models.Position, len(s.sh.Ledger)),
		Performance: make(map[string]models.StrategyPerformance, len(s.sh.Performance)),
	}
	for k, v := range s.sh.Indicators {
		snap.Indicators[k] = v
	}
	copy(snap.Signals, s.sh.Signals)
	for id, p := range s.sh.Positions {
		snap.Positions[id] = *p
	}
	for i, p := range s.sh.Ledger {
		snap.Ledger[i] = *p
	}
	for k, v := range s.sh.Performance {
		snap.Performance[k] = v
	}
	return snap
}

// Balance returns the current balance without copying the aggregate.
func (s *Store) Balance() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sh.Balance
}

// OpenPositionCount returns the number of open positions.
func (s *Store) OpenPositionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sh.Positions)
}
