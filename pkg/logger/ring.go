package logger

import (
	"context"
	"sync"
)

// RingPublisher is a Publisher that retains the most recent aggregated log
// entries in memory so they can be served over HTTP. It never blocks.
type RingPublisher struct {
	mu      sync.RWMutex
	entries []AggregatedLogEntry
	max     int
}

func NewRingPublisher(max int) *RingPublisher {
	if max <= 0 {
		max = 1000
	}
	return &RingPublisher{max: max}
}

func (r *RingPublisher) PublishMessage(_ context.Context, _ string, payload interface{}) error {
	logs, ok := payload.([]AggregatedLogEntry)
	if !ok {
		return nil
	}

	r.mu.Lock()
	r.entries = append(r.entries, logs...)
	if over := len(r.entries) - r.max; over > 0 {
		r.entries = append(r.entries[:0], r.entries[over:]...)
	}
	r.mu.Unlock()
	return nil
}

// Recent returns up to limit most recent entries, newest last.
func (r *RingPublisher) Recent(limit int) []AggregatedLogEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := len(r.entries)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]AggregatedLogEntry, n)
	copy(out, r.entries[len(r.entries)-n:])
	return out
}
