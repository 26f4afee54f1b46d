package runner

import (
	"sync"
	"sync/atomic"

	"steadydb/internal/stats"
)

// ResultSink is the append-only store of query outcomes shared by all workers
// of a run. Appends are serialised by a mutex; Len is lock free.
type ResultSink struct {
	mu       sync.Mutex
	outcomes []QueryOutcome
	count    atomic.Int64

	live      *stats.Stats
	observers []Observer
}

func NewResultSink(observers ...Observer) *ResultSink {
	return &ResultSink{
		live:      stats.NewStats(),
		observers: observers,
	}
}

// Append records one outcome. Safe for concurrent use.
func (s *ResultSink) Append(o QueryOutcome) {
	s.mu.Lock()
	s.outcomes = append(s.outcomes, o)
	s.count.Add(1)
	s.mu.Unlock()

	s.live.AddQuery(o.Success, o.Latency)
	for _, obs := range s.observers {
		obs.Observe(o)
	}
}

// Len returns the number of outcomes appended so far.
func (s *ResultSink) Len() int {
	return int(s.count.Load())
}

// Snapshot returns a copy of every outcome appended before the call.
func (s *ResultSink) Snapshot() []QueryOutcome {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]QueryOutcome, len(s.outcomes))
	copy(out, s.outcomes)
	return out
}

// Live returns running counters and latency percentiles.
func (s *ResultSink) Live() stats.Snapshot {
	return s.live.Snapshot()
}
