package stats

import (
	"sync/atomic"
	"time"
)

// Stats holds real-time aggregated metrics
type Stats struct {
	Queries uint64
	Success uint64
	Fail    uint64

	// Latency of successful queries only
	Latency *SafeHistogram
}

// Snapshot is a point-in-time copy of Stats, cheap to hand to the UI
type Snapshot struct {
	Queries uint64
	Success uint64
	Fail    uint64

	P50 time.Duration
	P90 time.Duration
	P99 time.Duration
	Max time.Duration
}

func NewStats() *Stats {
	return &Stats{
		Latency: NewSafeHistogram(),
	}
}

func (s *Stats) AddQuery(success bool, latency time.Duration) {
	atomic.AddUint64(&s.Queries, 1)
	if success {
		atomic.AddUint64(&s.Success, 1)
		s.Latency.RecordLatency(latency)
	} else {
		atomic.AddUint64(&s.Fail, 1)
	}
}

func (s *Stats) Snapshot() Snapshot {
	return Snapshot{
		Queries: atomic.LoadUint64(&s.Queries),
		Success: atomic.LoadUint64(&s.Success),
		Fail:    atomic.LoadUint64(&s.Fail),
		P50:     s.Latency.ValueAtQuantile(50),
		P90:     s.Latency.ValueAtQuantile(90),
		P99:     s.Latency.ValueAtQuantile(99),
		Max:     s.Latency.Max(),
	}
}

// ErrorRate returns the failed share of queries as a percentage
func (s Snapshot) ErrorRate() float64 {
	if s.Queries == 0 {
		return 0
	}
	return (float64(s.Fail) / float64(s.Queries)) * 100
}

func (s *Stats) Reset() {
	atomic.StoreUint64(&s.Queries, 0)
	atomic.StoreUint64(&s.Success, 0)
	atomic.StoreUint64(&s.Fail, 0)
	s.Latency.Reset()
}
