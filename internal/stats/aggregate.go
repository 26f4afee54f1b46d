package stats

import (
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// RunStats is the summary of a finished run. Latency fields cover successful
// queries only and are zero when there were none.
type RunStats struct {
	Total   int `json:"total"`
	Success int `json:"success"`
	Failed  int `json:"failed"`

	// SuccessRate is a fraction in [0, 1]
	SuccessRate float64 `json:"success_rate"`

	MinLatency  time.Duration `json:"min_latency"`
	MaxLatency  time.Duration `json:"max_latency"`
	MeanLatency time.Duration `json:"mean_latency"`
	P50Latency  time.Duration `json:"p50_latency"`
	P90Latency  time.Duration `json:"p90_latency"`
	P99Latency  time.Duration `json:"p99_latency"`

	Elapsed     time.Duration `json:"elapsed"`
	AchievedQPS float64       `json:"achieved_qps"`
}

// Aggregator folds outcomes into RunStats. It is not safe for concurrent use;
// it runs once over a finished snapshot.
type Aggregator struct {
	total   int
	success int

	min time.Duration
	max time.Duration
	sum time.Duration

	hist *hdrhistogram.Histogram
}

func NewAggregator() *Aggregator {
	return &Aggregator{hist: newHistogram()}
}

func (a *Aggregator) Add(success bool, latency time.Duration) {
	a.total++
	if !success {
		return
	}
	if latency < 0 {
		latency = 0
	}

	if a.success == 0 || latency < a.min {
		a.min = latency
	}
	if latency > a.max {
		a.max = latency
	}
	a.success++
	a.sum += latency
	a.hist.RecordValue(toMicros(latency))
}

// Result computes RunStats over everything added so far. Achieved QPS is
// total / elapsed and reports 0 for a non-positive elapsed.
func (a *Aggregator) Result(elapsed time.Duration) RunStats {
	rs := RunStats{
		Total:   a.total,
		Success: a.success,
		Failed:  a.total - a.success,
		Elapsed: elapsed,
	}

	if a.total > 0 {
		rs.SuccessRate = float64(a.success) / float64(a.total)
	}
	if elapsed > 0 {
		rs.AchievedQPS = float64(a.total) / elapsed.Seconds()
	}

	if a.success > 0 {
		rs.MinLatency = a.min
		rs.MaxLatency = a.max
		rs.MeanLatency = a.sum / time.Duration(a.success)
		rs.P50Latency = time.Duration(a.hist.ValueAtQuantile(50)) * time.Microsecond
		rs.P90Latency = time.Duration(a.hist.ValueAtQuantile(90)) * time.Microsecond
		rs.P99Latency = time.Duration(a.hist.ValueAtQuantile(99)) * time.Microsecond
	}

	return rs
}
