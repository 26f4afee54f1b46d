package stats

import (
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// maxTrackable bounds every latency histogram; slower values are clamped.
const maxTrackable = 10 * time.Minute

// SafeHistogram is a thread-safe wrapper around hdrhistogram
type SafeHistogram struct {
	hist *hdrhistogram.Histogram
	mu   sync.Mutex
}

func NewSafeHistogram() *SafeHistogram {
	return &SafeHistogram{hist: newHistogram()}
}

// 1us to 10min, 3 significant figures
func newHistogram() *hdrhistogram.Histogram {
	return hdrhistogram.New(1, int64(maxTrackable/time.Microsecond), 3)
}

// toMicros converts a latency to the histogram unit, clamped to the trackable range.
func toMicros(d time.Duration) int64 {
	if d < 0 {
		return 0
	}
	if d > maxTrackable {
		d = maxTrackable
	}
	return int64(d / time.Microsecond)
}

// RecordLatency records a latency, stored in microseconds
func (h *SafeHistogram) RecordLatency(d time.Duration) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.hist.RecordValue(toMicros(d))
}

// ValueAtQuantile returns the latency at q (0-100)
func (h *SafeHistogram) ValueAtQuantile(q float64) time.Duration {
	h.mu.Lock()
	defer h.mu.Unlock()
	return time.Duration(h.hist.ValueAtQuantile(q)) * time.Microsecond
}

func (h *SafeHistogram) Mean() time.Duration {
	h.mu.Lock()
	defer h.mu.Unlock()
	return time.Duration(h.hist.Mean() * float64(time.Microsecond))
}

func (h *SafeHistogram) Max() time.Duration {
	h.mu.Lock()
	defer h.mu.Unlock()
	return time.Duration(h.hist.Max()) * time.Microsecond
}

func (h *SafeHistogram) TotalCount() int64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.hist.TotalCount()
}

func (h *SafeHistogram) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.hist.Reset()
}
