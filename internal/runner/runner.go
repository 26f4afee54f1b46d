package runner

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"k8s.io/utils/clock"

	"steadydb/internal/stats"
)

// Progress is one observation of a running load test.
type Progress struct {
	Elapsed time.Duration
	Total   int
	// Delta is the number of outcomes appended since the previous observation
	Delta int
	Live  stats.Snapshot
}

type Runner struct {
	connector Connector
	executor  Executor
	clock     clock.WithTicker
	log       logrus.FieldLogger
	observers []Observer
}

type Option func(*Runner)

// WithClock replaces the wall clock used for pacing and monitoring.
func WithClock(c clock.WithTicker) Option {
	return func(r *Runner) { r.clock = c }
}

func WithLogger(l logrus.FieldLogger) Option {
	return func(r *Runner) { r.log = l }
}

// WithObserver registers o to be notified of every outcome of every run.
func WithObserver(o Observer) Option {
	return func(r *Runner) { r.observers = append(r.observers, o) }
}

func NewRunner(connector Connector, executor Executor, opts ...Option) *Runner {
	r := &Runner{
		connector: connector,
		executor:  executor,
		clock:     clock.RealClock{},
		log:       logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run is the handle of a started load test.
type Run struct {
	ID           uuid.UUID
	Config       Config
	PerWorkerQPS int
	Sink         *ResultSink
	StartTime    time.Time

	clock clock.PassiveClock
	done  chan struct{}
	end   time.Time

	once   sync.Once
	result stats.RunStats
}

// Done is closed once every worker has stopped.
func (run *Run) Done() <-chan struct{} {
	return run.done
}

// Elapsed is the time from start until now, or until the last worker stopped.
func (run *Run) Elapsed() time.Duration {
	select {
	case <-run.done:
		return run.end.Sub(run.StartTime)
	default:
		return run.clock.Since(run.StartTime)
	}
}

// Wait blocks until every worker stopped and returns the run statistics.
// Every call returns the same value.
func (run *Run) Wait() stats.RunStats {
	<-run.done
	run.once.Do(func() {
		run.result = Summarize(run.Sink.Snapshot(), run.Elapsed())
	})
	return run.result
}

type pinger interface {
	PingContext(ctx context.Context) error
}

// Start validates cfg, checks connectivity once and spawns the workers.
// No worker is started when either step fails.
func (r *Runner) Start(ctx context.Context, cfg Config) (*Run, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := r.checkConnectivity(ctx); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectivity, err)
	}

	run := &Run{
		ID:           uuid.New(),
		Config:       cfg,
		PerWorkerQPS: cfg.PerWorkerQPS(),
		Sink:         NewResultSink(r.observers...),
		StartTime:    r.clock.Now(),
		clock:        r.clock,
		done:         make(chan struct{}),
	}

	log := r.log.WithField("run_id", run.ID.String())
	if dropped := cfg.DroppedQPS(); dropped > 0 {
		log.WithFields(logrus.Fields{
			"target_qps":     cfg.TargetQPS,
			"workers":        cfg.Workers,
			"per_worker_qps": run.PerWorkerQPS,
			"dropped_qps":    dropped,
		}).Warn("target qps is not a multiple of the worker count, remainder dropped")
	}

	var wg sync.WaitGroup
	for i := 0; i < cfg.Workers; i++ {
		w := &worker{
			id:        i,
			qps:       run.PerWorkerQPS,
			duration:  cfg.Duration,
			timeout:   cfg.QueryTimeout,
			connector: r.connector,
			executor:  r.executor,
			sink:      run.Sink,
			clock:     r.clock,
			log:       log.WithField("worker", i),
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.run(ctx)
		}()
	}

	go func() {
		wg.Wait()
		run.end = r.clock.Now()
		close(run.done)
		log.WithField("queries", run.Sink.Len()).Debug("all workers stopped")
	}()

	log.WithFields(logrus.Fields{
		"workers":        cfg.Workers,
		"per_worker_qps": run.PerWorkerQPS,
		"duration":       cfg.Duration,
	}).Info("load test started")

	return run, nil
}

func (r *Runner) checkConnectivity(ctx context.Context) error {
	conn, err := r.connector.Connect(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	if p, ok := conn.(pinger); ok {
		return p.PingContext(ctx)
	}
	return nil
}

// Monitor emits one Progress per second until the configured duration is
// reached, the workers finish or ctx is cancelled. When the workers finish a
// last observation is emitted. The channel is closed when monitoring stops.
func (r *Runner) Monitor(ctx context.Context, run *Run) <-chan Progress {
	out := make(chan Progress)
	ticker := r.clock.NewTicker(time.Second)

	go func() {
		defer close(out)
		defer ticker.Stop()

		prev := 0
		emit := func() bool {
			total := run.Sink.Len()
			p := Progress{
				Elapsed: run.Elapsed(),
				Total:   total,
				Delta:   total - prev,
				Live:    run.Sink.Live(),
			}
			prev = total
			select {
			case out <- p:
				return true
			case <-ctx.Done():
				return false
			}
		}

		for {
			select {
			case <-ctx.Done():
				return
			case <-run.Done():
				emit()
				return
			case <-ticker.C():
				if !emit() {
					return
				}
				if run.Elapsed() >= run.Config.Duration {
					return
				}
			}
		}
	}()

	return out
}

// AwaitCompletion blocks until every worker of run stopped and returns the
// aggregated statistics of the final snapshot.
func (r *Runner) AwaitCompletion(run *Run) stats.RunStats {
	rs := run.Wait()
	r.log.WithFields(logrus.Fields{
		"run_id":  run.ID.String(),
		"total":   rs.Total,
		"failed":  rs.Failed,
		"elapsed": rs.Elapsed,
	}).Debug("load test finished")
	return rs
}

// Summarize computes RunStats over a snapshot of outcomes.
func Summarize(outcomes []QueryOutcome, elapsed time.Duration) stats.RunStats {
	agg := stats.NewAggregator()
	for _, o := range outcomes {
		agg.Add(o.Success, o.Latency)
	}
	return agg.Result(elapsed)
}
