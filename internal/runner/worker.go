package runner

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"k8s.io/utils/clock"
)

// tick is the pacing window of a worker.
const tick = time.Second

type worker struct {
	id       int
	qps      int
	duration time.Duration
	timeout  time.Duration

	connector Connector
	executor  Executor
	sink      *ResultSink
	clock     clock.Clock
	log       logrus.FieldLogger
}

// run issues up to qps attempts per tick until the duration elapses or ctx is
// cancelled. Both conditions are checked at every tick and before every query.
func (w *worker) run(ctx context.Context) {
	start := w.clock.Now()
	queryID := w.id * 1000

	stopped := func() bool {
		return ctx.Err() != nil || w.clock.Since(start) >= w.duration
	}

	for {
		if stopped() {
			return
		}
		tickStart := w.clock.Now()

		for i := 0; i < w.qps; i++ {
			if stopped() {
				return
			}
			w.attempt(ctx, queryID)
			queryID++
		}

		wait := tick - w.clock.Since(tickStart)
		if wait <= 0 {
			continue
		}
		select {
		case <-ctx.Done():
			return
		case <-w.clock.After(wait):
		}
	}
}

// attempt performs one query and appends exactly one outcome. Cancelling ctx
// does not abort an attempt already in flight.
func (w *worker) attempt(ctx context.Context, queryID int) {
	qctx := context.WithoutCancel(ctx)
	if w.timeout > 0 {
		var cancel context.CancelFunc
		qctx, cancel = context.WithTimeout(qctx, w.timeout)
		defer cancel()
	}

	outcome := QueryOutcome{
		TimeStamp: w.clock.Now(),
		WorkerID:  w.id,
		QueryID:   queryID,
	}

	conn, err := w.connector.Connect(qctx)
	if err != nil {
		outcome.Error = err.Error()
		w.log.WithField("query_id", queryID).WithError(err).Debug("connection failed")
		w.sink.Append(outcome)
		return
	}

	res := w.executor.Execute(qctx, conn, queryID)
	if cerr := conn.Close(); cerr != nil {
		w.log.WithError(cerr).Debug("closing connection")
	}

	outcome.Success = res.Success && res.Err == nil
	outcome.Latency = max(res.Latency, 0)
	if res.Err != nil {
		outcome.Error = res.Err.Error()
		w.log.WithField("query_id", queryID).WithError(res.Err).Debug("query failed")
	}
	w.sink.Append(outcome)
}
