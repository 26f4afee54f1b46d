package runner

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	testingclock "k8s.io/utils/clock/testing"
)

func newFakeRunner(conn *fakeConnector, exec *fakeExecutor, fc *testingclock.FakeClock) *Runner {
	opts := []Option{WithLogger(quietLogger())}
	if fc != nil {
		opts = append(opts, WithClock(fc))
	}
	return NewRunner(conn, exec, opts...)
}

func TestRunner_PacesQueriesPerSecond(t *testing.T) {
	fc := testingclock.NewFakeClock(time.Unix(0, 0))
	conn := &fakeConnector{}
	exec := &fakeExecutor{latency: 2 * time.Millisecond}
	r := newFakeRunner(conn, exec, fc)

	run, err := r.Start(context.Background(), Config{Duration: 3 * time.Second, TargetQPS: 5, Workers: 1})
	require.NoError(t, err)

	stepUntilDone(t, fc, run.Done())
	rs := r.AwaitCompletion(run)

	assert.Equal(t, 15, rs.Total)
	assert.Equal(t, 15, rs.Success)
	assert.Equal(t, 3*time.Second, rs.Elapsed)
	assert.InDelta(t, 5.0, rs.AchievedQPS, 1e-9)

	ids := exec.queryIDs()
	require.Len(t, ids, 15)
	for i, id := range ids {
		assert.Equal(t, i, id)
	}

	// one connectivity check plus one connection per query, all returned
	assert.EqualValues(t, 16, conn.calls.Load())
	assert.EqualValues(t, 16, conn.closed.Load())
}

func TestRunner_WorkerQueryIDsSeededByWorker(t *testing.T) {
	conn := &fakeConnector{}
	exec := &fakeExecutor{}
	r := newFakeRunner(conn, exec, nil)

	run, err := r.Start(context.Background(), Config{Duration: 100 * time.Millisecond, TargetQPS: 6, Workers: 3})
	require.NoError(t, err)
	rs := r.AwaitCompletion(run)
	require.Equal(t, 6, rs.Total)

	byWorker := map[int][]int{}
	for _, o := range run.Sink.Snapshot() {
		byWorker[o.WorkerID] = append(byWorker[o.WorkerID], o.QueryID)
	}
	require.Len(t, byWorker, 3)
	for w, ids := range byWorker {
		assert.ElementsMatch(t, []int{w * 1000, w*1000 + 1}, ids)
	}
}

func TestRunner_FailuresAreRecorded(t *testing.T) {
	fc := testingclock.NewFakeClock(time.Unix(0, 0))
	conn := &fakeConnector{}
	exec := &fakeExecutor{
		latency: time.Millisecond,
		fail:    func(id int) bool { return id%2 == 1 },
	}
	r := newFakeRunner(conn, exec, fc)

	run, err := r.Start(context.Background(), Config{Duration: 2 * time.Second, TargetQPS: 4, Workers: 1})
	require.NoError(t, err)
	stepUntilDone(t, fc, run.Done())
	rs := r.AwaitCompletion(run)

	assert.Equal(t, 8, rs.Total)
	assert.Equal(t, 4, rs.Failed)
	assert.InDelta(t, 0.5, rs.SuccessRate, 1e-9)

	for _, o := range run.Sink.Snapshot() {
		if o.Success {
			assert.Empty(t, o.Error)
		} else {
			assert.Equal(t, "query failed", o.Error)
		}
	}
}

func TestRunner_ConnectionFailureHasZeroLatency(t *testing.T) {
	fc := testingclock.NewFakeClock(time.Unix(0, 0))
	conn := &fakeConnector{err: errors.New("too many connections"), okCalls: 1}
	exec := &fakeExecutor{latency: time.Millisecond}
	r := newFakeRunner(conn, exec, fc)

	run, err := r.Start(context.Background(), Config{Duration: time.Second, TargetQPS: 3, Workers: 1})
	require.NoError(t, err)
	stepUntilDone(t, fc, run.Done())
	rs := r.AwaitCompletion(run)

	assert.Equal(t, 3, rs.Total)
	assert.Equal(t, 3, rs.Failed)
	assert.Zero(t, rs.MeanLatency)
	assert.Empty(t, exec.queryIDs())
	for _, o := range run.Sink.Snapshot() {
		assert.Zero(t, o.Latency)
		assert.Equal(t, "too many connections", o.Error)
	}
}

func TestRunner_ZeroPerWorkerQPSAppendsNothing(t *testing.T) {
	fc := testingclock.NewFakeClock(time.Unix(0, 0))
	conn := &fakeConnector{}
	r := newFakeRunner(conn, &fakeExecutor{}, fc)

	run, err := r.Start(context.Background(), Config{Duration: 2 * time.Second, TargetQPS: 3, Workers: 5})
	require.NoError(t, err)
	assert.Equal(t, 0, run.PerWorkerQPS)

	stepUntilDone(t, fc, run.Done())

	rs := r.AwaitCompletion(run)
	assert.Zero(t, rs.Total)
	assert.Zero(t, rs.AchievedQPS)
	assert.EqualValues(t, 1, conn.calls.Load())
}

func TestRunner_StartRejectsInvalidConfig(t *testing.T) {
	conn := &fakeConnector{}
	r := newFakeRunner(conn, &fakeExecutor{}, nil)

	run, err := r.Start(context.Background(), Config{Duration: time.Second, TargetQPS: 10})
	require.ErrorIs(t, err, ErrInvalidConfig)
	assert.Nil(t, run)
	assert.Zero(t, conn.calls.Load())
}

func TestRunner_StartFailsWithoutConnectivity(t *testing.T) {
	cause := errors.New("dial tcp 127.0.0.1:3306: connect: connection refused")
	conn := &fakeConnector{err: cause}
	exec := &fakeExecutor{}
	r := newFakeRunner(conn, exec, nil)

	run, err := r.Start(context.Background(), Config{Duration: time.Second, TargetQPS: 10, Workers: 2})
	require.ErrorIs(t, err, ErrConnectivity)
	assert.ErrorIs(t, err, cause)
	assert.Nil(t, run)

	time.Sleep(20 * time.Millisecond)
	assert.EqualValues(t, 1, conn.calls.Load())
	assert.Empty(t, exec.queryIDs())
}

func TestRunner_RealClockScenario(t *testing.T) {
	r := newFakeRunner(&fakeConnector{}, &fakeExecutor{latency: time.Millisecond}, nil)

	run, err := r.Start(context.Background(), Config{Duration: 2 * time.Second, TargetQPS: 10, Workers: 2})
	require.NoError(t, err)
	assert.Equal(t, 5, run.PerWorkerQPS)

	rs := r.AwaitCompletion(run)
	assert.InDelta(t, 20, rs.Total, 4)
	assert.Equal(t, rs.Total, rs.Success)
	assert.InDelta(t, 10, rs.AchievedQPS, 3)

	assert.Equal(t, rs, r.AwaitCompletion(run))
}

func TestRunner_CancelStopsWorkers(t *testing.T) {
	r := newFakeRunner(&fakeConnector{}, &fakeExecutor{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	run, err := r.Start(ctx, Config{Duration: time.Hour, TargetQPS: 4, Workers: 2})
	require.NoError(t, err)

	require.Eventually(t, func() bool { return run.Sink.Len() >= 4 }, time.Second, time.Millisecond)
	cancel()

	select {
	case <-run.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("workers ignored cancellation")
	}
	rs := r.AwaitCompletion(run)
	assert.Equal(t, 4, rs.Total)
	assert.Less(t, rs.Elapsed, time.Hour)
}

// blockingExecutor holds every query until release is closed and records
// whether the query context had been cancelled by then.
type blockingExecutor struct {
	started  chan struct{}
	release  chan struct{}
	canceled chan bool
}

func (e *blockingExecutor) Execute(ctx context.Context, _ Conn, _ int) ExecResult {
	e.started <- struct{}{}
	<-e.release
	e.canceled <- ctx.Err() != nil
	return ExecResult{Success: true, Latency: time.Millisecond}
}

func TestRunner_InFlightQuerySurvivesCancel(t *testing.T) {
	exec := &blockingExecutor{
		started:  make(chan struct{}, 1),
		release:  make(chan struct{}),
		canceled: make(chan bool, 1),
	}
	r := NewRunner(&fakeConnector{}, exec, WithLogger(quietLogger()))

	ctx, cancel := context.WithCancel(context.Background())
	run, err := r.Start(ctx, Config{Duration: time.Hour, TargetQPS: 1, Workers: 1})
	require.NoError(t, err)

	<-exec.started
	cancel()
	close(exec.release)

	assert.False(t, <-exec.canceled)
	rs := r.AwaitCompletion(run)
	assert.Equal(t, 1, rs.Total)
	assert.Equal(t, 1, rs.Success)
}

func TestRunner_Monitor(t *testing.T) {
	fc := testingclock.NewFakeClock(time.Unix(0, 0))
	r := newFakeRunner(&fakeConnector{}, &fakeExecutor{}, fc)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	run, err := r.Start(ctx, Config{Duration: 3 * time.Second, TargetQPS: 2, Workers: 1})
	require.NoError(t, err)
	progress := r.Monitor(ctx, run)

	var events []Progress
	for i := 1; i <= 3; i++ {
		fc.Step(time.Second)
		select {
		case p, ok := <-progress:
			require.True(t, ok)
			events = append(events, p)
		case <-time.After(5 * time.Second):
			t.Fatalf("no progress after %ds", i)
		}
	}

	select {
	case _, ok := <-progress:
		assert.False(t, ok, "monitor kept emitting past the duration")
	case <-time.After(5 * time.Second):
		t.Fatal("monitor channel not closed")
	}

	require.Len(t, events, 3)
	sum := 0
	for i, p := range events {
		assert.Equal(t, time.Duration(i+1)*time.Second, p.Elapsed)
		sum += p.Delta
		assert.Equal(t, sum, p.Total)
	}

	cancel()
	<-run.Done()
}

func TestRunner_MonitorStopsOnCancel(t *testing.T) {
	fc := testingclock.NewFakeClock(time.Unix(0, 0))
	r := newFakeRunner(&fakeConnector{}, &fakeExecutor{}, fc)

	ctx, cancel := context.WithCancel(context.Background())
	run, err := r.Start(ctx, Config{Duration: time.Hour, TargetQPS: 1, Workers: 1})
	require.NoError(t, err)

	progress := r.Monitor(ctx, run)
	cancel()

	select {
	case _, ok := <-progress:
		assert.False(t, ok)
	case <-time.After(5 * time.Second):
		t.Fatal("monitor ignored cancellation")
	}
	<-run.Done()
}
