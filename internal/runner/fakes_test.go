package runner

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	testingclock "k8s.io/utils/clock/testing"
)

type fakeConn struct {
	closed *atomic.Int64
}

func (c fakeConn) QueryContext(context.Context, string, ...any) (*sql.Rows, error) {
	return nil, nil
}

func (c fakeConn) Close() error {
	c.closed.Add(1)
	return nil
}

// fakeConnector hands out fakeConns. The first okCalls connects succeed; after
// that connect fails with err when err is set.
type fakeConnector struct {
	err     error
	okCalls int64

	calls  atomic.Int64
	closed atomic.Int64
}

func (c *fakeConnector) Connect(context.Context) (Conn, error) {
	n := c.calls.Add(1)
	if c.err != nil && n > c.okCalls {
		return nil, c.err
	}
	return fakeConn{closed: &c.closed}, nil
}

type fakeExecutor struct {
	latency time.Duration
	fail    func(queryID int) bool

	mu  sync.Mutex
	ids []int
}

func (e *fakeExecutor) Execute(_ context.Context, _ Conn, queryID int) ExecResult {
	e.mu.Lock()
	e.ids = append(e.ids, queryID)
	e.mu.Unlock()

	if e.fail != nil && e.fail(queryID) {
		return ExecResult{Latency: e.latency, Err: errors.New("query failed")}
	}
	return ExecResult{Success: true, Latency: e.latency}
}

func (e *fakeExecutor) queryIDs() []int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]int(nil), e.ids...)
}

func quietLogger() logrus.FieldLogger {
	l, _ := logtest.NewNullLogger()
	return l
}

// stepUntilDone advances fc by one second whenever something waits on it,
// until done is closed. Query counts are only exact when a single goroutine
// waits on fc.
func stepUntilDone(t *testing.T, fc *testingclock.FakeClock, done <-chan struct{}) {
	t.Helper()
	deadline := time.After(10 * time.Second)
	for {
		select {
		case <-done:
			return
		case <-deadline:
			t.Fatal("run did not finish")
		case <-time.After(time.Millisecond):
			if fc.HasWaiters() {
				fc.Step(time.Second)
			}
		}
	}
}
