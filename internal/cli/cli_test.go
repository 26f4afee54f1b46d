package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"steadydb/internal/dummy"
	"steadydb/internal/runner"
	"steadydb/internal/storage"
)

func newDummyRunner(t *testing.T, profile string, opts ...dummy.Option) (*runner.Runner, logrus.FieldLogger) {
	t.Helper()
	p, err := dummy.LookupProfile(profile)
	require.NoError(t, err)

	db := dummy.New(p, opts...)
	log, _ := logtest.NewNullLogger()
	return runner.NewRunner(db, db, runner.WithLogger(log)), log
}

func TestStart_PrintsHeaderProgressAndReport(t *testing.T) {
	r, log := newDummyRunner(t, "instant")
	var out bytes.Buffer

	cfg := runner.Config{Duration: 2 * time.Second, TargetQPS: 10, Workers: 2}
	rs, err := Start(context.Background(), r, cfg, &out, Options{Target: "dummy:instant", Log: log})
	require.NoError(t, err)

	assert.InDelta(t, 20, rs.Total, 4)
	assert.Equal(t, rs.Total, rs.Success)

	text := out.String()
	assert.Contains(t, text, "STARTING STEADYDB LOAD TEST")
	assert.Contains(t, text, "Target        : dummy:instant")
	assert.Contains(t, text, "Per-thread QPS: 5")
	assert.Contains(t, text, "Expected total: 20 queries")
	assert.Contains(t, text, "queries | 🚀")
	assert.Contains(t, text, "LOAD TEST RESULTS")
	assert.Contains(t, text, "Success Rate   : 100.00%")
	assert.NotContains(t, text, "FAILURE SUMMARY")

	// the final report keeps the fixed field order
	order := []string{"Total Queries", "Successful", "Failed", "Success Rate", "Fastest", "Slowest", "Average", "ACTUAL QPS"}
	last := -1
	for _, field := range order {
		idx := bytes.Index(out.Bytes(), []byte(field))
		require.GreaterOrEqual(t, idx, 0, field)
		assert.Greater(t, idx, last, field)
		last = idx
	}
}

func TestStart_ConnectivityFailureIsFatal(t *testing.T) {
	r, log := newDummyRunner(t, "instant", dummy.Down())
	var out bytes.Buffer

	_, err := Start(context.Background(), r, runner.Config{Duration: time.Second, TargetQPS: 1, Workers: 1}, &out, Options{Log: log})
	require.ErrorIs(t, err, runner.ErrConnectivity)
	assert.NotContains(t, out.String(), "LOAD TEST RESULTS")
}

func TestStart_InvalidConfig(t *testing.T) {
	r, log := newDummyRunner(t, "instant")

	_, err := Start(context.Background(), r, runner.Config{Duration: time.Second, TargetQPS: 1}, &bytes.Buffer{}, Options{Log: log})
	assert.ErrorIs(t, err, runner.ErrInvalidConfig)
}

func TestStart_FailuresSummaryReportAndHistory(t *testing.T) {
	r, log := newDummyRunner(t, "error", dummy.WithSeed(1))
	dir := t.TempDir()

	store, err := storage.Open(filepath.Join(dir, "history.db"))
	require.NoError(t, err)
	defer store.Close()

	var out bytes.Buffer
	prefix := filepath.Join(dir, "run")
	rs, err := Start(context.Background(), r, runner.Config{Duration: time.Second, TargetQPS: 50, Workers: 5}, &out, Options{
		Target:    "dummy:error",
		OutPrefix: prefix,
		History:   store,
		Log:       log,
	})
	require.NoError(t, err)
	require.Equal(t, 50, rs.Total)
	assert.Positive(t, rs.Failed)

	assert.Contains(t, out.String(), "FAILURE SUMMARY")
	assert.Contains(t, out.String(), "Reports saved to")
	for _, name := range []string{"run.csv", "run_summary.json", "run_timeline.json"} {
		_, err := os.Stat(filepath.Join(dir, name))
		assert.NoError(t, err, name)
	}

	items, err := store.List(0)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "dummy:error", items[0].Target)
	assert.Equal(t, rs.Total, items[0].Summary.Total)
}

func TestStart_CancelledContextReportsPartialResults(t *testing.T) {
	r, log := newDummyRunner(t, "instant")
	var out bytes.Buffer

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(300 * time.Millisecond)
		cancel()
	}()

	rs, err := Start(ctx, r, runner.Config{Duration: time.Hour, TargetQPS: 4, Workers: 2}, &out, Options{Log: log})
	require.NoError(t, err)
	assert.Equal(t, 4, rs.Total)
	assert.Contains(t, out.String(), "INTERRUPTED")
}
