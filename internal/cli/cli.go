package cli

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"steadydb/internal/report"
	"steadydb/internal/runner"
	"steadydb/internal/stats"
	"steadydb/internal/storage"
	"steadydb/internal/tui"
)

const rule = "======================================================================"

// Options control everything around the run itself.
type Options struct {
	// Target describes the database under test in the header and history
	Target string

	// OutPrefix enables report export when set
	OutPrefix string

	// TUI replaces the progress lines with the interactive dashboard
	TUI bool

	// History receives the summary of every finished run when set
	History *storage.Store

	Log logrus.FieldLogger
}

// Start runs one load test and prints its header, progress and final report
// to out. The returned error is only set for fatal startup failures.
func Start(ctx context.Context, r *runner.Runner, cfg runner.Config, out io.Writer, opts Options) (stats.RunStats, error) {
	if opts.Log == nil {
		opts.Log = logrus.StandardLogger()
	}
	printHeader(out, opts.Target, cfg)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	run, err := r.Start(runCtx, cfg)
	if err != nil {
		return stats.RunStats{}, err
	}
	fmt.Fprintf(out, "✅ Connected, %d workers at %d queries/s each\n\n", cfg.Workers, run.PerWorkerQPS)

	progress := r.Monitor(runCtx, run)
	var rs stats.RunStats

	if opts.TUI {
		model := tui.NewModel("SteadyDB Load Test", cfg, progress,
			func() stats.RunStats { return r.AwaitCompletion(run) },
			cancel,
		)
		if _, err := tui.Run(model); err != nil {
			opts.Log.WithError(err).Warn("dashboard failed, stopping run")
			cancel()
		}
		rs = r.AwaitCompletion(run)
	} else {
		for p := range progress {
			printProgress(out, p)
		}
		rs = r.AwaitCompletion(run)
	}

	interrupted := runCtx.Err() != nil && rs.Elapsed < cfg.Duration
	PrintSummary(out, rs, report.ErrorCounts(run.Sink.Snapshot()), interrupted)
	handleAutoReport(out, opts, run, rs)
	saveHistory(opts, run, rs)

	return rs, nil
}

func printHeader(out io.Writer, target string, cfg runner.Config) {
	fmt.Fprintf(out, "\n🚀 STARTING STEADYDB LOAD TEST\n")
	fmt.Fprintln(out, rule)
	if target != "" {
		fmt.Fprintf(out, "Target        : %s\n", target)
	}
	fmt.Fprintf(out, "Target QPS    : %d\n", cfg.TargetQPS)
	fmt.Fprintf(out, "Duration      : %s\n", cfg.Duration)
	fmt.Fprintf(out, "Threads       : %d\n", cfg.Workers)
	fmt.Fprintf(out, "Per-thread QPS: %d\n", cfg.PerWorkerQPS())
	fmt.Fprintf(out, "Expected total: %d queries\n", int64(cfg.TargetQPS)*int64(cfg.Duration/time.Second))
	if cfg.QueryTimeout > 0 {
		fmt.Fprintf(out, "Query timeout : %s\n", cfg.QueryTimeout)
	}
	fmt.Fprintln(out, rule)
}

func printProgress(out io.Writer, p runner.Progress) {
	fmt.Fprintf(out, "⏱️  %6.1fs | 📊 %d queries | 🚀 %d/s\n", p.Elapsed.Seconds(), p.Total, p.Delta)
}

func ms(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

// PrintSummary writes the final report of a run.
func PrintSummary(out io.Writer, rs stats.RunStats, errCounts map[string]int, interrupted bool) {
	title := "📊 LOAD TEST RESULTS"
	if interrupted {
		title = "⚠️  LOAD TEST INTERRUPTED, PARTIAL RESULTS"
	}

	fmt.Fprintf(out, "\n%s\n", title)
	fmt.Fprintln(out, rule)
	fmt.Fprintf(out, "Total Queries  : %d\n", rs.Total)
	fmt.Fprintf(out, "Successful     : %d\n", rs.Success)
	fmt.Fprintf(out, "Failed         : %d\n", rs.Failed)
	fmt.Fprintf(out, "Success Rate   : %.2f%%\n", rs.SuccessRate*100)
	fmt.Fprintf(out, "\n⏱️  LATENCY (ms) [Success Only]\n")
	fmt.Fprintf(out, "   Fastest : %.2f\n", ms(rs.MinLatency))
	fmt.Fprintf(out, "   Slowest : %.2f\n", ms(rs.MaxLatency))
	fmt.Fprintf(out, "   Average : %.2f\n", ms(rs.MeanLatency))
	fmt.Fprintf(out, "\n🎯 ACTUAL QPS   : %.2f (over %s)\n", rs.AchievedQPS, rs.Elapsed.Round(time.Millisecond))
	fmt.Fprintf(out, "\n📈 PERCENTILES (ms)\n")
	fmt.Fprintf(out, "   P50 : %.2f\n", ms(rs.P50Latency))
	fmt.Fprintf(out, "   P90 : %.2f\n", ms(rs.P90Latency))
	fmt.Fprintf(out, "   P99 : %.2f\n", ms(rs.P99Latency))

	if len(errCounts) > 0 {
		msgs := make([]string, 0, len(errCounts))
		for msg := range errCounts {
			msgs = append(msgs, msg)
		}
		sort.Slice(msgs, func(i, j int) bool {
			if errCounts[msgs[i]] != errCounts[msgs[j]] {
				return errCounts[msgs[i]] > errCounts[msgs[j]]
			}
			return msgs[i] < msgs[j]
		})

		fmt.Fprintf(out, "\n❌ FAILURE SUMMARY\n")
		for _, msg := range msgs {
			fmt.Fprintf(out, "   %d x %s\n", errCounts[msg], strings.TrimSpace(msg))
		}
	}
	fmt.Fprintln(out, rule)
}

func handleAutoReport(out io.Writer, opts Options, run *runner.Run, rs stats.RunStats) {
	if opts.OutPrefix == "" {
		return
	}

	fmt.Fprintf(out, "\n💾 Generating reports with prefix: %s\n", opts.OutPrefix)
	files, err := report.ExportAll(opts.OutPrefix, run, rs)
	if err != nil {
		opts.Log.WithError(err).Error("report export failed")
		return
	}
	fmt.Fprintf(out, "✅ Reports saved to %s, %s, %s\n", files.CSV, files.Summary, files.Timeline)
}

func saveHistory(opts Options, run *runner.Run, rs stats.RunStats) {
	if opts.History == nil {
		return
	}

	err := opts.History.Save(storage.HistoryItem{
		ID:        run.ID.String(),
		Timestamp: run.StartTime,
		Target:    opts.Target,
		Config:    run.Config,
		Summary:   rs,
	})
	if err != nil {
		opts.Log.WithError(err).Warn("could not save run history")
	}
}
