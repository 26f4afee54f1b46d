package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"

	jsoniter "github.com/json-iterator/go"

	"steadydb/internal/runner"
	"steadydb/internal/stats"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Files are the paths written by ExportAll for one prefix.
type Files struct {
	CSV      string
	Summary  string
	Timeline string
}

func FilesFor(prefix string) Files {
	return Files{
		CSV:      prefix + ".csv",
		Summary:  prefix + "_summary.json",
		Timeline: prefix + "_timeline.json",
	}
}

// ExportAll writes the per-query CSV, the summary and the timeline.
func ExportAll(prefix string, run *runner.Run, rs stats.RunStats) (Files, error) {
	files := FilesFor(prefix)
	outcomes := run.Sink.Snapshot()

	if err := ExportCSV(outcomes, files.CSV); err != nil {
		return files, fmt.Errorf("writing %s: %w", files.CSV, err)
	}
	if err := ExportSummary(NewSummary(run, rs), files.Summary); err != nil {
		return files, fmt.Errorf("writing %s: %w", files.Summary, err)
	}
	if err := ExportTimeline(Timeline(outcomes, run.StartTime), files.Timeline); err != nil {
		return files, fmt.Errorf("writing %s: %w", files.Timeline, err)
	}
	return files, nil
}

// ExportCSV writes one row per outcome.
// Columns: timeStamp (unix ms), elapsed (ms), worker, queryId, success, failureMessage
func ExportCSV(outcomes []runner.QueryOutcome, filename string) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"timeStamp", "elapsed", "worker", "queryId", "success", "failureMessage"}); err != nil {
		return err
	}

	for _, o := range outcomes {
		record := []string{
			strconv.FormatInt(o.TimeStamp.UnixMilli(), 10),
			strconv.FormatFloat(float64(o.Latency)/float64(time.Millisecond), 'f', 3, 64),
			strconv.Itoa(o.WorkerID),
			strconv.Itoa(o.QueryID),
			strconv.FormatBool(o.Success),
			o.Error,
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

// Summary is the JSON document written next to the CSV.
type Summary struct {
	RunID        string         `json:"run_id"`
	StartTime    time.Time      `json:"start_time"`
	Config       runner.Config  `json:"config"`
	PerWorkerQPS int            `json:"per_worker_qps"`
	Stats        stats.RunStats `json:"stats"`
	Errors       map[string]int `json:"errors,omitempty"`
}

func NewSummary(run *runner.Run, rs stats.RunStats) Summary {
	return Summary{
		RunID:        run.ID.String(),
		StartTime:    run.StartTime,
		Config:       run.Config,
		PerWorkerQPS: run.PerWorkerQPS,
		Stats:        rs,
		Errors:       ErrorCounts(run.Sink.Snapshot()),
	}
}

func ExportSummary(s Summary, filename string) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filename, data, 0o644)
}

// ErrorCounts groups failed outcomes by error message.
func ErrorCounts(outcomes []runner.QueryOutcome) map[string]int {
	counts := make(map[string]int)
	for _, o := range outcomes {
		if o.Success {
			continue
		}
		msg := o.Error
		if msg == "" {
			msg = "unknown error"
		}
		counts[msg]++
	}
	return counts
}

// Bucket is one second of the timeline.
type Bucket struct {
	Second  int     `json:"second"`
	Queries int     `json:"queries"`
	Errors  int     `json:"errors"`
	MeanMs  float64 `json:"mean_ms"`
}

// Timeline buckets outcomes by whole seconds since start. Seconds without
// outcomes are present with zero counts.
func Timeline(outcomes []runner.QueryOutcome, start time.Time) []Bucket {
	if len(outcomes) == 0 {
		return []Bucket{}
	}

	type acc struct {
		queries, errors, ok int
		sum                 time.Duration
	}
	bySecond := make(map[int]*acc)
	last := 0
	for _, o := range outcomes {
		sec := max(int(o.TimeStamp.Sub(start)/time.Second), 0)
		a, found := bySecond[sec]
		if !found {
			a = &acc{}
			bySecond[sec] = a
		}
		a.queries++
		if o.Success {
			a.ok++
			a.sum += o.Latency
		} else {
			a.errors++
		}
		last = max(last, sec)
	}

	buckets := make([]Bucket, last+1)
	for i := range buckets {
		buckets[i].Second = i
	}
	for sec, a := range bySecond {
		b := &buckets[sec]
		b.Queries = a.queries
		b.Errors = a.errors
		if a.ok > 0 {
			b.MeanMs = float64(a.sum) / float64(a.ok) / float64(time.Millisecond)
		}
	}
	return buckets
}

func ExportTimeline(buckets []Bucket, filename string) error {
	data, err := json.MarshalIndent(buckets, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filename, data, 0o644)
}
