package runner

import (
	"context"
	"database/sql"
	"time"
)

// QueryOutcome is the record of one completed query attempt. Connection and
// query failures are indistinguishable here: both are Success == false.
type QueryOutcome struct {
	TimeStamp time.Time     `json:"timestamp"`
	WorkerID  int           `json:"worker_id"`
	QueryID   int           `json:"query_id"`
	Success   bool          `json:"success"`
	Latency   time.Duration `json:"latency"`
	Error     string        `json:"error,omitempty"`
}

// Conn is a single connection handed out by a Connector. *sql.Conn and
// *sqlx.Conn both satisfy it.
type Conn interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	Close() error
}

// Connector supplies a usable connection on demand.
type Connector interface {
	Connect(ctx context.Context) (Conn, error)
}

// ExecResult is what an Executor reports for one query.
type ExecResult struct {
	Success bool
	Latency time.Duration
	Err     error
}

// Executor runs the query selected by queryID on conn.
type Executor interface {
	Execute(ctx context.Context, conn Conn, queryID int) ExecResult
}

// Observer is notified of every outcome after it is appended to the sink.
type Observer interface {
	Observe(QueryOutcome)
}
