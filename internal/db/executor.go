package db

import (
	"context"
	"time"

	"steadydb/internal/runner"
)

// Executor runs catalog queries and reads every returned row. Latency covers
// the round trip plus result fetching.
type Executor struct {
	catalog *Catalog
}

func NewExecutor(catalog *Catalog) *Executor {
	return &Executor{catalog: catalog}
}

func (e *Executor) Execute(ctx context.Context, conn runner.Conn, queryID int) runner.ExecResult {
	sql, err := e.catalog.Render(queryID)
	if err != nil {
		return runner.ExecResult{Err: err}
	}

	start := time.Now()
	rows, err := conn.QueryContext(ctx, sql)
	if err != nil {
		return runner.ExecResult{Latency: time.Since(start), Err: err}
	}
	for rows.Next() {
	}
	err = rows.Err()
	if cerr := rows.Close(); err == nil {
		err = cerr
	}
	latency := time.Since(start)

	if err != nil {
		return runner.ExecResult{Latency: latency, Err: err}
	}
	return runner.ExecResult{Success: true, Latency: latency}
}
