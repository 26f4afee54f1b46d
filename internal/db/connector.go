package db

import (
	"context"

	"github.com/jmoiron/sqlx"

	"steadydb/internal/runner"
)

// Connector hands out one pooled connection per query attempt.
type Connector struct {
	pool *sqlx.DB
}

func NewConnector(pool *sqlx.DB) *Connector {
	return &Connector{pool: pool}
}

func (c *Connector) Connect(ctx context.Context) (runner.Conn, error) {
	conn, err := c.pool.Connx(ctx)
	if err != nil {
		return nil, err
	}
	return conn, nil
}
