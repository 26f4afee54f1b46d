package db

import (
	"context"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	"github.com/jmoiron/sqlx"
)

type UserAuth struct {
	User   string `db:"user"`
	Host   string `db:"host"`
	Plugin string `db:"plugin"`
}

// ServerInfo is what the connection check reports about the target.
type ServerInfo struct {
	Version string
	Rows    int64
	Users   []UserAuth

	// Non-fatal problems, such as missing privileges on mysql.user
	Warnings []string
}

// Inspector runs the connection check queries.
type Inspector struct {
	pool         *sqlx.DB
	versionQuery string
}

func NewInspector(pool *sqlx.DB) *Inspector {
	return &Inspector{pool: pool, versionQuery: "SELECT VERSION()"}
}

// Inspect fails when the server is unreachable or the table cannot be read.
func (i *Inspector) Inspect(ctx context.Context, table, user string) (ServerInfo, error) {
	var info ServerInfo

	if err := i.pool.PingContext(ctx); err != nil {
		return info, fmt.Errorf("connecting: %w", err)
	}
	if err := i.pool.GetContext(ctx, &info.Version, i.versionQuery); err != nil {
		return info, fmt.Errorf("reading server version: %w", err)
	}

	d := goqu.Dialect("mysql")
	countSQL, _, err := d.From(goqu.T(table)).Select(goqu.COUNT(goqu.Star())).ToSQL()
	if err != nil {
		return info, err
	}
	if err := i.pool.GetContext(ctx, &info.Rows, countSQL); err != nil {
		return info, fmt.Errorf("counting rows of %s: %w", table, err)
	}

	usersSQL, _, err := d.From(goqu.S("mysql").Table("user")).
		Select("user", "host", "plugin").
		Where(goqu.C("user").Eq(user)).
		ToSQL()
	if err != nil {
		return info, err
	}
	if err := i.pool.SelectContext(ctx, &info.Users, usersSQL); err != nil {
		info.Warnings = append(info.Warnings, fmt.Sprintf("cannot read authentication plugin: %v", err))
	}

	return info, nil
}
