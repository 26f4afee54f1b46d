package db

import (
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
)

const DriverName = "mysql"

// Config holds the MySQL connection parameters of a load test target.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	Table    string

	ConnectTimeout time.Duration
	MaxOpenConns   int
}

// DSN renders the go-sql-driver data source name.
func (c Config) DSN() string {
	mc := mysql.NewConfig()
	mc.User = c.User
	mc.Passwd = c.Password
	mc.Net = "tcp"
	mc.Addr = net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
	mc.DBName = c.Database
	mc.Timeout = c.ConnectTimeout
	mc.AllowNativePasswords = true
	mc.ParseTime = true
	return mc.FormatDSN()
}

// Target is a password-free description of the server, for headers and history.
func (c Config) Target() string {
	return fmt.Sprintf("%s@%s/%s", c.User, net.JoinHostPort(c.Host, strconv.Itoa(c.Port)), c.Database)
}

// Open creates the connection pool. No connection is made until first use.
func Open(cfg Config) (*sqlx.DB, error) {
	return OpenDriver(DriverName, cfg.DSN(), cfg.MaxOpenConns)
}

// OpenDriver creates a pool on any registered database/sql driver.
func OpenDriver(driver, dsn string, maxOpen int) (*sqlx.DB, error) {
	pool, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening %s pool: %w", driver, err)
	}
	if maxOpen > 0 {
		pool.SetMaxOpenConns(maxOpen)
		pool.SetMaxIdleConns(maxOpen)
	}
	pool.SetConnMaxLifetime(5 * time.Minute)
	return pool, nil
}
