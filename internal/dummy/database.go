package dummy

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/rand/v2"
	"sort"
	"time"

	"steadydb/internal/runner"
)

var (
	ErrDeadlock        = errors.New("Error 1213 (40001): Deadlock found when trying to get lock")
	ErrTooManyConns    = errors.New("Error 1040 (08004): Too many connections")
	ErrConnRefused     = errors.New("dial tcp: connect: connection refused")
	ErrUnknownProfile  = errors.New("unknown latency profile")
	errNoRowsSimulated = errors.New("simulated connection does not return rows")
)

// Profile decides the delay and outcome of one simulated query.
type Profile func(r *rand.Rand) (time.Duration, error)

func between(r *rand.Rand, lo, hi time.Duration) time.Duration {
	return lo + time.Duration(r.Int64N(int64(hi-lo)))
}

var profiles = map[string]Profile{
	// 0ms, always succeeds
	"instant": func(*rand.Rand) (time.Duration, error) { return 0, nil },

	// 10-50ms
	"fast": func(r *rand.Rand) (time.Duration, error) {
		return between(r, 10*time.Millisecond, 50*time.Millisecond), nil
	},

	// 100-300ms
	"medium": func(r *rand.Rand) (time.Duration, error) {
		return between(r, 100*time.Millisecond, 300*time.Millisecond), nil
	},

	// 1-2s, exercises the query timeout
	"slow": func(r *rand.Rand) (time.Duration, error) {
		return between(r, time.Second, 2*time.Second), nil
	},

	// usually 20ms, 5% of queries take 2s
	"spike": func(r *rand.Rand) (time.Duration, error) {
		if r.Float64() < 0.05 {
			return 2 * time.Second, nil
		}
		return 20 * time.Millisecond, nil
	},

	// 20% deadlocks, 20% connection limit errors
	"error": func(r *rand.Rand) (time.Duration, error) {
		switch p := r.Float64(); {
		case p < 0.2:
			return 5 * time.Millisecond, ErrDeadlock
		case p < 0.4:
			return time.Millisecond, ErrTooManyConns
		default:
			return 5 * time.Millisecond, nil
		}
	},
}

// Profiles lists the available profile names.
func Profiles() []string {
	names := make([]string, 0, len(profiles))
	for name := range profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func LookupProfile(name string) (Profile, error) {
	p, ok := profiles[name]
	if !ok {
		return nil, fmt.Errorf("%w %q (available: %v)", ErrUnknownProfile, name, Profiles())
	}
	return p, nil
}

// Database is an in-process stand-in for a MySQL server. It implements both
// runner.Connector and runner.Executor.
type Database struct {
	profile Profile
	down    bool
	seed    uint64
}

type Option func(*Database)

// Down makes every connection attempt fail.
func Down() Option {
	return func(d *Database) { d.down = true }
}

// WithSeed makes the simulated latencies reproducible.
func WithSeed(seed uint64) Option {
	return func(d *Database) { d.seed = seed }
}

func New(profile Profile, opts ...Option) *Database {
	d := &Database{profile: profile, seed: rand.Uint64()}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

type conn struct{}

func (conn) QueryContext(context.Context, string, ...any) (*sql.Rows, error) {
	return nil, errNoRowsSimulated
}

func (conn) Close() error { return nil }

func (d *Database) Connect(ctx context.Context) (runner.Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if d.down {
		return nil, ErrConnRefused
	}
	return conn{}, nil
}

// Execute waits out the profile delay. The query id seeds the choice so a
// given id always behaves the same way for one Database.
func (d *Database) Execute(ctx context.Context, _ runner.Conn, queryID int) runner.ExecResult {
	r := rand.New(rand.NewPCG(d.seed, uint64(queryID)))
	delay, qerr := d.profile(r)

	start := time.Now()
	if delay > 0 {
		t := time.NewTimer(delay)
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			return runner.ExecResult{Latency: time.Since(start), Err: ctx.Err()}
		}
	}
	latency := time.Since(start)

	if qerr != nil {
		return runner.ExecResult{Latency: latency, Err: qerr}
	}
	return runner.ExecResult{Success: true, Latency: latency}
}
