package runner

import (
	"errors"
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"
)

var (
	// ErrInvalidConfig is returned by Start when the configuration is rejected.
	ErrInvalidConfig = errors.New("invalid load test configuration")

	// ErrConnectivity is returned by Start when the initial connection check fails.
	ErrConnectivity = errors.New("initial connectivity check failed")
)

type Config struct {
	Duration  time.Duration `json:"duration"`
	TargetQPS int           `json:"target_qps"`
	Workers   int           `json:"workers"`

	// Upper bound for one query attempt; zero means no bound
	QueryTimeout time.Duration `json:"query_timeout"`
}

// Validate reports every rule the configuration breaks.
func (c Config) Validate() error {
	var result *multierror.Error

	if c.Workers < 1 {
		result = multierror.Append(result, fmt.Errorf("worker count must be at least 1, got %d", c.Workers))
	}
	if c.TargetQPS < 0 {
		result = multierror.Append(result, fmt.Errorf("target qps must not be negative, got %d", c.TargetQPS))
	}
	if c.Duration <= 0 {
		result = multierror.Append(result, fmt.Errorf("duration must be positive, got %s", c.Duration))
	}
	if c.QueryTimeout < 0 {
		result = multierror.Append(result, fmt.Errorf("query timeout must not be negative, got %s", c.QueryTimeout))
	}

	if err := result.ErrorOrNil(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// PerWorkerQPS is TargetQPS split evenly across workers. The remainder is
// dropped, so the achieved target may undershoot TargetQPS.
func (c Config) PerWorkerQPS() int {
	if c.Workers < 1 {
		return 0
	}
	return c.TargetQPS / c.Workers
}

// DroppedQPS is the part of TargetQPS lost to the integer split.
func (c Config) DroppedQPS() int {
	if c.Workers < 1 {
		return c.TargetQPS
	}
	return c.TargetQPS % c.Workers
}
