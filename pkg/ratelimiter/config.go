package ratelimiter

import (
	"fmt"
	"time"
)

// Config defines a token bucket. A key may burst up to Capacity requests and
// regains RefillRate tokens every RefillInterval.
type Config struct {
	Capacity       int           `env:"RATE_LIMIT_BURST" envDefault:"100"`
	RefillRate     int           `env:"RATE_LIMIT_REFILL" envDefault:"50"`
	RefillInterval time.Duration `env:"RATE_LIMIT_INTERVAL" envDefault:"1s"`
	// IdleTTL drops buckets not used for this long (default 10m).
	IdleTTL time.Duration `env:"RATE_LIMIT_IDLE_TTL" envDefault:"10m"`
}

// Validate reports whether the bucket parameters are usable.
func (c Config) Validate() error {
	if c.Capacity <= 0 {
		return fmt.Errorf("%w: capacity must be positive, got %d", ErrInvalidConfig, c.Capacity)
	}
	if c.RefillRate <= 0 {
		return fmt.Errorf("%w: refill rate must be positive, got %d", ErrInvalidConfig, c.RefillRate)
	}
	if c.RefillInterval <= 0 {
		return fmt.Errorf("%w: refill interval must be positive, got %v", ErrInvalidConfig, c.RefillInterval)
	}
	return nil
}

// Result is the outcome of one Allow call.
type Result struct {
	Limit     int
	Remaining int
	ResetAt   time.Time
	// RetryAfter is zero when the request was allowed.
	RetryAfter time.Duration
}

func (r Result) Allowed() bool { return r.Remaining >= 0 }
