package retry

import (
	"context"
	"fmt"
	"math"
	"time"
)

type Config struct {
	MaxAttempts int
	Delay       time.Duration
	Backoff     bool // sleep base^attempt seconds instead of a flat delay
	BackoffBase int  // exponent base, default 2
}

// Do runs fn until it succeeds or MaxAttempts is reached. With Backoff enabled
// the wait after attempt n is BackoffBase^n seconds.
func Do(ctx context.Context, config Config, fn func() error) error {
	var lastErr error

	for attempt := 1; attempt <= config.MaxAttempts; attempt++ {
		if err := fn(); err != nil {
			lastErr = err

			if attempt == config.MaxAttempts {
				return fmt.Errorf("failed after %d attempts: %w", config.MaxAttempts, err)
			}

			delay := config.Delay
			if config.Backoff {
				base := config.BackoffBase
				if base < 2 {
					base = 2
				}
				delay = time.Duration(math.Pow(float64(base), float64(attempt))) * time.Second
			}

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
				continue
			}
		}
		return nil
	}

	return lastErr
}
