package retry

import (
	"context"
	"time"

	"github.com/avast/retry-go/v4"
)

const (
	defaultAttempts = 3
	defaultDelay    = 200 * time.Millisecond
	defaultMaxDelay = 2 * time.Second
)

type Config struct {
	Attempts uint
	Delay    time.Duration
	MaxDelay time.Duration
}

func DefaultConfig() Config {
	return Config{
		Attempts: defaultAttempts,
		Delay:    defaultDelay,
		MaxDelay: defaultMaxDelay,
	}
}

// Options builds retry-go options; retryIf decides which errors are worth another attempt.
func (c Config) Options(ctx context.Context, retryIf func(error) bool) []retry.Option {
	attempts := c.Attempts
	if attempts == 0 {
		attempts = 1
	}
	opts := []retry.Option{
		retry.Context(ctx),
		retry.Attempts(attempts),
		retry.Delay(c.Delay),
		retry.MaxDelay(c.MaxDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
	}
	if retryIf != nil {
		opts = append(opts, retry.RetryIf(retryIf))
	}
	return opts
}

// Do runs fn under the configured policy.
func Do[T any](ctx context.Context, cfg Config, retryIf func(error) bool, fn func() (T, error)) (T, error) {
	return retry.DoWithData(fn, cfg.Options(ctx, retryIf)...)
}
