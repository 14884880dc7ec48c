package apierr

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alnah/go-podscribe/internal/logging"
)

// Policy describes how an operation is retried.
//
// Zero values are usable: MaxRetries 0 is a single attempt, a non-positive
// BaseDelay becomes 1ms and a MaxDelay below BaseDelay is raised to it.
type Policy struct {
	// Op names the operation in retry log lines ("transcription request").
	Op string

	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration

	// Retryable decides whether a failed attempt is tried again.
	// Nil means IsTransient.
	Retryable func(error) bool

	// Logger receives one warning per retry. Nil discards them.
	Logger *slog.Logger
}

func (p Policy) normalized() Policy {
	if p.MaxRetries < 0 {
		p.MaxRetries = 0
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = time.Millisecond
	}
	if p.MaxDelay < p.BaseDelay {
		p.MaxDelay = p.BaseDelay
	}
	if p.Retryable == nil {
		p.Retryable = IsTransient
	}
	if p.Logger == nil {
		p.Logger = logging.NewNop()
	}
	if p.Op == "" {
		p.Op = "request"
	}
	return p
}

// Delay returns the wait before retry n (1-based): BaseDelay doubled n-1
// times, capped at MaxDelay.
func (p Policy) Delay(n int) time.Duration {
	p = p.normalized()
	d := p.BaseDelay
	for i := 1; i < n && d < p.MaxDelay; i++ {
		d *= 2
	}
	return min(d, p.MaxDelay)
}

// Do runs fn until it succeeds, fails with a non-retryable error, or
// MaxRetries retries have been spent. A canceled ctx stops the wait between
// attempts and returns ctx.Err().
func Do[T any](ctx context.Context, p Policy, fn func() (T, error)) (T, error) {
	p = p.normalized()

	var zero T
	var lastErr error
	for attempt := 0; attempt <= p.MaxRetries; attempt++ {
		if attempt > 0 {
			wait := p.Delay(attempt)
			p.Logger.Warn(p.Op+" failed, retrying",
				slog.Int("attempt", attempt),
				slog.Duration("wait", wait),
				logging.Error(lastErr))
			if err := sleep(ctx, wait); err != nil {
				return zero, err
			}
		}

		result, err := fn()
		if err == nil {
			return result, nil
		}
		lastErr = err
		if !p.Retryable(err) {
			return zero, err
		}
	}

	if p.MaxRetries == 0 {
		return zero, lastErr
	}
	return zero, fmt.Errorf("%s: gave up after %d retries: %w", p.Op, p.MaxRetries, lastErr)
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
