package retry

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mmslot/seamless-wallet/internal/domain"
)

// Serialization-conflict SQLSTATEs: serialization_failure and deadlock_detected.
const (
	sqlstateSerializationFailure = "40001"
	sqlstateDeadlockDetected     = "40P01"
)

// IsRetryable reports whether err is a database serialization failure or
// deadlock that is safe to retry after a full rollback.
func IsRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == sqlstateSerializationFailure || pgErr.Code == sqlstateDeadlockDetected
}

// BackoffFunc returns the delay before the given retry. attempt is 1-based:
// the wait after the attempt-th failed try.
type BackoffFunc func(attempt int) time.Duration

// FixedBackoff waits the same delay between every attempt.
func FixedBackoff(delay time.Duration) BackoffFunc {
	return func(int) time.Duration { return delay }
}

// ExponentialBackoff waits base * 2^attempt between attempts.
func ExponentialBackoff(base time.Duration) BackoffFunc {
	return func(attempt int) time.Duration {
		return base * time.Duration(1<<uint(attempt))
	}
}

// Policy bounds the retry loop for one unit of work.
type Policy struct {
	MaxAttempts int
	Backoff     BackoffFunc

	// Sleep is injectable for tests; nil means a context-aware timer wait.
	Sleep func(ctx context.Context, d time.Duration) error
}

// DefaultPolicy matches the observed production settings: 5 attempts with a
// fixed one-second delay.
func DefaultPolicy() Policy {
	return Policy{MaxAttempts: 5, Backoff: FixedBackoff(time.Second)}
}

func (p Policy) sleep(ctx context.Context, d time.Duration) error {
	if p.Sleep != nil {
		return p.Sleep(ctx, d)
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Do runs fn up to policy.MaxAttempts times, retrying only serialization
// failures and deadlocks. Any other error aborts immediately. Exhausting the
// budget returns the last deadlock error tagged as DEADLOCK_EXCEEDED.
func Do(ctx context.Context, policy Policy, fn func(ctx context.Context) error) error {
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if !IsRetryable(lastErr) {
			return lastErr
		}
		if attempt == policy.MaxAttempts {
			break
		}
		var delay time.Duration
		if policy.Backoff != nil {
			delay = policy.Backoff(attempt)
		}
		if delay > 0 {
			if err := policy.sleep(ctx, delay); err != nil {
				return err
			}
		}
	}
	return domain.ErrDeadlockExceeded(policy.MaxAttempts, lastErr)
}
