// Package retry implements a bounded exponential-backoff policy as an
// explicit state machine, decoupled from the transport call it guards so the
// schedule is testable without a network.
package retry

import (
	"context"
	"time"
)

// Policy describes a retry schedule. The zero value never retries.
type Policy struct {
	// MaxAttempts is the total number of tries, including the first.
	MaxAttempts int
	// BaseWait is the wait before the second attempt; it doubles per attempt.
	BaseWait time.Duration
	// MaxWait caps a single wait. Zero means uncapped.
	MaxWait time.Duration
}

// DefaultPolicy matches the provider rate-limit guidance: four tries with
// waits of 1s, 2s, 4s between them.
func DefaultPolicy() Policy {
	return Policy{MaxAttempts: 4, BaseWait: time.Second, MaxWait: 30 * time.Second}
}

// Wait returns the backoff before the given attempt (1-based: attempt 1 is
// the first try, which never waits).
func (p Policy) Wait(attempt int) time.Duration {
	if attempt <= 1 || p.BaseWait <= 0 {
		return 0
	}
	w := p.BaseWait << uint(attempt-2)
	if p.MaxWait > 0 && w > p.MaxWait {
		w = p.MaxWait
	}
	return w
}

// Retryable marks an error as transient. Errors can additionally implement
// RetryAfter() time.Duration to carry a provider-supplied wait hint, which
// overrides the computed backoff when longer.
type Retryable interface {
	Retryable() bool
}

type retryAfter interface {
	RetryAfter() time.Duration
}

// Do runs fn up to MaxAttempts times, sleeping the policy's backoff between
// tries. Only errors marked Retryable are retried; any other error, and the
// final retryable error, are returned as-is. Context cancellation interrupts
// a pending wait.
func Do(ctx context.Context, p Policy, fn func(ctx context.Context) error) error {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 1
	}

	var err error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		if wait := waitFor(p, attempt, err); wait > 0 {
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		err = fn(ctx)
		if err == nil {
			return nil
		}
		r, ok := err.(Retryable)
		if !ok || !r.Retryable() {
			return err
		}
	}
	return err
}

// waitFor combines the policy backoff with the previous error's retry-after
// hint, taking whichever is longer.
func waitFor(p Policy, attempt int, prev error) time.Duration {
	wait := p.Wait(attempt)
	if ra, ok := prev.(retryAfter); ok {
		if hint := ra.RetryAfter(); hint > wait {
			wait = hint
		}
	}
	return wait
}
