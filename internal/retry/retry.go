package retry

import (
	"context"
	"fmt"
	"time"

	"cccbdb-harvester/internal/components/telemetry"

	"github.com/cenkalti/backoff/v4"
)

const report_retry_attempt = "retry.attempt"

const (
	DefaultAttempts = 5
	DefaultDelay    = 2 * time.Second
)

// Policy is a fixed-delay retry policy, there is no jitter and no backoff.
type Policy struct {
	Attempts int
	Delay    time.Duration
}

var DefaultPolicy = Policy{
	Attempts: DefaultAttempts,
	Delay:    DefaultDelay,
}

func (p Policy) Validate() error {
	if p.Attempts < 1 {
		return fmt.Errorf("retry attempts must be at least 1, got %d", p.Attempts)
	}
	if p.Delay < 0 {
		return fmt.Errorf("retry delay must not be negative, got %s", p.Delay)
	}
	return nil
}

// ExhaustedError is returned when every attempt allowed by the policy failed.
// It unwraps to the error of the last attempt.
type ExhaustedError struct {
	Attempts int
	Last     error
}

func (e *ExhaustedError) Error() string {
	if e.Last == nil {
		return fmt.Sprintf("gave up after %d attempts", e.Attempts)
	}
	return fmt.Sprintf("gave up after %d attempts: %s", e.Attempts, e.Last.Error())
}

func (e *ExhaustedError) Unwrap() error {
	return e.Last
}

// SleepFunc waits d between two attempts, a non-nil error aborts the wait.
type SleepFunc func(ctx context.Context, d time.Duration) error

// sleepTimer adapts a SleepFunc to backoff.Timer, the wait happens inside
// Start. C always fires afterwards, an interrupted wait is caught by the
// context check before the next attempt.
type sleepTimer struct {
	ctx   context.Context
	sleep SleepFunc
	c     chan time.Time
}

func (t *sleepTimer) Start(d time.Duration) {
	t.c = make(chan time.Time, 1)
	_ = t.sleep(t.ctx, d)
	t.c <- time.Now()
}

func (t *sleepTimer) Stop() {}

func (t *sleepTimer) C() <-chan time.Time {
	return t.c
}

type Retrier struct {
	policy Policy
	tel    telemetry.API
	// nil waits on a real timer
	sleep SleepFunc
}

func NewRetrier(policy Policy, tel telemetry.API) (Retrier, error) {
	err := policy.Validate()
	if err != nil {
		return Retrier{}, err
	}
	return Retrier{
		policy: policy,
		tel:    telemetry.NewScopedAPI("retry", tel),
	}, nil
}

// WithSleep returns a copy of the retrier that waits with sleep.
func (r Retrier) WithSleep(sleep SleepFunc) Retrier {
	r.sleep = sleep
	return r
}

func (r Retrier) Policy() Policy {
	return r.policy
}

func (r Retrier) backOff(ctx context.Context) backoff.BackOff {
	return backoff.WithContext(
		backoff.WithMaxRetries(
			backoff.NewConstantBackOff(r.policy.Delay),
			uint64(r.policy.Attempts-1),
		),
		ctx,
	)
}

// Do calls fn until it succeeds or the policy's attempts are used up, waiting
// the policy's delay between attempts. `op` names the operation in reports.
//
// A cancelled context stops the loop before the next attempt and the
// context's error is returned as is. A retrier with an invalid policy (the
// zero value included) fails without calling fn.
func Do[T any](ctx context.Context, r Retrier, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	err := r.policy.Validate()
	if err != nil {
		return zero, err
	}

	var timer backoff.Timer
	if r.sleep != nil {
		timer = &sleepTimer{ctx: ctx, sleep: r.sleep}
	}

	attempt := 0
	result, err := backoff.RetryNotifyWithTimerAndData(func() (T, error) {
		if err := ctx.Err(); err != nil {
			return zero, backoff.Permanent(err)
		}
		attempt++

		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		if ctx.Err() != nil {
			return zero, backoff.Permanent(ctx.Err())
		}
		if r.tel != nil {
			r.tel.ReportWarning(report_retry_attempt, op, attempt, r.policy.Attempts, err)
		}
		return zero, err
	}, r.backOff(ctx), nil, timer)
	if err == nil {
		return result, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return zero, ctxErr
	}

	return zero, &ExhaustedError{
		Attempts: attempt,
		Last:     err,
	}
}
