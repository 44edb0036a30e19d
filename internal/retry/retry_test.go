package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"cccbdb-harvester/internal/components/telemetry"

	"github.com/stretchr/testify/require"
)

type fakeSleeper struct {
	slept []time.Duration
}

func (f *fakeSleeper) sleep(ctx context.Context, d time.Duration) error {
	f.slept = append(f.slept, d)
	return ctx.Err()
}

func newTestRetrier(t testing.TB, attempts int, delay time.Duration) (Retrier, *fakeSleeper) {
	r, err := NewRetrier(Policy{Attempts: attempts, Delay: delay}, telemetry.SlogAPI{})
	require.NoError(t, err)
	sleeper := &fakeSleeper{}
	return r.WithSleep(sleeper.sleep), sleeper
}

func TestSucceedsAfterFailures(t *testing.T) {
	r, sleeper := newTestRetrier(t, 3, 2*time.Second)

	calls := 0
	out, err := Do(context.Background(), r, "fetch", func(context.Context) ([]byte, error) {
		calls++
		if calls <= 2 {
			return nil, errors.New("transient")
		}
		return []byte("ok"), nil
	})
	require.NoError(t, err)
	require.Equal(t, "ok", string(out))
	require.Equal(t, 3, calls)
	require.Equal(t, []time.Duration{2 * time.Second, 2 * time.Second}, sleeper.slept)
}

func TestImmediateSuccessDoesNotSleep(t *testing.T) {
	r, sleeper := newTestRetrier(t, 5, time.Second)

	out, err := Do(context.Background(), r, "fetch", func(context.Context) (int, error) {
		return 42, nil
	})
	require.NoError(t, err)
	require.Equal(t, 42, out)
	require.Empty(t, sleeper.slept)
}

func TestExhaustion(t *testing.T) {
	r, sleeper := newTestRetrier(t, 3, time.Second)

	calls := 0
	lastErr := errors.New("attempt 3")
	_, err := Do(context.Background(), r, "fetch", func(context.Context) ([]byte, error) {
		calls++
		if calls == 3 {
			return nil, lastErr
		}
		return nil, errors.New("earlier attempt")
	})

	var exhausted *ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	require.Equal(t, 3, exhausted.Attempts)
	require.ErrorIs(t, err, lastErr)
	require.Contains(t, err.Error(), "attempt 3")
	require.Equal(t, 3, calls)
	require.Len(t, sleeper.slept, 2)
}

func TestSingleAttempt(t *testing.T) {
	r, sleeper := newTestRetrier(t, 1, time.Second)

	_, err := Do(context.Background(), r, "fetch", func(context.Context) (string, error) {
		return "", errors.New("nope")
	})
	var exhausted *ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	require.Empty(t, sleeper.slept)
}

func TestCancelledBetweenAttempts(t *testing.T) {
	r, _ := newTestRetrier(t, 5, time.Second)
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	r = r.WithSleep(func(ctx context.Context, d time.Duration) error {
		cancel()
		return ctx.Err()
	})
	_, err := Do(ctx, r, "fetch", func(context.Context) (string, error) {
		calls++
		return "", errors.New("transient")
	})
	require.ErrorIs(t, err, context.Canceled)
	var exhausted *ExhaustedError
	require.False(t, errors.As(err, &exhausted))
	require.Equal(t, 1, calls)
}

func TestRealTimerHonorsContext(t *testing.T) {
	r, err := NewRetrier(Policy{Attempts: 2, Delay: time.Minute}, telemetry.SlogAPI{})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	start := time.Now()
	calls := 0
	_, err = Do(ctx, r, "fetch", func(context.Context) (string, error) {
		calls++
		return "", errors.New("transient")
	})
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Equal(t, 1, calls)
	require.Less(t, time.Since(start), 10*time.Second)
}

func TestZeroRetrierFailsWithoutPanicking(t *testing.T) {
	calls := 0
	_, err := Do(context.Background(), Retrier{}, "fetch", func(context.Context) (string, error) {
		calls++
		return "", errors.New("never called")
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "attempts must be at least 1")
	require.Zero(t, calls)

	require.Equal(t, "gave up after 0 attempts", (&ExhaustedError{}).Error())
}

func TestPolicyValidate(t *testing.T) {
	require.NoError(t, DefaultPolicy.Validate())
	require.Error(t, Policy{Attempts: 0, Delay: time.Second}.Validate())
	require.Error(t, Policy{Attempts: 1, Delay: -time.Second}.Validate())

	_, err := NewRetrier(Policy{}, telemetry.SlogAPI{})
	require.Error(t, err)
}
