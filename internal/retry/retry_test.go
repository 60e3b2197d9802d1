package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/contentsmith/pipewright/internal/fault"
)

// recordingSleep captures requested delays without actually sleeping.
func recordingSleep(delays *[]time.Duration) func(context.Context, time.Duration) error {
	return func(_ context.Context, d time.Duration) error {
		*delays = append(*delays, d)
		return nil
	}
}

func TestDo_ExhaustionReturnsLastError(t *testing.T) {
	var delays []time.Duration
	p := Policy{MaxRetries: 2, BaseDelay: time.Second, Exponential: true, Sleep: recordingSleep(&delays)}

	calls := 0
	wantErr := fault.Transientf("rate limited")
	_, err := Do(context.Background(), p, nil, func(ctx context.Context) (int, error) {
		calls++
		return 0, wantErr
	})

	if calls != 3 {
		t.Errorf("expected exactly 3 attempts, got %d", calls)
	}
	if !errors.Is(err, wantErr) {
		t.Errorf("expected the original error back, got %v", err)
	}
	if len(delays) != 2 || delays[0] != time.Second || delays[1] != 2*time.Second {
		t.Errorf("expected delays [1s 2s], got %v", delays)
	}
}

func TestDo_FixedBackoff(t *testing.T) {
	var delays []time.Duration
	p := Policy{MaxRetries: 3, BaseDelay: 500 * time.Millisecond, Sleep: recordingSleep(&delays)}

	_, _ = Do(context.Background(), p, nil, func(ctx context.Context) (int, error) {
		return 0, fault.Transientf("still down")
	})

	for i, d := range delays {
		if d != 500*time.Millisecond {
			t.Errorf("delay %d = %v, want 500ms", i, d)
		}
	}
}

func TestDo_SucceedsAfterTransientFailures(t *testing.T) {
	var delays []time.Duration
	p := Policy{MaxRetries: 2, BaseDelay: time.Millisecond, Sleep: recordingSleep(&delays)}

	calls := 0
	out, err := Do(context.Background(), p, nil, func(ctx context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", fault.Transientf("upstream flake %d", calls)
		}
		return "done", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "done" || calls != 3 {
		t.Errorf("out=%q calls=%d, want done/3", out, calls)
	}
}

func TestDo_NonRetryableShortCircuits(t *testing.T) {
	p := Policy{MaxRetries: 5, BaseDelay: time.Millisecond, Sleep: recordingSleep(&[]time.Duration{})}

	calls := 0
	_, err := Do(context.Background(), p, nil, func(ctx context.Context) (int, error) {
		calls++
		return 0, fault.Validationf("malformed output")
	})

	if calls != 1 {
		t.Errorf("validation errors must not be retried, got %d attempts", calls)
	}
	if fault.KindOf(err) != fault.KindValidation {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestDo_CancelledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := Policy{
		MaxRetries: 3,
		BaseDelay:  time.Millisecond,
		Sleep: func(ctx context.Context, d time.Duration) error {
			cancel()
			return ctx.Err()
		},
	}

	calls := 0
	_, err := Do(ctx, p, nil, func(ctx context.Context) (int, error) {
		calls++
		return 0, fault.Transientf("down")
	})

	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if calls != 1 {
		t.Errorf("no further attempts after cancellation, got %d", calls)
	}
}

func TestDelay(t *testing.T) {
	exp := Policy{BaseDelay: time.Second, Exponential: true}
	for attempt, want := range []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second} {
		if got := exp.Delay(attempt); got != want {
			t.Errorf("Delay(%d) = %v, want %v", attempt, got, want)
		}
	}
}
