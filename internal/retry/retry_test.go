package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestDo_SucceedsAfterRetry(t *testing.T) {
	p := Policy{Attempts: 2, Delay: time.Millisecond}
	calls := 0
	err := p.Do(context.Background(), func(context.Context) error {
		calls++
		if calls == 1 {
			return errors.New("timeout")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
}

func TestDo_ExhaustsAttempts(t *testing.T) {
	p := Policy{Attempts: 3, Delay: time.Millisecond}
	sentinel := errors.New("bad gateway")
	calls := 0
	err := p.Do(context.Background(), func(context.Context) error {
		calls++
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected wrapped sentinel, got %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestDo_PermanentStopsImmediately(t *testing.T) {
	p := Policy{Attempts: 5, Delay: time.Millisecond}
	sentinel := errors.New("unauthorized")
	calls := 0
	err := p.Do(context.Background(), func(context.Context) error {
		calls++
		return Permanent(sentinel)
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected sentinel, got %v", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestDo_ContextCancelledDuringDelay(t *testing.T) {
	p := Policy{Attempts: 3, Delay: time.Hour}
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := p.Do(ctx, func(context.Context) error {
		calls++
		cancel()
		return errors.New("transient")
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestDo_ZeroAttemptsRunsOnce(t *testing.T) {
	calls := 0
	_ = Policy{}.Do(context.Background(), func(context.Context) error {
		calls++
		return errors.New("x")
	})
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestPolicyWait(t *testing.T) {
	fixed := Policy{Delay: time.Second}
	linear := Policy{Delay: time.Second, Linear: true}

	if got := fixed.wait(3); got != time.Second {
		t.Errorf("fixed wait = %v, want 1s", got)
	}
	if got := linear.wait(1); got != time.Second {
		t.Errorf("linear wait(1) = %v, want 1s", got)
	}
	if got := linear.wait(3); got != 3*time.Second {
		t.Errorf("linear wait(3) = %v, want 3s", got)
	}
}
