package execution

import (
	"context"
	"errors"
	"testing"
	"time"

	"order-listing/internal/exchange"
)

func newTestScheduler(maxAttempts int, factor float64, observer Observer) (*RetryScheduler, *sleepRecorder) {
	rec := &sleepRecorder{}
	s := NewRetryScheduler(maxAttempts, factor, nil, observer)
	s.sleep = rec.sleep
	return s, rec
}

func assertWaits(t *testing.T, got []time.Duration, want ...time.Duration) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("expected %d waits, got %v", len(want), got)
	}
	for i := range want {
		diff := got[i] - want[i]
		if diff < 0 {
			diff = -diff
		}
		if diff > time.Microsecond {
			t.Errorf("wait[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestRetryScheduler_ExhaustsAfterMaxAttempts(t *testing.T) {
	client := &fakeClient{fallback: unknownErr()}
	observer := &recordingObserver{}
	s, rec := newTestScheduler(3, 2, observer)
	state := NewState()

	_, err := s.Submit(context.Background(), Submission{Index: 4, Order: testOrder("1"), Placer: client}, state)
	if err == nil {
		t.Fatalf("expected exhausted error")
	}

	var exhausted *RetryExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("expected *RetryExhaustedError, got %T", err)
	}
	if exhausted.Index != 4 || exhausted.Attempts != 3 || exhausted.Account != "1" {
		t.Errorf("unexpected exhausted error: %+v", exhausted)
	}
	if !errors.Is(err, ErrRetryExhausted) || !errors.Is(err, exchange.ErrUnknownExchange) {
		t.Errorf("exhausted error should wrap both sentinel and last cause: %v", err)
	}

	if client.placedCount() != 3 {
		t.Errorf("expected 3 attempts, got %d", client.placedCount())
	}
	// 最后一次失败后不等待。
	assertWaits(t, rec.recorded(), time.Second, 2*time.Second)

	if state.Len() != 0 {
		t.Errorf("failed order must not be marked")
	}
	if len(observer.attempts) != 3 || !observer.attempts[2].Final {
		t.Errorf("expected 3 attempt events with final flag on last, got %+v", observer.attempts)
	}
}

func TestRetryScheduler_SucceedsAfterTransientFailures(t *testing.T) {
	client := &fakeClient{responses: []error{networkErr(), unknownErr(), nil}}
	s, rec := newTestScheduler(3, 1.5, nil)
	state := NewState()

	outcome, err := s.Submit(context.Background(), Submission{Index: 0, Order: testOrder("1"), Placer: client}, state)
	if err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}
	if outcome.Attempts != 3 {
		t.Errorf("expected success on third attempt, got %d", outcome.Attempts)
	}
	if !state.Has(0) || state.Len() != 1 {
		t.Errorf("expected index 0 marked exactly once, got %v", state.Indices())
	}
	assertWaits(t, rec.recorded(), time.Second, 1500*time.Millisecond)
}

func TestRetryScheduler_FactorOneKeepsConstantWait(t *testing.T) {
	client := &fakeClient{fallback: networkErr()}
	s, rec := newTestScheduler(4, 1, nil)

	if _, err := s.Submit(context.Background(), Submission{Order: testOrder("1"), Placer: client}, NewState()); err == nil {
		t.Fatalf("expected exhausted error")
	}
	assertWaits(t, rec.recorded(), time.Second, time.Second, time.Second)
}

func TestRetryScheduler_CredentialErrorIsNotRetried(t *testing.T) {
	client := &fakeClient{fallback: credentialErr()}
	s, rec := newTestScheduler(5, 2, nil)

	_, err := s.Submit(context.Background(), Submission{Order: testOrder("1"), Placer: client}, NewState())
	if !errors.Is(err, ErrRetryExhausted) || !errors.Is(err, exchange.ErrCredentialValidation) {
		t.Fatalf("expected exhausted credential error, got %v", err)
	}
	if client.placedCount() != 1 {
		t.Errorf("credential errors must not be retried, got %d attempts", client.placedCount())
	}
	if len(rec.recorded()) != 0 {
		t.Errorf("no backoff expected, got %v", rec.recorded())
	}
}

func TestRetryScheduler_CancelledDuringBackoff(t *testing.T) {
	client := &fakeClient{fallback: unknownErr()}
	s, rec := newTestScheduler(3, 2, nil)
	rec.err = context.Canceled

	_, err := s.Submit(context.Background(), Submission{Order: testOrder("1"), Placer: client}, NewState())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if client.placedCount() != 1 {
		t.Errorf("expected a single attempt before cancellation, got %d", client.placedCount())
	}
}

func TestRateLimiter_FixedInterval(t *testing.T) {
	l := NewRateLimiter(4)
	if l.Interval() != 250*time.Millisecond {
		t.Fatalf("Interval() = %v, want 250ms", l.Interval())
	}

	rec := &sleepRecorder{}
	l.sleep = rec.sleep
	for i := 0; i < 3; i++ {
		if err := l.Wait(context.Background()); err != nil {
			t.Fatalf("Wait returned error: %v", err)
		}
	}
	assertWaits(t, rec.recorded(), 250*time.Millisecond, 250*time.Millisecond, 250*time.Millisecond)
}

func TestSleepContext_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	if err := sleepContext(ctx, time.Minute); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if time.Since(start) > time.Second {
		t.Errorf("sleepContext should return promptly on cancellation")
	}
}
