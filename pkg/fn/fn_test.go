package fn

import (
	"context"
	"errors"
	"testing"
	"time"
)

// --- Result ---

func TestOkAndErr(t *testing.T) {
	r := Ok(42)
	if !r.IsOk() || r.IsErr() {
		t.Fatal("Ok should be ok")
	}
	v, err := r.Unwrap()
	if v != 42 || err != nil {
		t.Fatal("wrong unwrap")
	}

	e := Err[int](errors.New("fail"))
	if e.IsOk() || !e.IsErr() {
		t.Fatal("Err should be err")
	}
	if _, err := e.Unwrap(); err == nil || err.Error() != "fail" {
		t.Fatalf("Err unwrap = %v", err)
	}
}

func TestFromPair(t *testing.T) {
	if v, err := FromPair(3, nil).Unwrap(); v != 3 || err != nil {
		t.Fatal("FromPair ok wrong")
	}
	if FromPair(3, errors.New("x")).IsOk() {
		t.Fatal("FromPair err should be err")
	}
}

// --- Slices ---

func TestMap(t *testing.T) {
	got := Map([]int{1, 2, 3}, func(v int) string { return string(rune('a' + v - 1)) })
	if len(got) != 3 || got[0] != "a" || got[2] != "c" {
		t.Fatalf("Map wrong: %v", got)
	}
}

func TestFilter(t *testing.T) {
	got := Filter([]int{1, 2, 3, 4}, func(v int) bool { return v%2 == 0 })
	if len(got) != 2 || got[0] != 2 || got[1] != 4 {
		t.Fatalf("Filter wrong: %v", got)
	}
	if Filter([]int{1}, func(int) bool { return false }) != nil {
		t.Fatal("Filter with no match should be nil")
	}
}

// --- Stages ---

func TestThen(t *testing.T) {
	double := MapStage(func(v int) int { return v * 2 })
	str := Stage[int, string](func(_ context.Context, v int) Result[string] {
		if v > 10 {
			return Err[string](errors.New("too big"))
		}
		return Ok(string(rune('0' + v)))
	})
	s := Then(Stage[int, int](double), str)
	if v, err := s(context.Background(), 3).Unwrap(); err != nil || v != "6" {
		t.Fatalf("Then: %q %v", v, err)
	}
	if s(context.Background(), 6).IsOk() {
		t.Fatal("second stage error should propagate")
	}
}

func TestThenShortCircuits(t *testing.T) {
	called := false
	first := Stage[int, int](func(_ context.Context, _ int) Result[int] { return Err[int](errors.New("stop")) })
	second := Stage[int, int](func(_ context.Context, v int) Result[int] { called = true; return Ok(v) })
	if Then(first, second)(context.Background(), 1).IsOk() || called {
		t.Fatal("Then should stop at the first error")
	}
}

func TestTracedStage(t *testing.T) {
	s := TracedStage("test-stage", Stage[int, int](func(_ context.Context, v int) Result[int] { return Ok(v + 1) }))
	v, err := s(context.Background(), 1).Unwrap()
	if err != nil || v != 2 {
		t.Fatal("TracedStage failed")
	}

	e := TracedStage("err-stage", Stage[int, int](func(_ context.Context, _ int) Result[int] { return Err[int](errors.New("x")) }))
	if e(context.Background(), 1).IsOk() {
		t.Fatal("TracedStage error should propagate")
	}
}

// --- Retry ---

func TestRetrySuccess(t *testing.T) {
	attempts := 0
	r := Retry(context.Background(), RetryOpts{MaxAttempts: 3, InitialWait: time.Millisecond}, func(_ context.Context) Result[int] {
		attempts++
		if attempts < 3 {
			return Err[int](errors.New("not yet"))
		}
		return Ok(42)
	})
	if v, _ := r.Unwrap(); v != 42 || attempts != 3 {
		t.Fatal("Retry should succeed on 3rd attempt")
	}
}

func TestRetryExhausted(t *testing.T) {
	attempts := 0
	r := Retry(context.Background(), RetryOpts{MaxAttempts: 2, InitialWait: time.Millisecond, Jitter: true}, func(_ context.Context) Result[int] {
		attempts++
		return Err[int](errors.New("fail"))
	})
	if r.IsOk() || attempts != 2 {
		t.Fatalf("Retry should fail after 2 attempts, made %d", attempts)
	}
}

func TestRetryStopsOnPermanentError(t *testing.T) {
	permanent := errors.New("permanent")
	attempts := 0
	r := Retry(context.Background(), RetryOpts{
		MaxAttempts: 5,
		InitialWait: time.Millisecond,
		Retryable:   func(err error) bool { return !errors.Is(err, permanent) },
	}, func(_ context.Context) Result[int] {
		attempts++
		return Err[int](permanent)
	})
	if _, err := r.Unwrap(); !errors.Is(err, permanent) || attempts != 1 {
		t.Fatalf("expected one attempt with the permanent error, got %d (%v)", attempts, err)
	}
}

func TestRetryContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	r := Retry(ctx, RetryOpts{MaxAttempts: 5, InitialWait: time.Hour, MaxWait: time.Hour}, func(_ context.Context) Result[int] {
		return Err[int](errors.New("fail"))
	})
	if _, err := r.Unwrap(); err != context.Canceled {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestRetryMaxWaitCap(t *testing.T) {
	attempts := 0
	start := time.Now()
	r := Retry(context.Background(), RetryOpts{MaxAttempts: 3, InitialWait: time.Hour, MaxWait: time.Millisecond}, func(_ context.Context) Result[int] {
		attempts++
		if attempts < 3 {
			return Err[int](errors.New("fail"))
		}
		return Ok(1)
	})
	if r.IsErr() || time.Since(start) > 5*time.Second {
		t.Fatal("MaxWait should cap the backoff")
	}
}
