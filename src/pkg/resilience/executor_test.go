package resilience

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/sony/gobreaker/v2"
)

func fastRetries(attempts int) Config {
	return Config{
		RetryMaxAttempts:      attempts,
		RetryInitialBackoffMs: 1,
		RetryMaxBackoffMs:     2,
		RetryMultiplier:       2,
		BreakerDisabled:       true,
	}
}

func TestExecuteRetriesRetryableStatus(t *testing.T) {
	exec := NewExecutor(fastRetries(3))

	attempts := 0
	err := exec.Execute(context.Background(), "complete", func(context.Context) error {
		attempts++
		if attempts < 3 {
			return &StatusError{Operation: "complete", StatusCode: http.StatusTooManyRequests, Message: "slow down"}
		}
		return nil
	}, nil)
	if err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", attempts)
	}
}

func TestExecuteDoesNotRetryClientErrors(t *testing.T) {
	exec := NewExecutor(fastRetries(3))

	attempts := 0
	err := exec.Execute(context.Background(), "complete", func(context.Context) error {
		attempts++
		return &StatusError{Operation: "complete", StatusCode: http.StatusBadRequest, Message: "bad prompt"}
	}, nil)

	var statusErr *StatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 status error, got %v", err)
	}
	if attempts != 1 {
		t.Fatalf("expected 1 attempt, got %d", attempts)
	}
}

func TestExecuteStopsOnCancelledContext(t *testing.T) {
	exec := NewExecutor(fastRetries(5))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := exec.Execute(ctx, "search", func(context.Context) error {
		called = true
		return nil
	}, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if called {
		t.Fatalf("operation must not run with a cancelled context")
	}
}

func TestExecuteOpensCircuitAfterFailures(t *testing.T) {
	exec := NewExecutor(Config{
		RetryMaxAttempts:        1,
		RetryInitialBackoffMs:   1,
		RetryMaxBackoffMs:       1,
		RetryMultiplier:         2,
		BreakerMinRequests:      2,
		BreakerFailureRatio:     0.5,
		BreakerOpenTimeoutMs:    50,
		BreakerHalfOpenMaxCalls: 1,
	})

	errDown := errors.New("qdrant down")
	classifier := func(error) ErrorClassification {
		return ErrorClassification{Retryable: false, RecordFailure: true}
	}

	for i := 0; i < 2; i++ {
		err := exec.Execute(context.Background(), "search", func(context.Context) error {
			return errDown
		}, classifier)
		if !errors.Is(err, errDown) {
			t.Fatalf("expected error on iteration %d, got %v", i, err)
		}
	}

	err := exec.Execute(context.Background(), "search", func(context.Context) error {
		t.Fatalf("circuit should be open and must not call operation")
		return nil
	}, classifier)
	if !errors.Is(err, gobreaker.ErrOpenState) || !IsCircuitOpen(err) {
		t.Fatalf("expected open state error, got %v", err)
	}
}

func TestClassifyTransport(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorClassification
	}{
		{"cancelled", context.Canceled, ErrorClassification{}},
		{"deadline", context.DeadlineExceeded, ErrorClassification{}},
		{"no response", &StatusError{Operation: "x"}, ErrorClassification{Retryable: true, RecordFailure: true}},
		{"503", &StatusError{Operation: "x", StatusCode: 503}, ErrorClassification{Retryable: true, RecordFailure: true}},
		{"401", &StatusError{Operation: "x", StatusCode: 401}, ErrorClassification{}},
		{"other", errors.New("decode"), ErrorClassification{RecordFailure: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyTransport(tt.err); got != tt.want {
				t.Fatalf("ClassifyTransport() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestConfigPolicyRepairsInvalidValues(t *testing.T) {
	p := Config{RetryInitialBackoffMs: 500, RetryMaxBackoffMs: 100, BreakerFailureRatio: 3}.policy()
	if p.retryMaxBackoff != p.retryInitialBackoff {
		t.Fatalf("max backoff %s should be raised to initial %s", p.retryMaxBackoff, p.retryInitialBackoff)
	}
	if p.breakerFailureRatio != DefaultValueConfig().BreakerFailureRatio {
		t.Fatalf("failure ratio %v not repaired", p.breakerFailureRatio)
	}
	if !p.breakerEnabled {
		t.Fatalf("breaker should be enabled unless disabled explicitly")
	}
}
