package llm

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestGenerateNonStreamingSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"response":"hello","done":true}`))
	}))
	defer srv.Close()

	c := New(DefaultConfig(srv.URL, "test-model"))
	resp, err := c.Generate(context.Background(), "hi", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Response != "hello" || !resp.Done {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestGenerateRetriesOnServerErrorThenSucceeds(t *testing.T) {
	var attempts int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte("boom"))
			return
		}
		w.Write([]byte(`{"response":"ok","done":true}`))
	}))
	defer srv.Close()

	cfg := DefaultConfig(srv.URL, "test-model")
	cfg.Retry = RetryPolicy{MaxRetries: 3, InitialBackoff: time.Millisecond, Multiplier: 2, MaxBackoff: time.Second}
	c := New(cfg)

	resp, err := c.Generate(context.Background(), "hi", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", attempts)
	}
	if resp.Response != "ok" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestGenerateNonRetryableFailsImmediately(t *testing.T) {
	var attempts int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte("bad request"))
	}))
	defer srv.Close()

	c := New(DefaultConfig(srv.URL, "test-model"))
	_, err := c.Generate(context.Background(), "hi", "")
	if err == nil {
		t.Fatalf("expected error")
	}
	if attempts != 1 {
		t.Fatalf("expected exactly 1 attempt for a non-retryable error, got %d", attempts)
	}
}

func TestGenerateRetryExhaustion(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	cfg := DefaultConfig(srv.URL, "test-model")
	cfg.Retry = RetryPolicy{MaxRetries: 2, InitialBackoff: time.Millisecond, Multiplier: 2, MaxBackoff: time.Second}
	c := New(cfg)

	_, err := c.Generate(context.Background(), "hi", "")
	if err == nil {
		t.Fatalf("expected error after retry exhaustion")
	}
	var exhausted *RetryExhaustedError
	if !errorsAs(err, &exhausted) {
		t.Fatalf("expected *RetryExhaustedError, got %T: %v", err, err)
	}
	if exhausted.Attempts != 3 {
		t.Fatalf("expected 3 attempts (1 + 2 retries), got %d", exhausted.Attempts)
	}
}

func TestBackoffForAttemptMonotonicAndSaturating(t *testing.T) {
	p := RetryPolicy{MaxRetries: 3, InitialBackoff: time.Millisecond, Multiplier: 2, MaxBackoff: 3 * time.Millisecond}
	delays := []time.Duration{p.BackoffForAttempt(0), p.BackoffForAttempt(1), p.BackoffForAttempt(2), p.BackoffForAttempt(3)}
	want := []time.Duration{time.Millisecond, 2 * time.Millisecond, 3 * time.Millisecond, 3 * time.Millisecond}
	for i := range want {
		if delays[i] != want[i] {
			t.Fatalf("attempt %d: got %v, want %v", i, delays[i], want[i])
		}
	}
	for i := 1; i < len(delays); i++ {
		if delays[i] < delays[i-1] {
			t.Fatalf("backoff is not monotonically non-decreasing: %v", delays)
		}
	}
}

func TestBackoffSeedScenario(t *testing.T) {
	p := RetryPolicy{MaxRetries: 3, InitialBackoff: time.Millisecond, Multiplier: 2, MaxBackoff: 30 * time.Second}
	if got := p.BackoffForAttempt(0); got != time.Millisecond {
		t.Fatalf("first backoff: got %v, want 1ms", got)
	}
	if got := p.BackoffForAttempt(1); got != 2*time.Millisecond {
		t.Fatalf("second backoff: got %v, want 2ms", got)
	}
}

func TestGenerateStreamingCollectsChunksAndStats(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		flusher, _ := w.(http.Flusher)
		frames := []string{
			`{"response":"he","done":false}`,
			`{"response":"llo","done":false}`,
			`{"response":"","done":true,"total_duration":1000000000,"prompt_eval_count":5,"eval_count":10,"eval_duration":500000000}`,
		}
		for _, f := range frames {
			fmt.Fprintln(w, f)
			if flusher != nil {
				flusher.Flush()
			}
		}
	}))
	defer srv.Close()

	c := New(DefaultConfig(srv.URL, "test-model"))
	stream, err := c.GenerateStreaming(context.Background(), "hi", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	text := stream.CollectAll()
	if text != "hello" {
		t.Fatalf("expected accumulated text %q, got %q", "hello", text)
	}
}

func TestGenerateStreamingTokensPerSecond(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, `{"response":"x","done":false}`)
		fmt.Fprintln(w, `{"response":"","done":true,"eval_count":20,"eval_duration":2000000000}`)
	}))
	defer srv.Close()

	c := New(DefaultConfig(srv.URL, "test-model"))
	stream, err := c.GenerateStreaming(context.Background(), "hi", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var lastStats *Stats
	for {
		chunk, ok := stream.Next()
		if !ok {
			break
		}
		if chunk.Done {
			lastStats = chunk.Stats
		}
	}

	if lastStats == nil {
		t.Fatalf("expected stats on final chunk")
	}
	if lastStats.TokensPerSecond != 10 {
		t.Fatalf("expected tokens_per_second = 20/2 = 10, got %v", lastStats.TokensPerSecond)
	}
}

func TestGenerateStreamingZeroEvalDurationYieldsZeroTokensPerSecond(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, `{"response":"","done":true,"eval_count":20,"eval_duration":0}`)
	}))
	defer srv.Close()

	c := New(DefaultConfig(srv.URL, "test-model"))
	stream, err := c.GenerateStreaming(context.Background(), "hi", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	chunk, ok := stream.Next()
	if !ok || !chunk.Done {
		t.Fatalf("expected a final done chunk")
	}
	if chunk.Stats.TokensPerSecond != 0 {
		t.Fatalf("expected 0 tokens_per_second when eval_duration is 0, got %v", chunk.Stats.TokensPerSecond)
	}
}

func TestGenerateStreamingNon2xxSurfacesErrorImmediately(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("down"))
	}))
	defer srv.Close()

	c := New(DefaultConfig(srv.URL, "test-model"))
	_, err := c.GenerateStreaming(context.Background(), "hi", "")
	if err == nil {
		t.Fatalf("expected an immediate error for a non-2xx streaming response")
	}
}

func TestClassifyHTTPError(t *testing.T) {
	if ClassifyHTTPError(nil, 500) != ErrServerError {
		t.Fatalf("expected 500 to classify as ServerError")
	}
	if ClassifyHTTPError(nil, 400) != ErrNonRetryable {
		t.Fatalf("expected 400 to classify as NonRetryable")
	}
	if ClassifyHTTPError(io.ErrUnexpectedEOF, 0) != ErrConnection {
		t.Fatalf("expected a transport error with no status to classify as Connection")
	}
}

// errorsAs is a tiny local wrapper so this file needs only "errors"
// semantics without importing the stdlib package twice under two names.
func errorsAs(err error, target **RetryExhaustedError) bool {
	for err != nil {
		if e, ok := err.(*RetryExhaustedError); ok {
			*target = e
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
