// Package llm implements the streaming/non-streaming HTTP client for the
// Ollama-style /api/generate wire protocol, with bounded-retry,
// exponential-backoff connect logic (spec.md §4.3).
package llm

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Config configures a Client.
type Config struct {
	BaseURL        string
	Model          string
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
	Retry          RetryPolicy
}

// DefaultConfig matches the original client's timeouts (30s connect, 300s
// read) with the default retry policy.
func DefaultConfig(baseURL, model string) Config {
	return Config{
		BaseURL:        baseURL,
		Model:          model,
		ConnectTimeout: 30 * time.Second,
		ReadTimeout:    300 * time.Second,
		Retry:          DefaultRetryPolicy(),
	}
}

// Generator is the minimal interface the turn controller depends on: one
// prompt(+system) in, one response out. The Ollama Client below is the
// default implementation; internal/providers adapts the teacher's
// Anthropic/OpenAI SDK clients to the same interface so either can sit
// behind the turn controller's LLM field (spec.md §5.3's provider
// polymorphism, generalized beyond the teacher's native tool-calling
// engine.LLMClient shape to this textual tool-call protocol).
type Generator interface {
	Generate(ctx context.Context, prompt, system string) (GenerateResponse, error)
}

// StreamGenerator is implemented by Generators that can additionally
// stream partial output as it arrives (spec.md §4.3). The Ollama-style
// Client below implements it; SDK-backed providers that only expose a
// request/response call (internal/providers) do not, and the turn
// controller falls back to Generate for those (spec.md §4.9 S1).
type StreamGenerator interface {
	GenerateStreaming(ctx context.Context, prompt, system string) (*Stream, error)
}

// Client is an Ollama-compatible LLM HTTP client.
type Client struct {
	httpClient *http.Client
	cfg        Config
}

// New builds a Client from Config.
func New(cfg Config) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.ConnectTimeout + cfg.ReadTimeout,
		},
		cfg: cfg,
	}
}

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
	System string `json:"system,omitempty"`
}

// GenerateResponse is the non-streaming /api/generate reply.
type GenerateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// Generate issues a non-streaming request, retrying per the client's
// RetryPolicy. NonRetryable errors and retry exhaustion surface the last
// error immediately.
func (c *Client) Generate(ctx context.Context, prompt, system string) (GenerateResponse, error) {
	return RetryWithPolicy(ctx, c.cfg.Retry,
		func(ctx context.Context) (GenerateResponse, error) {
			return c.generateOnce(ctx, prompt, system)
		},
		func(err error) ErrorClass {
			var classified *classifiedError
			if cerr, ok := err.(*classifiedError); ok {
				classified = cerr
			}
			if classified != nil {
				return classified.class
			}
			return ClassifyHTTPError(err, 0)
		},
		nil,
	)
}

// classifiedError carries a pre-computed ErrorClass alongside the
// underlying transport/decode error so the retry loop need not re-derive
// it from string matching.
type classifiedError struct {
	err   error
	class ErrorClass
}

func (e *classifiedError) Error() string { return e.err.Error() }
func (e *classifiedError) Unwrap() error { return e.err }

func (c *Client) generateOnce(ctx context.Context, prompt, system string) (GenerateResponse, error) {
	reqBody := generateRequest{Model: c.cfg.Model, Prompt: prompt, Stream: false, System: system}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return GenerateResponse{}, &classifiedError{err: err, class: ErrNonRetryable}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return GenerateResponse{}, &classifiedError{err: err, class: ErrNonRetryable}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return GenerateResponse{}, &classifiedError{err: err, class: ClassifyHTTPError(err, 0)}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(resp.Body)
		class := ClassifyHTTPError(nil, resp.StatusCode)
		return GenerateResponse{}, &classifiedError{
			err:   fmt.Errorf("ollama server error: %d - %s", resp.StatusCode, string(respBody)),
			class: class,
		}
	}

	var out GenerateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return GenerateResponse{}, &classifiedError{err: err, class: ErrNonRetryable}
	}
	return out, nil
}
