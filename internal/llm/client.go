// Package llm invokes the inference backend that turns statement text into
// structured transaction JSON.
package llm

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

const (
	defaultModel     = "gpt-4o-mini"
	defaultMaxTokens = 4000
)

// ErrKind classifies inference failures.
type ErrKind int

const (
	// KindTransient covers rate limits, timeouts and 5xx responses;
	// retried internally up to the policy ceiling.
	KindTransient ErrKind = iota
	// KindAuth covers invalid or missing credentials. Not retried.
	KindAuth
	// KindInvalidRequest covers malformed requests. Not retried.
	KindInvalidRequest
	// KindModelUnavailable covers unknown model identifiers. Not retried.
	KindModelUnavailable
)

func (k ErrKind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	case KindAuth:
		return "auth"
	case KindInvalidRequest:
		return "invalid_request"
	case KindModelUnavailable:
		return "model_unavailable"
	}
	return "unknown"
}

// Error is a typed inference failure carrying the attempt count for
// diagnostics.
type Error struct {
	Kind     ErrKind
	Attempts int
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("inference failed (%s) after %d attempt(s): %v", e.Kind, e.Attempts, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Usage reports the cost side of an invocation. Attempts counts every
// network call made, including retries; token counts accumulate across
// attempts. Observability only, not part of correctness.
type Usage struct {
	Attempts         int
	PromptTokens     int
	CompletionTokens int
}

// Config holds client settings.
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	Timeout     time.Duration
	Temperature float32
	MaxTokens   int
	Retry       Policy
}

// Client wraps the OpenAI-compatible chat completions API. The instruction
// prompt travels as the system message so identical requests share a
// cacheable prefix on the provider side; the per-document text travels as
// the user message.
type Client struct {
	api       *openai.Client
	model     string
	temp      float32
	maxTokens int
	timeout   time.Duration
	retry     Policy
}

// New creates a client from config.
func New(cfg Config) (*Client, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, fmt.Errorf("llm: API key is required")
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultModel
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	openaiCfg := openai.DefaultConfig(apiKey)
	if strings.TrimSpace(cfg.BaseURL) != "" {
		openaiCfg.BaseURL = strings.TrimSpace(cfg.BaseURL)
	}

	return &Client{
		api:       openai.NewClientWithConfig(openaiCfg),
		model:     model,
		temp:      cfg.Temperature,
		maxTokens: maxTokens,
		timeout:   timeout,
		retry:     cfg.Retry,
	}, nil
}

// Invoke sends the instruction and data prompts and returns the raw model
// output. Transient backend errors are retried with exponential backoff;
// auth, invalid-request and model-not-found errors fail immediately. The
// returned Usage is valid even when err is non-nil.
func (c *Client) Invoke(ctx context.Context, instruction, data string) (string, Usage, error) {
	var usage Usage
	if c == nil {
		return "", usage, fmt.Errorf("llm: client is nil")
	}
	if instruction == "" || data == "" {
		return "", usage, fmt.Errorf("llm: both prompts must be provided")
	}

	retrier := NewRetrier(c.retry)
	var lastErr error

	for retrier.ShouldAttempt() {
		if retrier.Attempts() > 0 {
			delay := retrier.Delay()
			log.Printf("llm: transient backend error, retrying in %s (attempt %d): %v",
				delay, retrier.Attempts()+1, lastErr)
			select {
			case <-ctx.Done():
				return "", usage, ctx.Err()
			case <-time.After(delay):
			}
		}

		text, attemptUsage, err := c.doRequest(ctx, instruction, data)
		usage.Attempts++
		usage.PromptTokens += attemptUsage.PromptTokens
		usage.CompletionTokens += attemptUsage.CompletionTokens

		if err == nil {
			retrier.Observe(nil, false)
			return text, usage, nil
		}
		// Caller cancellation is not a backend failure; abandon immediately.
		if ctx.Err() != nil {
			return "", usage, ctx.Err()
		}

		lastErr = err
		retrier.Observe(err, classify(err) == KindTransient)
	}

	return "", usage, &Error{Kind: classify(lastErr), Attempts: retrier.Attempts(), Err: lastErr}
}

func (c *Client) doRequest(ctx context.Context, instruction, data string) (string, Usage, error) {
	// Per-attempt timeout, distinct from the retry backoff ceiling.
	attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.api.CreateChatCompletion(attemptCtx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: instruction},
			{Role: openai.ChatMessageRoleUser, Content: data},
		},
		MaxTokens:   c.maxTokens,
		Temperature: c.temp,
	})
	if err != nil {
		return "", Usage{}, err
	}

	u := Usage{
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
	}
	if len(resp.Choices) == 0 {
		return "", u, fmt.Errorf("llm: empty response")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), u, nil
}

// classify maps backend errors onto the retry taxonomy. Anything that does
// not carry an HTTP status (network failures, timeouts) is transient.
func classify(err error) ErrKind {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.HTTPStatusCode == 401 || apiErr.HTTPStatusCode == 403:
			return KindAuth
		case apiErr.HTTPStatusCode == 404:
			return KindModelUnavailable
		case apiErr.HTTPStatusCode == 429 || apiErr.HTTPStatusCode >= 500:
			return KindTransient
		case apiErr.HTTPStatusCode >= 400:
			return KindInvalidRequest
		}
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		switch {
		case reqErr.HTTPStatusCode == 401 || reqErr.HTTPStatusCode == 403:
			return KindAuth
		case reqErr.HTTPStatusCode == 404:
			return KindModelUnavailable
		case reqErr.HTTPStatusCode >= 400 && reqErr.HTTPStatusCode < 500 && reqErr.HTTPStatusCode != 429:
			return KindInvalidRequest
		}
		return KindTransient
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return KindTransient
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTransient
	}
	return KindTransient
}
