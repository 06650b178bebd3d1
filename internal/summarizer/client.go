package summarizer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/pfrederiksen/eventscout/internal/event"
	"github.com/pfrederiksen/eventscout/internal/logger"
	"github.com/pfrederiksen/eventscout/internal/metrics"
)

const (
	// DefaultBaseURL is the OpenAI API root
	DefaultBaseURL = "https://api.openai.com/v1"
	// DefaultModel is the chat model used when none is configured
	DefaultModel = "gpt-3.5-turbo"
	// DefaultMaxTokens bounds the completion length
	DefaultMaxTokens = 4096
	// Timeout is the default per-request timeout
	Timeout = 60 * time.Second

	maxRetryAfter = 2 * time.Minute
)

// Fallback reasons reported to metrics.
const (
	FallbackRequest  = "request_error"
	FallbackResponse = "invalid_response"
)

// Options configures a Client
type Options struct {
	BaseURL         string
	APIKey          string
	Model           string
	MaxTokens       int
	Timeout         time.Duration
	MaxRetries      int
	MaxContentChars int
	Metrics         *metrics.Metrics
}

// Client calls an OpenAI-compatible chat completion endpoint
type Client struct {
	baseURL         string
	apiKey          string
	model           string
	maxTokens       int
	maxRetries      int
	maxContentChars int
	client          *http.Client
	metrics         *metrics.Metrics

	initialInterval time.Duration
}

// New creates a Client, filling unset options with defaults
func New(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Model == "" {
		opts.Model = DefaultModel
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = DefaultMaxTokens
	}
	if opts.Timeout <= 0 {
		opts.Timeout = Timeout
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}

	return &Client{
		baseURL:         strings.TrimRight(opts.BaseURL, "/"),
		apiKey:          opts.APIKey,
		model:           opts.Model,
		maxTokens:       opts.MaxTokens,
		maxRetries:      opts.MaxRetries,
		maxContentChars: opts.MaxContentChars,
		client: &http.Client{
			Timeout: opts.Timeout,
		},
		metrics:         opts.Metrics,
		initialInterval: time.Second,
	}
}

type chatRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message      chatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// statusError is a non-200 answer from the endpoint
type statusError struct {
	code       int
	body       string
	retryAfter time.Duration
}

func (e *statusError) Error() string {
	return fmt.Sprintf("chat completion returned status %d: %s", e.code, e.body)
}

func (e *statusError) retryable() bool {
	return e.code == http.StatusTooManyRequests || e.code >= 500
}

// Summarize asks the model for a summary of content. It never returns an error:
// request failures and unusable answers are logged and yield the empty summary.
func (c *Client) Summarize(ctx context.Context, content string) event.Summary {
	prompt := BuildPrompt(Truncate(content, c.maxContentChars))

	start := time.Now()
	answer, err := c.complete(ctx, prompt)
	c.metrics.ObserveSummarize(time.Since(start))
	if err != nil {
		logger.Error("Summarization request failed", logger.Fields{
			"model": c.model,
		}, err)
		c.metrics.SummaryFallback(FallbackRequest)
		return event.EmptySummary()
	}

	summary, err := ParseSummary(answer)
	if err != nil {
		logger.Warn("Discarding unusable summary", logger.Fields{
			"model":  c.model,
			"error":  err.Error(),
			"answer": Truncate(answer, 200),
		})
		c.metrics.SummaryFallback(FallbackResponse)
		return event.EmptySummary()
	}

	return summary
}

// complete sends prompt and returns the first choice's message text,
// retrying rate-limit and server errors with exponential backoff.
func (c *Client) complete(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model:     c.model,
		Messages:  []chatMessage{{Role: "user", Content: prompt}},
		MaxTokens: c.maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	policy := &retryAfterBackOff{BackOff: c.newBackOff()}

	var answer string
	operation := func() error {
		text, err := c.send(ctx, body)
		if err != nil {
			var se *statusError
			if errors.As(err, &se) && se.retryable() {
				policy.next = se.retryAfter
				return err
			}
			return backoff.Permanent(err)
		}
		answer = text
		return nil
	}
	notify := func(err error, wait time.Duration) {
		c.metrics.SummarizeRetry()
		logger.Warn("Retrying summarization request", logger.Fields{
			"error": err.Error(),
			"wait":  wait.String(),
		})
	}

	b := backoff.WithContext(backoff.WithMaxRetries(policy, uint64(c.maxRetries)), ctx)
	if err := backoff.RetryNotify(operation, b, notify); err != nil {
		return "", err
	}
	return answer, nil
}

func (c *Client) newBackOff() backoff.BackOff {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = c.initialInterval
	eb.MaxInterval = 30 * time.Second
	eb.MaxElapsedTime = 0
	return eb
}

func (c *Client) send(ctx context.Context, body []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", &statusError{
			code:       resp.StatusCode,
			body:       Truncate(strings.TrimSpace(string(data)), 200),
			retryAfter: parseRetryAfter(resp.Header.Get("Retry-After"), time.Now()),
		}
	}

	var parsed chatResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("chat completion error: %s", parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return "", errors.New("chat completion returned no choices")
	}

	return parsed.Choices[0].Message.Content, nil
}

// parseRetryAfter reads a Retry-After header given in seconds or as an HTTP date.
// It returns zero when the header is absent or unusable.
func parseRetryAfter(value string, now time.Time) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}

	var wait time.Duration
	if secs, err := strconv.Atoi(value); err == nil {
		wait = time.Duration(secs) * time.Second
	} else if at, err := http.ParseTime(value); err == nil {
		wait = at.Sub(now)
	}

	if wait <= 0 {
		return 0
	}
	if wait > maxRetryAfter {
		return maxRetryAfter
	}
	return wait
}

// retryAfterBackOff substitutes a server-provided wait for the next interval
type retryAfterBackOff struct {
	backoff.BackOff
	next time.Duration
}

func (b *retryAfterBackOff) NextBackOff() time.Duration {
	d := b.BackOff.NextBackOff()
	if d == backoff.Stop {
		return d
	}
	if b.next > 0 {
		d = b.next
		b.next = 0
	}
	return d
}
