package summarizer

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/pfrederiksen/eventscout/internal/event"
	"github.com/pfrederiksen/eventscout/internal/metrics"
)

// chatAnswer wraps content in a chat completion response body
func chatAnswer(content string) string {
	resp := map[string]interface{}{
		"choices": []map[string]interface{}{
			{"message": map[string]string{"role": "assistant", "content": content}, "finish_reason": "stop"},
		},
	}
	data, _ := json.Marshal(resp)
	return string(data)
}

// counterValue returns the counter named name whose first label equals label,
// or the unlabelled counter when label is empty
func counterValue(t *testing.T, m *metrics.Metrics, name, label string) float64 {
	t.Helper()
	families, err := m.Registry().Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, metric := range mf.GetMetric() {
			labels := metric.GetLabel()
			if label == "" || (len(labels) > 0 && labels[0].GetValue() == label) {
				return metric.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func newTestClient(url string, maxRetries int, m *metrics.Metrics) *Client {
	c := New(Options{
		BaseURL:    url,
		APIKey:     "test-key",
		Model:      "test-model",
		MaxTokens:  512,
		Timeout:    5 * time.Second,
		MaxRetries: maxRetries,
		Metrics:    m,
	})
	c.initialInterval = time.Millisecond
	return c
}

func TestClient_Summarize(t *testing.T) {
	var got chatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %s, want /chat/completions", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Errorf("Authorization = %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		fmt.Fprint(w, chatAnswer(validAnswer))
	}))
	defer server.Close()

	c := newTestClient(server.URL+"/", 0, nil)
	summary := c.Summarize(context.Background(), "Rooftop mixer")

	if summary.Status != "Available" || len(summary.Tags) != 2 {
		t.Errorf("Summarize() = %+v", summary)
	}
	if got.Model != "test-model" {
		t.Errorf("model = %q, want test-model", got.Model)
	}
	if got.MaxTokens != 512 {
		t.Errorf("max_tokens = %d, want 512", got.MaxTokens)
	}
	if len(got.Messages) != 1 || got.Messages[0].Role != "user" {
		t.Fatalf("messages = %+v, want one user message", got.Messages)
	}
	if !strings.HasSuffix(got.Messages[0].Content, "Event Content: Rooftop mixer") {
		t.Error("prompt should carry the event content")
	}
}

func TestClient_SummarizeTruncatesContent(t *testing.T) {
	var prompt string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		prompt = req.Messages[0].Content
		fmt.Fprint(w, chatAnswer(validAnswer))
	}))
	defer server.Close()

	c := New(Options{BaseURL: server.URL, APIKey: "k", MaxContentChars: 10})
	c.Summarize(context.Background(), strings.Repeat("abcdefghij", 5))

	if !strings.HasSuffix(prompt, "Event Content: abcdefghij") {
		t.Errorf("content not truncated, prompt tail = %q", prompt[len(prompt)-40:])
	}
}

func TestClient_SummarizeFallbacks(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		reason string
	}{
		{"non-json answer", http.StatusOK, chatAnswer("Sorry, I cannot help with that."), FallbackResponse},
		{"unknown tag", http.StatusOK, chatAnswer(`{"description":"x","tags":["Crypto"],"sponsors":[],"status":""}`), FallbackResponse},
		{"bad request", http.StatusBadRequest, `{"error":{"message":"bad"}}`, FallbackRequest},
		{"api error object", http.StatusOK, `{"error":{"message":"quota exceeded","type":"insufficient_quota"}}`, FallbackRequest},
		{"no choices", http.StatusOK, `{"choices":[]}`, FallbackRequest},
		{"malformed body", http.StatusOK, `not json`, FallbackRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				atomic.AddInt32(&calls, 1)
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			}))
			defer server.Close()

			m := metrics.New()
			c := newTestClient(server.URL, 3, m)
			summary := c.Summarize(context.Background(), "content")

			if !reflect.DeepEqual(summary, event.EmptySummary()) {
				t.Errorf("Summarize() = %+v, want empty summary", summary)
			}
			if n := atomic.LoadInt32(&calls); n != 1 {
				t.Errorf("server called %d times, want 1 (no retry)", n)
			}

			if got := counterValue(t, m, "eventscout_summary_fallbacks_total", tt.reason); got != 1 {
				t.Errorf("fallbacks{reason=%q} = %v, want 1", tt.reason, got)
			}
		})
	}
}

func TestClient_RetriesRateLimit(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			fmt.Fprint(w, `{"error":{"message":"slow down"}}`)
			return
		}
		fmt.Fprint(w, chatAnswer(validAnswer))
	}))
	defer server.Close()

	m := metrics.New()
	c := newTestClient(server.URL, 3, m)
	summary := c.Summarize(context.Background(), "content")

	if summary.Status != "Available" {
		t.Errorf("Summarize() = %+v, want parsed summary after retry", summary)
	}
	if n := atomic.LoadInt32(&calls); n != 2 {
		t.Errorf("server called %d times, want 2", n)
	}
	if got := counterValue(t, m, "eventscout_summarize_retries_total", ""); got != 1 {
		t.Errorf("retries = %v, want 1", got)
	}
}

func TestClient_RetriesServerErrorsUntilLimit(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	c := newTestClient(server.URL, 2, nil)
	summary := c.Summarize(context.Background(), "content")

	if !reflect.DeepEqual(summary, event.EmptySummary()) {
		t.Errorf("Summarize() = %+v, want empty summary", summary)
	}
	if n := atomic.LoadInt32(&calls); n != 3 {
		t.Errorf("server called %d times, want 3 (1 + 2 retries)", n)
	}
}

func TestClient_NoRetriesWhenDisabled(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	c := newTestClient(server.URL, 0, nil)
	c.Summarize(context.Background(), "content")

	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Errorf("server called %d times, want 1", n)
	}
}

func TestClient_SummarizeCanceled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, chatAnswer(validAnswer))
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := newTestClient(server.URL, 3, nil)
	summary := c.Summarize(ctx, "content")

	if !reflect.DeepEqual(summary, event.EmptySummary()) {
		t.Errorf("Summarize() = %+v, want empty summary on canceled context", summary)
	}
}

func TestParseRetryAfter(t *testing.T) {
	now := time.Date(2025, 3, 8, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		value string
		want  time.Duration
	}{
		{"absent", "", 0},
		{"seconds", "7", 7 * time.Second},
		{"zero", "0", 0},
		{"negative", "-3", 0},
		{"http date", now.Add(20 * time.Second).Format(http.TimeFormat), 20 * time.Second},
		{"past date", now.Add(-time.Minute).Format(http.TimeFormat), 0},
		{"capped", "3600", maxRetryAfter},
		{"garbage", "soon", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := parseRetryAfter(tt.value, now); got != tt.want {
				t.Errorf("parseRetryAfter(%q) = %v, want %v", tt.value, got, tt.want)
			}
		})
	}
}

func TestRetryAfterBackOff(t *testing.T) {
	b := &retryAfterBackOff{BackOff: backoff.NewConstantBackOff(time.Second)}

	b.next = 5 * time.Second
	if got := b.NextBackOff(); got != 5*time.Second {
		t.Errorf("NextBackOff() = %v, want server wait of 5s", got)
	}
	if got := b.NextBackOff(); got != time.Second {
		t.Errorf("NextBackOff() = %v, want policy interval after override is used", got)
	}

	stopped := &retryAfterBackOff{BackOff: &backoff.StopBackOff{}, next: time.Second}
	if got := stopped.NextBackOff(); got != backoff.Stop {
		t.Errorf("NextBackOff() = %v, want Stop to win over server wait", got)
	}
}
