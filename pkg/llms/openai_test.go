package llms

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kadirpekel/quoter/pkg/config"
)

func testProvider(t *testing.T, serverURL string, opts ProviderOptions) *OpenAIProvider {
	t.Helper()
	return NewOpenAIProvider(config.LLMConfig{
		Provider: "openai",
		Model:    "gpt-4o-mini",
		APIKey:   "sk-test-key",
		BaseURL:  serverURL,
		Timeout:  5,
	}, opts)
}

func completionBody(text string) []byte {
	resp := openAIResponse{
		Choices: []openAIChoice{
			{Message: openAIMessage{Role: "assistant", Content: text}},
		},
		Usage: openAIUsage{TotalTokens: 20},
	}
	data, _ := json.Marshal(resp)
	return data
}

func TestComplete_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %s, want /chat/completions", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test-key" {
			t.Errorf("Authorization = %q", got)
		}

		var req openAIRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if len(req.Messages) != 2 || req.Messages[0].Role != "system" {
			t.Errorf("messages = %+v, want system + user", req.Messages)
		}

		w.Write(completionBody(`"Courage is a muscle." - Anonymous`))
	}))
	defer server.Close()

	provider := testProvider(t, server.URL, ProviderOptions{})

	text, err := provider.Complete(context.Background(), CompletionRequest{
		System: "You are a wise quote generator.",
		Prompt: "Generate a quote about courage",
	})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if text == "" {
		t.Error("Complete() returned empty text")
	}
}

func TestComplete_MissingAPIKeyIsPermanent(t *testing.T) {
	provider := NewOpenAIProvider(config.LLMConfig{Model: "gpt-4o-mini"}, ProviderOptions{})

	_, err := provider.Complete(context.Background(), CompletionRequest{Prompt: "hi"})

	var backendErr *BackendError
	if !errors.As(err, &backendErr) {
		t.Fatalf("error type = %T, want *BackendError", err)
	}
	if backendErr.Transient {
		t.Error("missing API key should be permanent")
	}
}

func TestComplete_AuthFailureIsPermanentAndNotRetried(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	provider := testProvider(t, server.URL, ProviderOptions{MaxRetries: 2, RetryBaseDelay: time.Millisecond})

	_, err := provider.Complete(context.Background(), CompletionRequest{Prompt: "hi"})

	var backendErr *BackendError
	if !errors.As(err, &backendErr) {
		t.Fatalf("error type = %T, want *BackendError", err)
	}
	if backendErr.Transient {
		t.Error("401 should be permanent")
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("server calls = %d, want 1", got)
	}
}

func TestComplete_TransientFailureRetriedThenSucceeds(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write(completionBody("eventually"))
	}))
	defer server.Close()

	var attempts int32
	provider := testProvider(t, server.URL, ProviderOptions{
		MaxRetries:     2,
		RetryBaseDelay: time.Millisecond,
		Observer: func(attempt int, latency time.Duration, err error) {
			atomic.AddInt32(&attempts, 1)
		},
	})

	text, err := provider.Complete(context.Background(), CompletionRequest{Prompt: "hi"})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if text != "eventually" {
		t.Errorf("text = %q", text)
	}
	if got := atomic.LoadInt32(&attempts); got != 3 {
		t.Errorf("observed attempts = %d, want 3", got)
	}
}

func TestComplete_ExhaustedRetriesAreTransient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	provider := testProvider(t, server.URL, ProviderOptions{MaxRetries: 2, RetryBaseDelay: time.Millisecond})

	_, err := provider.Complete(context.Background(), CompletionRequest{Prompt: "hi"})

	var backendErr *BackendError
	if !errors.As(err, &backendErr) {
		t.Fatalf("error type = %T, want *BackendError", err)
	}
	if !backendErr.Transient {
		t.Error("exhausted 429 retries should be transient")
	}
}

func TestComplete_APIErrorBodyIsPermanent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(openAIResponse{
			Error: &openAIError{Message: "model not found", Type: "invalid_request_error"},
		})
	}))
	defer server.Close()

	provider := testProvider(t, server.URL, ProviderOptions{})

	_, err := provider.Complete(context.Background(), CompletionRequest{Prompt: "hi"})

	var backendErr *BackendError
	if !errors.As(err, &backendErr) {
		t.Fatalf("error type = %T, want *BackendError", err)
	}
	if backendErr.Transient {
		t.Error("API-level error should be permanent")
	}
}
