package llms

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/kadirpekel/quoter/pkg/config"
	"github.com/kadirpekel/quoter/pkg/httpclient"
)

const defaultOpenAIHost = "https://api.openai.com/v1"

// OpenAIProvider calls the OpenAI chat completions API through a retrying
// HTTP client. Transient failures are retried with backoff at the HTTP
// layer; the final error is classified for the caller's fallback decision.
type OpenAIProvider struct {
	config     config.LLMConfig
	httpClient *httpclient.Client
}

type openAIRequest struct {
	Model       string          `json:"model"`
	Messages    []openAIMessage `json:"messages"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
	Temperature float64         `json:"temperature"`
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIResponse struct {
	Choices []openAIChoice `json:"choices"`
	Usage   openAIUsage    `json:"usage"`
	Error   *openAIError   `json:"error,omitempty"`
}

type openAIChoice struct {
	Message      openAIMessage `json:"message"`
	FinishReason string        `json:"finish_reason"`
}

type openAIUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type openAIError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    string `json:"code"`
}

// ProviderOptions tunes the HTTP retry behavior of a provider.
type ProviderOptions struct {
	MaxRetries      int
	RetryBaseDelay  time.Duration
	RetryMultiplier float64
	Observer        httpclient.AttemptObserver
}

// NewOpenAIProvider builds a provider from configuration.
func NewOpenAIProvider(cfg config.LLMConfig, opts ProviderOptions) *OpenAIProvider {
	clientOpts := []httpclient.Option{
		httpclient.WithHTTPClient(&http.Client{
			Timeout: time.Duration(cfg.Timeout) * time.Second,
		}),
		httpclient.WithMaxRetries(opts.MaxRetries),
		httpclient.WithHeaderParser(httpclient.ParseOpenAIRateLimitHeaders),
	}
	if opts.RetryBaseDelay > 0 {
		clientOpts = append(clientOpts, httpclient.WithBaseDelay(opts.RetryBaseDelay))
	}
	if opts.RetryMultiplier > 0 {
		clientOpts = append(clientOpts, httpclient.WithBackoffMultiplier(opts.RetryMultiplier))
	}
	if opts.Observer != nil {
		clientOpts = append(clientOpts, httpclient.WithAttemptObserver(opts.Observer))
	}

	return &OpenAIProvider{
		config:     cfg,
		httpClient: httpclient.New(clientOpts...),
	}
}

func (p *OpenAIProvider) ModelName() string {
	return p.config.Model
}

func (p *OpenAIProvider) Close() error {
	return nil
}

// Complete performs a chat completion and returns the generated text.
func (p *OpenAIProvider) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	if p.config.APIKey == "" {
		return "", NewPermanentError("no API key configured", nil)
	}

	request := p.buildRequest(req)

	response, err := p.makeRequest(ctx, request)
	if err != nil {
		return "", classifyError(err)
	}

	if response.Error != nil {
		return "", NewPermanentError(fmt.Sprintf("OpenAI API error: %s", response.Error.Message), nil)
	}

	if len(response.Choices) == 0 {
		return "", NewTransientError("no response choices returned", nil)
	}

	return response.Choices[0].Message.Content, nil
}

func (p *OpenAIProvider) buildRequest(req CompletionRequest) openAIRequest {
	messages := make([]openAIMessage, 0, 2)
	if req.System != "" {
		messages = append(messages, openAIMessage{Role: "system", Content: req.System})
	}
	messages = append(messages, openAIMessage{Role: "user", Content: req.Prompt})

	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = p.config.MaxTokens
	}

	temperature := req.Temperature
	if temperature == 0 && p.config.Temperature != nil {
		temperature = *p.config.Temperature
	}

	return openAIRequest{
		Model:       p.config.Model,
		Messages:    messages,
		MaxTokens:   maxTokens,
		Temperature: temperature,
	}
}

func (p *OpenAIProvider) makeRequest(ctx context.Context, request openAIRequest) (*openAIResponse, error) {
	body, err := json.Marshal(request)
	if err != nil {
		return nil, NewPermanentError("failed to marshal request", err)
	}

	host := p.config.BaseURL
	if host == "" {
		host = defaultOpenAIHost
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, host+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, NewPermanentError("failed to build request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.config.APIKey)

	resp, err := p.httpClient.Do(httpReq)
	if resp != nil {
		defer resp.Body.Close()
	}
	if err != nil {
		return nil, err
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, NewTransientError("failed to read response body", err)
	}

	var response openAIResponse
	if err := json.Unmarshal(data, &response); err != nil {
		return nil, NewTransientError("failed to decode response", err)
	}

	return &response, nil
}

// classifyError maps HTTP layer failures onto the backend error taxonomy.
func classifyError(err error) error {
	var backendErr *BackendError
	if errors.As(err, &backendErr) {
		return backendErr
	}

	var statusErr *httpclient.StatusError
	if errors.As(err, &statusErr) {
		if httpclient.PermanentStatus(statusErr.Code) {
			return NewPermanentError("request rejected", statusErr)
		}
		return NewTransientError("request failed", statusErr)
	}

	var retryErr *httpclient.RetryableError
	if errors.As(err, &retryErr) {
		return NewTransientError("retry budget exhausted", retryErr)
	}

	// Timeouts, canceled contexts and transport failures.
	return NewTransientError("transport failure", err)
}
