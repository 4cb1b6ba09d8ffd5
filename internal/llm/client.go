package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/quillchat/quill/internal/utils"
)

var (
	// ErrNotConfigured means no API key was provided at startup.
	ErrNotConfigured = errors.New("llm: api key not configured")
	// ErrTimeout wraps an upstream call that exceeded the configured deadline.
	ErrTimeout = errors.New("llm: upstream request timed out")
)

// Message mirrors OpenAI-compatible chat message payloads.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Usage contains token usage metadata returned by the completion API.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Client calls an OpenAI-compatible chat completions endpoint.
type Client struct {
	baseURL     string
	apiKey      string
	model       string
	maxTokens   int
	temperature float64
	client      httpDoer
	logger      *zap.SugaredLogger
}

// NewClient constructs a Client initialized from cfg.
func NewClient(cfg utils.LLMConfig, logger *zap.SugaredLogger) *Client {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = "https://api.groq.com/openai/v1"
	}

	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = "meta-llama/llama-4-scout-17b-16e-instruct"
	}

	return &Client{
		baseURL:     base,
		apiKey:      strings.TrimSpace(cfg.APIKey),
		model:       model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		client:      newHTTPClientWithTimeout(cfg.Timeout),
		logger:      logger,
	}
}

// Complete sends the user message to the completion API and returns the
// assistant reply text.
func (c *Client) Complete(ctx context.Context, message string) (string, error) {
	if c.apiKey == "" {
		return "", ErrNotConfigured
	}

	message = strings.TrimSpace(message)
	if message == "" {
		return "", fmt.Errorf("llm: message cannot be empty")
	}

	payload := completionRequest{
		Model:    c.model,
		Messages: []Message{{Role: "user", Content: message}},
	}
	if c.maxTokens > 0 {
		payload.MaxTokens = c.maxTokens
	}
	if c.temperature > 0 {
		payload.Temperature = c.temperature
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("llm: marshal payload: %w", err)
	}

	endpoint := c.baseURL + "/chat/completions"
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("llm: create request: %w", err)
	}

	request.Header.Set("Authorization", "Bearer "+c.apiKey)
	request.Header.Set("Content-Type", "application/json")

	response, err := c.client.Do(request)
	if err != nil {
		var urlErr *url.Error
		if errors.As(err, &urlErr) && urlErr.Timeout() {
			return "", fmt.Errorf("llm: call completion api: %w", ErrTimeout)
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return "", fmt.Errorf("llm: call completion api: %w", ErrTimeout)
		}
		return "", fmt.Errorf("llm: call completion api: %w", err)
	}
	defer response.Body.Close()

	respBody, err := io.ReadAll(response.Body)
	if err != nil {
		return "", fmt.Errorf("llm: read completion response: %w", err)
	}

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return "", buildAPIError(response.StatusCode, respBody)
	}

	var apiResp completionResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return "", fmt.Errorf("llm: decode completion response: %w", err)
	}

	if apiResp.Error != nil && apiResp.Error.Message != "" {
		return "", fmt.Errorf("llm: completion error: %s", apiResp.Error.Message)
	}

	if len(apiResp.Choices) == 0 {
		return "", fmt.Errorf("llm: completion response contained no choices")
	}

	if c.logger != nil && apiResp.Usage != nil {
		c.logger.Debugw("completion usage",
			"prompt_tokens", apiResp.Usage.PromptTokens,
			"completion_tokens", apiResp.Usage.CompletionTokens,
		)
	}

	return apiResp.Choices[0].Message.Content, nil
}

type completionRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature,omitempty"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
}

type completionChoice struct {
	Index        int     `json:"index"`
	Message      Message `json:"message"`
	FinishReason string  `json:"finish_reason"`
}

type completionResponse struct {
	ID      string             `json:"id"`
	Object  string             `json:"object"`
	Created int64              `json:"created"`
	Choices []completionChoice `json:"choices"`
	Usage   *Usage             `json:"usage"`
	Error   *apiError          `json:"error,omitempty"`
}
