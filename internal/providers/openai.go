package providers

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

const (
	openAIDefaultBaseURL = "https://api.openai.com/v1"
	openAITimeout        = 60 * time.Second
	maxErrorBody         = 512
)

// OpenAIProvider talks to any OpenAI-compatible chat completions endpoint
type OpenAIProvider struct {
	id      string
	apiKey  string
	client  *http.Client
	baseURL string
}

// NewOpenAIProvider creates a new OpenAI-compatible provider instance
func NewOpenAIProvider(cfg Config) (*OpenAIProvider, error) {
	var apiKey string
	if cfg.APIKeyEnv != "" {
		apiKey = os.Getenv(cfg.APIKeyEnv)
		if apiKey == "" {
			return nil, fmt.Errorf("environment variable %s is empty for provider %s", cfg.APIKeyEnv, cfg.ID)
		}
	}

	baseURL := openAIDefaultBaseURL
	if cfg.BaseURL != "" {
		baseURL = strings.TrimRight(cfg.BaseURL, "/")
	}

	timeout := openAITimeout
	if cfg.Timeout > 0 {
		timeout = cfg.Timeout
	}

	client := &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	return &OpenAIProvider{
		id:      cfg.ID,
		apiKey:  apiKey,
		client:  client,
		baseURL: baseURL,
	}, nil
}

// ID returns the provider ID
func (p *OpenAIProvider) ID() string {
	return p.id
}

// Type returns the provider type
func (p *OpenAIProvider) Type() string {
	return TypeOpenAI
}

// Complete sends a single-message chat completion request
func (p *OpenAIProvider) Complete(ctx context.Context, model, prompt string) (string, error) {
	body, err := buildChatBody(model, prompt)
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}

	url := p.baseURL + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("provider returned status %d: %s", resp.StatusCode, errorMessage(respBody))
	}

	content := gjson.GetBytes(respBody, "choices.0.message.content")
	if !content.Exists() {
		return "", fmt.Errorf("response has no choices[0].message.content")
	}
	return content.String(), nil
}

// Close cleans up resources
func (p *OpenAIProvider) Close() error {
	p.client.CloseIdleConnections()
	return nil
}

func buildChatBody(model, prompt string) ([]byte, error) {
	body, err := sjson.SetBytes([]byte(`{}`), "model", model)
	if err != nil {
		return nil, err
	}
	body, err = sjson.SetBytes(body, "messages.0.role", "user")
	if err != nil {
		return nil, err
	}
	return sjson.SetBytes(body, "messages.0.content", prompt)
}

// errorMessage extracts error.message from an OpenAI-style error body, or
// falls back to a truncated raw body.
func errorMessage(body []byte) string {
	if msg := gjson.GetBytes(body, "error.message"); msg.Exists() {
		return msg.String()
	}
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody]
	}
	return string(body)
}
