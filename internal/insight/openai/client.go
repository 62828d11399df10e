// Package openai talks to any OpenAI-compatible chat-completions endpoint,
// Groq included.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Config holds the endpoint settings. Nothing is read from the environment.
type Config struct {
	APIKey     string
	BaseURL    string // e.g. https://api.groq.com/openai/v1
	Model      string
	HTTPClient *http.Client
}

// Client is a chat-completions client sending one user message per call.
type Client struct {
	apiKey     string
	endpoint   string
	model      string
	httpClient *http.Client
}

type chatRequest struct {
	Model    string    `json:"model"`
	Messages []message `json:"messages"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message message `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// New creates a client from cfg.
func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("openai: API key is required")
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, errors.New("openai: model is required")
	}
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, errors.New("openai: base URL is required")
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 90 * time.Second}
	}
	return &Client{
		apiKey:     cfg.APIKey,
		endpoint:   base + "/chat/completions",
		model:      cfg.Model,
		httpClient: hc,
	}, nil
}

// Generate sends prompt as a single user message and returns the first
// choice verbatim.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	jsonData, err := json.Marshal(chatRequest{
		Model:    c.model,
		Messages: []message{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to make API request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	var out chatResponse
	decodeErr := json.Unmarshal(body, &out)

	if resp.StatusCode != http.StatusOK {
		if decodeErr == nil && out.Error != nil && out.Error.Message != "" {
			return "", fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, out.Error.Message)
		}
		return "", fmt.Errorf("API request failed with status %d", resp.StatusCode)
	}
	if decodeErr != nil {
		return "", fmt.Errorf("failed to decode response: %w", decodeErr)
	}
	if len(out.Choices) == 0 {
		return "", errors.New("response contained no choices")
	}
	return out.Choices[0].Message.Content, nil
}

// Model returns the configured model name.
func (c *Client) Model() string { return c.model }
