// Package gemini generates insight text with Google's Gemini models.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// Config holds the Gemini settings.
type Config struct {
	APIKey string
	Model  string
}

// Client wraps a genai model.
type Client struct {
	client *genai.Client
	model  *genai.GenerativeModel
	name   string
}

// New opens a Gemini client. Close releases it.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("gemini: API key is required")
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, errors.New("gemini: model is required")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &Client{
		client: client,
		model:  client.GenerativeModel(cfg.Model),
		name:   cfg.Model,
	}, nil
}

// Generate returns the concatenated text parts of the first candidate.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := c.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("error generating content with Gemini: %w", err)
	}
	return firstText(resp)
}

func firstText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", errors.New("no response from Gemini model")
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	if b.Len() == 0 {
		return "", errors.New("Gemini response contained no text")
	}
	return b.String(), nil
}

// Model returns the configured model name.
func (c *Client) Model() string { return c.name }

// Close releases the underlying connection.
func (c *Client) Close() error {
	return c.client.Close()
}
