// Package llm provides the text-generation capability backed by an Ollama
// server's /api/generate endpoint.
package llm

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

	"opponent/internal/domain"
)

// Client talks to an Ollama-compatible generation API.
type Client struct {
	baseURL     string
	model       string
	temperature float64
	httpc       *http.Client
}

// Config configures the generation client.
type Config struct {
	BaseURL     string
	Model       string
	Temperature float64
	Timeout     time.Duration
}

// New creates a generation client with the given configuration.
func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:11434"
	}
	if cfg.Model == "" {
		cfg.Model = "phi3:3.8b"
	}
	t := cfg.Timeout
	if t == 0 {
		t = 120 * time.Second
	}
	return &Client{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		httpc:       &http.Client{Timeout: t},
	}
}

// WithTemperature returns a copy of the client using a different sampling
// temperature. Shares the underlying HTTP client.
func (c *Client) WithTemperature(t float64) *Client {
	clone := *c
	clone.temperature = t
	return &clone
}

type generateRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	Stream  bool           `json:"stream"`
	Format  string         `json:"format,omitempty"`
	Options map[string]any `json:"options,omitempty"`
}

type generateResponse struct {
	Response string `json:"response"`
	Error    string `json:"error,omitempty"`
}

// Generate returns the model's completion for prompt.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	out, err := c.generate(ctx, prompt, "")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// GenerateJSON constrains the model to JSON output and decodes the payload
// into out. A payload that does not decode into out's shape fails with
// domain.ErrSchemaMismatch.
func (c *Client) GenerateJSON(ctx context.Context, prompt string, out any) error {
	raw, err := c.generate(ctx, prompt, "json")
	if err != nil {
		return err
	}
	raw = strings.TrimSpace(raw)
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrSchemaMismatch, err)
	}
	return nil
}

func (c *Client) generate(ctx context.Context, prompt, format string) (string, error) {
	body := generateRequest{
		Model:   c.model,
		Prompt:  prompt,
		Stream:  false,
		Format:  format,
		Options: map[string]any{"temperature": c.temperature},
	}
	data, err := json.Marshal(body)
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/generate", bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return "", fmt.Errorf("llm generate: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("llm generate: %w", err)
	}
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("llm generate: %s: %s", resp.Status, strings.TrimSpace(string(payload)))
	}

	var decoded generateResponse
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return "", fmt.Errorf("llm generate: decode response: %w", err)
	}
	if decoded.Error != "" {
		return "", fmt.Errorf("llm generate: %s", decoded.Error)
	}
	if decoded.Response == "" {
		return "", errors.New("llm generate: empty response")
	}
	return decoded.Response, nil
}
