// Package refine runs the optional language-model pass over raw transcripts.
package refine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const maxErrorBodyBytes = 4 << 10

// Config shapes the chat-completion call. A zero TimeoutMS falls back to a
// conservative default.
type Config struct {
	Endpoint     string
	Model        string
	APIKey       string
	SystemPrompt string
	Timeout      time.Duration
}

// Client issues OpenAI-compatible chat completion requests. Refinement is a
// single attempt with no credential fallback; callers degrade to the raw
// transcript when it fails.
type Client struct {
	logger     *slog.Logger
	cfg        Config
	httpClient *http.Client
}

func NewClient(logger *slog.Logger, cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &Client{
		logger: logger,
		cfg:    cfg,
		httpClient: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:    2,
				IdleConnTimeout: 30 * time.Second,
			},
		},
	}
}

// Polish rewrites raw per the configured system prompt. Empty input
// short-circuits without a network call.
func (c *Client) Polish(ctx context.Context, raw string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return "", nil
	}

	payload := chatRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: c.cfg.SystemPrompt},
			{Role: "user", Content: fmt.Sprintf("<ASR转写的文本>\n%s\n</ASR转写的文本>", raw)},
		},
		MaxTokens:   1024,
		Temperature: 0.3,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encode refinement request: %w", err)
	}

	callCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(callCtx, http.MethodPost, c.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build refinement request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("refinement request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return "", fmt.Errorf("refinement failed (status %d): %s", resp.StatusCode, bytes.TrimSpace(detail))
	}

	var envelope chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return "", fmt.Errorf("decode refinement response: %w", err)
	}
	if len(envelope.Choices) == 0 {
		return "", fmt.Errorf("refinement response has no choices")
	}

	refined := strings.TrimSpace(envelope.Choices[0].Message.Content)
	c.logger.Info("transcript refined",
		"model", c.cfg.Model, "latency_ms", time.Since(start).Milliseconds())
	return refined, nil
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}
