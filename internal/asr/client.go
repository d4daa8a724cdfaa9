package asr

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/yyyzl/push-2-talk/internal/transcript"
)

const maxErrorBodyBytes = 4 << 10

// Credentials is the primary/fallback API key pair. The fallback key is
// consulted only after the primary key's attempt budget is exhausted on an
// eligible failure class.
type Credentials struct {
	Primary  string
	Fallback string
}

// RetryPolicy bounds one Transcribe call. It is immutable for the lifetime
// of the call and applies per credential.
type RetryPolicy struct {
	MaxAttempts    int
	AttemptTimeout time.Duration
	Backoff        time.Duration
}

// Result carries the transcript plus the latency accounting surfaced to the
// presentation layer.
type Result struct {
	Text         string
	Latency      time.Duration
	Attempts     int
	UsedFallback bool
}

// Client speaks the multimodal-generation HTTP envelope of the recognition
// service.
type Client struct {
	logger     *slog.Logger
	endpoint   string
	model      string
	httpClient *http.Client
}

// NewClient builds a transcription client. Timeouts are applied per attempt
// through request contexts, not on the shared HTTP client.
func NewClient(logger *slog.Logger, endpoint, model string) *Client {
	return &Client{
		logger:   logger,
		endpoint: endpoint,
		model:    model,
		httpClient: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:    4,
				IdleConnTimeout: 90 * time.Second,
			},
		},
	}
}

// Transcribe sends the WAV payload and returns the recognized text with
// trailing punctuation removed. The primary credential gets the full attempt
// budget first; on timeout, transport, server, auth, or quota failures the
// fallback credential (when configured) gets the same budget.
func (c *Client) Transcribe(ctx context.Context, wav []byte, creds Credentials, policy RetryPolicy) (Result, error) {
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = 1
	}
	if policy.AttemptTimeout <= 0 {
		policy.AttemptTimeout = 6 * time.Second
	}

	body, err := c.encodeRequest(wav)
	if err != nil {
		return Result{}, fmt.Errorf("encode transcription request: %w", err)
	}

	start := time.Now()
	attempts := 0

	text, primaryErr := c.runAttempts(ctx, body, creds.Primary, policy, &attempts, "primary")
	if primaryErr == nil {
		return Result{Text: text, Latency: time.Since(start), Attempts: attempts}, nil
	}
	if ctx.Err() != nil {
		return Result{}, ctx.Err()
	}

	if creds.Fallback != "" && fallbackEligible(primaryErr) {
		c.logger.Warn("primary credential exhausted, switching to fallback",
			"attempts", attempts, "error", primaryErr.Error())
		text, fallbackErr := c.runAttempts(ctx, body, creds.Fallback, policy, &attempts, "fallback")
		if fallbackErr == nil {
			return Result{Text: text, Latency: time.Since(start), Attempts: attempts, UsedFallback: true}, nil
		}
		if ctx.Err() != nil {
			return Result{}, ctx.Err()
		}
		primaryErr = fallbackErr
	}

	if isTimeout(primaryErr) {
		return Result{}, fmt.Errorf("%w after %d attempts: %w", ErrTimeout, attempts, primaryErr)
	}
	return Result{}, fmt.Errorf("%w after %d attempts: %w", ErrFailed, attempts, primaryErr)
}

// runAttempts drives the per-credential retry loop. Failure classes that a
// retry cannot heal abort the loop early.
func (c *Client) runAttempts(ctx context.Context, body []byte, key string, policy RetryPolicy, attempts *int, credential string) (string, error) {
	var last error
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		if attempt > 1 && policy.Backoff > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(policy.Backoff):
			}
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}

		*attempts++
		text, err := c.attempt(ctx, body, key, policy.AttemptTimeout)
		if err == nil {
			c.logger.Info("transcription attempt succeeded",
				"credential", credential, "attempt", attempt)
			return text, nil
		}
		c.logger.Warn("transcription attempt failed",
			"credential", credential, "attempt", attempt, "error", err.Error())
		last = err
		if !retriable(err) {
			break
		}
	}
	return "", last
}

// attempt issues one HTTP request under its own deadline and classifies the
// outcome.
func (c *Client) attempt(ctx context.Context, body []byte, key string, timeout time.Duration) (string, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", &attemptError{class: classTransport, err: err}
	}
	req.Header.Set("Authorization", "Bearer "+key)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if attemptCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
			return "", &attemptError{class: classTimeout, err: err}
		}
		return "", &attemptError{class: classTransport, err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		statusErr := fmt.Errorf("status %d: %s", resp.StatusCode, bytes.TrimSpace(detail))
		switch {
		case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
			return "", &attemptError{class: classAuth, err: statusErr}
		case resp.StatusCode == http.StatusTooManyRequests:
			return "", &attemptError{class: classQuota, err: statusErr}
		case resp.StatusCode >= 500:
			return "", &attemptError{class: classServer, err: statusErr}
		default:
			return "", &attemptError{class: classContent, err: statusErr}
		}
	}

	text, err := decodeTranscript(resp.Body)
	if err != nil {
		return "", &attemptError{class: classParse, err: err}
	}
	return transcript.TrimTrailingPunctuation(text), nil
}

// encodeRequest builds the multimodal conversation envelope with the WAV
// payload inlined as a base64 data URI.
func (c *Client) encodeRequest(wav []byte) ([]byte, error) {
	emptyPrompt := ""
	payload := transcribeRequest{
		Model: c.model,
		Input: transcribeInput{
			Messages: []transcribeMessage{
				{
					Role:    "system",
					Content: []transcribeContent{{Text: &emptyPrompt}},
				},
				{
					Role: "user",
					Content: []transcribeContent{{
						Audio: "data:audio/wav;base64," + base64.StdEncoding.EncodeToString(wav),
					}},
				},
			},
		},
		Parameters: transcribeParameters{
			ResultFormat: "message",
			EnableITN:    true,
		},
	}
	return json.Marshal(payload)
}

// decodeTranscript digs the transcript text out of the nested response
// envelope, reporting which level was missing instead of panicking on an
// unexpected shape.
func decodeTranscript(r io.Reader) (string, error) {
	var envelope transcribeResponse
	if err := json.NewDecoder(r).Decode(&envelope); err != nil {
		return "", fmt.Errorf("decode transcription response: %w", err)
	}
	if len(envelope.Output.Choices) == 0 {
		return "", &ParseError{Field: "output.choices"}
	}
	content := envelope.Output.Choices[0].Message.Content
	if len(content) == 0 {
		return "", &ParseError{Field: "output.choices[0].message.content"}
	}
	if content[0].Text == nil {
		return "", &ParseError{Field: "output.choices[0].message.content[0].text"}
	}
	return *content[0].Text, nil
}

type transcribeRequest struct {
	Model      string               `json:"model"`
	Input      transcribeInput      `json:"input"`
	Parameters transcribeParameters `json:"parameters"`
}

type transcribeInput struct {
	Messages []transcribeMessage `json:"messages"`
}

type transcribeMessage struct {
	Role    string              `json:"role"`
	Content []transcribeContent `json:"content"`
}

type transcribeContent struct {
	Text  *string `json:"text,omitempty"`
	Audio string  `json:"audio,omitempty"`
}

type transcribeParameters struct {
	ResultFormat string `json:"result_format"`
	EnableITN    bool   `json:"enable_itn"`
}

type transcribeResponse struct {
	Output struct {
		Choices []struct {
			Message struct {
				Content []struct {
					Text *string `json:"text"`
				} `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	} `json:"output"`
}
