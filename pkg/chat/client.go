// Package chat implements the chat widget's client side: the HTTP call to the
// chat endpoint and a Session that owns the conversation transcript.
package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/jlsoftware/jlsite/pkg/llm"
)

const (
	defaultTimeout = 5 * time.Minute

	// maxErrorBody bounds how much of a failed response is read.
	maxErrorBody = 64 * 1024
)

// Streamer opens a streamed chat completion for a list of messages.
type Streamer interface {
	Stream(ctx context.Context, messages []llm.Message) (io.ReadCloser, error)
}

// ClientConfig configures a Client.
type ClientConfig struct {
	// Endpoint is the full chat URL, e.g.
	// "http://localhost:8081/functions/v1/ai-chat".
	Endpoint string

	// APIKey is sent as a bearer token.
	APIKey string

	// Timeout bounds a whole request including the streamed body.
	// Defaults to 5 minutes.
	Timeout time.Duration

	// HTTPClient overrides the client used for requests. Timeout is ignored
	// when set.
	HTTPClient *http.Client
}

// Client POSTs conversations to the chat endpoint.
type Client struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a Client.
func NewClient(c ClientConfig, logger *slog.Logger) (*Client, error) {
	if c.Endpoint == "" {
		return nil, errors.New("chat endpoint is required")
	}

	httpClient := c.HTTPClient
	if httpClient == nil {
		timeout := c.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	return &Client{
		endpoint:   c.Endpoint,
		apiKey:     c.APIKey,
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

// Stream sends messages and returns the response body for streaming. The
// caller must close it. A non-2xx status is returned as a *StatusError and a
// bodiless success as ErrNoResponseBody.
func (c *Client) Stream(ctx context.Context, messages []llm.Message) (io.ReadCloser, error) {
	body, err := json.Marshal(llm.ChatRequest{Messages: messages})
	if err != nil {
		return nil, fmt.Errorf("marshaling chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	c.logger.Debug("sending chat request",
		"endpoint", c.endpoint,
		"message_count", len(messages),
	)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sending chat request: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		return nil, statusError(resp)
	}

	if resp.Body == nil || resp.Body == http.NoBody {
		return nil, ErrNoResponseBody
	}

	return resp.Body, nil
}

// statusError builds a StatusError from the server's {"error": "..."} body,
// falling back to DefaultFailureMessage.
func statusError(resp *http.Response) *StatusError {
	e := &StatusError{
		StatusCode: resp.StatusCode,
		Message:    DefaultFailureMessage,
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return e
	}

	var errResp llm.ErrorResponse
	if err := json.Unmarshal(raw, &errResp); err == nil && errResp.Error != "" {
		e.Message = errResp.Error
	}

	return e
}
