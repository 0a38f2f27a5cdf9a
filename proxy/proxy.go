// Package proxy provides the chat relay behind the site's AI chat endpoint.
// It prepends the assistant's system prompt, forwards the conversation to an
// OpenAI-compatible provider and streams the reply back verbatim while
// recording the completed turn.
package proxy

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

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/jlsoftware/jlsite/pkg/llm"
	"github.com/jlsoftware/jlsite/pkg/sse"
	"github.com/jlsoftware/jlsite/pkg/storage"
	"github.com/jlsoftware/jlsite/proxy/header"
	"github.com/jlsoftware/jlsite/proxy/worker"
)

// CompletionsPath is appended to Config.UpstreamURL.
const CompletionsPath = "/v1/chat/completions"

// Error messages returned to the widget.
const (
	msgInvalidBody  = "Invalid request body"
	msgRateLimited  = "Rate limit exceeded, please try again later."
	msgCredits      = "AI credits exhausted, please contact support."
	msgGatewayError = "AI gateway error"
	msgUpstreamDown = "upstream request failed"
)

// Relay forwards chat requests upstream and enqueues completed turns for
// async storage via its worker pool.
type Relay struct {
	config        Config
	workerPool    *worker.Pool
	logger        *slog.Logger
	httpClient    *http.Client
	headerHandler *header.Handler
}

// New creates a Relay. Completed turns are persisted to store.
func New(config Config, store storage.ChatTurnStore, logger *slog.Logger) (*Relay, error) {
	if config.UpstreamURL == "" {
		return nil, fmt.Errorf("upstream URL is required")
	}
	if config.Model == "" {
		return nil, fmt.Errorf("model is required")
	}
	if config.Prompt == nil {
		config.Prompt = StaticPrompt(DefaultSystemPrompt)
	}

	wp, err := worker.NewPool(&worker.Config{
		Driver:    store,
		Publisher: config.Publisher,
		Logger:    logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create worker pool: %w", err)
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			// Long answers can stream for a while.
			Timeout: 5 * time.Minute,
		}
	}

	return &Relay{
		config:        config,
		workerPool:    wp,
		logger:        logger,
		httpClient:    httpClient,
		headerHandler: header.NewHandler(config.APIKey),
	}, nil
}

// Handler returns the fiber handler for the chat endpoint.
func (r *Relay) Handler() fiber.Handler {
	return r.handleChat
}

// Close waits for the worker pool to drain. Call it after the HTTP server has
// stopped accepting requests.
func (r *Relay) Close() {
	r.workerPool.Close()
}

func (r *Relay) handleChat(c *fiber.Ctx) error {
	startTime := time.Now()

	var req llm.ChatRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		r.logger.Debug("rejecting chat request", "error", err)
		return c.Status(fiber.StatusBadRequest).JSON(llm.ErrorResponse{Error: msgInvalidBody})
	}
	if err := validateMessages(req.Messages); err != nil {
		r.logger.Debug("rejecting chat request", "error", err)
		return c.Status(fiber.StatusBadRequest).JSON(llm.ErrorResponse{Error: msgInvalidBody})
	}

	upstream := llm.UpstreamRequest{
		Model:    r.config.Model,
		Messages: withSystemPrompt(r.config.Prompt.SystemPrompt(), req.Messages),
		Stream:   true,
	}
	body, err := json.Marshal(upstream)
	if err != nil {
		r.logger.Error("failed to encode upstream request", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(llm.ErrorResponse{Error: "internal error"})
	}

	upstreamURL := strings.TrimRight(r.config.UpstreamURL, "/") + CompletionsPath

	// Use context.Background() instead of c.Context() because fasthttp recycles
	// its RequestCtx after the handler returns, but the stream is copied in a
	// separate goroutine that needs the upstream connection to remain open.
	httpReq, err := http.NewRequestWithContext(context.Background(), http.MethodPost, upstreamURL, bytes.NewReader(body))
	if err != nil {
		r.logger.Error("failed to create upstream request", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(llm.ErrorResponse{Error: "internal error"})
	}

	r.headerHandler.SetUpstreamRequestHeaders(c, httpReq)

	r.logger.Debug("forwarding chat request to upstream",
		"url", upstreamURL,
		"model", r.config.Model,
		"messages", len(req.Messages),
	)

	httpResp, err := r.httpClient.Do(httpReq)
	if err != nil {
		r.logger.Error("upstream request failed", "error", err)
		return c.Status(fiber.StatusBadGateway).JSON(llm.ErrorResponse{Error: msgUpstreamDown})
	}
	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		respBody, _ := io.ReadAll(io.LimitReader(httpResp.Body, 4096))
		httpResp.Body.Close()
		r.logger.Error("upstream returned error",
			"status", httpResp.StatusCode,
			"body", string(respBody),
		)
		status, msg := mapUpstreamStatus(httpResp.StatusCode)
		return c.Status(status).JSON(llm.ErrorResponse{Error: msg})
	}

	r.headerHandler.SetClientResponseHeaders(c, httpResp)
	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")

	// Use io.Pipe + SetBodyStream instead of SetBodyStreamWriter.
	// SetBodyStreamWriter buffers chunks in an internal pipe, so Flush() in
	// the callback does not reach the socket. pw.Write blocks until fasthttp's
	// chunked writer consumes the data, which flushes after every chunk.
	pr, pw := io.Pipe()
	go r.relayStream(httpResp, pw, req.Messages, startTime)

	// Unknown size (-1) triggers chunked transfer encoding in fasthttp.
	c.Context().Response.SetBodyStream(pr, -1)

	return nil
}

// relayStream copies the upstream SSE body to pw verbatim while assembling
// the reply text. The turn is enqueued only if the stream completes, and
// before pw is closed so a finished response implies a queued turn.
func (r *Relay) relayStream(httpResp *http.Response, pw *io.PipeWriter, msgs []llm.Message, startTime time.Time) {
	defer httpResp.Body.Close()
	defer pw.Close()

	var reply strings.Builder
	var usage *llm.Usage

	tr := sse.NewTeeReader(httpResp.Body, pw)

	for {
		ev, err := tr.Next()
		if err != nil {
			r.logger.Error("error reading upstream stream", "error", err)
			pw.CloseWithError(err)
			return
		}
		if ev == nil {
			break
		}

		if ev.IsDone() {
			// Nothing after the sentinel is parsed but the client still
			// gets the rest of the bytes.
			if err := tr.Drain(); err != nil {
				r.logger.Warn("error draining upstream stream", "error", err)
				pw.CloseWithError(err)
				return
			}
			break
		}

		var chunk llm.StreamChunk
		if err := json.Unmarshal([]byte(ev.Data), &chunk); err != nil {
			r.logger.Debug("skipping unparseable chunk", "error", err)
			continue
		}
		if text, ok := chunk.DeltaText(); ok {
			reply.WriteString(text)
		}
		if chunk.Usage != nil {
			usage = chunk.Usage
		}
	}

	if reply.Len() == 0 {
		r.logger.Warn("upstream stream ended without content")
		return
	}

	turn := &llm.ChatTurn{
		ID:          uuid.NewString(),
		Model:       r.config.Model,
		Messages:    msgs,
		Reply:       reply.String(),
		Usage:       usage,
		StartedAt:   startTime.UTC(),
		CompletedAt: time.Now().UTC(),
	}
	r.workerPool.Enqueue(worker.Job{Turn: turn})
}

// mapUpstreamStatus translates an upstream failure into the status and
// message shown to the widget.
func mapUpstreamStatus(status int) (int, string) {
	switch status {
	case http.StatusTooManyRequests:
		return fiber.StatusTooManyRequests, msgRateLimited
	case http.StatusPaymentRequired:
		return fiber.StatusPaymentRequired, msgCredits
	default:
		return fiber.StatusInternalServerError, msgGatewayError
	}
}

// validateMessages accepts a non-empty conversation authored by the visitor
// and the assistant. System messages are owned by the relay.
func validateMessages(msgs []llm.Message) error {
	if len(msgs) == 0 {
		return fmt.Errorf("no messages")
	}
	for i, m := range msgs {
		if m.Role != llm.RoleUser && m.Role != llm.RoleAssistant {
			return fmt.Errorf("message %d: unsupported role %q", i, m.Role)
		}
	}
	return nil
}

func withSystemPrompt(prompt string, msgs []llm.Message) []llm.Message {
	out := make([]llm.Message, 0, len(msgs)+1)
	out = append(out, llm.Message{Role: llm.RoleSystem, Content: prompt})
	return append(out, msgs...)
}
