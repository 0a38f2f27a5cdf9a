// Package header decides which headers cross the chat relay:
//
//	Browser <--> Relay <--> Upstream completion provider
//
// The browser authenticates to the relay with a publishable key while the
// relay authenticates upstream with its own secret key, so request headers
// are allowlisted rather than copied.
package header

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// Handler manages headers between relay connections.
type Handler struct {
	apiKey string
}

// NewHandler creates a Handler that authenticates upstream with apiKey.
func NewHandler(apiKey string) *Handler {
	return &Handler{apiKey: apiKey}
}

// forwardRequest is the set of client request headers passed upstream.
var forwardRequest = []string{
	"Accept-Language",
	"User-Agent",
	"X-Request-Id",
}

// skipResponse is the set of upstream response headers that are not copied
// back to the client.
var skipResponse = map[string]struct{}{
	// Hop-by-hop headers: only meaningful for a single transport-level connection.
	"Connection":        {},
	"Keep-Alive":        {},
	"Transfer-Encoding": {},

	// Go's http.Transport decompresses transparently, so the upstream
	// encoding and length no longer describe the body.
	"Content-Encoding": {},
	"Content-Length":   {},

	// Provider cookies and rate limit details stay between relay and
	// provider.
	"Set-Cookie": {},

	// CORS is owned by the relay's own middleware.
	"Access-Control-Allow-Origin":  {},
	"Access-Control-Allow-Headers": {},
	"Access-Control-Allow-Methods": {},
}

// SetUpstreamRequestHeaders sets the outgoing request's headers: JSON body,
// SSE response, the relay's bearer key and the allowlisted client headers.
func (h *Handler) SetUpstreamRequestHeaders(c *fiber.Ctx, req *http.Request) {
	for _, k := range forwardRequest {
		if v := c.Get(k); v != "" {
			req.Header.Set(k, v)
		}
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	if h.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+h.apiKey)
	}
}

// SetClientResponseHeaders copies upstream response headers to the Fiber
// context, dropping the ones the relay must not forward.
func (h *Handler) SetClientResponseHeaders(c *fiber.Ctx, resp *http.Response) {
	for k, v := range resp.Header {
		if _, skip := skipResponse[http.CanonicalHeaderKey(k)]; skip {
			continue
		}
		if strings.HasPrefix(http.CanonicalHeaderKey(k), "X-Ratelimit-") {
			continue
		}
		c.Set(k, strings.Join(v, ", "))
	}
}
