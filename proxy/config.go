package proxy

import (
	"net/http"

	"github.com/jlsoftware/jlsite/pkg/eventstream"
)

// Config is the chat relay configuration.
type Config struct {
	// UpstreamURL is the base URL of an OpenAI-compatible provider
	// (e.g., "http://localhost:11434"). CompletionsPath is appended.
	UpstreamURL string

	// APIKey is sent upstream as a bearer token. Empty sends none.
	APIKey string

	// Model is requested on every upstream call.
	Model string

	// Prompt supplies the system prompt. Nil uses DefaultSystemPrompt.
	Prompt PromptSource

	// Publisher receives a chat turn event for every persisted turn.
	// Nil disables publishing.
	Publisher eventstream.Publisher

	// HTTPClient overrides the client used for upstream calls.
	HTTPClient *http.Client
}
