package llm

// ChatRequest is the body POSTed to the chat endpoint by the widget.
type ChatRequest struct {
	Messages []Message `json:"messages"`
}

// UpstreamRequest is the OpenAI-compatible completion request the relay sends
// to the upstream model gateway.
type UpstreamRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
	Stream   bool      `json:"stream"`
}
