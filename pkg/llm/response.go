package llm

// ErrorResponse is the JSON body returned by every endpoint on failure.
type ErrorResponse struct {
	Error string `json:"error"`
}

// StreamChunk is the decoded payload of a single "data: " frame in an
// OpenAI-style completion stream:
//
//	{"choices":[{"delta":{"content":"Hel"}}]}
type StreamChunk struct {
	ID      string        `json:"id,omitempty"`
	Choices []ChunkChoice `json:"choices"`
	Usage   *Usage        `json:"usage,omitempty"`
}

// ChunkChoice is one entry of StreamChunk.Choices.
type ChunkChoice struct {
	Index        int        `json:"index"`
	Delta        ChunkDelta `json:"delta"`
	FinishReason *string    `json:"finish_reason,omitempty"`
}

// ChunkDelta carries the incremental text of a choice. Content is a pointer
// because control frames (role announcements, finish frames) omit it.
type ChunkDelta struct {
	Role    Role    `json:"role,omitempty"`
	Content *string `json:"content,omitempty"`
}

// Usage contains token usage reported on the final chunk by some gateways.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// DeltaText returns the text fragment of the first choice. ok is false when
// the chunk has no choices or the first choice carries no content.
func (c *StreamChunk) DeltaText() (text string, ok bool) {
	if len(c.Choices) == 0 || c.Choices[0].Delta.Content == nil {
		return "", false
	}

	return *c.Choices[0].Delta.Content, true
}
