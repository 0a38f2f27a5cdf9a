package llm

import "time"

// ChatTurn is a completed relay exchange: the messages sent upstream and the
// assistant reply assembled from the stream.
type ChatTurn struct {
	ID          string    `json:"id"`
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Reply       string    `json:"reply"`
	Usage       *Usage    `json:"usage,omitempty"`
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`
}

// Duration is the wall time between the request and the end of the stream.
func (t *ChatTurn) Duration() time.Duration {
	return t.CompletedAt.Sub(t.StartedAt)
}
