package llm

import "sync"

// Transcript is the ordered conversation owned by a single chat session.
// It is append-only except for UpdateContent, which rewrites the content of
// an existing message in place (used for the in-flight assistant reply).
type Transcript struct {
	mu       sync.RWMutex
	messages []Message
}

// NewTranscript returns a transcript seeded with the given messages.
func NewTranscript(seed ...Message) *Transcript {
	t := &Transcript{}
	t.messages = append(t.messages, seed...)
	return t
}

// Append adds a message and returns its index.
func (t *Transcript) Append(m Message) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.messages = append(t.messages, m)
	return len(t.messages) - 1
}

// UpdateContent replaces the content of the message at index i and returns
// the updated message. ok is false if i is out of range.
func (t *Transcript) UpdateContent(i int, content string) (Message, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if i < 0 || i >= len(t.messages) {
		return Message{}, false
	}
	t.messages[i].Content = content
	return t.messages[i], true
}

// At returns the message at index i.
func (t *Transcript) At(i int) (Message, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if i < 0 || i >= len(t.messages) {
		return Message{}, false
	}
	return t.messages[i], true
}

// Last returns the trailing message, if any.
func (t *Transcript) Last() (Message, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if len(t.messages) == 0 {
		return Message{}, false
	}
	return t.messages[len(t.messages)-1], true
}

// Len returns the number of messages.
func (t *Transcript) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.messages)
}

// Messages returns a copy of all messages.
func (t *Transcript) Messages() []Message {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]Message, len(t.messages))
	copy(out, t.messages)
	return out
}

// Upstream returns the messages to send to the chat endpoint. A leading
// assistant greeting is local to the widget and is not sent.
func (t *Transcript) Upstream() []Message {
	msgs := t.Messages()
	if len(msgs) > 0 && msgs[0].Role == RoleAssistant {
		return msgs[1:]
	}
	return msgs
}

// Truncate drops every message from index n onward.
func (t *Transcript) Truncate(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if n < 0 {
		n = 0
	}
	if n < len(t.messages) {
		t.messages = t.messages[:n]
	}
}
