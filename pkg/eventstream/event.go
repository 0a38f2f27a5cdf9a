package eventstream

import (
	"time"

	"github.com/google/uuid"

	"github.com/jlsoftware/jlsite/pkg/llm"
	"github.com/jlsoftware/jlsite/pkg/quotation"
)

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeQuotationSubmitted is emitted after a quotation request is
	// stored.
	EventTypeQuotationSubmitted = "jlsite.quotation.submitted"

	// EventTypeChatTurnRecorded is emitted after a relayed chat turn is
	// persisted.
	EventTypeChatTurnRecorded = "jlsite.chat.turn.recorded"
)

// QuotationSubmittedEvent is the transport-neutral payload for a new
// quotation request.
type QuotationSubmittedEvent struct {
	SchemaVersion int              `json:"schema_version"`
	EventType     string           `json:"event_type"`
	EventID       string           `json:"event_id"`
	EmittedAt     time.Time        `json:"emitted_at"`
	Quotation     quotation.Record `json:"quotation"`
}

// NewQuotationSubmittedEvent wraps r in a fresh event.
func NewQuotationSubmittedEvent(r *quotation.Record) *QuotationSubmittedEvent {
	return &QuotationSubmittedEvent{
		SchemaVersion: SchemaVersionV1,
		EventType:     EventTypeQuotationSubmitted,
		EventID:       uuid.NewString(),
		EmittedAt:     time.Now().UTC(),
		Quotation:     *r,
	}
}

// ChatTurnRecordedEvent is the payload for a persisted chat turn.
type ChatTurnRecordedEvent struct {
	SchemaVersion int          `json:"schema_version"`
	EventType     string       `json:"event_type"`
	EventID       string       `json:"event_id"`
	EmittedAt     time.Time    `json:"emitted_at"`
	DurationMs    int64        `json:"duration_ms"`
	Turn          llm.ChatTurn `json:"turn"`
}

// NewChatTurnRecordedEvent wraps t in a fresh event.
func NewChatTurnRecordedEvent(t *llm.ChatTurn) *ChatTurnRecordedEvent {
	return &ChatTurnRecordedEvent{
		SchemaVersion: SchemaVersionV1,
		EventType:     EventTypeChatTurnRecorded,
		EventID:       uuid.NewString(),
		EmittedAt:     time.Now().UTC(),
		DurationMs:    t.Duration().Milliseconds(),
		Turn:          *t,
	}
}
