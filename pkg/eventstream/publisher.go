package eventstream

import "context"

// Publisher publishes site events to an event stream backend.
type Publisher interface {
	PublishQuotation(ctx context.Context, event *QuotationSubmittedEvent) error
	PublishChatTurn(ctx context.Context, event *ChatTurnRecordedEvent) error
	Close() error
}
