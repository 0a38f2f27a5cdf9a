package nop

import (
	"context"

	"github.com/jlsoftware/jlsite/pkg/eventstream"
)

// Publisher is a no-op eventstream publisher used for tests and disabled mode.
type Publisher struct{}

// NewPublisher creates a new no-op eventstream publisher.
func NewPublisher() *Publisher {
	return &Publisher{}
}

// PublishQuotation validates input and otherwise does nothing.
func (p *Publisher) PublishQuotation(_ context.Context, event *eventstream.QuotationSubmittedEvent) error {
	if event == nil {
		return eventstream.ErrNilEvent
	}
	return nil
}

// PublishChatTurn validates input and otherwise does nothing.
func (p *Publisher) PublishChatTurn(_ context.Context, event *eventstream.ChatTurnRecordedEvent) error {
	if event == nil {
		return eventstream.ErrNilEvent
	}
	return nil
}

// Close is a no-op.
func (p *Publisher) Close() error {
	return nil
}
