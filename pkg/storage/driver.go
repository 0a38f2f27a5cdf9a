// Package storage defines the persistence contract for quotation requests and
// relayed chat turns.
package storage

import (
	"context"
	"time"

	"github.com/jlsoftware/jlsite/pkg/llm"
	"github.com/jlsoftware/jlsite/pkg/quotation"
)

// Driver is implemented by every storage backend.
type Driver interface {
	QuotationStore
	ChatTurnStore

	// Close releases any resources held by the store.
	Close() error
}

// QuotationStore persists quotation requests. It satisfies quotation.Store.
type QuotationStore interface {
	// PutQuotation inserts a new record.
	PutQuotation(ctx context.Context, r *quotation.Record) error

	// GetQuotation returns a record or a NotFoundError.
	GetQuotation(ctx context.Context, id string) (*quotation.Record, error)

	// ListQuotations returns records newest first.
	ListQuotations(ctx context.Context, f quotation.Filter) ([]*quotation.Record, error)

	// UpdateQuotationStatus sets the status and update time of a record and
	// returns the updated record.
	UpdateQuotationStatus(ctx context.Context, id string, status quotation.Status, at time.Time) (*quotation.Record, error)

	// DeleteQuotation removes a record.
	DeleteQuotation(ctx context.Context, id string) error
}

// ChatTurnStore persists completed chat turns.
type ChatTurnStore interface {
	PutChatTurn(ctx context.Context, t *llm.ChatTurn) error

	// ListChatTurns returns up to limit turns, newest first. limit <= 0
	// returns all of them.
	ListChatTurns(ctx context.Context, limit int) ([]*llm.ChatTurn, error)
}
