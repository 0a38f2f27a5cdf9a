// Package inmemory provides a map-backed storage.Driver for tests and
// single-process runs without a database.
package inmemory

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/jlsoftware/jlsite/pkg/llm"
	"github.com/jlsoftware/jlsite/pkg/quotation"
	"github.com/jlsoftware/jlsite/pkg/storage"
)

// Driver implements storage.Driver using in-memory maps.
type Driver struct {
	// mu guards quotations and turns
	mu sync.RWMutex

	// quotations maps record id to record
	quotations map[string]*quotation.Record

	// turns is append-only in arrival order
	turns []*llm.ChatTurn
}

// NewDriver creates a new in-memory driver.
func NewDriver() *Driver {
	return &Driver{
		quotations: make(map[string]*quotation.Record),
	}
}

// PutQuotation stores a copy of r.
func (d *Driver) PutQuotation(_ context.Context, r *quotation.Record) error {
	if r == nil {
		return errors.New("cannot store nil quotation")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.quotations[r.ID]; ok {
		return errors.New("quotation already exists: " + r.ID)
	}

	cp := *r
	d.quotations[r.ID] = &cp
	return nil
}

// GetQuotation returns a copy of the record with id.
func (d *Driver) GetQuotation(_ context.Context, id string) (*quotation.Record, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	r, ok := d.quotations[id]
	if !ok {
		return nil, storage.NotFoundError{Kind: "quotation", ID: id}
	}

	cp := *r
	return &cp, nil
}

// ListQuotations returns matching records newest first.
func (d *Driver) ListQuotations(_ context.Context, f quotation.Filter) ([]*quotation.Record, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]*quotation.Record, 0, len(d.quotations))
	for _, r := range d.quotations {
		if f.Matches(r) {
			cp := *r
			out = append(out, &cp)
		}
	}

	slices.SortFunc(out, func(a, b *quotation.Record) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		if a.ID > b.ID {
			return -1
		}
		if a.ID < b.ID {
			return 1
		}
		return 0
	})

	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

// UpdateQuotationStatus sets the status of the record with id.
func (d *Driver) UpdateQuotationStatus(_ context.Context, id string, status quotation.Status, at time.Time) (*quotation.Record, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	r, ok := d.quotations[id]
	if !ok {
		return nil, storage.NotFoundError{Kind: "quotation", ID: id}
	}

	r.Status = status
	r.UpdatedAt = at

	cp := *r
	return &cp, nil
}

// DeleteQuotation removes the record with id.
func (d *Driver) DeleteQuotation(_ context.Context, id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.quotations[id]; !ok {
		return storage.NotFoundError{Kind: "quotation", ID: id}
	}

	delete(d.quotations, id)
	return nil
}

// PutChatTurn appends a copy of t.
func (d *Driver) PutChatTurn(_ context.Context, t *llm.ChatTurn) error {
	if t == nil {
		return errors.New("cannot store nil chat turn")
	}

	cp := *t
	cp.Messages = slices.Clone(t.Messages)

	d.mu.Lock()
	defer d.mu.Unlock()
	d.turns = append(d.turns, &cp)
	return nil
}

// ListChatTurns returns up to limit turns, newest first.
func (d *Driver) ListChatTurns(_ context.Context, limit int) ([]*llm.ChatTurn, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	n := len(d.turns)
	if limit > 0 && limit < n {
		n = limit
	}

	out := make([]*llm.ChatTurn, 0, n)
	for i := len(d.turns) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, d.turns[i])
	}
	return out, nil
}

// Close is a no-op.
func (d *Driver) Close() error {
	return nil
}
