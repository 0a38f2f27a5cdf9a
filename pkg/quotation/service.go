package quotation

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Store persists quotation records. storage.Driver satisfies it.
type Store interface {
	PutQuotation(ctx context.Context, r *Record) error
	GetQuotation(ctx context.Context, id string) (*Record, error)
	ListQuotations(ctx context.Context, f Filter) ([]*Record, error)
	UpdateQuotationStatus(ctx context.Context, id string, status Status, at time.Time) (*Record, error)
	DeleteQuotation(ctx context.Context, id string) error
}

// Service implements the quotation workflow on top of a Store.
type Service struct {
	store  Store
	logger *slog.Logger
	now    func() time.Time
	newID  func() string
}

// NewService creates a Service.
func NewService(store Store, logger *slog.Logger) *Service {
	return &Service{
		store:  store,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
		newID:  uuid.NewString,
	}
}

// Submit validates and stores a new request with status pending.
func (s *Service) Submit(ctx context.Context, req *Request) (*Record, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	now := s.now()
	r := &Record{
		ID:          s.newID(),
		FullName:    strings.TrimSpace(req.FullName),
		Email:       strings.TrimSpace(req.Email),
		Phone:       strings.TrimSpace(req.Phone),
		CompanyName: strings.TrimSpace(req.CompanyName),
		ServiceID:   req.ServiceID,
		ServiceName: req.ServiceName,
		Notes:       strings.TrimSpace(req.Notes),
		Status:      StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.store.PutQuotation(ctx, r); err != nil {
		return nil, fmt.Errorf("saving quotation request: %w", err)
	}

	s.logger.Info("new quotation request received",
		"id", r.ID,
		"client", r.FullName,
		"email", r.Email,
		"phone", r.Phone,
		"service", r.ServiceName,
	)
	return r, nil
}

// Get returns one record.
func (s *Service) Get(ctx context.Context, id string) (*Record, error) {
	return s.store.GetQuotation(ctx, id)
}

// List returns records newest first.
func (s *Service) List(ctx context.Context, f Filter) ([]*Record, error) {
	return s.store.ListQuotations(ctx, f)
}

// UpdateStatus moves a record to a new status.
func (s *Service) UpdateStatus(ctx context.Context, id string, status Status) (*Record, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("unknown quotation status %q", status)
	}

	r, err := s.store.UpdateQuotationStatus(ctx, id, status, s.now())
	if err != nil {
		return nil, err
	}

	s.logger.Debug("quotation status updated", "id", id, "status", status)
	return r, nil
}

// Delete removes a record.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.store.DeleteQuotation(ctx, id)
}

// Summary counts all records per status.
func (s *Service) Summary(ctx context.Context) (Summary, error) {
	records, err := s.store.ListQuotations(ctx, Filter{})
	if err != nil {
		return nil, err
	}
	return Summarize(records), nil
}
