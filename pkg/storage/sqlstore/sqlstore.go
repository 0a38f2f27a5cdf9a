// Package sqlstore implements storage.Driver on top of ent's SQL dialect
// driver and query builder. The sqlite and postgres packages open the
// database and hand it here.
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/jlsoftware/jlsite/pkg/llm"
	"github.com/jlsoftware/jlsite/pkg/quotation"
	"github.com/jlsoftware/jlsite/pkg/storage"
)

// Store implements storage.Driver for any dialect ent supports.
type Store struct {
	drv *entsql.Driver
}

// New wraps an ent SQL driver. Call Migrate before use.
func New(drv *entsql.Driver) *Store {
	return &Store{drv: drv}
}

// Migrate creates missing tables and indexes.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range schema(s.drv.Dialect()) {
		if err := s.drv.Exec(ctx, stmt, []any{}, nil); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}

func (s *Store) builder() *entsql.DialectBuilder {
	return entsql.Dialect(s.drv.Dialect())
}

// PutQuotation inserts r.
func (s *Store) PutQuotation(ctx context.Context, r *quotation.Record) error {
	if r == nil {
		return fmt.Errorf("cannot store nil quotation")
	}

	query, args := s.builder().Insert(quotationsTable).
		Columns(quotationColumns...).
		Values(
			r.ID,
			r.FullName,
			r.Email,
			r.Phone,
			nullString(r.CompanyName),
			r.ServiceID,
			r.ServiceName,
			nullString(r.Notes),
			string(r.Status),
			r.CreatedAt.UTC(),
			r.UpdatedAt.UTC(),
		).
		Query()

	if err := s.drv.Exec(ctx, query, args, nil); err != nil {
		return fmt.Errorf("inserting quotation: %w", err)
	}
	return nil
}

// GetQuotation returns the record with id.
func (s *Store) GetQuotation(ctx context.Context, id string) (*quotation.Record, error) {
	query, args := s.builder().Select(quotationColumns...).
		From(entsql.Table(quotationsTable)).
		Where(entsql.EQ("id", id)).
		Limit(1).
		Query()

	records, err := s.queryQuotations(ctx, query, args)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, storage.NotFoundError{Kind: "quotation", ID: id}
	}
	return records[0], nil
}

// ListQuotations returns matching records newest first.
func (s *Store) ListQuotations(ctx context.Context, f quotation.Filter) ([]*quotation.Record, error) {
	sel := s.builder().Select(quotationColumns...).
		From(entsql.Table(quotationsTable)).
		OrderBy(entsql.Desc("created_at"), entsql.Desc("id"))

	if f.Status != "" {
		sel = sel.Where(entsql.EQ("status", string(f.Status)))
	}
	if f.Limit > 0 {
		sel = sel.Limit(f.Limit)
	}

	query, args := sel.Query()
	return s.queryQuotations(ctx, query, args)
}

// UpdateQuotationStatus sets status and updated_at on the record with id.
func (s *Store) UpdateQuotationStatus(ctx context.Context, id string, status quotation.Status, at time.Time) (*quotation.Record, error) {
	query, args := s.builder().Update(quotationsTable).
		Set("status", string(status)).
		Set("updated_at", at.UTC()).
		Where(entsql.EQ("id", id)).
		Query()

	if err := s.execOne(ctx, query, args, id); err != nil {
		return nil, err
	}
	return s.GetQuotation(ctx, id)
}

// DeleteQuotation removes the record with id.
func (s *Store) DeleteQuotation(ctx context.Context, id string) error {
	query, args := s.builder().Delete(quotationsTable).
		Where(entsql.EQ("id", id)).
		Query()

	return s.execOne(ctx, query, args, id)
}

// PutChatTurn inserts t.
func (s *Store) PutChatTurn(ctx context.Context, t *llm.ChatTurn) error {
	if t == nil {
		return fmt.Errorf("cannot store nil chat turn")
	}

	messages, err := json.Marshal(t.Messages)
	if err != nil {
		return fmt.Errorf("marshaling chat turn messages: %w", err)
	}

	var usage sql.NullString
	if t.Usage != nil {
		raw, err := json.Marshal(t.Usage)
		if err != nil {
			return fmt.Errorf("marshaling chat turn usage: %w", err)
		}
		usage = sql.NullString{String: string(raw), Valid: true}
	}

	query, args := s.builder().Insert(chatTurnsTable).
		Columns(chatTurnColumns...).
		Values(
			t.ID,
			t.Model,
			string(messages),
			t.Reply,
			usage,
			t.StartedAt.UTC(),
			t.CompletedAt.UTC(),
		).
		Query()

	if err := s.drv.Exec(ctx, query, args, nil); err != nil {
		return fmt.Errorf("inserting chat turn: %w", err)
	}
	return nil
}

// ListChatTurns returns up to limit turns, newest first.
func (s *Store) ListChatTurns(ctx context.Context, limit int) ([]*llm.ChatTurn, error) {
	sel := s.builder().Select(chatTurnColumns...).
		From(entsql.Table(chatTurnsTable)).
		OrderBy(entsql.Desc("completed_at"), entsql.Desc("id"))
	if limit > 0 {
		sel = sel.Limit(limit)
	}
	query, args := sel.Query()

	var rows entsql.Rows
	if err := s.drv.Query(ctx, query, args, &rows); err != nil {
		return nil, fmt.Errorf("querying chat turns: %w", err)
	}
	defer rows.Close()

	var turns []*llm.ChatTurn
	for rows.Next() {
		var (
			t        llm.ChatTurn
			messages string
			usage    sql.NullString
		)
		if err := rows.Scan(&t.ID, &t.Model, &messages, &t.Reply, &usage, &t.StartedAt, &t.CompletedAt); err != nil {
			return nil, fmt.Errorf("scanning chat turn: %w", err)
		}
		if err := json.Unmarshal([]byte(messages), &t.Messages); err != nil {
			return nil, fmt.Errorf("decoding chat turn %s messages: %w", t.ID, err)
		}
		if usage.Valid {
			t.Usage = &llm.Usage{}
			if err := json.Unmarshal([]byte(usage.String), t.Usage); err != nil {
				return nil, fmt.Errorf("decoding chat turn %s usage: %w", t.ID, err)
			}
		}
		turns = append(turns, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chat turns: %w", err)
	}
	return turns, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.drv.Close()
}

func (s *Store) queryQuotations(ctx context.Context, query string, args []any) ([]*quotation.Record, error) {
	var rows entsql.Rows
	if err := s.drv.Query(ctx, query, args, &rows); err != nil {
		return nil, fmt.Errorf("querying quotations: %w", err)
	}
	defer rows.Close()

	var records []*quotation.Record
	for rows.Next() {
		var (
			r       quotation.Record
			company sql.NullString
			notes   sql.NullString
			status  string
		)
		if err := rows.Scan(
			&r.ID,
			&r.FullName,
			&r.Email,
			&r.Phone,
			&company,
			&r.ServiceID,
			&r.ServiceName,
			&notes,
			&status,
			&r.CreatedAt,
			&r.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning quotation: %w", err)
		}
		r.CompanyName = company.String
		r.Notes = notes.String
		r.Status = quotation.Status(status)
		records = append(records, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating quotations: %w", err)
	}
	return records, nil
}

// execOne runs a statement that must touch exactly one row of id.
func (s *Store) execOne(ctx context.Context, query string, args []any, id string) error {
	var res sql.Result
	if err := s.drv.Exec(ctx, query, args, &res); err != nil {
		return fmt.Errorf("updating quotation %s: %w", id, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating quotation %s: %w", id, err)
	}
	if n == 0 {
		return storage.NotFoundError{Kind: "quotation", ID: id}
	}
	return nil
}

func nullString(v string) sql.NullString {
	return sql.NullString{String: v, Valid: v != ""}
}
