package sqlstore

import "entgo.io/ent/dialect"

const (
	quotationsTable = "quotation_requests"
	chatTurnsTable  = "chat_turns"
)

var quotationColumns = []string{
	"id",
	"full_name",
	"email",
	"phone",
	"company_name",
	"service_id",
	"service_name",
	"notes",
	"status",
	"created_at",
	"updated_at",
}

var chatTurnColumns = []string{
	"id",
	"model",
	"messages",
	"reply",
	"token_usage",
	"started_at",
	"completed_at",
}

// schema returns the idempotent DDL statements for a dialect. Changes must
// stay append-only: new tables, new nullable columns, new indexes.
func schema(d string) []string {
	ts, js := "DATETIME", "TEXT"
	if d == dialect.Postgres {
		ts, js = "TIMESTAMPTZ", "JSONB"
	}

	return []string{
		`CREATE TABLE IF NOT EXISTS quotation_requests (
	id           TEXT PRIMARY KEY,
	full_name    TEXT NOT NULL,
	email        TEXT NOT NULL,
	phone        TEXT NOT NULL,
	company_name TEXT,
	service_id   TEXT NOT NULL,
	service_name TEXT NOT NULL,
	notes        TEXT,
	status       TEXT NOT NULL DEFAULT 'pending',
	created_at   ` + ts + ` NOT NULL,
	updated_at   ` + ts + ` NOT NULL
)`,
		`CREATE INDEX IF NOT EXISTS quotation_requests_status_created_at
	ON quotation_requests (status, created_at)`,
		`CREATE TABLE IF NOT EXISTS chat_turns (
	id           TEXT PRIMARY KEY,
	model        TEXT NOT NULL,
	messages     ` + js + ` NOT NULL,
	reply        TEXT NOT NULL,
	token_usage  ` + js + `,
	started_at   ` + ts + ` NOT NULL,
	completed_at ` + ts + ` NOT NULL
)`,
		`CREATE INDEX IF NOT EXISTS chat_turns_completed_at
	ON chat_turns (completed_at)`,
	}
}
