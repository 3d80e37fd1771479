package db

import (
	"context"
	"fmt"
)

// schemaStatements holds the neutral DDL for every logical table and index,
// in dependency order. Every statement goes through the translator, so this
// one set serves both backends, and every object is created with IF NOT
// EXISTS so the whole set is idempotent.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT UNIQUE NOT NULL,
		email TEXT UNIQUE NOT NULL,
		password TEXT NOT NULL,
		subscription_status TEXT DEFAULT 'free',
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`,

	`CREATE TABLE IF NOT EXISTS foia_sequence (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		year INTEGER UNIQUE NOT NULL,
		counter INTEGER NOT NULL DEFAULT 0
	)`,

	`CREATE TABLE IF NOT EXISTS federal_agencies (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		abbreviation TEXT UNIQUE,
		foia_email TEXT,
		foia_address TEXT,
		website TEXT,
		notes TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`,

	`CREATE TABLE IF NOT EXISTS state_local_agencies (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		ori TEXT UNIQUE,
		agency_name TEXT NOT NULL,
		agency_unit TEXT,
		state_abbr TEXT NOT NULL,
		county_name TEXT,
		city_name TEXT,
		agency_type TEXT,
		population INTEGER,
		foia_officer TEXT,
		foia_email TEXT,
		foia_phone TEXT,
		foia_address TEXT,
		foia_portal_url TEXT,
		website TEXT,
		notes TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`,

	`CREATE TABLE IF NOT EXISTS state_laws (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		state_abbr TEXT UNIQUE NOT NULL,
		law_name TEXT NOT NULL,
		statute TEXT,
		response_days INTEGER,
		appeal_days INTEGER,
		notes TEXT
	)`,

	`CREATE TABLE IF NOT EXISTS requests (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL REFERENCES users(id),
		agency_id INTEGER,
		agency_type TEXT,
		tracking_number TEXT,
		subject TEXT NOT NULL,
		body TEXT,
		status TEXT DEFAULT 'draft',
		submitted_at TIMESTAMP,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`,

	`CREATE TABLE IF NOT EXISTS action_log (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		request_id INTEGER NOT NULL REFERENCES requests(id),
		action TEXT NOT NULL,
		detail TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`,

	`CREATE TABLE IF NOT EXISTS request_attachments (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		request_id INTEGER NOT NULL REFERENCES requests(id),
		filename TEXT NOT NULL,
		content_type TEXT,
		byte_size INTEGER,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`,

	`CREATE INDEX IF NOT EXISTS idx_sla_state ON state_local_agencies(state_abbr)`,
	`CREATE INDEX IF NOT EXISTS idx_sla_agency_type ON state_local_agencies(agency_type)`,
	`CREATE INDEX IF NOT EXISTS idx_sla_county ON state_local_agencies(county_name)`,
	`CREATE INDEX IF NOT EXISTS idx_requests_user ON requests(user_id)`,
	`CREATE INDEX IF NOT EXISTS idx_action_log_request ON action_log(request_id)`,
}

// Tables returns the canonical table names EnsureSchema manages, in
// creation order.
func Tables() []string {
	return []string{
		"users",
		"foia_sequence",
		"federal_agencies",
		"state_local_agencies",
		"state_laws",
		"requests",
		"action_log",
		"request_attachments",
	}
}

// SchemaSQL returns the neutral DDL statements EnsureSchema issues.
func SchemaSQL() []string {
	statements := make([]string, len(schemaStatements))
	copy(statements, schemaStatements)
	return statements
}

// EnsureSchema creates every logical table and index if missing, then
// commits. Running it against an already-initialized database produces no
// error and no duplicate objects. It runs once at process start, before any
// other use of the database.
func EnsureSchema(ctx context.Context, session *Session) error {
	for _, statement := range schemaStatements {
		if _, err := session.Execute(ctx, statement); err != nil {
			return fmt.Errorf("failed to initialize schema: %w", err)
		}
	}
	if err := session.Commit(); err != nil {
		return fmt.Errorf("failed to commit schema initialization: %w", err)
	}
	return nil
}
