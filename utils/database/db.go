package database

import (
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

// Init opens the database and ensures all tables and indexes exist.
//
// The partial unique indexes carry two core invariants: a guild never holds
// two identical live claim mappings, and a (guild, user, type) tuple never
// holds two active infractions. Concurrent writers that would violate either
// get a UNIQUE constraint error, surfaced to callers as model.ErrConflict.
func Init(dbPath string) (*sqlx.DB, error) {
	db, err := sqlx.Connect("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	schema := []string{
		`CREATE TABLE IF NOT EXISTS claim_mappings (
			mapping_id INTEGER PRIMARY KEY AUTOINCREMENT,
			guild_id TEXT NOT NULL,
			subject_kind TEXT NOT NULL,
			subject_id TEXT NOT NULL,
			claim TEXT NOT NULL,
			effect TEXT NOT NULL,
			created_by TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			revoked_at INTEGER
		);`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_claim_mappings_live
			ON claim_mappings(guild_id, subject_kind, subject_id, claim, effect)
			WHERE revoked_at IS NULL;`,
		`CREATE TABLE IF NOT EXISTS designations (
			designation_id INTEGER PRIMARY KEY AUTOINCREMENT,
			guild_id TEXT NOT NULL,
			subject_kind TEXT NOT NULL,
			subject_id TEXT NOT NULL,
			type TEXT NOT NULL,
			position INTEGER,
			created_at INTEGER NOT NULL,
			revoked_at INTEGER
		);`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_designations_live
			ON designations(guild_id, subject_kind, subject_id, type)
			WHERE revoked_at IS NULL;`,
		`CREATE TABLE IF NOT EXISTS infractions (
			infraction_id INTEGER PRIMARY KEY AUTOINCREMENT,
			guild_id TEXT NOT NULL,
			user_id TEXT NOT NULL,
			type TEXT NOT NULL,
			reason TEXT NOT NULL,
			duration_sec INTEGER,
			expires_at INTEGER,
			created_by TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			state TEXT NOT NULL DEFAULT 'active',
			terminating_event_id INTEGER
		);`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_infractions_active
			ON infractions(guild_id, user_id, type)
			WHERE state = 'active';`,
		`CREATE INDEX IF NOT EXISTS idx_infractions_expiry
			ON infractions(expires_at)
			WHERE state = 'active' AND expires_at IS NOT NULL;`,
		`CREATE TABLE IF NOT EXISTS audit_events (
			event_id INTEGER PRIMARY KEY AUTOINCREMENT,
			guild_id TEXT NOT NULL,
			actor TEXT NOT NULL,
			action TEXT NOT NULL,
			target_kind TEXT NOT NULL,
			target_id INTEGER NOT NULL,
			detail TEXT NOT NULL DEFAULT '',
			created_at INTEGER NOT NULL
		);`,
	}

	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return nil, fmt.Errorf("failed to execute schema statement: %w", err)
		}
	}

	return db, nil
}

// isUniqueViolation reports whether err is a sqlite UNIQUE constraint error.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
