package store

import (
	"context"
	"fmt"
)

// schema is idempotent: every statement is CREATE IF NOT EXISTS.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS records (
		id             INTEGER PRIMARY KEY,
		type           TEXT NOT NULL,
		kind           TEXT NOT NULL,
		unit           TEXT NOT NULL DEFAULT '',
		value          TEXT NOT NULL DEFAULT '',
		numeric_value  REAL,
		source_name    TEXT NOT NULL DEFAULT '',
		source_version TEXT NOT NULL DEFAULT '',
		start_date     TEXT NOT NULL,
		end_date       TEXT NOT NULL,
		start_day      TEXT NOT NULL,
		creation_date  TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_records_type_day ON records(type, start_day)`,
	`CREATE INDEX IF NOT EXISTS idx_records_kind ON records(kind)`,
	`CREATE TABLE IF NOT EXISTS workouts (
		id              INTEGER PRIMARY KEY,
		activity_type   TEXT NOT NULL,
		source_name     TEXT NOT NULL DEFAULT '',
		duration_min    REAL NOT NULL DEFAULT 0,
		distance        REAL NOT NULL DEFAULT 0,
		distance_unit   TEXT NOT NULL DEFAULT '',
		energy          REAL NOT NULL DEFAULT 0,
		energy_unit     TEXT NOT NULL DEFAULT '',
		start_date      TEXT NOT NULL,
		end_date        TEXT NOT NULL,
		creation_date   TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_workouts_activity ON workouts(activity_type)`,
	`CREATE TABLE IF NOT EXISTS imports (
		id          TEXT PRIMARY KEY,
		export_path TEXT NOT NULL,
		started_at  TEXT NOT NULL,
		finished_at TEXT,
		records     INTEGER NOT NULL DEFAULT 0,
		workouts    INTEGER NOT NULL DEFAULT 0,
		duplicates  INTEGER NOT NULL DEFAULT 0,
		skipped     INTEGER NOT NULL DEFAULT 0,
		error       TEXT NOT NULL DEFAULT ''
	)`,
}

// Migrate creates the schema if it does not exist yet.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
