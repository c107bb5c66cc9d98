package store

import (
	"github.com/pocketbase/dbx"
)

// Schema is created on open, mirroring the collections the engine consumes:
// events with their priority pools, registrations keyed by (event, user),
// group memberships and strikes.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS events (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		capacity INTEGER,
		requires_signing_up BOOLEAN NOT NULL DEFAULT TRUE,
		is_registration_closed BOOLEAN NOT NULL DEFAULT FALSE,
		registration_start DATETIME,
		enforces_previous_strikes BOOLEAN NOT NULL DEFAULT TRUE,
		created_at DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS registrations (
		event_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		status TEXT NOT NULL,
		waitlist_position INTEGER,
		created_at DATETIME NOT NULL,
		attended_at DATETIME,
		PRIMARY KEY (event_id, user_id)
	)`,
	`CREATE TABLE IF NOT EXISTS priority_pools (
		id TEXT PRIMARY KEY,
		event_id TEXT NOT NULL,
		priority_score INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS pool_groups (
		pool_id TEXT NOT NULL,
		group_slug TEXT NOT NULL,
		PRIMARY KEY (pool_id, group_slug)
	)`,
	`CREATE TABLE IF NOT EXISTS user_groups (
		user_id TEXT NOT NULL,
		group_slug TEXT NOT NULL,
		PRIMARY KEY (user_id, group_slug)
	)`,
	`CREATE TABLE IF NOT EXISTS strikes (
		id TEXT PRIMARY KEY,
		event_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		count INTEGER NOT NULL DEFAULT 1,
		reason TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS idx_registrations_event_status ON registrations (event_id, status)`,
	`CREATE INDEX IF NOT EXISTS idx_strikes_user ON strikes (user_id)`,
	`CREATE INDEX IF NOT EXISTS idx_pools_event ON priority_pools (event_id)`,
}

func createSchema(db *dbx.DB) error {
	for _, stmt := range schemaStatements {
		if _, err := db.NewQuery(stmt).Execute(); err != nil {
			return err
		}
	}
	return nil
}
