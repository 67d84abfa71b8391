// ABOUTME: Database schema definitions and migrations
// ABOUTME: Handles SQLite table creation and initialization
package db

import (
	"database/sql"
)

const schema = `
CREATE TABLE IF NOT EXISTS lead_card_mapping (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	lead_id TEXT NOT NULL UNIQUE,
	lead_name TEXT NOT NULL,
	lead_email TEXT NOT NULL,
	lead_phone TEXT,
	lead_company TEXT,
	card_id TEXT NOT NULL UNIQUE,
	card_title TEXT NOT NULL,
	lane_id TEXT NOT NULL,
	current_status TEXT NOT NULL DEFAULT 'New',
	last_sync_source TEXT,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_mapping_lead_email ON lead_card_mapping(lead_email);

CREATE TABLE IF NOT EXISTS sync_history (
	id TEXT PRIMARY KEY,
	lead_id TEXT,
	card_id TEXT,
	action TEXT NOT NULL,
	old_status TEXT,
	new_status TEXT,
	source TEXT NOT NULL,
	success INTEGER NOT NULL DEFAULT 1,
	error_message TEXT,
	created_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_history_lead_id ON sync_history(lead_id);
CREATE INDEX IF NOT EXISTS idx_history_card_id ON sync_history(card_id);
CREATE INDEX IF NOT EXISTS idx_history_created_at ON sync_history(created_at DESC);
`

func InitSchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}
