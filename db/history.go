// ABOUTME: Append-only sync history log
// ABOUTME: Records every attempted create/update/move for audit and debugging
package db

import (
	"database/sql"
	"fmt"
	"math/rand"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/harperreed/leadsync/models"
)

// AddSyncHistory appends one action record. Write-only from the engine;
// rows are never mutated and never drive control decisions.
func AddSyncHistory(db *sql.DB, entry models.SyncHistoryEntry) error {
	now := time.Now().UTC()
	entropy := ulid.Monotonic(rand.New(rand.NewSource(now.UnixNano())), 0)
	id := ulid.MustNew(ulid.Timestamp(now), entropy)

	_, err := db.Exec(`
		INSERT INTO sync_history
			(id, lead_id, card_id, action, old_status, new_status, source, success, error_message, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, id.String(), entry.LeadID, entry.CardID, entry.Action,
		entry.OldStatus, entry.NewStatus, entry.Source, entry.Success, entry.Error, now)
	if err != nil {
		return fmt.Errorf("failed to add sync history: %w", err)
	}
	return nil
}

// ListSyncHistory returns the most recent history entries, newest first.
func ListSyncHistory(db *sql.DB, limit int) ([]models.SyncHistoryEntry, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := db.Query(`
		SELECT id, lead_id, card_id, action, old_status, new_status, source, success, error_message, created_at
		FROM sync_history
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list sync history: %w", err)
	}
	defer rows.Close()

	var entries []models.SyncHistoryEntry
	for rows.Next() {
		var e models.SyncHistoryEntry
		var leadID, cardID, oldStatus, newStatus, errMsg sql.NullString
		err := rows.Scan(&e.ID, &leadID, &cardID, &e.Action, &oldStatus, &newStatus,
			&e.Source, &e.Success, &errMsg, &e.CreatedAt)
		if err != nil {
			return nil, err
		}
		e.LeadID = leadID.String
		e.CardID = cardID.String
		e.OldStatus = oldStatus.String
		e.NewStatus = newStatus.String
		e.Error = errMsg.String
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
