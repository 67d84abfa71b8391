// ABOUTME: Lead-card mapping database operations
// ABOUTME: Upserts from either side, card attachment, and mapping lookups
package db

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/harperreed/leadsync/models"
)

// Upsert actions returned by UpsertFromLeadSide.
const (
	UpsertCreated = "created"
	UpsertUpdated = "updated"
)

const mappingColumns = `id, lead_id, lead_name, lead_email, lead_phone, lead_company,
	card_id, card_title, lane_id, current_status, last_sync_source, created_at, updated_at`

func scanMapping(row *sql.Row) (*models.LeadCardMapping, error) {
	m := &models.LeadCardMapping{}
	var phone, company, source sql.NullString

	err := row.Scan(
		&m.ID,
		&m.LeadID,
		&m.LeadName,
		&m.LeadEmail,
		&phone,
		&company,
		&m.CardID,
		&m.CardTitle,
		&m.LaneID,
		&m.CurrentStatus,
		&source,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	m.LeadPhone = phone.String
	m.LeadCompany = company.String
	m.LastSyncSource = source.String
	return m, nil
}

// GetMappingByLeadID returns the mapping for a lead, or nil if none exists.
func GetMappingByLeadID(db *sql.DB, leadID string) (*models.LeadCardMapping, error) {
	return scanMapping(db.QueryRow(`
		SELECT `+mappingColumns+` FROM lead_card_mapping WHERE lead_id = ?
	`, leadID))
}

// GetMappingByCardID returns the mapping owning a card, or nil if the card
// is not one this system manages.
func GetMappingByCardID(db *sql.DB, cardID string) (*models.LeadCardMapping, error) {
	return scanMapping(db.QueryRow(`
		SELECT `+mappingColumns+` FROM lead_card_mapping WHERE card_id = ?
	`, cardID))
}

// GetMappingByEmail returns the first mapping matching a lead email.
func GetMappingByEmail(db *sql.DB, email string) (*models.LeadCardMapping, error) {
	return scanMapping(db.QueryRow(`
		SELECT `+mappingColumns+` FROM lead_card_mapping
		WHERE LOWER(lead_email) = LOWER(?) ORDER BY id LIMIT 1
	`, email))
}

// ListMappings returns every mapping row, oldest first. Used by the full
// reconciliation scan and by diagnostic tooling.
func ListMappings(db *sql.DB) ([]models.LeadCardMapping, error) {
	rows, err := db.Query(`SELECT ` + mappingColumns + ` FROM lead_card_mapping ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list mappings: %w", err)
	}
	defer rows.Close()

	var mappings []models.LeadCardMapping
	for rows.Next() {
		var m models.LeadCardMapping
		var phone, company, source sql.NullString
		err := rows.Scan(
			&m.ID, &m.LeadID, &m.LeadName, &m.LeadEmail, &phone, &company,
			&m.CardID, &m.CardTitle, &m.LaneID, &m.CurrentStatus, &source,
			&m.CreatedAt, &m.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		m.LeadPhone = phone.String
		m.LeadCompany = company.String
		m.LastSyncSource = source.String
		mappings = append(mappings, m)
	}
	return mappings, rows.Err()
}

// UpsertFromLeadSide records lead data received from the spreadsheet side.
// A new row gets the PENDING card sentinel; an existing row has its lead
// fields and status overwritten. Either way last_sync_source becomes
// "sheets". Lead data is persisted before any card exists, so this never
// depends on the task board.
func UpsertFromLeadSide(db *sql.DB, leadID, name, email, phone, company, status string) (string, *models.LeadCardMapping, error) {
	now := time.Now().UTC()

	existing, err := GetMappingByLeadID(db, leadID)
	if err != nil {
		return "", nil, fmt.Errorf("failed to look up mapping: %w", err)
	}

	if existing != nil {
		_, err := db.Exec(`
			UPDATE lead_card_mapping
			SET lead_name = ?, lead_email = ?, lead_phone = ?, lead_company = ?,
				current_status = ?, last_sync_source = ?, updated_at = ?
			WHERE lead_id = ?
		`, name, email, phone, company, status, models.SourceSheets, now, leadID)
		if err != nil {
			return "", nil, fmt.Errorf("failed to update mapping: %w", err)
		}

		updated, err := GetMappingByLeadID(db, leadID)
		if err != nil {
			return "", nil, err
		}
		return UpsertUpdated, updated, nil
	}

	_, err = db.Exec(`
		INSERT INTO lead_card_mapping
			(lead_id, lead_name, lead_email, lead_phone, lead_company,
			 card_id, card_title, lane_id, current_status, last_sync_source,
			 created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, leadID, name, email, phone, company,
		models.PendingCardID(leadID), fmt.Sprintf("%s (pending)", name), models.PendingLaneID,
		status, models.SourceSheets, now, now)
	if err != nil {
		return "", nil, fmt.Errorf("failed to insert mapping: %w", err)
	}

	created, err := GetMappingByLeadID(db, leadID)
	if err != nil {
		return "", nil, err
	}
	return UpsertCreated, created, nil
}

// AttachCard records a real card against a lead, replacing any pending
// sentinel. Idempotent: calling again with the same card is a no-op update.
func AttachCard(db *sql.DB, leadID, name, email, phone, company, cardID, cardTitle, laneID, status string) (*models.LeadCardMapping, error) {
	now := time.Now().UTC()

	existing, err := GetMappingByLeadID(db, leadID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up mapping: %w", err)
	}

	if existing != nil {
		_, err := db.Exec(`
			UPDATE lead_card_mapping
			SET lead_name = ?, lead_email = ?, lead_phone = ?, lead_company = ?,
				card_id = ?, card_title = ?, lane_id = ?, current_status = ?,
				last_sync_source = ?, updated_at = ?
			WHERE lead_id = ?
		`, name, email, phone, company, cardID, cardTitle, laneID, status,
			models.SourceSheets, now, leadID)
		if err != nil {
			return nil, fmt.Errorf("failed to attach card: %w", err)
		}
	} else {
		_, err := db.Exec(`
			INSERT INTO lead_card_mapping
				(lead_id, lead_name, lead_email, lead_phone, lead_company,
				 card_id, card_title, lane_id, current_status, last_sync_source,
				 created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, leadID, name, email, phone, company, cardID, cardTitle, laneID,
			status, models.SourceSheets, now, now)
		if err != nil {
			return nil, fmt.Errorf("failed to attach card: %w", err)
		}
	}

	return GetMappingByLeadID(db, leadID)
}

// ApplyCardMove updates lane and status after a card moved on the task
// board. Returns found=false when the card is not managed by this system.
func ApplyCardMove(db *sql.DB, cardID, newLaneID, newStatus string) (bool, *models.LeadCardMapping, error) {
	existing, err := GetMappingByCardID(db, cardID)
	if err != nil {
		return false, nil, fmt.Errorf("failed to look up card: %w", err)
	}
	if existing == nil {
		return false, nil, nil
	}

	_, err = db.Exec(`
		UPDATE lead_card_mapping
		SET lane_id = ?, current_status = ?, last_sync_source = ?, updated_at = ?
		WHERE card_id = ?
	`, newLaneID, newStatus, models.SourceTrello, time.Now().UTC(), cardID)
	if err != nil {
		return false, nil, fmt.Errorf("failed to apply card move: %w", err)
	}

	updated, err := GetMappingByCardID(db, cardID)
	if err != nil {
		return false, nil, err
	}
	return true, updated, nil
}

// DeleteMapping removes a row by lead id or card id. Administrative only;
// the engine never deletes during normal operation.
func DeleteMapping(db *sql.DB, leadID, cardID string) (bool, error) {
	var res sql.Result
	var err error

	switch {
	case leadID != "":
		res, err = db.Exec(`DELETE FROM lead_card_mapping WHERE lead_id = ?`, leadID)
	case cardID != "":
		res, err = db.Exec(`DELETE FROM lead_card_mapping WHERE card_id = ?`, cardID)
	default:
		return false, fmt.Errorf("delete requires a lead id or card id")
	}
	if err != nil {
		return false, fmt.Errorf("failed to delete mapping: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
