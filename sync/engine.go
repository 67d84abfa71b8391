// ABOUTME: Bidirectional reconciliation engine with the database as authority
// ABOUTME: Drives lead events, card events, and full scans to convergence
package sync

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	"github.com/harperreed/leadsync/db"
	"github.com/harperreed/leadsync/models"
)

// LeadEvent is a normalized lead-side change (webhook payload or scan row).
type LeadEvent struct {
	ID      string
	Name    string
	Email   string
	Phone   string
	Company string
	Status  string
	Notes   string
}

// CardEvent is a normalized task-side change notification.
type CardEvent struct {
	CardID     string
	CardName   string
	LaneID     string
	ActionType string
}

// Trello action types that represent a card movement. Creation events are
// ignored so the engine does not react to cards it just created itself.
var movementActions = map[string]bool{
	"updateCard": true,
	"moveCard":   true,
}

// Engine reconciles the two remote stores through the local database. It
// never talks to a remote store without consulting the database first.
type Engine struct {
	db     *sql.DB
	leads  LeadStore
	cards  CardStore
	mapper *StatusMapper
	locks  *db.KeyLock
}

// NewEngine creates a reconciliation engine over the given stores.
func NewEngine(database *sql.DB, leads LeadStore, cards CardStore, mapper *StatusMapper) *Engine {
	return &Engine{
		db:     database,
		leads:  leads,
		cards:  cards,
		mapper: mapper,
		locks:  db.NewKeyLock(),
	}
}

// SyncFromLeadSide runs one reconciliation pass for a lead-side change.
// Lead data is always persisted first; card creation failures leave the
// database row in place pending retry.
func (e *Engine) SyncFromLeadSide(ctx context.Context, ev LeadEvent) models.SyncOutcome {
	if ev.Name == "" || ev.Email == "" {
		return models.SyncOutcome{Success: false, Error: "Incomplete data"}
	}

	leadID := ev.ID
	if leadID == "" {
		leadID = models.DeriveLeadID(ev.Name, ev.Email)
	}
	status := models.NormalizeStatus(ev.Status)

	e.locks.Lock(leadID)
	defer e.locks.Unlock(leadID)

	action, mapping, err := db.UpsertFromLeadSide(e.db, leadID, ev.Name, ev.Email, ev.Phone, ev.Company, status)
	if err != nil {
		e.recordHistory(models.SyncHistoryEntry{
			LeadID: leadID, Action: models.ActionUpdate, NewStatus: status,
			Source: models.SourceSheets, Success: false, Error: err.Error(),
		})
		return models.SyncOutcome{Success: false, LeadID: leadID, Error: fmt.Sprintf("database upsert failed: %v", err)}
	}

	if mapping.HasCard() {
		return e.pushLeadToLinkedCard(ctx, action, mapping, status)
	}
	return e.createOrAttachCard(ctx, action, mapping, status, nil)
}

// pushLeadToLinkedCard handles a lead change when a real card exists: the
// card's title and description are refreshed unconditionally, and the card
// is moved when the status maps to a different lane. The database lane is
// written only after the remote move succeeds.
func (e *Engine) pushLeadToLinkedCard(ctx context.Context, action string, mapping *models.LeadCardMapping, status string) models.SyncOutcome {
	title := models.FormatCardTitle(mapping.LeadName, mapping.LeadEmail)
	desc := models.FormatCardDescription(mapping.LeadID, mapping.LeadName, mapping.LeadEmail,
		mapping.LeadPhone, mapping.LeadCompany, status)

	update := CardUpdate{Title: title, Description: desc}

	expectedLane, laneOK := e.mapper.StatusToLane(status)
	move := laneOK && expectedLane != mapping.LaneID
	if move {
		update.LaneID = expectedLane
	}

	ok, err := e.cards.UpdateCard(ctx, mapping.CardID, update)
	if err != nil || !ok {
		if err == nil {
			err = fmt.Errorf("card update rejected")
		}
		e.recordHistory(models.SyncHistoryEntry{
			LeadID: mapping.LeadID, CardID: mapping.CardID, Action: models.ActionUpdate,
			OldStatus: mapping.CurrentStatus, NewStatus: status,
			Source: models.SourceSheets, Success: false, Error: err.Error(),
		})
		return models.SyncOutcome{
			Success: false, LeadID: mapping.LeadID, CardID: mapping.CardID,
			Error: fmt.Sprintf("failed to update card: %v", err),
		}
	}

	if move {
		if _, _, err := db.ApplyCardMove(e.db, mapping.CardID, expectedLane, status); err != nil {
			return models.SyncOutcome{
				Success: false, LeadID: mapping.LeadID, CardID: mapping.CardID,
				Error: fmt.Sprintf("card moved but database write failed: %v", err),
			}
		}
	}

	e.recordHistory(models.SyncHistoryEntry{
		LeadID: mapping.LeadID, CardID: mapping.CardID, Action: models.ActionUpdate,
		OldStatus: mapping.CurrentStatus, NewStatus: status,
		Source: models.SourceSheets, Success: true,
	})
	return models.SyncOutcome{Success: true, Action: action, LeadID: mapping.LeadID, CardID: mapping.CardID}
}

// createOrAttachCard handles a lead with no linked card: first search the
// board for a card referencing this lead (created out-of-band or by a prior
// partial run), attach it if found, otherwise create a new card. knownCards
// lets a full scan pass its pre-fetched card list; nil means fetch.
func (e *Engine) createOrAttachCard(ctx context.Context, action string, mapping *models.LeadCardMapping, status string, knownCards []models.Card) models.SyncOutcome {
	leadID := mapping.LeadID

	cards := knownCards
	if cards == nil {
		var err error
		cards, err = e.cards.ListCards(ctx)
		if err != nil {
			// Lead data is already durably recorded; the card search can
			// proceed with nothing found and the next scan will retry.
			log.Printf("Failed to list cards while linking %s: %v", leadID, err)
			cards = nil
		}
	}

	for i := range cards {
		if cards[i].LeadID != leadID && !models.DescriptionContainsLeadID(cards[i].Description, leadID) {
			continue
		}

		attached, err := db.AttachCard(e.db, leadID, mapping.LeadName, mapping.LeadEmail,
			mapping.LeadPhone, mapping.LeadCompany,
			cards[i].ID, cards[i].Title, cards[i].LaneID, status)
		if err != nil {
			return models.SyncOutcome{Success: false, LeadID: leadID, Error: fmt.Sprintf("failed to link card: %v", err)}
		}

		return e.pushLeadToLinkedCard(ctx, "linked", attached, status)
	}

	targetLane, ok := e.mapper.StatusToLane(status)
	if !ok {
		// No usable lane configured; the lead stays recorded with its
		// pending sentinel until configuration catches up.
		return models.SyncOutcome{
			Success: true, Action: action, LeadID: leadID,
			SkippedReason: "no lane configured",
		}
	}

	title := models.FormatCardTitle(mapping.LeadName, mapping.LeadEmail)
	desc := models.FormatCardDescription(leadID, mapping.LeadName, mapping.LeadEmail,
		mapping.LeadPhone, mapping.LeadCompany, status)

	cardID, err := e.cards.CreateCardInLane(ctx, targetLane, title, desc)
	if err != nil {
		e.recordHistory(models.SyncHistoryEntry{
			LeadID: leadID, Action: models.ActionCreate, NewStatus: status,
			Source: models.SourceSheets, Success: false, Error: err.Error(),
		})
		return models.SyncOutcome{
			Success: false, LeadID: leadID,
			Error: fmt.Sprintf("failed to create card: %v", err),
		}
	}

	if _, err := db.AttachCard(e.db, leadID, mapping.LeadName, mapping.LeadEmail,
		mapping.LeadPhone, mapping.LeadCompany, cardID, title, targetLane, status); err != nil {
		return models.SyncOutcome{
			Success: false, LeadID: leadID, CardID: cardID,
			Error: fmt.Sprintf("card created but database write failed: %v", err),
		}
	}

	e.recordHistory(models.SyncHistoryEntry{
		LeadID: leadID, CardID: cardID, Action: models.ActionCreate, NewStatus: status,
		Source: models.SourceSheets, Success: true,
	})
	return models.SyncOutcome{Success: true, Action: "created", LeadID: leadID, CardID: cardID}
}

// SyncFromTaskSide runs one reconciliation pass for a task-side change.
func (e *Engine) SyncFromTaskSide(ctx context.Context, ev CardEvent) models.SyncOutcome {
	if ev.CardID == "" {
		return models.SyncOutcome{Success: false, Error: "Missing card_id"}
	}
	if !movementActions[ev.ActionType] {
		return models.SyncOutcome{Success: true, CardID: ev.CardID, SkippedReason: "ignored action"}
	}

	mapping, err := db.GetMappingByCardID(e.db, ev.CardID)
	if err != nil {
		return models.SyncOutcome{Success: false, CardID: ev.CardID, Error: fmt.Sprintf("database lookup failed: %v", err)}
	}
	if mapping == nil {
		// Manually created card; not ours to manage.
		return models.SyncOutcome{Success: true, CardID: ev.CardID, SkippedReason: "not managed"}
	}

	e.locks.Lock(mapping.LeadID)
	defer e.locks.Unlock(mapping.LeadID)

	// Re-read under the lock; a concurrent pass may have advanced the row.
	mapping, err = db.GetMappingByCardID(e.db, ev.CardID)
	if err != nil || mapping == nil {
		return models.SyncOutcome{Success: true, CardID: ev.CardID, SkippedReason: "not managed"}
	}

	newStatus := e.mapper.LaneToStatus(ev.LaneID)
	if newStatus == mapping.CurrentStatus {
		return models.SyncOutcome{Success: true, LeadID: mapping.LeadID, CardID: ev.CardID, SkippedReason: "status unchanged"}
	}

	// Echo suppression: a row last written from the sheet side means this
	// move is the engine's own doing; propagating it back would loop.
	if mapping.LastSyncSource == models.SourceSheets {
		return models.SyncOutcome{Success: true, LeadID: mapping.LeadID, CardID: ev.CardID, SkippedReason: "echo"}
	}

	return e.propagateCardMove(ctx, mapping, ev.LaneID, newStatus)
}

// propagateCardMove records a task-side move and pushes the status to the
// lead side using the stored name/email as fallback matching keys.
func (e *Engine) propagateCardMove(ctx context.Context, mapping *models.LeadCardMapping, newLane, newStatus string) models.SyncOutcome {
	oldStatus := mapping.CurrentStatus

	found, updated, err := db.ApplyCardMove(e.db, mapping.CardID, newLane, newStatus)
	if err != nil {
		return models.SyncOutcome{
			Success: false, LeadID: mapping.LeadID, CardID: mapping.CardID,
			Error: fmt.Sprintf("database update failed: %v", err),
		}
	}
	if !found {
		return models.SyncOutcome{Success: true, CardID: mapping.CardID, SkippedReason: "not managed"}
	}

	ok, err := e.leads.UpdateLeadStatus(ctx, updated.LeadID, newStatus, updated.LeadName, updated.LeadEmail)
	e.recordHistory(models.SyncHistoryEntry{
		LeadID: updated.LeadID, CardID: updated.CardID, Action: models.ActionMove,
		OldStatus: oldStatus, NewStatus: newStatus,
		Source: models.SourceTrello, Success: err == nil && ok,
	})
	if err != nil {
		return models.SyncOutcome{
			Success: false, LeadID: updated.LeadID, CardID: updated.CardID,
			Error: fmt.Sprintf("failed to update lead status: %v", err),
		}
	}
	if !ok {
		return models.SyncOutcome{
			Success: false, LeadID: updated.LeadID, CardID: updated.CardID,
			Error: "lead not found in spreadsheet",
		}
	}

	return models.SyncOutcome{Success: true, Action: "updated", LeadID: updated.LeadID, CardID: updated.CardID}
}

// FullScan lists both sides once and reconciles every lead and card. A
// single failing item is counted and skipped, never aborting the scan. Lane
// drift on linked cards is treated as a task-side move and propagated to
// the lead side without echo suppression: a scan has no causal link to a
// just-performed write.
func (e *Engine) FullScan(ctx context.Context) (models.ScanStats, error) {
	stats := models.ScanStats{}

	leads, err := e.leads.ListLeads(ctx)
	if err != nil {
		return stats, fmt.Errorf("failed to list leads: %w", err)
	}
	cards, err := e.cards.ListCards(ctx)
	if err != nil {
		return stats, fmt.Errorf("failed to list cards: %w", err)
	}
	if cards == nil {
		// Keep non-nil so per-lead passes reuse this listing instead of
		// refetching the board.
		cards = []models.Card{}
	}

	log.Printf("Full scan: %d leads, %d cards", len(leads), len(cards))

	for _, lead := range leads {
		stats.LeadsChecked++

		if lead.Name == "" || lead.Email == "" {
			continue
		}

		outcome := e.scanLead(ctx, lead, cards)
		if !outcome.Success {
			stats.Errors++
			log.Printf("Scan: lead %s failed: %s", outcome.LeadID, outcome.Error)
			continue
		}
		if outcome.Action == "created" {
			stats.CardsCreated++
		}
	}

	for i := range cards {
		moved, err := e.scanCard(ctx, &cards[i])
		if err != nil {
			stats.Errors++
			log.Printf("Scan: card %s failed: %v", cards[i].ID, err)
			continue
		}
		if moved {
			stats.StatusesUpdated++
		}
	}

	return stats, nil
}

// scanLead refreshes one lead's mapping and ensures it has a card.
func (e *Engine) scanLead(ctx context.Context, lead models.Lead, cards []models.Card) models.SyncOutcome {
	leadID := lead.ID
	if leadID == "" {
		leadID = models.DeriveLeadID(lead.Name, lead.Email)
	}
	status := models.NormalizeStatus(lead.Status)

	e.locks.Lock(leadID)
	defer e.locks.Unlock(leadID)

	action, mapping, err := db.UpsertFromLeadSide(e.db, leadID, lead.Name, lead.Email, lead.Phone, lead.Company, status)
	if err != nil {
		return models.SyncOutcome{Success: false, LeadID: leadID, Error: err.Error()}
	}

	if mapping.HasCard() {
		return models.SyncOutcome{Success: true, Action: action, LeadID: leadID, CardID: mapping.CardID}
	}
	return e.createOrAttachCard(ctx, action, mapping, status, cards)
}

// scanCard compares a linked card's actual lane with the lane its stored
// status demands, propagating any drift to the lead side.
func (e *Engine) scanCard(ctx context.Context, card *models.Card) (bool, error) {
	mapping, err := db.GetMappingByCardID(e.db, card.ID)
	if err != nil {
		return false, err
	}
	if mapping == nil || !mapping.HasCard() {
		return false, nil
	}

	e.locks.Lock(mapping.LeadID)
	defer e.locks.Unlock(mapping.LeadID)

	mapping, err = db.GetMappingByCardID(e.db, card.ID)
	if err != nil || mapping == nil {
		return false, err
	}

	expectedLane, ok := e.mapper.StatusToLane(mapping.CurrentStatus)
	if !ok || card.LaneID == expectedLane {
		return false, nil
	}

	newStatus := e.mapper.LaneToStatus(card.LaneID)
	outcome := e.propagateCardMove(ctx, mapping, card.LaneID, newStatus)
	if !outcome.Success {
		return false, fmt.Errorf("%s", outcome.Error)
	}
	return true, nil
}

// recordHistory appends to the audit log. History is best-effort: a failed
// append is logged but never fails the pass it describes.
func (e *Engine) recordHistory(entry models.SyncHistoryEntry) {
	if err := db.AddSyncHistory(e.db, entry); err != nil {
		log.Printf("Failed to record sync history: %v", err)
	}
}
