// ABOUTME: Remote store contracts consumed by the reconciliation engine
// ABOUTME: Lead side (spreadsheet) and card side (task board) adapter interfaces
package sync

import (
	"context"

	"github.com/harperreed/leadsync/models"
)

// LeadStore is the spreadsheet side of the sync. Implementations handle
// their own rate-limit retries and timeouts.
type LeadStore interface {
	// ListLeads returns all active leads. Rows the remote marks
	// permanently lost are excluded.
	ListLeads(ctx context.Context) ([]models.Lead, error)

	// AppendLead adds a new lead row and returns its assigned id.
	AppendLead(ctx context.Context, lead models.Lead) (string, error)

	// UpdateLeadStatus writes a new status for a lead. name and email are
	// fallback matching keys when the id column is absent or stale.
	// Returns false when no row matched.
	UpdateLeadStatus(ctx context.Context, leadID, newStatus, name, email string) (bool, error)
}

// CardUpdate carries the optional fields of a card update; empty strings
// leave the remote value unchanged.
type CardUpdate struct {
	LaneID      string
	Title       string
	Description string
}

// CardStore is the task board side of the sync.
type CardStore interface {
	// ListCards returns every card on the board, with LeadID recovered
	// from the description block where present.
	ListCards(ctx context.Context) ([]models.Card, error)

	// CreateCardInLane creates a card and returns its id.
	CreateCardInLane(ctx context.Context, laneID, title, description string) (string, error)

	// UpdateCard moves and/or renames a card. Returns false when the
	// remote rejected the update without a transport error.
	UpdateCard(ctx context.Context, cardID string, update CardUpdate) (bool, error)
}
