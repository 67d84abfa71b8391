// ABOUTME: Lead entry command: append a lead to the tracker and sync it
// ABOUTME: The new lead flows through the same path as a webhook event
package cli

import (
	"context"
	"database/sql"
	"flag"
	"fmt"

	"github.com/harperreed/leadsync/config"
	"github.com/harperreed/leadsync/models"
	"github.com/harperreed/leadsync/sync"
)

// AddLeadCommand appends a lead row to the tracker, then runs one
// lead-side reconciliation pass so the card appears immediately.
func AddLeadCommand(database *sql.DB, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("add-lead", flag.ExitOnError)
	name := fs.String("name", "", "Lead name (required)")
	email := fs.String("email", "", "Lead email (required)")
	phone := fs.String("phone", "", "Phone number")
	company := fs.String("company", "", "Company name")
	status := fs.String("status", models.StatusNew, "Initial status")
	notes := fs.String("notes", "", "Free-form notes")
	_ = fs.Parse(args)

	if *name == "" || *email == "" {
		return fmt.Errorf("%w: -name and -email are required", sync.ErrIncompleteData)
	}

	ctx := context.Background()
	leads, err := sync.NewSheetsClient(ctx, cfg.CredentialsPath, cfg.SheetsID, cfg.SheetRange)
	if err != nil {
		return fmt.Errorf("failed to create sheets client: %w", err)
	}

	cards := sync.NewTrelloClient(cfg.TrelloAPIKey, cfg.TrelloAPIToken, cfg.TrelloBoardID)
	engine := sync.NewEngine(database, leads, cards, sync.NewStatusMapper(cfg.LaneMapping()))

	existing, err := leads.GetLeadByEmail(ctx, *email)
	if err != nil {
		return fmt.Errorf("failed to check for existing lead: %w", err)
	}
	if existing != nil {
		return fmt.Errorf("lead with email %s already exists as %s", *email, existing.ID)
	}

	leadID, err := leads.AppendLead(ctx, models.Lead{
		Name:    *name,
		Email:   *email,
		Phone:   *phone,
		Company: *company,
		Status:  models.NormalizeStatus(*status),
		Notes:   *notes,
	})
	if err != nil {
		return fmt.Errorf("failed to add lead: %w", err)
	}

	outcome := engine.SyncFromLeadSide(ctx, sync.LeadEvent{
		ID:      leadID,
		Name:    *name,
		Email:   *email,
		Phone:   *phone,
		Company: *company,
		Status:  *status,
		Notes:   *notes,
	})
	if !outcome.Success {
		return fmt.Errorf("lead %s added but sync failed: %s", leadID, outcome.Error)
	}

	fmt.Printf("Added lead %s (%s)\n", leadID, *name)
	if outcome.CardID != "" {
		fmt.Printf("Card: %s\n", outcome.CardID)
	}
	return nil
}
