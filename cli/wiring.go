// ABOUTME: Shared command wiring: stores, mapper, and engine construction
// ABOUTME: Every command builds its engine through the same path
package cli

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/harperreed/leadsync/config"
	"github.com/harperreed/leadsync/sync"
)

// buildEngine wires the two remote adapters and the status mapper into a
// reconciliation engine. The sheets adapter degrades to demo mode when no
// credentials file exists; Trello credentials are required for live runs
// and checked by the caller via cfg.Validate.
func buildEngine(ctx context.Context, database *sql.DB, cfg *config.Config) (*sync.Engine, error) {
	leads, err := sync.NewSheetsClient(ctx, cfg.CredentialsPath, cfg.SheetsID, cfg.SheetRange)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets client: %w", err)
	}

	cards := sync.NewTrelloClient(cfg.TrelloAPIKey, cfg.TrelloAPIToken, cfg.TrelloBoardID)
	mapper := sync.NewStatusMapper(cfg.LaneMapping())

	return sync.NewEngine(database, leads, cards, mapper), nil
}
