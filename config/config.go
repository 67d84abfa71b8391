// ABOUTME: Environment-backed application configuration
// ABOUTME: Loads .env files and parses typed settings for both remote services
package config

import (
	"fmt"
	"os"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"

	"github.com/harperreed/leadsync/models"
)

// Config holds every runtime setting. Lane ids may be left empty; the
// status mapper treats an empty lane as an absent mapping, not an error.
type Config struct {
	// Google Sheets
	SheetsID        string `env:"GOOGLE_SHEETS_ID"`
	CredentialsPath string `env:"GOOGLE_CREDENTIALS_JSON" envDefault:"credentials.json"`
	SheetRange      string `env:"GOOGLE_SHEETS_RANGE" envDefault:"Sheet1"`

	// Trello
	TrelloAPIKey   string `env:"TRELLO_API_KEY"`
	TrelloAPIToken string `env:"TRELLO_API_TOKEN"`
	TrelloBoardID  string `env:"TRELLO_BOARD_ID"`
	NewLaneID      string `env:"TRELLO_NEW_LIST_ID"`
	ContactedLane  string `env:"TRELLO_CONTACTED_LIST_ID"`
	QualifiedLane  string `env:"TRELLO_QUALIFIED_LIST_ID"`
	ClosedLaneID   string `env:"TRELLO_CLOSED_LIST_ID"`

	// Application
	DBPath       string `env:"LEADSYNC_DB_PATH"`
	Port         int    `env:"PORT" envDefault:"8000"`
	SyncInterval int    `env:"SYNC_INTERVAL" envDefault:"30"` // seconds
}

// envFiles are tried in order; the first one that exists wins.
var envFiles = []string{"config.env", ".env.local", ".env"}

// Load reads the first available .env file, then parses the environment.
// A missing .env file is not an error; everything can come from the
// process environment.
func Load() (*Config, error) {
	for _, f := range envFiles {
		if info, err := os.Stat(f); err == nil && !info.IsDir() {
			if err := godotenv.Load(f); err != nil {
				return nil, fmt.Errorf("failed to load %s: %w", f, err)
			}
			break
		}
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	return cfg, nil
}

// LaneMapping returns status→lane pairs, skipping unconfigured lanes.
func (c *Config) LaneMapping() map[string]string {
	raw := map[string]string{
		models.StatusNew:       c.NewLaneID,
		models.StatusContacted: c.ContactedLane,
		models.StatusQualified: c.QualifiedLane,
		models.StatusClosed:    c.ClosedLaneID,
	}
	mapping := make(map[string]string, len(raw))
	for status, lane := range raw {
		if lane != "" {
			mapping[status] = lane
		}
	}
	return mapping
}

// Validate checks the settings needed for live (non-demo) operation.
func (c *Config) Validate() error {
	required := map[string]string{
		"GOOGLE_SHEETS_ID": c.SheetsID,
		"TRELLO_API_KEY":   c.TrelloAPIKey,
		"TRELLO_API_TOKEN": c.TrelloAPIToken,
		"TRELLO_BOARD_ID":  c.TrelloBoardID,
	}
	for name, value := range required {
		if value == "" {
			return fmt.Errorf("missing configuration %s", name)
		}
	}
	return nil
}
