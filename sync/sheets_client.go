// ABOUTME: Google Sheets lead tracker adapter
// ABOUTME: Reads/writes lead rows with header normalization and rate-limit retry
package sync

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/harperreed/leadsync/models"
)

const sheetsMaxRetries = 3

// SheetsClient implements LeadStore against a Google Sheet. Without a
// credentials file it runs in demo mode: listing returns a small fixed
// dataset and writes are no-ops, so the rest of the pipeline stays
// exercisable during development.
type SheetsClient struct {
	svc        *sheets.Service
	sheetID    string
	sheetRange string
}

// NewSheetsClient authenticates with a service account credentials file.
// A missing file is not an error; the client degrades to demo mode.
func NewSheetsClient(ctx context.Context, credentialsPath, sheetID, sheetRange string) (*SheetsClient, error) {
	c := &SheetsClient{sheetID: sheetID, sheetRange: sheetRange}

	if _, err := os.Stat(credentialsPath); os.IsNotExist(err) {
		log.Printf("Credentials file not found: %s. Running in demo mode.", credentialsPath)
		return c, nil
	}

	svc, err := sheets.NewService(ctx,
		option.WithCredentialsFile(credentialsPath),
		option.WithScopes(sheets.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("failed to create Sheets service: %w", err)
	}

	c.svc = svc
	return c, nil
}

// DemoMode reports whether the client is running without credentials.
func (c *SheetsClient) DemoMode() bool {
	return c.svc == nil
}

func demoLeads() []models.Lead {
	return []models.Lead{
		{ID: "DEMO1", Name: "Demo Lead 1", Email: "demo1@example.com", Status: models.StatusNew},
		{ID: "DEMO2", Name: "Demo Lead 2", Email: "demo2@example.com", Status: models.StatusContacted},
	}
}

// withRetry runs op, retrying on rate-limit responses with exponential
// backoff. Any other error is permanent.
func withRetry(ctx context.Context, op func() error) error {
	bo := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), sheetsMaxRetries), ctx)
	return backoff.Retry(func() error {
		err := op()
		if err == nil {
			return nil
		}
		if isRateLimited(err) {
			log.Printf("Sheets rate limit hit, backing off: %v", err)
			return err
		}
		return backoff.Permanent(err)
	}, bo)
}

func isRateLimited(err error) bool {
	if apiErr, ok := err.(*googleapi.Error); ok {
		return apiErr.Code == 429
	}
	return strings.Contains(err.Error(), "429") || strings.Contains(strings.ToLower(err.Error()), "rate")
}

// canonical header names mapped from arbitrary column casing.
var headerFields = map[string]string{
	"id":      "id",
	"name":    "name",
	"email":   "email",
	"phone":   "phone",
	"company": "company",
	"status":  "status",
	"notes":   "notes",
}

// columnIndex maps canonical field names to their zero-based column.
func columnIndex(header []interface{}) map[string]int {
	idx := make(map[string]int)
	for i, cell := range header {
		name := strings.ToLower(strings.TrimSpace(fmt.Sprint(cell)))
		if field, ok := headerFields[name]; ok {
			if _, seen := idx[field]; !seen {
				idx[field] = i
			}
		}
	}
	return idx
}

func cellAt(row []interface{}, i int, ok bool) string {
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(fmt.Sprint(row[i]))
}

func (c *SheetsClient) fetchRows(ctx context.Context) ([][]interface{}, error) {
	var resp *sheets.ValueRange
	err := withRetry(ctx, func() error {
		var err error
		resp, err = c.svc.Spreadsheets.Values.Get(c.sheetID, c.sheetRange).Context(ctx).Do()
		return err
	})
	if err != nil {
		return nil, c.wrapError("list", err)
	}
	return resp.Values, nil
}

// ListLeads fetches every lead row, mapping arbitrary column casing onto
// the fixed field set. Rows marked Lost are permanently out of play and
// excluded.
func (c *SheetsClient) ListLeads(ctx context.Context) ([]models.Lead, error) {
	if c.DemoMode() {
		log.Printf("No Google Sheets client - returning demo data")
		return demoLeads(), nil
	}

	rows, err := c.fetchRows(ctx)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}

	idx := columnIndex(rows[0])
	var leads []models.Lead
	for _, row := range rows[1:] {
		get := func(field string) string {
			i, ok := idx[field]
			return cellAt(row, i, ok)
		}

		rawStatus := get("status")
		if strings.EqualFold(rawStatus, "lost") {
			continue
		}

		name := get("name")
		email := get("email")
		id := get("id")
		if id == "" {
			id = models.DeriveLeadID(name, email)
		}

		leads = append(leads, models.Lead{
			ID:      id,
			Name:    name,
			Email:   email,
			Phone:   get("phone"),
			Company: get("company"),
			Status:  rawStatus,
			Notes:   get("notes"),
		})
	}

	log.Printf("Fetched %d leads from Google Sheets", len(leads))
	return leads, nil
}

// AppendLead adds a new lead row and returns its generated id.
func (c *SheetsClient) AppendLead(ctx context.Context, lead models.Lead) (string, error) {
	if c.DemoMode() {
		log.Printf("No Google Sheets client - cannot add lead")
		return "", c.wrapError("append", fmt.Errorf("demo mode"))
	}

	leadID := lead.ID
	if leadID == "" {
		leadID = uuid.New().String()[:8]
	}

	row := []interface{}{leadID, lead.Name, lead.Email, lead.Phone, lead.Company, lead.Status, lead.Notes}
	err := withRetry(ctx, func() error {
		_, err := c.svc.Spreadsheets.Values.Append(c.sheetID, c.sheetRange,
			&sheets.ValueRange{Values: [][]interface{}{row}}).
			ValueInputOption("RAW").Context(ctx).Do()
		return err
	})
	if err != nil {
		return "", c.wrapError("append", err)
	}

	log.Printf("Added new lead %s (%s, %s)", leadID, lead.Name, lead.Email)
	return leadID, nil
}

// UpdateLeadStatus writes a new status for the first row matched by, in
// order: exact id-column match, the derived name_email id, then a direct
// case-insensitive name+email match. First match wins; later methods are
// never consulted once an earlier one matches.
func (c *SheetsClient) UpdateLeadStatus(ctx context.Context, leadID, newStatus, name, email string) (bool, error) {
	if c.DemoMode() {
		log.Printf("No Google Sheets client - cannot update lead %s", leadID)
		return false, nil
	}

	rows, err := c.fetchRows(ctx)
	if err != nil {
		return false, err
	}
	if len(rows) == 0 {
		return false, nil
	}

	idx := columnIndex(rows[0])
	statusCol, ok := idx["status"]
	if !ok {
		return false, c.wrapError("update", fmt.Errorf("status column not found in headers"))
	}

	rowNum := c.matchRow(rows, idx, leadID, name, email)
	if rowNum == 0 {
		log.Printf("Lead not found: %s", leadID)
		return false, nil
	}

	target := fmt.Sprintf("%s!%s%d", c.sheetRange, columnLetter(statusCol), rowNum)
	err = withRetry(ctx, func() error {
		_, err := c.svc.Spreadsheets.Values.Update(c.sheetID, target,
			&sheets.ValueRange{Values: [][]interface{}{{newStatus}}}).
			ValueInputOption("RAW").Context(ctx).Do()
		return err
	})
	if err != nil {
		return false, c.wrapError("update", err)
	}

	log.Printf("Updated lead %s status to %s", leadID, newStatus)
	return true, nil
}

// matchRow returns the 1-based sheet row of the matching lead, or 0. Each
// matching method is exhausted across all rows before the next is tried.
func (c *SheetsClient) matchRow(rows [][]interface{}, idx map[string]int, leadID, name, email string) int {
	get := func(row []interface{}, field string) string {
		i, ok := idx[field]
		return cellAt(row, i, ok)
	}

	// Method 1: exact id column match
	for i, row := range rows[1:] {
		if id := get(row, "id"); id != "" && id == leadID {
			return i + 2
		}
	}

	// Method 2: derived name_email composite id
	for i, row := range rows[1:] {
		if models.DeriveLeadID(get(row, "name"), get(row, "email")) == leadID {
			return i + 2
		}
	}

	// Method 3: direct name+email match supplied by the caller
	if name != "" && email != "" {
		for i, row := range rows[1:] {
			if strings.EqualFold(get(row, "name"), name) && strings.EqualFold(get(row, "email"), email) {
				return i + 2
			}
		}
	}

	return 0
}

// GetLeadByEmail finds a lead by email, case-insensitively.
func (c *SheetsClient) GetLeadByEmail(ctx context.Context, email string) (*models.Lead, error) {
	leads, err := c.ListLeads(ctx)
	if err != nil {
		return nil, err
	}
	for i := range leads {
		if strings.EqualFold(leads[i].Email, email) {
			return &leads[i], nil
		}
	}
	return nil, nil
}

func (c *SheetsClient) wrapError(op string, err error) error {
	if apiErr, ok := err.(*googleapi.Error); ok && (apiErr.Code == 401 || apiErr.Code == 403) {
		return &AuthError{Service: "sheets", Err: err}
	}
	return &RemoteError{Service: "sheets", Op: op, Err: err}
}

// columnLetter converts a zero-based column index into A1 notation.
func columnLetter(col int) string {
	letter := ""
	for col >= 0 {
		letter = string(rune('A'+col%26)) + letter
		col = col/26 - 1
	}
	return letter
}
