// ABOUTME: Data models for lead/card sync entities
// ABOUTME: Defines Lead, Card, LeadCardMapping, SyncOutcome, and status vocabulary
package models

import (
	"strings"
	"time"
)

// Status vocabulary (wire-level canonical form). Unrecognized input is
// coerced to StatusNew at the mapping boundary, never rejected.
const (
	StatusNew       = "New"
	StatusContacted = "Contacted"
	StatusQualified = "Qualified"
	StatusClosed    = "Closed"
)

// Sync source values recorded on each mapping row.
const (
	SourceSheets = "sheets"
	SourceTrello = "trello"
)

// Lead is a prospective contact tracked in the spreadsheet.
type Lead struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone,omitempty"`
	Company string `json:"company,omitempty"`
	Status  string `json:"status"`
	Notes   string `json:"notes,omitempty"`
}

// Card is a work item on the task board, occupying one lane at a time.
type Card struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	LaneID      string `json:"lane_id"`
	LeadID      string `json:"lead_id,omitempty"`
}

// LeadCardMapping is the central authority record, one row per lead.
type LeadCardMapping struct {
	ID             int64     `json:"id"`
	LeadID         string    `json:"lead_id"`
	LeadName       string    `json:"lead_name"`
	LeadEmail      string    `json:"lead_email"`
	LeadPhone      string    `json:"lead_phone,omitempty"`
	LeadCompany    string    `json:"lead_company,omitempty"`
	CardID         string    `json:"card_id"`
	CardTitle      string    `json:"card_title"`
	LaneID         string    `json:"lane_id"`
	CurrentStatus  string    `json:"current_status"`
	LastSyncSource string    `json:"last_sync_source"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// HasCard reports whether a real card has been created for this lead.
func (m *LeadCardMapping) HasCard() bool {
	return m.CardID != "" && !IsPendingCard(m.CardID)
}

// SyncHistoryEntry is one row of the append-only action log.
type SyncHistoryEntry struct {
	ID        string    `json:"id"`
	LeadID    string    `json:"lead_id,omitempty"`
	CardID    string    `json:"card_id,omitempty"`
	Action    string    `json:"action"`
	OldStatus string    `json:"old_status,omitempty"`
	NewStatus string    `json:"new_status,omitempty"`
	Source    string    `json:"source"`
	Success   bool      `json:"success"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// History actions.
const (
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionMove   = "move"
)

// SyncOutcome is the tagged result of a single reconciliation pass.
type SyncOutcome struct {
	Success       bool   `json:"success"`
	Action        string `json:"action,omitempty"` // created, updated, linked
	LeadID        string `json:"lead_id,omitempty"`
	CardID        string `json:"card_id,omitempty"`
	Error         string `json:"error,omitempty"`
	SkippedReason string `json:"skipped_reason,omitempty"`
}

// ScanStats summarizes one full reconciliation scan. Returned by value so
// scans stay independently testable; callers aggregate if they need totals.
type ScanStats struct {
	LeadsChecked    int `json:"leads_checked"`
	CardsCreated    int `json:"cards_created"`
	StatusesUpdated int `json:"statuses_updated"`
	Errors          int `json:"errors"`
}

// Add merges another scan's counters into this one.
func (s *ScanStats) Add(other ScanStats) {
	s.LeadsChecked += other.LeadsChecked
	s.CardsCreated += other.CardsCreated
	s.StatusesUpdated += other.StatusesUpdated
	s.Errors += other.Errors
}

const leadIDMaxLen = 20

// DeriveLeadID builds a stable lead identity from name and email when the
// spreadsheet carries no explicit id column.
func DeriveLeadID(name, email string) string {
	id := name + "_" + email
	if len(id) > leadIDMaxLen {
		id = id[:leadIDMaxLen]
	}
	return id
}

const pendingPrefix = "PENDING_"

// PendingCardID returns the sentinel card id meaning "no card created yet".
func PendingCardID(leadID string) string {
	return pendingPrefix + leadID
}

// IsPendingCard reports whether a card id is the pending sentinel.
func IsPendingCard(cardID string) bool {
	return strings.HasPrefix(cardID, pendingPrefix)
}

// PendingLaneID is the lane sentinel stored before a card exists.
const PendingLaneID = "PENDING"

// NormalizeStatus coerces arbitrary input into the canonical vocabulary.
// Input is trimmed and title-cased first; "Completed" is treated as Closed.
// Anything unrecognized (including empty) becomes New.
func NormalizeStatus(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return StatusNew
	}
	s = strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
	switch s {
	case StatusNew, StatusContacted, StatusQualified, StatusClosed:
		return s
	case "Completed":
		return StatusClosed
	default:
		return StatusNew
	}
}
