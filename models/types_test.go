// ABOUTME: Tests for model helpers and status normalization
// ABOUTME: Covers lead id derivation, pending sentinels, and description parsing
package models

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeStatus(t *testing.T) {
	cases := map[string]string{
		"New":        StatusNew,
		"new":        StatusNew,
		"CONTACTED":  StatusContacted,
		"qualified":  StatusQualified,
		"Closed":     StatusClosed,
		"closed":     StatusClosed,
		"Completed":  StatusClosed,
		"completed":  StatusClosed,
		"":           StatusNew,
		"  New  ":    StatusNew,
		"In Transit": StatusNew,
		"garbage":    StatusNew,
	}
	for input, want := range cases {
		assert.Equal(t, want, NormalizeStatus(input), "input %q", input)
	}
}

func TestDeriveLeadID(t *testing.T) {
	id := DeriveLeadID("Ann Lee", "ann@x.com")
	assert.Equal(t, "Ann Lee_ann@x.com", id)

	long := DeriveLeadID("Bartholomew Cummings", "bart@example.com")
	assert.Len(t, long, 20)
	assert.Equal(t, "Bartholomew Cummings_bart@example.com"[:20], long)
}

func TestPendingCardSentinel(t *testing.T) {
	id := PendingCardID("lead-1")
	assert.Equal(t, "PENDING_lead-1", id)
	assert.True(t, IsPendingCard(id))
	assert.False(t, IsPendingCard("abc123"))

	m := &LeadCardMapping{CardID: id}
	assert.False(t, m.HasCard())
	m.CardID = "abc123"
	assert.True(t, m.HasCard())
	m.CardID = ""
	assert.False(t, m.HasCard())
}

func TestFormatCardDescription(t *testing.T) {
	desc := FormatCardDescription("lead-1", "Ann Lee", "ann@x.com", "", "", "New")

	assert.True(t, strings.HasPrefix(desc, "Lead ID: lead-1\n"))
	assert.Contains(t, desc, "Name: Ann Lee")
	assert.Contains(t, desc, "Email: ann@x.com")
	assert.Contains(t, desc, "Phone: N/A")
	assert.Contains(t, desc, "Company: N/A")
	assert.Contains(t, desc, "Status: New")
	assert.Contains(t, desc, "Source: Google Sheets")
}

func TestParseLeadIDFromDescription(t *testing.T) {
	desc := FormatCardDescription("lead-1", "Ann Lee", "ann@x.com", "555", "Acme", "New")
	assert.Equal(t, "lead-1", ParseLeadIDFromDescription(desc))

	assert.Equal(t, "", ParseLeadIDFromDescription("no structured block here"))
	assert.Equal(t, "", ParseLeadIDFromDescription(""))

	// Lead ID line does not have to be first when parsing
	assert.Equal(t, "x9", ParseLeadIDFromDescription("Notes: hello\nLead ID: x9\nStatus: New"))
}

func TestDescriptionContainsLeadID(t *testing.T) {
	desc := FormatCardDescription("lead-1", "Ann Lee", "ann@x.com", "", "", "New")
	assert.True(t, DescriptionContainsLeadID(desc, "lead-1"))
	assert.False(t, DescriptionContainsLeadID(desc, "lead-2"))
	assert.False(t, DescriptionContainsLeadID(desc, ""))
}

func TestFormatCardTitle(t *testing.T) {
	assert.Equal(t, "Ann Lee (ann@x.com)", FormatCardTitle("Ann Lee", "ann@x.com"))
	assert.Equal(t, "Ann Lee", FormatCardTitle("Ann Lee", ""))
}

func TestScanStatsAdd(t *testing.T) {
	a := ScanStats{LeadsChecked: 1, CardsCreated: 2, StatusesUpdated: 3, Errors: 4}
	a.Add(ScanStats{LeadsChecked: 10, CardsCreated: 20, StatusesUpdated: 30, Errors: 40})
	assert.Equal(t, ScanStats{LeadsChecked: 11, CardsCreated: 22, StatusesUpdated: 33, Errors: 44}, a)
}
