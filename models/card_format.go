// ABOUTME: Card title and description formatting for the task board
// ABOUTME: Encodes lead identity into descriptions and parses it back out
package models

import (
	"fmt"
	"strings"
)

const leadIDLinePrefix = "Lead ID:"

// FormatCardTitle renders the standard card title for a lead.
func FormatCardTitle(name, email string) string {
	if email == "" {
		return name
	}
	return fmt.Sprintf("%s (%s)", name, email)
}

// FormatCardDescription renders the standard description block. The Lead ID
// line is what links a card back to its lead, so it always comes first.
func FormatCardDescription(leadID, name, email, phone, company, status string) string {
	orNA := func(s string) string {
		if s == "" {
			return "N/A"
		}
		return s
	}
	lines := []string{
		leadIDLinePrefix + " " + leadID,
		"Name: " + name,
		"Email: " + orNA(email),
		"Phone: " + orNA(phone),
		"Company: " + orNA(company),
		"Status: " + status,
		"Source: Google Sheets",
	}
	return strings.Join(lines, "\n")
}

// ParseLeadIDFromDescription extracts the lead id from a card description.
// Returns empty string if no Lead ID line is present.
func ParseLeadIDFromDescription(desc string) string {
	for _, line := range strings.Split(desc, "\n") {
		if strings.HasPrefix(line, leadIDLinePrefix) {
			return strings.TrimSpace(strings.TrimPrefix(line, leadIDLinePrefix))
		}
	}
	return ""
}

// DescriptionContainsLeadID reports whether a card description references
// the given lead. Used when searching the board for an out-of-band card.
func DescriptionContainsLeadID(desc, leadID string) bool {
	return leadID != "" && ParseLeadIDFromDescription(desc) == leadID
}
