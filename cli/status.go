// ABOUTME: Inspection commands: mapping table and sync history listing
// ABOUTME: Read-only views over the local database
package cli

import (
	"database/sql"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/harperreed/leadsync/db"
)

// MappingsCommand lists every lead/card mapping row.
func MappingsCommand(database *sql.DB, args []string) error {
	fs := flag.NewFlagSet("mappings", flag.ExitOnError)
	_ = fs.Parse(args)

	mappings, err := db.ListMappings(database)
	if err != nil {
		return fmt.Errorf("failed to list mappings: %w", err)
	}

	if len(mappings) == 0 {
		fmt.Println("No mappings found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "LEAD ID\tNAME\tEMAIL\tSTATUS\tCARD ID\tLANE\tLAST SOURCE")
	for _, m := range mappings {
		cardID := m.CardID
		if !m.HasCard() {
			cardID = "(pending)"
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			m.LeadID, m.LeadName, m.LeadEmail, m.CurrentStatus, cardID, m.LaneID, m.LastSyncSource)
	}
	return w.Flush()
}

// HistoryCommand lists recent sync actions, newest first.
func HistoryCommand(database *sql.DB, args []string) error {
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	limit := fs.Int("limit", 50, "Maximum entries")
	_ = fs.Parse(args)

	entries, err := db.ListSyncHistory(database, *limit)
	if err != nil {
		return fmt.Errorf("failed to list history: %w", err)
	}

	if len(entries) == 0 {
		fmt.Println("No sync history found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "TIME\tACTION\tSOURCE\tLEAD\tCARD\tSTATUS\tOK\tERROR")
	for _, e := range entries {
		status := e.NewStatus
		if e.OldStatus != "" {
			status = fmt.Sprintf("%s→%s", e.OldStatus, e.NewStatus)
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%t\t%s\n",
			e.CreatedAt.Format("2006-01-02 15:04:05"), e.Action, e.Source,
			e.LeadID, e.CardID, status, e.Success, e.Error)
	}
	return w.Flush()
}
