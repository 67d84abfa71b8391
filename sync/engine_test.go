// ABOUTME: Reconciliation engine tests over fake remote stores
// ABOUTME: Covers idempotence, echo suppression, linking, and full scans
package sync

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harperreed/leadsync/db"
	"github.com/harperreed/leadsync/models"
)

type statusUpdate struct {
	LeadID, Status, Name, Email string
}

type fakeLeadStore struct {
	leads       []models.Lead
	updates     []statusUpdate
	listErr     error
	updateErr   error
	updateFound bool
}

func newFakeLeadStore() *fakeLeadStore {
	return &fakeLeadStore{updateFound: true}
}

func (f *fakeLeadStore) ListLeads(ctx context.Context) ([]models.Lead, error) {
	return f.leads, f.listErr
}

func (f *fakeLeadStore) AppendLead(ctx context.Context, lead models.Lead) (string, error) {
	f.leads = append(f.leads, lead)
	return lead.ID, nil
}

func (f *fakeLeadStore) UpdateLeadStatus(ctx context.Context, leadID, newStatus, name, email string) (bool, error) {
	if f.updateErr != nil {
		return false, f.updateErr
	}
	f.updates = append(f.updates, statusUpdate{leadID, newStatus, name, email})
	return f.updateFound, nil
}

type cardUpdateCall struct {
	CardID string
	Update CardUpdate
}

type fakeCardStore struct {
	cards     []models.Card
	updates   []cardUpdateCall
	created   int
	listErr   error
	createErr error
	updateErr error
}

func (f *fakeCardStore) ListCards(ctx context.Context) ([]models.Card, error) {
	return f.cards, f.listErr
}

func (f *fakeCardStore) CreateCardInLane(ctx context.Context, laneID, title, description string) (string, error) {
	if f.createErr != nil {
		return "", f.createErr
	}
	f.created++
	id := fmt.Sprintf("card-%d", f.created)
	f.cards = append(f.cards, models.Card{
		ID: id, Title: title, Description: description, LaneID: laneID,
		LeadID: models.ParseLeadIDFromDescription(description),
	})
	return id, nil
}

func (f *fakeCardStore) UpdateCard(ctx context.Context, cardID string, update CardUpdate) (bool, error) {
	if f.updateErr != nil {
		return false, f.updateErr
	}
	f.updates = append(f.updates, cardUpdateCall{cardID, update})
	for i := range f.cards {
		if f.cards[i].ID == cardID {
			if update.LaneID != "" {
				f.cards[i].LaneID = update.LaneID
			}
			if update.Title != "" {
				f.cards[i].Title = update.Title
			}
			if update.Description != "" {
				f.cards[i].Description = update.Description
			}
		}
	}
	return true, nil
}

func testEngine(t *testing.T) (*Engine, *sql.DB, *fakeLeadStore, *fakeCardStore) {
	t.Helper()
	database, err := db.OpenDatabase(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	leads := newFakeLeadStore()
	cards := &fakeCardStore{}
	engine := NewEngine(database, leads, cards, NewStatusMapper(fullMapping()))
	return engine, database, leads, cards
}

func annLee() LeadEvent {
	return LeadEvent{Name: "Ann Lee", Email: "ann@x.com", Status: "New"}
}

func TestLeadEventCreatesRowAndCard(t *testing.T) {
	engine, database, _, cards := testEngine(t)
	ctx := context.Background()

	outcome := engine.SyncFromLeadSide(ctx, annLee())

	require.True(t, outcome.Success, "outcome error: %s", outcome.Error)
	assert.Equal(t, "created", outcome.Action)
	assert.Equal(t, "Ann Lee_ann@x.com", outcome.LeadID)
	assert.Equal(t, "card-1", outcome.CardID)

	// Card created in the New lane with the standard description
	require.Len(t, cards.cards, 1)
	assert.Equal(t, "lane-new", cards.cards[0].LaneID)
	assert.Equal(t, "Ann Lee (ann@x.com)", cards.cards[0].Title)
	assert.Contains(t, cards.cards[0].Description, "Lead ID: Ann Lee_ann@x.com")
	assert.Contains(t, cards.cards[0].Description, "Source: Google Sheets")

	// Row updated from the pending sentinel to the real card
	m, err := db.GetMappingByLeadID(database, outcome.LeadID)
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, "card-1", m.CardID)
	assert.Equal(t, "lane-new", m.LaneID)
	assert.Equal(t, models.StatusNew, m.CurrentStatus)
	assert.Equal(t, models.SourceSheets, m.LastSyncSource)
}

func TestLeadEventIdempotent(t *testing.T) {
	engine, database, _, cards := testEngine(t)
	ctx := context.Background()

	first := engine.SyncFromLeadSide(ctx, annLee())
	second := engine.SyncFromLeadSide(ctx, annLee())

	require.True(t, first.Success)
	require.True(t, second.Success)
	assert.Equal(t, "updated", second.Action)
	assert.Equal(t, 1, cards.created, "duplicate delivery must not create a second card")

	all, err := db.ListMappings(database)
	require.NoError(t, err)
	assert.Len(t, all, 1)
	assert.Equal(t, first.CardID, all[0].CardID)
}

func TestLeadEventMissingEmail(t *testing.T) {
	engine, database, _, cards := testEngine(t)

	outcome := engine.SyncFromLeadSide(context.Background(), LeadEvent{Name: "Ann Lee"})

	assert.False(t, outcome.Success)
	assert.Equal(t, "Incomplete data", outcome.Error)
	assert.Zero(t, cards.created)

	all, err := db.ListMappings(database)
	require.NoError(t, err)
	assert.Empty(t, all, "validation failure must not create a row")
}

func TestLeadEventAttachesOutOfBandCard(t *testing.T) {
	engine, database, _, cards := testEngine(t)
	ctx := context.Background()

	leadID := models.DeriveLeadID("Ann Lee", "ann@x.com")
	desc := models.FormatCardDescription(leadID, "Ann Lee", "ann@x.com", "", "", "New")
	cards.cards = []models.Card{{ID: "card-77", Title: "Ann Lee", Description: desc, LaneID: "lane-new", LeadID: leadID}}

	outcome := engine.SyncFromLeadSide(ctx, annLee())

	require.True(t, outcome.Success, "outcome error: %s", outcome.Error)
	assert.Equal(t, "linked", outcome.Action)
	assert.Equal(t, "card-77", outcome.CardID)
	assert.Zero(t, cards.created, "existing card must be linked, not duplicated")

	m, err := db.GetMappingByCardID(database, "card-77")
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, leadID, m.LeadID)
}

func TestLeadEventMovesLinkedCard(t *testing.T) {
	engine, database, _, cards := testEngine(t)
	ctx := context.Background()

	require.True(t, engine.SyncFromLeadSide(ctx, annLee()).Success)

	ev := annLee()
	ev.Status = "Qualified"
	outcome := engine.SyncFromLeadSide(ctx, ev)

	require.True(t, outcome.Success, "outcome error: %s", outcome.Error)
	assert.Equal(t, "updated", outcome.Action)

	// Remote card moved
	require.NotEmpty(t, cards.updates)
	last := cards.updates[len(cards.updates)-1]
	assert.Equal(t, "lane-qualified", last.Update.LaneID)

	// Database lane written only after the remote move; status tracks it
	m, err := db.GetMappingByCardID(database, outcome.CardID)
	require.NoError(t, err)
	assert.Equal(t, "lane-qualified", m.LaneID)
	assert.Equal(t, models.StatusQualified, m.CurrentStatus)
}

func TestLeadEventCreateFailureKeepsRow(t *testing.T) {
	engine, database, _, cards := testEngine(t)
	cards.createErr = &RemoteError{Service: "trello", Op: "create", Err: fmt.Errorf("boom")}

	outcome := engine.SyncFromLeadSide(context.Background(), annLee())

	assert.False(t, outcome.Success)
	assert.Contains(t, outcome.Error, "failed to create card")

	// Lead data stays durably recorded with the pending sentinel
	m, err := db.GetMappingByLeadID(database, "Ann Lee_ann@x.com")
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.False(t, m.HasCard())
}

func TestLeadEventNoLaneConfigured(t *testing.T) {
	database, err := db.OpenDatabase(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	defer database.Close()

	engine := NewEngine(database, newFakeLeadStore(), &fakeCardStore{}, NewStatusMapper(nil))

	outcome := engine.SyncFromLeadSide(context.Background(), annLee())

	assert.True(t, outcome.Success)
	assert.Equal(t, "no lane configured", outcome.SkippedReason)

	m, err := db.GetMappingByLeadID(database, "Ann Lee_ann@x.com")
	require.NoError(t, err)
	require.NotNil(t, m, "lead data recorded even when no card can be created")
}

func TestTaskSideMovePropagates(t *testing.T) {
	engine, database, leads, _ := testEngine(t)
	ctx := context.Background()

	_, err := db.AttachCard(database, "lead-1", "Ann Lee", "ann@x.com", "", "", "card-9", "Ann Lee", "lane-new", models.StatusNew)
	require.NoError(t, err)
	// A prior scan already recorded a Trello-sourced write for this row
	_, _, err = db.ApplyCardMove(database, "card-9", "lane-new", models.StatusNew)
	require.NoError(t, err)

	outcome := engine.SyncFromTaskSide(ctx, CardEvent{
		CardID: "card-9", CardName: "Ann Lee", LaneID: "lane-qualified", ActionType: "updateCard",
	})

	require.True(t, outcome.Success, "outcome error: %s", outcome.Error)
	assert.Equal(t, "updated", outcome.Action)

	m, err := db.GetMappingByCardID(database, "card-9")
	require.NoError(t, err)
	assert.Equal(t, models.StatusQualified, m.CurrentStatus)
	assert.Equal(t, "lane-qualified", m.LaneID)
	assert.Equal(t, models.SourceTrello, m.LastSyncSource)

	require.Len(t, leads.updates, 1)
	assert.Equal(t, statusUpdate{"lead-1", models.StatusQualified, "Ann Lee", "ann@x.com"}, leads.updates[0])
}

func TestTaskSideEchoSuppressed(t *testing.T) {
	engine, database, leads, _ := testEngine(t)
	ctx := context.Background()

	// The engine just wrote this row from the sheet side
	require.True(t, engine.SyncFromLeadSide(ctx, annLee()).Success)

	m, err := db.GetMappingByLeadID(database, "Ann Lee_ann@x.com")
	require.NoError(t, err)
	require.Equal(t, models.SourceSheets, m.LastSyncSource)

	outcome := engine.SyncFromTaskSide(ctx, CardEvent{
		CardID: m.CardID, LaneID: "lane-qualified", ActionType: "updateCard",
	})

	assert.True(t, outcome.Success)
	assert.Equal(t, "echo", outcome.SkippedReason)
	assert.Empty(t, leads.updates, "echo must not write back to the lead side")

	// Row unchanged
	after, err := db.GetMappingByCardID(database, m.CardID)
	require.NoError(t, err)
	assert.Equal(t, m.CurrentStatus, after.CurrentStatus)
	assert.Equal(t, m.LaneID, after.LaneID)
}

func TestTaskSideUnknownCardIsNoOp(t *testing.T) {
	engine, _, leads, _ := testEngine(t)

	outcome := engine.SyncFromTaskSide(context.Background(), CardEvent{
		CardID: "stranger", LaneID: "lane-new", ActionType: "updateCard",
	})

	assert.True(t, outcome.Success)
	assert.Equal(t, "not managed", outcome.SkippedReason)
	assert.Empty(t, leads.updates)
}

func TestTaskSideIgnoresNonMovementActions(t *testing.T) {
	engine, database, leads, _ := testEngine(t)

	_, err := db.AttachCard(database, "lead-1", "Ann Lee", "ann@x.com", "", "", "card-9", "Ann Lee", "lane-new", models.StatusNew)
	require.NoError(t, err)

	outcome := engine.SyncFromTaskSide(context.Background(), CardEvent{
		CardID: "card-9", LaneID: "lane-qualified", ActionType: "createCard",
	})

	assert.True(t, outcome.Success)
	assert.Equal(t, "ignored action", outcome.SkippedReason)
	assert.Empty(t, leads.updates)
}

func TestTaskSideStatusUnchanged(t *testing.T) {
	engine, database, leads, _ := testEngine(t)

	_, err := db.AttachCard(database, "lead-1", "Ann Lee", "ann@x.com", "", "", "card-9", "Ann Lee", "lane-new", models.StatusNew)
	require.NoError(t, err)

	outcome := engine.SyncFromTaskSide(context.Background(), CardEvent{
		CardID: "card-9", LaneID: "lane-new", ActionType: "updateCard",
	})

	assert.True(t, outcome.Success)
	assert.Equal(t, "status unchanged", outcome.SkippedReason)
	assert.Empty(t, leads.updates)
}

func TestTaskSideMissingCardID(t *testing.T) {
	engine, _, _, _ := testEngine(t)

	outcome := engine.SyncFromTaskSide(context.Background(), CardEvent{ActionType: "updateCard"})
	assert.False(t, outcome.Success)
	assert.Equal(t, "Missing card_id", outcome.Error)
}

func TestFullScanCreatesMissingCards(t *testing.T) {
	engine, database, leads, cards := testEngine(t)
	leads.leads = []models.Lead{
		{ID: "lead-1", Name: "Ann Lee", Email: "ann@x.com", Status: "New"},
		{ID: "lead-2", Name: "Bo Chen", Email: "bo@x.com", Status: "Qualified"},
	}

	stats, err := engine.FullScan(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, stats.LeadsChecked)
	assert.Equal(t, 2, stats.CardsCreated)
	assert.Zero(t, stats.Errors)

	all, err := db.ListMappings(database)
	require.NoError(t, err)
	require.Len(t, all, 2)
	for _, m := range all {
		assert.True(t, m.HasCard())
	}

	// Bo's card lands in the qualified lane
	require.Len(t, cards.cards, 2)
	assert.Equal(t, "lane-qualified", cards.cards[1].LaneID)
}

func TestFullScanPropagatesLaneDrift(t *testing.T) {
	engine, database, leads, cards := testEngine(t)
	ctx := context.Background()

	leads.leads = []models.Lead{{ID: "lead-1", Name: "Ann Lee", Email: "ann@x.com", Status: "New"}}
	_, err := db.AttachCard(database, "lead-1", "Ann Lee", "ann@x.com", "", "", "card-9", "Ann Lee", "lane-new", models.StatusNew)
	require.NoError(t, err)

	// Someone dragged the card to Qualified; no webhook arrived
	cards.cards = []models.Card{{ID: "card-9", Title: "Ann Lee", LaneID: "lane-qualified"}}

	stats, err := engine.FullScan(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, stats.StatusesUpdated)

	m, err := db.GetMappingByCardID(database, "card-9")
	require.NoError(t, err)
	assert.Equal(t, models.StatusQualified, m.CurrentStatus)

	// Scan applies no echo suppression even though the row says "sheets"
	require.Len(t, leads.updates, 1)
	assert.Equal(t, models.StatusQualified, leads.updates[0].Status)
}

func TestFullScanCountsPerItemErrors(t *testing.T) {
	engine, _, leads, cards := testEngine(t)
	leads.leads = []models.Lead{
		{ID: "lead-1", Name: "Ann Lee", Email: "ann@x.com", Status: "New"},
		{ID: "lead-2", Name: "Bo Chen", Email: "bo@x.com", Status: "New"},
	}
	cards.createErr = &RemoteError{Service: "trello", Op: "create", Err: fmt.Errorf("boom")}

	stats, err := engine.FullScan(context.Background())
	require.NoError(t, err, "a failing lead must not abort the scan")

	assert.Equal(t, 2, stats.LeadsChecked)
	assert.Equal(t, 2, stats.Errors)
	assert.Zero(t, stats.CardsCreated)
}

func TestFullScanPermanentListFailure(t *testing.T) {
	engine, _, leads, _ := testEngine(t)
	leads.listErr = &AuthError{Service: "sheets", Err: fmt.Errorf("bad credentials")}

	_, err := engine.FullScan(context.Background())
	require.Error(t, err, "auth failure surfaces as a failed engine run")
}

func TestFullScanSkipsIncompleteLeads(t *testing.T) {
	engine, database, leads, _ := testEngine(t)
	leads.leads = []models.Lead{{ID: "lead-1", Name: "No Email", Email: "", Status: "New"}}

	stats, err := engine.FullScan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.LeadsChecked)
	assert.Zero(t, stats.CardsCreated)

	all, err := db.ListMappings(database)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestHistoryRecordedForLeadEvents(t *testing.T) {
	engine, database, _, _ := testEngine(t)

	require.True(t, engine.SyncFromLeadSide(context.Background(), annLee()).Success)

	entries, err := db.ListSyncHistory(database, 10)
	require.NoError(t, err)
	require.NotEmpty(t, entries)
	assert.Equal(t, models.ActionCreate, entries[0].Action)
	assert.Equal(t, models.SourceSheets, entries[0].Source)
	assert.True(t, entries[0].Success)
}
