// ABOUTME: Webhook payload decoding for the two remote stores
// ABOUTME: Normalizes mixed-case keys once, then hands clean events to the engine
package handlers

import (
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/harperreed/leadsync/sync"
)

// sheetsPayload is the raw Sheets-side webhook body. Different sheet
// automations nest the row under "fields" or "data" and disagree on key
// casing, so decoding stays loose and normalization happens once here.
type sheetsPayload struct {
	Fields map[string]interface{} `json:"fields"`
	Data   map[string]interface{} `json:"data"`
}

func (p *sheetsPayload) fields() map[string]string {
	raw := p.Fields
	if len(raw) == 0 {
		raw = p.Data
	}
	if len(raw) == 0 {
		return nil
	}

	fields := make(map[string]string, len(raw))
	for k, v := range raw {
		key := strings.ToLower(strings.TrimSpace(k))
		// An exact-lowercase key wins over a cased duplicate.
		if _, exact := raw[key]; exact && key != k {
			continue
		}
		fields[key] = strings.TrimSpace(fmt.Sprint(v))
	}
	return fields
}

// SheetsWebhook handles a lead-side change notification.
func (s *Server) SheetsWebhook(c echo.Context) error {
	var payload sheetsPayload
	if err := c.Bind(&payload); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid JSON payload")
	}

	fields := payload.fields()
	if fields == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "no data in webhook payload")
	}

	ev := sync.LeadEvent{
		ID:      fields["id"],
		Name:    fields["name"],
		Email:   fields["email"],
		Phone:   fields["phone"],
		Company: fields["company"],
		Status:  fields["status"],
		Notes:   fields["notes"],
	}

	log.Printf("Sheets webhook: %s (%s)", ev.Name, ev.Email)
	outcome := s.engine.SyncFromLeadSide(c.Request().Context(), ev)

	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":  "processed",
		"message": fmt.Sprintf("Synced: %s", ev.Name),
		"result":  outcome,
	})
}

// trelloPayload mirrors the slice of Trello's webhook body the engine needs.
type trelloPayload struct {
	Action struct {
		Type string `json:"type"`
		Data struct {
			Card struct {
				ID     string `json:"id"`
				Name   string `json:"name"`
				IDList string `json:"idList"`
			} `json:"card"`
			ListAfter struct {
				ID string `json:"id"`
			} `json:"listAfter"`
		} `json:"data"`
	} `json:"action"`
}

// TrelloWebhook handles a task-side change notification. Only card movement
// actions are forwarded; everything else is acknowledged and dropped.
func (s *Server) TrelloWebhook(c echo.Context) error {
	var payload trelloPayload
	if err := c.Bind(&payload); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid JSON payload")
	}

	actionType := payload.Action.Type
	card := payload.Action.Data.Card

	laneID := card.IDList
	if laneID == "" {
		// Move actions carry the destination list separately.
		laneID = payload.Action.Data.ListAfter.ID
	}

	ev := sync.CardEvent{
		CardID:     card.ID,
		CardName:   card.Name,
		LaneID:     laneID,
		ActionType: actionType,
	}

	log.Printf("Trello webhook: %s card=%s", actionType, card.ID)
	outcome := s.engine.SyncFromTaskSide(c.Request().Context(), ev)

	status := "processed"
	if outcome.SkippedReason != "" {
		status = "ignored"
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":  status,
		"card_id": card.ID,
		"result":  outcome,
	})
}
