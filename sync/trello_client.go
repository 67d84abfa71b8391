// ABOUTME: Trello task board adapter over the REST API
// ABOUTME: Lists/creates/moves cards with bounded retry on rate limits
package sync

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/harperreed/leadsync/models"
)

const (
	trelloBaseURL    = "https://api.trello.com/1"
	trelloMaxRetries = 3
	trelloTimeout    = 10 * time.Second
	trelloBaseDelay  = time.Second
)

// TrelloClient implements CardStore against a Trello board.
type TrelloClient struct {
	apiKey  string
	token   string
	boardID string
	baseURL string
	client  *http.Client
}

// NewTrelloClient creates a board-scoped client with a bounded per-request
// timeout so a hung remote call cannot stall unrelated reconciliation.
func NewTrelloClient(apiKey, token, boardID string) *TrelloClient {
	return &TrelloClient{
		apiKey:  apiKey,
		token:   token,
		boardID: boardID,
		baseURL: trelloBaseURL,
		client:  &http.Client{Timeout: trelloTimeout},
	}
}

type trelloCard struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Desc   string `json:"desc"`
	IDList string `json:"idList"`
}

// request performs one authenticated call with rate-limit retry. 429
// responses wait for Retry-After (or a doubling base delay) up to a bounded
// attempt count; 401 is a permanent auth failure and is never retried.
func (c *TrelloClient) request(ctx context.Context, method, path string, body map[string]string) ([]byte, error) {
	endpoint := fmt.Sprintf("%s/%s", c.baseURL, path)

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}
	}

	var lastErr error
	for attempt := 0; attempt < trelloMaxRetries; attempt++ {
		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}

		req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
		if err != nil {
			return nil, fmt.Errorf("failed to build request: %w", err)
		}
		q := url.Values{"key": {c.apiKey}, "token": {c.token}}
		req.URL.RawQuery = q.Encode()
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = err
			if ctx.Err() != nil {
				break
			}
			// Transient transport failure; back off and retry
			select {
			case <-time.After(trelloBaseDelay << attempt):
			case <-ctx.Done():
				return nil, &RemoteError{Service: "trello", Op: path, Err: ctx.Err()}
			}
			continue
		}

		data, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			wait := trelloBaseDelay << attempt
			if ra := resp.Header.Get("Retry-After"); ra != "" {
				if secs, err := strconv.Atoi(ra); err == nil {
					wait = time.Duration(secs) * time.Second
				}
			}
			log.Printf("Trello rate limit hit, retrying in %s", wait)
			lastErr = fmt.Errorf("%w (attempt %d)", ErrRateLimited, attempt+1)
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return nil, &RemoteError{Service: "trello", Op: path, Err: ctx.Err()}
			}
			continue

		case resp.StatusCode == http.StatusUnauthorized:
			return nil, &AuthError{Service: "trello", Err: fmt.Errorf("invalid credentials")}

		case resp.StatusCode < 200 || resp.StatusCode >= 300:
			return nil, &RemoteError{
				Service: "trello", Op: path, Status: resp.StatusCode,
				Err: fmt.Errorf("%s", string(data)),
			}
		}

		if readErr != nil {
			return nil, &RemoteError{Service: "trello", Op: path, Err: readErr}
		}
		return data, nil
	}

	return nil, &RemoteError{Service: "trello", Op: path, Err: fmt.Errorf("max retries exceeded: %w", lastErr)}
}

// ListCards fetches every card on the board, recovering each card's lead id
// from its description block.
func (c *TrelloClient) ListCards(ctx context.Context) ([]models.Card, error) {
	data, err := c.request(ctx, http.MethodGet, fmt.Sprintf("boards/%s/cards", c.boardID), nil)
	if err != nil {
		return nil, err
	}

	var raw []trelloCard
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &RemoteError{Service: "trello", Op: "list", Err: fmt.Errorf("failed to parse cards: %w", err)}
	}

	cards := make([]models.Card, 0, len(raw))
	for _, tc := range raw {
		cards = append(cards, models.Card{
			ID:          tc.ID,
			Title:       tc.Name,
			Description: tc.Desc,
			LaneID:      tc.IDList,
			LeadID:      models.ParseLeadIDFromDescription(tc.Desc),
		})
	}

	log.Printf("Fetched %d cards from Trello", len(cards))
	return cards, nil
}

// CreateCardInLane creates a card directly in the given lane.
func (c *TrelloClient) CreateCardInLane(ctx context.Context, laneID, title, description string) (string, error) {
	data, err := c.request(ctx, http.MethodPost, "cards", map[string]string{
		"name":   title,
		"idList": laneID,
		"desc":   description,
	})
	if err != nil {
		return "", err
	}

	var created trelloCard
	if err := json.Unmarshal(data, &created); err != nil {
		return "", &RemoteError{Service: "trello", Op: "create", Err: fmt.Errorf("failed to parse response: %w", err)}
	}

	log.Printf("Created card %s in lane %s", created.ID, laneID)
	return created.ID, nil
}

// UpdateCard moves and/or renames a card. An update with no fields set is a
// successful no-op.
func (c *TrelloClient) UpdateCard(ctx context.Context, cardID string, update CardUpdate) (bool, error) {
	body := map[string]string{}
	if update.LaneID != "" {
		body["idList"] = update.LaneID
	}
	if update.Title != "" {
		body["name"] = update.Title
	}
	if update.Description != "" {
		body["desc"] = update.Description
	}
	if len(body) == 0 {
		return true, nil
	}

	_, err := c.request(ctx, http.MethodPut, fmt.Sprintf("cards/%s", cardID), body)
	if err != nil {
		return false, err
	}

	log.Printf("Updated card %s", cardID)
	return true, nil
}
