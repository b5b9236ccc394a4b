package simulate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/okian/placar/internal/domain/model"
)

const (
	maxAttempts    = 6
	initialBackoff = 25 * time.Millisecond
	maxErrorBody   = 512
)

// outcome of a single submission.
type outcome int

const (
	outcomeAccepted outcome = iota
	outcomeDuplicate
)

// Client talks to the placar HTTP API.
type Client struct {
	base string
	http *http.Client
}

// NewClient creates a Client for the server at baseURL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		base: strings.TrimRight(baseURL, "/"),
		http: &http.Client{Timeout: timeout},
	}
}

type ack struct {
	Status    string `json:"status"`
	ID        string `json:"id"`
	Duplicate bool   `json:"duplicate"`
}

type matchBody struct {
	ID             string `json:"id"`
	ChampionshipID string `json:"championship_id"`
	HomeTeamID     string `json:"home_team_id"`
	HomeTeamName   string `json:"home_team_name"`
	AwayTeamID     string `json:"away_team_id"`
	AwayTeamName   string `json:"away_team_name"`
	HomeScore      *int   `json:"home_score"`
	AwayScore      *int   `json:"away_score"`
	Status         string `json:"status"`
}

type eventBody struct {
	EventID    string `json:"event_id"`
	MatchID    string `json:"match_id"`
	Kind       string `json:"kind"`
	TeamID     string `json:"team_id"`
	TeamName   string `json:"team_name"`
	PlayerID   string `json:"player_id,omitempty"`
	PlayerName string `json:"player_name,omitempty"`
	Minute     *int   `json:"minute,omitempty"`
}

// Health checks GET /healthz.
func (c *Client) Health(ctx context.Context) error {
	resp, err := c.do(ctx, http.MethodGet, "/healthz", nil)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnhealthy, err)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrUnhealthy, resp.StatusCode)
	}
	return nil
}

// SubmitMatch posts a match result, retrying on backpressure.
func (c *Client) SubmitMatch(ctx context.Context, m model.MatchRecord) (retries int, err error) { //nolint:gocritic // hugeParam: records are values across layers
	_, retries, err = c.submit(ctx, "/matches", matchBody{
		ID:             m.ID,
		ChampionshipID: m.ChampionshipID,
		HomeTeamID:     m.HomeTeamID,
		HomeTeamName:   m.HomeTeamName,
		AwayTeamID:     m.AwayTeamID,
		AwayTeamName:   m.AwayTeamName,
		HomeScore:      m.HomeScore,
		AwayScore:      m.AwayScore,
		Status:         string(m.Status),
	})
	return retries, err
}

// SubmitEvent posts a match event, retrying on backpressure.
func (c *Client) SubmitEvent(ctx context.Context, e model.GoalEvent) (o outcome, retries int, err error) { //nolint:gocritic // hugeParam: records are values across layers
	return c.submit(ctx, "/events", eventBody{
		EventID:    e.ID,
		MatchID:    e.MatchID,
		Kind:       string(e.Kind),
		TeamID:     e.TeamID,
		TeamName:   e.TeamName,
		PlayerID:   e.PlayerID,
		PlayerName: e.PlayerName,
		Minute:     e.Minute,
	})
}

func (c *Client) submit(ctx context.Context, path string, body any) (outcome, int, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return 0, 0, fmt.Errorf("marshal %s: %w", path, err)
	}

	backoff := initialBackoff
	for attempt := 0; ; attempt++ {
		resp, err := c.do(ctx, http.MethodPost, path, payload)
		if err != nil {
			return 0, attempt, err
		}
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		_ = resp.Body.Close()

		switch resp.StatusCode {
		case http.StatusAccepted:
			return outcomeAccepted, attempt, nil
		case http.StatusOK:
			var a ack
			if err := json.Unmarshal(raw, &a); err == nil && a.Duplicate {
				return outcomeDuplicate, attempt, nil
			}
			return outcomeAccepted, attempt, nil
		case http.StatusTooManyRequests:
			if attempt+1 >= maxAttempts {
				return 0, attempt, fmt.Errorf("%s: %w: backpressure after %d attempts", path, ErrRejected, maxAttempts)
			}
			select {
			case <-ctx.Done():
				return 0, attempt, ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		default:
			return 0, attempt, fmt.Errorf("%s: %w: status %d: %s", path, ErrRejected, resp.StatusCode, bytes.TrimSpace(raw))
		}
	}
}

// Pending reads the number of accepted submissions not yet written from GET /stats.
func (c *Client) Pending(ctx context.Context) (int64, error) {
	var body struct {
		Pending int64 `json:"pending"`
	}
	if err := c.getJSON(ctx, "/stats", &body); err != nil {
		return 0, err
	}
	return body.Pending, nil
}

// Statistics fetches GET /statistics for one championship.
func (c *Client) Statistics(ctx context.Context, championshipID string, limit int) (model.Statistics, error) {
	q := url.Values{}
	if championshipID != "" {
		q.Set("championship", championshipID)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var out model.Statistics
	err := c.getJSON(ctx, "/statistics?"+q.Encode(), &out)
	return out, err
}

func (c *Client) getJSON(ctx context.Context, path string, dst any) error {
	resp, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fmt.Errorf("GET %s: status %d: %s", path, resp.StatusCode, bytes.TrimSpace(raw))
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte) (*http.Response, error) {
	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, r)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	return resp, nil
}
