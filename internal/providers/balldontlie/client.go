package balldontlie

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	json "github.com/goccy/go-json"

	"github.com/preston-bernstein/game-events-service/internal/domain/games"
	"github.com/preston-bernstein/game-events-service/internal/providers"
	"github.com/preston-bernstein/game-events-service/internal/timeutil"
)

// Config controls how the balldontlie client reaches the upstream API.
type Config struct {
	League     games.League
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
	Timezone   string
	MaxPages   int
}

// Client fetches one league's games from the balldontlie API and maps them to snapshots.
type Client struct {
	league     games.League
	baseURL    string
	apiKey     string
	httpClient httpDoer
	now        func() time.Time
	loc        *time.Location
	maxPages   int
}

// NewClient constructs a balldontlie client with the provided configuration.
func NewClient(cfg Config) *Client {
	league := cfg.League
	if league == "" {
		league = games.LeagueNBA
	}
	fallback := defaultNBABaseURL
	if league == games.LeagueNFL {
		fallback = defaultNFLBaseURL
	}
	return &Client{
		league:     league,
		baseURL:    normalizeBaseURL(cfg.BaseURL, fallback),
		apiKey:     cfg.APIKey,
		httpClient: resolveHTTPClient(cfg.HTTPClient),
		now:        time.Now,
		loc:        resolveLocation(cfg.Timezone),
		maxPages:   resolveMaxPages(cfg.MaxPages),
	}
}

// League reports which league the client serves.
func (c *Client) League() games.League {
	return c.league
}

// FetchGames retrieves the games scheduled on date (today when empty).
func (c *Client) FetchGames(ctx context.Context, date string) ([]games.Snapshot, error) {
	page := 1
	var cursor *int
	observedAt := c.now().UTC()
	all := make([]games.Snapshot, 0)

	for {
		req, err := c.buildRequest(ctx, date, page, cursor)
		if err != nil {
			return nil, err
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("balldontlie %s: %w", c.league, err)
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			resp.Body.Close()
			return nil, &providers.RateLimitError{
				Provider:   providerName,
				StatusCode: resp.StatusCode,
				RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After"), c.now()),
				Remaining:  resp.Header.Get("X-RateLimit-Remaining"),
				Message:    "balldontlie rate limited",
			}
		}
		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
			resp.Body.Close()
			return nil, fmt.Errorf("balldontlie %s: unexpected status %d: %s", c.league, resp.StatusCode, strings.TrimSpace(string(body)))
		}

		var payload gamesResponse
		if decodeErr := json.NewDecoder(resp.Body).Decode(&payload); decodeErr != nil {
			resp.Body.Close()
			return nil, fmt.Errorf("balldontlie %s: decode games: %w", c.league, decodeErr)
		}
		resp.Body.Close()

		for _, g := range payload.Data {
			all = append(all, mapGame(c.league, g, observedAt))
		}

		if !c.hasMore(payload, page) {
			break
		}
		cursor = payload.Meta.NextCursor
		page++
	}

	return all, nil
}

func (c *Client) hasMore(payload gamesResponse, page int) bool {
	if page >= c.maxPages {
		return false
	}
	if payload.Meta.NextCursor != nil {
		return true
	}
	if payload.Meta.TotalPages > 0 {
		return page < payload.Meta.TotalPages
	}
	return len(payload.Data) >= defaultPerPage
}

func (c *Client) buildRequest(ctx context.Context, date string, page int, cursor *int) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/games", nil)
	if err != nil {
		return nil, err
	}

	q := req.URL.Query()
	q.Set("dates[]", c.resolveDate(date))
	q.Set("per_page", strconv.Itoa(defaultPerPage))
	if cursor != nil {
		q.Set("cursor", strconv.Itoa(*cursor))
	} else {
		q.Set("page", strconv.Itoa(page))
	}
	req.URL.RawQuery = q.Encode()

	if c.apiKey != "" {
		req.Header.Set("Authorization", c.apiKey)
	}
	req.Header.Set("Accept", "application/json")

	return req, nil
}

func (c *Client) resolveDate(date string) string {
	if date != "" {
		if _, err := timeutil.ParseDate(date); err == nil {
			return date
		}
	}
	return timeutil.FormatDate(c.now().In(c.loc))
}
