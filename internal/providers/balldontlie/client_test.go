package balldontlie

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/preston-bernstein/game-events-service/internal/domain/games"
	"github.com/preston-bernstein/game-events-service/internal/providers"
)

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     make(http.Header),
	}
}

func TestFetchGamesHitsAPIAndMapsResponse(t *testing.T) {
	fixed := time.Date(2024, 1, 2, 3, 0, 0, 0, time.UTC) // should still yield 2024-01-01 in America/New_York
	var capturedAuth string
	var capturedQueries []string

	rt := roundTripperFunc(func(req *http.Request) (*http.Response, error) {
		if req.URL.Path != "/games" {
			t.Fatalf("expected /games path, got %s", req.URL.Path)
		}
		capturedQueries = append(capturedQueries, req.URL.RawQuery)
		capturedAuth = req.Header.Get("Authorization")

		if len(capturedQueries) == 1 {
			return jsonResponse(http.StatusOK, `{
				"data": [
					{
						"id": 10,
						"date": "2024-01-02",
						"status": "3rd Qtr",
						"time": " 4:12 ",
						"period": 3,
						"home_team": { "id": 1, "abbreviation": "bos" },
						"visitor_team": { "id": 2, "abbreviation": "NYK" },
						"home_team_score": 80,
						"visitor_team_score": 72,
						"season": 2023
					}
				],
				"meta": { "total_pages": 2 }
			}`), nil
		}
		return jsonResponse(http.StatusOK, `{
			"data": [
				{
					"id": 11,
					"date": "2024-01-02",
					"status": "Final",
					"period": 4,
					"home_team": { "id": 3, "abbreviation": "LAL" },
					"visitor_team": { "id": 4, "abbreviation": "GSW" },
					"home_team_score": 120,
					"visitor_team_score": 115,
					"season": 2023
				}
			],
			"meta": { "total_pages": 2 }
		}`), nil
	})

	client := NewClient(Config{
		BaseURL:    "http://example.com/",
		APIKey:     "secret",
		HTTPClient: &http.Client{Transport: rt},
		Timezone:   "America/New_York",
		MaxPages:   2,
	})
	client.now = func() time.Time { return fixed }

	got, err := client.FetchGames(context.Background(), "")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if capturedAuth != "secret" {
		t.Fatalf("expected authorization header, got %s", capturedAuth)
	}
	if len(capturedQueries) != 2 {
		t.Fatalf("expected 2 requests (pagination), got %d", len(capturedQueries))
	}
	q, err := url.ParseQuery(capturedQueries[0])
	if err != nil {
		t.Fatalf("failed parsing query %s: %v", capturedQueries[0], err)
	}
	if q.Get("per_page") != "100" || q.Get("page") != "1" {
		t.Fatalf("unexpected paging params %v", q)
	}
	if q.Get("dates[]") != "2024-01-01" {
		t.Fatalf("expected date=2024-01-01 in NY, got %s", q.Get("dates[]"))
	}
	if len(got) != 2 {
		t.Fatalf("expected games from both pages, got %d", len(got))
	}

	live := got[0]
	if live.GameID != "balldontlie-nba-10" || live.League != games.LeagueNBA {
		t.Fatalf("unexpected identifiers %+v", live)
	}
	if live.HomeTeam != "BOS" || live.AwayTeam != "NYK" {
		t.Fatalf("unexpected teams %+v", live)
	}
	if live.Status != games.StatusLive || live.Period != 3 || live.TimeRemaining != "4:12" {
		t.Fatalf("unexpected live mapping %+v", live)
	}
	if live.HomeScore != 80 || live.AwayScore != 72 {
		t.Fatalf("unexpected scores %+v", live)
	}
	if !live.ObservedAt.Equal(fixed) {
		t.Fatalf("expected observed_at from clock, got %s", live.ObservedAt)
	}
	if got[1].Status != games.StatusFinal {
		t.Fatalf("expected final status, got %s", got[1].Status)
	}
}

func TestFetchGamesFollowsCursor(t *testing.T) {
	var queries []url.Values
	rt := roundTripperFunc(func(req *http.Request) (*http.Response, error) {
		queries = append(queries, req.URL.Query())
		if len(queries) == 1 {
			return jsonResponse(http.StatusOK, `{"data":[{"id":1,"quarter":2,"status":"2nd Quarter","home_team":{"abbreviation":"KC"},"visitor_team":{"abbreviation":"BUF"},"home_team_score":7,"visitor_team_score":3}],"meta":{"next_cursor":55}}`), nil
		}
		return jsonResponse(http.StatusOK, `{"data":[],"meta":{}}`), nil
	})
	client := NewClient(Config{League: games.LeagueNFL, HTTPClient: &http.Client{Transport: rt}})

	got, err := client.FetchGames(context.Background(), "2024-01-14")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(queries) != 2 || queries[1].Get("cursor") != "55" {
		t.Fatalf("expected cursor on second request, got %v", queries)
	}
	if queries[0].Get("dates[]") != "2024-01-14" {
		t.Fatalf("expected explicit date, got %s", queries[0].Get("dates[]"))
	}
	if len(got) != 1 || got[0].League != games.LeagueNFL || got[0].Period != 2 || got[0].Status != games.StatusLive {
		t.Fatalf("unexpected NFL mapping %+v", got)
	}
	if client.baseURL != defaultNFLBaseURL {
		t.Fatalf("expected NFL default base URL, got %s", client.baseURL)
	}
}

func TestFetchGamesHandlesNon200(t *testing.T) {
	rt := roundTripperFunc(func(req *http.Request) (*http.Response, error) {
		_ = req
		return jsonResponse(http.StatusBadGateway, "boom"), nil
	})

	client := NewClient(Config{
		BaseURL:    "http://example.com",
		HTTPClient: &http.Client{Transport: rt},
	})

	_, err := client.FetchGames(context.Background(), "")
	if err == nil || !strings.Contains(err.Error(), "502") {
		t.Fatalf("expected status error, got %v", err)
	}
}

func TestFetchGamesReturnsRateLimitError(t *testing.T) {
	rt := roundTripperFunc(func(req *http.Request) (*http.Response, error) {
		resp := jsonResponse(http.StatusTooManyRequests, "")
		resp.Header.Set("Retry-After", "30")
		return resp, nil
	})
	client := NewClient(Config{HTTPClient: &http.Client{Transport: rt}})

	_, err := client.FetchGames(context.Background(), "")
	rl, ok := providers.AsRateLimitError(err)
	if !ok {
		t.Fatalf("expected rate limit error, got %v", err)
	}
	if rl.RetryAfter != 30*time.Second || rl.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("unexpected rate limit error %+v", rl)
	}
}

func TestFetchGamesHandlesDecodeError(t *testing.T) {
	rt := roundTripperFunc(func(req *http.Request) (*http.Response, error) {
		_ = req
		return jsonResponse(http.StatusOK, "{bad json"), nil
	})

	client := NewClient(Config{
		BaseURL:    "http://example.com",
		HTTPClient: &http.Client{Transport: rt},
	})

	if _, err := client.FetchGames(context.Background(), ""); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestFetchGamesWrapsTransportErrors(t *testing.T) {
	boom := errors.New("dial tcp: refused")
	rt := roundTripperFunc(func(req *http.Request) (*http.Response, error) { return nil, boom })
	client := NewClient(Config{HTTPClient: &http.Client{Transport: rt}})
	if _, err := client.FetchGames(context.Background(), ""); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped transport error, got %v", err)
	}
}

func TestFetchGamesRespectsMaxPagesCap(t *testing.T) {
	calls := 0
	rt := roundTripperFunc(func(req *http.Request) (*http.Response, error) {
		calls++
		return jsonResponse(http.StatusOK, `{
			"data": [{"id": 1, "status": "Final", "home_team": {"abbreviation": "A"}, "visitor_team": {"abbreviation": "B"}}],
			"meta": { "total_pages": 10 }
		}`), nil
	})

	client := NewClient(Config{
		BaseURL:    "http://example.com",
		HTTPClient: &http.Client{Transport: rt},
		MaxPages:   1,
	})

	got, err := client.FetchGames(context.Background(), "")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 game, got %d", len(got))
	}
	if calls != 1 {
		t.Fatalf("expected to stop after max pages, got %d calls", calls)
	}
}

func TestNewClientSetsDefaultHTTPClient(t *testing.T) {
	c := NewClient(Config{})
	httpClient, ok := c.httpClient.(*http.Client)
	if !ok {
		t.Fatalf("expected default http client")
	}
	if httpClient.Timeout == 0 {
		t.Fatalf("expected timeout to be set on default http client")
	}
	if c.League() != games.LeagueNBA {
		t.Fatalf("expected NBA default league")
	}
}

type roundTripperFunc func(req *http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}
