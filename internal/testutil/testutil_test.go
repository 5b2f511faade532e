package testutil

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/preston-bernstein/game-events-service/internal/domain/games"
)

func TestClockHelpers(t *testing.T) {
	now := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	if got := NowAt(now)(); !got.Equal(now) {
		t.Fatalf("expected fixed time, got %v", got)
	}
	if MustParseRFC3339(now.Format(time.RFC3339)) != now {
		t.Fatalf("expected parse round trip")
	}
	defer func() {
		if r := recover(); r == nil {
			t.Fatalf("expected panic on invalid RFC3339")
		}
	}()
	MustParseRFC3339("not-a-time")
}

func TestManualClockAdvances(t *testing.T) {
	c := NewManualClock(SampleTime)
	c.Advance(time.Minute)
	if got := c.Now(); !got.Equal(SampleTime.Add(time.Minute)) {
		t.Fatalf("expected advanced time, got %v", got)
	}
}

func TestFixturesHelper(t *testing.T) {
	s := SampleSnapshot("id-1", games.StatusLive, 3, 1)
	if s.GameID != "id-1" || s.HomeScore != 3 || len(s.Anomalies()) != 0 {
		t.Fatalf("unexpected snapshot fixture %+v", s)
	}
	ev := SampleEvent("id-1", 2, 0)
	if ev.Type != games.EventScoreChanged || ev.ScoreDiff().Home != 2 {
		t.Fatalf("unexpected event fixture %+v", ev)
	}
}

func TestServeHelpers(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"ok":true}`))
	})

	rr := Serve(handler, http.MethodPost, "/test", strings.NewReader("{}"))
	AssertStatus(t, rr, http.StatusCreated)
	var body map[string]bool
	DecodeJSON(t, rr, &body)
	if !body["ok"] {
		t.Fatalf("expected ok=true")
	}

	req := httptest.NewRequest(http.MethodGet, "/req", nil)
	rr2 := ServeRequest(handler, req)
	AssertStatus(t, rr2, http.StatusCreated)
}

func TestHTTPHelperErrorFormatting(t *testing.T) {
	rr := httptest.NewRecorder()
	rr.WriteHeader(http.StatusBadRequest)
	rr.WriteString(strings.Repeat("x", 600))

	if err := statusError(rr, http.StatusOK); err == nil {
		t.Fatalf("expected status error")
	} else if !strings.Contains(err.Error(), "body=") {
		t.Fatalf("expected body snippet in error, got %v", err)
	}

	rr = httptest.NewRecorder()
	rr.WriteHeader(http.StatusOK)
	if err := statusError(rr, http.StatusOK); err != nil {
		t.Fatalf("expected nil error when status matches, got %v", err)
	}

	rr = httptest.NewRecorder()
	rr.WriteString("not-json")
	var dest map[string]any
	if err := decodeJSONBody(rr, &dest); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestReceiverScriptsStatusCodes(t *testing.T) {
	r := NewReceiver(t, http.StatusInternalServerError, http.StatusOK)

	for _, want := range []int{http.StatusInternalServerError, http.StatusOK, http.StatusOK} {
		resp, err := http.Post(r.URL, "application/json", strings.NewReader(`{"a":1}`))
		if err != nil {
			t.Fatalf("post failed: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != want {
			t.Fatalf("expected %d, got %d", want, resp.StatusCode)
		}
	}
	reqs := r.Requests()
	if r.Count() != 3 || string(reqs[0].Body) != `{"a":1}` {
		t.Fatalf("unexpected captured requests %+v", reqs)
	}
	if reqs[0].Header.Get("Content-Type") != "application/json" {
		t.Fatalf("expected headers captured")
	}
}

func TestBufferLogger(t *testing.T) {
	logger, buf := NewBufferLogger()
	logger.Debug("hello", "k", "v")
	if buf.Len() == 0 || !strings.Contains(buf.String(), "hello") {
		t.Fatalf("expected buffered log output")
	}
}
