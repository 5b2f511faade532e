package handlers

import (
	"net/http"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/preston-bernstein/game-events-service/internal/domain/games"
	"github.com/preston-bernstein/game-events-service/internal/testutil"
	"github.com/preston-bernstein/game-events-service/internal/webhooks"
)

func newWebhookRouter(t *testing.T) (http.Handler, *webhooks.Registry) {
	t.Helper()
	reg := webhooks.NewRegistry(webhooks.RegistryOptions{})
	h := NewWebhookHandler(reg, nil)
	r := chi.NewRouter()
	r.Get("/webhooks", h.List)
	r.Post("/webhooks", h.Create)
	r.Get("/webhooks/{id}", h.Get)
	r.Post("/webhooks/{id}/enable", h.Enable)
	r.Post("/webhooks/{id}/disable", h.Disable)
	return r, reg
}

func TestCreateWebhook(t *testing.T) {
	router, reg := newWebhookRouter(t)
	body := `{"url":"https://example.com/hook","events":["game_started","game_ended"],"secret":"super-secret"}`

	rr := testutil.Serve(router, http.MethodPost, "/webhooks", strings.NewReader(body))
	testutil.AssertStatus(t, rr, http.StatusCreated)
	if strings.Contains(rr.Body.String(), "super-secret") {
		t.Fatalf("secret leaked in response: %s", rr.Body.String())
	}

	var sub webhooks.Subscription
	testutil.DecodeJSON(t, rr, &sub)
	if sub.ID == "" || !sub.Enabled || len(sub.EventTypes) != 2 {
		t.Fatalf("unexpected subscription %+v", sub)
	}
	if rr.Header().Get("Location") != "/webhooks/"+sub.ID {
		t.Fatalf("expected Location header, got %q", rr.Header().Get("Location"))
	}
	stored, err := reg.Get(sub.ID)
	if err != nil || stored.Secret != "super-secret" {
		t.Fatalf("expected secret stored in registry, got %+v err=%v", stored, err)
	}
}

func TestCreateWebhookValidation(t *testing.T) {
	router, reg := newWebhookRouter(t)
	cases := map[string]string{
		"bad url":       `{"url":"not a url","events":["game_started"],"secret":"super-secret"}`,
		"ftp url":       `{"url":"ftp://example.com","events":["game_started"],"secret":"super-secret"}`,
		"no events":     `{"url":"https://example.com","events":[],"secret":"super-secret"}`,
		"unknown event": `{"url":"https://example.com","events":["halftime"],"secret":"super-secret"}`,
		"short secret":  `{"url":"https://example.com","events":["game_started"],"secret":"x"}`,
		"unknown field": `{"url":"https://example.com","events":["game_started"],"secret":"super-secret","admin":true}`,
		"empty body":    ``,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			rr := testutil.Serve(router, http.MethodPost, "/webhooks", strings.NewReader(body))
			testutil.AssertStatus(t, rr, http.StatusBadRequest)
		})
	}
	if reg.Len() != 0 {
		t.Fatalf("expected nothing registered, got %d", reg.Len())
	}
}

func TestListGetEnableDisable(t *testing.T) {
	router, reg := newWebhookRouter(t)
	id, err := reg.Register("https://example.com/hook", []games.EventType{games.EventScoreChanged}, "super-secret")
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	rr := testutil.Serve(router, http.MethodGet, "/webhooks", nil)
	testutil.AssertStatus(t, rr, http.StatusOK)
	var list listResponse
	testutil.DecodeJSON(t, rr, &list)
	if list.Count != 1 || list.Subscriptions[0].ID != id {
		t.Fatalf("unexpected list %+v", list)
	}

	rr = testutil.Serve(router, http.MethodGet, "/webhooks/"+id, nil)
	testutil.AssertStatus(t, rr, http.StatusOK)

	rr = testutil.Serve(router, http.MethodPost, "/webhooks/"+id+"/disable", nil)
	testutil.AssertStatus(t, rr, http.StatusOK)
	if reg.IsEnabled(id) {
		t.Fatalf("expected subscription disabled")
	}

	rr = testutil.Serve(router, http.MethodPost, "/webhooks/"+id+"/enable", nil)
	testutil.AssertStatus(t, rr, http.StatusOK)
	var sub webhooks.Subscription
	testutil.DecodeJSON(t, rr, &sub)
	if !sub.Enabled || !reg.IsEnabled(id) {
		t.Fatalf("expected subscription enabled, got %+v", sub)
	}
}

func TestWebhookNotFound(t *testing.T) {
	router, _ := newWebhookRouter(t)
	testutil.AssertStatus(t, testutil.Serve(router, http.MethodGet, "/webhooks/missing", nil), http.StatusNotFound)
	testutil.AssertStatus(t, testutil.Serve(router, http.MethodPost, "/webhooks/missing/enable", nil), http.StatusNotFound)
	testutil.AssertStatus(t, testutil.Serve(router, http.MethodPost, "/webhooks/missing/disable", nil), http.StatusNotFound)
}

func TestValidationMessage(t *testing.T) {
	if got := validationMessage(nil); got != "invalid request" {
		t.Fatalf("unexpected fallback message %q", got)
	}
	h := NewWebhookHandler(webhooks.NewRegistry(webhooks.RegistryOptions{}), nil)
	err := h.validate.Struct(registerRequest{URL: "https://example.com", Events: []string{"game_started"}})
	if got := validationMessage(err); !strings.Contains(got, "Secret") {
		t.Fatalf("expected failing field named, got %q", got)
	}
}
