package handlers

import (
	"log/slog"
	nethttp "net/http"
	"time"

	"github.com/preston-bernstein/game-events-service/internal/detector"
	"github.com/preston-bernstein/game-events-service/internal/domain/games"
)

type nowFunc func() time.Time

// Handler serves health, readiness and tracked game state.
type Handler struct {
	logger   *slog.Logger
	now      nowFunc
	statusFn func() detector.Status
	gamesFn  func() []detector.GameState
}

// NewHandler constructs a Handler. Either function may be nil.
func NewHandler(statusFn func() detector.Status, gamesFn func() []detector.GameState, logger *slog.Logger) *Handler {
	return &Handler{
		logger:   logger,
		now:      time.Now,
		statusFn: statusFn,
		gamesFn:  gamesFn,
	}
}

// Health reports the process is up.
func (h *Handler) Health(w nethttp.ResponseWriter, r *nethttp.Request) {
	if err := r.Context().Err(); err != nil {
		writeError(w, r, nethttp.StatusServiceUnavailable, "shutting down", h.logger)
		return
	}
	writeJSON(w, nethttp.StatusOK, map[string]string{"status": "ok"}, h.logger)
}

// Ready reports whether the detector has polled successfully and recently.
func (h *Handler) Ready(w nethttp.ResponseWriter, r *nethttp.Request) {
	if h.statusFn == nil {
		writeJSON(w, nethttp.StatusOK, map[string]string{"status": "ready"}, h.logger)
		return
	}
	st := h.statusFn()
	if st.IsReady() {
		writeJSON(w, nethttp.StatusOK, readyResponse{
			Status:       "ready",
			LastSuccess:  st.LastSuccess,
			TrackedGames: st.TrackedGames,
		}, h.logger)
		return
	}
	msg := st.LastError
	if msg == "" {
		msg = "not ready"
	}
	writeError(w, r, nethttp.StatusServiceUnavailable, msg, h.logger)
}

type readyResponse struct {
	Status       string    `json:"status"`
	LastSuccess  time.Time `json:"last_success"`
	TrackedGames int       `json:"tracked_games"`
}

type gameView struct {
	games.Snapshot
	FirstSeen  time.Time  `json:"first_seen"`
	UpdatedAt  time.Time  `json:"updated_at"`
	FinalSince *time.Time `json:"final_since,omitempty"`
}

type gamesResponse struct {
	AsOf  time.Time  `json:"as_of"`
	Count int        `json:"count"`
	Games []gameView `json:"games"`
}

// Games lists the latest snapshot of every tracked game. An optional
// status query parameter filters by lifecycle status.
func (h *Handler) Games(w nethttp.ResponseWriter, r *nethttp.Request) {
	var filter games.Status
	if raw := r.URL.Query().Get("status"); raw != "" {
		filter = games.Status(raw)
		if !filter.Valid() {
			writeError(w, r, nethttp.StatusBadRequest, "invalid status (expected scheduled, live or final)", h.logger)
			return
		}
	}

	var states []detector.GameState
	if h.gamesFn != nil {
		states = h.gamesFn()
	}
	views := make([]gameView, 0, len(states))
	for _, st := range states {
		if filter != "" && st.Snapshot.Status != filter {
			continue
		}
		v := gameView{Snapshot: st.Snapshot, FirstSeen: st.FirstSeen, UpdatedAt: st.UpdatedAt}
		if !st.FinalSince.IsZero() {
			finalSince := st.FinalSince
			v.FinalSince = &finalSince
		}
		views = append(views, v)
	}

	logger := loggerFromContext(r, h.logger)
	if logger != nil {
		logger.Debug("served tracked games", "count", len(views))
	}
	writeJSON(w, nethttp.StatusOK, gamesResponse{AsOf: h.now().UTC(), Count: len(views), Games: views}, h.logger)
}

// NotFound answers unknown routes with a JSON error.
func (h *Handler) NotFound(w nethttp.ResponseWriter, r *nethttp.Request) {
	writeError(w, r, nethttp.StatusNotFound, "not found", h.logger)
}

// MethodNotAllowed answers known routes hit with the wrong method.
func (h *Handler) MethodNotAllowed(w nethttp.ResponseWriter, r *nethttp.Request) {
	writeError(w, r, nethttp.StatusMethodNotAllowed, "method not allowed", h.logger)
}
