package handlers

import (
	"errors"
	"log/slog"
	nethttp "net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/preston-bernstein/game-events-service/internal/logging"
	"github.com/preston-bernstein/game-events-service/internal/webhooks"
)

// WebhookHandler exposes subscription registration and health controls.
type WebhookHandler struct {
	registry *webhooks.Registry
	validate *validator.Validate
	logger   *slog.Logger
}

// NewWebhookHandler constructs a WebhookHandler over registry.
func NewWebhookHandler(registry *webhooks.Registry, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{
		registry: registry,
		validate: validator.New(),
		logger:   logger,
	}
}

type registerRequest struct {
	URL    string   `json:"url" validate:"required,url,startswith=http"`
	Events []string `json:"events" validate:"required,min=1,dive,oneof=game_started score_changed game_ended"`
	Secret string   `json:"secret" validate:"required,min=8"`
}

type listResponse struct {
	Count         int                     `json:"count"`
	Subscriptions []webhooks.Subscription `json:"subscriptions"`
}

// List returns every subscription.
func (h *WebhookHandler) List(w nethttp.ResponseWriter, r *nethttp.Request) {
	subs := h.registry.List()
	writeJSON(w, nethttp.StatusOK, listResponse{Count: len(subs), Subscriptions: subs}, h.logger)
}

// Create registers a subscription from {url, events, secret}.
func (h *WebhookHandler) Create(w nethttp.ResponseWriter, r *nethttp.Request) {
	logger := loggerFromContext(r, h.logger)

	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, nethttp.StatusBadRequest, err.Error(), logger)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, r, nethttp.StatusBadRequest, validationMessage(err), logger)
		return
	}
	events, err := webhooks.ParseEventTypes(req.Events)
	if err != nil {
		writeError(w, r, nethttp.StatusBadRequest, err.Error(), logger)
		return
	}

	id, err := h.registry.Register(req.URL, events, req.Secret)
	if err != nil {
		h.writeRegistryError(w, r, err, logger)
		return
	}
	sub, err := h.registry.Get(id)
	if err != nil {
		h.writeRegistryError(w, r, err, logger)
		return
	}
	logging.Info(logger, "webhook subscription created", logging.FieldSubscriptionID, id)
	w.Header().Set("Location", "/webhooks/"+id)
	writeJSON(w, nethttp.StatusCreated, sub, logger)
}

// Get returns one subscription.
func (h *WebhookHandler) Get(w nethttp.ResponseWriter, r *nethttp.Request) {
	sub, err := h.registry.Get(chi.URLParam(r, "id"))
	if err != nil {
		h.writeRegistryError(w, r, err, h.logger)
		return
	}
	writeJSON(w, nethttp.StatusOK, sub, h.logger)
}

// Enable re-enables a subscription, typically one the circuit breaker disabled.
func (h *WebhookHandler) Enable(w nethttp.ResponseWriter, r *nethttp.Request) {
	sub, err := h.registry.Enable(chi.URLParam(r, "id"))
	if err != nil {
		h.writeRegistryError(w, r, err, h.logger)
		return
	}
	writeJSON(w, nethttp.StatusOK, sub, h.logger)
}

// Disable stops deliveries to a subscription.
func (h *WebhookHandler) Disable(w nethttp.ResponseWriter, r *nethttp.Request) {
	sub, err := h.registry.Disable(chi.URLParam(r, "id"))
	if err != nil {
		h.writeRegistryError(w, r, err, h.logger)
		return
	}
	writeJSON(w, nethttp.StatusOK, sub, h.logger)
}

func (h *WebhookHandler) writeRegistryError(w nethttp.ResponseWriter, r *nethttp.Request, err error, logger *slog.Logger) {
	switch {
	case errors.Is(err, webhooks.ErrNotFound):
		writeError(w, r, nethttp.StatusNotFound, "subscription not found", logger)
	case errors.Is(err, webhooks.ErrInvalidSubscription):
		writeError(w, r, nethttp.StatusBadRequest, err.Error(), logger)
	default:
		logging.Error(logger, "webhook registry failure", err)
		writeError(w, r, nethttp.StatusInternalServerError, "internal error", logger)
	}
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "invalid request"
	}
	fe := verrs[0]
	return "invalid field " + fe.Field() + ": failed " + fe.Tag()
}
