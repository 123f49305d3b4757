package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"swift-gateway/internal/observability"
	"swift-gateway/internal/pipeline"
	"swift-gateway/internal/queue"
	"swift-gateway/internal/store"
	"swift-gateway/pkg/models"
)

// Handlers bridges HTTP requests to the pipeline control channel and the
// message store.
type Handlers struct {
	pipeline *pipeline.Pipeline
	store    store.MessageStore
	queues   queue.Adapter
}

// NewHandlers creates the handler set.
func NewHandlers(p *pipeline.Pipeline, s store.MessageStore, q queue.Adapter) *Handlers {
	return &Handlers{pipeline: p, store: s, queues: q}
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *Handlers) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		observability.WithComponent("api").WithError(err).Error("failed to encode response")
	}
}

func (h *Handlers) writeError(w http.ResponseWriter, status int, msg string) {
	h.writeJSON(w, status, errorResponse{Error: msg})
}

// HealthHandler reports queue backend health.
func (h *Handlers) HealthHandler(w http.ResponseWriter, r *http.Request) {
	if !h.queues.IsHealthy(r.Context()) {
		h.writeError(w, http.StatusServiceUnavailable, "queue backend unhealthy")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// StatusHandler reports the pipeline loop state.
func (h *Handlers) StatusHandler(w http.ResponseWriter, r *http.Request) {
	st, err := h.pipeline.GetStatus(r.Context())
	if err != nil {
		h.writeError(w, http.StatusServiceUnavailable, "pipeline is not running")
		return
	}
	h.writeJSON(w, http.StatusOK, st)
}

// StartHandler resumes the polling loop.
func (h *Handlers) StartHandler(w http.ResponseWriter, r *http.Request) {
	st, err := h.pipeline.Start(r.Context())
	if err != nil {
		h.writeError(w, http.StatusServiceUnavailable, "pipeline is not running")
		return
	}
	h.writeJSON(w, http.StatusOK, st)
}

// StopHandler pauses the polling loop; in-flight messages finish.
func (h *Handlers) StopHandler(w http.ResponseWriter, r *http.Request) {
	st, err := h.pipeline.Stop(r.Context())
	if err != nil {
		h.writeError(w, http.StatusServiceUnavailable, "pipeline is not running")
		return
	}
	h.writeJSON(w, http.StatusOK, st)
}

// RestartHandler stops and then resumes the polling loop.
func (h *Handlers) RestartHandler(w http.ResponseWriter, r *http.Request) {
	st, err := h.pipeline.Restart(r.Context())
	if err != nil {
		h.writeError(w, http.StatusServiceUnavailable, "pipeline is not running")
		return
	}
	h.writeJSON(w, http.StatusOK, st)
}

// GetMessageHandler loads one persisted message by id.
func (h *Handlers) GetMessageHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	msg, err := h.store.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			h.writeError(w, http.StatusNotFound, "message not found")
			return
		}
		observability.WithComponent("api").WithError(err).Error("failed to load message")
		h.writeError(w, http.StatusInternalServerError, "failed to load message")
		return
	}
	h.writeJSON(w, http.StatusOK, msg)
}

// ListMessagesHandler queries persisted messages by status, currency and
// transaction reference.
func (h *Handlers) ListMessagesHandler(w http.ResponseWriter, r *http.Request) {
	filter := store.Filter{
		Status:    models.Status(r.URL.Query().Get("status")),
		Currency:  r.URL.Query().Get("currency"),
		Reference: r.URL.Query().Get("reference"),
	}
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit < 1 {
			h.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		filter.Limit = limit
	}

	msgs, err := h.store.GetByFilter(r.Context(), filter)
	if err != nil {
		observability.WithComponent("api").WithError(err).Error("failed to query messages")
		h.writeError(w, http.StatusInternalServerError, "failed to query messages")
		return
	}
	if msgs == nil {
		msgs = []*models.MT103Message{}
	}
	h.writeJSON(w, http.StatusOK, msgs)
}
