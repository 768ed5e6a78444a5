package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/collabthon/collabthon-api/internal/authz"
	"github.com/collabthon/collabthon-api/internal/collaboration"
	"github.com/collabthon/collabthon-api/internal/models"
	"github.com/collabthon/collabthon-api/internal/repository"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
)

type CollaborationHandler struct {
	service collaboration.Service
	logger  zerolog.Logger
}

type createCollaborationRequest struct {
	ReceiverID string  `json:"receiver_id" validate:"required"`
	ProjectID  *string `json:"project_id,omitempty"`
	Message    string  `json:"message,omitempty" validate:"max=2000"`
}

func NewCollaborationHandler(service collaboration.Service, logger zerolog.Logger) *CollaborationHandler {
	return &CollaborationHandler{
		service: service,
		logger:  logger.With().Str("handler", "collaboration").Logger(),
	}
}

func (h *CollaborationHandler) Create(w http.ResponseWriter, r *http.Request) {
	senderID, ok := authz.UserIDFromRequest(r)
	if !ok {
		http.Error(w, "Missing user context", http.StatusUnauthorized)
		return
	}

	var payload createCollaborationRequest
	if err := decodeAndValidate(r, &payload); err != nil {
		http.Error(w, "Invalid request payload: "+err.Error(), http.StatusBadRequest)
		return
	}

	created, err := h.service.Create(r.Context(), senderID, collaboration.CreateInput{
		ReceiverID: payload.ReceiverID,
		ProjectID:  payload.ProjectID,
		Message:    payload.Message,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *CollaborationHandler) Get(w http.ResponseWriter, r *http.Request) {
	actorID, ok := authz.UserIDFromRequest(r)
	if !ok {
		http.Error(w, "Missing user context", http.StatusUnauthorized)
		return
	}

	req, err := h.service.Get(r.Context(), mux.Vars(r)["requestID"], actorID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

func (h *CollaborationHandler) Accept(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.Accept)
}

func (h *CollaborationHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.Reject)
}

func (h *CollaborationHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.Cancel)
}

func (h *CollaborationHandler) transition(
	w http.ResponseWriter,
	r *http.Request,
	op func(ctx context.Context, requestID, actorID string) (models.CollaborationRequest, error),
) {
	actorID, ok := authz.UserIDFromRequest(r)
	if !ok {
		http.Error(w, "Missing user context", http.StatusUnauthorized)
		return
	}

	updated, err := op(r.Context(), mux.Vars(r)["requestID"], actorID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *CollaborationHandler) ListSent(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, repository.DirectionSent)
}

func (h *CollaborationHandler) ListReceived(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, repository.DirectionReceived)
}

func (h *CollaborationHandler) list(w http.ResponseWriter, r *http.Request, direction repository.Direction) {
	userID, ok := authz.UserIDFromRequest(r)
	if !ok {
		http.Error(w, "Missing user context", http.StatusUnauthorized)
		return
	}

	params := repository.CollaborationListParams{
		UserID:    userID,
		Direction: direction,
		Cursor:    strings.TrimSpace(r.URL.Query().Get("cursor")),
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			params.Limit = parsed
		}
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
		status := models.CollaborationStatus(raw)
		if !models.IsValidCollaborationStatus(status) {
			http.Error(w, "Invalid status filter", http.StatusBadRequest)
			return
		}
		params.Status = &status
	}

	requests, next, err := h.service.List(r.Context(), params)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"requests":    requests,
		"next_cursor": next,
	})
}

func (h *CollaborationHandler) Stats(w http.ResponseWriter, r *http.Request) {
	userID, ok := authz.UserIDFromRequest(r)
	if !ok {
		http.Error(w, "Missing user context", http.StatusUnauthorized)
		return
	}

	stats, err := h.service.Stats(r.Context(), userID)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to compute collaboration stats")
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
