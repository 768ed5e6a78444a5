package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/collabthon/collabthon-api/internal/authz"
	"github.com/collabthon/collabthon-api/internal/collaboration"
	"github.com/collabthon/collabthon-api/internal/models"
	"github.com/collabthon/collabthon-api/internal/notification"
	"github.com/collabthon/collabthon-api/internal/repository"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
)

// New project listings expire after 30 days unless resolved sooner.
const projectTTL = 30 * 24 * time.Hour

type ProjectHandler struct {
	projects       repository.ProjectRepository
	subscriptions  repository.SubscriptionRepository
	collaborations repository.CollaborationRepository
	notifications  notification.Service
	logger         zerolog.Logger
}

type projectRequest struct {
	Title          string   `json:"title" validate:"required,max=255"`
	Description    string   `json:"description" validate:"required,max=8000"`
	RequiredSkills []string `json:"required_skills" validate:"max=50,dive,max=100"`
	BudgetMin      *float64 `json:"budget_min" validate:"omitempty,gte=0"`
	BudgetMax      *float64 `json:"budget_max" validate:"omitempty,gte=0"`
	Timeline       string   `json:"timeline" validate:"max=100"`
	IsRemote       *bool    `json:"is_remote"`
}

func NewProjectHandler(
	projects repository.ProjectRepository,
	subscriptions repository.SubscriptionRepository,
	collaborations repository.CollaborationRepository,
	notifications notification.Service,
	logger zerolog.Logger,
) *ProjectHandler {
	return &ProjectHandler{
		projects:       projects,
		subscriptions:  subscriptions,
		collaborations: collaborations,
		notifications:  notifications,
		logger:         logger.With().Str("handler", "project").Logger(),
	}
}

func (h *ProjectHandler) Create(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := authz.UserIDFromRequest(r)
	if !ok {
		http.Error(w, "Missing user context", http.StatusUnauthorized)
		return
	}

	var payload projectRequest
	if err := decodeAndValidate(r, &payload); err != nil {
		http.Error(w, "Invalid request payload: "+err.Error(), http.StatusBadRequest)
		return
	}

	plan := models.PlanFree
	if sub, err := h.subscriptions.GetByUserID(ownerID); err == nil {
		plan = sub.EffectivePlan(time.Now())
	} else if !errors.Is(err, models.ErrNotFound) {
		writeError(w, err)
		return
	}
	if cap := collaboration.OpenProjectCap(plan); cap >= 0 {
		open, err := h.projects.CountOpenByOwner(ownerID)
		if err != nil {
			writeError(w, err)
			return
		}
		if open >= cap {
			writeError(w, models.ErrEntitlementDenied)
			return
		}
	}

	isRemote := true
	if payload.IsRemote != nil {
		isRemote = *payload.IsRemote
	}
	expiresAt := time.Now().Add(projectTTL)

	project, err := h.projects.Create(models.Project{
		OwnerID:        ownerID,
		Title:          payload.Title,
		Description:    payload.Description,
		RequiredSkills: payload.RequiredSkills,
		BudgetMin:      payload.BudgetMin,
		BudgetMax:      payload.BudgetMax,
		Timeline:       payload.Timeline,
		IsRemote:       isRemote,
		ExpiresAt:      &expiresAt,
	})
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to create project")
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, project)
}

func (h *ProjectHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := repository.ProjectFilter{
		Skill: strings.TrimSpace(query.Get("skill")),
	}
	if raw := query.Get("min_budget"); raw != "" {
		if v, err := strconv.ParseFloat(raw, 64); err == nil {
			filter.MinBudget = &v
		}
	}
	if raw := query.Get("max_budget"); raw != "" {
		if v, err := strconv.ParseFloat(raw, 64); err == nil {
			filter.MaxBudget = &v
		}
	}
	if raw := query.Get("remote_only"); raw != "" {
		if v, err := strconv.ParseBool(raw); err == nil {
			filter.RemoteOnly = &v
		}
	}
	if raw := query.Get("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			filter.Limit = v
		}
	}
	if raw := query.Get("offset"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v >= 0 {
			filter.Offset = v
		}
	}

	projects, total, err := h.projects.ListOpen(filter)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to list projects")
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"items": projects,
		"total": total,
	})
}

func (h *ProjectHandler) Get(w http.ResponseWriter, r *http.Request) {
	project, err := h.projects.GetByID(mux.Vars(r)["projectID"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, project)
}

// UpdateStatus lets the owner move a project through its lifecycle. Closing
// or completing a project cancels its pending collaboration requests and
// notifies their receivers.
func (h *ProjectHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := authz.UserIDFromRequest(r)
	if !ok {
		http.Error(w, "Missing user context", http.StatusUnauthorized)
		return
	}

	var payload struct {
		Status models.ProjectStatus `json:"status" validate:"required"`
	}
	if err := decodeAndValidate(r, &payload); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	if !models.IsValidProjectStatus(payload.Status) {
		http.Error(w, "Invalid project status", http.StatusBadRequest)
		return
	}

	project, err := h.projects.UpdateStatus(mux.Vars(r)["projectID"], ownerID, payload.Status)
	if err != nil {
		writeError(w, err)
		return
	}

	if !project.IsOpen() {
		cancelled, err := h.collaborations.CancelPendingByProject(r.Context(), project.ID)
		if err != nil {
			h.logger.Error().Err(err).Str("project_id", project.ID).Msg("failed to cancel pending requests for project")
		}
		for _, req := range cancelled {
			if err := h.notifications.NotifyRequestCancelled(r.Context(), req); err != nil {
				h.logger.Warn().Err(err).Str("request_id", req.ID).Msg("request_cancelled intent not emitted")
			}
		}
	}

	writeJSON(w, http.StatusOK, project)
}
