package handlers

import (
	"net/http"

	"github.com/collabthon/collabthon-api/internal/authz"
	"github.com/collabthon/collabthon-api/internal/models"
	"github.com/collabthon/collabthon-api/internal/repository"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
)

type ProfileHandler struct {
	profiles repository.ProfileRepository
	logger   zerolog.Logger
}

type profileRequest struct {
	FirstName    string   `json:"first_name" validate:"required,max=100"`
	LastName     string   `json:"last_name" validate:"required,max=100"`
	College      string   `json:"college" validate:"required,max=255"`
	Major        string   `json:"major" validate:"required,max=255"`
	Year         int      `json:"year" validate:"required,min=1,max=8"`
	Bio          string   `json:"bio" validate:"max=4000"`
	Skills       []string `json:"skills" validate:"max=50,dive,max=100"`
	Experience   string   `json:"experience" validate:"max=100"`
	GithubURL    string   `json:"github_url" validate:"omitempty,url"`
	LinkedinURL  string   `json:"linkedin_url" validate:"omitempty,url"`
	PortfolioURL string   `json:"portfolio_url" validate:"omitempty,url"`
	AvatarURL    string   `json:"avatar_url" validate:"omitempty,url"`
	IsPublic     *bool    `json:"is_public"`
}

func NewProfileHandler(profiles repository.ProfileRepository, logger zerolog.Logger) *ProfileHandler {
	return &ProfileHandler{
		profiles: profiles,
		logger:   logger.With().Str("handler", "profile").Logger(),
	}
}

// Upsert creates or replaces the caller's profile.
func (h *ProfileHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	userID, ok := authz.UserIDFromRequest(r)
	if !ok {
		http.Error(w, "Missing user context", http.StatusUnauthorized)
		return
	}

	var payload profileRequest
	if err := decodeAndValidate(r, &payload); err != nil {
		http.Error(w, "Invalid request payload: "+err.Error(), http.StatusBadRequest)
		return
	}

	isPublic := true
	if payload.IsPublic != nil {
		isPublic = *payload.IsPublic
	}

	profile, err := h.profiles.Upsert(models.Profile{
		UserID:       userID,
		FirstName:    payload.FirstName,
		LastName:     payload.LastName,
		College:      payload.College,
		Major:        payload.Major,
		Year:         payload.Year,
		Bio:          payload.Bio,
		Skills:       payload.Skills,
		Experience:   payload.Experience,
		GithubURL:    payload.GithubURL,
		LinkedinURL:  payload.LinkedinURL,
		PortfolioURL: payload.PortfolioURL,
		AvatarURL:    payload.AvatarURL,
		IsPublic:     isPublic,
	})
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to upsert profile")
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (h *ProfileHandler) GetMine(w http.ResponseWriter, r *http.Request) {
	userID, ok := authz.UserIDFromRequest(r)
	if !ok {
		http.Error(w, "Missing user context", http.StatusUnauthorized)
		return
	}

	profile, err := h.profiles.GetByUserID(userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// Get returns another user's profile, respecting its visibility flag.
func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	actorID, _ := authz.UserIDFromRequest(r)
	targetID := mux.Vars(r)["userID"]

	profile, err := h.profiles.GetByUserID(targetID)
	if err != nil {
		writeError(w, err)
		return
	}
	if !profile.IsPublic && profile.UserID != actorID {
		// Private profiles are indistinguishable from missing ones.
		writeError(w, models.ErrNotFound)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}
