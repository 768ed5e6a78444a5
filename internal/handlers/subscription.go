package handlers

import (
	"errors"
	"net/http"
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

// Every paid term runs for 30 days; the free tier carries no expiry.
const subscriptionTerm = 30 * 24 * time.Hour

type SubscriptionHandler struct {
	subscriptions repository.SubscriptionRepository
	users         repository.UserRepository
	notifications notification.Service
	logger        zerolog.Logger
}

func NewSubscriptionHandler(
	subscriptions repository.SubscriptionRepository,
	users repository.UserRepository,
	notifications notification.Service,
	logger zerolog.Logger,
) *SubscriptionHandler {
	return &SubscriptionHandler{
		subscriptions: subscriptions,
		users:         users,
		notifications: notifications,
		logger:        logger.With().Str("handler", "subscription").Logger(),
	}
}

func (h *SubscriptionHandler) Plans(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, collaboration.Plans())
}

// GetMine returns the caller's subscription, provisioning a free one on
// first access.
func (h *SubscriptionHandler) GetMine(w http.ResponseWriter, r *http.Request) {
	userID, ok := authz.UserIDFromRequest(r)
	if !ok {
		http.Error(w, "Missing user context", http.StatusUnauthorized)
		return
	}

	sub, err := h.subscriptions.GetByUserID(userID)
	if errors.Is(err, models.ErrNotFound) {
		sub, err = h.subscriptions.Upsert(userID, models.PlanFree, time.Now(), nil)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

func (h *SubscriptionHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	userID, ok := authz.UserIDFromRequest(r)
	if !ok {
		http.Error(w, "Missing user context", http.StatusUnauthorized)
		return
	}

	plan := models.SubscriptionPlan(strings.ToLower(strings.TrimSpace(mux.Vars(r)["plan"])))
	if !models.IsValidPlan(plan) {
		http.Error(w, "Invalid plan", http.StatusBadRequest)
		return
	}

	if current, err := h.subscriptions.GetByUserID(userID); err == nil {
		if current.IsActive && current.Plan == plan {
			http.Error(w, "Already subscribed to this plan", http.StatusBadRequest)
			return
		}
	} else if !errors.Is(err, models.ErrNotFound) {
		writeError(w, err)
		return
	}

	now := time.Now()
	var expiresAt *time.Time
	if plan != models.PlanFree {
		t := now.Add(subscriptionTerm)
		expiresAt = &t
	}

	sub, err := h.subscriptions.Upsert(userID, plan, now, expiresAt)
	if err != nil {
		h.logger.Error().Err(err).Str("plan", string(plan)).Msg("failed to update subscription")
		writeError(w, err)
		return
	}

	if err := h.notifications.NotifySubscriptionUpdated(r.Context(), userID, plan); err != nil {
		h.logger.Warn().Err(err).Str("user_id", userID).Msg("subscription_update intent not emitted")
	}
	writeJSON(w, http.StatusOK, sub)
}

// CancelSubscription downgrades the caller to the free plan.
func (h *SubscriptionHandler) CancelSubscription(w http.ResponseWriter, r *http.Request) {
	userID, ok := authz.UserIDFromRequest(r)
	if !ok {
		http.Error(w, "Missing user context", http.StatusUnauthorized)
		return
	}

	current, err := h.subscriptions.GetByUserID(userID)
	if err != nil {
		writeError(w, err)
		return
	}
	if current.Plan == models.PlanFree {
		http.Error(w, "Already on the free plan", http.StatusBadRequest)
		return
	}

	sub, err := h.subscriptions.Upsert(userID, models.PlanFree, time.Now(), nil)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.notifications.NotifySubscriptionUpdated(r.Context(), userID, models.PlanFree); err != nil {
		h.logger.Warn().Err(err).Str("user_id", userID).Msg("subscription_update intent not emitted")
	}
	writeJSON(w, http.StatusOK, sub)
}

// CheckFeature reports whether a user's subscription grants a capability.
func (h *SubscriptionHandler) CheckFeature(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	targetID := vars["userID"]
	capability := collaboration.Capability(vars["feature"])

	if _, err := h.users.GetUserByID(targetID); err != nil {
		writeError(w, err)
		return
	}

	var sub models.Subscription
	if found, err := h.subscriptions.GetByUserID(targetID); err == nil {
		sub = found
	} else if !errors.Is(err, models.ErrNotFound) {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"user_id":    targetID,
		"plan":       sub.EffectivePlan(time.Now()),
		"feature":    capability,
		"has_access": collaboration.HasCapability(sub, capability, time.Now()),
	})
}

// PlanStats returns active subscription counts per plan. Admin only.
func (h *SubscriptionHandler) PlanStats(w http.ResponseWriter, r *http.Request) {
	counts, err := h.subscriptions.PlanCounts()
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to load plan counts")
		writeError(w, err)
		return
	}

	total := 0
	for _, count := range counts {
		total += count
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"active_subscriptions": total,
		"free":                 counts[models.PlanFree],
		"professional":         counts[models.PlanProfessional],
		"enterprise":           counts[models.PlanEnterprise],
	})
}
