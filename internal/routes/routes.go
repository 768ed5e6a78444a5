package routes

import (
	"net/http"

	"github.com/collabthon/collabthon-api/internal/authz"
	"github.com/collabthon/collabthon-api/internal/handlers"
	"github.com/collabthon/collabthon-api/internal/models"
	"github.com/gorilla/mux"
)

// NewRouter sets up the API routes
func NewRouter(
	auth *handlers.AuthHandler,
	profiles *handlers.ProfileHandler,
	projects *handlers.ProjectHandler,
	collaborations *handlers.CollaborationHandler,
	subscriptions *handlers.SubscriptionHandler,
	notifications *handlers.NotificationHandler,
) *mux.Router {
	router := mux.NewRouter()

	// Health check route
	router.HandleFunc("/health", handlers.HealthCheck).Methods(http.MethodGet)

	// Public auth endpoints
	router.HandleFunc("/api/signup", auth.SignUp).Methods(http.MethodPost)
	router.HandleFunc("/api/login", auth.Login).Methods(http.MethodPost)

	// Plan catalog is public so the pricing page needs no session.
	router.HandleFunc("/api/subscriptions/plans", subscriptions.Plans).Methods(http.MethodGet)

	// Everything below requires a valid bearer token.
	api := router.PathPrefix("/api").Subrouter()
	api.Use(auth.JWTMiddleware)

	api.HandleFunc("/users/me", auth.Me).Methods(http.MethodGet)

	// Profiles
	api.HandleFunc("/profiles/me", profiles.GetMine).Methods(http.MethodGet)
	api.HandleFunc("/profiles/me", profiles.Upsert).Methods(http.MethodPut)
	api.HandleFunc("/profiles/{userID}", profiles.Get).Methods(http.MethodGet)

	// Projects
	api.HandleFunc("/projects", projects.Create).Methods(http.MethodPost)
	api.HandleFunc("/projects", projects.List).Methods(http.MethodGet)
	api.HandleFunc("/projects/{projectID}", projects.Get).Methods(http.MethodGet)
	api.HandleFunc("/projects/{projectID}/status", projects.UpdateStatus).Methods(http.MethodPatch)

	// Collaboration requests
	api.HandleFunc("/collaborations", collaborations.Create).Methods(http.MethodPost)
	api.HandleFunc("/collaborations/sent", collaborations.ListSent).Methods(http.MethodGet)
	api.HandleFunc("/collaborations/received", collaborations.ListReceived).Methods(http.MethodGet)
	api.HandleFunc("/collaborations/stats", collaborations.Stats).Methods(http.MethodGet)
	api.HandleFunc("/collaborations/{requestID}", collaborations.Get).Methods(http.MethodGet)
	api.HandleFunc("/collaborations/{requestID}/accept", collaborations.Accept).Methods(http.MethodPost)
	api.HandleFunc("/collaborations/{requestID}/reject", collaborations.Reject).Methods(http.MethodPost)
	api.HandleFunc("/collaborations/{requestID}", collaborations.Cancel).Methods(http.MethodDelete)

	// Subscriptions
	api.HandleFunc("/subscriptions/my", subscriptions.GetMine).Methods(http.MethodGet)
	api.HandleFunc("/subscriptions/subscribe/{plan}", subscriptions.Subscribe).Methods(http.MethodPost)
	api.HandleFunc("/subscriptions/cancel", subscriptions.CancelSubscription).Methods(http.MethodPost)
	api.HandleFunc("/subscriptions/check/{userID}/{feature}", subscriptions.CheckFeature).Methods(http.MethodGet)
	api.Handle("/subscriptions/stats",
		authz.RequireRole(models.RoleAdmin)(http.HandlerFunc(subscriptions.PlanStats))).Methods(http.MethodGet)

	// Notifications
	api.HandleFunc("/notifications", notifications.List).Methods(http.MethodGet)
	api.HandleFunc("/notifications/read-all", notifications.MarkAllRead).Methods(http.MethodPost)
	api.HandleFunc("/notifications/{notificationID}/read", notifications.MarkRead).Methods(http.MethodPost)
	api.HandleFunc("/notifications/{notificationID}", notifications.Delete).Methods(http.MethodDelete)

	return router
}
