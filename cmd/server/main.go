package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/collabthon/collabthon-api/internal/collaboration"
	"github.com/collabthon/collabthon-api/internal/config"
	"github.com/collabthon/collabthon-api/internal/demo"
	"github.com/collabthon/collabthon-api/internal/handlers"
	"github.com/collabthon/collabthon-api/internal/middleware"
	"github.com/collabthon/collabthon-api/internal/migration"
	"github.com/collabthon/collabthon-api/internal/notification"
	"github.com/collabthon/collabthon-api/internal/repository"
	"github.com/collabthon/collabthon-api/internal/routes"
	"github.com/collabthon/collabthon-api/internal/worker"
	h "github.com/gorilla/handlers"
	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog"

	_ "github.com/lib/pq" // PostgreSQL driver
)

type application struct {
	config        *config.Config
	db            *sql.DB
	logger        zerolog.Logger
	notifications notification.Service

	users            repository.UserRepository
	profiles         repository.ProfileRepository
	projects         repository.ProjectRepository
	subscriptions    repository.SubscriptionRepository
	requests         repository.CollaborationRepository
	notificationRepo repository.NotificationRepository
}

func main() {
	// Set up structured, level-based logging.
	consoleWriter := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen}
	logger := zerolog.New(consoleWriter).With().Timestamp().Logger()

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	log.SetFlags(0)
	log.SetOutput(logger)

	gooseAdapter := migration.NewGooseAdapter(logger)
	goose.SetLogger(gooseAdapter)

	// Load configuration.
	cfg := config.Load()

	app := &application{
		config: cfg,
		logger: logger,
	}

	if cfg.DemoMode {
		logger.Warn().Msg("Demo mode enabled: using in-memory storage, data will not survive a restart")
		store := demo.NewStore()
		if err := store.Seed(logger); err != nil {
			logger.Fatal().Err(err).Msg("Failed to seed demo fixtures")
		}
		app.users = store.Users()
		app.profiles = store.Profiles()
		app.projects = store.Projects()
		app.subscriptions = store.Subscriptions()
		app.requests = store.Collaborations()
		app.notificationRepo = store.Notifications()
	} else {
		// Initialize database connection.
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to connect to the database")
		}
		defer db.Close()
		if err := db.Ping(); err != nil {
			logger.Fatal().Err(err).Msg("Failed to ping database")
		}
		app.db = db

		// Run database migrations.
		migration.RunMigrations(cfg.DatabaseURL, logger)

		app.users = repository.NewUserRepository(db)
		app.profiles = repository.NewProfileRepository(db)
		app.projects = repository.NewProjectRepository(db)
		app.subscriptions = repository.NewSubscriptionRepository(db)
		app.requests = repository.NewCollaborationRepository(db)
		app.notificationRepo = repository.NewNotificationRepository(db)
	}

	// Initialize notification service, with email fan-out when SMTP is configured.
	var notifiers []notification.Notifier
	if cfg.Email.SMTPHost != "" {
		emailNotifier, err := notification.NewEmailNotifier(cfg.Email, app.users, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to configure email notifier")
		}
		notifiers = append(notifiers, emailNotifier)
	}
	app.notifications = notification.NewService(app.notificationRepo, logger, notifiers...)

	// Start the maintenance worker. Demo mode has no database to sweep.
	workerCtx, stopWorker := context.WithCancel(context.Background())
	defer stopWorker()
	if !cfg.DemoMode {
		w := worker.New(worker.Config{
			DB:             app.db,
			Collaborations: app.requests,
			Notifications:  app.notifications,
			PollInterval:   cfg.Worker.PollInterval,
			BatchSize:      cfg.Worker.BatchSize,
		}, logger)
		go func() {
			if err := w.Start(workerCtx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error().Err(err).Msg("Maintenance worker exited")
			}
		}()
	}

	// Initialize the HTTP router and middleware.
	router := app.initRouter(logger)
	loggedRouter := middleware.LoggingMiddleware(app.logger)(router)
	corsHandler := h.CORS(
		h.AllowedOrigins([]string{"http://localhost:3000"}),
		h.AllowedMethods([]string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}),
		h.AllowedHeaders([]string{"Content-Type", "Authorization"}),
		h.AllowCredentials(),
	)(loggedRouter)

	// Start the HTTP server and handle graceful shutdown.
	app.startServer(corsHandler, stopWorker, logger)

	logger.Info().Msg("Application terminated.")
}

// initRouter sets up all HTTP handlers and returns the router.
func (app *application) initRouter(logger zerolog.Logger) http.Handler {
	collaborationService := collaboration.NewService(
		app.requests,
		app.users,
		app.projects,
		app.subscriptions,
		app.notifications,
		logger,
	)

	authHandler := handlers.NewAuthHandler(app.users, app.config, logger)
	profileHandler := handlers.NewProfileHandler(app.profiles, logger)
	projectHandler := handlers.NewProjectHandler(app.projects, app.subscriptions, app.requests, app.notifications, logger)
	collaborationHandler := handlers.NewCollaborationHandler(collaborationService, logger)
	subscriptionHandler := handlers.NewSubscriptionHandler(app.subscriptions, app.users, app.notifications, logger)
	notificationHandler := handlers.NewNotificationHandler(app.notifications, logger)

	return routes.NewRouter(
		authHandler,
		profileHandler,
		projectHandler,
		collaborationHandler,
		subscriptionHandler,
		notificationHandler,
	)
}

// startServer launches the HTTP server and handles graceful shutdown.
func (app *application) startServer(handler http.Handler, stopWorker context.CancelFunc, logger zerolog.Logger) {
	server := &http.Server{
		Addr:    ":" + app.config.ServerPort,
		Handler: handler,
	}

	// Channel to listen for server errors
	serverErrCh := make(chan error, 1)
	go func() {
		logger.Info().Msgf("Server listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrCh <- err
		}
	}()

	// Wait for an interrupt signal or a server error.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-quit:
		logger.Info().Msgf("Received signal: %s. Shutting down...", sig)
	case err := <-serverErrCh:
		logger.Error().Err(err).Msg("Server error occurred")
	}

	// Gracefully shut down the HTTP server.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("HTTP server shutdown error")
	} else {
		logger.Info().Msg("HTTP server shutdown complete.")
	}

	// Stop the maintenance worker.
	stopWorker()
	logger.Info().Msg("Maintenance worker stopped.")
}
