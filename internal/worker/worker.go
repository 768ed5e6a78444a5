package worker

import (
	"context"
	"database/sql"
	"time"

	"github.com/collabthon/collabthon-api/internal/models"
	"github.com/collabthon/collabthon-api/internal/notification"
	"github.com/collabthon/collabthon-api/internal/repository"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// Config wires the maintenance worker. The worker claims rows with
// FOR UPDATE SKIP LOCKED, so several instances can sweep concurrently
// without stepping on each other.
type Config struct {
	DB             *sql.DB
	Collaborations repository.CollaborationRepository
	Notifications  notification.Service
	PollInterval   time.Duration
	BatchSize      int
}

// Worker runs the periodic housekeeping the request lifecycle depends on:
// expired paid subscriptions fall back to the free tier, stale project
// listings close, and pending requests on closed projects get cancelled.
type Worker struct {
	cfg    Config
	logger zerolog.Logger
}

func New(cfg Config, logger zerolog.Logger) *Worker {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Minute
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	return &Worker{
		cfg:    cfg,
		logger: logger.With().Str("component", "maintenance_worker").Logger(),
	}
}

func (w *Worker) Start(ctx context.Context) error {
	w.logger.Info().Dur("poll_interval", w.cfg.PollInterval).Msg("maintenance worker started")
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info().Msg("maintenance worker stopped")
			return ctx.Err()
		case <-ticker.C:
			if err := w.sweepSubscriptions(ctx); err != nil {
				w.logger.Error().Err(err).Msg("subscription sweep failed")
			}
			if err := w.sweepProjects(ctx); err != nil {
				w.logger.Error().Err(err).Msg("project sweep failed")
			}
		}
	}
}

// sweepSubscriptions downgrades expired paid subscriptions to the free tier.
func (w *Worker) sweepSubscriptions(ctx context.Context) error {
	tx, err := w.cfg.DB.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin transaction")
	}
	defer tx.Rollback()

	const claimQuery = `
		SELECT id, user_id
		FROM subscriptions
		WHERE is_active = TRUE
		  AND plan <> 'free'
		  AND expires_at IS NOT NULL
		  AND expires_at <= now()
		ORDER BY expires_at ASC
		FOR UPDATE SKIP LOCKED
		LIMIT $1;
	`
	rows, err := tx.QueryContext(ctx, claimQuery, w.cfg.BatchSize)
	if err != nil {
		return errors.Wrap(err, "claim expired subscriptions")
	}

	var ids, userIDs []string
	for rows.Next() {
		var id, userID string
		if err := rows.Scan(&id, &userID); err != nil {
			rows.Close()
			return err
		}
		ids = append(ids, id)
		userIDs = append(userIDs, userID)
	}
	if err := rows.Close(); err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}

	const downgradeQuery = `
		UPDATE subscriptions
		SET plan = 'free', expires_at = NULL, started_at = now(), updated_at = now()
		WHERE id = ANY($1::uuid[]);
	`
	if _, err := tx.ExecContext(ctx, downgradeQuery, pq.Array(ids)); err != nil {
		return errors.Wrap(err, "downgrade expired subscriptions")
	}
	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "commit transaction")
	}

	for _, userID := range userIDs {
		if err := w.cfg.Notifications.NotifySubscriptionUpdated(ctx, userID, models.PlanFree); err != nil {
			w.logger.Warn().Err(err).Str("user_id", userID).Msg("subscription_update intent not emitted")
		}
	}
	w.logger.Info().Int("count", len(ids)).Msg("expired subscriptions downgraded")
	return nil
}

// sweepProjects closes listings past their expiry and cancels any pending
// collaboration requests still attached to them.
func (w *Worker) sweepProjects(ctx context.Context) error {
	tx, err := w.cfg.DB.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin transaction")
	}
	defer tx.Rollback()

	const claimQuery = `
		SELECT id
		FROM projects
		WHERE status = 'open'
		  AND expires_at IS NOT NULL
		  AND expires_at <= now()
		ORDER BY expires_at ASC
		FOR UPDATE SKIP LOCKED
		LIMIT $1;
	`
	rows, err := tx.QueryContext(ctx, claimQuery, w.cfg.BatchSize)
	if err != nil {
		return errors.Wrap(err, "claim expired projects")
	}

	var projectIDs []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return err
		}
		projectIDs = append(projectIDs, id)
	}
	if err := rows.Close(); err != nil {
		return err
	}
	if len(projectIDs) == 0 {
		return nil
	}

	const closeQuery = `
		UPDATE projects
		SET status = 'closed', updated_at = now()
		WHERE id = ANY($1::uuid[]);
	`
	if _, err := tx.ExecContext(ctx, closeQuery, pq.Array(projectIDs)); err != nil {
		return errors.Wrap(err, "close expired projects")
	}
	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "commit transaction")
	}

	for _, projectID := range projectIDs {
		cancelled, err := w.cfg.Collaborations.CancelPendingByProject(ctx, projectID)
		if err != nil {
			w.logger.Error().Err(err).Str("project_id", projectID).Msg("failed to cancel pending requests")
			continue
		}
		for _, req := range cancelled {
			if err := w.cfg.Notifications.NotifyRequestCancelled(ctx, req); err != nil {
				w.logger.Warn().Err(err).Str("request_id", req.ID).Msg("request_cancelled intent not emitted")
			}
		}
	}
	w.logger.Info().Int("count", len(projectIDs)).Msg("expired projects closed")
	return nil
}
