package repository

import (
	"database/sql"
	"time"

	"github.com/collabthon/collabthon-api/internal/models"
	"github.com/pkg/errors"
)

type SubscriptionRepository interface {
	GetByUserID(userID string) (models.Subscription, error)
	// Upsert replaces the user's subscription terms, creating the row on
	// first use. There is at most one subscription per user.
	Upsert(userID string, plan models.SubscriptionPlan, startedAt time.Time, expiresAt *time.Time) (models.Subscription, error)
	// PlanCounts returns active subscription totals per plan.
	PlanCounts() (map[models.SubscriptionPlan]int, error)
}

type subscriptionRepository struct {
	db *sql.DB
}

func NewSubscriptionRepository(db *sql.DB) SubscriptionRepository {
	return &subscriptionRepository{db: db}
}

const subscriptionColumns = `id, user_id, plan, is_active, started_at, expires_at, created_at, updated_at`

func (r *subscriptionRepository) GetByUserID(userID string) (models.Subscription, error) {
	const query = `
		SELECT ` + subscriptionColumns + `
		FROM subscriptions
		WHERE user_id = $1;
	`
	return scanSubscription(r.db.QueryRow(query, userID))
}

func (r *subscriptionRepository) Upsert(userID string, plan models.SubscriptionPlan, startedAt time.Time, expiresAt *time.Time) (models.Subscription, error) {
	const query = `
		INSERT INTO subscriptions (user_id, plan, is_active, started_at, expires_at)
		VALUES ($1, $2, TRUE, $3, $4)
		ON CONFLICT (user_id) DO UPDATE SET
			plan = EXCLUDED.plan,
			is_active = TRUE,
			started_at = EXCLUDED.started_at,
			expires_at = EXCLUDED.expires_at,
			updated_at = now()
		RETURNING ` + subscriptionColumns + `;
	`
	return scanSubscription(r.db.QueryRow(query, userID, plan, startedAt, expiresAt))
}

func (r *subscriptionRepository) PlanCounts() (map[models.SubscriptionPlan]int, error) {
	const query = `
		SELECT plan, COUNT(*)
		FROM subscriptions
		WHERE is_active = TRUE
		GROUP BY plan;
	`
	rows, err := r.db.Query(query)
	if err != nil {
		return nil, errors.Wrap(err, "plan counts")
	}
	defer rows.Close()

	counts := make(map[models.SubscriptionPlan]int)
	for rows.Next() {
		var (
			plan  models.SubscriptionPlan
			count int
		)
		if err := rows.Scan(&plan, &count); err != nil {
			return nil, err
		}
		counts[plan] = count
	}
	return counts, rows.Err()
}

func scanSubscription(row *sql.Row) (models.Subscription, error) {
	var (
		sub       models.Subscription
		expiresAt sql.NullTime
	)
	err := row.Scan(
		&sub.ID,
		&sub.UserID,
		&sub.Plan,
		&sub.IsActive,
		&sub.StartedAt,
		&expiresAt,
		&sub.CreatedAt,
		&sub.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Subscription{}, models.ErrNotFound
		}
		return models.Subscription{}, errors.Wrap(err, "scan subscription")
	}
	if expiresAt.Valid {
		t := expiresAt.Time
		sub.ExpiresAt = &t
	}
	return sub, nil
}
