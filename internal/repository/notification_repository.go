package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"

	"github.com/collabthon/collabthon-api/internal/models"
	"github.com/pkg/errors"
)

type CreateNotificationParams struct {
	RecipientID string
	Type        models.NotificationType
	Title       string
	Message     string
	Payload     map[string]interface{}
}

type NotificationRepository interface {
	Create(ctx context.Context, params CreateNotificationParams) (models.Notification, error)
	ListRecent(ctx context.Context, recipientID string, unreadOnly bool, limit int) ([]models.Notification, error)
	MarkRead(ctx context.Context, recipientID, notificationID string) (models.Notification, error)
	MarkAllRead(ctx context.Context, recipientID string) (int64, error)
	// Delete performs a soft delete; the row stays for auditing but drops
	// out of listings.
	Delete(ctx context.Context, recipientID, notificationID string) error
}

type notificationRepository struct {
	db *sql.DB
}

func NewNotificationRepository(db *sql.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

const notificationColumns = `id, recipient_id, type, title, message, payload, is_read, created_at, read_at`

func (r *notificationRepository) Create(ctx context.Context, params CreateNotificationParams) (models.Notification, error) {
	const query = `
		INSERT INTO notifications (recipient_id, type, title, message, payload)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + notificationColumns + `;
	`

	var payload interface{}
	if len(params.Payload) > 0 {
		bytes, err := json.Marshal(params.Payload)
		if err != nil {
			return models.Notification{}, errors.Wrap(err, "marshal payload")
		}
		payload = bytes
	}

	row := r.db.QueryRowContext(ctx, query,
		strings.TrimSpace(params.RecipientID), params.Type, params.Title, params.Message, payload)
	return scanNotification(row)
}

func (r *notificationRepository) ListRecent(ctx context.Context, recipientID string, unreadOnly bool, limit int) ([]models.Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 25
	}

	query := `
		SELECT ` + notificationColumns + `
		FROM notifications
		WHERE recipient_id = $1 AND deleted_at IS NULL
	`
	if unreadOnly {
		query += ` AND is_read = FALSE`
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT $2;`

	rows, err := r.db.QueryContext(ctx, query, recipientID, limit)
	if err != nil {
		return nil, errors.Wrap(err, "list notifications")
	}
	defer rows.Close()

	var notifications []models.Notification
	for rows.Next() {
		notif, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		notifications = append(notifications, notif)
	}
	return notifications, rows.Err()
}

func (r *notificationRepository) MarkRead(ctx context.Context, recipientID, notificationID string) (models.Notification, error) {
	const query = `
		UPDATE notifications
		SET is_read = TRUE, read_at = now()
		WHERE id = $1 AND recipient_id = $2 AND deleted_at IS NULL
		RETURNING ` + notificationColumns + `;
	`
	notif, err := scanNotification(r.db.QueryRowContext(ctx, query, notificationID, recipientID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Notification{}, models.ErrNotFound
		}
		return models.Notification{}, errors.Wrap(err, "mark notification read")
	}
	return notif, nil
}

func (r *notificationRepository) MarkAllRead(ctx context.Context, recipientID string) (int64, error) {
	const query = `
		UPDATE notifications
		SET is_read = TRUE, read_at = now()
		WHERE recipient_id = $1 AND is_read = FALSE AND deleted_at IS NULL;
	`
	result, err := r.db.ExecContext(ctx, query, recipientID)
	if err != nil {
		return 0, errors.Wrap(err, "mark all notifications read")
	}
	return result.RowsAffected()
}

func (r *notificationRepository) Delete(ctx context.Context, recipientID, notificationID string) error {
	const query = `
		UPDATE notifications
		SET deleted_at = now()
		WHERE id = $1 AND recipient_id = $2 AND deleted_at IS NULL;
	`
	result, err := r.db.ExecContext(ctx, query, notificationID, recipientID)
	if err != nil {
		return errors.Wrap(err, "delete notification")
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return models.ErrNotFound
	}
	return nil
}

func scanNotification(scanner interface {
	Scan(dest ...interface{}) error
}) (models.Notification, error) {
	var (
		notif      models.Notification
		payloadRaw []byte
		readAt     sql.NullTime
	)
	if err := scanner.Scan(
		&notif.ID,
		&notif.RecipientID,
		&notif.Type,
		&notif.Title,
		&notif.Message,
		&payloadRaw,
		&notif.IsRead,
		&notif.CreatedAt,
		&readAt,
	); err != nil {
		return models.Notification{}, err
	}
	if len(payloadRaw) > 0 {
		notif.Payload = payloadRaw
	}
	if readAt.Valid {
		t := readAt.Time
		notif.ReadAt = &t
	}
	return notif, nil
}
