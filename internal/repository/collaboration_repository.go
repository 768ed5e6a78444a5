package repository

import (
	"context"
	"database/sql"

	"github.com/collabthon/collabthon-api/internal/models"
	"github.com/lib/pq"
	"github.com/pkg/errors"
)

// Direction selects which side of a collaboration request a listing follows.
type Direction string

const (
	DirectionSent     Direction = "sent"
	DirectionReceived Direction = "received"
)

// CollaborationListParams describes one page of a request listing. Results
// are ordered created_at DESC with id DESC as the tie-break, so a cursor
// resumes at a stable position even when rows share a timestamp.
type CollaborationListParams struct {
	UserID    string
	Direction Direction
	Status    *models.CollaborationStatus
	Limit     int
	Cursor    string
}

type CollaborationRepository interface {
	// Create inserts a new pending request. The duplicate check rides on a
	// partial unique index so check and insert are a single atomic unit;
	// pendingCap caps the sender's outstanding pending requests inside the
	// same transaction (negative means uncapped).
	Create(ctx context.Context, req models.CollaborationRequest, pendingCap int) (models.CollaborationRequest, error)
	GetByID(ctx context.Context, id string) (models.CollaborationRequest, error)
	// Transition moves a request out of pending via compare-and-swap on
	// status. A lost race or a terminal record yields ErrInvalidTransition.
	Transition(ctx context.Context, id string, to models.CollaborationStatus) (models.CollaborationRequest, error)
	List(ctx context.Context, params CollaborationListParams) ([]models.CollaborationRequest, string, error)
	Stats(ctx context.Context, userID string) (models.CollaborationStats, error)
	// CancelPendingByProject cancels every pending request scoped to the
	// project and returns the affected rows so callers can emit intents.
	CancelPendingByProject(ctx context.Context, projectID string) ([]models.CollaborationRequest, error)
}

type collaborationRepository struct {
	db *sql.DB
}

func NewCollaborationRepository(db *sql.DB) CollaborationRepository {
	return &collaborationRepository{db: db}
}

const collaborationColumns = `id, sender_id, receiver_id, project_id, message, status, created_at, updated_at`

func (r *collaborationRepository) Create(ctx context.Context, req models.CollaborationRequest, pendingCap int) (models.CollaborationRequest, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return models.CollaborationRequest{}, errors.Wrap(err, "begin transaction")
	}
	defer tx.Rollback()

	if pendingCap >= 0 {
		var pending int
		const countQuery = `
			SELECT COUNT(*) FROM collaboration_requests
			WHERE sender_id = $1 AND status = 'pending';
		`
		if err := tx.QueryRowContext(ctx, countQuery, req.SenderID).Scan(&pending); err != nil {
			return models.CollaborationRequest{}, errors.Wrap(err, "count pending requests")
		}
		if pending >= pendingCap {
			return models.CollaborationRequest{}, models.ErrEntitlementDenied
		}
	}

	const insertQuery = `
		INSERT INTO collaboration_requests (sender_id, receiver_id, project_id, message)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + collaborationColumns + `;
	`
	created, err := scanCollaboration(tx.QueryRowContext(ctx, insertQuery, req.SenderID, req.ReceiverID, req.ProjectID, req.Message))
	if err != nil {
		if pqErr, ok := errors.Cause(err).(*pq.Error); ok && pqErr.Code == "23505" {
			return models.CollaborationRequest{}, models.ErrDuplicateRequest
		}
		return models.CollaborationRequest{}, errors.Wrap(err, "insert collaboration request")
	}

	if err := tx.Commit(); err != nil {
		return models.CollaborationRequest{}, errors.Wrap(err, "commit transaction")
	}
	return created, nil
}

func (r *collaborationRepository) GetByID(ctx context.Context, id string) (models.CollaborationRequest, error) {
	const query = `
		SELECT ` + collaborationColumns + `
		FROM collaboration_requests
		WHERE id = $1;
	`
	req, err := scanCollaboration(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.CollaborationRequest{}, models.ErrNotFound
		}
		return models.CollaborationRequest{}, errors.Wrap(err, "get collaboration request")
	}
	return req, nil
}

func (r *collaborationRepository) Transition(ctx context.Context, id string, to models.CollaborationStatus) (models.CollaborationRequest, error) {
	const query = `
		UPDATE collaboration_requests
		SET status = $1, updated_at = now()
		WHERE id = $2 AND status = 'pending'
		RETURNING ` + collaborationColumns + `;
	`
	req, err := scanCollaboration(r.db.QueryRowContext(ctx, query, to, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// The row is gone or no longer pending; either way the swap lost.
			return models.CollaborationRequest{}, models.ErrInvalidTransition
		}
		return models.CollaborationRequest{}, errors.Wrap(err, "transition collaboration request")
	}
	return req, nil
}

func (r *collaborationRepository) List(ctx context.Context, params CollaborationListParams) ([]models.CollaborationRequest, string, error) {
	column := "sender_id"
	if params.Direction == DirectionReceived {
		column = "receiver_id"
	}

	limit := params.Limit
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	query := `
		SELECT ` + collaborationColumns + `
		FROM collaboration_requests
		WHERE ` + column + ` = $1
	`
	args := []interface{}{params.UserID}

	if params.Status != nil {
		args = append(args, *params.Status)
		query += ` AND status = $2`
	}
	if params.Cursor != "" {
		createdAt, id, err := DecodeCursor(params.Cursor)
		if err != nil {
			return nil, "", err
		}
		args = append(args, createdAt, id)
		query += placeholders(` AND (created_at, id) < ($%d, $%d)`, len(args)-1, len(args))
	}
	args = append(args, limit+1)
	query += placeholders(` ORDER BY created_at DESC, id DESC LIMIT $%d;`, len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, "", errors.Wrap(err, "list collaboration requests")
	}
	defer rows.Close()

	var requests []models.CollaborationRequest
	for rows.Next() {
		req, err := scanCollaboration(rows)
		if err != nil {
			return nil, "", err
		}
		requests = append(requests, req)
	}
	if err := rows.Err(); err != nil {
		return nil, "", err
	}

	// One extra row was fetched to learn whether another page exists.
	next := ""
	if len(requests) > limit {
		requests = requests[:limit]
		last := requests[len(requests)-1]
		next = EncodeCursor(last.CreatedAt, last.ID)
	}
	return requests, next, nil
}

func (r *collaborationRepository) Stats(ctx context.Context, userID string) (models.CollaborationStats, error) {
	const query = `
		SELECT
			COUNT(*) FILTER (WHERE sender_id = $1) AS sent_total,
			COUNT(*) FILTER (WHERE receiver_id = $1) AS received_total,
			COUNT(*) FILTER (WHERE sender_id = $1 AND status = 'pending') AS pending_sent,
			COUNT(*) FILTER (WHERE receiver_id = $1 AND status = 'pending') AS pending_received,
			COUNT(*) FILTER (WHERE status = 'accepted') AS accepted
		FROM collaboration_requests
		WHERE sender_id = $1 OR receiver_id = $1;
	`
	var stats models.CollaborationStats
	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&stats.SentTotal,
		&stats.ReceivedTotal,
		&stats.PendingSent,
		&stats.PendingReceived,
		&stats.Accepted,
	)
	if err != nil {
		return models.CollaborationStats{}, errors.Wrap(err, "collaboration stats")
	}
	return stats, nil
}

func (r *collaborationRepository) CancelPendingByProject(ctx context.Context, projectID string) ([]models.CollaborationRequest, error) {
	const query = `
		UPDATE collaboration_requests
		SET status = 'cancelled', updated_at = now()
		WHERE project_id = $1 AND status = 'pending'
		RETURNING ` + collaborationColumns + `;
	`
	rows, err := r.db.QueryContext(ctx, query, projectID)
	if err != nil {
		return nil, errors.Wrap(err, "cancel pending requests for project")
	}
	defer rows.Close()

	var cancelled []models.CollaborationRequest
	for rows.Next() {
		req, err := scanCollaboration(rows)
		if err != nil {
			return nil, err
		}
		cancelled = append(cancelled, req)
	}
	return cancelled, rows.Err()
}

func scanCollaboration(scanner interface {
	Scan(dest ...interface{}) error
}) (models.CollaborationRequest, error) {
	var (
		req       models.CollaborationRequest
		projectID sql.NullString
		message   sql.NullString
	)
	err := scanner.Scan(
		&req.ID,
		&req.SenderID,
		&req.ReceiverID,
		&projectID,
		&message,
		&req.Status,
		&req.CreatedAt,
		&req.UpdatedAt,
	)
	if err != nil {
		return models.CollaborationRequest{}, err
	}
	if projectID.Valid {
		pid := projectID.String
		req.ProjectID = &pid
	}
	if message.Valid {
		req.Message = message.String
	}
	return req, nil
}
