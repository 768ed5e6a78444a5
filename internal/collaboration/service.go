package collaboration

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/collabthon/collabthon-api/internal/models"
	"github.com/collabthon/collabthon-api/internal/notification"
	"github.com/collabthon/collabthon-api/internal/repository"
	"github.com/rs/zerolog"
)

// Validation errors surfaced to the HTTP layer alongside the domain taxonomy.
var (
	ErrSelfCollaboration = errors.New("cannot send a collaboration request to yourself")
	ErrProjectClosed     = errors.New("project no longer accepts collaboration requests")
	ErrMessageTooLong    = errors.New("message exceeds the allowed length")
)

const maxMessageLength = 2000

// CreateInput carries the caller-supplied fields of a new request.
type CreateInput struct {
	ReceiverID string
	ProjectID  *string
	Message    string
}

// Service owns the collaboration request lifecycle: creation under
// entitlement gating and the pending → accepted|rejected|cancelled state
// machine. Every successful transition emits a notification intent; emission
// failures are logged and never fail the transition.
type Service interface {
	Create(ctx context.Context, senderID string, in CreateInput) (models.CollaborationRequest, error)
	Accept(ctx context.Context, requestID, actorID string) (models.CollaborationRequest, error)
	Reject(ctx context.Context, requestID, actorID string) (models.CollaborationRequest, error)
	Cancel(ctx context.Context, requestID, actorID string) (models.CollaborationRequest, error)
	Get(ctx context.Context, requestID, actorID string) (models.CollaborationRequest, error)
	List(ctx context.Context, params repository.CollaborationListParams) ([]models.CollaborationRequest, string, error)
	Stats(ctx context.Context, userID string) (models.CollaborationStats, error)
}

type service struct {
	requests      repository.CollaborationRepository
	users         repository.UserRepository
	projects      repository.ProjectRepository
	subscriptions repository.SubscriptionRepository
	notifications notification.Service
	logger        zerolog.Logger
	now           func() time.Time
}

func NewService(
	requests repository.CollaborationRepository,
	users repository.UserRepository,
	projects repository.ProjectRepository,
	subscriptions repository.SubscriptionRepository,
	notifications notification.Service,
	logger zerolog.Logger,
) Service {
	return &service{
		requests:      requests,
		users:         users,
		projects:      projects,
		subscriptions: subscriptions,
		notifications: notifications,
		logger:        logger.With().Str("component", "collaboration_service").Logger(),
		now:           time.Now,
	}
}

func (s *service) Create(ctx context.Context, senderID string, in CreateInput) (models.CollaborationRequest, error) {
	if senderID == in.ReceiverID {
		return models.CollaborationRequest{}, ErrSelfCollaboration
	}
	if len(in.Message) > maxMessageLength {
		return models.CollaborationRequest{}, ErrMessageTooLong
	}

	sender, err := s.users.GetUserByID(senderID)
	if err != nil {
		return models.CollaborationRequest{}, err
	}
	if !sender.IsActive {
		return models.CollaborationRequest{}, models.ErrNotAuthorized
	}

	receiver, err := s.users.GetUserByID(in.ReceiverID)
	if err != nil || !receiver.IsActive {
		// An inactive receiver is indistinguishable from a missing one.
		return models.CollaborationRequest{}, models.ErrNotFound
	}

	if in.ProjectID != nil {
		project, err := s.projects.GetByID(*in.ProjectID)
		if err != nil {
			return models.CollaborationRequest{}, err
		}
		if project.OwnerID != senderID {
			// Do not confirm the existence of someone else's project.
			return models.CollaborationRequest{}, models.ErrNotFound
		}
		if !project.IsOpen() {
			return models.CollaborationRequest{}, ErrProjectClosed
		}
	}

	created, err := s.requests.Create(ctx, models.CollaborationRequest{
		SenderID:   senderID,
		ReceiverID: in.ReceiverID,
		ProjectID:  in.ProjectID,
		Message:    strings.TrimSpace(in.Message),
	}, PendingRequestCap(s.effectivePlan(senderID)))
	if err != nil {
		return models.CollaborationRequest{}, err
	}

	if err := s.notifications.NotifyRequestCreated(ctx, created); err != nil {
		s.logger.Warn().Err(err).Str("request_id", created.ID).Msg("request_created intent not emitted")
	}
	return created, nil
}

func (s *service) Accept(ctx context.Context, requestID, actorID string) (models.CollaborationRequest, error) {
	return s.resolve(ctx, requestID, actorID, models.CollaborationStatusAccepted)
}

func (s *service) Reject(ctx context.Context, requestID, actorID string) (models.CollaborationRequest, error) {
	return s.resolve(ctx, requestID, actorID, models.CollaborationStatusRejected)
}

// resolve performs the receiver-side transitions.
func (s *service) resolve(ctx context.Context, requestID, actorID string, to models.CollaborationStatus) (models.CollaborationRequest, error) {
	req, err := s.authorizedRequest(ctx, requestID, actorID)
	if err != nil {
		return models.CollaborationRequest{}, err
	}
	if actorID != req.ReceiverID {
		return models.CollaborationRequest{}, models.ErrNotAuthorized
	}
	if req.Status != models.CollaborationStatusPending {
		return models.CollaborationRequest{}, models.ErrInvalidTransition
	}

	updated, err := s.requests.Transition(ctx, requestID, to)
	if err != nil {
		return models.CollaborationRequest{}, err
	}

	var emit func(context.Context, models.CollaborationRequest) error
	if to == models.CollaborationStatusAccepted {
		emit = s.notifications.NotifyRequestAccepted
	} else {
		emit = s.notifications.NotifyRequestRejected
	}
	if err := emit(ctx, updated); err != nil {
		s.logger.Warn().Err(err).Str("request_id", updated.ID).Msgf("%s intent not emitted", to)
	}
	return updated, nil
}

func (s *service) Cancel(ctx context.Context, requestID, actorID string) (models.CollaborationRequest, error) {
	req, err := s.authorizedRequest(ctx, requestID, actorID)
	if err != nil {
		return models.CollaborationRequest{}, err
	}
	if actorID != req.SenderID {
		return models.CollaborationRequest{}, models.ErrNotAuthorized
	}
	if req.Status != models.CollaborationStatusPending {
		return models.CollaborationRequest{}, models.ErrInvalidTransition
	}

	updated, err := s.requests.Transition(ctx, requestID, models.CollaborationStatusCancelled)
	if err != nil {
		return models.CollaborationRequest{}, err
	}

	if err := s.notifications.NotifyRequestCancelled(ctx, updated); err != nil {
		s.logger.Warn().Err(err).Str("request_id", updated.ID).Msg("request_cancelled intent not emitted")
	}
	return updated, nil
}

func (s *service) Get(ctx context.Context, requestID, actorID string) (models.CollaborationRequest, error) {
	return s.authorizedRequest(ctx, requestID, actorID)
}

func (s *service) List(ctx context.Context, params repository.CollaborationListParams) ([]models.CollaborationRequest, string, error) {
	if params.Direction != repository.DirectionSent && params.Direction != repository.DirectionReceived {
		params.Direction = repository.DirectionSent
	}
	if params.Status != nil && !models.IsValidCollaborationStatus(*params.Status) {
		return nil, "", errors.New("invalid status filter")
	}
	return s.requests.List(ctx, params)
}

func (s *service) Stats(ctx context.Context, userID string) (models.CollaborationStats, error) {
	return s.requests.Stats(ctx, userID)
}

// authorizedRequest loads a request and hides it from actors with no
// relationship to it: outsiders get ErrNotFound, never ErrNotAuthorized.
func (s *service) authorizedRequest(ctx context.Context, requestID, actorID string) (models.CollaborationRequest, error) {
	req, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		return models.CollaborationRequest{}, err
	}
	if actorID != req.SenderID && actorID != req.ReceiverID {
		return models.CollaborationRequest{}, models.ErrNotFound
	}
	return req, nil
}

// effectivePlan resolves the sender's plan for gating; a missing subscription
// is the free tier, never an error.
func (s *service) effectivePlan(userID string) models.SubscriptionPlan {
	sub, err := s.subscriptions.GetByUserID(userID)
	if err != nil {
		if !errors.Is(err, models.ErrNotFound) {
			s.logger.Warn().Err(err).Str("user_id", userID).Msg("subscription lookup failed, gating as free tier")
		}
		return models.PlanFree
	}
	return sub.EffectivePlan(s.now())
}
