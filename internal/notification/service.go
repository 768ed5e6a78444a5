package notification

import (
	"context"
	"fmt"
	"strings"

	"github.com/collabthon/collabthon-api/internal/models"
	"github.com/collabthon/collabthon-api/internal/repository"
	"github.com/rs/zerolog"
)

// Event is a notification intent before persistence.
type Event struct {
	RecipientID string
	Type        models.NotificationType
	Title       string
	Message     string
	Payload     map[string]interface{}
}

type Service interface {
	Publish(ctx context.Context, evt Event) (models.Notification, error)
	NotifyRequestCreated(ctx context.Context, req models.CollaborationRequest) error
	NotifyRequestAccepted(ctx context.Context, req models.CollaborationRequest) error
	NotifyRequestRejected(ctx context.Context, req models.CollaborationRequest) error
	NotifyRequestCancelled(ctx context.Context, req models.CollaborationRequest) error
	NotifySubscriptionUpdated(ctx context.Context, userID string, plan models.SubscriptionPlan) error
	ListRecent(ctx context.Context, recipientID string, unreadOnly bool, limit int) ([]models.Notification, error)
	MarkRead(ctx context.Context, recipientID, notificationID string) (models.Notification, error)
	MarkAllRead(ctx context.Context, recipientID string) (int64, error)
	Delete(ctx context.Context, recipientID, notificationID string) error
}

type service struct {
	repo      repository.NotificationRepository
	logger    zerolog.Logger
	notifiers []Notifier
}

func NewService(repo repository.NotificationRepository, logger zerolog.Logger, notifiers ...Notifier) Service {
	active := make([]Notifier, 0, len(notifiers))
	for _, notifier := range notifiers {
		if notifier != nil {
			active = append(active, notifier)
		}
	}
	return &service{
		repo:      repo,
		logger:    logger.With().Str("component", "notification_service").Logger(),
		notifiers: active,
	}
}

func (s *service) Publish(ctx context.Context, evt Event) (models.Notification, error) {
	if evt.Type == "" {
		return models.Notification{}, fmt.Errorf("notification type is required")
	}
	if strings.TrimSpace(evt.RecipientID) == "" {
		return models.Notification{}, fmt.Errorf("recipient id is required")
	}
	title := strings.TrimSpace(evt.Title)
	if title == "" {
		title = string(evt.Type)
	}

	notif, err := s.repo.Create(ctx, repository.CreateNotificationParams{
		RecipientID: evt.RecipientID,
		Type:        evt.Type,
		Title:       title,
		Message:     strings.TrimSpace(evt.Message),
		Payload:     evt.Payload,
	})
	if err != nil {
		s.logger.Error().Err(err).Str("type", string(evt.Type)).Msg("failed to persist notification")
		return models.Notification{}, err
	}
	for _, notifier := range s.notifiers {
		if err := notifier.Notify(ctx, notif); err != nil {
			logNotifyError(s.logger, err, notifierChannelName(notifier), notif)
		}
	}
	return notif, nil
}

func (s *service) NotifyRequestCreated(ctx context.Context, req models.CollaborationRequest) error {
	_, err := s.Publish(ctx, Event{
		RecipientID: req.ReceiverID,
		Type:        models.NotificationTypeRequestCreated,
		Title:       "New collaboration request",
		Message:     "You have received a new collaboration request.",
		Payload:     requestPayload(req),
	})
	return err
}

func (s *service) NotifyRequestAccepted(ctx context.Context, req models.CollaborationRequest) error {
	_, err := s.Publish(ctx, Event{
		RecipientID: req.SenderID,
		Type:        models.NotificationTypeRequestAccepted,
		Title:       "Collaboration request accepted",
		Message:     "Your collaboration request has been accepted.",
		Payload:     requestPayload(req),
	})
	return err
}

func (s *service) NotifyRequestRejected(ctx context.Context, req models.CollaborationRequest) error {
	_, err := s.Publish(ctx, Event{
		RecipientID: req.SenderID,
		Type:        models.NotificationTypeRequestRejected,
		Title:       "Collaboration request declined",
		Message:     "Your collaboration request has been declined.",
		Payload:     requestPayload(req),
	})
	return err
}

func (s *service) NotifyRequestCancelled(ctx context.Context, req models.CollaborationRequest) error {
	_, err := s.Publish(ctx, Event{
		RecipientID: req.ReceiverID,
		Type:        models.NotificationTypeRequestCancelled,
		Title:       "Collaboration request cancelled",
		Message:     "A collaboration request sent to you has been cancelled.",
		Payload:     requestPayload(req),
	})
	return err
}

func (s *service) NotifySubscriptionUpdated(ctx context.Context, userID string, plan models.SubscriptionPlan) error {
	_, err := s.Publish(ctx, Event{
		RecipientID: userID,
		Type:        models.NotificationTypeSubscriptionUpdate,
		Title:       "Subscription updated",
		Message:     fmt.Sprintf("Your subscription is now on the %s plan.", plan),
		Payload:     map[string]interface{}{"plan": string(plan)},
	})
	return err
}

func (s *service) ListRecent(ctx context.Context, recipientID string, unreadOnly bool, limit int) ([]models.Notification, error) {
	return s.repo.ListRecent(ctx, recipientID, unreadOnly, limit)
}

func (s *service) MarkRead(ctx context.Context, recipientID, notificationID string) (models.Notification, error) {
	return s.repo.MarkRead(ctx, recipientID, notificationID)
}

func (s *service) MarkAllRead(ctx context.Context, recipientID string) (int64, error) {
	return s.repo.MarkAllRead(ctx, recipientID)
}

func (s *service) Delete(ctx context.Context, recipientID, notificationID string) error {
	return s.repo.Delete(ctx, recipientID, notificationID)
}

// requestPayload is the fixed schema attached to every collaboration
// lifecycle notification.
func requestPayload(req models.CollaborationRequest) map[string]interface{} {
	payload := map[string]interface{}{
		"request_id":  req.ID,
		"sender_id":   req.SenderID,
		"receiver_id": req.ReceiverID,
		"status":      string(req.Status),
	}
	if req.ProjectID != nil {
		payload["project_id"] = *req.ProjectID
	}
	return payload
}
