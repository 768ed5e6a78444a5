package notification

import (
	"context"
	"fmt"

	"github.com/collabthon/collabthon-api/internal/models"
	"github.com/rs/zerolog"
)

// Notifier delivers a persisted notification over one external channel.
// Delivery is best effort; a failed Notify never affects the operation that
// produced the notification.
type Notifier interface {
	Notify(ctx context.Context, notification models.Notification) error
}

func logNotifyError(logger zerolog.Logger, err error, channel string, notif models.Notification) {
	if err == nil {
		return
	}
	logger.Warn().
		Err(err).
		Str("notification_id", notif.ID).
		Str("type", string(notif.Type)).
		Str("channel", channel).
		Msg("failed to deliver notification")
}

func notifierChannelName(n Notifier) string {
	type named interface {
		String() string
	}
	if v, ok := n.(named); ok {
		return v.String()
	}
	return fmt.Sprintf("%T", n)
}
