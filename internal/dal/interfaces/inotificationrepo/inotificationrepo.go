package inotificationrepo

import (
	"context"

	"github.com/unihub/notify-svc/internal/service/models/notification"
)

// INotificationRepository is an interface for the notification postgres repository.
type INotificationRepository interface {
	Insert(ctx context.Context, n notification.Notification) (*notification.Notification, error)
}
