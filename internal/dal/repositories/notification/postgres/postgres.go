package postgres

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/unihub/notify-svc/internal/dal/postgres"
	"github.com/unihub/notify-svc/internal/service/models/notification"
)

// NotificationRepository writes in-app notification rows.
type NotificationRepository struct {
	client *postgres.Client
}

// NewNotificationRepository creates a new notification repository.
func NewNotificationRepository(client *postgres.Client) *NotificationRepository {
	return &NotificationRepository{
		client: client,
	}
}

// Insert stores one unread notification row and returns it with its
// generated id.
func (r *NotificationRepository) Insert(
	ctx context.Context,
	n notification.Notification,
) (*notification.Notification, error) {
	n.ID = uuid.NewString()
	n.IsRead = false
	n.CreatedAt = time.Now()

	query, args, err := sq.Insert("notifications").
		Columns(
			"id",
			"user_id",
			"type",
			"title",
			"message",
			"order_number",
			"amount",
			"is_read",
			"created_at",
		).
		Values(
			n.ID,
			n.UserID,
			n.Type.String(),
			n.Title,
			n.Message,
			n.OrderNumber,
			n.Amount,
			n.IsRead,
			n.CreatedAt,
		).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build insert query: %w", err)
	}

	if _, err := r.client.Pool().Exec(ctx, query, args...); err != nil {
		return nil, fmt.Errorf("failed to insert notification: %w", err)
	}

	return &n, nil
}
