package postgres

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/unihub/notify-svc/internal/dal/postgres"
)

// DeviceTokenRepository resolves FCM device tokens per user. The mobile app
// registers one row per user on login and refreshes it on token rotation.
type DeviceTokenRepository struct {
	client *postgres.Client
}

// NewDeviceTokenRepository creates a new device token repository.
func NewDeviceTokenRepository(client *postgres.Client) *DeviceTokenRepository {
	return &DeviceTokenRepository{
		client: client,
	}
}

// GetByUserID returns the registered device token for the user.
func (r *DeviceTokenRepository) GetByUserID(ctx context.Context, userID string) (string, error) {
	query, args, err := sq.Select("token").
		From("device_tokens").
		Where(sq.Eq{"user_id": userID}).
		OrderBy("updated_at DESC").
		Limit(1).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return "", fmt.Errorf("failed to build device token query: %w", err)
	}

	var token string
	if err := r.client.Pool().QueryRow(ctx, query, args...).Scan(&token); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", fmt.Errorf("no device token registered for user %s", userID)
		}

		return "", fmt.Errorf("failed to query device token for user %s: %w", userID, err)
	}

	return token, nil
}
