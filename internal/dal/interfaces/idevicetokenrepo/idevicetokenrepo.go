package idevicetokenrepo

import (
	"context"
)

// IDeviceTokenRepository is an interface for the device token postgres repository.
type IDeviceTokenRepository interface {
	GetByUserID(ctx context.Context, userID string) (string, error)
}
