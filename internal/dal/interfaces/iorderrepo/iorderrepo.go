package iorderrepo

import (
	"context"

	"github.com/unihub/notify-svc/internal/service/models/order"
)

// IOrderRepository is an interface for the order postgres repository.
type IOrderRepository interface {
	GetByID(ctx context.Context, id string) (*order.Order, error)
}
