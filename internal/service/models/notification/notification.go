package notification

import (
	"time"
)

// Type classifies an in-app notification.
type Type string

const (
	TypeOrderPlaced    Type = "order_placed"
	TypeOrderCancelled Type = "order_cancelled"
)

func (t Type) String() string {
	return string(t)
}

// Notification is one in-app notification row. The row is owned by the
// notification store; this service only creates it.
type Notification struct {
	ID          string
	UserID      string
	Type        Type
	Title       string
	Message     string
	OrderNumber string
	// Amount is nullable; pushes without a monetary component leave it nil.
	Amount    *float64
	IsRead    bool
	CreatedAt time.Time
}
