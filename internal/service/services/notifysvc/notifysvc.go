package notifysvc

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"

	"github.com/unihub/notify-svc/internal/dal/interfaces/inotificationrepo"
	"github.com/unihub/notify-svc/internal/dal/interfaces/iorderrepo"
	"github.com/unihub/notify-svc/internal/service/models/event"
	"github.com/unihub/notify-svc/internal/service/models/notification"
	"github.com/unihub/notify-svc/internal/service/models/order"
	"github.com/unihub/notify-svc/internal/service/templates"
)

const defaultSendDelay = 500 * time.Millisecond

// emailSender delivers one transactional email and returns the provider's
// message id. Failures here are hard: they abort the invocation.
type emailSender interface {
	Send(ctx context.Context, to, subject, html string) (string, error)
}

// pushDispatcher delivers one push notification. Implementations swallow
// their own failures and never report them to the orchestrator.
type pushDispatcher interface {
	SendPush(ctx context.Context, userID, title, body, orderID, productName string)
}

// NotifyService orchestrates the notification fan-out for order change
// events. Each invocation is independent and stateless beyond the fetched
// aggregate; channel sends run strictly in sequence.
type NotifyService struct {
	orders        iorderrepo.IOrderRepository
	notifications inotificationrepo.INotificationRepository
	email         emailSender
	push          pushDispatcher
	sendDelay     time.Duration
}

// option is a function that configures the NotifyService.
type option func(*NotifyService)

// MustNewNotifyService creates a new NotifyService.
func MustNewNotifyService(opts ...option) *NotifyService {
	s := &NotifyService{
		sendDelay: defaultSendDelay,
	}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// WithOrderRepository sets the order repository for the NotifyService.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithOrderRepository(repo iorderrepo.IOrderRepository) option {
	return func(s *NotifyService) {
		s.orders = repo
	}
}

// WithNotificationRepository sets the notification repository for the NotifyService.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithNotificationRepository(repo inotificationrepo.INotificationRepository) option {
	return func(s *NotifyService) {
		s.notifications = repo
	}
}

// WithEmailSender sets the email sender for the NotifyService.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithEmailSender(sender emailSender) option {
	return func(s *NotifyService) {
		s.email = sender
	}
}

// WithPushDispatcher sets the push dispatcher for the NotifyService.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithPushDispatcher(dispatcher pushDispatcher) option {
	return func(s *NotifyService) {
		s.push = dispatcher
	}
}

// WithSendDelay sets the pause between consecutive email sends.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithSendDelay(delay time.Duration) option {
	return func(s *NotifyService) {
		s.sendDelay = delay
	}
}

// HandleOrderEvent fetches the order aggregate for the change event,
// classifies it and runs the matching fan-out. Fetch and email failures
// abort the invocation; push and in-app record failures never do.
func (s *NotifyService) HandleOrderEvent(ctx context.Context, ev event.ChangeEvent) error {
	ctx, span := otel.Tracer("notify-svc").Start(ctx, "NotifyService.HandleOrderEvent")
	defer span.End()

	ord, err := s.orders.GetByID(ctx, ev.Record.ID)
	if err != nil {
		return err
	}

	switch {
	case ev.Type == event.TypeInsert:
		return s.handleOrderPlaced(ctx, ord)
	case ev.Type == event.TypeUpdate && ord.OrderStatus == order.StatusCancelled:
		return s.handleOrderCancelled(ctx, ord)
	default:
		slog.Info("No action for order event",
			"type", ev.Type,
			"order_id", ord.ID,
			"order_status", ord.OrderStatus,
		)

		return nil
	}
}

// handleOrderPlaced runs the placement fan-out: buyer and seller emails,
// one seller in-app record, and up to three pushes.
func (s *NotifyService) handleOrderPlaced(ctx context.Context, ord *order.Order) error {
	ctx, span := otel.Tracer("notify-svc").Start(ctx, "NotifyService.handleOrderPlaced")
	defer span.End()

	buyerHTML, err := templates.BuyerPlaced(ord)
	if err != nil {
		return err
	}
	if _, err := s.email.Send(ctx, ord.Buyer.Email, "Order Confirmed - "+ord.OrderNumber, buyerHTML); err != nil {
		return err
	}

	if err := s.wait(ctx); err != nil {
		return err
	}

	sellerHTML, err := templates.SellerPlaced(ord)
	if err != nil {
		return err
	}
	if _, err := s.email.Send(ctx, ord.Seller.Email, "New Order - "+ord.OrderNumber, sellerHTML); err != nil {
		return err
	}

	if ord.Seller.UserID != "" {
		amount := ord.TotalAmount
		s.recordNotification(ctx, notification.Notification{
			UserID: ord.Seller.UserID,
			Type:   notification.TypeOrderPlaced,
			Title:  "New Order Received! 🛍️",
			Message: fmt.Sprintf("You have a new order #%s for %s (₦%.0f)",
				ord.OrderNumber, ord.Product.Name, ord.TotalAmount),
			OrderNumber: ord.OrderNumber,
			Amount:      &amount,
		})

		s.push.SendPush(ctx, ord.Seller.UserID,
			"New Order Received! 🛍️",
			fmt.Sprintf("You have a new order #%s for %s", ord.OrderNumber, ord.Product.Name),
			ord.ID, ord.Product.Name)
	} else {
		slog.Warn("Seller user id missing, skipping seller notifications", "order_id", ord.ID)
	}

	if ord.Buyer.UserID != "" {
		s.push.SendPush(ctx, ord.Buyer.UserID,
			"Order Confirmed! ✅",
			fmt.Sprintf("Your order #%s for %s has been confirmed.", ord.OrderNumber, ord.Product.Name),
			ord.ID, ord.Product.Name)
	} else {
		slog.Warn("Buyer user id missing, skipping buyer push", "order_id", ord.ID)
	}

	if ord.Buyer.UserID != "" && !ord.IsPayOnDelivery() {
		s.push.SendPush(ctx, ord.Buyer.UserID,
			"Payment Secured 🔒",
			fmt.Sprintf("₦%.0f is held securely in escrow for order #%s", ord.EscrowAmount, ord.OrderNumber),
			ord.ID, ord.Product.Name)
	}

	return nil
}

// handleOrderCancelled runs the cancellation fan-out: both emails and both
// pushes. No in-app record is written here; the placement flow is the only
// one that creates rows.
func (s *NotifyService) handleOrderCancelled(ctx context.Context, ord *order.Order) error {
	ctx, span := otel.Tracer("notify-svc").Start(ctx, "NotifyService.handleOrderCancelled")
	defer span.End()

	buyerHTML, err := templates.BuyerCancelled(ord)
	if err != nil {
		return err
	}
	if _, err := s.email.Send(ctx, ord.Buyer.Email, "Order Cancelled - "+ord.OrderNumber, buyerHTML); err != nil {
		return err
	}

	if err := s.wait(ctx); err != nil {
		return err
	}

	sellerHTML, err := templates.SellerCancelled(ord)
	if err != nil {
		return err
	}
	if _, err := s.email.Send(ctx, ord.Seller.Email, "Order Cancelled - "+ord.OrderNumber, sellerHTML); err != nil {
		return err
	}

	cancelledBody := fmt.Sprintf("Your order #%s for %s has been cancelled.", ord.OrderNumber, ord.Product.Name)

	if ord.Seller.UserID != "" {
		s.push.SendPush(ctx, ord.Seller.UserID, "Order Cancelled", cancelledBody, ord.ID, ord.Product.Name)
	}

	if ord.Buyer.UserID != "" {
		s.push.SendPush(ctx, ord.Buyer.UserID, "Order Cancelled", cancelledBody, ord.ID, ord.Product.Name)
	}

	return nil
}

// recordNotification writes one in-app notification row. Insert failures
// are logged and swallowed; the fan-out proceeds without the row.
func (s *NotifyService) recordNotification(
	ctx context.Context,
	n notification.Notification,
) *notification.Notification {
	created, err := s.notifications.Insert(ctx, n)
	if err != nil {
		slog.Error("Failed to create notification",
			"user_id", n.UserID,
			"type", n.Type.String(),
			"order_number", n.OrderNumber,
			"error", err,
		)

		return nil
	}

	slog.Info("Notification created",
		"notification_id", created.ID,
		"user_id", created.UserID,
		"type", created.Type.String(),
	)

	return created
}

// wait pauses between consecutive email sends.
func (s *NotifyService) wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(s.sendDelay):
		return nil
	}
}
