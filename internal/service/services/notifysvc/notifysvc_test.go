package notifysvc

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/unihub/notify-svc/internal/service/models/event"
	"github.com/unihub/notify-svc/internal/service/models/notification"
	"github.com/unihub/notify-svc/internal/service/models/order"
)

// recorder captures the cross-channel call sequence so tests can assert the
// fixed fan-out order.
type recorder struct {
	sequence []string
}

func (r *recorder) add(entry string) {
	r.sequence = append(r.sequence, entry)
}

type fakeOrderRepo struct {
	ord *order.Order
	err error
}

func (f *fakeOrderRepo) GetByID(_ context.Context, _ string) (*order.Order, error) {
	if f.err != nil {
		return nil, f.err
	}

	return f.ord, nil
}

type fakeNotificationRepo struct {
	rec      *recorder
	inserted []notification.Notification
	err      error
}

func (f *fakeNotificationRepo) Insert(
	_ context.Context,
	n notification.Notification,
) (*notification.Notification, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.inserted = append(f.inserted, n)
	f.rec.add("record:" + n.UserID)
	n.ID = fmt.Sprintf("n-%d", len(f.inserted))

	return &n, nil
}

type emailCall struct {
	to      string
	subject string
}

type fakeEmailSender struct {
	rec    *recorder
	calls  []emailCall
	failOn int // 1-based call index that fails, 0 means never
	err    error
}

func (f *fakeEmailSender) Send(_ context.Context, to, subject, _ string) (string, error) {
	f.calls = append(f.calls, emailCall{to: to, subject: subject})
	if f.failOn != 0 && len(f.calls) == f.failOn {
		return "", f.err
	}
	f.rec.add("email:" + subject)

	return fmt.Sprintf("msg_%d", len(f.calls)), nil
}

type pushCall struct {
	userID string
	title  string
	body   string
}

type fakePushDispatcher struct {
	rec   *recorder
	calls []pushCall
}

func (f *fakePushDispatcher) SendPush(_ context.Context, userID, title, body, _, _ string) {
	f.calls = append(f.calls, pushCall{userID: userID, title: title, body: body})
	f.rec.add("push:" + userID + ":" + title)
}

func testOrder() *order.Order {
	return &order.Order{
		ID:            "ord-1",
		OrderNumber:   "UH-1001",
		TotalAmount:   15000,
		EscrowAmount:  14500,
		PaymentMethod: "card",
		PaymentStatus: "paid",
		OrderStatus:   "pending",
		DeliveryCode:  "482913",
		Buyer: order.Buyer{
			UserID:      "B1",
			Email:       "buyer@example.com",
			FullName:    "Ada Obi",
			PhoneNumber: "+2348012345678",
		},
		Seller: order.Seller{
			UserID:   "S1",
			Email:    "seller@example.com",
			FullName: "Chidi Okeke",
		},
		Product: order.Product{
			Name:  "Casio Calculator",
			Price: 15000,
		},
	}
}

type fixture struct {
	svc           *NotifyService
	rec           *recorder
	orders        *fakeOrderRepo
	notifications *fakeNotificationRepo
	email         *fakeEmailSender
	push          *fakePushDispatcher
}

func newFixture(ord *order.Order) *fixture {
	rec := &recorder{}
	orders := &fakeOrderRepo{ord: ord}
	notifications := &fakeNotificationRepo{rec: rec}
	email := &fakeEmailSender{rec: rec}
	push := &fakePushDispatcher{rec: rec}

	svc := MustNewNotifyService(
		WithOrderRepository(orders),
		WithNotificationRepository(notifications),
		WithEmailSender(email),
		WithPushDispatcher(push),
		WithSendDelay(time.Millisecond),
	)

	return &fixture{
		svc:           svc,
		rec:           rec,
		orders:        orders,
		notifications: notifications,
		email:         email,
		push:          push,
	}
}

func insertEvent() event.ChangeEvent {
	return event.ChangeEvent{Type: event.TypeInsert, Record: event.Record{ID: "ord-1"}}
}

func updateEvent() event.ChangeEvent {
	return event.ChangeEvent{Type: event.TypeUpdate, Record: event.Record{ID: "ord-1"}}
}

func TestHandleOrderEventInsertFullFanOut(t *testing.T) {
	t.Parallel()

	f := newFixture(testOrder())

	if err := f.svc.HandleOrderEvent(context.Background(), insertEvent()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	wantSequence := []string{
		"email:Order Confirmed - UH-1001",
		"email:New Order - UH-1001",
		"record:S1",
		"push:S1:New Order Received! 🛍️",
		"push:B1:Order Confirmed! ✅",
		"push:B1:Payment Secured 🔒",
	}
	if got := strings.Join(f.rec.sequence, "\n"); got != strings.Join(wantSequence, "\n") {
		t.Errorf("fan-out sequence mismatch:\ngot:\n%s\nwant:\n%s", got, strings.Join(wantSequence, "\n"))
	}

	if len(f.email.calls) != 2 {
		t.Fatalf("emails = %d, want 2", len(f.email.calls))
	}
	if f.email.calls[0].to != "buyer@example.com" {
		t.Errorf("first email to = %q, want buyer", f.email.calls[0].to)
	}
	if f.email.calls[1].to != "seller@example.com" {
		t.Errorf("second email to = %q, want seller", f.email.calls[1].to)
	}

	if len(f.notifications.inserted) != 1 {
		t.Fatalf("records = %d, want 1", len(f.notifications.inserted))
	}
	rec := f.notifications.inserted[0]
	if rec.Type != notification.TypeOrderPlaced {
		t.Errorf("record type = %q, want order_placed", rec.Type)
	}
	if rec.Amount == nil || *rec.Amount != 15000 {
		t.Errorf("record amount = %v, want 15000", rec.Amount)
	}
	if rec.OrderNumber != "UH-1001" {
		t.Errorf("record order number = %q", rec.OrderNumber)
	}

	if len(f.push.calls) != 3 {
		t.Fatalf("pushes = %d, want 3", len(f.push.calls))
	}
	if !strings.Contains(f.push.calls[2].body, "₦14500") {
		t.Errorf("escrow push body = %q, want escrow amount", f.push.calls[2].body)
	}
}

func TestHandleOrderEventInsertPayOnDelivery(t *testing.T) {
	t.Parallel()

	ord := testOrder()
	ord.PaymentMethod = order.PaymentMethodPayOnDelivery
	f := newFixture(ord)

	if err := f.svc.HandleOrderEvent(context.Background(), insertEvent()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(f.push.calls) != 2 {
		t.Fatalf("pushes = %d, want 2", len(f.push.calls))
	}
	for _, call := range f.push.calls {
		if call.title == "Payment Secured 🔒" {
			t.Error("payment secured push must not be sent for pay-on-delivery orders")
		}
	}
}

func TestHandleOrderEventInsertMissingSellerUserID(t *testing.T) {
	t.Parallel()

	ord := testOrder()
	ord.Seller.UserID = ""
	f := newFixture(ord)

	if err := f.svc.HandleOrderEvent(context.Background(), insertEvent()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(f.notifications.inserted) != 0 {
		t.Errorf("records = %d, want 0", len(f.notifications.inserted))
	}
	if len(f.push.calls) != 2 {
		t.Fatalf("pushes = %d, want 2", len(f.push.calls))
	}
	for _, call := range f.push.calls {
		if call.userID != "B1" {
			t.Errorf("push user = %q, want only buyer pushes", call.userID)
		}
	}
	// Emails still go to both parties; only user-id bound channels skip.
	if len(f.email.calls) != 2 {
		t.Errorf("emails = %d, want 2", len(f.email.calls))
	}
}

func TestHandleOrderEventInsertMissingBuyerUserID(t *testing.T) {
	t.Parallel()

	ord := testOrder()
	ord.Buyer.UserID = ""
	f := newFixture(ord)

	if err := f.svc.HandleOrderEvent(context.Background(), insertEvent()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(f.notifications.inserted) != 1 {
		t.Errorf("records = %d, want 1", len(f.notifications.inserted))
	}
	if len(f.push.calls) != 1 {
		t.Fatalf("pushes = %d, want 1", len(f.push.calls))
	}
	if f.push.calls[0].userID != "S1" {
		t.Errorf("push user = %q, want S1", f.push.calls[0].userID)
	}
}

func TestHandleOrderEventUpdateCancelled(t *testing.T) {
	t.Parallel()

	ord := testOrder()
	ord.OrderStatus = order.StatusCancelled
	f := newFixture(ord)

	if err := f.svc.HandleOrderEvent(context.Background(), updateEvent()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	wantSequence := []string{
		"email:Order Cancelled - UH-1001",
		"email:Order Cancelled - UH-1001",
		"push:S1:Order Cancelled",
		"push:B1:Order Cancelled",
	}
	if got := strings.Join(f.rec.sequence, "\n"); got != strings.Join(wantSequence, "\n") {
		t.Errorf("fan-out sequence mismatch:\ngot:\n%s\nwant:\n%s", got, strings.Join(wantSequence, "\n"))
	}

	// The cancellation flow never writes in-app rows.
	if len(f.notifications.inserted) != 0 {
		t.Errorf("records = %d, want 0", len(f.notifications.inserted))
	}
}

func TestHandleOrderEventUpdateOtherStatusIsNoOp(t *testing.T) {
	t.Parallel()

	ord := testOrder()
	ord.OrderStatus = "shipped"
	f := newFixture(ord)

	if err := f.svc.HandleOrderEvent(context.Background(), updateEvent()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(f.rec.sequence) != 0 {
		t.Errorf("side effects = %v, want none", f.rec.sequence)
	}
}

func TestHandleOrderEventUnknownTypeIsNoOp(t *testing.T) {
	t.Parallel()

	f := newFixture(testOrder())

	ev := event.ChangeEvent{Type: "DELETE", Record: event.Record{ID: "ord-1"}}
	if err := f.svc.HandleOrderEvent(context.Background(), ev); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(f.rec.sequence) != 0 {
		t.Errorf("side effects = %v, want none", f.rec.sequence)
	}
}

func TestHandleOrderEventOrderNotFound(t *testing.T) {
	t.Parallel()

	f := newFixture(nil)
	f.orders.err = fmt.Errorf("%w: %s", order.ErrNotFound, "ord-404")

	err := f.svc.HandleOrderEvent(context.Background(), insertEvent())
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !errors.Is(err, order.ErrNotFound) {
		t.Errorf("error = %v, want order.ErrNotFound", err)
	}
	if err.Error() != "Order not found: ord-404" {
		t.Errorf("error message = %q, want %q", err.Error(), "Order not found: ord-404")
	}
	if len(f.rec.sequence) != 0 {
		t.Errorf("side effects = %v, want none", f.rec.sequence)
	}
}

func TestHandleOrderEventEmailFailureAborts(t *testing.T) {
	t.Parallel()

	f := newFixture(testOrder())
	f.email.failOn = 2
	f.email.err = errors.New("failed to send email after 3 attempts: rate limit exceeded")

	err := f.svc.HandleOrderEvent(context.Background(), insertEvent())
	if err == nil {
		t.Fatal("expected error, got nil")
	}

	// The buyer email was already sent and is not compensated; nothing
	// after the failing send runs.
	if len(f.email.calls) != 2 {
		t.Errorf("email attempts = %d, want 2", len(f.email.calls))
	}
	if len(f.push.calls) != 0 {
		t.Errorf("pushes = %d, want 0", len(f.push.calls))
	}
	if len(f.notifications.inserted) != 0 {
		t.Errorf("records = %d, want 0", len(f.notifications.inserted))
	}
}

func TestHandleOrderEventRecordFailureIsSoft(t *testing.T) {
	t.Parallel()

	f := newFixture(testOrder())
	f.notifications.err = errors.New("failed to insert notification: connection refused")

	if err := f.svc.HandleOrderEvent(context.Background(), insertEvent()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// The failed insert must not block the remaining pushes.
	if len(f.push.calls) != 3 {
		t.Errorf("pushes = %d, want 3", len(f.push.calls))
	}
}
