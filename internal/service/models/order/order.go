package order

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// PaymentMethodPayOnDelivery marks orders whose funds are not captured
// online at order time. No escrow is held for them.
const PaymentMethodPayOnDelivery = "pod"

// StatusCancelled is the order status that triggers the cancellation flow.
const StatusCancelled = "cancelled"

// ErrNotFound is returned when no order exists for the requested id.
// Its text is part of the webhook response contract.
var ErrNotFound = errors.New("Order not found")

// Order is the read-only aggregate fetched per change event. It joins the
// buyer profile, the seller and the product of a single-seller order.
type Order struct {
	ID            string  `json:"id"            validate:"required"`
	OrderNumber   string  `json:"orderNumber"   validate:"required"`
	TotalAmount   float64 `json:"totalAmount"`
	EscrowAmount  float64 `json:"escrowAmount"`
	PaymentMethod string  `json:"paymentMethod"`
	PaymentStatus string  `json:"paymentStatus"`
	OrderStatus   string  `json:"orderStatus"`
	DeliveryCode  string  `json:"deliveryCode"`
	Buyer         Buyer   `json:"buyer"`
	Seller        Seller  `json:"seller"`
	Product       Product `json:"product"`
}

// Buyer is the buyer profile attached to an order.
type Buyer struct {
	UserID string `json:"userId"`
	Email  string `json:"email" validate:"required,email"`
	// FullName is the buyer's display name.
	FullName string `json:"fullName"`
	// PhoneNumber is optional; templates render a fallback when empty.
	PhoneNumber string `json:"phoneNumber"`
}

// Seller is the seller record attached to an order. UserID may be empty
// for sellers that never linked an account; their in-app and push
// notifications are skipped.
type Seller struct {
	UserID   string `json:"userId"`
	Email    string `json:"email" validate:"required,email"`
	FullName string `json:"fullName"`
}

// Product is the ordered product snapshot.
type Product struct {
	Name  string  `json:"name" validate:"required"`
	Price float64 `json:"price"`
}

var validate = validator.New()

// ValidationError reports an aggregate that came back from the store with
// required fields missing or malformed.
type ValidationError struct {
	OrderID string
	Err     error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("order %s failed validation: %v", e.OrderID, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Validate checks the aggregate right after the store fetch so that missing
// required fields fail fast instead of leaking into templates and payloads.
func (o *Order) Validate() error {
	if err := validate.Struct(o); err != nil {
		return &ValidationError{OrderID: o.ID, Err: err}
	}

	return nil
}

// IsPayOnDelivery reports whether the order is paid on delivery.
func (o *Order) IsPayOnDelivery() bool {
	return o.PaymentMethod == PaymentMethodPayOnDelivery
}
