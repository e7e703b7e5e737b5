package postgres

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/unihub/notify-svc/internal/dal/postgres"
	"github.com/unihub/notify-svc/internal/service/models/order"
)

// OrderRepository reads the order aggregate from the marketplace store.
type OrderRepository struct {
	client *postgres.Client
}

// NewOrderRepository creates a new order repository.
func NewOrderRepository(client *postgres.Client) *OrderRepository {
	return &OrderRepository{
		client: client,
	}
}

// orderDal is the flat scan target for the aggregate query.
type orderDal struct {
	ID               string
	OrderNumber      string
	TotalAmount      float64
	EscrowAmount     float64
	PaymentMethod    string
	PaymentStatus    string
	OrderStatus      string
	DeliveryCode     string
	BuyerID          string
	BuyerEmail       string
	BuyerFullName    string
	BuyerPhoneNumber string
	SellerEmail      string
	SellerFullName   string
	SellerUserID     string
	ProductName      string
	ProductPrice     float64
}

func (d *orderDal) toModel() *order.Order {
	return &order.Order{
		ID:            d.ID,
		OrderNumber:   d.OrderNumber,
		TotalAmount:   d.TotalAmount,
		EscrowAmount:  d.EscrowAmount,
		PaymentMethod: d.PaymentMethod,
		PaymentStatus: d.PaymentStatus,
		OrderStatus:   d.OrderStatus,
		DeliveryCode:  d.DeliveryCode,
		Buyer: order.Buyer{
			UserID:      d.BuyerID,
			Email:       d.BuyerEmail,
			FullName:    d.BuyerFullName,
			PhoneNumber: d.BuyerPhoneNumber,
		},
		Seller: order.Seller{
			UserID:   d.SellerUserID,
			Email:    d.SellerEmail,
			FullName: d.SellerFullName,
		},
		Product: order.Product{
			Name:  d.ProductName,
			Price: d.ProductPrice,
		},
	}
}

// GetByID fetches one order joined with its buyer profile, seller and
// product. The aggregate is validated before it is handed to the service
// layer so that missing required fields surface as a typed error.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*order.Order, error) {
	query, args, err := sq.Select(
		"o.id",
		"o.order_number",
		"o.total_amount",
		"COALESCE(o.escrow_amount, 0)",
		"o.payment_method",
		"o.payment_status",
		"o.order_status",
		"COALESCE(o.delivery_code, '')",
		"o.buyer_id",
		"b.email",
		"b.full_name",
		"COALESCE(b.phone_number, '')",
		"s.email",
		"s.full_name",
		"COALESCE(s.user_id, '')",
		"p.name",
		"p.price",
	).
		From("orders o").
		Join("profiles b ON b.id = o.buyer_id").
		Join("sellers s ON s.id = o.seller_id").
		Join("products p ON p.id = o.product_id").
		Where(sq.Eq{"o.id": id}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build order query: %w", err)
	}

	var dal orderDal
	err = r.client.Pool().QueryRow(ctx, query, args...).Scan(
		&dal.ID,
		&dal.OrderNumber,
		&dal.TotalAmount,
		&dal.EscrowAmount,
		&dal.PaymentMethod,
		&dal.PaymentStatus,
		&dal.OrderStatus,
		&dal.DeliveryCode,
		&dal.BuyerID,
		&dal.BuyerEmail,
		&dal.BuyerFullName,
		&dal.BuyerPhoneNumber,
		&dal.SellerEmail,
		&dal.SellerFullName,
		&dal.SellerUserID,
		&dal.ProductName,
		&dal.ProductPrice,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", order.ErrNotFound, id)
		}

		return nil, fmt.Errorf("failed to query order %s: %w", id, err)
	}

	model := dal.toModel()
	if err := model.Validate(); err != nil {
		return nil, err
	}

	return model, nil
}
