package orders

import (
	"time"

	"github.com/angelmondragon/orderflow/pkg/db/models"
	"github.com/angelmondragon/orderflow/pkg/enums"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderView is the JSON projection of an order returned to buyers.
type OrderView struct {
	ID              uuid.UUID           `json:"id"`
	UserID          uuid.UUID           `json:"userId"`
	Total           decimal.Decimal     `json:"total"`
	ShippingAddress string              `json:"shippingAddress"`
	PaymentMethod   enums.PaymentMethod `json:"paymentMethod"`
	Status          enums.OrderStatus   `json:"status"`
	PaymentStatus   enums.PaymentStatus `json:"paymentStatus"`
	StripeSessionID *string             `json:"stripeSessionId,omitempty"`
	PaymentIntentID *string             `json:"paymentIntentId,omitempty"`
	Items           []OrderItemView     `json:"items"`
	CreatedAt       time.Time           `json:"createdAt"`
	UpdatedAt       time.Time           `json:"updatedAt"`
}

type OrderItemView struct {
	ID        uuid.UUID       `json:"id"`
	ProductID uuid.UUID       `json:"productId"`
	Name      string          `json:"name,omitempty"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

// OrderList wraps a page of orders plus the next page cursor.
type OrderList struct {
	Orders     []OrderView `json:"orders"`
	NextCursor string      `json:"nextCursor,omitempty"`
}

func NewOrderView(order *models.Order) OrderView {
	view := OrderView{
		ID:              order.ID,
		UserID:          order.UserID,
		Total:           order.Total,
		ShippingAddress: order.ShippingAddress,
		PaymentMethod:   order.PaymentMethod,
		Status:          order.Status,
		PaymentStatus:   order.PaymentStatus,
		StripeSessionID: order.StripeSessionID,
		PaymentIntentID: order.PaymentIntentID,
		Items:           make([]OrderItemView, 0, len(order.Items)),
		CreatedAt:       order.CreatedAt,
		UpdatedAt:       order.UpdatedAt,
	}
	for _, item := range order.Items {
		iv := OrderItemView{
			ID:        item.ID,
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Price:     item.Price,
		}
		if item.Product != nil {
			iv.Name = item.Product.Name
		}
		view.Items = append(view.Items, iv)
	}
	return view
}
