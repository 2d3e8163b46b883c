package checkout

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/orderflow/internal/cart"
	"github.com/angelmondragon/orderflow/internal/orders"
	"github.com/angelmondragon/orderflow/pkg/db/models"
	"github.com/angelmondragon/orderflow/pkg/enums"
	pkgerrors "github.com/angelmondragon/orderflow/pkg/errors"
	"github.com/angelmondragon/orderflow/pkg/logger"
	"github.com/angelmondragon/orderflow/pkg/outbox"
	"github.com/angelmondragon/orderflow/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service converts a buyer's cart into a pending order.
type Service interface {
	Execute(ctx context.Context, userID uuid.UUID, input Input) (*models.Order, error)
}

// Input is what the buyer submits at checkout. Total is precomputed by the client.
type Input struct {
	ShippingAddress string
	PaymentMethod   string
	Total           decimal.Decimal
}

type service struct {
	tx         txRunner
	cartRepo   cart.Repository
	ordersRepo orders.Repository
	outbox     outbox.Emitter
	logg       *logger.Logger
}

func NewService(tx txRunner, cartRepo cart.Repository, ordersRepo orders.Repository, publisher outbox.Emitter, logg *logger.Logger) (Service, error) {
	switch {
	case tx == nil:
		return nil, fmt.Errorf("checkout: tx runner required")
	case cartRepo == nil:
		return nil, fmt.Errorf("checkout: cart repository required")
	case ordersRepo == nil:
		return nil, fmt.Errorf("checkout: orders repository required")
	case publisher == nil:
		return nil, fmt.Errorf("checkout: outbox emitter required")
	}
	return &service{tx: tx, cartRepo: cartRepo, ordersRepo: ordersRepo, outbox: publisher, logg: logg}, nil
}

// Execute snapshots the cart into a PENDING order, queues order_created and
// empties the cart in one transaction.
func (s *service) Execute(ctx context.Context, userID uuid.UUID, input Input) (*models.Order, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user id required")
	}
	address, method, err := validateInput(input)
	if err != nil {
		return nil, err
	}

	var placed *models.Order
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		placed, err = s.place(ctx, tx, userID, input.Total, address, method)
		return err
	})
	if err != nil {
		if pkgerrors.As(err) == nil {
			err = pkgerrors.Wrap(pkgerrors.CodeDependency, err, "checkout transaction")
		}
		return nil, err
	}

	if s.logg != nil {
		s.logg.Info(s.logg.WithOrderID(ctx, placed.ID.String()), "order created from cart")
	}
	return placed, nil
}

func (s *service) place(ctx context.Context, tx *gorm.DB, userID uuid.UUID, total decimal.Decimal, address string, method enums.PaymentMethod) (*models.Order, error) {
	carts := s.cartRepo.WithTx(tx)
	orderRepo := s.ordersRepo.WithTx(tx)

	current, err := carts.LockByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	if current == nil || len(current.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeEmptyCart, "cart is empty")
	}

	order, subtotal, err := snapshot(current, userID, total, address, method)
	if err != nil {
		return nil, err
	}
	// the submitted total is authoritative; a mismatch is only surfaced
	if !subtotal.Equal(total) && s.logg != nil {
		s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
			"submitted_total": total.StringFixed(2),
			"cart_subtotal":   subtotal.StringFixed(2),
		}), "checkout total differs from cart subtotal")
	}

	if err := orderRepo.Create(ctx, order); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
	}
	created := outbox.DomainEvent{
		EventType:     enums.EventOrderCreated,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Actor:         &outbox.ActorRef{UserID: userID, Source: "checkout"},
		Data: payloads.OrderCreatedEvent{
			OrderID:   order.ID,
			UserID:    userID,
			Total:     order.Total,
			ItemCount: len(order.Items),
		},
	}
	if err := s.outbox.Emit(ctx, tx, created); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit order created")
	}
	cleared, err := carts.ClearItems(ctx, current.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
	}
	if cleared == 0 {
		// another conversion emptied the cart first; roll this order back
		return nil, pkgerrors.New(pkgerrors.CodeEmptyCart, "cart is empty")
	}

	reloaded, err := orderRepo.FindByID(ctx, order.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload order")
	}
	return reloaded, nil
}

// snapshot copies each cart line at the product's current price.
func snapshot(c *models.Cart, userID uuid.UUID, total decimal.Decimal, address string, method enums.PaymentMethod) (*models.Order, decimal.Decimal, error) {
	order := &models.Order{
		ID:              uuid.New(),
		UserID:          userID,
		Total:           total,
		ShippingAddress: address,
		PaymentMethod:   method,
		Status:          enums.OrderStatusPending,
		PaymentStatus:   enums.PaymentStatusPending,
		Items:           make([]models.OrderItem, 0, len(c.Items)),
	}
	subtotal := decimal.Zero
	for _, line := range c.Items {
		if line.Product == nil {
			return nil, decimal.Zero, pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("product %s missing for cart item", line.ProductID))
		}
		order.Items = append(order.Items, models.OrderItem{
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			Price:     line.Product.Price,
		})
		subtotal = subtotal.Add(line.Product.Price.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}
	return order, subtotal, nil
}

func validateInput(input Input) (string, enums.PaymentMethod, error) {
	address := strings.TrimSpace(input.ShippingAddress)
	if address == "" {
		return "", "", pkgerrors.New(pkgerrors.CodeValidation, "shipping address is required")
	}
	method, err := enums.ParsePaymentMethod(strings.TrimSpace(input.PaymentMethod))
	if err != nil {
		return "", "", pkgerrors.New(pkgerrors.CodeValidation, "payment method is invalid")
	}
	if !input.Total.IsPositive() {
		return "", "", pkgerrors.New(pkgerrors.CodeValidation, "total must be greater than zero")
	}
	return address, method, nil
}
