package orders

import (
	"context"
	"time"

	"github.com/angelmondragon/orderflow/pkg/db/models"
	"github.com/angelmondragon/orderflow/pkg/enums"
	"github.com/angelmondragon/orderflow/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository is the order store. It is the single source of truth shared by
// the webhook processor and the session reconciler.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindByPaymentIntentID(ctx context.Context, paymentIntentID string) (*models.Order, error)
	ListByUser(ctx context.Context, userID uuid.UUID, params pagination.Params) (*OrderList, error)
	AttachGatewaySession(ctx context.Context, id uuid.UUID, sessionID string) (bool, error)
	ApplyPaymentTransition(ctx context.Context, id uuid.UUID, t Transition) (bool, error)
	CountPendingBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Transition is a reconciliation write against an order's payment fields.
type Transition struct {
	PaymentStatus   enums.PaymentStatus
	Status          enums.OrderStatus
	PaymentIntentID *string
}

// Paid marks the payment settled and the order confirmed.
func Paid(paymentIntentID string) Transition {
	t := Transition{PaymentStatus: enums.PaymentStatusPaid, Status: enums.OrderStatusConfirmed}
	if paymentIntentID != "" {
		t.PaymentIntentID = &paymentIntentID
	}
	return t
}

// Failed marks the payment failed and the order cancelled.
func Failed() Transition {
	return Transition{PaymentStatus: enums.PaymentStatusFailed, Status: enums.OrderStatusCancelled}
}
