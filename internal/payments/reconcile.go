package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/orderflow/internal/orders"
	pkgerrors "github.com/angelmondragon/orderflow/pkg/errors"
)

// Verification joins the gateway's session state with the stored order.
type Verification struct {
	Session *GatewaySession  `json:"session"`
	Order   orders.OrderView `json:"order"`
}

// ReconcileService lets a buyer returning from hosted checkout read the
// gateway's view of their session next to the stored order. It never writes;
// order state only moves through the webhook processor.
type ReconcileService interface {
	Verify(ctx context.Context, caller Caller, sessionID string) (*Verification, error)
}

type reconcileService struct {
	orders  orders.Repository
	gateway Gateway
}

func NewReconcileService(ordersRepo orders.Repository, gateway Gateway) (ReconcileService, error) {
	if ordersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if gateway == nil {
		return nil, fmt.Errorf("payment gateway required")
	}
	return &reconcileService{orders: ordersRepo, gateway: gateway}, nil
}

func (s *reconcileService) Verify(ctx context.Context, caller Caller, sessionID string) (*Verification, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session_id is required")
	}
	if strings.TrimSpace(caller.Email) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authenticated email required")
	}

	sess, err := s.gateway.GetCheckoutSession(ctx, sessionID)
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "checkout session not found")
		}
		if pkgerrors.As(err) == nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeGateway, err, "retrieve checkout session failed")
		}
		return nil, err
	}

	if !strings.EqualFold(strings.TrimSpace(sess.CustomerEmail), strings.TrimSpace(caller.Email)) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "checkout session belongs to another customer")
	}

	rawOrderID := sess.OrderID()
	if rawOrderID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "checkout session has no order reference")
	}
	orderID, err := uuid.Parse(rawOrderID)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}

	return &Verification{Session: sess, Order: orders.NewOrderView(order)}, nil
}
