package payments

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/orderflow/internal/orders"
	"github.com/angelmondragon/orderflow/pkg/config"
	"github.com/angelmondragon/orderflow/pkg/db/models"
	"github.com/angelmondragon/orderflow/pkg/enums"
	pkgerrors "github.com/angelmondragon/orderflow/pkg/errors"
	"github.com/angelmondragon/orderflow/pkg/logger"
)

const (
	placeholderOrderID = "{ORDER_ID}"
	defaultSessionTTL  = 30 * time.Minute
)

var hundred = decimal.NewFromInt(100)

// Caller is the authenticated buyer as seen by the payment endpoints.
type Caller struct {
	UserID uuid.UUID
	Email  string
}

type CreateSessionInput struct {
	OrderID    uuid.UUID
	SuccessURL string
	CancelURL  string
	// Origin is the requesting site; relative redirect templates resolve
	// against it before falling back to the configured public URL.
	Origin string
}

type SessionResult struct {
	SessionID string `json:"sessionId"`
	URL       string `json:"url"`
}

// SessionService opens hosted checkout sessions for pending orders.
type SessionService interface {
	CreateSession(ctx context.Context, caller Caller, input CreateSessionInput) (*SessionResult, error)
}

type SessionServiceParams struct {
	Orders    orders.Repository
	Gateway   Gateway
	Config    config.StripeConfig
	PublicURL string
	Logger    *logger.Logger
	Now       func() time.Time
}

type sessionService struct {
	orders    orders.Repository
	gateway   Gateway
	cfg       config.StripeConfig
	publicURL string
	logg      *logger.Logger
	now       func() time.Time
}

func NewSessionService(params SessionServiceParams) (SessionService, error) {
	if params.Orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Gateway == nil {
		return nil, fmt.Errorf("payment gateway required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &sessionService{
		orders:    params.Orders,
		gateway:   params.Gateway,
		cfg:       params.Config,
		publicURL: strings.TrimRight(params.PublicURL, "/"),
		logg:      params.Logger,
		now:       now,
	}, nil
}

func (s *sessionService) CreateSession(ctx context.Context, caller Caller, input CreateSessionInput) (*SessionResult, error) {
	if caller.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "orderId is required")
	}

	order, err := s.orders.FindByID(ctx, input.OrderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order.UserID != caller.UserID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another user")
	}
	if order.Status == enums.OrderStatusCompleted || order.PaymentStatus.IsTerminalSuccess() {
		return nil, pkgerrors.New(pkgerrors.CodeAlreadyCompleted, "order is already completed")
	}

	orderID := order.ID.String()
	base := strings.TrimRight(strings.TrimSpace(input.Origin), "/")
	if base == "" {
		base = s.publicURL
	}
	successURL, err := resolveURL(input.SuccessURL, s.cfg.SuccessURL, orderID, base)
	if err != nil {
		return nil, err
	}
	cancelURL, err := resolveURL(input.CancelURL, s.cfg.CancelURL, orderID, base)
	if err != nil {
		return nil, err
	}

	ttl := s.cfg.SessionTTL
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	currency := strings.ToLower(strings.TrimSpace(s.cfg.Currency))
	if currency == "" {
		currency = "usd"
	}

	req := SessionRequest{
		OrderID:       orderID,
		UserID:        order.UserID.String(),
		CustomerEmail: caller.Email,
		Currency:      currency,
		LineItems:     lineItems(order),
		SuccessURL:    successURL,
		CancelURL:     cancelURL,
		ExpiresAt:     s.now().Add(ttl),
	}
	sess, err := s.gateway.CreateCheckoutSession(ctx, req)
	if err != nil {
		if pkgerrors.As(err) == nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeGateway, err, "create checkout session failed")
		}
		return nil, err
	}

	attached, err := s.orders.AttachGatewaySession(ctx, order.ID, sess.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record checkout session")
	}
	if !attached {
		// a webhook settled the order while the session was being created
		return nil, pkgerrors.New(pkgerrors.CodeAlreadyCompleted, "order is already completed")
	}

	if s.logg != nil {
		logCtx := s.logg.WithOrderID(ctx, orderID)
		logCtx = s.logg.WithField(logCtx, "session_id", sess.ID)
		s.logg.Info(logCtx, "checkout session created")
	}
	return &SessionResult{SessionID: sess.ID, URL: sess.URL}, nil
}

// resolveURL prefers the caller's URL over the configured template. The
// {CHECKOUT_SESSION_ID} placeholder is left for Stripe to fill in.
func resolveURL(requested, template, orderID, base string) (string, error) {
	raw := strings.TrimSpace(requested)
	if raw == "" {
		raw = template
	}
	raw = strings.ReplaceAll(raw, placeholderOrderID, orderID)
	if strings.HasPrefix(raw, "/") && base != "" {
		raw = base + raw
	}
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "redirect url must be absolute")
	}
	return raw, nil
}

func lineItems(order *models.Order) []LineItem {
	items := make([]LineItem, 0, len(order.Items))
	for _, item := range order.Items {
		line := LineItem{
			Name:       "Item",
			UnitAmount: item.Price.Mul(hundred).Round(0).IntPart(),
			Quantity:   int64(item.Quantity),
		}
		if item.Product != nil {
			line.Name = item.Product.Name
			line.Description = item.Product.Description
			if item.Product.ImageURL != nil {
				line.ImageURL = *item.Product.ImageURL
			}
		}
		items = append(items, line)
	}
	return items
}
