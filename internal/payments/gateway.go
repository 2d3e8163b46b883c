package payments

import (
	"context"
	"time"
)

// Gateway is the hosted-checkout provider. Implementations return *pkgerrors.Error
// values: CodeNotFound for unknown sessions and CodeGateway for everything else
// the provider rejects.
type Gateway interface {
	CreateCheckoutSession(ctx context.Context, req SessionRequest) (*GatewaySession, error)
	GetCheckoutSession(ctx context.Context, sessionID string) (*GatewaySession, error)
}

// SessionRequest describes a one-off card payment for a single order.
type SessionRequest struct {
	OrderID       string
	UserID        string
	CustomerEmail string
	Currency      string
	LineItems     []LineItem
	SuccessURL    string
	CancelURL     string
	ExpiresAt     time.Time
}

// LineItem amounts are in the currency's minor unit.
type LineItem struct {
	Name        string
	Description string
	ImageURL    string
	UnitAmount  int64
	Quantity    int64
}

// GatewaySession is the provider's view of a checkout session.
type GatewaySession struct {
	ID              string            `json:"id"`
	URL             string            `json:"url,omitempty"`
	PaymentStatus   string            `json:"payment_status"`
	Status          string            `json:"status"`
	AmountTotal     int64             `json:"amount_total"`
	Currency        string            `json:"currency"`
	CustomerEmail   string            `json:"customer_email"`
	PaymentIntentID string            `json:"payment_intent_id,omitempty"`
	Metadata        map[string]string `json:"-"`
}

// OrderID returns the order reference written into the session metadata.
func (s *GatewaySession) OrderID() string {
	if s == nil || s.Metadata == nil {
		return ""
	}
	return s.Metadata[MetadataOrderID]
}

const (
	MetadataOrderID = "orderId"
	MetadataUserID  = "userId"
)
