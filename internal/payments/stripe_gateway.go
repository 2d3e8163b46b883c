package payments

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/checkout/session"

	"github.com/angelmondragon/orderflow/pkg/config"
	pkgerrors "github.com/angelmondragon/orderflow/pkg/errors"
	"github.com/angelmondragon/orderflow/pkg/logger"
)

type gatewayMetrics interface {
	ObserveGatewayCall(operation string, err error)
}

// StripeGateway calls Stripe Checkout through a circuit breaker. The API key is
// installed process-wide by pkg/stripe.NewClient.
type StripeGateway struct {
	breaker   *gobreaker.CircuitBreaker[*stripe.CheckoutSession]
	countries []string
	metrics   gatewayMetrics
	logg      *logger.Logger
}

func NewStripeGateway(cfg config.StripeConfig, metrics gatewayMetrics, logg *logger.Logger) *StripeGateway {
	maxFailures := cfg.BreakerMaxFailures
	if maxFailures == 0 {
		maxFailures = 5
	}
	openTimeout := cfg.BreakerOpenTimeout
	if openTimeout <= 0 {
		openTimeout = 30 * time.Second
	}
	g := &StripeGateway{countries: shippingCountries(cfg.ShippingCountries), metrics: metrics, logg: logg}
	g.breaker = gobreaker.NewCircuitBreaker[*stripe.CheckoutSession](gobreaker.Settings{
		Name:        "stripe-checkout",
		MaxRequests: 1,
		Timeout:     openTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		IsSuccessful: isBreakerSuccess,
		OnStateChange: func(name string, from, to gobreaker.State) {
			if g.logg == nil {
				return
			}
			ctx := g.logg.WithFields(context.Background(), map[string]any{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			})
			g.logg.Warn(ctx, "gateway circuit breaker state changed")
		},
	})
	return g
}

func (g *StripeGateway) CreateCheckoutSession(ctx context.Context, req SessionRequest) (*GatewaySession, error) {
	params := g.sessionParams(req)
	params.Context = ctx

	sess, err := g.breaker.Execute(func() (*stripe.CheckoutSession, error) {
		return session.New(params)
	})
	g.observe("create_session", err)
	if err != nil {
		return nil, translateStripeError(err, "create checkout session")
	}
	return fromStripeSession(sess), nil
}

func (g *StripeGateway) sessionParams(req SessionRequest) *stripe.CheckoutSessionParams {
	params := &stripe.CheckoutSessionParams{
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:         stripe.String(req.SuccessURL),
		CancelURL:          stripe.String(req.CancelURL),
		ShippingAddressCollection: &stripe.CheckoutSessionShippingAddressCollectionParams{
			AllowedCountries: stripe.StringSlice(g.countries),
		},
		BillingAddressCollection: stripe.String(string(stripe.CheckoutSessionBillingAddressCollectionRequired)),
	}
	if req.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(req.CustomerEmail)
	}
	if !req.ExpiresAt.IsZero() {
		params.ExpiresAt = stripe.Int64(req.ExpiresAt.Unix())
	}
	for _, item := range req.LineItems {
		product := &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
			Name: stripe.String(item.Name),
		}
		if item.Description != "" {
			product.Description = stripe.String(item.Description)
		}
		if item.ImageURL != "" {
			product.Images = stripe.StringSlice([]string{item.ImageURL})
		}
		params.LineItems = append(params.LineItems, &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:    stripe.String(req.Currency),
				UnitAmount:  stripe.Int64(item.UnitAmount),
				ProductData: product,
			},
			Quantity: stripe.Int64(item.Quantity),
		})
	}
	params.AddMetadata(MetadataOrderID, req.OrderID)
	params.AddMetadata(MetadataUserID, req.UserID)
	return params
}

// shippingCountries upper-cases and de-duplicates the configured codes,
// falling back to US and CA when none are usable.
func shippingCountries(raw []string) []string {
	out := make([]string, 0, len(raw))
	for _, code := range raw {
		code = strings.ToUpper(strings.TrimSpace(code))
		if code != "" && !slices.Contains(out, code) {
			out = append(out, code)
		}
	}
	if len(out) == 0 {
		return []string{"US", "CA"}
	}
	return out
}

func (g *StripeGateway) GetCheckoutSession(ctx context.Context, sessionID string) (*GatewaySession, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	sess, err := g.breaker.Execute(func() (*stripe.CheckoutSession, error) {
		return session.Get(sessionID, params)
	})
	g.observe("get_session", err)
	if err != nil {
		return nil, translateStripeError(err, "retrieve checkout session")
	}
	return fromStripeSession(sess), nil
}

func (g *StripeGateway) observe(op string, err error) {
	if g.metrics != nil {
		g.metrics.ObserveGatewayCall(op, err)
	}
}

// isBreakerSuccess keeps caller mistakes (4xx) from tripping the breaker.
func isBreakerSuccess(err error) bool {
	if err == nil {
		return true
	}
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		return stripeErr.HTTPStatusCode >= 400 && stripeErr.HTTPStatusCode < 500 &&
			stripeErr.HTTPStatusCode != http.StatusTooManyRequests
	}
	return false
}

func translateStripeError(err error, action string) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return pkgerrors.Wrap(pkgerrors.CodeGateway, err, "payment provider temporarily unavailable")
	}
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		if stripeErr.Code == stripe.ErrorCodeResourceMissing || stripeErr.HTTPStatusCode == http.StatusNotFound {
			return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "checkout session not found")
		}
		msg := stripeErr.Msg
		if msg == "" {
			msg = action + " failed"
		}
		return pkgerrors.Wrap(pkgerrors.CodeGateway, err, msg).WithDetails(map[string]any{
			"type": string(stripeErr.Type),
			"code": string(stripeErr.Code),
		})
	}
	return pkgerrors.Wrap(pkgerrors.CodeGateway, err, action+" failed")
}

func fromStripeSession(sess *stripe.CheckoutSession) *GatewaySession {
	if sess == nil {
		return nil
	}
	out := &GatewaySession{
		ID:            sess.ID,
		URL:           sess.URL,
		PaymentStatus: string(sess.PaymentStatus),
		Status:        string(sess.Status),
		AmountTotal:   sess.AmountTotal,
		Currency:      string(sess.Currency),
		CustomerEmail: sess.CustomerEmail,
		Metadata:      sess.Metadata,
	}
	if out.CustomerEmail == "" && sess.CustomerDetails != nil {
		out.CustomerEmail = sess.CustomerDetails.Email
	}
	if sess.PaymentIntent != nil {
		out.PaymentIntentID = sess.PaymentIntent.ID
	}
	return out
}
