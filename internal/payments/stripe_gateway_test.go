package payments

import (
	"errors"
	"net/http"
	"testing"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/assert"
	"github.com/stripe/stripe-go/v84"

	"github.com/angelmondragon/orderflow/pkg/config"
	pkgerrors "github.com/angelmondragon/orderflow/pkg/errors"
)

func TestTranslateStripeError(t *testing.T) {
	missing := &stripe.Error{Code: stripe.ErrorCodeResourceMissing, HTTPStatusCode: http.StatusNotFound, Msg: "No such checkout.session"}
	assert.True(t, pkgerrors.IsCode(translateStripeError(missing, "get"), pkgerrors.CodeNotFound))

	invalid := &stripe.Error{Type: stripe.ErrorTypeInvalidRequest, HTTPStatusCode: http.StatusBadRequest, Msg: "Invalid currency"}
	err := translateStripeError(invalid, "create")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeGateway))
	assert.Equal(t, "Invalid currency", pkgerrors.As(err).Message())

	assert.True(t, pkgerrors.IsCode(translateStripeError(gobreaker.ErrOpenState, "create"), pkgerrors.CodeGateway))
	assert.True(t, pkgerrors.IsCode(translateStripeError(errors.New("dial tcp: timeout"), "create"), pkgerrors.CodeGateway))
}

func TestBreakerIgnoresClientErrors(t *testing.T) {
	assert.True(t, isBreakerSuccess(nil))
	assert.True(t, isBreakerSuccess(&stripe.Error{HTTPStatusCode: http.StatusBadRequest}))
	assert.False(t, isBreakerSuccess(&stripe.Error{HTTPStatusCode: http.StatusTooManyRequests}))
	assert.False(t, isBreakerSuccess(&stripe.Error{HTTPStatusCode: http.StatusBadGateway}))
	assert.False(t, isBreakerSuccess(errors.New("connection reset")))
}

func TestFromStripeSession(t *testing.T) {
	sess := &stripe.CheckoutSession{
		ID:            "cs_1",
		URL:           "https://checkout.stripe.com/c/pay/cs_1",
		PaymentStatus: stripe.CheckoutSessionPaymentStatusPaid,
		Status:        stripe.CheckoutSessionStatusComplete,
		AmountTotal:   5998,
		Currency:      stripe.CurrencyUSD,
		CustomerDetails: &stripe.CheckoutSessionCustomerDetails{
			Email: "buyer@example.com",
		},
		Metadata:      map[string]string{MetadataOrderID: "order-1"},
		PaymentIntent: &stripe.PaymentIntent{ID: "pi_1"},
	}
	out := fromStripeSession(sess)
	assert.Equal(t, "paid", out.PaymentStatus)
	assert.Equal(t, "complete", out.Status)
	assert.Equal(t, "buyer@example.com", out.CustomerEmail)
	assert.Equal(t, "pi_1", out.PaymentIntentID)
	assert.Equal(t, "order-1", out.OrderID())
	assert.Nil(t, fromStripeSession(nil))
}

func TestShippingCountriesComeFromConfig(t *testing.T) {
	g := NewStripeGateway(config.StripeConfig{ShippingCountries: []string{" gb", "DE", "gb", ""}}, nil, nil)
	params := g.sessionParams(SessionRequest{
		OrderID:    "order-1",
		UserID:     "user-1",
		Currency:   "eur",
		SuccessURL: "https://shop.test/ok",
		CancelURL:  "https://shop.test/cancel",
		LineItems:  []LineItem{{Name: "widget", UnitAmount: 2999, Quantity: 2}},
	})

	require.NotNil(t, params.ShippingAddressCollection)
	assert.Equal(t, []string{"GB", "DE"}, stringValues(params.ShippingAddressCollection.AllowedCountries))
	require.Len(t, params.LineItems, 1)
	assert.Equal(t, "eur", *params.LineItems[0].PriceData.Currency)
	assert.Equal(t, int64(2999), *params.LineItems[0].PriceData.UnitAmount)
	assert.Equal(t, "order-1", params.Metadata[MetadataOrderID])
}

func TestShippingCountriesDefault(t *testing.T) {
	assert.Equal(t, []string{"US", "CA"}, shippingCountries(nil))
	assert.Equal(t, []string{"US", "CA"}, shippingCountries([]string{" ", ""}))
}

// stringValues dereferences a stripe []*string param slice for comparison.
func stringValues(v []*string) []string {
	out := make([]string, 0, len(v))
	for _, s := range v {
		out = append(out, stripe.StringValue(s))
	}
	return out
}
