package stripewebhook

import (
	"encoding/json"
	"fmt"

	"github.com/stripe/stripe-go/v84"
)

// Event is the closed set of gateway notifications the processor understands.
// Anything else parses to Ignored.
type Event interface {
	Type() string
	isEvent()
}

type CheckoutSessionCompleted struct {
	SessionID       string
	OrderID         string
	PaymentIntentID string
}

type CheckoutSessionExpired struct {
	SessionID string
	OrderID   string
}

type PaymentIntentSucceeded struct {
	PaymentIntentID string
}

type PaymentIntentFailed struct {
	PaymentIntentID string
	FailureMessage  string
}

type Ignored struct {
	EventType string
}

func (CheckoutSessionCompleted) Type() string {
	return string(stripe.EventTypeCheckoutSessionCompleted)
}

func (CheckoutSessionExpired) Type() string {
	return string(stripe.EventTypeCheckoutSessionExpired)
}

func (PaymentIntentSucceeded) Type() string {
	return string(stripe.EventTypePaymentIntentSucceeded)
}

func (PaymentIntentFailed) Type() string {
	return string(stripe.EventTypePaymentIntentPaymentFailed)
}

func (e Ignored) Type() string {
	return e.EventType
}

func (CheckoutSessionCompleted) isEvent() {}
func (CheckoutSessionExpired) isEvent()   {}
func (PaymentIntentSucceeded) isEvent()   {}
func (PaymentIntentFailed) isEvent()      {}
func (Ignored) isEvent()                  {}

const metadataOrderID = "orderId"

// ParseEvent decodes a signature-verified Stripe event into an Event.
func ParseEvent(event *stripe.Event) (Event, error) {
	if event == nil {
		return nil, fmt.Errorf("stripe event required")
	}
	switch event.Type {
	case stripe.EventTypeCheckoutSessionCompleted, stripe.EventTypeCheckoutSessionExpired:
		var sess stripe.CheckoutSession
		if err := decodeObject(event, &sess); err != nil {
			return nil, err
		}
		orderID := sess.Metadata[metadataOrderID]
		if event.Type == stripe.EventTypeCheckoutSessionExpired {
			return CheckoutSessionExpired{SessionID: sess.ID, OrderID: orderID}, nil
		}
		completed := CheckoutSessionCompleted{SessionID: sess.ID, OrderID: orderID}
		if sess.PaymentIntent != nil {
			completed.PaymentIntentID = sess.PaymentIntent.ID
		}
		return completed, nil
	case stripe.EventTypePaymentIntentSucceeded, stripe.EventTypePaymentIntentPaymentFailed:
		var intent stripe.PaymentIntent
		if err := decodeObject(event, &intent); err != nil {
			return nil, err
		}
		if event.Type == stripe.EventTypePaymentIntentSucceeded {
			return PaymentIntentSucceeded{PaymentIntentID: intent.ID}, nil
		}
		failed := PaymentIntentFailed{PaymentIntentID: intent.ID}
		if intent.LastPaymentError != nil {
			failed.FailureMessage = intent.LastPaymentError.Msg
		}
		return failed, nil
	default:
		return Ignored{EventType: string(event.Type)}, nil
	}
}

func decodeObject(event *stripe.Event, out any) error {
	if event.Data == nil || len(event.Data.Raw) == 0 {
		return fmt.Errorf("%s event has no data object", event.Type)
	}
	if err := json.Unmarshal(event.Data.Raw, out); err != nil {
		return fmt.Errorf("decode %s object: %w", event.Type, err)
	}
	return nil
}
