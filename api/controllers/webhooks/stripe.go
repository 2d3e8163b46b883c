package webhooks

import (
	"context"
	"io"
	"net/http"

	"github.com/stripe/stripe-go/v84/webhook"

	"github.com/angelmondragon/orderflow/api/responses"
	stripewebhook "github.com/angelmondragon/orderflow/internal/webhooks/stripe"
	pkgerrors "github.com/angelmondragon/orderflow/pkg/errors"
	"github.com/angelmondragon/orderflow/pkg/logger"
)

const maxWebhookBody = 1 << 16

type eventProcessor interface {
	Process(ctx context.Context, evt stripewebhook.Event) (stripewebhook.Outcome, error)
}

type eventGuard interface {
	CheckAndMark(ctx context.Context, eventID string) (bool, error)
	Delete(ctx context.Context, eventID string) error
}

type signingClient interface {
	SigningSecret() string
}

type webhookMetrics interface {
	ObserveWebhook(eventType, result string)
}

type StripeWebhookDeps struct {
	Processor eventProcessor
	Client    signingClient
	Guard     eventGuard
	Metrics   webhookMetrics
	Logger    *logger.Logger
}

// StripeWebhook verifies and applies Stripe checkout and payment intent
// events. Once the signature checks out the response is always
// 200 {"received": true}; processing failures are logged and counted.
func StripeWebhook(deps StripeWebhookDeps) http.HandlerFunc {
	logg := deps.Logger
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if deps.Processor == nil || deps.Client == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook processor unavailable"))
			return
		}

		payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body"))
			return
		}

		sigHeader := r.Header.Get("Stripe-Signature")
		if sigHeader == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeSignature, "missing stripe signature"))
			return
		}

		event, err := webhook.ConstructEvent(payload, sigHeader, deps.Client.SigningSecret())
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeSignature, err, "invalid stripe signature"))
			return
		}

		eventType := string(event.Type)
		if logg != nil {
			ctx = logg.WithEvent(ctx, event.ID, eventType)
		}

		parsed, err := stripewebhook.ParseEvent(&event)
		if err != nil {
			// a redelivery carries the same body, so there is nothing to retry
			warn(ctx, logg, "webhook event malformed", err)
			observe(deps.Metrics, eventType, "malformed")
			acknowledge(w)
			return
		}

		if deps.Guard != nil {
			seen, guardErr := deps.Guard.CheckAndMark(ctx, event.ID)
			switch {
			case guardErr != nil:
				// transitions are compare-and-set, so a replay is safe
				warn(ctx, logg, "webhook guard unavailable", guardErr)
			case seen:
				observe(deps.Metrics, eventType, "duplicate")
				acknowledge(w)
				return
			}
		}

		outcome, err := deps.Processor.Process(ctx, parsed)
		if err != nil {
			if deps.Guard != nil {
				if delErr := deps.Guard.Delete(ctx, event.ID); delErr != nil {
					warn(ctx, logg, "webhook guard release failed", delErr)
				}
			}
			if logg != nil {
				logg.Error(ctx, "webhook event failed", err)
			}
			observe(deps.Metrics, eventType, "error")
			acknowledge(w)
			return
		}

		observe(deps.Metrics, eventType, string(outcome))
		if logg != nil && outcome == stripewebhook.OutcomeApplied {
			logg.Info(ctx, "webhook event applied")
		}
		acknowledge(w)
	}
}

func acknowledge(w http.ResponseWriter) {
	responses.WriteRaw(w, http.StatusOK, map[string]bool{"received": true})
}

func observe(m webhookMetrics, eventType, result string) {
	if m == nil {
		return
	}
	m.ObserveWebhook(eventType, result)
}

func warn(ctx context.Context, logg *logger.Logger, msg string, err error) {
	if logg == nil {
		return
	}
	logg.Warn(logg.WithField(ctx, "error", err.Error()), msg)
}
