package stripewebhook

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/orderflow/internal/orders"
	"github.com/angelmondragon/orderflow/pkg/enums"
	pkgerrors "github.com/angelmondragon/orderflow/pkg/errors"
	"github.com/angelmondragon/orderflow/pkg/logger"
	"github.com/angelmondragon/orderflow/pkg/outbox"
	"github.com/angelmondragon/orderflow/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type transitionMetrics interface {
	ObserveTransition(paymentStatus string)
}

// Outcome reports what processing an event did to the order store.
type Outcome string

const (
	OutcomeApplied Outcome = "applied"
	OutcomeNoop    Outcome = "noop"
	OutcomeIgnored Outcome = "ignored"
)

type ProcessorParams struct {
	Orders  orders.Repository
	Tx      txRunner
	Outbox  outbox.Emitter
	Metrics transitionMetrics
	Logger  *logger.Logger
}

// Processor turns gateway events into order payment transitions. Every write
// goes through orders.Repository.ApplyPaymentTransition, so replays and late
// failure events never move a PAID order.
type Processor struct {
	orders  orders.Repository
	tx      txRunner
	outbox  outbox.Emitter
	metrics transitionMetrics
	logg    *logger.Logger
}

func NewProcessor(params ProcessorParams) (*Processor, error) {
	if params.Orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &Processor{
		orders:  params.Orders,
		tx:      params.Tx,
		outbox:  params.Outbox,
		metrics: params.Metrics,
		logg:    params.Logger,
	}, nil
}

func (p *Processor) Process(ctx context.Context, evt Event) (Outcome, error) {
	switch e := evt.(type) {
	case CheckoutSessionCompleted:
		orderID, ok := p.orderRef(ctx, e.OrderID, e.SessionID)
		if !ok {
			return OutcomeNoop, nil
		}
		return p.apply(ctx, orderID, orders.Paid(e.PaymentIntentID), "")
	case CheckoutSessionExpired:
		orderID, ok := p.orderRef(ctx, e.OrderID, e.SessionID)
		if !ok {
			return OutcomeNoop, nil
		}
		return p.apply(ctx, orderID, orders.Failed(), "checkout session expired")
	case PaymentIntentSucceeded:
		orderID, ok, err := p.orderByIntent(ctx, e.PaymentIntentID)
		if err != nil || !ok {
			return OutcomeNoop, err
		}
		return p.apply(ctx, orderID, orders.Paid(e.PaymentIntentID), "")
	case PaymentIntentFailed:
		orderID, ok, err := p.orderByIntent(ctx, e.PaymentIntentID)
		if err != nil || !ok {
			return OutcomeNoop, err
		}
		reason := e.FailureMessage
		if reason == "" {
			reason = "payment failed"
		}
		return p.apply(ctx, orderID, orders.Failed(), reason)
	case Ignored:
		return OutcomeIgnored, nil
	default:
		return OutcomeIgnored, nil
	}
}

func (p *Processor) orderRef(ctx context.Context, raw, sessionID string) (uuid.UUID, bool) {
	if raw == "" {
		p.debug(ctx, "session carries no order reference", sessionID)
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		p.debug(ctx, "session order reference is not a uuid", sessionID)
		return uuid.Nil, false
	}
	return id, true
}

func (p *Processor) orderByIntent(ctx context.Context, paymentIntentID string) (uuid.UUID, bool, error) {
	if paymentIntentID == "" {
		return uuid.Nil, false, nil
	}
	order, err := p.orders.FindByPaymentIntentID(ctx, paymentIntentID)
	if err != nil {
		return uuid.Nil, false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find order by payment intent")
	}
	if order == nil {
		return uuid.Nil, false, nil
	}
	return order.ID, true, nil
}

func (p *Processor) apply(ctx context.Context, orderID uuid.UUID, t orders.Transition, reason string) (Outcome, error) {
	applied := false
	err := p.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := p.orders.WithTx(tx)
		changed, err := repo.ApplyPaymentTransition(ctx, orderID, t)
		if err != nil {
			return err
		}
		if !changed {
			return nil
		}
		applied = true

		order, err := repo.FindByID(ctx, orderID)
		if err != nil {
			return err
		}
		event := outbox.DomainEvent{
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{UserID: order.UserID, Source: "stripe"},
		}
		if t.PaymentStatus == enums.PaymentStatusPaid {
			data := payloads.OrderPaidEvent{OrderID: order.ID, UserID: order.UserID, Total: order.Total}
			if order.PaymentIntentID != nil {
				data.PaymentIntentID = *order.PaymentIntentID
			}
			if order.StripeSessionID != nil {
				data.SessionID = *order.StripeSessionID
			}
			event.EventType = enums.EventOrderPaid
			event.Data = data
		} else {
			event.EventType = enums.EventOrderPaymentFailed
			event.Data = payloads.OrderPaymentFailedEvent{OrderID: order.ID, UserID: order.UserID, Reason: reason}
		}
		return p.outbox.Emit(ctx, tx, event)
	})
	if err != nil {
		return OutcomeNoop, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "apply payment transition")
	}
	if !applied {
		return OutcomeNoop, nil
	}

	if p.metrics != nil {
		p.metrics.ObserveTransition(string(t.PaymentStatus))
	}
	if p.logg != nil {
		logCtx := p.logg.WithOrderID(ctx, orderID.String())
		logCtx = p.logg.WithFields(logCtx, map[string]any{
			"payment_status": t.PaymentStatus,
			"order_status":   t.Status,
		})
		p.logg.Info(logCtx, "order payment status updated")
	}
	return OutcomeApplied, nil
}

func (p *Processor) debug(ctx context.Context, msg, sessionID string) {
	if p.logg == nil {
		return
	}
	p.logg.Debug(p.logg.WithField(ctx, "session_id", sessionID), msg)
}
