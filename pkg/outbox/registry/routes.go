package registry

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/angelmondragon/orderflow/pkg/config"
	"github.com/angelmondragon/orderflow/pkg/db/models"
	"github.com/angelmondragon/orderflow/pkg/enums"
	"github.com/angelmondragon/orderflow/pkg/outbox"
	"github.com/angelmondragon/orderflow/pkg/outbox/payloads"
)

// Route says where an event type is published and how its data decodes.
type Route struct {
	EventType enums.OutboxEventType
	Aggregate enums.OutboxAggregateType
	Topic     string
	decode    func(json.RawMessage) (any, error)
}

// ResolvedEvent is an outbox row whose envelope and payload decoded cleanly.
type ResolvedEvent struct {
	Route    Route
	Envelope outbox.PayloadEnvelope
	Payload  any
}

// Routes resolves outbox rows against the known event types.
type Routes struct {
	byType map[enums.OutboxEventType]Route
}

// permanentError marks a row that will never publish no matter how often it is retried.
type permanentError struct{ err error }

func (e permanentError) Error() string { return e.err.Error() }
func (e permanentError) Unwrap() error { return e.err }

// Permanent wraps err so IsPermanent reports true.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return permanentError{err: err}
}

// IsPermanent reports whether err, or anything it wraps, came from Permanent.
func IsPermanent(err error) bool {
	var p permanentError
	return errors.As(err, &p)
}

func route[T any](eventType enums.OutboxEventType, topic string) Route {
	return Route{
		EventType: eventType,
		Aggregate: enums.AggregateOrder,
		Topic:     topic,
		decode: func(raw json.RawMessage) (any, error) {
			payload := new(T)
			if err := json.Unmarshal(raw, payload); err != nil {
				return nil, err
			}
			return payload, nil
		},
	}
}

// New routes every order event to the configured orders topic.
func New(cfg config.PubSubConfig) (*Routes, error) {
	if cfg.OrdersTopic == "" {
		return nil, errors.New("orders topic is required")
	}
	r := &Routes{byType: map[enums.OutboxEventType]Route{}}
	for _, rt := range []Route{
		route[payloads.OrderCreatedEvent](enums.EventOrderCreated, cfg.OrdersTopic),
		route[payloads.OrderPaidEvent](enums.EventOrderPaid, cfg.OrdersTopic),
		route[payloads.OrderPaymentFailedEvent](enums.EventOrderPaymentFailed, cfg.OrdersTopic),
	} {
		r.byType[rt.EventType] = rt
	}
	return r, nil
}

// Resolve decodes row. Every error it returns is permanent.
func (r *Routes) Resolve(row models.OutboxEvent) (*ResolvedEvent, error) {
	rt, ok := r.byType[row.EventType]
	switch {
	case !ok:
		return nil, Permanent(fmt.Errorf("no route for event type %q", row.EventType))
	case rt.Aggregate != row.AggregateType:
		return nil, Permanent(fmt.Errorf("event %s expects aggregate %s, row has %s", row.EventType, rt.Aggregate, row.AggregateType))
	case row.AggregateID == uuid.Nil:
		return nil, Permanent(errors.New("row has no aggregate id"))
	}

	var env outbox.PayloadEnvelope
	if err := json.Unmarshal(row.Payload, &env); err != nil {
		return nil, Permanent(fmt.Errorf("decode envelope: %w", err))
	}
	data := bytes.TrimSpace(env.Data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, Permanent(fmt.Errorf("%s envelope carries no data", row.EventType))
	}
	payload, err := rt.decode(data)
	if err != nil {
		return nil, Permanent(fmt.Errorf("decode %s data: %w", row.EventType, err))
	}
	return &ResolvedEvent{Route: rt, Envelope: env, Payload: payload}, nil
}
