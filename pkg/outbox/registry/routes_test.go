package registry

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/orderflow/pkg/config"
	"github.com/angelmondragon/orderflow/pkg/db/models"
	"github.com/angelmondragon/orderflow/pkg/enums"
	"github.com/angelmondragon/orderflow/pkg/outbox"
	"github.com/angelmondragon/orderflow/pkg/outbox/payloads"
)

func envelopeFor(t *testing.T, data string) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(outbox.PayloadEnvelope{
		Version:    1,
		EventID:    uuid.NewString(),
		OccurredAt: time.Now().UTC(),
		Data:       json.RawMessage(data),
	})
	require.NoError(t, err)
	return raw
}

func newRoutes(t *testing.T) *Routes {
	t.Helper()
	r, err := New(config.PubSubConfig{OrdersTopic: "order-events"})
	require.NoError(t, err)
	return r
}

func TestResolveDecodesTypedPayload(t *testing.T) {
	orderID := uuid.New()
	data, err := json.Marshal(payloads.OrderPaidEvent{
		OrderID:         orderID,
		UserID:          uuid.New(),
		Total:           decimal.RequireFromString("59.98"),
		PaymentIntentID: "pi_123",
	})
	require.NoError(t, err)

	resolved, err := newRoutes(t).Resolve(models.OutboxEvent{
		EventType:     enums.EventOrderPaid,
		AggregateType: enums.AggregateOrder,
		AggregateID:   orderID,
		Payload:       envelopeFor(t, string(data)),
	})
	require.NoError(t, err)
	assert.Equal(t, "order-events", resolved.Route.Topic)
	assert.NotEmpty(t, resolved.Envelope.EventID)

	paid, ok := resolved.Payload.(*payloads.OrderPaidEvent)
	require.True(t, ok, "payload type %T", resolved.Payload)
	assert.Equal(t, orderID, paid.OrderID)
	assert.Equal(t, "pi_123", paid.PaymentIntentID)
	assert.True(t, paid.Total.Equal(decimal.RequireFromString("59.98")))
}

func TestNewRequiresOrdersTopic(t *testing.T) {
	_, err := New(config.PubSubConfig{})
	require.Error(t, err)
}

func TestResolveRejectionsArePermanent(t *testing.T) {
	routes := newRoutes(t)
	cases := map[string]models.OutboxEvent{
		"unknown event": {
			EventType:     enums.OutboxEventType("order_shipped"),
			AggregateType: enums.AggregateOrder,
			AggregateID:   uuid.New(),
			Payload:       envelopeFor(t, `{}`),
		},
		"aggregate mismatch": {
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.OutboxAggregateType("cart"),
			AggregateID:   uuid.New(),
			Payload:       envelopeFor(t, `{}`),
		},
		"missing aggregate id": {
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			Payload:       envelopeFor(t, `{}`),
		},
		"null data": {
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   uuid.New(),
			Payload:       envelopeFor(t, `null`),
		},
		"broken envelope": {
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   uuid.New(),
			Payload:       json.RawMessage(`{"data":`),
		},
		"wrong data shape": {
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   uuid.New(),
			Payload:       envelopeFor(t, `{"order_id":42}`),
		},
	}
	for name, row := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := routes.Resolve(row)
			require.Error(t, err)
			assert.True(t, IsPermanent(err))
		})
	}
}

func TestPermanentWrapping(t *testing.T) {
	assert.Nil(t, Permanent(nil))
	assert.False(t, IsPermanent(errors.New("transient")))

	base := errors.New("bad topic")
	wrapped := Permanent(base)
	assert.ErrorIs(t, wrapped, base)
	assert.True(t, IsPermanent(errors.Join(errors.New("context"), wrapped)))
}
