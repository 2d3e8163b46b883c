package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// PaymentMetrics tracks gateway calls, webhook outcomes and order payment transitions.
type PaymentMetrics struct {
	gatewayCalls  *prometheus.CounterVec
	webhookEvents *prometheus.CounterVec
	transitions   *prometheus.CounterVec
	stalePending  prometheus.Gauge
}

func NewPaymentMetrics(reg prometheus.Registerer) *PaymentMetrics {
	if reg == nil {
		return &PaymentMetrics{}
	}
	gatewayCalls := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orderflow_gateway_requests_total",
		Help: "Payment gateway calls by operation and outcome.",
	}, []string{"operation", "outcome"})
	webhookEvents := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orderflow_webhook_events_total",
		Help: "Gateway webhook events by type and outcome.",
	}, []string{"event_type", "outcome"})
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orderflow_payment_transitions_total",
		Help: "Applied order payment status transitions.",
	}, []string{"payment_status"})
	stalePending := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "orderflow_stale_pending_orders",
		Help: "Pending orders older than the configured timeout at the last sweep.",
	})
	reg.MustRegister(gatewayCalls, webhookEvents, transitions, stalePending)
	return &PaymentMetrics{
		gatewayCalls:  gatewayCalls,
		webhookEvents: webhookEvents,
		transitions:   transitions,
		stalePending:  stalePending,
	}
}

func (m *PaymentMetrics) ObserveGatewayCall(operation string, err error) {
	if m == nil || m.gatewayCalls == nil {
		return
	}
	m.gatewayCalls.WithLabelValues(normalizeLabel(operation), outcome(err)).Inc()
}

// ObserveWebhook records how a verified webhook event was handled ("applied", "noop", "duplicate", "ignored", "error").
func (m *PaymentMetrics) ObserveWebhook(eventType, result string) {
	if m == nil || m.webhookEvents == nil {
		return
	}
	m.webhookEvents.WithLabelValues(normalizeLabel(eventType), normalizeLabel(result)).Inc()
}

func (m *PaymentMetrics) ObserveTransition(paymentStatus string) {
	if m == nil || m.transitions == nil {
		return
	}
	m.transitions.WithLabelValues(normalizeLabel(paymentStatus)).Inc()
}

func (m *PaymentMetrics) SetStalePending(count int64) {
	if m == nil || m.stalePending == nil {
		return
	}
	m.stalePending.Set(float64(count))
}

// OutboxMetrics counts relay outcomes in the outbox publisher.
type OutboxMetrics struct {
	published *prometheus.CounterVec
	failed    *prometheus.CounterVec
	terminal  *prometheus.CounterVec
}

func NewOutboxMetrics(reg prometheus.Registerer) *OutboxMetrics {
	if reg == nil {
		return &OutboxMetrics{}
	}
	published := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orderflow_outbox_published_total",
		Help: "Outbox events published to the broker.",
	}, []string{"event_type"})
	failed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orderflow_outbox_publish_failures_total",
		Help: "Retryable outbox publish failures.",
	}, []string{"event_type"})
	terminal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orderflow_outbox_terminal_total",
		Help: "Outbox events that will not be retried.",
	}, []string{"event_type", "reason"})
	reg.MustRegister(published, failed, terminal)
	return &OutboxMetrics{published: published, failed: failed, terminal: terminal}
}

func (m *OutboxMetrics) ObservePublished(eventType string) {
	if m == nil || m.published == nil {
		return
	}
	m.published.WithLabelValues(normalizeLabel(eventType)).Inc()
}

func (m *OutboxMetrics) ObserveFailed(eventType string) {
	if m == nil || m.failed == nil {
		return
	}
	m.failed.WithLabelValues(normalizeLabel(eventType)).Inc()
}

func (m *OutboxMetrics) ObserveTerminal(eventType, reason string) {
	if m == nil || m.terminal == nil {
		return
	}
	m.terminal.WithLabelValues(normalizeLabel(eventType), normalizeLabel(reason)).Inc()
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
