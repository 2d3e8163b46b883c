package errors

import "net/http"

// Code is the machine-readable error identifier sent to clients.
type Code string

const (
	CodeValidation       Code = "VALIDATION_ERROR"
	CodeUnauthorized     Code = "UNAUTHORIZED"
	CodeForbidden        Code = "FORBIDDEN"
	CodeNotFound         Code = "NOT_FOUND"
	CodeConflict         Code = "CONFLICT"
	CodeStateConflict    Code = "STATE_CONFLICT"
	CodeAlreadyCompleted Code = "ORDER_ALREADY_COMPLETED"
	CodeEmptyCart        Code = "CART_EMPTY"
	CodeGateway          Code = "PAYMENT_PROVIDER_ERROR"
	CodeSignature        Code = "WEBHOOK_SIGNATURE_INVALID"
	CodeIdempotency      Code = "IDEMPOTENCY_KEY_REUSED"
	CodeInternal         Code = "INTERNAL_ERROR"
	CodeDependency       Code = "DEPENDENCY_ERROR"
)

// Metadata drives how api/responses renders a Code.
type Metadata struct {
	HTTPStatus     int
	Retryable      bool
	PublicMessage  string
	DetailsAllowed bool
}

type metaOption func(*Metadata)

func retryable(m *Metadata)   { m.Retryable = true }
func withDetails(m *Metadata) { m.DetailsAllowed = true }

func describe(status int, public string, opts ...metaOption) Metadata {
	m := Metadata{HTTPStatus: status, PublicMessage: public}
	for _, opt := range opts {
		opt(&m)
	}
	return m
}

var catalog = map[Code]Metadata{
	CodeValidation:       describe(http.StatusBadRequest, "validation failed", withDetails),
	CodeUnauthorized:     describe(http.StatusUnauthorized, "authentication required"),
	CodeForbidden:        describe(http.StatusForbidden, "access denied"),
	CodeNotFound:         describe(http.StatusNotFound, "resource not found"),
	CodeConflict:         describe(http.StatusConflict, "conflict detected"),
	CodeStateConflict:    describe(http.StatusUnprocessableEntity, "state transition disallowed", withDetails),
	CodeAlreadyCompleted: describe(http.StatusBadRequest, "order already completed"),
	CodeEmptyCart:        describe(http.StatusBadRequest, "cart is empty"),
	// the buyer can retry a gateway rejection with another card
	CodeGateway:     describe(http.StatusBadRequest, "payment provider error", withDetails),
	CodeSignature:   describe(http.StatusBadRequest, "invalid webhook signature"),
	CodeIdempotency: describe(http.StatusConflict, "idempotency key reused", withDetails),
	CodeInternal:    describe(http.StatusInternalServerError, "internal server error", retryable),
	CodeDependency:  describe(http.StatusServiceUnavailable, "dependency unavailable", retryable, withDetails),
}

// MetadataFor falls back to CodeInternal for unknown codes.
func MetadataFor(code Code) Metadata {
	if m, ok := catalog[code]; ok {
		return m
	}
	return catalog[CodeInternal]
}
