package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetadataForKnownCodes(t *testing.T) {
	tests := []struct {
		code      Code
		status    int
		publicMsg string
		retryable bool
		detailsOK bool
	}{
		{code: CodeValidation, status: http.StatusBadRequest, publicMsg: "validation failed", detailsOK: true},
		{code: CodeUnauthorized, status: http.StatusUnauthorized, publicMsg: "authentication required"},
		{code: CodeForbidden, status: http.StatusForbidden, publicMsg: "access denied"},
		{code: CodeNotFound, status: http.StatusNotFound, publicMsg: "resource not found"},
		{code: CodeAlreadyCompleted, status: http.StatusBadRequest, publicMsg: "order already completed"},
		{code: CodeEmptyCart, status: http.StatusBadRequest, publicMsg: "cart is empty"},
		{code: CodeGateway, status: http.StatusBadRequest, publicMsg: "payment provider error", detailsOK: true},
		{code: CodeSignature, status: http.StatusBadRequest, publicMsg: "invalid webhook signature"},
		{code: CodeStateConflict, status: http.StatusUnprocessableEntity, publicMsg: "state transition disallowed", detailsOK: true},
		{code: CodeInternal, status: http.StatusInternalServerError, publicMsg: "internal server error", retryable: true},
		{code: CodeDependency, status: http.StatusServiceUnavailable, publicMsg: "dependency unavailable", retryable: true, detailsOK: true},
	}

	for _, tt := range tests {
		meta := MetadataFor(tt.code)
		assert.Equal(t, tt.status, meta.HTTPStatus, "status for %s", tt.code)
		assert.Equal(t, tt.publicMsg, meta.PublicMessage, "public message for %s", tt.code)
		assert.Equal(t, tt.retryable, meta.Retryable, "retryable for %s", tt.code)
		assert.Equal(t, tt.detailsOK, meta.DetailsAllowed, "details for %s", tt.code)
	}
}

func TestMetadataForUnknownCodeDefaultsToInternal(t *testing.T) {
	meta := MetadataFor("SOMETHING_UNKNOWN")
	require.Equal(t, http.StatusInternalServerError, meta.HTTPStatus)
}

func TestErrorConstructors(t *testing.T) {
	base := New(CodeValidation, "missing shipping address")
	require.Equal(t, CodeValidation, base.Code())
	require.Equal(t, "missing shipping address", base.Message())
	require.Nil(t, base.Details())

	base.WithDetails(map[string]any{"field": "shippingAddress"})
	require.NotNil(t, base.Details())

	cause := stdErrors.New("connection reset")
	wrapped := Wrap(CodeDependency, cause, "create order")
	require.True(t, stdErrors.Is(wrapped, cause))
	require.Equal(t, CodeDependency, wrapped.Code())
	require.Contains(t, wrapped.Error(), "connection reset")
}

func TestAsAndIsCodeWalkTheChain(t *testing.T) {
	err := fmt.Errorf("verify: %w", New(CodeForbidden, "email mismatch"))
	got := As(err)
	require.NotNil(t, got)
	require.Equal(t, CodeForbidden, got.Code())
	require.True(t, IsCode(err, CodeForbidden))
	require.False(t, IsCode(err, CodeNotFound))
	require.Nil(t, As(nil))
}
