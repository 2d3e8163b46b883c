package callercontext

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/orderflow/api/middleware"
	"github.com/angelmondragon/orderflow/internal/payments"
	pkgerrors "github.com/angelmondragon/orderflow/pkg/errors"
)

// ResolveUserID extracts the authenticated caller id seeded by middleware.Auth.
func ResolveUserID(r *http.Request) (uuid.UUID, error) {
	raw := middleware.UserIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid user id")
	}
	return id, nil
}

// ResolveCaller returns the caller identity used by the payment flows. The
// email is left empty when the token carries none; the services decide
// whether that is acceptable.
func ResolveCaller(r *http.Request) (payments.Caller, error) {
	id, err := ResolveUserID(r)
	if err != nil {
		return payments.Caller{}, err
	}
	return payments.Caller{
		UserID: id,
		Email:  strings.TrimSpace(middleware.EmailFromContext(r.Context())),
	}, nil
}
