package payments

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/orderflow/api/controllers/callercontext"
	"github.com/angelmondragon/orderflow/api/responses"
	"github.com/angelmondragon/orderflow/api/validators"
	paymentsvc "github.com/angelmondragon/orderflow/internal/payments"
	pkgerrors "github.com/angelmondragon/orderflow/pkg/errors"
	"github.com/angelmondragon/orderflow/pkg/logger"
)

type createSessionRequest struct {
	OrderID    string `json:"orderId" validate:"required"`
	SuccessURL string `json:"successUrl" validate:"max=2048"`
	CancelURL  string `json:"cancelUrl" validate:"max=2048"`
}

// verifySessionRequest accepts both spellings the storefront has used.
type verifySessionRequest struct {
	SessionID       string `json:"sessionId"`
	LegacySessionID string `json:"session_id"`
}

func (r verifySessionRequest) id() string {
	if id := strings.TrimSpace(r.SessionID); id != "" {
		return id
	}
	return strings.TrimSpace(r.LegacySessionID)
}

// CreateSession opens a hosted checkout session for one of the caller's
// pending orders.
func CreateSession(svc paymentsvc.SessionService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment session service unavailable"))
			return
		}

		caller, err := requireEmailCaller(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload createSessionRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := uuid.Parse(strings.TrimSpace(payload.OrderID))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid orderId"))
			return
		}

		result, err := svc.CreateSession(r.Context(), caller, paymentsvc.CreateSessionInput{
			OrderID:    orderID,
			SuccessURL: payload.SuccessURL,
			CancelURL:  payload.CancelURL,
			Origin:     r.Header.Get("Origin"),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// VerifySession reads the gateway session named by ?session_id= and the
// order it references.
func VerifySession(svc paymentsvc.ReconcileService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		verify(w, r, svc, logg, r.URL.Query().Get("session_id"))
	}
}

// VerifySessionBody is VerifySession with the id in a JSON body.
func VerifySessionBody(svc paymentsvc.ReconcileService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload verifySessionRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		verify(w, r, svc, logg, payload.id())
	}
}

func verify(w http.ResponseWriter, r *http.Request, svc paymentsvc.ReconcileService, logg *logger.Logger, sessionID string) {
	if svc == nil {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment verification unavailable"))
		return
	}

	caller, err := requireEmailCaller(r)
	if err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return
	}

	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "session_id is required"))
		return
	}

	result, err := svc.Verify(r.Context(), caller, sessionID)
	if err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return
	}
	responses.WriteSuccess(w, result)
}

func requireEmailCaller(r *http.Request) (paymentsvc.Caller, error) {
	caller, err := callercontext.ResolveCaller(r)
	if err != nil {
		return caller, err
	}
	if caller.Email == "" {
		return caller, pkgerrors.New(pkgerrors.CodeUnauthorized, "authenticated email required")
	}
	return caller, nil
}
