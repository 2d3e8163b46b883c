package payments

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/orderflow/api/middleware"
	internalorders "github.com/angelmondragon/orderflow/internal/orders"
	paymentsvc "github.com/angelmondragon/orderflow/internal/payments"
	pkgerrors "github.com/angelmondragon/orderflow/pkg/errors"
)

type stubSessionService struct {
	caller paymentsvc.Caller
	input  paymentsvc.CreateSessionInput
	result *paymentsvc.SessionResult
	err    error
}

func (s *stubSessionService) CreateSession(_ context.Context, caller paymentsvc.Caller, input paymentsvc.CreateSessionInput) (*paymentsvc.SessionResult, error) {
	s.caller = caller
	s.input = input
	return s.result, s.err
}

type stubReconcileService struct {
	calls     int
	sessionID string
	result    *paymentsvc.Verification
	err       error
}

func (s *stubReconcileService) Verify(_ context.Context, _ paymentsvc.Caller, sessionID string) (*paymentsvc.Verification, error) {
	s.calls++
	s.sessionID = sessionID
	return s.result, s.err
}

func withCaller(req *http.Request, userID uuid.UUID, email string) *http.Request {
	ctx := middleware.WithUserID(req.Context(), userID.String())
	ctx = middleware.WithEmail(ctx, email)
	return req.WithContext(ctx)
}

func TestCreateSessionReturnsSession(t *testing.T) {
	userID := uuid.New()
	orderID := uuid.New()
	svc := &stubSessionService{result: &paymentsvc.SessionResult{SessionID: "cs_1", URL: "https://checkout.stripe.com/c/cs_1"}}

	body := `{"orderId":"` + orderID.String() + `","successUrl":"/thanks"}`
	req := withCaller(httptest.NewRequest(http.MethodPost, "/api/payments/sessions", strings.NewReader(body)), userID, "buyer@example.com")
	req.Header.Set("Origin", "https://shop.example.com")
	resp := httptest.NewRecorder()
	CreateSession(svc, nil).ServeHTTP(resp, req)

	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.Equal(t, paymentsvc.Caller{UserID: userID, Email: "buyer@example.com"}, svc.caller)
	assert.Equal(t, orderID, svc.input.OrderID)
	assert.Equal(t, "/thanks", svc.input.SuccessURL)
	assert.Equal(t, "https://shop.example.com", svc.input.Origin)

	var envelope struct {
		Data map[string]string `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	assert.Equal(t, map[string]string{"sessionId": "cs_1", "url": "https://checkout.stripe.com/c/cs_1"}, envelope.Data)
}

func TestCreateSessionRejections(t *testing.T) {
	userID := uuid.New()
	orderID := uuid.New().String()
	cases := []struct {
		name   string
		email  string
		auth   bool
		body   string
		svcErr error
		status int
	}{
		{name: "no auth", body: `{"orderId":"` + orderID + `"}`, status: http.StatusUnauthorized},
		{name: "no email claim", auth: true, body: `{"orderId":"` + orderID + `"}`, status: http.StatusUnauthorized},
		{name: "missing order id", auth: true, email: "a@b.co", body: `{}`, status: http.StatusBadRequest},
		{name: "malformed order id", auth: true, email: "a@b.co", body: `{"orderId":"42"}`, status: http.StatusBadRequest},
		{name: "not found", auth: true, email: "a@b.co", body: `{"orderId":"` + orderID + `"}`, svcErr: pkgerrors.New(pkgerrors.CodeNotFound, "order not found"), status: http.StatusNotFound},
		{name: "not owner", auth: true, email: "a@b.co", body: `{"orderId":"` + orderID + `"}`, svcErr: pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another user"), status: http.StatusForbidden},
		{name: "completed", auth: true, email: "a@b.co", body: `{"orderId":"` + orderID + `"}`, svcErr: pkgerrors.New(pkgerrors.CodeAlreadyCompleted, "order is already completed"), status: http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/payments/sessions", strings.NewReader(tc.body))
			if tc.auth {
				req = withCaller(req, userID, tc.email)
			}
			resp := httptest.NewRecorder()
			CreateSession(&stubSessionService{err: tc.svcErr}, nil).ServeHTTP(resp, req)
			assert.Equal(t, tc.status, resp.Code, resp.Body.String())
		})
	}
}

func TestVerifySessionQueryAndBody(t *testing.T) {
	orderID := uuid.New()
	svc := &stubReconcileService{result: &paymentsvc.Verification{
		Session: &paymentsvc.GatewaySession{ID: "cs_9", PaymentStatus: "paid"},
		Order:   internalorders.OrderView{ID: orderID},
	}}

	req := withCaller(httptest.NewRequest(http.MethodGet, "/api/payments/sessions/verify?session_id=cs_9", nil), uuid.New(), "buyer@example.com")
	resp := httptest.NewRecorder()
	VerifySession(svc, nil).ServeHTTP(resp, req)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.Equal(t, "cs_9", svc.sessionID)

	var envelope struct {
		Data struct {
			Session struct {
				ID string `json:"id"`
			} `json:"session"`
			Order struct {
				ID uuid.UUID `json:"id"`
			} `json:"order"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	assert.Equal(t, "cs_9", envelope.Data.Session.ID)
	assert.Equal(t, orderID, envelope.Data.Order.ID)

	for _, body := range []string{`{"sessionId":"cs_10"}`, `{"session_id":"cs_11"}`} {
		req = withCaller(httptest.NewRequest(http.MethodPost, "/api/payments/sessions/verify", strings.NewReader(body)), uuid.New(), "buyer@example.com")
		resp = httptest.NewRecorder()
		VerifySessionBody(svc, nil).ServeHTTP(resp, req)
		require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	}
	assert.Equal(t, "cs_11", svc.sessionID)
	assert.Equal(t, 3, svc.calls)
}

func TestVerifySessionRejections(t *testing.T) {
	svc := &stubReconcileService{}

	req := withCaller(httptest.NewRequest(http.MethodGet, "/api/payments/sessions/verify", nil), uuid.New(), "buyer@example.com")
	resp := httptest.NewRecorder()
	VerifySession(svc, nil).ServeHTTP(resp, req)
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	req = withCaller(httptest.NewRequest(http.MethodGet, "/api/payments/sessions/verify?session_id=cs_1", nil), uuid.New(), "")
	resp = httptest.NewRecorder()
	VerifySession(svc, nil).ServeHTTP(resp, req)
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
	assert.Zero(t, svc.calls)

	svc.err = pkgerrors.New(pkgerrors.CodeForbidden, "checkout session belongs to another customer")
	req = withCaller(httptest.NewRequest(http.MethodGet, "/api/payments/sessions/verify?session_id=cs_1", nil), uuid.New(), "buyer@example.com")
	resp = httptest.NewRecorder()
	VerifySession(svc, nil).ServeHTTP(resp, req)
	assert.Equal(t, http.StatusForbidden, resp.Code)
}
