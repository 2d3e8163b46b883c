package routes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	checkoutsvc "github.com/angelmondragon/orderflow/internal/checkout"
	pkgAuth "github.com/angelmondragon/orderflow/pkg/auth"
	"github.com/angelmondragon/orderflow/pkg/config"
	"github.com/angelmondragon/orderflow/pkg/db/models"
	"github.com/angelmondragon/orderflow/pkg/enums"
	"github.com/angelmondragon/orderflow/pkg/redis"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type countingCheckout struct {
	calls int
}

func (c *countingCheckout) Execute(_ context.Context, userID uuid.UUID, input checkoutsvc.Input) (*models.Order, error) {
	c.calls++
	return &models.Order{
		ID:              uuid.New(),
		UserID:          userID,
		Total:           input.Total,
		ShippingAddress: input.ShippingAddress,
		PaymentMethod:   enums.PaymentMethod(input.PaymentMethod),
		Status:          enums.OrderStatusPending,
		PaymentStatus:   enums.PaymentStatusPending,
	}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test", PublicURL: "http://localhost:3000"},
		JWT: config.JWTConfig{Secret: "router-secret", Issuer: "orderflow", ExpirationMinutes: 30},
	}
}

func bearer(t *testing.T, cfg *config.Config, email string) string {
	t.Helper()
	token, err := pkgAuth.MintAccessToken(cfg.JWT, time.Now(), pkgAuth.AccessTokenPayload{
		UserID: uuid.New(),
		Email:  email,
	})
	require.NoError(t, err)
	return "Bearer " + token
}

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	raw := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = raw.Close() })
	return redis.NewFromClient(raw)
}

func TestPublicRoutes(t *testing.T) {
	cfg := testConfig()
	router := NewRouter(cfg, nil, Dependencies{DB: stubPinger{}, Redis: newTestRedis(t)})

	for _, path := range []string{"/health/live", "/health/ready", "/api/public/ping", "/metrics"} {
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, resp.Code, path)
	}
}

func TestProtectedRoutesRequireAuth(t *testing.T) {
	router := NewRouter(testConfig(), nil, Dependencies{})

	routes := []struct{ method, path string }{
		{http.MethodPost, "/api/orders"},
		{http.MethodGet, "/api/orders"},
		{http.MethodGet, "/api/orders/" + uuid.NewString()},
		{http.MethodPost, "/api/payments/sessions"},
		{http.MethodGet, "/api/payments/sessions/verify?session_id=cs_1"},
		{http.MethodPost, "/api/payments/sessions/verify"},
		{http.MethodGet, "/api/cart"},
		{http.MethodPost, "/api/cart/items"},
	}
	for _, rt := range routes {
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, httptest.NewRequest(rt.method, rt.path, strings.NewReader(`{}`)))
		assert.Equal(t, http.StatusUnauthorized, resp.Code, rt.method+" "+rt.path)
	}
}

func TestWebhookRoutesBypassAuth(t *testing.T) {
	router := NewRouter(testConfig(), nil, Dependencies{})

	for _, path := range []string{"/api/v1/webhooks/stripe", "/payments/webhook"} {
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, path, strings.NewReader(`{}`)))
		assert.NotEqual(t, http.StatusNotFound, resp.Code, path)
		assert.NotEqual(t, http.StatusUnauthorized, resp.Code, path)
	}
}

func TestCreateOrderReplaysIdempotentRequest(t *testing.T) {
	cfg := testConfig()
	checkout := &countingCheckout{}
	router := NewRouter(cfg, nil, Dependencies{Redis: newTestRedis(t), Checkout: checkout})
	auth := bearer(t, cfg, "buyer@example.com")

	send := func() *httptest.ResponseRecorder {
		body := `{"shippingAddress":"1 Main St","paymentMethod":"credit_card","total":59.98}`
		req := httptest.NewRequest(http.MethodPost, "/api/orders", strings.NewReader(body))
		req.Header.Set("Authorization", auth)
		req.Header.Set("Idempotency-Key", "order-key-1")
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)
		return resp
	}

	first := send()
	require.Equal(t, http.StatusCreated, first.Code, first.Body.String())
	second := send()
	require.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, 1, checkout.calls)
}
