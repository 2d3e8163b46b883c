package checkout

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/orderflow/internal/cart"
	"github.com/angelmondragon/orderflow/internal/orders"
	"github.com/angelmondragon/orderflow/pkg/db"
	"github.com/angelmondragon/orderflow/pkg/db/dbtest"
	"github.com/angelmondragon/orderflow/pkg/db/models"
	"github.com/angelmondragon/orderflow/pkg/enums"
	pkgerrors "github.com/angelmondragon/orderflow/pkg/errors"
	"github.com/angelmondragon/orderflow/pkg/logger"
	"github.com/angelmondragon/orderflow/pkg/outbox"
)

type failingEmitter struct {
	err error
}

func (f failingEmitter) Emit(context.Context, *gorm.DB, outbox.DomainEvent) error {
	return f.err
}

func newTestCheckout(t *testing.T, emitter outbox.Emitter) (Service, *gorm.DB) {
	t.Helper()
	conn := dbtest.Open(t)
	logg := logger.New(logger.Options{ServiceName: "checkout-test", Output: io.Discard})
	if emitter == nil {
		emitter = outbox.NewService(outbox.NewRepository(conn), logg)
	}
	svc, err := NewService(db.Wrap(conn), cart.NewRepository(conn), orders.NewRepository(conn), emitter, logg)
	require.NoError(t, err)
	return svc, conn
}

func TestExecuteConvertsCartIntoPendingOrder(t *testing.T) {
	svc, conn := newTestCheckout(t, nil)
	user := dbtest.MustUser(t, conn, "")
	product := dbtest.MustProduct(t, conn, "widget", "29.99")
	cartRow := dbtest.MustCartWithItems(t, conn, user.ID, map[*models.Product]int{product: 2})

	order, err := svc.Execute(context.Background(), user.ID, Input{
		ShippingAddress: "  123 Main St ",
		PaymentMethod:   "credit_card",
		Total:           decimal.RequireFromString("59.98"),
	})
	require.NoError(t, err)

	assert.Equal(t, enums.OrderStatusPending, order.Status)
	assert.Equal(t, enums.PaymentStatusPending, order.PaymentStatus)
	assert.Equal(t, enums.PaymentMethodCreditCard, order.PaymentMethod)
	assert.Equal(t, "123 Main St", order.ShippingAddress)
	assert.Equal(t, "59.98", order.Total.StringFixed(2))
	require.Len(t, order.Items, 1)
	assert.Equal(t, product.ID, order.Items[0].ProductID)
	assert.Equal(t, 2, order.Items[0].Quantity)
	assert.Equal(t, "29.99", order.Items[0].Price.StringFixed(2))

	var remaining int64
	require.NoError(t, conn.Model(&models.CartItem{}).Where("cart_id = ?", cartRow.ID).Count(&remaining).Error)
	assert.Zero(t, remaining)

	events, err := outbox.NewRepository(conn).ListByAggregate(nil, order.ID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, enums.EventOrderCreated, events[0].EventType)
}

func TestExecuteSnapshotsPriceAtPurchase(t *testing.T) {
	svc, conn := newTestCheckout(t, nil)
	user := dbtest.MustUser(t, conn, "")
	product := dbtest.MustProduct(t, conn, "lamp", "10.00")
	dbtest.MustCartWithItems(t, conn, user.ID, map[*models.Product]int{product: 1})

	order, err := svc.Execute(context.Background(), user.ID, Input{
		ShippingAddress: "1 Elm St",
		PaymentMethod:   "paypal",
		Total:           decimal.RequireFromString("10.00"),
	})
	require.NoError(t, err)

	require.NoError(t, conn.Model(&models.Product{}).Where("id = ?", product.ID).Update("price", decimal.RequireFromString("15.00")).Error)

	reloaded, err := orders.NewRepository(conn).FindByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, "10.00", reloaded.Items[0].Price.StringFixed(2))
	assert.Equal(t, "10.00", reloaded.Total.StringFixed(2))
}

func TestExecuteEmptyCart(t *testing.T) {
	svc, conn := newTestCheckout(t, nil)
	user := dbtest.MustUser(t, conn, "")

	_, err := svc.Execute(context.Background(), user.ID, Input{
		ShippingAddress: "123 Main St",
		PaymentMethod:   "credit_card",
		Total:           decimal.RequireFromString("1.00"),
	})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeEmptyCart))

	dbtest.MustCartWithItems(t, conn, user.ID, map[*models.Product]int{})
	_, err = svc.Execute(context.Background(), user.ID, Input{
		ShippingAddress: "123 Main St",
		PaymentMethod:   "credit_card",
		Total:           decimal.RequireFromString("1.00"),
	})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeEmptyCart))
	assert.EqualValues(t, 0, dbtest.CountRows(t, conn, "orders"))
}

func TestExecuteRejectsInvalidInput(t *testing.T) {
	svc, _ := newTestCheckout(t, nil)
	userID := uuid.New()

	cases := map[string]Input{
		"blank address":  {ShippingAddress: "   ", PaymentMethod: "credit_card", Total: decimal.NewFromInt(1)},
		"unknown method": {ShippingAddress: "a", PaymentMethod: "bitcoin", Total: decimal.NewFromInt(1)},
		"zero total":     {ShippingAddress: "a", PaymentMethod: "credit_card", Total: decimal.Zero},
		"negative total": {ShippingAddress: "a", PaymentMethod: "credit_card", Total: decimal.NewFromInt(-5)},
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Execute(context.Background(), userID, input)
			require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "got %v", err)
		})
	}
}

func TestExecuteRollsBackWhenEmitFails(t *testing.T) {
	svc, conn := newTestCheckout(t, failingEmitter{err: errors.New("outbox down")})
	user := dbtest.MustUser(t, conn, "")
	product := dbtest.MustProduct(t, conn, "widget", "29.99")
	dbtest.MustCartWithItems(t, conn, user.ID, map[*models.Product]int{product: 2})

	_, err := svc.Execute(context.Background(), user.ID, Input{
		ShippingAddress: "123 Main St",
		PaymentMethod:   "credit_card",
		Total:           decimal.RequireFromString("59.98"),
	})
	require.Error(t, err)
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeDependency, appErr.Code())

	assert.EqualValues(t, 0, dbtest.CountRows(t, conn, "orders"))
	assert.EqualValues(t, 0, dbtest.CountRows(t, conn, "order_items"))
	assert.EqualValues(t, 1, dbtest.CountRows(t, conn, "cart_items"))
}

// drainedCart reports the cart as already cleared, as when a concurrent
// checkout for the same user committed first.
type drainedCart struct {
	cart.Repository
}

func (d drainedCart) WithTx(tx *gorm.DB) cart.Repository {
	return drainedCart{d.Repository.WithTx(tx)}
}

func (drainedCart) ClearItems(context.Context, uuid.UUID) (int64, error) {
	return 0, nil
}

func TestExecuteRollsBackWhenCartAlreadyCleared(t *testing.T) {
	conn := dbtest.Open(t)
	logg := logger.New(logger.Options{ServiceName: "checkout-test", Output: io.Discard})
	svc, err := NewService(
		db.Wrap(conn),
		drainedCart{cart.NewRepository(conn)},
		orders.NewRepository(conn),
		outbox.NewService(outbox.NewRepository(conn), logg),
		logg,
	)
	require.NoError(t, err)

	user := dbtest.MustUser(t, conn, "")
	product := dbtest.MustProduct(t, conn, "widget", "29.99")
	dbtest.MustCartWithItems(t, conn, user.ID, map[*models.Product]int{product: 1})

	_, err = svc.Execute(context.Background(), user.ID, Input{
		ShippingAddress: "123 Main St",
		PaymentMethod:   "credit_card",
		Total:           decimal.RequireFromString("29.99"),
	})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeEmptyCart))
	assert.EqualValues(t, 0, dbtest.CountRows(t, conn, "orders"))
	assert.EqualValues(t, 0, dbtest.CountRows(t, conn, "outbox_events"))
}

func TestExecuteSecondCheckoutOfSameCartIsEmpty(t *testing.T) {
	svc, conn := newTestCheckout(t, nil)
	user := dbtest.MustUser(t, conn, "")
	product := dbtest.MustProduct(t, conn, "widget", "29.99")
	dbtest.MustCartWithItems(t, conn, user.ID, map[*models.Product]int{product: 1})
	input := Input{
		ShippingAddress: "123 Main St",
		PaymentMethod:   "credit_card",
		Total:           decimal.RequireFromString("29.99"),
	}

	_, err := svc.Execute(context.Background(), user.ID, input)
	require.NoError(t, err)
	_, err = svc.Execute(context.Background(), user.ID, input)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeEmptyCart))
	assert.EqualValues(t, 1, dbtest.CountRows(t, conn, "orders"))
}
