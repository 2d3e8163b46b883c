// Package dbtest builds throwaway sqlite databases shaped like the Postgres
// schema, plus fixture helpers shared by repository and service tests.
package dbtest

import (
	"fmt"
	"io"
	"log"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/angelmondragon/orderflow/pkg/db/models"
)

var schema = []string{
	`CREATE TABLE users (
  id TEXT PRIMARY KEY,
  email TEXT NOT NULL UNIQUE,
  name TEXT NOT NULL DEFAULT '',
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE products (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  description TEXT NOT NULL DEFAULT '',
  image_url TEXT,
  price TEXT NOT NULL,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE carts (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL UNIQUE,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE cart_items (
  id TEXT PRIMARY KEY,
  cart_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  quantity INTEGER NOT NULL CHECK (quantity >= 1),
  created_at DATETIME,
  updated_at DATETIME,
  UNIQUE (cart_id, product_id)
);`,
	`CREATE TABLE orders (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  total TEXT NOT NULL,
  shipping_address TEXT NOT NULL,
  payment_method TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending',
  payment_status TEXT NOT NULL DEFAULT 'PENDING',
  stripe_session_id TEXT,
  payment_intent_id TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE order_items (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  quantity INTEGER NOT NULL,
  price TEXT NOT NULL,
  created_at DATETIME
);`,
	`CREATE TABLE outbox_events (
  id TEXT PRIMARY KEY,
  event_type TEXT NOT NULL,
  aggregate_type TEXT NOT NULL,
  aggregate_id TEXT NOT NULL,
  payload BLOB NOT NULL,
  attempt_count INTEGER NOT NULL DEFAULT 0,
  last_error TEXT,
  published_at DATETIME,
  created_at DATETIME
);`,
}

// Open returns an isolated in-memory database with every table created.
func Open(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger: gormlogger.New(
			log.New(io.Discard, "", log.LstdFlags),
			gormlogger.Config{LogLevel: gormlogger.Silent},
		),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	for _, stmt := range schema {
		if err := conn.Exec(stmt).Error; err != nil {
			t.Fatalf("create schema: %v", err)
		}
	}
	t.Cleanup(func() {
		if sqlDB, err := conn.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return conn
}

func MustUser(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()
	if email == "" {
		email = fmt.Sprintf("buyer_%s@example.com", uuid.NewString())
	}
	user := &models.User{ID: uuid.New(), Email: email, Name: "Test Buyer"}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user
}

func MustProduct(t *testing.T, db *gorm.DB, name, price string) *models.Product {
	t.Helper()
	image := "https://cdn.example.com/" + name + ".png"
	product := &models.Product{
		ID:          uuid.New(),
		Name:        name,
		Description: name + " description",
		ImageURL:    &image,
		Price:       decimal.RequireFromString(price),
	}
	if err := db.Create(product).Error; err != nil {
		t.Fatalf("create product: %v", err)
	}
	return product
}

// MustCartWithItems creates a cart for userID holding qty of each product.
func MustCartWithItems(t *testing.T, db *gorm.DB, userID uuid.UUID, lines map[*models.Product]int) *models.Cart {
	t.Helper()
	cart := &models.Cart{ID: uuid.New(), UserID: userID}
	if err := db.Create(cart).Error; err != nil {
		t.Fatalf("create cart: %v", err)
	}
	for product, qty := range lines {
		item := &models.CartItem{ID: uuid.New(), CartID: cart.ID, ProductID: product.ID, Quantity: qty}
		if err := db.Create(item).Error; err != nil {
			t.Fatalf("create cart item: %v", err)
		}
	}
	return cart
}

// MustOrder inserts a pending order with a single line for product.
func MustOrder(t *testing.T, db *gorm.DB, userID uuid.UUID, product *models.Product, qty int) *models.Order {
	t.Helper()
	total := product.Price.Mul(decimal.NewFromInt(int64(qty)))
	order := &models.Order{
		ID:              uuid.New(),
		UserID:          userID,
		Total:           total,
		ShippingAddress: "123 Main St",
		PaymentMethod:   "credit_card",
		Status:          "pending",
		PaymentStatus:   "PENDING",
		Items: []models.OrderItem{{
			ID:        uuid.New(),
			ProductID: product.ID,
			Quantity:  qty,
			Price:     product.Price,
		}},
	}
	if err := db.Create(order).Error; err != nil {
		t.Fatalf("create order: %v", err)
	}
	return order
}

func CountRows(t *testing.T, db *gorm.DB, table string) int64 {
	t.Helper()
	var n int64
	if err := db.Table(table).Count(&n).Error; err != nil {
		t.Fatalf("count %s: %v", table, err)
	}
	return n
}
