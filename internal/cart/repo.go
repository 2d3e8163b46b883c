package cart

import (
	"context"
	"time"

	"github.com/angelmondragon/orderflow/internal/repo"
	"github.com/angelmondragon/orderflow/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repository struct {
	repo.Base
}

// NewRepository builds a cart repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{Base: r.Base.Tx(tx)}
}

// FindByUser returns the user's cart with items and their live product rows,
// or nil when the user has never added anything.
func (r *repository) FindByUser(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	return repo.FirstOrNil[models.Cart](r.DB(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC, id ASC") }).
		Preload("Items.Product").
		Where("user_id = ?", userID))
}

// LockByUser takes a row lock on the user's cart and then loads it like
// FindByUser. Concurrent checkouts for the same user queue behind the lock
// until the holder's transaction ends. Call it inside a transaction.
func (r *repository) LockByUser(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	locked, err := repo.FirstOrNil[models.Cart](r.DB(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ?", userID))
	if err != nil || locked == nil {
		return nil, err
	}
	return r.FindByUser(ctx, userID)
}

func (r *repository) GetOrCreate(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	cart := &models.Cart{UserID: userID}
	err := r.DB(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "user_id"}}, DoNothing: true}).
		Create(cart).Error
	if err != nil {
		return nil, err
	}
	var existing models.Cart
	if err := r.DB(ctx).Where("user_id = ?", userID).First(&existing).Error; err != nil {
		return nil, err
	}
	return &existing, nil
}

// UpsertItem adds qty to the existing line for productID or creates it.
func (r *repository) UpsertItem(ctx context.Context, cartID, productID uuid.UUID, qty int) error {
	item := &models.CartItem{CartID: cartID, ProductID: productID, Quantity: qty}
	return r.DB(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "cart_id"}, {Name: "product_id"}},
			DoUpdates: clause.Assignments(map[string]any{
				"quantity":   gorm.Expr("cart_items.quantity + ?", qty),
				"updated_at": time.Now().UTC(),
			}),
		}).
		Create(item).Error
}

func (r *repository) UpdateQuantity(ctx context.Context, cartID, productID uuid.UUID, qty int) (bool, error) {
	res := r.DB(ctx).
		Model(&models.CartItem{}).
		Where("cart_id = ? AND product_id = ?", cartID, productID).
		Updates(map[string]any{"quantity": qty, "updated_at": time.Now().UTC()})
	return res.RowsAffected > 0, res.Error
}

func (r *repository) RemoveItem(ctx context.Context, cartID, productID uuid.UUID) (bool, error) {
	res := r.DB(ctx).
		Where("cart_id = ? AND product_id = ?", cartID, productID).
		Delete(&models.CartItem{})
	return res.RowsAffected > 0, res.Error
}

// ClearItems deletes every line of the cart and reports how many went away.
func (r *repository) ClearItems(ctx context.Context, cartID uuid.UUID) (int64, error) {
	res := r.DB(ctx).
		Where("cart_id = ?", cartID).
		Delete(&models.CartItem{})
	return res.RowsAffected, res.Error
}
