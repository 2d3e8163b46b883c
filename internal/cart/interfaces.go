package cart

import (
	"context"

	"github.com/angelmondragon/orderflow/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository is the cart store.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByUser(ctx context.Context, userID uuid.UUID) (*models.Cart, error)
	LockByUser(ctx context.Context, userID uuid.UUID) (*models.Cart, error)
	GetOrCreate(ctx context.Context, userID uuid.UUID) (*models.Cart, error)
	UpsertItem(ctx context.Context, cartID, productID uuid.UUID, qty int) error
	UpdateQuantity(ctx context.Context, cartID, productID uuid.UUID, qty int) (bool, error)
	RemoveItem(ctx context.Context, cartID, productID uuid.UUID) (bool, error)
	ClearItems(ctx context.Context, cartID uuid.UUID) (int64, error)
}
