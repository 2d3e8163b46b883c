package products

import (
	"context"

	"github.com/angelmondragon/orderflow/internal/repo"
	"github.com/angelmondragon/orderflow/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository reads catalog rows. The catalog itself is managed elsewhere; the
// order pipeline only needs current prices and display data.
type Repository struct {
	repo.Base
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// GetByID returns nil, nil when the product does not exist.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	return repo.FirstOrNil[models.Product](r.DB(ctx).Where("id = ?", id))
}
