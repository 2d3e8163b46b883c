// Package repo holds the plumbing shared by the gorm repositories.
package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// Base is embedded by repositories. The zero value is unusable.
type Base struct {
	conn *gorm.DB
}

func NewBase(conn *gorm.DB) Base {
	return Base{conn: conn}
}

// DB scopes the handle to ctx. A nil ctx returns the bare handle.
func (b Base) DB(ctx context.Context) *gorm.DB {
	if ctx == nil {
		return b.conn
	}
	return b.conn.WithContext(ctx)
}

// Tx returns a copy bound to tx, or b itself when tx is nil.
func (b Base) Tx(tx *gorm.DB) Base {
	if tx != nil {
		b.conn = tx
	}
	return b
}

// FirstOrNil runs First on q and maps a missing row to (nil, nil).
func FirstOrNil[T any](q *gorm.DB) (*T, error) {
	var row T
	switch err := q.First(&row).Error; {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, nil
	case err != nil:
		return nil, err
	}
	return &row, nil
}
