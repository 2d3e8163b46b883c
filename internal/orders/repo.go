package orders

import (
	"context"
	"errors"
	"time"

	"github.com/angelmondragon/orderflow/internal/repo"
	"github.com/angelmondragon/orderflow/pkg/db/models"
	"github.com/angelmondragon/orderflow/pkg/enums"
	"github.com/angelmondragon/orderflow/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type repository struct {
	repo.Base
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{Base: r.Base.Tx(tx)}
}

// Create inserts the order together with its item snapshots.
func (r *repository) Create(ctx context.Context, order *models.Order) error {
	return r.DB(ctx).Create(order).Error
}

// FindByID returns gorm.ErrRecordNotFound when the order does not exist.
func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.DB(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC, id ASC") }).
		Preload("Items.Product").
		Preload("User").
		Where("id = ?", id).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindByPaymentIntentID(ctx context.Context, paymentIntentID string) (*models.Order, error) {
	return repo.FirstOrNil[models.Order](r.DB(ctx).Where("payment_intent_id = ?", paymentIntentID))
}

func (r *repository) ListByUser(ctx context.Context, userID uuid.UUID, params pagination.Params) (*OrderList, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}
	limit := pagination.NormalizeLimit(params.Limit)

	query := r.DB(ctx).
		Preload("Items").
		Where("user_id = ?", userID)
	if cursor != nil {
		query = query.Where("(created_at < ?) OR (created_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	var rows []models.Order
	if err := query.
		Order("created_at DESC").
		Order("id DESC").
		Limit(pagination.LimitWithBuffer(limit)).
		Find(&rows).Error; err != nil {
		return nil, err
	}

	rows, more := pagination.Trim(rows, limit)
	list := &OrderList{Orders: make([]OrderView, 0, len(rows))}
	if more {
		last := rows[len(rows)-1]
		list.NextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	for i := range rows {
		list.Orders = append(list.Orders, NewOrderView(&rows[i]))
	}
	return list, nil
}

// AttachGatewaySession records a new checkout session on the order and puts a
// previously failed attempt back to PENDING. Orders that are completed or
// already paid are left untouched and false is returned.
func (r *repository) AttachGatewaySession(ctx context.Context, id uuid.UUID, sessionID string) (bool, error) {
	res := r.DB(ctx).
		Model(&models.Order{}).
		Where("id = ?", id).
		Where("status <> ?", enums.OrderStatusCompleted).
		Where("payment_status <> ?", enums.PaymentStatusPaid).
		Updates(map[string]any{
			"stripe_session_id": sessionID,
			"payment_method":    enums.PaymentMethodGateway,
			"status":            enums.OrderStatusPending,
			"payment_status":    enums.PaymentStatusPending,
			"updated_at":        time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// ApplyPaymentTransition is a compare-and-set keyed by order id. It skips PAID
// rows and rows already holding the target (payment_status, status) pair, so a
// paid order never regresses and replays change nothing. The returned bool
// reports whether a row actually changed.
func (r *repository) ApplyPaymentTransition(ctx context.Context, id uuid.UUID, t Transition) (bool, error) {
	if !t.PaymentStatus.IsValid() || !t.Status.IsValid() {
		return false, errors.New("invalid payment transition")
	}
	updates := map[string]any{
		"payment_status": t.PaymentStatus,
		"status":         t.Status,
		"updated_at":     time.Now().UTC(),
	}
	if t.PaymentIntentID != nil {
		updates["payment_intent_id"] = *t.PaymentIntentID
	}

	res := r.DB(ctx).
		Model(&models.Order{}).
		Where("id = ?", id).
		Where("payment_status <> ?", enums.PaymentStatusPaid).
		Where("NOT (payment_status = ? AND status = ?)", t.PaymentStatus, t.Status).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) CountPendingBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	var count int64
	err := r.DB(ctx).
		Model(&models.Order{}).
		Where("status = ?", enums.OrderStatusPending).
		Where("payment_status = ?", enums.PaymentStatusPending).
		Where("created_at < ?", cutoff).
		Count(&count).Error
	return count, err
}
