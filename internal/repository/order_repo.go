package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"pwgateway/internal/models"
)

// unpaidStatuses are the statuses a payment may still move an order out of.
var unpaidStatuses = []models.OrderStatus{
	models.OrderPending,
	models.OrderOnHold,
	models.OrderFailed,
	models.OrderCancelled,
}

// OrderRepository handles order rows.
type OrderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// FindByID returns gorm.ErrRecordNotFound for unknown ids.
func (r *OrderRepository) FindByID(ctx context.Context, id uint) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// FindRenewal finds the renewal order of a subscription carrying token.
func (r *OrderRepository) FindRenewal(ctx context.Context, subscriptionID uint, token string) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Where("parent_subscription_id = ? AND linkage_token = ? AND created_via = ?",
			subscriptionID, token, models.CreatedViaRenewal).
		Order("id ASC").
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// Create inserts an order, generating an order key when none is set.
func (r *OrderRepository) Create(ctx context.Context, order *models.Order) error {
	if order.OrderKey == "" {
		order.OrderKey = NewOrderKey()
	}
	if order.Status == "" {
		order.Status = models.OrderPending
	}
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *OrderRepository) UpdateStatus(ctx context.Context, id uint, status models.OrderStatus) error {
	return r.db.WithContext(ctx).Model(&models.Order{}).Where("id = ?", id).Update("status", status).Error
}

func (r *OrderRepository) Update(ctx context.Context, id uint, updates map[string]interface{}) error {
	return r.db.WithContext(ctx).Model(&models.Order{}).Where("id = ?", id).Updates(updates).Error
}

// MarkPaid records the transaction and moves an unpaid order to its paid
// status. The status guard in the WHERE clause makes concurrent duplicates
// a no-op; it reports whether this call performed the transition.
func (r *OrderRepository) MarkPaid(ctx context.Context, order *models.Order, transactionID string) (bool, error) {
	now := time.Now()
	res := r.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND status IN ?", order.ID, unpaidStatuses).
		Updates(map[string]interface{}{
			"status":         order.PaidStatus(),
			"transaction_id": transactionID,
			"paid_at":        now,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// NewOrderKey returns a fresh customer-facing order key.
func NewOrderKey() string {
	return "wc_order_" + uuid.NewString()
}
