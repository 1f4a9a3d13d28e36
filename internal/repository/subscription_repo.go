package repository

import (
	"context"

	"gorm.io/gorm"

	"pwgateway/internal/models"
)

// SubscriptionRepository handles subscription rows.
type SubscriptionRepository struct {
	db *gorm.DB
}

func NewSubscriptionRepository(db *gorm.DB) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

func (r *SubscriptionRepository) FindByID(ctx context.Context, id uint) (*models.Subscription, error) {
	var sub models.Subscription
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&sub).Error; err != nil {
		return nil, err
	}
	return &sub, nil
}

// FindByParentOrder lists the subscriptions started by an order, oldest first.
func (r *SubscriptionRepository) FindByParentOrder(ctx context.Context, orderID uint) ([]models.Subscription, error) {
	var subs []models.Subscription
	err := r.db.WithContext(ctx).
		Where("parent_order_id = ?", orderID).
		Order("id ASC").
		Find(&subs).Error
	return subs, err
}

func (r *SubscriptionRepository) Create(ctx context.Context, sub *models.Subscription) error {
	return r.db.WithContext(ctx).Create(sub).Error
}

func (r *SubscriptionRepository) UpdateStatus(ctx context.Context, id uint, status models.SubscriptionStatus) error {
	return r.db.WithContext(ctx).Model(&models.Subscription{}).Where("id = ?", id).Update("status", status).Error
}
