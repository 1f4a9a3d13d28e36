package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"pwgateway/internal/models"
)

// ScheduledActionRepository handles queued recurring-billing actions.
type ScheduledActionRepository struct {
	db *gorm.DB
}

func NewScheduledActionRepository(db *gorm.DB) *ScheduledActionRepository {
	return &ScheduledActionRepository{db: db}
}

// Schedule queues hook for a subscription at the given time.
// If a pending action already exists for the pair, it is moved to at and returned.
// The queue is filled by the storefront side when a subscription starts;
// the gateway only unschedules pending actions and fires due ones.
func (r *ScheduledActionRepository) Schedule(ctx context.Context, hook string, subscriptionID uint, at time.Time) (*models.ScheduledAction, error) {
	var action models.ScheduledAction
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("hook = ? AND subscription_id = ? AND status = ?", hook, subscriptionID, models.ActionPending).
			Order("id DESC").
			First(&action).Error
		if err == nil {
			action.ScheduledAt = at
			return tx.Model(&action).Update("scheduled_at", at).Error
		}
		if err != gorm.ErrRecordNotFound {
			return err
		}

		action = models.ScheduledAction{
			Hook:           hook,
			SubscriptionID: subscriptionID,
			Status:         models.ActionPending,
			ScheduledAt:    at,
		}
		return tx.Create(&action).Error
	})
	if err != nil {
		return nil, err
	}
	return &action, nil
}

// Unschedule cancels every pending action for hook and subscription and
// returns how many were canceled. Nothing to cancel is not an error.
func (r *ScheduledActionRepository) Unschedule(ctx context.Context, hook string, subscriptionID uint) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.ScheduledAction{}).
		Where("hook = ? AND subscription_id = ? AND status = ?", hook, subscriptionID, models.ActionPending).
		Update("status", models.ActionCanceled)
	return res.RowsAffected, res.Error
}

// ListDue returns pending actions whose time has come, oldest first.
func (r *ScheduledActionRepository) ListDue(ctx context.Context, now time.Time, limit int) ([]models.ScheduledAction, error) {
	var actions []models.ScheduledAction
	q := r.db.WithContext(ctx).
		Where("status = ? AND scheduled_at <= ?", models.ActionPending, now).
		Order("scheduled_at ASC, id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&actions).Error
	return actions, err
}

// MarkRunning claims a pending action. It reports false when the action was
// canceled or claimed in the meantime.
func (r *ScheduledActionRepository) MarkRunning(ctx context.Context, id uint) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.ScheduledAction{}).
		Where("id = ? AND status = ?", id, models.ActionPending).
		Updates(map[string]interface{}{
			"status":   models.ActionRunning,
			"attempts": gorm.Expr("attempts + 1"),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *ScheduledActionRepository) MarkComplete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Model(&models.ScheduledAction{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     models.ActionComplete,
			"last_error": "",
		}).Error
}

func (r *ScheduledActionRepository) MarkFailed(ctx context.Context, id uint, errMsg string) error {
	return r.db.WithContext(ctx).Model(&models.ScheduledAction{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     models.ActionFailed,
			"last_error": errMsg,
		}).Error
}

func (r *ScheduledActionRepository) FindByID(ctx context.Context, id uint) (*models.ScheduledAction, error) {
	var action models.ScheduledAction
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&action).Error; err != nil {
		return nil, err
	}
	return &action, nil
}
