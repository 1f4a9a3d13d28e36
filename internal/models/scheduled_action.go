package models

import "time"

const (
	// HookScheduledSubscriptionPayment charges a subscription at the end of its billing period.
	HookScheduledSubscriptionPayment = "scheduled_subscription_payment"

	ActionPending  = "pending"
	ActionRunning  = "running"
	ActionComplete = "complete"
	ActionCanceled = "canceled"
	ActionFailed   = "failed"
)

// ScheduledAction stores a queued recurring-billing job fired by the scheduler once ScheduledAt passes.
type ScheduledAction struct {
	ID             uint      `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	Hook           string    `gorm:"column:hook;size:100;index:idx_scheduled_actions_hook_sub,priority:1" json:"hook"`
	SubscriptionID uint      `gorm:"column:subscription_id;index:idx_scheduled_actions_hook_sub,priority:2" json:"subscription_id"`
	Status         string    `gorm:"column:status;size:30;index:idx_scheduled_actions_status_at,priority:1" json:"status"`
	ScheduledAt    time.Time `gorm:"column:scheduled_at;index:idx_scheduled_actions_status_at,priority:2" json:"scheduled_at"`
	Attempts       int       `gorm:"column:attempts;default:0" json:"attempts"`
	LastError      string    `gorm:"column:last_error;type:text" json:"last_error"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (ScheduledAction) TableName() string {
	return "scheduled_actions"
}
