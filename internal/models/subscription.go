package models

import "time"

// SubscriptionStatus is the lifecycle state of a subscription.
type SubscriptionStatus string

const (
	SubscriptionActive    SubscriptionStatus = "active"
	SubscriptionOnHold    SubscriptionStatus = "on-hold"
	SubscriptionPending   SubscriptionStatus = "pending"
	SubscriptionCancelled SubscriptionStatus = "cancelled"
	SubscriptionExpired   SubscriptionStatus = "expired"
)

// Subscription maps to the `subscriptions` table. ParentOrderID points at the
// checkout order that started it.
type Subscription struct {
	ID              uint               `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	ParentOrderID   uint               `gorm:"column:parent_order_id;index" json:"parent_order_id"`
	Status          SubscriptionStatus `gorm:"column:status;size:30" json:"status"`
	PaymentMethod   string             `gorm:"column:payment_method;size:100" json:"payment_method"`
	Currency        string             `gorm:"column:currency;size:8" json:"currency"`
	RecurringTotal  float64            `gorm:"column:recurring_total;type:decimal(12,2)" json:"recurring_total"`
	BillingPeriod   string             `gorm:"column:billing_period;size:20" json:"billing_period"`
	BillingInterval int                `gorm:"column:billing_interval;default:1" json:"billing_interval"`
	TrialPeriod     string             `gorm:"column:trial_period;size:20" json:"trial_period"`
	TrialEnd        *time.Time         `gorm:"column:trial_end" json:"trial_end,omitempty"`
	CreatedAt       time.Time          `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time          `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (Subscription) TableName() string {
	return "subscriptions"
}

// HasTrial reports whether the subscription starts with a trial period.
func (s *Subscription) HasTrial() bool {
	return s.TrialEnd != nil && !s.TrialEnd.IsZero()
}
