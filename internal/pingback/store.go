package pingback

import (
	"context"

	"pwgateway/internal/models"
)

// Store is the order/subscription store the engine reads and mutates.
// Lookups return ErrOrderNotFound for unknown orders. Implementations are
// expected to serialize updates per row.
type Store interface {
	GetOrder(ctx context.Context, id uint) (*models.Order, error)
	GetSubscriptionsForOrder(ctx context.Context, orderID uint) ([]models.Subscription, error)
	// FindRenewalOrder returns the renewal order of subscriptionID carrying
	// linkageToken, or nil when there is none.
	FindRenewalOrder(ctx context.Context, subscriptionID uint, linkageToken string) (*models.Order, error)

	AddOrderNote(ctx context.Context, orderID uint, note string) error
	SetOrderStatus(ctx context.Context, orderID uint, status models.OrderStatus, note string) error
	MarkPaymentComplete(ctx context.Context, orderID uint, referenceID string) error
	CancelOrder(ctx context.Context, orderID uint, note string) error
	SetOrderPaymentMethod(ctx context.Context, orderID uint, method string) error
	SetOrderLinkageToken(ctx context.Context, orderID uint, token string) error

	SetSubscriptionStatus(ctx context.Context, subscriptionID uint, status models.SubscriptionStatus, note string) error
	CreateRenewalOrder(ctx context.Context, sub *models.Subscription) (*models.Order, error)

	// WithinTransaction runs fn against a store bound to one transaction.
	WithinTransaction(ctx context.Context, fn func(tx Store) error) error
}

// ScheduleCanceller removes pending recurring-charge jobs.
type ScheduleCanceller interface {
	Unschedule(ctx context.Context, hook string, subscriptionID uint) (int64, error)
}
