package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"pwgateway/internal/models"
	"pwgateway/internal/pingback"
)

// Store is the gorm-backed order and subscription store used by the
// reconciliation engine.
type Store struct {
	db            *gorm.DB
	orders        *OrderRepository
	subscriptions *SubscriptionRepository
	notes         *NoteRepository
}

var _ pingback.Store = (*Store)(nil)

func NewStore(db *gorm.DB) *Store {
	return &Store{
		db:            db,
		orders:        NewOrderRepository(db),
		subscriptions: NewSubscriptionRepository(db),
		notes:         NewNoteRepository(db),
	}
}

func (s *Store) GetOrder(ctx context.Context, id uint) (*models.Order, error) {
	order, err := s.orders.FindByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pingback.ErrOrderNotFound
	}
	return order, err
}

func (s *Store) GetSubscriptionsForOrder(ctx context.Context, orderID uint) ([]models.Subscription, error) {
	return s.subscriptions.FindByParentOrder(ctx, orderID)
}

func (s *Store) FindRenewalOrder(ctx context.Context, subscriptionID uint, linkageToken string) (*models.Order, error) {
	order, err := s.orders.FindRenewal(ctx, subscriptionID, linkageToken)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return order, err
}

func (s *Store) AddOrderNote(ctx context.Context, orderID uint, note string) error {
	return s.notes.Add(ctx, models.NoteEntityOrder, orderID, note)
}

func (s *Store) SetOrderStatus(ctx context.Context, orderID uint, status models.OrderStatus, note string) error {
	if err := s.orders.UpdateStatus(ctx, orderID, status); err != nil {
		return err
	}
	if note == "" {
		return nil
	}
	return s.AddOrderNote(ctx, orderID, note)
}

// MarkPaymentComplete is a no-op for orders that no longer need payment.
func (s *Store) MarkPaymentComplete(ctx context.Context, orderID uint, referenceID string) error {
	order, err := s.GetOrder(ctx, orderID)
	if err != nil {
		return err
	}
	if !order.Status.NeedsPayment() {
		return nil
	}
	_, err = s.orders.MarkPaid(ctx, order, referenceID)
	return err
}

func (s *Store) CancelOrder(ctx context.Context, orderID uint, note string) error {
	return s.SetOrderStatus(ctx, orderID, models.OrderCancelled, note)
}

func (s *Store) SetOrderPaymentMethod(ctx context.Context, orderID uint, method string) error {
	return s.orders.Update(ctx, orderID, map[string]interface{}{"payment_method": method})
}

func (s *Store) SetOrderLinkageToken(ctx context.Context, orderID uint, token string) error {
	return s.orders.Update(ctx, orderID, map[string]interface{}{"linkage_token": token})
}

func (s *Store) SetSubscriptionStatus(ctx context.Context, subscriptionID uint, status models.SubscriptionStatus, note string) error {
	if err := s.subscriptions.UpdateStatus(ctx, subscriptionID, status); err != nil {
		return err
	}
	if note == "" {
		return nil
	}
	return s.notes.Add(ctx, models.NoteEntitySubscription, subscriptionID, note)
}

// CreateRenewalOrder creates a pending order for the next period of sub,
// copying the customer details of the order that started it.
func (s *Store) CreateRenewalOrder(ctx context.Context, sub *models.Subscription) (*models.Order, error) {
	parent, err := s.orders.FindByID(ctx, sub.ParentOrderID)
	if err != nil {
		return nil, fmt.Errorf("load parent order %d: %w", sub.ParentOrderID, err)
	}

	subID := sub.ID
	renewal := &models.Order{
		Status:               models.OrderPending,
		Currency:             sub.Currency,
		Total:                sub.RecurringTotal,
		CustomerID:           parent.CustomerID,
		BillingEmail:         parent.BillingEmail,
		BillingFirstName:     parent.BillingFirstName,
		BillingLastName:      parent.BillingLastName,
		ShippingFirstName:    parent.ShippingFirstName,
		ShippingLastName:     parent.ShippingLastName,
		ShippingCountry:      parent.ShippingCountry,
		ShippingStreet:       parent.ShippingStreet,
		ShippingState:        parent.ShippingState,
		ShippingZip:          parent.ShippingZip,
		ShippingCity:         parent.ShippingCity,
		ParentSubscriptionID: &subID,
		CreatedVia:           models.CreatedViaRenewal,
		Virtual:              parent.Virtual,
	}
	if renewal.Currency == "" {
		renewal.Currency = parent.Currency
	}
	if err := s.orders.Create(ctx, renewal); err != nil {
		return nil, err
	}
	return renewal, nil
}

func (s *Store) WithinTransaction(ctx context.Context, fn func(tx pingback.Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewStore(tx))
	})
}

// Orders exposes the order repository for read paths outside reconciliation.
func (s *Store) Orders() *OrderRepository {
	return s.orders
}

func (s *Store) Subscriptions() *SubscriptionRepository {
	return s.subscriptions
}

func (s *Store) Notes() *NoteRepository {
	return s.notes
}
