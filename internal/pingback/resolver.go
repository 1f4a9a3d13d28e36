package pingback

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"pwgateway/internal/models"
)

// Resolution is the aggregate a pingback targets.
type Resolution struct {
	Order *models.Order
	// Subscription is the parent subscription of Order, if any. Only one
	// subscription per order is supported.
	Subscription  *models.Subscription
	Subscriptions []models.Subscription
	// LinkageToken correlates renewal pingbacks to Subscription.
	LinkageToken string
}

// Resolver maps external order ids to orders and their subscriptions.
type Resolver struct {
	store                Store
	subscriptionsEnabled bool
}

func NewResolver(store Store, subscriptionsEnabled bool) *Resolver {
	return &Resolver{store: store, subscriptionsEnabled: subscriptionsEnabled}
}

// Resolve looks up the order for externalOrderID. Unknown or malformed ids yield ErrOrderNotFound.
func (r *Resolver) Resolve(ctx context.Context, externalOrderID string) (*Resolution, error) {
	id, err := strconv.ParseUint(strings.TrimSpace(externalOrderID), 10, 64)
	if err != nil || id == 0 {
		return nil, ErrOrderNotFound
	}

	order, err := r.store.GetOrder(ctx, uint(id))
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("load order %d: %w", id, err)
	}

	res := &Resolution{Order: order}
	if !r.subscriptionsEnabled {
		return res, nil
	}

	subs, err := r.store.GetSubscriptionsForOrder(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("load subscriptions for order %d: %w", order.ID, err)
	}
	if len(subs) > 0 {
		res.Subscriptions = subs
		res.Subscription = &subs[0]
		res.LinkageToken = order.LinkageToken
	}
	return res, nil
}
