package pingback

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"pwgateway/internal/models"
)

// Outcome is the transition the engine applied.
type Outcome string

const (
	OutcomeReplay         Outcome = "replay"
	OutcomeDirectPayment  Outcome = "direct_payment"
	OutcomeRenewalPayment Outcome = "renewal_payment"
	OutcomeCancelled      Outcome = "cancelled"
	OutcomeOnHold         Outcome = "on_hold"
)

// IsPayment reports whether the outcome completed a payment.
func (o Outcome) IsPayment() bool {
	return o == OutcomeDirectPayment || o == OutcomeRenewalPayment
}

const (
	noteRenewalDue = "Subscription renewal payment due: Status changed from Active to On hold."
)

func noteApproved(referenceID string) string {
	return "Payment approved by Paymentwall - Transaction Id: " + referenceID
}

func noteCancelReason(reason string) string {
	return "Reason: " + reason
}

// EngineOptions toggles optional capabilities of the host store.
type EngineOptions struct {
	SubscriptionsEnabled bool
}

// Result describes what Reconcile did. Order is the order the transition
// applied to (the new renewal order on the renewal path).
type Result struct {
	Outcome      Outcome
	Order        *models.Order
	Subscription *models.Subscription
}

// Engine decides and applies the state transition for a validated pingback.
type Engine struct {
	store     Store
	canceller ScheduleCanceller
	opts      EngineOptions
	logger    *zap.Logger
}

func NewEngine(store Store, canceller ScheduleCanceller, opts EngineOptions, logger *zap.Logger) *Engine {
	return &Engine{
		store:     store,
		canceller: canceller,
		opts:      opts,
		logger:    logger,
	}
}

// Reconcile applies event to the resolved aggregate. Store failures are
// returned wrapped in ErrStoreMutation; a retry of the same event converges
// to the same final state.
func (e *Engine) Reconcile(ctx context.Context, event *PaymentEvent, res *Resolution) (*Result, error) {
	order := res.Order

	switch {
	case event.IsDeliverable():
		if order.Status == models.OrderProcessing {
			return &Result{Outcome: OutcomeReplay, Order: order, Subscription: res.Subscription}, nil
		}

		var (
			result *Result
			err    error
		)
		switch {
		case e.isRenewal(event, res):
			result, err = e.applyRenewal(ctx, event, res.Subscription)
		case !order.Status.NeedsPayment():
			// A completed order only takes renewals; anything else is a replay.
			return &Result{Outcome: OutcomeReplay, Order: order, Subscription: res.Subscription}, nil
		default:
			result, err = e.applyDirect(ctx, event, res)
		}
		if err != nil {
			return nil, err
		}

		if result.Outcome != OutcomeReplay && res.Subscription != nil {
			e.unscheduleRenewal(ctx, res.Subscription.ID)
		}
		return result, nil

	case event.IsCancelable():
		if err := e.store.CancelOrder(ctx, order.ID, noteCancelReason(event.Reason)); err != nil {
			return nil, fmt.Errorf("%w: cancel order %d: %w", ErrStoreMutation, order.ID, err)
		}
		return &Result{Outcome: OutcomeCancelled, Order: order}, nil

	case event.IsUnderReview():
		if err := e.store.SetOrderStatus(ctx, order.ID, models.OrderOnHold, ""); err != nil {
			return nil, fmt.Errorf("%w: hold order %d: %w", ErrStoreMutation, order.ID, err)
		}
		return &Result{Outcome: OutcomeOnHold, Order: order}, nil
	}

	return nil, &ValidationError{
		Kind:     ErrUnclassifiedEvent,
		Messages: []string{"Unsupported pingback type: " + event.RawType},
	}
}

// isRenewal holds only when the pingback carries the linkage token of the
// order's subscription. Everything else takes the direct path.
func (e *Engine) isRenewal(event *PaymentEvent, res *Resolution) bool {
	return e.opts.SubscriptionsEnabled &&
		res.Subscription != nil &&
		event.InitialRef != "" &&
		event.InitialRef == res.LinkageToken
}

func (e *Engine) applyRenewal(ctx context.Context, event *PaymentEvent, sub *models.Subscription) (*Result, error) {
	ref := event.ReferenceID
	result := &Result{Outcome: OutcomeRenewalPayment, Subscription: sub}

	err := e.store.WithinTransaction(ctx, func(tx Store) error {
		existing, err := tx.FindRenewalOrder(ctx, sub.ID, ref)
		if err != nil {
			return err
		}
		if existing != nil {
			result.Order = existing
			if !existing.Status.NeedsPayment() {
				result.Outcome = OutcomeReplay
				return nil
			}
			// A previous attempt created the order but did not finish.
			if existing.PaymentMethod == "" {
				if err := tx.SetOrderPaymentMethod(ctx, existing.ID, sub.PaymentMethod); err != nil {
					return err
				}
			}
			return tx.MarkPaymentComplete(ctx, existing.ID, ref)
		}

		if err := tx.SetSubscriptionStatus(ctx, sub.ID, models.SubscriptionOnHold, noteRenewalDue); err != nil {
			return err
		}
		renewal, err := tx.CreateRenewalOrder(ctx, sub)
		if err != nil {
			return err
		}
		if err := tx.SetOrderLinkageToken(ctx, renewal.ID, ref); err != nil {
			return err
		}
		if err := tx.AddOrderNote(ctx, renewal.ID, noteApproved(ref)); err != nil {
			return err
		}
		if err := tx.SetOrderPaymentMethod(ctx, renewal.ID, sub.PaymentMethod); err != nil {
			return err
		}
		if err := tx.MarkPaymentComplete(ctx, renewal.ID, ref); err != nil {
			return err
		}
		result.Order = renewal
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: renewal for subscription %d: %w", ErrStoreMutation, sub.ID, err)
	}
	return result, nil
}

func (e *Engine) applyDirect(ctx context.Context, event *PaymentEvent, res *Resolution) (*Result, error) {
	order := res.Order
	ref := event.ReferenceID

	err := e.store.WithinTransaction(ctx, func(tx Store) error {
		if err := tx.AddOrderNote(ctx, order.ID, noteApproved(ref)); err != nil {
			return err
		}
		// The first payment of a subscription order carries the token later renewals refer to.
		if res.Subscription != nil && order.LinkageToken == "" {
			if err := tx.SetOrderLinkageToken(ctx, order.ID, ref); err != nil {
				return err
			}
		}
		return tx.MarkPaymentComplete(ctx, order.ID, ref)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: payment for order %d: %w", ErrStoreMutation, order.ID, err)
	}
	return &Result{Outcome: OutcomeDirectPayment, Order: order, Subscription: res.Subscription}, nil
}

// unscheduleRenewal is best-effort: the job may already have fired or been removed.
func (e *Engine) unscheduleRenewal(ctx context.Context, subscriptionID uint) {
	if e.canceller == nil {
		return
	}
	removed, err := e.canceller.Unschedule(ctx, models.HookScheduledSubscriptionPayment, subscriptionID)
	if err != nil {
		e.logger.Warn("Failed to unschedule subscription payment",
			zap.Uint("subscription_id", subscriptionID),
			zap.Error(err),
		)
		return
	}
	e.logger.Debug("Unscheduled subscription payment",
		zap.Uint("subscription_id", subscriptionID),
		zap.Int64("removed", removed),
	)
}
