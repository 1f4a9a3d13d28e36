package cron

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"pwgateway/internal/metrics"
	"pwgateway/internal/models"
)

const (
	dueActionsBatchSize = 50

	noteRenewalPaymentDue = "Renewal payment due"
)

// processDueActions fires pending actions whose time has passed. It returns
// how many actions it fired.
func (s *Scheduler) processDueActions(ctx context.Context) int {
	defer s.recoverFromPanic("processDueActions")

	if s.repos == nil || s.repos.Actions == nil {
		return 0
	}

	actions, err := s.repos.Actions.ListDue(ctx, time.Now(), dueActionsBatchSize)
	if err != nil {
		s.logger.Error("Failed to list due actions", zap.Error(err))
		return 0
	}

	fired := 0
	for _, action := range actions {
		claimed, err := s.repos.Actions.MarkRunning(ctx, action.ID)
		if err != nil {
			s.logger.Error("Failed to claim scheduled action", zap.Uint("action_id", action.ID), zap.Error(err))
			continue
		}
		if !claimed {
			// Unscheduled by a pingback or picked up by another worker.
			continue
		}
		fired++

		if err := s.fire(ctx, action); err != nil {
			s.logger.Warn("Scheduled action failed",
				zap.Uint("action_id", action.ID),
				zap.String("hook", action.Hook),
				zap.Uint("subscription_id", action.SubscriptionID),
				zap.Error(err),
			)
			if err := s.repos.Actions.MarkFailed(ctx, action.ID, err.Error()); err != nil {
				s.logger.Error("Failed to mark scheduled action failed", zap.Uint("action_id", action.ID), zap.Error(err))
			}
			metrics.RecordScheduledAction(action.Hook, models.ActionFailed)
			continue
		}

		if err := s.repos.Actions.MarkComplete(ctx, action.ID); err != nil {
			s.logger.Error("Failed to mark scheduled action complete", zap.Uint("action_id", action.ID), zap.Error(err))
		}
		metrics.RecordScheduledAction(action.Hook, models.ActionComplete)
	}
	return fired
}

func (s *Scheduler) fire(ctx context.Context, action models.ScheduledAction) error {
	switch action.Hook {
	case models.HookScheduledSubscriptionPayment:
		return s.subscriptionPaymentDue(ctx, action.SubscriptionID)
	}
	return fmt.Errorf("unknown hook %q", action.Hook)
}

// subscriptionPaymentDue puts an active subscription on hold until the
// renewal pingback arrives.
func (s *Scheduler) subscriptionPaymentDue(ctx context.Context, subscriptionID uint) error {
	sub, err := s.repos.Store.Subscriptions().FindByID(ctx, subscriptionID)
	if err != nil {
		return fmt.Errorf("load subscription %d: %w", subscriptionID, err)
	}
	if sub.Status != models.SubscriptionActive {
		s.logger.Info("Skipping payment due for inactive subscription",
			zap.Uint("subscription_id", sub.ID),
			zap.String("status", string(sub.Status)),
		)
		return nil
	}
	return s.repos.Store.SetSubscriptionStatus(ctx, sub.ID, models.SubscriptionOnHold, noteRenewalPaymentDue)
}
