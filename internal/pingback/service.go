package pingback

import (
	"context"
	"errors"
	"net/url"
	"time"

	"go.uber.org/zap"

	"pwgateway/internal/events"
	"pwgateway/internal/metrics"
	"pwgateway/internal/models"
)

// Deduper remembers acknowledged pingbacks so exact replays are answered
// without touching the store. Keys are only remembered after success.
type Deduper interface {
	Seen(ctx context.Context, key string) (bool, error)
	Remember(ctx context.Context, key string) error
}

// DeliveryConfirmer reports fulfilled payments back to the processor.
type DeliveryConfirmer interface {
	Confirm(ctx context.Context, order *models.Order, referenceID string) error
}

// Service runs one pingback through validation, resolution and reconciliation.
type Service struct {
	validator *Validator
	resolver  *Resolver
	engine    *Engine
	deduper   Deduper
	publisher events.Publisher
	delivery  DeliveryConfirmer
	logger    *zap.Logger
}

func NewService(validator *Validator, resolver *Resolver, engine *Engine, logger *zap.Logger) *Service {
	return &Service{
		validator: validator,
		resolver:  resolver,
		engine:    engine,
		publisher: events.NoopPublisher{},
		logger:    logger,
	}
}

// WithDeduper enables the replay cache.
func (s *Service) WithDeduper(d Deduper) *Service {
	s.deduper = d
	return s
}

// WithPublisher sets where order events are published.
func (s *Service) WithPublisher(p events.Publisher) *Service {
	if p != nil {
		s.publisher = p
	}
	return s
}

// WithDelivery enables delivery confirmations for completed payments.
func (s *Service) WithDelivery(d DeliveryConfirmer) *Service {
	s.delivery = d
	return s
}

// Handle processes a pingback and returns the acknowledgement to send.
func (s *Service) Handle(ctx context.Context, params url.Values, sourceIP string) Response {
	event, err := s.validator.Validate(params, sourceIP)
	if err != nil {
		s.logger.Warn("Rejected pingback",
			zap.String("source_ip", sourceIP),
			zap.String("goodsid", params.Get("goodsid")),
			zap.Error(err),
		)
		metrics.RecordPingback("rejected")
		return Respond("", err)
	}

	logger := s.logger.With(
		zap.String("goodsid", event.GoodsID),
		zap.String("ref", event.ReferenceID),
		zap.String("type", event.Type.String()),
	)

	if s.deduper != nil {
		seen, err := s.deduper.Seen(ctx, event.DedupKey())
		if err != nil {
			logger.Warn("Replay cache lookup failed", zap.Error(err))
		} else if seen {
			logger.Info("Duplicate pingback acknowledged")
			metrics.RecordPingback(string(OutcomeReplay))
			return Respond(OutcomeReplay, nil)
		}
	}

	res, err := s.resolver.Resolve(ctx, event.GoodsID)
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			logger.Warn("Pingback for unknown order")
			metrics.RecordPingback("order_not_found")
		} else {
			logger.Error("Failed to resolve order", zap.Error(err))
			metrics.RecordPingback("failed")
		}
		return Respond("", err)
	}

	result, err := s.engine.Reconcile(ctx, event, res)
	if err != nil {
		logger.Error("Pingback reconciliation failed", zap.Error(err))
		metrics.RecordPingback("failed")
		return Respond("", err)
	}

	logger.Info("Pingback reconciled",
		zap.String("outcome", string(result.Outcome)),
		zap.Uint("order_id", result.Order.ID),
	)
	metrics.RecordPingback(string(result.Outcome))

	if s.deduper != nil {
		if err := s.deduper.Remember(ctx, event.DedupKey()); err != nil {
			logger.Warn("Failed to remember pingback", zap.Error(err))
		}
	}
	if result.Outcome != OutcomeReplay {
		s.publish(ctx, event, result, logger)
	}
	if result.Outcome.IsPayment() && s.delivery != nil {
		if err := s.delivery.Confirm(ctx, result.Order, event.ReferenceID); err != nil {
			logger.Warn("Delivery confirmation failed", zap.Error(err))
		}
	}

	return Respond(result.Outcome, nil)
}

func (s *Service) publish(ctx context.Context, event *PaymentEvent, result *Result, logger *zap.Logger) {
	msg := events.OrderEvent{
		EventType:   "pingback." + string(result.Outcome),
		OrderID:     result.Order.ID,
		ReferenceID: event.ReferenceID,
		Outcome:     string(result.Outcome),
		OccurredAt:  time.Now().UTC(),
	}
	if result.Subscription != nil {
		msg.SubscriptionID = result.Subscription.ID
	}
	if err := s.publisher.Publish(ctx, msg); err != nil {
		logger.Warn("Failed to publish order event", zap.Error(err))
	}
}
