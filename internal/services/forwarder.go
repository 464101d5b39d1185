package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/CyberwizD/Distributed-Notification-System/services/push_relay/internal/models"
	"github.com/CyberwizD/Distributed-Notification-System/services/push_relay/pkg/metrics"
)

// Forwarder performs a single delivery attempt per request. It never retries:
// push services apply their own backoff and a local retry could duplicate a
// notification on the device.
type Forwarder struct {
	provider PushProvider
	vapid    models.VapidIdentity
	metrics  *metrics.Metrics
	logger   *slog.Logger
	now      func() time.Time
}

func NewForwarder(
	provider PushProvider,
	vapid models.VapidIdentity,
	metrics *metrics.Metrics,
	logger *slog.Logger,
) *Forwarder {
	return &Forwarder{
		provider: provider,
		vapid:    vapid,
		metrics:  metrics,
		logger:   logger,
		now:      time.Now,
	}
}

// Configured reports whether the forwarder holds a usable VAPID key pair.
func (f *Forwarder) Configured() bool {
	return f.vapid.Configured()
}

// Deliver validates preconditions, calls the provider once and classifies the
// answer. req must already have passed request validation.
func (f *Forwarder) Deliver(ctx context.Context, req *models.DeliveryRequest) models.DeliveryOutcome {
	endpointID := EndpointID(req.Subscription.Endpoint)
	log := f.logger.With(
		slog.String("endpoint_id", endpointID),
		slog.String("provider", f.provider.Name()),
	)

	if !f.vapid.Configured() {
		log.Error("delivery refused, vapid keys not configured")
		f.metrics.ObserveDelivery(models.OutcomeConfigurationFailure.String(), 0)
		return models.DeliveryOutcome{
			Kind:    models.OutcomeConfigurationFailure,
			Message: "vapid keys not configured",
		}
	}

	msg := &PushMessage{
		Subscription:   req.Subscription,
		Payload:        []byte(req.Payload),
		Options:        req.Options,
		Vapid:          f.vapid,
		IdempotencyKey: req.IdempotencyKey,
	}

	started := f.now()
	res, err := f.provider.Send(ctx, msg)
	took := f.now().Sub(started)

	outcome := Classify(res, err)
	f.metrics.ObserveDelivery(outcome.Kind.String(), took)

	attrs := []any{
		slog.String("outcome", outcome.Kind.String()),
		slog.Duration("took", took),
	}
	if outcome.HTTPStatus != 0 {
		attrs = append(attrs, slog.Int("upstream_status", outcome.HTTPStatus))
	}

	switch outcome.Kind {
	case models.OutcomeDelivered:
		log.Info("push delivered", attrs...)
	case models.OutcomeKnownFailure:
		log.Warn("push rejected, subscription no longer valid", append(attrs, slog.String("detail", outcome.Message))...)
	default:
		log.Warn("push failed", append(attrs, slog.String("detail", outcome.Message))...)
	}
	return outcome
}
