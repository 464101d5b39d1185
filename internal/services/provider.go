package services

import (
	"context"

	"github.com/CyberwizD/Distributed-Notification-System/services/push_relay/internal/models"
)

// PushMessage is everything a provider needs for one delivery attempt.
type PushMessage struct {
	Subscription   models.Subscription
	Payload        []byte
	Options        models.DeliveryOptions
	Vapid          models.VapidIdentity
	IdempotencyKey string
}

// PushProvider performs exactly one upstream push call. A non-nil error means
// no upstream status was obtained (local failure, network error, timeout).
type PushProvider interface {
	Name() string
	Send(ctx context.Context, msg *PushMessage) (*models.PushResult, error)
}
