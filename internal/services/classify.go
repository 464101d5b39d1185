package services

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"unicode/utf8"

	"github.com/CyberwizD/Distributed-Notification-System/services/push_relay/internal/models"
)

const (
	// MaxExcerpt bounds upstream error text in logs and responses.
	MaxExcerpt = 300

	endpointIDLen = 16
)

// Classify maps one provider answer to a DeliveryOutcome. err takes
// precedence over res: an error means no usable upstream status.
func Classify(res *models.PushResult, err error) models.DeliveryOutcome {
	if err != nil {
		return models.DeliveryOutcome{
			Kind:    models.OutcomeTransientFailure,
			Message: Truncate(err.Error(), MaxExcerpt),
		}
	}
	if res == nil {
		return models.DeliveryOutcome{
			Kind:    models.OutcomeTransientFailure,
			Message: "push provider returned no result",
		}
	}

	code := res.StatusCode
	if code >= 200 && code < 300 {
		return models.DeliveryOutcome{Kind: models.OutcomeDelivered, HTTPStatus: code}
	}

	msg := Truncate(res.Body, MaxExcerpt)
	if msg == "" {
		msg = http.StatusText(code)
	}
	if isSubscriptionFatal(code) {
		return models.DeliveryOutcome{Kind: models.OutcomeKnownFailure, HTTPStatus: code, Message: msg}
	}
	return models.DeliveryOutcome{Kind: models.OutcomeTransientFailure, HTTPStatus: code, Message: msg}
}

// isSubscriptionFatal reports statuses meaning the subscription is gone or
// the relay is not allowed to use it.
func isSubscriptionFatal(code int) bool {
	switch code {
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound, http.StatusGone:
		return true
	default:
		return false
	}
}

// EndpointID returns a short, non-reversible identifier for a push endpoint
// that is safe to log.
func EndpointID(endpoint string) string {
	sum := sha256.Sum256([]byte(endpoint))
	return hex.EncodeToString(sum[:])[:endpointIDLen]
}

// Truncate shortens s to at most max bytes without splitting a rune.
func Truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
