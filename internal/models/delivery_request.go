package models

import "encoding/json"

// DeliveryRequest is the body accepted on POST /send.
type DeliveryRequest struct {
	Subscription Subscription    `json:"subscription"`
	Payload      json.RawMessage `json:"payload"`
	Options      DeliveryOptions `json:"options"`

	// IdempotencyKey comes from the X-Idempotency-Key request header.
	IdempotencyKey string `json:"-"`
}

// Subscription is a browser PushSubscription as serialized by PushSubscription.toJSON().
type Subscription struct {
	Endpoint string           `json:"endpoint"`
	Keys     SubscriptionKeys `json:"keys"`
}

type SubscriptionKeys struct {
	P256dh string `json:"p256dh"`
	Auth   string `json:"auth"`
}

// DeliveryOptions holds the optional push protocol settings. A nil field was
// absent from the request and must not be forwarded.
type DeliveryOptions struct {
	TTL             *int     `json:"ttl,omitempty"`
	Urgency         *Urgency `json:"urgency,omitempty"`
	ContentEncoding *string  `json:"contentEncoding,omitempty"`
}

// Urgency is the RFC 8030 Urgency header value.
type Urgency string

const (
	UrgencyVeryLow Urgency = "very-low"
	UrgencyLow     Urgency = "low"
	UrgencyNormal  Urgency = "normal"
	UrgencyHigh    Urgency = "high"
)

// Valid reports whether u is one of the four RFC 8030 levels.
func (u Urgency) Valid() bool {
	switch u {
	case UrgencyVeryLow, UrgencyLow, UrgencyNormal, UrgencyHigh:
		return true
	default:
		return false
	}
}

// ContentEncodingAES128GCM is the RFC 8188 encoding mandated by RFC 8291.
const ContentEncodingAES128GCM = "aes128gcm"

// VapidIdentity is the application server identity used to sign pushes.
type VapidIdentity struct {
	PublicKey  string
	PrivateKey string
	Subject    string
}

// Configured reports whether both halves of the key pair are present.
func (v VapidIdentity) Configured() bool {
	return v.PublicKey != "" && v.PrivateKey != ""
}
