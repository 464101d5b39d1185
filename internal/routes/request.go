package routes

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/CyberwizD/Distributed-Notification-System/services/push_relay/internal/models"
)

var (
	ErrInvalidJSON    = errors.New("invalid_json")
	ErrInvalidRequest = errors.New("invalid_request")
)

type rawRequest struct {
	Subscription json.RawMessage `json:"subscription"`
	Payload      json.RawMessage `json:"payload"`
	Options      json.RawMessage `json:"options"`
}

type rawOptions struct {
	TTL             *float64 `json:"ttl"`
	Urgency         *string  `json:"urgency"`
	ContentEncoding *string  `json:"contentEncoding"`
}

// ParseDeliveryRequest decodes and validates a POST /send body. Errors wrap
// ErrInvalidJSON or ErrInvalidRequest.
func ParseDeliveryRequest(body []byte) (*models.DeliveryRequest, error) {
	if !isJSONObject(body) {
		if !json.Valid(body) {
			return nil, ErrInvalidJSON
		}
		return nil, fmt.Errorf("%w: body must be a JSON object", ErrInvalidJSON)
	}

	var raw rawRequest
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, ErrInvalidJSON
	}

	if !isJSONObject(raw.Subscription) {
		return nil, fmt.Errorf("%w: subscription must be an object", ErrInvalidRequest)
	}
	if !isJSONObject(raw.Payload) {
		return nil, fmt.Errorf("%w: payload must be an object", ErrInvalidRequest)
	}

	req := &models.DeliveryRequest{Payload: raw.Payload}
	if err := json.Unmarshal(raw.Subscription, &req.Subscription); err != nil {
		return nil, fmt.Errorf("%w: subscription is malformed", ErrInvalidRequest)
	}
	if req.Subscription.Endpoint == "" {
		return nil, fmt.Errorf("%w: subscription.endpoint is required", ErrInvalidRequest)
	}

	opts, err := parseOptions(raw.Options)
	if err != nil {
		return nil, err
	}
	req.Options = opts
	return req, nil
}

func parseOptions(data json.RawMessage) (models.DeliveryOptions, error) {
	var out models.DeliveryOptions
	if len(data) == 0 || bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return out, nil
	}
	if !isJSONObject(data) {
		return out, fmt.Errorf("%w: options must be an object", ErrInvalidRequest)
	}

	var raw rawOptions
	if err := json.Unmarshal(data, &raw); err != nil {
		return out, fmt.Errorf("%w: options are malformed", ErrInvalidRequest)
	}

	if raw.TTL != nil {
		ttl := *raw.TTL
		if ttl < 0 || ttl != math.Trunc(ttl) || ttl > math.MaxInt32 {
			return out, fmt.Errorf("%w: options.ttl must be a non-negative integer", ErrInvalidRequest)
		}
		v := int(ttl)
		out.TTL = &v
	}
	if raw.Urgency != nil {
		u := models.Urgency(*raw.Urgency)
		if !u.Valid() {
			return out, fmt.Errorf("%w: options.urgency must be one of very-low, low, normal, high", ErrInvalidRequest)
		}
		out.Urgency = &u
	}
	if raw.ContentEncoding != nil {
		enc := *raw.ContentEncoding
		if enc != models.ContentEncodingAES128GCM {
			return out, fmt.Errorf("%w: options.contentEncoding %q is not supported", ErrInvalidRequest, enc)
		}
		out.ContentEncoding = &enc
	}
	return out, nil
}

func isJSONObject(data []byte) bool {
	trimmed := bytes.TrimSpace(data)
	return len(trimmed) > 0 && trimmed[0] == '{'
}
