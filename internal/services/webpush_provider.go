package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	webpush "github.com/SherClockHolmes/webpush-go"

	"github.com/CyberwizD/Distributed-Notification-System/services/push_relay/internal/models"
)

const (
	// DefaultTTL matches the four week default of the reference web-push library.
	DefaultTTL = 4 * 7 * 24 * 60 * 60

	// IdempotencyHeader is forwarded upstream as-is. Push services are free
	// to ignore it.
	IdempotencyHeader = "X-Idempotency-Key"

	maxUpstreamBody = 4 << 10
)

// WebPushProvider sends notifications with the Web Push protocol (RFC 8030)
// using aes128gcm payload encryption and VAPID authentication.
type WebPushProvider struct {
	client webpush.HTTPClient
	logger *slog.Logger
}

func NewWebPushProvider(timeout time.Duration, logger *slog.Logger) *WebPushProvider {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return NewWebPushProviderWithClient(&http.Client{Timeout: timeout}, logger)
}

// NewWebPushProviderWithClient uses client for the outbound call. The client
// is responsible for bounding the call duration.
func NewWebPushProviderWithClient(client webpush.HTTPClient, logger *slog.Logger) *WebPushProvider {
	return &WebPushProvider{
		client: client,
		logger: logger,
	}
}

func (p *WebPushProvider) Name() string {
	return "webpush"
}

func (p *WebPushProvider) Send(ctx context.Context, msg *PushMessage) (*models.PushResult, error) {
	if msg.Subscription.Endpoint == "" {
		return nil, fmt.Errorf("webpush: subscription endpoint is empty")
	}
	if enc := msg.Options.ContentEncoding; enc != nil && *enc != models.ContentEncodingAES128GCM {
		return nil, fmt.Errorf("webpush: unsupported content encoding %q", *enc)
	}

	opts := &webpush.Options{
		HTTPClient:      p.clientFor(msg.IdempotencyKey),
		Subscriber:      subscriberFor(msg.Vapid.Subject),
		TTL:             DefaultTTL,
		VAPIDPublicKey:  msg.Vapid.PublicKey,
		VAPIDPrivateKey: msg.Vapid.PrivateKey,
	}
	if msg.Options.TTL != nil {
		opts.TTL = *msg.Options.TTL
	}
	if msg.Options.Urgency != nil {
		opts.Urgency = webpush.Urgency(*msg.Options.Urgency)
	}

	sub := &webpush.Subscription{
		Endpoint: msg.Subscription.Endpoint,
		Keys: webpush.Keys{
			P256dh: msg.Subscription.Keys.P256dh,
			Auth:   msg.Subscription.Keys.Auth,
		},
	}

	resp, err := webpush.SendNotificationWithContext(ctx, msg.Payload, sub, opts)
	if err != nil {
		// *url.Error embeds the raw endpoint in its message.
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			return nil, fmt.Errorf("webpush: %s request: %w", strings.ToLower(urlErr.Op), urlErr.Err)
		}
		return nil, fmt.Errorf("webpush: %w", err)
	}
	defer resp.Body.Close()

	body, readErr := io.ReadAll(io.LimitReader(resp.Body, maxUpstreamBody))
	if readErr != nil {
		p.logger.Debug("failed to read upstream body", slog.Any("error", readErr))
	}

	return &models.PushResult{
		StatusCode: resp.StatusCode,
		Body:       string(body),
	}, nil
}

// subscriberFor strips a mailto: scheme. webpush-go prefixes every subscriber
// that is not an https: URL with "mailto:" itself.
func subscriberFor(subject string) string {
	const scheme = "mailto:"
	if len(subject) >= len(scheme) && strings.EqualFold(subject[:len(scheme)], scheme) {
		return subject[len(scheme):]
	}
	return subject
}

func (p *WebPushProvider) clientFor(idempotencyKey string) webpush.HTTPClient {
	if idempotencyKey == "" {
		return p.client
	}
	return headerClient{next: p.client, key: IdempotencyHeader, value: idempotencyKey}
}

// headerClient adds one header to every outbound request.
type headerClient struct {
	next  webpush.HTTPClient
	key   string
	value string
}

func (c headerClient) Do(req *http.Request) (*http.Response, error) {
	req.Header.Set(c.key, c.value)
	return c.next.Do(req)
}
