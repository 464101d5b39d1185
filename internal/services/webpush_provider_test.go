package services

import (
	"context"
	"crypto/ecdh"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	webpush "github.com/SherClockHolmes/webpush-go"

	"github.com/CyberwizD/Distributed-Notification-System/services/push_relay/internal/models"
	"github.com/CyberwizD/Distributed-Notification-System/services/push_relay/pkg/logger"
)

type capturedPush struct {
	mu      sync.Mutex
	headers http.Header
}

func (c *capturedPush) set(h http.Header) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.headers = h.Clone()
}

func (c *capturedPush) get() http.Header {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.headers
}

func newPushServer(t *testing.T, status int, body string) (*httptest.Server, *capturedPush) {
	t.Helper()
	captured := &capturedPush{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured.set(r.Header)
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, captured
}

func newTestVapid(t *testing.T) models.VapidIdentity {
	t.Helper()
	priv, pub, err := webpush.GenerateVAPIDKeys()
	if err != nil {
		t.Fatalf("generate vapid keys: %v", err)
	}
	return models.VapidIdentity{PublicKey: pub, PrivateKey: priv, Subject: "mailto:ops@example.com"}
}

func newTestSubscription(t *testing.T, endpoint string) models.Subscription {
	t.Helper()
	key, err := ecdh.P256().GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate subscription key: %v", err)
	}
	auth := make([]byte, 16)
	if _, err := rand.Read(auth); err != nil {
		t.Fatalf("generate auth secret: %v", err)
	}
	return models.Subscription{
		Endpoint: endpoint,
		Keys: models.SubscriptionKeys{
			P256dh: base64.RawURLEncoding.EncodeToString(key.PublicKey().Bytes()),
			Auth:   base64.RawURLEncoding.EncodeToString(auth),
		},
	}
}

func TestWebPushProviderDefaults(t *testing.T) {
	srv, captured := newPushServer(t, http.StatusCreated, "")
	p := NewWebPushProviderWithClient(srv.Client(), logger.Discard())

	res, err := p.Send(context.Background(), &PushMessage{
		Subscription: newTestSubscription(t, srv.URL+"/push/abc"),
		Payload:      []byte(`{"title":"hi"}`),
		Vapid:        newTestVapid(t),
	})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", res.StatusCode)
	}

	h := captured.get()
	if got := h.Get("TTL"); got != "2419200" {
		t.Errorf("expected default TTL, got %q", got)
	}
	if got := h.Get("Urgency"); got != "" {
		t.Errorf("urgency must not be sent when absent, got %q", got)
	}
	if got := h.Get("Content-Encoding"); got != models.ContentEncodingAES128GCM {
		t.Errorf("expected aes128gcm, got %q", got)
	}
	if got := h.Get(IdempotencyHeader); got != "" {
		t.Errorf("idempotency header must not be sent when absent, got %q", got)
	}
	if !strings.HasPrefix(h.Get("Authorization"), "vapid ") {
		t.Errorf("expected vapid authorization, got %q", h.Get("Authorization"))
	}
}

func TestWebPushProviderForwardsOptions(t *testing.T) {
	srv, captured := newPushServer(t, http.StatusCreated, "")
	p := NewWebPushProviderWithClient(srv.Client(), logger.Discard())

	ttl := 120
	urgency := models.UrgencyLow
	_, err := p.Send(context.Background(), &PushMessage{
		Subscription:   newTestSubscription(t, srv.URL+"/push/abc"),
		Payload:        []byte(`{"title":"hi"}`),
		Options:        models.DeliveryOptions{TTL: &ttl, Urgency: &urgency},
		Vapid:          newTestVapid(t),
		IdempotencyKey: "idem-42",
	})
	if err != nil {
		t.Fatalf("send: %v", err)
	}

	h := captured.get()
	if got := h.Get("TTL"); got != "120" {
		t.Errorf("expected TTL 120, got %q", got)
	}
	if got := h.Get("Urgency"); got != "low" {
		t.Errorf("expected urgency low, got %q", got)
	}
	if got := h.Get(IdempotencyHeader); got != "idem-42" {
		t.Errorf("expected idempotency key forwarded, got %q", got)
	}
}

func TestWebPushProviderReturnsUpstreamStatus(t *testing.T) {
	srv, _ := newPushServer(t, http.StatusGone, "subscription expired")
	p := NewWebPushProviderWithClient(srv.Client(), logger.Discard())

	res, err := p.Send(context.Background(), &PushMessage{
		Subscription: newTestSubscription(t, srv.URL+"/push/abc"),
		Payload:      []byte(`{}`),
		Vapid:        newTestVapid(t),
	})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if res.StatusCode != http.StatusGone || res.Body != "subscription expired" {
		t.Fatalf("unexpected result %+v", res)
	}
	if Classify(res, nil).Kind != models.OutcomeKnownFailure {
		t.Fatal("expected 410 to classify as a known failure")
	}
}

func TestWebPushProviderTimeoutIsTransientAndHidesEndpoint(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(release) })

	client := srv.Client()
	client.Timeout = 50 * time.Millisecond
	p := NewWebPushProviderWithClient(client, logger.Discard())

	endpoint := srv.URL + "/push/secret-device-id"
	res, err := p.Send(context.Background(), &PushMessage{
		Subscription: newTestSubscription(t, endpoint),
		Payload:      []byte(`{}`),
		Vapid:        newTestVapid(t),
	})
	if err == nil {
		t.Fatalf("expected timeout error, got result %+v", res)
	}
	if strings.Contains(err.Error(), "secret-device-id") {
		t.Fatalf("error leaks the endpoint: %v", err)
	}
	if Classify(res, err).Kind != models.OutcomeTransientFailure {
		t.Fatal("expected timeout to classify as transient")
	}
}

func TestWebPushProviderRejectsUnsupportedEncoding(t *testing.T) {
	p := NewWebPushProvider(time.Second, logger.Discard())
	enc := "aesgcm"
	_, err := p.Send(context.Background(), &PushMessage{
		Subscription: models.Subscription{Endpoint: "https://push.example/abc"},
		Payload:      []byte(`{}`),
		Options:      models.DeliveryOptions{ContentEncoding: &enc},
		Vapid:        newTestVapid(t),
	})
	if err == nil {
		t.Fatal("expected unsupported encoding error")
	}
}

// vapidClaims decodes the JWT carried in an "Authorization: vapid t=..., k=..." header.
func vapidClaims(t *testing.T, header string) map[string]any {
	t.Helper()
	params, ok := strings.CutPrefix(header, "vapid ")
	if !ok {
		t.Fatalf("expected vapid authorization, got %q", header)
	}
	var token string
	for _, part := range strings.Split(params, ",") {
		if v, found := strings.CutPrefix(strings.TrimSpace(part), "t="); found {
			token = v
		}
	}
	segments := strings.Split(token, ".")
	if len(segments) != 3 {
		t.Fatalf("expected a three part jwt, got %q", token)
	}
	raw, err := base64.RawURLEncoding.DecodeString(segments[1])
	if err != nil {
		t.Fatalf("decode jwt payload: %v", err)
	}
	claims := map[string]any{}
	if err := json.Unmarshal(raw, &claims); err != nil {
		t.Fatalf("parse jwt payload: %v", err)
	}
	return claims
}

func TestWebPushProviderVapidClaims(t *testing.T) {
	cases := []struct {
		subject string
		want    string
	}{
		{"mailto:ops@example.com", "mailto:ops@example.com"},
		{"MAILTO:ops@example.com", "mailto:ops@example.com"},
		{"https://example.com/ops", "https://example.com/ops"},
	}
	for _, tc := range cases {
		t.Run(tc.subject, func(t *testing.T) {
			srv, captured := newPushServer(t, http.StatusCreated, "")
			p := NewWebPushProviderWithClient(srv.Client(), logger.Discard())

			vapid := newTestVapid(t)
			vapid.Subject = tc.subject
			if _, err := p.Send(context.Background(), &PushMessage{
				Subscription: newTestSubscription(t, srv.URL+"/push/abc"),
				Payload:      []byte(`{}`),
				Vapid:        vapid,
			}); err != nil {
				t.Fatalf("send: %v", err)
			}

			claims := vapidClaims(t, captured.get().Get("Authorization"))
			if got := claims["sub"]; got != tc.want {
				t.Errorf("expected sub %q, got %v", tc.want, got)
			}
			if got := claims["aud"]; got != srv.URL {
				t.Errorf("expected aud %q, got %v", srv.URL, got)
			}
		})
	}
}

func TestSubscriberFor(t *testing.T) {
	cases := map[string]string{
		"mailto:ops@example.com":  "ops@example.com",
		"Mailto:ops@example.com":  "ops@example.com",
		"https://example.com/ops": "https://example.com/ops",
		"mail":                    "mail",
	}
	for in, want := range cases {
		if got := subscriberFor(in); got != want {
			t.Errorf("subscriberFor(%q) = %q, want %q", in, got, want)
		}
	}
}
