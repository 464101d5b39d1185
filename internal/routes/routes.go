package routes

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/CyberwizD/Distributed-Notification-System/services/push_relay/internal/auth"
	"github.com/CyberwizD/Distributed-Notification-System/services/push_relay/internal/models"
	"github.com/CyberwizD/Distributed-Notification-System/services/push_relay/internal/services"
	"github.com/CyberwizD/Distributed-Notification-System/services/push_relay/pkg/metrics"
)

const (
	maxBodyBytes = 256 << 10

	requestIDHeader = "X-Request-Id"
)

// Dependencies are the collaborators of the HTTP surface. All of them are
// read-only after construction.
type Dependencies struct {
	Auth      *auth.Authenticator
	Forwarder *services.Forwarder
	Metrics   *metrics.Metrics
	Logger    *slog.Logger
}

// Response is the JSON body of every relay answer.
type Response struct {
	OK      bool   `json:"ok"`
	Status  int    `json:"status,omitempty"`
	Error   string `json:"error,omitempty"`
	Details string `json:"details,omitempty"`
}

type router struct {
	Dependencies
}

// NewRouter wires POST /send, the liveness probe and the metrics endpoint.
func NewRouter(deps Dependencies) http.Handler {
	rt := &router{Dependencies: deps}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /send", rt.handleSend)
	mux.HandleFunc("GET /healthz", rt.handleHealth)
	mux.Handle("GET /metrics", deps.Metrics.Handler())
	return rt.recoverer(mux)
}

func (rt *router) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, Response{OK: true})
}

func (rt *router) handleSend(w http.ResponseWriter, r *http.Request) {
	requestID := requestIDFrom(r)
	w.Header().Set(requestIDHeader, requestID)
	log := rt.Logger.With(slog.String("request_id", requestID))

	if !rt.Auth.Authorize(r.Header.Get("Authorization")) {
		rt.Metrics.IncRejected("unauthorized")
		log.Warn("delivery request unauthorized", slog.String("remote_addr", r.RemoteAddr))
		writeJSON(w, http.StatusUnauthorized, Response{Status: http.StatusUnauthorized, Error: "unauthorized"})
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			rt.Metrics.IncRejected("payload_too_large")
			writeJSON(w, http.StatusRequestEntityTooLarge, Response{Status: http.StatusRequestEntityTooLarge, Error: "payload_too_large"})
			return
		}
		rt.Metrics.IncRejected("invalid_json")
		writeJSON(w, http.StatusBadRequest, Response{Status: http.StatusBadRequest, Error: ErrInvalidJSON.Error()})
		return
	}

	req, err := ParseDeliveryRequest(body)
	if err != nil {
		code := ErrInvalidRequest.Error()
		if errors.Is(err, ErrInvalidJSON) {
			code = ErrInvalidJSON.Error()
		}
		rt.Metrics.IncRejected(code)
		log.Info("delivery request rejected", slog.String("reason", code), slog.Any("error", err))
		writeJSON(w, http.StatusBadRequest, Response{
			Status:  http.StatusBadRequest,
			Error:   code,
			Details: detailOf(err),
		})
		return
	}
	req.IdempotencyKey = strings.TrimSpace(r.Header.Get(services.IdempotencyHeader))

	outcome := rt.Forwarder.Deliver(r.Context(), req)
	status, resp := responseFor(outcome)
	writeJSON(w, status, resp)
}

// responseFor maps an outcome onto the transport status and body. Known
// subscription failures are a 200 so callers can tell a business failure
// from a broken relay.
func responseFor(outcome models.DeliveryOutcome) (int, Response) {
	switch outcome.Kind {
	case models.OutcomeDelivered:
		return http.StatusOK, Response{OK: true}
	case models.OutcomeKnownFailure:
		return http.StatusOK, Response{
			Status:  outcome.HTTPStatus,
			Error:   "subscription_invalid",
			Details: outcome.Message,
		}
	case models.OutcomeConfigurationFailure:
		return http.StatusInternalServerError, Response{
			Status:  http.StatusInternalServerError,
			Error:   "vapid_not_configured",
			Details: outcome.Message,
		}
	default:
		status := outcome.HTTPStatus
		if status == 0 {
			status = http.StatusBadGateway
		}
		return http.StatusBadGateway, Response{
			Status:  status,
			Error:   "push_failed",
			Details: outcome.Message,
		}
	}
}

func (rt *router) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tw := &trackingWriter{ResponseWriter: w}
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				rt.Logger.Error("handler panic",
					slog.Any("panic", rec),
					slog.String("path", r.URL.Path),
					slog.Bool("response_started", tw.wroteHeader),
				)
				// A started response cannot be replaced; the client sees a truncated body.
				if !tw.wroteHeader {
					writeJSON(w, http.StatusInternalServerError, Response{Status: http.StatusInternalServerError, Error: "internal_error"})
				}
			}
		}()
		next.ServeHTTP(tw, r)
	})
}

// trackingWriter records whether the status line has been sent.
type trackingWriter struct {
	http.ResponseWriter
	wroteHeader bool
}

func (w *trackingWriter) WriteHeader(status int) {
	w.wroteHeader = true
	w.ResponseWriter.WriteHeader(status)
}

func (w *trackingWriter) Write(b []byte) (int, error) {
	w.wroteHeader = true
	return w.ResponseWriter.Write(b)
}

func (w *trackingWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

func requestIDFrom(r *http.Request) string {
	if id := strings.TrimSpace(r.Header.Get(requestIDHeader)); id != "" && len(id) <= 128 {
		return id
	}
	return uuid.NewString()
}

// detailOf strips the sentinel prefix from a validation error.
func detailOf(err error) string {
	msg := err.Error()
	for _, sentinel := range []error{ErrInvalidRequest, ErrInvalidJSON} {
		prefix := sentinel.Error()
		if msg == prefix {
			return ""
		}
		if strings.HasPrefix(msg, prefix+": ") {
			return strings.TrimPrefix(msg, prefix+": ")
		}
	}
	return msg
}

func writeJSON(w http.ResponseWriter, status int, body Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
