package handler

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/yourorg/jobboard/internal/event"
	"github.com/yourorg/jobboard/internal/observability/metrics"
)

// SignatureHeader carries the hex HMAC-SHA256 of the raw request body
const SignatureHeader = "X-Webhook-Signature"

// Enqueuer hands a validated event to the async processing pipeline
type Enqueuer interface {
	Enqueue(ctx context.Context, evt *event.Event) error
}

// Dispatcher runs the reconciliation workflow synchronously
type Dispatcher interface {
	Dispatch(ctx context.Context, evt *event.Event) error
}

// WebhookHandler receives identity-provider lifecycle events.
// Validation failures are permanent and answered 400 so the provider
// stops redelivering; transient failures are answered 5xx so it
// retries.
type WebhookHandler struct {
	queue      Enqueuer
	dispatcher Dispatcher
	secret     string
	inline     bool
	logger     *slog.Logger
}

// NewWebhookHandler creates a new webhook handler. With inline set,
// events are reconciled in the request instead of queued.
func NewWebhookHandler(queue Enqueuer, dispatcher Dispatcher, secret string, inline bool, logger *slog.Logger) *WebhookHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &WebhookHandler{
		queue:      queue,
		dispatcher: dispatcher,
		secret:     secret,
		inline:     inline,
		logger:     logger,
	}
}

// ServeHTTP handles POST /webhooks/identity
func (h *WebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}

	if !h.verifySignature(body, r.Header.Get(SignatureHeader)) {
		h.logger.Warn("webhook signature rejected")
		metrics.ObserveWebhookEvent("unknown", "unauthorized")
		http.Error(w, `{"error":"invalid signature"}`, http.StatusUnauthorized)
		return
	}

	evt, err := event.Parse(body)
	if err != nil {
		// Permanent: the payload will not change on redelivery
		h.logger.Error("webhook payload rejected", slog.String("error", err.Error()))
		metrics.ObserveWebhookEvent("unknown", "rejected")
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	if h.inline || h.queue == nil {
		h.dispatchInline(w, r, evt)
		return
	}

	if err := h.queue.Enqueue(r.Context(), evt); err != nil {
		h.logger.Error("failed to enqueue event",
			slog.String("delivery_id", evt.DeliveryID),
			slog.String("error", err.Error()),
		)
		// Fall back to inline processing rather than losing the event
		h.dispatchInline(w, r, evt)
		return
	}

	metrics.ObserveWebhookEvent(string(evt.Type), "queued")
	writeJSON(w, http.StatusAccepted, map[string]string{
		"deliveryId": evt.DeliveryID,
		"status":     "queued",
	})
}

func (h *WebhookHandler) dispatchInline(w http.ResponseWriter, r *http.Request, evt *event.Event) {
	if err := h.dispatcher.Dispatch(r.Context(), evt); err != nil {
		if event.IsValidation(err) {
			metrics.ObserveWebhookEvent(string(evt.Type), "rejected")
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		h.logger.Error("failed to process event",
			slog.String("delivery_id", evt.DeliveryID),
			slog.String("error", err.Error()),
		)
		metrics.ObserveWebhookEvent(string(evt.Type), "failed")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "event processing failed"})
		return
	}

	metrics.ObserveWebhookEvent(string(evt.Type), "processed")
	writeJSON(w, http.StatusOK, map[string]string{
		"deliveryId": evt.DeliveryID,
		"status":     "processed",
	})
}

func (h *WebhookHandler) verifySignature(body []byte, header string) bool {
	if h.secret == "" {
		// Unsigned mode for local development only
		return true
	}
	if header == "" {
		return false
	}

	mac := hmac.New(sha256.New, []byte(h.secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(header))
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
