package handler

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/yourorg/jobboard/internal/event"
)

const userCreatedBody = `{
	"type": "user.created",
	"data": {
		"id": "user_1",
		"first_name": "Ada",
		"last_name": "Lovelace",
		"primary_email_address_id": "em_1",
		"email_addresses": [{"id": "em_1", "email_address": "ada@example.com"}],
		"created_at": 1700000000000,
		"updated_at": 1700000000000
	}
}`

type fakeQueue struct {
	enqueued []*event.Event
	err      error
}

func (q *fakeQueue) Enqueue(_ context.Context, evt *event.Event) error {
	if q.err != nil {
		return q.err
	}
	q.enqueued = append(q.enqueued, evt)
	return nil
}

type fakeDispatcher struct {
	dispatched []*event.Event
	err        error
}

func (d *fakeDispatcher) Dispatch(_ context.Context, evt *event.Event) error {
	if d.err != nil {
		return d.err
	}
	d.dispatched = append(d.dispatched, evt)
	return nil
}

func sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func postWebhook(h http.Handler, body []byte, signature string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/webhooks/identity", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if signature != "" {
		req.Header.Set(SignatureHeader, signature)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestWebhookQueuesValidEvent(t *testing.T) {
	queue := &fakeQueue{}
	h := NewWebhookHandler(queue, &fakeDispatcher{}, "secret", false, nil)

	body := []byte(userCreatedBody)
	rec := postWebhook(h, body, sign("secret", body))

	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(queue.enqueued) != 1 {
		t.Fatalf("expected 1 enqueued event, got %d", len(queue.enqueued))
	}
	if queue.enqueued[0].Type != event.TypeUserCreated {
		t.Fatalf("expected user.created, got %s", queue.enqueued[0].Type)
	}

	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if resp["status"] != "queued" || resp["deliveryId"] == "" {
		t.Fatalf("unexpected response: %v", resp)
	}
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	queue := &fakeQueue{}
	dispatcher := &fakeDispatcher{}
	h := NewWebhookHandler(queue, dispatcher, "secret", false, nil)

	rec := postWebhook(h, []byte(userCreatedBody), sign("wrong-secret", []byte(userCreatedBody)))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if len(queue.enqueued) != 0 || len(dispatcher.dispatched) != 0 {
		t.Fatal("rejected delivery must not reach the pipeline")
	}
}

func TestWebhookRejectsMissingSignature(t *testing.T) {
	h := NewWebhookHandler(&fakeQueue{}, &fakeDispatcher{}, "secret", false, nil)

	rec := postWebhook(h, []byte(userCreatedBody), "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestWebhookUnsignedModeAcceptsAnyBody(t *testing.T) {
	queue := &fakeQueue{}
	h := NewWebhookHandler(queue, &fakeDispatcher{}, "", false, nil)

	rec := postWebhook(h, []byte(userCreatedBody), "")
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202 in unsigned mode, got %d", rec.Code)
	}
}

func TestWebhookRejectsInvalidPayload(t *testing.T) {
	queue := &fakeQueue{}
	dispatcher := &fakeDispatcher{}
	h := NewWebhookHandler(queue, dispatcher, "secret", false, nil)

	// user.created with no email addresses is permanently invalid
	body := []byte(`{"type":"user.created","data":{"id":"user_1","email_addresses":[]}}`)
	rec := postWebhook(h, body, sign("secret", body))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(queue.enqueued) != 0 || len(dispatcher.dispatched) != 0 {
		t.Fatal("invalid payload must cause zero writes")
	}
}

func TestWebhookInlineDispatch(t *testing.T) {
	dispatcher := &fakeDispatcher{}
	h := NewWebhookHandler(&fakeQueue{}, dispatcher, "secret", true, nil)

	body := []byte(userCreatedBody)
	rec := postWebhook(h, body, sign("secret", body))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(dispatcher.dispatched) != 1 {
		t.Fatalf("expected 1 dispatched event, got %d", len(dispatcher.dispatched))
	}
}

func TestWebhookInlineValidationFailure(t *testing.T) {
	dispatcher := &fakeDispatcher{err: &event.ValidationError{Field: "type", Reason: "is unknown"}}
	h := NewWebhookHandler(&fakeQueue{}, dispatcher, "secret", true, nil)

	body := []byte(userCreatedBody)
	rec := postWebhook(h, body, sign("secret", body))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for permanent failure, got %d", rec.Code)
	}
}

func TestWebhookInlineTransientFailure(t *testing.T) {
	dispatcher := &fakeDispatcher{err: errors.New("db down")}
	h := NewWebhookHandler(&fakeQueue{}, dispatcher, "secret", true, nil)

	body := []byte(userCreatedBody)
	rec := postWebhook(h, body, sign("secret", body))

	// 5xx keeps the provider redelivering
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 for transient failure, got %d", rec.Code)
	}
}

func TestWebhookEnqueueFailureFallsBackInline(t *testing.T) {
	queue := &fakeQueue{err: errors.New("redis down")}
	dispatcher := &fakeDispatcher{}
	h := NewWebhookHandler(queue, dispatcher, "secret", false, nil)

	body := []byte(userCreatedBody)
	rec := postWebhook(h, body, sign("secret", body))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 via inline fallback, got %d", rec.Code)
	}
	if len(dispatcher.dispatched) != 1 {
		t.Fatalf("expected inline dispatch on enqueue failure, got %d", len(dispatcher.dispatched))
	}
}

func TestWebhookMethodNotAllowed(t *testing.T) {
	h := NewWebhookHandler(&fakeQueue{}, &fakeDispatcher{}, "secret", false, nil)

	req := httptest.NewRequest(http.MethodGet, "/webhooks/identity", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}
