package billing

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"
	"time"

	stripe "github.com/stripe/stripe-go/v82"

	"github.com/playblyza/blyza/internal/database"
	"github.com/playblyza/blyza/internal/store"
)

const testWebhookSecret = "whsec_test"

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func setupWebhook(t *testing.T) (*WebhookHandler, *store.AccountStore) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	accounts := store.NewAccountStore(db, testLogger())
	client := NewClient(Config{WebhookSecret: testWebhookSecret})
	return NewWebhookHandler(client, accounts, nil, nil, testLogger()), accounts
}

// signPayload builds a Stripe-Signature header the webhook verifier accepts.
func signPayload(payload []byte, secret string) string {
	ts := time.Now().Unix()
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.%s", ts, payload)
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

func checkoutCompletedEvent(uid string) []byte {
	meta := ""
	if uid != "" {
		meta = fmt.Sprintf(`"metadata": {"uid": %q},`, uid)
	}
	return []byte(fmt.Sprintf(`{
		"id": "evt_1",
		"api_version": %q,
		"type": "checkout.session.completed",
		"data": {
			"object": {
				"id": "cs_test_1",
				%s
				"payment_status": "paid"
			}
		}
	}`, stripe.APIVersion, meta))
}

func postWebhook(t *testing.T, h *WebhookHandler, payload []byte, sig string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("POST", "/webhooks/stripe", bytes.NewReader(payload))
	req.Header.Set("Stripe-Signature", sig)
	rec := httptest.NewRecorder()
	h.HandleStripeWebhook(rec, req)
	return rec
}

func TestWebhookActivatesPremium(t *testing.T) {
	h, accounts := setupWebhook(t)
	ctx := context.Background()

	if err := accounts.EnsureAccount(ctx, "u1"); err != nil {
		t.Fatalf("ensure account: %v", err)
	}

	payload := checkoutCompletedEvent("u1")
	rec := postWebhook(t, h, payload, signPayload(payload, testWebhookSecret))
	if rec.Code != 200 {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	a, err := accounts.GetByID(ctx, "u1")
	if err != nil {
		t.Fatalf("get account: %v", err)
	}
	if a == nil || !a.Premium {
		t.Error("expected account to be premium after webhook")
	}
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	h, _ := setupWebhook(t)

	payload := checkoutCompletedEvent("u1")
	rec := postWebhook(t, h, payload, signPayload(payload, "whsec_wrong"))
	if rec.Code != 400 {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestWebhookMissingUIDStillAcknowledged(t *testing.T) {
	h, _ := setupWebhook(t)

	payload := checkoutCompletedEvent("")
	rec := postWebhook(t, h, payload, signPayload(payload, testWebhookSecret))
	if rec.Code != 200 {
		t.Errorf("status = %d, want 200 even without uid metadata", rec.Code)
	}
}

func TestWebhookReplayIsIdempotent(t *testing.T) {
	h, accounts := setupWebhook(t)
	ctx := context.Background()

	payload := checkoutCompletedEvent("u1")
	sig := signPayload(payload, testWebhookSecret)

	for i := 0; i < 2; i++ {
		rec := postWebhook(t, h, payload, sig)
		if rec.Code != 200 {
			t.Fatalf("delivery %d status = %d, want 200", i+1, rec.Code)
		}
	}

	a, err := accounts.GetByID(ctx, "u1")
	if err != nil {
		t.Fatalf("get account: %v", err)
	}
	if a == nil || !a.Premium {
		t.Error("expected premium after replayed webhook")
	}
}

func TestWebhookIgnoresOtherEvents(t *testing.T) {
	h, _ := setupWebhook(t)

	payload := []byte(fmt.Sprintf(`{"id": "evt_2", "api_version": %q, "type": "invoice.paid", "data": {"object": {}}}`, stripe.APIVersion))
	rec := postWebhook(t, h, payload, signPayload(payload, testWebhookSecret))
	if rec.Code != 200 {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}
