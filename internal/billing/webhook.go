package billing

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	stripe "github.com/stripe/stripe-go/v82"

	"github.com/playblyza/blyza/internal/push"
	"github.com/playblyza/blyza/internal/store"
	"github.com/playblyza/blyza/internal/websocket"
)

// WebhookHandler processes Stripe events. The only event that matters is
// checkout.session.completed, which flips the paying account to premium.
type WebhookHandler struct {
	client   *Client
	accounts *store.AccountStore
	hub      *websocket.Hub
	notifier *push.Service
	logger   *slog.Logger
}

func NewWebhookHandler(client *Client, accounts *store.AccountStore, hub *websocket.Hub, notifier *push.Service, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{
		client:   client,
		accounts: accounts,
		hub:      hub,
		notifier: notifier,
		logger:   logger,
	}
}

// HandleStripeWebhook verifies the event signature and dispatches it.
// Processing failures after a valid signature still return 200: Stripe
// retries non-2xx responses, and replaying a premium grant is harmless
// because the upgrade is idempotent.
func (h *WebhookHandler) HandleStripeWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 65536))
	if err != nil {
		http.Error(w, "read body", http.StatusBadRequest)
		return
	}

	event, err := h.client.ConstructWebhookEvent(body, r.Header.Get("Stripe-Signature"))
	if err != nil {
		h.logger.Warn("webhook signature rejected", "error", err)
		http.Error(w, "invalid signature", http.StatusBadRequest)
		return
	}

	if event.Type == "checkout.session.completed" {
		h.handleCheckoutCompleted(r, event)
	}

	w.WriteHeader(http.StatusOK)
}

func (h *WebhookHandler) handleCheckoutCompleted(r *http.Request, event stripe.Event) {
	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		h.logger.Error("unmarshal checkout session", "error", err)
		return
	}

	uid := sess.Metadata["uid"]
	if uid == "" {
		h.logger.Warn("checkout session missing uid metadata", "session", sess.ID)
		return
	}

	upgraded, err := h.accounts.SetPremium(r.Context(), uid)
	if err != nil {
		h.logger.Error("set premium", "account_id", uid, "error", err)
		return
	}
	if !upgraded {
		// Stripe retried an event we already processed.
		h.logger.Info("premium already active", "account_id", uid)
		return
	}

	h.logger.Info("premium activated", "account_id", uid, "session", sess.ID)

	if h.hub != nil {
		h.hub.SendToUser(uid, websocket.NewMessage("premium", "activated", uid, nil))
	}
	if h.notifier != nil {
		h.notifier.NotifyPremiumActivated(r.Context(), uid)
	}
}
