package billing

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/playblyza/blyza/internal/auth"
)

// CheckoutHandler starts the premium upgrade flow.
type CheckoutHandler struct {
	client *Client
	logger *slog.Logger
}

func NewCheckoutHandler(client *Client, logger *slog.Logger) *CheckoutHandler {
	return &CheckoutHandler{client: client, logger: logger}
}

// CreateCheckoutSession creates a Stripe checkout session for the
// authenticated account and returns the URL to redirect to.
func (h *CheckoutHandler) CreateCheckoutSession(w http.ResponseWriter, r *http.Request) {
	accountID := auth.UserID(r.Context())
	if accountID == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	url, err := h.client.CreateCheckoutSession(accountID)
	if err != nil {
		h.logger.Error("create checkout session", "account_id", accountID, "error", err)
		http.Error(w, "failed to create checkout session", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"url": url})
}
