package handler

import (
	"log/slog"
	"net/http"

	"github.com/playblyza/blyza/internal/auth"
	"github.com/playblyza/blyza/internal/model"
	"github.com/playblyza/blyza/internal/store"
	"github.com/playblyza/blyza/internal/websocket"
)

// ShopHandler serves the store catalog and redemption endpoints.
type ShopHandler struct {
	shop   *store.ShopStore
	hub    *websocket.Hub
	logger *slog.Logger
}

func NewShopHandler(ss *store.ShopStore, hub *websocket.Hub, logger *slog.Logger) *ShopHandler {
	return &ShopHandler{shop: ss, hub: hub, logger: logger}
}

// ListItems returns the active store catalog.
func (h *ShopHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.shop.ListItems(r.Context(), false)
	if err != nil {
		h.logger.Error("list store items", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list items"})
		return
	}
	if items == nil {
		items = []model.StoreItem{}
	}
	writeJSON(w, http.StatusOK, items)
}

// Redeem attempts to purchase an item with the caller's Blyza Bucks. The
// body always carries a discriminated result; clients branch on its
// status field rather than the HTTP code, which is 200 for every business
// outcome and 500 only for infrastructure failure.
func (h *ShopHandler) Redeem(w http.ResponseWriter, r *http.Request) {
	accountID := auth.UserID(r.Context())
	itemID := r.PathValue("id")

	result := h.shop.Redeem(r.Context(), accountID, itemID)
	if result.Status == store.RedeemError {
		writeJSON(w, http.StatusInternalServerError, result)
		return
	}

	if result.Status == store.RedeemOK {
		h.hub.SendToUser(accountID, websocket.NewMessage("wallet", "updated", accountID,
			map[string]any{"balance": result.NewBalance}))
		h.hub.SendToUser(accountID, websocket.NewMessage("purchase", "created", itemID, nil))
	}

	writeJSON(w, http.StatusOK, result)
}

// GetContent returns an item's secret payload, gated on an unlocked receipt.
func (h *ShopHandler) GetContent(w http.ResponseWriter, r *http.Request) {
	accountID := auth.UserID(r.Context())
	itemID := r.PathValue("id")

	link, err := h.shop.GetUnlockedContent(r.Context(), accountID, itemID)
	if err != nil {
		h.logger.Error("get unlocked content", "account_id", accountID, "item_id", itemID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to load content"})
		return
	}
	if link == "" {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "item is locked"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"link": link})
}

// ListPurchases returns the caller's receipts, newest first.
func (h *ShopHandler) ListPurchases(w http.ResponseWriter, r *http.Request) {
	accountID := auth.UserID(r.Context())

	purchases, err := h.shop.ListPurchases(r.Context(), accountID)
	if err != nil {
		h.logger.Error("list purchases", "account_id", accountID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list purchases"})
		return
	}
	if purchases == nil {
		purchases = []model.Purchase{}
	}
	writeJSON(w, http.StatusOK, purchases)
}
