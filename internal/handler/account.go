package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/playblyza/blyza/internal/auth"
	"github.com/playblyza/blyza/internal/model"
	"github.com/playblyza/blyza/internal/store"
	"github.com/playblyza/blyza/internal/websocket"
)

// AccountHandler serves the profile and wallet endpoints.
type AccountHandler struct {
	accounts *store.AccountStore
	hub      *websocket.Hub
	logger   *slog.Logger
}

func NewAccountHandler(as *store.AccountStore, hub *websocket.Hub, logger *slog.Logger) *AccountHandler {
	return &AccountHandler{accounts: as, hub: hub, logger: logger}
}

// GetProfile returns the caller's account, creating it on first sight.
func (h *AccountHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	accountID := auth.UserID(r.Context())

	if err := h.accounts.EnsureAccount(r.Context(), accountID); err != nil {
		h.logger.Error("ensure account", "account_id", accountID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to load profile"})
		return
	}

	account, err := h.accounts.GetByID(r.Context(), accountID)
	if err != nil || account == nil {
		h.logger.Error("get account", "account_id", accountID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to load profile"})
		return
	}

	writeJSON(w, http.StatusOK, account)
}

type profileRequest struct {
	ProfilePicture string `json:"profile_picture"`
}

// UpdateProfile updates the caller's profile picture.
func (h *AccountHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	accountID := auth.UserID(r.Context())

	var req profileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	account, err := h.accounts.UpdateProfile(r.Context(), accountID, req.ProfilePicture)
	if err != nil {
		h.logger.Error("update profile", "account_id", accountID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to update profile"})
		return
	}

	writeJSON(w, http.StatusOK, account)
}

type usernameRequest struct {
	Username string `json:"username"`
}

// ClaimUsername reserves a unique username for the caller.
func (h *AccountHandler) ClaimUsername(w http.ResponseWriter, r *http.Request) {
	accountID := auth.UserID(r.Context())

	var req usernameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	err := h.accounts.ClaimUsername(r.Context(), accountID, strings.TrimSpace(req.Username))
	switch {
	case errors.Is(err, store.ErrInvalidUsername):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	case errors.Is(err, store.ErrUsernameTaken):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
		return
	case err != nil:
		h.logger.Error("claim username", "account_id", accountID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to claim username"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"username": strings.TrimSpace(req.Username)})
}

// GetWallet returns the caller's balance and play counters.
func (h *AccountHandler) GetWallet(w http.ResponseWriter, r *http.Request) {
	accountID := auth.UserID(r.Context())

	account, err := h.accounts.GetByID(r.Context(), accountID)
	if err != nil {
		h.logger.Error("get wallet", "account_id", accountID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to load wallet"})
		return
	}

	// A wallet that was never written reads as empty, not missing
	resp := map[string]any{
		"balance":      0,
		"games_played": 0,
		"recent_games": []string{},
	}
	if account != nil {
		resp["balance"] = account.Balance
		resp["games_played"] = account.GamesPlayed
		resp["recent_games"] = account.RecentGames
	}
	writeJSON(w, http.StatusOK, resp)
}

type adjustRequest struct {
	Delta int `json:"delta"`
}

// AdjustBalance credits or debits the caller's wallet. Debits below zero
// clamp; the response carries the balance actually stored.
func (h *AccountHandler) AdjustBalance(w http.ResponseWriter, r *http.Request) {
	accountID := auth.UserID(r.Context())

	var req adjustRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	balance, err := h.accounts.AdjustBalance(r.Context(), accountID, req.Delta)
	if err != nil {
		h.logger.Error("adjust balance", "account_id", accountID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to adjust balance"})
		return
	}

	h.hub.SendToUser(accountID, websocket.NewMessage("wallet", "updated", accountID,
		map[string]any{"balance": balance}))

	writeJSON(w, http.StatusOK, map[string]int{"balance": balance})
}

// SearchUsers finds accounts by username prefix, excluding the caller.
func (h *AccountHandler) SearchUsers(w http.ResponseWriter, r *http.Request) {
	accountID := auth.UserID(r.Context())

	term := strings.TrimSpace(r.URL.Query().Get("q"))
	if term == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "q is required"})
		return
	}

	results, err := h.accounts.SearchByUsername(r.Context(), term, accountID, 20)
	if err != nil {
		h.logger.Error("search users", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "search failed"})
		return
	}
	if results == nil {
		results = []model.Account{}
	}
	writeJSON(w, http.StatusOK, results)
}

// GetUserByUsername returns another user's public profile.
func (h *AccountHandler) GetUserByUsername(w http.ResponseWriter, r *http.Request) {
	username := r.PathValue("username")

	account, err := h.accounts.GetByUsername(r.Context(), username)
	if err != nil {
		h.logger.Error("get user by username", "username", username, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to load user"})
		return
	}
	if account == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "user not found"})
		return
	}

	writeJSON(w, http.StatusOK, account)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
