package handler

import (
	"log/slog"
	"net/http"

	"github.com/playblyza/blyza/internal/auth"
	"github.com/playblyza/blyza/internal/model"
	"github.com/playblyza/blyza/internal/store"
	"github.com/playblyza/blyza/internal/tracker"
	"github.com/playblyza/blyza/internal/websocket"
)

// GameHandler serves the game catalog and the open-tracking endpoint.
type GameHandler struct {
	games    *store.GameStore
	accounts *store.AccountStore
	tracker  *tracker.Tracker
	hub      *websocket.Hub
	logger   *slog.Logger
}

func NewGameHandler(gs *store.GameStore, as *store.AccountStore, tr *tracker.Tracker, hub *websocket.Hub, logger *slog.Logger) *GameHandler {
	return &GameHandler{games: gs, accounts: as, tracker: tr, hub: hub, logger: logger}
}

// ListGames returns the catalog, optionally filtered by category.
func (h *GameHandler) ListGames(w http.ResponseWriter, r *http.Request) {
	games, err := h.games.List(r.Context(), r.URL.Query().Get("category"))
	if err != nil {
		h.logger.Error("list games", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list games"})
		return
	}
	if games == nil {
		games = []model.Game{}
	}
	writeJSON(w, http.StatusOK, games)
}

// OpenGame records that the caller opened a game. The first open per
// session credits the play reward; always-track games credit every time.
// The response is the wallet after the call either way.
func (h *GameHandler) OpenGame(w http.ResponseWriter, r *http.Request) {
	id := auth.UserID(r.Context())
	slug := r.PathValue("slug")

	game, err := h.games.GetBySlug(r.Context(), slug)
	if err != nil {
		h.logger.Error("get game", "slug", slug, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to load game"})
		return
	}
	if game == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "game not found"})
		return
	}

	identity, _ := auth.FromContext(r.Context())
	err = h.tracker.TrackOpen(r.Context(), id, game.Slug, tracker.OpenOptions{
		BypassSession: game.AlwaysTrack,
		SessionKey:    identity.SessionKey,
	})
	if err != nil {
		h.logger.Error("track game open", "account_id", id, "slug", slug, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to record game open"})
		return
	}

	account, err := h.accounts.GetByID(r.Context(), id)
	if err != nil || account == nil {
		h.logger.Error("get account after open", "account_id", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to load wallet"})
		return
	}

	h.hub.SendToUser(id, websocket.NewMessage("wallet", "updated", id,
		map[string]any{"balance": account.Balance}))

	writeJSON(w, http.StatusOK, map[string]any{
		"balance":      account.Balance,
		"games_played": account.GamesPlayed,
		"recent_games": account.RecentGames,
	})
}
