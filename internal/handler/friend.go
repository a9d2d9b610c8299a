package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/playblyza/blyza/internal/auth"
	"github.com/playblyza/blyza/internal/model"
	"github.com/playblyza/blyza/internal/push"
	"github.com/playblyza/blyza/internal/store"
	"github.com/playblyza/blyza/internal/websocket"
)

// FriendHandler serves the friends list and request workflow.
type FriendHandler struct {
	friends  *store.FriendStore
	accounts *store.AccountStore
	hub      *websocket.Hub
	notifier *push.Service
	logger   *slog.Logger
}

func NewFriendHandler(fs *store.FriendStore, as *store.AccountStore, hub *websocket.Hub, notifier *push.Service, logger *slog.Logger) *FriendHandler {
	return &FriendHandler{friends: fs, accounts: as, hub: hub, notifier: notifier, logger: logger}
}

// ListFriends returns the caller's accepted friends with profiles.
func (h *FriendHandler) ListFriends(w http.ResponseWriter, r *http.Request) {
	accountID := auth.UserID(r.Context())

	friends, err := h.friends.List(r.Context(), accountID, model.FriendStatusAccepted)
	if err != nil {
		h.logger.Error("list friends", "account_id", accountID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list friends"})
		return
	}
	if friends == nil {
		friends = []model.Friend{}
	}
	writeJSON(w, http.StatusOK, friends)
}

// ListRequests returns pending requests waiting on the caller.
func (h *FriendHandler) ListRequests(w http.ResponseWriter, r *http.Request) {
	accountID := auth.UserID(r.Context())

	requests, err := h.friends.PendingRequests(r.Context(), accountID)
	if err != nil {
		h.logger.Error("list friend requests", "account_id", accountID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list requests"})
		return
	}
	if requests == nil {
		requests = []model.Friend{}
	}
	writeJSON(w, http.StatusOK, requests)
}

type friendRequest struct {
	Username string `json:"username"`
}

// SendRequest sends a friend request to the named user.
func (h *FriendHandler) SendRequest(w http.ResponseWriter, r *http.Request) {
	accountID := auth.UserID(r.Context())

	var req friendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	target, err := h.accounts.GetByUsername(r.Context(), strings.TrimSpace(req.Username))
	if err != nil {
		h.logger.Error("lookup friend target", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to send request"})
		return
	}
	if target == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "user not found"})
		return
	}

	sent, err := h.friends.SendRequest(r.Context(), accountID, target.ID)
	if errors.Is(err, store.ErrSelfFriend) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if err != nil {
		h.logger.Error("send friend request", "account_id", accountID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to send request"})
		return
	}
	if !sent {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "request already exists"})
		return
	}

	h.hub.SendToUser(target.ID, websocket.NewMessage("friend", "request", accountID, nil))

	sender, err := h.accounts.GetByID(r.Context(), accountID)
	if err == nil && sender != nil && sender.Username != "" {
		h.notifier.NotifyFriendRequest(r.Context(), target.ID, sender.Username)
	}

	writeJSON(w, http.StatusCreated, map[string]string{"status": "sent"})
}

// AcceptRequest accepts a pending request from the named account.
func (h *FriendHandler) AcceptRequest(w http.ResponseWriter, r *http.Request) {
	accountID := auth.UserID(r.Context())
	friendID := r.PathValue("id")

	accepted, err := h.friends.AcceptRequest(r.Context(), accountID, friendID)
	if err != nil {
		h.logger.Error("accept friend request", "account_id", accountID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to accept request"})
		return
	}
	if !accepted {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no pending request"})
		return
	}

	h.hub.SendToUser(friendID, websocket.NewMessage("friend", "accepted", accountID, nil))

	writeJSON(w, http.StatusOK, map[string]string{"status": "accepted"})
}

// RejectRequest declines a pending request.
func (h *FriendHandler) RejectRequest(w http.ResponseWriter, r *http.Request) {
	accountID := auth.UserID(r.Context())
	friendID := r.PathValue("id")

	rejected, err := h.friends.RejectRequest(r.Context(), accountID, friendID)
	if err != nil {
		h.logger.Error("reject friend request", "account_id", accountID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to reject request"})
		return
	}
	if !rejected {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no pending request"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "rejected"})
}

// RemoveFriend deletes the friendship in both directions.
func (h *FriendHandler) RemoveFriend(w http.ResponseWriter, r *http.Request) {
	accountID := auth.UserID(r.Context())
	friendID := r.PathValue("id")

	if err := h.friends.Remove(r.Context(), accountID, friendID); err != nil {
		h.logger.Error("remove friend", "account_id", accountID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to remove friend"})
		return
	}

	h.hub.SendToUser(friendID, websocket.NewMessage("friend", "removed", accountID, nil))

	writeJSON(w, http.StatusOK, map[string]string{"status": "removed"})
}
