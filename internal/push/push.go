package push

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	webpush "github.com/SherClockHolmes/webpush-go"

	"github.com/playblyza/blyza/internal/model"
	"github.com/playblyza/blyza/internal/store"
)

// ErrExpired is returned when a push subscription is no longer valid (410 Gone).
var ErrExpired = errors.New("push subscription expired")

// Payload is the JSON sent to the push service.
type Payload struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	URL   string `json:"url,omitempty"`
	Tag   string `json:"tag,omitempty"`
}

// Service handles sending web push notifications.
type Service struct {
	publicKey  string
	privateKey string
	subscriber string
	subs       *store.PushStore
	logger     *slog.Logger
}

// NewService creates a new push service with VAPID keys.
func NewService(publicKey, privateKey, subscriber string, subs *store.PushStore, logger *slog.Logger) *Service {
	return &Service{
		publicKey:  publicKey,
		privateKey: privateKey,
		subscriber: subscriber,
		subs:       subs,
		logger:     logger,
	}
}

// Enabled reports whether VAPID keys were configured.
func (s *Service) Enabled() bool {
	return s.publicKey != "" && s.privateKey != ""
}

// VAPIDPublicKey returns the VAPID public key for client-side subscription.
func (s *Service) VAPIDPublicKey() string {
	return s.publicKey
}

// Send sends a push notification to a single subscription.
func (s *Service) Send(sub *model.PushSubscription, payload Payload) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	resp, err := webpush.SendNotification(data, &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256dh,
			Auth:   sub.AuthKey,
		},
	}, &webpush.Options{
		VAPIDPublicKey:  s.publicKey,
		VAPIDPrivateKey: s.privateKey,
		Subscriber:      s.subscriber,
		TTL:             86400,
	})
	if err != nil {
		return fmt.Errorf("send push: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusGone {
		return ErrExpired
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("push service returned %d", resp.StatusCode)
	}

	return nil
}

// NotifyAccount sends the payload to every subscription the account holds,
// pruning endpoints the push service reports gone. Failures are logged,
// not returned; a dead phone should never fail the triggering request.
func (s *Service) NotifyAccount(ctx context.Context, accountID string, payload Payload) {
	if !s.Enabled() {
		return
	}

	subs, err := s.subs.ListByAccount(ctx, accountID)
	if err != nil {
		s.logger.Error("list push subscriptions", "account_id", accountID, "error", err)
		return
	}

	for i := range subs {
		err := s.Send(&subs[i], payload)
		switch {
		case errors.Is(err, ErrExpired):
			if err := s.subs.DeleteByEndpoint(ctx, subs[i].Endpoint); err != nil {
				s.logger.Error("prune expired subscription", "error", err)
			}
		case err != nil:
			s.logger.Warn("push delivery failed", "account_id", accountID, "error", err)
		}
	}
}

// NotifyFriendRequest tells an account someone wants to be friends.
func (s *Service) NotifyFriendRequest(ctx context.Context, accountID, fromUsername string) {
	s.NotifyAccount(ctx, accountID, Payload{
		Title: "New friend request",
		Body:  fmt.Sprintf("%s wants to be your friend on Blyza", fromUsername),
		URL:   "/friends",
		Tag:   "friend-request",
	})
}

// NotifyPremiumActivated confirms a completed premium upgrade.
func (s *Service) NotifyPremiumActivated(ctx context.Context, accountID string) {
	s.NotifyAccount(ctx, accountID, Payload{
		Title: "Welcome to Blyza Premium",
		Body:  "Your premium upgrade is active. Enjoy the full catalog!",
		URL:   "/premium",
		Tag:   "premium",
	})
}

// GenerateVAPIDKeys generates a new ECDSA P-256 key pair for VAPID.
func GenerateVAPIDKeys() (publicKey, privateKey string, err error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return "", "", fmt.Errorf("generate ECDSA key: %w", err)
	}

	pubBytes := elliptic.Marshal(elliptic.P256(), key.PublicKey.X, key.PublicKey.Y)
	publicKey = base64.RawURLEncoding.EncodeToString(pubBytes)
	privateKey = base64.RawURLEncoding.EncodeToString(key.D.Bytes())

	return publicKey, privateKey, nil
}
