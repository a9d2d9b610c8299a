package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/playblyza/blyza/internal/auth"
	"github.com/playblyza/blyza/internal/backup"
	"github.com/playblyza/blyza/internal/billing"
	"github.com/playblyza/blyza/internal/config"
	"github.com/playblyza/blyza/internal/handler"
	"github.com/playblyza/blyza/internal/middleware"
	"github.com/playblyza/blyza/internal/push"
	"github.com/playblyza/blyza/internal/store"
	"github.com/playblyza/blyza/internal/tracker"
	ws "github.com/playblyza/blyza/internal/websocket"
)

type Server struct {
	db          *sql.DB
	hub         *ws.Hub
	accountH    *handler.AccountHandler
	shopH       *handler.ShopHandler
	gameH       *handler.GameHandler
	friendH     *handler.FriendHandler
	pushH       *handler.PushHandler
	checkoutH   *billing.CheckoutHandler
	webhookH    *billing.WebhookHandler
	verifier    *auth.Verifier
	rateLimiter *middleware.RateLimiter
	sessions    *tracker.MemoryCache
	backupMgr   *backup.Manager
	logger      *slog.Logger
}

func New(db *sql.DB, cfg config.Config, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))

	accountStore := store.NewAccountStore(db, logger.With("component", "accounts"))
	shopStore := store.NewShopStore(db, logger.With("component", "shop"))
	gameStore := store.NewGameStore(db)
	friendStore := store.NewFriendStore(db)
	pushStore := store.NewPushStore(db)
	backupStore := store.NewBackupStore(db)

	pushSvc := push.NewService(cfg.VAPIDPublicKey, cfg.VAPIDPrivateKey, cfg.VAPIDSubject,
		pushStore, logger.With("component", "push"))

	sessions := tracker.NewMemoryCache()
	openTracker := tracker.New(accountStore, sessions, logger.With("component", "tracker"))

	stripeClient := billing.NewClient(billing.Config{
		SecretKey:     cfg.StripeSecretKey,
		WebhookSecret: cfg.StripeWebhookSecret,
		PremiumPrice:  cfg.StripePremiumPrice,
		SuccessURL:    cfg.CheckoutSuccessURL,
		CancelURL:     cfg.CheckoutCancelURL,
	})

	backupMgr := backup.NewManager(backup.Config{
		Endpoint:   cfg.BackupEndpoint,
		Bucket:     cfg.BackupBucket,
		Region:     cfg.BackupRegion,
		AccessKey:  cfg.BackupAccessKey,
		SecretKey:  cfg.BackupSecretKey,
		Passphrase: cfg.BackupPassphrase,
		DBPath:     cfg.DBPath,
		Interval:   time.Duration(cfg.BackupIntervalHr) * time.Hour,
	}, db, backupStore, logger.With("component", "backup"))

	return &Server{
		db:          db,
		hub:         hub,
		accountH:    handler.NewAccountHandler(accountStore, hub, logger.With("component", "account")),
		shopH:       handler.NewShopHandler(shopStore, hub, logger.With("component", "shop_handler")),
		gameH:       handler.NewGameHandler(gameStore, accountStore, openTracker, hub, logger.With("component", "game")),
		friendH:     handler.NewFriendHandler(friendStore, accountStore, hub, pushSvc, logger.With("component", "friend")),
		pushH:       handler.NewPushHandler(pushStore, pushSvc, logger.With("component", "push_handler")),
		checkoutH:   billing.NewCheckoutHandler(stripeClient, logger.With("component", "billing")),
		webhookH:    billing.NewWebhookHandler(stripeClient, accountStore, hub, pushSvc, logger.With("component", "webhook")),
		verifier:    auth.NewVerifier(cfg.JWTSecret),
		rateLimiter: middleware.NewRateLimiter(),
		sessions:    sessions,
		backupMgr:   backupMgr,
		logger:      logger,
	}
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

// SessionCache returns the tracker cache for cleanup tasks.
func (s *Server) SessionCache() *tracker.MemoryCache {
	return s.sessions
}

// BackupManager returns the backup manager.
func (s *Server) BackupManager() *backup.Manager {
	return s.backupMgr
}

func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()

	// Public routes (no auth required)
	outerMux.HandleFunc("GET /health", s.healthHandler)
	outerMux.HandleFunc("POST /webhooks/stripe", s.webhookH.HandleStripeWebhook)

	// Protected routes — wrapped with RequireAuth middleware
	protectedMux := http.NewServeMux()
	s.registerProtectedRoutes(protectedMux)

	authMiddleware := middleware.RequireAuth(s.verifier)
	outerMux.Handle("/api/", authMiddleware(protectedMux))
	outerMux.Handle("GET /ws", authMiddleware(ws.HandleWebSocket(s.hub, s.logger.With("component", "websocket"))))

	return middleware.RequestLogger(s.logger.With("component", "http"))(outerMux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) rateLimited(h http.HandlerFunc, limit int) http.HandlerFunc {
	rl := middleware.RateLimit(s.rateLimiter, limit, time.Minute)
	return func(w http.ResponseWriter, r *http.Request) {
		rl(h).ServeHTTP(w, r)
	}
}

func (s *Server) registerProtectedRoutes(mux *http.ServeMux) {
	// Profile and wallet
	mux.HandleFunc("GET /api/profile", s.accountH.GetProfile)
	mux.HandleFunc("PATCH /api/profile", s.accountH.UpdateProfile)
	mux.HandleFunc("POST /api/profile/username", s.rateLimited(s.accountH.ClaimUsername, 10))
	mux.HandleFunc("GET /api/wallet", s.accountH.GetWallet)
	mux.HandleFunc("POST /api/wallet/adjust", s.rateLimited(s.accountH.AdjustBalance, 60))

	// User lookup
	mux.HandleFunc("GET /api/users/search", s.accountH.SearchUsers)
	mux.HandleFunc("GET /api/users/{username}", s.accountH.GetUserByUsername)

	// Store catalog and redemption
	mux.HandleFunc("GET /api/store/items", s.shopH.ListItems)
	mux.HandleFunc("POST /api/store/items/{id}/redeem", s.rateLimited(s.shopH.Redeem, 30))
	mux.HandleFunc("GET /api/store/items/{id}/content", s.shopH.GetContent)
	mux.HandleFunc("GET /api/purchases", s.shopH.ListPurchases)

	// Game catalog and open tracking
	mux.HandleFunc("GET /api/games", s.gameH.ListGames)
	mux.HandleFunc("POST /api/games/{slug}/open", s.rateLimited(s.gameH.OpenGame, 60))

	// Friends
	mux.HandleFunc("GET /api/friends", s.friendH.ListFriends)
	mux.HandleFunc("GET /api/friends/requests", s.friendH.ListRequests)
	mux.HandleFunc("POST /api/friends/requests", s.rateLimited(s.friendH.SendRequest, 20))
	mux.HandleFunc("POST /api/friends/requests/{id}/accept", s.friendH.AcceptRequest)
	mux.HandleFunc("POST /api/friends/requests/{id}/reject", s.friendH.RejectRequest)
	mux.HandleFunc("DELETE /api/friends/{id}", s.friendH.RemoveFriend)

	// Premium upgrade
	mux.HandleFunc("POST /api/premium/checkout", s.rateLimited(s.checkoutH.CreateCheckoutSession, 10))

	// Push notifications
	mux.HandleFunc("GET /api/push/vapid-key", s.pushH.VAPIDKey)
	mux.HandleFunc("POST /api/push/subscribe", s.pushH.Subscribe)
	mux.HandleFunc("DELETE /api/push/subscriptions/{id}", s.pushH.Unsubscribe)
}
