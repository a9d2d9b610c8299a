// Package tracker decides whether a game-open event should credit the
// account ledger. It de-duplicates opens per (session, user, game) with a
// best-effort local cache; the cache only cuts redundant ledger calls and
// is never a correctness guard.
package tracker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Ledger is the slice of the account store the tracker needs.
type Ledger interface {
	RecordGameOpen(ctx context.Context, accountID, gameID string) error
}

// SessionCache tracks which (session, user, game) tuples were already
// credited. Implementations are owned by the caller and injected so
// independent trackers never share state.
type SessionCache interface {
	Seen(key string) bool
	Mark(key string)
	Clear(key string)
}

// OpenOptions controls a single TrackOpen call.
type OpenOptions struct {
	// BypassSession forces crediting on every open, ignoring the session
	// cache. The caller decides this (always-track games); the tracker
	// never infers it.
	BypassSession bool

	// SessionKey scopes de-duplication to the caller's browsing session.
	SessionKey string
}

// Tracker guards the ledger's RecordGameOpen behind session de-duplication.
type Tracker struct {
	ledger Ledger
	cache  SessionCache
	logger *slog.Logger
}

func New(ledger Ledger, cache SessionCache, logger *slog.Logger) *Tracker {
	return &Tracker{ledger: ledger, cache: cache, logger: logger}
}

// TrackOpen credits one game open at most once per (session, user, game).
// A cache hit is a silent no-op. On ledger failure the marker is cleared
// so the next open can retry.
func (t *Tracker) TrackOpen(ctx context.Context, accountID, gameID string, opts OpenOptions) error {
	if accountID == "" || gameID == "" {
		t.logger.Warn("missing account or game for open tracking", "account", accountID, "game", gameID)
		return nil
	}

	key := markerKey(opts.SessionKey, accountID, gameID)
	if !opts.BypassSession {
		if t.cache.Seen(key) {
			return nil
		}
		t.cache.Mark(key)
	}

	if err := t.ledger.RecordGameOpen(ctx, accountID, gameID); err != nil {
		if !opts.BypassSession {
			t.cache.Clear(key)
		}
		return fmt.Errorf("record game open: %w", err)
	}
	return nil
}

func markerKey(sessionKey, accountID, gameID string) string {
	return sessionKey + ":" + gameID + ":" + accountID
}

// MemoryCache is an in-process SessionCache. Entries expire after a TTL
// so abandoned sessions do not accumulate.
type MemoryCache struct {
	mu   sync.Mutex
	ttl  time.Duration
	seen map[string]time.Time
}

const defaultMarkerTTL = 12 * time.Hour

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		ttl:  defaultMarkerTTL,
		seen: make(map[string]time.Time),
	}
}

func (c *MemoryCache) Seen(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	expiry, ok := c.seen[key]
	if !ok {
		return false
	}
	if time.Now().After(expiry) {
		delete(c.seen, key)
		return false
	}
	return true
}

func (c *MemoryCache) Mark(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seen[key] = time.Now().Add(c.ttl)
}

func (c *MemoryCache) Clear(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.seen, key)
}

// Cleanup removes expired markers.
func (c *MemoryCache) Cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now()
	for key, expiry := range c.seen {
		if now.After(expiry) {
			delete(c.seen, key)
		}
	}
}
