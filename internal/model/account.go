package model

import "time"

// RecentGamesCap is the maximum number of entries kept in an account's
// recent-games list.
const RecentGamesCap = 5

// Account is a user's platform document: wallet balance (Blyza Bucks),
// play counters, profile fields, and the premium flag. Accounts are keyed
// by the identity provider's stable user id and created lazily on first
// write.
type Account struct {
	ID             string     `json:"id"`
	Username       string     `json:"username"`
	ProfilePicture string     `json:"profile_picture"`
	Balance        int        `json:"balance"`
	GamesPlayed    int        `json:"games_played"`
	RecentGames    []string   `json:"recent_games"`
	Badges         []string   `json:"badges"`
	Premium        bool       `json:"premium"`
	PremiumSince   *time.Time `json:"premium_since,omitempty"`
	LastActivityAt time.Time  `json:"last_activity_at"`
	CreatedAt      time.Time  `json:"created_at"`
}
