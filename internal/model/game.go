package model

import "time"

// Game subcategories used for catalog filtering.
const (
	CategoryBrainBusters       = "brain_busters"
	CategorySocialInterception = "social_interception"
	CategoryQuickFire          = "quick_fire"
)

// Game is a launchable catalog entry. AlwaysTrack marks high-value games
// whose opens are credited on every open, bypassing the per-session
// de-duplication.
type Game struct {
	ID          int64     `json:"id"`
	Slug        string    `json:"slug"`
	Title       string    `json:"title"`
	Category    string    `json:"category"`
	AlwaysTrack bool      `json:"always_track"`
	CreatedAt   time.Time `json:"created_at"`
}
