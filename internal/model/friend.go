package model

import "time"

const (
	FriendStatusPending  = "pending"
	FriendStatusAccepted = "accepted"
)

// Friend is one direction of a friendship. A pending row lives only on the
// recipient's side (FriendID is the sender); accepting writes the
// reciprocal accepted row.
type Friend struct {
	ID         int64      `json:"id"`
	AccountID  string     `json:"account_id"`
	FriendID   string     `json:"friend_id"`
	Status     string     `json:"status"`
	AddedAt    time.Time  `json:"added_at"`
	AcceptedAt *time.Time `json:"accepted_at,omitempty"`

	// Profile is the friend's account, populated on list reads.
	Profile *Account `json:"profile,omitempty"`
}
