package model

import "time"

// PushSubscription is a browser push endpoint registered by an account.
type PushSubscription struct {
	ID        int64     `json:"id"`
	AccountID string    `json:"account_id"`
	Endpoint  string    `json:"endpoint"`
	P256dh    string    `json:"p256dh"`
	AuthKey   string    `json:"auth_key"`
	CreatedAt time.Time `json:"created_at"`
}
