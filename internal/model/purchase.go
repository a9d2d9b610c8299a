package model

import "time"

// Purchase is the receipt proving an account unlocked a store item. A row
// with Unlocked=true is the single source of truth for "already owned".
// Receipts are written once and never updated; CostPaid is the price at
// redemption time, not the catalog's current price.
type Purchase struct {
	AccountID  string    `json:"account_id"`
	ItemID     string    `json:"item_id"`
	Unlocked   bool      `json:"unlocked"`
	CostPaid   int       `json:"cost_paid"`
	ItemTitle  string    `json:"item_title"`
	UnlockedAt time.Time `json:"unlocked_at"`
}
