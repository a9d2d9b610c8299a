package model

import (
	"strconv"
	"time"
)

// DefaultItemCost is substituted when a catalog item's cost field cannot
// be parsed as a finite number. Malformed catalog data is an operator
// problem, not a reason to fail a redemption.
const DefaultItemCost = 10

// StoreItem is a redeemable catalog entry. Cost is carried as the raw
// string the catalog feed supplied; use ParsedCost before charging.
type StoreItem struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Cost        string    `json:"cost"`
	Image       string    `json:"image"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
}

// ParsedCost returns the item's cost as a whole number of Blyza Bucks.
// The second return is false when the raw value was unusable and the
// default was substituted.
func (i StoreItem) ParsedCost() (int, bool) {
	f, err := strconv.ParseFloat(i.Cost, 64)
	if err != nil || f != f || f > 1<<30 || f < -(1<<30) {
		return DefaultItemCost, false
	}
	return int(f), true
}
