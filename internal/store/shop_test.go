package store

import (
	"context"
	"sync"
	"testing"

	"github.com/playblyza/blyza/internal/model"
)

func setupShop(t *testing.T) (*ShopStore, *AccountStore) {
	t.Helper()
	db := setupTestDB(t)
	return NewShopStore(db, testLogger()), NewAccountStore(db, testLogger())
}

func seedItem(t *testing.T, ss *ShopStore, id, cost string, active bool) {
	t.Helper()
	err := ss.UpsertItem(context.Background(), model.StoreItem{
		ID:     id,
		Title:  "Test Item " + id,
		Cost:   cost,
		Active: active,
	})
	if err != nil {
		t.Fatalf("seed item %s: %v", id, err)
	}
}

func TestRedeemSuccess(t *testing.T) {
	ss, as := setupShop(t)
	ctx := context.Background()

	seedItem(t, ss, "nike-discount", "10", true)
	if _, err := as.AdjustBalance(ctx, "u1", 12); err != nil {
		t.Fatalf("seed balance: %v", err)
	}

	res := ss.Redeem(ctx, "u1", "nike-discount")
	if res.Status != RedeemOK {
		t.Fatalf("status = %s, want ok (%s)", res.Status, res.Message)
	}
	if res.NewBalance != 2 {
		t.Errorf("new balance = %d, want 2", res.NewBalance)
	}

	p, err := ss.GetPurchase(ctx, "u1", "nike-discount")
	if err != nil {
		t.Fatalf("get purchase: %v", err)
	}
	if p == nil || !p.Unlocked {
		t.Fatal("expected an unlocked receipt")
	}
	if p.CostPaid != 10 {
		t.Errorf("cost paid = %d, want 10", p.CostPaid)
	}

	balance, err := as.GetBalance(ctx, "u1")
	if err != nil {
		t.Fatalf("get balance: %v", err)
	}
	if balance != 2 {
		t.Errorf("balance = %d, want 2", balance)
	}
}

func TestRedeemAlreadyRedeemed(t *testing.T) {
	ss, as := setupShop(t)
	ctx := context.Background()

	seedItem(t, ss, "item", "10", true)
	if _, err := as.AdjustBalance(ctx, "u1", 100); err != nil {
		t.Fatalf("seed balance: %v", err)
	}

	if res := ss.Redeem(ctx, "u1", "item"); res.Status != RedeemOK {
		t.Fatalf("first redeem: %s", res.Status)
	}
	res := ss.Redeem(ctx, "u1", "item")
	if res.Status != RedeemAlreadyRedeemed {
		t.Errorf("status = %s, want alreadyUnlocked", res.Status)
	}

	balance, err := as.GetBalance(ctx, "u1")
	if err != nil {
		t.Fatalf("get balance: %v", err)
	}
	if balance != 90 {
		t.Errorf("balance = %d, want 90 (charged exactly once)", balance)
	}
}

func TestRedeemInsufficientFunds(t *testing.T) {
	ss, as := setupShop(t)
	ctx := context.Background()

	seedItem(t, ss, "item", "10", true)
	if _, err := as.AdjustBalance(ctx, "u1", 9); err != nil {
		t.Fatalf("seed balance: %v", err)
	}

	res := ss.Redeem(ctx, "u1", "item")
	if res.Status != RedeemInsufficientFunds {
		t.Fatalf("status = %s, want insufficient", res.Status)
	}
	if res.Shortfall != 1 {
		t.Errorf("shortfall = %d, want 1", res.Shortfall)
	}

	if p, _ := ss.GetPurchase(ctx, "u1", "item"); p != nil {
		t.Error("no receipt should exist after a failed redeem")
	}
	if balance, _ := as.GetBalance(ctx, "u1"); balance != 9 {
		t.Errorf("balance = %d, want 9 (untouched)", balance)
	}
}

func TestRedeemExactBalance(t *testing.T) {
	ss, as := setupShop(t)
	ctx := context.Background()

	seedItem(t, ss, "item", "10", true)
	if _, err := as.AdjustBalance(ctx, "u1", 10); err != nil {
		t.Fatalf("seed balance: %v", err)
	}

	res := ss.Redeem(ctx, "u1", "item")
	if res.Status != RedeemOK {
		t.Fatalf("status = %s, want ok", res.Status)
	}
	if res.NewBalance != 0 {
		t.Errorf("new balance = %d, want 0", res.NewBalance)
	}
}

func TestRedeemInactiveItem(t *testing.T) {
	ss, as := setupShop(t)
	ctx := context.Background()

	seedItem(t, ss, "item", "10", false)
	if _, err := as.AdjustBalance(ctx, "u1", 1000); err != nil {
		t.Fatalf("seed balance: %v", err)
	}

	res := ss.Redeem(ctx, "u1", "item")
	if res.Status != RedeemUnavailable {
		t.Errorf("status = %s, want unavailable regardless of balance", res.Status)
	}
}

func TestRedeemItemNotFound(t *testing.T) {
	ss, as := setupShop(t)
	ctx := context.Background()

	if _, err := as.AdjustBalance(ctx, "u1", 100); err != nil {
		t.Fatalf("seed balance: %v", err)
	}

	res := ss.Redeem(ctx, "u1", "ghost")
	if res.Status != RedeemItemNotFound {
		t.Errorf("status = %s, want itemNotFound", res.Status)
	}
}

func TestRedeemAccountNotFound(t *testing.T) {
	ss, _ := setupShop(t)

	seedItem(t, ss, "item", "10", true)
	res := ss.Redeem(context.Background(), "nobody", "item")
	if res.Status != RedeemAccountNotFound {
		t.Errorf("status = %s, want accountNotFound", res.Status)
	}
}

func TestRedeemMalformedCostUsesDefault(t *testing.T) {
	ss, as := setupShop(t)
	ctx := context.Background()

	seedItem(t, ss, "item", "abc", true)
	if _, err := as.AdjustBalance(ctx, "u1", 12); err != nil {
		t.Fatalf("seed balance: %v", err)
	}

	res := ss.Redeem(ctx, "u1", "item")
	if res.Status != RedeemOK {
		t.Fatalf("status = %s, want ok with default cost", res.Status)
	}
	if res.NewBalance != 12-model.DefaultItemCost {
		t.Errorf("new balance = %d, want %d", res.NewBalance, 12-model.DefaultItemCost)
	}

	p, err := ss.GetPurchase(ctx, "u1", "item")
	if err != nil {
		t.Fatalf("get purchase: %v", err)
	}
	if p.CostPaid != model.DefaultItemCost {
		t.Errorf("cost paid = %d, want default %d", p.CostPaid, model.DefaultItemCost)
	}
}

func TestRedeemConcurrentSingleSuccess(t *testing.T) {
	ss, as := setupShop(t)
	ctx := context.Background()

	seedItem(t, ss, "item", "10", true)
	if _, err := as.AdjustBalance(ctx, "u1", 15); err != nil {
		t.Fatalf("seed balance: %v", err)
	}

	const attempts = 8
	results := make([]RedeemResult, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = ss.Redeem(ctx, "u1", "item")
		}(i)
	}
	wg.Wait()

	var successes int
	for _, res := range results {
		switch res.Status {
		case RedeemOK:
			successes++
		case RedeemAlreadyRedeemed, RedeemInsufficientFunds:
		default:
			t.Errorf("unexpected status %s (%s)", res.Status, res.Message)
		}
	}
	if successes != 1 {
		t.Errorf("successes = %d, want exactly 1", successes)
	}

	balance, err := as.GetBalance(ctx, "u1")
	if err != nil {
		t.Fatalf("get balance: %v", err)
	}
	if balance != 5 {
		t.Errorf("balance = %d, want 5 (debited exactly once)", balance)
	}
}

func TestGetUnlockedContent(t *testing.T) {
	ss, as := setupShop(t)
	ctx := context.Background()

	seedItem(t, ss, "item", "10", true)
	if err := ss.SetSecret(ctx, "item", "https://rewards.example.com/code"); err != nil {
		t.Fatalf("set secret: %v", err)
	}
	if _, err := as.AdjustBalance(ctx, "u1", 10); err != nil {
		t.Fatalf("seed balance: %v", err)
	}

	// No receipt yet: secret must stay hidden.
	link, err := ss.GetUnlockedContent(ctx, "u1", "item")
	if err != nil {
		t.Fatalf("get unlocked content: %v", err)
	}
	if link != "" {
		t.Errorf("link = %q, want empty before redemption", link)
	}

	if res := ss.Redeem(ctx, "u1", "item"); res.Status != RedeemOK {
		t.Fatalf("redeem: %s", res.Status)
	}

	link, err = ss.GetUnlockedContent(ctx, "u1", "item")
	if err != nil {
		t.Fatalf("get unlocked content: %v", err)
	}
	if link != "https://rewards.example.com/code" {
		t.Errorf("link = %q, want the secret link", link)
	}

	// A different user with no receipt sees nothing.
	link, err = ss.GetUnlockedContent(ctx, "u2", "item")
	if err != nil {
		t.Fatalf("get unlocked content: %v", err)
	}
	if link != "" {
		t.Errorf("link = %q, want empty for another user", link)
	}
}

func TestListItemsActiveOnly(t *testing.T) {
	ss, _ := setupShop(t)
	ctx := context.Background()

	seedItem(t, ss, "live", "10", true)
	seedItem(t, ss, "dead", "10", false)

	items, err := ss.ListItems(ctx, false)
	if err != nil {
		t.Fatalf("list items: %v", err)
	}
	if len(items) != 1 || items[0].ID != "live" {
		t.Errorf("items = %v, want just the active one", items)
	}

	all, err := ss.ListItems(ctx, true)
	if err != nil {
		t.Fatalf("list all items: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("all items = %d, want 2", len(all))
	}
}

func TestListPurchases(t *testing.T) {
	ss, as := setupShop(t)
	ctx := context.Background()

	seedItem(t, ss, "a", "5", true)
	seedItem(t, ss, "b", "5", true)
	if _, err := as.AdjustBalance(ctx, "u1", 20); err != nil {
		t.Fatalf("seed balance: %v", err)
	}
	if res := ss.Redeem(ctx, "u1", "a"); res.Status != RedeemOK {
		t.Fatalf("redeem a: %s", res.Status)
	}
	if res := ss.Redeem(ctx, "u1", "b"); res.Status != RedeemOK {
		t.Fatalf("redeem b: %s", res.Status)
	}

	purchases, err := ss.ListPurchases(ctx, "u1")
	if err != nil {
		t.Fatalf("list purchases: %v", err)
	}
	if len(purchases) != 2 {
		t.Errorf("purchases = %d, want 2", len(purchases))
	}
}
