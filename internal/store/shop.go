package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/playblyza/blyza/internal/model"
)

// RedeemStatus is the discriminated outcome of a redemption attempt.
// Callers pattern-match on status instead of unwrapping errors.
type RedeemStatus string

const (
	RedeemOK                RedeemStatus = "ok"
	RedeemItemNotFound      RedeemStatus = "itemNotFound"
	RedeemAccountNotFound   RedeemStatus = "accountNotFound"
	RedeemUnavailable       RedeemStatus = "itemUnavailable"
	RedeemAlreadyRedeemed   RedeemStatus = "alreadyRedeemed"
	RedeemInsufficientFunds RedeemStatus = "insufficientFunds"
	RedeemError             RedeemStatus = "error"
)

// RedeemResult reports what a redemption attempt did.
type RedeemResult struct {
	Status     RedeemStatus    `json:"status"`
	Message    string          `json:"message,omitempty"`
	NewBalance int             `json:"new_balance,omitempty"`
	Shortfall  int             `json:"shortfall,omitempty"`
	Purchase   *model.Purchase `json:"purchase,omitempty"`
}

// ShopStore owns the store catalog, item secrets, and purchase receipts,
// including the redemption transaction that ties them to the account
// ledger.
type ShopStore struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewShopStore(db *sql.DB, logger *slog.Logger) *ShopStore {
	return &ShopStore{db: db, logger: logger}
}

// --- Catalog methods ---

const itemCols = `id, title, description, cost, image, active, created_at`

func scanItem(scanner interface{ Scan(...any) error }) (*model.StoreItem, error) {
	var it model.StoreItem
	var active int

	err := scanner.Scan(&it.ID, &it.Title, &it.Description, &it.Cost, &it.Image, &active, &it.CreatedAt)
	if err != nil {
		return nil, err
	}

	it.Active = active != 0
	return &it, nil
}

// UpsertItem creates or replaces a catalog item. The catalog is an
// external feed; cost is stored exactly as supplied and only coerced at
// redemption time.
func (s *ShopStore) UpsertItem(ctx context.Context, it model.StoreItem) error {
	var active int
	if it.Active {
		active = 1
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO store_items (id, title, description, cost, image, active) VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET title = excluded.title, description = excluded.description,
		 cost = excluded.cost, image = excluded.image, active = excluded.active`,
		it.ID, it.Title, it.Description, it.Cost, it.Image, active,
	)
	if err != nil {
		return fmt.Errorf("upsert item: %w", err)
	}
	return nil
}

func (s *ShopStore) GetItem(ctx context.Context, id string) (*model.StoreItem, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+itemCols+` FROM store_items WHERE id = ?`, id)
	it, err := scanItem(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	return it, nil
}

// ListItems returns catalog items; only active ones unless includeAll.
func (s *ShopStore) ListItems(ctx context.Context, includeAll bool) ([]model.StoreItem, error) {
	q := `SELECT ` + itemCols + ` FROM store_items WHERE active = 1 ORDER BY title ASC`
	if includeAll {
		q = `SELECT ` + itemCols + ` FROM store_items ORDER BY active DESC, title ASC`
	}

	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	var items []model.StoreItem
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, *it)
	}
	return items, rows.Err()
}

// SetSecret stores the reward payload revealed after unlocking an item.
func (s *ShopStore) SetSecret(ctx context.Context, itemID, link string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO store_item_secrets (item_id, link) VALUES (?, ?)
		 ON CONFLICT(item_id) DO UPDATE SET link = excluded.link`,
		itemID, link,
	)
	if err != nil {
		return fmt.Errorf("set item secret: %w", err)
	}
	return nil
}

// --- Redemption ---

// Redeem exchanges Blyza Bucks for permanent access to a catalog item.
// The whole check-and-debit runs in one transaction: read item, read
// account, read receipt, then conditionally write the debited balance and
// the receipt. Two concurrent attempts for the same (account, item)
// serialize here; the loser observes the winner's receipt or balance and
// fails without double-charging.
func (s *ShopStore) Redeem(ctx context.Context, accountID, itemID string) RedeemResult {
	if accountID == "" || itemID == "" {
		return RedeemResult{Status: RedeemItemNotFound, Message: "Invalid user or item ID"}
	}

	var result RedeemResult
	err := runInTx(ctx, s.db, func(tx *sql.Tx) error {
		item, err := scanItem(tx.QueryRowContext(ctx, `SELECT `+itemCols+` FROM store_items WHERE id = ?`, itemID))
		if err == sql.ErrNoRows {
			result = RedeemResult{Status: RedeemItemNotFound, Message: "Store item not found"}
			return nil
		}
		if err != nil {
			return fmt.Errorf("read item: %w", err)
		}

		cost, parsed := item.ParsedCost()
		if !parsed {
			s.logger.Warn("item has invalid cost, using default",
				"item", itemID, "raw_cost", item.Cost, "default", model.DefaultItemCost)
		}
		if !item.Active {
			result = RedeemResult{Status: RedeemUnavailable, Message: "Item is not available"}
			return nil
		}

		var balance int
		err = tx.QueryRowContext(ctx, `SELECT balance FROM accounts WHERE id = ?`, accountID).Scan(&balance)
		if err == sql.ErrNoRows {
			result = RedeemResult{Status: RedeemAccountNotFound, Message: "User profile not found"}
			return nil
		}
		if err != nil {
			return fmt.Errorf("read account: %w", err)
		}

		var unlocked int
		err = tx.QueryRowContext(ctx,
			`SELECT unlocked FROM purchases WHERE account_id = ? AND item_id = ?`,
			accountID, itemID,
		).Scan(&unlocked)
		if err != nil && err != sql.ErrNoRows {
			return fmt.Errorf("read receipt: %w", err)
		}
		if err == nil && unlocked != 0 {
			result = RedeemResult{Status: RedeemAlreadyRedeemed, Message: "Item already unlocked"}
			return nil
		}

		if balance < cost {
			result = RedeemResult{
				Status:    RedeemInsufficientFunds,
				Message:   fmt.Sprintf("Need %d Blyza Bucks, you have %d", cost, balance),
				Shortfall: cost - balance,
			}
			return nil
		}

		newBalance := balance - cost
		_, err = tx.ExecContext(ctx,
			`UPDATE accounts SET balance = ?, last_activity_at = CURRENT_TIMESTAMP WHERE id = ?`,
			newBalance, accountID,
		)
		if err != nil {
			return fmt.Errorf("debit balance: %w", err)
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO purchases (account_id, item_id, unlocked, cost_paid, item_title) VALUES (?, ?, 1, ?, ?)`,
			accountID, itemID, cost, item.Title,
		)
		if err != nil {
			return fmt.Errorf("write receipt: %w", err)
		}

		result = RedeemResult{
			Status:     RedeemOK,
			Message:    fmt.Sprintf("Successfully unlocked %s! New balance: %d Blyza Bucks", item.Title, newBalance),
			NewBalance: newBalance,
			Purchase: &model.Purchase{
				AccountID: accountID,
				ItemID:    itemID,
				Unlocked:  true,
				CostPaid:  cost,
				ItemTitle: item.Title,
			},
		}
		return nil
	})
	if err != nil {
		s.logger.Error("redeem transaction failed", "account", accountID, "item", itemID, "error", err)
		return RedeemResult{Status: RedeemError, Message: "Failed to redeem item. Please try again."}
	}
	return result
}

// GetUnlockedContent returns the item's secret payload only when an
// unlocked=true receipt exists for the account. The receipt check always
// happens before the secret read.
func (s *ShopStore) GetUnlockedContent(ctx context.Context, accountID, itemID string) (string, error) {
	if accountID == "" || itemID == "" {
		return "", nil
	}

	var unlocked int
	err := s.db.QueryRowContext(ctx,
		`SELECT unlocked FROM purchases WHERE account_id = ? AND item_id = ?`,
		accountID, itemID,
	).Scan(&unlocked)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read receipt: %w", err)
	}
	if unlocked == 0 {
		return "", nil
	}

	var link string
	err = s.db.QueryRowContext(ctx,
		`SELECT link FROM store_item_secrets WHERE item_id = ?`, itemID,
	).Scan(&link)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read secret: %w", err)
	}
	return link, nil
}

// --- Receipts ---

const purchaseCols = `account_id, item_id, unlocked, cost_paid, item_title, unlocked_at`

func scanPurchase(scanner interface{ Scan(...any) error }) (*model.Purchase, error) {
	var p model.Purchase
	var unlocked int

	err := scanner.Scan(&p.AccountID, &p.ItemID, &unlocked, &p.CostPaid, &p.ItemTitle, &p.UnlockedAt)
	if err != nil {
		return nil, err
	}

	p.Unlocked = unlocked != 0
	return &p, nil
}

// GetPurchase returns the receipt for (account, item), or nil.
func (s *ShopStore) GetPurchase(ctx context.Context, accountID, itemID string) (*model.Purchase, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+purchaseCols+` FROM purchases WHERE account_id = ? AND item_id = ?`,
		accountID, itemID,
	)
	p, err := scanPurchase(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get purchase: %w", err)
	}
	return p, nil
}

// ListPurchases returns the account's unlocked receipts, newest first.
func (s *ShopStore) ListPurchases(ctx context.Context, accountID string) ([]model.Purchase, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+purchaseCols+` FROM purchases WHERE account_id = ? AND unlocked = 1 ORDER BY unlocked_at DESC`,
		accountID,
	)
	if err != nil {
		return nil, fmt.Errorf("list purchases: %w", err)
	}
	defer rows.Close()

	var purchases []model.Purchase
	for rows.Next() {
		p, err := scanPurchase(rows)
		if err != nil {
			return nil, fmt.Errorf("scan purchase: %w", err)
		}
		purchases = append(purchases, *p)
	}
	return purchases, rows.Err()
}
