package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/playblyza/blyza/internal/model"
)

// PushStore persists browser push subscriptions per account.
type PushStore struct {
	db *sql.DB
}

func NewPushStore(db *sql.DB) *PushStore {
	return &PushStore{db: db}
}

const pushCols = `id, account_id, endpoint, p256dh, auth_key, created_at`

func scanSubscription(scanner interface{ Scan(...any) error }) (*model.PushSubscription, error) {
	var sub model.PushSubscription
	err := scanner.Scan(&sub.ID, &sub.AccountID, &sub.Endpoint, &sub.P256dh, &sub.AuthKey, &sub.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// Subscribe registers an endpoint for the account, replacing any existing
// row for the same endpoint (browsers re-subscribe with fresh keys).
func (s *PushStore) Subscribe(ctx context.Context, accountID, endpoint, p256dh, authKey string) (*model.PushSubscription, error) {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO push_subscriptions (account_id, endpoint, p256dh, auth_key) VALUES (?, ?, ?, ?)
		 ON CONFLICT(endpoint) DO UPDATE SET account_id = excluded.account_id,
		 p256dh = excluded.p256dh, auth_key = excluded.auth_key`,
		accountID, endpoint, p256dh, authKey,
	)
	if err != nil {
		return nil, fmt.Errorf("insert push subscription: %w", err)
	}

	row := s.db.QueryRowContext(ctx, `SELECT `+pushCols+` FROM push_subscriptions WHERE endpoint = ?`, endpoint)
	return scanSubscription(row)
}

func (s *PushStore) Unsubscribe(ctx context.Context, accountID string, id int64) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM push_subscriptions WHERE id = ? AND account_id = ?`,
		id, accountID,
	)
	if err != nil {
		return fmt.Errorf("delete push subscription: %w", err)
	}
	return nil
}

// DeleteByEndpoint removes a subscription the push service reported gone.
func (s *PushStore) DeleteByEndpoint(ctx context.Context, endpoint string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM push_subscriptions WHERE endpoint = ?`, endpoint)
	if err != nil {
		return fmt.Errorf("delete push subscription by endpoint: %w", err)
	}
	return nil
}

func (s *PushStore) ListByAccount(ctx context.Context, accountID string) ([]model.PushSubscription, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+pushCols+` FROM push_subscriptions WHERE account_id = ? ORDER BY created_at DESC`,
		accountID,
	)
	if err != nil {
		return nil, fmt.Errorf("list push subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []model.PushSubscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, fmt.Errorf("scan push subscription: %w", err)
		}
		subs = append(subs, *sub)
	}
	return subs, rows.Err()
}
