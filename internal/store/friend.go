package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/playblyza/blyza/internal/model"
)

var ErrSelfFriend = errors.New("cannot send a friend request to yourself")

// FriendStore manages friend requests and friendships. A pending row
// lives on the recipient's side; acceptance flips it and writes the
// reciprocal row in the same transaction.
type FriendStore struct {
	db *sql.DB
}

func NewFriendStore(db *sql.DB) *FriendStore {
	return &FriendStore{db: db}
}

const friendCols = `id, account_id, friend_id, status, added_at, accepted_at`

func scanFriend(scanner interface{ Scan(...any) error }) (*model.Friend, error) {
	var f model.Friend
	var acceptedAt sql.NullTime

	err := scanner.Scan(&f.ID, &f.AccountID, &f.FriendID, &f.Status, &f.AddedAt, &acceptedAt)
	if err != nil {
		return nil, err
	}

	if acceptedAt.Valid {
		t := acceptedAt.Time
		f.AcceptedAt = &t
	}
	return &f, nil
}

// SendRequest creates a pending request from fromID in toID's friend
// list. Returns false without writing when any relationship already
// exists in either direction.
func (s *FriendStore) SendRequest(ctx context.Context, fromID, toID string) (bool, error) {
	if fromID == toID {
		return false, ErrSelfFriend
	}

	existing, err := s.Status(ctx, fromID, toID)
	if err != nil {
		return false, err
	}
	if existing != nil {
		return false, nil
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO friends (account_id, friend_id, status) VALUES (?, ?, ?)`,
		toID, fromID, model.FriendStatusPending,
	)
	if err != nil {
		return false, fmt.Errorf("insert friend request: %w", err)
	}
	return true, nil
}

// Status returns the relationship between two accounts, checking both
// directions, or nil when none exists.
func (s *FriendStore) Status(ctx context.Context, a, b string) (*model.Friend, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+friendCols+` FROM friends
		 WHERE (account_id = ? AND friend_id = ?) OR (account_id = ? AND friend_id = ?)
		 LIMIT 1`,
		a, b, b, a,
	)
	f, err := scanFriend(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get friend status: %w", err)
	}
	return f, nil
}

func (s *FriendStore) get(ctx context.Context, accountID, friendID string) (*model.Friend, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+friendCols+` FROM friends WHERE account_id = ? AND friend_id = ?`,
		accountID, friendID,
	)
	f, err := scanFriend(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get friend row: %w", err)
	}
	return f, nil
}

// AcceptRequest accepts a pending request from friendID. The existing row
// flips to accepted and the reciprocal row is written atomically. Returns
// false when no pending request exists.
func (s *FriendStore) AcceptRequest(ctx context.Context, accountID, friendID string) (bool, error) {
	existing, err := s.get(ctx, accountID, friendID)
	if err != nil {
		return false, err
	}
	if existing == nil || existing.Status != model.FriendStatusPending {
		return false, nil
	}

	err = runInTx(ctx, s.db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`UPDATE friends SET status = ?, accepted_at = CURRENT_TIMESTAMP WHERE id = ?`,
			model.FriendStatusAccepted, existing.ID,
		)
		if err != nil {
			return fmt.Errorf("accept friend request: %w", err)
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO friends (account_id, friend_id, status, accepted_at) VALUES (?, ?, ?, CURRENT_TIMESTAMP)
			 ON CONFLICT(account_id, friend_id) DO UPDATE SET status = excluded.status, accepted_at = excluded.accepted_at`,
			friendID, accountID, model.FriendStatusAccepted,
		)
		if err != nil {
			return fmt.Errorf("write reciprocal friendship: %w", err)
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

// RejectRequest deletes a pending request from friendID. Returns false
// when no pending request exists.
func (s *FriendStore) RejectRequest(ctx context.Context, accountID, friendID string) (bool, error) {
	existing, err := s.get(ctx, accountID, friendID)
	if err != nil {
		return false, err
	}
	if existing == nil || existing.Status != model.FriendStatusPending {
		return false, nil
	}

	_, err = s.db.ExecContext(ctx, `DELETE FROM friends WHERE id = ?`, existing.ID)
	if err != nil {
		return false, fmt.Errorf("reject friend request: %w", err)
	}
	return true, nil
}

// Remove deletes the friendship rows in both directions.
func (s *FriendStore) Remove(ctx context.Context, accountID, friendID string) error {
	return runInTx(ctx, s.db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`DELETE FROM friends
			 WHERE (account_id = ? AND friend_id = ?) OR (account_id = ? AND friend_id = ?)`,
			accountID, friendID, friendID, accountID,
		)
		if err != nil {
			return fmt.Errorf("remove friend: %w", err)
		}
		return nil
	})
}

// List returns the account's friend rows with the given status, each
// joined with the friend's profile. Rows whose friend account vanished
// are skipped.
func (s *FriendStore) List(ctx context.Context, accountID, status string) ([]model.Friend, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT f.id, f.account_id, f.friend_id, f.status, f.added_at, f.accepted_at,
		        `+prefixedAccountCols("a")+`
		 FROM friends f
		 JOIN accounts a ON a.id = f.friend_id
		 WHERE f.account_id = ? AND f.status = ?
		 ORDER BY f.added_at DESC`,
		accountID, status,
	)
	if err != nil {
		return nil, fmt.Errorf("list friends: %w", err)
	}
	defer rows.Close()

	var friends []model.Friend
	for rows.Next() {
		f, err := scanFriendWithProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan friend: %w", err)
		}
		friends = append(friends, *f)
	}
	return friends, rows.Err()
}

// PendingRequests returns incoming pending requests for the account.
func (s *FriendStore) PendingRequests(ctx context.Context, accountID string) ([]model.Friend, error) {
	return s.List(ctx, accountID, model.FriendStatusPending)
}

func prefixedAccountCols(alias string) string {
	return alias + `.id, ` + alias + `.username, ` + alias + `.profile_picture, ` + alias + `.balance, ` +
		alias + `.games_played, ` + alias + `.recent_games, ` + alias + `.badges, ` + alias + `.premium, ` +
		alias + `.premium_since, ` + alias + `.last_activity_at, ` + alias + `.created_at`
}

func scanFriendWithProfile(rows *sql.Rows) (*model.Friend, error) {
	var f model.Friend
	var acceptedAt sql.NullTime
	var a model.Account
	var username sql.NullString
	var recentGames, badges string
	var premium int
	var premiumSince sql.NullTime

	err := rows.Scan(&f.ID, &f.AccountID, &f.FriendID, &f.Status, &f.AddedAt, &acceptedAt,
		&a.ID, &username, &a.ProfilePicture, &a.Balance, &a.GamesPlayed,
		&recentGames, &badges, &premium, &premiumSince, &a.LastActivityAt, &a.CreatedAt)
	if err != nil {
		return nil, err
	}

	if acceptedAt.Valid {
		t := acceptedAt.Time
		f.AcceptedAt = &t
	}
	a.Username = username.String
	a.Premium = premium != 0
	if premiumSince.Valid {
		t := premiumSince.Time
		a.PremiumSince = &t
	}
	decodeJSONList(recentGames, &a.RecentGames)
	decodeJSONList(badges, &a.Badges)
	f.Profile = &a
	return &f, nil
}
