package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/playblyza/blyza/internal/model"
)

// GameOpenReward is the number of Blyza Bucks credited per tracked game open.
const GameOpenReward = 5

var (
	ErrUsernameTaken   = errors.New("username is already taken")
	ErrInvalidUsername = errors.New("username must be 3-20 characters of lowercase letters, numbers, underscores, and hyphens")
)

var usernamePattern = regexp.MustCompile(`^[a-z0-9_-]+$`)

// AccountStore owns account documents: the Blyza Bucks balance, play
// counters, profile fields, and the premium flag. Every mutation runs in
// a transaction and stamps last_activity_at.
type AccountStore struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewAccountStore(db *sql.DB, logger *slog.Logger) *AccountStore {
	return &AccountStore{db: db, logger: logger}
}

const accountCols = `id, username, profile_picture, balance, games_played, recent_games, badges, premium, premium_since, last_activity_at, created_at`

func scanAccount(scanner interface{ Scan(...any) error }) (*model.Account, error) {
	var a model.Account
	var username sql.NullString
	var recentGames, badges string
	var premium int
	var premiumSince sql.NullTime

	err := scanner.Scan(&a.ID, &username, &a.ProfilePicture, &a.Balance, &a.GamesPlayed,
		&recentGames, &badges, &premium, &premiumSince, &a.LastActivityAt, &a.CreatedAt)
	if err != nil {
		return nil, err
	}

	a.Username = username.String
	a.Premium = premium != 0
	if premiumSince.Valid {
		t := premiumSince.Time
		a.PremiumSince = &t
	}
	decodeJSONList(recentGames, &a.RecentGames)
	decodeJSONList(badges, &a.Badges)
	return &a, nil
}

func decodeJSONList(raw string, dst *[]string) {
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		*dst = nil
	}
}

// EnsureAccount creates the account document if it does not exist and
// stamps last_activity_at either way. Safe to call on every sign-in.
func (s *AccountStore) EnsureAccount(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO accounts (id) VALUES (?)
		 ON CONFLICT(id) DO UPDATE SET last_activity_at = CURRENT_TIMESTAMP`,
		id,
	)
	if err != nil {
		return fmt.Errorf("ensure account: %w", err)
	}
	return nil
}

func (s *AccountStore) GetByID(ctx context.Context, id string) (*model.Account, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+accountCols+` FROM accounts WHERE id = ?`, id)
	a, err := scanAccount(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}
	return a, nil
}

func (s *AccountStore) GetByUsername(ctx context.Context, username string) (*model.Account, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+accountCols+` FROM accounts WHERE username = ?`,
		strings.ToLower(strings.TrimSpace(username)),
	)
	a, err := scanAccount(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get account by username: %w", err)
	}
	return a, nil
}

// SearchByUsername returns accounts whose username starts with the given
// term, excluding the searching account itself.
func (s *AccountStore) SearchByUsername(ctx context.Context, term, excludeID string, limit int) ([]model.Account, error) {
	if limit <= 0 {
		limit = 10
	}
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+accountCols+` FROM accounts
		 WHERE username LIKE ? || '%' AND username IS NOT NULL AND id != ?
		 ORDER BY username ASC LIMIT ?`,
		term, excludeID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("search accounts: %w", err)
	}
	defer rows.Close()

	var accounts []model.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		accounts = append(accounts, *a)
	}
	return accounts, rows.Err()
}

// UpdateProfile updates mutable profile fields and stamps activity.
func (s *AccountStore) UpdateProfile(ctx context.Context, id, profilePicture string) (*model.Account, error) {
	_, err := s.db.ExecContext(ctx,
		`UPDATE accounts SET profile_picture = ?, last_activity_at = CURRENT_TIMESTAMP WHERE id = ?`,
		profilePicture, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return s.GetByID(ctx, id)
}

// ClaimUsername reserves a username for the account. Usernames are
// lowercased and globally unique; re-claiming your own username is a
// no-op rather than an error.
func (s *AccountStore) ClaimUsername(ctx context.Context, id, username string) error {
	name := strings.ToLower(strings.TrimSpace(username))
	if len(name) < 3 || len(name) > 20 || !usernamePattern.MatchString(name) {
		return ErrInvalidUsername
	}

	return runInTx(ctx, s.db, func(tx *sql.Tx) error {
		var owner string
		err := tx.QueryRowContext(ctx, `SELECT id FROM accounts WHERE username = ?`, name).Scan(&owner)
		if err != nil && err != sql.ErrNoRows {
			return fmt.Errorf("check username: %w", err)
		}
		if err == nil && owner != id {
			return ErrUsernameTaken
		}

		res, err := tx.ExecContext(ctx,
			`UPDATE accounts SET username = ?, last_activity_at = CURRENT_TIMESTAMP WHERE id = ?`,
			name, id,
		)
		if err != nil {
			return fmt.Errorf("set username: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			_, err = tx.ExecContext(ctx,
				`INSERT INTO accounts (id, username) VALUES (?, ?)`,
				id, name,
			)
			if err != nil {
				return fmt.Errorf("create account with username: %w", err)
			}
		}
		return nil
	})
}

// AdjustBalance applies delta to the account's balance inside a
// transaction and returns the new balance. Negative results are clamped
// to zero, not rejected; the account is created lazily if missing.
// Guarded purchases must go through ShopStore.Redeem instead, which
// treats insufficient funds as a hard failure.
func (s *AccountStore) AdjustBalance(ctx context.Context, id string, delta int) (int, error) {
	var newBalance int
	err := runInTx(ctx, s.db, func(tx *sql.Tx) error {
		var current int
		err := tx.QueryRowContext(ctx, `SELECT balance FROM accounts WHERE id = ?`, id).Scan(&current)
		if err == sql.ErrNoRows {
			newBalance = max(0, delta)
			_, err = tx.ExecContext(ctx,
				`INSERT INTO accounts (id, balance) VALUES (?, ?)`,
				id, newBalance,
			)
			if err != nil {
				return fmt.Errorf("create account: %w", err)
			}
			return nil
		}
		if err != nil {
			return fmt.Errorf("read balance: %w", err)
		}

		newBalance = max(0, current+delta)
		if current+delta < 0 {
			s.logger.Warn("balance adjustment clamped to zero",
				"account", id, "balance", current, "delta", delta)
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE accounts SET balance = ?, last_activity_at = CURRENT_TIMESTAMP WHERE id = ?`,
			newBalance, id,
		)
		if err != nil {
			return fmt.Errorf("write balance: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return newBalance, nil
}

// GetBalance returns the current balance, or 0 when the account does not
// exist. It never errors for a missing account.
func (s *AccountStore) GetBalance(ctx context.Context, id string) (int, error) {
	var balance int
	err := s.db.QueryRowContext(ctx, `SELECT balance FROM accounts WHERE id = ?`, id).Scan(&balance)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get balance: %w", err)
	}
	return balance, nil
}

// RecordGameOpen credits one game open: games_played += 1, balance +=
// GameOpenReward, and the game moves to the front of recent_games (dedup,
// cap 5). All three effects commit atomically.
func (s *AccountStore) RecordGameOpen(ctx context.Context, id, gameID string) error {
	return runInTx(ctx, s.db, func(tx *sql.Tx) error {
		var balance, gamesPlayed int
		var recentRaw string
		err := tx.QueryRowContext(ctx,
			`SELECT balance, games_played, recent_games FROM accounts WHERE id = ?`, id,
		).Scan(&balance, &gamesPlayed, &recentRaw)
		if err == sql.ErrNoRows {
			recent, _ := json.Marshal([]string{gameID})
			_, err = tx.ExecContext(ctx,
				`INSERT INTO accounts (id, balance, games_played, recent_games) VALUES (?, ?, 1, ?)`,
				id, GameOpenReward, string(recent),
			)
			if err != nil {
				return fmt.Errorf("create account on game open: %w", err)
			}
			return nil
		}
		if err != nil {
			return fmt.Errorf("read account: %w", err)
		}

		var recent []string
		if err := json.Unmarshal([]byte(recentRaw), &recent); err != nil {
			recent = nil
		}
		updated, _ := json.Marshal(moveToFront(recent, gameID))

		_, err = tx.ExecContext(ctx,
			`UPDATE accounts
			 SET balance = ?, games_played = ?, recent_games = ?, last_activity_at = CURRENT_TIMESTAMP
			 WHERE id = ?`,
			balance+GameOpenReward, gamesPlayed+1, string(updated), id,
		)
		if err != nil {
			return fmt.Errorf("write game open: %w", err)
		}
		return nil
	})
}

// SetPremium flips the premium flag. Idempotent: repeated calls keep the
// original premium_since. Returns true only on the first activation.
func (s *AccountStore) SetPremium(ctx context.Context, id string) (bool, error) {
	var upgraded bool
	err := runInTx(ctx, s.db, func(tx *sql.Tx) error {
		var premium int
		err := tx.QueryRowContext(ctx, `SELECT premium FROM accounts WHERE id = ?`, id).Scan(&premium)
		if err == sql.ErrNoRows {
			_, err = tx.ExecContext(ctx,
				`INSERT INTO accounts (id, premium, premium_since) VALUES (?, 1, CURRENT_TIMESTAMP)`,
				id,
			)
			if err != nil {
				return fmt.Errorf("create premium account: %w", err)
			}
			upgraded = true
			return nil
		}
		if err != nil {
			return fmt.Errorf("read premium flag: %w", err)
		}
		if premium != 0 {
			upgraded = false
			return nil
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE accounts
			 SET premium = 1, premium_since = CURRENT_TIMESTAMP, last_activity_at = CURRENT_TIMESTAMP
			 WHERE id = ?`,
			id,
		)
		if err != nil {
			return fmt.Errorf("set premium: %w", err)
		}
		upgraded = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return upgraded, nil
}

// moveToFront places gameID at index 0, removes any duplicate, and caps
// the list at RecentGamesCap entries.
func moveToFront(list []string, gameID string) []string {
	out := make([]string, 0, len(list)+1)
	out = append(out, gameID)
	for _, g := range list {
		if g != gameID {
			out = append(out, g)
		}
	}
	if len(out) > model.RecentGamesCap {
		out = out[:model.RecentGamesCap]
	}
	return out
}
