package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/playblyza/blyza/internal/model"
)

// GameStore holds the launchable game catalog.
type GameStore struct {
	db *sql.DB
}

func NewGameStore(db *sql.DB) *GameStore {
	return &GameStore{db: db}
}

const gameCols = `id, slug, title, category, always_track, created_at`

func scanGame(scanner interface{ Scan(...any) error }) (*model.Game, error) {
	var g model.Game
	var alwaysTrack int

	err := scanner.Scan(&g.ID, &g.Slug, &g.Title, &g.Category, &alwaysTrack, &g.CreatedAt)
	if err != nil {
		return nil, err
	}

	g.AlwaysTrack = alwaysTrack != 0
	return &g, nil
}

func (s *GameStore) Upsert(ctx context.Context, g model.Game) error {
	var alwaysTrack int
	if g.AlwaysTrack {
		alwaysTrack = 1
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO games (slug, title, category, always_track) VALUES (?, ?, ?, ?)
		 ON CONFLICT(slug) DO UPDATE SET title = excluded.title, category = excluded.category,
		 always_track = excluded.always_track`,
		g.Slug, g.Title, g.Category, alwaysTrack,
	)
	if err != nil {
		return fmt.Errorf("upsert game: %w", err)
	}
	return nil
}

func (s *GameStore) GetBySlug(ctx context.Context, slug string) (*model.Game, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+gameCols+` FROM games WHERE slug = ?`, slug)
	g, err := scanGame(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get game: %w", err)
	}
	return g, nil
}

// List returns games, optionally filtered by category.
func (s *GameStore) List(ctx context.Context, category string) ([]model.Game, error) {
	q := `SELECT ` + gameCols + ` FROM games ORDER BY title ASC`
	args := []any{}
	if category != "" {
		q = `SELECT ` + gameCols + ` FROM games WHERE category = ? ORDER BY title ASC`
		args = append(args, category)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list games: %w", err)
	}
	defer rows.Close()

	var games []model.Game
	for rows.Next() {
		g, err := scanGame(rows)
		if err != nil {
			return nil, fmt.Errorf("scan game: %w", err)
		}
		games = append(games, *g)
	}
	return games, rows.Err()
}
