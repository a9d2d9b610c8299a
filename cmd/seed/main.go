// Command seed loads the store catalog and game list from JSON files into
// the database. It is idempotent: rows are upserted by id or slug, so
// re-running after a catalog edit is safe.
package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/playblyza/blyza/internal/database"
	"github.com/playblyza/blyza/internal/model"
	"github.com/playblyza/blyza/internal/store"
)

type catalogItem struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Cost        string `json:"cost"`
	Image       string `json:"image"`
	Active      *bool  `json:"active"`
	SecretLink  string `json:"secret_link"`
}

type gameEntry struct {
	Slug        string `json:"slug"`
	Title       string `json:"title"`
	Category    string `json:"category"`
	AlwaysTrack bool   `json:"always_track"`
}

func main() {
	dbPath := flag.String("db", "blyza.db", "path to the database file")
	catalogPath := flag.String("catalog", "", "path to the store catalog JSON")
	gamesPath := flag.String("games", "", "path to the games JSON")
	flag.Parse()

	if *catalogPath == "" && *gamesPath == "" {
		log.Fatal("nothing to do: pass -catalog and/or -games")
	}

	db, err := database.Open(*dbPath)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()

	ctx := context.Background()

	if *catalogPath != "" {
		n, err := seedCatalog(ctx, db, *catalogPath)
		if err != nil {
			log.Fatalf("seed catalog: %v", err)
		}
		fmt.Printf("seeded %d store items\n", n)
	}

	if *gamesPath != "" {
		n, err := seedGames(ctx, db, *gamesPath)
		if err != nil {
			log.Fatalf("seed games: %v", err)
		}
		fmt.Printf("seeded %d games\n", n)
	}
}

func seedCatalog(ctx context.Context, db *sql.DB, path string) (int, error) {
	items, err := readJSON[catalogItem](path)
	if err != nil {
		return 0, err
	}

	shop := store.NewShopStore(db, slog.Default())
	for _, it := range items {
		if it.ID == "" || it.Title == "" {
			return 0, fmt.Errorf("catalog item missing id or title: %+v", it)
		}
		active := true
		if it.Active != nil {
			active = *it.Active
		}
		err := shop.UpsertItem(ctx, model.StoreItem{
			ID:          it.ID,
			Title:       it.Title,
			Description: it.Description,
			Cost:        it.Cost,
			Image:       it.Image,
			Active:      active,
		})
		if err != nil {
			return 0, fmt.Errorf("upsert item %s: %w", it.ID, err)
		}
		if it.SecretLink != "" {
			if err := shop.SetSecret(ctx, it.ID, it.SecretLink); err != nil {
				return 0, fmt.Errorf("set secret for %s: %w", it.ID, err)
			}
		}
	}
	return len(items), nil
}

func seedGames(ctx context.Context, db *sql.DB, path string) (int, error) {
	games, err := readJSON[gameEntry](path)
	if err != nil {
		return 0, err
	}

	gs := store.NewGameStore(db)
	for _, g := range games {
		if g.Slug == "" || g.Title == "" {
			return 0, fmt.Errorf("game missing slug or title: %+v", g)
		}
		err := gs.Upsert(ctx, model.Game{
			Slug:        g.Slug,
			Title:       g.Title,
			Category:    g.Category,
			AlwaysTrack: g.AlwaysTrack,
		})
		if err != nil {
			return 0, fmt.Errorf("upsert game %s: %w", g.Slug, err)
		}
	}
	return len(games), nil
}

func readJSON[T any](path string) ([]T, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var out []T
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return out, nil
}
