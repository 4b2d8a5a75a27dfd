package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"roomcraft/internal/config"
	"roomcraft/internal/storage"
)

// fixture mirrors the JSON layout of a catalog seed file. Entries are created
// in dependency order so furniture can reference the rest by id.
type fixture struct {
	Colors      []storage.Color      `json:"colors"`
	Materials   []storage.Material   `json:"materials"`
	RoomTypes   []storage.RoomType   `json:"room_types"`
	Stores      []storage.StoreInfo  `json:"stores"`
	Categories  []storage.Category   `json:"categories"`
	Furniture   []storage.Furniture  `json:"furniture"`
	Preferences []storage.Preference `json:"preferences"`
}

func main() {
	var (
		fixturePath = flag.String("fixture", "catalog.json", "Path to catalog fixture file")
	)
	flag.Parse()

	cfg := config.FromEnv()
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is required to seed the catalog")
	}

	raw, err := os.ReadFile(*fixturePath)
	if err != nil {
		log.Fatalf("read fixture: %v", err)
	}
	var fx fixture
	if err := json.Unmarshal(raw, &fx); err != nil {
		log.Fatalf("parse fixture: %v", err)
	}

	ctx := context.Background()
	store, err := storage.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("connect store: %v", err)
	}
	defer store.Close()

	if err := seed(ctx, store, fx); err != nil {
		log.Fatalf("seed: %v", err)
	}
}

func seed(ctx context.Context, store storage.Store, fx fixture) error {
	for _, c := range fx.Colors {
		if _, err := store.CreateColor(ctx, c); err != nil {
			return fmt.Errorf("color %q: %w", c.Name, err)
		}
	}
	for _, m := range fx.Materials {
		if _, err := store.CreateMaterial(ctx, m); err != nil {
			return fmt.Errorf("material %q: %w", m.Name, err)
		}
	}
	for _, rt := range fx.RoomTypes {
		if _, err := store.CreateRoomType(ctx, rt); err != nil {
			return fmt.Errorf("room type %q: %w", rt.Name, err)
		}
	}
	for _, s := range fx.Stores {
		if _, err := store.CreateStoreInfo(ctx, s); err != nil {
			return fmt.Errorf("store %q: %w", s.Name, err)
		}
	}
	for _, c := range fx.Categories {
		if _, err := store.CreateCategory(ctx, c); err != nil {
			return fmt.Errorf("category %q: %w", c.Name, err)
		}
	}
	for _, f := range fx.Furniture {
		if _, err := store.CreateFurniture(ctx, f); err != nil {
			return fmt.Errorf("furniture %q: %w", f.Name, err)
		}
	}
	for _, p := range fx.Preferences {
		if _, err := store.UpsertPreference(ctx, p); err != nil {
			return fmt.Errorf("preference for %q: %w", p.UserID, err)
		}
	}

	fmt.Printf("seeded %d colors, %d materials, %d room types, %d stores, %d categories, %d furniture, %d preferences\n",
		len(fx.Colors), len(fx.Materials), len(fx.RoomTypes), len(fx.Stores),
		len(fx.Categories), len(fx.Furniture), len(fx.Preferences))
	return nil
}
