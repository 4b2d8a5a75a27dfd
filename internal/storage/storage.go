package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound indicates that a record could not be located in the backing store.
var ErrNotFound = errors.New("record not found")

// Vibes enumerates the supported interior-style preferences.
var Vibes = []string{"Minimalist", "Rustic", "Modern", "Bohemian", "Industrial", "Traditional"}

// Tones enumerates the supported color-tone preferences.
var Tones = []string{"Neutral", "Bold", "Pastel", "Monochromatic", "Earthy", "Vibrant"}

// MaterialTypes enumerates the supported material categories.
var MaterialTypes = []string{"Wood", "Metal", "Plastic", "Glass", "Fabric", "Stone"}

// Color is a catalog color with its tone classification.
type Color struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Tone string `json:"tone"`
}

// Material describes a furniture material.
type Material struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
	Hex         string `json:"hex,omitempty"`
	ImageURL    string `json:"image_url,omitempty"`
}

// RoomType is a named room category (living room, bedroom, ...).
type RoomType struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// StoreInfo describes a retail store carrying catalog furniture.
type StoreInfo struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Address   string  `json:"address"`
	Website   string  `json:"website,omitempty"`
	ImageURL  string  `json:"image_url,omitempty"`
	Longitude float64 `json:"longitude,omitempty"`
	Latitude  float64 `json:"latitude,omitempty"`
}

// Category groups furniture within a room type.
type Category struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	RoomTypeID string `json:"room_type_id"`
}

// Furniture is a single catalog item.
type Furniture struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	CategoryID string  `json:"category_id"`
	ColorID    string  `json:"color_id"`
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`
	Depth      float64 `json:"depth"`
	PictureURL string  `json:"picture_url,omitempty"`
	Price      float64 `json:"price"`
	MaterialID string  `json:"material_id"`
	StoreID    string  `json:"store_id"`
	RoomTypeID string  `json:"room_type_id"`
}

// Preference captures a user's saved style and color-tone choices.
// At most one per user.
type Preference struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id"`
	Vibe      string `json:"vibe,omitempty"`
	ColorTone string `json:"color_tone"`
}

// Recommendation records the furniture and materials suggested in one
// generation event.
type Recommendation struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	FurnitureIDs []string  `json:"furniture_ids"`
	MaterialIDs  []string  `json:"material_ids"`
	CreatedAt    time.Time `json:"created_at"`
}

// Design is the user-facing record of one generation event.
type Design struct {
	ID               string    `json:"id"`
	FurnitureUsedID  string    `json:"furniture_used_id"`
	MaterialUsedID   string    `json:"material_used_id"`
	RecommendationID string    `json:"recommendation_id"`
	RoomTypeID       string    `json:"room_type_id"`
	Budget           float64   `json:"budget"`
	CreatedBy        string    `json:"created_by"`
	ModelURL         string    `json:"model_url"`
	CreatedAt        time.Time `json:"created_at"`
}

// DesignDetail is a design joined with the entities it references.
// StoreDetail is populated only by SearchDesigns.
type DesignDetail struct {
	Design         Design         `json:"design"`
	Furniture      Furniture      `json:"furniture"`
	Material       Material       `json:"material"`
	Recommendation Recommendation `json:"recommendation"`
	StoreDetail    *StoreInfo     `json:"store,omitempty"`
}

// FurnitureFilter narrows catalog queries. MaxPrice is an exclusive upper
// bound and must always be set by the caller. ColorID is optional.
type FurnitureFilter struct {
	RoomTypeID string
	MaxPrice   float64
	ColorID    string
}

// Store defines the persistence behaviors the application relies on.
type Store interface {
	PreferenceByUser(ctx context.Context, userID string) (Preference, error)
	ColorByTone(ctx context.Context, tone string) (Color, error)
	FindFurniture(ctx context.Context, filter FurnitureFilter) ([]Furniture, error)

	// CreateRecommendedDesign persists a recommendation and the design that
	// references it as one atomic write. Either both records exist afterwards
	// or neither does.
	CreateRecommendedDesign(ctx context.Context, rec Recommendation, design Design) (Recommendation, Design, error)

	DesignsByUser(ctx context.Context, userID string) ([]DesignDetail, error)
	SearchDesigns(ctx context.Context) ([]DesignDetail, error)

	// Catalog writes, used by the seed tool and tests.
	CreateColor(ctx context.Context, color Color) (Color, error)
	CreateMaterial(ctx context.Context, material Material) (Material, error)
	CreateRoomType(ctx context.Context, roomType RoomType) (RoomType, error)
	CreateStoreInfo(ctx context.Context, info StoreInfo) (StoreInfo, error)
	CreateCategory(ctx context.Context, category Category) (Category, error)
	CreateFurniture(ctx context.Context, item Furniture) (Furniture, error)
	UpsertPreference(ctx context.Context, pref Preference) (Preference, error)

	Close()
}

// NewStore selects a backing store based on whether a database URL is provided.
func NewStore(ctx context.Context, databaseURL string) (Store, error) {
	if databaseURL == "" {
		return NewInMemoryStore(), nil
	}

	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := ensureSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresStore{pool: pool}, nil
}

func ensureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS colors (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			tone TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS materials (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			type TEXT NOT NULL,
			description TEXT,
			hex TEXT,
			image_url TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS room_types (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL UNIQUE
		)`,
		`CREATE TABLE IF NOT EXISTS stores (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			address TEXT NOT NULL,
			website TEXT,
			image_url TEXT,
			longitude DOUBLE PRECISION,
			latitude DOUBLE PRECISION
		)`,
		`CREATE TABLE IF NOT EXISTS categories (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			room_type_id TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS furniture (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			category_id TEXT NOT NULL,
			color_id TEXT NOT NULL,
			width DOUBLE PRECISION NOT NULL CHECK (width >= 0),
			height DOUBLE PRECISION NOT NULL CHECK (height >= 0),
			depth DOUBLE PRECISION NOT NULL CHECK (depth >= 0),
			picture_url TEXT,
			price DOUBLE PRECISION NOT NULL CHECK (price >= 0),
			material_id TEXT NOT NULL,
			store_id TEXT NOT NULL,
			room_type_id TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS preferences (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL UNIQUE,
			vibe TEXT,
			color_tone TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS recommendations (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			furniture_ids TEXT[] NOT NULL,
			material_ids TEXT[] NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS designs (
			id TEXT PRIMARY KEY,
			furniture_used_id TEXT NOT NULL,
			material_used_id TEXT NOT NULL,
			recommendation_id TEXT NOT NULL REFERENCES recommendations(id),
			room_type_id TEXT NOT NULL,
			budget DOUBLE PRECISION NOT NULL CHECK (budget >= 0),
			created_by TEXT NOT NULL,
			model_url TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS furniture_room_type_idx ON furniture (room_type_id)`,
		`CREATE INDEX IF NOT EXISTS designs_created_by_idx ON designs (created_by)`,
	}

	for _, stmt := range statements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
