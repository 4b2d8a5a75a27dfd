package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists the catalog and generation records in PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// PreferenceByUser returns the user's saved preference record.
func (s *PostgresStore) PreferenceByUser(ctx context.Context, userID string) (Preference, error) {
	var pref Preference
	var vibe *string
	err := s.pool.QueryRow(ctx,
		`SELECT id, user_id, vibe, color_tone FROM preferences WHERE user_id = $1`,
		userID).Scan(&pref.ID, &pref.UserID, &vibe, &pref.ColorTone)
	if errors.Is(err, pgx.ErrNoRows) {
		return Preference{}, ErrNotFound
	}
	if err != nil {
		return Preference{}, fmt.Errorf("query preference: %w", err)
	}
	if vibe != nil {
		pref.Vibe = *vibe
	}
	return pref, nil
}

// ColorByTone returns a color whose tone classification matches.
func (s *PostgresStore) ColorByTone(ctx context.Context, tone string) (Color, error) {
	var color Color
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, tone FROM colors WHERE tone = $1 LIMIT 1`,
		tone).Scan(&color.ID, &color.Name, &color.Tone)
	if errors.Is(err, pgx.ErrNoRows) {
		return Color{}, ErrNotFound
	}
	if err != nil {
		return Color{}, fmt.Errorf("query color: %w", err)
	}
	return color, nil
}

// FindFurniture returns catalog items matching the filter.
func (s *PostgresStore) FindFurniture(ctx context.Context, filter FurnitureFilter) ([]Furniture, error) {
	query := `SELECT id, name, category_id, color_id, width, height, depth,
		COALESCE(picture_url, ''), price, material_id, store_id, room_type_id
		FROM furniture WHERE room_type_id = $1 AND price < $2`
	args := []any{filter.RoomTypeID, filter.MaxPrice}
	if filter.ColorID != "" {
		query += ` AND color_id = $3`
		args = append(args, filter.ColorID)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query furniture: %w", err)
	}
	defer rows.Close()

	items := []Furniture{}
	for rows.Next() {
		var item Furniture
		if err := rows.Scan(&item.ID, &item.Name, &item.CategoryID, &item.ColorID,
			&item.Width, &item.Height, &item.Depth, &item.PictureURL,
			&item.Price, &item.MaterialID, &item.StoreID, &item.RoomTypeID); err != nil {
			return nil, fmt.Errorf("scan furniture: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// CreateRecommendedDesign inserts the recommendation and design in a single
// transaction so a failing design insert never leaves an orphaned
// recommendation behind.
func (s *PostgresStore) CreateRecommendedDesign(ctx context.Context, rec Recommendation, design Design) (Recommendation, Design, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	if design.ID == "" {
		design.ID = uuid.NewString()
	}
	if design.CreatedAt.IsZero() {
		design.CreatedAt = time.Now()
	}
	design.RecommendationID = rec.ID

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return Recommendation{}, Design{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`INSERT INTO recommendations (id, user_id, furniture_ids, material_ids, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		rec.ID, rec.UserID, rec.FurnitureIDs, rec.MaterialIDs, rec.CreatedAt); err != nil {
		return Recommendation{}, Design{}, fmt.Errorf("insert recommendation: %w", err)
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO designs (id, furniture_used_id, material_used_id, recommendation_id,
		 room_type_id, budget, created_by, model_url, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		design.ID, design.FurnitureUsedID, design.MaterialUsedID, design.RecommendationID,
		design.RoomTypeID, design.Budget, design.CreatedBy, design.ModelURL, design.CreatedAt); err != nil {
		return Recommendation{}, Design{}, fmt.Errorf("insert design: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return Recommendation{}, Design{}, fmt.Errorf("commit tx: %w", err)
	}
	return rec, design, nil
}

const designDetailQuery = `SELECT
	d.id, d.furniture_used_id, d.material_used_id, d.recommendation_id,
	d.room_type_id, d.budget, d.created_by, d.model_url, d.created_at,
	f.id, f.name, f.category_id, f.color_id, f.width, f.height, f.depth,
	COALESCE(f.picture_url, ''), f.price, f.material_id, f.store_id, f.room_type_id,
	m.id, m.name, m.type, COALESCE(m.description, ''), COALESCE(m.hex, ''), COALESCE(m.image_url, ''),
	r.id, r.user_id, r.furniture_ids, r.material_ids, r.created_at
	FROM designs d
	JOIN furniture f ON f.id = d.furniture_used_id
	JOIN materials m ON m.id = d.material_used_id
	JOIN recommendations r ON r.id = d.recommendation_id`

// DesignsByUser returns the caller's designs with their referenced records joined.
func (s *PostgresStore) DesignsByUser(ctx context.Context, userID string) ([]DesignDetail, error) {
	rows, err := s.pool.Query(ctx,
		designDetailQuery+` WHERE d.created_by = $1 ORDER BY d.created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("query designs: %w", err)
	}
	defer rows.Close()
	return scanDesignDetails(rows, false)
}

// SearchDesigns returns every design joined with its references plus the
// furniture's store.
func (s *PostgresStore) SearchDesigns(ctx context.Context) ([]DesignDetail, error) {
	query := `SELECT
	d.id, d.furniture_used_id, d.material_used_id, d.recommendation_id,
	d.room_type_id, d.budget, d.created_by, d.model_url, d.created_at,
	f.id, f.name, f.category_id, f.color_id, f.width, f.height, f.depth,
	COALESCE(f.picture_url, ''), f.price, f.material_id, f.store_id, f.room_type_id,
	m.id, m.name, m.type, COALESCE(m.description, ''), COALESCE(m.hex, ''), COALESCE(m.image_url, ''),
	r.id, r.user_id, r.furniture_ids, r.material_ids, r.created_at,
	s.id, s.name, s.address, COALESCE(s.website, ''), COALESCE(s.image_url, ''),
	COALESCE(s.longitude, 0), COALESCE(s.latitude, 0)
	FROM designs d
	JOIN furniture f ON f.id = d.furniture_used_id
	JOIN materials m ON m.id = d.material_used_id
	JOIN recommendations r ON r.id = d.recommendation_id
	JOIN stores s ON s.id = f.store_id
	ORDER BY d.created_at DESC`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query designs: %w", err)
	}
	defer rows.Close()
	return scanDesignDetails(rows, true)
}

func scanDesignDetails(rows pgx.Rows, withStore bool) ([]DesignDetail, error) {
	details := []DesignDetail{}
	for rows.Next() {
		var detail DesignDetail
		dest := []any{
			&detail.Design.ID, &detail.Design.FurnitureUsedID, &detail.Design.MaterialUsedID,
			&detail.Design.RecommendationID, &detail.Design.RoomTypeID, &detail.Design.Budget,
			&detail.Design.CreatedBy, &detail.Design.ModelURL, &detail.Design.CreatedAt,
			&detail.Furniture.ID, &detail.Furniture.Name, &detail.Furniture.CategoryID,
			&detail.Furniture.ColorID, &detail.Furniture.Width, &detail.Furniture.Height,
			&detail.Furniture.Depth, &detail.Furniture.PictureURL, &detail.Furniture.Price,
			&detail.Furniture.MaterialID, &detail.Furniture.StoreID, &detail.Furniture.RoomTypeID,
			&detail.Material.ID, &detail.Material.Name, &detail.Material.Type,
			&detail.Material.Description, &detail.Material.Hex, &detail.Material.ImageURL,
			&detail.Recommendation.ID, &detail.Recommendation.UserID,
			&detail.Recommendation.FurnitureIDs, &detail.Recommendation.MaterialIDs,
			&detail.Recommendation.CreatedAt,
		}
		if withStore {
			detail.StoreDetail = &StoreInfo{}
			dest = append(dest,
				&detail.StoreDetail.ID, &detail.StoreDetail.Name, &detail.StoreDetail.Address,
				&detail.StoreDetail.Website, &detail.StoreDetail.ImageURL,
				&detail.StoreDetail.Longitude, &detail.StoreDetail.Latitude)
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan design: %w", err)
		}
		details = append(details, detail)
	}
	return details, rows.Err()
}

// CreateColor inserts a catalog color.
func (s *PostgresStore) CreateColor(ctx context.Context, color Color) (Color, error) {
	if color.ID == "" {
		color.ID = uuid.NewString()
	}
	if _, err := s.pool.Exec(ctx,
		`INSERT INTO colors (id, name, tone) VALUES ($1, $2, $3)`,
		color.ID, color.Name, color.Tone); err != nil {
		return Color{}, fmt.Errorf("insert color: %w", err)
	}
	return color, nil
}

// CreateMaterial inserts a material.
func (s *PostgresStore) CreateMaterial(ctx context.Context, material Material) (Material, error) {
	if material.ID == "" {
		material.ID = uuid.NewString()
	}
	if _, err := s.pool.Exec(ctx,
		`INSERT INTO materials (id, name, type, description, hex, image_url)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		material.ID, material.Name, material.Type, material.Description,
		material.Hex, material.ImageURL); err != nil {
		return Material{}, fmt.Errorf("insert material: %w", err)
	}
	return material, nil
}

// CreateRoomType inserts a room type.
func (s *PostgresStore) CreateRoomType(ctx context.Context, roomType RoomType) (RoomType, error) {
	if roomType.ID == "" {
		roomType.ID = uuid.NewString()
	}
	if _, err := s.pool.Exec(ctx,
		`INSERT INTO room_types (id, name) VALUES ($1, $2)`,
		roomType.ID, roomType.Name); err != nil {
		return RoomType{}, fmt.Errorf("insert room type: %w", err)
	}
	return roomType, nil
}

// CreateStoreInfo inserts a retail store.
func (s *PostgresStore) CreateStoreInfo(ctx context.Context, info StoreInfo) (StoreInfo, error) {
	if info.ID == "" {
		info.ID = uuid.NewString()
	}
	if _, err := s.pool.Exec(ctx,
		`INSERT INTO stores (id, name, address, website, image_url, longitude, latitude)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		info.ID, info.Name, info.Address, info.Website, info.ImageURL,
		info.Longitude, info.Latitude); err != nil {
		return StoreInfo{}, fmt.Errorf("insert store: %w", err)
	}
	return info, nil
}

// CreateCategory inserts a furniture category.
func (s *PostgresStore) CreateCategory(ctx context.Context, category Category) (Category, error) {
	if category.ID == "" {
		category.ID = uuid.NewString()
	}
	if _, err := s.pool.Exec(ctx,
		`INSERT INTO categories (id, name, room_type_id) VALUES ($1, $2, $3)`,
		category.ID, category.Name, category.RoomTypeID); err != nil {
		return Category{}, fmt.Errorf("insert category: %w", err)
	}
	return category, nil
}

// CreateFurniture inserts a catalog item.
func (s *PostgresStore) CreateFurniture(ctx context.Context, item Furniture) (Furniture, error) {
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	if _, err := s.pool.Exec(ctx,
		`INSERT INTO furniture (id, name, category_id, color_id, width, height, depth,
		 picture_url, price, material_id, store_id, room_type_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		item.ID, item.Name, item.CategoryID, item.ColorID, item.Width, item.Height,
		item.Depth, item.PictureURL, item.Price, item.MaterialID, item.StoreID,
		item.RoomTypeID); err != nil {
		return Furniture{}, fmt.Errorf("insert furniture: %w", err)
	}
	return item, nil
}

// UpsertPreference creates or replaces the user's single preference record.
func (s *PostgresStore) UpsertPreference(ctx context.Context, pref Preference) (Preference, error) {
	if pref.ID == "" {
		pref.ID = uuid.NewString()
	}
	if _, err := s.pool.Exec(ctx,
		`INSERT INTO preferences (id, user_id, vibe, color_tone) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (user_id) DO UPDATE SET vibe = EXCLUDED.vibe, color_tone = EXCLUDED.color_tone`,
		pref.ID, pref.UserID, nullable(pref.Vibe), pref.ColorTone); err != nil {
		return Preference{}, fmt.Errorf("upsert preference: %w", err)
	}
	return pref, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Close releases database resources.
func (s *PostgresStore) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}
