package storage

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryStore is a thread-safe store used when a database is not configured.
type InMemoryStore struct {
	mu              sync.RWMutex
	colors          []Color
	materials       []Material
	roomTypes       []RoomType
	stores          []StoreInfo
	categories      []Category
	furniture       []Furniture
	preferences     []Preference
	recommendations []Recommendation
	designs         []Design
}

// NewInMemoryStore constructs an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

// PreferenceByUser returns the user's preference record.
func (s *InMemoryStore) PreferenceByUser(_ context.Context, userID string) (Preference, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.preferences {
		if p.UserID == userID {
			return p, nil
		}
	}
	return Preference{}, ErrNotFound
}

// ColorByTone returns the first color matching the tone.
func (s *InMemoryStore) ColorByTone(_ context.Context, tone string) (Color, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, c := range s.colors {
		if c.Tone == tone {
			return c, nil
		}
	}
	return Color{}, ErrNotFound
}

// FindFurniture returns catalog items matching the filter.
func (s *InMemoryStore) FindFurniture(_ context.Context, filter FurnitureFilter) ([]Furniture, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := []Furniture{}
	for _, item := range s.furniture {
		if item.RoomTypeID != filter.RoomTypeID {
			continue
		}
		if item.Price >= filter.MaxPrice {
			continue
		}
		if filter.ColorID != "" && item.ColorID != filter.ColorID {
			continue
		}
		items = append(items, item)
	}
	return items, nil
}

// CreateRecommendedDesign appends both records under one lock so the pair is
// atomic with respect to concurrent readers.
func (s *InMemoryStore) CreateRecommendedDesign(_ context.Context, rec Recommendation, design Design) (Recommendation, Design, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

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

	s.recommendations = append(s.recommendations, rec)
	s.designs = append(s.designs, design)
	return rec, design, nil
}

// DesignsByUser returns the user's designs with referenced records joined.
func (s *InMemoryStore) DesignsByUser(_ context.Context, userID string) ([]DesignDetail, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	details := []DesignDetail{}
	for _, d := range s.designs {
		if d.CreatedBy != userID {
			continue
		}
		details = append(details, s.detailLocked(d, false))
	}
	return details, nil
}

// SearchDesigns returns all designs joined, including the furniture's store.
func (s *InMemoryStore) SearchDesigns(_ context.Context) ([]DesignDetail, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	details := []DesignDetail{}
	for _, d := range s.designs {
		details = append(details, s.detailLocked(d, true))
	}
	return details, nil
}

func (s *InMemoryStore) detailLocked(d Design, withStore bool) DesignDetail {
	detail := DesignDetail{Design: d}
	for _, f := range s.furniture {
		if f.ID == d.FurnitureUsedID {
			detail.Furniture = f
			break
		}
	}
	for _, m := range s.materials {
		if m.ID == d.MaterialUsedID {
			detail.Material = m
			break
		}
	}
	for _, r := range s.recommendations {
		if r.ID == d.RecommendationID {
			detail.Recommendation = r
			break
		}
	}
	if withStore {
		for _, st := range s.stores {
			if st.ID == detail.Furniture.StoreID {
				info := st
				detail.StoreDetail = &info
				break
			}
		}
	}
	return detail
}

// CreateColor stores a catalog color.
func (s *InMemoryStore) CreateColor(_ context.Context, color Color) (Color, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if color.ID == "" {
		color.ID = uuid.NewString()
	}
	s.colors = append(s.colors, color)
	return color, nil
}

// CreateMaterial stores a material.
func (s *InMemoryStore) CreateMaterial(_ context.Context, material Material) (Material, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if material.ID == "" {
		material.ID = uuid.NewString()
	}
	s.materials = append(s.materials, material)
	return material, nil
}

// CreateRoomType stores a room type.
func (s *InMemoryStore) CreateRoomType(_ context.Context, roomType RoomType) (RoomType, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if roomType.ID == "" {
		roomType.ID = uuid.NewString()
	}
	s.roomTypes = append(s.roomTypes, roomType)
	return roomType, nil
}

// CreateStoreInfo stores a retail store.
func (s *InMemoryStore) CreateStoreInfo(_ context.Context, info StoreInfo) (StoreInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if info.ID == "" {
		info.ID = uuid.NewString()
	}
	s.stores = append(s.stores, info)
	return info, nil
}

// CreateCategory stores a furniture category.
func (s *InMemoryStore) CreateCategory(_ context.Context, category Category) (Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if category.ID == "" {
		category.ID = uuid.NewString()
	}
	s.categories = append(s.categories, category)
	return category, nil
}

// CreateFurniture stores a catalog item.
func (s *InMemoryStore) CreateFurniture(_ context.Context, item Furniture) (Furniture, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	s.furniture = append(s.furniture, item)
	return item, nil
}

// UpsertPreference creates or replaces the user's preference record.
func (s *InMemoryStore) UpsertPreference(_ context.Context, pref Preference) (Preference, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if pref.ID == "" {
		pref.ID = uuid.NewString()
	}
	for i, existing := range s.preferences {
		if existing.UserID == pref.UserID {
			pref.ID = existing.ID
			s.preferences[i] = pref
			return pref, nil
		}
	}
	s.preferences = append(s.preferences, pref)
	return pref, nil
}

// Close satisfies the Store interface.
func (s *InMemoryStore) Close() {}
