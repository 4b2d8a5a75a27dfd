package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedCatalog(t *testing.T, store *InMemoryStore) (Color, Material, StoreInfo, []Furniture) {
	t.Helper()
	ctx := context.Background()

	color, err := store.CreateColor(ctx, Color{ID: "c1", Name: "Warm Beige", Tone: "Neutral"})
	require.NoError(t, err)
	material, err := store.CreateMaterial(ctx, Material{ID: "m1", Name: "Oak Wood", Type: "Wood"})
	require.NoError(t, err)
	info, err := store.CreateStoreInfo(ctx, StoreInfo{ID: "s1", Name: "Nordic Home", Address: "Main St 1"})
	require.NoError(t, err)
	_, err = store.CreateRoomType(ctx, RoomType{ID: "rt-living", Name: "Living Room"})
	require.NoError(t, err)

	items := []Furniture{
		{ID: "f1", Name: "Linen Sofa", ColorID: "c1", Price: 450, MaterialID: "m1", StoreID: "s1", RoomTypeID: "rt-living"},
		{ID: "f2", Name: "Oak Coffee Table", ColorID: "c1", Price: 220, MaterialID: "m1", StoreID: "s1", RoomTypeID: "rt-living"},
		{ID: "f3", Name: "Accent Chair", ColorID: "c2", Price: 900, MaterialID: "m1", StoreID: "s1", RoomTypeID: "rt-living"},
		{ID: "f4", Name: "Bed Frame", ColorID: "c1", Price: 700, MaterialID: "m1", StoreID: "s1", RoomTypeID: "rt-bedroom"},
	}
	for _, item := range items {
		_, err := store.CreateFurniture(ctx, item)
		require.NoError(t, err)
	}
	return color, material, info, items
}

func TestFindFurnitureFilters(t *testing.T) {
	store := NewInMemoryStore()
	seedCatalog(t, store)
	ctx := context.Background()

	t.Run("room and price", func(t *testing.T) {
		items, err := store.FindFurniture(ctx, FurnitureFilter{RoomTypeID: "rt-living", MaxPrice: 500})
		require.NoError(t, err)
		require.Len(t, items, 2)
		for _, item := range items {
			assert.Equal(t, "rt-living", item.RoomTypeID)
			assert.Less(t, item.Price, 500.0)
		}
	})

	t.Run("price bound is exclusive", func(t *testing.T) {
		items, err := store.FindFurniture(ctx, FurnitureFilter{RoomTypeID: "rt-living", MaxPrice: 450})
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, "f2", items[0].ID)
	})

	t.Run("color filter", func(t *testing.T) {
		items, err := store.FindFurniture(ctx, FurnitureFilter{RoomTypeID: "rt-living", MaxPrice: 10000, ColorID: "c2"})
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, "f3", items[0].ID)
	})

	t.Run("no match", func(t *testing.T) {
		items, err := store.FindFurniture(ctx, FurnitureFilter{RoomTypeID: "rt-empty", MaxPrice: 10000})
		require.NoError(t, err)
		assert.Empty(t, items)
	})
}

func TestColorByTone(t *testing.T) {
	store := NewInMemoryStore()
	seedCatalog(t, store)
	ctx := context.Background()

	color, err := store.ColorByTone(ctx, "Neutral")
	require.NoError(t, err)
	assert.Equal(t, "c1", color.ID)

	_, err = store.ColorByTone(ctx, "Vibrant")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPreferenceByUser(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	_, err := store.PreferenceByUser(ctx, "u42")
	assert.ErrorIs(t, err, ErrNotFound)

	saved, err := store.UpsertPreference(ctx, Preference{UserID: "u42", Vibe: "Modern", ColorTone: "Neutral"})
	require.NoError(t, err)

	pref, err := store.PreferenceByUser(ctx, "u42")
	require.NoError(t, err)
	assert.Equal(t, saved.ID, pref.ID)
	assert.Equal(t, "Modern", pref.Vibe)

	// Upsert replaces the single record rather than adding a second one.
	_, err = store.UpsertPreference(ctx, Preference{UserID: "u42", ColorTone: "Earthy"})
	require.NoError(t, err)
	pref, err = store.PreferenceByUser(ctx, "u42")
	require.NoError(t, err)
	assert.Equal(t, saved.ID, pref.ID)
	assert.Equal(t, "Earthy", pref.ColorTone)
	assert.Empty(t, pref.Vibe)
}

func TestCreateRecommendedDesign(t *testing.T) {
	store := NewInMemoryStore()
	seedCatalog(t, store)
	ctx := context.Background()

	rec := Recommendation{UserID: "u42", FurnitureIDs: []string{"f1"}, MaterialIDs: []string{"m1"}}
	design := Design{
		FurnitureUsedID: "f1",
		MaterialUsedID:  "m1",
		RoomTypeID:      "rt-living",
		Budget:          500,
		CreatedBy:       "u42",
		ModelURL:        "/generated_images/u42/generated_image_1700000000000.png",
	}

	rec, design, err := store.CreateRecommendedDesign(ctx, rec, design)
	require.NoError(t, err)
	assert.NotEmpty(t, rec.ID)
	assert.NotEmpty(t, design.ID)
	assert.Equal(t, rec.ID, design.RecommendationID)
	assert.False(t, design.CreatedAt.IsZero())
}

func TestDesignsByUserJoins(t *testing.T) {
	store := NewInMemoryStore()
	seedCatalog(t, store)
	ctx := context.Background()

	_, _, err := store.CreateRecommendedDesign(ctx,
		Recommendation{UserID: "u42", FurnitureIDs: []string{"f1"}, MaterialIDs: []string{"m1"}},
		Design{FurnitureUsedID: "f1", MaterialUsedID: "m1", RoomTypeID: "rt-living", Budget: 500, CreatedBy: "u42", ModelURL: "/x"})
	require.NoError(t, err)
	_, _, err = store.CreateRecommendedDesign(ctx,
		Recommendation{UserID: "u7", FurnitureIDs: []string{"f3"}, MaterialIDs: []string{"m1"}},
		Design{FurnitureUsedID: "f3", MaterialUsedID: "m1", RoomTypeID: "rt-living", Budget: 1000, CreatedBy: "u7", ModelURL: "/y"})
	require.NoError(t, err)

	mine, err := store.DesignsByUser(ctx, "u42")
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "Linen Sofa", mine[0].Furniture.Name)
	assert.Equal(t, "Oak Wood", mine[0].Material.Name)
	assert.Contains(t, mine[0].Recommendation.FurnitureIDs, mine[0].Design.FurnitureUsedID)
	assert.Nil(t, mine[0].StoreDetail)

	all, err := store.SearchDesigns(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	for _, detail := range all {
		require.NotNil(t, detail.StoreDetail)
		assert.Equal(t, "Nordic Home", detail.StoreDetail.Name)
	}
}
