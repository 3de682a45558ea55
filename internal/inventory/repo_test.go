package inventory

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/davidhalperin/gemcore-backend/pkg/db/models"
)

func setupInventoryTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	schema := `
CREATE TABLE IF NOT EXISTS inventory_parcels (
  parcel_id TEXT PRIMARY KEY,
  parent_parcel_id TEXT,
  is_parent INTEGER NOT NULL DEFAULT 0,
  total_carat NUMERIC NOT NULL DEFAULT 0,
  number_of_stones INTEGER NOT NULL DEFAULT 0,
  price_per_ct NUMERIC NOT NULL DEFAULT 0,
  shape TEXT,
  color TEXT,
  clarity TEXT,
  cut TEXT,
  certificate TEXT,
  comments TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(schema).Error)
	return db
}

func seedParcel(t *testing.T, db *gorm.DB, id string, carat string, stones int) {
	t.Helper()
	parcel := &models.InventoryParcel{
		ParcelID:       id,
		TotalCarat:     decimal.RequireFromString(carat),
		NumberOfStones: stones,
		PricePerCt:     decimal.RequireFromString("100"),
	}
	require.NoError(t, db.Create(parcel).Error)
}

func TestApplyDeltaDecrementsStock(t *testing.T) {
	db := setupInventoryTestDB(t)
	repo := NewRepository(db)
	seedParcel(t, db, "PAR-DELTA-1", "10.000", 20)

	parcel, err := repo.ApplyDelta(context.Background(), nil, "PAR-DELTA-1", -3, decimal.RequireFromString("-1.500"))
	require.NoError(t, err)

	assert.Equal(t, 17, parcel.NumberOfStones)
	assert.True(t, parcel.TotalCarat.Equal(decimal.RequireFromString("8.5")),
		"expected 8.5 got %s", parcel.TotalCarat)
}

func TestApplyDeltaRejectsOverdraw(t *testing.T) {
	db := setupInventoryTestDB(t)
	repo := NewRepository(db)
	seedParcel(t, db, "PAR-DELTA-2", "2.000", 4)

	_, err := repo.ApplyDelta(context.Background(), nil, "PAR-DELTA-2", -5, decimal.RequireFromString("-1.000"))
	require.ErrorIs(t, err, ErrInsufficientStock)

	// The parcel must be untouched after the rejected delta.
	parcel, err := repo.FindByID(context.Background(), "PAR-DELTA-2")
	require.NoError(t, err)
	assert.Equal(t, 4, parcel.NumberOfStones)
	assert.True(t, parcel.TotalCarat.Equal(decimal.RequireFromString("2")))
}

func TestApplyDeltaRejectsCaratOverdraw(t *testing.T) {
	db := setupInventoryTestDB(t)
	repo := NewRepository(db)
	seedParcel(t, db, "PAR-DELTA-3", "1.000", 10)

	_, err := repo.ApplyDelta(context.Background(), nil, "PAR-DELTA-3", -1, decimal.RequireFromString("-1.500"))
	require.ErrorIs(t, err, ErrInsufficientStock)
}

func TestApplyDeltaMissingParcel(t *testing.T) {
	db := setupInventoryTestDB(t)
	repo := NewRepository(db)

	_, err := repo.ApplyDelta(context.Background(), nil, "PAR-MISSING", -1, decimal.RequireFromString("-0.100"))
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestApplyDeltaRestoresStock(t *testing.T) {
	db := setupInventoryTestDB(t)
	repo := NewRepository(db)
	seedParcel(t, db, "PAR-DELTA-4", "5.000", 8)

	parcel, err := repo.ApplyDelta(context.Background(), nil, "PAR-DELTA-4", 3, decimal.RequireFromString("1.500"))
	require.NoError(t, err)
	assert.Equal(t, 11, parcel.NumberOfStones)
	assert.True(t, parcel.TotalCarat.Equal(decimal.RequireFromString("6.5")))
}

func TestListFiltersParentsAndStock(t *testing.T) {
	db := setupInventoryTestDB(t)
	repo := NewRepository(db)
	seedParcel(t, db, "PAR-LIST-1", "3.000", 6)
	seedParcel(t, db, "PAR-LIST-2", "0", 0)

	parentID := "PAR-LIST-1"
	child := &models.InventoryParcel{
		ParcelID:       "PAR-LIST-1-A",
		ParentParcelID: &parentID,
		TotalCarat:     decimal.RequireFromString("1.000"),
		NumberOfStones: 2,
	}
	require.NoError(t, db.Create(child).Error)

	parents, err := repo.List(context.Background(), ListFilter{ParentsOnly: true, After: "PAR-LIST-0"})
	require.NoError(t, err)
	ids := make([]string, 0, len(parents))
	for _, p := range parents {
		ids = append(ids, p.ParcelID)
	}
	assert.Contains(t, ids, "PAR-LIST-1")
	assert.Contains(t, ids, "PAR-LIST-2")
	assert.NotContains(t, ids, "PAR-LIST-1-A")

	inStock, err := repo.List(context.Background(), ListFilter{InStockOnly: true, After: "PAR-LIST-0"})
	require.NoError(t, err)
	ids = ids[:0]
	for _, p := range inStock {
		ids = append(ids, p.ParcelID)
	}
	assert.NotContains(t, ids, "PAR-LIST-2")
}
