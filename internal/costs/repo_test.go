package costs

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/davidhalperin/gemcore-backend/pkg/db/models"
	"github.com/davidhalperin/gemcore-backend/pkg/enums"
)

func setupCostsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	statements := []string{
		`CREATE TABLE IF NOT EXISTS orders (
  id TEXT PRIMARY KEY,
  order_number TEXT NOT NULL,
  customer_name TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'draft',
  notes TEXT,
  created_by TEXT NOT NULL,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS casting_lines (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  description TEXT NOT NULL,
  metal TEXT,
  weight_grams NUMERIC NOT NULL DEFAULT 0,
  price NUMERIC NOT NULL DEFAULT 0,
  created_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS diamond_deductions (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  type TEXT NOT NULL,
  parcel_id TEXT,
  ct_weight NUMERIC NOT NULL,
  stones INTEGER NOT NULL DEFAULT 0,
  price_per_ct NUMERIC NOT NULL DEFAULT 0,
  total_price NUMERIC NOT NULL DEFAULT 0,
  comments TEXT,
  include_in_item_cost INTEGER NOT NULL DEFAULT 1,
  added_to_stock INTEGER NOT NULL DEFAULT 0,
  created_by TEXT NOT NULL,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS order_costs (
  order_id TEXT PRIMARY KEY,
  casting NUMERIC NOT NULL DEFAULT 0,
  diamond NUMERIC NOT NULL DEFAULT 0,
  labor NUMERIC NOT NULL DEFAULT 0,
  updated_at DATETIME
);`,
	}
	for _, stmt := range statements {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}

func seedOrder(t *testing.T, db *gorm.DB) uuid.UUID {
	t.Helper()
	order := &models.Order{
		ID:           uuid.New(),
		OrderNumber:  uuid.NewString(),
		CustomerName: "Walk-in",
		Status:       enums.OrderStatusInProgress,
		CreatedBy:    uuid.New(),
	}
	require.NoError(t, db.Create(order).Error)
	return order.ID
}

func seedDeduction(t *testing.T, db *gorm.DB, orderID uuid.UUID, dedType enums.DeductionType, total string, stones int, include, restored bool) {
	t.Helper()
	row := &models.DiamondDeduction{
		ID:                uuid.New(),
		OrderID:           orderID,
		Type:              dedType,
		CtWeight:          decimal.RequireFromString("1.000"),
		Stones:            stones,
		PricePerCt:        decimal.RequireFromString(total),
		TotalPrice:        decimal.RequireFromString(total),
		IncludeInItemCost: include,
		AddedToStock:      restored,
		CreatedBy:         uuid.New(),
	}
	require.NoError(t, db.Create(row).Error)
}

func TestSumDiamondExcludesRestoredAndExcludedRows(t *testing.T) {
	db := setupCostsTestDB(t)
	repo := NewRepository(db)
	orderID := seedOrder(t, db)

	seedDeduction(t, db, orderID, enums.DeductionTypeCenter, "600", 1, true, false)
	seedDeduction(t, db, orderID, enums.DeductionTypeSide, "200", 4, true, false)
	// Excluded by flag.
	seedDeduction(t, db, orderID, enums.DeductionTypeManual, "999", 0, false, false)
	// Restored to stock: excluded even though the include flag is still set.
	seedDeduction(t, db, orderID, enums.DeductionTypeSide, "500", 2, true, true)

	total, err := repo.SumDiamond(context.Background(), orderID)
	require.NoError(t, err)
	assert.True(t, total.Equal(decimal.RequireFromString("800")), "expected 800 got %s", total)
}

func TestLaborCountsIgnoreRestoredDeductions(t *testing.T) {
	db := setupCostsTestDB(t)
	repo := NewRepository(db)
	orderID := seedOrder(t, db)

	seedDeduction(t, db, orderID, enums.DeductionTypeSide, "100", 5, true, false)
	seedDeduction(t, db, orderID, enums.DeductionTypeSide, "100", 3, true, true)
	seedDeduction(t, db, orderID, enums.DeductionTypeCenter, "400", 1, true, true)

	counts, err := repo.LaborCounts(context.Background(), orderID)
	require.NoError(t, err)
	assert.Equal(t, 5, counts.SideStones)
	assert.False(t, counts.HasCenter, "restored center stone no longer drives the setup fee")
}

func TestLaborCountsNeedStonesForCenterFee(t *testing.T) {
	db := setupCostsTestDB(t)
	repo := NewRepository(db)
	orderID := seedOrder(t, db)

	// A center-typed row without stones does not carry a settable stone.
	seedDeduction(t, db, orderID, enums.DeductionTypeCenter, "400", 0, true, false)

	counts, err := repo.LaborCounts(context.Background(), orderID)
	require.NoError(t, err)
	assert.False(t, counts.HasCenter, "zero-stone center deduction must not add the setup fee")

	seedDeduction(t, db, orderID, enums.DeductionTypeCenter, "400", 1, true, false)

	counts, err = repo.LaborCounts(context.Background(), orderID)
	require.NoError(t, err)
	assert.True(t, counts.HasCenter)
}

func TestSumCasting(t *testing.T) {
	db := setupCostsTestDB(t)
	repo := NewRepository(db)
	orderID := seedOrder(t, db)

	for _, price := range []string{"45.50", "30.00"} {
		line := &models.CastingLine{
			ID:          uuid.New(),
			OrderID:     orderID,
			Description: "casting",
			Price:       decimal.RequireFromString(price),
		}
		require.NoError(t, db.Create(line).Error)
	}

	total, err := repo.SumCasting(context.Background(), orderID)
	require.NoError(t, err)
	assert.True(t, total.Equal(decimal.RequireFromString("75.5")), "expected 75.5 got %s", total)
}

func TestUpsertReplacesCacheRow(t *testing.T) {
	db := setupCostsTestDB(t)
	repo := NewRepository(db)
	orderID := seedOrder(t, db)

	require.NoError(t, repo.Upsert(context.Background(), &models.OrderCosts{
		OrderID: orderID,
		Casting: decimal.RequireFromString("10"),
		Diamond: decimal.RequireFromString("20"),
		Labor:   decimal.RequireFromString("35"),
	}))
	require.NoError(t, repo.Upsert(context.Background(), &models.OrderCosts{
		OrderID: orderID,
		Casting: decimal.RequireFromString("15"),
		Diamond: decimal.RequireFromString("25"),
		Labor:   decimal.RequireFromString("40"),
	}))

	row, err := repo.Get(context.Background(), orderID)
	require.NoError(t, err)
	assert.True(t, row.Casting.Equal(decimal.RequireFromString("15")))
	assert.True(t, row.Diamond.Equal(decimal.RequireFromString("25")))
	assert.True(t, row.Labor.Equal(decimal.RequireFromString("40")))
}
