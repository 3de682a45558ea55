package costs

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/davidhalperin/gemcore-backend/pkg/db/models"
	"github.com/davidhalperin/gemcore-backend/pkg/enums"
)

// LaborCounts holds the deduction-derived inputs to the labor formula.
type LaborCounts struct {
	SideStones int
	HasCenter  bool
}

// Repository exposes the aggregate reads and the cache upsert for order costs.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	OrderExists(ctx context.Context, orderID uuid.UUID) (bool, error)
	SumCasting(ctx context.Context, orderID uuid.UUID) (decimal.Decimal, error)
	SumDiamond(ctx context.Context, orderID uuid.UUID) (decimal.Decimal, error)
	LaborCounts(ctx context.Context, orderID uuid.UUID) (LaborCounts, error)
	Upsert(ctx context.Context, costs *models.OrderCosts) error
	Get(ctx context.Context, orderID uuid.UUID) (*models.OrderCosts, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a costs repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) OrderExists(ctx context.Context, orderID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", orderID).
		Count(&count).Error
	return count > 0, err
}

func (r *repository) SumCasting(ctx context.Context, orderID uuid.UUID) (decimal.Decimal, error) {
	var result struct {
		Total decimal.Decimal
	}
	err := r.db.WithContext(ctx).
		Model(&models.CastingLine{}).
		Select("COALESCE(SUM(price), 0) AS total").
		Where("order_id = ?", orderID).
		Scan(&result).Error
	return result.Total, err
}

// SumDiamond totals the deduction snapshots that still count toward the order.
// A deduction restored to stock is excluded even when its include flag is set.
func (r *repository) SumDiamond(ctx context.Context, orderID uuid.UUID) (decimal.Decimal, error) {
	var result struct {
		Total decimal.Decimal
	}
	err := r.db.WithContext(ctx).
		Model(&models.DiamondDeduction{}).
		Select("COALESCE(SUM(total_price), 0) AS total").
		Where("order_id = ?", orderID).
		Where("include_in_item_cost = ?", true).
		Where("added_to_stock = ?", false).
		Scan(&result).Error
	return result.Total, err
}

func (r *repository) LaborCounts(ctx context.Context, orderID uuid.UUID) (LaborCounts, error) {
	var counts LaborCounts

	var sideResult struct {
		Total int
	}
	err := r.db.WithContext(ctx).
		Model(&models.DiamondDeduction{}).
		Select("COALESCE(SUM(stones), 0) AS total").
		Where("order_id = ?", orderID).
		Where("type = ?", enums.DeductionTypeSide).
		Where("added_to_stock = ?", false).
		Scan(&sideResult).Error
	if err != nil {
		return counts, err
	}
	counts.SideStones = sideResult.Total

	// The setup fee needs an actual center stone, not just a center-typed row.
	var centerCount int64
	err = r.db.WithContext(ctx).
		Model(&models.DiamondDeduction{}).
		Where("order_id = ?", orderID).
		Where("type = ?", enums.DeductionTypeCenter).
		Where("added_to_stock = ?", false).
		Where("stones > 0").
		Count(&centerCount).Error
	if err != nil {
		return counts, err
	}
	counts.HasCenter = centerCount > 0

	return counts, nil
}

func (r *repository) Upsert(ctx context.Context, costs *models.OrderCosts) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "order_id"}},
			UpdateAll: true,
		}).
		Create(costs).Error
}

func (r *repository) Get(ctx context.Context, orderID uuid.UUID) (*models.OrderCosts, error) {
	var row models.OrderCosts
	if err := r.db.WithContext(ctx).Where("order_id = ?", orderID).First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}
