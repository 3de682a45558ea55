package deductions

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/davidhalperin/gemcore-backend/internal/history"
	"github.com/davidhalperin/gemcore-backend/pkg/db/models"
)

// Repository exposes persistence operations for diamond deductions.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, deduction *models.DiamondDeduction) (*models.DiamondDeduction, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.DiamondDeduction, error)
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.DiamondDeduction, error)
	Update(ctx context.Context, deduction *models.DiamondDeduction) error
	Delete(ctx context.Context, id uuid.UUID) error
	SetIncludeInCost(ctx context.Context, id uuid.UUID, include bool) error
	SetAddedToStock(ctx context.Context, id uuid.UUID, added bool) error
}

// InventoryAdjuster applies guarded stock deltas inside the engine's
// transactions.
type InventoryAdjuster interface {
	ApplyDelta(ctx context.Context, tx *gorm.DB, parcelID string, stonesDelta int, caratDelta decimal.Decimal) (*models.InventoryParcel, error)
}

type parcelReader interface {
	FindByID(ctx context.Context, parcelID string) (*models.InventoryParcel, error)
}

type historyStore interface {
	Record(ctx context.Context, entry history.Entry)
	Erase(ctx context.Context, deductionID uuid.UUID)
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.ParcelHistoryEntry, error)
}

type costRecalculator interface {
	Recalculate(ctx context.Context, orderID uuid.UUID) (*models.OrderCosts, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}
