package inventory

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/davidhalperin/gemcore-backend/pkg/db/models"
)

// ErrInsufficientStock is returned when a delta would drive a parcel's carat
// total or stone count below zero.
var ErrInsufficientStock = errors.New("insufficient parcel stock")

// Repository exposes persistence operations for inventory parcels.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, parcel *models.InventoryParcel) (*models.InventoryParcel, error)
	FindByID(ctx context.Context, parcelID string) (*models.InventoryParcel, error)
	FindByIDWithChildren(ctx context.Context, parcelID string) (*models.InventoryParcel, error)
	List(ctx context.Context, filter ListFilter) ([]models.InventoryParcel, error)
	Update(ctx context.Context, parcel *models.InventoryParcel) error
	MarkParent(ctx context.Context, parcelID string) error
	Delete(ctx context.Context, parcelID string) error

	// ApplyDelta atomically shifts a parcel's stock by the signed amounts. The
	// update is guarded so neither the carat total nor the stone count can go
	// negative; a delta that would is rejected with ErrInsufficientStock. The
	// returned parcel reflects the post-update totals.
	ApplyDelta(ctx context.Context, tx *gorm.DB, parcelID string, stonesDelta int, caratDelta decimal.Decimal) (*models.InventoryParcel, error)
}

// ListFilter narrows parcel listings.
type ListFilter struct {
	Shape       string
	ParentsOnly bool
	InStockOnly bool
	After       string
	Limit       int
}
