package inventory

import (
	"context"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/davidhalperin/gemcore-backend/pkg/db/models"
	"github.com/davidhalperin/gemcore-backend/pkg/pagination"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds an inventory repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, parcel *models.InventoryParcel) (*models.InventoryParcel, error) {
	if err := r.db.WithContext(ctx).Create(parcel).Error; err != nil {
		return nil, err
	}
	return parcel, nil
}

func (r *repository) FindByID(ctx context.Context, parcelID string) (*models.InventoryParcel, error) {
	var parcel models.InventoryParcel
	if err := r.db.WithContext(ctx).Where("parcel_id = ?", parcelID).First(&parcel).Error; err != nil {
		return nil, err
	}
	return &parcel, nil
}

func (r *repository) FindByIDWithChildren(ctx context.Context, parcelID string) (*models.InventoryParcel, error) {
	var parcel models.InventoryParcel
	err := r.db.WithContext(ctx).
		Preload("SubParcels", func(db *gorm.DB) *gorm.DB {
			return db.Order("parcel_id ASC")
		}).
		Where("parcel_id = ?", parcelID).
		First(&parcel).Error
	if err != nil {
		return nil, err
	}
	return &parcel, nil
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]models.InventoryParcel, error) {
	query := r.db.WithContext(ctx).Model(&models.InventoryParcel{})

	if filter.Shape != "" {
		query = query.Where("shape = ?", filter.Shape)
	}
	if filter.ParentsOnly {
		query = query.Where("parent_parcel_id IS NULL")
	}
	if filter.InStockOnly {
		query = query.Where("total_carat > 0 OR number_of_stones > 0")
	}
	if filter.After != "" {
		query = query.Where("parcel_id > ?", filter.After)
	}

	var parcels []models.InventoryParcel
	err := query.
		Order("parcel_id ASC").
		Limit(pagination.NormalizeLimit(filter.Limit)).
		Find(&parcels).Error
	if err != nil {
		return nil, err
	}
	return parcels, nil
}

func (r *repository) Update(ctx context.Context, parcel *models.InventoryParcel) error {
	return r.db.WithContext(ctx).Save(parcel).Error
}

func (r *repository) MarkParent(ctx context.Context, parcelID string) error {
	return r.db.WithContext(ctx).
		Model(&models.InventoryParcel{}).
		Where("parcel_id = ?", parcelID).
		Update("is_parent", true).Error
}

func (r *repository) Delete(ctx context.Context, parcelID string) error {
	return r.db.WithContext(ctx).
		Where("parcel_id = ?", parcelID).
		Delete(&models.InventoryParcel{}).Error
}

func (r *repository) ApplyDelta(ctx context.Context, tx *gorm.DB, parcelID string, stonesDelta int, caratDelta decimal.Decimal) (*models.InventoryParcel, error) {
	conn := r.db
	if tx != nil {
		conn = tx
	}

	res := conn.WithContext(ctx).
		Model(&models.InventoryParcel{}).
		Where("parcel_id = ?", parcelID).
		Where("total_carat + ? >= 0", caratDelta).
		Where("number_of_stones + ? >= 0", stonesDelta).
		Updates(map[string]any{
			"total_carat":      gorm.Expr("total_carat + ?", caratDelta),
			"number_of_stones": gorm.Expr("number_of_stones + ?", stonesDelta),
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		// Either the parcel is missing or the guard rejected the delta.
		var parcel models.InventoryParcel
		if err := conn.WithContext(ctx).Where("parcel_id = ?", parcelID).First(&parcel).Error; err != nil {
			return nil, err
		}
		return nil, ErrInsufficientStock
	}

	var parcel models.InventoryParcel
	if err := conn.WithContext(ctx).Where("parcel_id = ?", parcelID).First(&parcel).Error; err != nil {
		return nil, err
	}
	return &parcel, nil
}
