package deductions

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/davidhalperin/gemcore-backend/pkg/db/models"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a deductions repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, deduction *models.DiamondDeduction) (*models.DiamondDeduction, error) {
	if err := r.db.WithContext(ctx).Create(deduction).Error; err != nil {
		return nil, err
	}
	return deduction, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.DiamondDeduction, error) {
	var deduction models.DiamondDeduction
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&deduction).Error; err != nil {
		return nil, err
	}
	return &deduction, nil
}

func (r *repository) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.DiamondDeduction, error) {
	var list []models.DiamondDeduction
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC, id ASC").
		Find(&list).Error
	if err != nil {
		return nil, err
	}
	return list, nil
}

func (r *repository) Update(ctx context.Context, deduction *models.DiamondDeduction) error {
	return r.db.WithContext(ctx).Save(deduction).Error
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.DiamondDeduction{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) SetIncludeInCost(ctx context.Context, id uuid.UUID, include bool) error {
	return r.setFlag(ctx, id, "include_in_item_cost", include)
}

func (r *repository) SetAddedToStock(ctx context.Context, id uuid.UUID, added bool) error {
	return r.setFlag(ctx, id, "added_to_stock", added)
}

func (r *repository) setFlag(ctx context.Context, id uuid.UUID, column string, value bool) error {
	res := r.db.WithContext(ctx).
		Model(&models.DiamondDeduction{}).
		Where("id = ?", id).
		Update(column, value)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
