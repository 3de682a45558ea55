package history

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/davidhalperin/gemcore-backend/pkg/db/models"
	"github.com/davidhalperin/gemcore-backend/pkg/pagination"
)

// Repository exposes persistence operations for parcel history entries.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, entry *models.ParcelHistoryEntry) (*models.ParcelHistoryEntry, error)
	DeleteByDeductionID(ctx context.Context, deductionID uuid.UUID) (int64, error)
	ListByParcel(ctx context.Context, parcelID string, params pagination.Params) ([]models.ParcelHistoryEntry, error)
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.ParcelHistoryEntry, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a history repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, entry *models.ParcelHistoryEntry) (*models.ParcelHistoryEntry, error) {
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		return nil, err
	}
	return entry, nil
}

func (r *repository) DeleteByDeductionID(ctx context.Context, deductionID uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("deduction_id = ?", deductionID).
		Delete(&models.ParcelHistoryEntry{})
	return res.RowsAffected, res.Error
}

func (r *repository) ListByParcel(ctx context.Context, parcelID string, params pagination.Params) ([]models.ParcelHistoryEntry, error) {
	query := r.db.WithContext(ctx).
		Where("parcel_id = ?", parcelID)

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}
	if cursor != nil {
		query = query.Where(
			"(created_at < ?) OR (created_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}

	var entries []models.ParcelHistoryEntry
	err = query.
		Order("created_at DESC, id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit)).
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *repository) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.ParcelHistoryEntry, error) {
	var entries []models.ParcelHistoryEntry
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}
