package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/davidhalperin/gemcore-backend/pkg/enums"
)

// DiamondDeduction records diamonds taken out of inventory for one order.
// TotalPrice is a snapshot computed when the row is written (or when an edit
// explicitly recomputes it); it is never re-derived from the parcel afterwards.
type DiamondDeduction struct {
	ID                uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID           uuid.UUID           `gorm:"column:order_id;type:uuid;not null;index"`
	Type              enums.DeductionType `gorm:"column:type;type:deduction_type_enum;not null"`
	ParcelID          *string             `gorm:"column:parcel_id;index"`
	CtWeight          decimal.Decimal     `gorm:"column:ct_weight;type:numeric(12,3);not null"`
	Stones            int                 `gorm:"column:stones;not null;default:0"`
	PricePerCt        decimal.Decimal     `gorm:"column:price_per_ct;type:numeric(12,2);not null;default:0"`
	TotalPrice        decimal.Decimal     `gorm:"column:total_price;type:numeric(12,2);not null;default:0"`
	Comments          *string             `gorm:"column:comments"`
	IncludeInItemCost bool                `gorm:"column:include_in_item_cost;not null;default:true"`
	AddedToStock      bool                `gorm:"column:added_to_stock;not null;default:false"`
	CreatedBy         uuid.UUID           `gorm:"column:created_by;type:uuid;not null"`
	CreatedAt         time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (DiamondDeduction) TableName() string { return "diamond_deductions" }
