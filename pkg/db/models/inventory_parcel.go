package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// InventoryParcel is a lot of diamonds tracked as one inventory unit. The
// parcel id is the business key assigned by the office (e.g. "PAR-0042"), not
// a surrogate. A parent parcel owns zero or more sub-parcels split off it;
// the hierarchy is a single level deep.
type InventoryParcel struct {
	ParcelID       string          `gorm:"column:parcel_id;primaryKey"`
	ParentParcelID *string         `gorm:"column:parent_parcel_id;index"`
	IsParent       bool            `gorm:"column:is_parent;not null;default:false"`
	TotalCarat     decimal.Decimal `gorm:"column:total_carat;type:numeric(12,3);not null;default:0"`
	NumberOfStones int             `gorm:"column:number_of_stones;not null;default:0"`
	PricePerCt     decimal.Decimal `gorm:"column:price_per_ct;type:numeric(12,2);not null;default:0"`

	Shape       *string `gorm:"column:shape"`
	Color       *string `gorm:"column:color"`
	Clarity     *string `gorm:"column:clarity"`
	Cut         *string `gorm:"column:cut"`
	Certificate *string `gorm:"column:certificate"`
	Comments    *string `gorm:"column:comments"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`

	SubParcels []InventoryParcel `gorm:"foreignKey:ParentParcelID;references:ParcelID"`
}

func (InventoryParcel) TableName() string { return "inventory_parcels" }
