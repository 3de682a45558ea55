package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CastingLine is one casting charge on an order; the casting subtotal of the
// order's cost breakdown is the sum of these prices.
type CastingLine struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID     uuid.UUID       `gorm:"column:order_id;type:uuid;not null;index"`
	Description string          `gorm:"column:description;not null"`
	Metal       *string         `gorm:"column:metal"`
	WeightGrams decimal.Decimal `gorm:"column:weight_grams;type:numeric(12,3);not null;default:0"`
	Price       decimal.Decimal `gorm:"column:price;type:numeric(12,2);not null;default:0"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime"`
}
