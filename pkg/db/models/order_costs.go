package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderCosts caches the derived cost breakdown for one order. Every field is a
// pure function of other tables; the row can always be recomputed from scratch.
type OrderCosts struct {
	OrderID   uuid.UUID       `gorm:"column:order_id;type:uuid;primaryKey"`
	Casting   decimal.Decimal `gorm:"column:casting;type:numeric(12,2);not null;default:0"`
	Diamond   decimal.Decimal `gorm:"column:diamond;type:numeric(12,2);not null;default:0"`
	Labor     decimal.Decimal `gorm:"column:labor;type:numeric(12,2);not null;default:0"`
	UpdatedAt time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (OrderCosts) TableName() string { return "order_costs" }

// Total sums the cached subtotals.
func (c OrderCosts) Total() decimal.Decimal {
	return c.Casting.Add(c.Diamond).Add(c.Labor)
}
