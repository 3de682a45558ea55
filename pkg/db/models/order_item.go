package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderItem is one finished piece on an order (ring, pendant, etc).
type OrderItem struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID     uuid.UUID       `gorm:"column:order_id;type:uuid;not null;index"`
	Name        string          `gorm:"column:name;not null"`
	Metal       *string         `gorm:"column:metal"`
	RingSize    *string         `gorm:"column:ring_size"`
	Qty         int             `gorm:"column:qty;not null;default:1"`
	SalePrice   decimal.Decimal `gorm:"column:sale_price;type:numeric(12,2);not null;default:0"`
	Description *string         `gorm:"column:description"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
