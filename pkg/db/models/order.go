package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/davidhalperin/gemcore-backend/pkg/enums"
)

// Order is a customer job the office tracks items, castings, and diamond
// deductions against.
type Order struct {
	ID           uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderNumber  string            `gorm:"column:order_number;not null;uniqueIndex"`
	CustomerName string            `gorm:"column:customer_name;not null"`
	Status       enums.OrderStatus `gorm:"column:status;type:order_status_enum;not null;default:'draft'"`
	Notes        *string           `gorm:"column:notes"`
	CreatedBy    uuid.UUID         `gorm:"column:created_by;type:uuid;not null"`
	CreatedAt    time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time         `gorm:"column:updated_at;autoUpdateTime"`

	Items        []OrderItem   `gorm:"foreignKey:OrderID"`
	CastingLines []CastingLine `gorm:"foreignKey:OrderID"`
}
