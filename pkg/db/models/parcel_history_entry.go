package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/davidhalperin/gemcore-backend/pkg/enums"
)

// ParcelHistoryEntry is one audit record of an inventory-affecting action
// against a parcel. Stones and CtWeight carry the signed magnitude of the
// change; TotalWeight snapshots the parcel's carat total after the action.
// Entries are append-only except for the restore flow, which deletes the rows
// linked to the reversed deduction before writing its restoration entry.
type ParcelHistoryEntry struct {
	ID          uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ParcelID    string                 `gorm:"column:parcel_id;not null;index"`
	Employee    string                 `gorm:"column:employee;not null"`
	Type        enums.HistoryEventType `gorm:"column:type;type:history_event_type_enum;not null"`
	Stones      int                    `gorm:"column:stones;not null;default:0"`
	CtWeight    decimal.Decimal        `gorm:"column:ct_weight;type:numeric(12,3);not null;default:0"`
	CtPrice     decimal.Decimal        `gorm:"column:ct_price;type:numeric(12,2);not null;default:0"`
	TotalWeight decimal.Decimal        `gorm:"column:total_weight;type:numeric(12,3);not null;default:0"`
	OrderID     *uuid.UUID             `gorm:"column:order_id;type:uuid"`
	Comments    *string                `gorm:"column:comments"`
	DeductionID *uuid.UUID             `gorm:"column:deduction_id;type:uuid;index"`
	CreatedAt   time.Time              `gorm:"column:created_at;autoCreateTime"`
}

func (ParcelHistoryEntry) TableName() string { return "parcel_history_entries" }
