package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// InventoryItem tracks the available stock of one material at the collection
// yard. Quantity never goes below zero; the ledger rejects over-withdrawal
// instead of clamping. Rows are mutated only through InventoryLedger
// operations.
type InventoryItem struct {
	ID                uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Material          string          `gorm:"uniqueIndex;not null" json:"material"`
	QuantityAvailable decimal.Decimal `gorm:"type:numeric(14,3);not null" json:"quantityAvailable"`
	AverageUnitCost   decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"averageUnitCost"`
	CreatedAt         time.Time       `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt         time.Time       `gorm:"autoUpdateTime" json:"updatedAt"`
}

// MovementKind classifies an inventory movement.
type MovementKind string

const (
	MovementEntry            MovementKind = "entry"
	MovementExit             MovementKind = "exit"
	MovementBreakdown        MovementKind = "breakdown"
	MovementManualAdjustment MovementKind = "manual_adjustment"
)

// InventoryMovement is one row of the append-only stock audit trail. Rows are
// written in the same transaction as the item update they describe and are
// never edited or deleted.
type InventoryMovement struct {
	ID             uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Kind           MovementKind    `gorm:"not null;index" json:"kind"`
	Material       string          `gorm:"not null;index" json:"material"`
	Quantity       decimal.Decimal `gorm:"type:numeric(14,3);not null" json:"quantity"`
	PriorQuantity  decimal.Decimal `gorm:"type:numeric(14,3);not null" json:"priorQuantity"`
	PostQuantity   decimal.Decimal `gorm:"type:numeric(14,3);not null" json:"postQuantity"`
	LinkedReportID *uuid.UUID      `gorm:"type:uuid;index" json:"linkedReportId,omitempty"`
	EquipmentID    string          `json:"equipmentId,omitempty"`
	Actor          string          `json:"actor,omitempty"`
	Note           string          `json:"note,omitempty"`
	Detail         datatypes.JSON  `gorm:"type:jsonb" json:"detail,omitempty"`
	CreatedAt      time.Time       `gorm:"autoCreateTime;index" json:"createdAt"`
}
