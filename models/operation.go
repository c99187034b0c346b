package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// SourceKind tells where the material of a commercial operation came from.
type SourceKind string

const (
	SourceCollectionYard SourceKind = "collection_yard"
	SourceExternalQuarry SourceKind = "external_quarry"
)

// CommercialOperation groups the trip legs of one physical material movement
// under a normalized (date, client, material) key, so a load reported by a
// loader and the matching haul reported by a dump truck bill as one sale
// instead of two. Once SaleGenerated flips true the operation is terminal.
type CommercialOperation struct {
	ID                  uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OpKey               string          `gorm:"uniqueIndex;not null" json:"opKey"`
	OperationDate       time.Time       `gorm:"not null;index" json:"operationDate"`
	Client              string          `gorm:"not null" json:"client"`
	Material            string          `gorm:"not null" json:"material"`
	SourceKind          SourceKind      `gorm:"not null" json:"sourceKind"`
	LinkedReportIDs     pq.StringArray  `gorm:"type:text[]" json:"linkedReportIds"`
	AccumulatedQuantity decimal.Decimal `gorm:"type:numeric(14,3);not null" json:"accumulatedQuantity"`
	SaleGenerated       bool            `gorm:"not null;default:false" json:"saleGenerated"`
	LinkedSaleID        *uuid.UUID      `gorm:"type:uuid" json:"linkedSaleId,omitempty"`
	CreatedAt           time.Time       `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt           time.Time       `gorm:"autoUpdateTime" json:"updatedAt"`
}

// HasReport reports whether the given report id is already linked.
func (op *CommercialOperation) HasReport(id uuid.UUID) bool {
	for _, linked := range op.LinkedReportIDs {
		if linked == id.String() {
			return true
		}
	}
	return false
}
