package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AlertThreshold configures when the monitor raises stock alerts for one
// material. CriticalQuantity is expected to sit below MinQuantity.
type AlertThreshold struct {
	ID               uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Material         string          `gorm:"uniqueIndex;not null" json:"material"`
	MinQuantity      decimal.Decimal `gorm:"type:numeric(14,3);not null" json:"minQuantity"`
	CriticalQuantity decimal.Decimal `gorm:"type:numeric(14,3);not null" json:"criticalQuantity"`
	CreatedAt        time.Time       `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt        time.Time       `gorm:"autoUpdateTime" json:"updatedAt"`
}

// AlertKind is the severity bucket of a stock alert.
type AlertKind string

const (
	AlertLow        AlertKind = "low"
	AlertCritical   AlertKind = "critical"
	AlertOutOfStock AlertKind = "out_of_stock"
)

// Alert is a raised stock alert. At most one active row exists per
// (material, kind); deactivation is an explicit operator action. A
// deactivated row stays behind with Cleared=false as a suppression marker:
// the same (material, kind) is not raised again until an evaluation sees the
// stock back at a normal level, which flips Cleared.
type Alert struct {
	ID         uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Material   string    `gorm:"not null;index" json:"material"`
	Kind       AlertKind `gorm:"not null" json:"kind"`
	DetectedAt time.Time `gorm:"not null" json:"detectedAt"`
	Active     bool      `gorm:"not null;default:true;index" json:"active"`
	Cleared    bool      `gorm:"not null;default:false" json:"cleared"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}
