package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Tariff is a negotiated price sheet row for one client route. Owned by the
// tariff management screens; the ledger only reads it. A zero rate means the
// rate is not negotiated and the corresponding sale line is omitted or
// default-priced.
type Tariff struct {
	ID                uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Client            string          `gorm:"not null;index" json:"client"`
	Farm              string          `json:"farm,omitempty"`
	Origin            string          `json:"origin,omitempty"`
	Destination       string          `json:"destination,omitempty"`
	MaterialUnitPrice decimal.Decimal `gorm:"type:numeric(14,2)" json:"materialUnitPrice"`
	FreightUnitPrice  decimal.Decimal `gorm:"type:numeric(14,2)" json:"freightUnitPrice"`
	HourlyRate        decimal.Decimal `gorm:"type:numeric(14,2)" json:"hourlyRate"`
	DailyRate         decimal.Decimal `gorm:"type:numeric(14,2)" json:"dailyRate"`
	MonthlyRate       decimal.Decimal `gorm:"type:numeric(14,2)" json:"monthlyRate"`
	Active            bool            `gorm:"not null;default:true" json:"active"`
	CreatedAt         time.Time       `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt         time.Time       `gorm:"autoUpdateTime" json:"updatedAt"`
	DeletedAt         gorm.DeletedAt  `gorm:"index" json:"-"`
}
