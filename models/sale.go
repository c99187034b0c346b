package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SaleKind classifies what a sale bills for.
type SaleKind string

const (
	SaleMaterialOnly    SaleKind = "material_only"
	SaleFreightOnly     SaleKind = "freight_only"
	SaleMaterialFreight SaleKind = "material_freight"
	SaleHourlyRental    SaleKind = "hourly_rental"
	SaleOvertime        SaleKind = "overtime"
	SaleMaintenance     SaleKind = "maintenance"
	SaleFuel            SaleKind = "fuel"
	SaleDebrisFee       SaleKind = "debris_fee"
)

// GenerationKind tells whether a sale was derived from a report or entered by
// an operator.
type GenerationKind string

const (
	GenerationAutomatic GenerationKind = "automatic"
	GenerationManual    GenerationKind = "manual"
)

// Sale is a derived or manually entered commercial record. TotalValue is
// always recomputed from the line subtotals right before persistence and is
// never accepted from a caller.
type Sale struct {
	ID                  uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	SaleDate            time.Time       `gorm:"not null;index" json:"saleDate"`
	Client              string          `gorm:"not null;index" json:"client"`
	DeliveryCity        string          `json:"deliveryCity,omitempty"`
	Kind                SaleKind        `gorm:"not null" json:"kind"`
	OriginMaterial      string          `json:"originMaterial,omitempty"`
	DestinationMaterial string          `json:"destinationMaterial,omitempty"`
	PaymentTerm         string          `json:"paymentTerm,omitempty"`
	TotalValue          decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"totalValue"`
	GenerationKind      GenerationKind  `gorm:"not null" json:"generationKind"`
	SourceReportID      *uuid.UUID      `gorm:"type:uuid;index" json:"sourceReportId,omitempty"`
	PricedFallback      bool            `gorm:"not null;default:false" json:"pricedFallback"`
	Lines               []SaleLine      `gorm:"foreignKey:SaleID" json:"lines"`
	CreatedAt           time.Time       `gorm:"autoCreateTime" json:"createdAt"`
}

// SaleLineKind classifies a priced line item.
type SaleLineKind string

const (
	LineMaterial SaleLineKind = "material"
	LineFreight  SaleLineKind = "freight"
	LineRental   SaleLineKind = "rental"
	LineService  SaleLineKind = "service"
)

// SaleLine is one priced line of a sale. Subtotal = Quantity × UnitPrice.
type SaleLine struct {
	ID          uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	SaleID      uuid.UUID       `gorm:"type:uuid;not null;index" json:"saleId"`
	Kind        SaleLineKind    `gorm:"not null" json:"kind"`
	Description string          `gorm:"not null" json:"description"`
	Quantity    decimal.Decimal `gorm:"type:numeric(14,3);not null" json:"quantity"`
	UnitPrice   decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"unitPrice"`
	Subtotal    decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"subtotal"`
}
