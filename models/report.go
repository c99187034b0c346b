package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ReportType classifies a field activity submission.
type ReportType string

const (
	ReportHoursWorked     ReportType = "hours_worked"
	ReportOvertime        ReportType = "overtime"
	ReportTrip            ReportType = "trip"
	ReportFuel            ReportType = "fuel"
	ReportMaintenance     ReportType = "maintenance"
	ReportIncident        ReportType = "incident"
	ReportDebrisReception ReportType = "debris_reception"
)

// EquipmentClass is the closed classification tag assigned to a machine at
// registration. All billing logic dispatches on this tag, never on machine
// names.
type EquipmentClass string

const (
	EquipmentLoader        EquipmentClass = "loader"
	EquipmentDumpTruck     EquipmentClass = "dump_truck"
	EquipmentCrawler       EquipmentClass = "crawler"
	EquipmentRoller        EquipmentClass = "roller"
	EquipmentGrader        EquipmentClass = "grader"
	EquipmentDredge        EquipmentClass = "dredge"
	EquipmentLowboyTrailer EquipmentClass = "lowboy_trailer"
	EquipmentDebrisSite    EquipmentClass = "debris_site"
	EquipmentOther         EquipmentClass = "other"
)

// FieldReport represents one field activity submission. The id comes from the
// capture client and doubles as the dedup key: a row is created exactly once
// and never mutated afterwards. Movements and sales reference reports by id.
type FieldReport struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	Type           ReportType      `gorm:"not null;index" json:"type"`
	EquipmentID    string          `gorm:"not null" json:"equipmentId"`
	EquipmentClass EquipmentClass  `gorm:"not null" json:"equipmentClass"`
	ReportDate     time.Time       `gorm:"not null;index" json:"reportDate"`
	Origin         string          `json:"origin,omitempty"`
	Client         string          `gorm:"not null;index" json:"client"`
	Farm           string          `json:"farm,omitempty"`
	DeliveryCity   string          `json:"deliveryCity,omitempty"`
	Material       string          `gorm:"index" json:"material,omitempty"`
	QuantityM3     decimal.Decimal `gorm:"type:numeric(14,3)" json:"quantityM3"`
	Hours          decimal.Decimal `gorm:"type:numeric(8,2)" json:"hours"`
	Trips          int             `json:"trips"`
	Value          decimal.Decimal `gorm:"type:numeric(14,2)" json:"value"`
	Latitude       float64         `json:"latitude"`
	Longitude      float64         `json:"longitude"`
	SubmittedAt    JSONTime        `gorm:"not null" json:"submittedAt"`
	CreatedAt      time.Time       `gorm:"autoCreateTime" json:"createdAt"`
}
