package config

import (
	"log"

	"github.com/shopspring/decimal"

	"github.com/terraflota/fleetops/models"
)

// RunAllSeeding seeds reference data. Every step is idempotent: existing rows
// are left untouched.
func RunAllSeeding() error {
	log.Println("=== Starting Database Seeding ===")

	log.Println("[1/2] Seeding Alert Thresholds...")
	SeedAlertThresholds()

	log.Println("[2/2] Seeding Tariffs...")
	SeedTariffs()

	log.Println("=== Database Seeding Complete ===")
	return nil
}

// SeedAlertThresholds creates the default stock thresholds for the materials
// the yard normally carries.
func SeedAlertThresholds() {
	thresholds := []models.AlertThreshold{
		{Material: "arena", MinQuantity: decimal.NewFromInt(120), CriticalQuantity: decimal.NewFromInt(40)},
		{Material: "gravilla", MinQuantity: decimal.NewFromInt(100), CriticalQuantity: decimal.NewFromInt(30)},
		{Material: "relleno comun", MinQuantity: decimal.NewFromInt(200), CriticalQuantity: decimal.NewFromInt(60)},
		{Material: "base estabilizada", MinQuantity: decimal.NewFromInt(80), CriticalQuantity: decimal.NewFromInt(25)},
	}

	for _, th := range thresholds {
		var count int64
		DB.Model(&models.AlertThreshold{}).Where("material = ?", th.Material).Count(&count)
		if count > 0 {
			continue
		}
		if err := DB.Create(&th).Error; err != nil {
			log.Printf("Warning: could not seed threshold for %s: %v", th.Material, err)
		}
	}
}

// SeedTariffs creates a generic walk-in tariff so fresh installs can price
// sales before the commercial team loads the real sheets.
func SeedTariffs() {
	var count int64
	DB.Model(&models.Tariff{}).Count(&count)
	if count > 0 {
		return
	}

	generic := models.Tariff{
		Client:            "mostrador",
		MaterialUnitPrice: decimal.NewFromInt(9500),
		FreightUnitPrice:  decimal.NewFromInt(28000),
		HourlyRate:        decimal.NewFromInt(45000),
		Active:            true,
	}
	if err := DB.Create(&generic).Error; err != nil {
		log.Printf("Warning: could not seed generic tariff: %v", err)
	}
}
