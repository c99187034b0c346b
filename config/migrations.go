package config

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"

	"github.com/terraflota/fleetops/models"
)

func Migrations(db *gorm.DB) error {
	m := gormigrate.New(db, gormigrate.DefaultOptions, []*gormigrate.Migration{
		{
			ID: "02032026_create_ledger_tables",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&models.FieldReport{}, &models.InventoryItem{},
					&models.InventoryMovement{}, &models.CommercialOperation{},
					&models.Sale{}, &models.SaleLine{}, &models.Tariff{},
					&models.AlertThreshold{}, &models.Alert{})
			},
		},
		{
			ID: "18032026_add_reconciliation_indexes",
			Migrate: func(tx *gorm.DB) error {
				// FindMissingSales scans trips by date/client; the ±1 day sale
				// match needs (client, sale_date).
				if err := tx.Exec("CREATE INDEX IF NOT EXISTS idx_field_reports_client_date ON field_reports (client, report_date)").Error; err != nil {
					return err
				}
				return tx.Exec("CREATE INDEX IF NOT EXISTS idx_sales_client_date ON sales (client, sale_date)").Error
			},
		},
		{
			ID: "07042026_one_active_alert_per_material_kind",
			Migrate: func(tx *gorm.DB) error {
				return tx.Exec("CREATE UNIQUE INDEX IF NOT EXISTS idx_alerts_active_material_kind ON alerts (material, kind) WHERE active").Error
			},
		},
		{
			ID: "21042026_add_cleared_to_alerts",
			Migrate: func(tx *gorm.DB) error {
				// deactivated rows double as re-raise suppression markers
				return tx.AutoMigrate(&models.Alert{})
			},
		},
	})

	return m.Migrate()
}
