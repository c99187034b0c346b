package handlers

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/terraflota/fleetops/config"
	"github.com/terraflota/fleetops/models"
)

// AlertMonitor watches inventory levels against configured thresholds and
// raises deduplicated stock alerts.
type AlertMonitor struct {
	db       *gorm.DB
	notifier Notifier
}

// NewAlertMonitor creates a monitor bound to the shared store and the default
// notification sink.
func NewAlertMonitor() *AlertMonitor {
	return &AlertMonitor{db: config.DB, notifier: NewLogNotifier()}
}

// ClassifyStock buckets an available quantity against a threshold. An empty
// kind means the level is normal.
func ClassifyStock(available, minQty, criticalQty decimal.Decimal) models.AlertKind {
	switch {
	case available.IsZero() || available.IsNegative():
		return models.AlertOutOfStock
	case available.LessThanOrEqual(criticalQty):
		return models.AlertCritical
	case available.LessThanOrEqual(minQty):
		return models.AlertLow
	default:
		return ""
	}
}

// shouldRaise reports whether a new alert row may be created for kind. An
// active row of the same kind means the condition is already alerted. An
// inactive row that was never cleared means an operator dismissed the alert
// while the condition still held; that suppresses re-raising until a later
// evaluation finds the stock back at a normal level and clears the row.
func shouldRaise(kind models.AlertKind, history []models.Alert) bool {
	for _, a := range history {
		if a.Kind != kind {
			continue
		}
		if a.Active || !a.Cleared {
			return false
		}
	}
	return true
}

// Evaluate re-checks one material after a ledger mutation. A normal stock
// level clears the material's suppression markers; a low level creates and
// notifies a new alert only when shouldRaise allows it. Materials without a
// threshold are not monitored.
func (m *AlertMonitor) Evaluate(ctx context.Context, material string) (*models.Alert, error) {
	var threshold models.AlertThreshold
	err := m.db.WithContext(ctx).Where("LOWER(material) = ?", normalizeToken(material)).First(&threshold).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, wrapPersistence("Evaluate", err)
	}

	var item models.InventoryItem
	available := decimal.Zero
	err = m.db.WithContext(ctx).Where("LOWER(material) = ?", normalizeToken(material)).First(&item).Error
	if err == nil {
		available = item.QuantityAvailable
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, wrapPersistence("Evaluate", err)
	}

	kind := ClassifyStock(available, threshold.MinQuantity, threshold.CriticalQuantity)
	if kind == "" {
		// stock recovered: clear the suppression markers so the next drop
		// below a threshold raises again
		err := m.db.WithContext(ctx).Model(&models.Alert{}).
			Where("LOWER(material) = ? AND cleared = ?", normalizeToken(material), false).
			Update("cleared", true).Error
		if err != nil {
			return nil, wrapPersistence("Evaluate", err)
		}
		return nil, nil
	}

	var history []models.Alert
	if err := m.db.WithContext(ctx).
		Where("LOWER(material) = ?", normalizeToken(material)).
		Find(&history).Error; err != nil {
		return nil, wrapPersistence("Evaluate", err)
	}
	if !shouldRaise(kind, history) {
		return nil, nil
	}

	alert := &models.Alert{
		Material:   threshold.Material,
		Kind:       kind,
		DetectedAt: time.Now().UTC(),
		Active:     true,
	}
	if err := m.db.WithContext(ctx).Create(alert).Error; err != nil {
		return nil, wrapPersistence("Evaluate", err)
	}

	m.notifier.Notify(alertLevel(kind), "stock alert: "+threshold.Material, map[string]interface{}{
		"material":  threshold.Material,
		"kind":      string(kind),
		"available": available.String(),
	})
	return alert, nil
}

// Deactivate closes an alert. The closed row stays behind uncleared, so the
// same (material, kind) is only raised again once stock has crossed back
// above its thresholds and dropped a second time.
func (m *AlertMonitor) Deactivate(ctx context.Context, id string) error {
	result := m.db.WithContext(ctx).Model(&models.Alert{}).
		Where("id = ? AND active = ?", id, true).
		Update("active", false)
	if result.Error != nil {
		return wrapPersistence("Deactivate", result.Error)
	}
	if result.RowsAffected == 0 {
		return &ValidationError{Reason: "no active alert with id " + id}
	}
	return nil
}

func alertLevel(kind models.AlertKind) string {
	switch kind {
	case models.AlertOutOfStock, models.AlertCritical:
		return NotifyCritical
	default:
		return NotifyWarning
	}
}
