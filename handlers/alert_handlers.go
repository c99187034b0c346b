package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"github.com/terraflota/fleetops/config"
	"github.com/terraflota/fleetops/models"
)

// UpsertAlertThreshold creates or replaces the stock threshold for a
// material.
func UpsertAlertThreshold(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Material         string          `json:"material"`
		MinQuantity      decimal.Decimal `json:"minQuantity"`
		CriticalQuantity decimal.Decimal `json:"criticalQuantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Material == "" {
		http.Error(w, "material is required", http.StatusBadRequest)
		return
	}
	if req.MinQuantity.IsNegative() || req.CriticalQuantity.IsNegative() {
		http.Error(w, "thresholds cannot be negative", http.StatusBadRequest)
		return
	}
	if req.CriticalQuantity.GreaterThan(req.MinQuantity) {
		http.Error(w, "critical quantity cannot exceed minimum quantity", http.StatusBadRequest)
		return
	}

	threshold := models.AlertThreshold{
		Material:         normalizeToken(req.Material),
		MinQuantity:      req.MinQuantity,
		CriticalQuantity: req.CriticalQuantity,
	}

	var existing models.AlertThreshold
	err := config.DB.Where("material = ?", threshold.Material).First(&existing).Error
	if err == nil {
		existing.MinQuantity = threshold.MinQuantity
		existing.CriticalQuantity = threshold.CriticalQuantity
		if err := config.DB.Save(&existing).Error; err != nil {
			http.Error(w, "Failed to update threshold", http.StatusInternalServerError)
			return
		}
		threshold = existing
	} else {
		if err := config.DB.Create(&threshold).Error; err != nil {
			http.Error(w, "Failed to create threshold", http.StatusInternalServerError)
			return
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message":   "threshold saved",
		"threshold": threshold,
	})
}

// GetAllAlertThresholds lists configured thresholds.
func GetAllAlertThresholds(w http.ResponseWriter, r *http.Request) {
	var thresholds []models.AlertThreshold
	if err := config.DB.Order("material ASC").Find(&thresholds).Error; err != nil {
		http.Error(w, "Failed to fetch thresholds", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"thresholds": thresholds,
		"count":      len(thresholds),
	})
}

// GetAllAlerts lists alerts, active ones only by default.
func GetAllAlerts(w http.ResponseWriter, r *http.Request) {
	query := config.DB.Model(&models.Alert{})
	if r.URL.Query().Get("all") != "true" {
		query = query.Where("active = ?", true)
	}

	var alerts []models.Alert
	if err := query.Order("detected_at DESC").Find(&alerts).Error; err != nil {
		http.Error(w, "Failed to fetch alerts", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"alerts": alerts,
		"count":  len(alerts),
	})
}

// DeactivateAlert closes an active alert.
func DeactivateAlert(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	if err := NewAlertMonitor().Deactivate(r.Context(), vars["id"]); err != nil {
		writeDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{"message": "alert deactivated"})
}
