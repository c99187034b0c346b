package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/terraflota/fleetops/config"
	"github.com/terraflota/fleetops/models"
)

// CreateTariff creates a tariff row for the price sheet.
func CreateTariff(w http.ResponseWriter, r *http.Request) {
	var tariff models.Tariff
	if err := json.NewDecoder(r.Body).Decode(&tariff); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if tariff.Client == "" {
		http.Error(w, "client is required", http.StatusBadRequest)
		return
	}
	tariff.Active = true

	if err := config.DB.Create(&tariff).Error; err != nil {
		http.Error(w, "Failed to create tariff", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "tariff created",
		"tariff":  tariff,
	})
}

// GetAllTariffs lists tariffs, optionally filtered by client.
func GetAllTariffs(w http.ResponseWriter, r *http.Request) {
	query := config.DB.Model(&models.Tariff{})
	if client := r.URL.Query().Get("client"); client != "" {
		query = query.Where("LOWER(client) = ?", normalizeToken(client))
	}

	var tariffs []models.Tariff
	if err := query.Order("client ASC, created_at DESC").Find(&tariffs).Error; err != nil {
		http.Error(w, "Failed to fetch tariffs", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"tariffs": tariffs,
		"count":   len(tariffs),
	})
}

// GetTariff returns one tariff by id.
func GetTariff(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	var tariff models.Tariff
	if err := config.DB.Where("id = ?", vars["id"]).First(&tariff).Error; err != nil {
		http.Error(w, "Tariff not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{"tariff": tariff})
}

// UpdateTariff updates an existing tariff.
func UpdateTariff(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	var tariff models.Tariff
	if err := config.DB.Where("id = ?", vars["id"]).First(&tariff).Error; err != nil {
		http.Error(w, "Tariff not found", http.StatusNotFound)
		return
	}

	var req map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	delete(req, "id")

	if err := config.DB.Model(&tariff).Updates(req).Error; err != nil {
		http.Error(w, "Failed to update tariff", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "tariff updated",
		"tariff":  tariff,
	})
}

// DeleteTariff soft deletes a tariff.
func DeleteTariff(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	var tariff models.Tariff
	if err := config.DB.Where("id = ?", vars["id"]).First(&tariff).Error; err != nil {
		http.Error(w, "Tariff not found", http.StatusNotFound)
		return
	}

	if err := config.DB.Delete(&tariff).Error; err != nil {
		http.Error(w, "Failed to delete tariff", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{"message": "tariff deleted"})
}
