package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/terraflota/fleetops/config"
	"github.com/terraflota/fleetops/models"
)

// GetAllFieldReports lists ingested reports, optionally filtered by type,
// client or equipment.
func GetAllFieldReports(w http.ResponseWriter, r *http.Request) {
	query := config.DB.Model(&models.FieldReport{})

	if t := r.URL.Query().Get("type"); t != "" {
		query = query.Where("type = ?", t)
	}
	if client := r.URL.Query().Get("client"); client != "" {
		query = query.Where("LOWER(client) = ?", normalizeToken(client))
	}
	if equipment := r.URL.Query().Get("equipment_id"); equipment != "" {
		query = query.Where("equipment_id = ?", equipment)
	}

	var reports []models.FieldReport
	if err := query.Order("report_date DESC").Find(&reports).Error; err != nil {
		http.Error(w, "Failed to fetch reports", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"reports": reports,
		"count":   len(reports),
	})
}

// GetFieldReport returns a single report by id.
func GetFieldReport(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	var report models.FieldReport
	if err := config.DB.Where("id = ?", vars["id"]).First(&report).Error; err != nil {
		http.Error(w, "Report not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{"report": report})
}

// GetAllOperations lists commercial operations, optionally only the open
// (not yet billed) ones.
func GetAllOperations(w http.ResponseWriter, r *http.Request) {
	query := config.DB.Model(&models.CommercialOperation{})
	if r.URL.Query().Get("open") == "true" {
		query = query.Where("sale_generated = ?", false)
	}

	var operations []models.CommercialOperation
	if err := query.Order("operation_date DESC").Find(&operations).Error; err != nil {
		http.Error(w, "Failed to fetch operations", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"operations": operations,
		"count":      len(operations),
	})
}

// GetOperation returns one commercial operation by its key.
func GetOperation(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	var op models.CommercialOperation
	if err := config.DB.Where("op_key = ?", vars["key"]).First(&op).Error; err != nil {
		http.Error(w, "Operation not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{"operation": op})
}

// RunReconciliation executes the on-demand audit and returns its report.
func RunReconciliation(w http.ResponseWriter, r *http.Request) {
	report, err := NewReconciliationAuditor().Run(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "reconciliation complete",
		"report":  report,
	})
}
