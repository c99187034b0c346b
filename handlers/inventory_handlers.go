package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"github.com/terraflota/fleetops/config"
	"github.com/terraflota/fleetops/models"
)

// GetAllInventory lists every stocked material.
func GetAllInventory(w http.ResponseWriter, r *http.Request) {
	var items []models.InventoryItem
	if err := config.DB.Order("material ASC").Find(&items).Error; err != nil {
		http.Error(w, "Failed to fetch inventory", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"items": items,
		"count": len(items),
	})
}

// GetStock returns the stock of one material; unknown materials read as zero.
func GetStock(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	item, err := NewInventoryLedger().GetStock(r.Context(), vars["material"])
	if err != nil {
		writeDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{"item": item})
}

// GetMovements returns the movement history of one material, newest first.
func GetMovements(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	limit := 100
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= 1000 {
			limit = parsed
		}
	}

	var movements []models.InventoryMovement
	if err := config.DB.
		Where("LOWER(material) = ?", normalizeToken(vars["material"])).
		Order("created_at DESC").Limit(limit).
		Find(&movements).Error; err != nil {
		http.Error(w, "Failed to fetch movements", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"movements": movements,
		"count":     len(movements),
	})
}

// CreateManualAdjustment overrides a material's stock level. Operator action,
// always audited.
func CreateManualAdjustment(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Material    string          `json:"material"`
		NewQuantity decimal.Decimal `json:"newQuantity"`
		Actor       string          `json:"actor"`
		Note        string          `json:"note"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ledger := NewInventoryLedger()
	movement, err := ledger.RecordManualAdjustment(r.Context(), req.Material, req.NewQuantity, MovementContext{
		Actor: req.Actor,
		Note:  req.Note,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	if _, err := NewAlertMonitor().Evaluate(r.Context(), req.Material); err != nil {
		config.LogError("handlers", "CreateManualAdjustment", "alert evaluation", req.Material, err)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message":  "stock adjusted",
		"movement": movement,
	})
}

// CreateBreakdown splits raw material stock into named sub-products.
func CreateBreakdown(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RawMaterial      string                     `json:"rawMaterial"`
		ConsumedQuantity decimal.Decimal            `json:"consumedQuantity"`
		Subproducts      map[string]decimal.Decimal `json:"subproducts"`
		Actor            string                     `json:"actor"`
		Note             string                     `json:"note"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ledger := NewInventoryLedger()
	movements, err := ledger.RecordBreakdown(r.Context(), req.RawMaterial, req.ConsumedQuantity, req.Subproducts, MovementContext{
		Actor: req.Actor,
		Note:  req.Note,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	monitor := NewAlertMonitor()
	if _, err := monitor.Evaluate(r.Context(), req.RawMaterial); err != nil {
		config.LogError("handlers", "CreateBreakdown", "alert evaluation", req.RawMaterial, err)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message":   "breakdown recorded",
		"movements": movements,
	})
}
