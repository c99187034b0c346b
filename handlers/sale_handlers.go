package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"github.com/terraflota/fleetops/config"
	"github.com/terraflota/fleetops/models"
)

// GetAllSales lists sales, optionally filtered by client and date range.
func GetAllSales(w http.ResponseWriter, r *http.Request) {
	query := config.DB.Model(&models.Sale{}).Preload("Lines")

	if client := r.URL.Query().Get("client"); client != "" {
		query = query.Where("LOWER(client) = ?", normalizeToken(client))
	}
	if from := r.URL.Query().Get("from"); from != "" {
		if t, err := time.Parse("2006-01-02", from); err == nil {
			query = query.Where("sale_date >= ?", t)
		}
	}
	if to := r.URL.Query().Get("to"); to != "" {
		if t, err := time.Parse("2006-01-02", to); err == nil {
			query = query.Where("sale_date <= ?", t)
		}
	}
	if r.URL.Query().Get("fallback") == "true" {
		query = query.Where("priced_fallback = ?", true)
	}

	var sales []models.Sale
	if err := query.Order("sale_date DESC").Find(&sales).Error; err != nil {
		http.Error(w, "Failed to fetch sales", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"sales": sales,
		"count": len(sales),
	})
}

// GetSale returns one sale with its lines.
func GetSale(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	var sale models.Sale
	if err := config.DB.Preload("Lines").Where("id = ?", vars["id"]).First(&sale).Error; err != nil {
		http.Error(w, "Sale not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{"sale": sale})
}

// CreateManualSale records an operator-entered sale. The caller supplies the
// lines; the total is still recomputed server-side, never accepted.
func CreateManualSale(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SaleDate     models.JSONTime   `json:"saleDate"`
		Client       string            `json:"client"`
		DeliveryCity string            `json:"deliveryCity"`
		Kind         models.SaleKind   `json:"kind"`
		PaymentTerm  string            `json:"paymentTerm"`
		Lines        []models.SaleLine `json:"lines"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if req.Client == "" {
		http.Error(w, "client is required", http.StatusBadRequest)
		return
	}
	if len(req.Lines) == 0 {
		http.Error(w, "at least one line is required", http.StatusBadRequest)
		return
	}
	for _, line := range req.Lines {
		if line.Quantity.IsNegative() || line.UnitPrice.IsNegative() {
			http.Error(w, "line quantity and unit price cannot be negative", http.StatusBadRequest)
			return
		}
	}

	saleDate := req.SaleDate.Time()
	if saleDate.IsZero() {
		saleDate = time.Now().UTC()
	}

	lines := make([]models.SaleLine, len(req.Lines))
	copy(lines, req.Lines)
	for i := range lines {
		// server-side ids and subtotals only
		lines[i].ID = uuid.Nil
		lines[i].SaleID = uuid.Nil
		lines[i].Subtotal = decimal.Zero
	}

	sale := &models.Sale{
		SaleDate:       saleDate,
		Client:         req.Client,
		DeliveryCity:   req.DeliveryCity,
		Kind:           req.Kind,
		PaymentTerm:    req.PaymentTerm,
		GenerationKind: models.GenerationManual,
		Lines:          lines,
	}
	sale.TotalValue = RecomputeTotal(sale.Lines)

	if err := config.DB.Create(sale).Error; err != nil {
		http.Error(w, "Failed to create sale", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "sale created",
		"sale":    sale,
	})
}
