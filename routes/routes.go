package routes

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/terraflota/fleetops/config"
	"github.com/terraflota/fleetops/handlers"
	"github.com/terraflota/fleetops/middleware"
)

// RegisterRoutes sets up all application routes
func RegisterRoutes() http.Handler {
	r := mux.NewRouter()

	// =====================================================
	// Public Routes
	// =====================================================
	r.HandleFunc("/healthz", handleHealth).Methods("GET")

	// =====================================================
	// API Routes
	// =====================================================
	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(middleware.SecurityHeaders)
	api.Use(middleware.RequestLogger)

	registerReportRoutes(api)
	registerInventoryRoutes(api)
	registerSaleRoutes(api)
	registerAlertRoutes(api)
	registerTariffRoutes(api)

	return r
}

// handleHealth reports process liveness and database reachability.
func handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	code := http.StatusOK

	sqlDB, err := config.DB.DB()
	if err != nil || sqlDB.PingContext(r.Context()) != nil {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]interface{}{"status": status})
}

// registerReportRoutes registers field report ingestion and lookup routes
func registerReportRoutes(api *mux.Router) {
	api.HandleFunc("/reports", handlers.IngestReport).Methods("POST")
	api.HandleFunc("/reports", handlers.GetAllFieldReports).Methods("GET")
	api.HandleFunc("/reports/{id}", handlers.GetFieldReport).Methods("GET")

	api.HandleFunc("/operations", handlers.GetAllOperations).Methods("GET")
	api.HandleFunc("/operations/{key}", handlers.GetOperation).Methods("GET")

	api.HandleFunc("/reconciliation/run", handlers.RunReconciliation).Methods("POST")
}

// registerInventoryRoutes registers stock ledger routes
func registerInventoryRoutes(api *mux.Router) {
	api.HandleFunc("/inventory", handlers.GetAllInventory).Methods("GET")
	api.HandleFunc("/inventory/{material}", handlers.GetStock).Methods("GET")
	api.HandleFunc("/inventory/{material}/movements", handlers.GetMovements).Methods("GET")
	api.HandleFunc("/inventory/adjustments", handlers.CreateManualAdjustment).Methods("POST")
	api.HandleFunc("/inventory/breakdowns", handlers.CreateBreakdown).Methods("POST")
}

// registerSaleRoutes registers sale lookup and manual entry routes
func registerSaleRoutes(api *mux.Router) {
	api.HandleFunc("/sales", handlers.GetAllSales).Methods("GET")
	api.HandleFunc("/sales", handlers.CreateManualSale).Methods("POST")
	api.HandleFunc("/sales/{id}", handlers.GetSale).Methods("GET")
}

// registerAlertRoutes registers stock alert routes
func registerAlertRoutes(api *mux.Router) {
	api.HandleFunc("/alerts", handlers.GetAllAlerts).Methods("GET")
	api.HandleFunc("/alerts/{id}/deactivate", handlers.DeactivateAlert).Methods("POST")
	api.HandleFunc("/alert-thresholds", handlers.GetAllAlertThresholds).Methods("GET")
	api.HandleFunc("/alert-thresholds", handlers.UpsertAlertThreshold).Methods("POST")
}

// registerTariffRoutes registers price sheet routes
func registerTariffRoutes(api *mux.Router) {
	api.HandleFunc("/tariffs", handlers.GetAllTariffs).Methods("GET")
	api.HandleFunc("/tariffs", handlers.CreateTariff).Methods("POST")
	api.HandleFunc("/tariffs/{id}", handlers.GetTariff).Methods("GET")
	api.HandleFunc("/tariffs/{id}", handlers.UpdateTariff).Methods("PUT")
	api.HandleFunc("/tariffs/{id}", handlers.DeleteTariff).Methods("DELETE")
}
