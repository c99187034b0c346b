package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/terraflota/fleetops/config"
	"github.com/terraflota/fleetops/models"
)

var validate = validator.New()

// ReportPayload is the ingestion body from the field-capture client. The id
// is generated on the device so offline retries replay instead of
// duplicating.
type ReportPayload struct {
	ID             string            `json:"id" validate:"required,uuid"`
	Type           models.ReportType `json:"type" validate:"required,oneof=hours_worked overtime trip fuel maintenance incident debris_reception"`
	EquipmentID    string            `json:"equipmentId" validate:"required"`
	EquipmentClass models.EquipmentClass `json:"equipmentClass" validate:"required,oneof=loader dump_truck crawler roller grader dredge lowboy_trailer debris_site other"`
	ReportDate     models.JSONTime   `json:"reportDate"`
	Origin         string            `json:"origin"`
	Client         string            `json:"client" validate:"required"`
	Farm           string            `json:"farm"`
	DeliveryCity   string            `json:"deliveryCity"`
	Material       string            `json:"material"`
	QuantityM3     decimal.Decimal   `json:"quantityM3"`
	Hours          decimal.Decimal   `json:"hours"`
	Trips          int               `json:"trips" validate:"gte=0"`
	Value          decimal.Decimal   `json:"value"`
	Latitude       float64           `json:"latitude" validate:"gte=-90,lte=90"`
	Longitude      float64           `json:"longitude" validate:"gte=-180,lte=180"`
	Actor          string            `json:"actor"`
	SubmittedAt    models.JSONTime   `json:"submittedAt"`
}

// LedgerEffects is the result of ingesting one report: what moved, what was
// billed, what was raised.
type LedgerEffects struct {
	ReportID     uuid.UUID                   `json:"reportId"`
	Replayed     bool                        `json:"replayed"`
	OperationKey string                      `json:"operationKey,omitempty"`
	Movements    []*models.InventoryMovement `json:"movements"`
	Sale         *models.Sale                `json:"sale,omitempty"`
	Alerts       []*models.Alert             `json:"alerts,omitempty"`
	Notices      []string                    `json:"notices,omitempty"`
}

// ReportProcessor is the single ingestion entry point: it routes a validated
// report through the ledger, the grouping, the sale engine and the alert
// monitor, in that order.
type ReportProcessor struct {
	db       *gorm.DB
	ledger   *InventoryLedger
	grouping *OperationGrouping
	sales    *SaleEngine
	alerts   *AlertMonitor
}

// NewReportProcessor wires a processor over the shared store.
func NewReportProcessor() *ReportProcessor {
	return &ReportProcessor{
		db:       config.DB,
		ledger:   NewInventoryLedger(),
		grouping: NewOperationGrouping(),
		sales:    NewSaleEngine(),
		alerts:   NewAlertMonitor(),
	}
}

// validatePayload runs the struct tags plus the semantic checks the tags
// cannot express.
func validatePayload(p *ReportPayload) error {
	if err := validate.Struct(p); err != nil {
		return &ValidationError{Reason: err.Error()}
	}
	if p.ReportDate.Time().IsZero() {
		return &ValidationError{Reason: "reportDate is required"}
	}
	if p.QuantityM3.IsNegative() {
		return &ValidationError{Reason: "quantityM3 cannot be negative"}
	}
	if p.Hours.IsNegative() {
		return &ValidationError{Reason: "hours cannot be negative"}
	}
	if p.Value.IsNegative() {
		return &ValidationError{Reason: "value cannot be negative"}
	}
	if p.Type == models.ReportDebrisReception && p.Material == "" {
		return &ValidationError{Reason: "debris reception requires a material"}
	}
	return nil
}

func (p *ReportPayload) toReport() (*models.FieldReport, error) {
	id, err := uuid.Parse(p.ID)
	if err != nil {
		return nil, &ValidationError{Reason: "id is not a valid uuid"}
	}
	return &models.FieldReport{
		ID:             id,
		Type:           p.Type,
		EquipmentID:    p.EquipmentID,
		EquipmentClass: p.EquipmentClass,
		ReportDate:     p.ReportDate.Time(),
		Origin:         p.Origin,
		Client:         p.Client,
		Farm:           p.Farm,
		DeliveryCity:   p.DeliveryCity,
		Material:       p.Material,
		QuantityM3:     p.QuantityM3,
		Hours:          p.Hours,
		Trips:          p.Trips,
		Value:          p.Value,
		Latitude:       p.Latitude,
		Longitude:      p.Longitude,
		SubmittedAt:    p.SubmittedAt,
	}, nil
}

// stockAction is the ledger effect a report causes on ingestion.
type stockAction int

const (
	stockNone stockAction = iota
	stockEntry
	stockExit
)

// stockActionFor decides the ledger effect of a report. Debris receptions
// enter stock; yard-sourced trip legs exit it, except the dump-truck leg of a
// pair, which hauls the same load the loader already took off the stockpile
// and must not exit it twice.
func stockActionFor(r *models.FieldReport, yardOrigin bool) stockAction {
	switch r.Type {
	case models.ReportDebrisReception:
		if r.QuantityM3.IsPositive() {
			return stockEntry
		}
	case models.ReportTrip:
		if yardOrigin && r.Material != "" && r.QuantityM3.IsPositive() &&
			r.EquipmentClass != models.EquipmentDumpTruck {
			return stockExit
		}
	}
	return stockNone
}

// ProcessReport ingests one field report. Replaying an already ingested id is
// a no-op that returns the effects of the first ingestion: at most one sale
// ever derives from a report id.
func (p *ReportProcessor) ProcessReport(ctx context.Context, payload *ReportPayload) (*LedgerEffects, error) {
	if err := validatePayload(payload); err != nil {
		return nil, err
	}
	report, err := payload.toReport()
	if err != nil {
		return nil, err
	}

	var existing models.FieldReport
	err = p.db.WithContext(ctx).Where("id = ?", report.ID).First(&existing).Error
	if err == nil {
		return p.replayEffects(ctx, &existing)
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, wrapPersistence("ProcessReport", err)
	}

	effects := &LedgerEffects{ReportID: report.ID}
	mc := MovementContext{
		ReportID:    &report.ID,
		EquipmentID: report.EquipmentID,
		Actor:       payload.Actor,
	}

	// 1. the report row (the dedup anchor) and the stock movement it causes
	// commit as one unit: a failed ingestion leaves neither behind, so a
	// retry of the same id can never withdraw stock twice
	touched := map[string]bool{}
	err = p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(report).Error; err != nil {
			return err
		}
		ledger := &InventoryLedger{db: tx, locks: p.ledger.locks}
		switch stockActionFor(report, p.grouping.IsYardOrigin(report)) {
		case stockEntry:
			mv, err := ledger.RecordEntry(ctx, report.Material, report.QuantityM3, report.Origin, mc)
			if err != nil {
				return err
			}
			effects.Movements = append(effects.Movements, mv)
			touched[mv.Material] = true
		case stockExit:
			mv, err := ledger.RecordExit(ctx, report.Material, report.QuantityM3, report.Client, mc)
			if err != nil {
				return err
			}
			effects.Movements = append(effects.Movements, mv)
			touched[mv.Material] = true
		default:
			if report.Type == models.ReportDebrisReception {
				effects.Notices = append(effects.Notices, "debris reception without quantity, no stock entry")
			}
		}
		return nil
	})
	if err != nil {
		return nil, wrapPersistence("ProcessReport", err)
	}

	// 2. billing
	if report.Type == models.ReportTrip {
		op, err := p.grouping.RecordReportUnderOperation(ctx, report)
		if err != nil {
			return nil, err
		}
		effects.OperationKey = op.OpKey
		if IsReadyForSale(op) {
			legs, err := p.grouping.LinkedReports(ctx, op)
			if err != nil {
				return nil, err
			}
			sale, notices, err := p.sales.EmitOperationSale(ctx, op, legs)
			if err != nil {
				return nil, err
			}
			effects.Sale = sale
			effects.Notices = append(effects.Notices, notices...)
		} else {
			effects.Notices = append(effects.Notices, "yard operation waiting for paired leg")
		}
	} else {
		sale, notices, err := p.sales.EmitDirectSale(ctx, report)
		if err != nil {
			return nil, err
		}
		effects.Sale = sale
		effects.Notices = append(effects.Notices, notices...)
	}

	// 3. threshold re-evaluation on every touched material
	for material := range touched {
		alert, err := p.alerts.Evaluate(ctx, material)
		if err != nil {
			return nil, err
		}
		if alert != nil {
			effects.Alerts = append(effects.Alerts, alert)
		}
	}

	return effects, nil
}

// shouldRebill reports whether a replayed operation still owes its sale:
// billing may have failed transiently after the report row committed.
func shouldRebill(op *models.CommercialOperation) bool {
	return op != nil && op.LinkedSaleID == nil && IsReadyForSale(op)
}

// replayEffects reconstructs the result of the first ingestion of a report.
// A completed ingestion replays read-only; billing that never finished is
// retried here, which is safe because grouping merges by report id and the
// sale emitters dedup by report id and operation key.
func (p *ReportProcessor) replayEffects(ctx context.Context, report *models.FieldReport) (*LedgerEffects, error) {
	effects := &LedgerEffects{
		ReportID: report.ID,
		Replayed: true,
		Notices:  []string{"report already ingested, returning original effects"},
	}

	if err := p.db.WithContext(ctx).
		Where("linked_report_id = ?", report.ID).
		Order("created_at ASC").
		Find(&effects.Movements).Error; err != nil {
		return nil, wrapPersistence("replayEffects", err)
	}

	if report.Type == models.ReportTrip {
		op, err := p.grouping.RecordReportUnderOperation(ctx, report)
		if err != nil {
			return nil, err
		}
		effects.OperationKey = op.OpKey
		switch {
		case op.LinkedSaleID != nil:
			sale, err := p.sales.saleByID(ctx, op.LinkedSaleID.String())
			if err != nil {
				return nil, err
			}
			effects.Sale = sale
		case shouldRebill(op):
			legs, err := p.grouping.LinkedReports(ctx, op)
			if err != nil {
				return nil, err
			}
			sale, notices, err := p.sales.EmitOperationSale(ctx, op, legs)
			if err != nil {
				return nil, err
			}
			effects.Sale = sale
			effects.Notices = append(effects.Notices, notices...)
		}
		return effects, nil
	}

	sale, err := p.sales.saleForReport(ctx, report.ID.String())
	if err != nil {
		return nil, err
	}
	if sale == nil {
		sale, notices, err := p.sales.EmitDirectSale(ctx, report)
		if err != nil {
			return nil, err
		}
		effects.Sale = sale
		effects.Notices = append(effects.Notices, notices...)
		return effects, nil
	}
	effects.Sale = sale
	return effects, nil
}

// IngestReport is the HTTP entry point consumed by the report-capture app.
func IngestReport(w http.ResponseWriter, r *http.Request) {
	var payload ReportPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	effects, err := NewReportProcessor().ProcessReport(r.Context(), &payload)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "report processed",
		"effects": effects,
	})
}

// writeDomainError maps the error taxonomy onto HTTP statuses with the
// specific reason in the body.
func writeDomainError(w http.ResponseWriter, err error) {
	var vErr *ValidationError
	var sErr *InsufficientStockError
	var dErr *DuplicateSaleError
	var pErr *PersistenceError

	switch {
	case errors.As(err, &vErr):
		http.Error(w, vErr.Error(), http.StatusBadRequest)
	case errors.As(err, &sErr):
		http.Error(w, sErr.Error(), http.StatusConflict)
	case errors.As(err, &dErr):
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"error":          dErr.Error(),
			"existingSaleId": dErr.ExistingSaleID,
		})
	case errors.As(err, &pErr):
		config.LogError("handlers", "writeDomainError", "store failure", nil, pErr)
		http.Error(w, "store unavailable, operation rolled back", http.StatusServiceUnavailable)
	default:
		config.LogError("handlers", "writeDomainError", "unexpected", nil, err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
