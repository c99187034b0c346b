package handlers

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/terraflota/fleetops/config"
	"github.com/terraflota/fleetops/models"
)

// Default rates used when neither the report value nor a tariff provides a
// price. Billing from a default flags the sale as fallback-priced so the
// commercial team can audit it.
var defaultHourlyRates = map[models.EquipmentClass]decimal.Decimal{
	models.EquipmentLoader:        decimal.NewFromInt(42000),
	models.EquipmentDumpTruck:     decimal.NewFromInt(38000),
	models.EquipmentCrawler:       decimal.NewFromInt(55000),
	models.EquipmentRoller:        decimal.NewFromInt(40000),
	models.EquipmentGrader:        decimal.NewFromInt(52000),
	models.EquipmentDredge:        decimal.NewFromInt(60000),
	models.EquipmentLowboyTrailer: decimal.NewFromInt(48000),
	models.EquipmentOther:         decimal.NewFromInt(35000),
}

var defaultFreightRates = map[models.EquipmentClass]decimal.Decimal{
	models.EquipmentDumpTruck:     decimal.NewFromInt(28000),
	models.EquipmentLowboyTrailer: decimal.NewFromInt(45000),
	models.EquipmentOther:         decimal.NewFromInt(25000),
}

// defaultDebrisFeeRate is the per-m3 reception fee for debris when the report
// carries no negotiated value.
var defaultDebrisFeeRate = decimal.NewFromInt(4500)

// SaleDecision is the outcome of the automatic-billing decision table for a
// single report.
type SaleDecision struct {
	Derive   bool
	Deferred bool // trip legs resolve through commercial operation readiness
	Kind     models.SaleKind
	Reason   string
}

// DecideSale applies the billing decision table to one report. Trips are
// always deferred to their commercial operation: yard-sourced movements bill
// once the paired leg arrives, quarry-sourced movements bill immediately.
func DecideSale(r *models.FieldReport) SaleDecision {
	switch r.Type {
	case models.ReportHoursWorked:
		if r.Hours.IsPositive() && r.Client != "" {
			return SaleDecision{Derive: true, Kind: models.SaleHourlyRental}
		}
		return SaleDecision{Reason: "hours report without hours or destination"}
	case models.ReportOvertime:
		if r.Hours.IsPositive() && r.Client != "" {
			return SaleDecision{Derive: true, Kind: models.SaleOvertime}
		}
		return SaleDecision{Reason: "overtime report without hours or destination"}
	case models.ReportTrip:
		return SaleDecision{Deferred: true}
	case models.ReportDebrisReception:
		return SaleDecision{Derive: true, Kind: models.SaleDebrisFee}
	case models.ReportFuel, models.ReportMaintenance, models.ReportIncident:
		return SaleDecision{Reason: "billed manually only"}
	default:
		return SaleDecision{Reason: "unknown report type " + string(r.Type)}
	}
}

// PricedLines is the result of pricing construction: the billable lines, a
// flag telling whether any price came from defaults instead of a tariff, and
// the informational notices to surface.
type PricedLines struct {
	Lines    []models.SaleLine
	Fallback bool
	Notices  []string
}

// priceRentalLines prices an hours-worked or overtime report: report value
// wins, otherwise the default rate for the equipment class.
func priceRentalLines(r *models.FieldReport) PricedLines {
	var priced PricedLines
	unit := r.Value
	if !unit.IsPositive() {
		unit = defaultHourlyRates[r.EquipmentClass]
		priced.Fallback = true
		priced.Notices = append(priced.Notices,
			fmt.Sprintf("rental for %s priced at default class rate", r.EquipmentID))
	}
	if !unit.IsPositive() {
		priced.Notices = append(priced.Notices, "rental rate resolved to zero, line omitted")
		return priced
	}
	priced.Lines = append(priced.Lines, models.SaleLine{
		Kind:        models.LineRental,
		Description: fmt.Sprintf("equipment rental %s (%s), %s h", r.EquipmentID, r.EquipmentClass, r.Hours.String()),
		Quantity:    r.Hours,
		UnitPrice:   unit,
	})
	return priced
}

// priceDebrisLines prices a debris reception: report value spread over the
// received volume, otherwise the default reception fee per m3.
func priceDebrisLines(r *models.FieldReport) PricedLines {
	var priced PricedLines
	qty := r.QuantityM3
	if !qty.IsPositive() {
		qty = decimal.NewFromInt(1)
	}
	unit := defaultDebrisFeeRate
	if r.Value.IsPositive() {
		unit = r.Value.DivRound(qty, 2)
	} else {
		priced.Fallback = true
		priced.Notices = append(priced.Notices, "debris reception priced at default fee")
	}
	priced.Lines = append(priced.Lines, models.SaleLine{
		Kind:        models.LineService,
		Description: fmt.Sprintf("debris reception, %s m3", qty.String()),
		Quantity:    qty,
		UnitPrice:   unit,
	})
	return priced
}

// priceTripLines prices the single sale of a commercial operation from its
// legs. Yard-sourced operations bill the material (from the loader leg) plus
// the freight (from the truck leg); quarry-sourced operations bill freight
// only, since the material was never ours.
func priceTripLines(op *models.CommercialOperation, legs []*models.FieldReport, tariff *models.Tariff, generic TariffSource) PricedLines {
	var priced PricedLines
	if len(legs) == 0 {
		priced.Notices = append(priced.Notices, "operation has no resolvable reports")
		return priced
	}

	var loaderLeg, truckLeg *models.FieldReport
	for _, leg := range legs {
		switch leg.EquipmentClass {
		case models.EquipmentLoader:
			if loaderLeg == nil {
				loaderLeg = leg
			}
		case models.EquipmentDumpTruck:
			if truckLeg == nil {
				truckLeg = leg
			}
		}
	}
	rep := legs[0]
	if loaderLeg != nil {
		rep = loaderLeg
	}

	if tariff == nil {
		priced.Fallback = true
		priced.Notices = append(priced.Notices,
			fmt.Sprintf("no tariff for client %q, default pricing substituted", op.Client))
	}

	// material line: only when the material came off our stockpile
	if op.SourceKind == models.SourceCollectionYard {
		qty := materialQuantity(loaderLeg, legs)
		if qty.IsPositive() {
			unit := decimal.Zero
			if tariff != nil && tariff.MaterialUnitPrice.IsPositive() {
				unit = tariff.MaterialUnitPrice
			} else {
				total := generic.GenericPrice(op.Material, rep.Origin, rep.Client, qty)
				unit = total.DivRound(qty, 2)
				priced.Fallback = true
			}
			if unit.IsPositive() {
				priced.Lines = append(priced.Lines, models.SaleLine{
					Kind:        models.LineMaterial,
					Description: fmt.Sprintf("%s, %s m3", op.Material, qty.String()),
					Quantity:    qty,
					UnitPrice:   unit,
				})
			}
		}
	}

	// freight line: from the hauling leg when present
	freightSrc := truckLeg
	if freightSrc == nil {
		freightSrc = rep
	}
	trips := decimal.NewFromInt(int64(freightSrc.Trips))
	if !trips.IsPositive() {
		trips = decimal.NewFromInt(1)
	}
	freightUnit := decimal.Zero
	switch {
	case freightSrc.Value.IsPositive():
		freightUnit = freightSrc.Value.DivRound(trips, 2)
	case tariff != nil && tariff.FreightUnitPrice.IsPositive():
		freightUnit = tariff.FreightUnitPrice
	default:
		freightUnit = defaultFreightRates[freightSrc.EquipmentClass]
		if freightUnit.IsZero() {
			freightUnit = defaultFreightRates[models.EquipmentOther]
		}
		priced.Fallback = true
	}
	if freightUnit.IsPositive() {
		priced.Lines = append(priced.Lines, models.SaleLine{
			Kind:        models.LineFreight,
			Description: fmt.Sprintf("freight %s to %s, %s trip(s)", op.Material, op.Client, trips.String()),
			Quantity:    trips,
			UnitPrice:   freightUnit,
		})
	}

	return priced
}

// materialQuantity picks the physical quantity of a movement: the loader leg
// reports what was taken off the stockpile; without one, the largest leg
// quantity stands in. Legs report the same load twice, so summing them would
// double the bill.
func materialQuantity(loaderLeg *models.FieldReport, legs []*models.FieldReport) decimal.Decimal {
	if loaderLeg != nil && loaderLeg.QuantityM3.IsPositive() {
		return loaderLeg.QuantityM3
	}
	max := decimal.Zero
	for _, leg := range legs {
		if leg.QuantityM3.GreaterThan(max) {
			max = leg.QuantityM3
		}
	}
	return max
}

// tripSaleKind derives the sale kind from which lines survived pricing.
func tripSaleKind(lines []models.SaleLine) models.SaleKind {
	hasMaterial, hasFreight := false, false
	for _, l := range lines {
		switch l.Kind {
		case models.LineMaterial:
			hasMaterial = true
		case models.LineFreight:
			hasFreight = true
		}
	}
	switch {
	case hasMaterial && hasFreight:
		return models.SaleMaterialFreight
	case hasMaterial:
		return models.SaleMaterialOnly
	default:
		return models.SaleFreightOnly
	}
}

// RecomputeTotal normalizes every line subtotal to quantity × unit price and
// returns their sum. Always called immediately before persistence; a caller
// supplied total is never trusted.
func RecomputeTotal(lines []models.SaleLine) decimal.Decimal {
	total := decimal.Zero
	for i := range lines {
		lines[i].Subtotal = lines[i].Quantity.Mul(lines[i].UnitPrice).Round(2)
		total = total.Add(lines[i].Subtotal)
	}
	return total
}

// SaleEngine turns billable reports and ready commercial operations into
// persisted sales.
type SaleEngine struct {
	db       *gorm.DB
	tariffs  TariffSource
	notifier Notifier
}

// NewSaleEngine creates a sale engine bound to the shared store, the tariff
// table and the default notification sink.
func NewSaleEngine() *SaleEngine {
	return &SaleEngine{db: config.DB, tariffs: NewTariffLookup(), notifier: NewLogNotifier()}
}

// EmitDirectSale persists the automatic sale for a non-trip report, if the
// decision table derives one. Replaying the same report returns the existing
// sale instead of creating a second one.
func (e *SaleEngine) EmitDirectSale(ctx context.Context, r *models.FieldReport) (*models.Sale, []string, error) {
	decision := DecideSale(r)
	if !decision.Derive {
		if decision.Reason != "" {
			return nil, []string{"no sale: " + decision.Reason}, nil
		}
		return nil, nil, nil
	}

	if existing, err := e.saleForReport(ctx, r.ID.String()); err != nil {
		return nil, nil, err
	} else if existing != nil {
		return existing, []string{"sale already derived for report"}, nil
	}

	var priced PricedLines
	switch decision.Kind {
	case models.SaleHourlyRental, models.SaleOvertime:
		priced = priceRentalLines(r)
	case models.SaleDebrisFee:
		priced = priceDebrisLines(r)
	}
	if len(priced.Lines) == 0 {
		return nil, append(priced.Notices, "no billable lines, sale skipped"), nil
	}

	reportID := r.ID
	sale := &models.Sale{
		SaleDate:       r.ReportDate,
		Client:         r.Client,
		DeliveryCity:   r.DeliveryCity,
		Kind:           decision.Kind,
		OriginMaterial: r.Material,
		GenerationKind: models.GenerationAutomatic,
		SourceReportID: &reportID,
		PricedFallback: priced.Fallback,
		Lines:          priced.Lines,
	}
	sale.TotalValue = RecomputeTotal(sale.Lines)

	if err := e.db.WithContext(ctx).Create(sale).Error; err != nil {
		return nil, nil, wrapPersistence("EmitDirectSale", err)
	}
	e.notifyPriced(sale, priced)
	return sale, priced.Notices, nil
}

// EmitOperationSale persists the single sale for a ready commercial operation
// and marks the operation terminal in the same transaction. When another leg
// already billed the operation, the existing sale is returned with a notice
// instead of an error surfacing to the caller.
func (e *SaleEngine) EmitOperationSale(ctx context.Context, op *models.CommercialOperation, legs []*models.FieldReport) (*models.Sale, []string, error) {
	if !IsReadyForSale(op) {
		return nil, nil, nil
	}
	if len(legs) == 0 {
		return nil, []string{"operation has no resolvable reports, left open"}, nil
	}

	operationLocks.Lock(op.OpKey)
	defer operationLocks.Unlock(op.OpKey)

	rep := legs[0]
	tariff, err := e.tariffs.FindTariff(ctx, op.Client, rep.Farm, rep.Origin, rep.DeliveryCity)
	if err != nil {
		return nil, nil, err
	}

	priced := priceTripLines(op, legs, tariff, e.tariffs)
	if len(priced.Lines) == 0 {
		return nil, append(priced.Notices, "no billable lines, operation left open"), nil
	}

	reportID := rep.ID
	sale := &models.Sale{
		SaleDate:       op.OperationDate,
		Client:         op.Client,
		DeliveryCity:   rep.DeliveryCity,
		Kind:           tripSaleKind(priced.Lines),
		OriginMaterial: op.Material,
		GenerationKind: models.GenerationAutomatic,
		SourceReportID: &reportID,
		PricedFallback: priced.Fallback,
		Lines:          priced.Lines,
	}
	sale.TotalValue = RecomputeTotal(sale.Lines)

	err = e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(sale).Error; err != nil {
			return err
		}
		return markProcessedTx(tx, op, sale.ID)
	})
	if err != nil {
		var dup *DuplicateSaleError
		if errors.As(err, &dup) {
			existing, lookupErr := e.saleByID(ctx, dup.ExistingSaleID.String())
			if lookupErr != nil {
				return nil, nil, lookupErr
			}
			return existing, []string{"operation already billed, existing sale returned"}, nil
		}
		return nil, nil, wrapPersistence("EmitOperationSale", err)
	}

	e.notifyPriced(sale, priced)
	return sale, priced.Notices, nil
}

func (e *SaleEngine) notifyPriced(sale *models.Sale, priced PricedLines) {
	if !priced.Fallback {
		return
	}
	e.notifier.Notify(NotifyWarning, "sale priced from defaults, tariff review needed", map[string]interface{}{
		"saleId": sale.ID.String(),
		"client": sale.Client,
		"total":  sale.TotalValue.String(),
	})
}

func (e *SaleEngine) saleForReport(ctx context.Context, reportID string) (*models.Sale, error) {
	var sale models.Sale
	err := e.db.WithContext(ctx).Preload("Lines").
		Where("source_report_id = ? AND generation_kind = ?", reportID, models.GenerationAutomatic).
		First(&sale).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, wrapPersistence("saleForReport", err)
	}
	return &sale, nil
}

func (e *SaleEngine) saleByID(ctx context.Context, id string) (*models.Sale, error) {
	var sale models.Sale
	err := e.db.WithContext(ctx).Preload("Lines").Where("id = ?", id).First(&sale).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, wrapPersistence("saleByID", err)
	}
	return &sale, nil
}
