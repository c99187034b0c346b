package handlers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/terraflota/fleetops/config"
	"github.com/terraflota/fleetops/models"
	"github.com/terraflota/fleetops/utils"
)

// operationLocks serializes grouping and sale emission per operation key, so
// two near-simultaneous trip legs cannot both fire a sale.
var operationLocks = utils.NewKeyedMutex()

// OperationGrouping correlates the trip legs of one physical material
// movement under a normalized operation key. Yard-sourced movements are
// reported twice (loader load + dump truck haul); grouping them is what
// prevents double billing.
type OperationGrouping struct {
	db        *gorm.DB
	locks     *utils.KeyedMutex
	yardNames []string
	fence     *utils.YardFence
}

// NewOperationGrouping creates a grouping engine bound to the shared store
// and the configured yard identity.
func NewOperationGrouping() *OperationGrouping {
	return &OperationGrouping{
		db:        config.DB,
		locks:     operationLocks,
		yardNames: config.YardNames,
		fence:     config.Yard,
	}
}

// normalizeToken lowercases and collapses whitespace so free-text client and
// material names land on the same key regardless of capture quirks.
func normalizeToken(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// OperationKey builds the correlation key for a report: the UTC calendar day,
// the normalized client, and the normalized material.
func OperationKey(date time.Time, client, material string) string {
	return fmt.Sprintf("%s|%s|%s", date.UTC().Format("2006-01-02"), normalizeToken(client), normalizeToken(material))
}

// IsYardOrigin reports whether the report's material came from the collection
// yard, either because the origin names the yard or because the capture
// coordinates fall inside the yard geofence.
func (g *OperationGrouping) IsYardOrigin(r *models.FieldReport) bool {
	origin := normalizeToken(r.Origin)
	for _, name := range g.yardNames {
		if origin == normalizeToken(name) {
			return true
		}
	}
	return g.fence.Contains(r.Latitude, r.Longitude)
}

// RecordReportUnderOperation creates or merges the commercial operation for a
// trip report: first report for a key creates the operation, later reports
// append their id (once) and accumulate quantity.
func (g *OperationGrouping) RecordReportUnderOperation(ctx context.Context, r *models.FieldReport) (*models.CommercialOperation, error) {
	key := OperationKey(r.ReportDate, r.Client, r.Material)
	g.locks.Lock(key)
	defer g.locks.Unlock(key)

	var op *models.CommercialOperation
	err := g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.CommercialOperation
		err := tx.Where("op_key = ?", key).First(&existing).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			sourceKind := models.SourceExternalQuarry
			if g.IsYardOrigin(r) {
				sourceKind = models.SourceCollectionYard
			}
			op = &models.CommercialOperation{
				OpKey:               key,
				OperationDate:       r.ReportDate,
				Client:              r.Client,
				Material:            r.Material,
				SourceKind:          sourceKind,
				LinkedReportIDs:     []string{r.ID.String()},
				AccumulatedQuantity: r.QuantityM3,
			}
			return tx.Create(op).Error
		case err != nil:
			return err
		}

		op = &existing
		if op.HasReport(r.ID) {
			return nil
		}
		op.LinkedReportIDs = append(op.LinkedReportIDs, r.ID.String())
		if r.QuantityM3.IsPositive() {
			op.AccumulatedQuantity = op.AccumulatedQuantity.Add(r.QuantityM3)
		}
		return tx.Save(op).Error
	})
	if err != nil {
		return nil, wrapPersistence("RecordReportUnderOperation", err)
	}
	return op, nil
}

// IsReadyForSale decides whether an operation may bill. Terminal operations
// are never ready again; quarry-sourced operations bill from the first
// report; yard-sourced operations wait for the paired second leg.
func IsReadyForSale(op *models.CommercialOperation) bool {
	if op == nil || op.SaleGenerated {
		return false
	}
	if op.SourceKind == models.SourceExternalQuarry {
		return true
	}
	return len(op.LinkedReportIDs) >= 2
}

// MarkProcessed flips the operation terminal and links the sale that billed
// it. A second call for the same key is rejected with DuplicateSaleError
// carrying the already linked sale id.
func (g *OperationGrouping) MarkProcessed(ctx context.Context, opKey string, saleID uuid.UUID) error {
	g.locks.Lock(opKey)
	defer g.locks.Unlock(opKey)

	err := g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var op models.CommercialOperation
		if err := tx.Where("op_key = ?", opKey).First(&op).Error; err != nil {
			return err
		}
		return markProcessedTx(tx, &op, saleID)
	})
	return wrapPersistence("MarkProcessed", err)
}

// markProcessedTx applies the terminal transition inside an existing
// transaction. The guarded update makes double firing structurally
// impossible even if two emitters reach this point with the same snapshot.
func markProcessedTx(tx *gorm.DB, op *models.CommercialOperation, saleID uuid.UUID) error {
	result := tx.Model(&models.CommercialOperation{}).
		Where("op_key = ? AND sale_generated = ?", op.OpKey, false).
		Updates(map[string]interface{}{
			"sale_generated": true,
			"linked_sale_id": saleID,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		existing := uuid.Nil
		var current models.CommercialOperation
		if err := tx.Where("op_key = ?", op.OpKey).First(&current).Error; err == nil && current.LinkedSaleID != nil {
			existing = *current.LinkedSaleID
		}
		return &DuplicateSaleError{OpKey: op.OpKey, ExistingSaleID: existing}
	}
	op.SaleGenerated = true
	op.LinkedSaleID = &saleID
	return nil
}

// LinkedReports loads the reports referenced by an operation, skipping ids
// that no longer resolve.
func (g *OperationGrouping) LinkedReports(ctx context.Context, op *models.CommercialOperation) ([]*models.FieldReport, error) {
	ids := make([]string, len(op.LinkedReportIDs))
	copy(ids, op.LinkedReportIDs)

	var reports []*models.FieldReport
	if len(ids) == 0 {
		return reports, nil
	}
	if err := g.db.WithContext(ctx).Where("id IN ?", ids).Order("created_at ASC").Find(&reports).Error; err != nil {
		return nil, wrapPersistence("LinkedReports", err)
	}
	return reports, nil
}
