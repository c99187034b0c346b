package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/terraflota/fleetops/config"
	"github.com/terraflota/fleetops/models"
	"github.com/terraflota/fleetops/utils"
)

// materialLocks serializes ledger mutations per material. Shared across all
// InventoryLedger instances so two handlers can never race on the same
// prior-quantity snapshot.
var materialLocks = utils.NewKeyedMutex()

// breakdownTolerance absorbs cubic-meter rounding when operators split a raw
// material into sub-products.
var breakdownTolerance = decimal.NewFromFloat(0.01)

// MovementContext carries the audit fields attached to a movement row.
type MovementContext struct {
	ReportID    *uuid.UUID
	EquipmentID string
	Actor       string
	Note        string
	UnitCost    decimal.Decimal
}

// InventoryLedger owns material stock and its movement history. Every
// mutation commits the item update and the movement append as one
// transaction, or fails wholly.
type InventoryLedger struct {
	db    *gorm.DB
	locks *utils.KeyedMutex
}

// NewInventoryLedger creates a ledger bound to the shared store.
func NewInventoryLedger() *InventoryLedger {
	return &InventoryLedger{db: config.DB, locks: materialLocks}
}

// RecordEntry increases stock of material by qty. Always succeeds for
// positive quantities. When the context carries a unit cost the item's
// average unit cost is re-weighted.
func (l *InventoryLedger) RecordEntry(ctx context.Context, material string, qty decimal.Decimal, origin string, mc MovementContext) (*models.InventoryMovement, error) {
	if err := validateMaterialQuantity(material, qty); err != nil {
		return nil, err
	}

	key := normalizeToken(material)
	l.locks.Lock(key)
	defer l.locks.Unlock(key)

	var movement *models.InventoryMovement
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		item, err := fetchOrCreateItem(tx, material)
		if err != nil {
			return err
		}
		prior := item.QuantityAvailable
		post := prior.Add(qty)
		item.QuantityAvailable = post
		if mc.UnitCost.IsPositive() {
			item.AverageUnitCost = weightedAverageCost(prior, item.AverageUnitCost, qty, mc.UnitCost)
		}
		if err := tx.Save(item).Error; err != nil {
			return err
		}

		movement = newMovement(models.MovementEntry, item.Material, qty, prior, post, mc)
		if origin != "" {
			movement.Note = joinNote("entry from "+origin, mc.Note)
		}
		return tx.Create(movement).Error
	})
	if err != nil {
		return nil, wrapPersistence("RecordEntry", err)
	}
	return movement, nil
}

// RecordExit decreases stock of material by qty, rejecting the whole
// operation with InsufficientStockError when qty exceeds the available
// quantity under the lock.
func (l *InventoryLedger) RecordExit(ctx context.Context, material string, qty decimal.Decimal, destination string, mc MovementContext) (*models.InventoryMovement, error) {
	if err := validateMaterialQuantity(material, qty); err != nil {
		return nil, err
	}

	key := normalizeToken(material)
	l.locks.Lock(key)
	defer l.locks.Unlock(key)

	var movement *models.InventoryMovement
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		item, err := fetchItem(tx, material)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &InsufficientStockError{Material: material, Requested: qty, Available: decimal.Zero}
			}
			return err
		}
		prior := item.QuantityAvailable
		if qty.GreaterThan(prior) {
			return &InsufficientStockError{Material: material, Requested: qty, Available: prior}
		}
		post := prior.Sub(qty)
		item.QuantityAvailable = post
		if err := tx.Save(item).Error; err != nil {
			return err
		}

		movement = newMovement(models.MovementExit, item.Material, qty, prior, post, mc)
		if destination != "" {
			movement.Note = joinNote("exit to "+destination, mc.Note)
		}
		return tx.Create(movement).Error
	})
	if err != nil {
		return nil, wrapPersistence("RecordExit", err)
	}
	return movement, nil
}

// RecordBreakdown consumes stock of a raw material and credits each named
// sub-product, logging one movement per affected material. The operation is
// rejected wholly when the sub-product quantities exceed the consumed amount
// beyond tolerance or when the raw stock cannot cover the consumption.
func (l *InventoryLedger) RecordBreakdown(ctx context.Context, rawMaterial string, consumed decimal.Decimal, subproducts map[string]decimal.Decimal, mc MovementContext) ([]*models.InventoryMovement, error) {
	if err := validateBreakdown(rawMaterial, consumed, subproducts); err != nil {
		return nil, err
	}

	subNames := make([]string, 0, len(subproducts))
	for name := range subproducts {
		if subproducts[name].IsPositive() {
			subNames = append(subNames, name)
		}
	}
	sort.Strings(subNames)

	lockKeys := make([]string, 0, len(subNames)+1)
	lockKeys = append(lockKeys, normalizeToken(rawMaterial))
	for _, name := range subNames {
		lockKeys = append(lockKeys, normalizeToken(name))
	}
	held := l.locks.LockAll(lockKeys)
	defer l.locks.UnlockAll(held)

	var movements []*models.InventoryMovement
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		raw, err := fetchItem(tx, rawMaterial)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &InsufficientStockError{Material: rawMaterial, Requested: consumed, Available: decimal.Zero}
			}
			return err
		}
		prior := raw.QuantityAvailable
		if consumed.GreaterThan(prior) {
			return &InsufficientStockError{Material: rawMaterial, Requested: consumed, Available: prior}
		}
		post := prior.Sub(consumed)
		raw.QuantityAvailable = post
		if err := tx.Save(raw).Error; err != nil {
			return err
		}

		detail, err := json.Marshal(subproducts)
		if err != nil {
			return err
		}
		rawMove := newMovement(models.MovementBreakdown, raw.Material, consumed, prior, post, mc)
		rawMove.Note = joinNote(fmt.Sprintf("broken down into %d sub-products", len(subNames)), mc.Note)
		rawMove.Detail = datatypes.JSON(detail)
		if err := tx.Create(rawMove).Error; err != nil {
			return err
		}
		movements = append(movements, rawMove)

		for _, name := range subNames {
			qty := subproducts[name]
			item, err := fetchOrCreateItem(tx, name)
			if err != nil {
				return err
			}
			subPrior := item.QuantityAvailable
			subPost := subPrior.Add(qty)
			item.QuantityAvailable = subPost
			if err := tx.Save(item).Error; err != nil {
				return err
			}
			subMove := newMovement(models.MovementBreakdown, item.Material, qty, subPrior, subPost, mc)
			subMove.Note = "from breakdown of " + raw.Material
			if err := tx.Create(subMove).Error; err != nil {
				return err
			}
			movements = append(movements, subMove)
		}
		return nil
	})
	if err != nil {
		return nil, wrapPersistence("RecordBreakdown", err)
	}
	return movements, nil
}

// RecordManualAdjustment overrides the stock of material to newQty. The
// administrative action is always logged with prior and post quantities; the
// movement quantity is the signed delta.
func (l *InventoryLedger) RecordManualAdjustment(ctx context.Context, material string, newQty decimal.Decimal, mc MovementContext) (*models.InventoryMovement, error) {
	if strings.TrimSpace(material) == "" {
		return nil, &ValidationError{Reason: "material is required"}
	}
	if newQty.IsNegative() {
		return nil, &ValidationError{Reason: "adjusted quantity cannot be negative"}
	}

	key := normalizeToken(material)
	l.locks.Lock(key)
	defer l.locks.Unlock(key)

	var movement *models.InventoryMovement
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		item, err := fetchOrCreateItem(tx, material)
		if err != nil {
			return err
		}
		prior := item.QuantityAvailable
		item.QuantityAvailable = newQty
		if err := tx.Save(item).Error; err != nil {
			return err
		}

		movement = newMovement(models.MovementManualAdjustment, item.Material, newQty.Sub(prior), prior, newQty, mc)
		movement.Note = joinNote("manual stock override", mc.Note)
		return tx.Create(movement).Error
	})
	if err != nil {
		return nil, wrapPersistence("RecordManualAdjustment", err)
	}
	return movement, nil
}

// GetStock returns the inventory item for material, or a zero-quantity item
// when the material was never stocked.
func (l *InventoryLedger) GetStock(ctx context.Context, material string) (*models.InventoryItem, error) {
	item, err := fetchItem(l.db.WithContext(ctx), material)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &models.InventoryItem{
				Material:          material,
				QuantityAvailable: decimal.Zero,
				AverageUnitCost:   decimal.Zero,
			}, nil
		}
		return nil, wrapPersistence("GetStock", err)
	}
	return item, nil
}

func validateMaterialQuantity(material string, qty decimal.Decimal) error {
	if strings.TrimSpace(material) == "" {
		return &ValidationError{Reason: "material is required"}
	}
	if !qty.IsPositive() {
		return &ValidationError{Reason: "quantity must be positive, got " + qty.String()}
	}
	return nil
}

func validateBreakdown(rawMaterial string, consumed decimal.Decimal, subproducts map[string]decimal.Decimal) error {
	if err := validateMaterialQuantity(rawMaterial, consumed); err != nil {
		return err
	}

	anyPositive := false
	total := decimal.Zero
	for name, qty := range subproducts {
		if strings.TrimSpace(name) == "" {
			return &ValidationError{Reason: "sub-product name is required"}
		}
		if qty.IsNegative() {
			return &ValidationError{Reason: "sub-product " + name + " has negative quantity"}
		}
		if qty.IsPositive() {
			anyPositive = true
		}
		total = total.Add(qty)
	}
	if !anyPositive {
		return &ValidationError{Reason: "breakdown needs at least one sub-product with positive quantity"}
	}
	if total.GreaterThan(consumed.Add(breakdownTolerance)) {
		return &ValidationError{Reason: fmt.Sprintf(
			"sub-products total %s exceeds consumed quantity %s", total.String(), consumed.String())}
	}
	return nil
}

// weightedAverageCost re-weights the average unit cost of an item after an
// entry of qty at unitCost.
func weightedAverageCost(priorQty, priorAvg, qty, unitCost decimal.Decimal) decimal.Decimal {
	post := priorQty.Add(qty)
	if !post.IsPositive() {
		return priorAvg
	}
	weighted := priorQty.Mul(priorAvg).Add(qty.Mul(unitCost))
	return weighted.DivRound(post, 4)
}

func fetchItem(tx *gorm.DB, material string) (*models.InventoryItem, error) {
	var item models.InventoryItem
	if err := tx.Where("LOWER(material) = ?", normalizeToken(material)).First(&item).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func fetchOrCreateItem(tx *gorm.DB, material string) (*models.InventoryItem, error) {
	item, err := fetchItem(tx, material)
	if err == nil {
		return item, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	created := &models.InventoryItem{
		Material:          normalizeToken(material),
		QuantityAvailable: decimal.Zero,
		AverageUnitCost:   decimal.Zero,
	}
	if err := tx.Create(created).Error; err != nil {
		return nil, err
	}
	return created, nil
}

func newMovement(kind models.MovementKind, material string, qty, prior, post decimal.Decimal, mc MovementContext) *models.InventoryMovement {
	return &models.InventoryMovement{
		Kind:           kind,
		Material:       material,
		Quantity:       qty,
		PriorQuantity:  prior,
		PostQuantity:   post,
		LinkedReportID: mc.ReportID,
		EquipmentID:    mc.EquipmentID,
		Actor:          mc.Actor,
		Note:           mc.Note,
	}
}

func joinNote(base, extra string) string {
	if extra == "" {
		return base
	}
	return base + "; " + extra
}
