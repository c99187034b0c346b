package handlers

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/terraflota/fleetops/config"
	"github.com/terraflota/fleetops/models"
)

// TariffSource resolves pricing inputs for derived sales. The tariff table
// itself is owned by the commercial screens; the engines only read it.
type TariffSource interface {
	FindTariff(ctx context.Context, client, farm, origin, destination string) (*models.Tariff, error)
	GenericPrice(material, origin, destination string, quantity decimal.Decimal) decimal.Decimal
}

// TariffLookup resolves tariffs with progressively looser matches: exact
// route, then client+farm, then client alone. A nil result is not an error;
// the sale engine substitutes default pricing and flags the sale.
type TariffLookup struct {
	db *gorm.DB
}

// NewTariffLookup creates a lookup bound to the shared store.
func NewTariffLookup() *TariffLookup {
	return &TariffLookup{db: config.DB}
}

func (t *TariffLookup) FindTariff(ctx context.Context, client, farm, origin, destination string) (*models.Tariff, error) {
	queries := []map[string]string{
		{"client": client, "farm": farm, "origin": origin, "destination": destination},
		{"client": client, "farm": farm},
		{"client": client},
	}

	for _, q := range queries {
		tx := t.db.WithContext(ctx).Where("active = ?", true)
		for col, val := range q {
			tx = tx.Where("LOWER("+col+") = ?", normalizeToken(val))
		}
		var tariff models.Tariff
		err := tx.Order("created_at DESC").First(&tariff).Error
		if err == nil {
			return &tariff, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, wrapPersistence("FindTariff", err)
		}
	}
	return nil, nil
}

// genericMaterialRates are the per-m3 walk-in rates used when no tariff row
// matches at all.
var genericMaterialRates = map[string]decimal.Decimal{
	"arena":             decimal.NewFromInt(9500),
	"gravilla":          decimal.NewFromInt(11000),
	"relleno comun":     decimal.NewFromInt(6000),
	"base estabilizada": decimal.NewFromInt(12500),
}

var genericDefaultRate = decimal.NewFromInt(8000)

// GenericPrice computes a total price for quantity of material on a route
// with no negotiated tariff. Routes do not affect the walk-in rate today;
// the signature keeps them so the rate sheet can grow route factors without
// touching callers.
func (t *TariffLookup) GenericPrice(material, origin, destination string, quantity decimal.Decimal) decimal.Decimal {
	if !quantity.IsPositive() {
		return decimal.Zero
	}
	rate, ok := genericMaterialRates[normalizeToken(material)]
	if !ok {
		rate = genericDefaultRate
	}
	return rate.Mul(quantity)
}
