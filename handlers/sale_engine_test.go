package handlers

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/terraflota/fleetops/models"
)

func TestDecideSale(t *testing.T) {
	tests := []struct {
		name         string
		report       models.FieldReport
		wantDerive   bool
		wantDeferred bool
		wantKind     models.SaleKind
	}{
		{
			name:       "hours with client derives rental",
			report:     models.FieldReport{Type: models.ReportHoursWorked, Hours: dec("8"), Client: "constructora sur"},
			wantDerive: true,
			wantKind:   models.SaleHourlyRental,
		},
		{
			name:   "hours without client does not derive",
			report: models.FieldReport{Type: models.ReportHoursWorked, Hours: dec("8")},
		},
		{
			name:   "hours with zero hours does not derive",
			report: models.FieldReport{Type: models.ReportHoursWorked, Client: "constructora sur"},
		},
		{
			name:       "overtime derives overtime kind",
			report:     models.FieldReport{Type: models.ReportOvertime, Hours: dec("3"), Client: "constructora sur"},
			wantDerive: true,
			wantKind:   models.SaleOvertime,
		},
		{
			name:         "trip always defers to its operation",
			report:       models.FieldReport{Type: models.ReportTrip, Client: "constructora sur", Value: dec("90000")},
			wantDeferred: true,
		},
		{
			name:       "debris reception derives a fee",
			report:     models.FieldReport{Type: models.ReportDebrisReception, Material: "escombro", QuantityM3: dec("12")},
			wantDerive: true,
			wantKind:   models.SaleDebrisFee,
		},
		{
			name:   "fuel never derives",
			report: models.FieldReport{Type: models.ReportFuel, Value: dec("50000")},
		},
		{
			name:   "maintenance never derives",
			report: models.FieldReport{Type: models.ReportMaintenance, Value: dec("200000")},
		},
		{
			name:   "incident never derives",
			report: models.FieldReport{Type: models.ReportIncident},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DecideSale(&tt.report)
			if got.Derive != tt.wantDerive {
				t.Errorf("Derive = %v, want %v", got.Derive, tt.wantDerive)
			}
			if got.Deferred != tt.wantDeferred {
				t.Errorf("Deferred = %v, want %v", got.Deferred, tt.wantDeferred)
			}
			if tt.wantDerive && got.Kind != tt.wantKind {
				t.Errorf("Kind = %v, want %v", got.Kind, tt.wantKind)
			}
		})
	}
}

func TestPriceRentalLines(t *testing.T) {
	t.Run("report value wins over defaults", func(t *testing.T) {
		r := &models.FieldReport{
			Type:           models.ReportHoursWorked,
			EquipmentID:    "CAT-950",
			EquipmentClass: models.EquipmentLoader,
			Hours:          dec("8"),
			Value:          dec("45000"),
		}
		priced := priceRentalLines(r)
		if priced.Fallback {
			t.Error("Fallback = true with explicit value")
		}
		if len(priced.Lines) != 1 {
			t.Fatalf("lines = %d, want 1", len(priced.Lines))
		}
		if !priced.Lines[0].UnitPrice.Equal(dec("45000")) {
			t.Errorf("unit price = %s, want 45000", priced.Lines[0].UnitPrice)
		}
	})

	t.Run("missing value falls back to class rate", func(t *testing.T) {
		r := &models.FieldReport{
			Type:           models.ReportHoursWorked,
			EquipmentID:    "CAT-950",
			EquipmentClass: models.EquipmentLoader,
			Hours:          dec("8"),
		}
		priced := priceRentalLines(r)
		if !priced.Fallback {
			t.Error("Fallback = false without explicit value")
		}
		if len(priced.Lines) != 1 {
			t.Fatalf("lines = %d, want 1", len(priced.Lines))
		}
		if !priced.Lines[0].UnitPrice.Equal(defaultHourlyRates[models.EquipmentLoader]) {
			t.Errorf("unit price = %s, want class default", priced.Lines[0].UnitPrice)
		}
	})
}

func TestPriceDebrisLines(t *testing.T) {
	t.Run("value spread over volume", func(t *testing.T) {
		r := &models.FieldReport{
			Type:       models.ReportDebrisReception,
			Material:   "escombro",
			QuantityM3: dec("10"),
			Value:      dec("60000"),
		}
		priced := priceDebrisLines(r)
		if priced.Fallback {
			t.Error("Fallback = true with explicit value")
		}
		if len(priced.Lines) != 1 {
			t.Fatalf("lines = %d, want 1", len(priced.Lines))
		}
		if !priced.Lines[0].UnitPrice.Equal(dec("6000")) {
			t.Errorf("unit price = %s, want 6000", priced.Lines[0].UnitPrice)
		}
	})

	t.Run("no value uses the default fee", func(t *testing.T) {
		r := &models.FieldReport{
			Type:       models.ReportDebrisReception,
			Material:   "escombro",
			QuantityM3: dec("10"),
		}
		priced := priceDebrisLines(r)
		if !priced.Fallback {
			t.Error("Fallback = false without explicit value")
		}
		if !priced.Lines[0].UnitPrice.Equal(defaultDebrisFeeRate) {
			t.Errorf("unit price = %s, want default fee", priced.Lines[0].UnitPrice)
		}
	})
}

// stubTariffs satisfies TariffSource without a store.
type stubTariffs struct {
	tariff *models.Tariff
	price  decimal.Decimal
}

func (s *stubTariffs) FindTariff(ctx context.Context, client, farm, origin, destination string) (*models.Tariff, error) {
	return s.tariff, nil
}

func (s *stubTariffs) GenericPrice(material, origin, destination string, quantity decimal.Decimal) decimal.Decimal {
	return s.price
}

func TestPriceTripLines(t *testing.T) {
	day := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
	loader := &models.FieldReport{
		ID:             uuid.New(),
		Type:           models.ReportTrip,
		EquipmentID:    "CAT-950",
		EquipmentClass: models.EquipmentLoader,
		ReportDate:     day,
		Origin:         "acopio",
		Client:         "constructora sur",
		Material:       "arena",
		QuantityM3:     dec("14"),
	}
	truck := &models.FieldReport{
		ID:             uuid.New(),
		Type:           models.ReportTrip,
		EquipmentID:    "VOLQ-12",
		EquipmentClass: models.EquipmentDumpTruck,
		ReportDate:     day,
		Origin:         "acopio",
		Client:         "constructora sur",
		Material:       "arena",
		QuantityM3:     dec("14"),
		Trips:          2,
		Value:          dec("64000"),
	}

	t.Run("yard operation bills material and freight", func(t *testing.T) {
		op := &models.CommercialOperation{
			OpKey:      OperationKey(day, "constructora sur", "arena"),
			Client:     "constructora sur",
			Material:   "arena",
			SourceKind: models.SourceCollectionYard,
		}
		tariff := &models.Tariff{
			MaterialUnitPrice: dec("12000"),
			FreightUnitPrice:  dec("30000"),
		}
		priced := priceTripLines(op, []*models.FieldReport{loader, truck}, tariff, &stubTariffs{})
		if priced.Fallback {
			t.Error("Fallback = true with tariff present")
		}
		if len(priced.Lines) != 2 {
			t.Fatalf("lines = %d, want 2 (material + freight)", len(priced.Lines))
		}
		var material, freight models.SaleLine
		for _, l := range priced.Lines {
			switch l.Kind {
			case models.LineMaterial:
				material = l
			case models.LineFreight:
				freight = l
			}
		}
		// loader leg quantity, never the accumulated sum of both legs
		if !material.Quantity.Equal(dec("14")) {
			t.Errorf("material quantity = %s, want loader leg 14", material.Quantity)
		}
		if !material.UnitPrice.Equal(dec("12000")) {
			t.Errorf("material unit = %s, want tariff 12000", material.UnitPrice)
		}
		// truck reported 64000 over 2 trips
		if !freight.Quantity.Equal(dec("2")) {
			t.Errorf("freight quantity = %s, want 2 trips", freight.Quantity)
		}
		if !freight.UnitPrice.Equal(dec("32000")) {
			t.Errorf("freight unit = %s, want 32000", freight.UnitPrice)
		}
	})

	t.Run("quarry operation bills freight only", func(t *testing.T) {
		op := &models.CommercialOperation{
			OpKey:      OperationKey(day, "constructora sur", "base granular"),
			Client:     "constructora sur",
			Material:   "base granular",
			SourceKind: models.SourceExternalQuarry,
		}
		priced := priceTripLines(op, []*models.FieldReport{truck}, nil, &stubTariffs{})
		for _, l := range priced.Lines {
			if l.Kind == models.LineMaterial {
				t.Error("quarry operation produced a material line")
			}
		}
		if len(priced.Lines) != 1 {
			t.Fatalf("lines = %d, want freight only", len(priced.Lines))
		}
	})

	t.Run("no tariff flags fallback", func(t *testing.T) {
		op := &models.CommercialOperation{
			OpKey:      OperationKey(day, "constructora sur", "arena"),
			Client:     "constructora sur",
			Material:   "arena",
			SourceKind: models.SourceCollectionYard,
		}
		priced := priceTripLines(op, []*models.FieldReport{loader, truck}, nil, &stubTariffs{price: dec("168000")})
		if !priced.Fallback {
			t.Error("Fallback = false without a tariff")
		}
	})

	t.Run("no legs yields no lines", func(t *testing.T) {
		op := &models.CommercialOperation{SourceKind: models.SourceCollectionYard}
		priced := priceTripLines(op, nil, nil, &stubTariffs{})
		if len(priced.Lines) != 0 {
			t.Errorf("lines = %d, want 0", len(priced.Lines))
		}
	})
}

func TestMaterialQuantity(t *testing.T) {
	loader := &models.FieldReport{EquipmentClass: models.EquipmentLoader, QuantityM3: dec("14")}
	truck := &models.FieldReport{EquipmentClass: models.EquipmentDumpTruck, QuantityM3: dec("15")}

	if got := materialQuantity(loader, []*models.FieldReport{loader, truck}); !got.Equal(dec("14")) {
		t.Errorf("with loader leg = %s, want 14", got)
	}
	if got := materialQuantity(nil, []*models.FieldReport{loader, truck}); !got.Equal(dec("15")) {
		t.Errorf("without loader leg = %s, want max 15", got)
	}
	if got := materialQuantity(nil, nil); !got.IsZero() {
		t.Errorf("no legs = %s, want 0", got)
	}
}

func TestTripSaleKind(t *testing.T) {
	tests := []struct {
		name  string
		lines []models.SaleLine
		want  models.SaleKind
	}{
		{"material and freight", []models.SaleLine{{Kind: models.LineMaterial}, {Kind: models.LineFreight}}, models.SaleMaterialFreight},
		{"material only", []models.SaleLine{{Kind: models.LineMaterial}}, models.SaleMaterialOnly},
		{"freight only", []models.SaleLine{{Kind: models.LineFreight}}, models.SaleFreightOnly},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tripSaleKind(tt.lines); got != tt.want {
				t.Errorf("tripSaleKind() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRecomputeTotal(t *testing.T) {
	lines := []models.SaleLine{
		{Quantity: dec("14"), UnitPrice: dec("12000"), Subtotal: dec("999")},
		{Quantity: dec("2"), UnitPrice: dec("32000")},
	}
	total := RecomputeTotal(lines)
	if !total.Equal(dec("232000")) {
		t.Errorf("total = %s, want 232000", total)
	}
	// caller-supplied subtotals are overwritten
	if !lines[0].Subtotal.Equal(dec("168000")) {
		t.Errorf("subtotal[0] = %s, want 168000", lines[0].Subtotal)
	}
	if !lines[1].Subtotal.Equal(dec("64000")) {
		t.Errorf("subtotal[1] = %s, want 64000", lines[1].Subtotal)
	}
}
