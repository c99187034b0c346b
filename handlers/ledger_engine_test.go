package handlers

import (
	"testing"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestValidateMaterialQuantity(t *testing.T) {
	tests := []struct {
		name     string
		material string
		qty      string
		wantErr  bool
	}{
		{"valid", "arena", "10", false},
		{"empty material", "", "10", true},
		{"whitespace material", "   ", "10", true},
		{"zero quantity", "arena", "0", true},
		{"negative quantity", "arena", "-3", true},
		{"fractional quantity", "gravilla", "0.5", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateMaterialQuantity(tt.material, dec(tt.qty))
			if (err != nil) != tt.wantErr {
				t.Errorf("validateMaterialQuantity(%q, %s) error = %v, wantErr %v",
					tt.material, tt.qty, err, tt.wantErr)
			}
		})
	}
}

func TestValidateBreakdown(t *testing.T) {
	tests := []struct {
		name        string
		raw         string
		consumed    string
		subproducts map[string]string
		wantErr     bool
	}{
		{
			name:        "exact split",
			raw:         "escombro",
			consumed:    "100",
			subproducts: map[string]string{"arena": "60", "gravilla": "40"},
		},
		{
			name:        "split with loss",
			raw:         "escombro",
			consumed:    "100",
			subproducts: map[string]string{"arena": "55", "gravilla": "30"},
		},
		{
			name:        "within tolerance",
			raw:         "escombro",
			consumed:    "100",
			subproducts: map[string]string{"arena": "60.005", "gravilla": "40.005"},
		},
		{
			name:        "exceeds tolerance",
			raw:         "escombro",
			consumed:    "100",
			subproducts: map[string]string{"arena": "60.02", "gravilla": "40"},
			wantErr:     true,
		},
		{
			name:        "no positive subproducts",
			raw:         "escombro",
			consumed:    "100",
			subproducts: map[string]string{"arena": "0"},
			wantErr:     true,
		},
		{
			name:        "negative subproduct",
			raw:         "escombro",
			consumed:    "100",
			subproducts: map[string]string{"arena": "-5", "gravilla": "50"},
			wantErr:     true,
		},
		{
			name:        "unnamed subproduct",
			raw:         "escombro",
			consumed:    "100",
			subproducts: map[string]string{"": "50"},
			wantErr:     true,
		},
		{
			name:        "zero consumption",
			raw:         "escombro",
			consumed:    "0",
			subproducts: map[string]string{"arena": "10"},
			wantErr:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			subs := make(map[string]decimal.Decimal, len(tt.subproducts))
			for name, qty := range tt.subproducts {
				subs[name] = dec(qty)
			}
			err := validateBreakdown(tt.raw, dec(tt.consumed), subs)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateBreakdown() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestWeightedAverageCost(t *testing.T) {
	tests := []struct {
		name     string
		priorQty string
		priorAvg string
		qty      string
		unitCost string
		want     string
	}{
		{"first entry", "0", "0", "10", "5000", "5000"},
		{"equal weights", "10", "4000", "10", "6000", "5000"},
		{"heavier prior", "30", "4000", "10", "8000", "5000"},
		{"rounding to four places", "3", "1000", "1", "1001", "1000.25"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := weightedAverageCost(dec(tt.priorQty), dec(tt.priorAvg), dec(tt.qty), dec(tt.unitCost))
			if !got.Equal(dec(tt.want)) {
				t.Errorf("weightedAverageCost() = %s, want %s", got.String(), tt.want)
			}
		})
	}
}

func TestJoinNote(t *testing.T) {
	if got := joinNote("base", ""); got != "base" {
		t.Errorf("joinNote with empty extra = %q", got)
	}
	if got := joinNote("base", "extra"); got != "base; extra" {
		t.Errorf("joinNote with extra = %q", got)
	}
}
