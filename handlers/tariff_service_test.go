package handlers

import (
	"testing"
)

func TestGenericPrice(t *testing.T) {
	lookup := &TariffLookup{}

	tests := []struct {
		name     string
		material string
		quantity string
		want     string
	}{
		{"known material", "arena", "10", "95000"},
		{"material name normalized", "  ARENA ", "10", "95000"},
		{"unknown material uses default rate", "piedra rajon", "10", "80000"},
		{"zero quantity prices nothing", "arena", "0", "0"},
		{"negative quantity prices nothing", "arena", "-3", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := lookup.GenericPrice(tt.material, "acopio", "soacha", dec(tt.quantity))
			if !got.Equal(dec(tt.want)) {
				t.Errorf("GenericPrice(%q, %s) = %s, want %s", tt.material, tt.quantity, got, tt.want)
			}
		})
	}
}
