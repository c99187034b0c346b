package utils

import "testing"

// square fence around (0,0)..(1,1) in lng/lat
const squareFence = `[[0,0],[1,0],[1,1],[0,1]]`

func TestParseYardFence(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantNil bool
		wantErr bool
	}{
		{"empty config disables fence", "", true, false},
		{"valid open polygon", squareFence, false, false},
		{"closed polygon", `[[0,0],[1,0],[1,1],[0,1],[0,0]]`, false, false},
		{"too few points", `[[0,0],[1,1]]`, false, true},
		{"latitude out of range", `[[0,91],[1,0],[1,1]]`, false, true},
		{"longitude out of range", `[[-181,0],[1,0],[1,1]]`, false, true},
		{"garbage", `{"not":"a fence"}`, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fence, err := ParseYardFence(tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseYardFence(%q) expected error, got nil", tt.raw)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseYardFence(%q) unexpected error: %v", tt.raw, err)
			}
			if tt.wantNil != (fence == nil) {
				t.Errorf("ParseYardFence(%q) nil = %v, expected %v", tt.raw, fence == nil, tt.wantNil)
			}
		})
	}
}

func TestYardFenceContains(t *testing.T) {
	fence, err := ParseYardFence(squareFence)
	if err != nil {
		t.Fatalf("ParseYardFence: %v", err)
	}

	tests := []struct {
		name     string
		lat, lng float64
		expected bool
	}{
		{"center", 0.5, 0.5, true},
		{"outside north", 2.0, 0.5, false},
		{"outside west", 0.5, -0.5, false},
		{"far away", -33.4, -70.6, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := fence.Contains(tt.lat, tt.lng); got != tt.expected {
				t.Errorf("Contains(%v, %v) = %v, expected %v", tt.lat, tt.lng, got, tt.expected)
			}
		})
	}
}

func TestNilFenceContainsNothing(t *testing.T) {
	var fence *YardFence
	if fence.Contains(0.5, 0.5) {
		t.Error("nil fence must not contain any point")
	}
}
