package handlers

import (
	"testing"

	"github.com/terraflota/fleetops/models"
)

func TestClassifyStock(t *testing.T) {
	tests := []struct {
		name      string
		available string
		min       string
		critical  string
		want      models.AlertKind
	}{
		{"healthy", "100", "50", "20", ""},
		{"exactly at minimum", "50", "50", "20", models.AlertLow},
		{"between critical and minimum", "30", "50", "20", models.AlertLow},
		{"exactly at critical", "20", "50", "20", models.AlertCritical},
		{"below critical", "5", "50", "20", models.AlertCritical},
		{"zero stock", "0", "50", "20", models.AlertOutOfStock},
		{"negative stock", "-3", "50", "20", models.AlertOutOfStock},
		{"zero thresholds stay quiet while stocked", "1", "0", "0", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyStock(dec(tt.available), dec(tt.min), dec(tt.critical))
			if got != tt.want {
				t.Errorf("ClassifyStock(%s, %s, %s) = %q, want %q",
					tt.available, tt.min, tt.critical, got, tt.want)
			}
		})
	}
}

func TestShouldRaise(t *testing.T) {
	tests := []struct {
		name    string
		kind    models.AlertKind
		history []models.Alert
		want    bool
	}{
		{
			name: "no history raises",
			kind: models.AlertLow,
			want: true,
		},
		{
			name:    "active alert of same kind dedups",
			kind:    models.AlertLow,
			history: []models.Alert{{Kind: models.AlertLow, Active: true}},
			want:    false,
		},
		{
			name:    "deactivated while still low stays suppressed",
			kind:    models.AlertLow,
			history: []models.Alert{{Kind: models.AlertLow, Active: false, Cleared: false}},
			want:    false,
		},
		{
			name:    "raises again after stock recovered and dropped",
			kind:    models.AlertLow,
			history: []models.Alert{{Kind: models.AlertLow, Active: false, Cleared: true}},
			want:    true,
		},
		{
			name:    "other kinds do not suppress",
			kind:    models.AlertCritical,
			history: []models.Alert{{Kind: models.AlertLow, Active: false, Cleared: false}},
			want:    true,
		},
		{
			name: "one uncleared row among cleared ones suppresses",
			kind: models.AlertLow,
			history: []models.Alert{
				{Kind: models.AlertLow, Active: false, Cleared: true},
				{Kind: models.AlertLow, Active: false, Cleared: false},
			},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := shouldRaise(tt.kind, tt.history); got != tt.want {
				t.Errorf("shouldRaise(%q) = %v, want %v", tt.kind, got, tt.want)
			}
		})
	}
}

func TestAlertLevel(t *testing.T) {
	if alertLevel(models.AlertOutOfStock) != NotifyCritical {
		t.Error("out of stock should notify critical")
	}
	if alertLevel(models.AlertCritical) != NotifyCritical {
		t.Error("critical should notify critical")
	}
	if alertLevel(models.AlertLow) != NotifyWarning {
		t.Error("low should notify warning")
	}
}
