package handlers

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/terraflota/fleetops/models"
)

func validTripPayload() *ReportPayload {
	return &ReportPayload{
		ID:             uuid.NewString(),
		Type:           models.ReportTrip,
		EquipmentID:    "VOLQ-12",
		EquipmentClass: models.EquipmentDumpTruck,
		ReportDate:     models.JSONTime(time.Date(2026, 3, 14, 8, 0, 0, 0, time.UTC)),
		Origin:         "acopio",
		Client:         "constructora sur",
		Material:       "arena",
		QuantityM3:     dec("14"),
		Trips:          2,
		Value:          dec("64000"),
		Latitude:       4.61,
		Longitude:      -74.09,
	}
}

func TestValidatePayload(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*ReportPayload)
		wantErr bool
	}{
		{"valid trip", func(p *ReportPayload) {}, false},
		{"missing id", func(p *ReportPayload) { p.ID = "" }, true},
		{"malformed id", func(p *ReportPayload) { p.ID = "not-a-uuid" }, true},
		{"unknown type", func(p *ReportPayload) { p.Type = "teleport" }, true},
		{"unknown equipment class", func(p *ReportPayload) { p.EquipmentClass = "hovercraft" }, true},
		{"missing client", func(p *ReportPayload) { p.Client = "" }, true},
		{"missing report date", func(p *ReportPayload) { p.ReportDate = models.JSONTime{} }, true},
		{"negative quantity", func(p *ReportPayload) { p.QuantityM3 = dec("-1") }, true},
		{"negative hours", func(p *ReportPayload) { p.Hours = dec("-1") }, true},
		{"negative value", func(p *ReportPayload) { p.Value = dec("-1") }, true},
		{"negative trips", func(p *ReportPayload) { p.Trips = -1 }, true},
		{"latitude out of range", func(p *ReportPayload) { p.Latitude = 91 }, true},
		{"longitude out of range", func(p *ReportPayload) { p.Longitude = -181 }, true},
		{"debris without material", func(p *ReportPayload) {
			p.Type = models.ReportDebrisReception
			p.Material = ""
		}, true},
		{"debris with material", func(p *ReportPayload) {
			p.Type = models.ReportDebrisReception
			p.EquipmentClass = models.EquipmentDebrisSite
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload := validTripPayload()
			tt.mutate(payload)
			err := validatePayload(payload)
			if (err != nil) != tt.wantErr {
				t.Errorf("validatePayload() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestStockActionFor(t *testing.T) {
	tests := []struct {
		name       string
		report     models.FieldReport
		yardOrigin bool
		want       stockAction
	}{
		{
			name:   "debris reception enters stock",
			report: models.FieldReport{Type: models.ReportDebrisReception, Material: "escombro", QuantityM3: dec("12")},
			want:   stockEntry,
		},
		{
			name:   "debris reception without quantity does nothing",
			report: models.FieldReport{Type: models.ReportDebrisReception, Material: "escombro"},
			want:   stockNone,
		},
		{
			name:       "yard loader trip exits stock",
			report:     models.FieldReport{Type: models.ReportTrip, EquipmentClass: models.EquipmentLoader, Material: "arena", QuantityM3: dec("14")},
			yardOrigin: true,
			want:       stockExit,
		},
		{
			name:       "yard dump truck leg does not exit twice",
			report:     models.FieldReport{Type: models.ReportTrip, EquipmentClass: models.EquipmentDumpTruck, Material: "arena", QuantityM3: dec("14")},
			yardOrigin: true,
			want:       stockNone,
		},
		{
			name:   "quarry trip does not touch stock",
			report: models.FieldReport{Type: models.ReportTrip, EquipmentClass: models.EquipmentLoader, Material: "arena", QuantityM3: dec("14")},
			want:   stockNone,
		},
		{
			name:       "yard trip without material does nothing",
			report:     models.FieldReport{Type: models.ReportTrip, EquipmentClass: models.EquipmentLoader, QuantityM3: dec("14")},
			yardOrigin: true,
			want:       stockNone,
		},
		{
			name:   "hours report does not touch stock",
			report: models.FieldReport{Type: models.ReportHoursWorked, Hours: dec("8")},
			want:   stockNone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := stockActionFor(&tt.report, tt.yardOrigin); got != tt.want {
				t.Errorf("stockActionFor() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestShouldRebill(t *testing.T) {
	saleID := uuid.New()
	two := []string{uuid.NewString(), uuid.NewString()}

	tests := []struct {
		name string
		op   *models.CommercialOperation
		want bool
	}{
		{"nil operation", nil, false},
		{"already billed", &models.CommercialOperation{SaleGenerated: true, LinkedSaleID: &saleID, SourceKind: models.SourceExternalQuarry, LinkedReportIDs: two}, false},
		{"open and ready owes its sale", &models.CommercialOperation{SourceKind: models.SourceCollectionYard, LinkedReportIDs: two}, true},
		{"open but unpaired yard waits", &models.CommercialOperation{SourceKind: models.SourceCollectionYard, LinkedReportIDs: two[:1]}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := shouldRebill(tt.op); got != tt.want {
				t.Errorf("shouldRebill() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPayloadToReport(t *testing.T) {
	payload := validTripPayload()
	report, err := payload.toReport()
	if err != nil {
		t.Fatalf("toReport: %v", err)
	}
	if report.ID.String() != payload.ID {
		t.Errorf("id = %s, want %s", report.ID, payload.ID)
	}
	if report.Type != models.ReportTrip {
		t.Errorf("type = %s", report.Type)
	}
	if !report.QuantityM3.Equal(dec("14")) {
		t.Errorf("quantity = %s", report.QuantityM3)
	}
	if report.ReportDate.IsZero() {
		t.Error("report date lost in conversion")
	}

	payload.ID = "broken"
	if _, err := payload.toReport(); err == nil {
		t.Error("malformed id accepted")
	}
}
