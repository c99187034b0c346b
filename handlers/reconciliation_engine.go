package handlers

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/terraflota/fleetops/config"
	"github.com/terraflota/fleetops/models"
)

// ReconciliationIssue is one finding of the auditor. Findings are data, never
// errors.
type ReconciliationIssue struct {
	Category string `json:"category"`
	Severity string `json:"severity"`
	ReportID string `json:"reportId,omitempty"`
	SaleID   string `json:"saleId,omitempty"`
	Material string `json:"material,omitempty"`
	Detail   string `json:"detail"`
}

const (
	severityCritical = "critical"
	severityModerate = "moderate"

	categoryMismatch         = "report_sale_mismatch"
	categoryOrphanedSale     = "orphaned_sale"
	categoryMissingSale      = "missing_sale"
	categoryInventoryAnomaly = "inventory_anomaly"
)

// ReconciliationReport is the structured output of one audit run.
type ReconciliationReport struct {
	Score              float64               `json:"score"`
	TotalReports       int                   `json:"totalReports"`
	TotalSales         int                   `json:"totalSales"`
	TotalIssues        int                   `json:"totalIssues"`
	Summary            map[string]int        `json:"summary"`
	Mismatches         []ReconciliationIssue `json:"mismatches"`
	OrphanedSales      []ReconciliationIssue `json:"orphanedSales"`
	MissingSales       []ReconciliationIssue `json:"missingSales"`
	InventoryAnomalies []ReconciliationIssue `json:"inventoryAnomalies"`
	Suggestions        []string              `json:"suggestions"`
	GeneratedAt        time.Time             `json:"generatedAt"`
}

// ReconciliationAuditor cross-checks reports, sales and inventory on demand.
// Runs are read-only and safely repeatable; a run can be cancelled through
// its context.
type ReconciliationAuditor struct {
	db *gorm.DB
}

// NewReconciliationAuditor creates an auditor bound to the shared store.
func NewReconciliationAuditor() *ReconciliationAuditor {
	return &ReconciliationAuditor{db: config.DB}
}

// Run executes a full audit over a snapshot of the three stores.
func (a *ReconciliationAuditor) Run(ctx context.Context) (*ReconciliationReport, error) {
	var reports []*models.FieldReport
	if err := a.db.WithContext(ctx).Find(&reports).Error; err != nil {
		return nil, wrapPersistence("ReconciliationRun", err)
	}
	var sales []*models.Sale
	if err := a.db.WithContext(ctx).Find(&sales).Error; err != nil {
		return nil, wrapPersistence("ReconciliationRun", err)
	}
	var items []*models.InventoryItem
	if err := a.db.WithContext(ctx).Find(&items).Error; err != nil {
		return nil, wrapPersistence("ReconciliationRun", err)
	}

	reportByID := make(map[string]*models.FieldReport, len(reports))
	for _, r := range reports {
		reportByID[r.ID.String()] = r
	}

	out := &ReconciliationReport{
		TotalReports: len(reports),
		TotalSales:   len(sales),
		Summary:      map[string]int{},
		GeneratedAt:  time.Now().UTC(),
	}

	for i, s := range sales {
		if i%256 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		if s.GenerationKind != models.GenerationAutomatic || s.SourceReportID == nil {
			continue
		}
		if r, ok := reportByID[s.SourceReportID.String()]; ok {
			out.Mismatches = append(out.Mismatches, CompareReportToSale(r, s)...)
		}
	}

	out.OrphanedSales = FindOrphanedSales(reports, sales)
	out.MissingSales = FindMissingSales(reports, sales)
	out.InventoryAnomalies = FindInventoryAnomalies(items)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out.Summary[categoryMismatch] = len(out.Mismatches)
	out.Summary[categoryOrphanedSale] = len(out.OrphanedSales)
	out.Summary[categoryMissingSale] = len(out.MissingSales)
	out.Summary[categoryInventoryAnomaly] = len(out.InventoryAnomalies)
	out.TotalIssues = len(out.Mismatches) + len(out.OrphanedSales) + len(out.MissingSales) + len(out.InventoryAnomalies)
	out.Score = Score(out.TotalReports, out.TotalIssues)
	out.Suggestions = buildSuggestions(out)
	return out, nil
}

// CompareReportToSale cross-checks one automatic sale against its source
// report.
func CompareReportToSale(r *models.FieldReport, s *models.Sale) []ReconciliationIssue {
	var issues []ReconciliationIssue

	if normalizeToken(r.Client) != normalizeToken(s.Client) {
		issues = append(issues, ReconciliationIssue{
			Category: categoryMismatch,
			Severity: severityCritical,
			ReportID: r.ID.String(),
			SaleID:   s.ID.String(),
			Detail:   fmt.Sprintf("client mismatch: report %q vs sale %q", r.Client, s.Client),
		})
	}

	if dayDistance(r.ReportDate, s.SaleDate) > 1 {
		issues = append(issues, ReconciliationIssue{
			Category: categoryMismatch,
			Severity: severityModerate,
			ReportID: r.ID.String(),
			SaleID:   s.ID.String(),
			Detail: fmt.Sprintf("date drift: report %s vs sale %s",
				r.ReportDate.Format("2006-01-02"), s.SaleDate.Format("2006-01-02")),
		})
	}

	if r.Material != "" && s.OriginMaterial != "" &&
		normalizeToken(r.Material) != normalizeToken(s.OriginMaterial) {
		issues = append(issues, ReconciliationIssue{
			Category: categoryMismatch,
			Severity: severityModerate,
			ReportID: r.ID.String(),
			SaleID:   s.ID.String(),
			Detail:   fmt.Sprintf("material mismatch: report %q vs sale %q", r.Material, s.OriginMaterial),
		})
	}

	if r.DeliveryCity != "" && s.DeliveryCity != "" &&
		normalizeToken(r.DeliveryCity) != normalizeToken(s.DeliveryCity) {
		issues = append(issues, ReconciliationIssue{
			Category: categoryMismatch,
			Severity: severityModerate,
			ReportID: r.ID.String(),
			SaleID:   s.ID.String(),
			Detail:   fmt.Sprintf("destination mismatch: report %q vs sale %q", r.DeliveryCity, s.DeliveryCity),
		})
	}

	return issues
}

// FindOrphanedSales flags automatic sales whose source report no longer
// resolves.
func FindOrphanedSales(reports []*models.FieldReport, sales []*models.Sale) []ReconciliationIssue {
	known := make(map[string]bool, len(reports))
	for _, r := range reports {
		known[r.ID.String()] = true
	}

	var issues []ReconciliationIssue
	for _, s := range sales {
		if s.GenerationKind != models.GenerationAutomatic || s.SourceReportID == nil {
			continue
		}
		if !known[s.SourceReportID.String()] {
			issues = append(issues, ReconciliationIssue{
				Category: categoryOrphanedSale,
				Severity: severityCritical,
				SaleID:   s.ID.String(),
				Detail:   fmt.Sprintf("automatic sale references missing report %s", s.SourceReportID),
			})
		}
	}
	return issues
}

// FindMissingSales flags trip reports carrying a value that never produced a
// sale for the same client within one day.
func FindMissingSales(reports []*models.FieldReport, sales []*models.Sale) []ReconciliationIssue {
	var issues []ReconciliationIssue
	for _, r := range reports {
		if r.Type != models.ReportTrip || !r.Value.IsPositive() {
			continue
		}
		matched := false
		for _, s := range sales {
			if normalizeToken(s.Client) == normalizeToken(r.Client) &&
				dayDistance(r.ReportDate, s.SaleDate) <= 1 {
				matched = true
				break
			}
		}
		if !matched {
			issues = append(issues, ReconciliationIssue{
				Category: categoryMissingSale,
				Severity: severityModerate,
				ReportID: r.ID.String(),
				Detail: fmt.Sprintf("trip for %q on %s carries value %s but no sale matches",
					r.Client, r.ReportDate.Format("2006-01-02"), r.Value.String()),
			})
		}
	}
	return issues
}

// FindInventoryAnomalies flags negative stock. The ledger makes this
// structurally impossible, so any hit means a ledger bug, not a business
// condition.
func FindInventoryAnomalies(items []*models.InventoryItem) []ReconciliationIssue {
	var issues []ReconciliationIssue
	for _, item := range items {
		if item.QuantityAvailable.IsNegative() {
			issues = append(issues, ReconciliationIssue{
				Category: categoryInventoryAnomaly,
				Severity: severityCritical,
				Material: item.Material,
				Detail: fmt.Sprintf("negative stock %s for %s, ledger invariant broken",
					item.QuantityAvailable.String(), item.Material),
			})
		}
	}
	return issues
}

// Score maps issue density to a 0-100 health metric.
func Score(totalReports, totalIssues int) float64 {
	denom := totalReports
	if denom < 1 {
		denom = 1
	}
	score := 100 - 100*float64(totalIssues)/float64(denom)
	if score < 0 {
		return 0
	}
	return score
}

// dayDistance is the distance in calendar days between two instants, on UTC
// dates.
func dayDistance(a, b time.Time) int {
	ad := a.UTC().Truncate(24 * time.Hour)
	bd := b.UTC().Truncate(24 * time.Hour)
	days := int(ad.Sub(bd).Hours() / 24)
	if days < 0 {
		return -days
	}
	return days
}

func buildSuggestions(r *ReconciliationReport) []string {
	var suggestions []string
	if len(r.OrphanedSales) > 0 {
		suggestions = append(suggestions, "review orphaned sales: the source reports were removed or never synced from the field")
	}
	if len(r.MissingSales) > 0 {
		suggestions = append(suggestions, "review trips with value but no sale: a tariff may be missing or the operation never paired")
	}
	if len(r.Mismatches) > 0 {
		suggestions = append(suggestions, "review report/sale mismatches: client or destination was edited after derivation")
	}
	if len(r.InventoryAnomalies) > 0 {
		suggestions = append(suggestions, "negative stock detected: escalate to engineering, the ledger should prevent this")
	}
	if r.TotalIssues == 0 {
		suggestions = append(suggestions, "no inconsistencies found")
	}
	return suggestions
}
