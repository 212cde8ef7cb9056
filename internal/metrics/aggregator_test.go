package metrics

import (
	"errors"
	"math"
	"testing"

	"github.com/rs/zerolog"

	"github.com/servicepulse/backend/internal/identity"
	"github.com/servicepulse/backend/internal/models"
	"github.com/servicepulse/backend/internal/sales"
)

func newAggregator() *Aggregator {
	return NewAggregator(
		identity.NewMapper(identity.DefaultTables()),
		DefaultDrivingConfig(),
		DefaultBusinessGoals(),
		zerolog.Nop(),
	)
}

func TestTechnicianMetricsCountsAndRates(t *testing.T) {
	a := newAggregator()

	merged := sales.Result{
		Mode: sales.ModeInvoice,
		Jobs: []models.JobRecord{
			{TechCode: "JS", IsFTC: true, LaborSold: 100, PartsSold: 40, ServiceCallSold: 89, SalesMatched: true},
			{TechCode: "JS", IsDiagnosticOnly: true, ServiceCallSold: 69, SalesMatched: true},
			{TechCode: "JS", Canceled: true},
			{TechCode: "BB", IsFTC: true, LaborSold: 50, SalesMatched: true},
		},
	}

	rows, err := a.TechnicianMetrics(merged)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected one row per technician, got %d", len(rows))
	}

	js := rows[1] // sorted by tech code: BB, JS
	if js.TechCode != "JS" {
		t.Fatalf("expected JS row, got %s", js.TechCode)
	}
	if js.TotalJobs != 3 || js.FTCJobs != 1 || js.DiagnosticJobs != 1 || js.CanceledJobs != 1 {
		t.Fatalf("unexpected counts: %+v", js)
	}
	third := 1.0 / 3.0
	if math.Abs(js.FTCRate-third) > 1e-9 || math.Abs(js.CancellationRate-third) > 1e-9 {
		t.Fatalf("unexpected rates: %+v", js)
	}
	if js.Device != "James" {
		t.Fatalf("expected device James, got %s", js.Device)
	}
}

func TestRevenueComponentsSumToTotal(t *testing.T) {
	a := newAggregator()

	merged := sales.Result{
		Mode: sales.ModeInvoice,
		Jobs: []models.JobRecord{
			{TechCode: "JS", LaborSold: 100.10, PartsSold: 44.35, ServiceCallSold: 89, MerchandiseSold: 12.55},
			{TechCode: "JS", LaborSold: 60, PartsSold: 20.20, ServiceCallSold: 69},
		},
	}

	rows, err := a.TechnicianMetrics(merged)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, r := range rows {
		sum := r.LaborRevenue + r.PartsRevenue + r.ServiceCallRevenue + r.MerchandiseRevenue
		if math.Abs(sum-r.TotalRevenue) > 1e-9 {
			t.Fatalf("component sum %v != total %v for %s", sum, r.TotalRevenue, r.TechCode)
		}
	}
}

func TestTechnicianLevelRevenueFallback(t *testing.T) {
	a := newAggregator()

	merged := sales.Result{
		Mode: sales.ModeTechnician,
		Jobs: []models.JobRecord{
			{TechCode: "JS"},
			{TechCode: "JS"},
		},
		TechTotals: map[string]models.SalesRecord{
			"JS": {TechCode: "JS", LaborSold: 150, PartsSold: 50, ServiceCallSold: 158},
		},
	}

	rows, err := a.TechnicianMetrics(merged)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rows[0].TotalRevenue != 358 {
		t.Fatalf("expected 358 from tech-level aggregate, got %v", rows[0].TotalRevenue)
	}
	if rows[0].AvgRevenuePerJob != 179 {
		t.Fatalf("expected avg 179, got %v", rows[0].AvgRevenuePerJob)
	}
}

func TestProfitOnlyWithPartCostData(t *testing.T) {
	a := newAggregator()

	merged := sales.Result{
		Mode: sales.ModeInvoice,
		Jobs: []models.JobRecord{
			{TechCode: "JS", LaborSold: 200, PartsSold: 100, PartCost: 60},
			{TechCode: "BB", LaborSold: 100},
		},
	}

	rows, err := a.TechnicianMetrics(merged)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	bb, js := rows[0], rows[1]
	if bb.HasProfitData {
		t.Fatalf("BB has no part cost data, profit must be absent")
	}
	if !js.HasProfitData || js.TotalProfit != 240 {
		t.Fatalf("expected JS profit 240, got %+v", js)
	}
	if math.Abs(js.ProfitMargin-0.8) > 1e-9 {
		t.Fatalf("expected margin 0.8, got %v", js.ProfitMargin)
	}
}

func TestMissingTechnicianIdentifierIsFatal(t *testing.T) {
	a := newAggregator()

	merged := sales.Result{
		Mode: sales.ModeNone,
		Jobs: []models.JobRecord{{JobNumber: "1"}, {JobNumber: "2"}},
	}
	_, err := a.TechnicianMetrics(merged)
	if !errors.Is(err, ErrNoTechnicianIdentifier) {
		t.Fatalf("expected ErrNoTechnicianIdentifier, got %v", err)
	}
}

func TestEmptyJobsNotFatal(t *testing.T) {
	a := newAggregator()

	rows, err := a.TechnicianMetrics(sales.Result{Mode: sales.ModeNone})
	if err != nil {
		t.Fatalf("empty input must degrade, got %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("expected no rows, got %d", len(rows))
	}
}

func TestCancellationSummary(t *testing.T) {
	a := newAggregator()

	jobs := []models.JobRecord{
		{TechCode: "JS", Canceled: true, CancelReason: "CUSTOMER_INITIATED"},
		{TechCode: "JS"},
		{TechCode: "BB", Canceled: true, CancelReason: "NO_SHOW"},
		{TechCode: "", Canceled: true, CancelReason: "CUSTOMER_INITIATED"},
	}

	s := a.CancellationSummary(jobs)
	if s.TotalJobs != 4 || s.CanceledJobs != 3 {
		t.Fatalf("unexpected totals: %+v", s)
	}
	if math.Abs(s.CompanyRate-0.75) > 1e-9 {
		t.Fatalf("expected company rate 0.75, got %v", s.CompanyRate)
	}
	if s.ByReason["CUSTOMER_INITIATED"] != 2 || s.ByReason["NO_SHOW"] != 1 {
		t.Fatalf("unexpected reasons: %+v", s.ByReason)
	}
	// Jobs with no technician still count, under the UNKNOWN bucket.
	found := false
	for _, tc := range s.ByTechnician {
		if tc.TechCode == identity.UnknownDevice && tc.CanceledJobs == 1 {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected UNKNOWN technician bucket: %+v", s.ByTechnician)
	}
}
