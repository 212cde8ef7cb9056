package sales

import (
	"math"
	"testing"

	"github.com/rs/zerolog"

	"github.com/servicepulse/backend/internal/models"
)

func rec(tech, invoice string, labor, parts, scall float64) models.SalesRecord {
	return models.SalesRecord{
		TechCode:        tech,
		InvoiceNumber:   invoice,
		LaborSold:       labor,
		PartsSold:       parts,
		ServiceCallSold: scall,
		TotalSale:       labor + parts + scall,
	}
}

func TestDeduplicateFirstSeenWins(t *testing.T) {
	m := New(zerolog.Nop())

	records := []models.SalesRecord{
		rec("JS", "1001", 100, 50, 89),
		rec("JS", "1001", 999, 999, 999), // duplicate export, must drop
		rec("js ", "1001", 5, 5, 5),      // same pair after normalization
		rec("JS", "1002", 80, 0, 69),
		rec("BB", "1001", 10, 10, 10), // different tech, same invoice: keep
	}

	out := m.Deduplicate(records)
	if len(out) != 3 {
		t.Fatalf("expected 3 records after dedup, got %d", len(out))
	}
	if out[0].LaborSold != 100 {
		t.Fatalf("expected first occurrence kept, got labor %v", out[0].LaborSold)
	}

	// Dedup invariant: no (tech, invoice) pair appears twice.
	type key struct{ tech, invoice string }
	seen := map[key]bool{}
	for _, r := range out {
		k := key{normalizeKey(r.TechCode), r.InvoiceNumber}
		if seen[k] {
			t.Fatalf("pair %+v appears more than once after dedup", k)
		}
		seen[k] = true
	}
}

func TestMergeOnInvoiceNumbers(t *testing.T) {
	m := New(zerolog.Nop())

	jobs := []models.JobRecord{
		{JobNumber: "1001", TechCode: "JS", MaterialTotal: 120, ServiceCallCharge: 89},
		{JobNumber: "1002", TechCode: "JS"},
		{JobNumber: "2001", TechCode: "BB"},
	}
	records := []models.SalesRecord{
		rec("JS", "1001", 100, 50, 89),
		rec("BB", "2001", 60, 20, 69),
	}

	res := m.Merge(jobs, records)
	if res.Mode != ModeInvoice {
		t.Fatalf("expected invoice mode, got %s", res.Mode)
	}
	if res.MatchedJobs != 2 {
		t.Fatalf("expected 2 matched jobs, got %d", res.MatchedJobs)
	}
	if !res.Jobs[0].SalesMatched || res.Jobs[0].LaborSold != 100 {
		t.Fatalf("expected job 1001 to carry sales revenue")
	}
	if res.Jobs[1].SalesMatched || res.Jobs[1].TotalSale != 0 {
		t.Fatalf("unmatched job must carry zero revenue")
	}
	// Double-count invariant: job-side financials dropped once sales exist.
	if res.Jobs[0].MaterialTotal != 0 || res.Jobs[0].ServiceCallCharge != 0 {
		t.Fatalf("job-side revenue columns must be dropped before join")
	}
}

func TestMergedRevenueNeverExceedsRawSales(t *testing.T) {
	m := New(zerolog.Nop())

	jobs := []models.JobRecord{
		{JobNumber: "1001", TechCode: "JS"},
		{JobNumber: "1002", TechCode: "JS"},
	}
	records := []models.SalesRecord{
		rec("JS", "1001", 100, 50, 89),
		rec("JS", "1001", 100, 50, 89), // duplicate
		rec("JS", "1003", 75, 0, 69),   // no matching job
	}

	rawAfterDedup := 239.0 + 144.0
	res := m.Merge(jobs, records)

	var merged float64
	for _, j := range res.Jobs {
		merged += j.TotalSale
	}
	if merged > rawAfterDedup+1e-9 {
		t.Fatalf("merged revenue %v exceeds raw sales %v", merged, rawAfterDedup)
	}
	if res.Deduped != 1 {
		t.Fatalf("expected 1 duplicate dropped, got %d", res.Deduped)
	}
}

func TestTechnicianLevelFallback(t *testing.T) {
	m := New(zerolog.Nop())

	jobs := []models.JobRecord{
		{JobNumber: "A-77", TechCode: "JS"},
		{JobNumber: "A-78", TechCode: "JS"},
	}
	// Invoice numbers share nothing with job numbers.
	records := []models.SalesRecord{
		rec("JS", "900001", 100, 40, 89),
		rec("JS", "900002", 50, 10, 69),
	}

	res := m.Merge(jobs, records)
	if res.Mode != ModeTechnician {
		t.Fatalf("expected technician fallback, got %s", res.Mode)
	}
	agg, ok := res.TechTotals["JS"]
	if !ok {
		t.Fatalf("expected JS aggregate")
	}
	if agg.LaborSold != 150 || agg.TotalSale != 358 {
		t.Fatalf("unexpected aggregate: %+v", agg)
	}
	// Job rows must stay revenue-free so nothing is counted twice.
	for _, j := range res.Jobs {
		if j.TotalSale != 0 || j.SalesMatched {
			t.Fatalf("fallback mode must not put revenue on job rows")
		}
	}
}

func TestMergeWithNoSales(t *testing.T) {
	m := New(zerolog.Nop())

	jobs := []models.JobRecord{{JobNumber: "1001", TechCode: "JS", MaterialTotal: 40}}
	res := m.Merge(jobs, nil)
	if res.Mode != ModeNone {
		t.Fatalf("expected none mode, got %s", res.Mode)
	}
	if len(res.Jobs) != 1 {
		t.Fatalf("jobs must pass through")
	}
	// With no sales data the job-report financials are all we have; they
	// must survive for classification, contributing zero revenue.
	if res.Jobs[0].MaterialTotal != 40 {
		t.Fatalf("job-side material must survive when there is no sales data")
	}
	if math.Abs(res.Jobs[0].TotalSale) > 0 {
		t.Fatalf("expected zero revenue contribution")
	}
}
