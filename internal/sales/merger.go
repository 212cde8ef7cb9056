// Package sales deduplicates sales-journal records and joins their revenue
// onto job records without ever double counting.
package sales

import (
	"strings"

	"github.com/rs/zerolog"

	"github.com/servicepulse/backend/internal/models"
)

// MatchMode reports the join strategy that produced a merge result.
type MatchMode string

const (
	// ModeInvoice joined sales to jobs on (technician, job number = invoice).
	ModeInvoice MatchMode = "invoice"
	// ModeTechnician fell back to technician-level revenue aggregates.
	ModeTechnician MatchMode = "technician"
	// ModeNone means no sales data could be joined; jobs carry zero revenue.
	ModeNone MatchMode = "none"
)

// Result is a merged view of jobs and sales. Revenue lives in exactly one
// place: on job rows in ModeInvoice, in TechTotals in ModeTechnician, and
// nowhere in ModeNone.
type Result struct {
	Jobs        []models.JobRecord
	TechTotals  map[string]models.SalesRecord
	Mode        MatchMode
	MatchedJobs int
	Deduped     int
}

type Merger struct {
	logger zerolog.Logger
}

func New(logger zerolog.Logger) *Merger {
	return &Merger{logger: logger}
}

// Deduplicate collapses sales records to one per (technician, invoice) pair,
// keeping the first occurrence. Duplicated journal exports are a known
// data-quality hazard; this is a correctness precondition for all sums.
func (m *Merger) Deduplicate(records []models.SalesRecord) []models.SalesRecord {
	type key struct{ tech, invoice string }
	seen := make(map[key]bool, len(records))
	out := make([]models.SalesRecord, 0, len(records))
	for _, r := range records {
		k := key{normalizeKey(r.TechCode), strings.TrimSpace(r.InvoiceNumber)}
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, r)
	}
	return out
}

// Merge joins sales revenue onto job records. Any revenue-like values
// already on the job side are dropped first so a job and its sales record
// can never both contribute to the same component.
func (m *Merger) Merge(jobs []models.JobRecord, records []models.SalesRecord) Result {
	deduped := m.Deduplicate(records)
	res := Result{
		Jobs:    make([]models.JobRecord, len(jobs)),
		Deduped: len(records) - len(deduped),
	}

	for i, job := range jobs {
		res.Jobs[i] = clearJobRevenue(job, len(deduped) > 0)
	}

	if len(deduped) == 0 {
		res.Mode = ModeNone
		m.logger.Warn().Msg("no sales records to merge, jobs keep zero revenue")
		return res
	}

	type key struct{ tech, invoice string }
	byInvoice := make(map[key]models.SalesRecord, len(deduped))
	for _, r := range deduped {
		byInvoice[key{normalizeKey(r.TechCode), strings.TrimSpace(r.InvoiceNumber)}] = r
	}

	for i, job := range res.Jobs {
		r, ok := byInvoice[key{normalizeKey(job.TechCode), strings.TrimSpace(job.JobNumber)}]
		if !ok {
			continue
		}
		res.Jobs[i].LaborSold = r.LaborSold
		res.Jobs[i].PartsSold = r.PartsSold
		res.Jobs[i].ServiceCallSold = r.ServiceCallSold
		res.Jobs[i].MerchandiseSold = r.MerchandiseSold
		res.Jobs[i].TotalSale = r.TotalSale
		res.Jobs[i].SalesMatched = true
		res.MatchedJobs++
	}

	if res.MatchedJobs > 0 {
		res.Mode = ModeInvoice
		m.logger.Info().
			Int("matched", res.MatchedJobs).
			Int("jobs", len(jobs)).
			Int("deduped_dropped", res.Deduped).
			Msg("sales merged on invoice numbers")
		return res
	}

	// Coarser fallback: technician-level aggregates. Revenue stays off the
	// job rows so per-job and per-tech sums cannot both be counted.
	res.Mode = ModeTechnician
	res.TechTotals = make(map[string]models.SalesRecord)
	for _, r := range deduped {
		tech := normalizeKey(r.TechCode)
		agg := res.TechTotals[tech]
		agg.TechCode = tech
		agg.LaborSold += r.LaborSold
		agg.PartsSold += r.PartsSold
		agg.ServiceCallSold += r.ServiceCallSold
		agg.MerchandiseSold += r.MerchandiseSold
		agg.TotalSale += r.TotalSale
		res.TechTotals[tech] = agg
	}
	m.logger.Warn().
		Int("technicians", len(res.TechTotals)).
		Msg("no invoice matches, using technician-level sales merge")
	return res
}

// clearJobRevenue drops job-report-side financials that the sales journal
// supersedes. Part cost survives because the journal has no cost data.
func clearJobRevenue(job models.JobRecord, haveSales bool) models.JobRecord {
	job.LaborSold = 0
	job.PartsSold = 0
	job.ServiceCallSold = 0
	job.MerchandiseSold = 0
	job.TotalSale = 0
	job.SalesMatched = false
	if haveSales {
		job.MaterialTotal = 0
		job.ServiceCallCharge = 0
	}
	return job
}

func normalizeKey(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
