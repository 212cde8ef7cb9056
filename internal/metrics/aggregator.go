// Package metrics rolls joined job, sales, and GPS data up into
// per-technician performance, revenue, cancellation, and driving metrics.
package metrics

import (
	"errors"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/servicepulse/backend/internal/identity"
	"github.com/servicepulse/backend/internal/models"
	"github.com/servicepulse/backend/internal/sales"
	"github.com/servicepulse/backend/internal/textnorm"
)

// ErrNoTechnicianIdentifier is the one fatal input defect: with no
// technician identifier anywhere there is nothing to group by.
var ErrNoTechnicianIdentifier = errors.New("metrics: no technician identifier present in job data")

type Aggregator struct {
	mapper  *identity.Mapper
	driving DrivingConfig
	goals   BusinessGoals
	logger  zerolog.Logger
}

func NewAggregator(mapper *identity.Mapper, driving DrivingConfig, goals BusinessGoals, logger zerolog.Logger) *Aggregator {
	return &Aggregator{mapper: mapper, driving: driving, goals: goals, logger: logger}
}

// TechnicianMetrics groups a merged sales result by technician code and
// computes job counts, rates, and revenue sums. Revenue is taken from
// wherever the merge put it (job rows or technician aggregates), never both.
func (a *Aggregator) TechnicianMetrics(merged sales.Result) ([]models.TechnicianMetrics, error) {
	jobs := merged.Jobs

	anyTech := false
	for _, j := range jobs {
		if strings.TrimSpace(j.TechCode) != "" {
			anyTech = true
			break
		}
	}
	if len(jobs) > 0 && !anyTech {
		return nil, ErrNoTechnicianIdentifier
	}

	rows := make(map[string]*models.TechnicianMetrics)
	timeSums := make(map[string]float64)
	timeCounts := make(map[string]int)

	for _, j := range jobs {
		tech := strings.ToUpper(strings.TrimSpace(j.TechCode))
		if tech == "" {
			tech = identity.UnknownDevice
		}
		row, ok := rows[tech]
		if !ok {
			row = &models.TechnicianMetrics{
				TechCode: tech,
				Device:   a.mapper.DeviceForTech(tech),
			}
			rows[tech] = row
		}

		row.TotalJobs++
		if j.IsFTC {
			row.FTCJobs++
		}
		if j.IsDiagnosticOnly {
			row.DiagnosticJobs++
		}
		if j.IsRecall {
			row.RecallJobs++
		}
		if j.Canceled {
			row.CanceledJobs++
		}

		row.LaborRevenue += j.LaborSold
		row.PartsRevenue += j.PartsSold
		row.ServiceCallRevenue += j.ServiceCallSold
		row.MerchandiseRevenue += j.MerchandiseSold
		row.PartCostTotal += j.PartCost

		if j.HasTimeOnJob {
			timeSums[tech] += j.TimeOnJobMinutes
			timeCounts[tech]++
		}
	}

	// Technician-level fallback revenue. Technicians present only in the
	// sales journal still get a revenue row.
	for tech, agg := range merged.TechTotals {
		row, ok := rows[tech]
		if !ok {
			row = &models.TechnicianMetrics{
				TechCode: tech,
				Device:   a.mapper.DeviceForTech(tech),
			}
			rows[tech] = row
		}
		row.LaborRevenue += agg.LaborSold
		row.PartsRevenue += agg.PartsSold
		row.ServiceCallRevenue += agg.ServiceCallSold
		row.MerchandiseRevenue += agg.MerchandiseSold
	}

	out := make([]models.TechnicianMetrics, 0, len(rows))
	for tech, row := range rows {
		if row.TotalJobs > 0 {
			n := float64(row.TotalJobs)
			row.FTCRate = float64(row.FTCJobs) / n
			row.DiagnosticRate = float64(row.DiagnosticJobs) / n
			row.CancellationRate = float64(row.CanceledJobs) / n
		}

		// The total is defined as the component sum so the two can never
		// drift apart.
		row.TotalRevenue = row.LaborRevenue + row.PartsRevenue + row.ServiceCallRevenue + row.MerchandiseRevenue
		if row.TotalJobs > 0 {
			row.AvgRevenuePerJob = row.TotalRevenue / float64(row.TotalJobs)
		}

		if row.PartCostTotal > 0 {
			row.HasProfitData = true
			row.TotalProfit = row.TotalRevenue - row.PartCostTotal
			if row.TotalRevenue > 0 {
				row.ProfitMargin = row.TotalProfit / row.TotalRevenue
			}
		}

		if timeCounts[tech] > 0 {
			row.AvgTimeOnJobMin = timeSums[tech] / float64(timeCounts[tech])
		}
		out = append(out, *row)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].TechCode < out[j].TechCode })

	a.logger.Info().
		Int("technicians", len(out)).
		Int("jobs", len(jobs)).
		Str("revenue_mode", string(merged.Mode)).
		Msg("technician metrics aggregated")
	return out, nil
}

// CancellationSummary computes the company-wide cancellation rate plus
// per-reason and per-technician breakdowns.
func (a *Aggregator) CancellationSummary(jobs []models.JobRecord) models.CancellationSummary {
	summary := models.CancellationSummary{
		TotalJobs: len(jobs),
		ByReason:  map[string]int{},
	}

	perTech := map[string]*models.TechCancellation{}
	for _, j := range jobs {
		tech := strings.ToUpper(strings.TrimSpace(j.TechCode))
		if tech == "" {
			tech = identity.UnknownDevice
		}
		tc, ok := perTech[tech]
		if !ok {
			tc = &models.TechCancellation{TechCode: tech}
			perTech[tech] = tc
		}
		tc.TotalJobs++

		if !j.Canceled {
			continue
		}
		summary.CanceledJobs++
		tc.CanceledJobs++
		reason := j.CancelReason
		if reason == "" {
			reason = textnorm.ReasonUnknown
		}
		summary.ByReason[reason]++
	}

	if summary.TotalJobs > 0 {
		summary.CompanyRate = float64(summary.CanceledJobs) / float64(summary.TotalJobs)
	}

	for _, tc := range perTech {
		if tc.TotalJobs > 0 {
			tc.CancelRate = float64(tc.CanceledJobs) / float64(tc.TotalJobs)
		}
		summary.ByTechnician = append(summary.ByTechnician, *tc)
	}
	sort.Slice(summary.ByTechnician, func(i, j int) bool {
		return summary.ByTechnician[i].TechCode < summary.ByTechnician[j].TechCode
	})
	return summary
}
