package metrics

import (
	"sort"
	"time"

	"github.com/servicepulse/backend/internal/models"
)

// alertWindows are the fixed backward-looking windows computed from the
// as-of date.
var alertWindows = []struct {
	name string
	days int
}{
	{WindowLast7Days, 7},
	{WindowLast30Days, 30},
	{WindowLast90Days, 90},
}

// DrivingMetrics scores driving behavior per technician per time window.
// Every technician in the roster gets a row for every window: a technician
// with zero alerts scores 100 and EXCELLENT rather than being absent.
func (a *Aggregator) DrivingMetrics(alerts []models.AlertEvent, roster []string, asOf time.Time) []models.DrivingMetrics {
	techDevice := make(map[string]string, len(roster))
	for _, tech := range roster {
		techDevice[tech] = a.mapper.DeviceForTech(tech)
	}
	// Alert rows can reference devices outside the job roster; keep them so
	// fleet-wide safety data is not silently dropped.
	for _, alert := range alerts {
		tech := a.mapper.TechForDevice(alert.Device)
		if _, ok := techDevice[tech]; !ok {
			techDevice[tech] = alert.Device
		}
	}

	var out []models.DrivingMetrics
	for _, w := range alertWindows {
		windowStart := asOf.AddDate(0, 0, -w.days)

		counts := make(map[string]map[string]int)
		for _, alert := range alerts {
			if alert.OccurredAt.Before(windowStart) || alert.OccurredAt.After(asOf) {
				continue
			}
			tech := a.mapper.TechForDevice(alert.Device)
			if counts[tech] == nil {
				counts[tech] = map[string]int{}
			}
			counts[tech][alert.AlertType]++
		}

		for tech, device := range techDevice {
			row := models.DrivingMetrics{
				TechCode:    tech,
				Device:      device,
				Window:      w.name,
				AlertCounts: map[string]int{},
			}
			for alertType, n := range counts[tech] {
				row.AlertCounts[alertType] = n
				row.TotalAlerts += n
				row.WeightedPenalty += float64(n) * a.driving.Weights[alertType]
			}
			row.DrivingScore = a.score(row.WeightedPenalty)
			row.Category = a.Categorize(row.DrivingScore)
			out = append(out, row)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Window != out[j].Window {
			return out[i].Window < out[j].Window
		}
		return out[i].TechCode < out[j].TechCode
	})

	a.logger.Info().
		Int("alerts", len(alerts)).
		Int("rows", len(out)).
		Time("as_of", asOf).
		Msg("driving metrics computed")
	return out
}

// score normalizes a weighted penalty to 0-100, higher meaning safer, by
// scaling against the theoretical worst penalty.
func (a *Aggregator) score(penalty float64) float64 {
	var worst float64
	for _, w := range a.driving.Weights {
		worst += w
	}
	worst *= a.driving.WorstCaseScale
	if worst <= 0 {
		return 100
	}

	score := 100 - penalty/worst*100
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// Categorize buckets a driving score into its named category.
func (a *Aggregator) Categorize(score float64) string {
	for _, t := range a.driving.Thresholds {
		if score >= t.MinScore {
			return t.Category
		}
	}
	return CategoryPoor
}
