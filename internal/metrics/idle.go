package metrics

import (
	"sort"
	"time"

	"github.com/servicepulse/backend/internal/models"
)

// IdleMetrics rolls idle events up per device over a lookback window ending
// at the as-of date.
func (a *Aggregator) IdleMetrics(events []models.IdleEvent, asOf time.Time, lookbackDays int) []models.IdleMetrics {
	windowStart := asOf.AddDate(0, 0, -lookbackDays)

	type acc struct {
		count int
		total int
		max   int
		first time.Time
		last  time.Time
	}
	byDevice := map[string]*acc{}

	for _, e := range events {
		if e.StartTime.Before(windowStart) || e.StartTime.After(asOf) {
			continue
		}
		d, ok := byDevice[e.Device]
		if !ok {
			d = &acc{first: e.StartTime, last: e.StartTime}
			byDevice[e.Device] = d
		}
		d.count++
		d.total += e.DurationSeconds
		if e.DurationSeconds > d.max {
			d.max = e.DurationSeconds
		}
		if e.StartTime.Before(d.first) {
			d.first = e.StartTime
		}
		if e.StartTime.After(d.last) {
			d.last = e.StartTime
		}
	}

	out := make([]models.IdleMetrics, 0, len(byDevice))
	for device, d := range byDevice {
		row := models.IdleMetrics{
			Device:       device,
			TechCode:     a.mapper.TechForDevice(device),
			IdleEvents:   d.count,
			TotalSeconds: d.total,
			MaxSeconds:   d.max,
			TotalHours:   float64(d.total) / 3600,
			DaysInPeriod: int(d.last.Sub(d.first).Hours()/24) + 1,
		}
		if d.count > 0 {
			row.AvgSeconds = float64(d.total) / float64(d.count)
		}
		if row.DaysInPeriod > 0 {
			row.AvgHoursPerDay = row.TotalHours / float64(row.DaysInPeriod)
		}
		out = append(out, row)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Device < out[j].Device })
	return out
}

// UtilizationMetrics combines daily engine hours and day start/end
// boundaries into per-device utilization.
func (a *Aggregator) UtilizationMetrics(engine []models.EngineHoursDay, days []models.DayBoundary) []models.UtilizationMetrics {
	type acc struct {
		engineSeconds int
		engineDays    int
		workSeconds   float64
		workDays      int
	}
	byDevice := map[string]*acc{}
	get := func(device string) *acc {
		d, ok := byDevice[device]
		if !ok {
			d = &acc{}
			byDevice[device] = d
		}
		return d
	}

	for _, e := range engine {
		d := get(e.Device)
		d.engineSeconds += e.DailySeconds
		d.engineDays++
	}
	for _, b := range days {
		if b.EndTime.Before(b.StartTime) {
			continue
		}
		d := get(b.Device)
		d.workSeconds += b.EndTime.Sub(b.StartTime).Seconds()
		d.workDays++
	}

	out := make([]models.UtilizationMetrics, 0, len(byDevice))
	for device, d := range byDevice {
		row := models.UtilizationMetrics{
			Device:           device,
			TechCode:         a.mapper.TechForDevice(device),
			DaysTracked:      d.engineDays,
			EngineHoursTotal: float64(d.engineSeconds) / 3600,
		}
		if d.engineDays > 0 {
			row.EngineHoursPerDay = row.EngineHoursTotal / float64(d.engineDays)
		}
		if d.workDays > 0 {
			row.AvgWorkdayHours = d.workSeconds / 3600 / float64(d.workDays)
		}
		out = append(out, row)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Device < out[j].Device })
	return out
}
