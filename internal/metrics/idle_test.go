package metrics

import (
	"testing"
	"time"

	"github.com/servicepulse/backend/internal/models"
)

func TestIdleMetrics(t *testing.T) {
	a := newAggregator()

	day := func(daysAgo int) time.Time { return asOf.AddDate(0, 0, -daysAgo) }
	events := []models.IdleEvent{
		{Device: "James", StartTime: day(1), DurationSeconds: 600},
		{Device: "James", StartTime: day(3), DurationSeconds: 1200},
		{Device: "James", StartTime: day(60), DurationSeconds: 9999}, // outside 30d window
		{Device: "Joe", StartTime: day(2), DurationSeconds: 300},
	}

	rows := a.IdleMetrics(events, asOf, 30)
	if len(rows) != 2 {
		t.Fatalf("expected 2 devices, got %d", len(rows))
	}

	james := rows[0]
	if james.Device != "James" || james.TechCode != "JS" {
		t.Fatalf("unexpected row: %+v", james)
	}
	if james.IdleEvents != 2 || james.TotalSeconds != 1800 || james.MaxSeconds != 1200 {
		t.Fatalf("unexpected idle sums: %+v", james)
	}
	if james.AvgSeconds != 900 {
		t.Fatalf("expected avg 900, got %v", james.AvgSeconds)
	}
	if james.DaysInPeriod != 3 {
		t.Fatalf("expected 3 days between first and last event, got %d", james.DaysInPeriod)
	}
}

func TestUtilizationMetrics(t *testing.T) {
	a := newAggregator()

	d1 := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	engine := []models.EngineHoursDay{
		{Device: "James", Date: d1, DailySeconds: 7200},
		{Device: "James", Date: d1.AddDate(0, 0, 1), DailySeconds: 3600},
	}
	days := []models.DayBoundary{
		{Device: "James", Date: d1, StartTime: d1.Add(8 * time.Hour), EndTime: d1.Add(17 * time.Hour)},
		{Device: "James", Date: d1.AddDate(0, 0, 1), StartTime: d1.Add(32 * time.Hour), EndTime: d1.Add(39 * time.Hour)},
	}

	rows := a.UtilizationMetrics(engine, days)
	if len(rows) != 1 {
		t.Fatalf("expected 1 device, got %d", len(rows))
	}
	r := rows[0]
	if r.TechCode != "JS" || r.DaysTracked != 2 {
		t.Fatalf("unexpected row: %+v", r)
	}
	if r.EngineHoursTotal != 3 || r.EngineHoursPerDay != 1.5 {
		t.Fatalf("unexpected engine hours: %+v", r)
	}
	if r.AvgWorkdayHours != 8 {
		t.Fatalf("expected avg workday 8h, got %v", r.AvgWorkdayHours)
	}
}
