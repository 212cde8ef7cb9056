package gpsmatch

import (
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/servicepulse/backend/internal/identity"
	"github.com/servicepulse/backend/internal/models"
)

var appt = time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC)

func job(device, address string) models.JobRecord {
	return models.JobRecord{
		JobNumber:        "J100",
		Device:           device,
		Address:          address,
		FirstAppointment: appt,
	}
}

func stop(device, address string, start time.Time) models.GPSStopEvent {
	return models.GPSStopEvent{
		Device:    device,
		Address:   address,
		StartTime: start,
		EndTime:   start.Add(45 * time.Minute),
	}
}

func TestStopOutsideWindowDoesNotMatch(t *testing.T) {
	m := New(DefaultConfig(), zerolog.Nop())

	jobs := []models.JobRecord{job("James", "123 Main St, Cotati")}
	stops := []models.GPSStopEvent{
		stop("James", "123 Main St, Cotati", appt.Add(31*time.Minute)),
	}

	out := m.MatchJobs(jobs, stops)
	if out[0].GPS != nil {
		t.Fatalf("stop at T+31min must not match a 30min window")
	}
}

func TestStopInsideWindowMatches(t *testing.T) {
	m := New(DefaultConfig(), zerolog.Nop())

	jobs := []models.JobRecord{job("James", "123 Main St, Cotati")}
	stops := []models.GPSStopEvent{
		stop("James", "123 Main Street, Cotati", appt.Add(29*time.Minute)),
	}

	out := m.MatchJobs(jobs, stops)
	if out[0].GPS == nil {
		t.Fatalf("expected match for in-window stop with matching address")
	}
	if out[0].GPS.Confidence < 80 {
		t.Fatalf("expected confidence >= threshold, got %v", out[0].GPS.Confidence)
	}
	if out[0].GPS.DurationMinutes != 45 {
		t.Fatalf("expected 45min duration, got %v", out[0].GPS.DurationMinutes)
	}
}

func TestLowConfidenceDoesNotMatch(t *testing.T) {
	m := New(DefaultConfig(), zerolog.Nop())

	jobs := []models.JobRecord{job("James", "123 Main St, Cotati")}
	stops := []models.GPSStopEvent{
		stop("James", "9877 Lakeview Terrace, Windsor", appt.Add(10*time.Minute)),
	}

	out := m.MatchJobs(jobs, stops)
	if out[0].GPS != nil {
		t.Fatalf("below-threshold address must not match, got confidence %v", out[0].GPS.Confidence)
	}
}

func TestBestOfSeveralCandidatesWins(t *testing.T) {
	m := New(DefaultConfig(), zerolog.Nop())

	jobs := []models.JobRecord{job("James", "123 Main St, Cotati")}
	stops := []models.GPSStopEvent{
		stop("James", "123 Main St # B, Cotati", appt.Add(-5*time.Minute)),
		stop("James", "123 Main St, Cotati", appt.Add(5*time.Minute)),
	}

	out := m.MatchJobs(jobs, stops)
	if out[0].GPS == nil {
		t.Fatalf("expected a match")
	}
	if out[0].GPS.Confidence != 100 {
		t.Fatalf("expected the exact-address stop to win, got %v", out[0].GPS.Confidence)
	}
}

func TestTieKeepsFirstEncountered(t *testing.T) {
	m := New(DefaultConfig(), zerolog.Nop())

	first := appt.Add(-10 * time.Minute)
	second := appt.Add(10 * time.Minute)
	jobs := []models.JobRecord{job("James", "123 Main St, Cotati")}
	stops := []models.GPSStopEvent{
		stop("James", "123 Main St, Cotati", first),
		stop("James", "123 Main St, Cotati", second),
	}

	out := m.MatchJobs(jobs, stops)
	if out[0].GPS == nil || !out[0].GPS.StartTime.Equal(first) {
		t.Fatalf("expected first-encountered stop on tie")
	}
}

func TestUnknownDeviceSkipped(t *testing.T) {
	m := New(DefaultConfig(), zerolog.Nop())

	jobs := []models.JobRecord{job(identity.UnknownDevice, "123 Main St, Cotati")}
	stops := []models.GPSStopEvent{
		stop("James", "123 Main St, Cotati", appt),
	}

	out := m.MatchJobs(jobs, stops)
	if out[0].GPS != nil {
		t.Fatalf("unknown device must skip matching")
	}
}

func TestNoAppointmentSkipped(t *testing.T) {
	m := New(DefaultConfig(), zerolog.Nop())

	j := job("James", "123 Main St, Cotati")
	j.FirstAppointment = time.Time{}
	out := m.MatchJobs([]models.JobRecord{j}, []models.GPSStopEvent{
		stop("James", "123 Main St, Cotati", appt),
	})
	if out[0].GPS != nil {
		t.Fatalf("job without appointment must skip matching")
	}
}

func TestOtherDeviceStopsIgnored(t *testing.T) {
	m := New(DefaultConfig(), zerolog.Nop())

	jobs := []models.JobRecord{job("James", "123 Main St, Cotati")}
	stops := []models.GPSStopEvent{
		stop("Joe", "123 Main St, Cotati", appt),
	}
	out := m.MatchJobs(jobs, stops)
	if out[0].GPS != nil {
		t.Fatalf("stops from another device must not match")
	}
}
