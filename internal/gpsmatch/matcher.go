// Package gpsmatch correlates service jobs with GPS stop events by device,
// appointment time window, and fuzzy address confidence.
package gpsmatch

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/servicepulse/backend/internal/identity"
	"github.com/servicepulse/backend/internal/models"
	"github.com/servicepulse/backend/internal/textnorm"
)

type Config struct {
	// Window is how far before/after the appointment a stop may start.
	Window time.Duration
	// Threshold is the minimum address match confidence on the 0-100 scale.
	Threshold float64
}

func DefaultConfig() Config {
	return Config{
		Window:    30 * time.Minute,
		Threshold: 80,
	}
}

type Matcher struct {
	cfg    Config
	logger zerolog.Logger
}

func New(cfg Config, logger zerolog.Logger) *Matcher {
	return &Matcher{cfg: cfg, logger: logger}
}

// MatchJobs attaches the best-matching stop event to each job and returns a
// new slice. Jobs with an unknown device or no appointment keep a nil GPS
// field; no match is never an error.
func (m *Matcher) MatchJobs(jobs []models.JobRecord, stops []models.GPSStopEvent) []models.JobRecord {
	stopsByDevice := make(map[string][]models.GPSStopEvent)
	for _, s := range stops {
		stopsByDevice[s.Device] = append(stopsByDevice[s.Device], s)
	}

	out := make([]models.JobRecord, len(jobs))
	matched := 0
	for i, job := range jobs {
		out[i] = job
		if job.Device == identity.UnknownDevice || job.Device == "" || job.FirstAppointment.IsZero() {
			continue
		}

		if best := m.bestStop(job, stopsByDevice[job.Device]); best != nil {
			out[i].GPS = best
			matched++
		}
	}

	m.logger.Info().
		Int("jobs", len(jobs)).
		Int("matched", matched).
		Msg("gps stop matching complete")
	return out
}

// bestStop scans the device's stops whose start time falls inside the
// window and keeps the single highest-confidence candidate at or above the
// threshold. Ties keep the first-encountered stop.
func (m *Matcher) bestStop(job models.JobRecord, stops []models.GPSStopEvent) *models.GPSMatch {
	windowStart := job.FirstAppointment.Add(-m.cfg.Window)
	windowEnd := job.FirstAppointment.Add(m.cfg.Window)

	var best *models.GPSMatch
	bestConfidence := 0.0

	for _, stop := range stops {
		if stop.StartTime.Before(windowStart) || stop.StartTime.After(windowEnd) {
			continue
		}
		confidence := textnorm.MatchConfidence(job.Address, stop.Address)
		if confidence < m.cfg.Threshold || confidence <= bestConfidence {
			continue
		}
		bestConfidence = confidence
		best = &models.GPSMatch{
			StartTime:       stop.StartTime,
			EndTime:         stop.EndTime,
			DurationMinutes: stop.EndTime.Sub(stop.StartTime).Minutes(),
			Address:         stop.Address,
			Confidence:      confidence,
		}
	}
	return best
}
