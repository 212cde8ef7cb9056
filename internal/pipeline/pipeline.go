// Package pipeline runs the full fusion sequence over loaded source data:
// identity standardization, job classification, cancellation reason
// extraction, sales merge, GPS correlation, and metric aggregation.
package pipeline

import (
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/servicepulse/backend/internal/classify"
	"github.com/servicepulse/backend/internal/gpsmatch"
	"github.com/servicepulse/backend/internal/identity"
	"github.com/servicepulse/backend/internal/metrics"
	"github.com/servicepulse/backend/internal/models"
	"github.com/servicepulse/backend/internal/sales"
	"github.com/servicepulse/backend/internal/textnorm"
)

// ErrNoInputData means neither job nor sales data was provided. Missing GPS
// exports degrade the run; missing both primary sources aborts it.
var ErrNoInputData = errors.New("pipeline: no job or sales data to process")

// Inputs carries everything one run consumes. Any slice may be empty except
// that Jobs and Sales cannot both be.
type Inputs struct {
	Jobs        []models.JobRecord
	Sales       []models.SalesRecord
	Stops       []models.GPSStopEvent
	Alerts      []models.AlertEvent
	Idle        []models.IdleEvent
	EngineHours []models.EngineHoursDay
	DayBounds   []models.DayBoundary

	// AsOf anchors the backward-looking alert windows. Zero means "latest
	// timestamp seen in the inputs".
	AsOf time.Time
}

// Result is the complete output of one run.
type Result struct {
	Jobs          []models.JobRecord
	Merged        sales.Result
	Technicians   []models.TechnicianMetrics
	Driving       []models.DrivingMetrics
	Cancellations models.CancellationSummary
	Idle          []models.IdleMetrics
	Utilization   []models.UtilizationMetrics
	AsOf          time.Time
}

// RunSummary is the stage-by-stage account of a run, persisted with the run
// record and returned to the API caller.
type RunSummary struct {
	Events []map[string]any `json:"events"`
	Counts map[string]any   `json:"counts"`
}

type Pipeline struct {
	Mapper     *identity.Mapper
	Classifier *classify.Classifier
	Merger     *sales.Merger
	Matcher    *gpsmatch.Matcher
	Aggregator *metrics.Aggregator
	Reasons    *textnorm.ReasonExtractor
	Logger     zerolog.Logger
}

// New assembles a pipeline with production tables and the given GPS
// matching config.
func New(gpsCfg gpsmatch.Config, logger zerolog.Logger) *Pipeline {
	mapper := identity.NewMapper(identity.DefaultTables())
	return &Pipeline{
		Mapper:     mapper,
		Classifier: classify.New(classify.DefaultKeywords()),
		Merger:     sales.New(logger),
		Matcher:    gpsmatch.New(gpsCfg, logger),
		Aggregator: metrics.NewAggregator(mapper, metrics.DefaultDrivingConfig(), metrics.DefaultBusinessGoals(), logger),
		Reasons:    textnorm.NewReasonExtractor(textnorm.DefaultCancelConfig()),
		Logger:     logger,
	}
}

// Run executes every stage in order. The same inputs always produce the
// same result.
func (p *Pipeline) Run(in Inputs) (Result, RunSummary, error) {
	if len(in.Jobs) == 0 && len(in.Sales) == 0 {
		return Result{}, RunSummary{}, ErrNoInputData
	}

	summary := RunSummary{Counts: map[string]any{}}
	start := time.Now()
	summary.Events = append(summary.Events, map[string]any{
		"type":    "import_summary",
		"message": "Source data loaded",
		"jobs":    len(in.Jobs),
		"sales":   len(in.Sales),
		"stops":   len(in.Stops),
		"alerts":  len(in.Alerts),
		"time":    time.Now().UTC(),
	})

	jobs := p.standardize(in.Jobs)
	jobs = p.Classifier.ClassifyAll(jobs)
	jobs = p.annotate(jobs)

	canceled := 0
	for _, j := range jobs {
		if j.JobType == models.JobTypeCanceled {
			canceled++
		}
	}
	summary.Events = append(summary.Events, map[string]any{
		"type":     "classification",
		"message":  "Jobs classified",
		"jobs":     len(jobs),
		"canceled": canceled,
		"time":     time.Now().UTC(),
	})

	salesRecords := make([]models.SalesRecord, len(in.Sales))
	for i, r := range in.Sales {
		r.TechCode = p.Mapper.StandardizeTechCode(r.TechCode)
		salesRecords[i] = r
	}

	merged := p.Merger.Merge(jobs, salesRecords)
	summary.Events = append(summary.Events, map[string]any{
		"type":         "sales_merge",
		"message":      "Sales revenue joined",
		"mode":         string(merged.Mode),
		"matched_jobs": merged.MatchedJobs,
		"deduped":      merged.Deduped,
		"time":         time.Now().UTC(),
	})

	merged.Jobs = p.Matcher.MatchJobs(merged.Jobs, in.Stops)
	merged.Jobs = p.fillTimeFromGPS(merged.Jobs)
	gpsMatched := 0
	for _, j := range merged.Jobs {
		if j.GPS != nil {
			gpsMatched++
		}
	}
	summary.Events = append(summary.Events, map[string]any{
		"type":    "gps_match",
		"message": "GPS stops correlated",
		"matched": gpsMatched,
		"time":    time.Now().UTC(),
	})

	asOf := p.resolveAsOf(in)

	res := Result{
		Jobs:   merged.Jobs,
		Merged: merged,
		AsOf:   asOf,
	}

	techs, err := p.Aggregator.TechnicianMetrics(merged)
	if err != nil {
		return Result{}, summary, err
	}
	res.Technicians = techs
	res.Cancellations = p.Aggregator.CancellationSummary(merged.Jobs)
	res.Driving = p.Aggregator.DrivingMetrics(in.Alerts, p.Mapper.Roster(), asOf)
	res.Idle = p.Aggregator.IdleMetrics(in.Idle, asOf, 30)
	res.Utilization = p.Aggregator.UtilizationMetrics(in.EngineHours, in.DayBounds)

	summary.Events = append(summary.Events, map[string]any{
		"type":        "metrics",
		"message":     "Metrics aggregated",
		"technicians": len(res.Technicians),
		"elapsed_ms":  time.Since(start).Milliseconds(),
		"time":        time.Now().UTC(),
	})

	summary.Counts["jobs_processed"] = len(merged.Jobs)
	summary.Counts["sales_records"] = len(in.Sales)
	summary.Counts["sales_deduped"] = merged.Deduped
	summary.Counts["sales_match_mode"] = string(merged.Mode)
	summary.Counts["sales_matched_jobs"] = merged.MatchedJobs
	summary.Counts["gps_matched_jobs"] = gpsMatched
	summary.Counts["canceled_jobs"] = canceled
	summary.Counts["technicians"] = len(res.Technicians)

	p.Logger.Info().
		Int("jobs", len(merged.Jobs)).
		Int("gps_matched", gpsMatched).
		Str("sales_mode", string(merged.Mode)).
		Msg("pipeline run complete")

	return res, summary, nil
}

// standardize folds technician codes to canonical form and attaches the
// GPS device name.
func (p *Pipeline) standardize(jobs []models.JobRecord) []models.JobRecord {
	out := make([]models.JobRecord, len(jobs))
	for i, job := range jobs {
		job.TechCode = p.Mapper.StandardizeTechCode(job.TechCode)
		if job.TechCode == identity.UnknownDevice {
			job.TechCode = ""
		}
		job.Device = p.Mapper.DeviceForTech(job.TechCode)
		job.Address = textnorm.StandardizeAddress(job.Address)
		out[i] = job
	}
	return out
}

// annotate extracts cancellation reasons and reported time on job from the
// free-text work description.
func (p *Pipeline) annotate(jobs []models.JobRecord) []models.JobRecord {
	out := make([]models.JobRecord, len(jobs))
	for i, job := range jobs {
		if job.JobType == models.JobTypeCanceled {
			job.CancelReason, job.CancelConfidence = p.Reasons.Extract(job.WorkDescription)
		} else {
			job.CancelReason = textnorm.ReasonNotCanceled
		}
		if minutes, ok := textnorm.ExtractTimeOnJob(job.WorkDescription); ok {
			job.TimeOnJobMinutes = minutes
			job.HasTimeOnJob = true
		}
		out[i] = job
	}
	return out
}

// fillTimeFromGPS uses matched stop duration as time on job for jobs whose
// description reported none.
func (p *Pipeline) fillTimeFromGPS(jobs []models.JobRecord) []models.JobRecord {
	out := make([]models.JobRecord, len(jobs))
	for i, job := range jobs {
		if !job.HasTimeOnJob && job.GPS != nil && job.GPS.DurationMinutes > 0 {
			job.TimeOnJobMinutes = job.GPS.DurationMinutes
			job.HasTimeOnJob = true
		}
		out[i] = job
	}
	return out
}

func (p *Pipeline) resolveAsOf(in Inputs) time.Time {
	if !in.AsOf.IsZero() {
		return in.AsOf
	}
	var latest time.Time
	for _, a := range in.Alerts {
		if a.OccurredAt.After(latest) {
			latest = a.OccurredAt
		}
	}
	for _, j := range in.Jobs {
		if j.FirstAppointment.After(latest) {
			latest = j.FirstAppointment
		}
	}
	if latest.IsZero() {
		return time.Now().UTC()
	}
	return latest
}
