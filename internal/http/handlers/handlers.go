package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/servicepulse/backend/internal/db"
	"github.com/servicepulse/backend/internal/loaders"
	"github.com/servicepulse/backend/internal/models"
	"github.com/servicepulse/backend/internal/pipeline"
)

type Handler struct {
	Store     *db.Store
	Pipeline  *pipeline.Pipeline
	Validator *validator.Validate
	Logger    zerolog.Logger
	AdminKey  string

	// DefaultAsOf pins the alert-window anchor when the request does not,
	// format 2006-01-02. Empty lets the pipeline pick the latest timestamp.
	DefaultAsOf string
}

type fileCount struct {
	Parsed   int `json:"parsed"`
	Inserted int `json:"inserted"`
}

type ImportSummary struct {
	Jobs        fileCount `json:"jobs"`
	Sales       fileCount `json:"sales"`
	GPSStops    fileCount `json:"gps_stops"`
	Alerts      fileCount `json:"alerts"`
	Idle        fileCount `json:"idle"`
	EngineHours fileCount `json:"engine_hours"`
	DayBounds   fileCount `json:"day_bounds"`
	Errors      []string  `json:"errors"`
}

func (h *Handler) Healthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()
	if err := h.Store.Ping(ctx); err != nil {
		writeError(c, http.StatusServiceUnavailable, "DB_UNAVAILABLE", "Database unavailable", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// @Summary Import CSV source data
// @Description Upload job report, sales journal, and GPS fleet CSV exports. Jobs and sales cannot both be absent.
// @Tags import
// @Accept multipart/form-data
// @Produce json
// @Param jobs formData file false "jobs.csv"
// @Param sales formData file false "sales.csv"
// @Param gps_stops formData file false "stops.csv"
// @Param alerts formData file false "alerts.csv"
// @Param idle formData file false "idle.csv"
// @Param engine_hours formData file false "engine_hours.csv"
// @Param day_bounds formData file false "day_bounds.csv"
// @Success 200 {object} ImportSummary
// @Failure 400 {object} map[string]any
// @Router /api/import [post]
func (h *Handler) Import(c *gin.Context) {
	jobsFile := formFile(c, "jobs")
	salesFile := formFile(c, "sales")
	if jobsFile == nil && salesFile == nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "at least one of jobs or sales is required", nil)
		return
	}

	files := map[string]*multipart.FileHeader{
		"jobs":         jobsFile,
		"sales":        salesFile,
		"gps_stops":    formFile(c, "gps_stops"),
		"alerts":       formFile(c, "alerts"),
		"idle":         formFile(c, "idle"),
		"engine_hours": formFile(c, "engine_hours"),
		"day_bounds":   formFile(c, "day_bounds"),
	}
	for field, f := range files {
		if f != nil && !validateExt(f.Filename) {
			writeError(c, http.StatusBadRequest, "INVALID_REQUEST", field+" must be a .csv file", nil)
			return
		}
	}

	summary := ImportSummary{Errors: []string{}}
	var (
		jobs   []models.JobRecord
		sales  []models.SalesRecord
		stops  []models.GPSStopEvent
		alerts []models.AlertEvent
		idle   []models.IdleEvent
		engine []models.EngineHoursDay
		bounds []models.DayBoundary
	)

	parse := func(field string, f *multipart.FileHeader, load func(r io.Reader) error) {
		if f == nil {
			return
		}
		r, err := f.Open()
		if err != nil {
			summary.Errors = append(summary.Errors, field+": "+err.Error())
			return
		}
		defer r.Close()
		if err := load(r); err != nil {
			summary.Errors = append(summary.Errors, field+": "+err.Error())
		}
	}

	parse("jobs", files["jobs"], func(r io.Reader) error {
		var err error
		jobs, err = loaders.LoadJobReport(r)
		summary.Jobs.Parsed = len(jobs)
		return err
	})
	parse("sales", files["sales"], func(r io.Reader) error {
		var err error
		sales, err = loaders.LoadSalesJournal(r)
		summary.Sales.Parsed = len(sales)
		return err
	})
	parse("gps_stops", files["gps_stops"], func(r io.Reader) error {
		var err error
		stops, err = loaders.LoadGPSStops(r)
		summary.GPSStops.Parsed = len(stops)
		return err
	})
	parse("alerts", files["alerts"], func(r io.Reader) error {
		var err error
		alerts, err = loaders.LoadAlerts(r)
		summary.Alerts.Parsed = len(alerts)
		return err
	})
	parse("idle", files["idle"], func(r io.Reader) error {
		var err error
		idle, err = loaders.LoadIdleTime(r)
		summary.Idle.Parsed = len(idle)
		return err
	})
	parse("engine_hours", files["engine_hours"], func(r io.Reader) error {
		var err error
		engine, err = loaders.LoadEngineHours(r)
		summary.EngineHours.Parsed = len(engine)
		return err
	})
	parse("day_bounds", files["day_bounds"], func(r io.Reader) error {
		var err error
		bounds, err = loaders.LoadDayBoundaries(r)
		summary.DayBounds.Parsed = len(bounds)
		return err
	})

	if len(summary.Errors) > 0 {
		writeError(c, http.StatusBadRequest, "CSV_PARSE_ERROR", "CSV validation errors", summary.Errors)
		return
	}

	ctx := c.Request.Context()
	if err := h.Store.WithTx(ctx, func(tx pgx.Tx) error {
		return h.Store.TruncateStaging(ctx, tx)
	}); err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to reset staging tables", err.Error())
		return
	}

	type insert struct {
		count *fileCount
		fn    func() (int64, error)
	}
	inserts := []insert{
		{&summary.Jobs, func() (int64, error) { return h.Store.InsertJobs(ctx, jobs) }},
		{&summary.Sales, func() (int64, error) { return h.Store.InsertSales(ctx, sales) }},
		{&summary.GPSStops, func() (int64, error) { return h.Store.InsertStops(ctx, stops) }},
		{&summary.Alerts, func() (int64, error) { return h.Store.InsertAlerts(ctx, alerts) }},
		{&summary.Idle, func() (int64, error) { return h.Store.InsertIdleEvents(ctx, idle) }},
		{&summary.EngineHours, func() (int64, error) { return h.Store.InsertEngineHours(ctx, engine) }},
		{&summary.DayBounds, func() (int64, error) { return h.Store.InsertDayBounds(ctx, bounds) }},
	}
	for _, ins := range inserts {
		n, err := ins.fn()
		if err != nil {
			writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to stage rows", err.Error())
			return
		}
		ins.count.Inserted = int(n)
	}

	h.Logger.Info().
		Int("jobs", summary.Jobs.Inserted).
		Int("sales", summary.Sales.Inserted).
		Int("stops", summary.GPSStops.Inserted).
		Msg("import staged")
	c.JSON(http.StatusOK, summary)
}

type ProcessRequest struct {
	AsOf string `form:"as_of" validate:"omitempty,datetime=2006-01-02"`
}

// @Summary Process staged data
// @Description Runs the fusion pipeline over staged rows and snapshots the resulting metrics.
// @Tags process
// @Produce json
// @Param as_of query string false "Alert-window anchor date, 2006-01-02"
// @Success 200 {object} map[string]any
// @Failure 400 {object} map[string]any
// @Router /api/process [post]
func (h *Handler) Process(c *gin.Context) {
	var req ProcessRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid query", err.Error())
		return
	}
	if err := h.Validator.Struct(req); err != nil {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Validation failed", err.Error())
		return
	}

	ctx := c.Request.Context()
	in, err := h.loadStagedInputs(ctx)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to load staged rows", err.Error())
		return
	}
	if asOf := req.AsOf; asOf == "" {
		if h.DefaultAsOf != "" {
			in.AsOf, _ = time.Parse("2006-01-02", h.DefaultAsOf)
		}
	} else {
		in.AsOf, _ = time.Parse("2006-01-02", asOf)
	}

	runID, err := h.Store.CreateRun(ctx)
	if err != nil {
		h.Logger.Error().Err(err).Msg("failed to create run")
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to create run", err.Error())
		return
	}

	res, summary, err := h.Pipeline.Run(in)
	if err != nil {
		b, _ := json.Marshal(summary)
		if finishErr := h.Store.FinishRun(ctx, runID, db.RunFailed, b); finishErr != nil {
			h.Logger.Error().Err(finishErr).Msg("failed to finish run")
		}
		status := http.StatusInternalServerError
		if errors.Is(err, pipeline.ErrNoInputData) {
			status = http.StatusBadRequest
		}
		h.Logger.Error().Err(err).Str("run_id", runID).Msg("processing failed")
		writeError(c, status, "PROCESSING_ERROR", "Processing failed", err.Error())
		return
	}

	if err := h.persistResult(ctx, runID, res); err != nil {
		b, _ := json.Marshal(summary)
		if finishErr := h.Store.FinishRun(ctx, runID, db.RunFailed, b); finishErr != nil {
			h.Logger.Error().Err(finishErr).Msg("failed to finish run")
		}
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to persist results", err.Error())
		return
	}

	b, _ := json.Marshal(summary)
	if err := h.Store.FinishRun(ctx, runID, db.RunCompleted, b); err != nil {
		h.Logger.Error().Err(err).Msg("failed to finish run")
	}

	c.JSON(http.StatusOK, gin.H{"run_id": runID, "summary": summary})
}

func (h *Handler) loadStagedInputs(ctx context.Context) (pipeline.Inputs, error) {
	var (
		in  pipeline.Inputs
		err error
	)
	if in.Jobs, err = h.Store.StagedJobs(ctx); err != nil {
		return in, err
	}
	if in.Sales, err = h.Store.StagedSales(ctx); err != nil {
		return in, err
	}
	if in.Stops, err = h.Store.StagedStops(ctx); err != nil {
		return in, err
	}
	if in.Alerts, err = h.Store.StagedAlerts(ctx); err != nil {
		return in, err
	}
	if in.Idle, err = h.Store.StagedIdleEvents(ctx); err != nil {
		return in, err
	}
	if in.EngineHours, err = h.Store.StagedEngineHours(ctx); err != nil {
		return in, err
	}
	if in.DayBounds, err = h.Store.StagedDayBounds(ctx); err != nil {
		return in, err
	}
	return in, nil
}

func (h *Handler) persistResult(ctx context.Context, runID string, res pipeline.Result) error {
	if _, err := h.Store.InsertProcessedJobs(ctx, runID, res.Jobs); err != nil {
		return err
	}

	snapshots := map[string]any{
		db.SnapshotTechnicians:   res.Technicians,
		db.SnapshotDriving:       res.Driving,
		db.SnapshotCancellations: res.Cancellations,
		db.SnapshotIdle:          res.Idle,
		db.SnapshotUtilization:   res.Utilization,
	}
	return h.Store.WithTx(ctx, func(tx pgx.Tx) error {
		for kind, payload := range snapshots {
			b, err := json.Marshal(payload)
			if err != nil {
				return err
			}
			if err := h.Store.SaveSnapshot(ctx, tx, runID, kind, b); err != nil {
				return err
			}
		}
		return nil
	})
}

// @Summary Technician performance metrics
// @Tags metrics
// @Produce json
// @Success 200 {array} models.TechnicianMetrics
// @Failure 404 {object} map[string]any
// @Router /api/metrics/technicians [get]
func (h *Handler) MetricsTechnicians(c *gin.Context) {
	h.serveSnapshot(c, db.SnapshotTechnicians)
}

// @Summary Driving safety metrics
// @Tags metrics
// @Produce json
// @Success 200 {array} models.DrivingMetrics
// @Failure 404 {object} map[string]any
// @Router /api/metrics/driving [get]
func (h *Handler) MetricsDriving(c *gin.Context) {
	h.serveSnapshot(c, db.SnapshotDriving)
}

// @Summary Cancellation summary
// @Tags metrics
// @Produce json
// @Success 200 {object} models.CancellationSummary
// @Failure 404 {object} map[string]any
// @Router /api/metrics/cancellations [get]
func (h *Handler) MetricsCancellations(c *gin.Context) {
	h.serveSnapshot(c, db.SnapshotCancellations)
}

// @Summary Idle time metrics
// @Tags metrics
// @Produce json
// @Success 200 {array} models.IdleMetrics
// @Failure 404 {object} map[string]any
// @Router /api/metrics/idle [get]
func (h *Handler) MetricsIdle(c *gin.Context) {
	h.serveSnapshot(c, db.SnapshotIdle)
}

// @Summary Vehicle utilization metrics
// @Tags metrics
// @Produce json
// @Success 200 {array} models.UtilizationMetrics
// @Failure 404 {object} map[string]any
// @Router /api/metrics/utilization [get]
func (h *Handler) MetricsUtilization(c *gin.Context) {
	h.serveSnapshot(c, db.SnapshotUtilization)
}

func (h *Handler) serveSnapshot(c *gin.Context, kind string) {
	payload, err := h.Store.LatestSnapshot(c.Request.Context(), kind)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(c, http.StatusNotFound, "NOT_FOUND", "No completed runs yet", nil)
			return
		}
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to read snapshot", err.Error())
		return
	}
	c.Data(http.StatusOK, "application/json", payload)
}

// @Summary Latest run
// @Tags runs
// @Produce json
// @Success 200 {object} map[string]any
// @Failure 404 {object} map[string]any
// @Router /api/runs/latest [get]
func (h *Handler) RunsLatest(c *gin.Context) {
	run, err := h.Store.LatestRun(c.Request.Context())
	if err != nil {
		writeError(c, http.StatusNotFound, "NOT_FOUND", "No runs found", err.Error())
		return
	}

	var summary any
	if len(run.Summary) > 0 {
		_ = json.Unmarshal(run.Summary, &summary)
	}
	out := gin.H{
		"id":         run.ID,
		"started_at": run.StartedAt,
		"status":     run.Status,
		"summary":    summary,
	}
	if !run.FinishedAt.IsZero() {
		out["finished_at"] = run.FinishedAt
	}
	c.JSON(http.StatusOK, out)
}

func writeError(c *gin.Context, status int, code string, message string, details any) {
	c.JSON(status, gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
			"details": details,
		},
	})
}

func formFile(c *gin.Context, field string) *multipart.FileHeader {
	f, err := c.FormFile(field)
	if err != nil {
		return nil
	}
	return f
}

func validateExt(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".csv"
}
