// Package db persists staged source rows, run history, and computed metric
// snapshots in Postgres. The pipeline itself is pure; everything here exists
// so imports survive restarts and the dashboard can serve the latest results
// without re-processing.
package db

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/servicepulse/backend/internal/models"
)

// Run statuses.
const (
	RunRunning   = "RUNNING"
	RunCompleted = "COMPLETED"
	RunFailed    = "FAILED"
)

// Snapshot kinds stored per run.
const (
	SnapshotTechnicians   = "technicians"
	SnapshotDriving       = "driving"
	SnapshotCancellations = "cancellations"
	SnapshotIdle          = "idle"
	SnapshotUtilization   = "utilization"
)

type Store struct {
	Pool *pgxpool.Pool
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &Store{Pool: pool}, nil
}

func (s *Store) Close() {
	s.Pool.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.Pool.Ping(ctx)
}

func (s *Store) WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// EnsureSchema creates the tables on first start. Staging tables hold the
// latest import; runs and snapshots keep history.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.Pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			started_at TIMESTAMPTZ NOT NULL,
			finished_at TIMESTAMPTZ,
			status TEXT NOT NULL,
			summary JSONB
		);
		CREATE TABLE IF NOT EXISTS staging_jobs (
			job_number TEXT NOT NULL,
			tech_code TEXT NOT NULL,
			origin_date TIMESTAMPTZ,
			first_appointment TIMESTAMPTZ,
			completion_date TIMESTAMPTZ,
			address TEXT NOT NULL,
			city_state_zip TEXT NOT NULL,
			work_description TEXT NOT NULL,
			department TEXT NOT NULL,
			status TEXT NOT NULL,
			appliance_type TEXT NOT NULL,
			visit_count INT NOT NULL,
			completed_on_first_trip BOOLEAN NOT NULL,
			canceled BOOLEAN NOT NULL,
			material_total DOUBLE PRECISION NOT NULL,
			service_call_charge DOUBLE PRECISION NOT NULL,
			part_cost DOUBLE PRECISION NOT NULL
		);
		CREATE TABLE IF NOT EXISTS staging_sales (
			invoice_number TEXT NOT NULL,
			tech_code TEXT NOT NULL,
			labor_sold DOUBLE PRECISION NOT NULL,
			parts_sold DOUBLE PRECISION NOT NULL,
			service_call_sold DOUBLE PRECISION NOT NULL,
			merchandise_sold DOUBLE PRECISION NOT NULL,
			total_sale DOUBLE PRECISION NOT NULL,
			date_recorded TIMESTAMPTZ
		);
		CREATE TABLE IF NOT EXISTS staging_stops (
			device TEXT NOT NULL,
			address TEXT NOT NULL,
			start_time TIMESTAMPTZ NOT NULL,
			end_time TIMESTAMPTZ NOT NULL
		);
		CREATE TABLE IF NOT EXISTS staging_alerts (
			device TEXT NOT NULL,
			alert_type TEXT NOT NULL,
			occurred_at TIMESTAMPTZ NOT NULL,
			speed DOUBLE PRECISION NOT NULL,
			posted_speed DOUBLE PRECISION NOT NULL
		);
		CREATE TABLE IF NOT EXISTS staging_idle (
			device TEXT NOT NULL,
			start_time TIMESTAMPTZ NOT NULL,
			end_time TIMESTAMPTZ,
			duration_seconds INT NOT NULL
		);
		CREATE TABLE IF NOT EXISTS staging_engine_hours (
			device TEXT NOT NULL,
			day TIMESTAMPTZ NOT NULL,
			daily_seconds INT NOT NULL,
			lifetime_seconds INT NOT NULL
		);
		CREATE TABLE IF NOT EXISTS staging_day_bounds (
			device TEXT NOT NULL,
			day TIMESTAMPTZ NOT NULL,
			start_time TIMESTAMPTZ,
			end_time TIMESTAMPTZ
		);
		CREATE TABLE IF NOT EXISTS processed_jobs (
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			job_number TEXT NOT NULL,
			tech_code TEXT NOT NULL,
			job_type TEXT NOT NULL,
			payload JSONB NOT NULL
		);
		CREATE TABLE IF NOT EXISTS metric_snapshots (
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			kind TEXT NOT NULL,
			payload JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			PRIMARY KEY (run_id, kind)
		);
		CREATE INDEX IF NOT EXISTS idx_processed_jobs_run ON processed_jobs(run_id);
	`)
	return err
}

// TruncateStaging clears every staging table ahead of a fresh import.
func (s *Store) TruncateStaging(ctx context.Context, tx pgx.Tx) error {
	_, err := tx.Exec(ctx, `TRUNCATE staging_jobs, staging_sales, staging_stops,
		staging_alerts, staging_idle, staging_engine_hours, staging_day_bounds`)
	return err
}

func (s *Store) InsertJobs(ctx context.Context, jobs []models.JobRecord) (int64, error) {
	rows := make([][]any, 0, len(jobs))
	for _, j := range jobs {
		rows = append(rows, []any{
			j.JobNumber, j.TechCode, nullable(j.OriginDate), nullable(j.FirstAppointment),
			nullable(j.CompletionDate), j.Address, j.CityStateZip, j.WorkDescription,
			j.Department, j.Status, j.ApplianceType, j.VisitCount,
			j.CompletedOnFirstTrip, j.Canceled, j.MaterialTotal, j.ServiceCallCharge, j.PartCost,
		})
	}
	return s.Pool.CopyFrom(ctx, pgx.Identifier{"staging_jobs"}, []string{
		"job_number", "tech_code", "origin_date", "first_appointment", "completion_date",
		"address", "city_state_zip", "work_description", "department", "status",
		"appliance_type", "visit_count", "completed_on_first_trip", "canceled",
		"material_total", "service_call_charge", "part_cost",
	}, pgx.CopyFromRows(rows))
}

func (s *Store) InsertSales(ctx context.Context, records []models.SalesRecord) (int64, error) {
	rows := make([][]any, 0, len(records))
	for _, r := range records {
		rows = append(rows, []any{
			r.InvoiceNumber, r.TechCode, r.LaborSold, r.PartsSold,
			r.ServiceCallSold, r.MerchandiseSold, r.TotalSale, nullable(r.DateRecorded),
		})
	}
	return s.Pool.CopyFrom(ctx, pgx.Identifier{"staging_sales"}, []string{
		"invoice_number", "tech_code", "labor_sold", "parts_sold",
		"service_call_sold", "merchandise_sold", "total_sale", "date_recorded",
	}, pgx.CopyFromRows(rows))
}

func (s *Store) InsertStops(ctx context.Context, stops []models.GPSStopEvent) (int64, error) {
	rows := make([][]any, 0, len(stops))
	for _, st := range stops {
		rows = append(rows, []any{st.Device, st.Address, st.StartTime, st.EndTime})
	}
	return s.Pool.CopyFrom(ctx, pgx.Identifier{"staging_stops"},
		[]string{"device", "address", "start_time", "end_time"}, pgx.CopyFromRows(rows))
}

func (s *Store) InsertAlerts(ctx context.Context, alerts []models.AlertEvent) (int64, error) {
	rows := make([][]any, 0, len(alerts))
	for _, a := range alerts {
		rows = append(rows, []any{a.Device, a.AlertType, a.OccurredAt, a.Speed, a.PostedSpeed})
	}
	return s.Pool.CopyFrom(ctx, pgx.Identifier{"staging_alerts"},
		[]string{"device", "alert_type", "occurred_at", "speed", "posted_speed"}, pgx.CopyFromRows(rows))
}

func (s *Store) InsertIdleEvents(ctx context.Context, events []models.IdleEvent) (int64, error) {
	rows := make([][]any, 0, len(events))
	for _, e := range events {
		rows = append(rows, []any{e.Device, e.StartTime, nullable(e.EndTime), e.DurationSeconds})
	}
	return s.Pool.CopyFrom(ctx, pgx.Identifier{"staging_idle"},
		[]string{"device", "start_time", "end_time", "duration_seconds"}, pgx.CopyFromRows(rows))
}

func (s *Store) InsertEngineHours(ctx context.Context, days []models.EngineHoursDay) (int64, error) {
	rows := make([][]any, 0, len(days))
	for _, d := range days {
		rows = append(rows, []any{d.Device, d.Date, d.DailySeconds, d.LifetimeSeconds})
	}
	return s.Pool.CopyFrom(ctx, pgx.Identifier{"staging_engine_hours"},
		[]string{"device", "day", "daily_seconds", "lifetime_seconds"}, pgx.CopyFromRows(rows))
}

func (s *Store) InsertDayBounds(ctx context.Context, days []models.DayBoundary) (int64, error) {
	rows := make([][]any, 0, len(days))
	for _, d := range days {
		rows = append(rows, []any{d.Device, d.Date, nullable(d.StartTime), nullable(d.EndTime)})
	}
	return s.Pool.CopyFrom(ctx, pgx.Identifier{"staging_day_bounds"},
		[]string{"device", "day", "start_time", "end_time"}, pgx.CopyFromRows(rows))
}

func (s *Store) StagedJobs(ctx context.Context) ([]models.JobRecord, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT job_number, tech_code, origin_date, first_appointment, completion_date,
			address, city_state_zip, work_description, department, status,
			appliance_type, visit_count, completed_on_first_trip, canceled,
			material_total, service_call_charge, part_cost
		FROM staging_jobs`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.JobRecord
	for rows.Next() {
		var (
			j                      models.JobRecord
			origin, appt, complete *time.Time
		)
		if err := rows.Scan(&j.JobNumber, &j.TechCode, &origin, &appt, &complete,
			&j.Address, &j.CityStateZip, &j.WorkDescription, &j.Department, &j.Status,
			&j.ApplianceType, &j.VisitCount, &j.CompletedOnFirstTrip, &j.Canceled,
			&j.MaterialTotal, &j.ServiceCallCharge, &j.PartCost); err != nil {
			return nil, err
		}
		j.OriginDate = deref(origin)
		j.FirstAppointment = deref(appt)
		j.CompletionDate = deref(complete)
		out = append(out, j)
	}
	return out, rows.Err()
}

func (s *Store) StagedSales(ctx context.Context) ([]models.SalesRecord, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT invoice_number, tech_code, labor_sold, parts_sold,
			service_call_sold, merchandise_sold, total_sale, date_recorded
		FROM staging_sales`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.SalesRecord
	for rows.Next() {
		var (
			r        models.SalesRecord
			recorded *time.Time
		)
		if err := rows.Scan(&r.InvoiceNumber, &r.TechCode, &r.LaborSold, &r.PartsSold,
			&r.ServiceCallSold, &r.MerchandiseSold, &r.TotalSale, &recorded); err != nil {
			return nil, err
		}
		r.DateRecorded = deref(recorded)
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) StagedStops(ctx context.Context) ([]models.GPSStopEvent, error) {
	rows, err := s.Pool.Query(ctx,
		`SELECT device, address, start_time, end_time FROM staging_stops`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.GPSStopEvent
	for rows.Next() {
		var st models.GPSStopEvent
		if err := rows.Scan(&st.Device, &st.Address, &st.StartTime, &st.EndTime); err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

func (s *Store) StagedAlerts(ctx context.Context) ([]models.AlertEvent, error) {
	rows, err := s.Pool.Query(ctx,
		`SELECT device, alert_type, occurred_at, speed, posted_speed FROM staging_alerts`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.AlertEvent
	for rows.Next() {
		var a models.AlertEvent
		if err := rows.Scan(&a.Device, &a.AlertType, &a.OccurredAt, &a.Speed, &a.PostedSpeed); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *Store) StagedIdleEvents(ctx context.Context) ([]models.IdleEvent, error) {
	rows, err := s.Pool.Query(ctx,
		`SELECT device, start_time, end_time, duration_seconds FROM staging_idle`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.IdleEvent
	for rows.Next() {
		var (
			e   models.IdleEvent
			end *time.Time
		)
		if err := rows.Scan(&e.Device, &e.StartTime, &end, &e.DurationSeconds); err != nil {
			return nil, err
		}
		e.EndTime = deref(end)
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) StagedEngineHours(ctx context.Context) ([]models.EngineHoursDay, error) {
	rows, err := s.Pool.Query(ctx,
		`SELECT device, day, daily_seconds, lifetime_seconds FROM staging_engine_hours`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.EngineHoursDay
	for rows.Next() {
		var d models.EngineHoursDay
		if err := rows.Scan(&d.Device, &d.Date, &d.DailySeconds, &d.LifetimeSeconds); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *Store) StagedDayBounds(ctx context.Context) ([]models.DayBoundary, error) {
	rows, err := s.Pool.Query(ctx,
		`SELECT device, day, start_time, end_time FROM staging_day_bounds`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.DayBoundary
	for rows.Next() {
		var (
			d          models.DayBoundary
			start, end *time.Time
		)
		if err := rows.Scan(&d.Device, &d.Date, &start, &end); err != nil {
			return nil, err
		}
		d.StartTime = deref(start)
		d.EndTime = deref(end)
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *Store) CreateRun(ctx context.Context) (string, error) {
	id := uuid.NewString()
	_, err := s.Pool.Exec(ctx,
		`INSERT INTO runs (id, status, started_at) VALUES ($1, $2, NOW())`,
		id, RunRunning)
	return id, err
}

func (s *Store) FinishRun(ctx context.Context, runID string, status string, summary []byte) error {
	_, err := s.Pool.Exec(ctx,
		`UPDATE runs SET status = $1, summary = $2, finished_at = NOW() WHERE id = $3`,
		status, summary, runID)
	return err
}

func (s *Store) LatestRun(ctx context.Context) (models.Run, error) {
	row := s.Pool.QueryRow(ctx,
		`SELECT id, started_at, finished_at, status, summary FROM runs ORDER BY started_at DESC LIMIT 1`)

	var (
		run      models.Run
		finished *time.Time
	)
	if err := row.Scan(&run.ID, &run.StartedAt, &finished, &run.Status, &run.Summary); err != nil {
		return models.Run{}, err
	}
	run.FinishedAt = deref(finished)
	return run, nil
}

// InsertProcessedJobs stores the fully derived job rows of one run. The
// payload column keeps the complete record; the extracted columns exist for
// ad-hoc SQL.
func (s *Store) InsertProcessedJobs(ctx context.Context, runID string, jobs []models.JobRecord) (int64, error) {
	rows := make([][]any, 0, len(jobs))
	for _, j := range jobs {
		payload, err := json.Marshal(j)
		if err != nil {
			return 0, err
		}
		rows = append(rows, []any{runID, j.JobNumber, j.TechCode, string(j.JobType), payload})
	}
	return s.Pool.CopyFrom(ctx, pgx.Identifier{"processed_jobs"},
		[]string{"run_id", "job_number", "tech_code", "job_type", "payload"},
		pgx.CopyFromRows(rows))
}

func (s *Store) SaveSnapshot(ctx context.Context, tx pgx.Tx, runID string, kind string, payload []byte) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO metric_snapshots (run_id, kind, payload, created_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (run_id, kind) DO UPDATE SET
			payload = EXCLUDED.payload,
			created_at = EXCLUDED.created_at
	`, runID, kind, payload)
	return err
}

// LatestSnapshot returns the newest snapshot of one kind from a completed
// run. pgx.ErrNoRows means no run has produced that kind yet.
func (s *Store) LatestSnapshot(ctx context.Context, kind string) ([]byte, error) {
	var payload []byte
	err := s.Pool.QueryRow(ctx, `
		SELECT m.payload
		FROM metric_snapshots m
		JOIN runs r ON r.id = m.run_id
		WHERE m.kind = $1 AND r.status = $2
		ORDER BY r.started_at DESC
		LIMIT 1
	`, kind, RunCompleted).Scan(&payload)
	if err != nil {
		return nil, err
	}
	return payload, nil
}

func nullable(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func deref(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}
