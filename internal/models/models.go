package models

import "time"

// JobType is the single summary category for a job. A job can satisfy
// several classification predicates at once; JobType resolves them with
// Canceled > Recall > DiagnosticOnly > StandardRepair precedence.
type JobType string

const (
	JobTypeStandard   JobType = "Standard Repair"
	JobTypeDiagnostic JobType = "Diagnostic Only"
	JobTypeRecall     JobType = "Recall"
	JobTypeCanceled   JobType = "Canceled"
)

// GPSMatch holds the stop event matched to a job. A nil *GPSMatch on
// JobRecord means no stop cleared the confidence threshold.
type GPSMatch struct {
	StartTime       time.Time `json:"start_time"`
	EndTime         time.Time `json:"end_time"`
	DurationMinutes float64   `json:"duration_minutes"`
	Address         string    `json:"address"`
	Confidence      float64   `json:"confidence"`
}

type JobRecord struct {
	JobNumber            string    `json:"job_number"`
	TechCode             string    `json:"tech_code"`
	OriginDate           time.Time `json:"origin_date"`
	FirstAppointment     time.Time `json:"first_appointment"`
	CompletionDate       time.Time `json:"completion_date"`
	Address              string    `json:"address"`
	CityStateZip         string    `json:"city_state_zip"`
	WorkDescription      string    `json:"work_description"`
	Department           string    `json:"department"`
	Status               string    `json:"status"`
	ApplianceType        string    `json:"appliance_type"`
	VisitCount           int       `json:"visit_count"`
	CompletedOnFirstTrip bool      `json:"completed_on_first_trip"`
	Canceled             bool      `json:"canceled"`

	// Job-report-side financials. Zeroed by the sales merger before
	// sales-journal revenue is joined on.
	MaterialTotal     float64 `json:"material_total"`
	ServiceCallCharge float64 `json:"service_call_charge"`
	PartCost          float64 `json:"part_cost"`

	// Derived by the pipeline stages.
	Device           string    `json:"device"`
	IsFTC            bool      `json:"is_ftc"`
	IsDiagnosticOnly bool      `json:"is_diagnostic_only"`
	IsRecall         bool      `json:"is_recall"`
	JobType          JobType   `json:"job_type"`
	CancelReason     string    `json:"cancel_reason"`
	CancelConfidence float64   `json:"cancel_confidence"`
	TimeOnJobMinutes float64   `json:"time_on_job_minutes"`
	HasTimeOnJob     bool      `json:"has_time_on_job"`
	GPS              *GPSMatch `json:"gps,omitempty"`
	LaborSold        float64   `json:"labor_sold"`
	PartsSold        float64   `json:"parts_sold"`
	ServiceCallSold  float64   `json:"service_call_sold"`
	MerchandiseSold  float64   `json:"merchandise_sold"`
	TotalSale        float64   `json:"total_sale"`
	SalesMatched     bool      `json:"sales_matched"`
}

type SalesRecord struct {
	InvoiceNumber   string    `json:"invoice_number"`
	TechCode        string    `json:"tech_code"`
	LaborSold       float64   `json:"labor_sold"`
	PartsSold       float64   `json:"parts_sold"`
	ServiceCallSold float64   `json:"service_call_sold"`
	MerchandiseSold float64   `json:"merchandise_sold"`
	TotalSale       float64   `json:"total_sale"`
	DateRecorded    time.Time `json:"date_recorded"`
}

type GPSStopEvent struct {
	Device    string    `json:"device"`
	Address   string    `json:"address"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
}

type AlertEvent struct {
	Device      string    `json:"device"`
	AlertType   string    `json:"alert_type"`
	OccurredAt  time.Time `json:"occurred_at"`
	Speed       float64   `json:"speed"`
	PostedSpeed float64   `json:"posted_speed"`
}

type IdleEvent struct {
	Device          string    `json:"device"`
	StartTime       time.Time `json:"start_time"`
	EndTime         time.Time `json:"end_time"`
	DurationSeconds int       `json:"duration_seconds"`
}

type EngineHoursDay struct {
	Device          string    `json:"device"`
	Date            time.Time `json:"date"`
	DailySeconds    int       `json:"daily_seconds"`
	LifetimeSeconds int       `json:"lifetime_seconds"`
}

type DayBoundary struct {
	Device    string    `json:"device"`
	Date      time.Time `json:"date"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
}

// TechnicianMetrics is one aggregated row per technician code.
type TechnicianMetrics struct {
	TechCode           string  `json:"tech_code"`
	Device             string  `json:"device"`
	TotalJobs          int     `json:"total_jobs"`
	FTCJobs            int     `json:"ftc_jobs"`
	DiagnosticJobs     int     `json:"diagnostic_jobs"`
	RecallJobs         int     `json:"recall_jobs"`
	CanceledJobs       int     `json:"canceled_jobs"`
	FTCRate            float64 `json:"ftc_rate"`
	DiagnosticRate     float64 `json:"diagnostic_rate"`
	CancellationRate   float64 `json:"cancellation_rate"`
	LaborRevenue       float64 `json:"labor_revenue"`
	PartsRevenue       float64 `json:"parts_revenue"`
	ServiceCallRevenue float64 `json:"service_call_revenue"`
	MerchandiseRevenue float64 `json:"merchandise_revenue"`
	TotalRevenue       float64 `json:"total_revenue"`
	AvgRevenuePerJob   float64 `json:"avg_revenue_per_job"`
	PartCostTotal      float64 `json:"part_cost_total"`
	TotalProfit        float64 `json:"total_profit"`
	ProfitMargin       float64 `json:"profit_margin"`
	HasProfitData      bool    `json:"has_profit_data"`
	AvgTimeOnJobMin    float64 `json:"avg_time_on_job_min"`
}

// DrivingMetrics is one row per technician per alert time window.
type DrivingMetrics struct {
	TechCode        string         `json:"tech_code"`
	Device          string         `json:"device"`
	Window          string         `json:"window"`
	AlertCounts     map[string]int `json:"alert_counts"`
	TotalAlerts     int            `json:"total_alerts"`
	WeightedPenalty float64        `json:"weighted_penalty"`
	DrivingScore    float64        `json:"driving_score"`
	Category        string         `json:"category"`
}

type TechCancellation struct {
	TechCode     string  `json:"tech_code"`
	TotalJobs    int     `json:"total_jobs"`
	CanceledJobs int     `json:"canceled_jobs"`
	CancelRate   float64 `json:"cancel_rate"`
}

// CancellationSummary keeps the company-wide rate alongside per-reason and
// per-technician breakdowns. Canceled jobs frequently carry no technician,
// so the company-wide rate is the primary number.
type CancellationSummary struct {
	TotalJobs    int                `json:"total_jobs"`
	CanceledJobs int                `json:"canceled_jobs"`
	CompanyRate  float64            `json:"company_rate"`
	ByReason     map[string]int     `json:"by_reason"`
	ByTechnician []TechCancellation `json:"by_technician"`
}

type IdleMetrics struct {
	Device         string  `json:"device"`
	TechCode       string  `json:"tech_code"`
	IdleEvents     int     `json:"idle_events"`
	TotalSeconds   int     `json:"total_seconds"`
	AvgSeconds     float64 `json:"avg_seconds"`
	MaxSeconds     int     `json:"max_seconds"`
	TotalHours     float64 `json:"total_hours"`
	DaysInPeriod   int     `json:"days_in_period"`
	AvgHoursPerDay float64 `json:"avg_hours_per_day"`
}

type UtilizationMetrics struct {
	Device            string  `json:"device"`
	TechCode          string  `json:"tech_code"`
	DaysTracked       int     `json:"days_tracked"`
	EngineHoursTotal  float64 `json:"engine_hours_total"`
	EngineHoursPerDay float64 `json:"engine_hours_per_day"`
	AvgWorkdayHours   float64 `json:"avg_workday_hours"`
}

type Run struct {
	ID         string    `json:"id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Status     string    `json:"status"`
	Summary    []byte    `json:"summary"`
}
