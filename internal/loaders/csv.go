// Package loaders parses the three fixed CSV source shapes (job reports,
// sales journal, GPS fleet exports) into normalized records. Malformed
// values coerce to zero values; only an unreadable file is an error.
package loaders

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/servicepulse/backend/internal/models"
	"github.com/servicepulse/backend/internal/textnorm"
)

var dateLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"1/2/2006 3:04:05 PM",
	"1/2/2006 3:04 PM",
	"1/2/2006 15:04:05",
	"1/2/2006 15:04",
	"1/2/2006",
	"01/02/2006",
	time.RFC3339,
}

func parseTime(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

func parseFloat(s string) float64 {
	s = strings.TrimSpace(strings.ReplaceAll(strings.Trim(s, "$"), ",", ""))
	if s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}

func parseInt(s string) int {
	return int(parseFloat(s))
}

func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "yes", "y", "1":
		return true
	}
	return false
}

func readAll(r io.Reader) (*ColumnResolver, [][]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("read csv: %w", err)
	}
	if len(rows) == 0 {
		return NewColumnResolver(nil), nil, nil
	}
	return NewColumnResolver(rows[0]), rows[1:], nil
}

// LoadJobReport parses a Type6 job report export.
func LoadJobReport(r io.Reader) ([]models.JobRecord, error) {
	res, rows, err := readAll(r)
	if err != nil {
		return nil, err
	}

	specs := map[string]FieldSpec{
		"job":        {Name: "job number", Candidates: []string{"JobNumber", "Job Number", "JobId"}},
		"tech":       {Name: "technician", Candidates: []string{"TechCode", "Technician", "Tech"}},
		"origin":     {Name: "origin date", Candidates: []string{"OriginDate"}},
		"appt":       {Name: "first appointment", Candidates: []string{"FirstAppmnt", "FirstAppointment", "Appointment"}},
		"completion": {Name: "completion date", Candidates: []string{"CmpltnDate", "CompletionDate"}},
		"address":    {Name: "address", Candidates: []string{"Address"}},
		"citystzip":  {Name: "city state zip", Candidates: []string{"CityStateZip"}},
		"desc":       {Name: "work description", Candidates: []string{"WorkDescription", "Description"}},
		"dept":       {Name: "department", Candidates: []string{"Department"}},
		"status":     {Name: "status", Candidates: []string{"Status"}},
		"appliance":  {Name: "appliance type", Candidates: []string{"ApplianceType", "Appliance"}},
		"visits":     {Name: "visit count", Candidates: []string{"HowManyVisits", "Visits"}},
		"ftc":        {Name: "first trip flag", Candidates: []string{"CompletedOnFirstTrip"}},
		"canceled":   {Name: "canceled flag", Candidates: []string{"JobCanceled", "Canceled"}},
		"material": {Name: "material total", Candidates: []string{
			"TotalMaterialInSale", "TotalMateriaInSale", // source typo appears in real exports
		}},
		"scall": {Name: "service call charge", Candidates: []string{"SCallSold", "ServiceCallCharge"}},
		"partcost": {Name: "part cost", Candidates: []string{
			"TtlPartCost (includes value of any unused items not returned to vendor)", "TtlPartCost", "PartCost",
		}},
	}

	out := make([]models.JobRecord, 0, len(rows))
	for _, row := range rows {
		job := models.JobRecord{
			JobNumber:            res.Value(row, specs["job"]),
			TechCode:             strings.ToUpper(res.Value(row, specs["tech"])),
			OriginDate:           parseTime(res.Value(row, specs["origin"])),
			FirstAppointment:     parseTime(res.Value(row, specs["appt"])),
			CompletionDate:       parseTime(res.Value(row, specs["completion"])),
			Address:              res.Value(row, specs["address"]),
			CityStateZip:         res.Value(row, specs["citystzip"]),
			WorkDescription:      res.Value(row, specs["desc"]),
			Department:           res.Value(row, specs["dept"]),
			Status:               res.Value(row, specs["status"]),
			ApplianceType:        textnorm.StandardizeApplianceType(res.Value(row, specs["appliance"])),
			VisitCount:           parseInt(res.Value(row, specs["visits"])),
			CompletedOnFirstTrip: parseBool(res.Value(row, specs["ftc"])),
			Canceled:             parseBool(res.Value(row, specs["canceled"])),
			MaterialTotal:        parseFloat(res.Value(row, specs["material"])),
			ServiceCallCharge:    parseFloat(res.Value(row, specs["scall"])),
			PartCost:             parseFloat(res.Value(row, specs["partcost"])),
		}
		if job.JobNumber == "" && job.TechCode == "" {
			continue
		}
		out = append(out, job)
	}
	return out, nil
}

// LoadSalesJournal parses sales journal line items.
func LoadSalesJournal(r io.Reader) ([]models.SalesRecord, error) {
	res, rows, err := readAll(r)
	if err != nil {
		return nil, err
	}

	specs := map[string]FieldSpec{
		"invoice":     {Name: "invoice number", Candidates: []string{"InvoiceNumber", "Invoice"}},
		"tech":        {Name: "technician", Candidates: []string{"Technician", "TechCode"}},
		"labor":       {Name: "labor sold", Candidates: []string{"LaborSold"}},
		"parts":       {Name: "parts sold", Candidates: []string{"PartsSold"}},
		"scall":       {Name: "service call sold", Candidates: []string{"SCallSold"}},
		"merchandise": {Name: "merchandise sold", Candidates: []string{"MerchandiseSold"}},
		"total":       {Name: "total sale", Candidates: []string{"TotalSale"}},
		"date":        {Name: "date recorded", Candidates: []string{"DateRecorded"}},
	}

	out := make([]models.SalesRecord, 0, len(rows))
	for _, row := range rows {
		rec := models.SalesRecord{
			InvoiceNumber:   res.Value(row, specs["invoice"]),
			TechCode:        strings.ToUpper(res.Value(row, specs["tech"])),
			LaborSold:       parseFloat(res.Value(row, specs["labor"])),
			PartsSold:       parseFloat(res.Value(row, specs["parts"])),
			ServiceCallSold: parseFloat(res.Value(row, specs["scall"])),
			MerchandiseSold: parseFloat(res.Value(row, specs["merchandise"])),
			TotalSale:       parseFloat(res.Value(row, specs["total"])),
			DateRecorded:    parseTime(res.Value(row, specs["date"])),
		}
		if rec.InvoiceNumber == "" && rec.TechCode == "" {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

// Shared GPS export field specs. The fleet platform renames identifier
// columns between export types, hence the substring fallbacks.
var (
	deviceSpec = FieldSpec{
		Name:        "device",
		Candidates:  []string{"Device", "DeviceId", "Driver", "Driver_Name", "DriverId"},
		Substrings:  []string{"device", "driver", "unit", "name", "id"},
		Placeholder: "Unknown",
	}
	startTimeSpec = FieldSpec{
		Name:       "start time",
		Candidates: []string{"Start Time", "StartTime"},
		Substrings: []string{"start"},
	}
	endTimeSpec = FieldSpec{
		Name:       "end time",
		Candidates: []string{"End Time", "EndTime"},
		Substrings: []string{"end"},
	}
)

// LoadGPSStops parses a drives/stops export, keeping stop rows only when
// the export mixes both event kinds.
func LoadGPSStops(r io.Reader) ([]models.GPSStopEvent, error) {
	res, rows, err := readAll(r)
	if err != nil {
		return nil, err
	}

	addressSpec := FieldSpec{Name: "address", Candidates: []string{"Address", "Location"}, Substrings: []string{"address", "location"}}
	kindSpec := FieldSpec{Name: "event kind", Candidates: []string{"Type", "Event", "Status"}}
	_, hasKind := res.Resolve(kindSpec)

	out := make([]models.GPSStopEvent, 0, len(rows))
	for _, row := range rows {
		if hasKind {
			kind := strings.ToLower(res.Value(row, kindSpec))
			if kind != "" && !strings.Contains(kind, "stop") {
				continue
			}
		}
		stop := models.GPSStopEvent{
			Device:    res.Value(row, deviceSpec),
			Address:   res.Value(row, addressSpec),
			StartTime: parseTime(res.Value(row, startTimeSpec)),
			EndTime:   parseTime(res.Value(row, endTimeSpec)),
		}
		if stop.StartTime.IsZero() {
			continue
		}
		if stop.EndTime.Before(stop.StartTime) {
			stop.EndTime = stop.StartTime
		}
		out = append(out, stop)
	}
	return out, nil
}

// LoadAlerts parses a driving-alert export.
func LoadAlerts(r io.Reader) ([]models.AlertEvent, error) {
	res, rows, err := readAll(r)
	if err != nil {
		return nil, err
	}

	alertSpec := FieldSpec{
		Name:        "alert type",
		Candidates:  []string{"AlertType", "Alert", "AlertName", "Type"},
		Substrings:  []string{"alert"},
		Placeholder: "Unknown",
	}
	timeSpec := FieldSpec{
		Name:       "timestamp",
		Candidates: []string{"Date & Time", "Timestamp", "AlertTime", "AlertDate"},
		Substrings: []string{"time", "date"},
	}
	speedSpec := FieldSpec{Name: "speed", Candidates: []string{"Speed"}}
	postedSpec := FieldSpec{Name: "posted speed", Candidates: []string{"Posted Speed", "PostedSpeed"}}

	out := make([]models.AlertEvent, 0, len(rows))
	for _, row := range rows {
		ev := models.AlertEvent{
			Device:      res.Value(row, deviceSpec),
			AlertType:   res.Value(row, alertSpec),
			OccurredAt:  parseTime(res.Value(row, timeSpec)),
			Speed:       parseFloat(res.Value(row, speedSpec)),
			PostedSpeed: parseFloat(res.Value(row, postedSpec)),
		}
		if ev.OccurredAt.IsZero() {
			continue
		}
		out = append(out, ev)
	}
	return out, nil
}

// LoadIdleTime parses an idle-time export with HH:MM:SS durations.
func LoadIdleTime(r io.Reader) ([]models.IdleEvent, error) {
	res, rows, err := readAll(r)
	if err != nil {
		return nil, err
	}

	durationSpec := FieldSpec{Name: "duration", Candidates: []string{"Duration"}, Substrings: []string{"duration"}}

	out := make([]models.IdleEvent, 0, len(rows))
	for _, row := range rows {
		ev := models.IdleEvent{
			Device:          res.Value(row, deviceSpec),
			StartTime:       parseTime(res.Value(row, startTimeSpec)),
			EndTime:         parseTime(res.Value(row, endTimeSpec)),
			DurationSeconds: textnorm.ParseDuration(res.Value(row, durationSpec)),
		}
		if ev.StartTime.IsZero() {
			continue
		}
		if ev.DurationSeconds == 0 && ev.EndTime.After(ev.StartTime) {
			ev.DurationSeconds = int(ev.EndTime.Sub(ev.StartTime).Seconds())
		}
		out = append(out, ev)
	}
	return out, nil
}

// LoadEngineHours parses a daily engine-hours export.
func LoadEngineHours(r io.Reader) ([]models.EngineHoursDay, error) {
	res, rows, err := readAll(r)
	if err != nil {
		return nil, err
	}

	dateSpec := FieldSpec{Name: "date", Candidates: []string{"Date"}}
	dailySpec := FieldSpec{Name: "daily hours", Candidates: []string{"Daily Hours Accumulated", "DailyHours"}}
	lifetimeSpec := FieldSpec{Name: "lifetime hours", Candidates: []string{"Lifetime Hours", "LifetimeHours"}}

	out := make([]models.EngineHoursDay, 0, len(rows))
	for _, row := range rows {
		day := models.EngineHoursDay{
			Device:          res.Value(row, deviceSpec),
			Date:            parseTime(res.Value(row, dateSpec)),
			DailySeconds:    textnorm.ParseDuration(res.Value(row, dailySpec)),
			LifetimeSeconds: textnorm.ParseDuration(res.Value(row, lifetimeSpec)),
		}
		if day.Date.IsZero() {
			continue
		}
		out = append(out, day)
	}
	return out, nil
}

// LoadDayBoundaries parses a day start/end export, where Start Time and
// End Time are clock times attached to the row's date.
func LoadDayBoundaries(r io.Reader) ([]models.DayBoundary, error) {
	res, rows, err := readAll(r)
	if err != nil {
		return nil, err
	}

	dateSpec := FieldSpec{Name: "date", Candidates: []string{"Date"}}

	out := make([]models.DayBoundary, 0, len(rows))
	for _, row := range rows {
		b := models.DayBoundary{
			Device: res.Value(row, deviceSpec),
			Date:   parseTime(res.Value(row, dateSpec)),
		}
		if b.Date.IsZero() {
			continue
		}
		b.StartTime = combineClock(b.Date, res.Value(row, startTimeSpec))
		b.EndTime = combineClock(b.Date, res.Value(row, endTimeSpec))
		out = append(out, b)
	}
	return out, nil
}

var clockLayouts = []string{"15:04:05", "15:04", "3:04:05 PM", "3:04 PM"}

func combineClock(date time.Time, clock string) time.Time {
	clock = strings.TrimSpace(clock)
	if clock == "" {
		return time.Time{}
	}
	for _, layout := range clockLayouts {
		if t, err := time.Parse(layout, clock); err == nil {
			return time.Date(date.Year(), date.Month(), date.Day(), t.Hour(), t.Minute(), t.Second(), 0, date.Location())
		}
	}
	// Some exports ship full timestamps in the clock columns.
	return parseTime(clock)
}
