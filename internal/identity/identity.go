package identity

import (
	"sort"
	"strings"
)

// UnknownDevice is the sentinel for technicians with no GPS tracker.
// Downstream stages treat it as "no GPS correlation possible" and skip
// matching, never as an error.
const UnknownDevice = "UNKNOWN"

// Tables is the hand-curated identity data injected into a Mapper.
// Keeping it a value type lets tests swap in alternate tables.
type Tables struct {
	// DeviceToTech maps GPS device names to technician codes.
	DeviceToTech map[string]string
	// Aliases maps common name variants and misspellings to canonical codes.
	Aliases map[string]string
	// NoGPS lists staff codes with no tracked vehicle (office staff, online
	// scheduling). Their jobs never get GPS correlation.
	NoGPS map[string]string
}

// DefaultTables returns the production identity mapping.
func DefaultTables() Tables {
	return Tables{
		DeviceToTech: map[string]string{
			"James":         "JS",
			"Joe":           "JD",
			"Bianca":        "BB",
			"Ricardo (NEW)": "RR",
			"Shane":         "SS",
			"Porter":        "AP",
			"Dane":          "DM",
			"Sean":          "SF",
		},
		Aliases: map[string]string{
			"ROBERT":  "RR",
			"RICK":    "RR",
			"RICARDO": "RR",
			"JAMES":   "JS",
			"JIM":     "JS",
			"JOSEPH":  "JD",
			"JOEY":    "JD",
			"DANIEL":  "DM",
			"DANNY":   "DM",
			"SHANE":   "SS",
			"SHAWN":   "SF",
			"SEAN":    "SF",
			"BIANCA":  "BB",
			"ADAM":    "AP",
			"PORTER":  "AP",
		},
		NoGPS: map[string]string{
			"MK": "Mark",
			"AJ": "Abby",
			"KH": "Kendra",
			"LL": "Laura",
			"XX": "Online",
		},
	}
}

// Mapper resolves technician identity across the job-tracking, sales, and
// GPS systems. Lookups are case-insensitive after trimming.
type Mapper struct {
	deviceToTech map[string]string // upper(device) -> code
	techToDevice map[string]string // code -> original device name
	aliases      map[string]string
	validCodes   map[string]bool
}

func NewMapper(t Tables) *Mapper {
	m := &Mapper{
		deviceToTech: make(map[string]string, len(t.DeviceToTech)),
		techToDevice: make(map[string]string, len(t.DeviceToTech)),
		aliases:      make(map[string]string, len(t.Aliases)),
		validCodes:   make(map[string]bool),
	}
	for device, code := range t.DeviceToTech {
		upCode := strings.ToUpper(strings.TrimSpace(code))
		m.deviceToTech[strings.ToUpper(strings.TrimSpace(device))] = upCode
		m.techToDevice[upCode] = device
		m.validCodes[upCode] = true
	}
	for alias, code := range t.Aliases {
		m.aliases[strings.ToUpper(strings.TrimSpace(alias))] = strings.ToUpper(strings.TrimSpace(code))
	}
	for code := range t.NoGPS {
		m.validCodes[strings.ToUpper(strings.TrimSpace(code))] = true
	}
	return m
}

// DeviceForTech returns the GPS device name for a technician code, or
// UnknownDevice when the technician has no tracked vehicle.
func (m *Mapper) DeviceForTech(code string) string {
	device, ok := m.techToDevice[strings.ToUpper(strings.TrimSpace(code))]
	if !ok {
		return UnknownDevice
	}
	return device
}

// TechForDevice returns the technician code for a GPS device name. Unmapped
// devices resolve to the trimmed original name so alert rows are never lost.
func (m *Mapper) TechForDevice(name string) string {
	trimmed := strings.TrimSpace(name)
	if code, ok := m.deviceToTech[strings.ToUpper(trimmed)]; ok {
		return code
	}
	return trimmed
}

// StandardizeTechCode folds name variants and misspellings to a canonical
// technician code. Empty input resolves to UnknownDevice; unrecognized codes
// pass through uppercased.
func (m *Mapper) StandardizeTechCode(raw string) string {
	tech := strings.ToUpper(strings.TrimSpace(raw))
	if tech == "" {
		return UnknownDevice
	}
	if code, ok := m.aliases[tech]; ok {
		return code
	}
	return tech
}

// Roster returns the GPS-tracked technician codes in sorted order.
func (m *Mapper) Roster() []string {
	out := make([]string, 0, len(m.techToDevice))
	for code := range m.techToDevice {
		out = append(out, code)
	}
	sort.Strings(out)
	return out
}

// Known reports whether code is a curated technician or staff code.
func (m *Mapper) Known(code string) bool {
	return m.validCodes[strings.ToUpper(strings.TrimSpace(code))]
}
