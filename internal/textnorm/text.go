package textnorm

import (
	"regexp"
	"strconv"
	"strings"
)

var hourPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(\d+\.?\d*)\s*hour`),
	regexp.MustCompile(`(\d+\.?\d*)\s*hr`),
	regexp.MustCompile(`(\d+)h`),
}

var minutePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(\d+)\s*min`),
	regexp.MustCompile(`(\d+)m`),
}

// ExtractTimeOnJob pulls an elapsed-time estimate in minutes out of work
// description text. Hour and minute mentions are extracted independently and
// added, so "1 hour 30 min" yields 90. The second return is false when the
// text carries no time mention at all.
func ExtractTimeOnJob(text string) (float64, bool) {
	if strings.TrimSpace(text) == "" {
		return 0, false
	}
	lowered := strings.ToLower(text)

	var hours float64
	for _, re := range hourPatterns {
		if m := re.FindStringSubmatch(lowered); m != nil {
			hours, _ = strconv.ParseFloat(m[1], 64)
			break
		}
	}

	var minutes float64
	for _, re := range minutePatterns {
		if m := re.FindStringSubmatch(lowered); m != nil {
			minutes, _ = strconv.ParseFloat(m[1], 64)
			break
		}
	}

	total := hours*60 + minutes
	if total == 0 {
		return 0, false
	}
	return total, true
}

// ParseDuration converts "HH:MM:SS", "MM:SS", or a bare seconds string into
// seconds. Malformed input coerces to 0.
func ParseDuration(s string) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	parts := strings.Split(s, ":")
	switch len(parts) {
	case 3:
		h, err1 := strconv.ParseFloat(parts[0], 64)
		m, err2 := strconv.ParseFloat(parts[1], 64)
		sec, err3 := strconv.ParseFloat(parts[2], 64)
		if err1 != nil || err2 != nil || err3 != nil {
			return 0
		}
		return int(h*3600 + m*60 + sec)
	case 2:
		m, err1 := strconv.ParseFloat(parts[0], 64)
		sec, err2 := strconv.ParseFloat(parts[1], 64)
		if err1 != nil || err2 != nil {
			return 0
		}
		return int(m*60 + sec)
	default:
		sec, err := strconv.ParseFloat(parts[0], 64)
		if err != nil {
			return 0
		}
		return int(sec)
	}
}

var applianceCategories = []struct {
	name     string
	keywords []string
}{
	{"REFRIGERATOR", []string{"REFRIG", "FRIDGE", "FRIG", "FREEZER"}},
	// Dishwasher before washer so "DISHWASHER" is not claimed by "WASH".
	{"DISHWASHER", []string{"DISH", "DISHW"}},
	{"WASHER", []string{"WASH", "CLOTHES WASHER"}},
	{"DRYER", []string{"DRYER", "CLOTHES DRYER"}},
	{"OVEN", []string{"OVEN", "RANGE", "STOVE", "COOKTOP"}},
	{"MICROWAVE", []string{"MICRO"}},
	{"DISPOSAL", []string{"DISP", "GARBAGE DISPOSAL"}},
}

// StandardizeApplianceType folds free-text appliance names into a fixed set
// of categories. Unrecognized input passes through uppercased.
func StandardizeApplianceType(raw string) string {
	appliance := strings.ToUpper(strings.TrimSpace(raw))
	if appliance == "" {
		return "UNKNOWN"
	}
	for _, cat := range applianceCategories {
		for _, kw := range cat.keywords {
			if strings.Contains(appliance, kw) {
				return cat.name
			}
		}
	}
	return appliance
}
