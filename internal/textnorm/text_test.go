package textnorm

import "testing"

func TestExtractTimeOnJob(t *testing.T) {
	cases := []struct {
		text string
		want float64
		ok   bool
	}{
		{"spent 1 hour 30 min on site", 90, true},
		{"quick fix, 45 min total", 45, true},
		{"about 2 hrs diagnosing", 120, true},
		{"1.5 hours replacing pump", 90, true},
		{"replaced belt and tested", 0, false},
		{"", 0, false},
	}
	for _, c := range cases {
		got, ok := ExtractTimeOnJob(c.text)
		if ok != c.ok || got != c.want {
			t.Fatalf("ExtractTimeOnJob(%q) = (%v, %v), want (%v, %v)", c.text, got, ok, c.want, c.ok)
		}
	}
}

func TestParseDuration(t *testing.T) {
	cases := []struct {
		in   string
		want int
	}{
		{"2:30:45", 9045},
		{"30:15", 1815},
		{"90", 90},
		{"", 0},
		{"garbage", 0},
	}
	for _, c := range cases {
		if got := ParseDuration(c.in); got != c.want {
			t.Fatalf("ParseDuration(%q) = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestStandardizeApplianceType(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"fridge", "REFRIGERATOR"},
		{"Clothes Washer", "WASHER"},
		{"dishwasher", "DISHWASHER"},
		{"Gas Range", "OVEN"},
		{"", "UNKNOWN"},
		{"Trash Compactor", "TRASH COMPACTOR"},
	}
	for _, c := range cases {
		if got := StandardizeApplianceType(c.in); got != c.want {
			t.Fatalf("StandardizeApplianceType(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}
