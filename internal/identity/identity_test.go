package identity

import "testing"

func TestDeviceForTech(t *testing.T) {
	m := NewMapper(DefaultTables())

	if got := m.DeviceForTech("JS"); got != "James" {
		t.Fatalf("expected James, got %s", got)
	}
	if got := m.DeviceForTech(" js "); got != "James" {
		t.Fatalf("expected case-insensitive lookup, got %s", got)
	}
	if got := m.DeviceForTech("ZZ"); got != UnknownDevice {
		t.Fatalf("expected UNKNOWN for unmapped code, got %s", got)
	}
}

func TestTechForDevice(t *testing.T) {
	m := NewMapper(DefaultTables())

	if got := m.TechForDevice("Ricardo (NEW)"); got != "RR" {
		t.Fatalf("expected RR, got %s", got)
	}
	// Unmapped devices come back as the trimmed original name.
	if got := m.TechForDevice("  Spare Van  "); got != "Spare Van" {
		t.Fatalf("expected original name passthrough, got %s", got)
	}
}

func TestStandardizeTechCode(t *testing.T) {
	m := NewMapper(DefaultTables())

	cases := []struct {
		in   string
		want string
	}{
		{"JAMES", "JS"},
		{"jim", "JS"},
		{"Ricardo", "RR"},
		{" shawn ", "SF"},
		{"JS", "JS"},
		{"", UnknownDevice},
		{"newguy", "NEWGUY"},
	}
	for _, c := range cases {
		if got := m.StandardizeTechCode(c.in); got != c.want {
			t.Fatalf("StandardizeTechCode(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestAlternateTablesInjection(t *testing.T) {
	m := NewMapper(Tables{
		DeviceToTech: map[string]string{"Truck 1": "T1"},
		Aliases:      map[string]string{"TONY": "T1"},
	})
	if got := m.StandardizeTechCode("Tony"); got != "T1" {
		t.Fatalf("expected alias from injected table, got %s", got)
	}
	if got := m.DeviceForTech("T1"); got != "Truck 1" {
		t.Fatalf("expected Truck 1, got %s", got)
	}
	if !m.Known("T1") || m.Known("JS") {
		t.Fatalf("expected only injected codes to be known")
	}
}
