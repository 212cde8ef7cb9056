package textnorm

import (
	"strings"
	"testing"
)

func TestStandardizeAddress(t *testing.T) {
	got := StandardizeAddress("123 Main Street, Suite 4B, California")
	if !strings.Contains(got, "MAIN ST") {
		t.Fatalf("expected MAIN ST in %q", got)
	}
	if !strings.Contains(got, "STE") {
		t.Fatalf("expected STE in %q", got)
	}
	if !strings.Contains(got, "CA") {
		t.Fatalf("expected CA in %q", got)
	}
}

func TestStandardizeAddressIdempotent(t *testing.T) {
	inputs := []string{
		"123 Main Street, Suite 4B, California",
		"466 Primero Ct, Cotati, CA 94931, USA",
		"45  Oak   Avenue.. Apt 2,, Petaluma",
		"",
	}
	for _, in := range inputs {
		once := StandardizeAddress(in)
		twice := StandardizeAddress(once)
		if once != twice {
			t.Fatalf("not idempotent for %q: %q vs %q", in, once, twice)
		}
	}
}

func TestStandardizeAddressStripsUSA(t *testing.T) {
	got := StandardizeAddress("466 Primero Ct, Cotati, CA 94931, USA")
	if strings.HasSuffix(got, "USA") {
		t.Fatalf("expected trailing USA removed, got %q", got)
	}
}

func TestMatchConfidenceIdentical(t *testing.T) {
	addrs := []string{
		"123 Main St",
		"466 Primero Court, Cotati, California",
	}
	for _, a := range addrs {
		if got := MatchConfidence(a, a); got != 100 {
			t.Fatalf("MatchConfidence(%q, %q) = %v, want 100", a, a, got)
		}
	}
	// Differ only by standardization.
	if got := MatchConfidence("123 Main Street", "123 MAIN ST"); got != 100 {
		t.Fatalf("expected 100 after standardization, got %v", got)
	}
}

func TestMatchConfidenceEmpty(t *testing.T) {
	if got := MatchConfidence("", "123 Main St"); got != 0 {
		t.Fatalf("expected 0 for empty input, got %v", got)
	}
	if got := MatchConfidence("123 Main St", "   "); got != 0 {
		t.Fatalf("expected 0 for blank input, got %v", got)
	}
}

func TestMatchConfidenceTokenOrderInvariant(t *testing.T) {
	a := MatchConfidence("Main St 123, Cotati", "123 Main St, Cotati")
	if a != 100 {
		t.Fatalf("expected token order to be ignored, got %v", a)
	}
}

func TestMatchConfidenceShortAddressPenalty(t *testing.T) {
	// Both under 10 chars after standardization and not identical: the raw
	// ratio gets scaled by 0.8, so the score can never reach 80.
	got := MatchConfidence("12 A St", "12 B St")
	if got >= 80 {
		t.Fatalf("expected short-address penalty to cap score below 80, got %v", got)
	}
	if got <= 0 {
		t.Fatalf("expected a nonzero partial score, got %v", got)
	}
}

func TestExtractZipCode(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"466 Primero Ct, Cotati, CA 94931, USA", "94931"},
		{"101 Elm St, Santa Rosa, CA 95401-1234", "95401"},
		{"no zip here", ""},
	}
	for _, c := range cases {
		if got := ExtractZipCode(c.in); got != c.want {
			t.Fatalf("ExtractZipCode(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}
