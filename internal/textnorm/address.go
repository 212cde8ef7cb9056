package textnorm

import (
	"regexp"
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
)

// shortAddressPenalty discounts matches where either standardized address is
// under shortAddressLen characters. Short strings match each other too easily.
const (
	shortAddressPenalty = 0.8
	shortAddressLen     = 10
)

// abbrevPairs fold long street-type words to their postal abbreviations.
// Ordered so the replacement pass is deterministic.
var abbrevPairs = []struct {
	full string
	abbr string
}{
	{"STREET", "ST"},
	{"AVENUE", "AVE"},
	{"BOULEVARD", "BLVD"},
	{"DRIVE", "DR"},
	{"LANE", "LN"},
	{"ROAD", "RD"},
	{"COURT", "CT"},
	{"CIRCLE", "CIR"},
	{"PLACE", "PL"},
	{"HIGHWAY", "HWY"},
	{"APARTMENT", "APT"},
	{"SUITE", "STE"},
	{"CALIFORNIA", "CA"},
}

var (
	abbrevFullRe   = make([]*regexp.Regexp, len(abbrevPairs))
	abbrevDotRe    = make([]*regexp.Regexp, len(abbrevPairs))
	multiSpaceRe   = regexp.MustCompile(`\s+`)
	doubleCommaRe  = regexp.MustCompile(`,\s*,`)
	doublePeriodRe = regexp.MustCompile(`\.\s*\.`)
	trailingUSARe  = regexp.MustCompile(`,\s*USA$`)
	zipRe          = regexp.MustCompile(`(\d{5})(?:-\d{4})?`)
)

func init() {
	for i, p := range abbrevPairs {
		abbrevFullRe[i] = regexp.MustCompile(`\b` + p.full + `\b`)
		abbrevDotRe[i] = regexp.MustCompile(`\b` + p.abbr + `\.`)
	}
}

// StandardizeAddress uppercases, folds street-type abbreviations, collapses
// whitespace and duplicate punctuation, and strips a trailing ", USA".
// Pure and idempotent.
func StandardizeAddress(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}
	addr := strings.ToUpper(strings.TrimSpace(raw))

	for i, p := range abbrevPairs {
		addr = abbrevFullRe[i].ReplaceAllString(addr, p.abbr)
		addr = abbrevDotRe[i].ReplaceAllString(addr, p.abbr)
	}

	addr = multiSpaceRe.ReplaceAllString(addr, " ")
	addr = doubleCommaRe.ReplaceAllString(addr, ",")
	addr = doublePeriodRe.ReplaceAllString(addr, ".")
	addr = trailingUSARe.ReplaceAllString(addr, "")

	return strings.TrimSpace(addr)
}

// MatchConfidence scores how likely two address strings denote the same
// place, on a 0-100 scale. Identical standardized forms score 100; anything
// else gets a token-order-invariant similarity, discounted for very short
// addresses. Empty input on either side scores 0.
func MatchConfidence(addr1, addr2 string) float64 {
	if strings.TrimSpace(addr1) == "" || strings.TrimSpace(addr2) == "" {
		return 0
	}

	std1 := StandardizeAddress(addr1)
	std2 := StandardizeAddress(addr2)

	if std1 == std2 {
		return 100
	}

	ratio := tokenSortRatio(std1, std2)

	minLen := len(std1)
	if len(std2) < minLen {
		minLen = len(std2)
	}
	if minLen < shortAddressLen {
		ratio *= shortAddressPenalty
	}
	return ratio
}

// tokenSortRatio sorts the whitespace tokens of both strings before scoring,
// so "MAIN ST 123" and "123 MAIN ST" compare as equal.
func tokenSortRatio(a, b string) float64 {
	sa := sortTokens(a)
	sb := sortTokens(b)
	if sa == sb {
		return 100
	}

	dist := levenshtein.ComputeDistance(sa, sb)
	longer := len([]rune(sa))
	if l := len([]rune(sb)); l > longer {
		longer = l
	}
	if longer == 0 {
		return 0
	}
	return 100 * (1 - float64(dist)/float64(longer))
}

func sortTokens(s string) string {
	tokens := strings.Fields(strings.Map(stripPunct, s))
	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}

func stripPunct(r rune) rune {
	switch r {
	case ',', '.', ';', '#':
		return ' '
	}
	return r
}

// ExtractZipCode pulls the first 5-digit zip out of an address, dropping any
// +4 suffix. Returns "" when no zip is present.
func ExtractZipCode(address string) string {
	m := zipRe.FindStringSubmatch(address)
	if m == nil {
		return ""
	}
	return m[1]
}
