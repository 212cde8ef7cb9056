package metrics

// Driving score categories.
const (
	CategoryExcellent    = "EXCELLENT"
	CategoryGood         = "GOOD"
	CategoryAverage      = "AVERAGE"
	CategoryBelowAverage = "BELOW_AVERAGE"
	CategoryPoor         = "POOR"
)

// Alert time window names.
const (
	WindowLast7Days  = "last_7_days"
	WindowLast30Days = "last_30_days"
	WindowLast90Days = "last_90_days"
)

// DrivingConfig holds the alert penalty weights and score thresholds.
// Injected at construction so tests can run with alternate tables.
type DrivingConfig struct {
	// Weights are per-alert-type penalty magnitudes. Unlisted alert types
	// count toward totals but carry zero penalty.
	Weights map[string]float64
	// WorstCaseScale is the per-type alert count assumed for the theoretical
	// worst score the 0-100 normalization divides by.
	WorstCaseScale float64
	// Thresholds map category names to minimum scores, checked in
	// descending order of score.
	Thresholds []ScoreThreshold
}

type ScoreThreshold struct {
	Category string
	MinScore float64
}

func DefaultDrivingConfig() DrivingConfig {
	return DrivingConfig{
		Weights: map[string]float64{
			"Harsh Braking":      5,
			"Harsh Cornering":    3,
			"Harsh Acceleration": 4,
			"Speeding Over":      7,
			"Engine Idle":        2,
			"After Hours":        6,
		},
		WorstCaseScale: 100,
		Thresholds: []ScoreThreshold{
			{CategoryExcellent, 90},
			{CategoryGood, 75},
			{CategoryAverage, 60},
			{CategoryBelowAverage, 40},
			{CategoryPoor, 0},
		},
	}
}

// BusinessGoals carries target rates surfaced next to the computed metrics.
type BusinessGoals struct {
	FTCRate             float64
	DiagnosticRateMin   float64
	DiagnosticRateIdeal float64
	RecallRate          float64
}

func DefaultBusinessGoals() BusinessGoals {
	return BusinessGoals{
		FTCRate:             0.70,
		DiagnosticRateMin:   0.10,
		DiagnosticRateIdeal: 0.20,
		RecallRate:          0.05,
	}
}

// ServiceCallPrices lists base prices by service call type.
func ServiceCallPrices() map[string]float64 {
	return map[string]float64{
		"STANDARD":   89,
		"DIAGNOSTIC": 69,
		"WARRANTY":   0,
		"RECALL":     0,
		"FOLLOW_UP":  0,
	}
}
