package textnorm

import "strings"

// Cancellation reason categories.
const (
	ReasonUnknown       = "UNKNOWN"
	ReasonOther         = "OTHER"
	ReasonNotCanceled   = "NOT_CANCELED"
	ReasonCustomer      = "CUSTOMER_INITIATED"
	ReasonPrice         = "PRICE_TOO_HIGH"
	ReasonNoShow        = "NO_SHOW"
	ReasonScheduling    = "SCHEDULING_CONFLICT"
	ReasonChangedMind   = "CHANGED_MIND"
	ReasonFixedItself   = "FIXED_ITSELF"
	ReasonPaymentIssue  = "PAYMENT_ISSUE"
)

// CancelConfig carries the keyword table and the category priority order.
// Priority is a total tie-break when several categories have keyword hits;
// hit counts are never compared across categories.
type CancelConfig struct {
	Categories map[string][]string
	Priority   []string
}

// DefaultCancelConfig returns the curated keyword table.
func DefaultCancelConfig() CancelConfig {
	return CancelConfig{
		Categories: map[string][]string{
			ReasonCustomer: {
				"customer cancel",
				"client cancel",
				"cust canceled",
				"cancelled by customer",
				"cstmr declined",
				"customer declined",
			},
			ReasonFixedItself: {
				"appliance starting working",
				"started working",
				"fixed itself",
				"working after",
				"unplugging",
			},
			ReasonScheduling: {
				"reschedule",
				"schedule conflict",
				"not available",
				"changed appmnt",
				"chngd appmnt",
			},
			ReasonPaymentIssue: {
				"payment",
				"credit card",
				"cc for service",
				"service",
			},
			ReasonNoShow: {
				"no show",
				"not home",
				"customer not present",
				"nobody home",
				"not at home",
			},
			ReasonPrice: {
				"too expensive",
				"cost too high",
				"price too high",
				"cheaper elsewhere",
				"not worth",
			},
			ReasonChangedMind: {
				"changed mind",
				"decided against",
				"decided not to",
				"will try later",
				"will fix later",
			},
			ReasonOther: {},
		},
		Priority: []string{
			ReasonCustomer,
			ReasonPrice,
			ReasonNoShow,
			ReasonScheduling,
			ReasonChangedMind,
			ReasonFixedItself,
			ReasonPaymentIssue,
			ReasonOther,
		},
	}
}

// ReasonExtractor classifies cancellation free text against an injected
// keyword table.
type ReasonExtractor struct {
	cfg CancelConfig
}

func NewReasonExtractor(cfg CancelConfig) *ReasonExtractor {
	return &ReasonExtractor{cfg: cfg}
}

// Extract returns the cancellation reason category and a confidence score.
// Empty text yields (UNKNOWN, 0); text with no keyword hits yields
// (OTHER, 0). Confidence is min(hits/len(category keywords), 1) for the
// winning category only.
func (e *ReasonExtractor) Extract(text string) (string, float64) {
	if strings.TrimSpace(text) == "" {
		return ReasonUnknown, 0
	}
	lowered := strings.ToLower(text)

	hits := map[string]int{}
	for category, keywords := range e.cfg.Categories {
		if len(keywords) == 0 {
			continue
		}
		count := 0
		for _, kw := range keywords {
			if strings.Contains(lowered, strings.ToLower(kw)) {
				count++
			}
		}
		if count > 0 {
			hits[category] = count
		}
	}

	if len(hits) == 0 {
		return ReasonOther, 0
	}

	// Priority order decides between competing categories.
	for _, category := range e.cfg.Priority {
		count, ok := hits[category]
		if !ok {
			continue
		}
		return category, e.confidence(category, count)
	}

	// A hit in a category missing from the priority list; take any one
	// deterministically via the priority-free path.
	for category, count := range hits {
		return category, e.confidence(category, count)
	}
	return ReasonOther, 0
}

func (e *ReasonExtractor) confidence(category string, hitCount int) float64 {
	total := len(e.cfg.Categories[category])
	if total == 0 {
		return 0
	}
	conf := float64(hitCount) / float64(total)
	if conf > 1 {
		conf = 1
	}
	return conf
}
