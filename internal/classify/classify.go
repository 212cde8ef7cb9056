// Package classify tags job records with derived attributes: first trip
// complete, diagnostic only, recall, and a single summary job type.
package classify

import (
	"regexp"
	"strings"

	"github.com/servicepulse/backend/internal/models"
)

// Keywords carries the classification keyword lists, injected so tests can
// run against alternate vocabularies.
type Keywords struct {
	Diagnostic []string
	Recall     []string
}

func DefaultKeywords() Keywords {
	return Keywords{
		Diagnostic: []string{
			"diagnostic", "diagnose", "diagnosis",
			"quote", "quoted", "estimate",
			"not worth", "too expensive", "declined repair",
			"customer declined", "cust declined",
		},
		Recall: []string{
			"recall", "safety notice", "safety alert",
			"manufacturer notice", "service bulletin",
			"factory recall", "warranty recall",
		},
	}
}

var completedStatusRe = regexp.MustCompile(`(?i)completed|archived|closed`)

// Classifier applies all job classifications. Tagging is pure and
// order-independent; only the summary JobType uses precedence.
type Classifier struct {
	kw Keywords
}

func New(kw Keywords) *Classifier {
	return &Classifier{kw: kw}
}

// Classify returns a copy of job with IsFTC, IsDiagnosticOnly, IsRecall,
// and JobType populated.
func (c *Classifier) Classify(job models.JobRecord) models.JobRecord {
	job.IsFTC = c.isFTC(job)
	job.IsDiagnosticOnly = c.isDiagnosticOnly(job)
	job.IsRecall = c.isRecall(job)

	// Precedence: Canceled > Recall > DiagnosticOnly > Standard Repair.
	switch {
	case job.Canceled:
		job.JobType = models.JobTypeCanceled
	case job.IsRecall:
		job.JobType = models.JobTypeRecall
	case job.IsDiagnosticOnly:
		job.JobType = models.JobTypeDiagnostic
	default:
		job.JobType = models.JobTypeStandard
	}
	return job
}

// ClassifyAll classifies every record into a fresh slice.
func (c *Classifier) ClassifyAll(jobs []models.JobRecord) []models.JobRecord {
	out := make([]models.JobRecord, len(jobs))
	for i, job := range jobs {
		out[i] = c.Classify(job)
	}
	return out
}

func (c *Classifier) isFTC(job models.JobRecord) bool {
	// Cancellation overrides completion.
	if job.Canceled {
		return false
	}
	if job.CompletedOnFirstTrip {
		return true
	}
	return job.VisitCount == 1 && completedStatusRe.MatchString(job.Status)
}

func (c *Classifier) isDiagnosticOnly(job models.JobRecord) bool {
	if job.MaterialTotal == 0 && job.ServiceCallCharge > 0 {
		return true
	}
	return containsAny(job.WorkDescription, c.kw.Diagnostic)
}

func (c *Classifier) isRecall(job models.JobRecord) bool {
	if containsAny(job.WorkDescription, c.kw.Recall) {
		return true
	}
	return strings.Contains(strings.ToLower(job.Department), "recall")
}

func containsAny(text string, keywords []string) bool {
	lowered := strings.ToLower(text)
	for _, kw := range keywords {
		if strings.Contains(lowered, kw) {
			return true
		}
	}
	return false
}
