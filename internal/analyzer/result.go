package analyzer

import "sitecheck/pkg/domain"

// Result statuses.
const (
	// StatusOK marks a result carrying a scored report.
	StatusOK = "OK"
	// StatusError marks a result whose analysis failed; Error says why.
	StatusError = "ERROR"
)

// Result is the outcome of one analysis in the shape shown to users: the
// report fields plus a status and, on failure, the error message.
type Result struct {
	*domain.Report

	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// NewResult combines what Analyze returned for input. The report is never nil.
func NewResult(input string, report *domain.Report, err error) Result {
	if report == nil {
		report = &domain.Report{Input: input}
	}
	if err != nil {
		return Result{Report: report, Status: StatusError, Error: err.Error()}
	}

	return Result{Report: report, Status: StatusOK}
}
