package analyzer

import (
	"context"
	"sitecheck/pkg/domain"
)

//go:generate mockgen -package mockanalyzer -source=interface.go -destination=mock/mockanalyzer.go *
type Analyzer interface {
	// Analyze follows input to its final URL and decides whether the site is
	// trusted. A fetch failure returns the partial report together with the error.
	Analyze(ctx context.Context, input string) (*domain.Report, error)
}
