// Package analyzer implements the site check: resolve the input, follow its
// redirects, compare both ends against the allowlist and score the page.
package analyzer

import (
	"context"
	"errors"
	"net/url"
	"sitecheck/pkg/allowlist"
	"sitecheck/pkg/domain"
	"sitecheck/pkg/hostname"
	"sitecheck/pkg/logger"
	"sitecheck/pkg/metrics"
	"sitecheck/pkg/pagesignals"
	"sitecheck/pkg/serrors"
	"sitecheck/pkg/webfetch"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	instrumentationName = "sitecheck/internal/analyzer"

	reasonTrustedInput = "trusted allowlist matched"
	reasonTrustedFinal = "final redirected domain is trusted"
)

type analyzer struct {
	fetcher   webfetch.Client
	allowlist *allowlist.List

	tracer        trace.Tracer
	analyses      metric.Int64Counter
	fetchDuration metric.Float64Histogram
}

// New creates an Analyzer that fetches pages with fetcher and trusts the
// domains in list. Instruments are registered on the global MeterProvider.
func New(fetcher webfetch.Client, list *allowlist.List) Analyzer {
	meter := otel.Meter(instrumentationName)

	// instrument creation only fails on invalid names; the no-op fallbacks keep
	// Analyze usable either way.
	analyses, err := meter.Int64Counter("sitecheck_analyses",
		metric.WithDescription("Number of analyses by resulting label."))
	if err != nil {
		logger.Warn(context.Background(), "could not create analyses counter", zap.Error(err))
	}
	fetchDuration, err := meter.Float64Histogram("sitecheck_fetch_duration_seconds",
		metric.WithDescription("Time spent following redirects and reading the final page."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(metrics.DefaultBuckets...))
	if err != nil {
		logger.Warn(context.Background(), "could not create fetch duration histogram", zap.Error(err))
	}

	return &analyzer{
		fetcher:       fetcher,
		allowlist:     list,
		tracer:        otel.Tracer(instrumentationName),
		analyses:      analyses,
		fetchDuration: fetchDuration,
	}
}

func (a *analyzer) Analyze(ctx context.Context, input string) (*domain.Report, error) {
	ctx, span := a.tracer.Start(ctx, "Analyze", trace.WithAttributes(attribute.String("input", input)))
	defer span.End()

	report, err := a.analyze(ctx, input)

	label := "ERROR"
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		label = string(report.Label)
		span.SetAttributes(attribute.String("label", label), attribute.Int("score", report.Score))
	}
	if a.analyses != nil {
		a.analyses.Add(ctx, 1, metric.WithAttributes(attribute.String("label", label)))
	}

	return report, err
}

func (a *analyzer) analyze(ctx context.Context, input string) (*domain.Report, error) {
	host := hostname.ExtractHost(input)
	if host == "" {
		return nil, serrors.With(serrors.ErrBadRequest, "empty input")
	}
	if err := hostname.Validate(host); err != nil {
		return nil, serrors.Wrap(serrors.ErrBadRequest, err, "invalid URL")
	}

	report := &domain.Report{
		Input:      input,
		Host:       host,
		BaseDomain: hostname.BaseDomain(host),
	}
	ctx = logger.WithFields(ctx, zap.String("host", host))

	if a.allowlist.Trusted(host) {
		report.FinalURL = "https://" + urlHost(host) + "/"
		report.FinalHost = report.Host
		report.FinalBaseDomain = report.BaseDomain
		trust(report, reasonTrustedInput)
		logger.Debug(ctx, "input domain is allowlisted")

		return report, nil
	}

	start := time.Now()
	page, err := a.fetcher.Fetch(ctx, input)
	if a.fetchDuration != nil {
		a.fetchDuration.Record(ctx, time.Since(start).Seconds())
	}
	if err != nil {
		logger.Info(ctx, "could not fetch site", zap.Error(err))
		if !isKnownKind(err) {
			err = serrors.Wrap(serrors.ErrUnavailable, err, "cannot access website")
		}

		return report, err
	}

	report.FinalURL = page.FinalURL
	report.Redirects = page.Redirects
	report.StatusCode = page.StatusCode
	report.FinalHost = hostname.ExtractHost(page.FinalURL)
	report.FinalBaseDomain = hostname.BaseDomain(report.FinalHost)

	if a.allowlist.Trusted(report.FinalHost) {
		trust(report, reasonTrustedFinal)
		logger.Debug(ctx, "final domain is allowlisted", zap.String("finalHost", report.FinalHost))

		return report, nil
	}

	content := pagesignals.Extract(page.Body)
	signals := &domain.Signals{
		WordCount:   content.WordCount,
		ThinContent: content.ThinContent,
		LoremIpsum:  content.LoremIpsum,
		NoHTTPS:     !isHTTPS(page.FinalURL),
	}

	risk := content.Risk()
	if signals.NoHTTPS {
		risk += pagesignals.NoHTTPSRisk
	}

	report.Signals = signals
	report.Score = max(0, 100-risk)
	report.Label = domain.LabelFromScore(report.Score)
	report.Reason = "risk points: " + strconv.Itoa(risk)

	logger.Debug(ctx, "site scored",
		zap.String("finalHost", report.FinalHost),
		zap.Int("score", report.Score),
		zap.String("label", string(report.Label)))

	return report, nil
}

func trust(report *domain.Report, reason string) {
	report.Trusted = true
	report.Score = domain.TrustedScore
	report.Label = domain.LabelGoodSafe
	report.Reason = reason
}

func isHTTPS(rawURL string) bool {
	u, err := url.Parse(rawURL)

	return err == nil && u.Scheme == "https"
}

// urlHost brackets IPv6 literals.
func urlHost(host string) string {
	if strings.Contains(host, ":") {
		return "[" + host + "]"
	}

	return host
}

func isKnownKind(err error) bool {
	var k serrors.Kind

	return errors.As(err, &k)
}
