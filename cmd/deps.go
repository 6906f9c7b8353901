package main

import (
	"context"
	"net/http"
	"sitecheck/internal/analyzer"
	"sitecheck/internal/config"
	"sitecheck/pkg/allowlist"
	"sitecheck/pkg/logger"
	"sitecheck/pkg/webfetch/httpfetch"

	"go.uber.org/zap"
)

// getAllowlist builds the trusted set from the analyzer config.
func getAllowlist(ctx context.Context, cfg *config.Config) *allowlist.List {
	list, err := allowlist.Load(ctx, cfg.Analyzer.TrustedDomains, cfg.Analyzer.TrustedDomainsFile)
	if err != nil {
		logger.Fatal(ctx, "could not load allowlist", zap.Error(err))
	}

	return list
}

// getAnalyzer builds an analyzer that fetches sites over a dedicated HTTP client.
func getAnalyzer(cfg *config.Config, list *allowlist.List) analyzer.Analyzer {
	fetcher := httpfetch.New(&http.Client{}, httpfetch.Options{
		Timeout:      cfg.Analyzer.Timeout,
		MaxRedirects: cfg.Analyzer.MaxRedirects,
		MaxBodyBytes: cfg.Analyzer.MaxBodyBytes,
		UserAgent:    cfg.Analyzer.UserAgent,

		BlockPrivateAddresses: cfg.Analyzer.BlockPrivateAddresses,
	})

	return analyzer.New(fetcher, list)
}
