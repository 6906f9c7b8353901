// Package webfetch defines how the analyzer retrieves a site: a single GET that
// follows redirects and reports where it ended up.
package webfetch

import "context"

// Page is the response of the last hop of a redirect chain.
type Page struct {
	// FinalURL is the URL of the response that was finally served.
	FinalURL string
	// StatusCode is the HTTP status of the final response.
	StatusCode int
	// Redirects lists every URL that was requested after the first one, in order.
	// The last element equals FinalURL when at least one redirect happened.
	Redirects []string
	// ContentType is the Content-Type header of the final response.
	ContentType string
	// Body holds the (possibly truncated) response body.
	Body []byte
}

// Client fetches a URL or bare domain and follows redirects.
//
//go:generate mockgen -package mockwebfetch -source=interface.go -destination=mock/mockwebfetch.go *
type Client interface {
	// Fetch resolves input to a reachable page. Inputs without a scheme are
	// tried over https first, then http.
	Fetch(ctx context.Context, input string) (*Page, error)
}
