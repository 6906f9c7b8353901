// Package httpfetch provides a webfetch.Client backed by net/http that follows
// redirects, records every hop and falls back from https to http.
package httpfetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sitecheck/pkg/hostname"
	"sitecheck/pkg/logger"
	"sitecheck/pkg/serrors"
	"sitecheck/pkg/webfetch"
	"strings"
	"time"

	"go.uber.org/zap"
)

// DefaultUserAgent mimics a desktop browser; many sites serve placeholder or
// blocked pages to obvious bots.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
	"(KHTML, like Gecko) Chrome/121.0 Safari/537.36"

// Options tune a Client. Zero values fall back to the defaults noted per field.
type Options struct {
	// Timeout bounds each candidate request including redirects (default 12s).
	Timeout time.Duration
	// MaxRedirects is the number of redirects followed before giving up (default 10).
	MaxRedirects int
	// MaxBodyBytes caps how much of the final body is read (default 2 MiB).
	MaxBodyBytes int64
	// UserAgent is sent with every request (default DefaultUserAgent).
	UserAgent string
	// BlockPrivateAddresses refuses connections to loopback, private,
	// link-local, multicast and unspecified addresses, redirects included.
	BlockPrivateAddresses bool
}

func (o Options) withDefaults() Options {
	if o.Timeout <= 0 {
		o.Timeout = 12 * time.Second
	}
	if o.MaxRedirects <= 0 {
		o.MaxRedirects = 10
	}
	if o.MaxBodyBytes <= 0 {
		o.MaxBodyBytes = 2 << 20
	}
	if o.UserAgent == "" {
		o.UserAgent = DefaultUserAgent
	}

	return o
}

// Client implements webfetch.Client. It is safe for concurrent use.
type Client struct {
	httpClient *http.Client
	opts       Options
}

// Ensure Client conforms to the webfetch.Client interface at compile time.
var _ webfetch.Client = (*Client)(nil)

// New constructs a Client on top of httpClient. Only the transport, jar and
// timeout of httpClient are used; redirect handling is owned by the Client.
func New(httpClient *http.Client, opts Options) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if opts.BlockPrivateAddresses {
		guarded := *httpClient
		guarded.Transport = guardTransport(httpClient.Transport)
		httpClient = &guarded
	}

	return &Client{
		httpClient: httpClient,
		opts:       opts.withDefaults(),
	}
}

// Candidates lists the URLs tried for input, in order: the input itself when
// it carries a scheme, then the host over https and over http.
func Candidates(input string) []string {
	host := hostname.ExtractHost(input)
	if host == "" {
		return nil
	}
	if strings.Contains(host, ":") {
		host = "[" + host + "]"
	}

	out := make([]string, 0, 3)
	if hostname.HasScheme(input) {
		out = append(out, strings.TrimSpace(input))
	}

	return append(out, "https://"+host+"/", "http://"+host+"/")
}

// Fetch tries each candidate URL until one answers with a status below 400
// and a non-empty body. When none does, the returned error has kind
// serrors.ErrUnavailable and carries the last failure.
func (c *Client) Fetch(ctx context.Context, input string) (*webfetch.Page, error) {
	candidates := Candidates(input)
	if len(candidates) == 0 {
		return nil, serrors.With(serrors.ErrBadRequest, "empty input")
	}

	var lastErr string
	for _, u := range candidates {
		if err := ctx.Err(); err != nil {
			return nil, serrors.Wrap(serrors.ErrTimeout, err, "fetch aborted")
		}

		page, err := c.get(ctx, u)
		if err != nil {
			logger.Debug(ctx, "candidate failed", zap.String("candidate", u), zap.Error(err))
			lastErr = err.Error()

			continue
		}
		if page.StatusCode < http.StatusBadRequest && len(page.Body) > 0 {
			return page, nil
		}

		logger.Debug(ctx, "candidate rejected", zap.String("candidate", u), zap.Int("status", page.StatusCode))
		lastErr = fmt.Sprintf("HTTP %d", page.StatusCode)
	}

	return nil, serrors.With(serrors.ErrUnavailable, "cannot access website (%s)", lastErr)
}

// get performs one GET, following at most MaxRedirects redirects.
func (c *Client) get(ctx context.Context, rawURL string) (*webfetch.Page, error) {
	ctx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("could not create request: %w", err)
	}
	req.Header.Set("User-Agent", c.opts.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,*/*;q=0.8")

	var hops []string
	client := *c.httpClient
	client.CheckRedirect = func(next *http.Request, via []*http.Request) error {
		if len(via) > c.opts.MaxRedirects {
			return fmt.Errorf("stopped after %d redirects", c.opts.MaxRedirects)
		}
		hops = append(hops, next.URL.String())

		return nil
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("could not send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.opts.MaxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("could not read response body: %w", err)
	}

	finalURL := rawURL
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	return &webfetch.Page{
		FinalURL:    finalURL,
		StatusCode:  resp.StatusCode,
		Redirects:   hops,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
	}, nil
}
