// Package allowlist holds the static set of trusted root domains. A list is
// built once at startup and never mutated, so it is safe for concurrent use.
package allowlist

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"sitecheck/pkg/hostname"
	"sitecheck/pkg/logger"
	"sort"
	"strings"

	"go.uber.org/zap"
)

// DefaultDomains is the trusted set used when no domains are configured.
var DefaultDomains = []string{ //nolint: gochecknoglobals
	"youtube.com", "instagram.com", "facebook.com",
	"google.com", "amazon.com", "linkedin.com",
	"capitaloneshopping.com", "retailmenot.com",
	"ebay.com", "walmart.com", "target.com", "bestbuy.com",
}

// List is an immutable set of trusted domains.
type List struct {
	domains map[string]struct{}
}

// New builds a List from the given entries. Entries may be bare domains or
// URLs; they are normalized the same way user input is. Entries without a
// valid host are skipped and logged.
func New(ctx context.Context, entries ...string) *List {
	l := &List{domains: make(map[string]struct{}, len(entries))}
	for _, e := range entries {
		host := hostname.ExtractHost(e)
		if err := hostname.Validate(host); err != nil {
			logger.Warn(ctx, "skipping invalid allowlist entry", zap.String("entry", e), zap.Error(err))

			continue
		}
		l.domains[host] = struct{}{}
	}

	return l
}

// Read parses one domain per line from r. Blank lines and lines starting with
// '#' are ignored, as is anything after an inline '#'.
func Read(r io.Reader) ([]string, error) {
	var out []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := sc.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		out = append(out, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("could not read allowlist: %w", err)
	}

	return out, nil
}

// Load builds a List from the configured domains plus the contents of path,
// when path is not empty. With neither source set, DefaultDomains is used.
func Load(ctx context.Context, domains []string, path string) (*List, error) {
	entries := append([]string(nil), domains...)
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("could not open allowlist file: %w", err)
		}
		defer func() {
			_ = f.Close()
		}()

		fromFile, err := Read(f)
		if err != nil {
			return nil, err
		}
		entries = append(entries, fromFile...)
	}

	if len(entries) == 0 {
		entries = DefaultDomains
	}

	l := New(ctx, entries...)
	logger.Info(ctx, "allowlist loaded", zap.Int("domains", l.Len()), zap.String("file", path))

	return l, nil
}

// Trusted reports whether host, or its registrable root domain, is in the list.
func (l *List) Trusted(host string) bool {
	if l == nil || len(l.domains) == 0 {
		return false
	}

	h := hostname.ExtractHost(host)
	if h == "" {
		return false
	}
	if _, ok := l.domains[h]; ok {
		return true
	}
	_, ok := l.domains[hostname.BaseDomain(h)]

	return ok
}

// Domains returns the trusted domains in sorted order.
func (l *List) Domains() []string {
	if l == nil {
		return nil
	}

	out := make([]string, 0, len(l.domains))
	for d := range l.domains {
		out = append(out, d)
	}
	sort.Strings(out)

	return out
}

// Len returns the number of trusted domains.
func (l *List) Len() int {
	if l == nil {
		return 0
	}

	return len(l.domains)
}
