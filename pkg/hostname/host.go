// Package hostname turns messy user input (bare domains, full URLs, URLs with
// credentials or ports) into normalized hostnames and registrable root domains.
package hostname

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/idna"
)

var (
	// ErrEmptyHost is returned when the input does not contain a host.
	ErrEmptyHost = errors.New("empty host")
	// ErrInvalidHost is returned when the host contains characters or labels
	// that cannot appear in a DNS name.
	ErrInvalidHost = errors.New("invalid host")
)

const (
	maxLabelLength = 63
	maxHostLength  = 253
)

// HasScheme reports whether the input carries an explicit scheme.
func HasScheme(input string) bool {
	return strings.Contains(input, "://")
}

// ExtractHost returns the lower-cased hostname of a domain, URL or messy input.
// Inputs without a scheme are parsed as https URLs, so "example.com/path"
// yields "example.com". Userinfo, ports, surrounding slashes, the trailing dot
// and IPv6 brackets are removed; non-ASCII labels are converted to punycode.
// An empty string is returned when no host can be found.
func ExtractHost(input string) string {
	s := strings.TrimSpace(input)
	if s == "" {
		return ""
	}

	forParse := s
	if !HasScheme(s) {
		forParse = "https://" + s
	}

	var host string
	if u, err := url.Parse(forParse); err == nil {
		host = u.Host
		if host == "" {
			host = u.Path
		}
	} else {
		// fall back to a best-effort cut when the URL parser gives up (e.g. spaces in host)
		host = s
		if i := strings.Index(host, "://"); i >= 0 {
			host = host[i+3:]
		}
		if i := strings.IndexAny(host, "/?#"); i >= 0 {
			host = host[:i]
		}
	}

	return normalize(host)
}

func normalize(host string) string {
	host = strings.TrimSpace(host)

	// strip credentials: user:pass@host
	if at := strings.LastIndexByte(host, '@'); at != -1 {
		host = host[at+1:]
	}

	host = stripPort(host)
	host = strings.Trim(strings.TrimSpace(host), "/")
	host = strings.TrimSuffix(host, ".")
	if host == "" {
		return ""
	}

	if ip := net.ParseIP(host); ip != nil {
		return ip.String()
	}

	// invalid UTF-8 is kept as is so Validate rejects it; the IDNA mapping
	// would turn it into a well-formed punycode label
	if !isASCII(host) && utf8.ValidString(host) {
		if ascii, err := idna.Lookup.ToASCII(host); err == nil {
			host = ascii
		}
	}

	return strings.ToLower(host)
}

// stripPort removes a port and IPv6 brackets from host[:port].
func stripPort(hostport string) string {
	if strings.HasPrefix(hostport, "[") {
		if end := strings.IndexByte(hostport, ']'); end != -1 {
			return hostport[1:end]
		}

		return hostport
	}

	// bare IPv6 literal, nothing to strip
	if strings.Count(hostport, ":") > 1 {
		return hostport
	}

	if h, _, err := net.SplitHostPort(hostport); err == nil {
		return h
	}

	return strings.TrimSuffix(hostport, ":")
}

// Validate checks that host is an IP literal or a DNS name of at most 253
// bytes whose labels use only [a-z0-9-].
func Validate(host string) error {
	if host == "" {
		return ErrEmptyHost
	}
	if net.ParseIP(host) != nil {
		return nil
	}
	if !utf8.ValidString(host) {
		return fmt.Errorf("%w: %q is not valid UTF-8", ErrInvalidHost, host)
	}
	if len(host) > maxHostLength {
		return fmt.Errorf("%w: host is longer than %d bytes", ErrInvalidHost, maxHostLength)
	}

	for _, label := range strings.Split(host, ".") {
		if label == "" {
			return fmt.Errorf("%w: %q has an empty label", ErrInvalidHost, host)
		}
		if len(label) > maxLabelLength {
			return fmt.Errorf("%w: %q has a label longer than %d bytes", ErrInvalidHost, host, maxLabelLength)
		}
		for i := 0; i < len(label); i++ {
			c := label[i]
			if (c < 'a' || c > 'z') && (c < '0' || c > '9') && c != '-' {
				return fmt.Errorf("%w: %q contains %q", ErrInvalidHost, host, c)
			}
		}
	}

	return nil
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}

	return true
}
