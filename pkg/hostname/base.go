package hostname

import (
	"net"
	"strings"

	"golang.org/x/net/publicsuffix"
)

// BaseDomain returns the registrable root domain (eTLD+1) of host using the
// public suffix list, e.g. "news.bbc.co.uk" becomes "bbc.co.uk".
//
// IP literals, single-label hosts and hosts that are themselves a public
// suffix have no registrable parent and are returned unchanged.
func BaseDomain(host string) string {
	host = strings.TrimSuffix(strings.ToLower(strings.TrimSpace(host)), ".")
	if host == "" || net.ParseIP(host) != nil || !strings.Contains(host, ".") {
		return host
	}

	root, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return host
	}

	return root
}
