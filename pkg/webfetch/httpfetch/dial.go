package httpfetch

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"syscall"
	"time"
)

// ErrBlockedAddress is returned when a connection would reach a non-public
// address.
var ErrBlockedAddress = errors.New("address is not publicly routable")

// PublicAddress reports whether ip may be fetched when private addresses are
// blocked.
func PublicAddress(ip netip.Addr) bool {
	ip = ip.Unmap()

	return ip.IsValid() &&
		!ip.IsLoopback() &&
		!ip.IsPrivate() &&
		!ip.IsLinkLocalUnicast() &&
		!ip.IsLinkLocalMulticast() &&
		!ip.IsInterfaceLocalMulticast() &&
		!ip.IsMulticast() &&
		!ip.IsUnspecified()
}

func checkAddress(address string) error {
	ap, err := netip.ParseAddrPort(address)
	if err != nil {
		return fmt.Errorf("could not parse dial address %q: %w", address, err)
	}
	if !PublicAddress(ap.Addr()) {
		return fmt.Errorf("%s: %w", ap.Addr(), ErrBlockedAddress)
	}

	return nil
}

// DialControl is a net.Dialer Control hook rejecting non-public addresses. It
// runs after DNS resolution, right before connect.
func DialControl(_, address string, _ syscall.RawConn) error {
	return checkAddress(address)
}

// guardTransport returns a transport whose connections only reach public
// addresses. A nil or non *http.Transport rt is replaced by a clone of
// http.DefaultTransport. A custom DialContext is kept and its connection is
// checked once established.
func guardTransport(rt http.RoundTripper) http.RoundTripper {
	base, ok := rt.(*http.Transport)
	if !ok || base == nil {
		base = http.DefaultTransport.(*http.Transport) //nolint: forcetypeassert
	}
	t := base.Clone()

	if dial := t.DialContext; dial != nil && base != http.DefaultTransport {
		t.DialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
			conn, err := dial(ctx, network, addr)
			if err != nil {
				return nil, err
			}
			if err := checkAddress(conn.RemoteAddr().String()); err != nil {
				_ = conn.Close()

				return nil, err
			}

			return conn, nil
		}

		return t
	}

	d := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
		Control:   DialControl,
	}
	t.DialContext = d.DialContext

	return t
}
