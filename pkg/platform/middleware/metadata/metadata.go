package metadata

import (
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"strings"

	"authgate/pkg/requestcontext"
)

// TrustedProxies lists the peers allowed to report the client address through
// X-Forwarded-For or X-Real-IP. Headers from any other peer are ignored.
type TrustedProxies []netip.Prefix

// ParseTrustedProxies reads addresses and CIDR ranges such as "10.0.0.0/8"
// or "192.0.2.10". Empty entries are skipped.
func ParseTrustedProxies(entries []string) (TrustedProxies, error) {
	var out TrustedProxies
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if strings.Contains(entry, "/") {
			prefix, err := netip.ParsePrefix(entry)
			if err != nil {
				return nil, fmt.Errorf("trusted proxy %q: %w", entry, err)
			}
			out = append(out, prefix.Masked())
			continue
		}
		addr, err := netip.ParseAddr(entry)
		if err != nil {
			return nil, fmt.Errorf("trusted proxy %q: %w", entry, err)
		}
		addr = addr.Unmap()
		out = append(out, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return out, nil
}

// Contains reports whether addr belongs to a trusted proxy.
func (t TrustedProxies) Contains(addr netip.Addr) bool {
	addr = addr.Unmap()
	for _, prefix := range t {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}

// ClientMetadata extracts client IP address and User-Agent from the request
// and adds them to the context. No proxy is trusted: the IP is the TCP peer.
func ClientMetadata(next http.Handler) http.Handler {
	return NewClientMetadata(nil)(next)
}

// NewClientMetadata is ClientMetadata honouring forwarding headers set by the
// trusted proxies.
func NewClientMetadata(trusted TrustedProxies) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := requestcontext.WithClientMetadata(r.Context(), ClientIPFromRequest(r, trusted), r.Header.Get("User-Agent"))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ClientIPFromRequest returns the address of the client. Forwarding headers
// count only when the peer is trusted; X-Forwarded-For is then walked from
// the right and the first hop outside the trusted set wins.
func ClientIPFromRequest(r *http.Request, trusted TrustedProxies) string {
	peerHost := remoteHost(r.RemoteAddr)
	peer, err := netip.ParseAddr(peerHost)
	if err != nil {
		if peerHost == "" {
			return "unknown"
		}
		return peerHost
	}
	if !trusted.Contains(peer) {
		return peer.Unmap().String()
	}

	client := peer
	hops := forwardedHops(r)
	for i := len(hops) - 1; i >= 0; i-- {
		addr, err := netip.ParseAddr(hops[i])
		if err != nil {
			break
		}
		client = addr
		if !trusted.Contains(addr) {
			break
		}
	}
	if len(hops) == 0 {
		if addr, err := netip.ParseAddr(strings.TrimSpace(r.Header.Get("X-Real-IP"))); err == nil {
			client = addr
		}
	}
	return client.Unmap().String()
}

// forwardedHops flattens every X-Forwarded-For header: client, proxy1, proxy2.
func forwardedHops(r *http.Request) []string {
	var hops []string
	for _, header := range r.Header.Values("X-Forwarded-For") {
		for _, hop := range strings.Split(header, ",") {
			if hop = strings.TrimSpace(hop); hop != "" {
				hops = append(hops, hop)
			}
		}
	}
	return hops
}

// remoteHost strips the port from "ip:port" or "[::1]:port".
func remoteHost(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}
