package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// TrustedRealIP rewrites r.RemoteAddr to the bare client IP.
//
// X-Real-IP and X-Forwarded-For are honoured only when the connection comes
// from one of trustedCIDRs; otherwise the connection address is used. The
// port is always dropped so per-IP limits see one key per client.
func TrustedRealIP(trustedCIDRs []string) func(http.Handler) http.Handler {
	trusted := parsePrefixes(trustedCIDRs)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			remote, ok := parseAddr(r.RemoteAddr)
			if ok {
				client := remote
				if isTrusted(remote, trusted) {
					if fwd, ok := forwardedFor(r); ok {
						client = fwd
					}
				}
				r.RemoteAddr = client.String()
			}
			next.ServeHTTP(w, r)
		})
	}
}

// parsePrefixes parses CIDRs or single IPs, skipping invalid entries.
func parsePrefixes(cidrs []string) []netip.Prefix {
	var out []netip.Prefix
	for _, s := range cidrs {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if p, err := netip.ParsePrefix(s); err == nil {
			out = append(out, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(s)
		if err != nil {
			slog.Warn("realip: invalid trusted proxy CIDR, skipping", "cidr", s, "error", err)
			continue
		}
		out = append(out, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return out
}

// forwardedFor returns the client IP from X-Real-IP, or the first entry of
// X-Forwarded-For when X-Real-IP is absent.
func forwardedFor(r *http.Request) (netip.Addr, bool) {
	if rip := r.Header.Get("X-Real-IP"); rip != "" {
		return parseAddr(strings.TrimSpace(rip))
	}
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return parseAddr(strings.TrimSpace(first))
	}
	return netip.Addr{}, false
}

// parseAddr parses an IP from a host:port string or a plain IP.
func parseAddr(s string) (netip.Addr, bool) {
	if host, _, err := net.SplitHostPort(s); err == nil {
		s = host
	}
	addr, err := netip.ParseAddr(s)
	if err != nil {
		return netip.Addr{}, false
	}
	return addr.Unmap(), true
}

func isTrusted(addr netip.Addr, trusted []netip.Prefix) bool {
	for _, p := range trusted {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}
