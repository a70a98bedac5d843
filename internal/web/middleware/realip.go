package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"strings"
)

// TrustedRealIP resolves the client address behind a reverse proxy. The
// X-Real-IP and X-Forwarded-For headers are honored only when the connection
// itself comes from one of the configured proxy networks; any other caller
// keeps its RemoteAddr no matter what headers it sends. The per-IP rate
// limit buckets key on the resolved address, so an unchecked header would
// let a client mint fresh buckets at will.
func TrustedRealIP(proxyCIDRs []string) func(http.Handler) http.Handler {
	proxies := parseProxyNets(proxyCIDRs)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			peer := peerIP(r.RemoteAddr)
			if fromProxy(peer, proxies) {
				if ip := forwardedClient(r); ip != nil {
					r.RemoteAddr = ip.String()
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// parseProxyNets parses the configured CIDRs once at startup. A bare IP is
// accepted as a /32 (or /128). Unparseable entries are logged and skipped
// rather than failing startup.
func parseProxyNets(cidrs []string) []*net.IPNet {
	var nets []*net.IPNet
	for _, cidr := range cidrs {
		cidr = strings.TrimSpace(cidr)
		if cidr == "" {
			continue
		}
		if _, network, err := net.ParseCIDR(cidr); err == nil {
			nets = append(nets, network)
			continue
		}
		if ip := net.ParseIP(cidr); ip != nil {
			mask := net.CIDRMask(128, 128)
			if ip.To4() != nil {
				mask = net.CIDRMask(32, 32)
			}
			nets = append(nets, &net.IPNet{IP: ip, Mask: mask})
			continue
		}
		slog.Warn("realip: skipping invalid trusted proxy entry", "cidr", cidr)
	}
	return nets
}

// forwardedClient reads the proxy headers, X-Real-IP first, then the first
// hop of X-Forwarded-For. Returns nil when neither carries a valid address.
func forwardedClient(r *http.Request) net.IP {
	if rip := strings.TrimSpace(r.Header.Get("X-Real-IP")); rip != "" {
		if ip := net.ParseIP(rip); ip != nil {
			return ip
		}
	}
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first := xff
		if idx := strings.Index(xff, ","); idx > 0 {
			first = xff[:idx]
		}
		return net.ParseIP(strings.TrimSpace(first))
	}
	return nil
}

// peerIP strips the port from a connection address.
func peerIP(addr string) net.IP {
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return net.ParseIP(host)
	}
	return net.ParseIP(addr)
}

func fromProxy(ip net.IP, proxies []*net.IPNet) bool {
	if ip == nil {
		return false
	}
	for _, network := range proxies {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}
