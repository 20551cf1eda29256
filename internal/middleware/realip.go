package middleware

import (
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// RealIP rewrites r.RemoteAddr to the forwarded client address, but only when
// the TCP peer is one of the trusted proxies. X-Forwarded-For is walked from
// the right, skipping trusted hops, so a client can't forge the entry we use.
// X-Real-IP is consulted when X-Forwarded-For is absent.
func RealIP(trusted []netip.Prefix) func(http.Handler) http.Handler {
	isTrusted := func(addr netip.Addr) bool {
		addr = addr.Unmap()
		for _, p := range trusted {
			if p.Contains(addr) {
				return true
			}
		}
		return false
	}

	return func(next http.Handler) http.Handler {
		if len(trusted) == 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			host, port, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}
			peer, err := netip.ParseAddr(host)
			if err != nil || !isTrusted(peer) {
				next.ServeHTTP(w, r)
				return
			}

			client, ok := forwardedClient(r.Header, isTrusted)
			if ok {
				r = r.WithContext(r.Context())
				r.RemoteAddr = net.JoinHostPort(client.String(), port)
			}
			next.ServeHTTP(w, r)
		})
	}
}

func forwardedClient(h http.Header, isTrusted func(netip.Addr) bool) (netip.Addr, bool) {
	var hops []string
	for _, v := range h.Values("X-Forwarded-For") {
		hops = append(hops, strings.Split(v, ",")...)
	}

	var last netip.Addr
	for i := len(hops) - 1; i >= 0; i-- {
		addr, err := netip.ParseAddr(strings.TrimSpace(hops[i]))
		if err != nil {
			// Anything left of a garbled hop is unverifiable
			break
		}
		last = addr.Unmap()
		if !isTrusted(last) {
			return last, true
		}
	}
	if last.IsValid() {
		// Every hop was a trusted proxy
		return last, true
	}

	if xri := strings.TrimSpace(h.Get("X-Real-IP")); xri != "" {
		addr, err := netip.ParseAddr(xri)
		if err == nil {
			return addr.Unmap(), true
		}
	}
	return netip.Addr{}, false
}
