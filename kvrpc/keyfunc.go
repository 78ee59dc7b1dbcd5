package kvrpc

import (
	"net"
	"net/http"
	"strings"
)

// KeyFunc extrai a identidade do cliente usada pelo rate limit.
type KeyFunc func(r *http.Request) string

const unknownClient = "noip"

// DefaultKeyFunc resolve a identidade na ordem:
// keyHeader (se configurado) -> primeiro IP do X-Forwarded-For (se trustXFF) -> host do RemoteAddr.
func DefaultKeyFunc(keyHeader string, trustXFF bool) KeyFunc {
	return func(r *http.Request) string {
		if keyHeader != "" {
			if v := strings.TrimSpace(r.Header.Get(keyHeader)); v != "" {
				return v
			}
		}
		if trustXFF {
			if ip := firstForwardedFor(r.Header.Get("X-Forwarded-For")); ip != "" {
				return ip
			}
		}
		return remoteHost(r.RemoteAddr)
	}
}

// firstForwardedFor pega o cliente original (primeira entrada da lista).
func firstForwardedFor(xff string) string {
	first, _, _ := strings.Cut(xff, ",")
	return strings.TrimSpace(first)
}

func remoteHost(addr string) string {
	addr = strings.TrimSpace(addr)
	if host, _, err := net.SplitHostPort(addr); err == nil && host != "" {
		return host
	}
	if addr != "" {
		return addr
	}
	return unknownClient
}
