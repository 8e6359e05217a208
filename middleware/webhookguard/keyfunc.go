package webhookguard

import (
	"net"
	"net/http"
	"strings"
)

type KeyFunc func(r *http.Request) string

// DefaultKeyFunc identifica o cliente por header (se configurado), depois
// X-Forwarded-For / X-Real-IP (só com trustXFF) e por fim RemoteAddr.
func DefaultKeyFunc(keyHeader string, trustXFF bool) KeyFunc {
	return func(r *http.Request) string {
		if keyHeader != "" {
			if v := strings.TrimSpace(r.Header.Get(keyHeader)); v != "" {
				return v
			}
		}
		return ClientIP(r, trustXFF)
	}
}

// ClientIP devolve o IP do cliente. Headers de proxy só são lidos com
// trustXFF: sem um proxy confiável na frente eles são forjáveis.
func ClientIP(r *http.Request, trustXFF bool) string {
	if trustXFF {
		// pega o primeiro IP do X-Forwarded-For (cliente original)
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			first, _, _ := strings.Cut(xff, ",")
			if ip := strings.TrimSpace(first); ip != "" {
				return ip
			}
		}
		if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
			return ip
		}
	}

	// fallback: RemoteAddr
	addr := strings.TrimSpace(r.RemoteAddr)
	if host, _, err := net.SplitHostPort(addr); err == nil && host != "" {
		return host
	}
	if addr != "" {
		return addr
	}
	return "unknown"
}
