package webhookguard

import (
	"fmt"
	"net/http"
	"net/netip"
	"strings"

	"go.uber.org/zap"
)

// DefaultTelegramAllowlist são as faixas de onde o Telegram entrega webhooks,
// mais loopback para testes locais.
var DefaultTelegramAllowlist = []string{
	"149.154.160.0/20",
	"91.108.4.0/22",
	"91.108.8.0/22",
	"91.108.12.0/22",
	"91.108.16.0/22",
	"91.108.20.0/22",
	"91.108.56.0/22",
	"127.0.0.1",
	"localhost",
}

// Allowlist aceita faixas CIDR e prefixos literais ("149.154.", "localhost").
type Allowlist struct {
	prefixes []netip.Prefix
	literals []string
}

// ParseAllowlist trata entradas com "/" como CIDR; o resto é prefixo de string.
func ParseAllowlist(entries []string) (Allowlist, error) {
	var a Allowlist
	for _, e := range entries {
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}
		if strings.Contains(e, "/") {
			p, err := netip.ParsePrefix(e)
			if err != nil {
				return Allowlist{}, fmt.Errorf("invalid allowlist range %q: %w", e, err)
			}
			a.prefixes = append(a.prefixes, p.Masked())
			continue
		}
		a.literals = append(a.literals, e)
	}
	return a, nil
}

func (a Allowlist) Len() int { return len(a.prefixes) + len(a.literals) }

func (a Allowlist) Contains(ip string) bool {
	if addr, err := netip.ParseAddr(ip); err == nil {
		addr = addr.Unmap()
		for _, p := range a.prefixes {
			if p.Contains(addr) {
				return true
			}
		}
	}
	for _, l := range a.literals {
		if strings.HasPrefix(ip, l) {
			return true
		}
	}
	return false
}

type AllowlistOptions struct {
	Enabled     bool
	List        Allowlist
	WebhookPath string
	// KeyFn deve devolver IP; um header de chave arbitrário não serve aqui.
	KeyFn  KeyFunc
	Logger *zap.Logger
}

// AllowlistMiddleware restringe a rota de webhook às origens conhecidas (403
// fora da lista). Desligado, ou fora da rota de webhook, é transparente.
func AllowlistMiddleware(opts AllowlistOptions) func(next http.Handler) http.Handler {
	if !opts.Enabled {
		return func(next http.Handler) http.Handler { return next }
	}
	if opts.WebhookPath == "" {
		opts.WebhookPath = DefaultWebhookPath
	}
	if opts.KeyFn == nil {
		opts.KeyFn = DefaultKeyFunc("", false)
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !strings.Contains(r.URL.Path, opts.WebhookPath) {
				next.ServeHTTP(w, r)
				return
			}

			ip := opts.KeyFn(r)
			if !opts.List.Contains(ip) {
				opts.Logger.Warn("non-allowlisted IP attempted webhook access", zap.String("client_ip", ip))
				writeError(w, http.StatusForbidden, msgAccessDenied)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
