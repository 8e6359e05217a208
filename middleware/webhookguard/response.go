package webhookguard

import (
	"encoding/json"
	"net/http"
)

// Corpos fixos: nada da requisição é ecoado de volta.
const (
	msgAccessDenied   = "Access denied"
	msgInvalidRequest = "Invalid request"
	msgRateLimited    = "Rate limit exceeded"
	msgUnavailable    = "Service unavailable"
	msgInternal       = "Internal server error"
)

var securityHeaders = [...][2]string{
	{"X-Content-Type-Options", "nosniff"},
	{"X-Frame-Options", "DENY"},
	{"X-XSS-Protection", "1; mode=block"},
	{"Strict-Transport-Security", "max-age=31536000; includeSubDomains"},
}

// SetSecurityHeaders aplica os headers fixos. Idempotente.
func SetSecurityHeaders(h http.Header) {
	for _, kv := range securityHeaders {
		h.Set(kv[0], kv[1])
	}
}

type errorBody struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	SetSecurityHeaders(w.Header())
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorBody{Error: msg})
}
