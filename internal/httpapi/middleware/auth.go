package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// Keys lists the API keys accepted by the read-only status API.
type Keys struct {
	Public []string
}

// presentedKey reads "Authorization: Bearer <key>" or "X-API-Key: <key>".
func presentedKey(r *http.Request) string {
	if scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " "); ok && strings.EqualFold(scheme, "bearer") {
		return strings.TrimSpace(token)
	}
	return strings.TrimSpace(r.Header.Get("X-API-Key"))
}

func (k Keys) accepts(given string) bool {
	if given == "" {
		return false
	}
	ok := 0
	for _, want := range k.Public {
		ok |= subtle.ConstantTimeCompare([]byte(given), []byte(want))
	}
	return ok == 1
}

// RequireAny lets through requests carrying one of the public keys. With no
// keys configured the API is open.
func RequireAny(keys Keys) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if len(keys.Public) == 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !keys.accepts(presentedKey(r)) {
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("WWW-Authenticate", `Bearer realm="httpwatchdog"`)
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":"unauthorized"}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
