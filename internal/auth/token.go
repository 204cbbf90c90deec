// Package auth implements the relay's pre-upgrade authorization check.
package auth

import (
	"crypto/subtle"
	"net"
	"net/http"
	"strings"
)

// TokenParam is the query parameter that carries the shared token.
const TokenParam = "t"

// TokenVerifier admits requests whose "t" query parameter equals the
// configured shared secret.
type TokenVerifier struct {
	token []byte
}

// NewTokenVerifier returns a verifier for token. An empty token admits nobody.
func NewTokenVerifier(token string) *TokenVerifier {
	return &TokenVerifier{token: []byte(token)}
}

// Verify reports whether r carries the configured token. Malformed pairs
// elsewhere in the query are skipped; a missing token is a deny.
func (v *TokenVerifier) Verify(r *http.Request) bool {
	if r == nil || r.URL == nil || len(v.token) == 0 {
		return false
	}

	values := r.URL.Query()
	if !values.Has(TokenParam) {
		return false
	}

	return Equal([]byte(values.Get(TokenParam)), v.token)
}

// Equal compares a candidate against the secret in constant time. The
// length check happens first; only the length of the secret can leak.
func Equal(candidate, secret []byte) bool {
	if len(candidate) != len(secret) {
		return false
	}
	return subtle.ConstantTimeCompare(candidate, secret) == 1
}

// ClientIP returns the best guess at the client's address for logging.
// Proxy headers are trusted as-is; they are never used for authorization.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}

	if xrip := strings.TrimSpace(r.Header.Get("X-Real-IP")); xrip != "" {
		return xrip
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
