// Package auth checks the shared bearer secret presented by callers of the relay.
package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"strings"
)

const bearerScheme = "bearer"

// Authenticator compares presented bearer tokens against a configured secret.
// Tokens are reduced to SHA-256 digests before a constant-time comparison so
// neither length nor a byte-wise prefix match shows up in timing.
type Authenticator struct {
	configured bool
	expected   [sha256.Size]byte
}

// New returns an Authenticator for secret. An empty secret denies everything.
func New(secret string) *Authenticator {
	if secret == "" {
		return &Authenticator{}
	}
	return &Authenticator{
		configured: true,
		expected:   sha256.Sum256([]byte(secret)),
	}
}

// Authorize reports whether header is "Bearer <token>" with token equal to
// the configured secret.
func (a *Authenticator) Authorize(header string) bool {
	if a == nil || !a.configured {
		return false
	}
	token, ok := bearerToken(header)
	if !ok {
		return false
	}
	presented := sha256.Sum256([]byte(token))
	return subtle.ConstantTimeCompare(presented[:], a.expected[:]) == 1
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, bearerScheme) {
		return "", false
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", false
	}
	return token, true
}
