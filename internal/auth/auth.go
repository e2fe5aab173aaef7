// Package auth resolves the requesting user from a bearer token. Requests
// without a usable token run as the shared guest identity rather than being
// rejected; endpoints that need a real account check for it explicitly.
package auth

import (
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// GuestUser is the identity assigned to unauthenticated requests.
const GuestUser = "demo_user"

// Resolver extracts user identities from Authorization headers.
type Resolver struct {
	secret []byte
}

// New creates a Resolver verifying HS256 tokens with the given secret.
func New(secret string) *Resolver {
	return &Resolver{secret: []byte(secret)}
}

// UserID returns the subject of a valid bearer token, or GuestUser when the
// header is absent, malformed, expired or signed with the wrong key. It never
// fails a request.
func (r *Resolver) UserID(authorization string) string {
	const prefix = "Bearer "
	if !strings.HasPrefix(authorization, prefix) {
		return GuestUser
	}
	raw := strings.TrimSpace(authorization[len(prefix):])
	if raw == "" {
		return GuestUser
	}

	token, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return r.secret, nil
	})
	if err != nil || !token.Valid {
		return GuestUser
	}

	sub, err := token.Claims.GetSubject()
	if err != nil || sub == "" {
		return GuestUser
	}
	return sub
}

// IsGuest reports whether the id is the shared guest identity.
func IsGuest(userID string) bool {
	return userID == GuestUser
}
