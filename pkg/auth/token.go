// Package auth inspects bearer tokens issued by the storefront admin API.
package auth

import (
	"fmt"
	"time"

	"github.com/lestrrat-go/jwx/v3/jwt"
)

// TokenInfo is what the storefront reads from an admin token without verifying it.
// Signature checks belong to the API that issued the token.
type TokenInfo struct {
	Subject   string
	ExpiresAt time.Time
	IsJWT     bool
}

// Inspect parses token as a JWT without verifying its signature.
// Opaque (non-JWT) tokens are not an error: IsJWT is false and no expiry is known.
func Inspect(token string) TokenInfo {
	parsed, err := jwt.ParseInsecure([]byte(token))
	if err != nil {
		return TokenInfo{}
	}
	info := TokenInfo{IsJWT: true}
	if sub, ok := parsed.Subject(); ok {
		info.Subject = sub
	}
	if exp, ok := parsed.Expiration(); ok {
		info.ExpiresAt = exp
	}
	return info
}

// Expired reports whether the token carries an expiry at or before now.
func (i TokenInfo) Expired(now time.Time) bool {
	return !i.ExpiresAt.IsZero() && !now.Before(i.ExpiresAt)
}

func (i TokenInfo) String() string {
	if !i.IsJWT {
		return "opaque token"
	}
	return fmt.Sprintf("jwt sub=%q exp=%s", i.Subject, i.ExpiresAt.Format(time.RFC3339))
}
