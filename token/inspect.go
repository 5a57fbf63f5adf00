// Package token inspects bearer tokens issued by the listing platform API.
//
// The console never verifies token signatures: that is the API's job. It only
// reads the registered claims of JWT-shaped tokens so that a restored session
// whose token already expired is not presented as signed in.
package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrNotJWT is returned when the bearer token is not a parsable JWT. Opaque
// tokens are valid bearer tokens; callers treat this error as "no claims".
var ErrNotJWT = errors.New("token is not a jwt")

// Info holds the registered claims the console cares about.
type Info struct {
	Subject   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// HasExpiry reports whether the token declares an exp claim.
func (i Info) HasExpiry() bool {
	return !i.ExpiresAt.IsZero()
}

// Expired reports whether the token's exp claim is at or before now.
// Tokens without exp never expire from the console's point of view.
func (i Info) Expired(now time.Time) bool {
	return i.HasExpiry() && !now.Before(i.ExpiresAt)
}

// Inspect reads the registered claims of raw without verifying its signature.
func Inspect(raw string) (Info, error) {
	if raw == "" {
		return Info{}, ErrNotJWT
	}

	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return Info{}, ErrNotJWT
	}

	info := Info{Subject: claims.Subject}
	if claims.IssuedAt != nil {
		info.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		info.ExpiresAt = claims.ExpiresAt.Time
	}
	return info, nil
}
