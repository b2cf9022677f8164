package auth

import (
	"time"

	"github.com/google/uuid"
	"github.com/lestrrat-go/jwx/v3/jwt"
)

// Identity is the authenticated caller attached to the request context
type Identity struct {
	UserID uuid.UUID
}

// AccessTokenClaims are the verified claims of an access token
type AccessTokenClaims struct {
	Token jwt.Token
}

// Subject returns the token subject (the user ID)
func (c *AccessTokenClaims) Subject() string {
	sub, _ := c.Token.Subject()
	return sub
}

// Issuer returns the token issuer
func (c *AccessTokenClaims) Issuer() string {
	iss, _ := c.Token.Issuer()
	return iss
}

// Expiration returns the token expiration time
func (c *AccessTokenClaims) Expiration() time.Time {
	exp, _ := c.Token.Expiration()
	return exp
}

// Validate checks issuer, subject presence, and expiry
func (c *AccessTokenClaims) Validate(issuer string) error {
	if c.Subject() == "" {
		return ErrMissingSubject
	}
	if issuer != "" && c.Issuer() != issuer {
		return ErrInvalidIssuer
	}
	if exp := c.Expiration(); exp.IsZero() || time.Now().After(exp) {
		return ErrTokenExpired
	}
	return nil
}
