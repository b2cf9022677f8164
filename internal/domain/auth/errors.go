package auth

import "errors"

var (
	// ErrMissingSubject is returned when a token carries no subject claim
	ErrMissingSubject = errors.New("token has no subject")

	// ErrInvalidIssuer is returned when the token issuer does not match the server
	ErrInvalidIssuer = errors.New("invalid token issuer")

	// ErrTokenExpired is returned when the token is past its expiry
	ErrTokenExpired = errors.New("token expired")

	// ErrNoKeysFound is returned when the keys directory holds no usable public key
	ErrNoKeysFound = errors.New("no public keys found")
)
