package auth

import (
	"fmt"

	"github.com/lestrrat-go/jwx/v3/jws"
	"github.com/lestrrat-go/jwx/v3/jwt"
)

// Verifier checks access token signatures against the loaded key set and
// validates the standard claims the connections API relies on.
type Verifier struct {
	keys   *KeyStore
	issuer string
}

func NewVerifier(keys *KeyStore, issuer string) *Verifier {
	return &Verifier{
		keys:   keys,
		issuer: issuer,
	}
}

// Verify parses and validates a raw bearer token. The signature must match a
// key in the set and the claims must pass Validate.
func (v *Verifier) Verify(raw string) (*AccessTokenClaims, error) {
	token, err := jwt.Parse(
		[]byte(raw),
		jwt.WithKeySet(v.keys.KeySet, jws.WithInferAlgorithmFromKey(true)),
		jwt.WithValidate(false),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims := &AccessTokenClaims{Token: token}
	if err := claims.Validate(v.issuer); err != nil {
		return nil, err
	}

	return claims, nil
}
