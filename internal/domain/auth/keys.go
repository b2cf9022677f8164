package auth

import (
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/lestrrat-go/jwx/v3/jwk"
)

// KeyStore holds the public keys used to verify access tokens. Keys are
// loaded from PEM files named public-<kid>.pem in the configured directory;
// signing happens in the external token engine, never here.
type KeyStore struct {
	ActiveKid string
	KeySet    jwk.Set
}

// LoadKeys reads every public-*.pem file under path into a key set keyed by
// the kid embedded in the file name.
func LoadKeys(path, activeKid string) (*KeyStore, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("keys directory not accessible: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("keys path %s is not a directory", path)
	}

	files, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read keys directory: %w", err)
	}

	keySet := jwk.NewSet()

	for _, file := range files {
		if file.IsDir() {
			continue
		}

		fileName := file.Name()
		if !strings.HasPrefix(fileName, "public-") || filepath.Ext(fileName) != ".pem" {
			continue
		}

		kid := strings.TrimPrefix(fileName, "public-")
		kid = strings.TrimSuffix(kid, ".pem")
		if kid == "" {
			continue
		}

		pubData, err := os.ReadFile(filepath.Join(path, fileName))
		if err != nil {
			return nil, fmt.Errorf("failed to read public key %s: %w", fileName, err)
		}

		block, _ := pem.Decode(pubData)
		if block == nil {
			return nil, fmt.Errorf("failed to decode PEM in %s", fileName)
		}

		pub, err := x509.ParsePKIXPublicKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("failed to parse public key %s: %w", fileName, err)
		}

		key, err := jwk.Import(pub)
		if err != nil {
			return nil, fmt.Errorf("failed to import public key %s: %w", fileName, err)
		}
		if err := key.Set(jwk.KeyIDKey, kid); err != nil {
			return nil, fmt.Errorf("failed to set kid on key %s: %w", fileName, err)
		}

		if err := keySet.AddKey(key); err != nil {
			return nil, fmt.Errorf("failed to add key %s to set: %w", fileName, err)
		}
	}

	if keySet.Len() == 0 {
		return nil, ErrNoKeysFound
	}

	return &KeyStore{
		ActiveKid: activeKid,
		KeySet:    keySet,
	}, nil
}
