package apiauth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// ErrKeyMismatch is returned by Verify when the supplied key does not
// match the configured hash.
var ErrKeyMismatch = errors.New("apiauth: api key mismatch")

// KeyStore holds the single bootstrap API key the engine's tool surface
// accepts at /v1/auth/token, hashed at rest with bcrypt.
type KeyStore struct {
	hash []byte
}

// NewKeyStore bcrypt-hashes plaintext once at startup.
func NewKeyStore(plaintext string) (*KeyStore, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	return &KeyStore{hash: hash}, nil
}

// NewKeyStoreFromHash wraps an already-hashed key, e.g. loaded from
// config rather than generated at startup.
func NewKeyStoreFromHash(hash string) *KeyStore {
	return &KeyStore{hash: []byte(hash)}
}

func (k *KeyStore) Verify(candidate string) error {
	if len(k.hash) == 0 || len(candidate) == 0 {
		return ErrKeyMismatch
	}
	if err := bcrypt.CompareHashAndPassword(k.hash, []byte(candidate)); err != nil {
		return ErrKeyMismatch
	}
	return nil
}
