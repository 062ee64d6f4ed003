package auth

import (
	"crypto/rand"
	"encoding/hex"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// secretSize is the number of random bytes in a generated secret.
const secretSize = 32

// GenerateSecret returns a new random HMAC secret, hex encoded.
func GenerateSecret() (string, error) {
	buf := make([]byte, secretSize)
	if _, err := rand.Read(buf); err != nil {
		return "", errors.Wrap(err, "auth: could not generate secret")
	}
	return hex.EncodeToString(buf), nil
}

// GenerateUser returns a user with a fresh random client ID and secret.
func GenerateUser(displayName string) (*User, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return nil, errors.Wrap(err, "auth: could not generate client ID")
	}
	secret, err := GenerateSecret()
	if err != nil {
		return nil, err
	}
	return &User{
		ClientID:    id,
		DisplayName: displayName,
		Secret:      secret,
	}, nil
}
