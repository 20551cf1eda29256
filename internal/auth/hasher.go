// Package auth holds the credential hashing primitive used by the local
// identity provider.
package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"strings"

	"github.com/samber/oops"
	"golang.org/x/crypto/scrypt"
)

// scrypt parameters. Digests carry no parameters, so changing these
// invalidates every stored credential.
const (
	scryptN       = 32768
	scryptR       = 8
	scryptP       = 1
	scryptKeyLen  = 64
	scryptSaltLen = 16
)

// ErrEmptyPassword is returned when attempting to hash an empty password.
var ErrEmptyPassword = oops.Code("AUTH_EMPTY_PASSWORD").Errorf("password cannot be empty")

// Hasher turns plaintext credentials into storable digests.
type Hasher interface {
	// Hash returns "<derivedHex>.<saltHex>" computed with a fresh salt.
	Hash(plaintext string) (string, error)

	// Verify reports whether plaintext produces digest. Malformed digests
	// never match.
	Verify(plaintext, digest string) bool
}

type ScryptHasher struct{}

func NewScryptHasher() *ScryptHasher {
	return &ScryptHasher{}
}

func (h *ScryptHasher) Hash(plaintext string) (string, error) {
	if plaintext == "" {
		return "", ErrEmptyPassword
	}

	salt := make([]byte, scryptSaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", oops.Code("AUTH_SALT_FAILED").Wrap(err)
	}

	key, err := derive(plaintext, salt)
	if err != nil {
		return "", err
	}

	return hex.EncodeToString(key) + "." + hex.EncodeToString(salt), nil
}

func (h *ScryptHasher) Verify(plaintext, digest string) bool {
	keyHex, saltHex, ok := strings.Cut(digest, ".")
	if !ok || keyHex == "" || saltHex == "" {
		return false
	}

	want, err := hex.DecodeString(keyHex)
	if err != nil || len(want) != scryptKeyLen {
		return false
	}
	salt, err := hex.DecodeString(saltHex)
	if err != nil {
		return false
	}

	got, err := derive(plaintext, salt)
	if err != nil {
		return false
	}

	return subtle.ConstantTimeCompare(got, want) == 1
}

func derive(plaintext string, salt []byte) ([]byte, error) {
	key, err := scrypt.Key([]byte(plaintext), salt, scryptN, scryptR, scryptP, scryptKeyLen)
	if err != nil {
		return nil, oops.Code("AUTH_KDF_FAILED").Wrap(err)
	}
	return key, nil
}

// DummyDigest is a well-formed digest that matches no password. Logins for
// unknown users verify against it so both failure paths run the KDF once.
var DummyDigest = strings.Repeat("0", scryptKeyLen*2) + "." + strings.Repeat("0", scryptSaltLen*2)
