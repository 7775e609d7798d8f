package auth

import (
	"crypto/rand"
	"math/big"

	"github.com/goliatone/go-errors"
)

const tokenAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// DefaultTokenLength is the length of generated refresh, access, and
// pre-authentication tokens.
const DefaultTokenLength = 32

// TokenGenerator produces random token strings of the given length. The
// registries accept any implementation so tests can inject a deterministic
// source.
type TokenGenerator func(length int) (string, error)

// RandomToken generates an alphanumeric token of the given length from a
// cryptographically secure source. No uniqueness check is performed against
// already-issued tokens; at the scale this engine targets the collision
// probability is accepted as negligible.
func RandomToken(length int) (string, error) {
	if length <= 0 {
		length = DefaultTokenLength
	}

	max := big.NewInt(int64(len(tokenAlphabet)))
	out := make([]byte, length)
	for i := range out {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", errors.Wrap(err, ErrTokenGeneration.Category, ErrTokenGeneration.Message).
				WithTextCode(ErrTokenGeneration.TextCode)
		}
		out[i] = tokenAlphabet[n.Int64()]
	}

	return string(out), nil
}

// CodeGenerator produces numeric verification codes.
type CodeGenerator func() (int, error)

// GenerateCode returns a random 5-digit verification code (10000-99999).
func GenerateCode() (int, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(90000))
	if err != nil {
		return 0, errors.Wrap(err, ErrTokenGeneration.Category, ErrTokenGeneration.Message).
			WithTextCode(ErrTokenGeneration.TextCode)
	}
	return int(n.Int64()) + 10000, nil
}
