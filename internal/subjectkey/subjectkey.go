// Package subjectkey validates and normalizes subject keys. A subject key
// is the base58-encoded Solana address of the creator or launch being
// tracked; malformed keys are rejected before an entity record is created.
package subjectkey

import (
	"errors"
	"fmt"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// ErrInvalidKey is returned for keys that do not decode to a 32-byte
// Solana address.
var ErrInvalidKey = errors.New("invalid subject key")

// Validate checks that key is a well-formed base58 32-byte address and
// returns its canonical encoding.
func Validate(key string) (string, error) {
	if key == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidKey)
	}

	decoded, err := base58.Decode(key)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	if len(decoded) != 32 {
		return "", fmt.Errorf("%w: decoded length %d, want 32", ErrInvalidKey, len(decoded))
	}

	// Re-encode so alternate encodings of the same bytes collapse to one
	// canonical key.
	return base58.Encode(decoded), nil
}

// IsOnCurve reports whether the key decodes to a point on the ed25519
// curve. Wallet addresses are on-curve; program-derived addresses (pool
// and vault accounts) are off-curve, so this separates creator wallets
// from infrastructure accounts.
func IsOnCurve(key string) bool {
	decoded, err := base58.Decode(key)
	if err != nil || len(decoded) != 32 {
		return false
	}
	_, err = new(edwards25519.Point).SetBytes(decoded)
	return err == nil
}
