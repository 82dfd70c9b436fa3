package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// MaxPINBytes is the longest PIN bcrypt accepts.
const MaxPINBytes = 72

// PINTooLong reports whether pin exceeds what Hash can accept.
func PINTooLong(pin string) bool {
	return len(pin) > MaxPINBytes
}

// PINHasher hashes and verifies user PINs with bcrypt.
type PINHasher struct {
	cost int
}

// NewPINHasher returns a hasher using cost, falling back to bcrypt.DefaultCost
// when cost is outside the range bcrypt accepts.
func NewPINHasher(cost int) PINHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return PINHasher{cost: cost}
}

// Hash returns the encoded bcrypt hash of pin.
func (h PINHasher) Hash(pin string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(pin), h.cost)
	if err != nil {
		return "", fmt.Errorf("hash pin: %w", err)
	}
	return string(hash), nil
}

// Compare reports whether pin matches hash. A mismatch is not an error; a
// malformed hash is.
func (h PINHasher) Compare(hash, pin string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(pin))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, fmt.Errorf("compare pin: %w", err)
	}
}
