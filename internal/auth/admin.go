package auth

import "crypto/subtle"

// AdminSecret holds the shared admin PIN resolved at startup.
type AdminSecret struct {
	pin []byte
}

// NewAdminSecret wraps pin. An empty pin never matches.
func NewAdminSecret(pin string) AdminSecret {
	return AdminSecret{pin: []byte(pin)}
}

// Matches compares candidate with the configured PIN in constant time.
func (s AdminSecret) Matches(candidate string) bool {
	if len(s.pin) == 0 || candidate == "" {
		return false
	}
	return subtle.ConstantTimeCompare(s.pin, []byte(candidate)) == 1
}
