package identity

import (
	"context"

	"github.com/coinvault/coinvault/internal/auth"
	"github.com/coinvault/coinvault/internal/ledger"
)

// Service manages PIN verification and resets.
type Service struct {
	guard  *ledger.Guard
	hasher auth.PINHasher
}

// NewService creates a new identity service.
func NewService(guard *ledger.Guard, hasher auth.PINHasher) *Service {
	return &Service{guard: guard, hasher: hasher}
}

// Authenticate checks, in order, that the user exists, is not frozen and
// presented the right PIN. Nothing is issued on success.
func (s *Service) Authenticate(ctx context.Context, creds Credentials) error {
	ctx, cancel := s.guard.WithTimeout(ctx)
	defer cancel()

	user, err := s.guard.Store().Get(ctx, creds.UserID)
	if err != nil {
		return err
	}
	if user.IsFrozen {
		return ledger.ErrAccountFrozen
	}
	ok, err := s.hasher.Compare(user.PINHash, creds.PIN)
	if err != nil {
		return err
	}
	if !ok {
		return ledger.ErrWrongPIN
	}
	return nil
}

// ResetPIN replaces the user's PIN.
func (s *Service) ResetPIN(ctx context.Context, userID, newPIN string) error {
	if newPIN == "" {
		return ledger.InvalidInput("New PIN is required.")
	}
	if auth.PINTooLong(newPIN) {
		return ledger.InvalidInput("PIN must be at most %d characters.", auth.MaxPINBytes)
	}
	hash, err := s.hasher.Hash(newPIN)
	if err != nil {
		return err
	}
	return s.guard.Mutate(ctx, []string{userID}, func(users []*ledger.User) error {
		users[0].PINHash = hash
		return nil
	})
}
