package wallet

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/coinvault/coinvault/internal/auth"
	"github.com/coinvault/coinvault/internal/ledger"
)

// Service owns account creation, the read models and the admin freeze flag.
type Service struct {
	guard    *ledger.Guard
	hasher   auth.PINHasher
	symbols  SymbolPolicy
	starting map[string]decimal.Decimal
	now      func() time.Time
}

// Options tunes account creation.
type Options struct {
	Symbols          SymbolPolicy
	StartingBalances map[string]decimal.Decimal
}

// NewService builds a wallet service instance.
func NewService(guard *ledger.Guard, hasher auth.PINHasher, opts Options) *Service {
	return &Service{
		guard:    guard,
		hasher:   hasher,
		symbols:  opts.Symbols,
		starting: opts.StartingBalances,
		now:      time.Now,
	}
}

// InitInput captures the data required to open an account.
type InitInput struct {
	UserID  string
	PIN     string
	Wallets map[string]string
}

// InitializeAccount creates the user. It reports created=false, without
// error, when the user already exists.
func (s *Service) InitializeAccount(ctx context.Context, input InitInput) (created bool, err error) {
	userID := input.UserID
	if strings.TrimSpace(userID) == "" || input.PIN == "" || len(input.Wallets) == 0 {
		return false, ledger.InvalidInput("Invalid data provided.")
	}

	ctx, cancel := s.guard.WithTimeout(ctx)
	defer cancel()

	release, err := s.guard.Lock(ctx, userID)
	if err != nil {
		return false, err
	}
	defer release()

	store := s.guard.Store()
	if _, err := store.Get(ctx, userID); err == nil {
		return false, nil
	} else if !errors.Is(err, ledger.ErrUserNotFound) {
		return false, err
	}

	if err := s.validateNew(input); err != nil {
		return false, err
	}

	hash, err := s.hasher.Hash(input.PIN)
	if err != nil {
		return false, err
	}
	user := ledger.NewUser(userID, hash, input.Wallets, s.starting, s.now())
	if err := store.Create(ctx, user); err != nil {
		// Another instance won the race.
		if errors.Is(err, ledger.ErrUserExists) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// validateNew checks the parts of an init request that only matter when the
// account is actually created.
func (s *Service) validateNew(input InitInput) error {
	if auth.PINTooLong(input.PIN) {
		return ledger.InvalidInput("PIN must be at most %d characters.", auth.MaxPINBytes)
	}
	symbols := make([]string, 0, len(input.Wallets))
	for symbol := range input.Wallets {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)
	for _, symbol := range symbols {
		if !s.symbols.Allows(symbol) {
			return ledger.InvalidInput("Unsupported asset %s.", symbol)
		}
		if strings.TrimSpace(input.Wallets[symbol]) == "" {
			return ledger.InvalidInput("Missing %s address.", symbol)
		}
	}
	return nil
}

// Portfolio returns the user's asset accounts.
func (s *Service) Portfolio(ctx context.Context, userID string) (Portfolio, error) {
	user, err := s.get(ctx, userID)
	if err != nil {
		return Portfolio{}, err
	}
	return Portfolio{UserID: user.UserID, Assets: user.Assets}, nil
}

// History returns the user's records, newest first.
func (s *Service) History(ctx context.Context, userID string) ([]ledger.TransactionRecord, error) {
	user, err := s.get(ctx, userID)
	if err != nil {
		return nil, err
	}
	return user.HistoryNewestFirst(), nil
}

// ListUsers returns every user in creation order.
func (s *Service) ListUsers(ctx context.Context) ([]UserSummary, error) {
	ctx, cancel := s.guard.WithTimeout(ctx)
	defer cancel()

	users, err := s.guard.Store().List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]UserSummary, 0, len(users))
	for _, u := range users {
		out = append(out, summarize(u))
	}
	return out, nil
}

// SetFrozen freezes or unfreezes a user. No history record is written.
func (s *Service) SetFrozen(ctx context.Context, userID string, frozen bool) error {
	return s.guard.Mutate(ctx, []string{userID}, func(users []*ledger.User) error {
		users[0].IsFrozen = frozen
		return nil
	})
}

func (s *Service) get(ctx context.Context, userID string) (ledger.User, error) {
	ctx, cancel := s.guard.WithTimeout(ctx)
	defer cancel()
	return s.guard.Store().Get(ctx, userID)
}
