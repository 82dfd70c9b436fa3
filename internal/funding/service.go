package funding

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/coinvault/coinvault/internal/ledger"
	"github.com/coinvault/coinvault/internal/notification"
)

// Service applies admin credits and deductions to user balances.
type Service struct {
	guard         *ledger.Guard
	notifier      notification.Notifier
	logger        *slog.Logger
	allowNegative bool
	now           func() time.Time
}

// Options tunes adjustment rules.
type Options struct {
	// AllowNegative lets a deduction push a balance below zero.
	AllowNegative bool
}

// NewService prepares a funding service. notifier may be nil.
func NewService(guard *ledger.Guard, notifier notification.Notifier, logger *slog.Logger, opts Options) *Service {
	return &Service{
		guard:         guard,
		notifier:      notifier,
		logger:        logger,
		allowNegative: opts.AllowNegative,
		now:           time.Now,
	}
}

// Credit adds input.Amount to the user's account.
func (s *Service) Credit(ctx context.Context, input AdjustInput) (ledger.TransactionRecord, error) {
	return s.adjust(ctx, input, ledger.Credit)
}

// Deduct removes input.Amount from the user's account.
func (s *Service) Deduct(ctx context.Context, input AdjustInput) (ledger.TransactionRecord, error) {
	return s.adjust(ctx, input, ledger.Deduct)
}

func (s *Service) adjust(ctx context.Context, input AdjustInput, dir ledger.Direction) (ledger.TransactionRecord, error) {
	var rec ledger.TransactionRecord
	err := s.guard.Mutate(ctx, []string{input.UserID}, func(users []*ledger.User) error {
		var err error
		rec, err = ledger.ApplyAdjustment(users[0], ledger.Adjustment{
			Asset:         input.Asset,
			Amount:        input.Amount,
			Direction:     dir,
			AllowNegative: s.allowNegative,
			At:            s.now(),
		})
		return err
	})
	if err != nil {
		if ledger.KindOf(err) == ledger.KindNotFound {
			return ledger.TransactionRecord{}, ledger.ErrUserOrAssetNotFound
		}
		return ledger.TransactionRecord{}, err
	}

	notification.Deliver(ctx, s.notifier, s.logger, notification.Message{
		Kind:        notification.KindAdminAdjustment,
		Destination: input.UserID,
		Asset:       input.Asset,
		Amount:      input.Amount,
		Body:        fmt.Sprintf("%s of %s %s.", rec.Type, input.Amount.String(), input.Asset),
		At:          rec.Timestamp,
	})
	return rec, nil
}
