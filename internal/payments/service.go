package payments

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/coinvault/coinvault/internal/ledger"
	"github.com/coinvault/coinvault/internal/notification"
)

// Service moves assets between users.
type Service struct {
	guard    *ledger.Guard
	notifier notification.Notifier
	logger   *slog.Logger
	now      func() time.Time
}

// NewService constructs a payment service. notifier may be nil.
func NewService(guard *ledger.Guard, notifier notification.Notifier, logger *slog.Logger) *Service {
	return &Service{guard: guard, notifier: notifier, logger: logger, now: time.Now}
}

// TransferInput captures the data needed to move an asset between users.
type TransferInput struct {
	SenderID        string
	Asset           string
	ReceiverAddress string
	Amount          decimal.Decimal
}

// TransferResult describes a committed transfer.
type TransferResult struct {
	Record     ledger.TransactionRecord
	ReceiverID string
}

// Transfer debits the sender and credits the owner of ReceiverAddress as one
// unit. Checks run in this order and the first failure wins: amount, sender
// exists, sender frozen, asset held, balance, receiver address, self-transfer.
func (s *Service) Transfer(ctx context.Context, input TransferInput) (TransferResult, error) {
	if err := ledger.ValidateAmount(input.Amount); err != nil {
		return TransferResult{}, err
	}

	receiverID, routeErr, err := s.route(ctx, input)
	if err != nil {
		return TransferResult{}, err
	}

	ids := []string{input.SenderID}
	if routeErr == nil {
		ids = append(ids, receiverID)
	}

	var sent ledger.TransactionRecord
	err = s.guard.Mutate(ctx, ids, func(users []*ledger.User) error {
		sender := users[0]
		// Balance and freeze are re-read under the lock.
		if err := ledger.CheckDebit(sender, input.Asset, input.Amount); err != nil {
			return err
		}
		if routeErr != nil {
			return routeErr
		}
		rec, err := ledger.ApplyTransfer(sender, users[1], ledger.Transfer{
			Asset:           input.Asset,
			ReceiverAddress: input.ReceiverAddress,
			Amount:          input.Amount,
			CorrelationID:   uuid.NewString(),
			At:              s.now(),
		})
		sent = rec
		return err
	})
	if err != nil {
		if ledger.KindOf(err) == ledger.KindNotFound {
			return TransferResult{}, ledger.ErrSenderNotFound
		}
		return TransferResult{}, err
	}

	notification.Deliver(ctx, s.notifier, s.logger, notification.Message{
		Kind:          notification.KindAssetReceived,
		Destination:   receiverID,
		Asset:         input.Asset,
		Amount:        input.Amount,
		CorrelationID: sent.CorrelationID,
		Body:          fmt.Sprintf("You received %s %s.", input.Amount.String(), input.Asset),
		At:            sent.Timestamp,
	})
	return TransferResult{Record: sent, ReceiverID: receiverID}, nil
}

// route confirms the sender exists and resolves the receiver. A resolution
// failure is returned as routeErr so it can be reported after the debit
// checks.
func (s *Service) route(ctx context.Context, input TransferInput) (receiverID string, routeErr, err error) {
	ctx, cancel := s.guard.WithTimeout(ctx)
	defer cancel()

	store := s.guard.Store()
	if _, err := store.Get(ctx, input.SenderID); err != nil {
		if ledger.KindOf(err) == ledger.KindNotFound {
			return "", nil, ledger.ErrSenderNotFound
		}
		return "", nil, err
	}
	matches, err := store.FindAddress(ctx, input.ReceiverAddress)
	if err != nil {
		return "", nil, err
	}
	receiverID, routeErr = ledger.ResolveReceiver(matches, input.Asset)
	return receiverID, routeErr, nil
}
