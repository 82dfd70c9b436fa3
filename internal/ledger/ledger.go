package ledger

import (
	"context"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Store defines the contract implemented by user record backends (memory,
// JSON file, Postgres, Mongo).
type Store interface {
	// Create inserts a new user. It fails with ErrUserExists when the id is
	// taken and ErrAddressTaken when one of the addresses is already
	// registered under the same symbol.
	Create(ctx context.Context, user User) error
	// Get returns a copy of the user or ErrUserNotFound.
	Get(ctx context.Context, userID string) (User, error)
	// List returns every user in creation order.
	List(ctx context.Context) ([]User, error)
	// FindAddress lists the accounts registered under address, any symbol.
	FindAddress(ctx context.Context, address string) ([]AddressMatch, error)
	// Update loads the named users with exclusive access, passes them to fn
	// in the order given and persists every change as one unit. Nothing is
	// written when fn returns an error.
	Update(ctx context.Context, userIDs []string, fn func(users []*User) error) error
}

// Direction of an admin balance adjustment.
type Direction int

const (
	Credit Direction = iota
	Deduct
)

func (d Direction) String() string {
	if d == Deduct {
		return "deduct"
	}
	return "credit"
}

// Transfer describes a user-to-user movement of one asset.
type Transfer struct {
	Asset           string
	ReceiverAddress string
	Amount          decimal.Decimal
	CorrelationID   string
	At              time.Time
}

// Adjustment describes an admin credit or deduction.
type Adjustment struct {
	Asset         string
	Amount        decimal.Decimal
	Direction     Direction
	AllowNegative bool
	At            time.Time
}

// NewUser builds a user holding one zero-balance account per wallet entry.
// Symbols present in starting receive that opening balance instead.
func NewUser(userID, pinHash string, wallets map[string]string, starting map[string]decimal.Decimal, at time.Time) User {
	assets := make(Assets, len(wallets))
	for symbol, address := range wallets {
		acct := AssetAccount{Address: address, Balance: decimal.Zero}
		if bonus, ok := starting[symbol]; ok {
			acct.Balance = bonus
		}
		assets[symbol] = acct
	}
	return User{
		UserID:       userID,
		PINHash:      pinHash,
		Assets:       assets,
		Transactions: []TransactionRecord{},
		CreatedAt:    at.UTC(),
	}
}

// ValidateAmount rejects zero and negative amounts.
func ValidateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	return nil
}

// CheckDebit verifies sender may send amount of symbol: not frozen, holds the
// asset, and has enough balance. Checks run in that order.
func CheckDebit(sender *User, symbol string, amount decimal.Decimal) error {
	if sender.IsFrozen {
		return ErrSenderFrozen
	}
	acct, ok := sender.Assets[symbol]
	if !ok {
		return ErrUnsupportedAsset
	}
	if acct.Balance.LessThan(amount) {
		return insufficient(symbol)
	}
	return nil
}

// ResolveReceiver picks the owner of an address for symbol. A single match
// under symbol wins. If the address only exists under other symbols the
// error is an asset mismatch, otherwise it is an invalid address.
func ResolveReceiver(matches []AddressMatch, symbol string) (string, error) {
	var owners []string
	var other string
	for _, m := range matches {
		if m.Symbol == symbol {
			owners = append(owners, m.UserID)
		} else if other == "" {
			other = m.Symbol
		}
	}
	switch {
	case len(owners) == 1:
		return owners[0], nil
	case len(owners) > 1:
		return "", ErrInvalidAddress
	case other != "":
		return "", mismatch(other, symbol)
	default:
		return "", ErrInvalidAddress
	}
}

// ApplyTransfer moves t.Amount from sender to receiver and appends the paired
// Send/Receive records. It re-runs every precondition so callers can invoke it
// on freshly locked records. The Send record is returned.
func ApplyTransfer(sender, receiver *User, t Transfer) (TransactionRecord, error) {
	if err := ValidateAmount(t.Amount); err != nil {
		return TransactionRecord{}, err
	}
	if err := CheckDebit(sender, t.Asset, t.Amount); err != nil {
		return TransactionRecord{}, err
	}
	if sender.UserID == receiver.UserID {
		return TransactionRecord{}, ErrSelfTransfer
	}
	to, ok := receiver.Assets[t.Asset]
	if !ok || to.Address != t.ReceiverAddress {
		return TransactionRecord{}, ErrInvalidAddress
	}

	from := sender.Assets[t.Asset]
	from.Balance = from.Balance.Sub(t.Amount)
	to.Balance = to.Balance.Add(t.Amount)
	sender.Assets[t.Asset] = from
	receiver.Assets[t.Asset] = to

	correlationID := t.CorrelationID
	if correlationID == "" {
		correlationID = uuid.NewString()
	}
	at := t.At.UTC()

	sent := TransactionRecord{
		ID:            uuid.NewString(),
		CorrelationID: correlationID,
		Type:          TxSend,
		Asset:         t.Asset,
		Amount:        t.Amount,
		TargetAddress: t.ReceiverAddress,
		Timestamp:     at,
	}
	sender.Transactions = append(sender.Transactions, sent)
	receiver.Transactions = append(receiver.Transactions, TransactionRecord{
		ID:            uuid.NewString(),
		CorrelationID: correlationID,
		Type:          TxReceive,
		Asset:         t.Asset,
		Amount:        t.Amount,
		TargetAddress: from.Address,
		Timestamp:     at,
	})
	return sent, nil
}

// ApplyAdjustment credits or deducts a user's asset account on behalf of the
// admin and records it against SystemAdminAddress.
func ApplyAdjustment(user *User, a Adjustment) (TransactionRecord, error) {
	acct, ok := user.Assets[a.Asset]
	if !ok {
		return TransactionRecord{}, ErrUserOrAssetNotFound
	}
	if err := ValidateAmount(a.Amount); err != nil {
		return TransactionRecord{}, err
	}

	txType := TxAdminCredit
	if a.Direction == Deduct {
		next := acct.Balance.Sub(a.Amount)
		if next.IsNegative() && !a.AllowNegative {
			return TransactionRecord{}, ErrWouldUnderflow
		}
		acct.Balance = next
		txType = TxAdminDeduct
	} else {
		acct.Balance = acct.Balance.Add(a.Amount)
	}
	user.Assets[a.Asset] = acct

	rec := TransactionRecord{
		ID:            uuid.NewString(),
		Type:          txType,
		Asset:         a.Asset,
		Amount:        a.Amount,
		TargetAddress: SystemAdminAddress,
		Timestamp:     a.At.UTC(),
	}
	user.Transactions = append(user.Transactions, rec)
	return rec, nil
}

// sortedUnique returns ids sorted and without duplicates, the order in which
// backends take row locks.
func sortedUnique(ids []string) []string {
	out := slices.Clone(ids)
	slices.Sort(out)
	return slices.Compact(out)
}
