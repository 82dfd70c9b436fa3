package ledger

import (
	"errors"
	"fmt"
)

// Kind classifies a failure for the HTTP boundary.
type Kind string

const (
	KindInvalidInput         Kind = "invalid_input"
	KindNotFound             Kind = "not_found"
	KindAccountFrozen        Kind = "account_frozen"
	KindWrongCredential      Kind = "wrong_credential"
	KindInvalidAmount        Kind = "invalid_amount"
	KindUnsupportedAsset     Kind = "unsupported_asset"
	KindInsufficientBalance  Kind = "insufficient_balance"
	KindInvalidAddress       Kind = "invalid_address"
	KindAddressAssetMismatch Kind = "address_asset_mismatch"
	KindSelfTransfer         Kind = "self_transfer"
	KindWouldUnderflow       Kind = "would_underflow"
	KindUnauthorized         Kind = "unauthorized"
	KindInternal             Kind = "internal_error"
)

// Error is a domain failure with a message safe to show to the client.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string { return e.Message }

// Is matches on kind so callers can compare against the sentinels below even
// when the message was customised.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

var (
	ErrUserNotFound         = &Error{Kind: KindNotFound, Message: "User not found."}
	ErrSenderNotFound       = &Error{Kind: KindNotFound, Message: "Sender not found."}
	ErrUserOrAssetNotFound  = &Error{Kind: KindNotFound, Message: "User or Asset not found."}
	ErrAccountFrozen        = &Error{Kind: KindAccountFrozen, Message: "Account Frozen by Admin. Contact Support."}
	ErrSenderFrozen         = &Error{Kind: KindAccountFrozen, Message: "Transaction Failed: Your wallet is frozen."}
	ErrWrongPIN             = &Error{Kind: KindWrongCredential, Message: "Incorrect PIN."}
	ErrInvalidAmount        = &Error{Kind: KindInvalidAmount, Message: "Invalid amount."}
	ErrUnsupportedAsset     = &Error{Kind: KindUnsupportedAsset, Message: "Asset not supported."}
	ErrInsufficientBalance  = &Error{Kind: KindInsufficientBalance, Message: "Insufficient balance."}
	ErrInvalidAddress       = &Error{Kind: KindInvalidAddress, Message: "Invalid Wallet Address. User does not exist in our database."}
	ErrAddressAssetMismatch = &Error{Kind: KindAddressAssetMismatch, Message: "Invalid Address: address belongs to another asset."}
	ErrSelfTransfer         = &Error{Kind: KindSelfTransfer, Message: "Cannot send to your own wallet."}
	ErrWouldUnderflow       = &Error{Kind: KindWouldUnderflow, Message: "Deduction exceeds available balance."}
	ErrUnauthorized         = &Error{Kind: KindUnauthorized, Message: "Unauthorized Admin Access"}
	ErrUserExists           = &Error{Kind: KindInvalidInput, Message: "User already exists."}
	ErrAddressTaken         = &Error{Kind: KindInvalidInput, Message: "Wallet address already registered."}
)

// InvalidInput builds a KindInvalidInput error with the given message.
func InvalidInput(format string, args ...any) error {
	return &Error{Kind: KindInvalidInput, Message: fmt.Sprintf(format, args...)}
}

func insufficient(symbol string) error {
	return &Error{Kind: KindInsufficientBalance, Message: fmt.Sprintf("Insufficient %s Balance.", symbol)}
}

func mismatch(owned, requested string) error {
	return &Error{
		Kind:    KindAddressAssetMismatch,
		Message: fmt.Sprintf("Invalid Address: This is a %s address, not %s.", owned, requested),
	}
}

// KindOf extracts the kind of err. Anything that is not a domain error is
// reported as KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}
