package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// TxType labels a history entry. The values are the strings clients render.
type TxType string

const (
	TxSend        TxType = "Send"
	TxReceive     TxType = "Receive"
	TxAdminCredit TxType = "Admin Credit"
	TxAdminDeduct TxType = "Admin Deduct"
)

// SystemAdminAddress is the counterparty recorded on admin adjustments.
const SystemAdminAddress = "System Admin"

// AssetAccount is a user's holding of one asset.
type AssetAccount struct {
	Address string          `json:"address"`
	Balance decimal.Decimal `json:"balance"`
}

// Assets maps an asset symbol (BTC, ETH, ...) to the account holding it.
type Assets map[string]AssetAccount

// TransactionRecord is one entry of a user's history.
type TransactionRecord struct {
	ID            string          `json:"id"`
	CorrelationID string          `json:"correlationId,omitempty"`
	Type          TxType          `json:"type"`
	Asset         string          `json:"asset"`
	Amount        decimal.Decimal `json:"amount"`
	TargetAddress string          `json:"targetAddress"`
	Timestamp     time.Time       `json:"timestamp"`
}

// User is the single persisted record per wallet owner.
type User struct {
	UserID       string              `json:"userId"`
	PINHash      string              `json:"pinHash"`
	IsFrozen     bool                `json:"isFrozen"`
	Assets       Assets              `json:"assets"`
	Transactions []TransactionRecord `json:"transactions"`
	CreatedAt    time.Time           `json:"createdAt"`
}

// AddressMatch reports which user owns an address and under which symbol.
type AddressMatch struct {
	UserID string
	Symbol string
}

// Clone returns a deep copy so callers can mutate without touching shared state.
func (u User) Clone() User {
	out := u
	out.Assets = make(Assets, len(u.Assets))
	for symbol, acct := range u.Assets {
		out.Assets[symbol] = acct
	}
	out.Transactions = make([]TransactionRecord, len(u.Transactions))
	copy(out.Transactions, u.Transactions)
	return out
}

// HistoryNewestFirst returns the history in reverse insertion order. The
// stored slice is left untouched.
func (u User) HistoryNewestFirst() []TransactionRecord {
	out := make([]TransactionRecord, len(u.Transactions))
	for i, rec := range u.Transactions {
		out[len(u.Transactions)-1-i] = rec
	}
	return out
}

// addressMatches lists every (user, symbol) pair that registered the given address.
func (u User) addressMatches(address string) []AddressMatch {
	var out []AddressMatch
	for symbol, acct := range u.Assets {
		if acct.Address == address {
			out = append(out, AddressMatch{UserID: u.UserID, Symbol: symbol})
		}
	}
	return out
}
