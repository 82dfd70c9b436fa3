package wallet

import (
	"regexp"
	"strings"
	"time"

	"github.com/coinvault/coinvault/internal/ledger"
)

var defaultSymbol = regexp.MustCompile(`^[A-Z0-9]{2,12}$`)

// Portfolio is the read model returned by GetPortfolio.
type Portfolio struct {
	UserID string        `json:"userId"`
	Assets ledger.Assets `json:"assets"`
}

// UserSummary is a user as shown to the admin. The PIN hash is never part of
// it.
type UserSummary struct {
	UserID       string                     `json:"userId"`
	IsFrozen     bool                       `json:"isFrozen"`
	Assets       ledger.Assets              `json:"assets"`
	Transactions []ledger.TransactionRecord `json:"transactions"`
	CreatedAt    time.Time                  `json:"createdAt"`
}

func summarize(u ledger.User) UserSummary {
	return UserSummary{
		UserID:       u.UserID,
		IsFrozen:     u.IsFrozen,
		Assets:       u.Assets,
		Transactions: u.Transactions,
		CreatedAt:    u.CreatedAt,
	}
}

// SymbolPolicy decides which asset symbols may be registered.
type SymbolPolicy struct {
	allowed map[string]struct{}
}

// NewSymbolPolicy restricts symbols to allowed. An empty list accepts any
// symbol of 2 to 12 upper-case letters or digits.
func NewSymbolPolicy(allowed []string) SymbolPolicy {
	if len(allowed) == 0 {
		return SymbolPolicy{}
	}
	set := make(map[string]struct{}, len(allowed))
	for _, s := range allowed {
		set[strings.ToUpper(s)] = struct{}{}
	}
	return SymbolPolicy{allowed: set}
}

// Allows reports whether symbol may be registered.
func (p SymbolPolicy) Allows(symbol string) bool {
	if p.allowed == nil {
		return defaultSymbol.MatchString(symbol)
	}
	_, ok := p.allowed[symbol]
	return ok
}
