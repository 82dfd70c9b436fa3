package ledger

import "github.com/shopspring/decimal"

// SeedBalance is a test helper that overwrites one asset balance when using
// the in-memory store. It records no transaction.
func SeedBalance(s Store, userID, symbol string, amount decimal.Decimal) {
	mem, ok := s.(*inMemoryStore)
	if !ok {
		return
	}
	mem.mu.Lock()
	defer mem.mu.Unlock()
	user, ok := mem.users[userID]
	if !ok {
		return
	}
	acct := user.Assets[symbol]
	acct.Balance = amount
	user.Assets[symbol] = acct
	mem.users[userID] = user
}

// Total sums one asset across every user of an in-memory store. Tests use it
// to check that transfers conserve value.
func Total(s Store, symbol string) decimal.Decimal {
	sum := decimal.Zero
	mem, ok := s.(*inMemoryStore)
	if !ok {
		return sum
	}
	mem.mu.RLock()
	defer mem.mu.RUnlock()
	for _, u := range mem.users {
		if acct, ok := u.Assets[symbol]; ok {
			sum = sum.Add(acct.Balance)
		}
	}
	return sum
}
