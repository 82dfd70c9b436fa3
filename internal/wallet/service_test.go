package wallet

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"github.com/coinvault/coinvault/internal/auth"
	"github.com/coinvault/coinvault/internal/ledger"
)

func newTestService(opts Options) (*Service, ledger.Store) {
	store := ledger.NewInMemory()
	guard := ledger.NewGuard(store, nil, time.Second)
	return NewService(guard, auth.NewPINHasher(bcrypt.MinCost), opts), store
}

func TestInitializeAccountCreatesUser(t *testing.T) {
	svc, store := newTestService(Options{})
	ctx := context.Background()

	created, err := svc.InitializeAccount(ctx, InitInput{
		UserID:  "alice",
		PIN:     "1234",
		Wallets: map[string]string{"BTC": "addrA", "ETH": "ethA"},
	})
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	if !created {
		t.Fatalf("expected a new account")
	}

	user, err := store.Get(ctx, "alice")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if user.PINHash == "1234" || user.PINHash == "" {
		t.Fatalf("expected pin to be stored hashed")
	}
	if len(user.Assets) != 2 || !user.Assets["BTC"].Balance.IsZero() || user.Assets["ETH"].Address != "ethA" {
		t.Fatalf("unexpected assets: %+v", user.Assets)
	}
	if len(user.Transactions) != 0 || user.IsFrozen {
		t.Fatalf("unexpected initial state: %+v", user)
	}
}

func TestInitializeAccountIsIdempotent(t *testing.T) {
	svc, store := newTestService(Options{})
	ctx := context.Background()
	input := InitInput{UserID: "alice", PIN: "1234", Wallets: map[string]string{"BTC": "addrA"}}

	if _, err := svc.InitializeAccount(ctx, input); err != nil {
		t.Fatalf("init: %v", err)
	}
	ledger.SeedBalance(store, "alice", "BTC", decimal.NewFromInt(3))
	before, _ := store.Get(ctx, "alice")

	input.PIN = "9999"
	input.Wallets = map[string]string{"ETH": "other"}
	created, err := svc.InitializeAccount(ctx, input)
	if err != nil {
		t.Fatalf("repeat init: %v", err)
	}
	if created {
		t.Fatalf("expected existing account to be reported")
	}

	after, _ := store.Get(ctx, "alice")
	if after.PINHash != before.PINHash || len(after.Assets) != 1 || !after.Assets["BTC"].Balance.Equal(decimal.NewFromInt(3)) {
		t.Fatalf("repeat init mutated the user: %+v", after)
	}
	users, _ := store.List(ctx)
	if len(users) != 1 {
		t.Fatalf("expected one user, got %d", len(users))
	}

	// Wallets that would be rejected on creation do not matter for an existing user.
	input.Wallets = map[string]string{"usdt-trc20": "x", "BTC": " "}
	input.PIN = strings.Repeat("9", 80)
	created, err = svc.InitializeAccount(ctx, input)
	if err != nil || created {
		t.Fatalf("repeat init with invalid wallets: created=%v err=%v", created, err)
	}
	after, _ = store.Get(ctx, "alice")
	if after.PINHash != before.PINHash || len(after.Assets) != 1 {
		t.Fatalf("repeat init mutated the user: %+v", after)
	}
}

func TestInitializeAccountRejectsLongPIN(t *testing.T) {
	svc, store := newTestService(Options{})
	ctx := context.Background()

	_, err := svc.InitializeAccount(ctx, InitInput{
		UserID:  "alice",
		PIN:     strings.Repeat("9", auth.MaxPINBytes+1),
		Wallets: map[string]string{"BTC": "addrA"},
	})
	if ledger.KindOf(err) != ledger.KindInvalidInput {
		t.Fatalf("expected invalid input, got %v", err)
	}
	if _, err := store.Get(ctx, "alice"); !errors.Is(err, ledger.ErrUserNotFound) {
		t.Fatalf("rejected init must not create the user, got %v", err)
	}

	created, err := svc.InitializeAccount(ctx, InitInput{
		UserID:  "alice",
		PIN:     strings.Repeat("9", auth.MaxPINBytes),
		Wallets: map[string]string{"BTC": "addrA"},
	})
	if err != nil || !created {
		t.Fatalf("expected a %d byte pin to be accepted: created=%v err=%v", auth.MaxPINBytes, created, err)
	}
}

func TestInitializeAccountKeepsUserIDVerbatim(t *testing.T) {
	svc, _ := newTestService(Options{})
	ctx := context.Background()

	if _, err := svc.InitializeAccount(ctx, InitInput{UserID: "alice ", PIN: "1", Wallets: map[string]string{"BTC": "a"}}); err != nil {
		t.Fatalf("init: %v", err)
	}
	p, err := svc.Portfolio(ctx, "alice ")
	if err != nil || p.UserID != "alice " {
		t.Fatalf("expected the id the client sent to resolve, got %+v, %v", p, err)
	}
	if _, err := svc.Portfolio(ctx, "alice"); !errors.Is(err, ledger.ErrUserNotFound) {
		t.Fatalf("expected a distinct id, got %v", err)
	}
	if _, err := svc.InitializeAccount(ctx, InitInput{UserID: "   ", PIN: "1", Wallets: map[string]string{"BTC": "b"}}); ledger.KindOf(err) != ledger.KindInvalidInput {
		t.Fatalf("expected blank id to be rejected, got %v", err)
	}
}

func TestInitializeAccountValidation(t *testing.T) {
	svc, _ := newTestService(Options{Symbols: NewSymbolPolicy([]string{"BTC", "ETH"})})
	ctx := context.Background()

	cases := map[string]InitInput{
		"missing user":    {PIN: "1", Wallets: map[string]string{"BTC": "a"}},
		"missing pin":     {UserID: "u", Wallets: map[string]string{"BTC": "a"}},
		"missing wallets": {UserID: "u", PIN: "1"},
		"unsupported":     {UserID: "u", PIN: "1", Wallets: map[string]string{"DOGE": "a"}},
		"empty address":   {UserID: "u", PIN: "1", Wallets: map[string]string{"BTC": " "}},
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.InitializeAccount(ctx, input)
			if ledger.KindOf(err) != ledger.KindInvalidInput {
				t.Fatalf("expected invalid input, got %v", err)
			}
		})
	}
}

func TestInitializeAccountRejectsTakenAddress(t *testing.T) {
	svc, _ := newTestService(Options{})
	ctx := context.Background()

	if _, err := svc.InitializeAccount(ctx, InitInput{UserID: "alice", PIN: "1", Wallets: map[string]string{"BTC": "shared"}}); err != nil {
		t.Fatalf("init alice: %v", err)
	}
	_, err := svc.InitializeAccount(ctx, InitInput{UserID: "bob", PIN: "1", Wallets: map[string]string{"BTC": "shared"}})
	if !errors.Is(err, ledger.ErrAddressTaken) {
		t.Fatalf("expected address taken, got %v", err)
	}
}

func TestInitializeAccountStartingBalances(t *testing.T) {
	svc, _ := newTestService(Options{StartingBalances: map[string]decimal.Decimal{
		"BTC": decimal.RequireFromString("0.005"),
		"TRX": decimal.NewFromInt(50),
	}})
	ctx := context.Background()

	if _, err := svc.InitializeAccount(ctx, InitInput{UserID: "alice", PIN: "1", Wallets: map[string]string{"BTC": "a", "ETH": "e"}}); err != nil {
		t.Fatalf("init: %v", err)
	}
	p, err := svc.Portfolio(ctx, "alice")
	if err != nil {
		t.Fatalf("portfolio: %v", err)
	}
	if !p.Assets["BTC"].Balance.Equal(decimal.RequireFromString("0.005")) || !p.Assets["ETH"].Balance.IsZero() {
		t.Fatalf("unexpected balances: %+v", p.Assets)
	}
	if _, ok := p.Assets["TRX"]; ok {
		t.Fatalf("starting balance must not add unregistered assets")
	}
	history, _ := svc.History(ctx, "alice")
	if len(history) != 0 {
		t.Fatalf("starting balances must not create records")
	}
}

func TestInitializeAccountConcurrentSameUser(t *testing.T) {
	svc, store := newTestService(Options{})
	ctx := context.Background()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := svc.InitializeAccount(ctx, InitInput{UserID: "alice", PIN: "1", Wallets: map[string]string{"BTC": "a"}})
			if err != nil {
				t.Errorf("init: %v", err)
				return
			}
			if ok {
				mu.Lock()
				created++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if created != 1 {
		t.Fatalf("expected exactly one creation, got %d", created)
	}
	users, _ := store.List(ctx)
	if len(users) != 1 {
		t.Fatalf("expected one user, got %d", len(users))
	}
}

func TestReadModelsAndFreeze(t *testing.T) {
	svc, store := newTestService(Options{})
	ctx := context.Background()

	if _, err := svc.Portfolio(ctx, "ghost"); !errors.Is(err, ledger.ErrUserNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := svc.History(ctx, "ghost"); !errors.Is(err, ledger.ErrUserNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := svc.SetFrozen(ctx, "ghost", true); !errors.Is(err, ledger.ErrUserNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	for _, id := range []string{"alice", "bob"} {
		if _, err := svc.InitializeAccount(ctx, InitInput{UserID: id, PIN: "1", Wallets: map[string]string{"BTC": "addr-" + id}}); err != nil {
			t.Fatalf("init %s: %v", id, err)
		}
	}
	if err := svc.SetFrozen(ctx, "bob", true); err != nil {
		t.Fatalf("freeze: %v", err)
	}

	users, err := svc.ListUsers(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(users) != 2 || users[0].UserID != "alice" || users[1].UserID != "bob" || !users[1].IsFrozen {
		t.Fatalf("unexpected users: %+v", users)
	}

	bob, _ := store.Get(ctx, "bob")
	if len(bob.Transactions) != 0 {
		t.Fatalf("freeze must not record a transaction")
	}
}

func TestSymbolPolicy(t *testing.T) {
	open := NewSymbolPolicy(nil)
	if !open.Allows("BTC") || !open.Allows("USDT20") || open.Allows("btc") || open.Allows("B") {
		t.Fatalf("unexpected default policy decisions")
	}
	closed := NewSymbolPolicy([]string{"btc"})
	if !closed.Allows("BTC") || closed.Allows("ETH") {
		t.Fatalf("unexpected configured policy decisions")
	}
}
