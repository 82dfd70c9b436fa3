package ledger

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestFileStore_CreatesMissingDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")

	if _, err := NewFileStore(path); err != nil {
		t.Fatalf("open: %v", err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(raw) == 0 {
		t.Fatalf("expected an initial document to be written")
	}
}

func TestFileStore_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")
	ctx := context.Background()

	s, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	seedStore(t, s)

	err = s.Update(ctx, []string{"bob"}, func(users []*User) error {
		_, err := ApplyAdjustment(users[0], Adjustment{Asset: "BTC", Amount: decimal.RequireFromString("1.25"), At: time.Now()})
		return err
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}

	reopened, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	users, err := reopened.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(users) != 2 || users[0].UserID != "alice" || users[1].UserID != "bob" {
		t.Fatalf("unexpected users after reopen: %+v", users)
	}
	bob := users[1]
	if !bob.Assets["BTC"].Balance.Equal(decimal.RequireFromString("1.25")) {
		t.Fatalf("expected balance 1.25, got %s", bob.Assets["BTC"].Balance)
	}
	if len(bob.Transactions) != 1 || bob.Transactions[0].Type != TxAdminCredit {
		t.Fatalf("expected one admin credit, got %+v", bob.Transactions)
	}
	if matches, _ := reopened.FindAddress(ctx, "addrA"); len(matches) != 1 {
		t.Fatalf("expected address index rebuilt, got %+v", matches)
	}
}

func TestFileStore_WriteFailureLeavesStateUntouched(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "store")
	if err := os.Mkdir(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	path := filepath.Join(dir, "data.json")
	ctx := context.Background()

	s, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	seedStore(t, s)

	if err := os.RemoveAll(dir); err != nil {
		t.Fatalf("remove dir: %v", err)
	}

	err = s.Update(ctx, []string{"alice"}, func(users []*User) error {
		users[0].IsFrozen = true
		return nil
	})
	if err == nil {
		t.Fatalf("expected persistence error")
	}
	if KindOf(err) != KindInternal {
		t.Fatalf("expected internal error kind, got %s", KindOf(err))
	}
	alice, _ := s.Get(ctx, "alice")
	if alice.IsFrozen {
		t.Fatalf("in-memory state committed despite failed write")
	}

	if err := s.Create(ctx, NewUser("carol", "h", map[string]string{"BTC": "addrC"}, nil, time.Now())); err == nil {
		t.Fatalf("expected create to fail when the file cannot be written")
	}
	if _, err := s.Get(ctx, "carol"); err == nil {
		t.Fatalf("carol must not exist after failed create")
	}
}

func TestFileStore_RejectsCorruptDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := NewFileStore(path); err == nil {
		t.Fatalf("expected decode error")
	}
}
