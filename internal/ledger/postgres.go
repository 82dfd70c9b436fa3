package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

const pgUniqueViolation = "23505"

// querier is satisfied by both the pool and a transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore persists users in PostgreSQL. Schema lives in
// internal/infra/migrations.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore constructs a Postgres-backed store.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// Create inserts the user row and its asset accounts in one transaction.
func (s *PostgresStore) Create(ctx context.Context, user User) error {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	tag, err := tx.Exec(ctx, `INSERT INTO users (user_id, pin_hash, is_frozen, created_at)
        VALUES ($1, $2, $3, $4) ON CONFLICT (user_id) DO NOTHING`,
		user.UserID, user.PINHash, user.IsFrozen, user.CreatedAt.UTC())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrUserExists
	}

	for symbol, acct := range user.Assets {
		_, err := tx.Exec(ctx, `INSERT INTO asset_accounts (user_id, symbol, address, balance)
            VALUES ($1, $2, $3, $4)`, user.UserID, symbol, acct.Address, acct.Balance)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
				return ErrAddressTaken
			}
			return err
		}
	}
	if err := insertTransactions(ctx, tx, user.UserID, user.Transactions); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// Get loads one user with its accounts and history.
func (s *PostgresStore) Get(ctx context.Context, userID string) (User, error) {
	return loadUser(ctx, s.db, userID, false)
}

// List loads every user in creation order.
func (s *PostgresStore) List(ctx context.Context) ([]User, error) {
	rows, err := s.db.Query(ctx, `SELECT user_id FROM users ORDER BY created_at, user_id`)
	if err != nil {
		return nil, err
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, err
	}

	out := make([]User, 0, len(ids))
	for _, id := range ids {
		user, err := loadUser(ctx, s.db, id, false)
		if err != nil {
			// Deleted between the two queries.
			if errors.Is(err, ErrUserNotFound) {
				continue
			}
			return nil, err
		}
		out = append(out, user)
	}
	return out, nil
}

// FindAddress lists every account registered under address.
func (s *PostgresStore) FindAddress(ctx context.Context, address string) ([]AddressMatch, error) {
	rows, err := s.db.Query(ctx, `SELECT user_id, symbol FROM asset_accounts WHERE address = $1 ORDER BY user_id, symbol`, address)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []AddressMatch
	for rows.Next() {
		var m AddressMatch
		if err := rows.Scan(&m.UserID, &m.Symbol); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// Update locks the user rows in id order, applies fn, and writes the result
// back inside the same transaction.
func (s *PostgresStore) Update(ctx context.Context, userIDs []string, fn func(users []*User) error) error {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	ordered := sortedUnique(userIDs)
	loaded := make(map[string]*User, len(ordered))
	before := make(map[string]int, len(ordered))
	for _, id := range ordered {
		user, err := loadUser(ctx, tx, id, true)
		if err != nil {
			return err
		}
		loaded[id] = &user
		before[id] = len(user.Transactions)
	}

	ptrs := make([]*User, len(userIDs))
	for i, id := range userIDs {
		ptrs[i] = loaded[id]
	}
	if err := fn(ptrs); err != nil {
		return err
	}

	for _, id := range ordered {
		user := loaded[id]
		if _, err := tx.Exec(ctx, `UPDATE users SET pin_hash = $1, is_frozen = $2 WHERE user_id = $3`,
			user.PINHash, user.IsFrozen, id); err != nil {
			return err
		}
		for symbol, acct := range user.Assets {
			tag, err := tx.Exec(ctx, `UPDATE asset_accounts SET balance = $1 WHERE user_id = $2 AND symbol = $3`,
				acct.Balance, id, symbol)
			if err != nil {
				return err
			}
			if tag.RowsAffected() == 0 {
				return fmt.Errorf("asset account %s/%s not found", id, symbol)
			}
		}
		if err := insertTransactions(ctx, tx, id, user.Transactions[before[id]:]); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func loadUser(ctx context.Context, q querier, userID string, forUpdate bool) (User, error) {
	query := `SELECT user_id, pin_hash, is_frozen, created_at FROM users WHERE user_id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	var (
		user      User
		createdAt time.Time
	)
	if err := q.QueryRow(ctx, query, userID).Scan(&user.UserID, &user.PINHash, &user.IsFrozen, &createdAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrUserNotFound
		}
		return User{}, err
	}
	user.CreatedAt = createdAt.UTC()

	assets, err := loadAssets(ctx, q, userID)
	if err != nil {
		return User{}, err
	}
	user.Assets = assets

	history, err := loadTransactions(ctx, q, userID)
	if err != nil {
		return User{}, err
	}
	user.Transactions = history
	return user, nil
}

func loadAssets(ctx context.Context, q querier, userID string) (Assets, error) {
	rows, err := q.Query(ctx, `SELECT symbol, address, balance::text FROM asset_accounts WHERE user_id = $1`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	assets := Assets{}
	for rows.Next() {
		var symbol, address, balance string
		if err := rows.Scan(&symbol, &address, &balance); err != nil {
			return nil, err
		}
		amount, err := decimal.NewFromString(balance)
		if err != nil {
			return nil, fmt.Errorf("balance %s/%s: %w", userID, symbol, err)
		}
		assets[symbol] = AssetAccount{Address: address, Balance: amount}
	}
	return assets, rows.Err()
}

func loadTransactions(ctx context.Context, q querier, userID string) ([]TransactionRecord, error) {
	rows, err := q.Query(ctx, `SELECT id, correlation_id, type, asset, amount::text, target_address, created_at
        FROM transactions WHERE user_id = $1 ORDER BY seq`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	history := []TransactionRecord{}
	for rows.Next() {
		var (
			rec    TransactionRecord
			txType string
			amount string
			at     time.Time
		)
		if err := rows.Scan(&rec.ID, &rec.CorrelationID, &txType, &rec.Asset, &amount, &rec.TargetAddress, &at); err != nil {
			return nil, err
		}
		value, err := decimal.NewFromString(amount)
		if err != nil {
			return nil, fmt.Errorf("transaction %s amount: %w", rec.ID, err)
		}
		rec.Type = TxType(txType)
		rec.Amount = value
		rec.Timestamp = at.UTC()
		history = append(history, rec)
	}
	return history, rows.Err()
}

func insertTransactions(ctx context.Context, q querier, userID string, records []TransactionRecord) error {
	for _, rec := range records {
		if _, err := q.Exec(ctx, `INSERT INTO transactions (id, correlation_id, user_id, type, asset, amount, target_address, created_at)
            VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			rec.ID, rec.CorrelationID, userID, string(rec.Type), rec.Asset, rec.Amount, rec.TargetAddress, rec.Timestamp.UTC()); err != nil {
			return err
		}
	}
	return nil
}
