package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/simonkvalheim/hm9-ledger/internal/model"
)

// AccountStore handles database operations for accounts.
type AccountStore struct {
	db *pgxpool.Pool
}

// NewAccountStore creates a new AccountStore.
func NewAccountStore(db *pgxpool.Pool) *AccountStore {
	return &AccountStore{db: db}
}

// Insert creates a new account. Called both by the façade (for Main/Bonus/
// Pending/Jackpot accounts) and by bootstrap (for System accounts).
func (s *AccountStore) Insert(ctx context.Context, account model.Account) error {
	const query = `
		INSERT INTO accounts (id, currency, account_type, created_at)
		VALUES ($1, $2, $3, $4)
	`
	_, err := s.db.Exec(ctx, query, account.ID, account.Currency, account.Kind, account.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert account: %w", err)
	}
	return nil
}

// GetByID retrieves an account by its ID, without locking.
func (s *AccountStore) GetByID(ctx context.Context, id uuid.UUID) (model.Account, error) {
	return s.getByID(ctx, s.db, id)
}

// ExistsByID reports whether an account with the given ID exists.
func (s *AccountStore) ExistsByID(ctx context.Context, id uuid.UUID) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM accounts WHERE id = $1)`
	var exists bool
	if err := s.db.QueryRow(ctx, query, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check account existence: %w", err)
	}
	return exists, nil
}

// GetByIDWithLock retrieves a single account row with a row-level exclusive
// lock, within the caller's transaction. LockAccounts calls it once per id.
func (s *AccountStore) GetByIDWithLock(ctx context.Context, tx pgx.Tx, id uuid.UUID) (model.Account, error) {
	const query = `
		SELECT id, currency, account_type, created_at
		FROM accounts
		WHERE id = $1
		FOR UPDATE
	`
	return scanAccount(tx.QueryRow(ctx, query, id))
}

// LockAccounts acquires row-level exclusive locks on the given accounts, in
// exactly the order supplied by the caller, and returns their current rows
// in that same order. The caller is solely responsible for supplying ids in
// the canonical (ascending byte-wise UUID) order; this method issues one
// SELECT ... FOR UPDATE per id, sequentially, so the acquisition order on
// the wire matches the slice order exactly; it never issues a single
// multi-row statement whose internal lock order is unspecified.
func (s *AccountStore) LockAccounts(ctx context.Context, tx pgx.Tx, ids []uuid.UUID) ([]model.Account, error) {
	accounts := make([]model.Account, 0, len(ids))
	for _, id := range ids {
		account, err := s.GetByIDWithLock(ctx, tx, id)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}
	return accounts, nil
}

func (s *AccountStore) getByID(ctx context.Context, q queryer, id uuid.UUID) (model.Account, error) {
	const query = `
		SELECT id, currency, account_type, created_at
		FROM accounts
		WHERE id = $1
	`
	return scanAccount(q.QueryRow(ctx, query, id))
}

func scanAccount(row pgx.Row) (model.Account, error) {
	var a model.Account
	var createdAt time.Time
	err := row.Scan(&a.ID, &a.Currency, &a.Kind, &createdAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Account{}, model.ErrAccountNotFound
		}
		return model.Account{}, fmt.Errorf("failed to scan account: %w", err)
	}
	a.CreatedAt = createdAt
	return a, nil
}

// queryer is satisfied by both *pgxpool.Pool and pgx.Tx, letting GetByID
// share its scan logic regardless of whether it runs inside a transaction.
type queryer interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}
