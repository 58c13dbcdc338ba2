package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/simonkvalheim/hm9-ledger/internal/model"
)

// Paging describes a zero-based page request over an account's entries.
type Paging struct {
	PageSize   int
	PageNumber int
}

func (p Paging) normalize() Paging {
	if p.PageSize <= 0 || p.PageSize > 500 {
		p.PageSize = 50
	}
	if p.PageNumber < 0 {
		p.PageNumber = 0
	}
	return p
}

// LedgerStore handles database operations for transactions and ledger
// entries: the append-only core of the ledger.
type LedgerStore struct {
	db *pgxpool.Pool
}

// NewLedgerStore creates a new LedgerStore.
func NewLedgerStore(db *pgxpool.Pool) *LedgerStore {
	return &LedgerStore{db: db}
}

// Begin starts a new database transaction for the caller (the Transfer
// Engine) to hold locks and writes in. The store never begins its own
// transaction internally for a transfer; correctness requires the lock
// acquisition, validation, and write to share one transaction.
func (s *LedgerStore) Begin(ctx context.Context) (pgx.Tx, error) {
	return s.db.Begin(ctx)
}

// InsertEntriesAtomic inserts the transaction header and all supplied
// entries within tx. It returns model.ErrDuplicateReference if another
// transaction with an equal (case-insensitive) reference already exists.
func (s *LedgerStore) InsertEntriesAtomic(ctx context.Context, tx pgx.Tx, header model.Transaction, entries []model.LedgerEntry) error {
	const insertTx = `
		INSERT INTO transactions (id, from_account_id, to_account_id, amount, transaction_type, currency, reference, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), $8)
	`
	_, err := tx.Exec(ctx, insertTx,
		header.ID,
		header.FromAccountID,
		header.ToAccountID,
		header.Amount.Decimal(),
		header.Kind,
		header.Currency,
		header.Reference,
		header.Timestamp,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return model.ErrDuplicateReference
		}
		return fmt.Errorf("failed to insert transaction: %w", err)
	}

	const insertEntry = `
		INSERT INTO ledger_entries (id, account_id, transaction_id, entry_type, amount, currency, timestamp, description)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	for _, e := range entries {
		_, err := tx.Exec(ctx, insertEntry,
			e.ID, e.AccountID, e.TransactionID, e.Kind, e.Amount.Decimal(), e.Currency, e.Timestamp, e.Description,
		)
		if err != nil {
			return fmt.Errorf("failed to insert ledger entry: %w", err)
		}
	}

	return nil
}

// FindTransactionByReferenceCI performs a case-insensitive exact match
// against transactions.reference, outside any transaction. Used by the
// engine's pre-transaction idempotency short-circuit and by its recheck
// after a unique-violation race.
func (s *LedgerStore) FindTransactionByReferenceCI(ctx context.Context, reference string) (model.Transaction, bool, error) {
	return findTransactionByReferenceCI(ctx, s.db, reference)
}

// FindTransactionByReferenceCITx is the same lookup, run inside tx. Used by
// the engine's in-transaction validation of the reference.
func (s *LedgerStore) FindTransactionByReferenceCITx(ctx context.Context, tx pgx.Tx, reference string) (model.Transaction, bool, error) {
	return findTransactionByReferenceCI(ctx, tx, reference)
}

func findTransactionByReferenceCI(ctx context.Context, q queryer, reference string) (model.Transaction, bool, error) {
	const query = `
		SELECT id, from_account_id, to_account_id, amount, transaction_type, currency, reference, timestamp
		FROM transactions
		WHERE LOWER(reference) = LOWER($1)
	`
	tx, err := scanTransaction(q.QueryRow(ctx, query, reference))
	if err != nil {
		if errors.Is(err, model.ErrTransactionNotFound) {
			return model.Transaction{}, false, nil
		}
		return model.Transaction{}, false, err
	}
	return tx, true, nil
}

// GetTransactionByID retrieves a transaction header by ID.
func (s *LedgerStore) GetTransactionByID(ctx context.Context, id uuid.UUID) (model.Transaction, error) {
	const query = `
		SELECT id, from_account_id, to_account_id, amount, transaction_type, currency, reference, timestamp
		FROM transactions
		WHERE id = $1
	`
	return scanTransaction(s.db.QueryRow(ctx, query, id))
}

func scanTransaction(row pgx.Row) (model.Transaction, error) {
	var t model.Transaction
	var amount decimal.Decimal
	var reference *string
	err := row.Scan(&t.ID, &t.FromAccountID, &t.ToAccountID, &amount, &t.Kind, &t.Currency, &reference, &t.Timestamp)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Transaction{}, model.ErrTransactionNotFound
		}
		return model.Transaction{}, fmt.Errorf("failed to scan transaction: %w", err)
	}
	t.Amount = model.NewAmount(amount)
	if reference != nil {
		t.Reference = *reference
	}
	return t, nil
}

// TransactionsForAccount lists every transaction an account participated in
// as either source or destination, newest first.
func (s *LedgerStore) TransactionsForAccount(ctx context.Context, accountID uuid.UUID) ([]model.Transaction, error) {
	const query = `
		SELECT id, from_account_id, to_account_id, amount, transaction_type, currency, reference, timestamp
		FROM transactions
		WHERE from_account_id = $1 OR to_account_id = $1
		ORDER BY timestamp DESC
	`
	rows, err := s.db.Query(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to query account transactions: %w", err)
	}
	defer rows.Close()

	var transactions []model.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate account transactions: %w", err)
	}
	return transactions, nil
}

// EntriesForTransaction retrieves the (expected two) ledger entries for a
// transaction, in no particular order.
func (s *LedgerStore) EntriesForTransaction(ctx context.Context, transactionID uuid.UUID) ([]model.LedgerEntry, error) {
	const query = `
		SELECT id, account_id, transaction_id, entry_type, amount, currency, timestamp, description
		FROM ledger_entries
		WHERE transaction_id = $1
	`
	rows, err := s.db.Query(ctx, query, transactionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query ledger entries: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

// EntriesForAccount returns a page of an account's entries ordered by
// timestamp descending, ties broken by entry id descending, optionally
// filtered by entry kind. It also returns the total entry count for
// pagination metadata.
func (s *LedgerStore) EntriesForAccount(ctx context.Context, accountID uuid.UUID, paging Paging, kindFilter *model.EntryKind) ([]model.LedgerEntry, int, error) {
	paging = paging.normalize()

	total, err := s.countForAccount(ctx, accountID, kindFilter)
	if err != nil {
		return nil, 0, err
	}

	query := `
		SELECT id, account_id, transaction_id, entry_type, amount, currency, timestamp, description
		FROM ledger_entries
		WHERE account_id = $1
	`
	args := []any{accountID}
	if kindFilter != nil {
		query += " AND entry_type = $2"
		args = append(args, *kindFilter)
	}
	query += fmt.Sprintf(" ORDER BY timestamp DESC, id DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, paging.PageSize, paging.PageNumber*paging.PageSize)

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query account entries: %w", err)
	}
	defer rows.Close()

	entries, err := scanEntries(rows)
	if err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

func (s *LedgerStore) countForAccount(ctx context.Context, accountID uuid.UUID, kindFilter *model.EntryKind) (int, error) {
	query := `SELECT COUNT(*) FROM ledger_entries WHERE account_id = $1`
	args := []any{accountID}
	if kindFilter != nil {
		query += " AND entry_type = $2"
		args = append(args, *kindFilter)
	}
	var count int
	if err := s.db.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count account entries: %w", err)
	}
	return count, nil
}

// EntriesForAccountBefore returns all of an account's entries strictly
// before t, ordered ascending by (timestamp, id). Used to compute an
// opening balance for statement reporting.
func (s *LedgerStore) EntriesForAccountBefore(ctx context.Context, accountID uuid.UUID, t time.Time) ([]model.LedgerEntry, error) {
	const query = `
		SELECT id, account_id, transaction_id, entry_type, amount, currency, timestamp, description
		FROM ledger_entries
		WHERE account_id = $1 AND timestamp < $2
		ORDER BY timestamp ASC, id ASC
	`
	rows, err := s.db.Query(ctx, query, accountID, t)
	if err != nil {
		return nil, fmt.Errorf("failed to query entries before %s: %w", t, err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

// EntriesForAccountBeforeEntry returns all of an account's entries ordering
// strictly before the (t, entryID) position in the (timestamp, id) sort,
// ascending. Any ledger page can open on an entry that shares its timestamp
// with entries on the following, older page; the id tie-break keeps those
// prior entries in the opening balance.
func (s *LedgerStore) EntriesForAccountBeforeEntry(ctx context.Context, accountID uuid.UUID, t time.Time, entryID uuid.UUID) ([]model.LedgerEntry, error) {
	const query = `
		SELECT id, account_id, transaction_id, entry_type, amount, currency, timestamp, description
		FROM ledger_entries
		WHERE account_id = $1 AND (timestamp, id) < ($2, $3)
		ORDER BY timestamp ASC, id ASC
	`
	rows, err := s.db.Query(ctx, query, accountID, t, entryID)
	if err != nil {
		return nil, fmt.Errorf("failed to query entries before entry %s: %w", entryID, err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

// EntriesForAccountBetween returns all of an account's entries with
// t0 <= timestamp <= t1, ordered ascending by (timestamp, id).
func (s *LedgerStore) EntriesForAccountBetween(ctx context.Context, accountID uuid.UUID, t0, t1 time.Time) ([]model.LedgerEntry, error) {
	const query = `
		SELECT id, account_id, transaction_id, entry_type, amount, currency, timestamp, description
		FROM ledger_entries
		WHERE account_id = $1 AND timestamp >= $2 AND timestamp <= $3
		ORDER BY timestamp ASC, id ASC
	`
	rows, err := s.db.Query(ctx, query, accountID, t0, t1)
	if err != nil {
		return nil, fmt.Errorf("failed to query entries between %s and %s: %w", t0, t1, err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

// SumByAccountAndKind sums the (positive) amount of every entry of the
// given kind for an account. Used by the Balance Deriver.
func (s *LedgerStore) SumByAccountAndKind(ctx context.Context, accountID uuid.UUID, kind model.EntryKind) (model.Amount, error) {
	const query = `
		SELECT COALESCE(SUM(amount), 0)
		FROM ledger_entries
		WHERE account_id = $1 AND entry_type = $2
	`
	var sum decimal.Decimal
	err := s.db.QueryRow(ctx, query, accountID, kind).Scan(&sum)
	if err != nil {
		return model.Amount{}, fmt.Errorf("failed to sum entries by kind: %w", err)
	}
	return model.NewAmount(sum), nil
}

// SumByAccountAndKindAsOf is SumByAccountAndKind restricted to entries with
// timestamp <= t, used by BalanceAsOf.
func (s *LedgerStore) SumByAccountAndKindAsOf(ctx context.Context, accountID uuid.UUID, kind model.EntryKind, t time.Time) (model.Amount, error) {
	const query = `
		SELECT COALESCE(SUM(amount), 0)
		FROM ledger_entries
		WHERE account_id = $1 AND entry_type = $2 AND timestamp <= $3
	`
	var sum decimal.Decimal
	err := s.db.QueryRow(ctx, query, accountID, kind, t).Scan(&sum)
	if err != nil {
		return model.Amount{}, fmt.Errorf("failed to sum entries by kind as of %s: %w", t, err)
	}
	return model.NewAmount(sum), nil
}

// VerifyTransactionBalance checks that a transaction's ledger entries sum
// to zero (debits equal credits), exposed by reporting as a self-check.
func (s *LedgerStore) VerifyTransactionBalance(ctx context.Context, transactionID uuid.UUID) (bool, error) {
	entries, err := s.EntriesForTransaction(ctx, transactionID)
	if err != nil {
		return false, err
	}
	sum := model.ZeroAmount
	for _, e := range entries {
		sum = sum.Add(e.Signed())
	}
	return sum.Equal(model.ZeroAmount), nil
}

func scanEntries(rows pgx.Rows) ([]model.LedgerEntry, error) {
	var entries []model.LedgerEntry
	for rows.Next() {
		var e model.LedgerEntry
		var amount decimal.Decimal
		var description *string
		err := rows.Scan(&e.ID, &e.AccountID, &e.TransactionID, &e.Kind, &amount, &e.Currency, &e.Timestamp, &description)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}
		e.Amount = model.NewAmount(amount)
		if description != nil {
			e.Description = *description
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate ledger entries: %w", err)
	}
	return entries, nil
}

// isUniqueViolation reports whether err is a Postgres unique-constraint
// violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
