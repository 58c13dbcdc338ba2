// Package engine is the Transfer Engine: the single entry point that turns
// a transfer request into a committed, balanced pair of ledger entries.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/sync/singleflight"
	"golang.org/x/text/cases"

	"github.com/simonkvalheim/hm9-ledger/internal/balance"
	"github.com/simonkvalheim/hm9-ledger/internal/model"
	"github.com/simonkvalheim/hm9-ledger/internal/notify"
	"github.com/simonkvalheim/hm9-ledger/internal/store"
	"github.com/simonkvalheim/hm9-ledger/internal/validation"
)

// DefaultMaxRetries is the bounded retry count for lock-wait timeouts,
// overridable via TRANSFER_MAX_RETRIES.
const DefaultMaxRetries = 2

var caseFold = cases.Fold()

// AccountLocker is the read surface the engine needs from the account
// store: acquiring canonically-ordered row locks within the caller's
// transaction. Satisfied by *store.AccountStore.
type AccountLocker interface {
	LockAccounts(ctx context.Context, tx pgx.Tx, ids []uuid.UUID) ([]model.Account, error)
}

// LedgerWriter is the write surface the engine needs from the ledger
// store: beginning a transaction, the balanced insert, and the
// idempotency lookups used before and during an attempt. Satisfied by
// *store.LedgerStore.
type LedgerWriter interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	InsertEntriesAtomic(ctx context.Context, tx pgx.Tx, header model.Transaction, entries []model.LedgerEntry) error
	FindTransactionByReferenceCI(ctx context.Context, reference string) (model.Transaction, bool, error)
	FindTransactionByReferenceCITx(ctx context.Context, tx pgx.Tx, reference string) (model.Transaction, bool, error)
}

// Engine processes transfers under a single database transaction per
// attempt, using the canonical ascending-UUID lock order as the sole
// deadlock-avoidance mechanism.
type Engine struct {
	accounts   AccountLocker
	ledger     LedgerWriter
	deriver    *balance.Deriver
	publisher  notify.Publisher
	maxRetries int
	inflight   singleflight.Group
}

// Option configures an Engine at construction time.
type Option func(*Engine)

// WithMaxRetries overrides DefaultMaxRetries.
func WithMaxRetries(n int) Option {
	return func(e *Engine) { e.maxRetries = n }
}

// WithPublisher wires an optional post-commit notification publisher.
// Passing nil disables notifications entirely.
func WithPublisher(p notify.Publisher) Option {
	return func(e *Engine) { e.publisher = p }
}

// New builds an Engine over the given stores.
func New(accounts *store.AccountStore, ledger *store.LedgerStore, opts ...Option) *Engine {
	e := &Engine{
		accounts:   accounts,
		ledger:     ledger,
		deriver:    balance.NewDeriver(ledger),
		maxRetries: DefaultMaxRetries,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Transfer runs the full transfer protocol: a pre-validate, an idempotency
// short-circuit, then one database transaction holding canonically-ordered
// row locks, validation, and the balanced write.
func (e *Engine) Transfer(ctx context.Context, fromID, toID uuid.UUID, amount model.Amount, reference string, kind model.TransactionKind) (model.Transaction, error) {
	if !amount.IsPositive() {
		return model.Transaction{}, model.ErrInvalidAmount
	}
	if fromID == toID {
		return model.Transaction{}, model.ErrSameAccount
	}
	if kind == "" {
		kind = model.TransactionKindTransfer
	}
	if !kind.IsValid() {
		return model.Transaction{}, model.ErrInvalidTransaction
	}

	normalizedRef := normalizeReference(reference)

	// Step 1/2: pre-transaction idempotency short-circuit, outside any write
	// transaction.
	if normalizedRef != "" {
		existing, found, err := e.ledger.FindTransactionByReferenceCI(ctx, normalizedRef)
		if err != nil {
			return model.Transaction{}, fmt.Errorf("%w: %v", model.ErrStoreIO, err)
		}
		if found {
			if sameParams(existing, fromID, toID, amount) {
				return existing, nil
			}
			return model.Transaction{}, model.ErrDuplicateReferenceConflict
		}
	}

	result, err := e.runWithRetry(ctx, fromID, toID, amount, normalizedRef, kind)
	if err != nil {
		return model.Transaction{}, err
	}

	e.notifyCommitted(ctx, result.ID)
	return result, nil
}

// runWithRetry runs the bounded-retry attempt loop. When a reference is
// present, concurrent callers racing the same reference with the same
// from, to and amount collapse onto a single in-flight attempt via
// singleflight instead of each independently contending for the account
// locks; such calls are replays of one another, so sharing the attempt
// changes nothing about the result, only how many times the store is hit
// to produce it. A call reusing the reference with different parameters
// runs its own attempt and is rejected by the reference check.
func (e *Engine) runWithRetry(ctx context.Context, fromID, toID uuid.UUID, amount model.Amount, reference string, kind model.TransactionKind) (model.Transaction, error) {
	attempt := func() (model.Transaction, error) {
		var result model.Transaction
		var err error
		for i := 0; i <= e.maxRetries; i++ {
			result, err = e.attemptTransfer(ctx, fromID, toID, amount, reference, kind)
			if err == nil {
				return result, nil
			}
			if !errors.Is(err, model.ErrTransient) {
				return model.Transaction{}, err
			}
			if i == e.maxRetries {
				return model.Transaction{}, err
			}
			if waitErr := sleepWithJitter(ctx, i); waitErr != nil {
				return model.Transaction{}, waitErr
			}
		}
		return model.Transaction{}, err
	}

	if reference == "" {
		return attempt()
	}

	key := reference + "|" + fromID.String() + "|" + toID.String() + "|" + amount.String()
	v, err, _ := e.inflight.Do(key, func() (any, error) {
		return attempt()
	})
	if err != nil {
		return model.Transaction{}, err
	}
	return v.(model.Transaction), nil
}

func (e *Engine) attemptTransfer(ctx context.Context, fromID, toID uuid.UUID, amount model.Amount, reference string, kind model.TransactionKind) (model.Transaction, error) {
	tx, err := e.ledger.Begin(ctx)
	if err != nil {
		return model.Transaction{}, fmt.Errorf("%w: %v", model.ErrStoreIO, err)
	}
	defer tx.Rollback(ctx)

	lockOrder := canonicalLockOrder(fromID, toID)
	locked, err := e.accounts.LockAccounts(ctx, tx, lockOrder)
	if err != nil {
		if isLockTimeout(err) {
			return model.Transaction{}, model.ErrTransient
		}
		if errors.Is(err, model.ErrAccountNotFound) {
			return model.Transaction{}, err
		}
		return model.Transaction{}, fmt.Errorf("%w: %v", model.ErrStoreIO, err)
	}
	fromAccount, toAccount := resolveLocked(locked, lockOrder, fromID, toID)

	result, err := validation.ValidateTransfer(ctx, referenceFinderTx{ledger: e.ledger, tx: tx}, balanceReaderTx{deriver: e.deriver}, fromAccount, toAccount, amount, reference)
	if err != nil {
		return model.Transaction{}, err
	}
	if result.Existing != nil {
		return *result.Existing, nil
	}

	transactionID := uuid.New()
	now := time.Now().UTC()

	header := model.Transaction{
		ID:            transactionID,
		FromAccountID: fromID,
		ToAccountID:   toID,
		Amount:        amount,
		Kind:          kind,
		Currency:      fromAccount.Currency,
		Reference:     reference,
		Timestamp:     now,
	}

	debit, err := model.NewLedgerEntry(uuid.New(), transactionID, fromID, model.EntryKindDebit, amount, fromAccount.Currency, "")
	if err != nil {
		return model.Transaction{}, err
	}
	debit.Timestamp = now
	credit, err := model.NewLedgerEntry(uuid.New(), transactionID, toID, model.EntryKindCredit, amount, toAccount.Currency, "")
	if err != nil {
		return model.Transaction{}, err
	}
	credit.Timestamp = now

	if err := e.ledger.InsertEntriesAtomic(ctx, tx, header, []model.LedgerEntry{debit, credit}); err != nil {
		if errors.Is(err, model.ErrDuplicateReference) {
			// The failed INSERT has aborted tx, so the recheck reads outside
			// it; the conflicting transaction has committed by the time the
			// unique violation is reported.
			existing, found, findErr := e.ledger.FindTransactionByReferenceCI(ctx, reference)
			if findErr != nil {
				return model.Transaction{}, fmt.Errorf("%w: %v", model.ErrStoreIO, findErr)
			}
			if found && sameParams(existing, fromID, toID, amount) {
				return existing, nil
			}
			return model.Transaction{}, model.ErrDuplicateReferenceConflict
		}
		return model.Transaction{}, fmt.Errorf("%w: %v", model.ErrStoreIO, err)
	}

	if err := tx.Commit(ctx); err != nil {
		if isLockTimeout(err) {
			return model.Transaction{}, model.ErrTransient
		}
		return model.Transaction{}, fmt.Errorf("%w: %v", model.ErrStoreIO, err)
	}

	return header, nil
}

func (e *Engine) notifyCommitted(ctx context.Context, transactionID uuid.UUID) {
	if e.publisher == nil {
		return
	}
	// A publish failure never reverses the commit; it is logged and the
	// notification for this transaction is not retried.
	if err := e.publisher.PublishCommitted(ctx, transactionID); err != nil {
		log.Printf("failed to publish committed transfer %s: %v", transactionID, err)
	}
}

// canonicalLockOrder sorts the two account ids by byte-wise UUID comparison
// ascending, collapsing to a single id for a self-transfer. This is the
// sole deadlock-avoidance mechanism: every concurrent transfer touching the
// same pair of accounts acquires their locks in this same order.
func canonicalLockOrder(fromID, toID uuid.UUID) []uuid.UUID {
	if fromID == toID {
		return []uuid.UUID{fromID}
	}
	ids := []uuid.UUID{fromID, toID}
	sort.Slice(ids, func(i, j int) bool {
		return compareUUID(ids[i], ids[j]) < 0
	})
	return ids
}

func compareUUID(a, b uuid.UUID) int {
	for i := range a {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	return 0
}

func resolveLocked(locked []model.Account, lockOrder []uuid.UUID, fromID, toID uuid.UUID) (from, to model.Account) {
	byID := make(map[uuid.UUID]model.Account, len(locked))
	for _, a := range locked {
		byID[a.ID] = a
	}
	return byID[fromID], byID[toID]
}

func sameParams(existing model.Transaction, fromID, toID uuid.UUID, amount model.Amount) bool {
	return existing.FromAccountID == fromID && existing.ToAccountID == toID && existing.Amount.Equal(amount)
}

// normalizeReference case-folds a client-supplied reference using Unicode
// case folding rather than plain ASCII lowercasing, so idempotency holds
// for references containing non-ASCII letters too.
func normalizeReference(reference string) string {
	if reference == "" {
		return ""
	}
	return caseFold.String(reference)
}

// isLockTimeout reports whether err is a retryable contention failure: a
// Postgres lock-not-available, serialization-failure, or deadlock-detected
// error, or a context deadline. Any other store error is surfaced as
// StoreIO and not retried.
func isLockTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "55P03", "40001", "40P01":
			return true
		}
	}
	return false
}

// sleepWithJitter waits a small randomized backoff before a retry,
// respecting ctx cancellation.
func sleepWithJitter(ctx context.Context, attempt int) error {
	base := time.Duration(attempt+1) * 25 * time.Millisecond
	jitter := time.Duration(rand.Int63n(int64(25 * time.Millisecond)))
	select {
	case <-time.After(base + jitter):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// referenceFinderTx adapts the ledger store's in-transaction reference
// lookup to validation.ReferenceFinder.
type referenceFinderTx struct {
	ledger LedgerWriter
	tx     pgx.Tx
}

func (r referenceFinderTx) FindTransactionByReferenceCI(ctx context.Context, reference string) (model.Transaction, bool, error) {
	existing, found, err := r.ledger.FindTransactionByReferenceCITx(ctx, r.tx, reference)
	if err != nil {
		return model.Transaction{}, false, fmt.Errorf("%w: %v", model.ErrStoreIO, err)
	}
	return existing, found, nil
}

// balanceReaderTx adapts the Balance Deriver to validation.BalanceReader.
// It always reads through the same pool-level sum queries; within the
// engine's transaction the locked row means no concurrent writer can
// change the sum the validator observes.
type balanceReaderTx struct {
	deriver *balance.Deriver
}

func (b balanceReaderTx) Balance(ctx context.Context, accountID uuid.UUID) (model.Amount, error) {
	bal, err := b.deriver.Balance(ctx, accountID)
	if err != nil {
		return model.Amount{}, fmt.Errorf("%w: %v", model.ErrStoreIO, err)
	}
	return bal, nil
}
