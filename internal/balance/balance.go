// Package balance derives account balances and statements purely from
// ledger entries: no balance is ever stored on an account row.
package balance

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/simonkvalheim/hm9-ledger/internal/model"
)

// EntrySource is the read surface the Deriver needs from the ledger store.
type EntrySource interface {
	SumByAccountAndKind(ctx context.Context, accountID uuid.UUID, kind model.EntryKind) (model.Amount, error)
	SumByAccountAndKindAsOf(ctx context.Context, accountID uuid.UUID, kind model.EntryKind, t time.Time) (model.Amount, error)
	EntriesForAccountBefore(ctx context.Context, accountID uuid.UUID, t time.Time) ([]model.LedgerEntry, error)
	EntriesForAccountBeforeEntry(ctx context.Context, accountID uuid.UUID, t time.Time, entryID uuid.UUID) ([]model.LedgerEntry, error)
	EntriesForAccountBetween(ctx context.Context, accountID uuid.UUID, t0, t1 time.Time) ([]model.LedgerEntry, error)
}

// Deriver computes balances and statements from the ledger, never from a
// stored balance column.
type Deriver struct {
	entries EntrySource
}

// NewDeriver builds a Deriver over the given ledger store.
func NewDeriver(entries EntrySource) *Deriver {
	return &Deriver{entries: entries}
}

// Balance returns the current derived balance: ΣCREDIT − ΣDEBIT.
func (d *Deriver) Balance(ctx context.Context, accountID uuid.UUID) (model.Amount, error) {
	credits, err := d.entries.SumByAccountAndKind(ctx, accountID, model.EntryKindCredit)
	if err != nil {
		return model.Amount{}, fmt.Errorf("failed to sum credits: %w", err)
	}
	debits, err := d.entries.SumByAccountAndKind(ctx, accountID, model.EntryKindDebit)
	if err != nil {
		return model.Amount{}, fmt.Errorf("failed to sum debits: %w", err)
	}
	return credits.Sub(debits), nil
}

// BalanceAsOf returns the derived balance restricted to entries with
// timestamp <= t.
func (d *Deriver) BalanceAsOf(ctx context.Context, accountID uuid.UUID, t time.Time) (model.Amount, error) {
	credits, err := d.entries.SumByAccountAndKindAsOf(ctx, accountID, model.EntryKindCredit, t)
	if err != nil {
		return model.Amount{}, fmt.Errorf("failed to sum credits as of %s: %w", t, err)
	}
	debits, err := d.entries.SumByAccountAndKindAsOf(ctx, accountID, model.EntryKindDebit, t)
	if err != nil {
		return model.Amount{}, fmt.Errorf("failed to sum debits as of %s: %w", t, err)
	}
	return credits.Sub(debits), nil
}

// RunningEntry pairs a ledger entry with the account's running balance
// immediately after that entry.
type RunningEntry struct {
	Entry          model.LedgerEntry
	RunningBalance model.Amount
}

// RunningBalance folds signedAmount across entries ordered by timestamp
// ascending, starting from opening.
func RunningBalance(opening model.Amount, entriesAsc []model.LedgerEntry) []RunningEntry {
	running := make([]RunningEntry, 0, len(entriesAsc))
	balance := opening
	for _, e := range entriesAsc {
		balance = balance.Add(e.Signed())
		running = append(running, RunningEntry{Entry: e, RunningBalance: balance})
	}
	return running
}

// BalanceBefore returns the derived balance restricted to entries strictly
// before t: the opening balance of a Statement window. Paginated ledger
// views use BalanceBeforeEntry instead.
func (d *Deriver) BalanceBefore(ctx context.Context, accountID uuid.UUID, t time.Time) (model.Amount, error) {
	entries, err := d.entries.EntriesForAccountBefore(ctx, accountID, t)
	if err != nil {
		return model.Amount{}, fmt.Errorf("failed to list entries before %s: %w", t, err)
	}
	balance := model.ZeroAmount
	for _, e := range entries {
		balance = balance.Add(e.Signed())
	}
	return balance, nil
}

// BalanceBeforeEntry returns the derived balance over entries ordering
// strictly before the (t, entryID) position in the (timestamp, id) sort.
// This is the opening balance of a ledger page whose first entry is at
// (t, entryID): a plain timestamp cutoff would drop same-timestamp entries
// that the id tie-break places on earlier pages.
func (d *Deriver) BalanceBeforeEntry(ctx context.Context, accountID uuid.UUID, t time.Time, entryID uuid.UUID) (model.Amount, error) {
	entries, err := d.entries.EntriesForAccountBeforeEntry(ctx, accountID, t, entryID)
	if err != nil {
		return model.Amount{}, fmt.Errorf("failed to list entries before entry %s: %w", entryID, err)
	}
	balance := model.ZeroAmount
	for _, e := range entries {
		balance = balance.Add(e.Signed())
	}
	return balance, nil
}

// Statement is the derived report for GET /reports/accounts/{id}/statement.
type Statement struct {
	AccountID                uuid.UUID
	PeriodStart              time.Time
	PeriodEnd                time.Time
	OpeningBalance           model.Amount
	ClosingBalance           model.Amount
	TotalDebits              model.Amount
	TotalCredits             model.Amount
	DistinctTransactionCount int
	Entries                  []model.LedgerEntry
}

// Statement computes the windowed statement for [t0, t1]:
// the opening balance is derived strictly before t0, then totals and the
// closing balance accumulate over entries in [t0, t1].
func (d *Deriver) Statement(ctx context.Context, accountID uuid.UUID, t0, t1 time.Time) (Statement, error) {
	opening, err := d.BalanceBefore(ctx, accountID, t0)
	if err != nil {
		return Statement{}, err
	}

	entries, err := d.entries.EntriesForAccountBetween(ctx, accountID, t0, t1)
	if err != nil {
		return Statement{}, fmt.Errorf("failed to list entries in window: %w", err)
	}

	stmt := Statement{
		AccountID:      accountID,
		PeriodStart:    t0,
		PeriodEnd:      t1,
		OpeningBalance: opening,
		ClosingBalance: opening,
		TotalDebits:    model.ZeroAmount,
		TotalCredits:   model.ZeroAmount,
		Entries:        entries,
	}

	seen := make(map[uuid.UUID]struct{})
	for _, e := range entries {
		stmt.ClosingBalance = stmt.ClosingBalance.Add(e.Signed())
		if e.Kind == model.EntryKindDebit {
			stmt.TotalDebits = stmt.TotalDebits.Add(e.Amount)
		} else {
			stmt.TotalCredits = stmt.TotalCredits.Add(e.Amount)
		}
		seen[e.TransactionID] = struct{}{}
	}
	stmt.DistinctTransactionCount = len(seen)

	return stmt, nil
}

