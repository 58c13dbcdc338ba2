package reporting

import (
	"bytes"
	"context"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/simonkvalheim/hm9-ledger/internal/balance"
	"github.com/simonkvalheim/hm9-ledger/internal/model"
	"github.com/simonkvalheim/hm9-ledger/internal/store"
)

type fakeLedgerReader struct {
	transactions map[uuid.UUID]model.Transaction
	entriesByTx  map[uuid.UUID][]model.LedgerEntry
	entriesByAcc map[uuid.UUID][]model.LedgerEntry
}

func (f fakeLedgerReader) GetTransactionByID(ctx context.Context, id uuid.UUID) (model.Transaction, error) {
	tx, ok := f.transactions[id]
	if !ok {
		return model.Transaction{}, model.ErrTransactionNotFound
	}
	return tx, nil
}

func (f fakeLedgerReader) EntriesForTransaction(ctx context.Context, transactionID uuid.UUID) ([]model.LedgerEntry, error) {
	return f.entriesByTx[transactionID], nil
}

// EntriesForAccount mirrors the store contract: timestamp descending with
// an id-descending tie-break, sliced by page.
func (f fakeLedgerReader) EntriesForAccount(ctx context.Context, accountID uuid.UUID, paging store.Paging, kindFilter *model.EntryKind) ([]model.LedgerEntry, int, error) {
	all := append([]model.LedgerEntry(nil), f.entriesByAcc[accountID]...)
	sort.Slice(all, func(i, j int) bool {
		if !all[i].Timestamp.Equal(all[j].Timestamp) {
			return all[i].Timestamp.After(all[j].Timestamp)
		}
		return bytes.Compare(all[i].ID[:], all[j].ID[:]) > 0
	})
	total := len(all)
	start := paging.PageNumber * paging.PageSize
	if start > total {
		start = total
	}
	end := start + paging.PageSize
	if end > total {
		end = total
	}
	return all[start:end], total, nil
}

func (f fakeLedgerReader) VerifyTransactionBalance(ctx context.Context, transactionID uuid.UUID) (bool, error) {
	sum := model.ZeroAmount
	for _, e := range f.entriesByTx[transactionID] {
		sum = sum.Add(e.Signed())
	}
	return sum.Equal(model.ZeroAmount), nil
}

type fakeAccountReader struct {
	accounts map[uuid.UUID]model.Account
}

func (f fakeAccountReader) GetByID(ctx context.Context, id uuid.UUID) (model.Account, error) {
	a, ok := f.accounts[id]
	if !ok {
		return model.Account{}, model.ErrAccountNotFound
	}
	return a, nil
}

type fakeEntrySource struct {
	entries []model.LedgerEntry
}

func (f fakeEntrySource) SumByAccountAndKind(ctx context.Context, accountID uuid.UUID, kind model.EntryKind) (model.Amount, error) {
	sum := model.ZeroAmount
	for _, e := range f.entries {
		if e.AccountID == accountID && e.Kind == kind {
			sum = sum.Add(e.Amount)
		}
	}
	return sum, nil
}

func (f fakeEntrySource) SumByAccountAndKindAsOf(ctx context.Context, accountID uuid.UUID, kind model.EntryKind, t time.Time) (model.Amount, error) {
	sum := model.ZeroAmount
	for _, e := range f.entries {
		if e.AccountID == accountID && e.Kind == kind && !e.Timestamp.After(t) {
			sum = sum.Add(e.Amount)
		}
	}
	return sum, nil
}

func (f fakeEntrySource) EntriesForAccountBefore(ctx context.Context, accountID uuid.UUID, t time.Time) ([]model.LedgerEntry, error) {
	var out []model.LedgerEntry
	for _, e := range f.entries {
		if e.AccountID == accountID && e.Timestamp.Before(t) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f fakeEntrySource) EntriesForAccountBeforeEntry(ctx context.Context, accountID uuid.UUID, t time.Time, entryID uuid.UUID) ([]model.LedgerEntry, error) {
	var out []model.LedgerEntry
	for _, e := range f.entries {
		if e.AccountID != accountID {
			continue
		}
		if e.Timestamp.Before(t) || (e.Timestamp.Equal(t) && bytes.Compare(e.ID[:], entryID[:]) < 0) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f fakeEntrySource) EntriesForAccountBetween(ctx context.Context, accountID uuid.UUID, t0, t1 time.Time) ([]model.LedgerEntry, error) {
	var out []model.LedgerEntry
	for _, e := range f.entries {
		if e.AccountID == accountID && !e.Timestamp.Before(t0) && !e.Timestamp.After(t1) {
			out = append(out, e)
		}
	}
	return out, nil
}

func amt(t *testing.T, s string) model.Amount {
	t.Helper()
	a, err := model.ParseAmount(s)
	if err != nil {
		t.Fatalf("ParseAmount(%s) error = %v", s, err)
	}
	return a
}

// TestGetAccountLedger_RunningBalance seeds a credit of 1000.00
// followed by a debit of 300.00, returned oldest-first with running
// balances {1000.00, 700.00}.
func TestGetAccountLedger_RunningBalance(t *testing.T) {
	accountA := uuid.New()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	credit := model.LedgerEntry{ID: uuid.New(), AccountID: accountA, Kind: model.EntryKindCredit, Amount: amt(t, "1000.00"), Timestamp: base}
	debit := model.LedgerEntry{ID: uuid.New(), AccountID: accountA, Kind: model.EntryKindDebit, Amount: amt(t, "300.00"), Timestamp: base.Add(time.Minute)}

	// EntriesForAccount returns timestamp-descending order, per the store contract.
	ledger := fakeLedgerReader{
		entriesByAcc: map[uuid.UUID][]model.LedgerEntry{accountA: {debit, credit}},
	}
	accounts := fakeAccountReader{accounts: map[uuid.UUID]model.Account{
		accountA: {ID: accountA, Currency: model.CurrencyEUR, Kind: model.AccountKindMain},
	}}
	deriver := balance.NewDeriver(fakeEntrySource{entries: []model.LedgerEntry{credit, debit}})

	svc := NewService(ledger, accounts, deriver)
	result, err := svc.GetAccountLedger(context.Background(), accountA, 10, 0)
	if err != nil {
		t.Fatalf("GetAccountLedger() error = %v", err)
	}

	if len(result.Entries) != 2 {
		t.Fatalf("len(Entries) = %d, want 2", len(result.Entries))
	}
	if !result.Entries[0].RunningBalance.Equal(amt(t, "1000.00")) {
		t.Errorf("Entries[0].RunningBalance = %v, want 1000.00", result.Entries[0].RunningBalance)
	}
	if !result.Entries[1].RunningBalance.Equal(amt(t, "700.00")) {
		t.Errorf("Entries[1].RunningBalance = %v, want 700.00", result.Entries[1].RunningBalance)
	}
	if !result.FinalBalance.Equal(amt(t, "700.00")) {
		t.Errorf("FinalBalance = %v, want 700.00", result.FinalBalance)
	}
}

func TestGetTransactionHistory_VerifiesBalance(t *testing.T) {
	transactionID := uuid.New()
	accountA, accountB := uuid.New(), uuid.New()
	amount := amt(t, "100.00")

	tx := model.Transaction{ID: transactionID, FromAccountID: accountA, ToAccountID: accountB, Amount: amount}
	debit := model.LedgerEntry{ID: uuid.New(), TransactionID: transactionID, AccountID: accountA, Kind: model.EntryKindDebit, Amount: amount}
	credit := model.LedgerEntry{ID: uuid.New(), TransactionID: transactionID, AccountID: accountB, Kind: model.EntryKindCredit, Amount: amount}

	ledger := fakeLedgerReader{
		transactions: map[uuid.UUID]model.Transaction{transactionID: tx},
		entriesByTx:  map[uuid.UUID][]model.LedgerEntry{transactionID: {debit, credit}},
	}
	accounts := fakeAccountReader{}
	deriver := balance.NewDeriver(fakeEntrySource{})

	svc := NewService(ledger, accounts, deriver)
	history, err := svc.GetTransactionHistory(context.Background(), transactionID)
	if err != nil {
		t.Fatalf("GetTransactionHistory() error = %v", err)
	}
	if len(history.Entries) != 2 {
		t.Errorf("len(Entries) = %d, want 2", len(history.Entries))
	}
}

// TestGetAccountLedger_SameTimestampAcrossPageBoundary pins the opening
// balance of a page whose first entry shares its timestamp with an entry on
// the next (older) page. The id tie-break decides which side of the boundary
// each entry falls on; the same-timestamp prior entry must still count
// toward the opening balance.
func TestGetAccountLedger_SameTimestampAcrossPageBoundary(t *testing.T) {
	accountA := uuid.New()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tie := base.Add(time.Minute)

	seed := model.LedgerEntry{ID: uuid.New(), AccountID: accountA, Kind: model.EntryKindCredit, Amount: amt(t, "100.00"), Timestamp: base}
	lowID := model.LedgerEntry{
		ID:        uuid.MustParse("00000000-0000-0000-0000-000000000001"),
		AccountID: accountA, Kind: model.EntryKindCredit, Amount: amt(t, "50.00"), Timestamp: tie,
	}
	highID := model.LedgerEntry{
		ID:        uuid.MustParse("00000000-0000-0000-0000-000000000002"),
		AccountID: accountA, Kind: model.EntryKindDebit, Amount: amt(t, "30.00"), Timestamp: tie,
	}

	ledger := fakeLedgerReader{
		entriesByAcc: map[uuid.UUID][]model.LedgerEntry{accountA: {seed, lowID, highID}},
	}
	accounts := fakeAccountReader{accounts: map[uuid.UUID]model.Account{
		accountA: {ID: accountA, Currency: model.CurrencyEUR, Kind: model.AccountKindMain},
	}}
	deriver := balance.NewDeriver(fakeEntrySource{entries: []model.LedgerEntry{seed, lowID, highID}})

	// With pageSize 1 the newest page holds only highID; lowID, at the same
	// timestamp, lands on the next page and must be part of the opening
	// balance (100.00 + 50.00) rather than dropped by a plain timestamp cut.
	svc := NewService(ledger, accounts, deriver)
	result, err := svc.GetAccountLedger(context.Background(), accountA, 1, 0)
	if err != nil {
		t.Fatalf("GetAccountLedger() error = %v", err)
	}

	if len(result.Entries) != 1 {
		t.Fatalf("len(Entries) = %d, want 1", len(result.Entries))
	}
	if result.Entries[0].Entry.ID != highID.ID {
		t.Fatalf("Entries[0].ID = %v, want the id-descending tie-break winner %v", result.Entries[0].Entry.ID, highID.ID)
	}
	if !result.Entries[0].RunningBalance.Equal(amt(t, "120.00")) {
		t.Errorf("Entries[0].RunningBalance = %v, want 120.00", result.Entries[0].RunningBalance)
	}
	if result.TotalEntries != 3 {
		t.Errorf("TotalEntries = %d, want 3", result.TotalEntries)
	}
}
