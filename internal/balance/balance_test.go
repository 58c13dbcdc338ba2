package balance

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/simonkvalheim/hm9-ledger/internal/model"
)

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

// TestBalance_SumsSignedEntries derives: System credits A 1000.00, then A
// debits 300.00 to B. balance(A) must equal 700.00.
func TestBalance_SumsSignedEntries(t *testing.T) {
	accountA := uuid.New()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	source := fakeEntrySource{entries: []model.LedgerEntry{
		{AccountID: accountA, Kind: model.EntryKindCredit, Amount: amt(t, "1000.00"), Timestamp: base},
		{AccountID: accountA, Kind: model.EntryKindDebit, Amount: amt(t, "300.00"), Timestamp: base.Add(time.Minute)},
	}}
	deriver := NewDeriver(source)

	got, err := deriver.Balance(context.Background(), accountA)
	if err != nil {
		t.Fatalf("Balance() error = %v", err)
	}
	if !got.Equal(amt(t, "700.00")) {
		t.Errorf("Balance() = %v, want 700.00", got)
	}
}

// TestBalanceAsOf_RestrictsToPointInTime adds a third entry
// after the observation instant: BalanceAsOf must ignore it.
func TestBalanceAsOf_RestrictsToPointInTime(t *testing.T) {
	accountA := uuid.New()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	asOf := base.Add(time.Minute)

	source := fakeEntrySource{entries: []model.LedgerEntry{
		{AccountID: accountA, Kind: model.EntryKindCredit, Amount: amt(t, "1000.00"), Timestamp: base},
		{AccountID: accountA, Kind: model.EntryKindDebit, Amount: amt(t, "300.00"), Timestamp: asOf},
		{AccountID: accountA, Kind: model.EntryKindDebit, Amount: amt(t, "200.00"), Timestamp: asOf.Add(time.Hour)},
	}}
	deriver := NewDeriver(source)

	got, err := deriver.BalanceAsOf(context.Background(), accountA, asOf)
	if err != nil {
		t.Fatalf("BalanceAsOf() error = %v", err)
	}
	if !got.Equal(amt(t, "700.00")) {
		t.Errorf("BalanceAsOf(asOf) = %v, want 700.00 (later entry must be excluded)", got)
	}

	current, err := deriver.Balance(context.Background(), accountA)
	if err != nil {
		t.Fatalf("Balance() error = %v", err)
	}
	if !current.Equal(amt(t, "500.00")) {
		t.Errorf("Balance() = %v, want 500.00", current)
	}
}

func TestRunningBalance_FoldsSignedAmounts(t *testing.T) {
	accountA := uuid.New()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	entries := []model.LedgerEntry{
		{AccountID: accountA, Kind: model.EntryKindCredit, Amount: amt(t, "1000.00"), Timestamp: base},
		{AccountID: accountA, Kind: model.EntryKindDebit, Amount: amt(t, "300.00"), Timestamp: base.Add(time.Minute)},
	}

	running := RunningBalance(model.ZeroAmount, entries)
	if len(running) != 2 {
		t.Fatalf("len(running) = %d, want 2", len(running))
	}
	if !running[0].RunningBalance.Equal(amt(t, "1000.00")) {
		t.Errorf("running[0] = %v, want 1000.00", running[0].RunningBalance)
	}
	if !running[1].RunningBalance.Equal(amt(t, "700.00")) {
		t.Errorf("running[1] = %v, want 700.00", running[1].RunningBalance)
	}
}

// TestStatement_Window seeds a 500.00 credit before the window and two
// debits inside it, checking every derived statement field.
func TestStatement_Window(t *testing.T) {
	accountA := uuid.New()
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	t1 := t0.Add(time.Hour)
	t2 := t0.Add(2 * time.Hour)

	txA := uuid.New()
	txB := uuid.New()

	source := fakeEntrySource{entries: []model.LedgerEntry{
		{AccountID: accountA, Kind: model.EntryKindCredit, Amount: amt(t, "500.00"), Timestamp: t0.Add(-time.Minute)},
		{AccountID: accountA, TransactionID: txA, Kind: model.EntryKindDebit, Amount: amt(t, "200.00"), Timestamp: t1},
		{AccountID: accountA, TransactionID: txB, Kind: model.EntryKindDebit, Amount: amt(t, "100.00"), Timestamp: t2},
	}}
	deriver := NewDeriver(source)

	stmt, err := deriver.Statement(context.Background(), accountA, t1, t2)
	if err != nil {
		t.Fatalf("Statement() error = %v", err)
	}
	if !stmt.OpeningBalance.Equal(amt(t, "500.00")) {
		t.Errorf("OpeningBalance = %v, want 500.00", stmt.OpeningBalance)
	}
	if !stmt.TotalDebits.Equal(amt(t, "300.00")) {
		t.Errorf("TotalDebits = %v, want 300.00", stmt.TotalDebits)
	}
	if !stmt.TotalCredits.Equal(model.ZeroAmount) {
		t.Errorf("TotalCredits = %v, want 0", stmt.TotalCredits)
	}
	if !stmt.ClosingBalance.Equal(amt(t, "200.00")) {
		t.Errorf("ClosingBalance = %v, want 200.00", stmt.ClosingBalance)
	}
	if stmt.DistinctTransactionCount != 2 {
		t.Errorf("DistinctTransactionCount = %d, want 2", stmt.DistinctTransactionCount)
	}
}

// TestBalanceBeforeEntry_SameTimestampTieBreak checks that entries sharing
// a timestamp are included or excluded by the id tie-break, not dropped
// wholesale by a plain timestamp cutoff.
func TestBalanceBeforeEntry_SameTimestampTieBreak(t *testing.T) {
	accountA := uuid.New()
	tie := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	lowID := uuid.MustParse("00000000-0000-0000-0000-000000000001")
	highID := uuid.MustParse("00000000-0000-0000-0000-000000000002")

	source := fakeEntrySource{entries: []model.LedgerEntry{
		{ID: lowID, AccountID: accountA, Kind: model.EntryKindCredit, Amount: amt(t, "50.00"), Timestamp: tie},
		{ID: highID, AccountID: accountA, Kind: model.EntryKindDebit, Amount: amt(t, "30.00"), Timestamp: tie},
	}}
	deriver := NewDeriver(source)

	before, err := deriver.BalanceBeforeEntry(context.Background(), accountA, tie, highID)
	if err != nil {
		t.Fatalf("BalanceBeforeEntry() error = %v", err)
	}
	if !before.Equal(amt(t, "50.00")) {
		t.Errorf("BalanceBeforeEntry(tie, highID) = %v, want 50.00 (same-timestamp lower id included)", before)
	}

	none, err := deriver.BalanceBeforeEntry(context.Background(), accountA, tie, lowID)
	if err != nil {
		t.Fatalf("BalanceBeforeEntry() error = %v", err)
	}
	if !none.Equal(model.ZeroAmount) {
		t.Errorf("BalanceBeforeEntry(tie, lowID) = %v, want 0", none)
	}
}
