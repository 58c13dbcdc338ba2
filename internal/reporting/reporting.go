// Package reporting assembles read-only views over the ledger for the HTTP
// façade: transaction histories, paginated account ledgers, and statements.
package reporting

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/simonkvalheim/hm9-ledger/internal/balance"
	"github.com/simonkvalheim/hm9-ledger/internal/model"
	"github.com/simonkvalheim/hm9-ledger/internal/store"
)

// LedgerReader is the read surface reporting needs from the ledger store.
type LedgerReader interface {
	GetTransactionByID(ctx context.Context, id uuid.UUID) (model.Transaction, error)
	EntriesForTransaction(ctx context.Context, transactionID uuid.UUID) ([]model.LedgerEntry, error)
	EntriesForAccount(ctx context.Context, accountID uuid.UUID, paging store.Paging, kindFilter *model.EntryKind) ([]model.LedgerEntry, int, error)
	VerifyTransactionBalance(ctx context.Context, transactionID uuid.UUID) (bool, error)
}

// AccountReader is the read surface reporting needs from the account store.
type AccountReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (model.Account, error)
}

// Service assembles reporting views from the ledger and account stores plus
// the Balance Deriver.
type Service struct {
	ledger   LedgerReader
	accounts AccountReader
	deriver  *balance.Deriver
}

// NewService builds a reporting Service.
func NewService(ledger LedgerReader, accounts AccountReader, deriver *balance.Deriver) *Service {
	return &Service{ledger: ledger, accounts: accounts, deriver: deriver}
}

// GetTransactionHistory returns a transaction header plus all of its ledger
// entries, and verifies the entries are balanced.
func (s *Service) GetTransactionHistory(ctx context.Context, transactionID uuid.UUID) (model.TransactionHistory, error) {
	tx, err := s.ledger.GetTransactionByID(ctx, transactionID)
	if err != nil {
		return model.TransactionHistory{}, err
	}
	entries, err := s.ledger.EntriesForTransaction(ctx, transactionID)
	if err != nil {
		return model.TransactionHistory{}, err
	}
	balanced, err := s.ledger.VerifyTransactionBalance(ctx, transactionID)
	if err != nil {
		return model.TransactionHistory{}, err
	}
	if !balanced {
		return model.TransactionHistory{}, fmt.Errorf("%w: transaction %s", model.ErrBalanceVerificationFailed, transactionID)
	}
	return model.TransactionHistory{Transaction: tx, Entries: entries}, nil
}

// AccountLedger is the response for GET /reports/accounts/{id}/ledger: a
// page of entries ordered by timestamp ascending with a running balance.
type AccountLedger struct {
	AccountID    uuid.UUID
	Currency     model.Currency
	FinalBalance model.Amount
	TotalEntries int
	PageSize     int
	PageNumber   int
	Entries      []balance.RunningEntry
}

// GetAccountLedger returns a paginated, running-balance view of an
// account's entries.
func (s *Service) GetAccountLedger(ctx context.Context, accountID uuid.UUID, pageSize, pageNumber int) (AccountLedger, error) {
	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return AccountLedger{}, err
	}

	paging := store.Paging{PageSize: pageSize, PageNumber: pageNumber}
	descEntries, total, err := s.ledger.EntriesForAccount(ctx, accountID, paging, nil)
	if err != nil {
		return AccountLedger{}, err
	}
	ascEntries := reverse(descEntries)

	openingBalance := model.ZeroAmount
	if len(ascEntries) > 0 {
		first := ascEntries[0]
		openingBalance, err = s.deriver.BalanceBeforeEntry(ctx, accountID, first.Timestamp, first.ID)
		if err != nil {
			return AccountLedger{}, err
		}
	}

	finalBalance, err := s.deriver.Balance(ctx, accountID)
	if err != nil {
		return AccountLedger{}, err
	}

	return AccountLedger{
		AccountID:    accountID,
		Currency:     account.Currency,
		FinalBalance: finalBalance,
		TotalEntries: total,
		PageSize:     paging.PageSize,
		PageNumber:   paging.PageNumber,
		Entries:      balance.RunningBalance(openingBalance, ascEntries),
	}, nil
}

// TransactionSummary is one line of an account statement.
type TransactionSummary struct {
	TransactionID uuid.UUID
	Timestamp     time.Time
	Description   string
	Amount        model.Amount
	IsCredit      bool
}

// AccountStatement is the response for GET /reports/accounts/{id}/statement.
type AccountStatement struct {
	balance.Statement
	Summaries []TransactionSummary
}

// GetAccountStatement returns the statement record for [t0, t1] plus a
// per-entry transaction summary.
func (s *Service) GetAccountStatement(ctx context.Context, accountID uuid.UUID, t0, t1 time.Time) (AccountStatement, error) {
	if _, err := s.accounts.GetByID(ctx, accountID); err != nil {
		return AccountStatement{}, err
	}

	stmt, err := s.deriver.Statement(ctx, accountID, t0, t1)
	if err != nil {
		return AccountStatement{}, err
	}

	summaries := make([]TransactionSummary, 0, len(stmt.Entries))
	for _, e := range stmt.Entries {
		summaries = append(summaries, TransactionSummary{
			TransactionID: e.TransactionID,
			Timestamp:     e.Timestamp,
			Description:   e.Description,
			Amount:        e.Amount,
			IsCredit:      e.Kind == model.EntryKindCredit,
		})
	}

	return AccountStatement{Statement: stmt, Summaries: summaries}, nil
}

func reverse(entries []model.LedgerEntry) []model.LedgerEntry {
	out := make([]model.LedgerEntry, len(entries))
	for i, e := range entries {
		out[len(entries)-1-i] = e
	}
	return out
}
