package model

import (
	"time"

	"github.com/google/uuid"
)

// TransactionKind enumerates the ways a balanced pair of ledger entries can
// arise. TRANSFER is the general case used by the façade's POST /transfers;
// the others let internal callers (game settlement, bonus grants, jackpot
// payout) record the same double-entry shape with a more specific label.
type TransactionKind string

const (
	TransactionKindDeposit    TransactionKind = "DEPOSIT"
	TransactionKindWithdrawal TransactionKind = "WITHDRAWAL"
	TransactionKindTransfer   TransactionKind = "TRANSFER"
	TransactionKindGameBet    TransactionKind = "GAME_BET"
	TransactionKindGameWin    TransactionKind = "GAME_WIN"
	TransactionKindBonusAward TransactionKind = "BONUS_AWARD"
	TransactionKindJackpotWin TransactionKind = "JACKPOT_WIN"
)

// IsValid reports whether k is a recognized transaction kind.
func (k TransactionKind) IsValid() bool {
	switch k {
	case TransactionKindDeposit, TransactionKindWithdrawal, TransactionKindTransfer,
		TransactionKindGameBet, TransactionKindGameWin, TransactionKindBonusAward, TransactionKindJackpotWin:
		return true
	default:
		return false
	}
}

// Transaction is the header metadata binding a balanced set of ledger
// entries into one logical unit. It never carries a status: a Transaction
// row only exists once its entries are committed (see internal/engine).
type Transaction struct {
	ID            uuid.UUID       `json:"id"`
	FromAccountID uuid.UUID       `json:"fromAccountId"`
	ToAccountID   uuid.UUID       `json:"toAccountId"`
	Amount        Amount          `json:"amount"`
	Kind          TransactionKind `json:"transactionType"`
	Currency      Currency        `json:"currency"`
	Reference     string          `json:"reference,omitempty"`
	Timestamp     time.Time       `json:"timestamp"`
}

// EntryKind is either side of a balanced pair.
type EntryKind string

const (
	EntryKindDebit  EntryKind = "DEBIT"
	EntryKindCredit EntryKind = "CREDIT"
)

// LedgerEntry is the only source of truth for value. Amount is always
// stored as a positive magnitude; Signed() derives the +/- contribution.
type LedgerEntry struct {
	ID            uuid.UUID `json:"id"`
	TransactionID uuid.UUID `json:"transactionId"`
	AccountID     uuid.UUID `json:"accountId"`
	Amount        Amount    `json:"amount"`
	Kind          EntryKind `json:"entryType"`
	Currency      Currency  `json:"currency"`
	Timestamp     time.Time `json:"timestamp"`
	Description   string    `json:"description,omitempty"`
}

// NewLedgerEntry constructs an entry, enforcing positivity at construction
// time rather than relying on callers to remember to validate.
func NewLedgerEntry(id, txID, accountID uuid.UUID, kind EntryKind, amount Amount, currency Currency, description string) (LedgerEntry, error) {
	if !amount.IsPositive() {
		return LedgerEntry{}, ErrInvalidAmount
	}
	if kind != EntryKindDebit && kind != EntryKindCredit {
		return LedgerEntry{}, ErrInvalidTransaction
	}
	return LedgerEntry{
		ID:            id,
		TransactionID: txID,
		AccountID:     accountID,
		Amount:        amount,
		Kind:          kind,
		Currency:      currency,
		Description:   description,
	}, nil
}

// Signed returns the entry's contribution to the account's balance: the
// amount for a CREDIT, the negated amount for a DEBIT.
func (e LedgerEntry) Signed() Amount {
	if e.Kind == EntryKindDebit {
		return e.Amount.Negate()
	}
	return e.Amount
}

// CreateTransferRequest is the payload for POST /transfers.
type CreateTransferRequest struct {
	FromAccountID uuid.UUID       `json:"fromAccountId"`
	ToAccountID   uuid.UUID       `json:"toAccountId"`
	Amount        Amount          `json:"amount"`
	ReferenceID   string          `json:"referenceId,omitempty"`
	Kind          TransactionKind `json:"kind,omitempty"`
}

// Validate checks the request's shape in isolation, before any store access.
func (r CreateTransferRequest) Validate() error {
	if r.FromAccountID == uuid.Nil {
		return ErrInvalidFromAccount
	}
	if r.ToAccountID == uuid.Nil {
		return ErrInvalidToAccount
	}
	if !r.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if r.Kind != "" && !r.Kind.IsValid() {
		return ErrInvalidTransaction
	}
	return nil
}

// TransactionHistory is the response for GET /reports/transactions/{id}:
// the header plus its full set of ledger entries.
type TransactionHistory struct {
	Transaction Transaction   `json:"transaction"`
	Entries     []LedgerEntry `json:"entries"`
}
