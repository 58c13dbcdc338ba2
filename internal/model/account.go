package model

import (
	"time"

	"github.com/google/uuid"
)

// Currency is a closed set of ISO 4217 codes this ledger accepts.
type Currency string

const (
	CurrencyEUR Currency = "EUR"
	CurrencyUSD Currency = "USD"
	CurrencyGBP Currency = "GBP"
	CurrencySEK Currency = "SEK"
	CurrencyNOK Currency = "NOK"
	CurrencyCHF Currency = "CHF"
)

// SupportedCurrencies lists every currency the ledger recognizes, in the
// order bootstrap seeds System accounts for them.
var SupportedCurrencies = []Currency{
	CurrencyEUR, CurrencyUSD, CurrencyGBP, CurrencySEK, CurrencyNOK, CurrencyCHF,
}

// IsValid reports whether c is one of the closed set of supported currencies.
func (c Currency) IsValid() bool {
	for _, s := range SupportedCurrencies {
		if c == s {
			return true
		}
	}
	return false
}

// AccountKind is the tagged variant describing how an account may
// participate in a transfer. It is a sealed hierarchy realized as string
// constants plus a method, not open inheritance.
type AccountKind string

const (
	AccountKindMain    AccountKind = "MAIN"
	AccountKindBonus   AccountKind = "BONUS"
	AccountKindPending AccountKind = "PENDING"
	AccountKindJackpot AccountKind = "JACKPOT"
	AccountKindSystem  AccountKind = "SYSTEM"
)

// IsValid reports whether k is one of the closed set of account kinds.
func (k AccountKind) IsValid() bool {
	switch k {
	case AccountKindMain, AccountKindBonus, AccountKindPending, AccountKindJackpot, AccountKindSystem:
		return true
	default:
		return false
	}
}

// DebitPolicy describes whether and how far an account kind may be debited.
type DebitPolicy int

const (
	// DebitDenied means the account may never be the source of a transfer.
	DebitDenied DebitPolicy = iota
	// DebitAllowed means the account may be debited down to a zero balance.
	DebitAllowed
	// DebitUnbounded means the account may be debited into a negative balance.
	DebitUnbounded
)

// MayDebit returns this account kind's withdrawal policy.
func (k AccountKind) MayDebit() DebitPolicy {
	switch k {
	case AccountKindMain, AccountKindJackpot:
		return DebitAllowed
	case AccountKindSystem:
		return DebitUnbounded
	case AccountKindBonus, AccountKindPending:
		return DebitDenied
	default:
		return DebitDenied
	}
}

// Account is a wallet account. Balance is intentionally absent: it is
// always derived from ledger entries (see internal/balance).
type Account struct {
	ID        uuid.UUID   `json:"id"`
	Currency  Currency    `json:"currency"`
	Kind      AccountKind `json:"accountType"`
	CreatedAt time.Time   `json:"createdAt"`
}

// CreateAccountRequest is the payload for POST /accounts. System accounts
// cannot be created through this request; they are seeded by bootstrap.
type CreateAccountRequest struct {
	Currency    Currency    `json:"currency"`
	AccountType AccountKind `json:"accountType"`
}

// Validate checks the request fields in isolation, before any store access.
func (r CreateAccountRequest) Validate() error {
	if r.AccountType == AccountKindSystem {
		return ErrSystemAccountKind
	}
	if !r.AccountType.IsValid() {
		return ErrInvalidAccountKind
	}
	if !r.Currency.IsValid() {
		return ErrInvalidCurrency
	}
	return nil
}

// AccountBalance is the response body for GET /accounts/{id}/balance.
type AccountBalance struct {
	AccountID uuid.UUID `json:"accountId"`
	Balance   Amount    `json:"balance"`
	Currency  Currency  `json:"currency"`
	AsOf      time.Time `json:"asOf"`
}
