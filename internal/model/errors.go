package model

import "errors"

var (
	// Account errors
	ErrAccountNotFound    = errors.New("account not found")
	ErrInvalidAccountKind = errors.New("invalid account type: must be MAIN, BONUS, PENDING, or JACKPOT")
	ErrSystemAccountKind  = errors.New("cannot create system account type via API")
	ErrInvalidCurrency    = errors.New("invalid currency: must be one of EUR, USD, GBP, SEK, NOK, CHF")

	// Transaction errors
	ErrTransactionNotFound        = errors.New("transaction not found")
	ErrInvalidFromAccount         = errors.New("invalid source account")
	ErrInvalidToAccount           = errors.New("invalid destination account")
	ErrSameAccount                = errors.New("source and destination accounts must be different")
	ErrInvalidAmount              = errors.New("invalid amount")
	ErrInvalidTransaction         = errors.New("invalid transaction")
	ErrCurrencyMismatch           = errors.New("currency mismatch between accounts")
	ErrInsufficientFunds          = errors.New("insufficient funds")
	ErrDuplicateReferenceConflict = errors.New("reference already used with different transfer parameters")
	ErrDuplicateReference         = errors.New("reference already used")
	ErrBalanceVerificationFailed  = errors.New("derived balance does not match recorded entries")
	ErrTransient                  = errors.New("transient failure, retry")
	ErrStoreIO                    = errors.New("ledger store I/O error")
)
