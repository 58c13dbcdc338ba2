// Package validation checks a transfer request against the locked account
// rows and derived balances, independent of how those rows were obtained.
package validation

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/simonkvalheim/hm9-ledger/internal/model"
)

// BalanceReader is the minimal read surface ValidateTransfer needs to check
// the withdrawal policy, satisfied by *balance.Deriver.
type BalanceReader interface {
	Balance(ctx context.Context, accountID uuid.UUID) (model.Amount, error)
}

// ReferenceFinder is the minimal read surface ValidateTransfer needs for the
// idempotency check, satisfied by *store.LedgerStore.
type ReferenceFinder interface {
	FindTransactionByReferenceCI(ctx context.Context, reference string) (model.Transaction, bool, error)
}

// Result carries the outcome of validating a transfer: either the request
// is sound and may proceed, or an already-committed transaction satisfies
// it and the engine should short-circuit.
type Result struct {
	Existing *model.Transaction
}

// ValidateTransfer checks a transfer request against the two locked account
// rows. fromAccount and toAccount must already be the caller's locked
// snapshot (or, for the pre-transaction check, an unlocked read); balances
// must reflect that same snapshot.
func ValidateTransfer(ctx context.Context, refs ReferenceFinder, bal BalanceReader, fromAccount, toAccount model.Account, amount model.Amount, reference string) (Result, error) {
	if !amount.IsPositive() {
		return Result{}, model.ErrInvalidAmount
	}

	if fromAccount.ID == toAccount.ID {
		return Result{}, model.ErrSameAccount
	}

	if fromAccount.Currency != toAccount.Currency {
		return Result{}, model.ErrCurrencyMismatch
	}

	if reference != "" {
		existing, found, err := refs.FindTransactionByReferenceCI(ctx, reference)
		if err != nil {
			return Result{}, err
		}
		if found {
			if sameParams(existing, fromAccount.ID, toAccount.ID, amount, fromAccount.Currency) {
				return Result{Existing: &existing}, nil
			}
			return Result{}, model.ErrDuplicateReferenceConflict
		}
	}

	if err := checkWithdrawalPolicy(ctx, bal, fromAccount, amount); err != nil {
		return Result{}, err
	}

	return Result{}, nil
}

func sameParams(existing model.Transaction, fromID, toID uuid.UUID, amount model.Amount, currency model.Currency) bool {
	return existing.FromAccountID == fromID &&
		existing.ToAccountID == toID &&
		existing.Amount.Equal(amount) &&
		existing.Currency == currency
}

// checkWithdrawalPolicy enforces the per-kind debit policy:
// Denied kinds may never fund a transfer, Allowed kinds may go down to
// zero, Unbounded kinds (System) may go negative.
func checkWithdrawalPolicy(ctx context.Context, bal BalanceReader, fromAccount model.Account, amount model.Amount) error {
	switch fromAccount.Kind.MayDebit() {
	case model.DebitDenied:
		return fmt.Errorf("%w: %s accounts cannot fund a transfer", model.ErrInvalidTransaction, fromAccount.Kind)
	case model.DebitUnbounded:
		return nil
	case model.DebitAllowed:
		current, err := bal.Balance(ctx, fromAccount.ID)
		if err != nil {
			return err
		}
		if current.Sub(amount).IsNegative() {
			return model.ErrInsufficientFunds
		}
		return nil
	default:
		return fmt.Errorf("%w: unrecognized debit policy for %s", model.ErrInvalidTransaction, fromAccount.Kind)
	}
}
