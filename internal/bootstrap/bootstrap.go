// Package bootstrap ensures the System accounts the Transfer Engine needs
// as a funding source exist before the façade starts serving traffic.
package bootstrap

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/simonkvalheim/hm9-ledger/internal/model"
	"github.com/simonkvalheim/hm9-ledger/internal/store"
)

// systemAccountNamespace is the UUIDv5 namespace every currency's System
// account id is derived from. Deriving the id deterministically, rather
// than looking one up by kind and currency, makes Initialize idempotent
// across restarts with a single indexed existence check.
var systemAccountNamespace = uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")

// SystemAccountID returns the deterministic id of the System account for
// the given currency.
func SystemAccountID(currency model.Currency) uuid.UUID {
	return uuid.NewSHA1(systemAccountNamespace, []byte("system:"+string(currency)))
}

// Initialize ensures one System account exists per currency in
// model.SupportedCurrencies. Call this once on server startup, after the
// database connection is established and before the façade accepts
// traffic; it is safe to call on every restart.
func Initialize(ctx context.Context, accounts *store.AccountStore) error {
	for _, currency := range model.SupportedCurrencies {
		if err := ensureSystemAccount(ctx, accounts, currency); err != nil {
			return fmt.Errorf("failed to ensure system account for %s: %w", currency, err)
		}
	}
	return nil
}

func ensureSystemAccount(ctx context.Context, accounts *store.AccountStore, currency model.Currency) error {
	id := SystemAccountID(currency)

	exists, err := accounts.ExistsByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to check for system account: %w", err)
	}
	if exists {
		log.Printf("system account for %s already exists (%s)", currency, id)
		return nil
	}

	account := model.Account{
		ID:        id,
		Currency:  currency,
		Kind:      model.AccountKindSystem,
		CreatedAt: time.Now().UTC(),
	}
	if err := accounts.Insert(ctx, account); err != nil {
		return fmt.Errorf("failed to create system account: %w", err)
	}

	log.Printf("created system account for %s: %s", currency, id)
	return nil
}
