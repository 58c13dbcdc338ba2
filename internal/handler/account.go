package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/simonkvalheim/hm9-ledger/internal/balance"
	"github.com/simonkvalheim/hm9-ledger/internal/model"
	"github.com/simonkvalheim/hm9-ledger/internal/store"
)

// AccountHandler decodes/encodes the account surface of the HTTP façade:
// account creation and the read views that bypass the Transfer Engine.
type AccountHandler struct {
	accounts *store.AccountStore
	ledger   *store.LedgerStore
	deriver  *balance.Deriver
}

// NewAccountHandler builds an AccountHandler over the given stores.
func NewAccountHandler(accounts *store.AccountStore, ledger *store.LedgerStore, deriver *balance.Deriver) *AccountHandler {
	return &AccountHandler{accounts: accounts, ledger: ledger, deriver: deriver}
}

// RegisterRoutes wires the account routes.
func (h *AccountHandler) RegisterRoutes(r chi.Router) {
	r.Post("/accounts", h.Create)
	r.Get("/accounts/{id}/balance", h.GetBalance)
	r.Get("/accounts/{id}/transactions", h.GetTransactions)
	r.Get("/accounts/{id}/ledger-entries", h.GetLedgerEntries)
}

// Create handles POST /accounts. System accounts can only be seeded by
// bootstrap, never created through this endpoint.
func (h *AccountHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req model.CreateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := req.Validate(); err != nil {
		writeDomainError(w, err)
		return
	}

	account := model.Account{
		ID:        uuid.New(),
		Currency:  req.Currency,
		Kind:      req.AccountType,
		CreatedAt: time.Now().UTC(),
	}
	if err := h.accounts.Insert(r.Context(), account); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create account")
		return
	}

	writeJSON(w, http.StatusCreated, account)
}

// GetBalance handles GET /accounts/{id}/balance?as_of= (optional ISO-8601).
// Without as_of it returns the current derived balance; with it, the
// balance restricted to entries at or before that instant.
func (h *AccountHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	id, ok := parseURLUUID(w, r, "id")
	if !ok {
		return
	}

	account, err := h.accounts.GetByID(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	asOf, hasAsOf, err := parseOptionalISO8601Query(r, "as_of")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid as_of: use ISO-8601")
		return
	}

	var bal model.Amount
	if hasAsOf {
		bal, err = h.deriver.BalanceAsOf(r.Context(), id, asOf)
	} else {
		asOf = time.Now().UTC()
		bal, err = h.deriver.Balance(r.Context(), id)
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to derive balance")
		return
	}

	writeJSON(w, http.StatusOK, model.AccountBalance{
		AccountID: id,
		Balance:   bal,
		Currency:  account.Currency,
		AsOf:      asOf,
	})
}

// GetTransactions handles GET /accounts/{id}/transactions: every transaction
// header the account participated in as either party, newest first.
func (h *AccountHandler) GetTransactions(w http.ResponseWriter, r *http.Request) {
	id, ok := parseURLUUID(w, r, "id")
	if !ok {
		return
	}

	if _, err := h.accounts.GetByID(r.Context(), id); err != nil {
		writeDomainError(w, err)
		return
	}

	txs, err := h.ledger.TransactionsForAccount(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list transactions")
		return
	}
	if txs == nil {
		txs = []model.Transaction{}
	}

	writeJSON(w, http.StatusOK, txs)
}

// GetLedgerEntries handles GET /accounts/{id}/ledger-entries, a flat,
// entry-kind-unfiltered view of the account's 500 newest entries, newest
// first; older entries are not returned. Callers wanting running balance
// and pagination use GET /reports/accounts/{id}/ledger instead.
func (h *AccountHandler) GetLedgerEntries(w http.ResponseWriter, r *http.Request) {
	id, ok := parseURLUUID(w, r, "id")
	if !ok {
		return
	}

	if _, err := h.accounts.GetByID(r.Context(), id); err != nil {
		writeDomainError(w, err)
		return
	}

	entries, _, err := h.ledger.EntriesForAccount(r.Context(), id, store.Paging{PageSize: 500, PageNumber: 0}, nil)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list ledger entries")
		return
	}
	if entries == nil {
		entries = []model.LedgerEntry{}
	}

	writeJSON(w, http.StatusOK, entries)
}
