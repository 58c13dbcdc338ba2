package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/simonkvalheim/hm9-ledger/internal/engine"
	"github.com/simonkvalheim/hm9-ledger/internal/model"
	"github.com/simonkvalheim/hm9-ledger/internal/store"
)

// TransferHandler is the façade entry point into the Transfer Engine: the
// only handler that mutates the ledger.
type TransferHandler struct {
	engine *engine.Engine
	ledger *store.LedgerStore
}

// NewTransferHandler builds a TransferHandler over the given engine and
// ledger store.
func NewTransferHandler(eng *engine.Engine, ledger *store.LedgerStore) *TransferHandler {
	return &TransferHandler{engine: eng, ledger: ledger}
}

// RegisterRoutes wires the transfer and transaction-lookup routes.
func (h *TransferHandler) RegisterRoutes(r chi.Router) {
	r.Post("/transfers", h.CreateTransfer)
	r.Get("/transactions/reference/{ref}", h.GetByReference)
	r.Get("/transactions/{id}/ledger-entries", h.GetLedgerEntries)
}

// createTransferRequestBody is the POST /transfers body shape:
// referenceId rather than the internal model's
// ReferenceID naming. Kind is optional and defaults to TRANSFER in the
// engine; it lets internal callers (game settlement, bonus grants, jackpot
// payout) label the same double-entry shape with a more specific kind.
type createTransferRequestBody struct {
	FromAccountID string                `json:"fromAccountId"`
	ToAccountID   string                `json:"toAccountId"`
	Amount        model.Amount          `json:"amount"`
	ReferenceID   string                `json:"referenceId,omitempty"`
	Kind          model.TransactionKind `json:"kind,omitempty"`
}

// CreateTransfer handles POST /transfers. A reference-bearing retry that
// matches an already-committed transfer's parameters returns the same
// transaction header as a 200.
func (h *TransferHandler) CreateTransfer(w http.ResponseWriter, r *http.Request) {
	var body createTransferRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	fromID, err := parseUUIDString(body.FromAccountID)
	if err != nil {
		writeDomainError(w, model.ErrInvalidFromAccount)
		return
	}
	toID, err := parseUUIDString(body.ToAccountID)
	if err != nil {
		writeDomainError(w, model.ErrInvalidToAccount)
		return
	}

	req := model.CreateTransferRequest{
		FromAccountID: fromID,
		ToAccountID:   toID,
		Amount:        body.Amount,
		ReferenceID:   body.ReferenceID,
		Kind:          body.Kind,
	}
	if err := req.Validate(); err != nil {
		writeDomainError(w, err)
		return
	}

	tx, err := h.engine.Transfer(r.Context(), fromID, toID, body.Amount, body.ReferenceID, body.Kind)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, tx)
}

// GetByReference handles GET /transactions/reference/{ref}.
func (h *TransferHandler) GetByReference(w http.ResponseWriter, r *http.Request) {
	ref := chi.URLParam(r, "ref")
	tx, found, err := h.ledger.FindTransactionByReferenceCI(r.Context(), ref)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to look up reference")
		return
	}
	if !found {
		writeDomainError(w, model.ErrTransactionNotFound)
		return
	}
	writeJSON(w, http.StatusOK, tx)
}

// GetLedgerEntries handles GET /transactions/{id}/ledger-entries: the
// (expected two) balanced entries belonging to one transaction.
func (h *TransferHandler) GetLedgerEntries(w http.ResponseWriter, r *http.Request) {
	id, ok := parseURLUUID(w, r, "id")
	if !ok {
		return
	}

	if _, err := h.ledger.GetTransactionByID(r.Context(), id); err != nil {
		writeDomainError(w, err)
		return
	}

	entries, err := h.ledger.EntriesForTransaction(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list ledger entries")
		return
	}
	if entries == nil {
		entries = []model.LedgerEntry{}
	}

	writeJSON(w, http.StatusOK, entries)
}
