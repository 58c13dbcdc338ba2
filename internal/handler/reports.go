package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/simonkvalheim/hm9-ledger/internal/model"
	"github.com/simonkvalheim/hm9-ledger/internal/reporting"
)

// ReportHandler exposes the Reporting component's read-only views over the
// ledger: transaction history, paginated account ledger, period statement.
type ReportHandler struct {
	reports *reporting.Service
}

// NewReportHandler builds a ReportHandler over the given reporting Service.
func NewReportHandler(reports *reporting.Service) *ReportHandler {
	return &ReportHandler{reports: reports}
}

// RegisterRoutes wires the reporting routes.
func (h *ReportHandler) RegisterRoutes(r chi.Router) {
	r.Get("/reports/transactions/{id}", h.GetTransactionHistory)
	r.Get("/reports/accounts/{id}/ledger", h.GetAccountLedger)
	r.Get("/reports/accounts/{id}/statement", h.GetAccountStatement)
}

// GetTransactionHistory handles GET /reports/transactions/{id}.
func (h *ReportHandler) GetTransactionHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := parseURLUUID(w, r, "id")
	if !ok {
		return
	}

	history, err := h.reports.GetTransactionHistory(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, history)
}

// GetAccountLedger handles GET /reports/accounts/{id}/ledger?pageSize&pageNumber.
func (h *ReportHandler) GetAccountLedger(w http.ResponseWriter, r *http.Request) {
	id, ok := parseURLUUID(w, r, "id")
	if !ok {
		return
	}

	pageSize := parseIntQuery(r, "pageSize", 50)
	pageNumber := parseIntQuery(r, "pageNumber", 0)

	ledger, err := h.reports.GetAccountLedger(r.Context(), id, pageSize, pageNumber)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ledger)
}

// GetAccountStatement handles GET /reports/accounts/{id}/statement?startDate&endDate.
func (h *ReportHandler) GetAccountStatement(w http.ResponseWriter, r *http.Request) {
	id, ok := parseURLUUID(w, r, "id")
	if !ok {
		return
	}

	t0, err := parseISO8601Query(r, "startDate")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid startDate: use ISO-8601")
		return
	}
	t1, err := parseISO8601Query(r, "endDate")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid endDate: use ISO-8601")
		return
	}

	statement, err := h.reports.GetAccountStatement(r.Context(), id, t0, t1)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, statement)
}

func parseIntQuery(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}

func parseISO8601Query(r *http.Request, key string) (time.Time, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return time.Time{}, model.ErrInvalidTransaction
	}
	return time.Parse(time.RFC3339, raw)
}

// parseOptionalISO8601Query parses an ISO-8601 query parameter that may be
// absent. ok reports whether key was present at all; a present-but-malformed
// value is reported via err.
func parseOptionalISO8601Query(r *http.Request, key string) (t time.Time, ok bool, err error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return time.Time{}, false, nil
	}
	t, err = time.Parse(time.RFC3339, raw)
	return t, true, err
}
