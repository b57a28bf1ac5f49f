package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/siteulation/backend/internal/ledger"
	"github.com/siteulation/backend/internal/middleware"
	"github.com/siteulation/backend/internal/models"
	"github.com/siteulation/backend/internal/services"
)

// CreditSubmitter is the ledger surface for user-facing credit endpoints.
type CreditSubmitter interface {
	SubmitRequest(ctx context.Context, accountID uuid.UUID, username, cashtag string, amountUSDCents int64) (*models.CreditRequest, error)
}

// EntryLister reads an account's ledger history.
type EntryLister interface {
	ListByAccount(ctx context.Context, accountID uuid.UUID, limit int) ([]*models.CreditLedger, error)
}

// CreditHandler serves the /api/credits endpoints.
type CreditHandler struct {
	Ledger    CreditSubmitter
	Entries   EntryLister
	Validator *services.Validator
	Logger    *slog.Logger
}

func NewCreditHandler(l CreditSubmitter, entries EntryLister, validator *services.Validator, logger *slog.Logger) *CreditHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &CreditHandler{Ledger: l, Entries: entries, Validator: validator, Logger: logger}
}

type creditRequestPayload struct {
	Cashtag        string `json:"cashtag"`
	AmountUSDCents int64  `json:"amount_usd_cents"`
}

// Submit handles POST /api/credits/request: a user claims to have sent money
// and asks for credits. The request waits for admin resolution.
func (h *CreditHandler) Submit(w http.ResponseWriter, r *http.Request) {
	acc := middleware.AccountFromCtx(r.Context())
	if acc == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}

	payload, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, `{"error":"invalid body"}`, http.StatusBadRequest)
		return
	}
	if err := h.Validator.ValidateInput(r.Context(), services.SchemaCreditRequest, payload); err != nil {
		if errors.Is(err, services.ErrValidation) {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
			return
		}
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}

	var req creditRequestPayload
	if err := json.Unmarshal(payload, &req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}

	created, err := h.Ledger.SubmitRequest(r.Context(), acc.ID, acc.Username, req.Cashtag, req.AmountUSDCents)
	if err != nil {
		if errors.Is(err, ledger.ErrInvalidAmount) {
			http.Error(w, `{"error":"amount must be greater than zero"}`, http.StatusBadRequest)
			return
		}
		h.Logger.Error("submit credit request", "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// History handles GET /api/credits/history: the account's recent ledger
// entries, newest first.
func (h *CreditHandler) History(w http.ResponseWriter, r *http.Request) {
	acc := middleware.AccountFromCtx(r.Context())
	if acc == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	entries, err := h.Entries.ListByAccount(r.Context(), acc.ID, 50)
	if err != nil {
		h.Logger.Error("list ledger entries", "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	if entries == nil {
		entries = []*models.CreditLedger{}
	}
	writeJSON(w, http.StatusOK, entries)
}
