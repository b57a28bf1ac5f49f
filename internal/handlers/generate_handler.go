package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/siteulation/backend/internal/generate"
	"github.com/siteulation/backend/internal/ledger"
	"github.com/siteulation/backend/internal/middleware"
	"github.com/siteulation/backend/internal/models"
	"github.com/siteulation/backend/internal/services"
)

// GenerationStarter is the generation pipeline surface the handler needs.
type GenerationStarter interface {
	Start(ctx context.Context, acc *models.Account, payload json.RawMessage) (*models.Cart, error)
}

// GenerateHandler serves POST /api/generate.
type GenerateHandler struct {
	Svc    GenerationStarter
	Logger *slog.Logger
}

func NewGenerateHandler(svc GenerationStarter, logger *slog.Logger) *GenerateHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &GenerateHandler{Svc: svc, Logger: logger}
}

// Generate handles POST /api/generate.
// Auth -> ban check -> validate payload -> debit + enqueue -> 202.
func (h *GenerateHandler) Generate(w http.ResponseWriter, r *http.Request) {
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

	cart, err := h.Svc.Start(r.Context(), acc, payload)
	if err != nil {
		switch {
		case errors.Is(err, generate.ErrBanned):
			http.Error(w, `{"error":"account is banned"}`, http.StatusForbidden)
		case errors.Is(err, services.ErrValidation):
			writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
		case errors.Is(err, ledger.ErrInsufficientCredits):
			http.Error(w, `{"error":"insufficient credits"}`, http.StatusPaymentRequired)
		default:
			h.Logger.Error("start generation", "error", err)
			http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		}
		return
	}

	writeJSON(w, http.StatusAccepted, cart)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
