package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/siteulation/backend/internal/ledger"
	"github.com/siteulation/backend/internal/middleware"
	"github.com/siteulation/backend/internal/models"
)

// Moderator is the ledger surface for the moderation endpoints.
type Moderator interface {
	ListPending(ctx context.Context) ([]*models.CreditRequest, error)
	Approve(ctx context.Context, requestID, adminID uuid.UUID) error
	Deny(ctx context.Context, requestID, adminID uuid.UUID) error
}

// BanStore flips an account's banned flag.
type BanStore interface {
	SetBanned(ctx context.Context, id uuid.UUID, banned bool) error
}

// AdminHandler serves /api/admin endpoints. Routes are wrapped in
// RequireAdmin; handlers assume the caller is an admin.
type AdminHandler struct {
	Ledger   Moderator
	Accounts BanStore
	Logger   *slog.Logger
}

func NewAdminHandler(l Moderator, accounts BanStore, logger *slog.Logger) *AdminHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AdminHandler{Ledger: l, Accounts: accounts, Logger: logger}
}

// ListRequests handles GET /api/admin/credit-requests: pending requests,
// oldest first.
func (h *AdminHandler) ListRequests(w http.ResponseWriter, r *http.Request) {
	requests, err := h.Ledger.ListPending(r.Context())
	if err != nil {
		h.Logger.Error("list pending requests", "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	if requests == nil {
		requests = []*models.CreditRequest{}
	}
	writeJSON(w, http.StatusOK, requests)
}

// Approve handles POST /api/admin/credit-requests/{id}/approve.
func (h *AdminHandler) Approve(w http.ResponseWriter, r *http.Request) {
	h.resolve(w, r, h.Ledger.Approve)
}

// Deny handles POST /api/admin/credit-requests/{id}/deny.
func (h *AdminHandler) Deny(w http.ResponseWriter, r *http.Request) {
	h.resolve(w, r, h.Ledger.Deny)
}

func (h *AdminHandler) resolve(w http.ResponseWriter, r *http.Request, fn func(context.Context, uuid.UUID, uuid.UUID) error) {
	acc := middleware.AccountFromCtx(r.Context())
	if acc == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, `{"error":"invalid request id"}`, http.StatusBadRequest)
		return
	}

	if err := fn(r.Context(), id, acc.ID); err != nil {
		switch {
		case errors.Is(err, ledger.ErrNotFound):
			http.Error(w, `{"error":"credit request not found"}`, http.StatusNotFound)
		case errors.Is(err, ledger.ErrConflict):
			http.Error(w, `{"error":"credit request already resolved"}`, http.StatusConflict)
		default:
			h.Logger.Error("resolve credit request", "request_id", id, "error", err)
			http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type banRequest struct {
	UserID string `json:"user_id"`
	Banned *bool  `json:"banned"`
}

// Ban handles POST /api/admin/ban: sets (or clears) an account's banned flag.
// Admins cannot ban themselves.
func (h *AdminHandler) Ban(w http.ResponseWriter, r *http.Request) {
	acc := middleware.AccountFromCtx(r.Context())
	if acc == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}

	var req banRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	target, err := uuid.Parse(req.UserID)
	if err != nil {
		http.Error(w, `{"error":"invalid user_id"}`, http.StatusBadRequest)
		return
	}
	if target == acc.ID {
		http.Error(w, `{"error":"cannot ban yourself"}`, http.StatusBadRequest)
		return
	}
	banned := true
	if req.Banned != nil {
		banned = *req.Banned
	}

	if err := h.Accounts.SetBanned(r.Context(), target, banned); err != nil {
		h.Logger.Error("set banned", "user_id", target, "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
