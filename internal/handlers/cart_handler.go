package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/siteulation/backend/internal/bundle"
	"github.com/siteulation/backend/internal/middleware"
	"github.com/siteulation/backend/internal/models"
	"github.com/siteulation/backend/internal/repository"
	"github.com/siteulation/backend/internal/services"
)

// CartRepoForHandler is the cart repository subset the handler needs.
type CartRepoForHandler interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Cart, error)
	UpdateMeta(ctx context.Context, id uuid.UUID, name string, isListed bool) error
	Delete(ctx context.Context, id uuid.UUID) error
	IncrementViews(ctx context.Context, id uuid.UUID) error
	ListPublic(ctx context.Context, sort string) ([]*models.Cart, error)
	ListByOwner(ctx context.Context, userID uuid.UUID) ([]*models.Cart, error)
}

// CartHandler serves the /api/carts endpoints.
type CartHandler struct {
	Carts     CartRepoForHandler
	Validator *services.Validator
	Logger    *slog.Logger
}

func NewCartHandler(carts CartRepoForHandler, validator *services.Validator, logger *slog.Logger) *CartHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &CartHandler{Carts: carts, Validator: validator, Logger: logger}
}

// List handles GET /api/carts?sort=recent|popular. Public; listed carts only.
func (h *CartHandler) List(w http.ResponseWriter, r *http.Request) {
	sort := r.URL.Query().Get("sort")
	if sort == "" {
		sort = repository.SortRecent
	}
	if sort != repository.SortRecent && sort != repository.SortPopular {
		http.Error(w, `{"error":"sort must be recent or popular"}`, http.StatusBadRequest)
		return
	}
	carts, err := h.Carts.ListPublic(r.Context(), sort)
	if err != nil {
		h.Logger.Error("list carts", "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	if carts == nil {
		carts = []*models.Cart{}
	}
	writeJSON(w, http.StatusOK, carts)
}

// Mine handles GET /api/carts/mine. Requires auth; includes unlisted and
// in-flight carts.
func (h *CartHandler) Mine(w http.ResponseWriter, r *http.Request) {
	acc := middleware.AccountFromCtx(r.Context())
	if acc == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	carts, err := h.Carts.ListByOwner(r.Context(), acc.ID)
	if err != nil {
		h.Logger.Error("list own carts", "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	if carts == nil {
		carts = []*models.Cart{}
	}
	writeJSON(w, http.StatusOK, carts)
}

// Get handles GET /api/carts/{id}.
func (h *CartHandler) Get(w http.ResponseWriter, r *http.Request) {
	cart, ok := h.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, cart)
}

// View handles POST /api/carts/{id}/view. The increment is advisory; a
// failure is logged and the request still succeeds.
func (h *CartHandler) View(w http.ResponseWriter, r *http.Request) {
	id, ok := cartID(r)
	if !ok {
		http.Error(w, `{"error":"invalid cart id"}`, http.StatusBadRequest)
		return
	}
	if err := h.Carts.IncrementViews(r.Context(), id); err != nil {
		h.Logger.Warn("increment views", "cart_id", id, "error", err)
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type cartUpdateRequest struct {
	Name     *string `json:"name"`
	IsListed *bool   `json:"is_listed"`
}

// Update handles PATCH /api/carts/{id}. Owner or admin; name and is_listed
// only.
func (h *CartHandler) Update(w http.ResponseWriter, r *http.Request) {
	acc := middleware.AccountFromCtx(r.Context())
	if acc == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	cart, ok := h.lookup(w, r)
	if !ok {
		return
	}
	if cart.UserID != acc.ID && !acc.IsAdmin() {
		http.Error(w, `{"error":"not the cart owner"}`, http.StatusForbidden)
		return
	}

	payload, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, `{"error":"invalid body"}`, http.StatusBadRequest)
		return
	}
	if err := h.Validator.ValidateInput(r.Context(), services.SchemaCartUpdate, payload); err != nil {
		if errors.Is(err, services.ErrValidation) {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
			return
		}
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}

	var req cartUpdateRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	name := cart.Name
	if req.Name != nil {
		name = *req.Name
	}
	listed := cart.IsListed
	if req.IsListed != nil {
		listed = *req.IsListed
	}

	if err := h.Carts.UpdateMeta(r.Context(), cart.ID, name, listed); err != nil {
		h.Logger.Error("update cart", "cart_id", cart.ID, "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	cart.Name = name
	cart.IsListed = listed
	writeJSON(w, http.StatusOK, cart)
}

// Delete handles DELETE /api/carts/{id}. Admin only (enforced by route
// middleware).
func (h *CartHandler) Delete(w http.ResponseWriter, r *http.Request) {
	cart, ok := h.lookup(w, r)
	if !ok {
		return
	}
	if err := h.Carts.Delete(r.Context(), cart.ID); err != nil {
		h.Logger.Error("delete cart", "cart_id", cart.ID, "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// Bundle handles GET /api/carts/{id}/bundle: the cart's project inlined into
// a single HTML document for iframe preview.
func (h *CartHandler) Bundle(w http.ResponseWriter, r *http.Request) {
	cart, ok := h.lookup(w, r)
	if !ok {
		return
	}
	if cart.Status != models.CartStatusReady {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "cart is not ready", "status": cart.Status})
		return
	}
	html, err := bundle.Bundle(cart.Project())
	if err != nil {
		h.Logger.Error("bundle cart", "cart_id", cart.ID, "error", err)
		http.Error(w, `{"error":"bundle failed"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(html))
}

// --- helpers ---

func (h *CartHandler) lookup(w http.ResponseWriter, r *http.Request) (*models.Cart, bool) {
	id, ok := cartID(r)
	if !ok {
		http.Error(w, `{"error":"invalid cart id"}`, http.StatusBadRequest)
		return nil, false
	}
	cart, err := h.Carts.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			http.Error(w, `{"error":"cart not found"}`, http.StatusNotFound)
			return nil, false
		}
		h.Logger.Error("get cart", "cart_id", id, "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return nil, false
	}
	return cart, true
}

func cartID(r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}
