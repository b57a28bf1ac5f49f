package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/siteulation/backend/internal/middleware"
	"github.com/siteulation/backend/internal/models"
	"github.com/siteulation/backend/internal/services"
)

// --- CartRepoForHandler mock ---

type mockCartRepo struct {
	carts   map[uuid.UUID]*models.Cart
	deleted []uuid.UUID
	views   map[uuid.UUID]int
}

func newMockCartRepo(carts ...*models.Cart) *mockCartRepo {
	m := &mockCartRepo{carts: make(map[uuid.UUID]*models.Cart), views: make(map[uuid.UUID]int)}
	for _, c := range carts {
		m.carts[c.ID] = c
	}
	return m
}

func (m *mockCartRepo) GetByID(_ context.Context, id uuid.UUID) (*models.Cart, error) {
	c, ok := m.carts[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *c
	return &cp, nil
}

func (m *mockCartRepo) UpdateMeta(_ context.Context, id uuid.UUID, name string, isListed bool) error {
	c, ok := m.carts[id]
	if !ok {
		return pgx.ErrNoRows
	}
	c.Name = name
	c.IsListed = isListed
	return nil
}

func (m *mockCartRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(m.carts, id)
	m.deleted = append(m.deleted, id)
	return nil
}

func (m *mockCartRepo) IncrementViews(_ context.Context, id uuid.UUID) error {
	m.views[id]++
	return nil
}

func (m *mockCartRepo) ListPublic(_ context.Context, _ string) ([]*models.Cart, error) {
	var out []*models.Cart
	for _, c := range m.carts {
		if c.IsListed && c.Status == models.CartStatusReady {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *mockCartRepo) ListByOwner(_ context.Context, userID uuid.UUID) ([]*models.Cart, error) {
	var out []*models.Cart
	for _, c := range m.carts {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	return out, nil
}

// --- helpers ---

func testSchemasDir(t *testing.T) string {
	t.Helper()
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("cannot determine test file path")
	}
	return filepath.Join(filepath.Dir(file), "..", "..", "schemas")
}

func newTestValidator(t *testing.T) *services.Validator {
	t.Helper()
	v, err := services.NewValidator(context.Background(), testSchemasDir(t))
	if err != nil {
		t.Fatalf("NewValidator: %v", err)
	}
	return v
}

func withAccount(req *http.Request, acc *models.Account) *http.Request {
	return req.WithContext(middleware.WithAccount(req.Context(), acc))
}

func readyCart(owner uuid.UUID, code string) *models.Cart {
	return &models.Cart{
		ID:       uuid.New(),
		UserID:   owner,
		Username: "alice",
		Name:     "Timer",
		Model:    models.ModelGemini25,
		Code:     code,
		IsListed: true,
		Status:   models.CartStatusReady,
	}
}

// --- tests ---

func TestCartList_BadSort(t *testing.T) {
	h := NewCartHandler(newMockCartRepo(), newTestValidator(t), nil)

	req := httptest.NewRequest(http.MethodGet, "/api/carts?sort=hot", nil)
	rec := httptest.NewRecorder()
	h.List(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestCartList_ListedReadyOnly(t *testing.T) {
	owner := uuid.New()
	listed := readyCart(owner, "<h1>ok</h1>")
	hidden := readyCart(owner, "<h1>hidden</h1>")
	hidden.IsListed = false
	pending := readyCart(owner, "")
	pending.Status = models.CartStatusGenerating

	h := NewCartHandler(newMockCartRepo(listed, hidden, pending), newTestValidator(t), nil)

	req := httptest.NewRequest(http.MethodGet, "/api/carts", nil)
	rec := httptest.NewRecorder()
	h.List(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var got []*models.Cart
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(got) != 1 || got[0].ID != listed.ID {
		t.Errorf("expected only the listed ready cart, got %d carts", len(got))
	}
}

func TestCartGet_NotFound(t *testing.T) {
	h := NewCartHandler(newMockCartRepo(), newTestValidator(t), nil)

	req := httptest.NewRequest(http.MethodGet, "/api/carts/x", nil)
	req.SetPathValue("id", uuid.New().String())
	rec := httptest.NewRecorder()
	h.Get(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestCartUpdate_OwnerOnly(t *testing.T) {
	owner := uuid.New()
	cart := readyCart(owner, "<h1>ok</h1>")
	repo := newMockCartRepo(cart)
	h := NewCartHandler(repo, newTestValidator(t), nil)

	body := `{"name":"Renamed","is_listed":false}`

	// A stranger is rejected.
	stranger := &models.Account{ID: uuid.New(), Role: models.RoleUser}
	req := httptest.NewRequest(http.MethodPatch, "/api/carts/x", strings.NewReader(body))
	req.SetPathValue("id", cart.ID.String())
	rec := httptest.NewRecorder()
	h.Update(rec, withAccount(req, stranger))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("stranger: expected 403, got %d", rec.Code)
	}

	// The owner succeeds.
	req = httptest.NewRequest(http.MethodPatch, "/api/carts/x", strings.NewReader(body))
	req.SetPathValue("id", cart.ID.String())
	rec = httptest.NewRecorder()
	h.Update(rec, withAccount(req, &models.Account{ID: owner, Role: models.RoleUser}))
	if rec.Code != http.StatusOK {
		t.Fatalf("owner: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if repo.carts[cart.ID].Name != "Renamed" || repo.carts[cart.ID].IsListed {
		t.Error("update not applied")
	}

	// An admin may edit someone else's cart.
	admin := &models.Account{ID: uuid.New(), Role: models.RoleAdmin}
	req = httptest.NewRequest(http.MethodPatch, "/api/carts/x", strings.NewReader(`{"is_listed":true}`))
	req.SetPathValue("id", cart.ID.String())
	rec = httptest.NewRecorder()
	h.Update(rec, withAccount(req, admin))
	if rec.Code != http.StatusOK {
		t.Errorf("admin: expected 200, got %d", rec.Code)
	}
}

func TestCartUpdate_RejectsUnknownFields(t *testing.T) {
	owner := uuid.New()
	cart := readyCart(owner, "<h1>ok</h1>")
	h := NewCartHandler(newMockCartRepo(cart), newTestValidator(t), nil)

	req := httptest.NewRequest(http.MethodPatch, "/api/carts/x", strings.NewReader(`{"views":9999}`))
	req.SetPathValue("id", cart.ID.String())
	rec := httptest.NewRecorder()
	h.Update(rec, withAccount(req, &models.Account{ID: owner}))

	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected 422, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestCartView_Increments(t *testing.T) {
	cart := readyCart(uuid.New(), "<h1>ok</h1>")
	repo := newMockCartRepo(cart)
	h := NewCartHandler(repo, newTestValidator(t), nil)

	req := httptest.NewRequest(http.MethodPost, "/api/carts/x/view", nil)
	req.SetPathValue("id", cart.ID.String())
	rec := httptest.NewRecorder()
	h.View(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if repo.views[cart.ID] != 1 {
		t.Errorf("views: got %d, want 1", repo.views[cart.ID])
	}
}

func TestCartBundle(t *testing.T) {
	project := `[{"name":"index.html","content":"<link rel=\"stylesheet\" href=\"s.css\"><h1>hi</h1>"},{"name":"s.css","content":"h1{color:red}"}]`
	cart := readyCart(uuid.New(), project)
	h := NewCartHandler(newMockCartRepo(cart), newTestValidator(t), nil)

	req := httptest.NewRequest(http.MethodGet, "/api/carts/x/bundle", nil)
	req.SetPathValue("id", cart.ID.String())
	rec := httptest.NewRecorder()
	h.Bundle(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("content type: got %q", ct)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "<style>\nh1{color:red}\n</style>") {
		t.Errorf("stylesheet not inlined: %s", body)
	}
}

func TestCartBundle_NotReady(t *testing.T) {
	cart := readyCart(uuid.New(), "")
	cart.Status = models.CartStatusGenerating
	h := NewCartHandler(newMockCartRepo(cart), newTestValidator(t), nil)

	req := httptest.NewRequest(http.MethodGet, "/api/carts/x/bundle", nil)
	req.SetPathValue("id", cart.ID.String())
	rec := httptest.NewRecorder()
	h.Bundle(rec, req)

	if rec.Code != http.StatusConflict {
		t.Errorf("expected 409, got %d", rec.Code)
	}
}
