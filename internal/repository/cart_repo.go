package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/siteulation/backend/internal/models"
)

// Browse sort orders.
const (
	SortRecent  = "recent"
	SortPopular = "popular"
)

// BrowseLimit caps public cart listings.
const BrowseLimit = 20

type CartRepo struct {
	pool *pgxpool.Pool
}

func NewCartRepo(pool *pgxpool.Pool) *CartRepo {
	return &CartRepo{pool: pool}
}

func (r *CartRepo) Create(ctx context.Context, c *models.Cart) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO carts (id, user_id, username, prompt, name, model, code, is_listed, views, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at, updated_at
	`, c.ID, c.UserID, c.Username, c.Prompt, c.Name, c.Model, c.Code, c.IsListed, c.Views, c.Status).Scan(&c.CreatedAt, &c.UpdatedAt)
}

// CreateTx inserts the cart inside the caller's transaction so it commits
// together with the credit debit and the generation job.
func (r *CartRepo) CreateTx(ctx context.Context, tx pgx.Tx, c *models.Cart) error {
	return tx.QueryRow(ctx, `
		INSERT INTO carts (id, user_id, username, prompt, name, model, code, is_listed, views, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at, updated_at
	`, c.ID, c.UserID, c.Username, c.Prompt, c.Name, c.Model, c.Code, c.IsListed, c.Views, c.Status).Scan(&c.CreatedAt, &c.UpdatedAt)
}

func (r *CartRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Cart, error) {
	var c models.Cart
	err := r.pool.QueryRow(ctx, `
		SELECT id, user_id, username, prompt, name, model, code, is_listed, views, status, created_at, updated_at
		FROM carts WHERE id = $1
	`, id).Scan(&c.ID, &c.UserID, &c.Username, &c.Prompt, &c.Name, &c.Model, &c.Code, &c.IsListed, &c.Views, &c.Status, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// UpdateMeta sets the owner-editable fields.
func (r *CartRepo) UpdateMeta(ctx context.Context, id uuid.UUID, name string, isListed bool) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE carts SET name = $2, is_listed = $3, updated_at = now() WHERE id = $1
	`, id, name, isListed)
	return err
}

// SetResult records the worker's outcome: generated code and terminal status.
func (r *CartRepo) SetResult(ctx context.Context, id uuid.UUID, code, status string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE carts SET code = $2, status = $3, updated_at = now() WHERE id = $1
	`, id, code, status)
	return err
}

// MarkFailedTx flips a generating cart to failed inside tx. The guarded
// transition reports whether this call resolved the cart; a re-delivered job
// sees false and must not refund again.
func (r *CartRepo) MarkFailedTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) (bool, error) {
	tag, err := tx.Exec(ctx, `
		UPDATE carts SET code = '', status = 'failed', updated_at = now()
		WHERE id = $1 AND status = 'generating'
	`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *CartRepo) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, "DELETE FROM carts WHERE id = $1", id)
	return err
}

// IncrementViews bumps the view counter. Lost increments under crash are
// acceptable; the counter is advisory.
func (r *CartRepo) IncrementViews(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, "UPDATE carts SET views = views + 1 WHERE id = $1", id)
	return err
}

// ListPublic returns listed, ready carts in the requested order.
func (r *CartRepo) ListPublic(ctx context.Context, sort string) ([]*models.Cart, error) {
	order := "created_at DESC"
	if sort == SortPopular {
		order = "views DESC, created_at DESC"
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, username, prompt, name, model, code, is_listed, views, status, created_at, updated_at
		FROM carts WHERE is_listed AND status = 'ready' ORDER BY `+order+` LIMIT $1
	`, BrowseLimit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanCarts(rows)
}

func (r *CartRepo) ListByOwner(ctx context.Context, userID uuid.UUID) ([]*models.Cart, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, username, prompt, name, model, code, is_listed, views, status, created_at, updated_at
		FROM carts WHERE user_id = $1 ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanCarts(rows)
}

func scanCarts(rows pgx.Rows) ([]*models.Cart, error) {
	var list []*models.Cart
	for rows.Next() {
		var c models.Cart
		if err := rows.Scan(&c.ID, &c.UserID, &c.Username, &c.Prompt, &c.Name, &c.Model, &c.Code, &c.IsListed, &c.Views, &c.Status, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, &c)
	}
	return list, rows.Err()
}
