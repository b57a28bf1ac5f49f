package ledger

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/siteulation/backend/internal/models"
)

// RequestRepo persists credit requests in Postgres.
type RequestRepo struct {
	pool *pgxpool.Pool
}

func NewRequestRepo(pool *pgxpool.Pool) *RequestRepo {
	return &RequestRepo{pool: pool}
}

func (r *RequestRepo) Create(ctx context.Context, req *models.CreditRequest) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO credit_requests (id, account_id, username, cashtag, amount_usd_cents, credits_requested, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`, req.ID, req.AccountID, req.Username, req.Cashtag, req.AmountUSDCents, req.CreditsRequested, req.Status).Scan(&req.CreatedAt)
}

// GetByIDForUpdate locks the request row for update. Call within a transaction.
func (r *RequestRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.CreditRequest, error) {
	var req models.CreditRequest
	err := tx.QueryRow(ctx, `
		SELECT id, account_id, username, cashtag, amount_usd_cents, credits_requested, status, resolved_by, created_at, resolved_at
		FROM credit_requests WHERE id = $1 FOR UPDATE
	`, id).Scan(&req.ID, &req.AccountID, &req.Username, &req.Cashtag, &req.AmountUSDCents, &req.CreditsRequested, &req.Status, &req.ResolvedBy, &req.CreatedAt, &req.ResolvedAt)
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *RequestRepo) MarkResolved(ctx context.Context, tx pgx.Tx, id uuid.UUID, status string, adminID uuid.UUID) error {
	_, err := tx.Exec(ctx, `
		UPDATE credit_requests SET status = $2, resolved_by = $3, resolved_at = now()
		WHERE id = $1
	`, id, status, adminID)
	return err
}

func (r *RequestRepo) ListByStatus(ctx context.Context, status string) ([]*models.CreditRequest, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, account_id, username, cashtag, amount_usd_cents, credits_requested, status, resolved_by, created_at, resolved_at
		FROM credit_requests WHERE status = $1 ORDER BY created_at ASC
	`, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.CreditRequest
	for rows.Next() {
		var req models.CreditRequest
		if err := rows.Scan(&req.ID, &req.AccountID, &req.Username, &req.Cashtag, &req.AmountUSDCents, &req.CreditsRequested, &req.Status, &req.ResolvedBy, &req.CreatedAt, &req.ResolvedAt); err != nil {
			return nil, err
		}
		list = append(list, &req)
	}
	return list, rows.Err()
}

// EntryRepo appends credit ledger rows in Postgres.
type EntryRepo struct {
	pool *pgxpool.Pool
}

func NewEntryRepo(pool *pgxpool.Pool) *EntryRepo {
	return &EntryRepo{pool: pool}
}

func (r *EntryRepo) CreateTx(ctx context.Context, tx pgx.Tx, entry *models.CreditLedger) error {
	return tx.QueryRow(ctx, `
		INSERT INTO credit_ledger (id, account_id, cart_id, request_id, entry_type, amount, balance_after)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`, entry.ID, entry.AccountID, entry.CartID, entry.RequestID, entry.EntryType, entry.Amount, entry.BalanceAfter).Scan(&entry.CreatedAt)
}

func (r *EntryRepo) ListByAccount(ctx context.Context, accountID uuid.UUID, limit int) ([]*models.CreditLedger, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, account_id, cart_id, request_id, entry_type, amount, balance_after, created_at
		FROM credit_ledger WHERE account_id = $1 ORDER BY created_at DESC LIMIT $2
	`, accountID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.CreditLedger
	for rows.Next() {
		var e models.CreditLedger
		if err := rows.Scan(&e.ID, &e.AccountID, &e.CartID, &e.RequestID, &e.EntryType, &e.Amount, &e.BalanceAfter, &e.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, &e)
	}
	return list, rows.Err()
}
