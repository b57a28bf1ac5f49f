package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/siteulation/backend/internal/models"
)

type AccountRepo struct {
	pool *pgxpool.Pool
}

func NewAccountRepo(pool *pgxpool.Pool) *AccountRepo {
	return &AccountRepo{pool: pool}
}

func (r *AccountRepo) Create(ctx context.Context, a *models.Account) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO accounts (id, email, username, password_hash, role, is_banned, credit_balance, subscription_tier)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at
	`, a.ID, a.Email, a.Username, a.PasswordHash, a.Role, a.IsBanned, a.CreditBalance, a.SubscriptionTier).Scan(&a.CreatedAt, &a.UpdatedAt)
}

func (r *AccountRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	var a models.Account
	err := r.pool.QueryRow(ctx, `
		SELECT id, email, username, password_hash, role, is_banned, credit_balance, subscription_tier, created_at, updated_at
		FROM accounts WHERE id = $1
	`, id).Scan(&a.ID, &a.Email, &a.Username, &a.PasswordHash, &a.Role, &a.IsBanned, &a.CreditBalance, &a.SubscriptionTier, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *AccountRepo) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	var a models.Account
	err := r.pool.QueryRow(ctx, `
		SELECT id, email, username, password_hash, role, is_banned, credit_balance, subscription_tier, created_at, updated_at
		FROM accounts WHERE email = $1
	`, email).Scan(&a.ID, &a.Email, &a.Username, &a.PasswordHash, &a.Role, &a.IsBanned, &a.CreditBalance, &a.SubscriptionTier, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *AccountRepo) GetByUsername(ctx context.Context, username string) (*models.Account, error) {
	var a models.Account
	err := r.pool.QueryRow(ctx, `
		SELECT id, email, username, password_hash, role, is_banned, credit_balance, subscription_tier, created_at, updated_at
		FROM accounts WHERE username = $1
	`, username).Scan(&a.ID, &a.Email, &a.Username, &a.PasswordHash, &a.Role, &a.IsBanned, &a.CreditBalance, &a.SubscriptionTier, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *AccountRepo) SetBanned(ctx context.Context, id uuid.UUID, banned bool) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE accounts SET is_banned = $2, updated_at = now() WHERE id = $1
	`, id, banned)
	return err
}

// DeductCredits atomically deducts amount from account if balance >= amount. Returns new balance or error.
func (r *AccountRepo) DeductCredits(ctx context.Context, tx pgx.Tx, id uuid.UUID, amount int) (newBalance int, err error) {
	err = tx.QueryRow(ctx, `
		UPDATE accounts SET credit_balance = credit_balance - $1, updated_at = now()
		WHERE id = $2 AND credit_balance >= $1
		RETURNING credit_balance
	`, amount, id).Scan(&newBalance)
	return newBalance, err
}

// AddCredits adds amount to account and returns new balance.
func (r *AccountRepo) AddCredits(ctx context.Context, tx pgx.Tx, id uuid.UUID, amount int) (newBalance int, err error) {
	err = tx.QueryRow(ctx, `
		UPDATE accounts SET credit_balance = credit_balance + $1, updated_at = now()
		WHERE id = $2
		RETURNING credit_balance
	`, amount, id).Scan(&newBalance)
	return newBalance, err
}

// ResetFreeBalances tops every free-tier account below the allowance back up
// to it and records an allowance_reset ledger entry per account, in one
// statement so a crash cannot leave a reset without its entry.
func (r *AccountRepo) ResetFreeBalances(ctx context.Context, allowance int) (int64, error) {
	var n int64
	err := r.pool.QueryRow(ctx, `
		WITH reset AS (
			UPDATE accounts SET credit_balance = $1, updated_at = now()
			WHERE subscription_tier = 'free' AND credit_balance < $1
			RETURNING id
		), logged AS (
			INSERT INTO credit_ledger (id, account_id, entry_type, amount, balance_after)
			SELECT gen_random_uuid(), id, 'allowance_reset', $1, $1 FROM reset
			RETURNING 1
		)
		SELECT count(*) FROM logged
	`, allowance).Scan(&n)
	return n, err
}
