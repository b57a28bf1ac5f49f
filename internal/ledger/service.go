// Package ledger owns the credit balance of every account and the top-up
// request moderation workflow. All balance mutations run under per-account
// serialization (row locks or conditional updates) and leave a credit_ledger
// entry, so a request is never credited twice and a balance never goes
// negative.
package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/siteulation/backend/internal/models"
)

var (
	// ErrInvalidAmount is returned when a top-up request is submitted for a
	// non-positive dollar amount.
	ErrInvalidAmount = errors.New("amount must be greater than zero")

	// ErrNotFound is returned when a request id does not exist.
	ErrNotFound = errors.New("credit request not found")

	// ErrConflict is returned when resolving a request that is already in a
	// terminal state. The caller is told nothing changed.
	ErrConflict = errors.New("credit request already resolved")

	// ErrInsufficientCredits is returned when a debit exceeds the balance.
	ErrInsufficientCredits = errors.New("insufficient credits")
)

// AccountStore is the minimal account surface the ledger needs.
type AccountStore interface {
	// AddCredits adds amount and returns the new balance.
	AddCredits(ctx context.Context, tx pgx.Tx, id uuid.UUID, amount int) (newBalance int, err error)
	// DeductCredits atomically deducts amount when the balance covers it,
	// returning ErrInsufficientCredits otherwise.
	DeductCredits(ctx context.Context, tx pgx.Tx, id uuid.UUID, amount int) (newBalance int, err error)
	// ResetFreeBalances tops free-tier accounts below allowance back up to it,
	// returning how many accounts were reset.
	ResetFreeBalances(ctx context.Context, allowance int) (int64, error)
}

// RequestStore persists credit requests.
type RequestStore interface {
	Create(ctx context.Context, req *models.CreditRequest) error
	// GetByIDForUpdate locks the request row for the duration of tx.
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.CreditRequest, error)
	MarkResolved(ctx context.Context, tx pgx.Tx, id uuid.UUID, status string, adminID uuid.UUID) error
	ListByStatus(ctx context.Context, status string) ([]*models.CreditRequest, error)
}

// EntryStore appends credit ledger entries.
type EntryStore interface {
	CreateTx(ctx context.Context, tx pgx.Tx, entry *models.CreditLedger) error
}

// TxBeginner abstracts transaction creation so tests don't need a pgxpool.Pool.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Service implements the credit ledger and moderation workflow.
type Service struct {
	DB       TxBeginner
	Accounts AccountStore
	Requests RequestStore
	Entries  EntryStore
}

// NewService returns a ledger service over the given stores.
func NewService(db TxBeginner, accounts AccountStore, requests RequestStore, entries EntryStore) *Service {
	return &Service{DB: db, Accounts: accounts, Requests: requests, Entries: entries}
}

// SubmitRequest records a pending top-up claim. Credits are computed from
// the fixed rate: floor(usd x CreditsPerUSD).
func (s *Service) SubmitRequest(ctx context.Context, accountID uuid.UUID, username, cashtag string, amountUSDCents int64) (*models.CreditRequest, error) {
	if amountUSDCents <= 0 {
		return nil, ErrInvalidAmount
	}
	req := &models.CreditRequest{
		ID:               uuid.New(),
		AccountID:        accountID,
		Username:         username,
		Cashtag:          cashtag,
		AmountUSDCents:   amountUSDCents,
		CreditsRequested: int(amountUSDCents * models.CreditsPerUSD / 100),
		Status:           models.RequestStatusPending,
	}
	if err := s.Requests.Create(ctx, req); err != nil {
		return nil, fmt.Errorf("create credit request: %w", err)
	}
	return req, nil
}

// ListPending returns unresolved requests, oldest first.
func (s *Service) ListPending(ctx context.Context) ([]*models.CreditRequest, error) {
	return s.Requests.ListByStatus(ctx, models.RequestStatusPending)
}

// Approve flips a pending request to approved and credits the requester in
// one transaction. The request row is locked before the status check, so a
// concurrent second click serializes behind the first and gets ErrConflict.
func (s *Service) Approve(ctx context.Context, requestID, adminID uuid.UUID) error {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	req, err := s.Requests.GetByIDForUpdate(ctx, tx, requestID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	if req.Status != models.RequestStatusPending {
		return ErrConflict
	}

	newBalance, err := s.Accounts.AddCredits(ctx, tx, req.AccountID, req.CreditsRequested)
	if err != nil {
		return fmt.Errorf("credit account: %w", err)
	}
	if err := s.Requests.MarkResolved(ctx, tx, requestID, models.RequestStatusApproved, adminID); err != nil {
		return fmt.Errorf("mark approved: %w", err)
	}
	if err := s.Entries.CreateTx(ctx, tx, &models.CreditLedger{
		ID:           uuid.New(),
		AccountID:    req.AccountID,
		RequestID:    &requestID,
		EntryType:    models.CreditEntryTopupCredit,
		Amount:       req.CreditsRequested,
		BalanceAfter: intPtr(newBalance),
	}); err != nil {
		return fmt.Errorf("ledger entry: %w", err)
	}
	return tx.Commit(ctx)
}

// Deny flips a pending request to denied. No balance change.
func (s *Service) Deny(ctx context.Context, requestID, adminID uuid.UUID) error {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	req, err := s.Requests.GetByIDForUpdate(ctx, tx, requestID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	if req.Status != models.RequestStatusPending {
		return ErrConflict
	}
	if err := s.Requests.MarkResolved(ctx, tx, requestID, models.RequestStatusDenied, adminID); err != nil {
		return fmt.Errorf("mark denied: %w", err)
	}
	return tx.Commit(ctx)
}

// DebitTx deducts a generation's cost inside the caller's transaction so the
// debit, the cart row, and the job insert commit together.
func (s *Service) DebitTx(ctx context.Context, tx pgx.Tx, accountID, cartID uuid.UUID, amount int) error {
	newBalance, err := s.Accounts.DeductCredits(ctx, tx, accountID, amount)
	if err != nil {
		// The conditional update matches zero rows when the balance is short.
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrInsufficientCredits
		}
		return err
	}
	return s.Entries.CreateTx(ctx, tx, &models.CreditLedger{
		ID:           uuid.New(),
		AccountID:    accountID,
		CartID:       &cartID,
		EntryType:    models.CreditEntryGenerationDebit,
		Amount:       amount,
		BalanceAfter: intPtr(newBalance),
	})
}

// Debit runs DebitTx in its own transaction.
func (s *Service) Debit(ctx context.Context, accountID, cartID uuid.UUID, amount int) error {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)
	if err := s.DebitTx(ctx, tx, accountID, cartID, amount); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// RefundTx returns a generation's cost inside the caller's transaction so the
// refund commits together with whatever made it necessary.
func (s *Service) RefundTx(ctx context.Context, tx pgx.Tx, accountID, cartID uuid.UUID, amount int) error {
	if amount <= 0 {
		return nil
	}
	newBalance, err := s.Accounts.AddCredits(ctx, tx, accountID, amount)
	if err != nil {
		return fmt.Errorf("refund account: %w", err)
	}
	if err := s.Entries.CreateTx(ctx, tx, &models.CreditLedger{
		ID:           uuid.New(),
		AccountID:    accountID,
		CartID:       &cartID,
		EntryType:    models.CreditEntryGenerationRefund,
		Amount:       amount,
		BalanceAfter: intPtr(newBalance),
	}); err != nil {
		return fmt.Errorf("ledger entry: %w", err)
	}
	return nil
}

// Refund runs RefundTx in its own transaction.
func (s *Service) Refund(ctx context.Context, accountID, cartID uuid.UUID, amount int) error {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)
	if err := s.RefundTx(ctx, tx, accountID, cartID, amount); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// ResetDailyAllowance tops free-tier accounts back up to the daily allowance.
func (s *Service) ResetDailyAllowance(ctx context.Context) (int64, error) {
	return s.Accounts.ResetFreeBalances(ctx, models.DailyAllowanceCredits)
}

func intPtr(n int) *int { return &n }
