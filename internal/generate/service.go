// Package generate owns the LLM generation pipeline: request intake, the
// debit-and-enqueue transaction, and the background worker that calls the
// provider and stores the result.
package generate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/siteulation/backend/internal/models"
)

// ErrBanned is returned when a banned account attempts a generation.
var ErrBanned = errors.New("account is banned")

// TxBeginner abstracts transaction creation so tests don't need a pgxpool.Pool.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// CartStore is the cart surface the pipeline needs.
type CartStore interface {
	CreateTx(ctx context.Context, tx pgx.Tx, c *models.Cart) error
	SetResult(ctx context.Context, id uuid.UUID, code, status string) error
	// MarkFailedTx flips a generating cart to failed, reporting whether this
	// call performed the transition.
	MarkFailedTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) (bool, error)
}

// CreditLedger debits on enqueue and refunds on provider failure.
type CreditLedger interface {
	DebitTx(ctx context.Context, tx pgx.Tx, accountID, cartID uuid.UUID, amount int) error
	RefundTx(ctx context.Context, tx pgx.Tx, accountID, cartID uuid.UUID, amount int) error
}

// InputValidator rejects malformed request payloads at the boundary.
type InputValidator interface {
	ValidateInput(ctx context.Context, name string, payload json.RawMessage) error
}

// InsertJobTxFunc enqueues a generation job inside the caller's transaction.
type InsertJobTxFunc func(ctx context.Context, tx pgx.Tx, args GenerateCartArgs) error

// Request is the validated generation payload.
type Request struct {
	Prompt   string `json:"prompt"`
	Model    string `json:"model"`
	Name     string `json:"name"`
	IsListed *bool  `json:"is_listed"`
}

// Service accepts generation requests. The debit, the cart row and the job
// insert commit in one transaction; either the user is charged and a job
// exists, or neither.
type Service struct {
	DB        TxBeginner
	Carts     CartStore
	Ledger    CreditLedger
	Validator InputValidator
	InsertJob InsertJobTxFunc
	Logger    *slog.Logger
}

func NewService(db TxBeginner, carts CartStore, ledger CreditLedger, validator InputValidator, insertJob InsertJobTxFunc, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{DB: db, Carts: carts, Ledger: ledger, Validator: validator, InsertJob: insertJob, Logger: logger}
}

// Start validates the payload, charges the account and enqueues the
// generation. The returned cart is in status "generating".
func (s *Service) Start(ctx context.Context, acc *models.Account, payload json.RawMessage) (*models.Cart, error) {
	if acc.IsBanned {
		return nil, ErrBanned
	}
	if err := s.Validator.ValidateInput(ctx, "generate", payload); err != nil {
		return nil, err
	}

	var req Request
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, fmt.Errorf("decode generate payload: %w", err)
	}

	cost := models.CostForModel(req.Model)

	name := req.Name
	if name == "" {
		name = "Untitled"
	}
	listed := true
	if req.IsListed != nil {
		listed = *req.IsListed
	}

	cart := &models.Cart{
		ID:       uuid.New(),
		UserID:   acc.ID,
		Username: acc.Username,
		Prompt:   req.Prompt,
		Name:     name,
		Model:    req.Model,
		IsListed: listed,
		Status:   models.CartStatusGenerating,
	}

	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	if err := s.Ledger.DebitTx(ctx, tx, acc.ID, cart.ID, cost); err != nil {
		return nil, err
	}
	if err := s.Carts.CreateTx(ctx, tx, cart); err != nil {
		return nil, fmt.Errorf("create cart: %w", err)
	}
	if err := s.InsertJob(ctx, tx, GenerateCartArgs{
		CartID:    cart.ID,
		AccountID: acc.ID,
		Model:     req.Model,
		Prompt:    req.Prompt,
		Cost:      cost,
	}); err != nil {
		return nil, fmt.Errorf("enqueue generation: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	s.Logger.Info("generation queued", "cart_id", cart.ID, "model", req.Model, "cost", cost)
	return cart, nil
}
