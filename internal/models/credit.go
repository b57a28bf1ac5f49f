package models

import (
	"time"

	"github.com/google/uuid"
)

// CreditsPerUSD is the fixed top-up conversion rate: credits granted per
// dollar of an approved request.
const CreditsPerUSD = 20

// Credit request states. Approved and denied are terminal; a request never
// leaves a terminal state and its credits are applied at most once.
const (
	RequestStatusPending  = "pending"
	RequestStatusApproved = "approved"
	RequestStatusDenied   = "denied"
)

// CreditRequest is a user-submitted funding claim awaiting admin resolution.
type CreditRequest struct {
	ID               uuid.UUID  `json:"id"`
	AccountID        uuid.UUID  `json:"account_id"`
	Username         string     `json:"username"`
	Cashtag          string     `json:"cashtag"`
	AmountUSDCents   int64      `json:"amount_usd_cents"`
	CreditsRequested int        `json:"credits_requested"`
	Status           string     `json:"status"`
	ResolvedBy       *uuid.UUID `json:"resolved_by,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	ResolvedAt       *time.Time `json:"resolved_at,omitempty"`
}

// Credit ledger entry types.
const (
	CreditEntryGenerationDebit  = "generation_debit"
	CreditEntryGenerationRefund = "generation_refund"
	CreditEntryTopupCredit      = "topup_credit"
	CreditEntryAllowanceReset   = "allowance_reset"
)

// CreditLedger records every balance mutation on an account.
type CreditLedger struct {
	ID           uuid.UUID  `json:"id"`
	AccountID    uuid.UUID  `json:"account_id"`
	CartID       *uuid.UUID `json:"cart_id,omitempty"`
	RequestID    *uuid.UUID `json:"request_id,omitempty"`
	EntryType    string     `json:"entry_type"`
	Amount       int        `json:"amount"`
	BalanceAfter *int       `json:"balance_after,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}
