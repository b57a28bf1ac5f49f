package models

import (
	"time"

	"github.com/google/uuid"
)

// Account roles.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Subscription tiers. Free-tier accounts are topped back up to the daily
// allowance by the periodic reset job; supporters keep whatever they buy.
const (
	TierFree      = "free"
	TierSupporter = "supporter"
)

// DailyAllowanceCredits is the balance free-tier accounts are reset to.
const DailyAllowanceCredits = 5

type Account struct {
	ID               uuid.UUID `json:"id"`
	Email            string    `json:"email"`
	Username         string    `json:"username"`
	PasswordHash     string    `json:"-"`
	Role             string    `json:"role"`
	IsBanned         bool      `json:"is_banned"`
	CreditBalance    int       `json:"credit_balance"`
	SubscriptionTier string    `json:"subscription_tier"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// IsAdmin reports whether the account may use moderation endpoints.
func (a *Account) IsAdmin() bool { return a.Role == RoleAdmin }
