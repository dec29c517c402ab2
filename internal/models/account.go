package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account types form a closed enumeration; the database enforces at most one
// account per (user, type) pair.
const (
	AccountTypeChecking = "checking"
	AccountTypeSavings  = "savings"
)

// Account statuses. Only active accounts may source or receive money.
const (
	AccountStatusPending  = "pending"
	AccountStatusActive   = "active"
	AccountStatusInactive = "inactive"
)

// Account represents a bank account
type Account struct {
	ID            int64           `json:"id"`
	UserID        int64           `json:"user_id"`
	AccountNumber string          `json:"account_number"`
	AccountType   string          `json:"account_type"`
	Balance       decimal.Decimal `json:"balance"`
	Status        string          `json:"status"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// ValidAccountType reports whether t is a known account type.
func ValidAccountType(t string) bool {
	return t == AccountTypeChecking || t == AccountTypeSavings
}
