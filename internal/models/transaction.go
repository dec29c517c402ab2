package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction types. The sign of a movement is implied by its type; amounts
// are always positive.
const (
	TransactionTypeWithdrawal = "withdrawal"
	TransactionTypeDeposit    = "deposit"
)

// Transaction statuses. Entries are written already completed because all
// validation happens before the first ledger insert; "failed" exists for
// collaborators that mark entries after the fact.
const (
	TransactionStatusPending   = "pending"
	TransactionStatusCompleted = "completed"
	TransactionStatusFailed    = "failed"
)

// Transaction represents a single ledger entry tied to exactly one account.
// A transfer produces two entries, one per side.
type Transaction struct {
	ID          int64           `json:"id"`
	AccountID   int64           `json:"account_id"`
	Type        string          `json:"type"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	Status      string          `json:"status"`
	CreatedAt   time.Time       `json:"created_at"`
	ProcessedAt *time.Time      `json:"processed_at,omitempty"`

	// AccountType is joined in at read time and reflects the owning
	// account's current type, not the type at transaction time.
	AccountType string `json:"account_type,omitempty"`
}
