package models

import "time"

// Payment methods accepted for a transaction.
const (
	MethodFull        = "full"
	MethodInstallment = "installment"
	MethodBank        = "bank"
)

// Transaction statuses known to the engine. Integrators may set further
// terminal states through SetTransactionStatus.
const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
)

// Transaction represents a purchase recorded against a user. Only Status
// and the late-attached BankReference change after creation.
type Transaction struct {
	ID            string    `json:"id"`
	UserID        string    `json:"user_id"`
	Service       string    `json:"service"`
	Amount        float64   `json:"amount"`
	Method        string    `json:"method"`
	Term          int       `json:"term"`
	InterestRate  float64   `json:"interest_rate"`
	Status        string    `json:"status"`
	BankReference string    `json:"bank_reference,omitempty"` // Only for bank-method transactions
	CreatedAt     time.Time `json:"created_at"`
}
