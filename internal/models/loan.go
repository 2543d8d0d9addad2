package models

import "time"

// Loan statuses.
const (
	LoanActive    = "active"
	LoanCompleted = "completed"
)

// Payment is a single repayment applied to a loan
type Payment struct {
	Date   time.Time `json:"date"`
	Amount float64   `json:"amount"`
}

// Loan represents an amortizing loan derived from an installment transaction.
// TotalAmount = OriginalAmount * (1 + InterestRate) and
// MonthlyPayment = TotalAmount / Term; TermRemaining counts payments not yet
// applied, so len(Payments) == Term - TermRemaining at all times.
type Loan struct {
	ID              string    `json:"id"`
	UserID          string    `json:"user_id"`
	TransactionID   string    `json:"transaction_id"`
	OriginalAmount  float64   `json:"original_amount"`
	TotalAmount     float64   `json:"total_amount"`
	InterestRate    float64   `json:"interest_rate"`
	MonthlyPayment  float64   `json:"monthly_payment"`
	Term            int       `json:"term"`
	TermRemaining   int       `json:"term_remaining"`
	Status          string    `json:"status"`
	StartDate       time.Time `json:"start_date"`
	NextPaymentDate time.Time `json:"next_payment_date"`
	Payments        []Payment `json:"payments"`
}
