package models

// AccountSummary represents aggregate figures over a user's ledger
type AccountSummary struct {
	TotalSpent         float64      `json:"total_spent"`
	TransactionCount   int          `json:"transaction_count"`
	ActiveLoans        int          `json:"active_loans"`
	OutstandingBalance float64      `json:"outstanding_balance"` // MonthlyPayment * TermRemaining over active loans
	LastTransaction    *Transaction `json:"last_transaction,omitempty"`
}

// MonthlySummary represents a user's transactions for one calendar month
type MonthlySummary struct {
	Year         int           `json:"year"`
	Month        int           `json:"month"` // 1-indexed
	Transactions []Transaction `json:"transactions"`
	TotalAmount  float64       `json:"total_amount"`
}
