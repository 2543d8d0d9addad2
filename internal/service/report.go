package service

import (
	"github.com/bassline/ledger-service/internal/models"
)

// AccountSummary aggregates a user's ledger: total spent across all
// transactions, active loan count and the outstanding balance as
// MonthlyPayment * TermRemaining over active loans (an approximation of
// remaining principal plus interest, not a present-value figure).
func (s *Service) AccountSummary(userID string) (*models.AccountSummary, error) {
	transactions, err := s.store.TransactionsByUser(userID)
	if err != nil {
		return nil, err
	}
	activeLoans, err := s.ActiveLoansForUser(userID)
	if err != nil {
		return nil, err
	}

	summary := &models.AccountSummary{
		TransactionCount: len(transactions),
		ActiveLoans:      len(activeLoans),
	}
	for _, t := range transactions {
		summary.TotalSpent += t.Amount
	}
	for _, l := range activeLoans {
		summary.OutstandingBalance += l.MonthlyPayment * float64(l.TermRemaining)
	}
	if len(transactions) > 0 {
		last := transactions[len(transactions)-1]
		summary.LastTransaction = &last
	}
	return summary, nil
}

// MonthlySummary returns the user's transactions whose creation timestamp
// falls in the given calendar month, with their summed amount. Month is
// 1-indexed.
func (s *Service) MonthlySummary(userID string, year, month int) (*models.MonthlySummary, error) {
	transactions, err := s.store.TransactionsByUser(userID)
	if err != nil {
		return nil, err
	}

	summary := &models.MonthlySummary{
		Year:         year,
		Month:        month,
		Transactions: []models.Transaction{},
	}
	for _, t := range transactions {
		y, m, _ := t.CreatedAt.Date()
		if y == year && int(m) == month {
			summary.Transactions = append(summary.Transactions, t)
			summary.TotalAmount += t.Amount
		}
	}
	return summary, nil
}
