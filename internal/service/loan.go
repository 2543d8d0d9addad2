package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/bassline/ledger-service/internal/models"
	"github.com/bassline/ledger-service/internal/store"
	"github.com/google/uuid"
)

// newLoan builds an active loan without persisting it. Inputs are assumed
// validated by the caller.
func (s *Service) newLoan(userID, transactionID string, principal, interestRate float64, termMonths int) *models.Loan {
	interest := principal * interestRate
	totalAmount := principal + interest
	now := s.now()

	return &models.Loan{
		ID:              uuid.NewString(),
		UserID:          userID,
		TransactionID:   transactionID,
		OriginalAmount:  principal,
		TotalAmount:     totalAmount,
		InterestRate:    interestRate,
		MonthlyPayment:  totalAmount / float64(termMonths),
		Term:            termMonths,
		TermRemaining:   termMonths,
		Status:          models.LoanActive,
		StartDate:       now,
		NextPaymentDate: now.AddDate(0, 1, 0),
		Payments:        []models.Payment{},
	}
}

// OpenLoan derives a fixed-payment repayment schedule from an installment
// transaction and persists it. No rounding to currency minor units happens
// here; presentation rounds at the boundary.
func (s *Service) OpenLoan(userID, transactionID string, principal, interestRate float64, termMonths int) (*models.Loan, error) {
	if termMonths < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidTerm, termMonths)
	}
	if principal < 0 {
		return nil, fmt.Errorf("%w: principal %.2f", ErrInvalidAmount, principal)
	}
	if interestRate < 0 {
		return nil, fmt.Errorf("%w: interest rate %.4f", ErrInvalidAmount, interestRate)
	}

	loan := s.newLoan(userID, transactionID, principal, interestRate, termMonths)
	if err := s.store.SaveLoan(loan); err != nil {
		return nil, err
	}

	s.log.Infof("Loan %s opened for user %s: %.2f over %d months", loan.ID, userID, loan.TotalAmount, termMonths)
	return loan, nil
}

// ApplyPayment records a payment against a loan. The amount is kept verbatim
// and never checked against the monthly payment: the payment count alone
// drives schedule progress, so the remaining term drops by exactly 1 per
// call. The loan completes when the remaining term reaches zero; paying a
// completed loan fails with ErrLoanCompleted.
func (s *Service) ApplyPayment(loanID string, amount float64) error {
	var remaining int
	err := s.store.UpdateLoan(loanID, func(loan *models.Loan) error {
		if loan.Status == models.LoanCompleted {
			return fmt.Errorf("%w: loan %s", ErrLoanCompleted, loanID)
		}

		loan.Payments = append(loan.Payments, models.Payment{Date: s.now(), Amount: amount})
		loan.TermRemaining--
		if loan.TermRemaining <= 0 {
			loan.TermRemaining = 0
			loan.Status = models.LoanCompleted
		} else {
			loan.NextPaymentDate = loan.NextPaymentDate.AddDate(0, 1, 0)
		}
		remaining = loan.TermRemaining
		return nil
	})
	if errors.Is(err, store.ErrNotExist) {
		return fmt.Errorf("%w: loan %s", ErrNotFound, loanID)
	}
	if err != nil {
		return err
	}

	s.log.Infof("Payment of %.2f applied to loan %s, %d payments remaining", amount, loanID, remaining)
	return nil
}

// ActiveLoansForUser returns the user's active loans in storage order
func (s *Service) ActiveLoansForUser(userID string) ([]models.Loan, error) {
	loans, err := s.store.LoansByUser(userID)
	if err != nil {
		return nil, err
	}
	var active []models.Loan
	for _, l := range loans {
		if l.Status == models.LoanActive {
			active = append(active, l)
		}
	}
	return active, nil
}

// LoanByID retrieves one loan
func (s *Service) LoanByID(loanID string) (*models.Loan, error) {
	loan, err := s.store.FindLoanByID(loanID)
	if err != nil {
		return nil, err
	}
	if loan == nil {
		return nil, fmt.Errorf("%w: loan %s", ErrNotFound, loanID)
	}
	return loan, nil
}

// LoansDue returns active loans whose next payment falls due by the given
// time. Feeds the reminder job.
func (s *Service) LoansDue(by time.Time) ([]models.Loan, error) {
	loans, err := s.store.ListLoans()
	if err != nil {
		return nil, err
	}
	var due []models.Loan
	for _, l := range loans {
		if l.Status == models.LoanActive && !l.NextPaymentDate.After(by) {
			due = append(due, l)
		}
	}
	return due, nil
}
