package service

import (
	"errors"
	"fmt"

	"github.com/bassline/ledger-service/internal/models"
	"github.com/bassline/ledger-service/internal/store"
	"github.com/google/uuid"
)

// TransactionDetails carries the caller-supplied fields of a new transaction.
// Term and InterestRate are meaningful only for the installment method.
type TransactionDetails struct {
	Service      string  `json:"service"`
	Amount       float64 `json:"amount"`
	Method       string  `json:"method"`
	Term         int     `json:"term"`
	InterestRate float64 `json:"interest_rate"`
	Status       string  `json:"status"`
}

// bankReference derives the reconciliation tag for a bank-method transaction
// from the last 8 characters of its id.
func (s *Service) bankReference(transactionID string) string {
	suffix := transactionID
	if len(suffix) > 8 {
		suffix = suffix[len(suffix)-8:]
	}
	return fmt.Sprintf("%s-%s", s.config.ReferencePrefix, suffix)
}

// RecordTransaction appends one transaction for the user. A bank-method
// transaction gets a deterministic bank reference; an installment transaction
// additionally opens a linked loan, and both records are committed together.
// Validation happens before any write, so a failure leaves the store
// untouched. The user's balance is never changed here.
func (s *Service) RecordTransaction(userID string, details TransactionDetails) (*models.Transaction, error) {
	if details.Amount < 0 {
		return nil, fmt.Errorf("%w: amount %.2f", ErrInvalidAmount, details.Amount)
	}
	switch details.Method {
	case models.MethodFull, models.MethodBank:
	case models.MethodInstallment:
		if details.Term < 1 {
			return nil, fmt.Errorf("%w: %d", ErrInvalidTerm, details.Term)
		}
		if details.InterestRate <= 0 {
			return nil, fmt.Errorf("%w: interest rate %.4f", ErrInvalidAmount, details.InterestRate)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidMethod, details.Method)
	}

	status := details.Status
	if status == "" {
		status = models.StatusPending
	}

	tx := &models.Transaction{
		ID:           uuid.NewString(),
		UserID:       userID,
		Service:      details.Service,
		Amount:       details.Amount,
		Method:       details.Method,
		Term:         details.Term,
		InterestRate: details.InterestRate,
		Status:       status,
		CreatedAt:    s.now(),
	}

	if details.Method == models.MethodBank {
		tx.BankReference = s.bankReference(tx.ID)
	}

	if details.Method == models.MethodInstallment {
		loan := s.newLoan(userID, tx.ID, details.Amount, details.InterestRate, details.Term)
		if err := s.store.SaveTransactionWithLoan(tx, loan); err != nil {
			return nil, err
		}
		s.log.Infof("Transaction %s recorded with loan %s for user %s", tx.ID, loan.ID, userID)
		return tx, nil
	}

	if err := s.store.SaveTransaction(tx); err != nil {
		return nil, err
	}

	s.log.Infof("Transaction %s recorded for user %s (%s)", tx.ID, userID, tx.Method)
	return tx, nil
}

// SetTransactionStatus overwrites the status of a transaction, looked up
// across all users. The linked loan, if any, is not touched.
func (s *Service) SetTransactionStatus(transactionID, newStatus string) error {
	err := s.store.UpdateTransaction(transactionID, func(tx *models.Transaction) error {
		tx.Status = newStatus
		return nil
	})
	if errors.Is(err, store.ErrNotExist) {
		return fmt.Errorf("%w: transaction %s", ErrNotFound, transactionID)
	}
	if err != nil {
		return err
	}

	s.log.Infof("Transaction %s status set to %s", transactionID, newStatus)
	return nil
}

// TransactionsForUser returns the user's transactions in insertion order
func (s *Service) TransactionsForUser(userID string) ([]models.Transaction, error) {
	return s.store.TransactionsByUser(userID)
}
