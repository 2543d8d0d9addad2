package store

import (
	"errors"

	"github.com/bassline/ledger-service/internal/models"
)

// ErrNotExist is returned by Update methods when no record has the given id
var ErrNotExist = errors.New("record does not exist")

// Store is the record store behind the ledger engines: three keyed
// collections plus a single-slot current-session value. Implementations do
// pure data access; cross-collection rules live in the service layer.
//
// Find methods return (nil, nil) when no record matches so callers can
// translate absence into their own error taxonomy.
//
// Update methods run fn against the current record and persist the result
// inside one critical section, so the read-modify-write cycle never
// interleaves with another writer. They return ErrNotExist for an unknown id
// and leave the record untouched when fn fails.
type Store interface {
	SaveUser(user *models.User) error
	FindUserByID(id string) (*models.User, error)
	FindUserByEmail(email string) (*models.User, error)
	ListUsers() ([]models.User, error)
	UpdateUser(id string, fn func(*models.User) error) error

	SaveTransaction(tx *models.Transaction) error
	FindTransactionByID(id string) (*models.Transaction, error)
	TransactionsByUser(userID string) ([]models.Transaction, error)
	ListTransactions() ([]models.Transaction, error)
	UpdateTransaction(id string, fn func(*models.Transaction) error) error

	SaveLoan(loan *models.Loan) error
	FindLoanByID(id string) (*models.Loan, error)
	LoansByUser(userID string) ([]models.Loan, error)
	ListLoans() ([]models.Loan, error)
	UpdateLoan(id string, fn func(*models.Loan) error) error

	// SaveTransactionWithLoan persists an installment transaction and its
	// linked loan as one commit: both writes succeed or neither does.
	SaveTransactionWithLoan(tx *models.Transaction, loan *models.Loan) error

	SetCurrentUser(userID string) error
	CurrentUser() (string, error)
	ClearCurrentUser() error
}
