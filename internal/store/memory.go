package store

import (
	"sync"

	"github.com/bassline/ledger-service/internal/models"
)

// Memory is an in-memory Store. Collections keep insertion order, every
// operation is a single critical section, and records are copied on the way
// in and out so callers never share state with the store.
type Memory struct {
	mu           sync.Mutex
	users        []models.User
	transactions []models.Transaction
	loans        []models.Loan
	currentUser  string
}

// NewMemory initializes an empty in-memory store
func NewMemory() *Memory {
	return &Memory{}
}

func copyLoan(loan models.Loan) models.Loan {
	c := loan
	c.Payments = make([]models.Payment, len(loan.Payments))
	copy(c.Payments, loan.Payments)
	return c
}

// SaveUser inserts the user or replaces it in place when the id exists
func (m *Memory) SaveUser(user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.users {
		if m.users[i].ID == user.ID {
			m.users[i] = *user
			return nil
		}
	}
	m.users = append(m.users, *user)
	return nil
}

// FindUserByID retrieves a user by id, or nil when absent
func (m *Memory) FindUserByID(id string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.users {
		if m.users[i].ID == id {
			u := m.users[i]
			return &u, nil
		}
	}
	return nil, nil
}

// FindUserByEmail retrieves a user by its email key, case-sensitive
func (m *Memory) FindUserByEmail(email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.users {
		if m.users[i].Email == email {
			u := m.users[i]
			return &u, nil
		}
	}
	return nil, nil
}

// ListUsers returns all users in insertion order
func (m *Memory) ListUsers() ([]models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.User, len(m.users))
	copy(out, m.users)
	return out, nil
}

// UpdateUser applies fn to a user under the store lock
func (m *Memory) UpdateUser(id string, fn func(*models.User) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.users {
		if m.users[i].ID == id {
			user := m.users[i]
			if err := fn(&user); err != nil {
				return err
			}
			m.users[i] = user
			return nil
		}
	}
	return ErrNotExist
}

// SaveTransaction inserts the transaction or replaces it in place
func (m *Memory) SaveTransaction(tx *models.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveTransactionLocked(tx)
	return nil
}

func (m *Memory) saveTransactionLocked(tx *models.Transaction) {
	for i := range m.transactions {
		if m.transactions[i].ID == tx.ID {
			m.transactions[i] = *tx
			return
		}
	}
	m.transactions = append(m.transactions, *tx)
}

// FindTransactionByID retrieves a transaction by id across all users
func (m *Memory) FindTransactionByID(id string) (*models.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.transactions {
		if m.transactions[i].ID == id {
			t := m.transactions[i]
			return &t, nil
		}
	}
	return nil, nil
}

// TransactionsByUser returns one user's transactions in insertion order
func (m *Memory) TransactionsByUser(userID string) ([]models.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Transaction
	for i := range m.transactions {
		if m.transactions[i].UserID == userID {
			out = append(out, m.transactions[i])
		}
	}
	return out, nil
}

// ListTransactions returns all transactions in insertion order
func (m *Memory) ListTransactions() ([]models.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Transaction, len(m.transactions))
	copy(out, m.transactions)
	return out, nil
}

// UpdateTransaction applies fn to a transaction under the store lock
func (m *Memory) UpdateTransaction(id string, fn func(*models.Transaction) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.transactions {
		if m.transactions[i].ID == id {
			tx := m.transactions[i]
			if err := fn(&tx); err != nil {
				return err
			}
			m.transactions[i] = tx
			return nil
		}
	}
	return ErrNotExist
}

// SaveLoan inserts the loan or replaces it in place
func (m *Memory) SaveLoan(loan *models.Loan) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveLoanLocked(loan)
	return nil
}

func (m *Memory) saveLoanLocked(loan *models.Loan) {
	for i := range m.loans {
		if m.loans[i].ID == loan.ID {
			m.loans[i] = copyLoan(*loan)
			return
		}
	}
	m.loans = append(m.loans, copyLoan(*loan))
}

// FindLoanByID retrieves a loan by id, or nil when absent
func (m *Memory) FindLoanByID(id string) (*models.Loan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.loans {
		if m.loans[i].ID == id {
			l := copyLoan(m.loans[i])
			return &l, nil
		}
	}
	return nil, nil
}

// LoansByUser returns one user's loans in insertion order
func (m *Memory) LoansByUser(userID string) ([]models.Loan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Loan
	for i := range m.loans {
		if m.loans[i].UserID == userID {
			out = append(out, copyLoan(m.loans[i]))
		}
	}
	return out, nil
}

// ListLoans returns all loans in insertion order
func (m *Memory) ListLoans() ([]models.Loan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Loan, 0, len(m.loans))
	for i := range m.loans {
		out = append(out, copyLoan(m.loans[i]))
	}
	return out, nil
}

// UpdateLoan applies fn to a loan under the store lock. fn gets a copy, so
// a failed update leaves the stored loan exactly as it was.
func (m *Memory) UpdateLoan(id string, fn func(*models.Loan) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.loans {
		if m.loans[i].ID == id {
			loan := copyLoan(m.loans[i])
			if err := fn(&loan); err != nil {
				return err
			}
			m.loans[i] = copyLoan(loan)
			return nil
		}
	}
	return ErrNotExist
}

// SaveTransactionWithLoan commits both records under one lock
func (m *Memory) SaveTransactionWithLoan(tx *models.Transaction, loan *models.Loan) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveTransactionLocked(tx)
	m.saveLoanLocked(loan)
	return nil
}

// SetCurrentUser fills the single-slot session value
func (m *Memory) SetCurrentUser(userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.currentUser = userID
	return nil
}

// CurrentUser returns the session slot, empty when no user is logged in
func (m *Memory) CurrentUser() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.currentUser, nil
}

// ClearCurrentUser empties the session slot
func (m *Memory) ClearCurrentUser() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.currentUser = ""
	return nil
}
