package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/bassline/ledger-service/internal/models"
)

// Postgres is a Store backed by a PostgreSQL database
type Postgres struct {
	db *sql.DB
}

// NewPostgres initializes a postgres-backed store
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// InitSchema creates the ledger schema and tables if they do not exist
func (p *Postgres) InitSchema() error {
	const schema = `
		CREATE SCHEMA IF NOT EXISTS ledger;

		CREATE TABLE IF NOT EXISTS ledger.users (
			id            TEXT PRIMARY KEY,
			name          TEXT NOT NULL,
			email         TEXT NOT NULL UNIQUE,
			phone         TEXT NOT NULL DEFAULT '',
			password_hash TEXT NOT NULL,
			balance       DOUBLE PRECISION NOT NULL DEFAULT 0,
			created_at    TIMESTAMPTZ NOT NULL,
			seq           BIGSERIAL
		);

		CREATE TABLE IF NOT EXISTS ledger.transactions (
			id             TEXT PRIMARY KEY,
			user_id        TEXT NOT NULL,
			service        TEXT NOT NULL DEFAULT '',
			amount         DOUBLE PRECISION NOT NULL,
			method         TEXT NOT NULL,
			term           INTEGER NOT NULL DEFAULT 0,
			interest_rate  DOUBLE PRECISION NOT NULL DEFAULT 0,
			status         TEXT NOT NULL,
			bank_reference TEXT NOT NULL DEFAULT '',
			created_at     TIMESTAMPTZ NOT NULL,
			seq            BIGSERIAL
		);

		CREATE TABLE IF NOT EXISTS ledger.loans (
			id                TEXT PRIMARY KEY,
			user_id           TEXT NOT NULL,
			transaction_id    TEXT NOT NULL,
			original_amount   DOUBLE PRECISION NOT NULL,
			total_amount      DOUBLE PRECISION NOT NULL,
			interest_rate     DOUBLE PRECISION NOT NULL,
			monthly_payment   DOUBLE PRECISION NOT NULL,
			term              INTEGER NOT NULL,
			term_remaining    INTEGER NOT NULL,
			status            TEXT NOT NULL,
			start_date        TIMESTAMPTZ NOT NULL,
			next_payment_date TIMESTAMPTZ NOT NULL,
			payments          JSONB NOT NULL DEFAULT '[]',
			seq               BIGSERIAL
		);

		CREATE TABLE IF NOT EXISTS ledger.current_session (
			slot    INTEGER PRIMARY KEY DEFAULT 1 CHECK (slot = 1),
			user_id TEXT NOT NULL
		);`
	if _, err := p.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to init schema: %w", err)
	}
	return nil
}

// SaveUser inserts or updates a user
func (p *Postgres) SaveUser(user *models.User) error {
	query := `
		INSERT INTO ledger.users (id, name, email, phone, password_hash, balance, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name, email = EXCLUDED.email, phone = EXCLUDED.phone,
			password_hash = EXCLUDED.password_hash, balance = EXCLUDED.balance`
	_, err := p.db.Exec(query, user.ID, user.Name, user.Email, user.Phone,
		user.PasswordHash, user.Balance, user.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save user: %w", err)
	}
	return nil
}

func (p *Postgres) findUser(where string, arg any) (*models.User, error) {
	user := &models.User{}
	query := `
		SELECT id, name, email, phone, password_hash, balance, created_at
		FROM ledger.users WHERE ` + where
	err := p.db.QueryRow(query, arg).
		Scan(&user.ID, &user.Name, &user.Email, &user.Phone, &user.PasswordHash,
			&user.Balance, &user.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return user, nil
}

// FindUserByID retrieves a user by id, or nil when absent
func (p *Postgres) FindUserByID(id string) (*models.User, error) {
	return p.findUser("id = $1", id)
}

// FindUserByEmail retrieves a user by its email key
func (p *Postgres) FindUserByEmail(email string) (*models.User, error) {
	return p.findUser("email = $1", email)
}

// ListUsers returns all users in insertion order
func (p *Postgres) ListUsers() ([]models.User, error) {
	rows, err := p.db.Query(`
		SELECT id, name, email, phone, password_hash, balance, created_at
		FROM ledger.users ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.Phone, &u.PasswordHash,
			&u.Balance, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// UpdateUser applies fn to a user inside a transaction with a row lock
func (p *Postgres) UpdateUser(id string, fn func(*models.User) error) error {
	dbTx, err := p.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	user := &models.User{}
	query := `
		SELECT id, name, email, phone, password_hash, balance, created_at
		FROM ledger.users WHERE id = $1 FOR UPDATE`
	err = dbTx.QueryRow(query, id).
		Scan(&user.ID, &user.Name, &user.Email, &user.Phone, &user.PasswordHash,
			&user.Balance, &user.CreatedAt)
	if err == sql.ErrNoRows {
		dbTx.Rollback()
		return ErrNotExist
	}
	if err != nil {
		dbTx.Rollback()
		return fmt.Errorf("failed to lock user: %w", err)
	}
	if err := fn(user); err != nil {
		dbTx.Rollback()
		return err
	}
	_, err = dbTx.Exec(`
		UPDATE ledger.users SET name = $2, email = $3, phone = $4,
			password_hash = $5, balance = $6 WHERE id = $1`,
		user.ID, user.Name, user.Email, user.Phone, user.PasswordHash, user.Balance)
	if err != nil {
		dbTx.Rollback()
		return fmt.Errorf("failed to update user: %w", err)
	}
	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

func saveTransactionStmt(ex interface {
	Exec(query string, args ...any) (sql.Result, error)
}, tx *models.Transaction) error {
	query := `
		INSERT INTO ledger.transactions
			(id, user_id, service, amount, method, term, interest_rate, status, bank_reference, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status, bank_reference = EXCLUDED.bank_reference`
	_, err := ex.Exec(query, tx.ID, tx.UserID, tx.Service, tx.Amount, tx.Method,
		tx.Term, tx.InterestRate, tx.Status, tx.BankReference, tx.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save transaction: %w", err)
	}
	return nil
}

// SaveTransaction inserts a transaction or updates its mutable fields
func (p *Postgres) SaveTransaction(tx *models.Transaction) error {
	return saveTransactionStmt(p.db, tx)
}

const transactionColumns = `id, user_id, service, amount, method, term, interest_rate, status, bank_reference, created_at`

func scanTransaction(row interface{ Scan(dest ...any) error }, t *models.Transaction) error {
	return row.Scan(&t.ID, &t.UserID, &t.Service, &t.Amount, &t.Method, &t.Term,
		&t.InterestRate, &t.Status, &t.BankReference, &t.CreatedAt)
}

// FindTransactionByID retrieves a transaction by id across all users
func (p *Postgres) FindTransactionByID(id string) (*models.Transaction, error) {
	t := &models.Transaction{}
	query := `SELECT ` + transactionColumns + ` FROM ledger.transactions WHERE id = $1`
	err := scanTransaction(p.db.QueryRow(query, id), t)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find transaction: %w", err)
	}
	return t, nil
}

func (p *Postgres) queryTransactions(query string, args ...any) ([]models.Transaction, error) {
	rows, err := p.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var txs []models.Transaction
	for rows.Next() {
		var t models.Transaction
		if err := scanTransaction(rows, &t); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txs = append(txs, t)
	}
	return txs, rows.Err()
}

// TransactionsByUser returns one user's transactions in insertion order
func (p *Postgres) TransactionsByUser(userID string) ([]models.Transaction, error) {
	return p.queryTransactions(`SELECT `+transactionColumns+
		` FROM ledger.transactions WHERE user_id = $1 ORDER BY seq`, userID)
}

// ListTransactions returns all transactions in insertion order
func (p *Postgres) ListTransactions() ([]models.Transaction, error) {
	return p.queryTransactions(`SELECT ` + transactionColumns +
		` FROM ledger.transactions ORDER BY seq`)
}

// UpdateTransaction applies fn to a transaction inside a row-locked tx
func (p *Postgres) UpdateTransaction(id string, fn func(*models.Transaction) error) error {
	dbTx, err := p.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	t := &models.Transaction{}
	query := `SELECT ` + transactionColumns + ` FROM ledger.transactions WHERE id = $1 FOR UPDATE`
	err = scanTransaction(dbTx.QueryRow(query, id), t)
	if err == sql.ErrNoRows {
		dbTx.Rollback()
		return ErrNotExist
	}
	if err != nil {
		dbTx.Rollback()
		return fmt.Errorf("failed to lock transaction: %w", err)
	}
	if err := fn(t); err != nil {
		dbTx.Rollback()
		return err
	}
	if err := saveTransactionStmt(dbTx, t); err != nil {
		dbTx.Rollback()
		return err
	}
	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

func saveLoanStmt(ex interface {
	Exec(query string, args ...any) (sql.Result, error)
}, loan *models.Loan) error {
	payments, err := json.Marshal(loan.Payments)
	if err != nil {
		return fmt.Errorf("failed to marshal payments: %w", err)
	}
	query := `
		INSERT INTO ledger.loans
			(id, user_id, transaction_id, original_amount, total_amount, interest_rate,
			 monthly_payment, term, term_remaining, status, start_date, next_payment_date, payments)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO UPDATE SET
			term_remaining = EXCLUDED.term_remaining, status = EXCLUDED.status,
			next_payment_date = EXCLUDED.next_payment_date, payments = EXCLUDED.payments`
	_, err = ex.Exec(query, loan.ID, loan.UserID, loan.TransactionID,
		loan.OriginalAmount, loan.TotalAmount, loan.InterestRate, loan.MonthlyPayment,
		loan.Term, loan.TermRemaining, loan.Status, loan.StartDate,
		loan.NextPaymentDate, payments)
	if err != nil {
		return fmt.Errorf("failed to save loan: %w", err)
	}
	return nil
}

// SaveLoan inserts a loan or updates its repayment state
func (p *Postgres) SaveLoan(loan *models.Loan) error {
	return saveLoanStmt(p.db, loan)
}

const loanColumns = `id, user_id, transaction_id, original_amount, total_amount, interest_rate,
	monthly_payment, term, term_remaining, status, start_date, next_payment_date, payments`

func scanLoan(row interface{ Scan(dest ...any) error }, l *models.Loan) error {
	var payments []byte
	if err := row.Scan(&l.ID, &l.UserID, &l.TransactionID, &l.OriginalAmount,
		&l.TotalAmount, &l.InterestRate, &l.MonthlyPayment, &l.Term,
		&l.TermRemaining, &l.Status, &l.StartDate, &l.NextPaymentDate, &payments); err != nil {
		return err
	}
	if err := json.Unmarshal(payments, &l.Payments); err != nil {
		return fmt.Errorf("failed to unmarshal payments: %w", err)
	}
	return nil
}

// FindLoanByID retrieves a loan by id, or nil when absent
func (p *Postgres) FindLoanByID(id string) (*models.Loan, error) {
	l := &models.Loan{}
	query := `SELECT ` + loanColumns + ` FROM ledger.loans WHERE id = $1`
	err := scanLoan(p.db.QueryRow(query, id), l)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find loan: %w", err)
	}
	return l, nil
}

func (p *Postgres) queryLoans(query string, args ...any) ([]models.Loan, error) {
	rows, err := p.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query loans: %w", err)
	}
	defer rows.Close()

	var loans []models.Loan
	for rows.Next() {
		var l models.Loan
		if err := scanLoan(rows, &l); err != nil {
			return nil, fmt.Errorf("failed to scan loan: %w", err)
		}
		loans = append(loans, l)
	}
	return loans, rows.Err()
}

// LoansByUser returns one user's loans in insertion order
func (p *Postgres) LoansByUser(userID string) ([]models.Loan, error) {
	return p.queryLoans(`SELECT `+loanColumns+
		` FROM ledger.loans WHERE user_id = $1 ORDER BY seq`, userID)
}

// ListLoans returns all loans in insertion order
func (p *Postgres) ListLoans() ([]models.Loan, error) {
	return p.queryLoans(`SELECT ` + loanColumns + ` FROM ledger.loans ORDER BY seq`)
}

// UpdateLoan applies fn to a loan inside a row-locked tx, serializing
// concurrent payment applications against the same loan
func (p *Postgres) UpdateLoan(id string, fn func(*models.Loan) error) error {
	dbTx, err := p.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	l := &models.Loan{}
	query := `SELECT ` + loanColumns + ` FROM ledger.loans WHERE id = $1 FOR UPDATE`
	err = scanLoan(dbTx.QueryRow(query, id), l)
	if err == sql.ErrNoRows {
		dbTx.Rollback()
		return ErrNotExist
	}
	if err != nil {
		dbTx.Rollback()
		return fmt.Errorf("failed to lock loan: %w", err)
	}
	if err := fn(l); err != nil {
		dbTx.Rollback()
		return err
	}
	if err := saveLoanStmt(dbTx, l); err != nil {
		dbTx.Rollback()
		return err
	}
	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

// SaveTransactionWithLoan commits both records in one database transaction
func (p *Postgres) SaveTransactionWithLoan(tx *models.Transaction, loan *models.Loan) error {
	dbTx, err := p.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := saveTransactionStmt(dbTx, tx); err != nil {
		dbTx.Rollback()
		return err
	}
	if err := saveLoanStmt(dbTx, loan); err != nil {
		dbTx.Rollback()
		return err
	}
	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

// SetCurrentUser fills the single-slot session value
func (p *Postgres) SetCurrentUser(userID string) error {
	query := `
		INSERT INTO ledger.current_session (slot, user_id) VALUES (1, $1)
		ON CONFLICT (slot) DO UPDATE SET user_id = EXCLUDED.user_id`
	if _, err := p.db.Exec(query, userID); err != nil {
		return fmt.Errorf("failed to set current user: %w", err)
	}
	return nil
}

// CurrentUser returns the session slot, empty when no user is logged in
func (p *Postgres) CurrentUser() (string, error) {
	var userID string
	err := p.db.QueryRow(`SELECT user_id FROM ledger.current_session WHERE slot = 1`).
		Scan(&userID)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read current user: %w", err)
	}
	return userID, nil
}

// ClearCurrentUser empties the session slot
func (p *Postgres) ClearCurrentUser() error {
	if _, err := p.db.Exec(`DELETE FROM ledger.current_session WHERE slot = 1`); err != nil {
		return fmt.Errorf("failed to clear current user: %w", err)
	}
	return nil
}
