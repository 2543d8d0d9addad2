package service

import "errors"

// Failure taxonomy of the ledger engines. Callers test with errors.Is; a
// failed operation leaves every collection unchanged.
var (
	ErrNotFound       = errors.New("record not found")
	ErrDuplicateEmail = errors.New("email already registered")
	ErrInvalidTerm    = errors.New("term must be at least one month")
	ErrInvalidAmount  = errors.New("invalid amount")
	ErrInvalidMethod  = errors.New("unknown payment method")
	ErrLoanCompleted  = errors.New("loan already completed")
)
