package models

import "time"

// User represents a user in the system. Balance is informational: no ledger
// operation credits or debits it automatically, only AdjustBalance does.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Phone        string    `json:"phone"`
	PasswordHash string    `json:"-"` // Not serialized
	Balance      float64   `json:"balance"`
	CreatedAt    time.Time `json:"created_at"`
}
