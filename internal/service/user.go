package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/bassline/ledger-service/internal/models"
	"github.com/bassline/ledger-service/internal/store"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// Register creates a new user with a hashed password and a zero balance.
// Email is the unique, case-sensitive key.
func (s *Service) Register(name, email, phone, password string) (*models.User, error) {
	existing, err := s.store.FindUserByEmail(email)
	if err != nil {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateEmail, email)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		Phone:        phone,
		PasswordHash: string(hashedPassword),
		Balance:      0,
		CreatedAt:    s.now(),
	}

	if err := s.store.SaveUser(user); err != nil {
		return nil, err
	}

	s.log.Infof("User registered: %s", user.Email)
	return user, nil
}

// Login authenticates a user, fills the session slot and returns a JWT token
func (s *Service) Login(email, password string) (string, *models.User, error) {
	user, err := s.store.FindUserByEmail(email)
	if err != nil || user == nil {
		return "", nil, fmt.Errorf("invalid credentials")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", nil, fmt.Errorf("invalid credentials")
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   user.ID,
		ExpiresAt: jwt.NewNumericDate(s.now().Add(24 * time.Hour)),
	})
	tokenString, err := token.SignedString([]byte(s.config.JWTSecret))
	if err != nil {
		return "", nil, fmt.Errorf("failed to generate token: %w", err)
	}

	if err := s.store.SetCurrentUser(user.ID); err != nil {
		return "", nil, err
	}

	s.log.Infof("User logged in: %s", user.Email)
	return tokenString, user, nil
}

// Logout clears the session slot
func (s *Service) Logout() error {
	return s.store.ClearCurrentUser()
}

// UserByID retrieves one user
func (s *Service) UserByID(userID string) (*models.User, error) {
	user, err := s.store.FindUserByID(userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, fmt.Errorf("%w: user %s", ErrNotFound, userID)
	}
	return user, nil
}

// AdjustBalance applies a signed delta to a user's balance. This is the only
// operation that touches Balance; recording transactions never does.
func (s *Service) AdjustBalance(userID string, delta float64) (*models.User, error) {
	var updated models.User
	err := s.store.UpdateUser(userID, func(user *models.User) error {
		user.Balance += delta
		updated = *user
		return nil
	})
	if errors.Is(err, store.ErrNotExist) {
		return nil, fmt.Errorf("%w: user %s", ErrNotFound, userID)
	}
	if err != nil {
		return nil, err
	}

	s.log.Infof("Balance adjusted for user %s: %+.2f -> %.2f", userID, delta, updated.Balance)
	return &updated, nil
}
