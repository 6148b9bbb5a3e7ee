// Package users handles registration, profile reads and admin balance
// overrides. Every user gets a globally unique, human-shareable qK code at
// signup.
package users

import (
	"context"
	"errors"
	"fmt"
	"math/rand"

	"economy-bot/internal/db"
	"economy-bot/internal/models"
)

var (
	ErrNotFound     = errors.New("user not found")
	ErrInvalidInput = errors.New("invalid balance parameters")
)

// Store is the slice of the ledger the service needs.
type Store interface {
	CreateUser(ctx context.Context, userID int64, username, qkCode string) error
	GetUser(ctx context.Context, userID int64) (*models.User, error)
	QKCodeExists(ctx context.Context, qkCode string) (bool, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	SetCurrency(ctx context.Context, userID int64, currency models.Currency, amount int64) error
	GetStats(ctx context.Context) (*models.Stats, error)
}

type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

// Register creates the user on first contact and returns the assigned qK
// code. Registering an existing user is a no-op returning their current code.
func (s *Service) Register(ctx context.Context, userID int64, username string) (string, bool, error) {
	if user, err := s.store.GetUser(ctx, userID); err == nil {
		return user.QKCode, false, nil
	} else if !errors.Is(err, db.ErrNotFound) {
		return "", false, fmt.Errorf("failed to look up user: %w", err)
	}

	qkCode, err := s.generateQKCode(ctx)
	if err != nil {
		return "", false, err
	}

	err = s.store.CreateUser(ctx, userID, username, qkCode)
	if errors.Is(err, db.ErrAlreadyExists) {
		// Registered concurrently; fall back to the stored code.
		user, err := s.store.GetUser(ctx, userID)
		if err != nil {
			return "", false, fmt.Errorf("failed to reload user: %w", err)
		}
		return user.QKCode, false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to create user: %w", err)
	}

	return qkCode, true, nil
}

// Profile returns the full user snapshot including all five balances.
func (s *Service) Profile(ctx context.Context, userID int64) (*models.User, error) {
	user, err := s.store.GetUser(ctx, userID)
	if errors.Is(err, db.ErrNotFound) {
		return nil, ErrNotFound
	}
	return user, err
}

// SetBalance sets an absolute balance value for the given currency. This is
// the admin override path; the only rule enforced is non-negativity.
func (s *Service) SetBalance(ctx context.Context, userID int64, currency models.Currency, amount int64) error {
	if !currency.Valid() || amount < 0 {
		return ErrInvalidInput
	}

	err := s.store.SetCurrency(ctx, userID, currency, amount)
	if errors.Is(err, db.ErrNotFound) {
		return ErrNotFound
	}
	return err
}

// List returns all users ordered by id, for admin export.
func (s *Service) List(ctx context.Context) ([]models.User, error) {
	return s.store.ListUsers(ctx)
}

// Stats returns aggregate ledger totals.
func (s *Service) Stats(ctx context.Context) (*models.Stats, error) {
	return s.store.GetStats(ctx)
}

const (
	qkLetters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	qkDigits  = "0123456789"
)

// generateQKCode builds a "qK-" code from two uppercase letters and seven
// digits in shuffled order, retrying until the code is globally unique.
func (s *Service) generateQKCode(ctx context.Context) (string, error) {
	for {
		chars := make([]byte, 0, 9)
		for i := 0; i < 2; i++ {
			chars = append(chars, qkLetters[rand.Intn(len(qkLetters))])
		}
		for i := 0; i < 7; i++ {
			chars = append(chars, qkDigits[rand.Intn(len(qkDigits))])
		}
		rand.Shuffle(len(chars), func(i, j int) {
			chars[i], chars[j] = chars[j], chars[i]
		})

		code := "qK-" + string(chars)

		exists, err := s.store.QKCodeExists(ctx, code)
		if err != nil {
			return "", fmt.Errorf("failed to verify code uniqueness: %w", err)
		}
		if !exists {
			return code, nil
		}
	}
}
