// Package checks implements creation and redemption of voucher codes
// ("checks"): codes redeemable by a limited number of distinct users for a
// fixed currency amount.
package checks

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"economy-bot/internal/db"
	"economy-bot/internal/models"
)

var (
	ErrNotFound         = errors.New("check not found")
	ErrInactive         = errors.New("check is no longer active")
	ErrLimitReached     = errors.New("check activation limit reached")
	ErrAlreadyActivated = errors.New("check already activated by this user")
	ErrDuplicateCode    = errors.New("check code already in use")
	ErrInvalidInput     = errors.New("invalid check parameters")
)

// Store is the slice of the ledger the engine needs.
type Store interface {
	CreateCheck(ctx context.Context, check *models.Check) error
	GetCheck(ctx context.Context, code string) (*models.Check, error)
	HasActivated(ctx context.Context, code string, userID int64) (bool, error)
	ActivateCheck(ctx context.Context, code string, userID int64, currency models.Currency, amount int64) error
	DeactivateCheck(ctx context.Context, code string) error
}

type Engine struct {
	store Store
}

func NewEngine(store Store) *Engine {
	return &Engine{store: store}
}

// Create persists a new check with zero activations. Codes are taken as-is
// except for surrounding whitespace; a collision with an existing code
// returns ErrDuplicateCode so the creator can pick another.
func (e *Engine) Create(ctx context.Context, currency models.Currency, amount int64, maxActivations int, creatorID int64, code string) (*models.Check, error) {
	code = strings.TrimSpace(code)
	if len(code) < 3 {
		return nil, ErrInvalidInput
	}
	if !currency.Redeemable() {
		return nil, ErrInvalidInput
	}
	if amount <= 0 || maxActivations <= 0 {
		return nil, ErrInvalidInput
	}

	check := &models.Check{
		Code:           code,
		Amount:         amount,
		Currency:       currency,
		MaxActivations: maxActivations,
		CreatorID:      creatorID,
		IsActive:       true,
	}

	err := e.store.CreateCheck(ctx, check)
	if errors.Is(err, db.ErrAlreadyExists) {
		return nil, ErrDuplicateCode
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create check: %w", err)
	}

	return check, nil
}

// Redeem validates and atomically applies a redemption for the given user,
// then returns the updated check so the caller can report remaining
// capacity. The validation order is fixed: existence, activation limit,
// active flag, then per-user uniqueness. Once the final activation lands,
// the check is deactivated as a follow-up step.
func (e *Engine) Redeem(ctx context.Context, code string, userID int64) (*models.Check, error) {
	check, err := e.store.GetCheck(ctx, code)
	if errors.Is(err, db.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load check: %w", err)
	}

	// An exhausted check is also inactive; report the limit, not the flag,
	// so manual deactivation stays distinguishable.
	if check.Exhausted() {
		return nil, ErrLimitReached
	}
	if !check.IsActive {
		return nil, ErrInactive
	}

	activated, err := e.store.HasActivated(ctx, code, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up activations: %w", err)
	}
	if activated {
		return nil, ErrAlreadyActivated
	}

	err = e.store.ActivateCheck(ctx, code, userID, check.Currency, check.Amount)
	switch {
	case errors.Is(err, db.ErrAlreadyExists):
		return nil, ErrAlreadyActivated
	case errors.Is(err, db.ErrNotFound):
		// Lost a race: the check hit its limit or was deactivated between
		// the read and the conditional update.
		return nil, ErrLimitReached
	case err != nil:
		return nil, fmt.Errorf("failed to activate check: %w", err)
	}

	updated, err := e.store.GetCheck(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to reload check: %w", err)
	}

	if updated.Exhausted() && updated.IsActive {
		if err := e.store.DeactivateCheck(ctx, code); err != nil {
			return nil, fmt.Errorf("failed to deactivate exhausted check: %w", err)
		}
		updated.IsActive = false
	}

	return updated, nil
}

// Deactivate turns a check off manually, regardless of remaining capacity.
func (e *Engine) Deactivate(ctx context.Context, code string) error {
	if _, err := e.store.GetCheck(ctx, code); errors.Is(err, db.ErrNotFound) {
		return ErrNotFound
	} else if err != nil {
		return fmt.Errorf("failed to load check: %w", err)
	}
	return e.store.DeactivateCheck(ctx, code)
}

// Get returns the check snapshot for the given code.
func (e *Engine) Get(ctx context.Context, code string) (*models.Check, error) {
	check, err := e.store.GetCheck(ctx, code)
	if errors.Is(err, db.ErrNotFound) {
		return nil, ErrNotFound
	}
	return check, err
}
