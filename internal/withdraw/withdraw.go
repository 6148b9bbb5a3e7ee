// Package withdraw records user-initiated debits of personal_stars pending
// manual admin settlement. Funds are debited at request time; a rejected
// request credits them back.
package withdraw

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"economy-bot/internal/db"
	"economy-bot/internal/models"
)

// MinWithdrawal is the smallest accepted payout request, in stars.
const MinWithdrawal = 100

var (
	ErrBelowMinimum        = errors.New("withdrawal amount below minimum")
	ErrInsufficientBalance = errors.New("insufficient personal stars balance")
	ErrNotFound            = errors.New("withdrawal not found")
	ErrAlreadySettled      = errors.New("withdrawal already settled")
	ErrInvalidStatus       = errors.New("invalid settlement status")
)

// Store is the slice of the ledger the controller needs.
type Store interface {
	GetUser(ctx context.Context, userID int64) (*models.User, error)
	CreateWithdrawal(ctx context.Context, w *models.Withdrawal) error
	GetWithdrawal(ctx context.Context, withdrawalID string) (*models.Withdrawal, error)
	SettleWithdrawal(ctx context.Context, withdrawalID string, status models.WithdrawalStatus) error
}

type Controller struct {
	store Store
}

func NewController(store Store) *Controller {
	return &Controller{store: store}
}

// Request validates the amount against the user's personal_stars, debits the
// balance immediately and records a pending withdrawal. The payout itself is
// settled out of band by the admin.
func (c *Controller) Request(ctx context.Context, userID, amount int64) (*models.Withdrawal, error) {
	if amount < MinWithdrawal {
		return nil, ErrBelowMinimum
	}

	user, err := c.store.GetUser(ctx, userID)
	if errors.Is(err, db.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if amount > user.PersonalStars {
		return nil, ErrInsufficientBalance
	}

	w := &models.Withdrawal{
		WithdrawalID: newWithdrawalID(),
		UserID:       userID,
		Amount:       amount,
		Status:       models.WithdrawalPending,
	}

	err = c.store.CreateWithdrawal(ctx, w)
	if errors.Is(err, db.ErrNotFound) {
		// The conditional debit failed: the balance changed underneath us.
		return nil, ErrInsufficientBalance
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create withdrawal: %w", err)
	}

	return w, nil
}

// Settle applies the admin's decision to a pending request. Rejection
// restores the debited amount; either way a request settles at most once.
func (c *Controller) Settle(ctx context.Context, withdrawalID string, status models.WithdrawalStatus) (*models.Withdrawal, error) {
	if status != models.WithdrawalApproved && status != models.WithdrawalRejected {
		return nil, ErrInvalidStatus
	}

	w, err := c.store.GetWithdrawal(ctx, withdrawalID)
	if errors.Is(err, db.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load withdrawal: %w", err)
	}
	if w.Status != models.WithdrawalPending {
		return nil, ErrAlreadySettled
	}

	err = c.store.SettleWithdrawal(ctx, withdrawalID, status)
	if errors.Is(err, db.ErrNotFound) {
		return nil, ErrAlreadySettled
	}
	if err != nil {
		return nil, fmt.Errorf("failed to settle withdrawal: %w", err)
	}

	w.Status = status
	return w, nil
}

// Get returns the withdrawal snapshot for the given id.
func (c *Controller) Get(ctx context.Context, withdrawalID string) (*models.Withdrawal, error) {
	w, err := c.store.GetWithdrawal(ctx, withdrawalID)
	if errors.Is(err, db.ErrNotFound) {
		return nil, ErrNotFound
	}
	return w, err
}

func newWithdrawalID() string {
	return "WD-" + strings.ToUpper(uuid.NewString()[:8])
}
