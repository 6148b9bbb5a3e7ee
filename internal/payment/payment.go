// Package payment drives the deposit/support payment lifecycle: a pending
// transaction is recorded, the provider issues an invoice link correlated by
// the transaction id, and the balance is credited exactly once when the
// provider confirms.
package payment

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"economy-bot/internal/db"
	"economy-bot/internal/models"
)

// MinDeposit is the smallest accepted deposit, in stars.
const MinDeposit = 150

var (
	ErrNotFound         = errors.New("transaction not found")
	ErrAlreadyCompleted = errors.New("transaction already completed")
	ErrBelowMinimum     = errors.New("deposit amount below minimum")
	ErrInvalidInput     = errors.New("invalid payment parameters")
	ErrProvider         = errors.New("payment provider error")
)

// InvoiceIssuer is the external payment provider capability: it turns a
// titled amount plus an opaque payload into a link the user can pay at.
type InvoiceIssuer interface {
	IssueInvoice(ctx context.Context, title, description, payload string, amount int64) (string, error)
}

// Store is the slice of the ledger the controller needs.
type Store interface {
	CreateTransaction(ctx context.Context, txn *models.Transaction) error
	GetTransaction(ctx context.Context, transactionID string) (*models.Transaction, error)
	CompleteTransaction(ctx context.Context, transactionID string, creditUserID int64, currency models.Currency, amount int64) error
}

type Controller struct {
	store  Store
	issuer InvoiceIssuer

	// operatorID is the account whose bot_stars accumulate support payments.
	operatorID int64
}

func NewController(store Store, issuer InvoiceIssuer, operatorID int64) *Controller {
	return &Controller{
		store:      store,
		issuer:     issuer,
		operatorID: operatorID,
	}
}

// Invoice is the outcome of CreateInvoice: the pending transaction plus the
// provider's payment link.
type Invoice struct {
	Transaction *models.Transaction
	Link        string
}

// CreateInvoice records a pending transaction and asks the provider for an
// invoice link. The transaction id travels as the invoice payload and comes
// back on the provider's confirmation callback.
func (c *Controller) CreateInvoice(ctx context.Context, userID, amount int64, paymentType models.PaymentType) (*Invoice, error) {
	if amount <= 0 {
		return nil, ErrInvalidInput
	}
	if paymentType == models.PaymentDeposit && amount < MinDeposit {
		return nil, ErrBelowMinimum
	}
	if paymentType != models.PaymentDeposit && paymentType != models.PaymentSupport {
		return nil, ErrInvalidInput
	}

	txn := &models.Transaction{
		TransactionID: uuid.NewString(),
		UserID:        userID,
		Amount:        amount,
		Status:        models.TransactionPending,
		PaymentType:   paymentType,
	}
	if err := c.store.CreateTransaction(ctx, txn); err != nil {
		return nil, fmt.Errorf("failed to record transaction: %w", err)
	}

	var title, description string
	if paymentType == models.PaymentDeposit {
		title = "Пополнение баланса"
		description = fmt.Sprintf("Пополнение личного баланса на %d звезд", amount)
	} else {
		title = "Поддержка бота"
		description = fmt.Sprintf("Поддержка разработчиков на %d звезд", amount)
	}

	link, err := c.issuer.IssueInvoice(ctx, title, description, txn.TransactionID, amount)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProvider, err)
	}

	return &Invoice{Transaction: txn, Link: link}, nil
}

// PreAuthorize is the provider's pre-checkout gate: the charge may proceed
// only when the payload's transaction is known and still pending.
func (c *Controller) PreAuthorize(ctx context.Context, transactionID string) error {
	txn, err := c.store.GetTransaction(ctx, transactionID)
	if errors.Is(err, db.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to load transaction: %w", err)
	}
	if txn.Status != models.TransactionPending {
		return ErrAlreadyCompleted
	}
	return nil
}

// Confirm marks the transaction completed and credits the confirmed amount:
// personal_stars of the payer on a deposit, bot_stars of the operator
// account on a support payment. Confirmation is one-way and idempotent; a
// duplicate callback returns ErrAlreadyCompleted without a second credit.
func (c *Controller) Confirm(ctx context.Context, transactionID string, confirmedAmount int64) (*models.Transaction, error) {
	txn, err := c.store.GetTransaction(ctx, transactionID)
	if errors.Is(err, db.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load transaction: %w", err)
	}

	creditUserID := txn.UserID
	currency := models.CurrencyPersonalStars
	if txn.PaymentType == models.PaymentSupport {
		creditUserID = c.operatorID
		currency = models.CurrencyBotStars
	}

	err = c.store.CompleteTransaction(ctx, transactionID, creditUserID, currency, confirmedAmount)
	if errors.Is(err, db.ErrNotFound) {
		return nil, ErrAlreadyCompleted
	}
	if err != nil {
		return nil, fmt.Errorf("failed to complete transaction: %w", err)
	}

	txn.Status = models.TransactionCompleted
	return txn, nil
}
