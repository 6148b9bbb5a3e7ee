package payment

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"economy-bot/internal/db"
	"economy-bot/internal/models"
)

const operatorID = int64(999)

// fakeStore mirrors the postgres store's contract: completion is conditional
// on the transaction still being pending.
type fakeStore struct {
	transactions map[string]*models.Transaction
	balances     map[int64]map[models.Currency]int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		transactions: make(map[string]*models.Transaction),
		balances:     make(map[int64]map[models.Currency]int64),
	}
}

func (f *fakeStore) CreateTransaction(ctx context.Context, txn *models.Transaction) error {
	if _, ok := f.transactions[txn.TransactionID]; ok {
		return db.ErrAlreadyExists
	}
	cp := *txn
	f.transactions[txn.TransactionID] = &cp
	return nil
}

func (f *fakeStore) GetTransaction(ctx context.Context, transactionID string) (*models.Transaction, error) {
	txn, ok := f.transactions[transactionID]
	if !ok {
		return nil, db.ErrNotFound
	}
	cp := *txn
	return &cp, nil
}

func (f *fakeStore) CompleteTransaction(ctx context.Context, transactionID string, creditUserID int64, currency models.Currency, amount int64) error {
	txn, ok := f.transactions[transactionID]
	if !ok || txn.Status != models.TransactionPending {
		return db.ErrNotFound
	}
	txn.Status = models.TransactionCompleted
	if f.balances[creditUserID] == nil {
		f.balances[creditUserID] = make(map[models.Currency]int64)
	}
	f.balances[creditUserID][currency] += amount
	return nil
}

// fakeIssuer returns a canned link, or an error when set.
type fakeIssuer struct {
	link string
	err  error

	lastPayload string
}

func (f *fakeIssuer) IssueInvoice(ctx context.Context, title, description, payload string, amount int64) (string, error) {
	f.lastPayload = payload
	if f.err != nil {
		return "", f.err
	}
	return f.link, nil
}

func TestCreateInvoiceValidation(t *testing.T) {
	ctrl := NewController(newFakeStore(), &fakeIssuer{link: "https://t.me/$pay"}, operatorID)
	ctx := context.Background()

	_, err := ctrl.CreateInvoice(ctx, 1, 0, models.PaymentDeposit)
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = ctrl.CreateInvoice(ctx, 1, 149, models.PaymentDeposit)
	require.ErrorIs(t, err, ErrBelowMinimum)

	_, err = ctrl.CreateInvoice(ctx, 1, 100, models.PaymentType("refund"))
	require.ErrorIs(t, err, ErrInvalidInput)

	// Support payments have no minimum.
	_, err = ctrl.CreateInvoice(ctx, 1, 10, models.PaymentSupport)
	require.NoError(t, err)
}

func TestCreateInvoiceCorrelation(t *testing.T) {
	store := newFakeStore()
	issuer := &fakeIssuer{link: "https://t.me/$pay"}
	ctrl := NewController(store, issuer, operatorID)

	invoice, err := ctrl.CreateInvoice(context.Background(), 1, 200, models.PaymentDeposit)
	require.NoError(t, err)
	require.Equal(t, "https://t.me/$pay", invoice.Link)
	require.Equal(t, models.TransactionPending, invoice.Transaction.Status)

	// The transaction id travels as the invoice payload.
	require.Equal(t, invoice.Transaction.TransactionID, issuer.lastPayload)
	require.Contains(t, store.transactions, invoice.Transaction.TransactionID)
}

func TestCreateInvoiceProviderError(t *testing.T) {
	ctrl := NewController(newFakeStore(), &fakeIssuer{err: errors.New("api down")}, operatorID)

	_, err := ctrl.CreateInvoice(context.Background(), 1, 200, models.PaymentDeposit)
	require.ErrorIs(t, err, ErrProvider)
}

func TestPreAuthorize(t *testing.T) {
	store := newFakeStore()
	ctrl := NewController(store, &fakeIssuer{link: "https://t.me/$pay"}, operatorID)
	ctx := context.Background()

	require.ErrorIs(t, ctrl.PreAuthorize(ctx, "missing"), ErrNotFound)

	invoice, err := ctrl.CreateInvoice(ctx, 1, 200, models.PaymentDeposit)
	require.NoError(t, err)
	require.NoError(t, ctrl.PreAuthorize(ctx, invoice.Transaction.TransactionID))

	_, err = ctrl.Confirm(ctx, invoice.Transaction.TransactionID, 200)
	require.NoError(t, err)
	require.ErrorIs(t, ctrl.PreAuthorize(ctx, invoice.Transaction.TransactionID), ErrAlreadyCompleted)
}

func TestConfirmDepositCreditsPersonalStars(t *testing.T) {
	store := newFakeStore()
	ctrl := NewController(store, &fakeIssuer{link: "https://t.me/$pay"}, operatorID)
	ctx := context.Background()

	invoice, err := ctrl.CreateInvoice(ctx, 1, 200, models.PaymentDeposit)
	require.NoError(t, err)

	txn, err := ctrl.Confirm(ctx, invoice.Transaction.TransactionID, 200)
	require.NoError(t, err)
	require.Equal(t, models.TransactionCompleted, txn.Status)
	require.Equal(t, int64(200), store.balances[1][models.CurrencyPersonalStars])
}

func TestConfirmSupportCreditsOperator(t *testing.T) {
	store := newFakeStore()
	ctrl := NewController(store, &fakeIssuer{link: "https://t.me/$pay"}, operatorID)
	ctx := context.Background()

	invoice, err := ctrl.CreateInvoice(ctx, 1, 2000, models.PaymentSupport)
	require.NoError(t, err)

	_, err = ctrl.Confirm(ctx, invoice.Transaction.TransactionID, 2000)
	require.NoError(t, err)
	require.Equal(t, int64(2000), store.balances[operatorID][models.CurrencyBotStars])
	require.Empty(t, store.balances[1])
}

func TestConfirmIsIdempotent(t *testing.T) {
	store := newFakeStore()
	ctrl := NewController(store, &fakeIssuer{link: "https://t.me/$pay"}, operatorID)
	ctx := context.Background()

	invoice, err := ctrl.CreateInvoice(ctx, 1, 200, models.PaymentDeposit)
	require.NoError(t, err)

	_, err = ctrl.Confirm(ctx, invoice.Transaction.TransactionID, 200)
	require.NoError(t, err)

	// A duplicate provider callback must not credit twice.
	_, err = ctrl.Confirm(ctx, invoice.Transaction.TransactionID, 200)
	require.ErrorIs(t, err, ErrAlreadyCompleted)
	require.Equal(t, int64(200), store.balances[1][models.CurrencyPersonalStars])
}

func TestConfirmUnknownTransaction(t *testing.T) {
	ctrl := NewController(newFakeStore(), &fakeIssuer{link: "https://t.me/$pay"}, operatorID)

	_, err := ctrl.Confirm(context.Background(), "missing", 200)
	require.ErrorIs(t, err, ErrNotFound)
}
