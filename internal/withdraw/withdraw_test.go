package withdraw

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"economy-bot/internal/db"
	"economy-bot/internal/models"
)

// fakeStore mirrors the postgres store's contract: the debit is conditional
// on coverage, settlement only applies to pending rows, rejection credits
// the amount back.
type fakeStore struct {
	users       map[int64]*models.User
	withdrawals map[string]*models.Withdrawal
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:       make(map[int64]*models.User),
		withdrawals: make(map[string]*models.Withdrawal),
	}
}

func (f *fakeStore) GetUser(ctx context.Context, userID int64) (*models.User, error) {
	user, ok := f.users[userID]
	if !ok {
		return nil, db.ErrNotFound
	}
	u := *user
	return &u, nil
}

func (f *fakeStore) CreateWithdrawal(ctx context.Context, w *models.Withdrawal) error {
	user, ok := f.users[w.UserID]
	if !ok || user.PersonalStars < w.Amount {
		return db.ErrNotFound
	}
	user.PersonalStars -= w.Amount
	cp := *w
	f.withdrawals[w.WithdrawalID] = &cp
	return nil
}

func (f *fakeStore) GetWithdrawal(ctx context.Context, withdrawalID string) (*models.Withdrawal, error) {
	w, ok := f.withdrawals[withdrawalID]
	if !ok {
		return nil, db.ErrNotFound
	}
	cp := *w
	return &cp, nil
}

func (f *fakeStore) SettleWithdrawal(ctx context.Context, withdrawalID string, status models.WithdrawalStatus) error {
	w, ok := f.withdrawals[withdrawalID]
	if !ok || w.Status != models.WithdrawalPending {
		return db.ErrNotFound
	}
	w.Status = status
	if status == models.WithdrawalRejected {
		f.users[w.UserID].PersonalStars += w.Amount
	}
	return nil
}

func TestRequestValidation(t *testing.T) {
	store := newFakeStore()
	store.users[1] = &models.User{UserID: 1, PersonalStars: 120}
	ctrl := NewController(store)
	ctx := context.Background()

	_, err := ctrl.Request(ctx, 1, 99)
	require.ErrorIs(t, err, ErrBelowMinimum)
	require.Equal(t, int64(120), store.users[1].PersonalStars)

	_, err = ctrl.Request(ctx, 1, 150)
	require.ErrorIs(t, err, ErrInsufficientBalance)
	require.Equal(t, int64(120), store.users[1].PersonalStars)
	require.Empty(t, store.withdrawals)
}

func TestRequestDebitsImmediately(t *testing.T) {
	store := newFakeStore()
	store.users[1] = &models.User{UserID: 1, PersonalStars: 120}
	ctrl := NewController(store)

	w, err := ctrl.Request(context.Background(), 1, 100)
	require.NoError(t, err)
	require.Equal(t, models.WithdrawalPending, w.Status)
	require.Equal(t, int64(100), w.Amount)
	require.Regexp(t, `^WD-[0-9A-F]{8}$`, w.WithdrawalID)

	require.Equal(t, int64(20), store.users[1].PersonalStars)
	require.Len(t, store.withdrawals, 1)
}

func TestRequestLosesRace(t *testing.T) {
	store := newFakeStore()
	store.users[1] = &models.User{UserID: 1, PersonalStars: 200}
	ctrl := NewController(store)
	ctx := context.Background()

	// Balance drops after validation but before the conditional debit.
	w1, err := ctrl.Request(ctx, 1, 150)
	require.NoError(t, err)
	require.NotNil(t, w1)

	_, err = ctrl.Request(ctx, 1, 150)
	require.ErrorIs(t, err, ErrInsufficientBalance)
	require.Equal(t, int64(50), store.users[1].PersonalStars)
}

func TestSettleApprove(t *testing.T) {
	store := newFakeStore()
	store.users[1] = &models.User{UserID: 1, PersonalStars: 500}
	ctrl := NewController(store)
	ctx := context.Background()

	w, err := ctrl.Request(ctx, 1, 200)
	require.NoError(t, err)

	settled, err := ctrl.Settle(ctx, w.WithdrawalID, models.WithdrawalApproved)
	require.NoError(t, err)
	require.Equal(t, models.WithdrawalApproved, settled.Status)

	// Approval does not move the balance again.
	require.Equal(t, int64(300), store.users[1].PersonalStars)

	_, err = ctrl.Settle(ctx, w.WithdrawalID, models.WithdrawalRejected)
	require.ErrorIs(t, err, ErrAlreadySettled)
}

func TestSettleRejectRestoresBalance(t *testing.T) {
	store := newFakeStore()
	store.users[1] = &models.User{UserID: 1, PersonalStars: 500}
	ctrl := NewController(store)
	ctx := context.Background()

	w, err := ctrl.Request(ctx, 1, 200)
	require.NoError(t, err)
	require.Equal(t, int64(300), store.users[1].PersonalStars)

	settled, err := ctrl.Settle(ctx, w.WithdrawalID, models.WithdrawalRejected)
	require.NoError(t, err)
	require.Equal(t, models.WithdrawalRejected, settled.Status)
	require.Equal(t, int64(500), store.users[1].PersonalStars)
}

func TestSettleValidation(t *testing.T) {
	ctrl := NewController(newFakeStore())
	ctx := context.Background()

	_, err := ctrl.Settle(ctx, "WD-MISSING0", models.WithdrawalApproved)
	require.ErrorIs(t, err, ErrNotFound)

	_, err = ctrl.Settle(ctx, "WD-MISSING0", models.WithdrawalPending)
	require.ErrorIs(t, err, ErrInvalidStatus)
}
