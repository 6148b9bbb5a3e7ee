package checks

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"economy-bot/internal/db"
	"economy-bot/internal/models"
)

// fakeStore mirrors the postgres store's contract, including the conditional
// activation update and the unique (code, user) pair.
type fakeStore struct {
	checks      map[string]*models.Check
	activations map[string]map[int64]bool
	balances    map[int64]map[models.Currency]int64

	activateErr error // when set, ActivateCheck fails with this
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		checks:      make(map[string]*models.Check),
		activations: make(map[string]map[int64]bool),
		balances:    make(map[int64]map[models.Currency]int64),
	}
}

func (f *fakeStore) CreateCheck(ctx context.Context, check *models.Check) error {
	if _, ok := f.checks[check.Code]; ok {
		return db.ErrAlreadyExists
	}
	c := *check
	f.checks[check.Code] = &c
	return nil
}

func (f *fakeStore) GetCheck(ctx context.Context, code string) (*models.Check, error) {
	check, ok := f.checks[code]
	if !ok {
		return nil, db.ErrNotFound
	}
	c := *check
	return &c, nil
}

func (f *fakeStore) HasActivated(ctx context.Context, code string, userID int64) (bool, error) {
	return f.activations[code][userID], nil
}

func (f *fakeStore) ActivateCheck(ctx context.Context, code string, userID int64, currency models.Currency, amount int64) error {
	if f.activateErr != nil {
		return f.activateErr
	}
	check, ok := f.checks[code]
	if !ok || !check.IsActive || check.Activations >= check.MaxActivations {
		return db.ErrNotFound
	}
	if f.activations[code][userID] {
		return db.ErrAlreadyExists
	}
	if f.activations[code] == nil {
		f.activations[code] = make(map[int64]bool)
	}
	f.activations[code][userID] = true
	check.Activations++
	if f.balances[userID] == nil {
		f.balances[userID] = make(map[models.Currency]int64)
	}
	f.balances[userID][currency] += amount
	return nil
}

func (f *fakeStore) DeactivateCheck(ctx context.Context, code string) error {
	if check, ok := f.checks[code]; ok {
		check.IsActive = false
	}
	return nil
}

func TestCreateValidation(t *testing.T) {
	engine := NewEngine(newFakeStore())
	ctx := context.Background()

	_, err := engine.Create(ctx, models.CurrencyStars, 0, 5, 1, "PROMO")
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = engine.Create(ctx, models.CurrencyStars, 50, 0, 1, "PROMO")
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = engine.Create(ctx, models.CurrencyStars, 50, 5, 1, "ab")
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = engine.Create(ctx, models.CurrencyPersonalStars, 50, 5, 1, "PROMO")
	require.ErrorIs(t, err, ErrInvalidInput)

	check, err := engine.Create(ctx, models.CurrencyStars, 50, 5, 1, "  PROMO  ")
	require.NoError(t, err)
	require.Equal(t, "PROMO", check.Code)
	require.Equal(t, 0, check.Activations)
	require.True(t, check.IsActive)
}

func TestCreateDuplicateCode(t *testing.T) {
	engine := NewEngine(newFakeStore())
	ctx := context.Background()

	_, err := engine.Create(ctx, models.CurrencyStars, 50, 5, 1, "PROMO")
	require.NoError(t, err)

	_, err = engine.Create(ctx, models.CurrencyCakes, 10, 1, 1, "PROMO")
	require.ErrorIs(t, err, ErrDuplicateCode)
}

func TestRedeemLifecycle(t *testing.T) {
	store := newFakeStore()
	engine := NewEngine(store)
	ctx := context.Background()

	_, err := engine.Create(ctx, models.CurrencyStars, 50, 2, 1, "PROMO1")
	require.NoError(t, err)

	// User A redeems.
	check, err := engine.Redeem(ctx, "PROMO1", 100)
	require.NoError(t, err)
	require.Equal(t, 1, check.Activations)
	require.True(t, check.IsActive)
	require.Equal(t, int64(50), store.balances[100][models.CurrencyStars])

	// A second attempt by the same user is rejected without a credit.
	_, err = engine.Redeem(ctx, "PROMO1", 100)
	require.ErrorIs(t, err, ErrAlreadyActivated)
	require.Equal(t, int64(50), store.balances[100][models.CurrencyStars])

	// User B takes the last activation; the check deactivates.
	check, err = engine.Redeem(ctx, "PROMO1", 200)
	require.NoError(t, err)
	require.Equal(t, 2, check.Activations)
	require.False(t, check.IsActive)
	require.False(t, store.checks["PROMO1"].IsActive)

	// User C is out of luck.
	_, err = engine.Redeem(ctx, "PROMO1", 300)
	require.ErrorIs(t, err, ErrLimitReached)
	require.Nil(t, store.balances[300])
}

func TestRedeemLimitReachedWhileActive(t *testing.T) {
	store := newFakeStore()
	engine := NewEngine(store)
	ctx := context.Background()

	_, err := engine.Create(ctx, models.CurrencyBananas, 10, 1, 1, "LAST1")
	require.NoError(t, err)

	// Exhausted but not yet deactivated, as after a crash between the
	// final activation and the follow-up deactivation.
	store.checks["LAST1"].Activations = 1

	_, err = engine.Redeem(ctx, "LAST1", 100)
	require.ErrorIs(t, err, ErrLimitReached)
}

func TestRedeemUnknownCode(t *testing.T) {
	engine := NewEngine(newFakeStore())

	_, err := engine.Redeem(context.Background(), "NOPE", 100)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRedeemLosesRace(t *testing.T) {
	store := newFakeStore()
	engine := NewEngine(store)
	ctx := context.Background()

	_, err := engine.Create(ctx, models.CurrencyStars, 50, 2, 1, "RACE1")
	require.NoError(t, err)

	// The conditional update fails after validation passed: another
	// redemption landed in between.
	store.activateErr = db.ErrNotFound

	_, err = engine.Redeem(ctx, "RACE1", 100)
	require.ErrorIs(t, err, ErrLimitReached)
	require.Nil(t, store.balances[100])
}

func TestDeactivate(t *testing.T) {
	store := newFakeStore()
	engine := NewEngine(store)
	ctx := context.Background()

	_, err := engine.Create(ctx, models.CurrencyStars, 50, 5, 1, "PROMO")
	require.NoError(t, err)

	require.NoError(t, engine.Deactivate(ctx, "PROMO"))
	require.False(t, store.checks["PROMO"].IsActive)

	_, err = engine.Redeem(ctx, "PROMO", 100)
	require.ErrorIs(t, err, ErrInactive)

	require.ErrorIs(t, engine.Deactivate(ctx, "NOPE"), ErrNotFound)
}
