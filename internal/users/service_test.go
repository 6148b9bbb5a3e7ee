package users

import (
	"context"
	"regexp"
	"testing"

	"github.com/stretchr/testify/require"

	"economy-bot/internal/db"
	"economy-bot/internal/models"
)

type fakeStore struct {
	users map[int64]*models.User

	// createErr overrides the next CreateUser result, for racing-register tests.
	createErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{users: make(map[int64]*models.User)}
}

func (f *fakeStore) CreateUser(ctx context.Context, userID int64, username, qkCode string) error {
	if f.createErr != nil {
		err := f.createErr
		f.createErr = nil
		return err
	}
	if _, ok := f.users[userID]; ok {
		return db.ErrAlreadyExists
	}
	f.users[userID] = &models.User{UserID: userID, Username: username, QKCode: qkCode}
	return nil
}

func (f *fakeStore) GetUser(ctx context.Context, userID int64) (*models.User, error) {
	user, ok := f.users[userID]
	if !ok {
		return nil, db.ErrNotFound
	}
	cp := *user
	return &cp, nil
}

func (f *fakeStore) QKCodeExists(ctx context.Context, qkCode string) (bool, error) {
	for _, user := range f.users {
		if user.QKCode == qkCode {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) ListUsers(ctx context.Context) ([]models.User, error) {
	users := make([]models.User, 0, len(f.users))
	for _, user := range f.users {
		users = append(users, *user)
	}
	return users, nil
}

func (f *fakeStore) SetCurrency(ctx context.Context, userID int64, currency models.Currency, amount int64) error {
	user, ok := f.users[userID]
	if !ok {
		return db.ErrNotFound
	}
	switch currency {
	case models.CurrencyBananas:
		user.Bananas = amount
	case models.CurrencyStars:
		user.Stars = amount
	case models.CurrencyCakes:
		user.Cakes = amount
	case models.CurrencyPersonalStars:
		user.PersonalStars = amount
	case models.CurrencyBotStars:
		user.BotStars = amount
	}
	return nil
}

func (f *fakeStore) GetStats(ctx context.Context) (*models.Stats, error) {
	return &models.Stats{TotalUsers: len(f.users)}, nil
}

var qkCodePattern = regexp.MustCompile(`^qK-[A-Z0-9]{9}$`)

func TestRegisterNewUser(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store)

	code, created, err := svc.Register(context.Background(), 1, "alice")
	require.NoError(t, err)
	require.True(t, created)
	require.Regexp(t, qkCodePattern, code)

	letters, digits := 0, 0
	for _, r := range code[3:] {
		if r >= 'A' && r <= 'Z' {
			letters++
		} else {
			digits++
		}
	}
	require.Equal(t, 2, letters)
	require.Equal(t, 7, digits)
}

func TestRegisterExistingUser(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store)
	ctx := context.Background()

	first, _, err := svc.Register(ctx, 1, "alice")
	require.NoError(t, err)

	second, created, err := svc.Register(ctx, 1, "alice")
	require.NoError(t, err)
	require.False(t, created)
	require.Equal(t, first, second)
	require.Len(t, store.users, 1)
}

func TestRegisterConcurrentCreate(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store)
	ctx := context.Background()

	// Another handler wins the insert between our lookup and create.
	store.createErr = db.ErrAlreadyExists
	store.users[1] = &models.User{UserID: 1, Username: "alice", QKCode: "qK-AB1234567"}

	code, created, err := svc.Register(ctx, 1, "alice")
	require.NoError(t, err)
	require.False(t, created)
	require.Equal(t, "qK-AB1234567", code)
}

func TestProfile(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store)
	ctx := context.Background()

	_, err := svc.Profile(ctx, 1)
	require.ErrorIs(t, err, ErrNotFound)

	_, _, err = svc.Register(ctx, 1, "alice")
	require.NoError(t, err)

	user, err := svc.Profile(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, "alice", user.Username)
}

func TestSetBalance(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store)
	ctx := context.Background()

	_, _, err := svc.Register(ctx, 1, "alice")
	require.NoError(t, err)

	require.ErrorIs(t, svc.SetBalance(ctx, 1, models.Currency("gold"), 10), ErrInvalidInput)
	require.ErrorIs(t, svc.SetBalance(ctx, 1, models.CurrencyBananas, -1), ErrInvalidInput)
	require.ErrorIs(t, svc.SetBalance(ctx, 2, models.CurrencyBananas, 10), ErrNotFound)

	require.NoError(t, svc.SetBalance(ctx, 1, models.CurrencyBananas, 42))
	user, err := svc.Profile(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, int64(42), user.Bananas)
}
