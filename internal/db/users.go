package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"

	"economy-bot/internal/models"
)

// currencyColumn maps the closed currency enum to its column name. Unknown
// values are rejected before any SQL is built.
func currencyColumn(c models.Currency) (string, error) {
	switch c {
	case models.CurrencyBananas:
		return "bananas", nil
	case models.CurrencyStars:
		return "stars", nil
	case models.CurrencyCakes:
		return "cakes", nil
	case models.CurrencyPersonalStars:
		return "personal_stars", nil
	case models.CurrencyBotStars:
		return "bot_stars", nil
	}
	return "", fmt.Errorf("unknown currency %q", c)
}

func (s *PostgresStore) CreateUser(ctx context.Context, userID int64, username, qkCode string) error {
	query := `
        INSERT INTO users (user_id, username, qk_code)
        VALUES ($1, $2, $3)
    `

	_, err := s.pool.Exec(ctx, query, userID, username, qkCode)
	if isUniqueViolation(err) {
		return ErrAlreadyExists
	}
	return err
}

func (s *PostgresStore) GetUser(ctx context.Context, userID int64) (*models.User, error) {
	query := `
        SELECT user_id, username, qk_code, bananas, stars, cakes, personal_stars, bot_stars, registered_at
        FROM users
        WHERE user_id = $1
    `

	var user models.User
	err := s.pool.QueryRow(ctx, query, userID).Scan(
		&user.UserID, &user.Username, &user.QKCode,
		&user.Bananas, &user.Stars, &user.Cakes,
		&user.PersonalStars, &user.BotStars,
		&user.RegisteredAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return &user, nil
}

func (s *PostgresStore) QKCodeExists(ctx context.Context, qkCode string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		"SELECT EXISTS (SELECT 1 FROM users WHERE qk_code = $1)", qkCode,
	).Scan(&exists)
	return exists, err
}

func (s *PostgresStore) ListUsers(ctx context.Context) ([]models.User, error) {
	query := `
        SELECT user_id, username
        FROM users
        ORDER BY user_id
    `

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var user models.User
		if err := rows.Scan(&user.UserID, &user.Username); err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

// SetCurrency sets an absolute balance value (admin override).
func (s *PostgresStore) SetCurrency(ctx context.Context, userID int64, currency models.Currency, amount int64) error {
	column, err := currencyColumn(currency)
	if err != nil {
		return err
	}

	tag, err := s.pool.Exec(ctx,
		fmt.Sprintf("UPDATE users SET %s = $1 WHERE user_id = $2", column),
		amount, userID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) GetStats(ctx context.Context) (*models.Stats, error) {
	query := `
        SELECT COUNT(*),
               COALESCE(SUM(bananas), 0),
               COALESCE(SUM(stars), 0),
               COALESCE(SUM(cakes), 0),
               COALESCE(SUM(personal_stars), 0),
               COALESCE(SUM(bot_stars), 0)
        FROM users
    `

	var stats models.Stats
	err := s.pool.QueryRow(ctx, query).Scan(
		&stats.TotalUsers, &stats.TotalBananas, &stats.TotalStars,
		&stats.TotalCakes, &stats.TotalPersonalStars, &stats.TotalBotStars,
	)
	if err != nil {
		return nil, err
	}

	err = s.pool.QueryRow(ctx,
		"SELECT COUNT(*), COALESCE(SUM(activations), 0) FROM checks",
	).Scan(&stats.TotalChecks, &stats.TotalActivations)
	if err != nil {
		return nil, err
	}

	err = s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM withdrawals").Scan(&stats.TotalWithdrawals)
	if err != nil {
		return nil, err
	}

	return &stats, nil
}
