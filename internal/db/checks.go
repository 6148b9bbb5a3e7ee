package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"

	"economy-bot/internal/models"
)

func (s *PostgresStore) CreateCheck(ctx context.Context, check *models.Check) error {
	query := `
        INSERT INTO checks (code, amount, currency, max_activations, creator_id, is_active)
        VALUES ($1, $2, $3, $4, $5, TRUE)
    `

	_, err := s.pool.Exec(ctx, query,
		check.Code, check.Amount, check.Currency, check.MaxActivations, check.CreatorID,
	)
	if isUniqueViolation(err) {
		return ErrAlreadyExists
	}
	return err
}

func (s *PostgresStore) GetCheck(ctx context.Context, code string) (*models.Check, error) {
	query := `
        SELECT code, amount, currency, activations, max_activations, creator_id, created_at, is_active
        FROM checks
        WHERE code = $1
    `

	var check models.Check
	err := s.pool.QueryRow(ctx, query, code).Scan(
		&check.Code, &check.Amount, &check.Currency,
		&check.Activations, &check.MaxActivations,
		&check.CreatorID, &check.CreatedAt, &check.IsActive,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return &check, nil
}

func (s *PostgresStore) HasActivated(ctx context.Context, code string, userID int64) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		"SELECT EXISTS (SELECT 1 FROM check_activations WHERE check_code = $1 AND user_id = $2)",
		code, userID,
	).Scan(&exists)
	return exists, err
}

// ActivateCheck records the activation, bumps the counter and credits the
// user's balance in one transaction. The counter update is conditional on
// activations < max_activations, so two concurrent redemptions cannot both
// pass the limit: the loser sees ErrNotFound and no partial effect remains.
// A repeated (code, user) pair surfaces as ErrAlreadyExists.
func (s *PostgresStore) ActivateCheck(ctx context.Context, code string, userID int64, currency models.Currency, amount int64) error {
	column, err := currencyColumn(currency)
	if err != nil {
		return err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin activation: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
        UPDATE checks
        SET activations = activations + 1
        WHERE code = $1 AND is_active AND activations < max_activations
    `, code)
	if err != nil {
		return fmt.Errorf("failed to increment activations: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	_, err = tx.Exec(ctx, `
        INSERT INTO check_activations (check_code, user_id)
        VALUES ($1, $2)
    `, code, userID)
	if isUniqueViolation(err) {
		return ErrAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("failed to record activation: %w", err)
	}

	_, err = tx.Exec(ctx,
		fmt.Sprintf("UPDATE users SET %s = %s + $1 WHERE user_id = $2", column, column),
		amount, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to credit reward: %w", err)
	}

	return tx.Commit(ctx)
}

func (s *PostgresStore) DeactivateCheck(ctx context.Context, code string) error {
	_, err := s.pool.Exec(ctx,
		"UPDATE checks SET is_active = FALSE WHERE code = $1", code,
	)
	return err
}
