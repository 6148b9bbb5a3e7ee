package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"

	"economy-bot/internal/models"
)

// CreateWithdrawal debits personal_stars and records the pending request in
// one transaction. The debit is conditional on the balance covering the
// amount, so a concurrent request cannot overdraw; an uncovered debit
// surfaces as ErrNotFound with no withdrawal row written.
func (s *PostgresStore) CreateWithdrawal(ctx context.Context, w *models.Withdrawal) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin withdrawal: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
        UPDATE users
        SET personal_stars = personal_stars - $1
        WHERE user_id = $2 AND personal_stars >= $1
    `, w.Amount, w.UserID)
	if err != nil {
		return fmt.Errorf("failed to debit balance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	_, err = tx.Exec(ctx, `
        INSERT INTO withdrawals (withdrawal_id, user_id, amount, status)
        VALUES ($1, $2, $3, $4)
    `, w.WithdrawalID, w.UserID, w.Amount, models.WithdrawalPending)
	if isUniqueViolation(err) {
		return ErrAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("failed to record withdrawal: %w", err)
	}

	return tx.Commit(ctx)
}

func (s *PostgresStore) GetWithdrawal(ctx context.Context, withdrawalID string) (*models.Withdrawal, error) {
	query := `
        SELECT withdrawal_id, user_id, amount, status, created_at
        FROM withdrawals
        WHERE withdrawal_id = $1
    `

	var w models.Withdrawal
	err := s.pool.QueryRow(ctx, query, withdrawalID).Scan(
		&w.WithdrawalID, &w.UserID, &w.Amount, &w.Status, &w.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return &w, nil
}

// SettleWithdrawal moves a pending request to approved or rejected. On
// rejection the debited amount is credited back in the same transaction.
// A request that is no longer pending surfaces as ErrNotFound, so a
// settlement cannot be applied twice.
func (s *PostgresStore) SettleWithdrawal(ctx context.Context, withdrawalID string, status models.WithdrawalStatus) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin settlement: %w", err)
	}
	defer tx.Rollback(ctx)

	var userID, amount int64
	err = tx.QueryRow(ctx, `
        UPDATE withdrawals
        SET status = $2
        WHERE withdrawal_id = $1 AND status = 'pending'
        RETURNING user_id, amount
    `, withdrawalID, status).Scan(&userID, &amount)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to settle withdrawal: %w", err)
	}

	if status == models.WithdrawalRejected {
		_, err = tx.Exec(ctx, `
            UPDATE users
            SET personal_stars = personal_stars + $1
            WHERE user_id = $2
        `, amount, userID)
		if err != nil {
			return fmt.Errorf("failed to restore balance: %w", err)
		}
	}

	return tx.Commit(ctx)
}
