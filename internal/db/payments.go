package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"

	"economy-bot/internal/models"
)

func (s *PostgresStore) CreateTransaction(ctx context.Context, txn *models.Transaction) error {
	query := `
        INSERT INTO transactions (transaction_id, user_id, amount, status, payment_type)
        VALUES ($1, $2, $3, $4, $5)
    `

	_, err := s.pool.Exec(ctx, query,
		txn.TransactionID, txn.UserID, txn.Amount, txn.Status, txn.PaymentType,
	)
	if isUniqueViolation(err) {
		return ErrAlreadyExists
	}
	return err
}

func (s *PostgresStore) GetTransaction(ctx context.Context, transactionID string) (*models.Transaction, error) {
	query := `
        SELECT transaction_id, user_id, amount, status, payment_type, created_at
        FROM transactions
        WHERE transaction_id = $1
    `

	var txn models.Transaction
	err := s.pool.QueryRow(ctx, query, transactionID).Scan(
		&txn.TransactionID, &txn.UserID, &txn.Amount,
		&txn.Status, &txn.PaymentType, &txn.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return &txn, nil
}

// CompleteTransaction marks a pending transaction completed and credits the
// target balance in one transaction. The status update is conditional on the
// row still being pending, so a duplicate provider callback cannot credit
// twice; the duplicate sees ErrNotFound.
func (s *PostgresStore) CompleteTransaction(ctx context.Context, transactionID string, creditUserID int64, currency models.Currency, amount int64) error {
	column, err := currencyColumn(currency)
	if err != nil {
		return err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin completion: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
        UPDATE transactions
        SET status = 'completed'
        WHERE transaction_id = $1 AND status = 'pending'
    `, transactionID)
	if err != nil {
		return fmt.Errorf("failed to complete transaction: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	_, err = tx.Exec(ctx,
		fmt.Sprintf("UPDATE users SET %s = %s + $1 WHERE user_id = $2", column, column),
		amount, creditUserID,
	)
	if err != nil {
		return fmt.Errorf("failed to credit payment: %w", err)
	}

	return tx.Commit(ctx)
}
