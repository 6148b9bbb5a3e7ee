package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
)

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(cfg struct {
	Host         string
	Port         string
	User         string
	Password     string
	DBName       string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	ConnLifetime time.Duration
}) (*PostgresStore, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s pool_max_conns=%d",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode, cfg.MaxOpenConns,
	)

	poolConfig, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DB connection string: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxOpenConns)
	poolConfig.MinConns = int32(cfg.MaxIdleConns)
	poolConfig.MaxConnLifetime = cfg.ConnLifetime
	poolConfig.MaxConnIdleTime = 15 * time.Minute

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.ConnectConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// InitSchema creates the ledger tables if they do not exist yet.
func (s *PostgresStore) InitSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS users (
			user_id        BIGINT PRIMARY KEY,
			username       TEXT NOT NULL DEFAULT '',
			qk_code        TEXT NOT NULL UNIQUE,
			bananas        BIGINT NOT NULL DEFAULT 0,
			stars          BIGINT NOT NULL DEFAULT 0,
			cakes          BIGINT NOT NULL DEFAULT 0,
			personal_stars BIGINT NOT NULL DEFAULT 0,
			bot_stars      BIGINT NOT NULL DEFAULT 0,
			registered_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS checks (
			code            TEXT PRIMARY KEY,
			amount          BIGINT NOT NULL,
			currency        TEXT NOT NULL,
			activations     INT NOT NULL DEFAULT 0,
			max_activations INT NOT NULL,
			creator_id      BIGINT NOT NULL,
			created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			is_active       BOOLEAN NOT NULL DEFAULT TRUE
		)`,
		`CREATE TABLE IF NOT EXISTS check_activations (
			check_code   TEXT NOT NULL REFERENCES checks(code),
			user_id      BIGINT NOT NULL,
			activated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE (check_code, user_id)
		)`,
		`CREATE TABLE IF NOT EXISTS transactions (
			transaction_id TEXT PRIMARY KEY,
			user_id        BIGINT NOT NULL,
			amount         BIGINT NOT NULL,
			status         TEXT NOT NULL DEFAULT 'pending',
			payment_type   TEXT NOT NULL,
			created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS withdrawals (
			withdrawal_id TEXT PRIMARY KEY,
			user_id       BIGINT NOT NULL,
			amount        BIGINT NOT NULL,
			status        TEXT NOT NULL DEFAULT 'pending',
			created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
	}

	for _, stmt := range statements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}
