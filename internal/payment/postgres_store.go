package payment

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Compile-time check that PostgresStore implements Store.
var _ Store = (*PostgresStore)(nil)

// PostgresStore implements Store backed by PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL-backed token store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the payment_tokens table if it doesn't exist.
func (p *PostgresStore) Migrate(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS payment_tokens (
			token        VARCHAR(32) PRIMARY KEY,
			invoice_data JSONB NOT NULL,
			expires_at   TIMESTAMPTZ NOT NULL,
			created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_payment_tokens_expires ON payment_tokens(expires_at);
	`)
	return err
}

func (p *PostgresStore) CreateToken(ctx context.Context, tok *Token) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO payment_tokens (token, invoice_data, expires_at, created_at)
		VALUES ($1, $2, $3, $4)
	`, tok.Token, tok.InvoiceData, tok.ExpiresAt, tok.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert payment token: %w", err)
	}
	return nil
}

func (p *PostgresStore) GetToken(ctx context.Context, token string) (*Token, error) {
	var tok Token
	err := p.db.QueryRowContext(ctx, `
		SELECT token, invoice_data, expires_at, created_at
		FROM payment_tokens WHERE token = $1
	`, token).Scan(&tok.Token, &tok.InvoiceData, &tok.ExpiresAt, &tok.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrTokenNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get payment token: %w", err)
	}
	return &tok, nil
}

func (p *PostgresStore) DeleteToken(ctx context.Context, token string) error {
	_, err := p.db.ExecContext(ctx, `DELETE FROM payment_tokens WHERE token = $1`, token)
	if err != nil {
		return fmt.Errorf("delete payment token: %w", err)
	}
	return nil
}

func (p *PostgresStore) DeleteExpired(ctx context.Context, before time.Time, limit int) (int, error) {
	res, err := p.db.ExecContext(ctx, `
		DELETE FROM payment_tokens
		WHERE token IN (
			SELECT token FROM payment_tokens WHERE expires_at < $1 LIMIT $2
		)
	`, before, limit)
	if err != nil {
		return 0, fmt.Errorf("delete expired tokens: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}
