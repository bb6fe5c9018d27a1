package invoice

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

// Compile-time check that PostgresStore implements Store.
var _ Store = (*PostgresStore)(nil)

// PostgresStore implements Store backed by PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL-backed invoice store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the invoices table if it doesn't exist.
func (p *PostgresStore) Migrate(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS invoices (
			id                   VARCHAR(36) PRIMARY KEY,
			invoice_number       VARCHAR(20) NOT NULL UNIQUE,
			client_id            VARCHAR(36) NOT NULL,
			client_name          TEXT NOT NULL,
			client_phone_number  TEXT NOT NULL DEFAULT '',
			client_email_address TEXT NOT NULL,
			service_title        TEXT NOT NULL,
			service_description  TEXT NOT NULL DEFAULT '',
			due_date             TIMESTAMPTZ NOT NULL,
			total_amount         NUMERIC(12,2) NOT NULL,
			created_at           TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at           TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_invoices_created ON invoices(created_at DESC);
	`)
	return err
}

func (p *PostgresStore) Create(ctx context.Context, inv *Invoice) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO invoices (
			id, invoice_number, client_id, client_name, client_phone_number,
			client_email_address, service_title, service_description,
			due_date, total_amount, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10::NUMERIC(12,2), $11, $12)
	`,
		inv.ID, inv.InvoiceNumber, inv.ClientID, inv.ClientName, inv.ClientPhoneNumber,
		inv.ClientEmailAddress, inv.ServiceTitle, inv.ServiceDescription,
		inv.DueDate, inv.TotalAmount, inv.CreatedAt, inv.UpdatedAt,
	)
	if err != nil {
		// 23505 = unique_violation; the constraint is the authoritative
		// tie-break when two creations race the generate-and-check loop.
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrDuplicateNumber
		}
		return fmt.Errorf("insert invoice: %w", err)
	}
	return nil
}

func (p *PostgresStore) GetByNumber(ctx context.Context, invoiceNumber string) (*Invoice, error) {
	row := p.db.QueryRowContext(ctx, `
		SELECT id, invoice_number, client_id, client_name, client_phone_number,
			client_email_address, service_title, service_description,
			due_date, total_amount, created_at, updated_at
		FROM invoices WHERE invoice_number = $1
	`, invoiceNumber)

	inv, err := scanInvoice(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get invoice: %w", err)
	}
	return inv, nil
}

func (p *PostgresStore) List(ctx context.Context) ([]*Invoice, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, invoice_number, client_id, client_name, client_phone_number,
			client_email_address, service_title, service_description,
			due_date, total_amount, created_at, updated_at
		FROM invoices ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	defer rows.Close()

	var result []*Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, fmt.Errorf("scan invoice: %w", err)
		}
		result = append(result, inv)
	}
	return result, rows.Err()
}

func (p *PostgresStore) Delete(ctx context.Context, invoiceNumber string) (*Invoice, error) {
	row := p.db.QueryRowContext(ctx, `
		DELETE FROM invoices WHERE invoice_number = $1
		RETURNING id, invoice_number, client_id, client_name, client_phone_number,
			client_email_address, service_title, service_description,
			due_date, total_amount, created_at, updated_at
	`, invoiceNumber)

	inv, err := scanInvoice(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("delete invoice: %w", err)
	}
	return inv, nil
}

// scanner abstracts over *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanInvoice(s scanner) (*Invoice, error) {
	var inv Invoice
	err := s.Scan(
		&inv.ID, &inv.InvoiceNumber, &inv.ClientID, &inv.ClientName, &inv.ClientPhoneNumber,
		&inv.ClientEmailAddress, &inv.ServiceTitle, &inv.ServiceDescription,
		&inv.DueDate, &inv.TotalAmount, &inv.CreatedAt, &inv.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &inv, nil
}
