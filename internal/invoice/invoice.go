// Package invoice manages the live invoice records behind the payment links.
//
// Lifecycle:
//   - the operator reserves a number (generate-and-check loop) and creates
//     the invoice
//   - the pay page reads it by number
//   - it is deleted either by the operator or, destructively, by a
//     successful payment confirmation. There is no "paid" flag; a deleted
//     number becomes reusable by the generator loop.
package invoice

import (
	"context"
	"errors"
	"time"
)

// Errors
var (
	// ErrNotFound means no live invoice carries the requested number.
	ErrNotFound = errors.New("invoice not found")
	// ErrDuplicateNumber is surfaced by the store's unique constraint when
	// two creations race past the generate-and-check loop.
	ErrDuplicateNumber = errors.New("invoice number already exists")
	// ErrGenerationExhausted means the uniqueness loop ran out of attempts.
	ErrGenerationExhausted = errors.New("unable to generate unique invoice number after multiple attempts")
)

// Invoice is a live, unpaid invoice record.
type Invoice struct {
	ID                 string    `json:"id"`
	InvoiceNumber      string    `json:"invoiceNumber"`
	ClientID           string    `json:"clientId"`
	ClientName         string    `json:"clientName"`
	ClientPhoneNumber  string    `json:"clientPhoneNumber,omitempty"`
	ClientEmailAddress string    `json:"clientEmailAddress"`
	ServiceTitle       string    `json:"serviceTitle"`
	ServiceDescription string    `json:"serviceDescription"`
	DueDate            time.Time `json:"dueDate"`
	TotalAmount        float64   `json:"totalAmount"`
	CreatedAt          time.Time `json:"createdAt"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

// Store persists invoices keyed by their unique invoice number.
// Implementations perform no semantic validation; that happens in Service.
type Store interface {
	Create(ctx context.Context, inv *Invoice) error
	GetByNumber(ctx context.Context, invoiceNumber string) (*Invoice, error)
	// List returns all live invoices, newest first.
	List(ctx context.Context) ([]*Invoice, error)
	// Delete removes the invoice and returns the deleted record.
	Delete(ctx context.Context, invoiceNumber string) (*Invoice, error)
}
