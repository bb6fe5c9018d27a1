// Package payment implements the payment-confirmation protocol and the
// receipt access layer.
//
// Confirmation is destructive: the invoice's fields are snapshotted into a
// short-lived receipt token and the live invoice row is deleted, freeing
// its number for reuse. The receipt token is the only surviving record of
// the payment and goes inert 15 minutes after issuance.
package payment

import (
	"context"
	"errors"
	"time"

	"github.com/codeaura/invoicer/internal/invoice"
)

// AmountTolerance is the absolute tolerance when comparing the claimed
// payment amount against the stored invoice total.
const AmountTolerance = 0.01

// Errors
var (
	// ErrInvoiceNotFound means no live invoice carries the claimed number.
	ErrInvoiceNotFound = errors.New("invoice not found")
	// ErrAmountMismatch means the claimed amount deviates from the stored
	// total beyond AmountTolerance.
	ErrAmountMismatch = errors.New("payment amount mismatch")
	// ErrTokenNotFound means the receipt token is unknown (never issued,
	// or already purged after expiry).
	ErrTokenNotFound = errors.New("invalid access token")
	// ErrTokenExpired means the token exists but is past its expiry; the
	// row is purged as a side effect of the lookup.
	ErrTokenExpired = errors.New("access token expired")
)

// Receipt is the detached snapshot stored inside a payment token. It is a
// full copy of the invoice at confirmation time — deliberately not a
// foreign key, since the invoice row is deleted in the same flow.
type Receipt struct {
	invoice.Invoice
	PaidAt  time.Time `json:"paidAt"`
	OrderID string    `json:"orderId"`
}

// Token is an ephemeral receipt access token.
type Token struct {
	Token string `json:"token"`
	// InvoiceData is the serialized Receipt snapshot, self-contained and
	// independent of the deleted invoice row.
	InvoiceData []byte    `json:"-"`
	ExpiresAt   time.Time `json:"expiresAt"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Expired reports whether the token is past its expiry at the given time.
func (t *Token) Expired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}

// Store persists payment tokens.
type Store interface {
	CreateToken(ctx context.Context, tok *Token) error
	GetToken(ctx context.Context, token string) (*Token, error)
	DeleteToken(ctx context.Context, token string) error
	// DeleteExpired purges up to limit tokens whose expiry precedes the
	// given time, returning how many were removed.
	DeleteExpired(ctx context.Context, before time.Time, limit int) (int, error)
}
