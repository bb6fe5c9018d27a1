package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/codeaura/invoicer/internal/idgen"
	"github.com/codeaura/invoicer/internal/invoice"
	"github.com/codeaura/invoicer/internal/logging"
	"github.com/codeaura/invoicer/internal/metrics"
	"github.com/codeaura/invoicer/internal/traces"
)

// Notifier is told about confirmed payments so confirmation emails can go
// out. Implementations must be fire-and-forget: a notifier can never fail
// or block a confirmation that already committed.
type Notifier interface {
	PaymentConfirmed(receipt *Receipt)
}

// Service implements the confirmation protocol and receipt access on top
// of the invoice store and a token store.
type Service struct {
	invoices   invoice.Store
	tokens     Store
	secret     string // keys the receipt token generator
	receiptTTL time.Duration
	notifier   Notifier // optional
}

// NewService creates a new payment service.
func NewService(invoices invoice.Store, tokens Store, secret string, receiptTTL time.Duration) *Service {
	if receiptTTL <= 0 {
		receiptTTL = 15 * time.Minute
	}
	return &Service{
		invoices:   invoices,
		tokens:     tokens,
		secret:     secret,
		receiptTTL: receiptTTL,
	}
}

// WithNotifier attaches a post-confirmation notifier.
func (s *Service) WithNotifier(n Notifier) *Service {
	s.notifier = n
	return s
}

// Confirm validates a client-submitted payment claim and performs the
// destructive UNPAID -> PAID transition:
//
//  1. fetch the invoice (ErrInvoiceNotFound if absent)
//  2. match the claimed amount within AmountTolerance
//  3. mint a receipt token
//  4. persist the token with a full invoice snapshot
//  5. delete the invoice
//
// There are no internal retries. A failure before step 4 leaves the
// invoice untouched and the client may retry; a failure between steps 4
// and 5 leaves both the receipt and the live invoice in place, which is
// accepted (the operator can delete the leftover invoice).
func (s *Service) Confirm(ctx context.Context, invoiceNumber, orderID string, claimedAmount float64) (string, error) {
	ctx, span := traces.StartSpan(ctx, "payment.Confirm",
		traces.InvoiceNumber(invoiceNumber),
		traces.OrderID(orderID),
	)
	defer span.End()

	inv, err := s.invoices.GetByNumber(ctx, invoiceNumber)
	if err != nil {
		if errors.Is(err, invoice.ErrNotFound) {
			metrics.PaymentsRejectedTotal.WithLabelValues("not_found").Inc()
			return "", ErrInvoiceNotFound
		}
		return "", fmt.Errorf("fetch invoice: %w", err)
	}

	if math.Abs(inv.TotalAmount-claimedAmount) > AmountTolerance {
		metrics.PaymentsRejectedTotal.WithLabelValues("amount_mismatch").Inc()
		logging.L(ctx).Warn("payment amount mismatch",
			"invoice_number", invoiceNumber,
			"stored", inv.TotalAmount,
			"claimed", claimedAmount,
		)
		return "", ErrAmountMismatch
	}

	now := time.Now()
	receipt := &Receipt{
		Invoice: *inv,
		PaidAt:  now,
		OrderID: orderID,
	}
	data, err := json.Marshal(receipt)
	if err != nil {
		return "", fmt.Errorf("marshal receipt: %w", err)
	}

	accessToken := idgen.PaymentToken(invoiceNumber, orderID, s.secret)
	tok := &Token{
		Token:       accessToken,
		InvoiceData: data,
		ExpiresAt:   now.Add(s.receiptTTL),
		CreatedAt:   now,
	}
	if err := s.tokens.CreateToken(ctx, tok); err != nil {
		return "", fmt.Errorf("persist payment token: %w", err)
	}

	if _, err := s.invoices.Delete(ctx, invoiceNumber); err != nil {
		// The receipt already exists; surface the error so the caller
		// reports failure, but note the ambiguous state for the operator.
		logging.L(ctx).Error("invoice delete failed after token persistence",
			"invoice_number", invoiceNumber,
			"error", err,
		)
		return "", fmt.Errorf("delete paid invoice: %w", err)
	}

	metrics.PaymentsConfirmedTotal.Inc()
	metrics.LiveInvoices.Dec()
	logging.L(ctx).Info("payment confirmed",
		"invoice_number", invoiceNumber,
		"order_id", orderID,
		"amount", inv.TotalAmount,
	)

	if s.notifier != nil {
		s.notifier.PaymentConfirmed(receipt)
	}

	return accessToken, nil
}

// Receipt resolves a receipt token to its snapshot, enforcing expiry.
// An expired token is purged on the spot; the next lookup sees NotFound.
func (s *Service) Receipt(ctx context.Context, token string) (*Receipt, error) {
	ctx, span := traces.StartSpan(ctx, "payment.Receipt")
	defer span.End()

	tok, err := s.tokens.GetToken(ctx, token)
	if err != nil {
		if errors.Is(err, ErrTokenNotFound) {
			metrics.ReceiptsServedTotal.WithLabelValues("not_found").Inc()
		}
		return nil, err
	}

	if tok.Expired(time.Now()) {
		if err := s.tokens.DeleteToken(ctx, token); err != nil {
			logging.L(ctx).Warn("failed to purge expired token", "error", err)
		} else {
			metrics.ReceiptTokensPurgedTotal.Inc()
		}
		metrics.ReceiptsServedTotal.WithLabelValues("expired").Inc()
		return nil, ErrTokenExpired
	}

	var receipt Receipt
	if err := json.Unmarshal(tok.InvoiceData, &receipt); err != nil {
		return nil, fmt.Errorf("unmarshal receipt: %w", err)
	}

	metrics.ReceiptsServedTotal.WithLabelValues("ok").Inc()
	return &receipt, nil
}

// PurgeExpired removes up to limit expired tokens. Used by the background
// sweeper; the read path purge in Receipt remains authoritative.
func (s *Service) PurgeExpired(ctx context.Context, limit int) (int, error) {
	n, err := s.tokens.DeleteExpired(ctx, time.Now(), limit)
	if n > 0 {
		metrics.ReceiptTokensPurgedTotal.Add(float64(n))
	}
	return n, err
}
