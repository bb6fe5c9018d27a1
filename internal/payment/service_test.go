package payment

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeaura/invoicer/internal/invoice"
	"github.com/codeaura/invoicer/internal/metrics"
)

func seedInvoice(t *testing.T, store invoice.Store, number string, amount float64) *invoice.Invoice {
	t.Helper()
	inv := &invoice.Invoice{
		ID:                 "id-" + number,
		InvoiceNumber:      number,
		ClientID:           "cl-test",
		ClientName:         "Acme Corp",
		ClientEmailAddress: "billing@acme.test",
		ServiceTitle:       "Web Development",
		TotalAmount:        amount,
		CreatedAt:          time.Now(),
		UpdatedAt:          time.Now(),
	}
	require.NoError(t, store.Create(context.Background(), inv))
	return inv
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestService() (*Service, *invoice.MemoryStore, *MemoryStore) {
	invoices := invoice.NewMemoryStore()
	tokens := NewMemoryStore()
	return NewService(invoices, tokens, "payment-secret", 15*time.Minute), invoices, tokens
}

func TestConfirmHappyPath(t *testing.T) {
	svc, invoices, _ := newTestService()
	ctx := context.Background()
	seedInvoice(t, invoices, "inv-aaaa-bbbb-cccc", 1500)

	token, err := svc.Confirm(ctx, "inv-aaaa-bbbb-cccc", "ORDER-1", 1500)
	require.NoError(t, err)
	assert.Regexp(t, `^[0-9a-f]{32}$`, token)

	// The invoice is destroyed by confirmation.
	_, err = invoices.GetByNumber(ctx, "inv-aaaa-bbbb-cccc")
	assert.ErrorIs(t, err, invoice.ErrNotFound)

	// The receipt snapshot carries the invoice fields.
	receipt, err := svc.Receipt(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "inv-aaaa-bbbb-cccc", receipt.InvoiceNumber)
	assert.Equal(t, "ORDER-1", receipt.OrderID)
	assert.Equal(t, 1500.0, receipt.TotalAmount)
	assert.False(t, receipt.PaidAt.IsZero())
}

func TestConfirmUnknownInvoice(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.Confirm(context.Background(), "inv-zzzz-zzzz-zzzz", "ORDER-1", 100)
	assert.ErrorIs(t, err, ErrInvoiceNotFound)
}

func TestConfirmAmountTolerance(t *testing.T) {
	cases := []struct {
		name    string
		claimed float64
		ok      bool
	}{
		{"exact", 100.00, true},
		{"half cent under", 99.995, true},
		{"half cent over", 100.005, true},
		{"two cents over", 100.02, false},
		{"dollar short", 99.00, false},
		{"zero", 0, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc, invoices, _ := newTestService()
			seedInvoice(t, invoices, "inv-aaaa-bbbb-cccc", 100.00)

			_, err := svc.Confirm(context.Background(), "inv-aaaa-bbbb-cccc", "ORDER-1", tc.claimed)
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrAmountMismatch)
			}
		})
	}
}

func TestConfirmMismatchLeavesInvoiceAlive(t *testing.T) {
	svc, invoices, _ := newTestService()
	ctx := context.Background()
	seedInvoice(t, invoices, "inv-aaaa-bbbb-cccc", 1500)

	_, err := svc.Confirm(ctx, "inv-aaaa-bbbb-cccc", "ORDER-1", 1400)
	require.ErrorIs(t, err, ErrAmountMismatch)

	_, err = invoices.GetByNumber(ctx, "inv-aaaa-bbbb-cccc")
	assert.NoError(t, err)
}

func TestConfirmFreesNumberForReuse(t *testing.T) {
	svc, invoices, _ := newTestService()
	ctx := context.Background()
	seedInvoice(t, invoices, "inv-aaaa-bbbb-cccc", 1500)

	_, err := svc.Confirm(ctx, "inv-aaaa-bbbb-cccc", "ORDER-1", 1500)
	require.NoError(t, err)

	// The same number can back a brand-new invoice.
	seedInvoice(t, invoices, "inv-aaaa-bbbb-cccc", 900)
}

type notifierSpy struct {
	received chan *Receipt
}

func (n *notifierSpy) PaymentConfirmed(r *Receipt) {
	n.received <- r
}

func TestConfirmNotifies(t *testing.T) {
	svc, invoices, _ := newTestService()
	spy := &notifierSpy{received: make(chan *Receipt, 1)}
	svc.WithNotifier(spy)

	seedInvoice(t, invoices, "inv-aaaa-bbbb-cccc", 1500)
	_, err := svc.Confirm(context.Background(), "inv-aaaa-bbbb-cccc", "ORDER-1", 1500)
	require.NoError(t, err)

	select {
	case r := <-spy.received:
		assert.Equal(t, "inv-aaaa-bbbb-cccc", r.InvoiceNumber)
	case <-time.After(time.Second):
		t.Fatal("notifier was not called")
	}
}

func TestReceiptUnknownToken(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.Receipt(context.Background(), "0123456789abcdef0123456789abcdef")
	assert.ErrorIs(t, err, ErrTokenNotFound)
}

func storedReceiptToken(t *testing.T, tokens *MemoryStore, token string, expiresAt time.Time) {
	t.Helper()
	data, err := json.Marshal(&Receipt{
		Invoice: invoice.Invoice{InvoiceNumber: "inv-aaaa-bbbb-cccc"},
		PaidAt:  time.Now(),
		OrderID: "ORDER-1",
	})
	require.NoError(t, err)
	require.NoError(t, tokens.CreateToken(context.Background(), &Token{
		Token:       token,
		InvoiceData: data,
		ExpiresAt:   expiresAt,
		CreatedAt:   time.Now(),
	}))
}

func TestReceiptExpiredTokenPurgedOnRead(t *testing.T) {
	svc, _, tokens := newTestService()
	ctx := context.Background()

	const token = "0123456789abcdef0123456789abcdef"
	storedReceiptToken(t, tokens, token, time.Now().Add(-time.Second))

	_, err := svc.Receipt(ctx, token)
	assert.ErrorIs(t, err, ErrTokenExpired)

	// The expired row was purged, so a second read reports not found.
	_, err = svc.Receipt(ctx, token)
	assert.ErrorIs(t, err, ErrTokenNotFound)
}

func TestReceiptNearExpiryBoundary(t *testing.T) {
	svc, _, tokens := newTestService()
	ctx := context.Background()

	const live = "aaaa1111aaaa1111aaaa1111aaaa1111"
	storedReceiptToken(t, tokens, live, time.Now().Add(time.Minute))

	_, err := svc.Receipt(ctx, live)
	assert.NoError(t, err)
}

func TestPurgeExpired(t *testing.T) {
	svc, _, tokens := newTestService()
	ctx := context.Background()

	storedReceiptToken(t, tokens, "aaaa1111aaaa1111aaaa1111aaaa1111", time.Now().Add(-time.Hour))
	storedReceiptToken(t, tokens, "bbbb2222bbbb2222bbbb2222bbbb2222", time.Now().Add(-time.Minute))
	storedReceiptToken(t, tokens, "cccc3333cccc3333cccc3333cccc3333", time.Now().Add(time.Hour))

	n, err := svc.PurgeExpired(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// The live token survives the sweep.
	_, err = svc.Receipt(ctx, "cccc3333cccc3333cccc3333cccc3333")
	assert.NoError(t, err)
}

func TestTimerStartStop(t *testing.T) {
	svc, _, _ := newTestService()
	timer := NewTimer(svc, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go timer.Start(ctx)

	require.Eventually(t, timer.Running, time.Second, 10*time.Millisecond)

	timer.Stop()
	require.Eventually(t, func() bool { return !timer.Running() }, time.Second, 10*time.Millisecond)
}

func TestConfirmDecrementsLiveInvoicesGauge(t *testing.T) {
	svc, invoices, _ := newTestService()
	ctx := context.Background()
	seedInvoice(t, invoices, "inv-aaaa-bbbb-cccc", 1500)

	before := promtestutil.ToFloat64(metrics.LiveInvoices)

	_, err := svc.Confirm(ctx, "inv-aaaa-bbbb-cccc", "ORDER-1", 1500)
	require.NoError(t, err)
	assert.Equal(t, before-1, promtestutil.ToFloat64(metrics.LiveInvoices))
}
