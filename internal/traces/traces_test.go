package traces

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitWithoutEndpoint(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	shutdown, err := Init(context.Background(), "", logger)
	require.NoError(t, err)
	require.NotNil(t, shutdown)

	// The no-op shutdown must be safe to call.
	assert.NoError(t, shutdown(context.Background()))
}

func TestStartSpanWithNoopProvider(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	_, err := Init(context.Background(), "", logger)
	require.NoError(t, err)

	ctx, span := StartSpan(context.Background(), "payment.Confirm",
		InvoiceNumber("inv-1234-5678-9012"),
		OrderID("order-1"),
		Amount(150.00),
	)
	require.NotNil(t, ctx)
	require.NotNil(t, span)

	// Ending a span from the no-op provider must not panic.
	span.End()
}

func TestAttributeKeys(t *testing.T) {
	assert.Equal(t, "invoice.number", string(InvoiceNumber("inv-0000-0000-0000").Key))
	assert.Equal(t, "client.id", string(ClientID("c1").Key))
	assert.Equal(t, "order.id", string(OrderID("o1").Key))
	assert.Equal(t, "amount", string(Amount(1).Key))
}
