package invoice

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeaura/invoicer/internal/testutil"
)

func pgInvoice(number string) *Invoice {
	now := time.Now().UTC().Truncate(time.Millisecond)
	return &Invoice{
		ID:                 "id-" + number,
		InvoiceNumber:      number,
		ClientID:           "cl-test",
		ClientName:         "Acme Corp",
		ClientEmailAddress: "billing@acme.test",
		ServiceTitle:       "Web Development",
		ServiceDescription: "Marketing site rebuild",
		DueDate:            now.Add(30 * 24 * time.Hour),
		TotalAmount:        1500.50,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
}

func TestPostgresStoreCRUD(t *testing.T) {
	db, cleanup := testutil.PGTest(t)
	defer cleanup()

	ctx := context.Background()
	store := NewPostgresStore(db)
	require.NoError(t, store.Migrate(ctx))

	inv := pgInvoice("inv-aaaa-bbbb-cccc")
	require.NoError(t, store.Create(ctx, inv))

	fetched, err := store.GetByNumber(ctx, "inv-aaaa-bbbb-cccc")
	require.NoError(t, err)
	assert.Equal(t, inv.ID, fetched.ID)
	assert.Equal(t, inv.ClientEmailAddress, fetched.ClientEmailAddress)
	assert.InDelta(t, 1500.50, fetched.TotalAmount, 0.001)

	deleted, err := store.Delete(ctx, "inv-aaaa-bbbb-cccc")
	require.NoError(t, err)
	assert.Equal(t, inv.ID, deleted.ID)

	_, err = store.GetByNumber(ctx, "inv-aaaa-bbbb-cccc")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPostgresStoreDuplicateNumber(t *testing.T) {
	db, cleanup := testutil.PGTest(t)
	defer cleanup()

	ctx := context.Background()
	store := NewPostgresStore(db)
	require.NoError(t, store.Migrate(ctx))

	first := pgInvoice("inv-aaaa-bbbb-cccc")
	require.NoError(t, store.Create(ctx, first))

	second := pgInvoice("inv-aaaa-bbbb-cccc")
	second.ID = "id-other"
	assert.ErrorIs(t, store.Create(ctx, second), ErrDuplicateNumber)
}

func TestPostgresStoreListOrder(t *testing.T) {
	db, cleanup := testutil.PGTest(t)
	defer cleanup()

	ctx := context.Background()
	store := NewPostgresStore(db)
	require.NoError(t, store.Migrate(ctx))

	older := pgInvoice("inv-1111-1111-1111")
	older.CreatedAt = time.Now().Add(-time.Hour)
	newer := pgInvoice("inv-2222-2222-2222")
	newer.ID = "id-newer"

	require.NoError(t, store.Create(ctx, older))
	require.NoError(t, store.Create(ctx, newer))

	invoices, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, invoices, 2)
	assert.Equal(t, "inv-2222-2222-2222", invoices[0].InvoiceNumber)
}

func TestPostgresStoreDeleteMissing(t *testing.T) {
	db, cleanup := testutil.PGTest(t)
	defer cleanup()

	store := NewPostgresStore(db)
	require.NoError(t, store.Migrate(context.Background()))

	_, err := store.Delete(context.Background(), "inv-zzzz-zzzz-zzzz")
	assert.ErrorIs(t, err, ErrNotFound)
}
