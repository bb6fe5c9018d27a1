package idgen

import (
	"regexp"
	"testing"
)

var invoiceNumberRe = regexp.MustCompile(`^inv-[0-9a-z]{4}-[0-9a-z]{4}-[0-9a-z]{4}$`)

func TestInvoiceNumberFormat(t *testing.T) {
	for i := 0; i < 100; i++ {
		n := InvoiceNumber("test-secret")
		if !invoiceNumberRe.MatchString(n) {
			t.Fatalf("invoice number %q does not match format", n)
		}
	}
}

func TestInvoiceNumberVaries(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		seen[InvoiceNumber("test-secret")] = true
	}
	// Random bytes feed the digest, so repeats across 50 draws would
	// indicate a broken generator rather than bad luck.
	if len(seen) < 50 {
		t.Errorf("expected 50 distinct numbers, got %d", len(seen))
	}
}

func TestPaymentTokenShape(t *testing.T) {
	tok := PaymentToken("inv-aaaa-bbbb-cccc", "ORDER123", "pay-secret")
	if len(tok) != 32 {
		t.Fatalf("token length = %d, want 32", len(tok))
	}
	if !regexp.MustCompile(`^[0-9a-f]{32}$`).MatchString(tok) {
		t.Errorf("token %q is not lowercase hex", tok)
	}
}

func TestPaymentTokenVariesByOrder(t *testing.T) {
	a := PaymentToken("inv-aaaa-bbbb-cccc", "ORDER1", "s")
	b := PaymentToken("inv-aaaa-bbbb-cccc", "ORDER2", "s")
	if a == b {
		t.Error("tokens for different orders should differ")
	}
}

func TestClientIDPrefix(t *testing.T) {
	id := ClientID()
	if len(id) < 6 || id[:2] != "cl" {
		t.Errorf("unexpected client id %q", id)
	}
}

func TestHexLength(t *testing.T) {
	if got := Hex(8); len(got) != 16 {
		t.Errorf("Hex(8) length = %d, want 16", len(got))
	}
}
