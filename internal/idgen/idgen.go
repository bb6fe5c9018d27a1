// Package idgen derives invoice numbers and receipt access tokens from
// keyed SHA-256 digests.
//
// Nothing here is unique by construction: the invoice package runs a
// generate-and-check loop against the store, and the store's unique
// constraint is the final arbiter.
package idgen

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"time"
)

const numberAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// InvoiceNumber generates a shareable invoice number of the form
// inv-xxxx-xxxx-xxxx over the 0-9a-z alphabet. The digest is keyed with
// the configured invoice secret so numbers are not guessable from time
// alone.
func InvoiceNumber(secret string) string {
	input := fmt.Sprintf("%d-%s-%d", time.Now().UnixMilli(), Hex(8), os.Getpid())
	sum := sha256.Sum256([]byte(input + secret))

	// Map each digest byte onto the 36-symbol alphabet; 12 symbols total.
	out := make([]byte, 12)
	for i := 0; i < 12; i++ {
		out[i] = numberAlphabet[int(sum[i])%len(numberAlphabet)]
	}

	return fmt.Sprintf("inv-%s-%s-%s", out[0:4], out[4:8], out[8:12])
}

// PaymentToken generates a 32-hex-character receipt access token bound to
// the invoice number and the processor's order id.
func PaymentToken(invoiceNumber, orderID, secret string) string {
	input := invoiceNumber + "-" + orderID + "-" +
		strconv.FormatInt(time.Now().UnixMilli(), 10) + "-" + secret
	sum := sha256.Sum256([]byte(input))
	return hex.EncodeToString(sum[:])[:32]
}

// ClientID generates a client-scoped display identifier ("cl" + base36
// millis + 4 random base36 chars). Purely cosmetic; not checked for
// uniqueness anywhere.
func ClientID() string {
	ts := strconv.FormatInt(time.Now().UnixMilli(), 36)
	b := make([]byte, 4)
	if _, err := rand.Read(b); err != nil {
		panic("crypto/rand failed: " + err.Error())
	}
	suffix := make([]byte, 4)
	for i, v := range b {
		suffix[i] = numberAlphabet[int(v)%len(numberAlphabet)]
	}
	return "cl" + ts + string(suffix)
}

// Hex generates a random hex string of the given byte length.
func Hex(numBytes int) string {
	b := make([]byte, numBytes)
	if _, err := rand.Read(b); err != nil {
		panic("crypto/rand failed: " + err.Error())
	}
	return hex.EncodeToString(b)
}
