package invoice

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/codeaura/invoicer/internal/idgen"
	"github.com/codeaura/invoicer/internal/metrics"
	"github.com/codeaura/invoicer/internal/traces"
	"github.com/codeaura/invoicer/internal/validation"
)

// maxNumberAttempts bounds the generate-and-check uniqueness loop.
const maxNumberAttempts = 10

// Draft carries the operator-supplied fields for a new invoice.
// InvoiceNumber must come from NextNumber; it is never client-invented.
type Draft struct {
	InvoiceNumber      string    `json:"invoiceNumber"`
	ClientID           string    `json:"clientId"`
	ClientName         string    `json:"clientName"`
	ClientPhoneNumber  string    `json:"clientPhoneNumber"`
	ClientEmailAddress string    `json:"clientEmailAddress"`
	ServiceTitle       string    `json:"serviceTitle"`
	ServiceDescription string    `json:"serviceDescription"`
	DueDate            time.Time `json:"dueDate"`
	TotalAmount        float64   `json:"totalAmount"`
}

// Service implements invoice operations on top of a Store.
type Service struct {
	store  Store
	secret string // keys the invoice number generator
}

// NewService creates a new invoice service.
func NewService(store Store, secret string) *Service {
	return &Service{store: store, secret: secret}
}

// NextNumber reserves nothing — it generates candidate numbers and checks
// them against the store until one is free, giving up after
// maxNumberAttempts. Two concurrent callers can still race past this
// check; the store's unique constraint settles it at Create time.
func (s *Service) NextNumber(ctx context.Context) (string, error) {
	for attempt := 0; attempt < maxNumberAttempts; attempt++ {
		number := idgen.InvoiceNumber(s.secret)
		_, err := s.store.GetByNumber(ctx, number)
		if errors.Is(err, ErrNotFound) {
			return number, nil
		}
		if err != nil {
			return "", fmt.Errorf("check invoice number: %w", err)
		}
		// taken, try again
	}
	return "", ErrGenerationExhausted
}

// Create validates the draft and persists a new invoice.
func (s *Service) Create(ctx context.Context, draft *Draft) (*Invoice, error) {
	ctx, span := traces.StartSpan(ctx, "invoice.Create",
		traces.InvoiceNumber(draft.InvoiceNumber),
		traces.Amount(draft.TotalAmount),
	)
	defer span.End()

	if errs := validateDraft(draft); len(errs) > 0 {
		return nil, errs
	}

	clientID := draft.ClientID
	if clientID == "" {
		clientID = idgen.ClientID()
	}

	now := time.Now()
	inv := &Invoice{
		ID:                 idgen.Hex(16),
		InvoiceNumber:      draft.InvoiceNumber,
		ClientID:           clientID,
		ClientName:         validation.SanitizeString(draft.ClientName, 200),
		ClientPhoneNumber:  validation.SanitizeString(draft.ClientPhoneNumber, 30),
		ClientEmailAddress: validation.SanitizeString(draft.ClientEmailAddress, 254),
		ServiceTitle:       validation.SanitizeString(draft.ServiceTitle, 200),
		ServiceDescription: validation.SanitizeString(draft.ServiceDescription, validation.MaxStringLength),
		DueDate:            draft.DueDate,
		TotalAmount:        draft.TotalAmount,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	if err := s.store.Create(ctx, inv); err != nil {
		return nil, err
	}
	metrics.LiveInvoices.Inc()
	return inv, nil
}

// Get fetches a live invoice by number.
func (s *Service) Get(ctx context.Context, invoiceNumber string) (*Invoice, error) {
	return s.store.GetByNumber(ctx, invoiceNumber)
}

// List returns all live invoices, newest first.
func (s *Service) List(ctx context.Context) ([]*Invoice, error) {
	return s.store.List(ctx)
}

// Delete removes an invoice and returns the deleted record.
func (s *Service) Delete(ctx context.Context, invoiceNumber string) (*Invoice, error) {
	inv, err := s.store.Delete(ctx, invoiceNumber)
	if err == nil {
		metrics.LiveInvoices.Dec()
	}
	return inv, err
}

func validateDraft(d *Draft) validation.ValidationErrors {
	return validation.Validate(
		validation.Required("invoiceNumber", d.InvoiceNumber),
		validation.Required("clientName", d.ClientName),
		validation.Required("clientEmailAddress", d.ClientEmailAddress),
		validation.ValidEmail("clientEmailAddress", d.ClientEmailAddress),
		validation.ValidPhone("clientPhoneNumber", d.ClientPhoneNumber),
		validation.Required("serviceTitle", d.ServiceTitle),
		validation.MaxLength("serviceDescription", d.ServiceDescription, validation.MaxStringLength),
		validation.NonNegativeAmount("totalAmount", d.TotalAmount),
		validation.FutureDate("dueDate", d.DueDate),
	)
}
