package invoice

import (
	"context"
	"sort"
	"sync"
)

// Compile-time check that MemoryStore implements Store.
var _ Store = (*MemoryStore)(nil)

// MemoryStore is an in-memory implementation of Store.
type MemoryStore struct {
	mu       sync.RWMutex
	invoices map[string]*Invoice // by invoice number
}

// NewMemoryStore creates a new in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		invoices: make(map[string]*Invoice),
	}
}

func (s *MemoryStore) Create(ctx context.Context, inv *Invoice) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.invoices[inv.InvoiceNumber]; exists {
		return ErrDuplicateNumber
	}
	cp := *inv
	s.invoices[inv.InvoiceNumber] = &cp
	return nil
}

func (s *MemoryStore) GetByNumber(ctx context.Context, invoiceNumber string) (*Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	inv, ok := s.invoices[invoiceNumber]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *inv
	return &cp, nil
}

func (s *MemoryStore) List(ctx context.Context) ([]*Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]*Invoice, 0, len(s.invoices))
	for _, inv := range s.invoices {
		cp := *inv
		result = append(result, &cp)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (s *MemoryStore) Delete(ctx context.Context, invoiceNumber string) (*Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inv, ok := s.invoices[invoiceNumber]
	if !ok {
		return nil, ErrNotFound
	}
	delete(s.invoices, invoiceNumber)
	return inv, nil
}
