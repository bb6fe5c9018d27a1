package payment

import (
	"context"
	"sync"
	"time"
)

// Compile-time check that MemoryStore implements Store.
var _ Store = (*MemoryStore)(nil)

// MemoryStore is an in-memory implementation of Store.
type MemoryStore struct {
	mu     sync.RWMutex
	tokens map[string]*Token
}

// NewMemoryStore creates a new in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tokens: make(map[string]*Token),
	}
}

func (s *MemoryStore) CreateToken(ctx context.Context, tok *Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *tok
	s.tokens[tok.Token] = &cp
	return nil
}

func (s *MemoryStore) GetToken(ctx context.Context, token string) (*Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tok, ok := s.tokens[token]
	if !ok {
		return nil, ErrTokenNotFound
	}
	cp := *tok
	return &cp, nil
}

func (s *MemoryStore) DeleteToken(ctx context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, token)
	return nil
}

func (s *MemoryStore) DeleteExpired(ctx context.Context, before time.Time, limit int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for key, tok := range s.tokens {
		if removed >= limit {
			break
		}
		if tok.ExpiresAt.Before(before) {
			delete(s.tokens, key)
			removed++
		}
	}
	return removed, nil
}
