// Package memory is the process-lifetime Store behind the market repository.
package memory

import (
	"context"
	"sync"

	"github.com/fd1az/swap-router/business/market/app"
	"github.com/fd1az/swap-router/business/market/domain"
)

var _ app.Store = (*Store)(nil)

// Store keeps pools and tokens in insertion order. Values are copied on the
// way in and out.
type Store struct {
	mu sync.RWMutex

	pools     map[string]domain.Pool
	poolOrder []string

	tokens     map[string]domain.Token
	tokenOrder []string
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		pools:  make(map[string]domain.Pool),
		tokens: make(map[string]domain.Token),
	}
}

func (s *Store) Pools(_ context.Context) ([]domain.Pool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Pool, 0, len(s.poolOrder))
	for _, addr := range s.poolOrder {
		out = append(out, s.pools[addr].Clone())
	}
	return out, nil
}

func (s *Store) Pool(_ context.Context, address string) (domain.Pool, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.pools[address]
	if !ok {
		return domain.Pool{}, false, nil
	}
	return p.Clone(), true, nil
}

// PutPool overwrites an existing pool without moving it in the listing order.
func (s *Store) PutPool(_ context.Context, pool domain.Pool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.pools[pool.Address]; !exists {
		s.poolOrder = append(s.poolOrder, pool.Address)
	}
	s.pools[pool.Address] = pool.Clone()
	return nil
}

func (s *Store) DeletePool(_ context.Context, address string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.pools[address]; !exists {
		return false, nil
	}
	delete(s.pools, address)
	s.poolOrder = removeKey(s.poolOrder, address)
	return true, nil
}

func (s *Store) ResetPools(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pools = make(map[string]domain.Pool)
	s.poolOrder = nil
	return nil
}

func (s *Store) Tokens(_ context.Context) ([]domain.Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Token, 0, len(s.tokenOrder))
	for _, addr := range s.tokenOrder {
		out = append(out, s.tokens[addr].Clone())
	}
	return out, nil
}

func (s *Store) Token(_ context.Context, address string) (domain.Token, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tokens[address]
	if !ok {
		return domain.Token{}, false, nil
	}
	return t.Clone(), true, nil
}

func (s *Store) PutToken(_ context.Context, token domain.Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tokens[token.Address]; !exists {
		s.tokenOrder = append(s.tokenOrder, token.Address)
	}
	s.tokens[token.Address] = token.Clone()
	return nil
}

func (s *Store) DeleteToken(_ context.Context, address string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tokens[address]; !exists {
		return false, nil
	}
	delete(s.tokens, address)
	s.tokenOrder = removeKey(s.tokenOrder, address)
	return true, nil
}

func (s *Store) ResetTokens(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tokens = make(map[string]domain.Token)
	s.tokenOrder = nil
	return nil
}

func removeKey(keys []string, key string) []string {
	for i, k := range keys {
		if k == key {
			return append(keys[:i], keys[i+1:]...)
		}
	}
	return keys
}
