package auth

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"herdbook.org/internal/ids"
)

// InMemory implements Store with in-process concurrency safety. It backs
// tests and the no-DSN development mode of cmd/api; production deployments
// use PGStore.
type InMemory struct {
	mu       sync.RWMutex
	accounts map[string]*Account // keyed by id
	emails   map[string]string   // lower-cased email -> id
	sessions map[string]*Session // keyed by token
}

var _ Store = (*InMemory)(nil)

// NewInMemory creates an empty in-memory store.
func NewInMemory() *InMemory {
	return &InMemory{
		accounts: make(map[string]*Account),
		emails:   make(map[string]string),
		sessions: make(map[string]*Session),
	}
}

func (s *InMemory) CreateAccount(ctx context.Context, account *Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.ToLower(account.Email)
	if _, ok := s.emails[key]; ok {
		return ErrAlreadyExists
	}
	if account.ID == "" {
		account.ID = ids.New()
	}
	now := time.Now().UTC()
	if account.CreatedAt.IsZero() {
		account.CreatedAt = now
	}
	account.UpdatedAt = account.CreatedAt
	cp := *account
	s.accounts[account.ID] = &cp
	s.emails[key] = account.ID
	return nil
}

func (s *InMemory) FindAccount(ctx context.Context, id string) (*Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	acc, ok := s.accounts[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *acc
	return &cp, nil
}

func (s *InMemory) FindAccountByEmail(ctx context.Context, email string) (*Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.emails[strings.ToLower(email)]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *s.accounts[id]
	return &cp, nil
}

func (s *InMemory) ListAccounts(ctx context.Context, limit, offset int) ([]*Account, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := make([]*Account, 0, len(s.accounts))
	for _, acc := range s.accounts {
		cp := *acc
		all = append(all, &cp)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].ID < all[j].ID
		}
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})

	total := len(all)
	if offset >= total {
		return nil, total, nil
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all, total, nil
}

func (s *InMemory) UpdateAccount(ctx context.Context, id string, upd AccountUpdate) (*Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	acc, ok := s.accounts[id]
	if !ok {
		return nil, ErrNotFound
	}
	if upd.Email != nil {
		key := strings.ToLower(*upd.Email)
		if other, taken := s.emails[key]; taken && other != id {
			return nil, ErrAlreadyExists
		}
		delete(s.emails, strings.ToLower(acc.Email))
		acc.Email = *upd.Email
		s.emails[key] = id
	}
	if upd.FullName != nil {
		acc.FullName = *upd.FullName
	}
	if upd.Role != nil {
		acc.Role = *upd.Role
	}
	if upd.Active != nil {
		acc.Active = *upd.Active
	}
	acc.UpdatedAt = time.Now().UTC()
	cp := *acc
	return &cp, nil
}

func (s *InMemory) DeleteAccount(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	acc, ok := s.accounts[id]
	if !ok {
		return ErrNotFound
	}
	delete(s.emails, strings.ToLower(acc.Email))
	delete(s.accounts, id)
	// Sessions of a deleted account are left in place; resolution fails on
	// the owner lookup, matching the relational join semantics.
	return nil
}

func (s *InMemory) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[id]
	if !ok {
		return ErrNotFound
	}
	ts := at.UTC()
	acc.LastLogin = &ts
	return nil
}

func (s *InMemory) CreateSession(ctx context.Context, session *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[session.Token]; ok {
		return ErrAlreadyExists
	}
	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now().UTC()
	}
	cp := *session
	s.sessions[session.Token] = &cp
	return nil
}

func (s *InMemory) ResolveSession(ctx context.Context, token string, now time.Time) (*Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[token]
	if !ok {
		return nil, ErrNotFound
	}
	if !now.Before(sess.ExpiresAt) {
		return nil, ErrNotFound
	}
	acc, ok := s.accounts[sess.AccountID]
	if !ok || !acc.Active {
		return nil, ErrNotFound
	}
	return &Identity{
		AccountID: acc.ID,
		Email:     acc.Email,
		Role:      acc.Role,
		FullName:  acc.FullName,
	}, nil
}

func (s *InMemory) DeleteSession(ctx context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, token)
	return nil
}

func (s *InMemory) DeleteExpiredSessions(ctx context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var removed int64
	for token, sess := range s.sessions {
		if !sess.ExpiresAt.After(before) {
			delete(s.sessions, token)
			removed++
		}
	}
	return removed, nil
}
