package ledger

import (
	"context"
	"sync"
)

// persistFunc receives the full user set, in creation order, before a change
// is committed. A non-nil error aborts the change.
type persistFunc func(users []User) error

type inMemoryStore struct {
	mu      sync.RWMutex
	users   map[string]User
	order   []string
	persist persistFunc
}

// NewInMemory creates a concurrency-safe in-memory store useful for unit tests
// and single-process development.
func NewInMemory() Store {
	return newInMemory(nil)
}

func newInMemory(persist persistFunc) *inMemoryStore {
	return &inMemoryStore{users: make(map[string]User), persist: persist}
}

func (s *inMemoryStore) Create(_ context.Context, user User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[user.UserID]; exists {
		return ErrUserExists
	}
	for symbol, acct := range user.Assets {
		if s.addressTaken(symbol, acct.Address) {
			return ErrAddressTaken
		}
	}

	stored := user.Clone()
	if s.persist != nil {
		if err := s.persist(s.snapshotWith(map[string]User{stored.UserID: stored}, stored.UserID)); err != nil {
			return err
		}
	}
	s.users[stored.UserID] = stored
	s.order = append(s.order, stored.UserID)
	return nil
}

func (s *inMemoryStore) Get(_ context.Context, userID string) (User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[userID]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return user.Clone(), nil
}

func (s *inMemoryStore) List(_ context.Context) ([]User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]User, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.users[id].Clone())
	}
	return out, nil
}

func (s *inMemoryStore) FindAddress(_ context.Context, address string) ([]AddressMatch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []AddressMatch
	for _, id := range s.order {
		out = append(out, s.users[id].addressMatches(address)...)
	}
	return out, nil
}

func (s *inMemoryStore) Update(ctx context.Context, userIDs []string, fn func(users []*User) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Duplicate ids share one working copy.
	byID := make(map[string]*User, len(userIDs))
	ptrs := make([]*User, len(userIDs))
	for i, id := range userIDs {
		if p, ok := byID[id]; ok {
			ptrs[i] = p
			continue
		}
		user, ok := s.users[id]
		if !ok {
			return ErrUserNotFound
		}
		clone := user.Clone()
		byID[id] = &clone
		ptrs[i] = &clone
	}

	if err := fn(ptrs); err != nil {
		return err
	}

	changed := make(map[string]User, len(byID))
	for id, p := range byID {
		changed[id] = *p
	}
	if s.persist != nil {
		if err := s.persist(s.snapshotWith(changed, "")); err != nil {
			return err
		}
	}
	for id, u := range changed {
		s.users[id] = u
	}
	return nil
}

// addressTaken reports whether address is registered under symbol. Callers
// hold s.mu.
func (s *inMemoryStore) addressTaken(symbol, address string) bool {
	for _, u := range s.users {
		if acct, ok := u.Assets[symbol]; ok && acct.Address == address {
			return true
		}
	}
	return false
}

// snapshotWith renders the user set as it would look after applying changed.
// appended names a user that is not yet in s.order. Callers hold s.mu.
func (s *inMemoryStore) snapshotWith(changed map[string]User, appended string) []User {
	out := make([]User, 0, len(s.order)+1)
	for _, id := range s.order {
		if u, ok := changed[id]; ok {
			out = append(out, u)
			continue
		}
		out = append(out, s.users[id])
	}
	if appended != "" {
		out = append(out, changed[appended])
	}
	return out
}
