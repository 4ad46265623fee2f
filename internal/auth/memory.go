package auth

import (
	"context"
	"sync"
	"time"
)

// MemoryUsers is an in-process Users for tests and local runs without a
// database.
type MemoryUsers struct {
	mu     sync.Mutex
	nextID uint64
	users  map[string]User
}

func NewMemoryUsers() *MemoryUsers {
	return &MemoryUsers{users: map[string]User{}}
}

func (s *MemoryUsers) Create(_ context.Context, email, password string) (User, error) {
	hash, err := HashPassword(password)
	if err != nil {
		return User{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	email = NormalizeEmail(email)
	if _, ok := s.users[email]; ok {
		return User{}, ErrEmailTaken
	}
	s.nextID++
	u := User{ID: s.nextID, Email: email, PasswordHash: hash, CreatedAt: time.Now().UTC()}
	s.users[email] = u
	return u, nil
}

func (s *MemoryUsers) Authenticate(_ context.Context, email, password string) (User, error) {
	s.mu.Lock()
	u, ok := s.users[NormalizeEmail(email)]
	s.mu.Unlock()
	if !ok || !ComparePassword(u.PasswordHash, password) {
		return User{}, ErrInvalidCredentials
	}
	return u, nil
}
