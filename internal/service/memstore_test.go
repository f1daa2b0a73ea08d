package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prperemyshlev/social-auth/internal/domain"
	"github.com/prperemyshlev/social-auth/internal/repository"
)

// memStore is an in-memory AccountRepository and SessionRepository with the
// same conflict and expiry rules as the PostgreSQL schema
type memStore struct {
	mu       sync.Mutex
	now      func() time.Time
	accounts map[string]*domain.Account
	sessions map[string]*domain.Session

	// failSessions makes every session write fail
	failSessions error
}

var (
	_ repository.AccountRepository = (*memStore)(nil)
	_ repository.SessionRepository = (*memStore)(nil)
)

func newMemStore(now func() time.Time) *memStore {
	return &memStore{
		now:      now,
		accounts: make(map[string]*domain.Account),
		sessions: make(map[string]*domain.Session),
	}
}

func (m *memStore) repositories() *repository.Repositories {
	return &repository.Repositories{Accounts: m, Sessions: m}
}

func cloneAccount(a *domain.Account) *domain.Account {
	c := *a
	return &c
}

func cloneSession(s *domain.Session) *domain.Session {
	c := *s
	return &c
}

func (m *memStore) byEmail(email string) *domain.Account {
	for _, a := range m.accounts {
		if a.Email == email {
			return a
		}
	}
	return nil
}

func (m *memStore) subjectTaken(subject *string, get func(*domain.Account) *string, owner string) bool {
	if subject == nil {
		return false
	}
	for _, a := range m.accounts {
		if s := get(a); s != nil && *s == *subject && a.ID != owner {
			return true
		}
	}
	return false
}

func googleSubjectOf(a *domain.Account) *string { return a.GoogleSubject }
func appleSubjectOf(a *domain.Account) *string  { return a.AppleSubject }

func coalesce(v, fallback *string) *string {
	if v != nil {
		return v
	}
	return fallback
}

func (m *memStore) UpsertGoogle(_ context.Context, email string, subject, name, avatarURL *string) (*domain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	account := m.byEmail(email)
	owner := ""
	if account != nil {
		owner = account.ID
	}
	if m.subjectTaken(subject, googleSubjectOf, owner) {
		return nil, repository.ErrDuplicateSubject
	}

	if account == nil {
		account = &domain.Account{ID: uuid.New().String(), Email: email, CreatedAt: now}
		m.accounts[account.ID] = account
	}
	account.GoogleSubject = coalesce(subject, account.GoogleSubject)
	account.DisplayName = name
	account.AvatarURL = avatarURL
	account.UpdatedAt = now

	return cloneAccount(account), nil
}

func (m *memStore) UpsertApple(_ context.Context, email string, subject, name *string) (*domain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	account := m.byEmail(email)
	owner := ""
	if account != nil {
		owner = account.ID
	}
	if m.subjectTaken(subject, appleSubjectOf, owner) {
		return nil, repository.ErrDuplicateSubject
	}

	if account == nil {
		account = &domain.Account{ID: uuid.New().String(), Email: email, CreatedAt: now}
		m.accounts[account.ID] = account
	}
	account.AppleSubject = coalesce(subject, account.AppleSubject)
	account.DisplayName = coalesce(name, account.DisplayName)
	account.UpdatedAt = now

	return cloneAccount(account), nil
}

func (m *memStore) GetByAppleSubject(_ context.Context, subject string) (*domain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, a := range m.accounts {
		if a.AppleSubject != nil && *a.AppleSubject == subject {
			return cloneAccount(a), nil
		}
	}
	return nil, fmt.Errorf("apple subject %s: %w", subject, repository.ErrNotFound)
}

func (m *memStore) GetByID(_ context.Context, id string) (*domain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.accounts[id]
	if !ok {
		return nil, fmt.Errorf("account %s: %w", id, repository.ErrNotFound)
	}
	return cloneAccount(a), nil
}

func (m *memStore) UpdateAppleProfile(_ context.Context, id string, email, name *string) (*domain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.accounts[id]
	if !ok {
		return nil, fmt.Errorf("account %s: %w", id, repository.ErrNotFound)
	}
	if email != nil {
		if other := m.byEmail(*email); other != nil && other.ID != id {
			return nil, repository.ErrDuplicateEmail
		}
		a.Email = *email
	}
	a.DisplayName = coalesce(name, a.DisplayName)
	a.UpdatedAt = m.now()

	return cloneAccount(a), nil
}

func (m *memStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.accounts[id]; !ok {
		return fmt.Errorf("account %s: %w", id, repository.ErrNotFound)
	}
	delete(m.accounts, id)
	for token, s := range m.sessions {
		if s.AccountID == id {
			delete(m.sessions, token)
		}
	}
	return nil
}

func (m *memStore) Create(_ context.Context, accountID, refreshToken, deviceLabel string, expiresAt time.Time) (*domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failSessions != nil {
		return nil, m.failSessions
	}
	if _, ok := m.accounts[accountID]; !ok {
		return nil, fmt.Errorf("account %s does not exist", accountID)
	}
	if _, ok := m.sessions[refreshToken]; ok {
		return nil, repository.ErrDuplicateToken
	}

	s := &domain.Session{
		ID:           uuid.New().String(),
		AccountID:    accountID,
		RefreshToken: refreshToken,
		DeviceLabel:  deviceLabel,
		ExpiresAt:    expiresAt,
		CreatedAt:    m.now(),
	}
	m.sessions[refreshToken] = s
	return cloneSession(s), nil
}

func (m *memStore) FindValidByToken(_ context.Context, refreshToken string) (*domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[refreshToken]
	if !ok || s.IsExpired(m.now()) {
		return nil, fmt.Errorf("session: %w", repository.ErrNotFound)
	}
	return cloneSession(s), nil
}

func (m *memStore) Rotate(_ context.Context, oldToken, newToken string, expiresAt time.Time) (*domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failSessions != nil {
		return nil, m.failSessions
	}
	s, ok := m.sessions[oldToken]
	if !ok || s.IsExpired(m.now()) {
		return nil, fmt.Errorf("session: %w", repository.ErrNotFound)
	}

	delete(m.sessions, oldToken)
	s.RefreshToken = newToken
	s.ExpiresAt = expiresAt
	m.sessions[newToken] = s
	return cloneSession(s), nil
}

func (m *memStore) DeleteByToken(_ context.Context, refreshToken string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failSessions != nil {
		return m.failSessions
	}
	delete(m.sessions, refreshToken)
	return nil
}

func (m *memStore) DeleteAllForAccount(_ context.Context, accountID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failSessions != nil {
		return m.failSessions
	}
	for token, s := range m.sessions {
		if s.AccountID == accountID {
			delete(m.sessions, token)
		}
	}
	return nil
}

func (m *memStore) DeleteExpired(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failSessions != nil {
		return 0, m.failSessions
	}
	var deleted int64
	now := m.now()
	for token, s := range m.sessions {
		if s.IsExpired(now) {
			delete(m.sessions, token)
			deleted++
		}
	}
	return deleted, nil
}

func (m *memStore) sessionCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func (m *memStore) accountCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.accounts)
}
