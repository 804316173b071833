package store

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Memory es el repositorio in-process. Thread-safe; devuelve copias
// para que los callers no muten el estado compartido.
type Memory struct {
	mu      sync.RWMutex
	byID    map[uuid.UUID]*User
	byEmail map[string]uuid.UUID
}

func NewMemory() *Memory {
	return &Memory{
		byID:    make(map[uuid.UUID]*User),
		byEmail: make(map[string]uuid.UUID),
	}
}

func normEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func cloneUser(u *User) *User {
	c := *u
	c.RecoveryHashes = append([]string(nil), u.RecoveryHashes...)
	return &c
}

func (m *Memory) Create(ctx context.Context, u *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := normEmail(u.Email)
	if _, exists := m.byEmail[key]; exists {
		return ErrDuplicate
	}
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	now := time.Now().UTC()
	u.Email = key
	u.CreatedAt = now
	u.UpdatedAt = now

	m.byID[u.ID] = cloneUser(u)
	m.byEmail[key] = u.ID
	return nil
}

func (m *Memory) GetByEmail(ctx context.Context, email string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.byEmail[normEmail(email)]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneUser(m.byID[id]), nil
}

func (m *Memory) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneUser(u), nil
}

func (m *Memory) GetByProviderID(ctx context.Context, provider, providerID string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, u := range m.byID {
		switch provider {
		case "google":
			if u.GoogleID != "" && u.GoogleID == providerID {
				return cloneUser(u), nil
			}
		case "facebook":
			if u.FacebookID != "" && u.FacebookID == providerID {
				return cloneUser(u), nil
			}
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.byID[id]
	if !ok {
		return ErrNotFound
	}
	u.PasswordHash = hash
	u.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *Memory) UpdateMFA(ctx context.Context, id uuid.UUID, totpSecret string, recoveryHashes []string, enabled bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.byID[id]
	if !ok {
		return ErrNotFound
	}
	u.TOTPSecret = totpSecret
	u.RecoveryHashes = append([]string(nil), recoveryHashes...)
	u.MFAEnabled = enabled
	u.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *Memory) ConsumeRecoveryCode(ctx context.Context, id uuid.UUID, index int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.byID[id]
	if !ok {
		return ErrNotFound
	}
	if index < 0 || index >= len(u.RecoveryHashes) {
		return ErrNotFound
	}
	u.RecoveryHashes[index] = ""
	u.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *Memory) LinkProvider(ctx context.Context, id uuid.UUID, provider, providerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.byID[id]
	if !ok {
		return ErrNotFound
	}
	switch provider {
	case "google":
		u.GoogleID = providerID
	case "facebook":
		u.FacebookID = providerID
	}
	u.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *Memory) Ping(ctx context.Context) error { return nil }

func (m *Memory) Close() {}
